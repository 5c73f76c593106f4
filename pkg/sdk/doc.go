// Package vibematch embeds the vibe matching engine in a Go program.
//
// A Client owns an embedding cache and an optional remote embedder. Without
// an embedder every vector is synthetic and results are flagged Degraded.
//
//	client, _ := vibematch.New(ctx,
//	    vibematch.WithFileCache("data/embeddings_cache.json"),
//	    vibematch.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	items, _ := vibematch.DefaultCatalog()
//	_ = client.Load(ctx, items)
//	res, _ := client.Search(ctx, "energetic urban chic", vibematch.WithLimit(5))
//	for _, m := range res.Matches {
//	    fmt.Println(m.Rank, m.Name, m.Score)
//	}
package vibematch
