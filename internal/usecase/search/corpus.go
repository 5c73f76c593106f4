package search

import (
	"github.com/kailas-cloud/vibematch/internal/domain"
)

// Corpus is an embedded catalog, ready for ranking. It is immutable once built
// and safe for concurrent searches.
type Corpus struct {
	items      []domain.CatalogItem
	byID       map[string]int
	vectors    []domain.CorpusVector
	normalized []string
	source     domain.Source
	degraded   bool
	status     string
}

// Len returns the number of items.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Items returns a copy of the catalog items in load order.
func (c *Corpus) Items() []domain.CatalogItem {
	if c == nil {
		return nil
	}
	return append([]domain.CatalogItem(nil), c.items...)
}

// Source is the embedding space most of the corpus lives in.
func (c *Corpus) Source() domain.Source { return c.source }

// Degraded reports whether any corpus vector is synthetic.
func (c *Corpus) Degraded() bool { return c.degraded }

// Status describes how the corpus vectors were obtained.
func (c *Corpus) Status() string { return c.status }

func (c *Corpus) item(id string) (domain.CatalogItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.CatalogItem{}, false
	}
	return c.items[i], true
}

// dominantSource picks the source with the most vectors; ties go to remote.
func dominantSource(vs []domain.CorpusVector) domain.Source {
	remote := 0
	for _, v := range vs {
		if v.Vector.Source == domain.SourceRemote {
			remote++
		}
	}
	if remote*2 >= len(vs) && remote > 0 {
		return domain.SourceRemote
	}
	return domain.SourceSynthetic
}
