package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/catalog"
	"github.com/kailas-cloud/vibematch/internal/config"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
	logpkg "github.com/kailas-cloud/vibematch/internal/logger"
	chiTransport "github.com/kailas-cloud/vibematch/internal/transport/chi"
	"github.com/kailas-cloud/vibematch/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "vibematch:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "vibematch",
		Usage:   "Match free-text vibe queries against a product catalog",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Environment name, selects config/<env>.yaml",
				Value:   config.GetEnv(),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Explicit config file path, overrides --env lookup",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Embed the catalog and serve the HTTP API",
				Action: serveCommand,
			},
			{
				Name:      "search",
				Usage:     "Run one query against the catalog and print the matches",
				ArgsUsage: "<query words...>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of matches to return (default from config)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full result as JSON",
					},
				},
			},
			{
				Name:   "warm",
				Usage:  "Embed the catalog and persist the vectors to the cache",
				Action: warmCommand,
			},
			{
				Name:   "vibes",
				Usage:  "List the distinct vibe tags in the catalog",
				Action: vibesCommand,
			},
		},
	}
}

// setup loads configuration and builds the logger from global flags.
func setup(c *cli.Context) (config.Config, *zap.Logger, error) {
	env := c.String("env")

	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func serveCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vibematch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", c.String("env")),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.loadCatalog(ctx); err != nil {
		return err
	}

	server := chiTransport.NewServer(a.search, a.health, &a.corpus, chiTransport.SearchDefaults{
		TopK:       cfg.Search.TopK,
		Thresholds: cfg.Search.Thresholds(),
	}, logger.Named("http")).WithUsage(a.usage)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return cli.Exit("search needs a query, e.g. vibematch search energetic urban chic", 2)
	}

	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := buildApp(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	corpus, err := a.loadCatalog(c.Context)
	if err != nil {
		return err
	}

	topK := cfg.Search.TopK
	if c.IsSet("top-k") {
		topK = c.Int("top-k")
	}
	res, err := a.search.Search(c.Context, query, corpus, topK, cfg.Search.Thresholds())
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(c.App.Writer, res)
	return nil
}

func warmCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := buildApp(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	corpus, err := a.loadCatalog(c.Context)
	if err != nil {
		return err
	}
	if err := a.cache.Flush(c.Context); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Embedded %d catalog items (%s)\n", corpus.Len(), corpus.Status())
	fmt.Fprintf(c.App.Writer, "Cache %s holds %d entries\n", a.cache.Backend(), a.cache.Len())
	if !a.cache.Persistent() {
		fmt.Fprintln(c.App.Writer, "Warning: cache is memory-only, vectors were not persisted")
	}
	return nil
}

func vibesCommand(c *cli.Context) error {
	cfg, _, err := setup(c)
	if err != nil {
		return err
	}
	items, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	for _, v := range catalog.Vibes(items) {
		fmt.Fprintln(c.App.Writer, v)
	}
	return nil
}

// printResult renders a result for a terminal.
func printResult(w io.Writer, res match.Result) {
	fmt.Fprintf(w, "Query: %s\n", res.Query)
	if res.Degraded {
		fmt.Fprintf(w, "Note: %s\n", res.Status)
	}
	if res.Verdict.NoMatch {
		fmt.Fprintln(w, "No strong match found. Closest items anyway:")
	}
	for _, m := range res.Matches {
		fmt.Fprintf(w, "%2d. %-32s score=%.3f  [%s]\n", m.Rank, m.Name, m.Score, strings.Join(m.Tags, ", "))
	}
	fmt.Fprintf(w, "Verdict: %s (top %.3f, good hits %d/%d, avg %.3f)\n",
		res.Verdict.Label, res.Verdict.TopScore, res.Summary.GoodHits, res.Summary.Total, res.Summary.AvgScore)
	if len(res.Verdict.Hints) > 0 {
		fmt.Fprintln(w, "Try something like:")
		for _, h := range res.Verdict.Hints {
			fmt.Fprintf(w, "  - %s\n", h)
		}
	}
	if res.Excluded > 0 {
		fmt.Fprintf(w, "(%d catalog vectors skipped: incompatible embedding)\n", res.Excluded)
	}
}
