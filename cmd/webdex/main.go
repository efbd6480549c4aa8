// Command webdex builds a weighted inverted index over a crawled corpus and
// answers boolean AND/OR keyword queries against it with TF-IDF ranking.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/webcrawl/webdex/internal/docmap"
	"github.com/webcrawl/webdex/internal/indexer"
	"github.com/webcrawl/webdex/internal/search"
	"github.com/webcrawl/webdex/internal/search/parser"
	"github.com/webcrawl/webdex/internal/store"
	"github.com/webcrawl/webdex/pkg/config"
	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
	"github.com/webcrawl/webdex/pkg/logger"
	"github.com/webcrawl/webdex/pkg/metrics"
)

var (
	appName = "webdex"
	appSha  = "populated-at-link-time"
)

func main() {
	if err := makeApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(pkgerrors.ExitCode(err))
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Version = appSha
	app.Usage = "bounded-memory web index builder and retrieval engine"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			EnvVar: "WD_CONFIG",
			Usage:  "path to YAML config file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "build",
			Usage:  "(re)build partial segments, final index, and doc map from the corpus directory",
			Action: runBuild,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "corpus",
					Usage: "override the corpus directory",
				},
			},
		},
		{
			Name:      "query",
			Usage:     "run one query and print ranked results",
			ArgsUsage: "<query terms>",
			Action:    runQuery,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode",
					Usage: "boolean mode: AND or OR",
				},
				cli.IntFlag{
					Name:  "top",
					Usage: "number of results to return",
				},
				cli.StringFlag{
					Name:  "output",
					Usage: "write results to a JSON file",
				},
			},
		},
		{
			Name:   "batch",
			Usage:  "run the configured canonical query set",
			Action: runBatch,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "top",
					Usage: "number of results per query",
				},
				cli.StringFlag{
					Name:  "output",
					Usage: "write combined results to a JSON file",
				},
			},
		},
		{
			Name:   "interactive",
			Usage:  "accept queries interactively until terminated",
			Action: runInteractive,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode",
					Usage: "default boolean mode: AND or OR",
				},
				cli.IntFlag{
					Name:  "top",
					Usage: "number of results per query",
				},
			},
		},
		{
			Name:   "rebuild-docmap",
			Usage:  "reconstruct the doc map by re-walking the corpus in ingestion order",
			Action: runRebuildDocMap,
		},
	}
	return app
}

// setup loads configuration, initialises logging, and starts the metrics
// server when enabled. The returned metrics may be nil.
func setup(c *cli.Context) (*config.Config, *metrics.Metrics, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		go func() {
			if err := metrics.Serve(cfg.Metrics.Port); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}
	return cfg, m, nil
}

func runBuild(c *cli.Context) error {
	cfg, m, err := setup(c)
	if err != nil {
		return err
	}
	if dir := c.String("corpus"); dir != "" {
		cfg.Corpus.Dir = dir
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := indexer.New(*cfg, m).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d documents (%d skipped) into %d segments\n",
		result.Documents, result.Skipped, result.Segments)
	fmt.Printf("final index: %d unique terms, %d postings\n", result.Terms, result.Postings)
	return nil
}

// openEngine opens the committed index read-only. A missing index surfaces
// as ErrIndexMissing with its own exit code, distinct from a query with
// zero results, which is success.
func openEngine(cfg *config.Config, m *metrics.Metrics) (*search.Engine, *store.Store, error) {
	s, err := store.Open(*cfg)
	if err != nil {
		return nil, nil, err
	}
	return search.New(s, cfg.Search.CacheSize, m), s, nil
}

func runQuery(c *cli.Context) error {
	cfg, m, err := setup(c)
	if err != nil {
		return err
	}
	query := strings.Join(c.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return pkgerrors.New(pkgerrors.ErrConfig, "query command needs a query string")
	}
	mode, topK, err := queryParams(c, cfg)
	if err != nil {
		return err
	}
	engine, s, err := openEngine(cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := engine.Execute(context.Background(), query, mode, topK)
	if err != nil {
		return err
	}
	printResult(result)
	if out := c.String("output"); out != "" {
		return writeJSON(out, map[string]*search.Result{query: result})
	}
	return nil
}

func runBatch(c *cli.Context) error {
	cfg, m, err := setup(c)
	if err != nil {
		return err
	}
	mode, err := parser.ParseMode(cfg.Search.DefaultMode)
	if err != nil {
		return err
	}
	topK := cfg.Search.DefaultTopK
	if c.Int("top") > 0 {
		topK = c.Int("top")
	}
	engine, s, err := openEngine(cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()

	combined := make(map[string]*search.Result, len(cfg.Search.BatchQueries))
	for i, query := range cfg.Search.BatchQueries {
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Query %d: %s\n", i+1, query)
		result, err := engine.Execute(context.Background(), query, mode, topK)
		if err != nil {
			return err
		}
		combined[query] = result
		printResult(result)
	}
	if out := c.String("output"); out != "" {
		return writeJSON(out, combined)
	}
	return nil
}

func runInteractive(c *cli.Context) error {
	cfg, m, err := setup(c)
	if err != nil {
		return err
	}
	mode, topK, err := queryParams(c, cfg)
	if err != nil {
		return err
	}
	engine, s, err := openEngine(cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("search interface started (%s semantics, top %d); type 'exit' to quit\n", mode, topK)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nsearch> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if low := strings.ToLower(query); low == "exit" || low == "quit" {
			break
		}
		result, err := engine.Execute(context.Background(), query, mode, topK)
		if err != nil {
			return err
		}
		printResult(result)
	}
	return scanner.Err()
}

func runRebuildDocMap(c *cli.Context) error {
	cfg, _, err := setup(c)
	if err != nil {
		return err
	}
	m, err := docmap.Rebuild(cfg.Corpus.Dir)
	if err != nil {
		return err
	}
	dmStore, err := docmap.OpenStore(cfg.DocMap.Backend, cfg.DocMap.ResolvePath(cfg.Indexer.DataDir))
	if err != nil {
		return err
	}
	if err := dmStore.Save(m); err != nil {
		return err
	}
	fmt.Printf("rebuilt doc map with %d entries\n", m.Len())
	return nil
}

func queryParams(c *cli.Context, cfg *config.Config) (parser.Mode, int, error) {
	modeStr := cfg.Search.DefaultMode
	if c.String("mode") != "" {
		modeStr = c.String("mode")
	}
	mode, err := parser.ParseMode(modeStr)
	if err != nil {
		return mode, 0, err
	}
	topK := cfg.Search.DefaultTopK
	if c.IsSet("top") {
		topK = c.Int("top")
	}
	if topK <= 0 {
		return mode, 0, pkgerrors.Newf(pkgerrors.ErrConfig, "top-k must be positive, got %d", topK)
	}
	return mode, topK, nil
}

func printResult(result *search.Result) {
	if len(result.Results) == 0 {
		fmt.Println("No results found.")
		return
	}
	for rank, hit := range result.Results {
		fmt.Printf("%d. %s  (doc_id=%d, score=%g)\n", rank+1, hit.URL, hit.DocID, hit.Score)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing results to %s: %w", path, err)
	}
	fmt.Printf("saved results to %s\n", path)
	return nil
}
