// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Corpus, Indexer, DocMap, Search, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Corpus  CorpusConfig  `yaml:"corpus"`
	Indexer IndexerConfig `yaml:"indexer"`
	DocMap  DocMapConfig  `yaml:"docMap"`
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CorpusConfig locates the raw crawled corpus.
type CorpusConfig struct {
	// Dir is walked lexically; the walk order defines doc-id assignment.
	Dir string `yaml:"dir"`
}

// IndexerConfig controls the builder's memory thresholds, worker pool, and
// the structural weight table applied by the normalizer.
type IndexerConfig struct {
	DataDir string `yaml:"dataDir"`
	// A flush triggers when any configured bound is exceeded after a
	// document completes. Zero disables that bound.
	SegmentMaxBytes int64 `yaml:"segmentMaxBytes"`
	SegmentMaxTerms int   `yaml:"segmentMaxTerms"`
	SegmentMaxDocs  int   `yaml:"segmentMaxDocs"`
	Workers         int   `yaml:"workers"`
	// Weights boost terms by the HTML element class they were extracted
	// from. Policy constants, not structure: override freely.
	Weights map[string]float64 `yaml:"weights"`
}

// SegmentsDir returns the directory partial segments are flushed into.
func (c IndexerConfig) SegmentsDir() string {
	return filepath.Join(c.DataDir, "segments")
}

// FinalIndexPath returns the committed final index file path.
func (c IndexerConfig) FinalIndexPath() string {
	return filepath.Join(c.DataDir, "final_index.wdx")
}

// DocMapConfig selects the doc-id <-> URL persistence backend.
type DocMapConfig struct {
	// Backend is "json" or "sqlite".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// ResolvePath returns the configured doc map path, defaulting to a file
// next to the final index named for the backend.
func (c DocMapConfig) ResolvePath(dataDir string) string {
	if c.Path != "" {
		return c.Path
	}
	if c.Backend == "sqlite" {
		return filepath.Join(dataDir, "doc_map.db")
	}
	return filepath.Join(dataDir, "doc_map.json")
}

// SearchConfig controls query execution defaults and the canonical batch
// query set.
type SearchConfig struct {
	DefaultTopK  int      `yaml:"defaultTopK"`
	DefaultMode  string   `yaml:"defaultMode"`
	CacheSize    int      `yaml:"cacheSize"`
	BatchQueries []string `yaml:"batchQueries"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment
// variable overrides. Missing values fall back to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with working defaults for local use.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Dir: "corpus",
		},
		Indexer: IndexerConfig{
			DataDir:         "index",
			SegmentMaxBytes: 64 << 20,
			SegmentMaxTerms: 50000,
			SegmentMaxDocs:  0,
			Workers:         4,
			Weights: map[string]float64{
				"title":   6,
				"heading": 4,
				"bold":    2,
				"body":    1,
			},
		},
		DocMap: DocMapConfig{
			Backend: "json",
			Path:    "",
		},
		Search: SearchConfig{
			DefaultTopK: 5,
			DefaultMode: "AND",
			CacheSize:   256,
			BatchQueries: []string{
				"cristina lopes",
				"machine learning",
				"ACM",
				"master of software engineering",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch strings.ToUpper(c.Search.DefaultMode) {
	case "AND", "OR":
	default:
		return pkgerrors.Newf(pkgerrors.ErrConfig, "unknown search mode %q", c.Search.DefaultMode)
	}
	if c.Search.DefaultTopK <= 0 {
		return pkgerrors.Newf(pkgerrors.ErrConfig, "defaultTopK must be positive, got %d", c.Search.DefaultTopK)
	}
	if c.Indexer.Workers <= 0 {
		return pkgerrors.Newf(pkgerrors.ErrConfig, "workers must be positive, got %d", c.Indexer.Workers)
	}
	switch c.DocMap.Backend {
	case "json", "sqlite":
	default:
		return pkgerrors.Newf(pkgerrors.ErrConfig, "unknown doc map backend %q", c.DocMap.Backend)
	}
	if c.Indexer.SegmentMaxBytes == 0 && c.Indexer.SegmentMaxTerms == 0 && c.Indexer.SegmentMaxDocs == 0 {
		return pkgerrors.New(pkgerrors.ErrConfig, "at least one segment flush bound must be set")
	}
	return nil
}

// applyEnvOverrides reads WD_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WD_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("WD_INDEX_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("WD_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("WD_SEGMENT_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Indexer.SegmentMaxBytes = n
		}
	}
	if v := os.Getenv("WD_SEGMENT_MAX_TERMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.SegmentMaxTerms = n
		}
	}
	if v := os.Getenv("WD_DOCMAP_BACKEND"); v != "" {
		cfg.DocMap.Backend = v
	}
	if v := os.Getenv("WD_DOCMAP_PATH"); v != "" {
		cfg.DocMap.Path = v
	}
	if v := os.Getenv("WD_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WD_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WD_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
