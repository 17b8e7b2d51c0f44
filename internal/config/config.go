// Package config loads treeq settings from .treeq.kdl files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/standardbeagle/treeq/internal/query"
	"github.com/standardbeagle/treeq/internal/search"
	"github.com/standardbeagle/treeq/internal/selection"
	"github.com/standardbeagle/treeq/internal/types"
)

// FileName is the configuration file looked up in the home and project directories
const FileName = ".treeq.kdl"

type Config struct {
	Version    int
	Collection Collection
	Search     Search
	Sources    Sources
	// Blacklist hides these ids from every pipeline
	Blacklist []string
	// StateFile persists filter state between runs; empty disables persistence
	StateFile string
}

type Collection struct {
	Paginated        bool
	PageSize         int    `validate:"gte=1,lte=10000"`
	DefaultSortOrder string `validate:"oneof=asc desc"`
	IndexSorted      bool
	SortColumn       string
	Actions          []string `validate:"dive,required"`
	Flags            []string `validate:"dive,required"`
	// Selection is "single" or "range"
	Selection string `validate:"oneof=single range"`
}

type Search struct {
	DebounceMs      int     `validate:"gte=0,lte=60000"`
	ThrottleMs      int     `validate:"gte=0,lte=600000"`
	Limit           int     `validate:"gte=0"`
	Matcher         string  `validate:"oneof=subsequence fuzzy jaro-winkler levenshtein"`
	Threshold       float64 `validate:"gte=0,lte=1"`
	Stem            bool
	CacheTTLSeconds int `validate:"gte=0"`
}

type Sources struct {
	Folders string
	Items   string
	// Key is the table key holding records inside each file
	Key             string
	Watch           bool
	WatchDebounceMs int `validate:"gte=0"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Version: 1,
		Collection: Collection{
			Paginated:        true,
			PageSize:         types.DefaultPageSize,
			DefaultSortOrder: string(types.SortAsc),
			Selection:        "range",
		},
		Search: Search{
			DebounceMs:      types.DefaultSearchDebounceMs,
			ThrottleMs:      types.DefaultSearchThrottleMs,
			Limit:           types.DefaultSearchLimit,
			Matcher:         search.MatcherSubsequence,
			Threshold:       search.DefaultSimilarityThreshold,
			CacheTTLSeconds: 300,
		},
		Sources: Sources{
			WatchDebounceMs: 100,
		},
	}
}

// Load reads the home config then the project config in dir; project values
// override home values node by node. With neither file present the defaults
// are returned. The result is validated.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) != filepath.Clean(dir) {
		if err := applyFile(cfg, filepath.Join(home, FileName)); err != nil {
			return nil, err
		}
	}
	if err := applyFile(cfg, filepath.Join(dir, FileName)); err != nil {
		return nil, err
	}
	cfg.resolvePaths(dir)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePaths makes source and state paths relative to the config directory
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Sources.Folders, &c.Sources.Items, &c.StateFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// QueryConfig converts the collection section for the pipelines
func (c *Config) QueryConfig() query.Config {
	return query.Config{
		Paginated:        c.Collection.Paginated,
		PageSize:         c.Collection.PageSize,
		DefaultSortOrder: types.SortDirection(c.Collection.DefaultSortOrder),
		IndexSorted:      c.Collection.IndexSorted,
		Actions:          c.Collection.Actions,
		Flags:            c.Collection.Flags,
	}
}

// QueryOptions converts the search section for the pipelines
func (c *Config) QueryOptions() (query.Options, error) {
	matcher, err := search.NewMatcher(c.Search.Matcher, c.Search.Threshold)
	if err != nil {
		return query.Options{}, err
	}
	return query.Options{
		Debounce:    time.Duration(c.Search.DebounceMs) * time.Millisecond,
		Throttle:    time.Duration(c.Search.ThrottleMs) * time.Millisecond,
		Matcher:     matcher,
		Normalizer:  search.Normalizer{Stem: c.Search.Stem},
		SearchLimit: c.Search.Limit,
		CacheTTL:    time.Duration(c.Search.CacheTTLSeconds) * time.Second,
	}, nil
}

// InitialSort is the sort applied before the user picks a column
func (c *Config) InitialSort() types.SortSpec {
	if c.Collection.SortColumn == "" {
		return types.SortSpec{}
	}
	return types.SortSpec{Column: c.Collection.SortColumn, Direction: types.SortDirection(c.Collection.DefaultSortOrder)}
}

// SelectionMode converts the collection selection setting
func (c *Config) SelectionMode() selection.Mode {
	if c.Collection.Selection == "single" {
		return selection.Single
	}
	return selection.Range
}

// BlacklistIDs returns the blacklist as ids
func (c *Config) BlacklistIDs() []types.ID {
	out := make([]types.ID, len(c.Blacklist))
	for i, s := range c.Blacklist {
		out[i] = types.ID(s)
	}
	return out
}
