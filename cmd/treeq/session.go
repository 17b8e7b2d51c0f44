package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/treeq/internal/config"
	"github.com/standardbeagle/treeq/internal/dataset"
	"github.com/standardbeagle/treeq/internal/persist"
	"github.com/standardbeagle/treeq/internal/types"
)

var errNoItems = errors.New("no items file: set sources.items in " + config.FileName + " or pass --items")

// session holds the pipelines built over one loaded dataset
type session struct {
	cfg   *config.Config
	files dataset.Files
	tree  *dataset.Hierarchy
	list  *dataset.List
}

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	dir := c.String("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", dir, err)
	}

	if v := c.String("folders"); v != "" {
		cfg.Sources.Folders = v
	}
	if v := c.String("items"); v != "" {
		cfg.Sources.Items = v
	}
	if v := c.String("key"); v != "" {
		cfg.Sources.Key = v
	}
	if cfg.Sources.Items == "" {
		return nil, errNoItems
	}
	return cfg, nil
}

func filesOf(cfg *config.Config) dataset.Files {
	return dataset.Files{Folders: cfg.Sources.Folders, Items: cfg.Sources.Items, Key: cfg.Sources.Key}
}

// openSession loads the dataset once and builds both pipelines over it. The
// list reads the hierarchy's item cell.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	files := filesOf(cfg)
	snap, err := dataset.Load(ctx, files)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.QueryOptions()
	if err != nil {
		return nil, err
	}
	settings := dataset.Settings{
		Config:        cfg.QueryConfig(),
		Options:       opts,
		SelectionMode: cfg.SelectionMode(),
		FolderAttrs:   dataset.FolderAttrKeys(snap.Folders),
		ItemAttrs:     dataset.ItemAttrKeys(snap.Items),
		Blacklist:     cfg.BlacklistIDs(),
	}
	if cfg.StateFile != "" {
		settings.Store = persist.NewStore[dataset.FilterState](cfg.StateFile)
	}

	tree, err := dataset.NewHierarchy(settings)
	if err != nil {
		return nil, err
	}
	list := dataset.NewListOver(settings, tree.Items())

	initial := cfg.InitialSort()
	tree.Sort().Set(initial)
	list.Sort().Set(initial)
	tree.Folders().Set(snap.Folders)
	tree.Items().Set(snap.Items)

	return &session{cfg: cfg, files: files, tree: tree, list: list}, nil
}

func (s *session) Close() {
	s.list.Dispose()
	s.tree.Dispose()
}

// applyFilters writes the filter flags of c into both pipelines. Without
// any filter flag the current (possibly restored) state is kept.
func (s *session) applyFilters(c *cli.Context) {
	if !c.IsSet("glob") && !c.IsSet("folder-glob") && !c.IsSet("tag") && !c.IsSet("in") {
		return
	}
	state := dataset.FilterState{
		Glob:       c.String("glob"),
		FolderGlob: c.String("folder-glob"),
		Tags:       c.StringSlice("tag"),
		Folder:     types.ID(c.String("in")),
	}
	s.tree.FilterState().Set(state)
	s.list.FilterState().Set(state)
}

// applySort writes --sort/--direction into both pipelines
func (s *session) applySort(c *cli.Context) error {
	column := c.String("sort")
	if column == "" {
		return nil
	}
	dir := types.SortDirection(s.cfg.Collection.DefaultSortOrder)
	if c.IsSet("direction") {
		parsed, err := types.ParseSortDirection(c.String("direction"))
		if err != nil {
			return err
		}
		dir = parsed
	}
	spec := types.SortSpec{Column: column, Direction: dir}
	s.tree.Sort().Set(spec)
	s.list.Sort().Set(spec)
	return nil
}
