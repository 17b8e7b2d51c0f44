package dataset

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/treeq/internal/cell"
	"github.com/standardbeagle/treeq/internal/clock"
	"github.com/standardbeagle/treeq/internal/query"
	"github.com/standardbeagle/treeq/internal/selection"
	"github.com/standardbeagle/treeq/internal/source"
	"github.com/standardbeagle/treeq/internal/types"
)

// Hierarchy is the folder/item pipeline over dataset records
type Hierarchy = query.Hierarchy[Folder, Item, FilterState]

// List is the flat item pipeline over dataset records
type List = query.List[Item, FilterState]

// Settings configure the dataset pipelines
type Settings struct {
	Config        query.Config
	Options       query.Options
	SelectionMode selection.Mode
	Store         query.StateStore[FilterState]
	// FolderAttrs and ItemAttrs add searchable attribute columns
	FolderAttrs []string
	ItemAttrs   []string
	// Blacklist hides folders and items with these ids
	Blacklist []types.ID
}

func (s Settings) blacklists() []cell.Readable[[]types.ID] {
	if len(s.Blacklist) == 0 {
		return nil
	}
	return []cell.Readable[[]types.ID]{cell.NewValue(s.Blacklist)}
}

// HierarchySpec builds the pipeline spec for nested folders and items
func HierarchySpec(s Settings) query.HierarchySpec[Folder, Item, FilterState] {
	return query.HierarchySpec[Folder, Item, FilterState]{
		Config:        s.Config,
		ParentOf:      FolderParent,
		FolderOf:      ItemFolder,
		FolderColumns: FolderColumns(s.FolderAttrs...),
		ItemColumns:   ItemColumns(s.ItemAttrs...),
		FolderFilters: FolderFilters(),
		ItemFilters:   ItemFilters(),
		SelectionMode: s.SelectionMode,
		Store:         s.Store,
		Options:       s.Options,
	}
}

// NewHierarchy creates the hierarchy pipeline with empty input cells
func NewHierarchy(s Settings) (*Hierarchy, error) {
	return query.NewHierarchy(HierarchySpec(s), query.HierarchyInputs[Folder, Item, FilterState]{
		Blacklists: s.blacklists(),
	})
}

// NewList creates the flat item pipeline. Items keep their declared Order
// when the config is index sorted.
func NewList(s Settings) *List {
	return NewListOver(s, nil)
}

// NewListOver creates the flat item pipeline reading items, typically the
// hierarchy's item cell so both views follow the same source
func NewListOver(s Settings, items cell.Cell[[]Item]) *List {
	return query.NewList(query.ListSpec[Item, FilterState]{
		Config:     s.Config,
		Columns:    ItemColumns(s.ItemAttrs...),
		Filters:    ItemFilters(),
		IndexOrder: func(i Item) int { return i.Order },
		Store:      s.Store,
		Options:    s.Options,
	}, query.ListInputs[Item, FilterState]{
		Records:    items,
		Blacklists: s.blacklists(),
	})
}

// Files names the record files of a dataset
type Files struct {
	Folders string
	Items   string
	// Key is the table key holding the records; empty reads a top-level list
	// (TOML falls back to "records")
	Key string
}

// Snapshot is a loaded dataset
type Snapshot struct {
	Folders []Folder
	Items   []Item
}

func fileSource[T any](path, key string, opts WatchOptions) (*source.FileSource[T], error) {
	src, err := source.NewFileSource[T](path, opts.Watch)
	if err != nil {
		return nil, err
	}
	src.Key = key
	src.Debounce = opts.Debounce
	src.Clock = opts.Clock
	return src, nil
}

// Load reads both record files concurrently. An empty folder path loads no
// folders.
func Load(ctx context.Context, files Files) (Snapshot, error) {
	var snap Snapshot
	g, _ := errgroup.WithContext(ctx)

	if files.Folders != "" {
		g.Go(func() error {
			src, err := fileSource[Folder](files.Folders, files.Key, WatchOptions{})
			if err != nil {
				return err
			}
			folders, err := src.Load()
			if err != nil {
				return fmt.Errorf("load folders: %w", err)
			}
			snap.Folders = folders
			return nil
		})
	}
	g.Go(func() error {
		src, err := fileSource[Item](files.Items, files.Key, WatchOptions{})
		if err != nil {
			return err
		}
		items, err := src.Load()
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		snap.Items = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// WatchOptions control how Attach follows the record files
type WatchOptions struct {
	Watch bool
	// Debounce coalesces change bursts; zero uses the source default
	Debounce time.Duration
	Clock    clock.Clock
}

// Attach binds the record files to the hierarchy inputs. With watch set the
// files are re-read on change until the hierarchy is disposed.
func Attach(ctx context.Context, h *Hierarchy, files Files, watch bool, dispatch func(func())) error {
	return AttachWith(ctx, h, files, WatchOptions{Watch: watch}, dispatch)
}

// AttachWith is Attach with explicit watch options
func AttachWith(ctx context.Context, h *Hierarchy, files Files, opts WatchOptions, dispatch func(func())) error {
	items, err := fileSource[Item](files.Items, files.Key, opts)
	if err != nil {
		return err
	}
	if files.Folders != "" {
		folders, err := fileSource[Folder](files.Folders, files.Key, opts)
		if err != nil {
			return err
		}
		h.AddCloser(source.Bind(ctx, folders, h.Folders(), dispatch).Stop)
	}
	h.AddCloser(source.Bind(ctx, items, h.Items(), dispatch).Stop)
	return nil
}
