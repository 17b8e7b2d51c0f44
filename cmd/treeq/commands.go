package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/treeq/internal/dataset"
	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/display"
	"github.com/standardbeagle/treeq/internal/mcp"
	"github.com/standardbeagle/treeq/internal/selection"
	"github.com/standardbeagle/treeq/internal/types"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withSession loads config and data, applies the shared flags and hands the
// session to fn
func withSession(c *cli.Context, fn func(s *session) error) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	s, err := openSession(c.Context, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	s.applyFilters(c)
	if err := s.applySort(c); err != nil {
		return err
	}
	return fn(s)
}

func treeCommand(c *cli.Context) error {
	return withSession(c, func(s *session) error {
		resp, err := mcp.NewTreeResponse(s.tree, "", c.Int("depth"), c.Bool("show-items"))
		if err != nil {
			return err
		}
		w := c.App.Writer
		if c.Bool("json") {
			return writeJSON(w, resp)
		}
		format := "text"
		if c.Bool("compact") {
			format = "compact"
		}
		formatter := display.NewTreeFormatter(display.FormatterOptions{Format: format, ShowCounts: true, ShowState: true})
		_, err = io.WriteString(w, formatter.Format(resp))
		return err
	})
}

func listCommand(c *cli.Context) error {
	if c.Int("page") < 0 || c.Int("page-size") < 0 {
		return fmt.Errorf("page and page-size must not be negative")
	}
	return withSession(c, func(s *session) error {
		s.list.Page().Set(types.PageState{Index: c.Int("page"), Size: c.Int("page-size")})
		resp := mcp.NewListResponse(s.tree, s.list)
		w := c.App.Writer
		if c.Bool("json") {
			return writeJSON(w, resp)
		}
		for _, it := range resp.Items {
			fmt.Fprintf(w, "%-12s %-32s %-12s %s\n", it.ID, it.Name, it.FolderID, strings.Join(it.Tags, ","))
		}
		fmt.Fprintf(w, "page %d/%d (%d items)\n", resp.Page.Index+1, max(resp.Page.Pages, 1), resp.Page.Total)
		return nil
	})
}

func searchCommand(c *cli.Context) error {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return fmt.Errorf("search needs a query")
	}
	return withSession(c, func(s *session) error {
		s.tree.SubmitQuery(q)
		feed, err := s.tree.SearchFeed()
		if err != nil {
			return err
		}
		resp := mcp.NewSearchResponse(q, feed.Get(), c.Int("limit"))
		w := c.App.Writer
		if c.Bool("json") {
			return writeJSON(w, resp)
		}
		for _, row := range resp.Rows {
			fmt.Fprintf(w, "%-6s %-12s %-32s %.3f  %s\n", row.Kind, row.ID, row.Name, row.Score, strings.Join(row.Path, "/"))
		}
		fmt.Fprintf(w, "%d of %d matches\n", len(resp.Rows), resp.Total)
		return nil
	})
}

func stateCommand(c *cli.Context) error {
	return withSession(c, func(s *session) error {
		engine := s.tree.Selection()
		var ids []types.ID
		for _, id := range c.StringSlice("select") {
			ids = append(ids, types.ID(id))
		}
		engine.Select(ids...)

		tree := s.tree.Tree().Get()
		for _, id := range c.StringSlice("folder") {
			ref := selection.RefID[dataset.Folder](types.ID(id))
			if _, ok := selection.Resolve(tree, ref); !ok {
				return fmt.Errorf("unknown folder: %s", id)
			}
			s.tree.ToggleFolder(ref, nil, c.Bool("shallow"))
		}

		resp, err := mcp.NewFolderStateResponse(s.tree, nil)
		if err != nil {
			return err
		}
		w := c.App.Writer
		if c.Bool("json") {
			return writeJSON(w, struct {
				Selected []types.ID `json:"selected"`
				mcp.FolderStateResponse
			}{engine.Selected().Sorted(), resp})
		}
		fmt.Fprintf(w, "selected: %v\n", engine.Selected().Sorted())
		for _, f := range tree.Folders() {
			fmt.Fprintf(w, "%s %s (%s)\n", display.StateMark(resp.States[f.ID]), f.Model.Name, f.ID)
		}
		return nil
	})
}

func serveCommand(c *cli.Context) error {
	// Enable MCP mode to suppress all debug output on stdio
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if c.IsSet("watch") {
		cfg.Sources.Watch = c.Bool("watch")
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	server := mcp.NewServer(cfg, s.tree, s.list)
	if cfg.Sources.Watch {
		if err := dataset.AttachWith(ctx, s.tree, s.files, dataset.WatchOptions{
			Watch:    true,
			Debounce: time.Duration(cfg.Sources.WatchDebounceMs) * time.Millisecond,
		}, server.Dispatch); err != nil {
			return err
		}
		debug.LogMCP("watching %s\n", s.files.Items)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			debug.LogMCP("received shutdown signal\n")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
