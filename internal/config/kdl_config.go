package config

import (
	"fmt"
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/treeq/internal/debug"
)

// applyFile overlays the KDL file at path onto cfg. A missing file is not an error.
func applyFile(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := applyKDL(cfg, string(content)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	debug.Log("CONFIG", "applied %s\n", path)
	return nil
}

// parseKDL returns the defaults overlaid with content
func parseKDL(content string) (*Config, error) {
	cfg := Default()
	if err := applyKDL(cfg, content); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyKDL(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}
	applyNodes(cfg, doc.Nodes, topNodes, "")
	return nil
}

// nodeSetter copies one KDL node into the config
type nodeSetter func(cfg *Config, n *document.Node)

var topNodes = map[string]nodeSetter{
	"version":    intNode(func(c *Config, v int) { c.Version = v }),
	"collection": section("collection", collectionNodes),
	"search":     section("search", searchNodes),
	"sources":    section("sources", sourceNodes),
	"blacklist": func(c *Config, n *document.Node) {
		c.Blacklist = append(c.Blacklist, collectStringArgs(n)...)
	},
	"state_file": stringNode(func(c *Config, v string) { c.StateFile = v }),
}

var collectionNodes = map[string]nodeSetter{
	"paginated":          boolNode(func(c *Config, v bool) { c.Collection.Paginated = v }),
	"page_size":          intNode(func(c *Config, v int) { c.Collection.PageSize = v }),
	"sort_order":         lowerNode(func(c *Config, v string) { c.Collection.DefaultSortOrder = v }),
	"default_sort_order": lowerNode(func(c *Config, v string) { c.Collection.DefaultSortOrder = v }),
	"sort_column":        stringNode(func(c *Config, v string) { c.Collection.SortColumn = v }),
	"index_sorted":       boolNode(func(c *Config, v bool) { c.Collection.IndexSorted = v }),
	"actions":            listNode(func(c *Config, v []string) { c.Collection.Actions = v }),
	"flags":              listNode(func(c *Config, v []string) { c.Collection.Flags = v }),
	"selection":          lowerNode(func(c *Config, v string) { c.Collection.Selection = v }),
}

var searchNodes = map[string]nodeSetter{
	"debounce_ms":       intNode(func(c *Config, v int) { c.Search.DebounceMs = v }),
	"throttle_ms":       intNode(func(c *Config, v int) { c.Search.ThrottleMs = v }),
	"limit":             intNode(func(c *Config, v int) { c.Search.Limit = v }),
	"matcher":           lowerNode(func(c *Config, v string) { c.Search.Matcher = v }),
	"threshold":         floatNode(func(c *Config, v float64) { c.Search.Threshold = v }),
	"stem":              boolNode(func(c *Config, v bool) { c.Search.Stem = v }),
	"cache_ttl_seconds": intNode(func(c *Config, v int) { c.Search.CacheTTLSeconds = v }),
}

var sourceNodes = map[string]nodeSetter{
	"folders":           stringNode(func(c *Config, v string) { c.Sources.Folders = v }),
	"items":             stringNode(func(c *Config, v string) { c.Sources.Items = v }),
	"key":               stringNode(func(c *Config, v string) { c.Sources.Key = v }),
	"watch":             boolNode(func(c *Config, v bool) { c.Sources.Watch = v }),
	"watch_debounce_ms": intNode(func(c *Config, v int) { c.Sources.WatchDebounceMs = v }),
}

// applyNodes runs the setter registered for each node; unknown names are logged and skipped
func applyNodes(cfg *Config, nodes []*document.Node, setters map[string]nodeSetter, scope string) {
	for _, n := range nodes {
		name := nodeName(n)
		set, ok := setters[name]
		if !ok {
			debug.Log("CONFIG", "ignoring unknown node %s%q\n", scope, name)
			continue
		}
		set(cfg, n)
	}
}

func section(name string, setters map[string]nodeSetter) nodeSetter {
	return func(cfg *Config, n *document.Node) {
		applyNodes(cfg, n.Children, setters, name+".")
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

// firstArg returns the node's first argument when it has type T
func firstArg[T any](n *document.Node) (T, bool) {
	var zero T
	if n == nil || len(n.Arguments) == 0 {
		return zero, false
	}
	v, ok := n.Arguments[0].Value.(T)
	return v, ok
}

// firstNumberArg accepts integer and float literals alike
func firstNumberArg(n *document.Node) (float64, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		debug.Warn("config node %q wants a number, got %T\n", nodeName(n), v)
		return 0, false
	}
}

func intNode(set func(*Config, int)) nodeSetter {
	return func(cfg *Config, n *document.Node) {
		if v, ok := firstNumberArg(n); ok {
			set(cfg, int(v))
		}
	}
}

func floatNode(set func(*Config, float64)) nodeSetter {
	return func(cfg *Config, n *document.Node) {
		if v, ok := firstNumberArg(n); ok {
			set(cfg, v)
		}
	}
}

func boolNode(set func(*Config, bool)) nodeSetter {
	return func(cfg *Config, n *document.Node) {
		if v, ok := firstArg[bool](n); ok {
			set(cfg, v)
		}
	}
}

func stringNode(set func(*Config, string)) nodeSetter {
	return func(cfg *Config, n *document.Node) {
		if v, ok := firstArg[string](n); ok {
			set(cfg, v)
		}
	}
}

// lowerNode is stringNode for case-insensitive enum values
func lowerNode(set func(*Config, string)) nodeSetter {
	return stringNode(func(cfg *Config, v string) { set(cfg, strings.ToLower(v)) })
}

func listNode(set func(*Config, []string)) nodeSetter {
	return func(cfg *Config, n *document.Node) { set(cfg, collectStringArgs(n)) }
}

// collectStringArgs accepts both `flags "a" "b"` and `flags { "a"; "b" }`
func collectStringArgs(n *document.Node) []string {
	var out []string
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, child := range n.Children {
		if s, ok := firstArg[string](child); ok {
			out = append(out, s)
		} else if child.Name != nil {
			if s, ok := child.Name.Value.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
