package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/treeq/internal/clock"
	"github.com/standardbeagle/treeq/internal/debug"
)

// Format is a record file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DefaultTOMLKey holds the records of a TOML file, which cannot have a
// top-level array: [[records]]
const DefaultTOMLKey = "records"

// DetectFormat picks the format from the file extension
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported record file extension %q", filepath.Ext(path))
	}
}

// Decode parses a record list. With a key the document is a table holding
// the list under that key; otherwise it is the list itself (TOML always
// uses a key, DefaultTOMLKey when none is given).
func Decode[T any](data []byte, format Format, key string) ([]T, error) {
	if format == FormatTOML && key == "" {
		key = DefaultTOMLKey
	}
	if key == "" {
		var records []T
		var err error
		switch format {
		case FormatJSON:
			err = json.Unmarshal(data, &records)
		case FormatYAML:
			err = yaml.Unmarshal(data, &records)
		default:
			return nil, fmt.Errorf("unsupported format %q", format)
		}
		return records, err
	}

	var table map[string][]T
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &table)
	case FormatYAML:
		err = yaml.Unmarshal(data, &table)
	case FormatTOML:
		err = toml.Unmarshal(data, &table)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return table[key], nil
}

// FileSource loads records from a JSON, YAML or TOML file and, when Watch is
// set, reloads them every time the file changes.
type FileSource[T any] struct {
	Path   string
	Format Format
	Key    string
	Watch  bool
	// Debounce coalesces bursts of change events; zero means 100ms
	Debounce time.Duration
	Clock    clock.Clock
}

// NewFileSource creates a source for path with the format taken from its extension
func NewFileSource[T any](path string, watch bool) (*FileSource[T], error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return &FileSource[T]{Path: path, Format: format, Watch: watch}, nil
}

// Name implements Source
func (s *FileSource[T]) Name() string { return s.Path }

// Load reads and decodes the file once
func (s *FileSource[T]) Load() ([]T, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	format := s.Format
	if format == "" {
		if format, err = DetectFormat(s.Path); err != nil {
			return nil, err
		}
	}
	records, err := Decode[T](data, format, s.Key)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return records, nil
}

// Run implements Source
func (s *FileSource[T]) Run(ctx context.Context, emit Emit[T]) error {
	if !s.Watch {
		records, err := s.Load()
		emit(records, err)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors often replace files instead of writing them
	if err := watcher.Add(filepath.Dir(s.Path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.Path, err)
	}

	records, err := s.Load()
	emit(records, err)

	clk := s.Clock
	if clk == nil {
		clk = clock.Real()
	}
	debounce := s.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	reload := make(chan struct{}, 1)
	var mu sync.Mutex
	var timer clock.Timer
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	target := filepath.Clean(s.Path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debug.LogSource("%s: %v\n", s.Path, event.Op)
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = clk.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
			mu.Unlock()

		case <-reload:
			records, err := s.Load()
			emit(records, err)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			debug.LogSource("%s: watcher error: %v\n", s.Path, err)
		}
	}
}
