package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/treeq/internal/cell"
	"github.com/standardbeagle/treeq/testhelpers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type rec struct {
	ID   string `json:"id" yaml:"id" toml:"id"`
	Name string `json:"name" yaml:"name" toml:"name"`
}

func TestBindFromFunc(t *testing.T) {
	target := cell.NewValue[[]rec](nil)
	src := FromFunc("static", func(context.Context) ([]rec, error) {
		return []rec{{ID: "1"}}, nil
	})

	b := Bind(context.Background(), src, target, nil)
	<-b.Done()
	b.Stop()
	assert.Equal(t, []rec{{ID: "1"}}, target.Get())
}

func TestBindFailsSoft(t *testing.T) {
	target := cell.NewValue([]rec{{ID: "stale"}})
	src := FromFunc("broken", func(context.Context) ([]rec, error) {
		return nil, errors.New("backend down")
	})

	b := Bind(context.Background(), src, target, nil)
	<-b.Done()
	got := target.Get()
	assert.NotNil(t, got)
	assert.Empty(t, got, "errors become an empty collection")
}

func TestBindChannelAndDispatch(t *testing.T) {
	target := cell.NewValue[[]rec](nil)
	ch := make(chan Snapshot[rec])
	dispatched := make(chan func(), 4)

	b := Bind(context.Background(), FromChannel("stream", ch), target, func(fn func()) { dispatched <- fn })

	ch <- Snapshot[rec]{Records: []rec{{ID: "a"}}}
	(<-dispatched)()
	assert.Equal(t, "a", target.Get()[0].ID)

	ch <- Snapshot[rec]{Err: errors.New("hiccup")}
	(<-dispatched)()
	assert.Empty(t, target.Get())

	b.Stop()
	b.Stop() // idempotent
}

func TestBindStopCancelsBlockedSource(t *testing.T) {
	target := cell.NewValue[[]rec](nil)
	src := FromFunc("slow", func(ctx context.Context) ([]rec, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	b := Bind(context.Background(), src, target, nil)
	b.Stop()
	assert.Nil(t, target.Get(), "cancelled sources write nothing")
}

func TestDecodeFormats(t *testing.T) {
	jsonRecs, err := Decode[rec]([]byte(`[{"id":"1","name":"one"}]`), FormatJSON, "")
	require.NoError(t, err)
	assert.Equal(t, "one", jsonRecs[0].Name)

	yamlRecs, err := Decode[rec]([]byte("- id: \"2\"\n  name: two\n"), FormatYAML, "")
	require.NoError(t, err)
	assert.Equal(t, "two", yamlRecs[0].Name)

	tomlRecs, err := Decode[rec]([]byte("[[records]]\nid = \"3\"\nname = \"three\"\n"), FormatTOML, "")
	require.NoError(t, err)
	assert.Equal(t, "three", tomlRecs[0].Name)

	keyed, err := Decode[rec]([]byte(`{"items":[{"id":"4"}]}`), FormatJSON, "items")
	require.NoError(t, err)
	assert.Equal(t, "4", keyed[0].ID)

	_, err = Decode[rec]([]byte(`{`), FormatJSON, "")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	for path, want := range map[string]Format{"a.json": FormatJSON, "b.YML": FormatYAML, "c.yaml": FormatYAML, "d.toml": FormatTOML} {
		got, err := DetectFormat(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := DetectFormat("e.csv")
	assert.Error(t, err)
}

func TestFileSourceLoadOnce(t *testing.T) {
	path := testhelpers.WriteFile(t, t.TempDir(), "items.yaml", "- id: a\n- id: b\n")

	src, err := NewFileSource[rec](path, false)
	require.NoError(t, err)

	target := cell.NewValue[[]rec](nil)
	b := Bind(context.Background(), src, target, nil)
	<-b.Done()
	assert.Len(t, target.Get(), 2)

	missing, err := NewFileSource[rec](filepath.Join(t.TempDir(), "nope.json"), false)
	require.NoError(t, err)
	b = Bind(context.Background(), missing, target, nil)
	<-b.Done()
	assert.Empty(t, target.Get())
}

func TestFileSourceWatchReloads(t *testing.T) {
	path := testhelpers.WriteFile(t, t.TempDir(), "items.json", `[{"id":"a"}]`)

	src, err := NewFileSource[rec](path, true)
	require.NoError(t, err)
	src.Debounce = 10 * time.Millisecond

	updates := make(chan []rec, 64)
	target := cell.NewValue[[]rec](nil)
	b := Bind(context.Background(), src, target, func(fn func()) {
		fn()
		updates <- target.Get()
	})
	defer b.Stop()

	first := <-updates
	require.Len(t, first, 1)

	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a"},{"id":"b"}]`), 0o644))
	testhelpers.WaitFor(t, func() bool {
		select {
		case recs := <-updates:
			return len(recs) == 2
		default:
			return false
		}
	}, 5*time.Second)
}
