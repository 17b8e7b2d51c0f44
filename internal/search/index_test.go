package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/treeq/internal/types"
)

type note struct {
	ID    types.ID
	Title string
	Body  string
}

func (n note) GetID() types.ID { return n.ID }

func noteFields() []Field[note] {
	return []Field[note]{
		{ID: "title", Path: "Title", Weight: 2},
		{ID: "body", Extract: func(n note) string { return n.Body }},
	}
}

func ids[R any](hits []Hit[R]) []types.ID {
	out := make([]types.ID, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestIndexEmptyQueryReturnsAllInOrder(t *testing.T) {
	ix := NewIndex(noteFields())
	ix.Sync([]note{{ID: "b"}, {ID: "a"}, {ID: "c"}})

	for _, q := range []string{"", "   "} {
		hits := ix.Search(q, 1)
		assert.Equal(t, []types.ID{"b", "a", "c"}, ids(hits))
		for i, h := range hits {
			assert.Equal(t, float64(i), h.Score)
			assert.Empty(t, h.Field)
		}
	}
}

func TestIndexSearchRanksAndLimits(t *testing.T) {
	ix := NewIndex(noteFields())
	ix.Sync([]note{
		{ID: "1", Title: "groceries", Body: "milk eggs"},
		{ID: "2", Title: "budget", Body: "monthly budget review"},
		{ID: "3", Title: "misc", Body: "nothing here"},
		{ID: "4", Title: "Budget 2024", Body: ""},
	})

	hits := ix.Search("budget", 0)
	require.Len(t, hits, 2)
	assert.ElementsMatch(t, []types.ID{"2", "4"}, ids(hits))
	assert.Equal(t, "title", hits[0].Field)
	assert.LessOrEqual(t, hits[0].Score, hits[1].Score)

	assert.Len(t, ix.Search("budget", 1), 1)
	assert.Empty(t, ix.Search("qqq", 0))
}

func TestIndexFieldWeight(t *testing.T) {
	fields := []Field[note]{
		{ID: "title", Path: "Title", Weight: 4},
		{ID: "body", Path: "Body"},
	}
	ix := NewIndex(fields)
	ix.Sync([]note{
		{ID: "body-hit", Body: "alpha"},
		{ID: "title-hit", Title: "alpha"},
	})
	hits := ix.Search("alpha", 0)
	require.Len(t, hits, 2)
	assert.Equal(t, types.ID("title-hit"), hits[0].ID, "heavier field wins on equal text")
}

func TestIndexSyncReusesUnchangedEntries(t *testing.T) {
	fields := []Field[note]{{ID: "title", Path: "Title"}}
	ix := NewIndex(fields, WithMatcher(MatcherFunc(func(q, text string) (float64, bool) {
		return 0, q == text
	})))

	records := []note{{ID: "a", Title: "x"}, {ID: "b", Title: "y"}}
	assert.True(t, ix.Sync(records))
	gen := ix.Generation()

	assert.False(t, ix.Sync(records), "identical sync is not a change")
	assert.Equal(t, gen, ix.Generation())

	records[1].Title = "z"
	assert.True(t, ix.Sync(records))
	assert.Equal(t, gen+1, ix.Generation())
	assert.Equal(t, []types.ID{"b"}, ids(ix.Search("z", 0)))
	assert.Empty(t, ix.Search("y", 0), "old text must be gone")

	assert.True(t, ix.Sync([]note{records[1], records[0]}), "reordering is a change")
	assert.Equal(t, 2, ix.Len())
}

func TestIndexCacheFlushedOnSync(t *testing.T) {
	scored := 0
	ix := NewIndex(noteFields(), WithMatcher(MatcherFunc(func(q, text string) (float64, bool) {
		scored++
		return 0.5, q == text
	})))
	ix.Sync([]note{{ID: "a", Title: "hello"}})

	first := ix.Search("hello", 0)
	n := scored
	second := ix.Search("hello", 0)
	assert.Equal(t, n, scored, "second identical query served from cache")
	assert.Equal(t, first, second)

	ix.Sync([]note{{ID: "a", Title: "hello"}, {ID: "b", Title: "hello"}})
	assert.Len(t, ix.Search("hello", 0), 2)
}

func TestIndexWithStemmingNormalizer(t *testing.T) {
	ix := NewIndex(noteFields(), WithNormalizer(Normalizer{Stem: true}))
	ix.Sync([]note{{ID: "r", Title: "Runner's guide to running"}})
	assert.Len(t, ix.Search("runs", 0), 1)
}

func TestIndexCachedHitsFollowReplacedRecords(t *testing.T) {
	scored := 0
	fields := []Field[note]{{ID: "title", Path: "Title"}}
	ix := NewIndex(fields, WithMatcher(MatcherFunc(func(q, text string) (float64, bool) {
		scored++
		return 0.5, q == text
	})))
	ix.Sync([]note{{ID: "a", Title: "hello", Body: "v1"}})
	require.Len(t, ix.Search("hello", 0), 1)
	n := scored

	// Body is not indexed, so the entry keeps its text and the cache survives
	assert.False(t, ix.Sync([]note{{ID: "a", Title: "hello", Body: "v2"}}))

	hits := ix.Search("hello", 0)
	require.Len(t, hits, 1)
	assert.Equal(t, n, scored, "served from cache")
	assert.Equal(t, "v2", hits[0].Record.Body, "cached hit carries the current record")
	assert.Equal(t, "title", hits[0].Field)
}
