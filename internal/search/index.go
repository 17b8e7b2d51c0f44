package search

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"

	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/types"
)

// Hit is one scored record
type Hit[R any] struct {
	ID     types.ID
	Record R
	Score  float64
	// Field is the id of the best matching field; empty for unscored results
	Field string
}

// BatchMatcher is implemented by matchers that can score a column of texts
// in one call. Misses are reported as +Inf.
type BatchMatcher interface {
	Matcher
	ScoreAll(query string, texts []string) []float64
}

type entry[R any] struct {
	id          types.ID
	record      R
	fingerprint uint64
	texts       []string
}

// IndexOption configures an Index
type IndexOption func(*indexOptions)

type indexOptions struct {
	matcher    Matcher
	normalizer Normalizer
	cacheTTL   time.Duration
}

// WithMatcher sets the matcher; the default is SubsequenceMatcher
func WithMatcher(m Matcher) IndexOption {
	return func(o *indexOptions) { o.matcher = m }
}

// WithNormalizer sets the text normalizer
func WithNormalizer(n Normalizer) IndexOption {
	return func(o *indexOptions) { o.normalizer = n }
}

// WithCacheTTL sets how long query results are cached between syncs
func WithCacheTTL(d time.Duration) IndexOption {
	return func(o *indexOptions) { o.cacheTTL = d }
}

// Index is a searchable snapshot of one collection. Each Index owns its
// matcher and result cache; share neither across independently filtered views.
type Index[R types.Identifiable] struct {
	fields     []Field[R]
	matcher    Matcher
	normalizer Normalizer

	entries    []entry[R]
	pos        map[types.ID]int
	results    *cache.Cache
	generation uint64
}

// NewIndex creates an empty index over fields
func NewIndex[R types.Identifiable](fields []Field[R], opts ...IndexOption) *Index[R] {
	o := indexOptions{
		matcher:  SubsequenceMatcher{},
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Index[R]{
		fields:     fields,
		matcher:    o.matcher,
		normalizer: o.normalizer,
		pos:        make(map[types.ID]int),
		// no janitor goroutine: expired entries are swept on insert
		results: cache.New(o.cacheTTL, 0),
	}
}

// Len returns the number of indexed records
func (ix *Index[R]) Len() int { return len(ix.entries) }

// Generation increases every time Sync changes the index
func (ix *Index[R]) Generation() uint64 { return ix.generation }

func (ix *Index[R]) fingerprint(raw []string) uint64 {
	d := xxhash.New()
	var n [8]byte
	for _, s := range raw {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		_, _ = d.Write(n[:])
		_, _ = d.WriteString(s)
	}
	return d.Sum64()
}

// Sync replaces the indexed collection with records, keeping the normalized
// text of entries whose identity and field values are unchanged. It reports
// whether anything changed; the result cache is flushed when it did.
func (ix *Index[R]) Sync(records []R) bool {
	next := make([]entry[R], len(records))
	pos := make(map[types.ID]int, len(records))
	changed := len(records) != len(ix.entries)
	reused := 0

	raw := make([]string, len(ix.fields))
	for i, r := range records {
		id := r.GetID()
		for k, f := range ix.fields {
			raw[k] = f.Value(r)
		}
		fp := ix.fingerprint(raw)

		e := entry[R]{id: id, record: r, fingerprint: fp}
		if old, ok := ix.pos[id]; ok && ix.entries[old].fingerprint == fp {
			e.texts = ix.entries[old].texts
			reused++
			if old != i {
				changed = true
			}
		} else {
			e.texts = make([]string, len(raw))
			for k, s := range raw {
				e.texts[k] = ix.normalizer.Normalize(s)
			}
			changed = true
		}
		next[i] = e
		pos[id] = i
	}

	ix.entries = next
	ix.pos = pos
	if changed {
		ix.generation++
		ix.results.Flush()
		debug.LogSearch("index synced: %d records, %d reused, generation %d\n", len(next), reused, ix.generation)
	}
	return changed
}

// Search ranks records against query, best first, keeping at most limit
// hits (limit <= 0 keeps all). An empty query returns every record in index
// order with ascending synthetic scores.
func (ix *Index[R]) Search(query string, limit int) []Hit[R] {
	q := ix.normalizer.Normalize(query)
	if q == "" {
		out := make([]Hit[R], len(ix.entries))
		for i, e := range ix.entries {
			out[i] = Hit[R]{ID: e.id, Record: e.record, Score: float64(i)}
		}
		return out
	}

	key := fmt.Sprintf("%d\x00%s", limit, q)
	if cached, ok := ix.results.Get(key); ok {
		return ix.hits(cached.([]ranked))
	}

	sc := newScoreboard(len(ix.entries))

	if bm, ok := ix.matcher.(BatchMatcher); ok {
		column := make([]string, len(ix.entries))
		for k, f := range ix.fields {
			for i, e := range ix.entries {
				column[i] = e.texts[k]
			}
			for i, s := range bm.ScoreAll(q, column) {
				if column[i] == "" || math.IsInf(s, 1) {
					continue
				}
				sc.keep(i, k, s/f.weight())
			}
		}
	} else {
		for i, e := range ix.entries {
			for k, f := range ix.fields {
				if e.texts[k] == "" {
					continue
				}
				if s, ok := ix.matcher.Score(q, e.texts[k]); ok {
					sc.keep(i, k, s/f.weight())
				}
			}
		}
	}

	ranks := make([]ranked, 0)
	for i := range ix.entries {
		if !sc.found[i] {
			continue
		}
		ranks = append(ranks, ranked{pos: i, score: sc.best[i], field: ix.fields[sc.field[i]].ID})
	}
	sort.SliceStable(ranks, func(a, b int) bool { return ranks[a].score < ranks[b].score })
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}

	ix.results.DeleteExpired()
	ix.results.SetDefault(key, ranks)
	debug.LogSearch("query %q: %d hits\n", q, len(ranks))
	return ix.hits(ranks)
}

// ranked is a cached result row. It points at an entry position rather than
// holding the record, so a cache hit always reads the current snapshot; a
// Sync that moves entries flushes the cache.
type ranked struct {
	pos   int
	score float64
	field string
}

func (ix *Index[R]) hits(ranks []ranked) []Hit[R] {
	out := make([]Hit[R], len(ranks))
	for i, r := range ranks {
		e := ix.entries[r.pos]
		out[i] = Hit[R]{ID: e.id, Record: e.record, Score: r.score, Field: r.field}
	}
	return out
}

// scoreboard keeps each record's best weighted score across fields
type scoreboard struct {
	best  []float64
	field []int
	found []bool
}

func newScoreboard(n int) *scoreboard {
	return &scoreboard{best: make([]float64, n), field: make([]int, n), found: make([]bool, n)}
}

func (s *scoreboard) keep(i, k int, score float64) {
	if !s.found[i] || score < s.best[i] {
		s.best[i], s.field[i], s.found[i] = score, k, true
	}
}
