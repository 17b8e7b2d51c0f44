package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueNotifiesSynchronously(t *testing.T) {
	v := NewValue(1)
	var seen []int
	cancel := v.Watch(func() { seen = append(seen, v.Get()) })

	v.Set(2)
	v.Set(3)
	assert.Equal(t, []int{2, 3}, seen)
	assert.Equal(t, uint64(2), v.Version())

	cancel()
	cancel() // idempotent
	v.Set(4)
	assert.Equal(t, []int{2, 3}, seen)
	assert.Equal(t, 0, v.watchers.len())
}

func TestValueWithEqualSuppressesNoopWrites(t *testing.T) {
	v := NewValue("a", WithEqual(func(a, b string) bool { return a == b }))
	calls := 0
	v.Watch(func() { calls++ })

	v.Set("a")
	assert.Equal(t, 0, calls)
	assert.Equal(t, uint64(0), v.Version())

	v.Update(func(s string) string { return s + "b" })
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ab", v.Get())
}

func TestMemoIsLazy(t *testing.T) {
	src := NewValue(2)
	m := NewMemo(func() int { return src.Get() * 10 }, Deps(src))

	assert.Equal(t, 0, m.Recomputes(), "nothing computed before first read")
	assert.Equal(t, 20, m.Get())
	assert.Equal(t, 20, m.Get())
	assert.Equal(t, 1, m.Recomputes())

	src.Set(3)
	src.Set(4)
	assert.Equal(t, 1, m.Recomputes(), "writes only mark the memo stale")
	assert.Equal(t, 40, m.Get())
	assert.Equal(t, 2, m.Recomputes())
}

func TestMemoChainSeesOneSnapshot(t *testing.T) {
	a := NewValue(1)
	double := NewMemo(func() int { return a.Get() * 2 }, Deps(a))
	// sum depends on a both directly and through double
	sum := NewMemo(func() int { return a.Get() + double.Get() }, Deps(a, double))

	var observed []int
	Effect(func() { observed = append(observed, sum.Get()) }, sum)

	require.Equal(t, 3, sum.Get())
	a.Set(5)
	require.NotEmpty(t, observed)
	for _, got := range observed {
		assert.Equal(t, 15, got, "effect must never see a half-updated chain")
	}
}

func TestMemoInvalidateAndClose(t *testing.T) {
	calls := 0
	src := NewValue(0)
	m := NewMemo(func() int { calls++; return src.Get() }, Deps(src), Named("probe"))
	m.Get()
	m.Invalidate()
	m.Get()
	assert.Equal(t, 2, calls)

	m.Close()
	src.Set(9)
	assert.Equal(t, 0, m.Get(), "closed memo no longer follows its dependency")
}

func TestOnComputeHook(t *testing.T) {
	var names []string
	m := NewMemo(func() int { return 1 }, nil, Named("stage"), OnCompute(func(n string) { names = append(names, n) }))
	m.Get()
	m.Get()
	assert.Equal(t, []string{"stage"}, names)
}

func TestEffectStop(t *testing.T) {
	a := NewValue(0)
	b := NewValue(0)
	runs := 0
	stop := Effect(func() { runs++ }, a, b)

	a.Set(1)
	b.Set(1)
	assert.Equal(t, 2, runs)

	stop()
	a.Set(2)
	assert.Equal(t, 2, runs)
}

func TestWatchDuringNotify(t *testing.T) {
	v := NewValue(0)
	var late int
	v.Watch(func() {
		v.Watch(func() { late++ })
	})
	v.Set(1)
	assert.Equal(t, 0, late, "watchers added during notify start with the next write")
	v.Set(2)
	assert.Equal(t, 1, late)
}

func TestConst(t *testing.T) {
	c := Const[int]{V: 7}
	assert.Equal(t, 7, c.Get())
	c.Watch(func() { t.Fatal("const never notifies") })()
}
