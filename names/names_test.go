package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatePrefersDesired(t *testing.T) {
	a := New(NewMapScope([]string{"list"}, nil))
	assert.Equal(t, "count", a.Allocate("count"))
	assert.Equal(t, "result", a.Allocate("list", "result"))
}

func TestAllocateSuffixes(t *testing.T) {
	a := New(NewMapScope([]string{"count", "x", "i", "count1"}, nil))
	assert.Equal(t, "count2", a.Allocate("count"))
	assert.Equal(t, "x1", a.Allocate("x"))
	assert.Equal(t, "i1", a.Allocate("i"))
	assert.Equal(t, "x2", a.Allocate("x"))
}

func TestAllocateRejectsKeywords(t *testing.T) {
	a := New(nil)
	assert.Equal(t, "int1", a.Allocate("int"))
	assert.Equal(t, "v1", a.Allocate(""))
	assert.Equal(t, "v2", a.Allocate("2abc"))
}

func TestAllocateDeterministic(t *testing.T) {
	scope := NewMapScope([]string{"sum", "e"}, []string{"OUTER"})
	run := func() []string {
		a := New(scope)
		return []string{a.Allocate("sum"), a.Allocate("e"), a.Allocate("sum"), a.AllocateLabel("")}
	}
	assert.Equal(t, run(), run())
	assert.Equal(t, []string{"sum1", "e1", "sum2", "OUTER1"}, run())
}

func TestPushPopReleases(t *testing.T) {
	a := New(nil)
	a.Push()
	assert.Equal(t, "s", a.Allocate("s"))
	a.Pop()
	assert.True(t, a.Available("s"))
	assert.Equal(t, "s", a.Allocate("s"))
	a.Pop()
	assert.False(t, a.Available("s"))
}

func TestAllocateOuterSurvivesPop(t *testing.T) {
	a := New(nil)
	a.Push()
	assert.Equal(t, "x", a.Allocate("x"))
	assert.Equal(t, "limit", a.AllocateOuter("limit"))
	a.Pop()
	assert.True(t, a.Available("x"))
	assert.False(t, a.Available("limit"))
}

func TestReserve(t *testing.T) {
	a := New(nil)
	a.Reserve("x")
	assert.Equal(t, "x1", a.Allocate("x"))
}

func TestLabels(t *testing.T) {
	a := New(NewMapScope(nil, []string{"OUTER"}))
	a.SetDefaultLabel("")
	assert.Equal(t, "OUTER1", a.AllocateLabel(""))
	assert.Equal(t, "OUTER2", a.AllocateLabel(""))
	a.SetDefaultLabel("LOOP")
	assert.Equal(t, "LOOP", a.AllocateLabel(""))
}
