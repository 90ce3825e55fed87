package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oscilla/patchc/ir"
)

func TestConstPoolDedupsNumerics(t *testing.T) {
	p := ir.NewConstPool()

	id1 := p.Intern(1.0)
	id2 := p.Intern(1)
	id3 := p.Intern(int32(1))
	assert.Equal(t, id1, id2, "float64(1) and int(1) should intern to the same constant")
	assert.Equal(t, id1, id3, "float64(1) and int32(1) should intern to the same constant")
	assert.Equal(t, 1, p.Len())

	id4 := p.Intern(2.0)
	assert.NotEqual(t, id1, id4)
	assert.Equal(t, 2, p.Len())
}

func TestConstPoolDedupsStringsAndBools(t *testing.T) {
	p := ir.NewConstPool()

	a := p.Intern("hello")
	b := p.Intern("hello")
	c := p.Intern("world")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	tru := p.Intern(true)
	tru2 := p.Intern(true)
	fls := p.Intern(false)
	assert.Equal(t, tru, tru2)
	assert.NotEqual(t, tru, fls)
}

func TestConstPoolGetRoundTrips(t *testing.T) {
	p := ir.NewConstPool()
	id := p.Intern(map[string]any{"r": 1.0, "g": 0.5, "b": 0.0})
	got := p.Get(id)
	assert.Equal(t, map[string]any{"r": 1.0, "g": 0.5, "b": 0.0}, got)
}

func TestConstPoolValuesPreservesAllocationOrder(t *testing.T) {
	p := ir.NewConstPool()
	p.Intern("a")
	p.Intern("b")
	p.Intern("c")
	assert.Equal(t, []any{"a", "b", "c"}, p.Values())
}
