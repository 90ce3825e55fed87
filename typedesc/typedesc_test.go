package typedesc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oscilla/patchc/typedesc"
)

// Table-style unit tests using testify/assert, matching the retrieval
// pack's katalvlaran-lvlath graph library test style, used here for the
// small closed-world comparisons a BDD suite would be overkill for.

func TestCompatibleWith(t *testing.T) {
	cases := []struct {
		name string
		a, b typedesc.TypeDesc
		want bool
	}{
		{"same world/domain", typedesc.Signal(typedesc.Float), typedesc.Signal(typedesc.Float), true},
		{"different world", typedesc.Signal(typedesc.Float), typedesc.Field(typedesc.Float), false},
		{"different domain", typedesc.Signal(typedesc.Float), typedesc.Signal(typedesc.Color), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.a.CompatibleWith(c.b))
		})
	}
}

func TestArity(t *testing.T) {
	assert.Equal(t, 1, typedesc.Signal(typedesc.Float).Arity())
	assert.Equal(t, 2, typedesc.Signal(typedesc.Vec2).Arity())
	assert.Equal(t, 3, typedesc.Signal(typedesc.Vec3).Arity())
	assert.Equal(t, 4, typedesc.Signal(typedesc.Vec4).Arity())
	assert.Equal(t, 16, typedesc.Signal(typedesc.Mat4).Arity())
}

func TestCombineCompatible(t *testing.T) {
	assert.True(t, typedesc.CombineCompatible(typedesc.CombineSum, typedesc.Signal(typedesc.Float)))
	assert.False(t, typedesc.CombineCompatible(typedesc.CombineSum, typedesc.Signal(typedesc.Color)))
	assert.True(t, typedesc.CombineCompatible(typedesc.CombineLayer, typedesc.Signal(typedesc.Color)))
	assert.False(t, typedesc.CombineCompatible(typedesc.CombineLayer, typedesc.Signal(typedesc.Float)))
	assert.True(t, typedesc.CombineCompatible(typedesc.CombinePulse, typedesc.Event(typedesc.Trigger)))
	assert.False(t, typedesc.CombineCompatible(typedesc.CombinePulse, typedesc.Signal(typedesc.Float)))
	assert.True(t, typedesc.CombineCompatible(typedesc.CombineLast, typedesc.Signal(typedesc.String)))
}

func TestWithInternalClearsBusEligibility(t *testing.T) {
	td := typedesc.Signal(typedesc.Float).WithBusEligible(true)
	assert.True(t, td.BusEligible)

	internal := td.WithInternal()
	assert.False(t, internal.BusEligible)
	assert.Equal(t, typedesc.CategoryInternal, internal.Cat)
}

func TestStringRendering(t *testing.T) {
	assert.Equal(t, "signal<float>", typedesc.Signal(typedesc.Float).String())
	assert.Equal(t, "signal<vec2[2]>", typedesc.Signal(typedesc.Vec2).String())
}
