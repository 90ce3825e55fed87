package ir

import "fmt"

// ConstPool deduplicates the constant values referenced by IR nodes and
// state cell initial values: numeric constants by value, everything else
// (colors, vectors, JSON-ish maps) by deep equality of a canonical key.
type ConstPool struct {
	values []any
	byKey  map[string]ConstId
}

// NewConstPool returns an empty, ready-to-use pool.
func NewConstPool() *ConstPool {
	return &ConstPool{byKey: make(map[string]ConstId)}
}

// Intern returns the ConstId for v, allocating a new entry only if no
// structurally-equal constant is already present.
func (p *ConstPool) Intern(v any) ConstId {
	key := canonicalKey(v)
	if id, ok := p.byKey[key]; ok {
		return id
	}
	id := ConstId(len(p.values))
	p.values = append(p.values, v)
	p.byKey[key] = id
	return id
}

// Get returns the value stored at id.
func (p *ConstPool) Get(id ConstId) any {
	return p.values[int(id)]
}

// Len returns the number of distinct constants interned.
func (p *ConstPool) Len() int {
	return len(p.values)
}

// Values returns the pool contents in allocation order. The caller must
// not mutate the returned slice.
func (p *ConstPool) Values() []any {
	return p.values
}

// canonicalKey produces a deduplication key. Numbers collapse to a single
// float64 representation so 1 and 1.0 intern to the same constant;
// everything else uses its %#v form, which is stable for the JSON-decoded
// map/slice/scalar values a patch's params carry.
func canonicalKey(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("f:%v", n)
	case float32:
		return fmt.Sprintf("f:%v", float64(n))
	case int:
		return fmt.Sprintf("f:%v", float64(n))
	case int32:
		return fmt.Sprintf("f:%v", float64(n))
	case int64:
		return fmt.Sprintf("f:%v", float64(n))
	case bool:
		return fmt.Sprintf("b:%v", n)
	case string:
		return fmt.Sprintf("s:%v", n)
	default:
		return fmt.Sprintf("j:%#v", n)
	}
}
