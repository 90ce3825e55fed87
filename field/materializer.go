// Package field implements the field materializer of spec.md §4.6: lazy,
// per-domain evaluation of fieldIR expressions into typed-array buffers,
// backed by a buffer pool keyed by (format, layout, length) and a
// per-frame handle cache keyed by (fieldExprId, domainId). The pool/cache
// split is grounded on the teacher's core.Builder allocating fixed-size
// typed buffers once and reusing them across ticks (core/builder.go's
// Memory/Registers slices), generalized here to pool-by-shape instead of
// allocate-once-per-core.
package field

import (
	"fmt"

	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/sigeval"
	"github.com/oscilla/patchc/store"
)

// Buffer is one materialized field: Count elements, each Lanes wide.
type Buffer struct {
	Count int
	Lanes int
	Data  []float64 // Count*Lanes, row-major per element
}

func newBuffer(count, lanes int) *Buffer {
	return &Buffer{Count: count, Lanes: lanes, Data: make([]float64, count*lanes)}
}

func (b *Buffer) At(i int) sigeval.Value {
	return sigeval.Value(b.Data[i*b.Lanes : (i+1)*b.Lanes])
}

func (b *Buffer) Set(i int, v sigeval.Value) {
	copy(b.Data[i*b.Lanes:(i+1)*b.Lanes], v)
}

// poolKey identifies buffers that are shape-interchangeable.
type poolKey struct {
	lanes  int
	length int
}

// cacheKey identifies one frame's materialization of a fieldIR node against
// one domain.
type cacheKey struct {
	expr     ir.FieldExprId
	domain   ir.ValueSlot
}

// Materializer owns the buffer pool and this frame's handle cache. One
// Materializer is built per compiled program and reused across frames;
// ReleaseFrame() returns buffers to the pool between frames.
type Materializer struct {
	tables *ir.ExprTables
	store  *store.ValueStore

	pool  map[poolKey][]*Buffer
	cache map[cacheKey]*Buffer

	generation int
}

// New builds a Materializer bound to one compiled program's field
// expression table and ValueStore.
func New(tables *ir.ExprTables, vs *store.ValueStore) *Materializer {
	return &Materializer{
		tables: tables,
		store:  vs,
		pool:   make(map[poolKey][]*Buffer),
		cache:  make(map[cacheKey]*Buffer),
	}
}

func (m *Materializer) acquire(lanes, count int) *Buffer {
	key := poolKey{lanes: lanes, length: count}
	if bufs := m.pool[key]; len(bufs) > 0 {
		b := bufs[len(bufs)-1]
		m.pool[key] = bufs[:len(bufs)-1]
		for i := range b.Data {
			b.Data[i] = 0
		}
		return b
	}
	return newBuffer(count, lanes)
}

// ReleaseFrame returns every buffer materialized this frame to the pool and
// advances the cache generation, per spec.md §4.6.
func (m *Materializer) ReleaseFrame() {
	for _, b := range m.cache {
		key := poolKey{lanes: b.Lanes, length: b.Count}
		m.pool[key] = append(m.pool[key], b)
	}
	for k := range m.cache {
		delete(m.cache, k)
	}
	m.generation++
}

// domainCount reads an element count from a domain handle slot. Domain
// handles are written to the object storage class by identity-capability
// blocks (DomainN, GridDomain, SVGSampleDomain) as a plain int.
func (m *Materializer) domainCount(domainSlot ir.ValueSlot) (int, error) {
	v := m.store.ReadObj(domainSlot)
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("field: domain slot %d holds %T, want element count", domainSlot, v)
	}
}

// Materialize evaluates a fieldIR node against a domain, returning a
// cached Buffer sized to the domain's element count.
func (m *Materializer) Materialize(env *sigeval.Env, id ir.FieldExprId, domainSlot ir.ValueSlot) (*Buffer, error) {
	key := cacheKey{expr: id, domain: domainSlot}
	if b, ok := m.cache[key]; ok {
		return b, nil
	}
	if int(id) < 0 || int(id) >= len(m.tables.Field) {
		return nil, fmt.Errorf("field: field expr id %d out of range", id)
	}
	n := m.tables.Field[id]
	count, err := m.domainCount(domainSlot)
	if err != nil {
		return nil, err
	}
	b, err := m.materializeNode(env, n, domainSlot, count)
	if err != nil {
		return nil, err
	}
	m.cache[key] = b
	return b, nil
}

func (m *Materializer) materializeNode(env *sigeval.Env, n ir.FieldNode, domainSlot ir.ValueSlot, count int) (*Buffer, error) {
	lanes := n.Lanes
	if lanes <= 0 {
		lanes = 1
	}

	switch n.Kind {
	case ir.FieldConst:
		raw := env.Consts.Get(n.ConstID)
		// A FieldConst is normally "all elements identical" (spec.md
		// §4.6's Const{value} handle); a precomputed per-element table
		// (e.g. GridDomain's sampled positions, one [x,y] pair per grid
		// cell) is distinguished by being a slice of same-length slices
		// rather than a single scalar/vector value.
		if rows, ok := raw.([]any); ok && len(rows) == count && isRowMajor(rows) {
			b := m.acquire(lanes, count)
			for i, row := range rows {
				v, err := constLanes(row, lanes)
				if err != nil {
					return nil, err
				}
				b.Set(i, v)
			}
			return b, nil
		}
		v, err := constLanes(raw, lanes)
		if err != nil {
			return nil, err
		}
		b := m.acquire(lanes, count)
		for i := 0; i < count; i++ {
			b.Set(i, v)
		}
		return b, nil

	case ir.FieldBroadcastSig:
		v, err := sigeval.Eval(env, n.SigSrc)
		if err != nil {
			return nil, err
		}
		b := m.acquire(len(v), count)
		for i := 0; i < count; i++ {
			b.Set(i, v)
		}
		return b, nil

	case ir.FieldMap:
		src, err := m.Materialize(env, n.Src, domainSlot)
		if err != nil {
			return nil, err
		}
		kernel, ok := sigeval.Kernels[n.FnName]
		if !ok {
			return nil, fmt.Errorf("field: unknown opcode kernel %q", n.FnName)
		}
		out := m.acquire(lanes, count)
		for i := 0; i < count; i++ {
			out.Set(i, kernel(src.At(i)))
		}
		return out, nil

	case ir.FieldZip:
		a, err := m.Materialize(env, n.A, domainSlot)
		if err != nil {
			return nil, err
		}
		b2, err := m.Materialize(env, n.B, domainSlot)
		if err != nil {
			return nil, err
		}
		kernel, ok := sigeval.Kernels[n.FnName]
		if !ok {
			return nil, fmt.Errorf("field: unknown opcode kernel %q", n.FnName)
		}
		out := m.acquire(lanes, count)
		for i := 0; i < count; i++ {
			out.Set(i, kernel(a.At(i), b2.At(i)))
		}
		return out, nil

	case ir.FieldSelect:
		cond, err := m.Materialize(env, n.Cond, domainSlot)
		if err != nil {
			return nil, err
		}
		t, err := m.Materialize(env, n.IfTrue, domainSlot)
		if err != nil {
			return nil, err
		}
		f, err := m.Materialize(env, n.IfFalse, domainSlot)
		if err != nil {
			return nil, err
		}
		out := m.acquire(lanes, count)
		for i := 0; i < count; i++ {
			if cond.At(i)[0] > 0.5 {
				out.Set(i, t.At(i))
			} else {
				out.Set(i, f.At(i))
			}
		}
		return out, nil

	case ir.FieldCombine:
		return m.materializeCombine(env, n, domainSlot, count, lanes)

	case ir.FieldSampleSignal:
		// Unlike FieldBroadcastSig (which evaluates a live signalIR
		// expression), sampleSignal reads a ValueSlot a sigEval step
		// already wrote earlier in this frame's schedule (spec.md pass8
		// link resolution resolves signalSlot to that slot).
		v := make(sigeval.Value, lanes)
		for i := 0; i < lanes; i++ {
			v[i] = m.store.ReadF64(n.SignalSlot + ir.ValueSlot(i))
		}
		b := m.acquire(lanes, count)
		for i := 0; i < count; i++ {
			b.Set(i, v)
		}
		return b, nil

	default:
		return nil, fmt.Errorf("field: unknown field node kind %q", n.Kind)
	}
}

// materializeCombine folds a field bus's terms per-element, using the same
// CombineMode semantics sigeval.Eval applies to signal buses (spec.md
// §4.1/pass7's combine table is shared between the two worlds).
func (m *Materializer) materializeCombine(env *sigeval.Env, n ir.FieldNode, domainSlot ir.ValueSlot, count, lanes int) (*Buffer, error) {
	if len(n.Terms) == 0 {
		return m.acquire(lanes, count), nil
	}
	termBufs := make([]*Buffer, len(n.Terms))
	for i, t := range n.Terms {
		b, err := m.Materialize(env, t, domainSlot)
		if err != nil {
			return nil, err
		}
		termBufs[i] = b
	}
	out := m.acquire(lanes, count)
	elems := make([]sigeval.Value, len(termBufs))
	for i := 0; i < count; i++ {
		for j, b := range termBufs {
			elems[j] = b.At(i)
		}
		folded, err := sigeval.FoldCombine(n.Mode, elems)
		if err != nil {
			return nil, err
		}
		out.Set(i, folded)
	}
	return out, nil
}

// isRowMajor reports whether rows looks like a per-element table ([]any of
// []any) rather than a flat vector ([]any of numbers).
func isRowMajor(rows []any) bool {
	if len(rows) == 0 {
		return false
	}
	_, ok := rows[0].([]any)
	return ok
}

func constLanes(raw any, lanes int) (sigeval.Value, error) {
	switch v := raw.(type) {
	case []any:
		out := make(sigeval.Value, len(v))
		for i, x := range v {
			f, err := toFloat(x)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		out := make(sigeval.Value, lanes)
		for i := range out {
			out[i] = f
		}
		return out, nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("field: constant %v is not numeric", v)
	}
}
