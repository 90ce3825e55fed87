package executor

import (
	"fmt"

	"github.com/oscilla/patchc/field"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/render"
)

// composeRender assembles the frame's RenderTree from the compiled
// program's render sinks (spec.md §4.5's render step / §6's RenderTree
// output). Render-capability block types populate conventional input port
// ids (color, transform, glyph, count, domainSlot, ...) which the block's
// own Lower function wired to fixed ValueSlots at compile time; this
// function only needs to know those conventional names per sink Kind.
func (rt *Runtime) composeRender(vp Viewport) (*render.Node, error) {
	children := make([]render.Node, 0, len(rt.Program.RenderSinks))
	for _, sink := range rt.Program.RenderSinks {
		node, err := rt.composeSink(sink, vp)
		if err != nil {
			return nil, fmt.Errorf("executor: render sink %s: %w", sink.BlockID, err)
		}
		children = append(children, node)
	}
	root := render.Group(children...)
	return &root, nil
}

func (rt *Runtime) composeSink(sink ir.RenderSink, vp Viewport) (render.Node, error) {
	switch sink.Kind {
	case "ClearRenderer":
		colorSlot, ok := sink.Inputs["color"]
		if !ok {
			return render.Node{}, fmt.Errorf("ClearRenderer missing color input")
		}
		return render.Clear(uint32(rt.Store.ReadF64(colorSlot))), nil

	case "GroupRenderer":
		return rt.composeGroupSink(sink)

	case "DotsInstances":
		return rt.composeDotsSink(sink)

	case "PathRenderer":
		return rt.composePathSink(sink)

	default:
		return render.Node{}, fmt.Errorf("unknown render sink kind %q", sink.Kind)
	}
}

func (rt *Runtime) composeGroupSink(sink ir.RenderSink) (render.Node, error) {
	n := render.Group()
	if slot, ok := sink.Inputs["opacity"]; ok {
		n = n.WithOpacity(float32(rt.Store.ReadF64(slot)))
	}
	if slot, ok := sink.Inputs["transform"]; ok {
		var t render.Affine
		for i := range t {
			t[i] = float32(rt.Store.ReadF64(slot + ir.ValueSlot(i)))
		}
		n = n.WithTransform(t)
	}
	return n, nil
}

func (rt *Runtime) composeDotsSink(sink ir.RenderSink) (render.Node, error) {
	domainSlot, ok := sink.Inputs["domainSlot"]
	if !ok {
		return render.Node{}, fmt.Errorf("DotsRenderer missing domainSlot input")
	}
	posSlot, ok := sink.Inputs["positions"]
	if !ok {
		return render.Node{}, fmt.Errorf("DotsRenderer missing positions input")
	}
	buf, ok := rt.Store.ReadObj(posSlot).(*field.Buffer)
	if !ok {
		return render.Node{}, fmt.Errorf("DotsRenderer positions slot did not hold a materialized field")
	}
	_ = domainSlot

	radius := float32(4)
	if slot, ok := sink.Inputs["radius"]; ok {
		radius = float32(rt.Store.ReadF64(slot))
	}

	transforms := make([]render.Affine, buf.Count)
	for i := 0; i < buf.Count; i++ {
		v := buf.At(i)
		t := render.Identity
		t[0], t[3] = radius, radius
		if len(v) >= 2 {
			t[4] = float32(v[0])
			t[5] = float32(v[1])
		}
		transforms[i] = t
	}

	var fill []uint32
	if colorSlot, ok := sink.Inputs["colors"]; ok {
		if cbuf, ok := rt.Store.ReadObj(colorSlot).(*field.Buffer); ok {
			fill = make([]uint32, cbuf.Count)
			for i := 0; i < cbuf.Count; i++ {
				v := cbuf.At(i)
				fill[i] = render.PackRGBA8(u8(v[0]), u8(v[1]), u8(v[2]), u8(lane4(v)))
			}
		}
	}
	if fill == nil {
		// No per-point colors field wired: fall back to the uniform
		// "color" scalar input every dot shares.
		uniform := uint32(0xffffffff)
		if slot, ok := sink.Inputs["color"]; ok {
			uniform = uint32(rt.Store.ReadF64(slot))
		}
		fill = make([]uint32, buf.Count)
		for i := range fill {
			fill[i] = uniform
		}
	}

	n := render.Instances2D(render.GlyphCircle, transforms, fill)
	if slot, ok := sink.Inputs["opacity"]; ok {
		n = n.WithOpacity(float32(rt.Store.ReadF64(slot)))
	}
	if slot, ok := sink.Inputs["glow"]; ok && rt.Store.ReadF64(slot) > 0.5 {
		n.Blend = "glow"
	}
	return n, nil
}

func (rt *Runtime) composePathSink(sink ir.RenderSink) (render.Node, error) {
	domainSlot, ok := sink.Inputs["domainSlot"]
	if !ok {
		return render.Node{}, fmt.Errorf("PathRenderer missing domainSlot input")
	}
	posSlot, ok := sink.Inputs["positions"]
	if !ok {
		return render.Node{}, fmt.Errorf("PathRenderer missing positions input")
	}
	buf, ok := rt.Store.ReadObj(posSlot).(*field.Buffer)
	if !ok {
		return render.Node{}, fmt.Errorf("PathRenderer positions slot did not hold a materialized field")
	}
	_ = domainSlot

	points := make([]float32, 0, buf.Count*2)
	for i := 0; i < buf.Count; i++ {
		v := buf.At(i)
		if len(v) >= 2 {
			points = append(points, float32(v[0]), float32(v[1]))
		}
	}
	return render.Path2D(points, false, render.Style{}), nil
}

func u8(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func lane4(v []float64) float64 {
	if len(v) >= 4 {
		return v[3]
	}
	return 255
}
