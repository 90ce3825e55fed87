// Package render implements the RenderTree output format of spec.md §6:
// the tagged-union tree a compiled program's render step produces each
// frame for the host renderer. Node shape mirrors the teacher's
// verify.VerificationReport/WriteReport split between a structured value
// and a formatter (report.go), generalized from a lint report to a scene
// graph.
package render

// Kind discriminates a RenderTree node.
type Kind string

const (
	KindClear       Kind = "clear"
	KindGroup       Kind = "group"
	KindInstances2D Kind = "instances2d"
	KindPath2D      Kind = "path2d"
)

// Glyph discriminates the unit-sized shape an instances2d node stamps per
// instance.
type Glyph string

const (
	GlyphCircle   Glyph = "circle"
	GlyphRect     Glyph = "rect"
	GlyphStar     Glyph = "star"
	GlyphPolyline Glyph = "polyline"
)

// Affine is a 2x3 affine transform (a, b, c, d, e, f), matching spec.md
// §6's "Transforms are 2x3 affine" convention: x' = a*x + c*y + e,
// y' = b*x + d*y + f.
type Affine [6]float32

// Identity is the affine transform that leaves coordinates unchanged.
var Identity = Affine{1, 0, 0, 1, 0, 0}

// PackRGBA8 packs 0..255 channel values into spec.md §6's
// (r<<24)|(g<<16)|(b<<8)|a byte-unit layout.
func PackRGBA8(r, g, b, a uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

// Node is one entry of a RenderTree; only the fields relevant to Kind are
// populated, following the same dense tagged-struct convention the IR
// expression tables use rather than a Go interface hierarchy.
type Node struct {
	Kind Kind

	// clear
	ClearColor uint32

	// group
	Transform Affine
	HasTransform bool
	Opacity      float32
	HasOpacity   bool
	Blend        string
	Children     []Node

	// instances2d
	Glyph         Glyph
	StarPoints    int
	StarInner     float32
	PolylineClose bool
	Transforms    []Affine
	StyleFill     []uint32
	StyleStroke   []uint32
	StrokeWidth   float32
	HasStroke     bool
	InstOpacity   float32
	HasInstOpacity bool

	// path2d
	Points     []float32 // 2*N, (x,y) pairs
	PathClosed bool
	PathStyle  Style
}

// Style is a path2d's stroke/fill description.
type Style struct {
	Fill        uint32
	HasFill     bool
	Stroke      uint32
	HasStroke   bool
	StrokeWidth float32
}

// Clear returns a clear{color} node.
func Clear(color uint32) Node {
	return Node{Kind: KindClear, ClearColor: color}
}

// Group returns a group{children} node with no transform/opacity override.
func Group(children ...Node) Node {
	return Node{Kind: KindGroup, Children: children}
}

// WithTransform returns a copy of n carrying an explicit transform.
func (n Node) WithTransform(t Affine) Node {
	n.Transform = t
	n.HasTransform = true
	return n
}

// WithOpacity returns a copy of n carrying an explicit opacity.
func (n Node) WithOpacity(o float32) Node {
	n.Opacity = o
	n.HasOpacity = true
	return n
}

// Instances2D returns an instances2d node stamping glyph at each transform.
func Instances2D(glyph Glyph, transforms []Affine, fill []uint32) Node {
	return Node{
		Kind:       KindInstances2D,
		Glyph:      glyph,
		Transforms: transforms,
		StyleFill:  fill,
	}
}

// Path2D returns a path2d node.
func Path2D(points []float32, closed bool, style Style) Node {
	return Node{Kind: KindPath2D, Points: points, PathClosed: closed, PathStyle: style}
}
