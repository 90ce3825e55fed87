// Command patchc is a developer smoke-test entry point, not the editor UI:
// it reads a JSON Patch file, compiles it, and either prints the compiled
// IR's summary (-emit-ir) or executes a fixed number of frames and prints
// the resulting render tree / diagnostics. Grounded on the teacher's
// samples/*/main.go demos (build device, run kernel, print results, exit)
// and its verify/cmd/* report-printing siblings, generalized from a CGRA
// kernel run to a patch compile-and-execute run.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/compiler"
	"github.com/oscilla/patchc/debugsink"
	"github.com/oscilla/patchc/executor"
	"github.com/oscilla/patchc/patch"
	"github.com/oscilla/patchc/render"
	"github.com/oscilla/patchc/verify"
)

func main() {
	patchPath := flag.String("patch", "", "path to a JSON Patch file")
	emitIR := flag.Bool("emit-ir", false, "print the compiled IR summary instead of running frames")
	frames := flag.Int("frames", 1, "number of frames to execute")
	stepMs := flag.Float64("step-ms", 16.667, "milliseconds advanced between frames")
	width := flag.Float64("viewport-w", 800, "viewport width for render composition")
	height := flag.Float64("viewport-h", 600, "viewport height for render composition")
	flag.Parse()

	if *patchPath == "" {
		fmt.Fprintln(os.Stderr, "patchc: -patch is required")
		atexit.Exit(2)
		return
	}

	p, err := loadPatch(*patchPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "patchc:", err)
		atexit.Exit(1)
		return
	}

	cat := catalog.New()
	catalog.RegisterBuiltins(cat)

	res, err := compiler.Compile(cat, p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "patchc: compile failed:", err)
		atexit.Exit(1)
		return
	}

	report := verify.GenerateReport(res)
	report.WriteReport(os.Stdout)

	if res.Program == nil {
		atexit.Exit(1)
		return
	}

	if *emitIR {
		printIRSummary(res)
		atexit.Exit(0)
		return
	}

	rt := executor.NewRuntime(res.Program, res.Schedule)
	vp := executor.Viewport{Width: float32(*width), Height: float32(*height), DPR: 1}

	var tAbsMs float64
	var tree *render.Node
	for i := 0; i < *frames; i++ {
		var probes []executor.Probe
		tree, probes, err = rt.ExecuteFrame(tAbsMs, vp)
		if err != nil {
			fmt.Fprintln(os.Stderr, "patchc: frame", i, "failed:", err)
			atexit.Exit(1)
			return
		}
		if len(probes) > 0 {
			debugsink.DumpProbes(os.Stdout, probes)
		}
		tAbsMs += *stepMs
	}

	debugsink.DumpValueStore(os.Stdout, res.Program, rt)
	debugsink.DumpStateBuffer(os.Stdout, rt.State)
	printRenderTree(tree)

	atexit.Exit(0)
}

func loadPatch(path string) (patch.Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var p patch.Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return patch.Patch{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

func printIRSummary(res *compiler.Result) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Table", "Count"})
	t.AppendRow(table.Row{"sigExpr", len(res.Program.Tables.Sig)})
	t.AppendRow(table.Row{"fieldExpr", len(res.Program.Tables.Field)})
	t.AppendRow(table.Row{"slots", len(res.Program.Slots)})
	t.AppendRow(table.Row{"stateCells", len(res.Program.StateLayout)})
	t.AppendRow(table.Row{"renderSinks", len(res.Program.RenderSinks)})
	t.AppendRow(table.Row{"scheduleSteps", len(res.Schedule.Steps)})
	fmt.Println(t.Render())
	fmt.Printf("time model: %+v\n", res.Program.Time)
}

func printRenderTree(n *render.Node) {
	if n == nil {
		fmt.Println("(no render tree)")
		return
	}
	printRenderNode(*n, 0)
}

func printRenderNode(n render.Node, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	switch n.Kind {
	case render.KindClear:
		fmt.Printf("%sclear(color=0x%08x)\n", indent, n.ClearColor)
	case render.KindGroup:
		fmt.Printf("%sgroup(children=%d)\n", indent, len(n.Children))
		for _, c := range n.Children {
			printRenderNode(c, depth+1)
		}
	case render.KindInstances2D:
		fmt.Printf("%sinstances2d(glyph=%s, count=%d)\n", indent, n.Glyph, len(n.Transforms))
	case render.KindPath2D:
		fmt.Printf("%spath2d(points=%d, closed=%v)\n", indent, len(n.Points)/2, n.PathClosed)
	default:
		fmt.Printf("%s(unknown node kind %q)\n", indent, n.Kind)
	}
}
