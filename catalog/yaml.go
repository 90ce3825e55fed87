package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/oscilla/patchc/patch"
	"github.com/oscilla/patchc/typedesc"
)

//go:embed builtin_composites.yaml
var builtinCompositesYAML []byte

// RegisterBuiltinComposites loads the composite macro types shipped with
// this package (spec.md's full block catalog supplement: GridPoints and
// friends), embedded at build time so callers never need a filesystem path
// to the definitions file.
func RegisterBuiltinComposites(cat *Catalog) error {
	return loadDefinitions(cat, builtinCompositesYAML)
}

// yamlRoot is the top-level document shape for a composite/adapter
// definition file, mirroring the teacher's YAMLRoot/ArrayConfig nesting in
// core/program.go (LoadProgramFileFromYAML) but describing composites
// instead of per-core kernels.
type yamlRoot struct {
	Composites []yamlComposite `yaml:"composites"`
}

type yamlComposite struct {
	Type    string           `yaml:"type"`
	Inputs  []yamlBoundary   `yaml:"inputs"`
	Outputs []yamlBoundary   `yaml:"outputs"`
	Blocks  []yamlTemplBlock `yaml:"blocks"`
	Edges   []yamlTemplEdge  `yaml:"edges"`
}

type yamlBoundary struct {
	Port     string `yaml:"port"`
	World    string `yaml:"world"`
	Domain   string `yaml:"domain"`
	Internal string `yaml:"internal"` // "blockId.portId", empty if unmapped
}

type yamlTemplBlock struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

type yamlTemplEdge struct {
	From string `yaml:"from"` // "blockId.portId"
	To   string `yaml:"to"`
}

// LoadDefinitionsYAML loads a YAML document declaring composite block
// types and registers them into cat. Params on template blocks/edges may
// use Go text/template placeholders (e.g. "{{.rows}}") substituted from
// the composite instance's own params map at expansion time — the
// idiomatic stdlib choice here, since no templating library appears
// anywhere in the retrieval pack to justify a third-party one (see
// DESIGN.md).
func LoadDefinitionsYAML(cat *Catalog, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog: failed to read %s: %w", path, err)
	}
	return loadDefinitions(cat, data)
}

func loadDefinitions(cat *Catalog, data []byte) error {
	var root yamlRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("catalog: failed to parse composite definitions: %w", err)
	}
	for _, yc := range root.Composites {
		def, err := buildCompositeDef(yc)
		if err != nil {
			return fmt.Errorf("catalog: composite %q: %w", yc.Type, err)
		}
		if err := cat.RegisterComposite(def); err != nil {
			return err
		}
	}
	return nil
}

func buildCompositeDef(yc yamlComposite) (CompositeDef, error) {
	inputs, err := toBoundaryPorts(yc.Inputs)
	if err != nil {
		return CompositeDef{}, err
	}
	outputs, err := toBoundaryPorts(yc.Outputs)
	if err != nil {
		return CompositeDef{}, err
	}

	blocksTmpl := yc.Blocks
	edgesTmpl := yc.Edges

	return CompositeDef{
		Type:    yc.Type,
		Inputs:  inputs,
		Outputs: outputs,
		Template: func(instanceID string, params map[string]any) ([]patch.Block, []patch.Edge) {
			blocks := make([]patch.Block, 0, len(blocksTmpl))
			for _, b := range blocksTmpl {
				blocks = append(blocks, patch.Block{
					ID:     b.ID,
					Type:   b.Type,
					Params: renderParams(b.Params, params),
				})
			}
			edges := make([]patch.Edge, 0, len(edgesTmpl))
			for i, e := range edgesTmpl {
				from := mustParsePortRef(renderString(e.From, params))
				to := mustParsePortRef(renderString(e.To, params))
				edges = append(edges, patch.Edge{
					ID:      fmt.Sprintf("edge%d", i),
					From:    from,
					To:      to,
					Enabled: true,
					Role:    patch.RoleStructural,
				})
			}
			return blocks, edges
		},
	}, nil
}

func toBoundaryPorts(in []yamlBoundary) ([]BoundaryPort, error) {
	out := make([]BoundaryPort, 0, len(in))
	for _, b := range in {
		var internal patch.PortRef
		if b.Internal != "" {
			internal = mustParsePortRef(b.Internal)
		}
		out = append(out, BoundaryPort{
			PortID:   b.Port,
			Type:     typedesc.New(typedesc.World(b.World), typedesc.Domain(b.Domain)),
			Internal: internal,
		})
	}
	return out, nil
}

func mustParsePortRef(s string) patch.PortRef {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return patch.PortRef{BlockID: s[:i], PortID: s[i+1:]}
		}
	}
	return patch.PortRef{BlockID: s}
}

func renderString(s string, params map[string]any) string {
	t, err := template.New("").Parse(s)
	if err != nil {
		return s
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return s
	}
	return buf.String()
}

func renderParams(tmpl map[string]any, params map[string]any) map[string]any {
	out := make(map[string]any, len(tmpl))
	for k, v := range tmpl {
		if s, ok := v.(string); ok {
			out[k] = renderString(s, params)
		} else {
			out[k] = v
		}
	}
	return out
}
