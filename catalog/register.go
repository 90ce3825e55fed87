package catalog

import "fmt"

// RegisterBuiltins populates cat with every primitive block type this
// implementation ships (spec.md's full block catalog: time roots, math,
// stateful generators, domains, field operators, render sinks, buses), plus
// the builtin composite macros (GridPoints and friends). A caller that
// needs to load additional, deployment-specific composite definitions can
// still call LoadDefinitionsYAML afterward.
func RegisterBuiltins(cat *Catalog) {
	registerConstBlocks(cat)
	registerTimeBlocks(cat)
	registerMathBlocks(cat)
	registerStatefulBlocks(cat)
	registerDomainBlocks(cat)
	registerFieldBlocks(cat)
	registerRenderBlocks(cat)
	registerBusBlocks(cat)
	if err := RegisterBuiltinComposites(cat); err != nil {
		panic(fmt.Sprintf("catalog: builtin composite definitions failed to load: %v", err))
	}
}
