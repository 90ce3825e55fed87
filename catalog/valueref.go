package catalog

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// RefKind discriminates a ValueRef's payload.
type RefKind string

const (
	RefSig         RefKind = "sig"
	RefField       RefKind = "field"
	RefScalarConst RefKind = "scalarConst"
	RefSpecial     RefKind = "special"
	RefDomain      RefKind = "domain"
)

// ArtifactKind tags the polymorphic "special" artifacts a block can
// produce, so the pure-block validator (spec.md §4.1/§9) can reject them
// from capabilities that should never emit them.
type ArtifactKind string

const (
	ArtifactNone             ArtifactKind = ""
	ArtifactRenderTree       ArtifactKind = "RenderTree"
	ArtifactRenderTreeProgram ArtifactKind = "RenderTreeProgram"
	ArtifactRenderNode       ArtifactKind = "RenderNode"
	ArtifactCanvasRender     ArtifactKind = "CanvasRender"
	ArtifactDomain           ArtifactKind = "Domain"
	ArtifactExternalAsset    ArtifactKind = "ExternalAsset"
)

// RequiredCapability names the only capability allowed to produce an
// ArtifactKind, per spec.md §4.1's pure-block validator.
var RequiredCapability = map[ArtifactKind]Capability{
	ArtifactRenderTree:        CapabilityRender,
	ArtifactRenderTreeProgram: CapabilityRender,
	ArtifactRenderNode:        CapabilityRender,
	ArtifactCanvasRender:      CapabilityRender,
	ArtifactDomain:            CapabilityIdentity,
	ArtifactExternalAsset:     CapabilityIO,
}

// ValueRef is a resolved reference to a value a block input reads from, or
// an output a block produces: a signal expression, a field expression, a
// scalar constant, a domain handle, or a "special" artifact (RenderTree,
// ExternalAsset, ...).
type ValueRef struct {
	Kind     RefKind
	Sig      ir.SigExprId
	Field    ir.FieldExprId
	Slot     ir.ValueSlot
	Const    ir.ConstId
	Type     typedesc.TypeDesc
	Artifact ArtifactKind
}

// SigRef builds a RefSig ValueRef.
func SigRef(id ir.SigExprId, t typedesc.TypeDesc) ValueRef {
	return ValueRef{Kind: RefSig, Sig: id, Type: t}
}

// FieldRef builds a RefField ValueRef.
func FieldRef(id ir.FieldExprId, t typedesc.TypeDesc) ValueRef {
	return ValueRef{Kind: RefField, Field: id, Type: t}
}

// ConstRef builds a RefScalarConst ValueRef.
func ConstRef(id ir.ConstId, t typedesc.TypeDesc) ValueRef {
	return ValueRef{Kind: RefScalarConst, Const: id, Type: t}
}

// DomainRef builds a RefDomain ValueRef pointing at a domain's element-count
// slot.
func DomainRef(slot ir.ValueSlot) ValueRef {
	return ValueRef{Kind: RefDomain, Slot: slot, Type: typedesc.Special(typedesc.DomainH), Artifact: ArtifactDomain}
}

// SpecialRef builds a RefSpecial ValueRef (RenderTree, ExternalAsset, ...).
func SpecialRef(slot ir.ValueSlot, t typedesc.TypeDesc, artifact ArtifactKind) ValueRef {
	return ValueRef{Kind: RefSpecial, Slot: slot, Type: t, Artifact: artifact}
}
