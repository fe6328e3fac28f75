// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/internal/gpu"
)

// Kind identifies the variant of a NodeType.
type Kind uint8

const (
	// KindGeneric is a single-pass shader type built from a descriptor.
	KindGeneric Kind = iota
	// KindTexture loads an image file into its output.
	KindTexture
	// KindDistance runs an iterative distance transform over its input.
	KindDistance
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindTexture:
		return "texture"
	case KindDistance:
		return "distance"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// NodeType is the immutable template an Instance is created from. The set
// of implementations is closed: the unexported hooks can only be satisfied
// inside this package, and Kind tells them apart.
type NodeType interface {
	// Kind returns the variant.
	Kind() Kind

	// Name returns the display name.
	Name() string

	// Inputs returns the input pins in declaration order.
	Inputs() []Pin

	// Outputs returns the output pins in declaration order.
	Outputs() []Pin

	// Defaults returns a deep copy of the default property values.
	Defaults() map[string]*Property

	// PropertyNames returns the property names, sorted.
	PropertyNames() []string

	// Program returns the shader program drawn by the type's compute, or
	// nil for types that draw no shader pass.
	Program() *gpu.Program

	allocFramebuffers(n *Instance) error
	allocRenderTargets(n *Instance) error
	compute(n *Instance) error
	clear(n *Instance) error
	debugDraw(n *Instance, target hal.TextureView, width, height uint32, channel int) error
}

// debugTint is the color Clear fills a framebuffer with.
var debugTint = gputypes.Color{R: 0, G: 0.5, B: 0.5, A: 1}

// baseType holds the shared template data and the default algorithms.
// Variants embed it and override the hooks they specialize.
type baseType struct {
	name     string
	program  *gpu.Program
	inputs   []Pin
	outputs  []Pin
	defaults map[string]*Property
}

func (t *baseType) Name() string          { return t.name }
func (t *baseType) Inputs() []Pin         { return slices.Clone(t.inputs) }
func (t *baseType) Outputs() []Pin        { return slices.Clone(t.outputs) }
func (t *baseType) Program() *gpu.Program { return t.program }

func (t *baseType) Defaults() map[string]*Property {
	out := make(map[string]*Property, len(t.defaults))
	for name, p := range t.defaults {
		out[name] = p.Clone()
	}
	return out
}

func (t *baseType) PropertyNames() []string {
	return slices.Sorted(maps.Keys(t.defaults))
}

// allocFramebuffers creates one framebuffer.
func (t *baseType) allocFramebuffers(n *Instance) error {
	_, err := n.addFramebuffer()
	return err
}

// allocRenderTargets creates one texture per output pin at the instance
// resolution and attaches texture i to color slot i of framebuffer 0.
func (t *baseType) allocRenderTargets(n *Instance) error {
	fb := n.framebuffers[0]
	for i := range t.outputs {
		tex, err := n.newTarget(i)
		if err != nil {
			return err
		}
		fb.attach(i, tex)
	}
	checkComplete(n, fb)
	return nil
}

// compute draws the program once into framebuffer 0 with the instance's
// properties uploaded and its inputs bound.
func (t *baseType) compute(n *Instance) error {
	if err := n.applyProperties(t.program); err != nil {
		return err
	}
	rt := n.rt
	rt.bindFramebuffer(n.framebuffers[0])
	rt.useProgram(t.program)
	err := rt.draw(n.String())
	rt.bindFramebuffer(nil)
	return err
}

// clear fills framebuffer 0 with the debug tint.
func (t *baseType) clear(n *Instance) error {
	rt := n.rt
	fb := n.framebuffers[0]
	if err := fb.complete(); err != nil {
		return err
	}
	rt.bindFramebuffer(fb)
	err := rt.renderer.Clear(n.String()+"_clear", fb.views(), debugTint)
	rt.bindFramebuffer(nil)
	return err
}

// debugDraw renders the texture at channel into target with the preview
// program.
func (t *baseType) debugDraw(n *Instance, target hal.TextureView, width, height uint32, channel int) error {
	tex := n.textures.at(channel)
	if tex == nil {
		return fmt.Errorf("%w: %d of %d", ErrChannelOutOfRange, channel, n.textures.len())
	}
	rt := n.rt
	rt.useProgram(rt.preview)
	rt.bindTexture(0, tex.View())
	return rt.renderer.Draw(gpu.Pass{
		Label:       n.String() + "_preview",
		Program:     rt.preview,
		Attachments: []hal.TextureView{target},
		Format:      rt.cfg.previewFormat,
		Width:       width,
		Height:      height,
		Textures:    []hal.TextureView{tex.View()},
	})
}
