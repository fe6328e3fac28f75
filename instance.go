// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"
	stdimage "image"
	"maps"
	"slices"

	"github.com/gogpu/wgpu/hal"
	"github.com/google/uuid"

	"github.com/gogpu/compositor/internal/gpu"
	"github.com/gogpu/compositor/internal/image"
)

// Instance is a live node: it owns render targets sized to its resolution,
// its own copy of the type's properties, and its connections.
//
// The dirty flag starts set. Compute clears it; SetProperty, Connect,
// Disconnect and MarkDirty set it again on the instance and everything
// downstream of it.
//
// Instances are not safe for concurrent use.
type Instance struct {
	rt  *Runtime
	id  uuid.UUID
	key string
	typ NodeType

	dirty         bool
	width, height int

	textures     renderTargets
	framebuffers []*framebuffer

	props   map[string]*Property
	inputs  []Connection
	outputs [][]Connection

	computing bool
	released  bool
}

// NewInstance creates an instance of the type registered under key at the
// given resolution and allocates its GPU storage. On failure every resource
// allocated so far is released.
func (rt *Runtime) NewInstance(key string, width, height int) (*Instance, error) {
	if rt.closed {
		return nil, ErrRuntimeClosed
	}
	typ, ok := rt.library.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, key)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	n := &Instance{
		rt:      rt,
		id:      uuid.New(),
		key:     key,
		typ:     typ,
		dirty:   true,
		width:   width,
		height:  height,
		props:   typ.Defaults(),
		inputs:  make([]Connection, len(typ.Inputs())),
		outputs: make([][]Connection, len(typ.Outputs())),
	}
	if err := typ.allocFramebuffers(n); err != nil {
		n.freeResources()
		return nil, fmt.Errorf("%s framebuffers: %w", key, err)
	}
	if err := typ.allocRenderTargets(n); err != nil {
		n.freeResources()
		return nil, fmt.Errorf("%s render targets: %w", key, err)
	}
	Logger().Debug("compositor: instance created",
		"instance", n.id, "type", key,
		"width", n.width, "height", n.height,
		"textures", n.textures.len(), "framebuffers", len(n.framebuffers))
	return n, nil
}

// String returns the type key and a short id, for labels and logs.
func (n *Instance) String() string {
	return n.key + "#" + n.id.String()[:8]
}

// ID returns the instance identity.
func (n *Instance) ID() uuid.UUID { return n.id }

// TypeKey returns the library key the instance was created from.
func (n *Instance) TypeKey() string { return n.key }

// Type returns the node type.
func (n *Instance) Type() NodeType { return n.typ }

// Dirty reports whether the output may be stale.
func (n *Instance) Dirty() bool { return n.dirty }

// Size returns the current resolution. A texture instance takes the size of
// the image it loaded.
func (n *Instance) Size() (width, height int) { return n.width, n.height }

// Channels returns the number of textures the instance owns.
func (n *Instance) Channels() int { return n.textures.len() }

// Framebuffers returns the number of framebuffers the instance owns.
func (n *Instance) Framebuffers() int { return len(n.framebuffers) }

// Texture returns the view of the texture at channel, or nil.
func (n *Instance) Texture(channel int) hal.TextureView {
	t := n.textures.at(channel)
	if t == nil {
		return nil
	}
	return t.View()
}

// Inputs returns a copy of the input slots, one per input pin. Unconnected
// slots hold the zero Connection.
func (n *Instance) Inputs() []Connection { return slices.Clone(n.inputs) }

// Outputs returns a copy of the destinations recorded for output pin. The
// list may hold stale entries whose destination slot has since been
// reconnected elsewhere; Dependents filters those out.
func (n *Instance) Outputs(pin int) []Connection {
	if pin < 0 || pin >= len(n.outputs) {
		return nil
	}
	return slices.Clone(n.outputs[pin])
}

// Dependents returns the live downstream edges: output entries whose
// destination slot still points back at n. Duplicates are removed.
func (n *Instance) Dependents() []Connection {
	var out []Connection
	for _, list := range n.outputs {
		for _, c := range list {
			if !c.live(n) || slices.Contains(out, c) {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// Property returns a copy of the named property.
func (n *Instance) Property(name string) (*Property, bool) {
	p, ok := n.props[name]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// PropertyNames returns the property names, sorted.
func (n *Instance) PropertyNames() []string {
	return slices.Sorted(maps.Keys(n.props))
}

// SetProperty overwrites the named property with raw bytes (see
// Property.Set) and marks the instance dirty.
func (n *Instance) SetProperty(name string, raw []byte) error {
	p, err := n.property(name)
	if err != nil {
		return err
	}
	if err := p.Set(raw); err != nil {
		return fmt.Errorf("%s.%s: %w", n, name, err)
	}
	n.MarkDirty()
	return nil
}

// SetPropertyText parses text into the named property (see Property.Parse)
// and marks the instance dirty.
func (n *Instance) SetPropertyText(name, text string) error {
	p, err := n.property(name)
	if err != nil {
		return err
	}
	if err := p.Parse(text); err != nil {
		return fmt.Errorf("%s.%s: %w", n, name, err)
	}
	n.MarkDirty()
	return nil
}

func (n *Instance) property(name string) (*Property, error) {
	if n.released {
		return nil, ErrReleased
	}
	p, ok := n.props[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %q", ErrUnknownProperty, n.key, name)
	}
	return p, nil
}

// MarkDirty sets the dirty flag on n and every instance reachable through
// live downstream edges.
func (n *Instance) MarkDirty() {
	seen := map[*Instance]bool{n: true}
	stack := []*Instance{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cur.dirty = true
		for _, c := range cur.Dependents() {
			if !seen[c.Node] {
				seen[c.Node] = true
				stack = append(stack, c.Node)
			}
		}
	}
}

// Compute brings n up to date. Dirty upstream sources are computed first,
// depth first. Then the first texture of every connected input is bound to
// consecutive texture units from 0 in pin order, the type's algorithm runs,
// and n becomes clean. A clean instance still runs its own algorithm.
//
// Compute returns ErrCycle when the graph loops back into an instance being
// computed, and ErrGraphTooDeep when recursion passes the configured depth.
func (n *Instance) Compute() error {
	return n.compute(0)
}

func (n *Instance) compute(depth int) error {
	if n.released {
		return ErrReleased
	}
	if n.rt.closed {
		return ErrRuntimeClosed
	}
	if depth > n.rt.cfg.maxDepth {
		return fmt.Errorf("%w: more than %d levels at %s", ErrGraphTooDeep, n.rt.cfg.maxDepth, n)
	}
	if n.computing {
		return fmt.Errorf("%w: %s", ErrCycle, n)
	}
	n.computing = true
	defer func() { n.computing = false }()

	for _, in := range n.inputs {
		if in.Node != nil && in.Node.dirty {
			if err := in.Node.compute(depth + 1); err != nil {
				return err
			}
		}
	}

	n.rt.resetUnits()
	unit := 0
	for _, in := range n.inputs {
		if in.Node == nil {
			continue
		}
		n.rt.bindTexture(unit, in.Node.Texture(0))
		unit++
	}

	passes := n.rt.renderer.Passes()
	if err := n.typ.compute(n); err != nil {
		return fmt.Errorf("compute %s: %w", n, err)
	}
	n.dirty = false
	Logger().Info("compositor: node computed",
		"instance", n.id, "type", n.key,
		"passes", n.rt.renderer.Passes()-passes, "depth", depth)
	return nil
}

// Clear fills the instance's first framebuffer with the debug tint.
func (n *Instance) Clear() error {
	if n.released {
		return ErrReleased
	}
	if n.rt.closed {
		return ErrRuntimeClosed
	}
	return n.typ.clear(n)
}

// DebugDraw renders the texture at channel into target, a view of
// width x height pixels in the runtime's preview format.
func (n *Instance) DebugDraw(target hal.TextureView, width, height uint32, channel int) error {
	if n.released {
		return ErrReleased
	}
	if n.rt.closed {
		return ErrRuntimeClosed
	}
	return n.typ.debugDraw(n, target, width, height, channel)
}

// Snapshot reads the texture at channel back from the GPU. Rows are
// returned top first. The call blocks until the GPU is idle.
func (n *Instance) Snapshot(channel int) (*stdimage.NRGBA, error) {
	if n.released {
		return nil, ErrReleased
	}
	if n.rt.closed {
		return nil, ErrRuntimeClosed
	}
	t := n.textures.at(channel)
	if t == nil {
		return nil, fmt.Errorf("%w: %d of %d", ErrChannelOutOfRange, channel, n.textures.len())
	}
	pixels, err := n.rt.renderer.ReadPixels(t)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", n, err)
	}
	w, h := t.Size()
	buf, err := image.FromRaw(pixels, int(w), int(h))
	if err != nil {
		return nil, err
	}
	buf.FlipVertical()
	return buf.ToStdImage(), nil
}

// Release frees every GPU resource the instance owns and leaves it empty:
// size 0, no properties, no connections. Instances downstream of a released
// instance sample the placeholder texture. Release is idempotent.
func (n *Instance) Release() {
	if n.released {
		return
	}
	if !n.rt.closed {
		if err := n.rt.renderer.Wait(); err != nil {
			Logger().Warn("compositor: wait before release failed", "instance", n.id, "err", err)
		}
	}
	n.freeResources()
	for _, p := range n.props {
		p.Release()
	}
	n.props = nil
	n.inputs = nil
	n.outputs = nil
	n.width, n.height = 0, 0
	n.dirty = false
	n.released = true
	Logger().Debug("compositor: instance released", "instance", n.id, "type", n.key)
}

// freeResources destroys textures and drops framebuffers.
func (n *Instance) freeResources() {
	n.releaseTargets()
	n.framebuffers = nil
}

// releaseTargets destroys every texture and empties every framebuffer.
func (n *Instance) releaseTargets() {
	for _, fb := range n.framebuffers {
		fb.detach()
	}
	n.textures.release()
}

// addFramebuffer appends an empty framebuffer.
func (n *Instance) addFramebuffer() (*framebuffer, error) {
	if len(n.framebuffers) >= MaxChannels {
		return nil, fmt.Errorf("%w: %d framebuffers", ErrTooManyChannels, MaxChannels)
	}
	fb := &framebuffer{label: fmt.Sprintf("%s_fb%d", n, len(n.framebuffers))}
	n.framebuffers = append(n.framebuffers, fb)
	return fb, nil
}

// newTarget allocates a texture at the instance resolution and takes
// ownership of it as the next channel.
func (n *Instance) newTarget(channel int) (*gpu.Target, error) {
	t, err := n.rt.renderer.NewTarget(fmt.Sprintf("%s_tex%d", n, channel), uint32(n.width), uint32(n.height))
	if err != nil {
		return nil, err
	}
	if err := n.textures.add(t); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// applyProperties writes every shader-bound property into prog's uniform
// block.
func (n *Instance) applyProperties(prog *gpu.Program) error {
	if prog == nil {
		return nil
	}
	for name, p := range n.props {
		if !p.uploadable() {
			continue
		}
		if err := prog.SetUniform(uint32(p.location), p.data); err != nil {
			return fmt.Errorf("%s.%s: %w", n, name, err)
		}
	}
	return nil
}
