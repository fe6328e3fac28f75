// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"
	"io/fs"

	"github.com/gogpu/wgpu/hal"
	"go.uber.org/multierr"

	"github.com/gogpu/compositor/internal/descriptor"
	"github.com/gogpu/compositor/internal/gpu"
)

// Runtime holds everything instances share: the GPU renderer with its quad,
// sampler and placeholder texture, the built-in programs, the node library
// and the current binding state.
//
// A Runtime and its instances are not safe for concurrent use. Bindings made
// by one compute are not restored afterwards.
type Runtime struct {
	cfg      config
	renderer *gpu.Renderer
	shaders  fs.FS
	library  *Library

	preview     *gpu.Program
	passthrough *gpu.Program
	distance    *gpu.Program
	programs    []*gpu.Program // compiled from descriptors

	bound  binding
	closed bool
}

// binding is the state the next draw uses.
type binding struct {
	framebuffer *framebuffer
	program     *gpu.Program
	units       []hal.TextureView
}

// New creates the shared GPU primitives on device, compiles the built-in
// programs and populates the library: the texture, distance and passthrough
// types first, then one type per descriptor file when a node directory is
// configured. On failure everything created so far is released.
func New(device hal.Device, queue hal.Queue, opts ...Option) (_ *Runtime, err error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	renderer, err := gpu.NewRenderer(device, queue)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	rt := &Runtime{
		cfg:      cfg,
		renderer: renderer,
		shaders:  gpu.Overlay(cfg.shaderFS, gpu.Shaders()),
		library:  newLibrary(),
	}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	if rt.preview, err = rt.builtinProgram("preview", gpu.PreviewShader); err != nil {
		return nil, err
	}
	if rt.passthrough, err = rt.builtinProgram("passthrough", gpu.PassthroughShader); err != nil {
		return nil, err
	}
	if rt.distance, err = rt.builtinProgram("distance", gpu.DistanceShader); err != nil {
		return nil, err
	}
	if err = rt.registerBuiltins(); err != nil {
		return nil, err
	}
	if cfg.nodeFS != nil {
		if err = rt.library.load(rt, cfg.nodeFS); err != nil {
			return nil, err
		}
	}

	Logger().Info("compositor: runtime ready",
		"node_types", rt.library.Len(),
		"skipped", len(rt.library.LoadErrors()))
	return rt, nil
}

// NewFromProvider creates a Runtime on a device shared by a host
// application. provider must expose HalDevice() and HalQueue() returning a
// hal.Device and hal.Queue.
func NewFromProvider(provider any, opts ...Option) (*Runtime, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoProvider)
	}
	return New(device, queue, opts...)
}

func (rt *Runtime) builtinProgram(label, fragment string) (*gpu.Program, error) {
	src, err := gpu.LoadSource(rt.shaders, label, gpu.QuadbaseShader, fragment)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	prog, err := rt.renderer.NewProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	return prog, nil
}

func (rt *Runtime) registerBuiltins() error {
	tex, err := newTextureType(rt.cfg.defaultTexture)
	if err != nil {
		return err
	}
	dist, err := newDistanceType(rt.distance)
	if err != nil {
		return fmt.Errorf("compositor: %w", err)
	}
	pass, err := newGenericType("Passthrough", rt.passthrough, []string{descriptor.DefaultOutput}, nil)
	if err != nil {
		return err
	}
	return multierr.Combine(
		rt.library.register(TextureKey, tex),
		rt.library.register(DistanceKey, dist),
		rt.library.register(PassthroughKey, pass),
	)
}

// Library returns the node library.
func (rt *Runtime) Library() *Library { return rt.library }

// Passes returns the number of render passes submitted so far.
func (rt *Runtime) Passes() uint64 { return rt.renderer.Passes() }

// Wait blocks until every submitted pass has completed.
func (rt *Runtime) Wait() error { return rt.renderer.Wait() }

// Close waits for the GPU and releases the programs and shared primitives.
// Instances are not released; release them before closing. Close is
// idempotent.
func (rt *Runtime) Close() {
	if rt.closed {
		return
	}
	if err := rt.renderer.Wait(); err != nil {
		Logger().Warn("compositor: wait before close failed", "err", err)
	}
	for i := len(rt.programs) - 1; i >= 0; i-- {
		rt.programs[i].Destroy()
	}
	rt.programs = nil
	for _, p := range []*gpu.Program{rt.distance, rt.passthrough, rt.preview} {
		if p != nil {
			p.Destroy()
		}
	}
	rt.distance, rt.passthrough, rt.preview = nil, nil, nil
	rt.renderer.Destroy()
	rt.bound = binding{}
	rt.closed = true
}

func (rt *Runtime) bindFramebuffer(fb *framebuffer) { rt.bound.framebuffer = fb }

func (rt *Runtime) useProgram(p *gpu.Program) { rt.bound.program = p }

// bindTexture binds view to unit. A nil view leaves the unit to the
// placeholder texture.
func (rt *Runtime) bindTexture(unit int, view hal.TextureView) {
	for len(rt.bound.units) <= unit {
		rt.bound.units = append(rt.bound.units, nil)
	}
	rt.bound.units[unit] = view
}

func (rt *Runtime) resetUnits() { rt.bound.units = rt.bound.units[:0] }

// draw renders the active program into the bound framebuffer at the size of
// its attachments, sampling the bound texture units.
func (rt *Runtime) draw(label string) error {
	fb, prog := rt.bound.framebuffer, rt.bound.program
	if fb == nil || prog == nil {
		return fmt.Errorf("compositor: draw %s with no framebuffer or program bound", label)
	}
	if err := fb.complete(); err != nil {
		return err
	}
	w, h := fb.attachments[0].Size()
	return rt.renderer.Draw(gpu.Pass{
		Label:       label,
		Program:     prog,
		Attachments: fb.views(),
		Width:       w,
		Height:      h,
		Textures:    rt.bound.units,
	})
}
