// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Renderer-specific errors.
var (
	// ErrRendererClosed is returned when operating on a destroyed renderer.
	ErrRendererClosed = errors.New("gpu: renderer closed")

	// ErrNoAttachments is returned for a pass without color attachments.
	ErrNoAttachments = errors.New("gpu: pass has no color attachments")
)

// Pass describes one full-screen quad draw.
type Pass struct {
	// Label names the pass in debug output.
	Label string

	// Program is the shader pair to draw with.
	Program *Program

	// Attachments are the color attachments written by the fragment shader,
	// in @location order.
	Attachments []hal.TextureView

	// Format of every attachment. Zero means TargetFormat.
	Format gputypes.TextureFormat

	// Width and Height set the viewport.
	Width, Height uint32

	// Textures are bound to the program's texture bindings in order. Missing
	// or nil entries receive the placeholder texture.
	Textures []hal.TextureView

	// Load keeps the previous attachment contents instead of clearing them.
	Load bool
}

// Renderer owns the shared primitives every node pass uses: the full-screen
// quad, a linear clamp sampler and a 1x1 transparent placeholder texture.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	device hal.Device
	queue  hal.Queue

	quad        *Quad
	sampler     hal.Sampler
	placeholder *Target
	submits     submitter

	passes uint64
	closed bool
}

// NewRenderer creates the shared primitives on device.
func NewRenderer(device hal.Device, queue hal.Queue) (_ *Renderer, err error) {
	if device == nil || queue == nil {
		return nil, errors.New("gpu: nil device or queue")
	}
	r := &Renderer{
		device:  device,
		queue:   queue,
		submits: submitter{device: device, queue: queue},
	}
	defer func() {
		if err != nil {
			r.Destroy()
		}
	}()

	if r.quad, err = NewQuad(device, queue); err != nil {
		return nil, err
	}
	r.sampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "compositor_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	if r.placeholder, err = NewTarget(device, "compositor_placeholder", 1, 1); err != nil {
		return nil, err
	}
	if err = r.placeholder.Upload(queue, nil); err != nil {
		return nil, err
	}
	slogger().Debug("gpu: renderer ready")
	return r, nil
}

// Device returns the HAL device.
func (r *Renderer) Device() hal.Device { return r.device }

// Queue returns the HAL queue.
func (r *Renderer) Queue() hal.Queue { return r.queue }

// Placeholder returns the view bound to unconnected texture inputs.
func (r *Renderer) Placeholder() hal.TextureView { return r.placeholder.View() }

// Passes returns the number of render passes submitted so far.
func (r *Renderer) Passes() uint64 { return r.passes }

// NewTarget allocates a render target on the renderer's device.
func (r *Renderer) NewTarget(label string, width, height uint32) (*Target, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	return NewTarget(r.device, label, width, height)
}

// NewProgram compiles a program on the renderer's device.
func (r *Renderer) NewProgram(src ProgramSource) (*Program, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	return NewProgram(r.device, r.queue, src)
}

// Draw records and submits one quad pass.
func (r *Renderer) Draw(p Pass) error {
	if r.closed {
		return ErrRendererClosed
	}
	if len(p.Attachments) == 0 {
		return fmt.Errorf("%w: %s", ErrNoAttachments, p.Label)
	}
	format := p.Format
	if format == gputypes.TextureFormatUndefined {
		format = TargetFormat
	}

	pipeline, err := p.Program.pipeline(format, len(p.Attachments))
	if err != nil {
		return err
	}
	group, err := p.Program.bindGroup(r.sampler, r.placeholder.View(), p.Textures)
	if err != nil {
		return err
	}

	loadOp := gputypes.LoadOpClear
	if p.Load {
		loadOp = gputypes.LoadOpLoad
	}
	err = r.encode(p.Label, attachments(p.Attachments, loadOp, gputypes.Color{}), func(pass hal.RenderPassEncoder) {
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, group, nil)
		pass.SetViewport(0, 0, float32(p.Width), float32(p.Height), 0, 1)
		r.quad.Draw(pass)
	}, group)
	if err != nil {
		return err
	}
	slogger().Debug("gpu: pass drawn", "label", p.Label, "attachments", len(p.Attachments))
	return nil
}

// Clear fills every view with c.
func (r *Renderer) Clear(label string, views []hal.TextureView, c gputypes.Color) error {
	if r.closed {
		return ErrRendererClosed
	}
	if len(views) == 0 {
		return fmt.Errorf("%w: %s", ErrNoAttachments, label)
	}
	return r.encode(label, attachments(views, gputypes.LoadOpClear, c), nil)
}

func attachments(views []hal.TextureView, load gputypes.LoadOp, c gputypes.Color) []hal.RenderPassColorAttachment {
	out := make([]hal.RenderPassColorAttachment, len(views))
	for i, v := range views {
		out[i] = hal.RenderPassColorAttachment{
			View:       v,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c,
		}
	}
	return out
}

// encode runs record inside a single render pass and submits the result.
// groups are released once the submission completes.
func (r *Renderer) encode(label string, color []hal.RenderPassColorAttachment, record func(hal.RenderPassEncoder), groups ...hal.BindGroup) error {
	release := func() {
		for _, g := range groups {
			r.device.DestroyBindGroup(g)
		}
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		release()
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		release()
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            label,
		ColorAttachments: color,
	})
	if record != nil {
		record(pass)
	}
	pass.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		release()
		return fmt.Errorf("end encoding: %w", err)
	}
	if err := r.submits.submit(cmd, groups...); err != nil {
		return err
	}
	r.passes++
	return nil
}

// Wait blocks until all submitted passes have completed.
func (r *Renderer) Wait() error {
	if r.closed {
		return nil
	}
	return r.submits.wait()
}

// Destroy waits for the GPU and releases the shared primitives in reverse
// creation order.
func (r *Renderer) Destroy() {
	if r.closed {
		return
	}
	if err := r.submits.wait(); err != nil {
		slogger().Warn("gpu: wait before destroy failed", "err", err)
	}
	if r.placeholder != nil {
		r.placeholder.Destroy()
		r.placeholder = nil
	}
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.quad != nil {
		r.quad.Destroy()
		r.quad = nil
	}
	r.closed = true
}
