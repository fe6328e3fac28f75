// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gputest

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// PassRecord captures one render pass.
type PassRecord struct {
	Label       string
	Attachments []uintptr // view handles, in @location order
	LoadOps     []gputypes.LoadOp
	ClearValue  gputypes.Color
	Pipelined   bool
	Draws       int
	Vertices    uint32
	Viewport    [4]float32
	BindGroup   *BindGroupRecord

	// Uniforms holds the contents of every uniform buffer bound by the pass,
	// keyed by binding, as they were when the bind group was set.
	Uniforms map[uint32][]byte
}

// BindGroupRecord captures a created bind group.
type BindGroupRecord struct {
	Label   string
	Entries []gputypes.BindGroupEntry
}

// TextureView returns the view handle bound at binding, or 0.
func (b *BindGroupRecord) TextureView(binding uint32) uintptr {
	for _, e := range b.Entries {
		if v, ok := e.Resource.(gputypes.TextureViewBinding); ok && e.Binding == binding {
			return v.TextureView
		}
	}
	return 0
}

// TextureRecord captures a created texture.
type TextureRecord struct {
	Label  string
	Handle uintptr
	Width  uint32
	Height uint32
}

// WriteTextureRecord captures a Queue.WriteTexture call.
type WriteTextureRecord struct {
	Texture uintptr
	Bytes   int
	Width   uint32
	Height  uint32
	Data    []byte
}

// Recorder wraps a HAL device and queue. Textures, views, buffers and bind
// groups it creates carry unique NativeHandle values so tests can identify
// them. Recorder is not safe for concurrent use.
type Recorder struct {
	Device hal.Device
	Queue  hal.Queue

	inner      hal.Device
	innerQueue hal.Queue
	next       uintptr

	Passes        []PassRecord
	Textures      []TextureRecord
	WriteTextures []WriteTextureRecord
	Submits       int

	liveTextures int
	liveViews    int
	liveGroups   int
	liveBuffers  int

	buffers map[uintptr][]byte
}

// Wrap returns a Recorder around device and queue.
func Wrap(device hal.Device, queue hal.Queue) *Recorder {
	r := &Recorder{
		inner:      device,
		innerQueue: queue,
		buffers:    make(map[uintptr][]byte),
	}
	r.Device = &recDevice{Device: device, r: r}
	r.Queue = &recQueue{Queue: queue, r: r}
	return r
}

// LiveTextures returns textures created and not yet destroyed.
func (r *Recorder) LiveTextures() int { return r.liveTextures }

// LiveViews returns texture views created and not yet destroyed.
func (r *Recorder) LiveViews() int { return r.liveViews }

// LiveBindGroups returns bind groups created and not yet destroyed.
func (r *Recorder) LiveBindGroups() int { return r.liveGroups }

// LiveBuffers returns buffers created and not yet destroyed.
func (r *Recorder) LiveBuffers() int { return r.liveBuffers }

// Reset forgets recorded passes, texture creations and writes. Live counts
// are kept.
func (r *Recorder) Reset() {
	r.Passes = nil
	r.Textures = nil
	r.WriteTextures = nil
	r.Submits = 0
}

// Handle returns the NativeHandle of a view, texture, buffer or sampler.
func Handle(v hal.NativeHandle) uintptr {
	if v == nil {
		return 0
	}
	return v.NativeHandle()
}

func (r *Recorder) id() uintptr {
	r.next++
	return r.next
}

type texture struct {
	hal.Texture
	handle uintptr
}

func (t *texture) NativeHandle() uintptr { return t.handle }

type textureView struct {
	hal.TextureView
	handle uintptr
}

func (v *textureView) NativeHandle() uintptr { return v.handle }

type buffer struct {
	hal.Buffer
	handle uintptr
}

func (b *buffer) NativeHandle() uintptr { return b.handle }

type bindGroup struct {
	hal.BindGroup
	rec *BindGroupRecord
}

func unwrapTexture(t hal.Texture) hal.Texture {
	if w, ok := t.(*texture); ok {
		return w.Texture
	}
	return t
}

func unwrapView(v hal.TextureView) hal.TextureView {
	if w, ok := v.(*textureView); ok {
		return w.TextureView
	}
	return v
}

func unwrapBuffer(b hal.Buffer) hal.Buffer {
	if w, ok := b.(*buffer); ok {
		return w.Buffer
	}
	return b
}

type recDevice struct {
	hal.Device
	r *Recorder
}

func (d *recDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	b, err := d.Device.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}
	d.r.liveBuffers++
	return &buffer{Buffer: b, handle: d.r.id()}, nil
}

func (d *recDevice) DestroyBuffer(b hal.Buffer) {
	if w, ok := b.(*buffer); ok {
		delete(d.r.buffers, w.handle)
	}
	d.r.liveBuffers--
	d.Device.DestroyBuffer(unwrapBuffer(b))
}

func (d *recDevice) MapBuffer(b hal.Buffer, offset, size uint64) (hal.BufferMapping, error) {
	return d.Device.MapBuffer(unwrapBuffer(b), offset, size)
}

func (d *recDevice) UnmapBuffer(b hal.Buffer) error {
	return d.Device.UnmapBuffer(unwrapBuffer(b))
}

func (d *recDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	t, err := d.Device.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	w := &texture{Texture: t, handle: d.r.id()}
	d.r.liveTextures++
	d.r.Textures = append(d.r.Textures, TextureRecord{
		Label:  desc.Label,
		Handle: w.handle,
		Width:  desc.Size.Width,
		Height: desc.Size.Height,
	})
	return w, nil
}

func (d *recDevice) DestroyTexture(t hal.Texture) {
	d.r.liveTextures--
	d.Device.DestroyTexture(unwrapTexture(t))
}

func (d *recDevice) CreateTextureView(t hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	v, err := d.Device.CreateTextureView(unwrapTexture(t), desc)
	if err != nil {
		return nil, err
	}
	d.r.liveViews++
	return &textureView{TextureView: v, handle: d.r.id()}, nil
}

func (d *recDevice) DestroyTextureView(v hal.TextureView) {
	d.r.liveViews--
	d.Device.DestroyTextureView(unwrapView(v))
}

func (d *recDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	g, err := d.Device.CreateBindGroup(desc)
	if err != nil {
		return nil, err
	}
	d.r.liveGroups++
	entries := append([]gputypes.BindGroupEntry(nil), desc.Entries...)
	return &bindGroup{BindGroup: g, rec: &BindGroupRecord{Label: desc.Label, Entries: entries}}, nil
}

func (d *recDevice) DestroyBindGroup(g hal.BindGroup) {
	d.r.liveGroups--
	if w, ok := g.(*bindGroup); ok {
		g = w.BindGroup
	}
	d.Device.DestroyBindGroup(g)
}

func (d *recDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	e, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &recEncoder{CommandEncoder: e, r: d.r}, nil
}

type recEncoder struct {
	hal.CommandEncoder
	r *Recorder
}

func (e *recEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	rec := PassRecord{Label: desc.Label}
	inner := *desc
	inner.ColorAttachments = make([]hal.RenderPassColorAttachment, len(desc.ColorAttachments))
	for i, a := range desc.ColorAttachments {
		rec.Attachments = append(rec.Attachments, Handle(a.View))
		rec.LoadOps = append(rec.LoadOps, a.LoadOp)
		if i == 0 {
			rec.ClearValue = a.ClearValue
		}
		a.View = unwrapView(a.View)
		inner.ColorAttachments[i] = a
	}
	e.r.Passes = append(e.r.Passes, rec)
	return &recPass{
		RenderPassEncoder: e.CommandEncoder.BeginRenderPass(&inner),
		r:                 e.r,
		index:             len(e.r.Passes) - 1,
	}
}

func (e *recEncoder) CopyTextureToBuffer(src hal.Texture, dst hal.Buffer, regions []hal.BufferTextureCopy) {
	inner := make([]hal.BufferTextureCopy, len(regions))
	for i, reg := range regions {
		reg.TextureBase.Texture = unwrapTexture(reg.TextureBase.Texture)
		inner[i] = reg
	}
	e.CommandEncoder.CopyTextureToBuffer(unwrapTexture(src), unwrapBuffer(dst), inner)
}

func (e *recEncoder) TransitionTextures(barriers []hal.TextureBarrier) {
	inner := make([]hal.TextureBarrier, len(barriers))
	for i, b := range barriers {
		b.Texture = unwrapTexture(b.Texture)
		inner[i] = b
	}
	e.CommandEncoder.TransitionTextures(inner)
}

type recPass struct {
	hal.RenderPassEncoder
	r     *Recorder
	index int
}

func (p *recPass) rec() *PassRecord { return &p.r.Passes[p.index] }

func (p *recPass) SetPipeline(pl hal.RenderPipeline) {
	p.rec().Pipelined = true
	p.RenderPassEncoder.SetPipeline(pl)
}

func (p *recPass) SetBindGroup(index uint32, g hal.BindGroup, offsets []uint32) {
	if w, ok := g.(*bindGroup); ok {
		rec := p.rec()
		rec.BindGroup = w.rec
		for _, e := range w.rec.Entries {
			b, ok := e.Resource.(gputypes.BufferBinding)
			if !ok {
				continue
			}
			if rec.Uniforms == nil {
				rec.Uniforms = make(map[uint32][]byte)
			}
			rec.Uniforms[e.Binding] = append([]byte(nil), p.r.buffers[b.Buffer]...)
		}
		g = w.BindGroup
	}
	p.RenderPassEncoder.SetBindGroup(index, g, offsets)
}

func (p *recPass) SetVertexBuffer(slot uint32, b hal.Buffer, offset uint64) {
	p.RenderPassEncoder.SetVertexBuffer(slot, unwrapBuffer(b), offset)
}

func (p *recPass) SetViewport(x, y, w, h, minDepth, maxDepth float32) {
	p.rec().Viewport = [4]float32{x, y, w, h}
	p.RenderPassEncoder.SetViewport(x, y, w, h, minDepth, maxDepth)
}

func (p *recPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	rec := p.rec()
	rec.Draws++
	rec.Vertices += vertexCount
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

type recQueue struct {
	hal.Queue
	r *Recorder
}

func (q *recQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.r.Submits++
	return q.Queue.Submit(cmds)
}

func (q *recQueue) WriteBuffer(b hal.Buffer, offset uint64, data []byte) error {
	if w, ok := b.(*buffer); ok {
		cur := q.r.buffers[w.handle]
		if need := int(offset) + len(data); len(cur) < need {
			grown := make([]byte, need)
			copy(grown, cur)
			cur = grown
		}
		copy(cur[offset:], data)
		q.r.buffers[w.handle] = cur
	}
	return q.Queue.WriteBuffer(unwrapBuffer(b), offset, data)
}

func (q *recQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.r.WriteTextures = append(q.r.WriteTextures, WriteTextureRecord{
		Texture: Handle(dst.Texture),
		Bytes:   len(data),
		Width:   size.Width,
		Height:  size.Height,
		Data:    append([]byte(nil), data...),
	})
	inner := *dst
	inner.Texture = unwrapTexture(dst.Texture)
	return q.Queue.WriteTexture(&inner, data, layout, size)
}
