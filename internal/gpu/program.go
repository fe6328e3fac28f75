// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Entry points every node shader must define.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// ErrUniformRange is returned when a uniform write falls outside the block.
var ErrUniformRange = errors.New("gpu: uniform write out of range")

// ErrNoUniform is returned when a program declares no uniform block.
var ErrNoUniform = errors.New("gpu: program has no uniform block")

// ProgramSource is a WGSL vertex/fragment pair. Vertex and Fragment may hold
// the same source when both stages live in one file.
type ProgramSource struct {
	Label    string
	Vertex   string
	Fragment string
}

type pipelineKey struct {
	format  gputypes.TextureFormat
	targets int
}

// Program is a compiled vertex/fragment pair with its reflected resources,
// bind group layout, CPU mirror of the uniform block, and a lazily built
// pipeline per attachment configuration.
type Program struct {
	device hal.Device
	queue  hal.Queue
	label  string

	reflection *Reflection

	vertex   hal.ShaderModule
	fragment hal.ShaderModule
	shared   bool // one module serves both stages

	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipelines      map[pipelineKey]hal.RenderPipeline

	uniformBuf   hal.Buffer
	uniformData  []byte
	uniformDirty bool
}

// NewProgram reflects and compiles src. Every resource created before a
// failure is released.
func NewProgram(device hal.Device, queue hal.Queue, src ProgramSource) (_ *Program, err error) {
	refl, err := Reflect(src.Vertex)
	if err != nil {
		return nil, fmt.Errorf("%s vertex: %w", src.Label, err)
	}
	if src.Fragment != src.Vertex {
		frag, ferr := Reflect(src.Fragment)
		if ferr != nil {
			return nil, fmt.Errorf("%s fragment: %w", src.Label, ferr)
		}
		// Fragment resources come first so texture order follows the
		// fragment shader's declarations.
		if err := frag.merge(refl); err != nil {
			return nil, fmt.Errorf("%s: %w", src.Label, err)
		}
		refl = frag
	}

	p := &Program{
		device:     device,
		queue:      queue,
		label:      src.Label,
		reflection: refl,
		pipelines:  make(map[pipelineKey]hal.RenderPipeline),
	}
	defer func() {
		if err != nil {
			p.Destroy()
		}
	}()

	p.vertex, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  src.Label + "_vs",
		Source: hal.ShaderSource{WGSL: src.Vertex},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s vertex: %w", src.Label, err)
	}
	p.fragment, p.shared = p.vertex, src.Fragment == src.Vertex
	if !p.shared {
		p.fragment, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  src.Label + "_fs",
			Source: hal.ShaderSource{WGSL: src.Fragment},
		})
		if err != nil {
			return nil, fmt.Errorf("compile %s fragment: %w", src.Label, err)
		}
	}

	p.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   src.Label + "_bgl",
		Entries: p.layoutEntries(),
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bind group layout: %w", src.Label, err)
	}
	p.pipelineLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            src.Label + "_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline layout: %w", src.Label, err)
	}

	if u := refl.Uniform; u != nil {
		p.uniformData = make([]byte, u.Size)
		p.uniformBuf, err = device.CreateBuffer(&hal.BufferDescriptor{
			Label: src.Label + "_uniforms",
			Size:  uint64(u.Size),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s uniform buffer: %w", src.Label, err)
		}
		p.uniformDirty = true
	}

	slogger().Debug("gpu: program compiled",
		"label", src.Label,
		"textures", len(refl.Textures),
		"samplers", len(refl.Samplers),
		"uniform", refl.Uniform != nil)
	return p, nil
}

func (p *Program) layoutEntries() []gputypes.BindGroupLayoutEntry {
	const visibility = gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
	var entries []gputypes.BindGroupLayoutEntry
	if u := p.reflection.Uniform; u != nil {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    u.Binding,
			Visibility: visibility,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: uint64(u.Size),
			},
		})
	}
	for _, s := range p.reflection.Samplers {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    s.Binding,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		})
	}
	for _, t := range p.reflection.Textures {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    t.Binding,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	return entries
}

// Label returns the debug label.
func (p *Program) Label() string { return p.label }

// Textures returns the sampled texture bindings in declaration order.
func (p *Program) Textures() []ResourceBinding { return p.reflection.Textures }

// Uniform returns the uniform block, or nil.
func (p *Program) Uniform() *UniformBlock { return p.reflection.Uniform }

// SetUniform copies data into the uniform mirror at offset. The buffer is
// uploaded on the next bind.
func (p *Program) SetUniform(offset uint32, data []byte) error {
	if p.uniformData == nil {
		return ErrNoUniform
	}
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(p.uniformData)) {
		return fmt.Errorf("%w: [%d,%d) in %d-byte block", ErrUniformRange, offset, end, len(p.uniformData))
	}
	copy(p.uniformData[offset:], data)
	p.uniformDirty = true
	return nil
}

// SetFloat writes a named f32 uniform member.
func (p *Program) SetFloat(name string, v float32) error {
	m, ok := p.reflection.Uniform.Member(name)
	if !ok || m.Type != MemberFloat {
		return fmt.Errorf("%w: no f32 member %q in %s", ErrUniformRange, name, p.label)
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return p.SetUniform(m.Offset, b[:])
}

// SetInt writes a named i32 uniform member.
func (p *Program) SetInt(name string, v int32) error {
	m, ok := p.reflection.Uniform.Member(name)
	if !ok || m.Type != MemberInt {
		return fmt.Errorf("%w: no i32 member %q in %s", ErrUniformRange, name, p.label)
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return p.SetUniform(m.Offset, b[:])
}

// pipeline returns the render pipeline for n color attachments of format,
// creating it on first use.
func (p *Program) pipeline(format gputypes.TextureFormat, n int) (hal.RenderPipeline, error) {
	key := pipelineKey{format: format, targets: n}
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}
	targets := make([]gputypes.ColorTargetState, n)
	for i := range targets {
		targets[i] = gputypes.ColorTargetState{
			Format:    format,
			WriteMask: gputypes.ColorWriteMaskAll,
		}
	}
	pl, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s_pipeline_%d", p.label, n),
		Layout: p.pipelineLayout,
		Vertex: hal.VertexState{
			Module:     p.vertex,
			EntryPoint: VertexEntryPoint,
			Buffers:    []gputypes.VertexBufferLayout{QuadLayout()},
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragment,
			EntryPoint: FragmentEntryPoint,
			Targets:    targets,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.DefaultMultisampleState(),
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", p.label, err)
	}
	p.pipelines[key] = pl
	return pl, nil
}

// bindGroup flushes the uniform mirror and builds a bind group. textures are
// assigned to the program's texture bindings in order; bindings past the end
// of textures (or given a nil view) receive placeholder.
func (p *Program) bindGroup(sampler hal.Sampler, placeholder hal.TextureView, textures []hal.TextureView) (hal.BindGroup, error) {
	if p.uniformBuf != nil && p.uniformDirty {
		if err := p.queue.WriteBuffer(p.uniformBuf, 0, p.uniformData); err != nil {
			return nil, fmt.Errorf("upload %s uniforms: %w", p.label, err)
		}
		p.uniformDirty = false
	}

	var entries []gputypes.BindGroupEntry
	if u := p.reflection.Uniform; u != nil {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: u.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuf.NativeHandle(),
				Size:   uint64(u.Size),
			},
		})
	}
	for _, s := range p.reflection.Samplers {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  s.Binding,
			Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()},
		})
	}
	for i, t := range p.reflection.Textures {
		view := placeholder
		if i < len(textures) && textures[i] != nil {
			view = textures[i]
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  t.Binding,
			Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
		})
	}

	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.label + "_bind",
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bind group: %w", p.label, err)
	}
	return bg, nil
}

// Destroy releases pipelines, layouts, modules and the uniform buffer in
// reverse creation order. Safe to call on a partially built program.
func (p *Program) Destroy() {
	for key, pl := range p.pipelines {
		p.device.DestroyRenderPipeline(pl)
		delete(p.pipelines, key)
	}
	if p.uniformBuf != nil {
		p.device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.pipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.fragment != nil && !p.shared {
		p.device.DestroyShaderModule(p.fragment)
	}
	p.fragment = nil
	if p.vertex != nil {
		p.device.DestroyShaderModule(p.vertex)
		p.vertex = nil
	}
}
