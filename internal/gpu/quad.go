// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// quadVertexCount is the number of vertices in the full-screen quad (two triangles).
const quadVertexCount = 6

// quadVertexStride is the byte size of one vertex: vec2 position + vec2 uv.
const quadVertexStride = 16

// quadVertices covers clip space with two triangles. UV v runs from 0 at the
// top of the attachment to 1 at the bottom, so texture rows are stored
// bottom-up: row 0 of every texture is the bottom scanline of the image.
var quadVertices = [quadVertexCount * 4]float32{
	// x, y, u, v
	-1, -1, 0, 1,
	1, -1, 1, 1,
	1, 1, 1, 0,
	-1, -1, 0, 1,
	1, 1, 1, 0,
	-1, 1, 0, 0,
}

// QuadLayout is the vertex buffer layout every node vertex shader consumes:
// @location(0) position: vec2<f32>, @location(1) uv: vec2<f32>.
func QuadLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: quadVertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
		},
	}
}

// Quad is the shared full-screen quad primitive.
type Quad struct {
	device hal.Device
	buffer hal.Buffer
}

// NewQuad uploads the quad vertices into a vertex buffer.
func NewQuad(device hal.Device, queue hal.Queue) (*Quad, error) {
	data := make([]byte, len(quadVertices)*4)
	for i, f := range quadVertices {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}

	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compositor_quad",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create quad buffer: %w", err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload quad vertices: %w", err)
	}
	return &Quad{device: device, buffer: buf}, nil
}

// Draw records the quad into an open render pass.
func (q *Quad) Draw(pass hal.RenderPassEncoder) {
	pass.SetVertexBuffer(0, q.buffer, 0)
	pass.Draw(quadVertexCount, 1, 0, 0)
}

// Destroy releases the vertex buffer.
func (q *Quad) Destroy() {
	if q.buffer != nil {
		q.device.DestroyBuffer(q.buffer)
		q.buffer = nil
	}
}
