// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the BytesPerRow alignment WebGPU requires for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// ReadPixels copies t back to the CPU as tightly packed RGBA8 rows in
// texture storage order (row 0 first). The call blocks until the GPU is idle.
func (r *Renderer) ReadPixels(t *Target) ([]byte, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	w, h := t.Size()
	bytesPerRow := w * bytesPerPixel
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: t.Label() + "_readback",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer r.device.DestroyBuffer(staging)

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	// Render attachments must be in copy-source layout for the copy. This is
	// a no-op on Metal, GLES, software, and noop backends.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.Texture(),
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.Texture(), staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.Texture(), Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.Texture(),
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	if err := r.submits.submit(cmd); err != nil {
		return nil, err
	}
	if err := r.submits.wait(); err != nil {
		return nil, err
	}

	mapping, err := r.device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)

	// Strip per-row padding.
	out := make([]byte, int(bytesPerRow)*int(h))
	for row := 0; row < int(h); row++ {
		src := row * int(alignedBytesPerRow)
		copy(out[row*int(bytesPerRow):(row+1)*int(bytesPerRow)], mapped[src:src+int(bytesPerRow)])
	}
	if err := r.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return out, nil
}
