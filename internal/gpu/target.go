// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// TargetFormat is the pixel format of every node render target.
const TargetFormat = gputypes.TextureFormatRGBA8Unorm

// bytesPerPixel of TargetFormat.
const bytesPerPixel = 4

// ErrInvalidTargetSize is returned when a target would have a zero dimension.
var ErrInvalidTargetSize = errors.New("gpu: target dimensions must be positive")

// ErrPixelDataSize is returned when uploaded pixels do not match the target.
var ErrPixelDataSize = errors.New("gpu: pixel data does not match target size")

// Target is a 2-D RGBA8 texture usable both as a color attachment and as a
// sampled input.
type Target struct {
	device  hal.Device
	label   string
	width   uint32
	height  uint32
	texture hal.Texture
	view    hal.TextureView
}

// NewTarget allocates a render target of the given size.
func NewTarget(device hal.Device, label string, width, height uint32) (*Target, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidTargetSize, width, height)
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        TargetFormat,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        TargetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}
	slogger().Debug("gpu: target allocated", "label", label, "width", width, "height", height)
	return &Target{
		device:  device,
		label:   label,
		width:   width,
		height:  height,
		texture: tex,
		view:    view,
	}, nil
}

// Size returns the target dimensions in pixels.
func (t *Target) Size() (width, height uint32) { return t.width, t.height }

// Texture returns the underlying texture.
func (t *Target) Texture() hal.Texture { return t.texture }

// View returns the full-texture view.
func (t *Target) View() hal.TextureView { return t.view }

// Label returns the debug label.
func (t *Target) Label() string { return t.label }

// Upload writes tightly packed RGBA8 rows into the target. A nil slice
// uploads transparent black.
func (t *Target) Upload(queue hal.Queue, pixels []byte) error {
	want := int(t.width) * int(t.height) * bytesPerPixel
	if pixels == nil {
		pixels = make([]byte, want)
	}
	if len(pixels) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrPixelDataSize, len(pixels), want)
	}
	err := queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.texture, Aspect: gputypes.TextureAspectAll},
		pixels,
		&hal.ImageDataLayout{BytesPerRow: t.width * bytesPerPixel, RowsPerImage: t.height},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("upload %s: %w", t.label, err)
	}
	return nil
}

// Destroy releases the view and texture. Safe to call twice.
func (t *Target) Destroy() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}
