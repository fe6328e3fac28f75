// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package image holds the CPU side of node textures: tightly packed,
// non-premultiplied RGBA8 buffers, decoding from disk and PNG encoding of
// GPU readbacks.
package image

import (
	"errors"
	"fmt"
)

// Common errors for image operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = errors.New("image: data buffer too small")
)

// BytesPerPixel of an ImageBuf.
const BytesPerPixel = 4

// ImageBuf is a tightly packed RGBA8 image. Row 0 is the first row in
// memory; whether that is the top or the bottom scanline depends on the
// producer (decoders yield top-down, GPU textures are stored bottom-up).
type ImageBuf struct {
	data   []byte
	width  int
	height int
}

// NewImageBuf allocates a zeroed buffer.
func NewImageBuf(width, height int) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &ImageBuf{
		data:   make([]byte, width*height*BytesPerPixel),
		width:  width,
		height: height,
	}, nil
}

// FromRaw wraps existing RGBA8 rows without copying.
func FromRaw(data []byte, width, height int) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	need := width * height * BytesPerPixel
	if len(data) < need {
		return nil, fmt.Errorf("%w: %d < %d", ErrDataTooSmall, len(data), need)
	}
	return &ImageBuf{data: data[:need], width: width, height: height}, nil
}

// Width returns the width in pixels.
func (b *ImageBuf) Width() int { return b.width }

// Height returns the height in pixels.
func (b *ImageBuf) Height() int { return b.height }

// Stride returns the bytes per row.
func (b *ImageBuf) Stride() int { return b.width * BytesPerPixel }

// Data returns the pixel bytes.
func (b *ImageBuf) Data() []byte { return b.data }

// RowBytes returns row y.
func (b *ImageBuf) RowBytes(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	s := b.Stride()
	return b.data[y*s : (y+1)*s]
}

// FlipVertical reverses the row order in place.
func (b *ImageBuf) FlipVertical() {
	tmp := make([]byte, b.Stride())
	for top, bottom := 0, b.height-1; top < bottom; top, bottom = top+1, bottom-1 {
		t, u := b.RowBytes(top), b.RowBytes(bottom)
		copy(tmp, t)
		copy(t, u)
		copy(u, tmp)
	}
}
