// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyData is returned when image data is empty.
var ErrEmptyData = errors.New("image: empty data")

// Load decodes the image file at path. Supported formats: PNG, JPEG, GIF,
// BMP, TIFF and WebP, detected from content. An empty file yields
// ErrEmptyData.
func Load(path string) (*ImageBuf, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("image: read file: %w", err)
	}
	return DecodeBytes(data)
}

// LoadFlipped decodes the image file at path and reverses its rows so row 0
// is the bottom scanline, the order textures are stored in.
func LoadFlipped(path string) (*ImageBuf, error) {
	b, err := Load(path)
	if err != nil {
		return nil, err
	}
	b.FlipVertical()
	return b, nil
}

// Decode decodes an image from r, auto-detecting the format.
func Decode(r io.Reader) (*ImageBuf, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("image: decode: %w", err)
	}
	return FromStdImage(img)
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (*ImageBuf, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	return Decode(bytes.NewReader(data))
}

// FromStdImage converts any image.Image to a non-premultiplied RGBA8 buffer.
func FromStdImage(img image.Image) (*ImageBuf, error) {
	bounds := img.Bounds()
	buf, err := NewImageBuf(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	// Fast path for NRGBA with a matching stride.
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == buf.Stride() {
		copy(buf.data, nrgba.Pix)
		return buf, nil
	}

	dst := &image.NRGBA{
		Pix:    buf.data,
		Stride: buf.Stride(),
		Rect:   image.Rect(0, 0, buf.width, buf.height),
	}
	draw.Draw(dst, dst.Rect, img, bounds.Min, draw.Src)
	return buf, nil
}

// ToStdImage returns an *image.NRGBA sharing the buffer's pixels.
func (b *ImageBuf) ToStdImage() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.data,
		Stride: b.Stride(),
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
}

// Scale returns a copy resized to width x height with bilinear filtering.
func (b *ImageBuf) Scale(width, height int) (*ImageBuf, error) {
	out, err := NewImageBuf(width, height)
	if err != nil {
		return nil, err
	}
	draw.BiLinear.Scale(out.ToStdImage(), image.Rect(0, 0, width, height), b.ToStdImage(), image.Rect(0, 0, b.width, b.height), draw.Src, nil)
	return out, nil
}

// EncodePNG encodes the image as PNG to w.
func (b *ImageBuf) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, b.ToStdImage()); err != nil {
		return fmt.Errorf("image: encode PNG: %w", err)
	}
	return nil
}

// SavePNG saves the image as a PNG file.
func (b *ImageBuf) SavePNG(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("image: create file: %w", err)
	}

	if err := b.EncodePNG(f); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
