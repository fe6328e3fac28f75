// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// gradient returns a w x h NRGBA whose red channel encodes the row.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(y * 10), G: uint8(x * 10), B: 128, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPNG(t *testing.T) {
	path := writePNG(t, gradient(4, 3))
	buf, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if buf.Width() != 4 || buf.Height() != 3 {
		t.Fatalf("size = %dx%d, want 4x3", buf.Width(), buf.Height())
	}
	if r, g, _, _ := buf.rgbaAt(2, 1); r != 10 || g != 20 {
		t.Errorf("pixel (2,1) = (%d,%d), want (10,20)", r, g)
	}
}

func TestLoadFlipped(t *testing.T) {
	path := writePNG(t, gradient(2, 3))
	buf, err := LoadFlipped(path)
	if err != nil {
		t.Fatalf("LoadFlipped: %v", err)
	}
	// Row 0 now holds the last scanline of the file.
	if r, _, _, _ := buf.rgbaAt(0, 0); r != 20 {
		t.Errorf("row 0 red = %d, want 20", r)
	}
	if r, _, _, _ := buf.rgbaAt(0, 2); r != 0 {
		t.Errorf("row 2 red = %d, want 0", r)
	}
}

func TestDecodeExtendedFormats(t *testing.T) {
	src := gradient(5, 4)
	tests := []struct {
		name   string
		encode func(*bytes.Buffer) error
	}{
		{"bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, src) }},
		{"tiff", func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			if err := tt.encode(&b); err != nil {
				t.Fatalf("encode: %v", err)
			}
			buf, err := DecodeBytes(b.Bytes())
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			if buf.Width() != 5 || buf.Height() != 4 {
				t.Errorf("size = %dx%d, want 5x4", buf.Width(), buf.Height())
			}
			if r, g, bl, a := buf.rgbaAt(3, 2); r != 20 || g != 30 || bl != 128 || a != 255 {
				t.Errorf("pixel (3,2) = (%d,%d,%d,%d), want (20,30,128,255)", r, g, bl, a)
			}
		})
	}
}

func TestFromStdImageConvertsGray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 1, color.Gray{Y: 200})
	buf, err := FromStdImage(gray)
	if err != nil {
		t.Fatalf("FromStdImage: %v", err)
	}
	if r, g, b, a := buf.rgbaAt(1, 1); r != 200 || g != 200 || b != 200 || a != 255 {
		t.Errorf("pixel = (%d,%d,%d,%d), want (200,200,200,255)", r, g, b, a)
	}
}

func TestFromStdImageOffsetBounds(t *testing.T) {
	img := gradient(6, 6).SubImage(image.Rect(2, 3, 5, 6))
	buf, err := FromStdImage(img)
	if err != nil {
		t.Fatalf("FromStdImage: %v", err)
	}
	if buf.Width() != 3 || buf.Height() != 3 {
		t.Fatalf("size = %dx%d, want 3x3", buf.Width(), buf.Height())
	}
	if r, g, _, _ := buf.rgbaAt(0, 0); r != 30 || g != 20 {
		t.Errorf("origin pixel = (%d,%d), want (30,20)", r, g)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := DecodeBytes(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("empty error = %v, want ErrEmptyData", err)
	}
	if _, err := DecodeBytes([]byte("not an image")); err == nil {
		t.Error("expected error for invalid data")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
	empty := filepath.Join(t.TempDir(), "empty.png")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(empty); !errors.Is(err, ErrEmptyData) {
		t.Errorf("empty file error = %v, want ErrEmptyData", err)
	}
}

func TestSavePNGRoundTrip(t *testing.T) {
	buf, _ := NewImageBuf(3, 3)
	_ = buf.setRGBA(1, 2, 50, 60, 70, 255)
	path := filepath.Join(t.TempDir(), "out.png")
	if err := buf.SavePNG(path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r, g, b, _ := got.rgbaAt(1, 2); r != 50 || g != 60 || b != 70 {
		t.Errorf("pixel = (%d,%d,%d), want (50,60,70)", r, g, b)
	}
}

func TestScale(t *testing.T) {
	buf, _ := NewImageBuf(2, 2)
	for y := range 2 {
		for x := range 2 {
			_ = buf.setRGBA(x, y, 100, 100, 100, 255)
		}
	}
	out, err := buf.Scale(4, 6)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if out.Width() != 4 || out.Height() != 6 {
		t.Fatalf("size = %dx%d, want 4x6", out.Width(), out.Height())
	}
	if r, _, _, a := out.rgbaAt(2, 3); r != 100 || a != 255 {
		t.Errorf("uniform color changed by scaling: r=%d a=%d", r, a)
	}
	if _, err := buf.Scale(0, 1); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("error = %v, want ErrInvalidDimensions", err)
	}
}
