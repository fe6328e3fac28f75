// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package image

import (
	"errors"
	"testing"
)

func TestNewImageBuf(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		wantErr error
	}{
		{"valid", 100, 50, nil},
		{"1x1 minimum", 1, 1, nil},
		{"zero width", 0, 100, ErrInvalidDimensions},
		{"zero height", 100, 0, ErrInvalidDimensions},
		{"negative width", -1, 100, ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := NewImageBuf(tt.width, tt.height)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewImageBuf() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if buf.Width() != tt.width || buf.Height() != tt.height {
				t.Errorf("size = %dx%d, want %dx%d", buf.Width(), buf.Height(), tt.width, tt.height)
			}
			if buf.Stride() != tt.width*4 {
				t.Errorf("Stride() = %d, want %d", buf.Stride(), tt.width*4)
			}
			if len(buf.Data()) != tt.width*tt.height*4 {
				t.Errorf("len(Data()) = %d, want %d", len(buf.Data()), tt.width*tt.height*4)
			}
		})
	}
}

func TestFromRaw(t *testing.T) {
	if _, err := FromRaw(make([]byte, 15), 2, 2); !errors.Is(err, ErrDataTooSmall) {
		t.Errorf("short data error = %v, want ErrDataTooSmall", err)
	}
	data := make([]byte, 20)
	buf, err := FromRaw(data, 2, 2)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if len(buf.Data()) != 16 {
		t.Errorf("len(Data()) = %d, want 16", len(buf.Data()))
	}
	data[0] = 7
	if r, _, _, _ := buf.rgbaAt(0, 0); r != 7 {
		t.Error("FromRaw should share the caller's slice")
	}
}

// rgbaAt returns the pixel at (x, y), zero when out of bounds.
func (b *ImageBuf) rgbaAt(x, y int) (r, g, bl, a uint8) {
	px := b.RowBytes(y)
	if x < 0 || x >= b.width || px == nil {
		return 0, 0, 0, 0
	}
	px = px[x*BytesPerPixel:]
	return px[0], px[1], px[2], px[3]
}

// setRGBA sets the pixel at (x, y) and reports whether it was in bounds.
func (b *ImageBuf) setRGBA(x, y int, r, g, bl, a uint8) bool {
	px := b.RowBytes(y)
	if x < 0 || x >= b.width || px == nil {
		return false
	}
	copy(px[x*BytesPerPixel:], []byte{r, g, bl, a})
	return true
}

func TestRowBytes(t *testing.T) {
	buf, _ := NewImageBuf(3, 2)
	row := buf.RowBytes(1)
	if len(row) != buf.Stride() {
		t.Fatalf("len(RowBytes(1)) = %d, want %d", len(row), buf.Stride())
	}
	row[8] = 42
	if r, _, _, _ := buf.rgbaAt(2, 1); r != 42 {
		t.Error("RowBytes should alias the pixel data")
	}
	if buf.RowBytes(2) != nil || buf.RowBytes(-1) != nil {
		t.Error("RowBytes out of range should be nil")
	}
}

func TestFlipVertical(t *testing.T) {
	for _, h := range []int{1, 2, 3, 4} {
		buf, _ := NewImageBuf(1, h)
		for y := range h {
			buf.setRGBA(0, y, uint8(y), 0, 0, 255)
		}
		buf.FlipVertical()
		for y := range h {
			if r, _, _, _ := buf.rgbaAt(0, y); int(r) != h-1-y {
				t.Errorf("h=%d row %d = %d, want %d", h, y, r, h-1-y)
			}
		}
	}
}
