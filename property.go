// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/compositor/internal/gpu"
)

// PropertyType tags the value held by a Property.
type PropertyType uint8

const (
	// PropertyInvalid marks a released or unusable property.
	PropertyInvalid PropertyType = iota
	// PropertyFloat is a single f32.
	PropertyFloat
	// PropertyVec2 is two f32 components.
	PropertyVec2
	// PropertyVec3 is three f32 components.
	PropertyVec3
	// PropertyVec4 is four f32 components.
	PropertyVec4
	// PropertyInt is a single i32.
	PropertyInt
	// PropertyString is a NUL-terminated byte string. It never reaches a
	// shader.
	PropertyString
)

// String returns the WGSL-style name of the type.
func (t PropertyType) String() string {
	switch t {
	case PropertyFloat:
		return "f32"
	case PropertyVec2:
		return "vec2<f32>"
	case PropertyVec3:
		return "vec3<f32>"
	case PropertyVec4:
		return "vec4<f32>"
	case PropertyInt:
		return "i32"
	case PropertyString:
		return "string"
	default:
		return "invalid"
	}
}

// fixedSize is the byte size of numeric types, 0 otherwise.
func (t PropertyType) fixedSize() int {
	switch t {
	case PropertyFloat, PropertyInt:
		return 4
	case PropertyVec2:
		return 8
	case PropertyVec3:
		return 12
	case PropertyVec4:
		return 16
	default:
		return 0
	}
}

// components is the number of float components, 0 for non-float types.
func (t PropertyType) components() int {
	switch t {
	case PropertyFloat:
		return 1
	case PropertyVec2:
		return 2
	case PropertyVec3:
		return 3
	case PropertyVec4:
		return 4
	default:
		return 0
	}
}

func propertyTypeOf(m gpu.MemberType) PropertyType {
	switch m {
	case gpu.MemberFloat:
		return PropertyFloat
	case gpu.MemberVec2:
		return PropertyVec2
	case gpu.MemberVec3:
		return PropertyVec3
	case gpu.MemberVec4:
		return PropertyVec4
	case gpu.MemberInt:
		return PropertyInt
	default:
		return PropertyInvalid
	}
}

// Property is a typed value bound to a shader input. Numeric values are
// stored little-endian exactly as the uniform block expects them. The
// buffer length always equals the size of the current value.
type Property struct {
	typ      PropertyType
	location int
	data     []byte
}

// NewProperty creates a property of typ bound to location (a uniform byte
// offset, or -1). A nil src yields the zero value; otherwise src is applied
// with Set.
func NewProperty(typ PropertyType, src []byte, location int) (*Property, error) {
	if typ == PropertyInvalid || typ > PropertyString {
		Logger().Warn("compositor: unsupported property type", "type", uint8(typ))
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, uint8(typ))
	}
	p := &Property{typ: typ, location: location}
	if typ == PropertyString {
		p.data = []byte{0}
	} else {
		p.data = make([]byte, typ.fixedSize())
	}
	if src != nil {
		if err := p.Set(src); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Set overwrites the value with raw bytes. Numeric types copy exactly Size
// bytes. Strings are measured up to the first NUL (or the end of raw), then
// the buffer is reallocated to that length plus a terminator.
func (p *Property) Set(raw []byte) error {
	switch p.typ {
	case PropertyInvalid:
		return ErrUnsupportedType
	case PropertyString:
		n := bytes.IndexByte(raw, 0)
		if n < 0 {
			n = len(raw)
		}
		buf := make([]byte, n+1)
		copy(buf, raw[:n])
		p.data = buf
		return nil
	default:
		size := p.typ.fixedSize()
		if len(raw) < size {
			return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortValue, p.typ, size, len(raw))
		}
		copy(p.data, raw[:size])
		return nil
	}
}

// SetFloat sets a PropertyFloat.
func (p *Property) SetFloat(v float32) error {
	return p.SetVec(v)
}

// SetVec sets a float or vector property. The number of components must
// match the type.
func (p *Property) SetVec(v ...float32) error {
	n := p.typ.components()
	if n == 0 || len(v) != n {
		return fmt.Errorf("%w: %d components for %s", ErrTypeMismatch, len(v), p.typ)
	}
	for i, c := range v {
		binary.LittleEndian.PutUint32(p.data[i*4:], math.Float32bits(c))
	}
	return nil
}

// SetInt sets a PropertyInt.
func (p *Property) SetInt(v int32) error {
	if p.typ != PropertyInt {
		return fmt.Errorf("%w: int for %s", ErrTypeMismatch, p.typ)
	}
	binary.LittleEndian.PutUint32(p.data, uint32(v))
	return nil
}

// SetString sets a PropertyString. Content after an embedded NUL is dropped.
func (p *Property) SetString(s string) error {
	if p.typ != PropertyString {
		return fmt.Errorf("%w: string for %s", ErrTypeMismatch, p.typ)
	}
	return p.Set([]byte(s))
}

// SetNumbers sets a numeric property from float64 components. Integers are
// truncated toward zero and must fit in an int32.
func (p *Property) SetNumbers(v []float64) error {
	if p.typ == PropertyInt {
		if len(v) != 1 {
			return fmt.Errorf("%w: %d components for %s", ErrTypeMismatch, len(v), p.typ)
		}
		if math.IsNaN(v[0]) || v[0] <= math.MinInt32-1 || v[0] >= math.MaxInt32+1 {
			return fmt.Errorf("%w: %g out of range for %s", ErrTypeMismatch, v[0], p.typ)
		}
		return p.SetInt(int32(v[0]))
	}
	f := make([]float32, len(v))
	for i, c := range v {
		f[i] = float32(c)
	}
	return p.SetVec(f...)
}

// Parse sets the value from text. Vectors take comma or space separated
// components; strings take the text as is.
func (p *Property) Parse(text string) error {
	switch p.typ {
	case PropertyString:
		return p.SetString(text)
	case PropertyInt:
		v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		return p.SetInt(int32(v))
	case PropertyInvalid:
		return ErrUnsupportedType
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	nums := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		nums[i] = v
	}
	return p.SetNumbers(nums)
}

// Float returns the value of a PropertyFloat, or the first component of a
// vector.
func (p *Property) Float() float32 {
	if p.typ.components() == 0 {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(p.data))
}

// Vec returns the float components, or nil for non-float types.
func (p *Property) Vec() []float32 {
	n := p.typ.components()
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p.data[i*4:]))
	}
	return out
}

// Int returns the value of a PropertyInt.
func (p *Property) Int() int32 {
	if p.typ != PropertyInt {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(p.data))
}

// Text returns the value of a PropertyString without its terminator.
func (p *Property) Text() string {
	if p.typ != PropertyString || len(p.data) == 0 {
		return ""
	}
	return string(p.data[:len(p.data)-1])
}

// String formats the value for display.
func (p *Property) String() string {
	switch p.typ {
	case PropertyString:
		return strconv.Quote(p.Text())
	case PropertyInt:
		return strconv.FormatInt(int64(p.Int()), 10)
	case PropertyFloat:
		return strconv.FormatFloat(float64(p.Float()), 'g', -1, 32)
	case PropertyVec2, PropertyVec3, PropertyVec4:
		parts := make([]string, 0, 4)
		for _, c := range p.Vec() {
			parts = append(parts, strconv.FormatFloat(float64(c), 'g', -1, 32))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "<invalid>"
	}
}

// Bytes returns the raw buffer, including the terminator of a string.
// The slice aliases the property.
func (p *Property) Bytes() []byte { return p.data }

// Size returns the buffer length in bytes.
func (p *Property) Size() int { return len(p.data) }

// Type returns the type tag.
func (p *Property) Type() PropertyType { return p.typ }

// Location returns the uniform byte offset, or -1 when the property is not
// bound to the shader.
func (p *Property) Location() int { return p.location }

// Clone returns a deep copy.
func (p *Property) Clone() *Property {
	return &Property{
		typ:      p.typ,
		location: p.location,
		data:     bytes.Clone(p.data),
	}
}

// Release drops the buffer and leaves p empty. A released property reports
// PropertyInvalid, size 0 and location -1.
func (p *Property) Release() {
	p.typ = PropertyInvalid
	p.location = Unassigned
	p.data = nil
}

// uploadable reports whether the value is written to the uniform block.
func (p *Property) uploadable() bool {
	return p.location >= 0 && p.typ.fixedSize() > 0
}
