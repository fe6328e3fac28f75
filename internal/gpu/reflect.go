// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrReflect is returned when WGSL source cannot be parsed for reflection.
var ErrReflect = errors.New("gpu: shader reflection failed")

// MemberType classifies a uniform block member the engine can bind.
type MemberType uint8

const (
	// MemberUnsupported marks a member the engine cannot expose as a property.
	MemberUnsupported MemberType = iota
	// MemberFloat is a single f32.
	MemberFloat
	// MemberVec2 is vec2<f32>.
	MemberVec2
	// MemberVec3 is vec3<f32>.
	MemberVec3
	// MemberVec4 is vec4<f32>.
	MemberVec4
	// MemberInt is a single i32.
	MemberInt
)

// String returns the WGSL spelling of the member type.
func (t MemberType) String() string {
	switch t {
	case MemberFloat:
		return "f32"
	case MemberVec2:
		return "vec2<f32>"
	case MemberVec3:
		return "vec3<f32>"
	case MemberVec4:
		return "vec4<f32>"
	case MemberInt:
		return "i32"
	default:
		return "unsupported"
	}
}

// Size returns the byte size of the member type, 0 when unsupported.
func (t MemberType) Size() uint32 {
	switch t {
	case MemberFloat, MemberInt:
		return 4
	case MemberVec2:
		return 8
	case MemberVec3:
		return 12
	case MemberVec4:
		return 16
	default:
		return 0
	}
}

// UniformMember is one field of the reflected uniform block.
type UniformMember struct {
	Name   string
	Type   MemberType
	Offset uint32

	// TypeName describes unsupported members for diagnostics.
	TypeName string
}

// UniformBlock is the single var<uniform> a node shader may declare.
type UniformBlock struct {
	Name    string
	Binding uint32
	Size    uint32
	Members []UniformMember
}

// Member returns the member with the given name.
func (b *UniformBlock) Member(name string) (UniformMember, bool) {
	if b == nil {
		return UniformMember{}, false
	}
	for _, m := range b.Members {
		if m.Name == name {
			return m, true
		}
	}
	return UniformMember{}, false
}

// ResourceBinding is a named @group(0) resource.
type ResourceBinding struct {
	Name    string
	Binding uint32
}

// Reflection lists the resources a WGSL program declares, in declaration order.
type Reflection struct {
	Uniform  *UniformBlock
	Textures []ResourceBinding
	Samplers []ResourceBinding
}

// Reflect parses WGSL source and collects its group 0 resources.
// Resources in other bind groups are ignored with a warning.
func Reflect(source string) (*Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReflect, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReflect, err)
	}
	return reflectModule(module)
}

func reflectModule(module *ir.Module) (*Reflection, error) {
	r := &Reflection{}
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		if gv.Binding.Group != 0 {
			slogger().Warn("gpu: ignoring resource outside bind group 0",
				"name", gv.Name, "group", gv.Binding.Group)
			continue
		}
		if int(gv.Type) >= len(module.Types) {
			return nil, fmt.Errorf("%w: global %q has invalid type handle", ErrReflect, gv.Name)
		}
		binding := ResourceBinding{Name: gv.Name, Binding: gv.Binding.Binding}

		switch inner := module.Types[gv.Type].Inner.(type) {
		case ir.ImageType:
			if inner.Class != ir.ImageClassSampled || inner.Dim != ir.Dim2D || inner.Arrayed || inner.Multisampled {
				slogger().Warn("gpu: ignoring non-2D or non-sampled texture", "name", gv.Name)
				continue
			}
			r.Textures = append(r.Textures, binding)
		case ir.SamplerType:
			r.Samplers = append(r.Samplers, binding)
		default:
			if gv.Space != ir.SpaceUniform {
				slogger().Warn("gpu: ignoring unsupported resource", "name", gv.Name)
				continue
			}
			if r.Uniform != nil {
				return nil, fmt.Errorf("%w: more than one uniform block (%q, %q)", ErrReflect, r.Uniform.Name, gv.Name)
			}
			r.Uniform = uniformBlock(module, gv, inner)
		}
	}
	return r, nil
}

// uniformBlock flattens a var<uniform> into members. A bare scalar or vector
// uniform becomes a block with one member named after the variable.
func uniformBlock(module *ir.Module, gv ir.GlobalVariable, inner ir.TypeInner) *UniformBlock {
	block := &UniformBlock{Name: gv.Name, Binding: gv.Binding.Binding}

	st, ok := inner.(ir.StructType)
	if !ok {
		mt, name := classify(module, gv.Type)
		block.Members = []UniformMember{{Name: gv.Name, Type: mt, TypeName: name}}
		block.Size = mt.Size()
	} else {
		for _, m := range st.Members {
			mt, name := classify(module, m.Type)
			block.Members = append(block.Members, UniformMember{
				Name:     m.Name,
				Type:     mt,
				Offset:   m.Offset,
				TypeName: name,
			})
		}
		block.Size = st.Span
	}

	// Uniform buffers are bound in 16-byte multiples.
	block.Size = (block.Size + 15) &^ 15
	if block.Size == 0 {
		block.Size = 16
	}
	return block
}

func classify(module *ir.Module, h ir.TypeHandle) (MemberType, string) {
	if int(h) >= len(module.Types) {
		return MemberUnsupported, "invalid"
	}
	switch t := module.Types[h].Inner.(type) {
	case ir.ScalarType:
		switch {
		case t.Kind == ir.ScalarFloat && t.Width == 4:
			return MemberFloat, "f32"
		case t.Kind == ir.ScalarSint && t.Width == 4:
			return MemberInt, "i32"
		}
		return MemberUnsupported, fmt.Sprintf("scalar(kind=%d,width=%d)", t.Kind, t.Width)
	case ir.VectorType:
		if t.Scalar.Kind != ir.ScalarFloat || t.Scalar.Width != 4 {
			return MemberUnsupported, fmt.Sprintf("vec%d(kind=%d)", t.Size, t.Scalar.Kind)
		}
		switch t.Size {
		case ir.Vec2:
			return MemberVec2, "vec2<f32>"
		case ir.Vec3:
			return MemberVec3, "vec3<f32>"
		case ir.Vec4:
			return MemberVec4, "vec4<f32>"
		}
		return MemberUnsupported, fmt.Sprintf("vec%d", t.Size)
	case ir.MatrixType:
		return MemberUnsupported, fmt.Sprintf("mat%dx%d", t.Columns, t.Rows)
	case ir.ArrayType:
		return MemberUnsupported, "array"
	case ir.StructType:
		return MemberUnsupported, "struct"
	default:
		return MemberUnsupported, fmt.Sprintf("%T", t)
	}
}

// merge folds the resources of another stage into r. Bindings already
// present are kept as-is.
func (r *Reflection) merge(other *Reflection) error {
	if other == nil {
		return nil
	}
	seen := make(map[uint32]bool)
	for _, b := range r.bindings() {
		seen[b] = true
	}
	for _, t := range other.Textures {
		if !seen[t.Binding] {
			r.Textures = append(r.Textures, t)
			seen[t.Binding] = true
		}
	}
	for _, s := range other.Samplers {
		if !seen[s.Binding] {
			r.Samplers = append(r.Samplers, s)
			seen[s.Binding] = true
		}
	}
	if other.Uniform != nil {
		switch {
		case r.Uniform == nil:
			r.Uniform = other.Uniform
		case r.Uniform.Binding != other.Uniform.Binding:
			return fmt.Errorf("%w: stages declare different uniform blocks (%q, %q)",
				ErrReflect, r.Uniform.Name, other.Uniform.Name)
		}
	}
	return nil
}

func (r *Reflection) bindings() []uint32 {
	out := make([]uint32, 0, len(r.Textures)+len(r.Samplers)+1)
	for _, t := range r.Textures {
		out = append(out, t.Binding)
	}
	for _, s := range r.Samplers {
		out = append(out, s.Binding)
	}
	if r.Uniform != nil {
		out = append(out, r.Uniform.Binding)
	}
	return out
}
