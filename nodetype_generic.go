// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"

	"github.com/gogpu/compositor/internal/descriptor"
	"github.com/gogpu/compositor/internal/gpu"
)

// genericType draws its program once per compute with the default
// algorithms.
type genericType struct {
	baseType
}

func (t *genericType) Kind() Kind { return KindGeneric }

// newGenericType derives pins and properties from prog's reflection.
// Sampled textures become input pins in declaration order with their
// binding as location. Uniform members become properties located at their
// byte offset; members of unsupported types are logged and omitted.
// overrides replaces the zero defaults by name.
func newGenericType(name string, prog *gpu.Program, outputs []string, overrides map[string]descriptor.Value) (*genericType, error) {
	t := &genericType{baseType{
		name:     name,
		program:  prog,
		defaults: make(map[string]*Property),
	}}
	for _, tex := range prog.Textures() {
		t.inputs = append(t.inputs, Pin{Name: tex.Name, Location: int(tex.Binding)})
	}
	for i, o := range outputs {
		t.outputs = append(t.outputs, Pin{Name: o, Location: i})
	}
	if len(t.outputs) > MaxChannels {
		return nil, fmt.Errorf("%w: %s declares %d outputs", ErrTooManyChannels, name, len(t.outputs))
	}

	if u := prog.Uniform(); u != nil {
		for _, m := range u.Members {
			typ := propertyTypeOf(m.Type)
			if typ == PropertyInvalid {
				Logger().Warn("compositor: unsupported uniform type, property omitted",
					"type", name, "member", m.Name, "wgsl", m.TypeName)
				continue
			}
			p, err := NewProperty(typ, nil, int(m.Offset))
			if err != nil {
				return nil, err
			}
			t.defaults[m.Name] = p
		}
	}

	for prop, v := range overrides {
		p, ok := t.defaults[prop]
		if !ok {
			Logger().Warn("compositor: default for unknown property ignored", "type", name, "property", prop)
			continue
		}
		var err error
		if v.IsText {
			err = p.Parse(v.Text)
		} else {
			err = p.SetNumbers(v.Numbers)
		}
		if err != nil {
			return nil, fmt.Errorf("%s default %q: %w", name, prop, err)
		}
	}
	return t, nil
}
