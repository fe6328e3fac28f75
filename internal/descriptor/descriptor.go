// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package descriptor parses node type descriptor documents.
//
// A descriptor is a YAML document with two required blocks:
//
//	info:
//	  name: Blur
//	shader:
//	  vertex: shaders/quadbase.wgsl
//	  fragment: nodes/blur.wgsl
//	  outputs:
//	    - name: color
//	    - name: mask
//	properties:
//	  radius: 4
//	  tint: [1, 0.5, 0.5, 1]
//
// vertex and fragment are optional and fall back to caller-supplied
// defaults. An output without a name is called output_<index>; a shader
// block without outputs declares a single output named "output".
// properties overrides the zero defaults of reflected shader uniforms.
package descriptor

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Errors returned by Parse.
var (
	// ErrMissingInfo is returned when the info block is absent or null.
	ErrMissingInfo = errors.New("descriptor: missing info block")

	// ErrMissingShader is returned when the shader block is absent or null.
	// An empty mapping is accepted and takes the default shader paths.
	ErrMissingShader = errors.New("descriptor: missing shader block")

	// ErrSyntax wraps YAML syntax and type errors.
	ErrSyntax = errors.New("descriptor: syntax error")
)

// DefaultOutput is the name of the output synthesized when none are declared.
const DefaultOutput = "output"

// Document is a parsed descriptor.
type Document struct {
	Info       *Info            `yaml:"info"`
	Shader     *Shader          `yaml:"shader"`
	Properties map[string]Value `yaml:"properties,omitempty"`
}

// Info is the info block.
type Info struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Shader is the shader block.
type Shader struct {
	Vertex   string   `yaml:"vertex,omitempty"`
	Fragment string   `yaml:"fragment,omitempty"`
	Outputs  []Output `yaml:"outputs,omitempty"`
}

// Output is one entry of the outputs list.
type Output struct {
	Name string `yaml:"name,omitempty"`
}

// Value is a property default: a number, a list of numbers, or a string.
type Value struct {
	Numbers []float64
	Text    string
	IsText  bool
}

// UnmarshalYAML accepts a scalar or a flow/block sequence of scalars.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil && n.ShortTag() != "!!str" {
			v.Numbers = []float64{f}
			return nil
		}
		v.Text, v.IsText = n.Value, true
		return nil
	case yaml.SequenceNode:
		nums := make([]float64, 0, len(n.Content))
		for _, c := range n.Content {
			f, err := strconv.ParseFloat(c.Value, 64)
			if c.Kind != yaml.ScalarNode || err != nil {
				return fmt.Errorf("line %d: property vector element %q is not a number", c.Line, c.Value)
			}
			nums = append(nums, f)
		}
		v.Numbers = nums
		return nil
	default:
		return fmt.Errorf("line %d: property must be a scalar or a list", n.Line)
	}
}

// Parse decodes data and checks that both required blocks are present.
// Empty blocks such as "info: {}" pass; only absent or null ones fail.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	if doc.Info == nil {
		return nil, ErrMissingInfo
	}
	if doc.Shader == nil {
		return nil, ErrMissingShader
	}
	return &doc, nil
}

// OutputNames returns the declared output names in order, with unnamed
// entries auto-named and a single DefaultOutput when none are declared.
func (d *Document) OutputNames() []string {
	if d.Shader == nil || len(d.Shader.Outputs) == 0 {
		return []string{DefaultOutput}
	}
	names := make([]string, len(d.Shader.Outputs))
	for i, o := range d.Shader.Outputs {
		if o.Name == "" {
			names[i] = "output_" + strconv.Itoa(i)
			continue
		}
		names[i] = o.Name
	}
	return names
}

// ShaderPaths returns the vertex and fragment paths, substituting the given
// defaults for missing entries.
func (d *Document) ShaderPaths(defaultVertex, defaultFragment string) (vertex, fragment string) {
	vertex, fragment = defaultVertex, defaultFragment
	if d.Shader == nil {
		return vertex, fragment
	}
	if d.Shader.Vertex != "" {
		vertex = d.Shader.Vertex
	}
	if d.Shader.Fragment != "" {
		fragment = d.Shader.Fragment
	}
	return vertex, fragment
}
