// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
)

// Built-in WGSL sources, addressable through Shaders().
const (
	QuadbaseShader    = "shaders/quadbase.wgsl"
	PassthroughShader = "shaders/passthrough.wgsl"
	PreviewShader     = "shaders/preview.wgsl"
	DistanceShader    = "shaders/distance.wgsl"
)

//go:embed shaders/*.wgsl
var builtinShaders embed.FS

// Shaders returns the embedded built-in shader tree.
func Shaders() fs.FS { return builtinShaders }

// Overlay returns a file system that resolves a name in each layer in turn,
// falling through on fs.ErrNotExist. Nil layers are skipped.
func Overlay(layers ...fs.FS) fs.FS {
	o := make(overlayFS, 0, len(layers))
	for _, l := range layers {
		if l != nil {
			o = append(o, l)
		}
	}
	return o
}

type overlayFS []fs.FS

func (o overlayFS) Open(name string) (fs.File, error) {
	for _, layer := range o {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// LoadSource reads a vertex/fragment pair from fsys.
func LoadSource(fsys fs.FS, label, vertexPath, fragmentPath string) (ProgramSource, error) {
	vs, err := fs.ReadFile(fsys, vertexPath)
	if err != nil {
		return ProgramSource{}, fmt.Errorf("read vertex shader %s: %w", vertexPath, err)
	}
	src := ProgramSource{Label: label, Vertex: string(vs), Fragment: string(vs)}
	if fragmentPath != vertexPath {
		frag, err := fs.ReadFile(fsys, fragmentPath)
		if err != nil {
			return ProgramSource{}, fmt.Errorf("read fragment shader %s: %w", fragmentPath, err)
		}
		src.Fragment = string(frag)
	}
	return src, nil
}
