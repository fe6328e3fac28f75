// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/gogpu/gpucontext"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor/internal/descriptor"
	"github.com/gogpu/compositor/internal/gpu"
)

// Keys of the built-in node types.
const (
	TextureKey     = "texture"
	DistanceKey    = "distance"
	PassthroughKey = "passthrough"
)

// Library maps keys to node types. It is populated once while the Runtime
// is created and is read-only afterwards.
type Library struct {
	types   *gpucontext.Registry[NodeType]
	loadErr error
}

func newLibrary() *Library {
	return &Library{types: gpucontext.NewRegistry[NodeType]()}
}

func (l *Library) register(key string, t NodeType) error {
	if l.types.Has(key) {
		return fmt.Errorf("%w: %q", ErrDuplicateNodeType, key)
	}
	l.types.Register(key, func() NodeType { return t })
	return nil
}

// Get returns the node type registered under key.
func (l *Library) Get(key string) (NodeType, bool) {
	if !l.types.Has(key) {
		return nil, false
	}
	return l.types.Get(key), true
}

// Has reports whether key is registered.
func (l *Library) Has(key string) bool { return l.types.Has(key) }

// Keys returns every registered key, sorted.
func (l *Library) Keys() []string {
	keys := l.types.Available()
	slices.Sort(keys)
	return keys
}

// Len returns the number of registered types.
func (l *Library) Len() int { return l.types.Count() }

// LoadErrors returns the errors of descriptor files that were skipped, in
// file name order.
func (l *Library) LoadErrors() []error { return multierr.Errors(l.loadErr) }

// parsedDescriptor is the result of reading one descriptor file. err holds
// a per-file error that skips the file without failing the load.
type parsedDescriptor struct {
	file string
	key  string
	doc  *descriptor.Document
	src  gpu.ProgramSource
	err  error
}

// load registers a generic type for every regular file at the root of
// nodes. Files are read, parsed and reflected concurrently, then compiled
// and registered in file name order under the name without its extension.
// A directory or file that cannot be read fails the load; any other
// problem skips the file and is recorded in LoadErrors.
func (l *Library) load(rt *Runtime, nodes fs.FS) error {
	entries, err := fs.ReadDir(nodes, ".")
	if err != nil {
		return fmt.Errorf("compositor: read node directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}

	parsed := make([]parsedDescriptor, len(files))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range files {
		g.Go(func() error {
			data, err := fs.ReadFile(nodes, name)
			if err != nil {
				return fmt.Errorf("compositor: read node descriptor: %w", err)
			}
			parsed[i] = parseDescriptor(rt.shaders, name, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, d := range parsed {
		if d.err == nil {
			d.err = l.registerDescriptor(rt, d)
		}
		if d.err != nil {
			Logger().Error("compositor: node descriptor skipped", "file", d.file, "err", d.err)
			l.loadErr = multierr.Append(l.loadErr, fmt.Errorf("%s: %w", d.file, d.err))
			continue
		}
		Logger().Debug("compositor: node type registered", "key", d.key, "file", d.file)
	}
	return nil
}

func parseDescriptor(shaders fs.FS, file string, data []byte) parsedDescriptor {
	d := parsedDescriptor{
		file: file,
		key:  strings.TrimSuffix(file, path.Ext(file)),
	}
	if d.doc, d.err = descriptor.Parse(data); d.err != nil {
		return d
	}
	vertex, fragment := d.doc.ShaderPaths(gpu.QuadbaseShader, gpu.PassthroughShader)
	if d.src, d.err = gpu.LoadSource(shaders, d.key, vertex, fragment); d.err != nil {
		return d
	}
	_, d.err = gpu.Reflect(d.src.Fragment)
	return d
}

func (l *Library) registerDescriptor(rt *Runtime, d parsedDescriptor) error {
	if l.Has(d.key) {
		return fmt.Errorf("%w: %q", ErrDuplicateNodeType, d.key)
	}
	prog, err := rt.renderer.NewProgram(d.src)
	if err != nil {
		return err
	}
	name := d.doc.Info.Name
	if name == "" {
		name = d.key
	}
	t, err := newGenericType(name, prog, d.doc.OutputNames(), d.doc.Properties)
	if err != nil {
		prog.Destroy()
		return err
	}
	rt.programs = append(rt.programs, prog)
	return l.register(d.key, t)
}
