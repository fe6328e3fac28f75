// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"io/fs"
	"os"

	"github.com/gogpu/gputypes"
)

// Defaults used when no option overrides them.
const (
	// DefaultTexture is the source of the built-in texture type.
	DefaultTexture = "textures/modulate.png"

	// DefaultMaxDepth bounds dependency recursion in Compute.
	DefaultMaxDepth = 256
)

// Option configures a Runtime during creation.
//
// Example:
//
//	rt, err := compositor.New(device, queue,
//	    compositor.WithNodeDir("nodes"),
//	    compositor.WithShaderFS(os.DirFS("shaders")),
//	)
type Option func(*config)

// config holds the runtime configuration.
type config struct {
	nodeFS         fs.FS
	shaderFS       fs.FS
	defaultTexture string
	maxDepth       int
	previewFormat  gputypes.TextureFormat
}

// defaultConfig returns the configuration used when no options are given:
// no descriptor directory, built-in shaders only.
func defaultConfig() config {
	return config{
		defaultTexture: DefaultTexture,
		maxDepth:       DefaultMaxDepth,
		previewFormat:  gputypes.TextureFormatBGRA8Unorm,
	}
}

// WithNodeDir loads node descriptors from the directory dir. Descriptor
// shader paths are resolved against the working directory unless
// WithShaderFS is also given.
func WithNodeDir(dir string) Option {
	return func(c *config) {
		c.nodeFS = os.DirFS(dir)
		if c.shaderFS == nil {
			c.shaderFS = os.DirFS(".")
		}
	}
}

// WithNodeFS loads node descriptors from the root of fsys.
func WithNodeFS(fsys fs.FS) Option {
	return func(c *config) {
		c.nodeFS = fsys
	}
}

// WithShaderFS resolves shader paths in fsys before the built-in shaders.
func WithShaderFS(fsys fs.FS) Option {
	return func(c *config) {
		c.shaderFS = fsys
	}
}

// WithDefaultTexture sets the default source of the built-in texture type.
func WithDefaultTexture(path string) Option {
	return func(c *config) {
		c.defaultTexture = path
	}
}

// WithMaxDepth sets how deep Compute may recurse into upstream instances.
// Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithPreviewFormat sets the texture format of DebugDraw targets.
func WithPreviewFormat(format gputypes.TextureFormat) Option {
	return func(c *config) {
		c.previewFormat = format
	}
}
