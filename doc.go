// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compositor is a GPU node-graph image compositor built on
// gogpu/wgpu.
//
// # Overview
//
// A graph is made of Instances of NodeTypes. Every instance owns render
// targets at its resolution and recomputes them lazily: Compute first brings
// dirty upstream instances up to date, depth first, then runs the instance's
// own algorithm, usually a single full-screen shader pass.
//
// # Quick Start
//
//	rt, err := compositor.New(device, queue, compositor.WithNodeDir("nodes"))
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	src, _ := rt.NewInstance(compositor.TextureKey, 512, 512)
//	_ = src.SetPropertyText(compositor.SourceProperty, "input.png")
//	dist, _ := rt.NewInstance(compositor.DistanceKey, 512, 512)
//	_ = compositor.Connect(src, dist, 0, 0)
//
//	if err := dist.Compute(); err != nil {
//	    return err
//	}
//	img, err := dist.Snapshot(0)
//
// # Node Types
//
// The library always holds three built-in types:
//   - texture: loads an image file (PNG, JPEG, GIF, BMP, TIFF, WebP)
//   - distance: iterative distance transform over its input
//   - passthrough: copies its input
//
// Further types are read from YAML descriptors (see WithNodeDir). A
// descriptor names a WGSL shader pair; the fragment shader's sampled
// textures become input pins and its uniform block members become
// properties.
//
// # Shaders
//
// Shaders are WGSL. The vertex stage must define vs_main and the fragment
// stage fs_main. Resources live in bind group 0: at most one uniform block,
// samplers, and 2-D float textures. The built-in vertex shader passes the
// quad's uv as @location(0), with v = 0 at the top of the image.
//
// # Concurrency
//
// A Runtime and its instances must be used from one goroutine.
package compositor
