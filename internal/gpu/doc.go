// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu holds the WebGPU plumbing behind the compositor's node graph.
//
// It wraps the gogpu/wgpu HAL into the handful of services the graph engine
// consumes as opaque collaborators:
//
//   - Program: a WGSL vertex+fragment pair with reflected resources
//     (sampled textures, samplers, one uniform block), lazily built render
//     pipelines and a CPU-mirrored uniform buffer
//   - Quad: the shared full-screen quad (two triangles, position + UV)
//   - Target: an RGBA8 2D texture plus its default view, usable both as a
//     color attachment and as a sampled input
//   - Submitter: command-buffer submission with deferred release of
//     per-pass transient objects (bind groups, command buffers)
//
// Reflection is performed on the WGSL source with gogpu/naga, so programs
// expose the same information a GL program exposes through its active
// uniform list: name, type and binding location.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. All calls are expected
// on the single goroutine that owns the device's render work.
package gpu
