// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import "errors"

// Property errors.
var (
	// ErrUnsupportedType is returned when a property is built from a type tag
	// the engine cannot bind to a shader.
	ErrUnsupportedType = errors.New("compositor: unsupported property type")

	// ErrShortValue is returned when a raw numeric value has fewer bytes than
	// the property's fixed size.
	ErrShortValue = errors.New("compositor: value shorter than property size")

	// ErrTypeMismatch is returned by typed setters and parsers when the value
	// does not fit the property's type.
	ErrTypeMismatch = errors.New("compositor: value does not match property type")
)

// Graph errors.
var (
	// ErrUnknownProperty is returned when an instance has no property of the
	// requested name.
	ErrUnknownProperty = errors.New("compositor: unknown property")

	// ErrUnknownNodeType is returned when the library has no type for a key.
	ErrUnknownNodeType = errors.New("compositor: unknown node type")

	// ErrInvalidSize is returned for a non-positive instance resolution.
	ErrInvalidSize = errors.New("compositor: instance size must be positive")

	// ErrPinOutOfRange is returned when a connection names a pin the node
	// type does not declare.
	ErrPinOutOfRange = errors.New("compositor: pin index out of range")

	// ErrChannelOutOfRange is returned when an instance has no texture at the
	// requested channel.
	ErrChannelOutOfRange = errors.New("compositor: channel out of range")

	// ErrCycle is returned when compute re-enters an instance that is still
	// computing.
	ErrCycle = errors.New("compositor: dependency cycle")

	// ErrGraphTooDeep is returned when dependency recursion exceeds the
	// configured maximum depth.
	ErrGraphTooDeep = errors.New("compositor: dependency graph too deep")

	// ErrReleased is returned when operating on a released instance.
	ErrReleased = errors.New("compositor: instance released")

	// ErrForeignInstance is returned when connecting instances that belong to
	// different runtimes.
	ErrForeignInstance = errors.New("compositor: instances belong to different runtimes")
)

// Resource and runtime errors.
var (
	// ErrRuntimeClosed is returned when operating on a closed runtime.
	ErrRuntimeClosed = errors.New("compositor: runtime closed")

	// ErrDuplicateNodeType is returned when a key is registered twice.
	ErrDuplicateNodeType = errors.New("compositor: duplicate node type")

	// ErrTooManyChannels is returned when an instance would own more than
	// MaxChannels textures or framebuffers.
	ErrTooManyChannels = errors.New("compositor: too many channels")

	// ErrIncompleteFramebuffer is returned when drawing into a framebuffer
	// with missing or mismatched attachments.
	ErrIncompleteFramebuffer = errors.New("compositor: framebuffer incomplete")

	// ErrNoProvider is returned when a device provider does not expose HAL
	// device and queue.
	ErrNoProvider = errors.New("compositor: provider does not expose HAL types")
)
