// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"errors"
	"fmt"
)

// Connection is one end of an edge: an instance and a pin on it. In an
// input slot it names the source and its output pin; in an output list it
// names the destination and its input pin. The zero value is unconnected.
// Connections do not own the instances they point at.
type Connection struct {
	Node *Instance
	Pin  int
}

// Connected reports whether c points at an instance.
func (c Connection) Connected() bool { return c.Node != nil }

// live reports whether the destination slot named by c still points back
// at src.
func (c Connection) live(src *Instance) bool {
	if c.Node == nil || c.Node.released || c.Pin < 0 || c.Pin >= len(c.Node.inputs) {
		return false
	}
	return c.Node.inputs[c.Pin].Node == src
}

// Connect feeds output pin srcOutput of src into input pin dstInput of dst.
// An occupied input slot is replaced; the previous source keeps its output
// entry, which Dependents then reports as dead. dst and everything
// downstream of it become dirty.
func Connect(src, dst *Instance, srcOutput, dstInput int) error {
	if src == nil || dst == nil {
		return errors.New("compositor: connect nil instance")
	}
	if src.released || dst.released {
		return ErrReleased
	}
	if src.rt != dst.rt {
		return ErrForeignInstance
	}
	if srcOutput < 0 || srcOutput >= len(src.outputs) {
		return fmt.Errorf("%w: %s has %d outputs, got %d", ErrPinOutOfRange, src, len(src.outputs), srcOutput)
	}
	if dstInput < 0 || dstInput >= len(dst.inputs) {
		return fmt.Errorf("%w: %s has %d inputs, got %d", ErrPinOutOfRange, dst, len(dst.inputs), dstInput)
	}

	if prev := dst.inputs[dstInput]; prev.Node != nil && prev.Node != src {
		Logger().Debug("compositor: input replaced",
			"instance", dst.id, "pin", dstInput, "previous", prev.Node.id)
	}
	src.outputs[srcOutput] = append(src.outputs[srcOutput], Connection{Node: dst, Pin: dstInput})
	dst.inputs[dstInput] = Connection{Node: src, Pin: srcOutput}
	dst.MarkDirty()

	Logger().Debug("compositor: connected",
		"src", src.id, "output", srcOutput, "dst", dst.id, "input", dstInput)
	return nil
}

// Disconnect empties input slot dstInput of dst and marks dst dirty. The
// source's output entry is kept, as with a replaced connection.
func Disconnect(dst *Instance, dstInput int) error {
	if dst == nil {
		return errors.New("compositor: disconnect nil instance")
	}
	if dst.released {
		return ErrReleased
	}
	if dstInput < 0 || dstInput >= len(dst.inputs) {
		return fmt.Errorf("%w: %s has %d inputs, got %d", ErrPinOutOfRange, dst, len(dst.inputs), dstInput)
	}
	dst.inputs[dstInput] = Connection{}
	dst.MarkDirty()
	return nil
}
