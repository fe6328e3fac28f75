// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import "strconv"

// Unassigned is the location of a pin or property not bound to the shader.
const Unassigned = -1

// Pin is a named input or output slot of a node type. For inputs Location
// is the texture binding in the shader; for outputs it is the color
// attachment index.
type Pin struct {
	Name     string
	Location int
}

// Assigned reports whether the pin is bound to a shader location.
func (p Pin) Assigned() bool { return p.Location != Unassigned }

func (p Pin) String() string {
	if !p.Assigned() {
		return p.Name
	}
	return p.Name + "@" + strconv.Itoa(p.Location)
}
