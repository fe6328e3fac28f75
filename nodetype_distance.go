// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"

	"github.com/gogpu/compositor/internal/descriptor"
	"github.com/gogpu/compositor/internal/gpu"
)

// Distance transform parameters.
const (
	// MaxDistProperty is the integer search radius of the distance type.
	MaxDistProperty = "maxdist"

	// DistanceIterations is the number of propagation passes after the
	// seed pass.
	DistanceIterations = 255

	defaultMaxDist = 255
)

// distanceType ping-pongs between two targets: a seed pass converts the
// input into a distance field, then each iteration narrows the sampling
// step by iter = (255-i)/255.
type distanceType struct {
	baseType
}

func newDistanceType(prog *gpu.Program) (*distanceType, error) {
	for _, m := range []struct {
		name string
		typ  gpu.MemberType
	}{{"iter", gpu.MemberFloat}, {"seed", gpu.MemberInt}, {MaxDistProperty, gpu.MemberInt}} {
		if got, ok := prog.Uniform().Member(m.name); !ok || got.Type != m.typ {
			return nil, fmt.Errorf("%s: distance shader needs %s member %q", prog.Label(), m.typ, m.name)
		}
	}
	if len(prog.Textures()) != 1 {
		return nil, fmt.Errorf("%s: distance shader needs one texture input, has %d", prog.Label(), len(prog.Textures()))
	}

	md, _ := prog.Uniform().Member(MaxDistProperty)
	maxdist, err := NewProperty(PropertyInt, nil, int(md.Offset))
	if err != nil {
		return nil, err
	}
	if err := maxdist.SetInt(defaultMaxDist); err != nil {
		return nil, err
	}
	in := prog.Textures()[0]
	return &distanceType{baseType{
		name:     "Distance",
		program:  prog,
		inputs:   []Pin{{Name: in.Name, Location: int(in.Binding)}},
		outputs:  []Pin{{Name: descriptor.DefaultOutput, Location: 0}},
		defaults: map[string]*Property{MaxDistProperty: maxdist},
	}}, nil
}

func (t *distanceType) Kind() Kind { return KindDistance }

// allocFramebuffers creates the front and back framebuffers.
func (t *distanceType) allocFramebuffers(n *Instance) error {
	for range 2 {
		if _, err := n.addFramebuffer(); err != nil {
			return err
		}
	}
	return nil
}

// allocRenderTargets attaches texture i to framebuffer i.
func (t *distanceType) allocRenderTargets(n *Instance) error {
	for i, fb := range n.framebuffers {
		tex, err := n.newTarget(i)
		if err != nil {
			return err
		}
		fb.attach(0, tex)
		checkComplete(n, fb)
	}
	return nil
}

// compute seeds framebuffer 1 from the bound input, then runs the
// iterations. Iteration i writes framebuffer i%2 from the other texture,
// so the last one (254) leaves the result in channel 0.
func (t *distanceType) compute(n *Instance) error {
	prog := t.program
	if err := n.applyProperties(prog); err != nil {
		return err
	}
	rt := n.rt
	rt.useProgram(prog)
	defer rt.bindFramebuffer(nil)

	if err := prog.SetInt("seed", 1); err != nil {
		return err
	}
	if err := prog.SetFloat("iter", 1); err != nil {
		return err
	}
	rt.bindFramebuffer(n.framebuffers[1])
	if err := rt.draw(n.String() + "_seed"); err != nil {
		return err
	}

	if err := prog.SetInt("seed", 0); err != nil {
		return err
	}
	for i := range DistanceIterations {
		rt.bindFramebuffer(n.framebuffers[i%2])
		rt.bindTexture(0, n.textures.at((i+1)%2).View())
		if err := prog.SetFloat("iter", float32(DistanceIterations-i)/DistanceIterations); err != nil {
			return err
		}
		if err := rt.draw(fmt.Sprintf("%s_iter%d", n, i)); err != nil {
			return err
		}
	}
	return nil
}
