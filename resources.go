// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/internal/gpu"
)

// MaxChannels bounds the textures and framebuffers one instance may own.
const MaxChannels = 16

// renderTargets is the bounded set of textures owned by an instance.
// Channel i is targets[i].
type renderTargets struct {
	targets []*gpu.Target
}

func (s *renderTargets) add(t *gpu.Target) error {
	if len(s.targets) >= MaxChannels {
		return fmt.Errorf("%w: %d textures", ErrTooManyChannels, MaxChannels)
	}
	s.targets = append(s.targets, t)
	return nil
}

func (s *renderTargets) at(channel int) *gpu.Target {
	if channel < 0 || channel >= len(s.targets) {
		return nil
	}
	return s.targets[channel]
}

func (s *renderTargets) len() int { return len(s.targets) }

// release destroys every texture. The set is empty afterwards.
func (s *renderTargets) release() {
	for i := len(s.targets) - 1; i >= 0; i-- {
		s.targets[i].Destroy()
	}
	s.targets = nil
}

// framebuffer is a set of color attachment slots. A pass draws into every
// slot; the fragment shader's @location(n) output lands in slot n.
// Attachments are borrowed from the instance's renderTargets.
type framebuffer struct {
	label       string
	attachments []*gpu.Target
}

// attach puts t into slot, growing the active attachment set as needed.
func (f *framebuffer) attach(slot int, t *gpu.Target) {
	for len(f.attachments) <= slot {
		f.attachments = append(f.attachments, nil)
	}
	f.attachments[slot] = t
}

// detach empties every slot.
func (f *framebuffer) detach() { f.attachments = nil }

// complete reports why the framebuffer cannot be drawn into, or nil.
func (f *framebuffer) complete() error {
	if len(f.attachments) == 0 {
		return fmt.Errorf("%w: %s has no attachments", ErrIncompleteFramebuffer, f.label)
	}
	w0, h0 := uint32(0), uint32(0)
	for i, t := range f.attachments {
		if t == nil || t.View() == nil {
			return fmt.Errorf("%w: %s slot %d is empty", ErrIncompleteFramebuffer, f.label, i)
		}
		w, h := t.Size()
		if i == 0 {
			w0, h0 = w, h
			continue
		}
		if w != w0 || h != h0 {
			return fmt.Errorf("%w: %s slot %d is %dx%d, slot 0 is %dx%d",
				ErrIncompleteFramebuffer, f.label, i, w, h, w0, h0)
		}
	}
	return nil
}

func (f *framebuffer) views() []hal.TextureView {
	out := make([]hal.TextureView, len(f.attachments))
	for i, t := range f.attachments {
		out[i] = t.View()
	}
	return out
}

// checkComplete logs an incomplete framebuffer. Execution continues; draws
// into it fail with ErrIncompleteFramebuffer.
func checkComplete(n *Instance, f *framebuffer) {
	if err := f.complete(); err != nil {
		Logger().Error("compositor: framebuffer incomplete",
			"instance", n.id, "type", n.key, "err", err)
	}
}
