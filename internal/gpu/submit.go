// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

type pendingSubmit struct {
	index  uint64
	cmd    hal.CommandBuffer
	groups []hal.BindGroup
}

// submitter hands command buffers to the queue and keeps them, with the
// bind groups they reference, alive until the GPU reports completion.
type submitter struct {
	device  hal.Device
	queue   hal.Queue
	pending []pendingSubmit
}

func (s *submitter) submit(cmd hal.CommandBuffer, groups ...hal.BindGroup) error {
	index, err := s.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		s.device.FreeCommandBuffer(cmd)
		for _, g := range groups {
			s.device.DestroyBindGroup(g)
		}
		return fmt.Errorf("submit: %w", err)
	}
	s.pending = append(s.pending, pendingSubmit{index: index, cmd: cmd, groups: groups})
	s.reclaim(s.queue.PollCompleted())
	return nil
}

// reclaim frees every submission at or below completed.
func (s *submitter) reclaim(completed uint64) {
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.index > completed {
			kept = append(kept, p)
			continue
		}
		s.release(p)
	}
	clear(s.pending[len(kept):])
	s.pending = kept
}

func (s *submitter) release(p pendingSubmit) {
	for _, g := range p.groups {
		s.device.DestroyBindGroup(g)
	}
	s.device.FreeCommandBuffer(p.cmd)
}

// wait blocks until the device is idle and frees all pending submissions.
func (s *submitter) wait() error {
	if err := s.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	for _, p := range s.pending {
		s.release(p)
	}
	clear(s.pending)
	s.pending = s.pending[:0]
	return nil
}

// inFlight reports the number of submissions not yet reclaimed.
func (s *submitter) inFlight() int { return len(s.pending) }
