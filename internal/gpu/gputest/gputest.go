// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gputest provides a noop HAL device for tests and a recording
// wrapper that captures render passes, bind groups and queue writes.
package gputest

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// NewNoopDevice opens a device on the noop backend. The device and instance
// are destroyed when the test finishes.
func NewNoopDevice(t testing.TB) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("noop backend exposed no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// NewRecorder opens a noop device and wraps it in a Recorder.
func NewRecorder(t testing.TB) *Recorder {
	t.Helper()
	device, queue := NewNoopDevice(t)
	return Wrap(device, queue)
}
