// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// backendNames maps -backend values to HAL variants. The software
// rasterizer registers as the empty variant.
var backendNames = map[string]gputypes.Backend{
	"vulkan":   gputypes.BackendVulkan,
	"metal":    gputypes.BackendMetal,
	"dx12":     gputypes.BackendDX12,
	"gl":       gputypes.BackendGL,
	"software": gputypes.BackendEmpty,
}

// gpuDevice is an opened headless device and the instance that owns it.
type gpuDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  gputypes.AdapterInfo
}

func (d *gpuDevice) close() {
	d.device.Destroy()
	d.instance.Destroy()
}

func selectBackend(name string) (hal.Backend, error) {
	name = strings.ToLower(name)
	if name == "" || name == "auto" {
		return hal.SelectBestBackend()
	}
	variant, ok := backendNames[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	b, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("backend %s not available on this platform", name)
	}
	return b, nil
}

// openDevice opens the first adapter of the named backend.
func openDevice(backend string) (*gpuDevice, error) {
	b, err := selectBackend(backend)
	if err != nil {
		return nil, err
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Backends: gputypes.BackendsAll})
	if err != nil {
		return nil, fmt.Errorf("%s: create instance: %w", b.Variant(), err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%s: no adapters", b.Variant())
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%s: open device: %w", b.Variant(), err)
	}
	return &gpuDevice{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		adapter:  adapters[0].Info,
	}, nil
}

// listBackends prints the backends registered in this build.
func listBackends(w io.Writer) {
	variants := hal.AvailableBackends()
	slices.Sort(variants)
	for _, v := range variants {
		fmt.Fprintln(w, v)
	}
}
