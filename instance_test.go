// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/compositor/internal/gpu/gputest"
)

// passthroughTexture is the binding of the passthrough shader's input.
const passthroughTexture = 1

func TestInstanceSlotCounts(t *testing.T) {
	rt, _ := newTestRuntime(t)
	for _, key := range rt.Library().Keys() {
		t.Run(key, func(t *testing.T) {
			n := newTestInstance(t, rt, key, 8, 8)
			typ := n.Type()
			if got, want := len(n.Inputs()), len(typ.Inputs()); got != want {
				t.Errorf("input slots = %d, want %d", got, want)
			}
			if got, want := len(n.outputs), len(typ.Outputs()); got != want {
				t.Errorf("output lists = %d, want %d", got, want)
			}
			if !n.Dirty() {
				t.Error("new instance should be dirty")
			}
		})
	}
}

func TestConnectReplaceLeavesStaleOutput(t *testing.T) {
	rt, _ := newTestRuntime(t)
	a := newTestInstance(t, rt, PassthroughKey, 8, 8)
	b := newTestInstance(t, rt, PassthroughKey, 8, 8)
	dst := newTestInstance(t, rt, PassthroughKey, 8, 8)

	if err := Connect(a, dst, 0, 0); err != nil {
		t.Fatalf("Connect a: %v", err)
	}
	if got := dst.Inputs()[0]; got.Node != a || got.Pin != 0 {
		t.Fatalf("slot 0 = %+v, want (a, 0)", got)
	}
	if err := Connect(b, dst, 0, 0); err != nil {
		t.Fatalf("Connect b: %v", err)
	}
	if got := dst.Inputs()[0]; got.Node != b {
		t.Errorf("slot 0 source = %v, want b", got.Node)
	}

	// a keeps its output entry although dst no longer reads from it.
	stale := a.Outputs(0)
	if len(stale) != 1 || stale[0].Node != dst || stale[0].Pin != 0 {
		t.Errorf("a.Outputs(0) = %+v, want the stale (dst, 0) entry", stale)
	}
	if deps := a.Dependents(); len(deps) != 0 {
		t.Errorf("a.Dependents() = %+v, want none", deps)
	}
	if deps := b.Dependents(); len(deps) != 1 || deps[0].Node != dst {
		t.Errorf("b.Dependents() = %+v, want [(dst, 0)]", deps)
	}
}

func TestConnectValidation(t *testing.T) {
	rt, _ := newTestRuntime(t)
	src := newTestInstance(t, rt, TextureKey, 8, 8)
	dst := newTestInstance(t, rt, PassthroughKey, 8, 8)

	tests := []struct {
		name    string
		src     *Instance
		dst     *Instance
		o, i    int
		wantErr error
	}{
		{"output out of range", src, dst, 1, 0, ErrPinOutOfRange},
		{"negative input", src, dst, 0, -1, ErrPinOutOfRange},
		{"texture has no inputs", dst, src, 0, 0, ErrPinOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Connect(tt.src, tt.dst, tt.o, tt.i); !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	other, _ := newTestRuntime(t)
	foreign := newTestInstance(t, other, PassthroughKey, 8, 8)
	if err := Connect(src, foreign, 0, 0); !errors.Is(err, ErrForeignInstance) {
		t.Errorf("cross-runtime Connect error = %v, want ErrForeignInstance", err)
	}
}

func TestComputeTextureToPassthrough(t *testing.T) {
	rt, rec := newTestRuntime(t)
	tex := newTestInstance(t, rt, TextureKey, 8, 8)
	if err := tex.SetPropertyText(SourceProperty, writeTestPNG(t, 4, 3)); err != nil {
		t.Fatalf("SetPropertyText: %v", err)
	}
	pass := newTestInstance(t, rt, PassthroughKey, 4, 3)
	if err := Connect(tex, pass, 0, 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	rec.Reset()

	if err := pass.Compute(); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if tex.Dirty() || pass.Dirty() {
		t.Errorf("dirty after compute: texture=%v passthrough=%v", tex.Dirty(), pass.Dirty())
	}
	if w, h := tex.Size(); w != 4 || h != 3 {
		t.Errorf("texture size = %dx%d, want the image size 4x3", w, h)
	}

	// The upstream reload happened first: the pass samples the new texture.
	if len(rec.WriteTextures) != 1 {
		t.Fatalf("texture uploads = %d, want 1", len(rec.WriteTextures))
	}
	if len(rec.Passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(rec.Passes))
	}
	p := rec.Passes[0]
	if got, want := p.BindGroup.TextureView(passthroughTexture), gputest.Handle(tex.Texture(0)); got != want {
		t.Errorf("pass samples view %d, want reloaded texture %d", got, want)
	}
	if got, want := p.Attachments[0], gputest.Handle(pass.Texture(0)); got != want {
		t.Errorf("pass writes view %d, want %d", got, want)
	}
	if p.Draws != 1 || p.Viewport != [4]float32{0, 0, 4, 3} {
		t.Errorf("draws=%d viewport=%v, want 1 [0 0 4 3]", p.Draws, p.Viewport)
	}
}

func TestComputeCleanInstanceStillRuns(t *testing.T) {
	rt, rec := newTestRuntime(t)
	tex := newTestInstance(t, rt, TextureKey, 8, 8)
	pass := newTestInstance(t, rt, PassthroughKey, 8, 8)
	if err := Connect(tex, pass, 0, 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := pass.Compute(); err != nil {
		t.Fatalf("first Compute: %v", err)
	}
	rec.Reset()

	if err := pass.Compute(); err != nil {
		t.Fatalf("second Compute: %v", err)
	}
	if len(rec.WriteTextures) != 0 {
		t.Errorf("clean upstream was recomputed (%d uploads)", len(rec.WriteTextures))
	}
	if len(rec.Passes) != 1 {
		t.Errorf("passes = %d, want the instance's own pass", len(rec.Passes))
	}
}

func TestComputeUnconnectedInputUsesPlaceholder(t *testing.T) {
	rt, rec := newTestRuntime(t)
	pass := newTestInstance(t, rt, PassthroughKey, 8, 8)
	rec.Reset()
	if err := pass.Compute(); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got, want := rec.Passes[0].BindGroup.TextureView(passthroughTexture), gputest.Handle(rt.renderer.Placeholder()); got != want {
		t.Errorf("unconnected input bound to %d, want placeholder %d", got, want)
	}
}

func TestComputeCycle(t *testing.T) {
	rt, _ := newTestRuntime(t)
	a := newTestInstance(t, rt, PassthroughKey, 8, 8)
	b := newTestInstance(t, rt, PassthroughKey, 8, 8)
	if err := Connect(a, b, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := Connect(b, a, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Compute(); !errors.Is(err, ErrCycle) {
		t.Fatalf("Compute error = %v, want ErrCycle", err)
	}
	if a.computing || b.computing {
		t.Error("computing flag left set after error")
	}
}

func TestComputeDepthBound(t *testing.T) {
	rt, _ := newTestRuntime(t, WithMaxDepth(2))
	chain := make([]*Instance, 4)
	for i := range chain {
		chain[i] = newTestInstance(t, rt, PassthroughKey, 4, 4)
		if i > 0 {
			if err := Connect(chain[i-1], chain[i], 0, 0); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := chain[3].Compute(); !errors.Is(err, ErrGraphTooDeep) {
		t.Fatalf("Compute error = %v, want ErrGraphTooDeep", err)
	}
	if err := chain[1].Compute(); err != nil {
		t.Errorf("Compute within bound: %v", err)
	}
}

func TestMutationsRearmDirty(t *testing.T) {
	rt, _ := newTestRuntime(t)
	tex := newTestInstance(t, rt, TextureKey, 8, 8)
	pass := newTestInstance(t, rt, PassthroughKey, 8, 8)
	tail := newTestInstance(t, rt, PassthroughKey, 8, 8)
	if err := Connect(tex, pass, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := Connect(pass, tail, 0, 0); err != nil {
		t.Fatal(err)
	}
	compute := func() {
		t.Helper()
		if err := tail.Compute(); err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if tex.Dirty() || pass.Dirty() || tail.Dirty() {
			t.Fatal("graph not clean after compute")
		}
	}

	compute()
	if err := tex.SetPropertyText(SourceProperty, "other.png"); err != nil {
		t.Fatal(err)
	}
	if !tex.Dirty() || !pass.Dirty() || !tail.Dirty() {
		t.Errorf("SetProperty did not dirty downstream: %v %v %v", tex.Dirty(), pass.Dirty(), tail.Dirty())
	}

	compute()
	if err := Disconnect(tail, 0); err != nil {
		t.Fatal(err)
	}
	if !tail.Dirty() || pass.Dirty() {
		t.Errorf("Disconnect dirtied tail=%v pass=%v, want true false", tail.Dirty(), pass.Dirty())
	}
	if tail.Inputs()[0].Connected() {
		t.Error("slot still connected after Disconnect")
	}
}

func TestStaleEdgeDoesNotPropagateDirty(t *testing.T) {
	rt, _ := newTestRuntime(t)
	a := newTestInstance(t, rt, PassthroughKey, 8, 8)
	b := newTestInstance(t, rt, PassthroughKey, 8, 8)
	dst := newTestInstance(t, rt, PassthroughKey, 8, 8)
	_ = Connect(a, dst, 0, 0)
	_ = Connect(b, dst, 0, 0)
	if err := dst.Compute(); err != nil {
		t.Fatal(err)
	}
	a.MarkDirty()
	if dst.Dirty() {
		t.Error("dirty propagated through a replaced connection")
	}
}

func TestSetPropertyErrors(t *testing.T) {
	rt, _ := newTestRuntime(t)
	n := newTestInstance(t, rt, DistanceKey, 8, 8)
	if err := n.SetProperty("missing", []byte{1, 2, 3, 4}); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("unknown property error = %v, want ErrUnknownProperty", err)
	}
	if err := n.SetProperty(MaxDistProperty, []byte{1}); !errors.Is(err, ErrShortValue) {
		t.Errorf("short value error = %v, want ErrShortValue", err)
	}
	p, _ := n.Property(MaxDistProperty)
	_ = p.SetInt(1)
	if q, _ := n.Property(MaxDistProperty); q.Int() != defaultMaxDist {
		t.Error("Property() returned a live reference")
	}
}

func TestClearUsesDebugTint(t *testing.T) {
	rt, rec := newTestRuntime(t)
	n := newTestInstance(t, rt, PassthroughKey, 8, 8)
	rec.Reset()
	if err := n.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(rec.Passes) != 1 || rec.Passes[0].ClearValue != debugTint {
		t.Fatalf("passes = %+v, want one pass cleared to %v", rec.Passes, debugTint)
	}
	if rec.Passes[0].Draws != 0 {
		t.Error("Clear should not draw")
	}
}

func TestDebugDraw(t *testing.T) {
	rt, rec := newTestRuntime(t)
	n := newTestInstance(t, rt, PassthroughKey, 8, 8)
	target, err := rt.renderer.NewTarget("screen", 32, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()
	rec.Reset()

	if err := n.DebugDraw(target.View(), 32, 16, 0); err != nil {
		t.Fatalf("DebugDraw: %v", err)
	}
	p := rec.Passes[0]
	if p.Attachments[0] != gputest.Handle(target.View()) {
		t.Error("preview not drawn into the target")
	}
	if got, want := p.BindGroup.TextureView(1), gputest.Handle(n.Texture(0)); got != want {
		t.Errorf("preview samples %d, want channel 0 view %d", got, want)
	}
	if p.Viewport != [4]float32{0, 0, 32, 16} {
		t.Errorf("viewport = %v, want [0 0 32 16]", p.Viewport)
	}
	if err := n.DebugDraw(target.View(), 32, 16, 3); !errors.Is(err, ErrChannelOutOfRange) {
		t.Errorf("bad channel error = %v, want ErrChannelOutOfRange", err)
	}
}

func TestSnapshot(t *testing.T) {
	rt, _ := newTestRuntime(t)
	n := newTestInstance(t, rt, PassthroughKey, 5, 3)
	if err := n.Compute(); err != nil {
		t.Fatal(err)
	}
	img, err := n.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 3 {
		t.Errorf("snapshot bounds = %v, want 5x3", b)
	}
	if _, err := n.Snapshot(1); !errors.Is(err, ErrChannelOutOfRange) {
		t.Errorf("bad channel error = %v, want ErrChannelOutOfRange", err)
	}
}

func TestReleaseFreesInstance(t *testing.T) {
	rt, rec := newTestRuntime(t)
	before := rec.LiveTextures()
	src := newTestInstance(t, rt, PassthroughKey, 8, 8)
	dst := newTestInstance(t, rt, PassthroughKey, 8, 8)
	_ = Connect(src, dst, 0, 0)

	src.Release()
	src.Release()
	if w, h := src.Size(); w != 0 || h != 0 || src.Channels() != 0 || len(src.PropertyNames()) != 0 {
		t.Errorf("released instance not empty: %dx%d, %d channels", w, h, src.Channels())
	}
	if rec.LiveTextures() != before+1 {
		t.Errorf("live textures = %d, want %d", rec.LiveTextures(), before+1)
	}
	if err := src.Compute(); !errors.Is(err, ErrReleased) {
		t.Errorf("Compute after Release error = %v, want ErrReleased", err)
	}

	// dst now samples the placeholder.
	rec.Reset()
	if err := dst.Compute(); err != nil {
		t.Fatalf("Compute downstream of released: %v", err)
	}
	if got := rec.Passes[0].BindGroup.TextureView(passthroughTexture); got != gputest.Handle(rt.renderer.Placeholder()) {
		t.Errorf("downstream of released samples %d, want placeholder", got)
	}
}

func TestComputeLogsNode(t *testing.T) {
	buf := captureLogs(t, 0)
	rt, _ := newTestRuntime(t)
	n := newTestInstance(t, rt, PassthroughKey, 8, 8)
	if err := n.Compute(); err != nil {
		t.Fatal(err)
	}
	line := bytes.Split(buf.Bytes(), []byte("compositor: node computed"))
	if len(line) != 2 || !strings.Contains(string(line[1]), "passes=1") {
		t.Errorf("missing compute log with passes=1:\n%s", buf.String())
	}
}
