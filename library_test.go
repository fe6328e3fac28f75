// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"errors"
	"io/fs"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gogpu/compositor/internal/descriptor"
	"github.com/gogpu/compositor/internal/gpu/gputest"
)

const blurShader = `
struct Params {
    gain: f32,
    tint: vec4<f32>,
    count: u32,
}

struct Out {
    @location(0) color: vec4<f32>,
    @location(1) mask: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var smp: sampler;
@group(0) @binding(2) var a: texture_2d<f32>;
@group(0) @binding(3) var b: texture_2d<f32>;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> Out {
    var o: Out;
    let c = textureSample(a, smp, uv) + textureSample(b, smp, uv);
    o.color = c * params.gain * params.tint;
    o.mask = vec4<f32>(c.a);
    return o;
}
`

func testShaders() fstest.MapFS {
	return fstest.MapFS{
		"fx/blur.wgsl": {Data: []byte(blurShader)},
	}
}

func testNodes() fstest.MapFS {
	return fstest.MapFS{
		"blur.yaml": {Data: []byte(`
info:
  name: Blur
shader:
  fragment: fx/blur.wgsl
  outputs:
    - name: color
    - name: mask
properties:
  gain: 0.5
`)},
		"copy.yaml": {Data: []byte(`
info:
  name: Copy
shader: {vertex: shaders/quadbase.wgsl}
`)},
		"noinfo.yaml":   {Data: []byte("shader:\n  fragment: fx/blur.wgsl\n")},
		"noshader.yaml": {Data: []byte("info:\n  name: Nothing\n")},
		"broken.yaml":   {Data: []byte("info: [name\n")},
		"missing.yaml":  {Data: []byte("info: {name: Missing}\nshader: {fragment: fx/none.wgsl}\n")},
		"texture.yaml":  {Data: []byte("info: {name: Shadow}\nshader: {fragment: fx/blur.wgsl}\n")},
		"sub/skip.yaml": {Data: []byte("not: loaded\n")},
	}
}

func TestLibraryLoadsDescriptors(t *testing.T) {
	buf := captureLogs(t, 0)
	rt, _ := newTestRuntime(t, WithNodeFS(testNodes()), WithShaderFS(testShaders()))
	lib := rt.Library()

	want := []string{"blur", "copy", DistanceKey, PassthroughKey, TextureKey}
	if got := lib.Keys(); !slices.Equal(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	if lib.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", lib.Len(), len(want))
	}

	errs := lib.LoadErrors()
	if len(errs) != 5 {
		t.Fatalf("LoadErrors() = %d errors, want 5: %v", len(errs), errs)
	}
	checks := []struct {
		file   string
		target error
	}{
		{"broken.yaml", descriptor.ErrSyntax},
		{"missing.yaml", fs.ErrNotExist},
		{"noinfo.yaml", descriptor.ErrMissingInfo},
		{"noshader.yaml", descriptor.ErrMissingShader},
		{"texture.yaml", ErrDuplicateNodeType},
	}
	for i, c := range checks {
		if !strings.HasPrefix(errs[i].Error(), c.file+":") || !errors.Is(errs[i], c.target) {
			t.Errorf("LoadErrors()[%d] = %v, want %s wrapping %v", i, errs[i], c.file, c.target)
		}
	}
	if strings.Count(buf.String(), "node descriptor skipped") != 5 {
		t.Error("skipped descriptors were not each logged")
	}

	// The built-in texture type survives the colliding descriptor.
	if typ, _ := lib.Get(TextureKey); typ.Kind() != KindTexture {
		t.Errorf("texture key now holds %v", typ.Kind())
	}
}

func TestGenericTypeFromReflection(t *testing.T) {
	buf := captureLogs(t, 0)
	rt, _ := newTestRuntime(t, WithNodeFS(testNodes()), WithShaderFS(testShaders()))
	typ, ok := rt.Library().Get("blur")
	if !ok {
		t.Fatal("blur not registered")
	}
	if typ.Name() != "Blur" || typ.Kind() != KindGeneric {
		t.Errorf("Name/Kind = %s/%v, want Blur/generic", typ.Name(), typ.Kind())
	}
	if want := []Pin{{"a", 2}, {"b", 3}}; !pinsEqual(typ.Inputs(), want) {
		t.Errorf("Inputs() = %v, want %v", typ.Inputs(), want)
	}
	if want := []Pin{{"color", 0}, {"mask", 1}}; !pinsEqual(typ.Outputs(), want) {
		t.Errorf("Outputs() = %v, want %v", typ.Outputs(), want)
	}
	if got := typ.PropertyNames(); !slices.Equal(got, []string{"gain", "tint"}) {
		t.Errorf("PropertyNames() = %v, want [gain tint]", got)
	}
	if !strings.Contains(buf.String(), "member=count") {
		t.Error("unsupported u32 member was not logged")
	}

	defs := typ.Defaults()
	if gain := defs["gain"]; gain.Float() != 0.5 || gain.Location() != 0 {
		t.Errorf("gain = %v at %d, want 0.5 at 0", gain.Float(), gain.Location())
	}
	if tint := defs["tint"]; tint.Type() != PropertyVec4 || tint.Location() != 16 {
		t.Errorf("tint = %v at %d, want vec4 at 16", tint.Type(), tint.Location())
	}

	// Defaults are copies.
	_ = defs["gain"].SetFloat(9)
	if typ.Defaults()["gain"].Float() != 0.5 {
		t.Error("Defaults() exposed the type's own properties")
	}

	copyType, _ := rt.Library().Get("copy")
	if copyType.Name() != "Copy" || !pinsEqual(copyType.Outputs(), []Pin{{descriptor.DefaultOutput, 0}}) {
		t.Errorf("copy = %s %v, want Copy with the default output", copyType.Name(), copyType.Outputs())
	}
}

func TestGenericComputeUploadsProperties(t *testing.T) {
	rt, rec := newTestRuntime(t, WithNodeFS(testNodes()), WithShaderFS(testShaders()))
	n := newTestInstance(t, rt, "blur", 8, 8)
	if n.Channels() != 2 || n.Framebuffers() != 1 {
		t.Fatalf("channels=%d framebuffers=%d, want 2 and 1", n.Channels(), n.Framebuffers())
	}
	if err := n.SetPropertyText("gain", "0.75"); err != nil {
		t.Fatal(err)
	}
	if err := n.SetPropertyText("tint", "1 0 0 1"); err != nil {
		t.Fatal(err)
	}
	rec.Reset()
	if err := n.Compute(); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(rec.Passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(rec.Passes))
	}
	p := rec.Passes[0]
	if len(p.Attachments) != 2 {
		t.Errorf("attachments = %d, want 2", len(p.Attachments))
	}
	u := p.Uniforms[0]
	if uniformF32(u, 0) != 0.75 {
		t.Errorf("gain uniform = %v, want 0.75", uniformF32(u, 0))
	}
	if uniformF32(u, 16) != 1 || uniformF32(u, 20) != 0 || uniformF32(u, 28) != 1 {
		t.Errorf("tint uniform = %v", u[16:32])
	}
}

// failingFS refuses to open one name.
type failingFS struct {
	fsys fstest.MapFS
	bad  string
}

func (f failingFS) Open(name string) (fs.File, error) {
	if name == f.bad {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return f.fsys.Open(name)
}

func TestLibraryRejectsOutOfRangeIntDefault(t *testing.T) {
	nodes := fstest.MapFS{
		"far.yaml": {Data: []byte("info: {name: Far}\nshader:\n  fragment: shaders/distance.wgsl\nproperties:\n  maxdist: 1e12\n")},
		"near.yaml": {Data: []byte("info: {name: Near}\nshader:\n  fragment: shaders/distance.wgsl\nproperties:\n  maxdist: 12\n")},
	}
	rt, _ := newTestRuntime(t, WithNodeFS(nodes))
	lib := rt.Library()

	if lib.Has("far") {
		t.Error("descriptor with an out-of-range i32 default was registered")
	}
	errs := lib.LoadErrors()
	if len(errs) != 1 || !errors.Is(errs[0], ErrTypeMismatch) {
		t.Fatalf("LoadErrors() = %v, want one ErrTypeMismatch", errs)
	}
	near, ok := lib.Get("near")
	if !ok {
		t.Fatal("near not registered")
	}
	if got := near.Defaults()[MaxDistProperty].Int(); got != 12 {
		t.Errorf("near maxdist = %d, want 12", got)
	}
}

func TestLibraryUnreadableFailsNew(t *testing.T) {
	for _, bad := range []string{".", "blur.yaml"} {
		t.Run(bad, func(t *testing.T) {
			rec := gputest.NewRecorder(t)
			_, err := New(rec.Device, rec.Queue,
				WithNodeFS(failingFS{testNodes(), bad}), WithShaderFS(testShaders()))
			if !errors.Is(err, fs.ErrPermission) {
				t.Fatalf("New error = %v, want ErrPermission", err)
			}
			if rec.LiveTextures() != 0 || rec.LiveBuffers() != 0 {
				t.Errorf("failed New leaked textures=%d buffers=%d", rec.LiveTextures(), rec.LiveBuffers())
			}
		})
	}
}
