// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"github.com/gogpu/compositor/internal/descriptor"
	"github.com/gogpu/compositor/internal/image"
)

// SourceProperty is the file path property of the texture type.
const SourceProperty = "source"

// textureType is a leaf producer: its single output holds a decoded image
// file. Compute reloads the file.
type textureType struct {
	baseType
}

func newTextureType(source string) (*textureType, error) {
	src, err := NewProperty(PropertyString, []byte(source), Unassigned)
	if err != nil {
		return nil, err
	}
	return &textureType{baseType{
		name:     "Texture",
		outputs:  []Pin{{Name: descriptor.DefaultOutput, Location: 0}},
		defaults: map[string]*Property{SourceProperty: src},
	}}, nil
}

func (t *textureType) Kind() Kind { return KindTexture }

// allocRenderTargets decodes the source file, flipped to texture row order,
// and resizes the instance to the image. When decoding fails the texture is
// left blank at the last-known size.
func (t *textureType) allocRenderTargets(n *Instance) error {
	path := n.props[SourceProperty].Text()
	buf, decodeErr := image.LoadFlipped(path)
	var pixels []byte
	if decodeErr != nil {
		Logger().Warn("compositor: texture decode failed, using blank texture",
			"instance", n.id, "source", path,
			"width", n.width, "height", n.height, "err", decodeErr)
	} else {
		n.width, n.height = buf.Width(), buf.Height()
		pixels = buf.Data()
	}

	tex, err := n.newTarget(0)
	if err != nil {
		return err
	}
	if err := tex.Upload(n.rt.renderer.Queue(), pixels); err != nil {
		return err
	}
	fb := n.framebuffers[0]
	fb.attach(0, tex)
	checkComplete(n, fb)
	return nil
}

// compute discards the loaded texture and loads the source again.
func (t *textureType) compute(n *Instance) error {
	if err := n.rt.renderer.Wait(); err != nil {
		return err
	}
	n.releaseTargets()
	return t.allocRenderTargets(n)
}
