// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/engine/driver"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

var errNoBindings = errors.New("wgpu: draw binds no vertex attributes")

// frame is the command encoder of the frame being recorded and the host
// targets to read back when it ends.
type frame struct {
	encoder   hal.CommandEncoder
	readbacks map[handle.Handle]readback
	order     []handle.Handle
}

type readback struct {
	target render.PixelTarget
	mirror *mirror
}

// BeginFrame starts encoding a frame. A frame already begun is kept.
func (b *Backend) BeginFrame() error {
	device, _, err := b.ready()
	if err != nil {
		return err
	}
	if b.frame != nil {
		return nil
	}
	enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("frame"); err != nil {
		enc.Destroy()
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	b.frame = &frame{encoder: enc, readbacks: make(map[handle.Handle]readback)}
	return nil
}

// Execute encodes cmd as one render pass with one draw per subcommand.
// Outside a frame, the command is submitted on its own.
func (b *Backend) Execute(cmd *render.RenderCommand) (draws int, err error) {
	device, queue, err := b.ready()
	if err != nil {
		return 0, err
	}
	p, ok := cmd.Pipeline.(*Pipeline)
	if !ok || p.backend != b {
		return 0, fmt.Errorf("%w: pipeline %q", ErrForeignResource, cmd.Pipeline.Label())
	}

	if b.frame == nil {
		if err := b.BeginFrame(); err != nil {
			return 0, err
		}
		defer func() {
			err = errors.Join(err, b.EndFrame())
		}()
	}

	view, format, err := b.attachment(device, queue, cmd.Target)
	if err != nil {
		return 0, err
	}

	load, clearValue := gputypes.LoadOpLoad, gputypes.Color{}
	if cmd.Params.Clear != nil {
		load, clearValue = gputypes.LoadOpClear, *cmd.Params.Clear
	}
	pass := b.frame.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: p.Label(),
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearValue,
		}},
	})

	var errs error
	for i, sc := range cmd.SubCommands {
		if err := b.draw(pass, p, sc, cmd.Params, cmd.Target, format); err != nil {
			errs = errors.Join(errs, fmt.Errorf("subcommand %d: %w", i, err))
			continue
		}
		draws++
	}
	pass.End()

	b.stats.passes.Add(1)
	b.stats.draws.Add(uint64(draws)) //nolint:gosec // G115: counts are non-negative
	return draws, errs
}

// attachment returns the view cmd's target is rendered through.
func (b *Backend) attachment(device hal.Device, queue hal.Queue, t render.RenderTarget) (hal.TextureView, gputypes.TextureFormat, error) {
	switch t := t.(type) {
	case ViewTarget:
		return t.View(), t.Format(), nil
	case render.PixelTarget:
		if t.Format() != gputypes.TextureFormatRGBA8Unorm {
			return nil, 0, fmt.Errorf("%w: target %d has format %v", driver.ErrInvalidPixelFormat, t.Handle(), t.Format())
		}
		m, err := b.mirrorFor(device, t)
		if err != nil {
			return nil, 0, err
		}
		if _, seen := b.frame.readbacks[t.Handle()]; !seen {
			if err := uploadPixels(queue, m, t); err != nil {
				return nil, 0, err
			}
			b.frame.readbacks[t.Handle()] = readback{target: t, mirror: m}
			b.frame.order = append(b.frame.order, t.Handle())
		}
		return m.view, gputypes.TextureFormatRGBA8Unorm, nil
	}
	return nil, 0, fmt.Errorf("%w: %T", ErrUnsupportedTarget, t)
}

// uploadPixels copies the host pixels into the mirror, so draws load
// what the host drew before.
func uploadPixels(queue hal.Queue, m *mirror, t render.PixelTarget) error {
	w, h := uint32(m.width), uint32(m.height) //nolint:gosec // G115: sizes are non-negative
	err := queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: m.raw, Aspect: gputypes.TextureAspectAll},
		t.Pixels(),
		&hal.ImageDataLayout{BytesPerRow: uint32(t.Stride()), RowsPerImage: h}, //nolint:gosec // G115: stride is non-negative
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("wgpu: upload target %d: %w", t.Handle(), err)
	}
	return nil
}

// draw encodes one subcommand. Every input is validated before anything
// is recorded into the pass.
func (b *Backend) draw(pass hal.RenderPassEncoder, p *Pipeline, sc render.RenderSubCommand, base render.Parameters, target render.RenderTarget, format gputypes.TextureFormat) error {
	attrs := sc.Attributes
	if !attrs.Valid() {
		return errNoBindings
	}

	slots := attrs.Slots()
	raws := make([]hal.Buffer, len(slots))
	for i, s := range slots {
		hw, ok := s.Buffer.(*Buffer)
		if !ok || hw.backend != b {
			return fmt.Errorf("%w: vertex slot %d", ErrForeignResource, i)
		}
		raws[i] = hw.Raw()
	}
	var index hal.Buffer
	if attrs.Indexed() {
		switch attrs.Index.Format {
		case gputypes.IndexFormatUint16, gputypes.IndexFormatUint32:
		default:
			return fmt.Errorf("%w: %v", ErrUnsupportedIndexType, attrs.Index.Format)
		}
		hw, ok := attrs.Index.Buffer.(*Buffer)
		if !ok || hw.backend != b {
			return fmt.Errorf("%w: index buffer", ErrForeignResource)
		}
		index = hw.Raw()
	}

	rp, err := p.variant(attrs, sc.Method.Topology(), format)
	if err != nil {
		return err
	}

	params := base.Merge(sc.Params)
	pass.SetPipeline(rp)
	vp := render.FullViewport(target.Width(), target.Height())
	if params.Viewport != nil {
		vp = *params.Viewport
	}
	pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	if s := params.Scissor; s != nil {
		pass.SetScissorRect(s.X, s.Y, s.Width, s.Height)
	} else {
		pass.SetScissorRect(0, 0, uint32(target.Width()), uint32(target.Height())) //nolint:gosec // G115: sizes are non-negative
	}
	if params.BlendConstant != nil {
		pass.SetBlendConstant(params.BlendConstant)
	}
	for i, s := range slots {
		pass.SetVertexBuffer(uint32(i), raws[i], s.Offset) //nolint:gosec // G115: slot count is small
	}

	instances := params.InstanceCount()
	if index != nil {
		pass.SetIndexBuffer(index, attrs.Index.Format, attrs.Index.Offset)
		pass.DrawIndexed(attrs.Count, instances, attrs.First, 0, 0)
		return nil
	}
	pass.Draw(attrs.Count, instances, attrs.First, 0)
	return nil
}

// EndFrame submits the frame, waits for it and copies mirrored host
// targets back.
func (b *Backend) EndFrame() error {
	device, queue, err := b.ready()
	if err != nil {
		return err
	}
	f := b.frame
	if f == nil {
		return nil
	}
	b.frame = nil
	defer f.encoder.Destroy()

	for _, h := range f.order {
		m := f.readbacks[h].mirror
		f.encoder.CopyTextureToBuffer(m.raw, m.staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{BytesPerRow: m.rowPitch, RowsPerImage: uint32(m.height)}, //nolint:gosec // G115: sizes are non-negative
			TextureBase:  hal.ImageCopyTexture{Texture: m.raw, Aspect: gputypes.TextureAspectAll},
			Size:         hal.Extent3D{Width: uint32(m.width), Height: uint32(m.height), DepthOrArrayLayers: 1}, //nolint:gosec // G115: sizes are non-negative
		}})
	}

	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	if _, err := queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	b.stats.submits.Add(1)
	if err := device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait: %w", err)
	}
	b.destroyRetired(device)

	var errs error
	for _, h := range f.order {
		rb := f.readbacks[h]
		errs = errors.Join(errs, readPixels(device, rb.mirror, rb.target))
	}
	return errs
}

// readPixels copies the mirror's staging buffer into the host target.
func readPixels(device hal.Device, m *mirror, t render.PixelTarget) error {
	size := uint64(m.rowPitch) * uint64(m.height) //nolint:gosec // G115: sizes are non-negative
	mapping, err := device.MapBuffer(m.staging, 0, size)
	if err != nil {
		return fmt.Errorf("wgpu: map readback of target %d: %w", t.Handle(), err)
	}
	defer func() { _ = device.UnmapBuffer(m.staging) }()

	if t.Width() != m.width || t.Height() != m.height {
		return nil
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)
	dst, stride, row := t.Pixels(), t.Stride(), m.width*4
	for y := range m.height {
		so := y * int(m.rowPitch)
		copy(dst[y*stride:y*stride+row], src[so:so+row])
	}
	return nil
}
