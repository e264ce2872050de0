// Copyright (c) 2025 Cubyte.online under the AGPL License

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tomas-mraz/vulkan-hybrid/accel"
	"github.com/tomas-mraz/vulkan-hybrid/binding"
	"github.com/tomas-mraz/vulkan-hybrid/camera"
	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Host buffers owned by every slot.
const (
	SlotCamera = iota
	SlotFrame
	SlotBlur
)

// uniformSize is the size of the small scalar uniform blocks.
const uniformSize = 16

// Refitter re-fits a top-level structure from new transforms.
type Refitter interface {
	Refit(cb gpu.CmdBuffer, slot int, transforms []accel.Transform) error
}

// Program records the hybrid frame: primary trace, ambient occlusion
// trace, then a two-subpass composition pass and the history blit.
//
// Sets with one descriptor set are static; sets with one per slot
// reference the host buffers of that slot.
type Program struct {
	Accel Refitter

	Primary     gpu.Pipeline
	PrimarySets *binding.Set
	HitSets     *binding.Set

	AO     gpu.Pipeline
	AOSets *binding.Set

	Pass         gpu.RenderPass
	Blur         gpu.Pipeline
	BlurSets     *binding.Set
	Temporal     gpu.Pipeline
	TemporalSets *binding.Set

	// Quad is a screen-space quad of QuadCount indices.
	QuadVerts gpu.Buffer
	QuadInds  gpu.Buffer
	QuadCount int

	// Color, Position and Normal are written by the primary trace,
	// AOImage by the ambient occlusion trace at half resolution.
	Color, Position, Normal, AOImage gpu.Image
	// Composite is the blur output, read as input attachment.
	Composite gpu.Image
	// History holds the previous presented frame.
	History gpu.Image

	Width, Height int
}

// Validate checks that every resource is set.
func (p *Program) Validate() error {
	switch {
	case p.Accel == nil:
		return errors.New("frame: program has no acceleration structure")
	case p.Primary == nil || p.AO == nil || p.Blur == nil || p.Temporal == nil:
		return errors.New("frame: program misses a pipeline")
	case p.PrimarySets == nil || p.HitSets == nil || p.AOSets == nil || p.BlurSets == nil || p.TemporalSets == nil:
		return errors.New("frame: program misses descriptor sets")
	case p.Pass == nil:
		return errors.New("frame: program has no render pass")
	case p.QuadVerts == nil || p.QuadInds == nil || p.QuadCount <= 0:
		return errors.New("frame: program has no screen quad")
	case p.Color == nil || p.Position == nil || p.Normal == nil || p.AOImage == nil || p.Composite == nil || p.History == nil:
		return errors.New("frame: program misses an image")
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("frame: program has invalid size %dx%d", p.Width, p.Height)
	}
	for _, s := range []*binding.Set{p.PrimarySets, p.HitSets, p.AOSets, p.BlurSets, p.TemporalSets} {
		if err := s.Complete(); err != nil {
			return err
		}
	}
	return nil
}

// SlotBuffers returns the camera, frame counter and blur uniform blocks.
func (p *Program) SlotBuffers() []gpu.BufferConfig {
	return []gpu.BufferConfig{
		SlotCamera: {Size: camera.UniformSize, Usage: gpu.UUniform},
		SlotFrame:  {Size: uniformSize, Usage: gpu.UUniform},
		SlotBlur:   {Size: uniformSize, Usage: gpu.UUniform},
	}
}

// Outputs creates one framebuffer per image of t.
func (p *Program) Outputs(t gpu.Target) ([]Output, error) {
	w, h := t.Size()
	if w != p.Width || h != p.Height {
		return nil, fmt.Errorf("frame: target is %dx%d, program %dx%d", w, h, p.Width, p.Height)
	}
	var outs []Output
	for i, img := range t.Images() {
		fb, err := p.Pass.NewFB([]gpu.Image{p.Composite, img}, w, h)
		if err != nil {
			for _, o := range outs {
				o.FB.Destroy()
			}
			return nil, fmt.Errorf("frame: framebuffer %d: %w", i, err)
		}
		outs = append(outs, Output{Image: img, FB: fb, Layout: t.PresentLayout()})
	}
	return outs, nil
}

// Update writes the camera, frame counter and blur flag of ctx.
func (p *Program) Update(ctx *Context, slot *Slot) error {
	bufs, err := slot.Acquire()
	if err != nil {
		return err
	}
	gpu.PutFloat32s(bufs[SlotCamera].Bytes(), ctx.Camera.UniformData())
	binary.LittleEndian.PutUint32(bufs[SlotFrame].Bytes(), ctx.Frame)
	var blur uint32
	if ctx.Blur {
		blur = 1
	}
	binary.LittleEndian.PutUint32(bufs[SlotBlur].Bytes(), blur)
	return nil
}

func at(s *binding.Set, slot int) gpu.DescSet {
	if s.Len() == 1 {
		return s.At(0)
	}
	return s.At(slot)
}

// Record records the frame. Toggles in ctx only skip states.
func (p *Program) Record(ctx *Context, cb gpu.CmdBuffer, slot *Slot, out Output) error {
	// (a) Refit.
	if ctx.Animate {
		if _, err := slot.Acquire(); err != nil {
			return err
		}
		if err := p.Accel.Refit(cb, slot.Index, ctx.Transforms); err != nil {
			return err
		}
	}

	// (b) Primary trace into the G-buffer.
	cb.SetPipeline(p.Primary)
	cb.SetDescSets(p.Primary, 0, []gpu.DescSet{at(p.PrimarySets, slot.Index), at(p.HitSets, slot.Index)})
	cb.TraceRays(p.Primary, p.Width, p.Height)

	// (c) Normal is only read by fragment shaders after this point.
	cb.Transition([]gpu.Transition{
		rtToFragment(p.Color),
		rtToFragment(p.Position),
		{
			Barrier: gpu.Barrier{
				SyncBefore:   gpu.SFragmentShading,
				SyncAfter:    gpu.SFragmentShading,
				AccessBefore: gpu.AShaderRead,
				AccessAfter:  gpu.AShaderRead,
			},
			LayoutBefore: gpu.LGeneral,
			LayoutAfter:  gpu.LShaderRead,
			Image:        p.Normal,
		},
	})

	// (d) Ambient occlusion at half resolution.
	if ctx.AO {
		cb.SetPipeline(p.AO)
		cb.SetDescSets(p.AO, 0, []gpu.DescSet{at(p.AOSets, slot.Index)})
		cb.TraceRays(p.AO, max(p.Width/2, 1), max(p.Height/2, 1))
	}

	// (e)
	cb.Transition([]gpu.Transition{rtToFragment(p.AOImage)})

	// (f) Subpass 0 blurs, subpass 1 integrates with history.
	cb.BeginPass(p.Pass, out.FB, [][4]float32{{0, 0, 0, 1}, {0, 0, 0, 1}})
	cb.SetPipeline(p.Blur)
	cb.SetDescSets(p.Blur, 0, []gpu.DescSet{at(p.BlurSets, slot.Index)})
	cb.SetVertexBuf(p.QuadVerts)
	cb.SetIndexBuf(p.QuadInds)
	cb.DrawIndexed(p.QuadCount)
	cb.NextSubpass()
	cb.SetPipeline(p.Temporal)
	cb.SetDescSets(p.Temporal, 0, []gpu.DescSet{at(p.TemporalSets, slot.Index)})
	cb.SetVertexBuf(p.QuadVerts)
	cb.SetIndexBuf(p.QuadInds)
	cb.DrawIndexed(p.QuadCount)
	cb.EndPass()

	// (g)
	cb.Transition([]gpu.Transition{{
		Barrier: gpu.Barrier{
			SyncBefore:   gpu.SFragmentShading,
			SyncAfter:    gpu.SCopy,
			AccessBefore: gpu.AShaderRead,
			AccessAfter:  gpu.ACopyWrite,
		},
		LayoutBefore: gpu.LShaderRead,
		LayoutAfter:  gpu.LCopyDst,
		Image:        p.History,
	}})

	// (h)
	cb.Blit(out.Image, PassLayout, p.History, gpu.LCopyDst)

	// (i) Offscreen images already sit in PassLayout.
	var final []gpu.Transition
	if out.Layout != PassLayout {
		final = append(final, gpu.Transition{
			Barrier: gpu.Barrier{
				SyncBefore:   gpu.SCopy,
				SyncAfter:    gpu.SBottomOfPipe,
				AccessBefore: gpu.ACopyRead,
			},
			LayoutBefore: PassLayout,
			LayoutAfter:  out.Layout,
			Image:        out.Image,
		})
	}
	cb.Transition(append(final,
		gpu.Transition{
			Barrier: gpu.Barrier{
				SyncBefore:   gpu.SCopy,
				SyncAfter:    gpu.SFragmentShading,
				AccessBefore: gpu.ACopyWrite,
				AccessAfter:  gpu.AShaderRead,
			},
			LayoutBefore: gpu.LCopyDst,
			LayoutAfter:  gpu.LShaderRead,
			Image:        p.History,
		},
		toGeneral(p.Color, gpu.SFragmentShading),
		toGeneral(p.Position, gpu.SFragmentShading|gpu.SRayTracing),
		toGeneral(p.Normal, gpu.SFragmentShading|gpu.SRayTracing),
		toGeneral(p.AOImage, gpu.SFragmentShading),
	))
	return nil
}

func rtToFragment(img gpu.Image) gpu.Transition {
	return gpu.Transition{
		Barrier: gpu.Barrier{
			SyncBefore:   gpu.SRayTracing,
			SyncAfter:    gpu.SFragmentShading,
			AccessBefore: gpu.AShaderWrite,
			AccessAfter:  gpu.AShaderRead,
		},
		LayoutBefore: gpu.LGeneral,
		LayoutAfter:  gpu.LShaderRead,
		Image:        img,
	}
}

// toGeneral returns a ray-traced image to the layout the next frame's
// trace writes it in.
func toGeneral(img gpu.Image, readers gpu.Sync) gpu.Transition {
	return gpu.Transition{
		Barrier: gpu.Barrier{
			SyncBefore:   readers,
			SyncAfter:    gpu.SRayTracing,
			AccessBefore: gpu.AShaderRead,
			AccessAfter:  gpu.AShaderWrite,
		},
		LayoutBefore: gpu.LShaderRead,
		LayoutAfter:  gpu.LGeneral,
		Image:        img,
	}
}

// PassLayout is the layout the composition pass leaves the presentable
// image in, ready for the history blit.
const PassLayout = gpu.LCopySrc

// NewPass creates the two-subpass composition render pass for a
// presentable image of format f. Attachment 0 is the blur composite,
// read by subpass 1 as input attachment; attachment 1 is the
// presentable image.
func NewPass(g gpu.GPU, f gpu.Format) (gpu.RenderPass, error) {
	att := []gpu.Attachment{
		{
			Format:       CompositeFormat,
			Load:         gpu.LClear,
			Store:        gpu.SDontCare,
			LayoutBefore: gpu.LUndefined,
			LayoutAfter:  gpu.LShaderRead,
		},
		{
			Format:       f,
			Load:         gpu.LDontCare,
			Store:        gpu.SStore,
			LayoutBefore: gpu.LUndefined,
			LayoutAfter:  PassLayout,
		},
	}
	sub := []gpu.Subpass{
		{Color: []int{0}},
		{Color: []int{1}, Input: []int{0}},
	}
	dep := []gpu.Dependency{
		{From: gpu.External, To: 0, Barrier: gpu.Barrier{
			SyncBefore:  gpu.SColorOutput,
			SyncAfter:   gpu.SColorOutput,
			AccessAfter: gpu.AColorWrite,
		}},
		{From: 0, To: 1, Barrier: gpu.Barrier{
			SyncBefore:   gpu.SColorOutput,
			SyncAfter:    gpu.SFragmentShading,
			AccessBefore: gpu.AColorWrite,
			AccessAfter:  gpu.AInputRead,
		}},
		{From: 1, To: gpu.External, Barrier: gpu.Barrier{
			SyncBefore:   gpu.SColorOutput,
			SyncAfter:    gpu.SCopy,
			AccessBefore: gpu.AColorWrite,
			AccessAfter:  gpu.ACopyRead,
		}},
	}
	return g.NewRenderPass(att, sub, dep)
}

// CompositeFormat is the format of the blur composite attachment.
const CompositeFormat = gpu.RGBA8Unorm
