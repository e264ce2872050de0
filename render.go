// Copyright (c) 2025 Cubyte.online under the AGPL License
// Copyright (c) 2022 Cogent Core. under the BSD-style License
// Copyright (c) 2017 Maxim Kupriianov <max@kc.vc>, under the MIT License

package asch

import (
	"fmt"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// RenderPass is a vulkan RenderPass object, which specifies the
// attachments and subpasses for rendering to a Framebuffer.
type RenderPass struct {

	// the device we're associated with -- this must be the same device that owns the Framebuffer
	Dev vk.Device

	// the vulkan renderpass
	Pass vk.RenderPass

	att []gpu.Attachment
	sub []gpu.Subpass
}

func (d *Device) NewRenderPass(att []gpu.Attachment, sub []gpu.Subpass, dep []gpu.Dependency) (gpu.RenderPass, error) {
	if len(sub) == 0 {
		return nil, fmt.Errorf("asch: render pass has no subpass")
	}
	attachments := make([]vk.AttachmentDescription, len(att))
	for i, a := range att {
		attachments[i] = vk.AttachmentDescription{
			Format:         vkFormat(a.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         convLoadOp(a.Load),
			StoreOp:        convStoreOp(a.Store),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  convLayout(a.LayoutBefore),
			FinalLayout:    convLayout(a.LayoutAfter),
		}
	}
	refs := func(idx []int, layout vk.ImageLayout) ([]vk.AttachmentReference, error) {
		rs := make([]vk.AttachmentReference, len(idx))
		for i, a := range idx {
			if a < 0 || a >= len(att) {
				return nil, fmt.Errorf("asch: subpass references attachment %d of %d", a, len(att))
			}
			rs[i] = vk.AttachmentReference{Attachment: uint32(a), Layout: layout}
		}
		return rs, nil
	}
	subpasses := make([]vk.SubpassDescription, len(sub))
	for i, s := range sub {
		color, err := refs(s.Color, vk.ImageLayoutColorAttachmentOptimal)
		if err != nil {
			return nil, err
		}
		input, err := refs(s.Input, vk.ImageLayoutShaderReadOnlyOptimal)
		if err != nil {
			return nil, err
		}
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(color)),
			PColorAttachments:    color,
			InputAttachmentCount: uint32(len(input)),
			PInputAttachments:    input,
		}
	}
	dependencies := make([]vk.SubpassDependency, len(dep))
	for i, dp := range dep {
		var flags vk.DependencyFlagBits
		if dp.From != gpu.External && dp.To != gpu.External {
			flags = vk.DependencyByRegionBit
		}
		dependencies[i] = vk.SubpassDependency{
			SrcSubpass:      convSubpass(dp.From),
			DstSubpass:      convSubpass(dp.To),
			SrcStageMask:    convSync(dp.SyncBefore, true),
			DstStageMask:    convSync(dp.SyncAfter, false),
			SrcAccessMask:   convAccess(dp.AccessBefore),
			DstAccessMask:   convAccess(dp.AccessAfter),
			DependencyFlags: vk.DependencyFlags(flags),
		}
	}

	rp := &RenderPass{Dev: d.Device, att: att, sub: sub}
	ret := vk.CreateRenderPass(d.Device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &rp.Pass)
	if err := vkError("vk.CreateRenderPass", ret); err != nil {
		return nil, err
	}
	return rp, nil
}

func (rp *RenderPass) Destroy() {
	if rp.Pass != vk.NullRenderPass {
		vk.DestroyRenderPass(rp.Dev, rp.Pass, nil)
		rp.Pass = vk.NullRenderPass
	}
}

// colorAttachments returns the number of color attachments of subpass i.
func (rp *RenderPass) colorAttachments(i int) int {
	if i < 0 || i >= len(rp.sub) {
		return 0
	}
	return len(rp.sub[i].Color)
}

// Framebuf binds image views to the attachments of a RenderPass.
type Framebuf struct {
	dev         vk.Device
	Framebuffer vk.Framebuffer
	Size        vk.Extent2D
}

func (rp *RenderPass) NewFB(views []gpu.Image, width, height int) (gpu.Framebuf, error) {
	if len(views) != len(rp.att) {
		return nil, fmt.Errorf("asch: framebuffer has %d views for %d attachments", len(views), len(rp.att))
	}
	attachments := make([]vk.ImageView, len(views))
	for i, v := range views {
		attachments[i] = v.(*Image).View
	}
	fb := &Framebuf{dev: rp.Dev, Size: NewExtentSize(width, height)}
	ret := vk.CreateFramebuffer(rp.Dev, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.Pass,
		Layers:          1,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           uint32(width),
		Height:          uint32(height),
	}, nil, &fb.Framebuffer)
	if err := vkError("vk.CreateFramebuffer", ret); err != nil {
		return nil, err
	}
	return fb, nil
}

func (fb *Framebuf) Destroy() {
	if fb.Framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(fb.dev, fb.Framebuffer, nil)
		fb.Framebuffer = vk.NullFramebuffer
	}
}
