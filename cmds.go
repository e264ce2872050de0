// Copyright (c) 2025 Cubyte.online under the AGPL License
// Copyright (c) 2022 Cogent Core. under the BSD-style License
// Copyright (c) 2017 Maxim Kupriianov <max@kc.vc>, under the MIT License

package asch

import (
	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// CmdBuffer is a primary command buffer allocated from the device pool.
type CmdBuffer struct {
	dev  *Device
	Buff vk.CommandBuffer
	fb   *Framebuf
}

func (d *Device) NewCmdBuffer() (gpu.CmdBuffer, error) {
	cb, err := d.newCmdBuffer()
	if err != nil {
		return nil, err
	}
	return cb, nil
}

func (d *Device) newCmdBuffer() (*CmdBuffer, error) {
	var cmdBuff = make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(d.Device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmdBuff)
	if err := vkError("vk.AllocateCommandBuffers", ret); err != nil {
		return nil, err
	}
	return &CmdBuffer{dev: d, Buff: cmdBuff[0]}, nil
}

func (cb *CmdBuffer) Destroy() {
	if cb.Buff == nil {
		return
	}
	vk.FreeCommandBuffers(cb.dev.Device, cb.dev.pool, 1, []vk.CommandBuffer{cb.Buff})
	cb.Buff = nil
}

func (cb *CmdBuffer) Begin() error {
	ret := vk.BeginCommandBuffer(cb.Buff, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	})
	return vkError("vk.BeginCommandBuffer", ret)
}

// End does EndCommandBuffer on buffer
func (cb *CmdBuffer) End() error {
	return vkError("vk.EndCommandBuffer", vk.EndCommandBuffer(cb.Buff))
}

func (cb *CmdBuffer) Barrier(bs []gpu.Barrier) {
	for _, b := range bs {
		vk.CmdPipelineBarrier(cb.Buff, convSync(b.SyncBefore, true), convSync(b.SyncAfter, false),
			vk.DependencyFlags(0), 1, []vk.MemoryBarrier{{
				SType:         vk.StructureTypeMemoryBarrier,
				SrcAccessMask: convAccess(b.AccessBefore),
				DstAccessMask: convAccess(b.AccessAfter),
			}}, 0, nil, 0, nil)
	}
}

func (cb *CmdBuffer) Transition(ts []gpu.Transition) {
	for _, t := range ts {
		vk.CmdPipelineBarrier(cb.Buff, convSync(t.SyncBefore, true), convSync(t.SyncAfter, false),
			vk.DependencyFlags(0), 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
				SType:               vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:       convAccess(t.AccessBefore),
				DstAccessMask:       convAccess(t.AccessAfter),
				OldLayout:           convLayout(t.LayoutBefore),
				NewLayout:           convLayout(t.LayoutAfter),
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               t.Image.(*Image).Image,
				SubresourceRange:    colorRange,
			}})
	}
}

var colorRange = vk.ImageSubresourceRange{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LevelCount: 1,
	LayerCount: 1,
}

func (cb *CmdBuffer) BuildAccel(dst gpu.AccelStruct, inst gpu.Buffer, scratch gpu.Buffer) {
	as := dst.(*AccelStruct)
	instBuf := vk.NullBuffer
	if inst != nil {
		instBuf = inst.(*Buffer).Buffer
	}
	cb.dev.rt.cmdBuild(cb.Buff, &as.geom, instBuf, as.as, scratch.(*Buffer).Buffer)
}

func (cb *CmdBuffer) SetPipeline(pl gpu.Pipeline) {
	p := pl.(*Pipeline)
	vk.CmdBindPipeline(cb.Buff, p.bindPoint(), p.Pipeline)
}

func (cb *CmdBuffer) SetDescSets(pl gpu.Pipeline, start int, sets []gpu.DescSet) {
	p := pl.(*Pipeline)
	dsets := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		dsets[i] = s.(*DescSet).Set
	}
	vk.CmdBindDescriptorSets(cb.Buff, p.bindPoint(), p.Layout,
		uint32(start), uint32(len(dsets)), dsets, 0, nil)
}

func (cb *CmdBuffer) TraceRays(pl gpu.Pipeline, width, height int) {
	p := pl.(*Pipeline)
	cb.dev.rt.cmdTrace(cb.Buff, p.sbt.Buffer, p.stride, p.missOffset, p.hitOffset, width, height)
}

func (cb *CmdBuffer) BeginPass(pass gpu.RenderPass, fb gpu.Framebuf, clear [][4]float32) {
	rp := pass.(*RenderPass)
	cb.fb = fb.(*Framebuf)
	clearValues := make([]vk.ClearValue, len(clear))
	for i, c := range clear {
		clearValues[i] = vk.NewClearValue(c[:])
	}
	renderPassBeginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Pass,
		Framebuffer: cb.fb.Framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{
				X: 0, Y: 0,
			},
			Extent: cb.fb.Size,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.Buff, &renderPassBeginInfo, vk.SubpassContentsInline)
}

func (cb *CmdBuffer) NextSubpass() {
	vk.CmdNextSubpass(cb.Buff, vk.SubpassContentsInline)
}

func (cb *CmdBuffer) EndPass() {
	vk.CmdEndRenderPass(cb.Buff)
	cb.fb = nil
}

func (cb *CmdBuffer) SetVertexBuf(buf gpu.Buffer) {
	vk.CmdBindVertexBuffers(cb.Buff, 0, 1, []vk.Buffer{buf.(*Buffer).Buffer}, []vk.DeviceSize{0})
}

func (cb *CmdBuffer) SetIndexBuf(buf gpu.Buffer) {
	vk.CmdBindIndexBuffer(cb.Buff, buf.(*Buffer).Buffer, 0, vk.IndexTypeUint32)
}

func (cb *CmdBuffer) DrawIndexed(count int) {
	vk.CmdDrawIndexed(cb.Buff, uint32(count), 1, 0, 0, 0)
}

func (cb *CmdBuffer) Blit(from gpu.Image, fromLayout gpu.Layout, to gpu.Image, toLayout gpu.Layout) {
	src, dst := from.(*Image), to.(*Image)
	layers := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
	vk.CmdBlitImage(cb.Buff, src.Image, convLayout(fromLayout), dst.Image, convLayout(toLayout), 1,
		[]vk.ImageBlit{{
			SrcSubresource: layers,
			SrcOffsets:     [2]vk.Offset3D{{}, src.extent()},
			DstSubresource: layers,
			DstOffsets:     [2]vk.Offset3D{{}, dst.extent()},
		}}, vk.FilterLinear)
}

// copyBuffer records a whole-buffer copy.
func (cb *CmdBuffer) copyBuffer(src, dst *Buffer) {
	vk.CmdCopyBuffer(cb.Buff, src.Buffer, dst.Buffer, 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(src.size),
	}})
}

// copyToImage records a copy of tightly packed texels into img, which
// must be in LCopyDst.
func (cb *CmdBuffer) copyToImage(src *Buffer, img *Image) {
	vk.CmdCopyBufferToImage(cb.Buff, src.Buffer, img.Image, vk.ImageLayoutTransferDstOptimal, 1,
		[]vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{
				Width:  uint32(img.Info.Size.X),
				Height: uint32(img.Info.Size.Y),
				Depth:  1,
			},
		}})
}
