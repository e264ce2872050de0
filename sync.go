// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Fence wraps a vk.Fence.
type Fence struct {
	dev   vk.Device
	Fence vk.Fence
}

func (f *Fence) Destroy() {
	if f.Fence != vk.NullFence {
		vk.DestroyFence(f.dev, f.Fence, nil)
		f.Fence = vk.NullFence
	}
}

// Semaphore wraps a binary vk.Semaphore.
type Semaphore struct {
	dev       vk.Device
	Semaphore vk.Semaphore
}

func (s *Semaphore) Destroy() {
	if s.Semaphore != vk.NullSemaphore {
		vk.DestroySemaphore(s.dev, s.Semaphore, nil)
		s.Semaphore = vk.NullSemaphore
	}
}

func (d *Device) NewFence(signaled bool) (gpu.Fence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	f := &Fence{dev: d.Device}
	if err := vkError("vk.CreateFence", vk.CreateFence(d.Device, &info, nil, &f.Fence)); err != nil {
		return nil, err
	}
	return f, nil
}

func (d *Device) NewSemaphore() (gpu.Semaphore, error) {
	s := &Semaphore{dev: d.Device}
	ret := vk.CreateSemaphore(d.Device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &s.Semaphore)
	if err := vkError("vk.CreateSemaphore", ret); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Device) Wait(f gpu.Fence) error {
	fences := []vk.Fence{f.(*Fence).Fence}
	return vkError("vk.WaitForFences", vk.WaitForFences(d.Device, 1, fences, vk.True, vk.MaxUint64))
}

func (d *Device) Reset(f gpu.Fence) error {
	fences := []vk.Fence{f.(*Fence).Fence}
	return vkError("vk.ResetFences", vk.ResetFences(d.Device, 1, fences))
}

func (d *Device) Submit(cb gpu.CmdBuffer, info *gpu.SubmitInfo) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.(*CmdBuffer).Buff},
	}
	if info.Wait != nil {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{info.Wait.(*Semaphore).Semaphore}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{convSync(info.WaitStage, false)}
	}
	if info.Signal != nil {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{info.Signal.(*Semaphore).Semaphore}
	}
	fence := vk.NullFence
	if info.Fence != nil {
		fence = info.Fence.(*Fence).Fence
	}
	return vkError("vk.QueueSubmit", vk.QueueSubmit(d.Queue, 1, []vk.SubmitInfo{submitInfo}, fence))
}

func (d *Device) OneShot(fn func(cb gpu.CmdBuffer) error) error {
	return d.oneShot(func(cb *CmdBuffer) error { return fn(cb) })
}

// oneShot records fn into a transient command buffer, submits it and
// waits for the queue to drain.
func (d *Device) oneShot(fn func(cb *CmdBuffer) error) error {
	cb, err := d.newCmdBuffer()
	if err != nil {
		return err
	}
	defer cb.Destroy()
	if err := cb.Begin(); err != nil {
		return err
	}
	if err := fn(cb); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}
	if err := d.Submit(cb, &gpu.SubmitInfo{}); err != nil {
		return err
	}
	return vkError("vk.QueueWaitIdle", vk.QueueWaitIdle(d.Queue))
}
