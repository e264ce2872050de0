// Copyright (c) 2025 Cubyte.online under the AGPL License
// Copyright (c) 2022 Cogent Core. under the BSD-style License
// Copyright (c) 2017 Maxim Kupriianov <max@kc.vc>, under the MIT License

package asch

import (
	"unsafe"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Buffer is a vk.Buffer bound to its own allocation. Host-visible
// buffers stay mapped until destroyed.
type Buffer struct {
	dev    vk.Device
	Buffer vk.Buffer
	Memory vk.DeviceMemory
	size   int64
	mapped []byte
}

func (b *Buffer) Size() int64   { return b.size }
func (b *Buffer) Bytes() []byte { return b.mapped }

func (b *Buffer) Destroy() {
	if b.mapped != nil {
		vk.UnmapMemory(b.dev, b.Memory)
		b.mapped = nil
	}
	if b.Buffer != vk.NullBuffer {
		vk.DestroyBuffer(b.dev, b.Buffer, nil)
		b.Buffer = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.dev, b.Memory, nil)
		b.Memory = vk.NullDeviceMemory
	}
}

func (d *Device) NewBuffer(cfg *gpu.BufferConfig) (gpu.Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	usage := convBufferUsage(cfg.Usage)
	if cfg.Visible {
		b, err := d.newBuffer(cfg.Size, usage, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			return nil, err
		}
		copy(b.mapped, cfg.Data)
		return b, nil
	}
	if cfg.Data != nil {
		usage |= vk.BufferUsageTransferDstBit
	}
	b, err := d.newBuffer(cfg.Size, usage, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	if cfg.Data != nil {
		if err := d.upload(b, cfg.Data); err != nil {
			b.Destroy()
			return nil, err
		}
	}
	return b, nil
}

// upload fills a device-local buffer through a staging copy.
func (d *Device) upload(b *Buffer, data []byte) error {
	stage, err := d.staging(data)
	if err != nil {
		return err
	}
	defer stage.Destroy()
	return d.oneShot(func(cb *CmdBuffer) error {
		cb.copyBuffer(stage, b)
		return nil
	})
}

func (d *Device) staging(data []byte) (*Buffer, error) {
	stage, err := d.newBuffer(int64(len(data)), vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	copy(stage.mapped, data)
	return stage, nil
}

func (d *Device) newBuffer(size int64, usage vk.BufferUsageFlagBits, props vk.MemoryPropertyFlagBits) (*Buffer, error) {
	b := &Buffer{dev: d.Device, size: size}
	ret := vk.CreateBuffer(d.Device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       vk.BufferUsageFlags(usage),
		Size:        vk.DeviceSize(size),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &b.Buffer)
	if err := vkError("vk.CreateBuffer", ret); err != nil {
		return nil, err
	}

	// Ask device about its memory requirements.
	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.Device, b.Buffer, &memReqs)
	memReqs.Deref()

	var err error
	b.Memory, err = d.allocMemory(int64(memReqs.Size), memReqs.MemoryTypeBits, props)
	if err != nil {
		b.Destroy()
		return nil, err
	}
	if err := vkError("vk.BindBufferMemory", vk.BindBufferMemory(d.Device, b.Buffer, b.Memory, 0)); err != nil {
		b.Destroy()
		return nil, err
	}
	if props&vk.MemoryPropertyHostVisibleBit != 0 {
		var ptr unsafe.Pointer
		ret := vk.MapMemory(d.Device, b.Memory, 0, vk.DeviceSize(size), 0, &ptr)
		if err := vkError("vk.MapMemory", ret); err != nil {
			b.Destroy()
			return nil, err
		}
		b.mapped = unsafe.Slice((*byte)(ptr), size)
	}
	return b, nil
}
