// Copyright (c) 2025 Cubyte.online under the AGPL License
// Copyright (c) 2022 Cogent Core. under the BSD-style License
// Copyright (c) 2017 Maxim Kupriianov <max@kc.vc>, under the MIT License

package asch

import (
	"fmt"

	vk "github.com/tomas-mraz/vulkan"
)

// FindRequiredMemoryType returns the first memory type allowed by
// deviceRequirements that has all of hostRequirements.
func FindRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties,
	deviceRequirements, hostRequirements vk.MemoryPropertyFlagBits) (uint32, bool) {

	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if deviceRequirements&(vk.MemoryPropertyFlagBits(1)<<i) != 0 {
			props.MemoryTypes[i].Deref()
			flags := props.MemoryTypes[i].PropertyFlags
			if flags&vk.MemoryPropertyFlags(hostRequirements) == vk.MemoryPropertyFlags(hostRequirements) {
				return i, true
			}
		}
	}
	return 0, false
}

// allocMemory allocates size bytes from a memory type compatible with
// typeBits and props.
func (d *Device) allocMemory(size int64, typeBits uint32, props vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	memType, ok := FindRequiredMemoryType(d.memProps, vk.MemoryPropertyFlagBits(typeBits), props)
	if !ok {
		return vk.NullDeviceMemory, fmt.Errorf("asch: no memory type with properties %#x for type bits %#x", props, typeBits)
	}
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(d.Device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if err := vkError("vk.AllocateMemory", ret); err != nil {
		return vk.NullDeviceMemory, err
	}
	return mem, nil
}

func (d *Device) freeMemory(mem vk.DeviceMemory) {
	if mem != vk.NullDeviceMemory {
		vk.FreeMemory(d.Device, mem, nil)
	}
}
