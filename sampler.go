// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Sampler wraps a vk.Sampler.
type Sampler struct {
	dev     vk.Device
	Sampler vk.Sampler
}

func (s *Sampler) Destroy() {
	if s.Sampler != vk.NullSampler {
		vk.DestroySampler(s.dev, s.Sampler, nil)
		s.Sampler = vk.NullSampler
	}
}

func (d *Device) NewSampler(cfg *gpu.SamplerConfig) (gpu.Sampler, error) {
	filter := vk.FilterNearest
	if cfg.Filter == gpu.FLinear {
		filter = vk.FilterLinear
	}
	mode := vk.SamplerAddressModeClampToEdge
	if cfg.Mode == gpu.ARepeat {
		mode = vk.SamplerAddressModeRepeat
	}
	s := &Sampler{dev: d.Device}
	ret := vk.CreateSampler(d.Device, &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              vk.SamplerMipmapModeNearest,
		AddressModeU:            mode,
		AddressModeV:            mode,
		AddressModeW:            mode,
		MaxAnisotropy:           1,
		CompareOp:               vk.CompareOpNever,
		BorderColor:             vk.BorderColorFloatTransparentBlack,
		UnnormalizedCoordinates: vk.False,
	}, nil, &s.Sampler)
	if err := vkError("vk.CreateSampler", ret); err != nil {
		return nil, err
	}
	return s, nil
}
