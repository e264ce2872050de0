// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	"fmt"
	"log/slog"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// DescLayout is a descriptor set layout together with the pools its
// sets are allocated from.
type DescLayout struct {
	dev    *Device
	Layout vk.DescriptorSetLayout
	pools  []vk.DescriptorPool
	ds     []gpu.Descriptor
}

func (l *DescLayout) Descriptors() []gpu.Descriptor { return l.ds }

func (l *DescLayout) kind(binding int) (gpu.DescKind, bool) {
	for _, d := range l.ds {
		if d.Binding == binding {
			return d.Kind, true
		}
	}
	return 0, false
}

func (l *DescLayout) Destroy() {
	for _, p := range l.pools {
		vk.DestroyDescriptorPool(l.dev.Device, p, nil)
	}
	l.pools = nil
	if l.Layout != nil {
		vk.DestroyDescriptorSetLayout(l.dev.Device, l.Layout, nil)
		l.Layout = nil
	}
}

func (d *Device) NewDescLayout(ds []gpu.Descriptor) (gpu.DescLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(ds))
	for i, desc := range ds {
		if !desc.Kind.Valid() {
			return nil, fmt.Errorf("asch: binding %d has invalid kind %d", desc.Binding, desc.Kind)
		}
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(desc.Binding),
			DescriptorType:  convDescKind(desc.Kind),
			DescriptorCount: 1,
			StageFlags:      convStages(desc.Stages),
		}
	}
	l := &DescLayout{dev: d, ds: append([]gpu.Descriptor(nil), ds...)}
	ret := vk.CreateDescriptorSetLayout(d.Device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &l.Layout)
	if err := vkError("vk.CreateDescriptorSetLayout", ret); err != nil {
		return nil, err
	}
	return l, nil
}

func (d *Device) NewDescSets(layout gpu.DescLayout, n int) ([]gpu.DescSet, error) {
	l := layout.(*DescLayout)
	sizes := gpu.PoolSizes(l.ds, n)
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for kind, count := range sizes {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            convDescKind(kind),
			DescriptorCount: uint32(count),
		})
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(d.Device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(n),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}, nil, &pool)
	if err := vkError("vk.CreateDescriptorPool", ret); err != nil {
		return nil, err
	}
	l.pools = append(l.pools, pool)

	sets := make([]gpu.DescSet, n)
	for i := range sets {
		var dset vk.DescriptorSet
		ret := vk.AllocateDescriptorSets(d.Device, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{l.Layout},
		}, &dset)
		if err := vkError("vk.AllocateDescriptorSets", ret); err != nil {
			return nil, err
		}
		sets[i] = &DescSet{layout: l, Set: dset}
	}
	return sets, nil
}

// DescSet is a descriptor set allocated from a DescLayout pool.
type DescSet struct {
	layout *DescLayout
	Set    vk.DescriptorSet
}

func (s *DescSet) write(binding int, want ...gpu.DescKind) (gpu.DescKind, bool) {
	kind, ok := s.layout.kind(binding)
	for _, w := range want {
		if ok && kind == w {
			return kind, true
		}
	}
	slog.Error(fmt.Sprintf("asch: descriptor write to binding %d does not match its layout (%s)", binding, kind))
	return kind, false
}

func (s *DescSet) update(w vk.WriteDescriptorSet) {
	w.SType = vk.StructureTypeWriteDescriptorSet
	w.DstSet = s.Set
	w.DescriptorCount = 1
	vk.UpdateDescriptorSets(s.layout.dev.Device, 1, []vk.WriteDescriptorSet{w}, 0, nil)
}

func (s *DescSet) SetAccel(binding int, as gpu.AccelStruct) {
	if _, ok := s.write(binding, gpu.DAccel); !ok {
		return
	}
	s.layout.dev.rt.writeAccel(s.Set, binding, as.(*AccelStruct).as)
}

func (s *DescSet) SetImage(binding int, img gpu.Image, layout gpu.Layout) {
	kind, ok := s.write(binding, gpu.DStorageImage, gpu.DInputAttachment)
	if !ok {
		return
	}
	s.update(vk.WriteDescriptorSet{
		DstBinding:     uint32(binding),
		DescriptorType: convDescKind(kind),
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   img.(*Image).View,
			ImageLayout: convLayout(layout),
		}},
	})
}

func (s *DescSet) SetSampled(binding int, img gpu.Image, spl gpu.Sampler, layout gpu.Layout) {
	if _, ok := s.write(binding, gpu.DSampledImage); !ok {
		return
	}
	s.update(vk.WriteDescriptorSet{
		DstBinding:     uint32(binding),
		DescriptorType: vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     spl.(*Sampler).Sampler,
			ImageView:   img.(*Image).View,
			ImageLayout: convLayout(layout),
		}},
	})
}

func (s *DescSet) SetBuffer(binding int, buf gpu.Buffer) {
	kind, ok := s.write(binding, gpu.DUniform, gpu.DStorage)
	if !ok {
		return
	}
	b := buf.(*Buffer)
	s.update(vk.WriteDescriptorSet{
		DstBinding:     uint32(binding),
		DescriptorType: convDescKind(kind),
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: b.Buffer,
			Range:  vk.DeviceSize(b.size),
		}},
	})
}
