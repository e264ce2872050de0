// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	"fmt"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// AccelStruct is a VK_NV_ray_tracing acceleration structure bound to
// its own device memory.
type AccelStruct struct {
	dev     *Device
	level   gpu.AccelLevel
	geom    rtGeometry
	as      rtAccel
	mem     vk.DeviceMemory
	handle  uint64
	scratch int64
}

func (a *AccelStruct) Level() gpu.AccelLevel { return a.level }
func (a *AccelStruct) Handle() uint64        { return a.handle }
func (a *AccelStruct) ScratchSize() int64    { return a.scratch }

func (a *AccelStruct) Destroy() {
	if a.as != nil {
		a.dev.rt.destroy(a.as)
		a.as = nil
	}
	a.dev.freeMemory(a.mem)
	a.mem = vk.NullDeviceMemory
}

func (d *Device) NewBLAS(geom *gpu.Geometry) (gpu.AccelStruct, error) {
	if geom.VertexCount <= 0 || geom.IndexCount <= 0 || geom.IndexCount%3 != 0 {
		return nil, fmt.Errorf("asch: invalid geometry with %d vertices and %d indices", geom.VertexCount, geom.IndexCount)
	}
	g := bottomGeometry(geom.Vertices.(*Buffer).Buffer, geom.VertexCount, geom.Indices.(*Buffer).Buffer, geom.IndexCount)
	return d.newAccel(gpu.BottomLevel, g)
}

func (d *Device) NewTLAS(n int) (gpu.AccelStruct, error) {
	if n <= 0 {
		return nil, fmt.Errorf("asch: top-level structure needs instances, got %d", n)
	}
	return d.newAccel(gpu.TopLevel, topGeometry(n))
}

func (d *Device) newAccel(level gpu.AccelLevel, g rtGeometry) (gpu.AccelStruct, error) {
	a := &AccelStruct{dev: d, level: level, geom: g}
	if err := d.initAccel(a); err != nil {
		a.Destroy()
		return nil, err
	}
	return a, nil
}

func (d *Device) initAccel(a *AccelStruct) error {
	var err error
	if a.as, err = d.rt.create(&a.geom); err != nil {
		return err
	}
	size, bits := d.rt.memReqs(a.as, reqObject)
	if a.mem, err = d.allocMemory(size, bits, vk.MemoryPropertyDeviceLocalBit); err != nil {
		return err
	}
	if err = d.rt.bind(a.as, a.mem); err != nil {
		return err
	}
	if a.handle, err = d.rt.handle(a.as); err != nil {
		return err
	}
	a.scratch, _ = d.rt.memReqs(a.as, reqBuildScratch)
	return nil
}
