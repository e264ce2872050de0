// Copyright (c) 2025 Cubyte.online under the AGPL License

//go:build linux

package asch

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <string.h>
#include <vulkan/vulkan.h>

typedef struct {
	PFN_vkGetDeviceProcAddr getDeviceProcAddr;
	PFN_vkGetPhysicalDeviceProperties2 properties2;
	PFN_vkCreateAccelerationStructureNV create;
	PFN_vkDestroyAccelerationStructureNV destroy;
	PFN_vkGetAccelerationStructureMemoryRequirementsNV memReqs;
	PFN_vkBindAccelerationStructureMemoryNV bind;
	PFN_vkGetAccelerationStructureHandleNV handle;
	PFN_vkCmdBuildAccelerationStructureNV build;
	PFN_vkCreateRayTracingPipelinesNV pipelines;
	PFN_vkGetRayTracingShaderGroupHandlesNV groupHandles;
	PFN_vkCmdTraceRaysNV trace;
	PFN_vkUpdateDescriptorSets updateSets;
} rtProcs;

typedef struct {
	int top;
	uint32_t instances;
	VkBuffer vertices;
	uint32_t vertexCount;
	VkBuffer indices;
	uint32_t indexCount;
} rtGeometry;

static int rtLoad(void *gipa, VkInstance inst, VkDevice dev, rtProcs *p) {
	PFN_vkGetInstanceProcAddr getInstanceProcAddr = (PFN_vkGetInstanceProcAddr)gipa;
	memset(p, 0, sizeof *p);
	p->getDeviceProcAddr = (PFN_vkGetDeviceProcAddr)getInstanceProcAddr(inst, "vkGetDeviceProcAddr");
	p->properties2 = (PFN_vkGetPhysicalDeviceProperties2)getInstanceProcAddr(inst, "vkGetPhysicalDeviceProperties2");
	if (p->getDeviceProcAddr == NULL || p->properties2 == NULL) {
		return -1;
	}
	p->create = (PFN_vkCreateAccelerationStructureNV)p->getDeviceProcAddr(dev, "vkCreateAccelerationStructureNV");
	p->destroy = (PFN_vkDestroyAccelerationStructureNV)p->getDeviceProcAddr(dev, "vkDestroyAccelerationStructureNV");
	p->memReqs = (PFN_vkGetAccelerationStructureMemoryRequirementsNV)p->getDeviceProcAddr(dev, "vkGetAccelerationStructureMemoryRequirementsNV");
	p->bind = (PFN_vkBindAccelerationStructureMemoryNV)p->getDeviceProcAddr(dev, "vkBindAccelerationStructureMemoryNV");
	p->handle = (PFN_vkGetAccelerationStructureHandleNV)p->getDeviceProcAddr(dev, "vkGetAccelerationStructureHandleNV");
	p->build = (PFN_vkCmdBuildAccelerationStructureNV)p->getDeviceProcAddr(dev, "vkCmdBuildAccelerationStructureNV");
	p->pipelines = (PFN_vkCreateRayTracingPipelinesNV)p->getDeviceProcAddr(dev, "vkCreateRayTracingPipelinesNV");
	p->groupHandles = (PFN_vkGetRayTracingShaderGroupHandlesNV)p->getDeviceProcAddr(dev, "vkGetRayTracingShaderGroupHandlesNV");
	p->trace = (PFN_vkCmdTraceRaysNV)p->getDeviceProcAddr(dev, "vkCmdTraceRaysNV");
	p->updateSets = (PFN_vkUpdateDescriptorSets)p->getDeviceProcAddr(dev, "vkUpdateDescriptorSets");
	if (p->create == NULL || p->destroy == NULL || p->memReqs == NULL || p->bind == NULL ||
		p->handle == NULL || p->build == NULL || p->pipelines == NULL ||
		p->groupHandles == NULL || p->trace == NULL || p->updateSets == NULL) {
		return -1;
	}
	return 0;
}

static void rtProperties(rtProcs *p, VkPhysicalDevice pd, uint32_t *handleSize, uint32_t *maxRecursion, uint32_t *baseAlign) {
	VkPhysicalDeviceRayTracingPropertiesNV rt;
	VkPhysicalDeviceProperties2 props;
	memset(&rt, 0, sizeof rt);
	memset(&props, 0, sizeof props);
	rt.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PROPERTIES_NV;
	props.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2;
	props.pNext = &rt;
	p->properties2(pd, &props);
	*handleSize = rt.shaderGroupHandleSize;
	*maxRecursion = rt.maxRecursionDepth;
	*baseAlign = rt.shaderGroupBaseAlignment;
}

static void rtFill(const rtGeometry *g, VkAccelerationStructureInfoNV *info, VkGeometryNV *geom) {
	memset(info, 0, sizeof *info);
	info->sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_INFO_NV;
	info->flags = VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_NV;
	if (g->top) {
		info->type = VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_NV;
		info->instanceCount = g->instances;
		return;
	}
	memset(geom, 0, sizeof *geom);
	geom->sType = VK_STRUCTURE_TYPE_GEOMETRY_NV;
	geom->geometryType = VK_GEOMETRY_TYPE_TRIANGLES_NV;
	geom->flags = VK_GEOMETRY_OPAQUE_BIT_NV;
	geom->geometry.triangles.sType = VK_STRUCTURE_TYPE_GEOMETRY_TRIANGLES_NV;
	geom->geometry.triangles.vertexData = g->vertices;
	geom->geometry.triangles.vertexCount = g->vertexCount;
	geom->geometry.triangles.vertexStride = 3 * sizeof(float);
	geom->geometry.triangles.vertexFormat = VK_FORMAT_R32G32B32_SFLOAT;
	geom->geometry.triangles.indexData = g->indices;
	geom->geometry.triangles.indexCount = g->indexCount;
	geom->geometry.triangles.indexType = VK_INDEX_TYPE_UINT32;
	geom->geometry.aabbs.sType = VK_STRUCTURE_TYPE_GEOMETRY_AABB_NV;
	info->type = VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_NV;
	info->geometryCount = 1;
	info->pGeometries = geom;
}

static VkResult rtCreate(rtProcs *p, VkDevice dev, const rtGeometry *g, VkAccelerationStructureNV *as) {
	VkAccelerationStructureCreateInfoNV info;
	VkGeometryNV geom;
	memset(&info, 0, sizeof info);
	info.sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_NV;
	rtFill(g, &info.info, &geom);
	return p->create(dev, &info, NULL, as);
}

static void rtDestroy(rtProcs *p, VkDevice dev, VkAccelerationStructureNV as) {
	p->destroy(dev, as, NULL);
}

static void rtMemReqs(rtProcs *p, VkDevice dev, VkAccelerationStructureNV as, int kind, VkDeviceSize *size, uint32_t *bits) {
	VkAccelerationStructureMemoryRequirementsInfoNV info;
	VkMemoryRequirements2 req;
	memset(&info, 0, sizeof info);
	memset(&req, 0, sizeof req);
	info.sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_MEMORY_REQUIREMENTS_INFO_NV;
	info.type = (VkAccelerationStructureMemoryRequirementsTypeNV)kind;
	info.accelerationStructure = as;
	req.sType = VK_STRUCTURE_TYPE_MEMORY_REQUIREMENTS_2;
	p->memReqs(dev, &info, &req);
	*size = req.memoryRequirements.size;
	*bits = req.memoryRequirements.memoryTypeBits;
}

static VkResult rtBind(rtProcs *p, VkDevice dev, VkAccelerationStructureNV as, VkDeviceMemory mem) {
	VkBindAccelerationStructureMemoryInfoNV info;
	memset(&info, 0, sizeof info);
	info.sType = VK_STRUCTURE_TYPE_BIND_ACCELERATION_STRUCTURE_MEMORY_INFO_NV;
	info.accelerationStructure = as;
	info.memory = mem;
	return p->bind(dev, 1, &info);
}

static VkResult rtHandle(rtProcs *p, VkDevice dev, VkAccelerationStructureNV as, uint64_t *h) {
	return p->handle(dev, as, sizeof *h, h);
}

static void rtCmdBuild(rtProcs *p, VkCommandBuffer cb, const rtGeometry *g, VkBuffer inst, VkAccelerationStructureNV dst, VkBuffer scratch) {
	VkAccelerationStructureInfoNV info;
	VkGeometryNV geom;
	rtFill(g, &info, &geom);
	p->build(cb, &info, inst, 0, VK_FALSE, dst, VK_NULL_HANDLE, scratch, 0);
}

static void rtTrace(rtProcs *p, VkCommandBuffer cb, VkBuffer sbt, VkDeviceSize stride, VkDeviceSize missOffset, VkDeviceSize hitOffset, uint32_t w, uint32_t h) {
	p->trace(cb, sbt, 0, sbt, missOffset, stride, sbt, hitOffset, stride, VK_NULL_HANDLE, 0, 0, w, h, 1);
}

static VkResult rtCreatePipeline(rtProcs *p, VkDevice dev, VkPipelineLayout layout, VkShaderModule *modules,
	uint32_t nhit, uint32_t nmiss, uint32_t maxRecursion, VkPipeline *pl) {
	uint32_t n = 1 + nhit + nmiss;
	VkPipelineShaderStageCreateInfo *stages = calloc(n, sizeof *stages);
	VkRayTracingShaderGroupCreateInfoNV *groups = calloc(n, sizeof *groups);
	if (stages == NULL || groups == NULL) {
		free(stages);
		free(groups);
		return VK_ERROR_OUT_OF_HOST_MEMORY;
	}
	for (uint32_t i = 0; i < n; i++) {
		stages[i].sType = VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO;
		stages[i].module = modules[i];
		stages[i].pName = "main";
		groups[i].sType = VK_STRUCTURE_TYPE_RAY_TRACING_SHADER_GROUP_CREATE_INFO_NV;
		groups[i].generalShader = VK_SHADER_UNUSED_NV;
		groups[i].closestHitShader = VK_SHADER_UNUSED_NV;
		groups[i].anyHitShader = VK_SHADER_UNUSED_NV;
		groups[i].intersectionShader = VK_SHADER_UNUSED_NV;
		if (i == 0) {
			stages[i].stage = VK_SHADER_STAGE_RAYGEN_BIT_NV;
			groups[i].type = VK_RAY_TRACING_SHADER_GROUP_TYPE_GENERAL_NV;
			groups[i].generalShader = i;
		} else if (i <= nhit) {
			stages[i].stage = VK_SHADER_STAGE_CLOSEST_HIT_BIT_NV;
			groups[i].type = VK_RAY_TRACING_SHADER_GROUP_TYPE_TRIANGLES_HIT_GROUP_NV;
			groups[i].closestHitShader = i;
		} else {
			stages[i].stage = VK_SHADER_STAGE_MISS_BIT_NV;
			groups[i].type = VK_RAY_TRACING_SHADER_GROUP_TYPE_GENERAL_NV;
			groups[i].generalShader = i;
		}
	}
	VkRayTracingPipelineCreateInfoNV info;
	memset(&info, 0, sizeof info);
	info.sType = VK_STRUCTURE_TYPE_RAY_TRACING_PIPELINE_CREATE_INFO_NV;
	info.stageCount = n;
	info.pStages = stages;
	info.groupCount = n;
	info.pGroups = groups;
	info.maxRecursionDepth = maxRecursion;
	info.layout = layout;
	info.basePipelineIndex = -1;
	VkResult r = p->pipelines(dev, VK_NULL_HANDLE, 1, &info, NULL, pl);
	free(stages);
	free(groups);
	return r;
}

static VkResult rtGroupHandles(rtProcs *p, VkDevice dev, VkPipeline pl, uint32_t n, size_t size, void *data) {
	return p->groupHandles(dev, pl, 0, n, size, data);
}

static void rtWriteAccel(rtProcs *p, VkDevice dev, VkDescriptorSet set, uint32_t binding, VkAccelerationStructureNV as) {
	VkWriteDescriptorSetAccelerationStructureNV info;
	VkWriteDescriptorSet w;
	memset(&info, 0, sizeof info);
	memset(&w, 0, sizeof w);
	info.sType = VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET_ACCELERATION_STRUCTURE_NV;
	info.accelerationStructureCount = 1;
	info.pAccelerationStructures = &as;
	w.sType = VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET;
	w.pNext = &info;
	w.dstSet = set;
	w.dstBinding = binding;
	w.descriptorCount = 1;
	w.descriptorType = VK_DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_NV;
	p->updateSets(dev, 1, &w, 0, NULL);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/tomas-mraz/vulkan"
)

// AS memory requirement kinds.
const (
	reqObject       = 0
	reqBuildScratch = 1
)

// rtNV holds the VK_NV_ray_tracing entry points of one device.
type rtNV struct {
	lib   unsafe.Pointer
	procs C.rtProcs
	dev   C.VkDevice

	HandleSize    int
	MaxRecursion  int
	BaseAlignment int
}

// loadRT opens the Vulkan loader and fetches the ray tracing procs for
// dev. The bindings do not expose the NV extension.
func loadRT(instance vk.Instance, gpu vk.PhysicalDevice, dev vk.Device) (*rtNV, error) {
	var lib *C.char
	switch runtime.GOOS {
	case "android":
		lib = C.CString("libvulkan.so")
	default:
		lib = C.CString("libvulkan.so.1")
	}
	defer C.free(unsafe.Pointer(lib))
	h := C.dlopen(lib, C.RTLD_LAZY|C.RTLD_LOCAL)
	if h == nil {
		return nil, errors.New("asch: cannot open the Vulkan loader")
	}
	sym := C.CString("vkGetInstanceProcAddr")
	defer C.free(unsafe.Pointer(sym))
	gipa := C.dlsym(h, sym)
	if gipa == nil {
		C.dlclose(h)
		return nil, errors.New("asch: vkGetInstanceProcAddr not found")
	}
	rt := &rtNV{lib: h, dev: C.VkDevice(unsafe.Pointer(dev))}
	if C.rtLoad(gipa, C.VkInstance(unsafe.Pointer(instance)), rt.dev, &rt.procs) != 0 {
		C.dlclose(h)
		return nil, fmt.Errorf("asch: %s entry points not found", rayTracingExtensionName)
	}
	var hs, mr, ba C.uint32_t
	C.rtProperties(&rt.procs, C.VkPhysicalDevice(unsafe.Pointer(gpu)), &hs, &mr, &ba)
	rt.HandleSize, rt.MaxRecursion, rt.BaseAlignment = int(hs), int(mr), int(ba)
	return rt, nil
}

func (rt *rtNV) close() {
	if rt.lib != nil {
		C.dlclose(rt.lib)
		rt.lib = nil
	}
}

type rtGeometry = C.rtGeometry

func bottomGeometry(vertices vk.Buffer, vertexCount int, indices vk.Buffer, indexCount int) rtGeometry {
	return rtGeometry{
		vertices:    C.VkBuffer(unsafe.Pointer(vertices)),
		vertexCount: C.uint32_t(vertexCount),
		indices:     C.VkBuffer(unsafe.Pointer(indices)),
		indexCount:  C.uint32_t(indexCount),
	}
}

func topGeometry(instances int) rtGeometry {
	return rtGeometry{top: 1, instances: C.uint32_t(instances)}
}

type rtAccel = C.VkAccelerationStructureNV

func (rt *rtNV) create(g *rtGeometry) (rtAccel, error) {
	var as rtAccel
	ret := vk.Result(C.rtCreate(&rt.procs, rt.dev, g, &as))
	return as, vkError("vkCreateAccelerationStructureNV", ret)
}

func (rt *rtNV) destroy(as rtAccel) {
	C.rtDestroy(&rt.procs, rt.dev, as)
}

func (rt *rtNV) memReqs(as rtAccel, kind int) (size int64, typeBits uint32) {
	var sz C.VkDeviceSize
	var bits C.uint32_t
	C.rtMemReqs(&rt.procs, rt.dev, as, C.int(kind), &sz, &bits)
	return int64(sz), uint32(bits)
}

func (rt *rtNV) bind(as rtAccel, mem vk.DeviceMemory) error {
	ret := vk.Result(C.rtBind(&rt.procs, rt.dev, as, C.VkDeviceMemory(unsafe.Pointer(mem))))
	return vkError("vkBindAccelerationStructureMemoryNV", ret)
}

func (rt *rtNV) handle(as rtAccel) (uint64, error) {
	var h C.uint64_t
	ret := vk.Result(C.rtHandle(&rt.procs, rt.dev, as, &h))
	return uint64(h), vkError("vkGetAccelerationStructureHandleNV", ret)
}

func (rt *rtNV) cmdBuild(cb vk.CommandBuffer, g *rtGeometry, inst vk.Buffer, dst rtAccel, scratch vk.Buffer) {
	C.rtCmdBuild(&rt.procs, C.VkCommandBuffer(unsafe.Pointer(cb)), g,
		C.VkBuffer(unsafe.Pointer(inst)), dst, C.VkBuffer(unsafe.Pointer(scratch)))
}

func (rt *rtNV) cmdTrace(cb vk.CommandBuffer, sbt vk.Buffer, stride, missOffset, hitOffset int64, w, h int) {
	C.rtTrace(&rt.procs, C.VkCommandBuffer(unsafe.Pointer(cb)), C.VkBuffer(unsafe.Pointer(sbt)),
		C.VkDeviceSize(stride), C.VkDeviceSize(missOffset), C.VkDeviceSize(hitOffset),
		C.uint32_t(w), C.uint32_t(h))
}

// createPipeline creates a pipeline whose stages are, in order, the
// raygen shader, nhit closest hit shaders and nmiss miss shaders, each
// in its own group.
func (rt *rtNV) createPipeline(layout vk.PipelineLayout, modules []vk.ShaderModule, nhit, nmiss, maxRecursion int) (vk.Pipeline, error) {
	mods := make([]C.VkShaderModule, len(modules))
	for i, m := range modules {
		mods[i] = C.VkShaderModule(unsafe.Pointer(m))
	}
	var pl C.VkPipeline
	ret := vk.Result(C.rtCreatePipeline(&rt.procs, rt.dev, C.VkPipelineLayout(unsafe.Pointer(layout)),
		&mods[0], C.uint32_t(nhit), C.uint32_t(nmiss), C.uint32_t(maxRecursion), &pl))
	if err := vkError("vkCreateRayTracingPipelinesNV", ret); err != nil {
		return nil, err
	}
	return vk.Pipeline(unsafe.Pointer(pl)), nil
}

// groupHandles returns the shader group handles of pl, HandleSize bytes
// per group.
func (rt *rtNV) groupHandles(pl vk.Pipeline, groups int) ([]byte, error) {
	data := make([]byte, groups*rt.HandleSize)
	ret := vk.Result(C.rtGroupHandles(&rt.procs, rt.dev, C.VkPipeline(unsafe.Pointer(pl)),
		C.uint32_t(groups), C.size_t(len(data)), unsafe.Pointer(&data[0])))
	return data, vkError("vkGetRayTracingShaderGroupHandlesNV", ret)
}

func (rt *rtNV) writeAccel(set vk.DescriptorSet, binding int, as rtAccel) {
	C.rtWriteAccel(&rt.procs, rt.dev, C.VkDescriptorSet(unsafe.Pointer(set)), C.uint32_t(binding), as)
}
