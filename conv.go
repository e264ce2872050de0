// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// VK_NV_ray_tracing enumerants missing from the bindings.
const (
	descriptorTypeAccelNV        = vk.DescriptorType(1000165000)
	bindPointRayTracingNV        = vk.PipelineBindPoint(1000165000)
	shaderStageRaygenNV          = vk.ShaderStageFlagBits(0x100)
	shaderStageClosestHitNV      = vk.ShaderStageFlagBits(0x400)
	shaderStageMissNV            = vk.ShaderStageFlagBits(0x800)
	pipelineStageRayTracingNV    = vk.PipelineStageFlagBits(0x00200000)
	pipelineStageASBuildNV       = vk.PipelineStageFlagBits(0x02000000)
	accessASReadNV               = vk.AccessFlagBits(0x00200000)
	accessASWriteNV              = vk.AccessFlagBits(0x00400000)
	bufferUsageRayTracingNV      = vk.BufferUsageFlagBits(0x400)
	rayTracingExtensionName      = "VK_NV_ray_tracing"
	memoryRequirements2Extension = "VK_KHR_get_memory_requirements2"
)

func convSync(s gpu.Sync, src bool) vk.PipelineStageFlags {
	if s == gpu.SNone {
		if src {
			return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		}
		return vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	var f vk.PipelineStageFlagBits
	if s&gpu.STopOfPipe != 0 {
		f |= vk.PipelineStageTopOfPipeBit
	}
	if s&gpu.SRayTracing != 0 {
		f |= pipelineStageRayTracingNV
	}
	if s&gpu.SASBuild != 0 {
		f |= pipelineStageASBuildNV
	}
	if s&gpu.SVertexShading != 0 {
		f |= vk.PipelineStageVertexShaderBit
	}
	if s&gpu.SFragmentShading != 0 {
		f |= vk.PipelineStageFragmentShaderBit
	}
	if s&gpu.SColorOutput != 0 {
		f |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&gpu.SCopy != 0 {
		f |= vk.PipelineStageTransferBit
	}
	if s&gpu.SBottomOfPipe != 0 {
		f |= vk.PipelineStageBottomOfPipeBit
	}
	return vk.PipelineStageFlags(f)
}

func convAccess(a gpu.Access) vk.AccessFlags {
	var f vk.AccessFlagBits
	if a&gpu.AASRead != 0 {
		f |= accessASReadNV
	}
	if a&gpu.AASWrite != 0 {
		f |= accessASWriteNV
	}
	if a&gpu.AShaderRead != 0 {
		f |= vk.AccessShaderReadBit
	}
	if a&gpu.AShaderWrite != 0 {
		f |= vk.AccessShaderWriteBit
	}
	if a&gpu.AColorRead != 0 {
		f |= vk.AccessColorAttachmentReadBit
	}
	if a&gpu.AColorWrite != 0 {
		f |= vk.AccessColorAttachmentWriteBit
	}
	if a&gpu.AInputRead != 0 {
		f |= vk.AccessInputAttachmentReadBit
	}
	if a&gpu.ACopyRead != 0 {
		f |= vk.AccessTransferReadBit
	}
	if a&gpu.ACopyWrite != 0 {
		f |= vk.AccessTransferWriteBit
	}
	if a&gpu.AHostWrite != 0 {
		f |= vk.AccessHostWriteBit
	}
	return vk.AccessFlags(f)
}

func convLayout(l gpu.Layout) vk.ImageLayout {
	switch l {
	case gpu.LGeneral:
		return vk.ImageLayoutGeneral
	case gpu.LColorTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case gpu.LShaderRead:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gpu.LCopySrc:
		return vk.ImageLayoutTransferSrcOptimal
	case gpu.LCopyDst:
		return vk.ImageLayoutTransferDstOptimal
	case gpu.LPresent:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

func convImageUsage(u gpu.Usage) vk.ImageUsageFlags {
	var f vk.ImageUsageFlagBits
	if u&gpu.UCopySrc != 0 {
		f |= vk.ImageUsageTransferSrcBit
	}
	if u&gpu.UCopyDst != 0 {
		f |= vk.ImageUsageTransferDstBit
	}
	if u&gpu.USampled != 0 {
		f |= vk.ImageUsageSampledBit
	}
	if u&gpu.UStorageImage != 0 {
		f |= vk.ImageUsageStorageBit
	}
	if u&gpu.UColorTarget != 0 {
		f |= vk.ImageUsageColorAttachmentBit
	}
	if u&gpu.UInputAttachment != 0 {
		f |= vk.ImageUsageInputAttachmentBit
	}
	return vk.ImageUsageFlags(f)
}

func convBufferUsage(u gpu.Usage) vk.BufferUsageFlagBits {
	var f vk.BufferUsageFlagBits
	if u&gpu.UCopySrc != 0 {
		f |= vk.BufferUsageTransferSrcBit
	}
	if u&gpu.UCopyDst != 0 {
		f |= vk.BufferUsageTransferDstBit
	}
	if u&gpu.UUniform != 0 {
		f |= vk.BufferUsageUniformBufferBit
	}
	if u&gpu.UStorage != 0 {
		f |= vk.BufferUsageStorageBufferBit
	}
	if u&gpu.UVertex != 0 {
		f |= vk.BufferUsageVertexBufferBit
	}
	if u&gpu.UIndex != 0 {
		f |= vk.BufferUsageIndexBufferBit
	}
	if u&gpu.URayTracing != 0 {
		f |= bufferUsageRayTracingNV
	}
	return f
}

func convDescKind(k gpu.DescKind) vk.DescriptorType {
	switch k {
	case gpu.DAccel:
		return descriptorTypeAccelNV
	case gpu.DStorageImage:
		return vk.DescriptorTypeStorageImage
	case gpu.DSampledImage:
		return vk.DescriptorTypeCombinedImageSampler
	case gpu.DUniform:
		return vk.DescriptorTypeUniformBuffer
	case gpu.DStorage:
		return vk.DescriptorTypeStorageBuffer
	case gpu.DInputAttachment:
		return vk.DescriptorTypeInputAttachment
	}
	panic("asch: invalid descriptor kind " + k.String())
}

func convStages(s gpu.Stage) vk.ShaderStageFlags {
	var f vk.ShaderStageFlagBits
	if s&gpu.StRaygen != 0 {
		f |= shaderStageRaygenNV
	}
	if s&gpu.StClosestHit != 0 {
		f |= shaderStageClosestHitNV
	}
	if s&gpu.StMiss != 0 {
		f |= shaderStageMissNV
	}
	if s&gpu.StVertex != 0 {
		f |= vk.ShaderStageVertexBit
	}
	if s&gpu.StFragment != 0 {
		f |= vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageFlags(f)
}

func convLoadOp(op gpu.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case gpu.LClear:
		return vk.AttachmentLoadOpClear
	case gpu.LLoad:
		return vk.AttachmentLoadOpLoad
	}
	return vk.AttachmentLoadOpDontCare
}

func convStoreOp(op gpu.StoreOp) vk.AttachmentStoreOp {
	if op == gpu.SStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

func convSubpass(i int) uint32 {
	if i == gpu.External {
		return vk.SubpassExternal
	}
	return uint32(i)
}
