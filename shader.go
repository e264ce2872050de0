// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	"errors"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// ShaderCode is a SPIR-V shader module. Every stage uses the entry
// point "main".
type ShaderCode struct {
	dev    vk.Device
	Module vk.ShaderModule
}

func (s *ShaderCode) Destroy() {
	if s.Module != vk.NullShaderModule {
		vk.DestroyShaderModule(s.dev, s.Module, nil)
		s.Module = vk.NullShaderModule
	}
}

func (d *Device) NewShaderCode(data []byte) (gpu.ShaderCode, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.New("asch: shader code is not a SPIR-V word stream")
	}
	s := &ShaderCode{dev: d.Device}
	ret := vk.CreateShaderModule(d.Device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    sliceUint32(data),
	}, nil, &s.Module)
	if err := vkError("vk.CreateShaderModule", ret); err != nil {
		return nil, err
	}
	return s, nil
}

func shaderStage(code gpu.ShaderCode, stage vk.ShaderStageFlagBits) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: code.(*ShaderCode).Module,
		PName:  "main\x00",
	}
}
