// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

func TestConvSyncEmptyScope(t *testing.T) {
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), convSync(gpu.SNone, true))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), convSync(gpu.SNone, false))
}

func TestConvSyncCombinesStages(t *testing.T) {
	got := convSync(gpu.SASBuild|gpu.SRayTracing, true)
	assert.Equal(t, vk.PipelineStageFlags(pipelineStageASBuildNV|pipelineStageRayTracingNV), got)
}

func TestConvAccess(t *testing.T) {
	assert.Zero(t, convAccess(gpu.ANone))
	got := convAccess(gpu.AASWrite | gpu.AASRead | gpu.AShaderRead)
	assert.Equal(t, vk.AccessFlags(accessASWriteNV|accessASReadNV|vk.AccessShaderReadBit), got)
}

func TestConvLayout(t *testing.T) {
	cases := map[gpu.Layout]vk.ImageLayout{
		gpu.LUndefined:   vk.ImageLayoutUndefined,
		gpu.LGeneral:     vk.ImageLayoutGeneral,
		gpu.LColorTarget: vk.ImageLayoutColorAttachmentOptimal,
		gpu.LShaderRead:  vk.ImageLayoutShaderReadOnlyOptimal,
		gpu.LCopySrc:     vk.ImageLayoutTransferSrcOptimal,
		gpu.LCopyDst:     vk.ImageLayoutTransferDstOptimal,
		gpu.LPresent:     vk.ImageLayoutPresentSrc,
	}
	for l, want := range cases {
		assert.Equal(t, want, convLayout(l), l.String())
	}
}

func TestConvDescKind(t *testing.T) {
	assert.Equal(t, descriptorTypeAccelNV, convDescKind(gpu.DAccel))
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, convDescKind(gpu.DSampledImage))
	assert.Panics(t, func() { convDescKind(gpu.DescKind(99)) })
}

func TestConvBufferUsage(t *testing.T) {
	got := convBufferUsage(gpu.UStorage | gpu.URayTracing)
	assert.Equal(t, vk.BufferUsageStorageBufferBit|bufferUsageRayTracingNV, got)
}

func TestFormatsRoundTrip(t *testing.T) {
	for f, vf := range formats {
		assert.Equal(t, vf, vkFormat(f))
		assert.Equal(t, f, gpuFormat(vf))
	}
	assert.Equal(t, vk.FormatUndefined, vkFormat(gpu.FormatUndefined))
	assert.Equal(t, gpu.FormatUndefined, gpuFormat(vk.FormatD32Sfloat))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, int64(64), alignUp(16, 64))
	assert.Equal(t, int64(128), alignUp(65, 64))
	assert.Equal(t, int64(64), alignUp(64, 64))
	assert.Equal(t, int64(16), alignUp(16, 0))
}

func TestSafeString(t *testing.T) {
	assert.Equal(t, "\x00", safeString(""))
	assert.Equal(t, "main\x00", safeString("main"))
	assert.Equal(t, "main\x00", safeString("main\x00"))
	assert.Equal(t, "abc", getCString([]byte{'a', 'b', 'c', 0, 0}))
}

func TestDeviceConfigValidate(t *testing.T) {
	var cfg DeviceConfig
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "vulkan-hybrid", cfg.AppName)

	cfg = DeviceConfig{Window: 1}
	assert.Error(t, cfg.Validate())
}

func TestVkErrorNamesCallAndPlace(t *testing.T) {
	assert.NoError(t, vkError("vk.CreateFence", vk.Success))
	err := vkError("vk.CreateFence", vk.ErrorOutOfDeviceMemory)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vk.CreateFence failed with")
	assert.Contains(t, err.Error(), "conv_test.go:")
}
