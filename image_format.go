// Copyright (c) 2025 Cubyte.online under the AGPL License
// Copyright (c) 2022 Cogent Core. under the BSD-style License
// Copyright (c) 2017 Maxim Kupriianov <max@kc.vc>, under the MIT License

package asch

import (
	"image"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// ImageFormat describes the size and vulkan format of an Image
type ImageFormat struct {

	// Size of image
	Size image.Point

	// Image format -- FormatR8g8b8a8Unorm is the default
	Format vk.Format

	// number of samples -- always SampleCount1Bit, the renderer traces
	// and composites at one sample per pixel
	Samples vk.SampleCountFlagBits
}

// NewImageFormat returns an ImageFormat of the given size and format.
func NewImageFormat(width, height int, ft vk.Format) ImageFormat {
	var im ImageFormat
	im.Defaults()
	im.Set(width, height, ft)
	return im
}

func (im *ImageFormat) Defaults() {
	im.Format = vk.FormatR8g8b8a8Unorm
	im.Samples = vk.SampleCount1Bit
}

// SetSize sets the width, height
func (im *ImageFormat) SetSize(w, h int) {
	im.Size = image.Point{X: w, Y: h}
}

// Set sets width, height and format
func (im *ImageFormat) Set(w, h int, ft vk.Format) {
	im.SetSize(w, h)
	im.Format = ft
}

// Extent returns the size as a vk.Extent2D.
func (im *ImageFormat) Extent() vk.Extent2D {
	return NewExtentSize(im.Size.X, im.Size.Y)
}

var formats = map[gpu.Format]vk.Format{
	gpu.RGBA8Unorm:  vk.FormatR8g8b8a8Unorm,
	gpu.BGRA8Unorm:  vk.FormatB8g8r8a8Unorm,
	gpu.RGBA8Srgb:   vk.FormatR8g8b8a8Srgb,
	gpu.BGRA8Srgb:   vk.FormatB8g8r8a8Srgb,
	gpu.RGBA32Float: vk.FormatR32g32b32a32Sfloat,
	gpu.RGB32Float:  vk.FormatR32g32b32Sfloat,
	gpu.RG32Float:   vk.FormatR32g32Sfloat,
}

func vkFormat(f gpu.Format) vk.Format {
	if vf, ok := formats[f]; ok {
		return vf
	}
	return vk.FormatUndefined
}

// gpuFormat maps a surface format back, or FormatUndefined when the
// renderer cannot use it.
func gpuFormat(vf vk.Format) gpu.Format {
	for f, v := range formats {
		if v == vf {
			return f
		}
	}
	return gpu.FormatUndefined
}
