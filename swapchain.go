// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	"fmt"
	"log/slog"

	vk "github.com/tomas-mraz/vulkan"
)

// swapchainUsage is what frames do with presentable images: render into
// them and copy from them.
const swapchainUsage = vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit

// swapchainInfo is a created swapchain and its chosen surface format.
type swapchainInfo struct {
	Swapchain     vk.Swapchain
	DisplaySize   vk.Extent2D
	DisplayFormat vk.Format
	Images        []vk.Image
}

func newSwapchain(d *Device, windowSize vk.Extent2D) (swapchainInfo, error) {
	gpu, surface := d.GpuDevice, d.Surface

	// Phase 1: vk.GetPhysicalDeviceSurfaceCapabilities
	//			vk.GetPhysicalDeviceSurfaceFormats

	var swap swapchainInfo
	var surfaceCapabilities vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &surfaceCapabilities)
	if err := vkError("vk.GetPhysicalDeviceSurfaceCapabilities", ret); err != nil {
		return swap, err
	}
	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)
	defer func() {
		for i := range formats {
			formats[i].Free()
		}
	}()

	slog.Debug(fmt.Sprintf("got %d physical device surface formats", formatCount))

	chosenFormat := -1
	for i := 0; i < int(formatCount); i++ {
		formats[i].Deref()
		if formats[i].Format == vk.FormatB8g8r8a8Unorm || formats[i].Format == vk.FormatR8g8b8a8Unorm {
			chosenFormat = i
			break
		}
	}
	if chosenFormat < 0 {
		err := fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats not found suitable format")
		return swap, err
	}

	// Phase 2: vk.CreateSwapchain
	//			create a swapchain with supported capabilities and format

	surfaceCapabilities.Deref()
	if surfaceCapabilities.SupportedUsageFlags&vk.ImageUsageFlags(swapchainUsage) != vk.ImageUsageFlags(swapchainUsage) {
		return swap, fmt.Errorf("asch: surface images cannot be rendered to and copied from (usage %#x)", surfaceCapabilities.SupportedUsageFlags)
	}
	swap.DisplayFormat = formats[chosenFormat].Format

	surfaceCapabilities.CurrentExtent.Deref()
	if surfaceCapabilities.CurrentExtent.Width == vk.MaxUint32 {
		// Wayland specific https://docs.vulkan.org/spec/latest/chapters/VK_KHR_surface/wsi.html#vkCreateAndroidSurfaceKHR
		swap.DisplaySize = windowSize
		slog.Debug("[wayland specific] surface extent size is not set, using window size")
	} else {
		swap.DisplaySize = surfaceCapabilities.CurrentExtent
	}
	slog.Debug(fmt.Sprintf("final display size is %d x %d", swap.DisplaySize.Width, swap.DisplaySize.Height))

	imageCount := surfaceCapabilities.MinImageCount + 1
	if limit := surfaceCapabilities.MaxImageCount; limit > 0 && imageCount > limit {
		imageCount = limit
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      formats[chosenFormat].Format,
		ImageColorSpace:  formats[chosenFormat].ColorSpace,
		ImageExtent:      swap.DisplaySize,
		ImageUsage:       vk.ImageUsageFlags(swapchainUsage),
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		PresentMode:      vk.PresentModeFifo,
		OldSwapchain:     vk.NullSwapchain,
		Clipped:          vk.True,
	}
	ret = vk.CreateSwapchain(d.Device, &swapchainCreateInfo, nil, &swap.Swapchain)
	if err := vkError("vk.CreateSwapchain", ret); err != nil {
		return swap, err
	}

	// Phase 3: vk.GetSwapchainImages

	var swapchainImagesCount uint32
	ret = vk.GetSwapchainImages(d.Device, swap.Swapchain, &swapchainImagesCount, nil)
	if ret == vk.Success {
		swap.Images = make([]vk.Image, swapchainImagesCount)
		ret = vk.GetSwapchainImages(d.Device, swap.Swapchain, &swapchainImagesCount, swap.Images)
	}
	if err := vkError("vk.GetSwapchainImages", ret); err != nil {
		vk.DestroySwapchain(d.Device, swap.Swapchain, nil)
		return swapchainInfo{}, err
	}
	return swap, nil
}
