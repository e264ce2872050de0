// Copyright (c) 2025 Cubyte.online under the AGPL License
// Copyright (c) 2022 Cogent Core. under the BSD-style License
// Copyright (c) 2017 Maxim Kupriianov <max@kc.vc>, under the MIT License

package asch

import (
	"fmt"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Image represents a vulkan image with an associated ImageView.
// The vulkan Image is in device memory, in an optimized format.
type Image struct {

	// name of the image, helpful for debugging
	name string

	// format & size of image
	Info ImageFormat

	// vulkan image handle, in device memory
	Image vk.Image

	// vulkan image view
	View vk.ImageView

	// memory for image when we allocate it
	Mem vk.DeviceMemory

	// keep track of device for destroying view
	Dev vk.Device

	format gpu.Format

	// swapchain images are owned by the swapchain, only the view is ours
	foreign bool
}

func (im *Image) Name() string       { return im.name }
func (im *Image) Format() gpu.Format { return im.format }

func (im *Image) Size() (width, height int) {
	return im.Info.Size.X, im.Info.Size.Y
}

func (im *Image) extent() vk.Offset3D {
	return vk.Offset3D{X: int32(im.Info.Size.X), Y: int32(im.Info.Size.Y), Z: 1}
}

func (d *Device) NewImage(cfg *gpu.ImageConfig) (gpu.Image, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	im := &Image{
		name:   cfg.Name,
		Info:   NewImageFormat(cfg.Width, cfg.Height, vkFormat(cfg.Format)),
		Dev:    d.Device,
		format: cfg.Format,
	}
	if err := d.initImage(im, cfg); err != nil {
		im.Destroy()
		return nil, fmt.Errorf("asch: image %q: %w", cfg.Name, err)
	}
	return im, nil
}

func (d *Device) initImage(im *Image, cfg *gpu.ImageConfig) error {
	ret := vk.CreateImage(d.Device, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    im.Info.Format,
		Extent: vk.Extent3D{
			Width:  uint32(cfg.Width),
			Height: uint32(cfg.Height),
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       im.Info.Samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         convImageUsage(cfg.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &im.Image)
	if err := vkError("vk.CreateImage", ret); err != nil {
		return err
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.Device, im.Image, &memReqs)
	memReqs.Deref()
	var err error
	im.Mem, err = d.allocMemory(int64(memReqs.Size), memReqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return err
	}
	if err := vkError("vk.BindImageMemory", vk.BindImageMemory(d.Device, im.Image, im.Mem, 0)); err != nil {
		return err
	}
	if err := im.ConfigStdView(); err != nil {
		return err
	}

	if cfg.Data == nil {
		if cfg.Layout == gpu.LUndefined {
			return nil
		}
		return d.oneShot(func(cb *CmdBuffer) error {
			cb.Transition([]gpu.Transition{im.ready(gpu.STopOfPipe, gpu.ANone, gpu.LUndefined, cfg.Layout)})
			return nil
		})
	}

	stage, err := d.staging(cfg.Data)
	if err != nil {
		return err
	}
	defer stage.Destroy()
	return d.oneShot(func(cb *CmdBuffer) error {
		cb.Transition([]gpu.Transition{{
			Barrier: gpu.Barrier{
				SyncBefore:  gpu.STopOfPipe,
				SyncAfter:   gpu.SCopy,
				AccessAfter: gpu.ACopyWrite,
			},
			LayoutBefore: gpu.LUndefined,
			LayoutAfter:  gpu.LCopyDst,
			Image:        im,
		}})
		cb.copyToImage(stage, im)
		cb.Transition([]gpu.Transition{im.ready(gpu.SCopy, gpu.ACopyWrite, gpu.LCopyDst, cfg.Layout)})
		return nil
	})
}

// ready is the transition that leaves a new image in layout for any
// later shader or attachment use.
func (im *Image) ready(sync gpu.Sync, access gpu.Access, from, layout gpu.Layout) gpu.Transition {
	return gpu.Transition{
		Barrier: gpu.Barrier{
			SyncBefore:   sync,
			SyncAfter:    gpu.SRayTracing | gpu.SFragmentShading | gpu.SColorOutput | gpu.SCopy,
			AccessBefore: access,
			AccessAfter:  gpu.AShaderRead | gpu.AShaderWrite | gpu.AColorWrite | gpu.ACopyRead | gpu.ACopyWrite,
		},
		LayoutBefore: from,
		LayoutAfter:  layout,
		Image:        im,
	}
}

// ConfigStdView configures a standard 2D image view, for current image,
// format, and device.
func (im *Image) ConfigStdView() error {
	im.DestroyView()
	var view vk.ImageView
	ret := vk.CreateImageView(im.Dev, &vk.ImageViewCreateInfo{
		SType:  vk.StructureTypeImageViewCreateInfo,
		Format: im.Info.Format,
		Components: vk.ComponentMapping{ // this is the default anyway
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorRange,
		ViewType:         vk.ImageViewType2d,
		Image:            im.Image,
	}, nil, &view)
	if err := vkError("vk.CreateImageView", ret); err != nil {
		return err
	}
	im.View = view
	return nil
}

// DestroyView destroys any existing view
func (im *Image) DestroyView() {
	if im.View == vk.NullImageView {
		return
	}
	vk.DestroyImageView(im.Dev, im.View, nil)
	im.View = vk.NullImageView
}

func (im *Image) Destroy() {
	im.DestroyView()
	if im.foreign {
		return
	}
	if im.Image != vk.NullImage {
		vk.DestroyImage(im.Dev, im.Image, nil)
		im.Image = vk.NullImage
	}
	if im.Mem != vk.NullDeviceMemory {
		vk.FreeMemory(im.Dev, im.Mem, nil)
		im.Mem = vk.NullDeviceMemory
	}
}
