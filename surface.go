// Copyright (c) 2025 Cubyte.online under the AGPL License
// Copyright (c) 2022 Cogent Core. under the BSD-style License
// Copyright (c) 2017 Maxim Kupriianov <max@kc.vc>, under the MIT License

package asch

import (
	"errors"
	"fmt"
	"log/slog"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// ErrOutOfDate is returned by Acquire and Present once the window
// surface no longer matches the swapchain. Swapchains are not
// recreated; the renderer stops.
var ErrOutOfDate = errors.New("asch: swapchain out of date")

var _ gpu.Target = (*Surface)(nil)

// Surface is the onscreen target: the swapchain of the window surface
// of a Device.
type Surface struct {
	dev       *Device
	Swapchain vk.Swapchain // vulkan handle for swapchain
	Info      ImageFormat  // has the current swapchain image format and dimensions
	images    []gpu.Image
	format    gpu.Format
}

// NewSurface creates the swapchain of d's window surface. The window
// size is used only when the surface leaves the extent to the
// application (Wayland).
func NewSurface(d *Device, width, height int) (*Surface, error) {
	if !d.CanPresent() {
		return nil, errors.New("asch: device has no window surface")
	}
	swap, err := newSwapchain(d, NewExtentSize(width, height))
	if err != nil {
		return nil, err
	}
	sf := &Surface{
		dev:       d,
		Swapchain: swap.Swapchain,
		Info:      NewImageFormat(int(swap.DisplaySize.Width), int(swap.DisplaySize.Height), swap.DisplayFormat),
		format:    gpuFormat(swap.DisplayFormat),
	}
	for i, img := range swap.Images {
		im := &Image{
			name:    fmt.Sprintf("swapchain-%d", i),
			Info:    sf.Info,
			Image:   img,
			Dev:     d.Device,
			format:  sf.format,
			foreign: true,
		}
		if err := im.ConfigStdView(); err != nil {
			sf.Destroy()
			return nil, err
		}
		sf.images = append(sf.images, im)
	}
	slog.Debug(fmt.Sprintf("Swapchain with %d images of %dx%d", len(sf.images), sf.Info.Size.X, sf.Info.Size.Y))
	return sf, nil
}

func (sf *Surface) Images() []gpu.Image       { return sf.images }
func (sf *Surface) Format() gpu.Format        { return sf.format }
func (sf *Surface) CanPresent() bool          { return true }
func (sf *Surface) PresentLayout() gpu.Layout { return gpu.LPresent }

func (sf *Surface) Size() (width, height int) {
	return sf.Info.Size.X, sf.Info.Size.Y
}

// Acquire gets the next image index to render to, with an infinite
// timeout. sem is signaled once the image can be written.
func (sf *Surface) Acquire(sem gpu.Semaphore) (int, error) {
	var idx uint32
	ret := vk.AcquireNextImage(sf.dev.Device, sf.Swapchain, vk.MaxUint64, sem.(*Semaphore).Semaphore, vk.NullFence, &idx)
	switch ret {
	case vk.Success:
		return int(idx), nil
	case vk.Suboptimal:
		slog.Warn("vk.AcquireNextImage returned Suboptimal")
		return int(idx), nil
	case vk.ErrorOutOfDate:
		return 0, ErrOutOfDate
	}
	return 0, vkError("vk.AcquireNextImage", ret)
}

// Present queues image idx once wait is signaled.
func (sf *Surface) Present(idx int, wait gpu.Semaphore) error {
	presentInfo := &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*Semaphore).Semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sf.Swapchain},
		PImageIndices:      []uint32{uint32(idx)},
	}
	ret := vk.QueuePresent(sf.dev.Queue, presentInfo)
	switch ret {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		slog.Warn("vk.QueuePresent returned Suboptimal")
		return nil
	case vk.ErrorOutOfDate:
		return ErrOutOfDate
	}
	return vkError("vk.QueuePresent", ret)
}

func (sf *Surface) Destroy() {
	for _, im := range sf.images {
		im.Destroy()
	}
	sf.images = nil
	if sf.Swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(sf.dev.Device, sf.Swapchain, nil)
		sf.Swapchain = vk.NullSwapchain
	}
}
