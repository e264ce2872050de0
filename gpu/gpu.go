// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package gpu defines the device-neutral interfaces the renderer is
// written against. The Vulkan implementation lives in the root package;
// package gputest provides a recording fake.
package gpu

// GPU is the main interface to an underlying device session.
// It is used to create other types and to execute commands.
// Every object it returns must be destroyed before the GPU itself.
type GPU interface {
	Destroyer

	// NewBuffer creates a new buffer. Host-visible buffers stay
	// mapped for their whole lifetime. Device-local buffers with
	// initial data are filled through a staging copy.
	NewBuffer(cfg *BufferConfig) (Buffer, error)

	// NewImage creates a new 2D image with a view. The image is
	// transitioned to cfg.Layout before NewImage returns.
	NewImage(cfg *ImageConfig) (Image, error)

	// NewSampler creates a new sampler.
	NewSampler(cfg *SamplerConfig) (Sampler, error)

	// NewShaderCode creates a new shader module from SPIR-V.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewBLAS creates a bottom-level acceleration structure over
	// one triangle geometry. It is not built until
	// CmdBuffer.BuildAccel is recorded and committed.
	NewBLAS(geom *Geometry) (AccelStruct, error)

	// NewTLAS creates a top-level acceleration structure able to
	// reference n instances.
	NewTLAS(n int) (AccelStruct, error)

	// NewDescLayout creates a descriptor set layout.
	NewDescLayout(ds []Descriptor) (DescLayout, error)

	// NewDescSets allocates n descriptor sets of the given layout
	// from a pool owned by the layout.
	NewDescSets(layout DescLayout, n int) ([]DescSet, error)

	// NewRTPipeline creates a ray tracing pipeline and its shader
	// binding table.
	NewRTPipeline(state *RTState) (Pipeline, error)

	// NewGraphPipeline creates a graphics pipeline for one subpass.
	NewGraphPipeline(state *GraphState) (Pipeline, error)

	// NewRenderPass creates a new render pass.
	NewRenderPass(att []Attachment, sub []Subpass, dep []Dependency) (RenderPass, error)

	// NewCmdBuffer creates a new primary command buffer.
	NewCmdBuffer() (CmdBuffer, error)

	// NewFence creates a fence, optionally in the signaled state.
	NewFence(signaled bool) (Fence, error)

	// NewSemaphore creates a binary semaphore.
	NewSemaphore() (Semaphore, error)

	// Wait blocks until f is signaled. There is no timeout.
	Wait(f Fence) error

	// Reset returns f to the unsignaled state.
	Reset(f Fence) error

	// Submit submits a recorded command buffer to the graphics
	// queue.
	Submit(cb CmdBuffer, info *SubmitInfo) error

	// OneShot records a transient command buffer with fn, submits it
	// and waits for the queue to become idle.
	OneShot(fn func(cb CmdBuffer) error) error

	// WaitIdle blocks until the device has no outstanding work.
	WaitIdle() error
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface own memory that is not
// managed by the GC, so Destroy must be called explicitly.
type Destroyer interface {
	Destroy()
}

// Fence is a GPU to CPU synchronization primitive.
type Fence interface {
	Destroyer
}

// Semaphore is a GPU to GPU synchronization primitive.
type Semaphore interface {
	Destroyer
}

// SubmitInfo describes the synchronization of one submission.
// Wait and Signal are optional.
type SubmitInfo struct {
	Wait      Semaphore
	WaitStage Sync
	Signal    Semaphore
	Fence     Fence
}

// Target is the set of presentable images a frame finally lands in.
// Onscreen targets are backed by a swapchain; offscreen targets own
// a single image and cannot present.
type Target interface {
	Destroyer

	// Images returns the presentable images, indexed by the value
	// Acquire returns.
	Images() []Image

	// Format returns the pixel format of every image.
	Format() Format

	// Size returns the extent of every image.
	Size() (width, height int)

	// CanPresent reports whether Acquire and Present are usable.
	CanPresent() bool

	// Acquire obtains the next presentable image, signaling sem
	// once it can be written. It never times out.
	Acquire(sem Semaphore) (int, error)

	// Present queues image idx for presentation after wait is
	// signaled.
	Present(idx int, wait Semaphore) error

	// PresentLayout is the layout images must be in when a frame
	// ends.
	PresentLayout() Layout
}
