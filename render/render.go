// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package render is the hybrid renderer: scenes are built into
// acceleration structures, G-buffer images and pipelines, then frames
// are traced and composited through the frame sequencer.
package render

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"cogentcore.org/core/math32"

	"github.com/tomas-mraz/vulkan-hybrid/accel"
	"github.com/tomas-mraz/vulkan-hybrid/camera"
	"github.com/tomas-mraz/vulkan-hybrid/frame"
	"github.com/tomas-mraz/vulkan-hybrid/gpu"
	"github.com/tomas-mraz/vulkan-hybrid/scene"
)

// ErrNoScene is returned by frame operations before BuildScene.
var ErrNoScene = errors.New("render: no scene built")

// Options configures a Renderer.
type Options struct {
	// FramesInFlight bounds the frames submitted ahead of the GPU.
	FramesInFlight int
	// Format of the offscreen image when there is no onscreen
	// target. Ignored otherwise.
	Format gpu.Format
	// Noise is the ambient occlusion rotation texture. Generated
	// noise is used when nil.
	Noise *image.RGBA

	Animate bool
	Blur    bool
	AO      bool
}

// DefaultOptions returns two frames in flight with every effect on.
func DefaultOptions() Options {
	return Options{FramesInFlight: 2, Format: gpu.BGRA8Unorm, Animate: true, Blur: true, AO: true}
}

// Renderer renders one scene at a time into a target.
type Renderer struct {
	g       gpu.GPU
	target  gpu.Target
	shaders ShaderSet
	opts    Options
	scene   *Scene
}

// New returns a renderer drawing into target. target may be nil, in
// which case only offscreen frames can be rendered.
func New(g gpu.GPU, target gpu.Target, shaders ShaderSet, opts Options) *Renderer {
	if opts.FramesInFlight <= 0 {
		opts.FramesInFlight = 2
	}
	if target != nil {
		opts.Format = target.Format()
	} else if opts.Format == gpu.FormatUndefined {
		opts.Format = gpu.BGRA8Unorm
	}
	if opts.Noise == nil {
		opts.Noise = scene.GenerateNoise(scene.NoiseSize, 1)
	}
	return &Renderer{g: g, target: target, shaders: shaders, opts: opts}
}

// Scene returns the current scene or nil.
func (r *Renderer) Scene() *Scene { return r.scene }

// RenderFrame renders one frame and returns its duration in
// milliseconds. Render errors are not recoverable; the scene must be
// closed.
func (r *Renderer) RenderFrame(onscreen bool) (float64, error) {
	s := r.scene
	if s == nil {
		return 0, ErrNoScene
	}
	d, err := s.seq.RenderFrame(s.ctx, onscreen)
	if err != nil {
		return 0, fmt.Errorf("render: frame %d: %w", s.ctx.Frame, err)
	}
	s.ctx.Advance()
	return float64(d.Nanoseconds()) / 1e6, nil
}

// UpdateCamera moves the camera. The next frame sees the change; the
// previous view-projection stays the one of the last rendered frame.
func (r *Renderer) UpdateCamera(origin, dir math32.Vector3) error {
	if r.scene == nil {
		return ErrNoScene
	}
	return r.scene.ctx.Camera.Update(origin, dir)
}

// Camera returns the camera of the current scene or nil.
func (r *Renderer) Camera() *camera.Camera {
	if r.scene == nil {
		return nil
	}
	return r.scene.ctx.Camera
}

// SetBlur toggles the blur subpass.
func (r *Renderer) SetBlur(on bool) {
	r.opts.Blur = on
	if r.scene != nil {
		r.scene.ctx.Blur = on
	}
}

// SetAnimate toggles instance animation and the refit it needs.
func (r *Renderer) SetAnimate(on bool) {
	r.opts.Animate = on
	if r.scene != nil {
		r.scene.ctx.Animate = on
	}
}

// SetAO toggles the ambient occlusion trace.
func (r *Renderer) SetAO(on bool) {
	r.opts.AO = on
	if r.scene != nil {
		r.scene.ctx.AO = on
	}
}

// Close waits for the device and releases the scene.
func (r *Renderer) Close() {
	if r.scene != nil {
		r.scene.Destroy()
		r.scene = nil
	}
}

// Scene is a built scene. It is owned by the renderer.
type Scene struct {
	g     gpu.GPU
	accel *accel.Structure
	prog  *frame.Program
	seq   *frame.Sequencer
	ctx   *frame.Context
	td    gpu.Teardown
}

// Instances returns the number of top-level instances.
func (s *Scene) Instances() int { return s.accel.Instances() }

// Frame returns the number of frames rendered.
func (s *Scene) Frame() uint32 { return s.ctx.Frame }

// Destroy waits for the device to be idle and releases every object
// of the scene.
func (s *Scene) Destroy() {
	if err := s.g.WaitIdle(); err != nil {
		slog.Error(fmt.Sprintf("render: wait idle before teardown: %v", err))
	}
	if s.seq != nil {
		s.seq.Destroy()
	}
	s.td.Destroy()
}
