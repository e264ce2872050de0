// Copyright (c) 2025 Cubyte.online under the AGPL License

package gputest

import "github.com/tomas-mraz/vulkan-hybrid/gpu"

// Buffer is a fake gpu.Buffer. Data always holds the contents,
// host-visible or not.
type Buffer struct {
	g       *GPU
	Usage   gpu.Usage
	Visible bool
	Data    []byte
}

func (b *Buffer) Destroy()    { b.g.release(b) }
func (b *Buffer) Size() int64 { return int64(len(b.Data)) }

func (b *Buffer) Bytes() []byte {
	if !b.Visible {
		return nil
	}
	return b.Data
}

// Image is a fake gpu.Image tracking its current layout.
type Image struct {
	g      *GPU
	name   string
	format gpu.Format
	w, h   int
	Usage  gpu.Usage
	Layout gpu.Layout
	// Foreign images are owned by a target and not tracked.
	Foreign bool
}

func (im *Image) Destroy() {
	if !im.Foreign {
		im.g.release(im)
	}
}

func (im *Image) Name() string              { return im.name }
func (im *Image) Format() gpu.Format        { return im.format }
func (im *Image) Size() (width, height int) { return im.w, im.h }

// Sampler is a fake gpu.Sampler.
type Sampler struct {
	g      *GPU
	Config gpu.SamplerConfig
}

func (s *Sampler) Destroy() { s.g.release(s) }

// ShaderCode is a fake gpu.ShaderCode.
type ShaderCode struct {
	g    *GPU
	Code []byte
}

func (s *ShaderCode) Destroy() { s.g.release(s) }

// AccelStruct is a fake gpu.AccelStruct.
type AccelStruct struct {
	g         *GPU
	level     gpu.AccelLevel
	handle    uint64
	scratch   int64
	Geometry  gpu.Geometry
	Instances int
	Built     int
}

func (as *AccelStruct) Destroy()              { as.g.release(as) }
func (as *AccelStruct) Level() gpu.AccelLevel { return as.level }
func (as *AccelStruct) Handle() uint64        { return as.handle }
func (as *AccelStruct) ScratchSize() int64    { return as.scratch }

// DescLayout is a fake gpu.DescLayout.
type DescLayout struct {
	g    *GPU
	ds   []gpu.Descriptor
	Sets []*DescSet
}

func (l *DescLayout) Destroy()                      { l.g.release(l) }
func (l *DescLayout) Descriptors() []gpu.Descriptor { return l.ds }

// Write is one recorded descriptor write.
type Write struct {
	Method   string
	Resource any
	Sampler  gpu.Sampler
	Layout   gpu.Layout
}

// DescSet is a fake gpu.DescSet recording writes by binding.
type DescSet struct {
	Layout *DescLayout
	Writes map[int]Write
}

func (s *DescSet) SetAccel(binding int, as gpu.AccelStruct) {
	s.Writes[binding] = Write{Method: "SetAccel", Resource: as}
}

func (s *DescSet) SetImage(binding int, img gpu.Image, layout gpu.Layout) {
	s.Writes[binding] = Write{Method: "SetImage", Resource: img, Layout: layout}
}

func (s *DescSet) SetSampled(binding int, img gpu.Image, spl gpu.Sampler, layout gpu.Layout) {
	s.Writes[binding] = Write{Method: "SetSampled", Resource: img, Sampler: spl, Layout: layout}
}

func (s *DescSet) SetBuffer(binding int, buf gpu.Buffer) {
	s.Writes[binding] = Write{Method: "SetBuffer", Resource: buf}
}

// Pipeline is a fake gpu.Pipeline.
type Pipeline struct {
	g     *GPU
	kind  gpu.PipelineKind
	RT    *gpu.RTState
	Graph *gpu.GraphState
}

func (p *Pipeline) Destroy()               { p.g.release(p) }
func (p *Pipeline) Kind() gpu.PipelineKind { return p.kind }

// RenderPass is a fake gpu.RenderPass.
type RenderPass struct {
	g            *GPU
	Attachments  []gpu.Attachment
	Subpasses    []gpu.Subpass
	Dependencies []gpu.Dependency
}

func (rp *RenderPass) Destroy() { rp.g.release(rp) }

func (rp *RenderPass) NewFB(views []gpu.Image, width, height int) (gpu.Framebuf, error) {
	if err := rp.g.call("NewFB"); err != nil {
		return nil, err
	}
	fb := &Framebuf{g: rp.g, Pass: rp, Views: views, Width: width, Height: height}
	rp.g.track(fb)
	return fb, nil
}

// Framebuf is a fake gpu.Framebuf.
type Framebuf struct {
	g             *GPU
	Pass          *RenderPass
	Views         []gpu.Image
	Width, Height int
}

func (fb *Framebuf) Destroy() { fb.g.release(fb) }

// Fence is a fake gpu.Fence. Pending is set by a submission and
// cleared when the fence is waited on.
type Fence struct {
	g        *GPU
	Signaled bool
	Pending  bool
}

func (f *Fence) Destroy() { f.g.release(f) }

// Semaphore is a fake gpu.Semaphore.
type Semaphore struct {
	g *GPU
}

func (s *Semaphore) Destroy() { s.g.release(s) }

// Target is a fake gpu.Target with n images.
type Target struct {
	g         *GPU
	imgs      []gpu.Image
	format    gpu.Format
	w, h      int
	present   bool
	next      int
	Acquired  []int
	Presented []int
}

// NewTarget returns a target of n images. An onscreen target can
// acquire and present.
func (g *GPU) NewTarget(n, width, height int, onscreen bool) *Target {
	t := &Target{g: g, format: gpu.BGRA8Unorm, w: width, h: height, present: onscreen}
	for i := 0; i < n; i++ {
		t.imgs = append(t.imgs, &Image{g: g, name: "target", format: t.format, w: width, h: height, Foreign: true})
	}
	return t
}

func (t *Target) Destroy()                  {}
func (t *Target) Images() []gpu.Image       { return t.imgs }
func (t *Target) Format() gpu.Format        { return t.format }
func (t *Target) Size() (width, height int) { return t.w, t.h }
func (t *Target) CanPresent() bool          { return t.present }

func (t *Target) PresentLayout() gpu.Layout {
	if t.present {
		return gpu.LPresent
	}
	return gpu.LCopySrc
}

func (t *Target) Acquire(sem gpu.Semaphore) (int, error) {
	if err := t.g.call("Acquire"); err != nil {
		return 0, err
	}
	idx := t.next
	t.next = (t.next + 1) % len(t.imgs)
	t.Acquired = append(t.Acquired, idx)
	// Presentation consumes the acquired image's contents.
	t.imgs[idx].(*Image).Layout = gpu.LUndefined
	return idx, nil
}

func (t *Target) Present(idx int, wait gpu.Semaphore) error {
	if err := t.g.call("Present"); err != nil {
		return err
	}
	t.Presented = append(t.Presented, idx)
	return nil
}
