// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package gputest implements gpu.GPU with a recording fake that
// executes no GPU work. Submitted command buffers are replayed
// against tracked image layouts so tests can check barrier chains,
// and fences model a GPU that only finishes work when waited on.
package gputest

import (
	"errors"
	"fmt"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// GPU is a fake gpu.GPU.
type GPU struct {
	// Calls logs every GPU method invoked, in order.
	Calls []string

	// Submits holds every submission, one-shots included.
	Submits []*Submission

	// Violations collects layout or synchronization misuse found
	// while replaying submissions.
	Violations []string

	// FailOn makes the named method return the error.
	FailOn map[string]error

	// BLASScratch and TLASScratch compute scratch requirements.
	BLASScratch func(g *gpu.Geometry) int64
	TLASScratch func(n int) int64

	// Outstanding is the number of submitted fences not yet waited.
	Outstanding    int
	MaxOutstanding int
	// BlockedWaits counts waits on fences whose work was pending.
	BlockedWaits int

	live    map[any]struct{}
	handles uint64
}

// New returns a fake GPU with deterministic scratch sizes.
func New() *GPU {
	return &GPU{
		FailOn: make(map[string]error),
		BLASScratch: func(g *gpu.Geometry) int64 {
			return int64(256 + 64*g.IndexCount)
		},
		TLASScratch: func(n int) int64 {
			return int64(512 + 128*n)
		},
		live: make(map[any]struct{}),
	}
}

// Submission is one recorded submission.
type Submission struct {
	Ops     []Op
	Info    gpu.SubmitInfo
	OneShot bool
}

func (g *GPU) call(name string) error {
	g.Calls = append(g.Calls, name)
	if err, ok := g.FailOn[name]; ok {
		return err
	}
	return nil
}

func (g *GPU) track(o any) { g.live[o] = struct{}{} }

func (g *GPU) release(o any) {
	if _, ok := g.live[o]; !ok {
		g.violate("double destroy of %T", o)
		return
	}
	delete(g.live, o)
}

func (g *GPU) violate(format string, args ...any) {
	g.Violations = append(g.Violations, fmt.Sprintf(format, args...))
}

// Live returns the number of created objects not yet destroyed.
func (g *GPU) Live() int { return len(g.live) }

// Count returns how many times the named method was called.
func (g *GPU) Count(name string) int {
	n := 0
	for _, c := range g.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// Frames returns the non one-shot submissions.
func (g *GPU) Frames() []*Submission {
	var s []*Submission
	for _, sub := range g.Submits {
		if !sub.OneShot {
			s = append(s, sub)
		}
	}
	return s
}

func (g *GPU) Destroy() { g.Calls = append(g.Calls, "Destroy") }

func (g *GPU) NewBuffer(cfg *gpu.BufferConfig) (gpu.Buffer, error) {
	if err := g.call("NewBuffer"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Buffer{g: g, Usage: cfg.Usage, Visible: cfg.Visible, Data: make([]byte, cfg.Size)}
	copy(b.Data, cfg.Data)
	g.track(b)
	return b, nil
}

func (g *GPU) NewImage(cfg *gpu.ImageConfig) (gpu.Image, error) {
	if err := g.call("NewImage"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	im := &Image{g: g, name: cfg.Name, format: cfg.Format, w: cfg.Width, h: cfg.Height, Usage: cfg.Usage, Layout: cfg.Layout}
	g.track(im)
	return im, nil
}

func (g *GPU) NewSampler(cfg *gpu.SamplerConfig) (gpu.Sampler, error) {
	if err := g.call("NewSampler"); err != nil {
		return nil, err
	}
	s := &Sampler{g: g, Config: *cfg}
	g.track(s)
	return s, nil
}

func (g *GPU) NewShaderCode(data []byte) (gpu.ShaderCode, error) {
	if err := g.call("NewShaderCode"); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("gputest: empty shader code")
	}
	s := &ShaderCode{g: g, Code: append([]byte(nil), data...)}
	g.track(s)
	return s, nil
}

func (g *GPU) NewBLAS(geom *gpu.Geometry) (gpu.AccelStruct, error) {
	if err := g.call("NewBLAS"); err != nil {
		return nil, err
	}
	if geom.Vertices == nil || geom.Indices == nil || geom.IndexCount%3 != 0 {
		return nil, errors.New("gputest: invalid geometry")
	}
	g.handles++
	as := &AccelStruct{g: g, level: gpu.BottomLevel, handle: 0x1000 + g.handles, scratch: g.BLASScratch(geom), Geometry: *geom}
	g.track(as)
	return as, nil
}

func (g *GPU) NewTLAS(n int) (gpu.AccelStruct, error) {
	if err := g.call("NewTLAS"); err != nil {
		return nil, err
	}
	g.handles++
	as := &AccelStruct{g: g, level: gpu.TopLevel, handle: 0x1000 + g.handles, scratch: g.TLASScratch(n), Instances: n}
	g.track(as)
	return as, nil
}

func (g *GPU) NewDescLayout(ds []gpu.Descriptor) (gpu.DescLayout, error) {
	if err := g.call("NewDescLayout"); err != nil {
		return nil, err
	}
	l := &DescLayout{g: g, ds: append([]gpu.Descriptor(nil), ds...)}
	g.track(l)
	return l, nil
}

func (g *GPU) NewDescSets(layout gpu.DescLayout, n int) ([]gpu.DescSet, error) {
	if err := g.call("NewDescSets"); err != nil {
		return nil, err
	}
	l := layout.(*DescLayout)
	sets := make([]gpu.DescSet, n)
	for i := range sets {
		s := &DescSet{Layout: l, Writes: make(map[int]Write)}
		l.Sets = append(l.Sets, s)
		sets[i] = s
	}
	return sets, nil
}

func (g *GPU) NewRTPipeline(state *gpu.RTState) (gpu.Pipeline, error) {
	if err := g.call("NewRTPipeline"); err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{g: g, kind: gpu.RayTracing, RT: state}
	g.track(p)
	return p, nil
}

func (g *GPU) NewGraphPipeline(state *gpu.GraphState) (gpu.Pipeline, error) {
	if err := g.call("NewGraphPipeline"); err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{g: g, kind: gpu.Graphics, Graph: state}
	g.track(p)
	return p, nil
}

func (g *GPU) NewRenderPass(att []gpu.Attachment, sub []gpu.Subpass, dep []gpu.Dependency) (gpu.RenderPass, error) {
	if err := g.call("NewRenderPass"); err != nil {
		return nil, err
	}
	rp := &RenderPass{g: g, Attachments: att, Subpasses: sub, Dependencies: dep}
	g.track(rp)
	return rp, nil
}

func (g *GPU) NewCmdBuffer() (gpu.CmdBuffer, error) {
	if err := g.call("NewCmdBuffer"); err != nil {
		return nil, err
	}
	cb := &CmdBuffer{g: g}
	g.track(cb)
	return cb, nil
}

func (g *GPU) NewFence(signaled bool) (gpu.Fence, error) {
	if err := g.call("NewFence"); err != nil {
		return nil, err
	}
	f := &Fence{g: g, Signaled: signaled}
	g.track(f)
	return f, nil
}

func (g *GPU) NewSemaphore() (gpu.Semaphore, error) {
	if err := g.call("NewSemaphore"); err != nil {
		return nil, err
	}
	s := &Semaphore{g: g}
	g.track(s)
	return s, nil
}

// Wait completes the work guarded by f. Waiting on a fence that was
// neither signaled nor submitted would hang a real device and is
// reported as an error.
func (g *GPU) Wait(f gpu.Fence) error {
	if err := g.call("Wait"); err != nil {
		return err
	}
	fc := f.(*Fence)
	switch {
	case fc.Pending:
		g.BlockedWaits++
		g.complete(fc)
	case fc.Signaled:
	default:
		return errors.New("gputest: wait on a fence that can never signal")
	}
	return nil
}

func (g *GPU) complete(f *Fence) {
	f.Pending = false
	f.Signaled = true
	g.Outstanding--
}

func (g *GPU) Reset(f gpu.Fence) error {
	if err := g.call("Reset"); err != nil {
		return err
	}
	fc := f.(*Fence)
	if fc.Pending {
		g.violate("reset of a fence with pending work")
	}
	fc.Signaled = false
	return nil
}

func (g *GPU) Submit(cb gpu.CmdBuffer, info *gpu.SubmitInfo) error {
	if err := g.call("Submit"); err != nil {
		return err
	}
	c := cb.(*CmdBuffer)
	if c.recording {
		return errors.New("gputest: submit of a command buffer still recording")
	}
	sub := &Submission{Ops: append([]Op(nil), c.Ops...), Info: *info}
	if info.Fence != nil {
		f := info.Fence.(*Fence)
		if f.Signaled || f.Pending {
			g.violate("submit with a fence that was not reset")
		}
		f.Pending = true
		g.Outstanding++
		if g.Outstanding > g.MaxOutstanding {
			g.MaxOutstanding = g.Outstanding
		}
	}
	g.Submits = append(g.Submits, sub)
	g.replay(sub)
	return nil
}

func (g *GPU) OneShot(fn func(cb gpu.CmdBuffer) error) error {
	if err := g.call("OneShot"); err != nil {
		return err
	}
	cb := &CmdBuffer{g: g}
	if err := cb.Begin(); err != nil {
		return err
	}
	if err := fn(cb); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}
	sub := &Submission{Ops: cb.Ops, OneShot: true}
	g.Submits = append(g.Submits, sub)
	g.replay(sub)
	return nil
}

func (g *GPU) WaitIdle() error {
	if err := g.call("WaitIdle"); err != nil {
		return err
	}
	for o := range g.live {
		if f, ok := o.(*Fence); ok && f.Pending {
			g.complete(f)
		}
	}
	return nil
}
