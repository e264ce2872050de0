// Copyright (c) 2025 Cubyte.online under the AGPL License

package frame

import (
	"context"
	"encoding/binary"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomas-mraz/vulkan-hybrid/accel"
	"github.com/tomas-mraz/vulkan-hybrid/binding"
	"github.com/tomas-mraz/vulkan-hybrid/camera"
	"github.com/tomas-mraz/vulkan-hybrid/gpu"
	"github.com/tomas-mraz/vulkan-hybrid/gpu/gputest"
)

const testW, testH = 64, 48

type fixture struct {
	g      *gputest.GPU
	target *gputest.Target
	off    *gpu.Offscreen
	acc    *accel.Structure
	prog   *Program
	seq    *Sequencer
	ctx    *Context
	td     gpu.Teardown
}

func newFixture(t *testing.T, slots int, onscreen bool) *fixture {
	t.Helper()
	g := gputest.New()
	f := &fixture{g: g}
	td := &f.td
	must := func(err error) {
		t.Helper()
		require.NoError(t, err)
	}

	cam, err := camera.New(camera.Config{Direction: math32.Vec3(0, 0, -1), FOV: 60, Width: testW, Height: testH})
	must(err)
	f.acc, err = accel.Build(context.Background(), g, []accel.Mesh{{
		Vertices:  []float32{0, 0, -1, 1, 0, -1, 0, 1, -1},
		Indices:   []uint32{0, 1, 2},
		Transform: accel.Identity,
	}})
	must(err)
	td.Add(f.acc)
	must(f.acc.EnableRefit(slots))

	image := func(name string, w, h int, fm gpu.Format, u gpu.Usage, l gpu.Layout) gpu.Image {
		im, err := g.NewImage(&gpu.ImageConfig{Name: name, Width: w, Height: h, Format: fm, Usage: u, Layout: l})
		must(err)
		td.Add(im)
		return im
	}
	p := &Program{Accel: f.acc, Width: testW, Height: testH, QuadCount: 6}
	rt := gpu.UStorageImage | gpu.USampled
	p.Color = image("color", testW, testH, gpu.RGBA32Float, rt, gpu.LGeneral)
	p.Position = image("position", testW, testH, gpu.RGBA32Float, rt, gpu.LGeneral)
	p.Normal = image("normal", testW, testH, gpu.RGBA32Float, rt, gpu.LGeneral)
	p.AOImage = image("ao", testW/2, testH/2, gpu.RGBA32Float, rt, gpu.LGeneral)
	p.Composite = image("composite", testW, testH, CompositeFormat, gpu.UColorTarget|gpu.UInputAttachment, gpu.LUndefined)
	p.History = image("history", testW, testH, gpu.BGRA8Unorm, gpu.USampled|gpu.UCopyDst, gpu.LShaderRead)
	noise := image("blue-noise", 8, 8, gpu.RGBA8Unorm, gpu.USampled, gpu.LShaderRead)

	f.off, err = gpu.NewOffscreenTarget(g, testW, testH, gpu.BGRA8Unorm)
	must(err)
	td.Add(f.off)
	p.Pass, err = NewPass(g, gpu.BGRA8Unorm)
	must(err)
	td.Add(p.Pass)

	code, err := g.NewShaderCode([]byte{0x03, 0x02, 0x23, 0x07})
	must(err)
	td.Add(code)
	spl, err := g.NewSampler(&gpu.SamplerConfig{Filter: gpu.FLinear})
	must(err)
	td.Add(spl)
	buf, err := g.NewBuffer(&gpu.BufferConfig{Size: 64, Usage: gpu.UStorage | gpu.UUniform})
	must(err)
	td.Add(buf)
	p.QuadVerts, err = g.NewBuffer(&gpu.BufferConfig{Usage: gpu.UVertex, Data: gpu.Float32Bytes(make([]float32, 16))})
	must(err)
	td.Add(p.QuadVerts)
	p.QuadInds, err = g.NewBuffer(&gpu.BufferConfig{Usage: gpu.UIndex, Data: gpu.Uint32Bytes([]uint32{0, 1, 2, 2, 3, 0})})
	must(err)
	td.Add(p.QuadInds)

	sets := func(tb *binding.Table, n int) *binding.Set {
		s, err := binding.NewSets(g, tb, n)
		must(err)
		td.Add(s)
		return s
	}
	p.PrimarySets = sets(binding.RTPrimaryRaygen, slots)
	p.HitSets = sets(binding.RTPrimaryHit, 1)
	p.AOSets = sets(binding.RTAO, slots)
	p.BlurSets = sets(binding.RasterBlur, slots)
	p.TemporalSets = sets(binding.RasterTemporal, slots)

	rtPipeline := func(layouts ...gpu.DescLayout) gpu.Pipeline {
		pl, err := g.NewRTPipeline(&gpu.RTState{Raygen: code, Hit: []gpu.ShaderCode{code}, Miss: []gpu.ShaderCode{code}, Layouts: layouts})
		must(err)
		td.Add(pl)
		return pl
	}
	graphPipeline := func(sub int, layout gpu.DescLayout) gpu.Pipeline {
		pl, err := g.NewGraphPipeline(&gpu.GraphState{Vert: code, Frag: code, Layouts: []gpu.DescLayout{layout}, Pass: p.Pass, Subpass: sub, Width: testW, Height: testH})
		must(err)
		td.Add(pl)
		return pl
	}
	p.Primary = rtPipeline(p.PrimarySets.Layout(), p.HitSets.Layout())
	p.AO = rtPipeline(p.AOSets.Layout())
	p.Blur = graphPipeline(0, p.BlurSets.Layout())
	p.Temporal = graphPipeline(1, p.TemporalSets.Layout())

	var on gpu.Target
	if onscreen {
		f.target = g.NewTarget(3, testW, testH, true)
		on = f.target
	}
	f.seq, err = NewSequencer(g, p, on, f.off, slots)
	must(err)

	for i := 0; i < slots; i++ {
		slot := f.seq.Slot(i)
		must(p.PrimarySets.Write(i,
			binding.Accel(binding.PrimaryTLAS, f.acc.TLAS()),
			binding.StorageImage(binding.PrimaryColor, p.Color),
			binding.StorageImage(binding.PrimaryPosition, p.Position),
			binding.StorageImage(binding.PrimaryNormal, p.Normal),
			binding.Uniform(binding.PrimaryCamera, slot.Buffer(SlotCamera)),
			binding.Storage(binding.PrimaryLights, buf),
			binding.Uniform(binding.PrimaryScalars, buf),
		))
		must(p.AOSets.Write(i,
			binding.Accel(binding.AOTLAS, f.acc.TLAS()),
			binding.Sampled(binding.AOPosition, p.Position, spl),
			binding.Sampled(binding.AONormal, p.Normal, spl),
			binding.StorageImage(binding.AOImage, p.AOImage),
			binding.Uniform(binding.AOFrame, slot.Buffer(SlotFrame)),
			binding.Sampled(binding.AOBlueNoise, noise, spl),
		))
		must(p.BlurSets.Write(i,
			binding.Sampled(binding.BlurColor, p.Color, spl),
			binding.Sampled(binding.BlurAO, p.AOImage, spl),
			binding.Uniform(binding.BlurSettings, slot.Buffer(SlotBlur)),
		))
		must(p.TemporalSets.Write(i,
			binding.Sampled(binding.TemporalHistory, p.History, spl),
			binding.Sampled(binding.TemporalPosition, p.Position, spl),
			binding.Input(binding.TemporalCurrent, p.Composite),
			binding.Uniform(binding.TemporalCamera, slot.Buffer(SlotCamera)),
		))
	}
	must(p.HitSets.Write(0,
		binding.Storage(binding.HitCustomIndex, buf),
		binding.Storage(binding.HitMeshAttributes, buf),
		binding.Storage(binding.HitVertexAttributes, buf),
	))
	must(p.Validate())

	f.prog = p
	f.ctx = &Context{Camera: cam, Animate: true, Blur: true, AO: true, Transforms: f.acc.Transforms()}
	return f
}

func (f *fixture) destroy() {
	f.seq.Destroy()
	f.td.Destroy()
}

func (f *fixture) render(t *testing.T, onscreen bool) {
	t.Helper()
	d, err := f.seq.RenderFrame(f.ctx, onscreen)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d.Nanoseconds(), int64(0))
	f.ctx.Advance()
}

func TestRecordOrder(t *testing.T) {
	f := newFixture(t, 2, true)
	defer f.destroy()
	f.render(t, true)

	frames := f.g.Frames()
	require.Len(t, frames, 1)
	ops := frames[0].Ops
	assert.Equal(t, []string{
		"Barrier", "BuildAccel", "Barrier", // (a)
		"SetPipeline", "SetDescSets", "TraceRays", // (b)
		"Transition",                              // (c)
		"SetPipeline", "SetDescSets", "TraceRays", // (d)
		"Transition", // (e)
		"BeginPass", "SetPipeline", "SetDescSets", "SetVertexBuf", "SetIndexBuf", "DrawIndexed",
		"NextSubpass", "SetPipeline", "SetDescSets", "SetVertexBuf", "SetIndexBuf", "DrawIndexed",
		"EndPass",    // (f)
		"Transition", // (g)
		"Blit",       // (h)
		"Transition", // (i)
	}, gputest.Names(ops))

	primary := ops[5]
	assert.Equal(t, testW, primary.Width)
	assert.Equal(t, testH, primary.Height)
	ao := ops[9]
	assert.Equal(t, f.prog.AO, ao.Pipeline)
	assert.Equal(t, testW/2, ao.Width)
	assert.Equal(t, testH/2, ao.Height)

	c := ops[6].Transitions
	require.Len(t, c, 3)
	for _, tr := range c[:2] {
		assert.Equal(t, gpu.SRayTracing, tr.SyncBefore)
		assert.Equal(t, gpu.AShaderWrite, tr.AccessBefore)
		assert.Equal(t, gpu.SFragmentShading, tr.SyncAfter)
	}
	assert.Equal(t, f.prog.Normal, c[2].Image)
	assert.Equal(t, gpu.SFragmentShading, c[2].SyncBefore)
	assert.Equal(t, gpu.SFragmentShading, c[2].SyncAfter)
	for _, tr := range c {
		assert.Equal(t, gpu.LGeneral, tr.LayoutBefore)
		assert.Equal(t, gpu.LShaderRead, tr.LayoutAfter)
	}

	g := ops[len(ops)-3].Transitions
	require.Len(t, g, 1)
	assert.Equal(t, f.prog.History, g[0].Image)
	assert.Equal(t, gpu.LCopyDst, g[0].LayoutAfter)

	blit := ops[len(ops)-2]
	assert.Equal(t, f.target.Images()[0], blit.From)
	assert.Equal(t, f.prog.History, blit.To)

	final := ops[len(ops)-1].Transitions
	assert.Equal(t, gpu.LPresent, final[0].LayoutAfter)
	assert.Equal(t, gpu.LShaderRead, final[1].LayoutAfter)
	for _, tr := range final[2:] {
		assert.Equal(t, gpu.LGeneral, tr.LayoutAfter)
	}
	assert.Empty(t, f.g.Violations)
}

func TestTogglesSkipStates(t *testing.T) {
	f := newFixture(t, 2, false)
	defer f.destroy()
	f.ctx.Animate, f.ctx.AO = false, false
	f.render(t, false)

	names := gputest.Names(f.g.Frames()[0].Ops)
	assert.NotContains(t, names, "BuildAccel")
	traces := 0
	for _, n := range names {
		if n == "TraceRays" {
			traces++
		}
	}
	assert.Equal(t, 1, traces)
	assert.Equal(t, 4, countOf(names, "Transition"), "transitions are never skipped")

	f.render(t, false)
	assert.Empty(t, f.g.Violations)
}

func countOf(names []string, name string) int {
	n := 0
	for _, s := range names {
		if s == name {
			n++
		}
	}
	return n
}

func TestFrameInFlightBound(t *testing.T) {
	const n = 2
	f := newFixture(t, n, true)
	defer f.destroy()

	for i := 0; i < n; i++ {
		f.render(t, true)
	}
	assert.Equal(t, n, f.g.Outstanding)
	assert.Zero(t, f.g.BlockedWaits, "fresh slots never block")

	// The (N+1)th frame reuses slot 0 and must wait for its fence.
	f.render(t, true)
	assert.Equal(t, 1, f.g.BlockedWaits)
	assert.Equal(t, n, f.g.MaxOutstanding)

	for i := 0; i < 7; i++ {
		f.render(t, true)
	}
	assert.LessOrEqual(t, f.g.MaxOutstanding, n)
	assert.Equal(t, 8, f.g.BlockedWaits)
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2, 0}, f.target.Acquired)
	assert.Equal(t, f.target.Acquired, f.target.Presented)
	assert.Empty(t, f.g.Violations)

	for i, sub := range f.g.Frames() {
		slot := f.seq.Slot(i % n)
		assert.Equal(t, slot.Fence, sub.Info.Fence, "frame %d", i)
		assert.Equal(t, slot.ImageAvailable, sub.Info.Wait)
		assert.Equal(t, slot.RenderFinished, sub.Info.Signal)
		assert.Equal(t, gpu.SColorOutput, sub.Info.WaitStage)
	}
}

func TestOffscreen(t *testing.T) {
	f := newFixture(t, 3, false)
	defer f.destroy()

	for i := 0; i < 4; i++ {
		f.render(t, false)
		assert.Zero(t, f.g.Outstanding, "offscreen frames complete before returning")
	}
	assert.Zero(t, f.g.Count("Acquire"))
	assert.Equal(t, 4, f.g.BlockedWaits)

	img := f.off.Images()[0]
	for _, sub := range f.g.Frames() {
		assert.Nil(t, sub.Info.Wait)
		assert.Nil(t, sub.Info.Signal)
		blit := sub.Ops[len(sub.Ops)-2]
		assert.Equal(t, img, blit.From)
		final := sub.Ops[len(sub.Ops)-1].Transitions
		require.Len(t, final, 5, "no transition for an image already in the pass layout")
		assert.Equal(t, f.prog.History, final[0].Image)
	}
	assert.Equal(t, gpu.LCopySrc, img.(*gputest.Image).Layout)
	assert.Empty(t, f.g.Violations)

	_, err := f.seq.RenderFrame(f.ctx, true)
	assert.ErrorIs(t, err, gpu.ErrCannotPresent)
}

func TestSwitchToOffscreenWaits(t *testing.T) {
	f := newFixture(t, 2, true)
	defer f.destroy()

	f.render(t, true)
	assert.Equal(t, 1, f.g.Outstanding)
	f.render(t, false)
	assert.Zero(t, f.g.Outstanding)
	assert.Equal(t, 2, f.g.BlockedWaits)
	f.render(t, true)
	f.render(t, true)
	assert.Empty(t, f.g.Violations)
	assert.Equal(t, gpu.LShaderRead, f.prog.History.(*gputest.Image).Layout)
	assert.Equal(t, gpu.LGeneral, f.prog.Color.(*gputest.Image).Layout)
}

func TestSlotGuard(t *testing.T) {
	f := newFixture(t, 2, false)
	defer f.destroy()

	slot := f.seq.Slot(0)
	_, err := slot.Acquire()
	assert.ErrorIs(t, err, ErrSlotInFlight)
	assert.ErrorIs(t, f.prog.Update(f.ctx, slot), ErrSlotInFlight)

	f.render(t, false)
	_, err = slot.Acquire()
	assert.ErrorIs(t, err, ErrSlotInFlight, "the guard closes with the submission")
}

func TestUpdateWritesSlotBuffers(t *testing.T) {
	f := newFixture(t, 2, false)
	defer f.destroy()

	f.render(t, false)
	f.render(t, false)
	f.ctx.Blur = false
	f.render(t, false)

	s0, s1 := f.seq.Slot(0), f.seq.Slot(1)
	frame := func(s *Slot) uint32 {
		return binary.LittleEndian.Uint32(s.Buffer(SlotFrame).(*gputest.Buffer).Data)
	}
	blur := func(s *Slot) uint32 {
		return binary.LittleEndian.Uint32(s.Buffer(SlotBlur).(*gputest.Buffer).Data)
	}
	assert.EqualValues(t, 2, frame(s0))
	assert.EqualValues(t, 1, frame(s1))
	assert.EqualValues(t, 0, blur(s0))
	assert.EqualValues(t, 1, blur(s1))
	assert.EqualValues(t, 3, f.ctx.Frame)

	// The camera never moved, so current and previous state agree.
	want := gpu.Float32Bytes(f.ctx.Camera.UniformData())
	assert.Equal(t, want, s0.Buffer(SlotCamera).(*gputest.Buffer).Data)

	ds1 := f.prog.PrimarySets.At(1).(*gputest.DescSet)
	assert.Equal(t, s1.Buffer(SlotCamera), ds1.Writes[binding.PrimaryCamera].Resource)
}

func TestAdvanceAnimates(t *testing.T) {
	f := newFixture(t, 1, false)
	defer f.destroy()

	f.render(t, false)
	f.render(t, false)
	assert.InDelta(t, 2*AnimateStep, f.ctx.Transforms[0][3], 1e-6)

	// The second frame refits the structure from one step of motion.
	var in accel.Instance
	build := f.g.Frames()[1].Ops[1]
	in.Decode(build.Inst.Bytes())
	assert.InDelta(t, AnimateStep, in.Transform[3], 1e-6)

	f.ctx.Animate = false
	f.render(t, false)
	assert.InDelta(t, 2*AnimateStep, f.ctx.Transforms[0][3], 1e-6)
}

func TestDestroyReleasesAll(t *testing.T) {
	f := newFixture(t, 2, true)
	f.render(t, true)
	f.render(t, true)
	require.NoError(t, f.seq.Wait())
	f.destroy()
	assert.Zero(t, f.g.Live())
	assert.Empty(t, f.g.Violations)
}

func TestSequencerConfig(t *testing.T) {
	g := gputest.New()
	p := &Program{Width: testW, Height: testH}
	off, err := gpu.NewOffscreenTarget(g, testW, testH, gpu.BGRA8Unorm)
	require.NoError(t, err)
	defer off.Destroy()

	_, err = NewSequencer(g, p, nil, off, 0)
	assert.Error(t, err)
	_, err = NewSequencer(g, p, nil, nil, 2)
	assert.Error(t, err)
	_, err = NewSequencer(g, p, g.NewTarget(2, testW, testH, false), off, 2)
	assert.Error(t, err)
	assert.Error(t, p.Validate())
}
