// Copyright (c) 2025 Cubyte.online under the AGPL License

package render

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tomas-mraz/vulkan-hybrid/accel"
	"github.com/tomas-mraz/vulkan-hybrid/binding"
	"github.com/tomas-mraz/vulkan-hybrid/camera"
	"github.com/tomas-mraz/vulkan-hybrid/frame"
	"github.com/tomas-mraz/vulkan-hybrid/gpu"
	"github.com/tomas-mraz/vulkan-hybrid/scene"
)

// Storage formats of the G-buffer.
const (
	ColorFormat    = gpu.RGBA8Unorm
	PositionFormat = gpu.RGBA32Float
	NormalFormat   = gpu.RGBA32Float
	AOFormat       = gpu.RGBA8Unorm
)

// Screen quad: vec2 position, vec2 uv.
var (
	quadVertices = []float32{
		-1, -1, 0, 0,
		1, -1, 1, 0,
		1, 1, 1, 1,
		-1, 1, 0, 1,
	}
	quadIndices = []uint32{0, 1, 2, 2, 3, 0}
)

// BuildScene validates the scene and builds every GPU object it needs.
// Nothing is allocated when validation fails. A previous scene is
// released first.
func (r *Renderer) BuildScene(meshes []*scene.Mesh, lights []scene.Light, cfg camera.Config) (*Scene, error) {
	if len(meshes) == 0 {
		return nil, scene.ErrNoMeshes
	}
	if err := scene.ValidateLights(lights); err != nil {
		return nil, err
	}
	cam, err := camera.New(cfg)
	if err != nil {
		return nil, err
	}
	am := make([]accel.Mesh, len(meshes))
	for i, m := range meshes {
		am[i] = m.Accel()
		if err := am[i].Validate(); err != nil {
			return nil, fmt.Errorf("render: mesh %d (%s): %w", i, m.Name, err)
		}
	}
	if err := r.shaders.Validate(); err != nil {
		return nil, err
	}
	if r.target != nil {
		if w, h := r.target.Size(); w != cfg.Width || h != cfg.Height {
			return nil, fmt.Errorf("render: target is %dx%d, camera film %dx%d", w, h, cfg.Width, cfg.Height)
		}
	}

	r.Close()
	s := &Scene{g: r.g}
	if err := r.build(s, meshes, am, lights, cam); err != nil {
		s.Destroy()
		return nil, err
	}
	r.scene = s
	slog.Debug(fmt.Sprintf("render: scene of %d meshes, %d lights, %dx%d",
		len(meshes), len(lights), cfg.Width, cfg.Height))
	return s, nil
}

type builder struct {
	g   gpu.GPU
	td  *gpu.Teardown
	err error
}

func (b *builder) buffer(name string, cfg *gpu.BufferConfig) gpu.Buffer {
	if b.err != nil {
		return nil
	}
	buf, err := b.g.NewBuffer(cfg)
	if err != nil {
		b.err = fmt.Errorf("render: %s buffer: %w", name, err)
		return nil
	}
	b.td.Add(buf)
	return buf
}

func (b *builder) image(cfg *gpu.ImageConfig) gpu.Image {
	if b.err != nil {
		return nil
	}
	img, err := b.g.NewImage(cfg)
	if err != nil {
		b.err = fmt.Errorf("render: %s image: %w", cfg.Name, err)
		return nil
	}
	b.td.Add(img)
	return img
}

func (b *builder) sampler(filter gpu.Filter, mode gpu.AddrMode) gpu.Sampler {
	if b.err != nil {
		return nil
	}
	spl, err := b.g.NewSampler(&gpu.SamplerConfig{Filter: filter, Mode: mode})
	if err != nil {
		b.err = fmt.Errorf("render: sampler: %w", err)
		return nil
	}
	b.td.Add(spl)
	return spl
}

func (b *builder) shader(shaders ShaderSet, name string) gpu.ShaderCode {
	if b.err != nil {
		return nil
	}
	code, err := b.g.NewShaderCode(shaders[name])
	if err != nil {
		b.err = fmt.Errorf("render: shader %s: %w", name, err)
		return nil
	}
	b.td.Add(code)
	return code
}

func (b *builder) sets(t *binding.Table, n int) *binding.Set {
	if b.err != nil {
		return nil
	}
	s, err := binding.NewSets(b.g, t, n)
	if err != nil {
		b.err = err
		return nil
	}
	b.td.Add(s)
	return s
}

// add keeps d even after an earlier failure so it is released with
// the rest.
func (b *builder) add(d gpu.Destroyer, err error) {
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return
	}
	b.td.Add(d)
}

func (r *Renderer) build(s *Scene, meshes []*scene.Mesh, am []accel.Mesh, lights []scene.Light, cam *camera.Camera) error {
	g, n := r.g, r.opts.FramesInFlight
	w, h := cam.Size()

	acc, err := accel.Build(context.Background(), g, am)
	if err != nil {
		return fmt.Errorf("render: acceleration structure: %w", err)
	}
	s.td.Add(acc)
	s.accel = acc
	if err := acc.EnableRefit(n); err != nil {
		return fmt.Errorf("render: refit buffers: %w", err)
	}
	attr, err := scene.BuildAttributes(meshes, acc.CustomIndices())
	if err != nil {
		return err
	}

	b := &builder{g: g, td: &s.td}
	lightBuf := b.buffer("lights", &gpu.BufferConfig{Usage: gpu.UStorage, Data: gpu.Float32Bytes(scene.PackLights(lights))})
	scalars := make([]uint32, 4)
	scalars[0] = uint32(len(lights))
	scalarBuf := b.buffer("scalars", &gpu.BufferConfig{Usage: gpu.UUniform, Data: gpu.Uint32Bytes(scalars)})
	baseBuf := b.buffer("custom index", &gpu.BufferConfig{Usage: gpu.UStorage, Data: gpu.Uint32Bytes(attr.VertexBase)})
	meshBuf := b.buffer("mesh attributes", &gpu.BufferConfig{Usage: gpu.UStorage, Data: gpu.Float32Bytes(attr.PerMesh)})
	vertBuf := b.buffer("vertex attributes", &gpu.BufferConfig{Usage: gpu.UStorage, Data: gpu.Float32Bytes(attr.PerVertex)})

	p := &frame.Program{Accel: acc, Width: w, Height: h, QuadCount: len(quadIndices)}
	p.QuadVerts = b.buffer("quad vertex", &gpu.BufferConfig{Usage: gpu.UVertex, Data: gpu.Float32Bytes(quadVertices)})
	p.QuadInds = b.buffer("quad index", &gpu.BufferConfig{Usage: gpu.UIndex, Data: gpu.Uint32Bytes(quadIndices)})

	traced := gpu.UStorageImage | gpu.USampled
	p.Color = b.image(&gpu.ImageConfig{Name: "color", Width: w, Height: h, Format: ColorFormat, Usage: traced, Layout: gpu.LGeneral})
	p.Position = b.image(&gpu.ImageConfig{Name: "position", Width: w, Height: h, Format: PositionFormat, Usage: traced, Layout: gpu.LGeneral})
	p.Normal = b.image(&gpu.ImageConfig{Name: "normal", Width: w, Height: h, Format: NormalFormat, Usage: traced, Layout: gpu.LGeneral})
	p.AOImage = b.image(&gpu.ImageConfig{Name: "ao", Width: max(w/2, 1), Height: max(h/2, 1), Format: AOFormat, Usage: traced, Layout: gpu.LGeneral})
	p.Composite = b.image(&gpu.ImageConfig{Name: "composite", Width: w, Height: h, Format: frame.CompositeFormat,
		Usage: gpu.UColorTarget | gpu.UInputAttachment, Layout: gpu.LUndefined})
	p.History = b.image(&gpu.ImageConfig{Name: "history", Width: w, Height: h, Format: r.opts.Format,
		Usage: gpu.USampled | gpu.UCopyDst, Layout: gpu.LShaderRead})
	nb := r.opts.Noise.Bounds()
	noise := b.image(&gpu.ImageConfig{Name: "blue-noise", Width: nb.Dx(), Height: nb.Dy(), Format: gpu.RGBA8Unorm,
		Usage: gpu.USampled | gpu.UCopyDst, Layout: gpu.LShaderRead, Data: r.opts.Noise.Pix})

	nearest := b.sampler(gpu.FNearest, gpu.AClamp)
	linear := b.sampler(gpu.FLinear, gpu.AClamp)
	repeat := b.sampler(gpu.FNearest, gpu.ARepeat)

	p.PrimarySets = b.sets(binding.RTPrimaryRaygen, n)
	p.HitSets = b.sets(binding.RTPrimaryHit, 1)
	p.AOSets = b.sets(binding.RTAO, n)
	p.BlurSets = b.sets(binding.RasterBlur, n)
	p.TemporalSets = b.sets(binding.RasterTemporal, n)
	if b.err != nil {
		return b.err
	}
	logPoolSizes(n)

	code := func(name string) gpu.ShaderCode { return b.shader(r.shaders, name) }
	primary := &gpu.RTState{
		Raygen:       code(PrimaryRaygen),
		Hit:          []gpu.ShaderCode{code(PrimaryHit), code(PrimaryShadowHit)},
		Miss:         []gpu.ShaderCode{code(PrimaryMiss), code(PrimaryShadowMiss)},
		Layouts:      []gpu.DescLayout{p.PrimarySets.Layout(), p.HitSets.Layout()},
		MaxRecursion: 2,
	}
	ao := &gpu.RTState{
		Raygen:       code(AORaygen),
		Hit:          []gpu.ShaderCode{code(AOHit), code(AOShadowHit)},
		Miss:         []gpu.ShaderCode{code(AOMiss), code(AOShadowMiss)},
		Layouts:      []gpu.DescLayout{p.AOSets.Layout()},
		MaxRecursion: 1,
	}
	blurVert, blurFrag := code(BlurVert), code(BlurFrag)
	tempVert, tempFrag := code(TemporalVert), code(TemporalFrag)
	if b.err != nil {
		return b.err
	}

	p.Primary, err = g.NewRTPipeline(primary)
	b.add(p.Primary, wrap("primary pipeline", err))
	p.AO, err = g.NewRTPipeline(ao)
	b.add(p.AO, wrap("ao pipeline", err))
	p.Pass, err = frame.NewPass(g, r.opts.Format)
	b.add(p.Pass, wrap("render pass", err))
	if b.err != nil {
		return b.err
	}
	p.Blur, err = g.NewGraphPipeline(&gpu.GraphState{Vert: blurVert, Frag: blurFrag,
		Layouts: []gpu.DescLayout{p.BlurSets.Layout()}, Pass: p.Pass, Subpass: 0, Width: w, Height: h})
	b.add(p.Blur, wrap("blur pipeline", err))
	p.Temporal, err = g.NewGraphPipeline(&gpu.GraphState{Vert: tempVert, Frag: tempFrag,
		Layouts: []gpu.DescLayout{p.TemporalSets.Layout()}, Pass: p.Pass, Subpass: 1, Width: w, Height: h})
	b.add(p.Temporal, wrap("temporal pipeline", err))

	off, err := gpu.NewOffscreenTarget(g, w, h, r.opts.Format)
	b.add(off, err)
	if b.err != nil {
		return b.err
	}
	s.prog = p

	s.seq, err = frame.NewSequencer(g, p, r.target, off, n)
	if err != nil {
		return err
	}

	tlas := acc.TLAS()
	for i := 0; i < n; i++ {
		slot := s.seq.Slot(i)
		err := p.PrimarySets.Write(i,
			binding.Accel(binding.PrimaryTLAS, tlas),
			binding.StorageImage(binding.PrimaryColor, p.Color),
			binding.StorageImage(binding.PrimaryPosition, p.Position),
			binding.StorageImage(binding.PrimaryNormal, p.Normal),
			binding.Uniform(binding.PrimaryCamera, slot.Buffer(frame.SlotCamera)),
			binding.Storage(binding.PrimaryLights, lightBuf),
			binding.Uniform(binding.PrimaryScalars, scalarBuf),
		)
		if err == nil {
			err = p.AOSets.Write(i,
				binding.Accel(binding.AOTLAS, tlas),
				binding.Sampled(binding.AOPosition, p.Position, nearest),
				binding.Sampled(binding.AONormal, p.Normal, nearest),
				binding.StorageImage(binding.AOImage, p.AOImage),
				binding.Uniform(binding.AOFrame, slot.Buffer(frame.SlotFrame)),
				binding.Sampled(binding.AOBlueNoise, noise, repeat),
			)
		}
		if err == nil {
			err = p.BlurSets.Write(i,
				binding.Sampled(binding.BlurColor, p.Color, linear),
				binding.Sampled(binding.BlurAO, p.AOImage, linear),
				binding.Uniform(binding.BlurSettings, slot.Buffer(frame.SlotBlur)),
			)
		}
		if err == nil {
			err = p.TemporalSets.Write(i,
				binding.Sampled(binding.TemporalHistory, p.History, linear),
				binding.Sampled(binding.TemporalPosition, p.Position, nearest),
				binding.Input(binding.TemporalCurrent, p.Composite),
				binding.Uniform(binding.TemporalCamera, slot.Buffer(frame.SlotCamera)),
			)
		}
		if err != nil {
			return err
		}
	}
	err = p.HitSets.Write(0,
		binding.Storage(binding.HitCustomIndex, baseBuf),
		binding.Storage(binding.HitMeshAttributes, meshBuf),
		binding.Storage(binding.HitVertexAttributes, vertBuf),
	)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.ctx = &frame.Context{
		Camera:     cam,
		Animate:    r.opts.Animate,
		Blur:       r.opts.Blur,
		AO:         r.opts.AO,
		Transforms: acc.Transforms(),
	}
	return nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("render: %s: %w", what, err)
	}
	return nil
}

func logPoolSizes(n int) {
	counts := make([]int, len(binding.Tables))
	for i, t := range binding.Tables {
		counts[i] = n
		if t == binding.RTPrimaryHit {
			counts[i] = 1
		}
	}
	var parts []string
	for k, c := range binding.PoolSizes(binding.Tables, counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c))
	}
	sort.Strings(parts)
	slog.Debug("render: descriptor pool sizes " + strings.Join(parts, " "))
}
