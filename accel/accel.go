// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package accel builds the two-level acceleration structure of a scene:
// one bottom-level structure per mesh and one top-level structure over
// their instances.
//
// Geometry is static once built. Transform changes go through Refit,
// which reissues only the top-level build; geometry changes go
// through Rebuild.
package accel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// ErrNoMeshes is returned when building a scene without geometry.
var ErrNoMeshes = errors.New("accel: scene has no meshes")

// Mesh is indexed triangle geometry placed by a transform.
type Mesh struct {
	// Vertices holds 3 float32 per vertex.
	Vertices []float32
	// Indices holds uint32 triples.
	Indices   []uint32
	Transform Transform
}

// Validate checks the mesh for malformed geometry.
func (m *Mesh) Validate() error {
	switch {
	case len(m.Vertices) == 0 || len(m.Vertices)%3 != 0:
		return fmt.Errorf("%d vertex floats is not a positive multiple of 3", len(m.Vertices))
	case len(m.Indices) == 0 || len(m.Indices)%3 != 0:
		return fmt.Errorf("%d indices is not a positive multiple of 3", len(m.Indices))
	}
	n := uint32(len(m.Vertices) / 3)
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("index %d at %d out of range of %d vertices", idx, i, n)
		}
	}
	return nil
}

// buildBarrier orders one acceleration structure build before the next
// build reusing the scratch buffer and before any trace reading it.
var buildBarrier = gpu.Barrier{
	SyncBefore:   gpu.SASBuild,
	SyncAfter:    gpu.SASBuild | gpu.SRayTracing,
	AccessBefore: gpu.AASWrite | gpu.AASRead,
	AccessAfter:  gpu.AASWrite | gpu.AASRead,
}

// refitBarrier orders a top-level rebuild after traces of earlier
// submissions that still read the structure.
var refitBarrier = gpu.Barrier{
	SyncBefore:   gpu.SRayTracing,
	SyncAfter:    gpu.SASBuild,
	AccessBefore: gpu.AASRead,
	AccessAfter:  gpu.AASWrite,
}

type bottom struct {
	as    gpu.AccelStruct
	verts gpu.Buffer
	inds  gpu.Buffer
}

// refitSlot holds the per frame-in-flight resources of Refit.
type refitSlot struct {
	inst    gpu.Buffer
	scratch gpu.Buffer
}

// Structure is a built two-level acceleration structure.
type Structure struct {
	g         gpu.GPU
	bottoms   []bottom
	top       gpu.AccelStruct
	instances []Instance
	instBuf   gpu.Buffer
	scratch   int64
	slots     []refitSlot
	td        gpu.Teardown
}

// Build creates and builds the structure for meshes. Instance i gets
// custom index i. All builds run in one one-shot submission sharing a
// scratch buffer sized to the largest requirement; the scratch buffer
// is freed after the submission completed.
func Build(ctx context.Context, g gpu.GPU, meshes []Mesh) (*Structure, error) {
	if len(meshes) == 0 {
		return nil, ErrNoMeshes
	}
	for i := range meshes {
		if err := meshes[i].Validate(); err != nil {
			return nil, fmt.Errorf("accel: mesh %d: %w", i, err)
		}
	}

	s := &Structure{g: g}
	if err := s.build(ctx, meshes); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *Structure) build(ctx context.Context, meshes []Mesh) error {
	g := s.g
	for i := range meshes {
		m := &meshes[i]
		verts, err := g.NewBuffer(&gpu.BufferConfig{
			Usage: gpu.UStorage | gpu.URayTracing,
			Data:  gpu.Float32Bytes(m.Vertices),
		})
		if err != nil {
			return fmt.Errorf("accel: mesh %d vertex buffer: %w", i, err)
		}
		s.td.Add(verts)
		inds, err := g.NewBuffer(&gpu.BufferConfig{
			Usage: gpu.UStorage | gpu.URayTracing,
			Data:  gpu.Uint32Bytes(m.Indices),
		})
		if err != nil {
			return fmt.Errorf("accel: mesh %d index buffer: %w", i, err)
		}
		s.td.Add(inds)
		as, err := g.NewBLAS(&gpu.Geometry{
			Vertices:    verts,
			VertexCount: len(m.Vertices) / 3,
			Indices:     inds,
			IndexCount:  len(m.Indices),
		})
		if err != nil {
			return fmt.Errorf("accel: mesh %d bottom-level structure: %w", i, err)
		}
		s.td.Add(as)
		s.bottoms = append(s.bottoms, bottom{as: as, verts: verts, inds: inds})
		s.scratch = max(s.scratch, as.ScratchSize())
	}

	top, err := g.NewTLAS(len(meshes))
	if err != nil {
		return fmt.Errorf("accel: top-level structure: %w", err)
	}
	s.td.Add(top)
	s.top = top
	s.scratch = max(s.scratch, top.ScratchSize())

	s.instances = make([]Instance, len(meshes))
	for i := range meshes {
		s.instances[i] = Instance{
			Transform:   meshes[i].Transform,
			CustomIndex: uint32(i),
			Mask:        DefaultMask,
			Flags:       FlagCullDisable,
			BLAS:        s.bottoms[i].as.Handle(),
		}
	}
	data := make([]byte, len(s.instances)*gpu.InstanceSize)
	encodeAll(data, s.instances)
	s.instBuf, err = g.NewBuffer(&gpu.BufferConfig{Usage: gpu.URayTracing, Visible: true, Data: data})
	if err != nil {
		return fmt.Errorf("accel: instance buffer: %w", err)
	}
	s.td.Add(s.instBuf)

	scratch, err := g.NewBuffer(&gpu.BufferConfig{Size: s.scratch, Usage: gpu.URayTracing})
	if err != nil {
		return fmt.Errorf("accel: scratch buffer of %d bytes: %w", s.scratch, err)
	}
	defer scratch.Destroy()

	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Debug(fmt.Sprintf("accel: building %d bottom-level structures, scratch %d bytes", len(s.bottoms), s.scratch))
	err = g.OneShot(func(cb gpu.CmdBuffer) error {
		for _, b := range s.bottoms {
			cb.BuildAccel(b.as, nil, scratch)
			cb.Barrier([]gpu.Barrier{buildBarrier})
		}
		cb.BuildAccel(s.top, s.instBuf, scratch)
		cb.Barrier([]gpu.Barrier{buildBarrier})
		return nil
	})
	if err != nil {
		return fmt.Errorf("accel: build submission: %w", err)
	}
	return nil
}

// EnableRefit allocates the instance and scratch buffers Refit uses
// for n frame-in-flight slots.
func (s *Structure) EnableRefit(n int) error {
	size := int64(len(s.instances) * gpu.InstanceSize)
	for i := len(s.slots); i < n; i++ {
		inst, err := s.g.NewBuffer(&gpu.BufferConfig{Size: size, Usage: gpu.URayTracing, Visible: true})
		if err != nil {
			return fmt.Errorf("accel: refit instance buffer %d: %w", i, err)
		}
		s.td.Add(inst)
		scratch, err := s.g.NewBuffer(&gpu.BufferConfig{Size: s.top.ScratchSize(), Usage: gpu.URayTracing})
		if err != nil {
			return fmt.Errorf("accel: refit scratch buffer %d: %w", i, err)
		}
		s.td.Add(scratch)
		s.slots = append(s.slots, refitSlot{inst: inst, scratch: scratch})
	}
	return nil
}

// Refit records a top-level rebuild from new per-instance transforms.
// Bottom-level structures are reused. The caller must have waited the
// fence of slot, whose buffers are overwritten.
func (s *Structure) Refit(cb gpu.CmdBuffer, slot int, transforms []Transform) error {
	if len(transforms) != len(s.instances) {
		return fmt.Errorf("accel: refit with %d transforms for %d instances", len(transforms), len(s.instances))
	}
	if slot < 0 || slot >= len(s.slots) {
		return fmt.Errorf("accel: refit slot %d not enabled", slot)
	}
	for i := range s.instances {
		s.instances[i].Transform = transforms[i]
	}
	rs := &s.slots[slot]
	encodeAll(rs.inst.Bytes(), s.instances)
	cb.Barrier([]gpu.Barrier{refitBarrier})
	cb.BuildAccel(s.top, rs.inst, rs.scratch)
	cb.Barrier([]gpu.Barrier{buildBarrier})
	return nil
}

// Rebuild replaces every structure after a geometry change. The device
// is waited idle first. On error the previous structures are kept.
// The top-level handle changes, so descriptor sets referencing TLAS
// must be written again. Scene reloads in render build a whole new
// scene instead.
func (s *Structure) Rebuild(ctx context.Context, meshes []Mesh) error {
	if err := s.g.WaitIdle(); err != nil {
		return fmt.Errorf("accel: rebuild: %w", err)
	}
	fresh, err := Build(ctx, s.g, meshes)
	if err != nil {
		return err
	}
	if err := fresh.EnableRefit(len(s.slots)); err != nil {
		fresh.Destroy()
		return err
	}
	s.Destroy()
	*s = *fresh
	return nil
}

// Instances returns the number of top-level instances.
func (s *Structure) Instances() int { return len(s.instances) }

// Instance returns instance record i.
func (s *Structure) Instance(i int) Instance { return s.instances[i] }

// Transforms returns a copy of the current instance transforms.
func (s *Structure) Transforms() []Transform {
	ts := make([]Transform, len(s.instances))
	for i := range s.instances {
		ts[i] = s.instances[i].Transform
	}
	return ts
}

// CustomIndices returns the custom index of every instance, in order.
func (s *Structure) CustomIndices() []uint32 {
	idx := make([]uint32, len(s.instances))
	for i := range s.instances {
		idx[i] = s.instances[i].CustomIndex
	}
	return idx
}

// ScratchSize returns the size of the scratch buffer used by Build.
func (s *Structure) ScratchSize() int64 { return s.scratch }

// TLAS returns the top-level structure.
func (s *Structure) TLAS() gpu.AccelStruct { return s.top }

// Destroy releases every structure and buffer.
func (s *Structure) Destroy() {
	s.td.Destroy()
	s.bottoms, s.slots, s.top, s.instBuf = nil, nil, nil, nil
}
