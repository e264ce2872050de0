// Copyright (c) 2025 Cubyte.online under the AGPL License

package accel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlab/linmath"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
	"github.com/tomas-mraz/vulkan-hybrid/gpu/gputest"
)

func triangles(n int) Mesh {
	m := Mesh{Transform: Identity}
	for i := 0; i < n; i++ {
		base := uint32(len(m.Vertices) / 3)
		m.Vertices = append(m.Vertices, 0, 0, float32(i), 1, 0, float32(i), 0, 1, float32(i))
		m.Indices = append(m.Indices, base, base+1, base+2)
	}
	return m
}

func testMeshes() []Mesh {
	return []Mesh{triangles(1), triangles(2), triangles(10)}
}

func TestBuildNoMeshes(t *testing.T) {
	g := gputest.New()
	_, err := Build(context.Background(), g, nil)
	assert.ErrorIs(t, err, ErrNoMeshes)
	assert.Empty(t, g.Calls, "no GPU call before failing")
}

func TestBuildInvalidMesh(t *testing.T) {
	g := gputest.New()
	bad := triangles(1)
	bad.Indices[2] = 7
	_, err := Build(context.Background(), g, []Mesh{triangles(1), bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mesh 1")
	assert.Empty(t, g.Calls)
}

func TestBuildDenseCustomIndices(t *testing.T) {
	g := gputest.New()
	s, err := Build(context.Background(), g, testMeshes())
	require.NoError(t, err)
	defer s.Destroy()

	require.Equal(t, 3, s.Instances())
	assert.Equal(t, []uint32{0, 1, 2}, s.CustomIndices())

	tlas := s.TLAS().(*gputest.AccelStruct)
	assert.Equal(t, 3, tlas.Instances)
	for i := 0; i < s.Instances(); i++ {
		in := s.Instance(i)
		assert.Equal(t, uint8(DefaultMask), in.Mask)
		assert.Equal(t, uint8(FlagCullDisable), in.Flags)
		assert.Equal(t, s.bottoms[i].as.Handle(), in.BLAS)
	}
}

func TestBuildScratchAndOrder(t *testing.T) {
	g := gputest.New()
	s, err := Build(context.Background(), g, testMeshes())
	require.NoError(t, err)
	defer s.Destroy()

	// 256+64*30 is the largest of the bottom-level (448, 640, 2176)
	// and top-level (896) requirements.
	assert.EqualValues(t, 2176, s.ScratchSize())

	require.Len(t, g.Submits, 1)
	sub := g.Submits[0]
	assert.True(t, sub.OneShot)
	assert.Equal(t, []string{
		"BuildAccel", "Barrier",
		"BuildAccel", "Barrier",
		"BuildAccel", "Barrier",
		"BuildAccel", "Barrier",
	}, gputest.Names(sub.Ops))

	for i, op := range sub.Ops {
		if op.Name == "Barrier" {
			assert.Equal(t, []gpu.Barrier{buildBarrier}, op.Barriers)
			continue
		}
		assert.GreaterOrEqual(t, op.Scratch.Size(), op.Accel.ScratchSize(), "op %d", i)
		assert.GreaterOrEqual(t, op.Scratch.Size(), s.ScratchSize())
	}
	last := sub.Ops[len(sub.Ops)-2]
	assert.Equal(t, s.TLAS(), last.Accel, "top level is built last")
	assert.NotNil(t, last.Inst)
	assert.Empty(t, g.Violations)

	// 3×(vertex, index, BLAS) + TLAS + instance buffer; scratch is gone.
	assert.Equal(t, 11, g.Live())
	s.Destroy()
	assert.Zero(t, g.Live())
}

func TestBuildFailureReleases(t *testing.T) {
	g := gputest.New()
	g.FailOn["NewTLAS"] = errors.New("out of device memory")
	_, err := Build(context.Background(), g, testMeshes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-level structure")
	assert.Zero(t, g.Live())
	assert.Empty(t, g.Violations)
}

func TestRefit(t *testing.T) {
	g := gputest.New()
	s, err := Build(context.Background(), g, testMeshes())
	require.NoError(t, err)
	defer s.Destroy()
	require.NoError(t, s.EnableRefit(2))

	ts := s.Transforms()
	for i := range ts {
		ts[i] = ts[i].Translate(0.01, 0, 0)
	}

	c, err := g.NewCmdBuffer()
	require.NoError(t, err)
	defer c.Destroy()
	cb := c.(*gputest.CmdBuffer)

	require.NoError(t, cb.Begin())
	require.NoError(t, s.Refit(cb, 1, ts))
	require.NoError(t, cb.End())

	assert.Equal(t, []string{"Barrier", "BuildAccel", "Barrier"}, gputest.Names(cb.Ops))
	build := cb.Ops[1]
	assert.Equal(t, s.TLAS(), build.Accel)
	assert.Equal(t, s.slots[1].inst, build.Inst)
	assert.GreaterOrEqual(t, build.Scratch.Size(), s.TLAS().ScratchSize())

	var in Instance
	in.Decode(build.Inst.Bytes()[2*gpu.InstanceSize:])
	assert.Equal(t, ts[2], in.Transform)
	assert.EqualValues(t, 2, in.CustomIndex)

	assert.Error(t, s.Refit(cb, 0, ts[:1]))
	assert.Error(t, s.Refit(cb, 2, ts))
	assert.Equal(t, 1, g.Count("NewTLAS"), "refit never recreates structures")
	assert.Equal(t, 3, g.Count("NewBLAS"))
}

func TestRebuild(t *testing.T) {
	g := gputest.New()
	s, err := Build(context.Background(), g, testMeshes())
	require.NoError(t, err)
	defer s.Destroy()
	require.NoError(t, s.EnableRefit(2))
	old := s.TLAS()

	assert.ErrorIs(t, s.Rebuild(context.Background(), nil), ErrNoMeshes)
	assert.Equal(t, old, s.TLAS(), "failed rebuild keeps the structure")

	require.NoError(t, s.Rebuild(context.Background(), []Mesh{triangles(4)}))
	assert.NotEqual(t, old.Handle(), s.TLAS().Handle())
	assert.Equal(t, []uint32{0}, s.CustomIndices())
	assert.Equal(t, 2, g.Count("WaitIdle"))
	assert.Len(t, s.slots, 2)
	// vertex, index, BLAS, TLAS, instance buffer and 2×2 refit buffers.
	assert.Equal(t, 9, g.Live())
	assert.Empty(t, g.Violations)
}

func TestInstanceEncoding(t *testing.T) {
	in := Instance{Transform: Identity, CustomIndex: 5, Mask: DefaultMask, Flags: FlagCullDisable, BLAS: 0x0102030405060708}
	b := make([]byte, gpu.InstanceSize)
	in.Encode(b)

	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, b[0:4], "transform[0] = 1.0")
	assert.Equal(t, []byte{5, 0, 0, 0xff}, b[48:52])
	assert.Equal(t, []byte{0, 0, 0, FlagCullDisable}, b[52:56])
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, b[56:64])
}

func TestTransformMat4(t *testing.T) {
	var m linmath.Mat4x4
	m.Translate(1, 2, 3)
	tr := FromMat4(&m)
	assert.Equal(t, Identity.Translate(1, 2, 3), tr)
	assert.Equal(t, m, tr.Mat4())
}
