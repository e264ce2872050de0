// Copyright (c) 2025 Cubyte.online under the AGPL License

package camera

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

func assertVec(t *testing.T, want, got math32.Vector3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps, "x")
	assert.InDelta(t, want.Y, got.Y, eps, "y")
	assert.InDelta(t, want.Z, got.Z, eps, "z")
}

func TestBasisOrthonormal(t *testing.T) {
	dirs := []math32.Vector3{
		math32.Vec3(0, 0, -1),
		math32.Vec3(1, 0, 0),
		math32.Vec3(0.3, 0.5, -0.8),
		math32.Vec3(-2, -1, 4),
		math32.Vec3(0.01, -0.9, 0.02),
	}
	for _, d := range dirs {
		d = d.Normal()
		b, err := Derive(math32.Vec3(1, 2, 3), d, 60, 640, 480)
		require.NoError(t, err)
		assert.InDelta(t, 1, b.Right.Length(), eps)
		assert.InDelta(t, 1, b.Up.Length(), eps)
		assert.InDelta(t, 0, b.Right.Dot(b.Up), eps)
		assert.InDelta(t, 0, b.Right.Dot(d), eps)
		assert.InDelta(t, 0, b.Up.Dot(d), eps)
	}
}

func TestImagePlane(t *testing.T) {
	origin := math32.Vec3(0.5, -1, 2)
	c, err := New(Config{Origin: origin, Direction: math32.Vec3(0, 0, -1), FOV: 90, Width: 2, Height: 2})
	require.NoError(t, err)

	b := c.Basis()
	assert.InDelta(t, 1, b.HalfHeight, eps)
	assert.InDelta(t, 1, b.HalfWidth, eps)

	want := origin.Sub(b.Right).Add(b.Up).Add(c.Direction())
	assertVec(t, want, b.TopLeft)
	assertVec(t, math32.Vec3(-0.5, 0, 1), b.TopLeft)
	assertVec(t, math32.Vec3(2, 0, 0), b.Horizontal)
	assertVec(t, math32.Vec3(0, -2, 0), b.Vertical)

	assertVec(t, math32.Vec3(-1, 1, -1), c.RayDir(0, 0))
	assertVec(t, math32.Vec3(0, 0, -1), c.RayDir(0.5, 0.5))
}

func TestDegenerateBasis(t *testing.T) {
	_, err := New(Config{Direction: math32.Vec3(0, 1, 0), FOV: 60, Width: 64, Height: 64})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDegenerate)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "view_direction", fe.Field)
}

func TestMissingField(t *testing.T) {
	for field, cfg := range map[string]Config{
		"vertical_fov":   {Direction: math32.Vec3(0, 0, -1), Width: 64, Height: 64},
		"width":          {Direction: math32.Vec3(0, 0, -1), FOV: 60, Height: 64},
		"height":         {Direction: math32.Vec3(0, 0, -1), FOV: 60, Width: 64},
		"view_direction": {FOV: 60, Width: 64, Height: 64},
	} {
		_, err := New(cfg)
		var fe *FieldError
		require.ErrorAs(t, err, &fe, field)
		assert.Equal(t, field, fe.Field)
		assert.Contains(t, err.Error(), field)
	}
}

func TestUpdateKeepsStateOnError(t *testing.T) {
	c, err := New(Config{Direction: math32.Vec3(0, 0, -2), FOV: 60, Width: 64, Height: 32})
	require.NoError(t, err)
	assertVec(t, math32.Vec3(0, 0, -1), c.Direction())

	before := c.Basis()
	assert.Error(t, c.Update(math32.Vec3(1, 1, 1), math32.Vec3(0, -3, 0)))
	assert.Equal(t, before, c.Basis())
	assertVec(t, math32.Vec3(0, 0, 0), c.Origin())

	require.NoError(t, c.Update(math32.Vec3(1, 1, 1), math32.Vec3(1, 0, 0)))
	assertVec(t, math32.Vec3(0, 0, 1), c.Basis().Right)
}

func TestUniformData(t *testing.T) {
	c, err := New(Config{Origin: math32.Vec3(1, 2, 3), Direction: math32.Vec3(0, 0, -1), FOV: 60, Width: 64, Height: 64})
	require.NoError(t, err)

	data := c.UniformData()
	require.Len(t, data, UniformSize/4)
	assert.Equal(t, []float32{1, 2, 3, 0}, data[:4])
	assert.Equal(t, c.prev[0][:], data[16:20], "first column of the previous matrix")
	assert.Equal(t, c.prev[3][:], data[28:32])

	prev := c.Previous()
	assert.Equal(t, flatten(&prev), data[16:])

	require.NoError(t, c.Update(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -1)))
	assert.Equal(t, flatten(&prev), c.UniformData()[16:], "previous frame matrix only changes on Snapshot")
	c.Snapshot()
	assert.NotEqual(t, flatten(&prev), c.UniformData()[16:])
}

func TestViewProjectionDepth(t *testing.T) {
	c, err := New(Config{Direction: math32.Vec3(0, 0, -1), FOV: 60, Width: 64, Height: 64})
	require.NoError(t, err)
	vp := c.ViewProjection()

	depth := func(z float32) float32 {
		// Column-major: clip = vp · (0, 0, z, 1).
		cz := vp[2][2]*z + vp[3][2]
		cw := vp[2][3]*z + vp[3][3]
		return cz / cw
	}
	assert.InDelta(t, 0, depth(-zNear), 1e-4)
	assert.InDelta(t, 1, depth(-zFar), 1e-4)
}

func TestControls(t *testing.T) {
	c, err := New(Config{Direction: math32.Vec3(0, 0, -1), FOV: 60, Width: 64, Height: 64})
	require.NoError(t, err)

	assertVec(t, math32.Vec3(0, 0, -MoveStep), c.Move(Forward, MoveStep))
	assertVec(t, math32.Vec3(0, 0, MoveStep), c.Move(Back, MoveStep))
	assertVec(t, math32.Vec3(MoveStep, 0, 0), c.Move(Right, MoveStep))
	assertVec(t, math32.Vec3(-MoveStep, 0, 0), c.Move(Left, MoveStep))

	dir := c.Rotate(0, 0)
	assertVec(t, c.Direction(), dir)

	dir = c.Rotate(0.3, 0)
	assert.InDelta(t, 0, dir.Y, eps, "yaw keeps the horizon")
	assert.InDelta(t, 1, dir.Length(), eps)

	dir = c.Rotate(0, math32.Pi/2)
	assert.Less(t, math32.Abs(dir.Dot(WorldUp)), float32(maxPitch+eps))
	require.NoError(t, c.Update(c.Origin(), dir))
}
