// Copyright (c) 2025 Cubyte.online under the AGPL License

package render

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomas-mraz/vulkan-hybrid/accel"
	"github.com/tomas-mraz/vulkan-hybrid/camera"
	"github.com/tomas-mraz/vulkan-hybrid/gpu"
	"github.com/tomas-mraz/vulkan-hybrid/gpu/gputest"
	"github.com/tomas-mraz/vulkan-hybrid/scene"
)

func testShaders() ShaderSet {
	s := make(ShaderSet)
	for _, name := range ShaderNames {
		s[name] = []byte{0x03, 0x02, 0x23, 0x07}
	}
	return s
}

func triangle() []*scene.Mesh {
	return []*scene.Mesh{{
		Name:      "tri",
		Positions: []float32{0, 0, -1, 1, 0, -1, 0, 1, -1},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:   []uint32{0, 1, 2},
		Diffuse:   [4]float32{0.7, 0.7, 0.7, 1},
		Transform: accel.Identity,
	}}
}

var (
	testLights = []scene.Light{{Center: math32.Vec3(0, 5, 0), Radius: 0.5, Emittance: math32.Vec3(10, 10, 10)}}
	testCamera = camera.Config{Direction: math32.Vec3(0, 0, -1), FOV: 60, Width: 64, Height: 64}
)

func TestOffscreenScene(t *testing.T) {
	g := gputest.New()
	r := New(g, nil, testShaders(), DefaultOptions())

	s, err := r.BuildScene(triangle(), testLights, testCamera)
	require.NoError(t, err)
	assert.Same(t, s, r.Scene())
	assert.Equal(t, 1, s.Instances())

	for i := 0; i < 3; i++ {
		ms, err := r.RenderFrame(false)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ms, 0.0)
	}
	assert.EqualValues(t, 3, s.Frame())
	assert.Zero(t, g.Count("Acquire"))

	_, err = r.RenderFrame(true)
	assert.ErrorIs(t, err, gpu.ErrCannotPresent)

	r.Close()
	assert.Nil(t, r.Scene())
	assert.Zero(t, g.Live())
	assert.Empty(t, g.Violations)
}

func TestOnscreenScene(t *testing.T) {
	g := gputest.New()
	target := g.NewTarget(3, 64, 64, true)
	r := New(g, target, testShaders(), DefaultOptions())

	_, err := r.BuildScene(triangle(), testLights, testCamera)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := r.RenderFrame(true)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 1, 2, 0}, target.Acquired)
	assert.LessOrEqual(t, g.MaxOutstanding, 2)

	r.Close()
	assert.Zero(t, g.Live())
	assert.Empty(t, g.Violations)
}

func TestBuildSceneRejectsBeforeAllocating(t *testing.T) {
	noFOV := testCamera
	noFOV.FOV = 0
	badMesh := triangle()
	badMesh[0].Indices = []uint32{0, 1}
	shaders := testShaders()
	delete(shaders, AOMiss)

	for name, tc := range map[string]struct {
		meshes  []*scene.Mesh
		lights  []scene.Light
		cam     camera.Config
		shaders ShaderSet
		target  bool
		is      error
	}{
		"no meshes":   {lights: testLights, cam: testCamera, is: scene.ErrNoMeshes},
		"no lights":   {meshes: triangle(), cam: testCamera, is: scene.ErrNoLights},
		"no fov":      {meshes: triangle(), lights: testLights, cam: noFOV},
		"bad mesh":    {meshes: badMesh, lights: testLights, cam: testCamera},
		"shaders":     {meshes: triangle(), lights: testLights, cam: testCamera, shaders: shaders},
		"film/target": {meshes: triangle(), lights: testLights, cam: testCamera, target: true},
	} {
		t.Run(name, func(t *testing.T) {
			g := gputest.New()
			if tc.shaders == nil {
				tc.shaders = testShaders()
			}
			var target gpu.Target
			if tc.target {
				target = g.NewTarget(2, 32, 32, true)
			}
			r := New(g, target, tc.shaders, DefaultOptions())
			_, err := r.BuildScene(tc.meshes, tc.lights, tc.cam)
			require.Error(t, err)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
			assert.Empty(t, g.Calls)
			assert.Nil(t, r.Scene())
		})
	}

	g := gputest.New()
	r := New(g, nil, testShaders(), DefaultOptions())
	noFOV.Width = 64
	_, err := r.BuildScene(triangle(), testLights, noFOV)
	var fe *camera.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "vertical_fov", fe.Field)
}

func TestBuildSceneFailureReleases(t *testing.T) {
	g := gputest.New()
	g.FailOn["NewGraphPipeline"] = assert.AnError
	r := New(g, nil, testShaders(), DefaultOptions())

	_, err := r.BuildScene(triangle(), testLights, testCamera)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, r.Scene())
	assert.Zero(t, g.Live())
}

func TestRebuildReplacesScene(t *testing.T) {
	g := gputest.New()
	r := New(g, nil, testShaders(), DefaultOptions())

	_, err := r.BuildScene(triangle(), testLights, testCamera)
	require.NoError(t, err)
	live := g.Live()
	_, err = r.BuildScene(triangle(), testLights, testCamera)
	require.NoError(t, err)
	assert.Equal(t, live, g.Live())
	r.Close()
	assert.Zero(t, g.Live())
}

func TestToggles(t *testing.T) {
	g := gputest.New()
	r := New(g, nil, testShaders(), DefaultOptions())
	r.SetAO(false)
	r.SetAnimate(false)

	_, err := r.BuildScene(triangle(), testLights, testCamera)
	require.NoError(t, err)
	_, err = r.RenderFrame(false)
	require.NoError(t, err)
	names := gputest.Names(g.Frames()[0].Ops)
	assert.NotContains(t, names, "BuildAccel")

	r.SetAnimate(true)
	r.SetBlur(false)
	_, err = r.RenderFrame(false)
	require.NoError(t, err)
	assert.Contains(t, gputest.Names(g.Frames()[1].Ops), "BuildAccel")
	r.Close()
}

func TestUpdateCamera(t *testing.T) {
	g := gputest.New()
	r := New(g, nil, testShaders(), DefaultOptions())
	assert.ErrorIs(t, r.UpdateCamera(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -1)), ErrNoScene)
	assert.Nil(t, r.Camera())
	_, err := r.RenderFrame(false)
	assert.ErrorIs(t, err, ErrNoScene)

	_, err = r.BuildScene(triangle(), testLights, testCamera)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.UpdateCamera(math32.Vec3(1, 2, 3), math32.Vec3(1, 0, 0)))
	assert.Equal(t, math32.Vec3(1, 2, 3), r.Camera().Origin())
	assert.Error(t, r.UpdateCamera(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, 0)))
}

func TestShaderSet(t *testing.T) {
	assert.NoError(t, testShaders().Validate())

	s := testShaders()
	s[BlurFrag] = []byte{1, 2, 3}
	assert.ErrorContains(t, s.Validate(), BlurFrag)

	_, err := LoadShaders(t.TempDir())
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	g := gputest.New()
	r := New(g, nil, testShaders(), Options{})
	assert.Equal(t, 2, r.opts.FramesInFlight)
	assert.Equal(t, gpu.BGRA8Unorm, r.opts.Format)
	require.NotNil(t, r.opts.Noise)

	opts := DefaultOptions()
	opts.Format = gpu.RGBA8Unorm
	r = New(g, g.NewTarget(2, 8, 8, true), testShaders(), opts)
	assert.Equal(t, gpu.BGRA8Unorm, r.opts.Format, "the target decides the format")
}
