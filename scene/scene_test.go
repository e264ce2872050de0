// Copyright (c) 2025 Cubyte.online under the AGPL License

package scene

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomas-mraz/vulkan-hybrid/accel"
	"github.com/tomas-mraz/vulkan-hybrid/camera"
)

const sceneFile = `
[camera]
position = [0, 0, 0]
view_direction = [0, 0, -1]
vertical_fov = 60
width = 64
height = 64

[[model]]
file = "tri.obj"
translate = [1, 2, 3]

[[light]]
center = [0, 5, 0]
radius = 0.5
emittance = [10, 10, 10]
`

const triangle = `
# one triangle
v 0 0 -1
v 1 0 -1
v 0 1 -1
vn 0 0 1
f 1//1 2//1 3//1
`

func TestDecode(t *testing.T) {
	d, err := Decode(strings.NewReader(sceneFile), "scene.toml")
	require.NoError(t, err)

	assert.Equal(t, camera.Config{Direction: math32.Vec3(0, 0, -1), FOV: 60, Width: 64, Height: 64}, d.Camera)
	require.Len(t, d.Models, 1)
	m := d.Models[0]
	assert.Equal(t, "tri.obj", m.File)
	assert.Equal(t, [3]float32{1, 1, 1}, m.Scale)
	assert.Equal(t, DefaultDiffuse, m.Diffuse)
	assert.Equal(t, accel.Identity.Translate(1, 2, 3), m.Transform())
	require.Len(t, d.Lights, 1)
	assert.Equal(t, float32(0.5), d.Lights[0].Radius)
}

const sceneYAML = `
camera:
  position: [0, 0, 0]
  view_direction: [0, 0, -1]
  vertical_fov: 60
  width: 64
  height: 64
model:
  - file: tri.obj
    translate: [1, 2, 3]
light:
  - center: [0, 5, 0]
    radius: 0.5
    emittance: [10, 10, 10]
`

func TestDecodeYAML(t *testing.T) {
	d, err := Decode(strings.NewReader(sceneYAML), "scene.yaml")
	require.NoError(t, err)

	fromTOML, err := Decode(strings.NewReader(sceneFile), "scene.toml")
	require.NoError(t, err)
	assert.Equal(t, fromTOML.Camera, d.Camera)
	assert.Equal(t, fromTOML.Models, d.Models)
	assert.Equal(t, fromTOML.Lights, d.Lights)

	_, err = Decode(strings.NewReader(sceneYAML+"extra: 1\n"), "scene.yml")
	assert.Error(t, err)
}

func TestDecodeMissingCameraField(t *testing.T) {
	for _, field := range []string{"position", "view_direction", "vertical_fov", "width", "height"} {
		t.Run(field, func(t *testing.T) {
			var lines []string
			for _, l := range strings.Split(sceneFile, "\n") {
				if !strings.HasPrefix(l, field+" ") {
					lines = append(lines, l)
				}
			}
			_, err := Decode(strings.NewReader(strings.Join(lines, "\n")), "scene.toml")
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "camera."+field, fe.Field)
			assert.ErrorIs(t, err, ErrMissing)
			assert.Contains(t, err.Error(), "scene.toml")
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	noLights := sceneFile[:strings.Index(sceneFile, "[[light]]")]
	_, err := Decode(strings.NewReader(noLights), "s.toml")
	assert.ErrorIs(t, err, ErrNoLights)

	noModels := strings.Replace(sceneFile, "[[model]]\nfile = \"tri.obj\"\ntranslate = [1, 2, 3]\n", "", 1)
	_, err = Decode(strings.NewReader(noModels), "s.toml")
	assert.ErrorIs(t, err, ErrNoMeshes)

	badFOV := strings.Replace(sceneFile, "vertical_fov = 60", "vertical_fov = 0", 1)
	_, err = Decode(strings.NewReader(badFOV), "s.toml")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "camera.vertical_fov", fe.Field)

	unknown := strings.Replace(sceneFile, "radius = 0.5", "radius = 0.5\ncolour = 1", 1)
	_, err = Decode(strings.NewReader(unknown), "s.toml")
	require.ErrorAs(t, err, &fe)
	assert.Positive(t, fe.Line)

	typed := strings.Replace(sceneFile, "width = 64", `width = "wide"`, 1)
	_, err = Decode(strings.NewReader(typed), "s.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s.toml")

	noRadius := strings.Replace(sceneFile, "radius = 0.5\n", "", 1)
	_, err = Decode(strings.NewReader(noRadius), "s.toml")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "light[0].radius", fe.Field)

	matte := strings.Replace(sceneFile, `file = "tri.obj"`, "file = \"tri.obj\"\nmaterial = \"matte\"", 1)
	_, err = Decode(strings.NewReader(matte), "s.toml")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "model[0].diffuse", fe.Field)
}

func TestLoadMeshes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.toml"), []byte(sceneFile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.obj"), []byte(triangle), 0o644))

	d, err := Load(filepath.Join(dir, "scene.toml"))
	require.NoError(t, err)
	meshes, err := d.LoadMeshes()
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	m := meshes[0]
	assert.Equal(t, "default", m.Name)
	assert.Equal(t, []uint32{0, 1, 2}, m.Indices)
	assert.Equal(t, accel.Identity.Translate(1, 2, 3), m.Transform)
	assert.Equal(t, [4]float32{0.7, 0.7, 0.7, 1}, m.Diffuse)

	am := m.Accel()
	assert.NoError(t, am.Validate())

	d.Models[0].File = "missing.obj"
	_, err = d.LoadMeshes()
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "model[0].file", fe.Field)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOBJ(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 1
o quad
f 1/1 2/1 3/2 4/2
o tail
f -1 -2 -3
`
	meshes, err := LoadOBJ(strings.NewReader(src), "quad.obj")
	require.NoError(t, err)
	require.Len(t, meshes, 2)

	quad := meshes[0]
	assert.Equal(t, "quad", quad.Name)
	assert.Equal(t, 4, quad.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, quad.Indices)
	assert.Equal(t, []float32{0, 0, 0, 0, 1, 1, 1, 1}, quad.UVs)
	assert.Len(t, quad.Normals, 12)

	tail := meshes[1]
	assert.Equal(t, []float32{0, 1, 0, 1, 1, 0, 1, 0, 0}, tail.Positions)
}

func TestLoadOBJErrors(t *testing.T) {
	for name, src := range map[string]string{
		"bounds":    "v 0 0 0\nf 1 2 3\n",
		"short":     "v 0 0\n",
		"face":      "v 0 0 0\nf 1 1\n",
		"malformed": "v 0 0 0\nf 1/1/1/1 1 1\n",
		"empty":     "v 0 0 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadOBJ(strings.NewReader(src), name)
			assert.Error(t, err)
		})
	}

	_, err := LoadOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nf 1 2 9\n"), "x.obj")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Line)
	assert.Equal(t, "f", fe.Field)
}

func TestBuildAttributes(t *testing.T) {
	a := &Mesh{Positions: make([]float32, 9), Normals: []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}, Indices: []uint32{0, 1, 2}, Diffuse: [4]float32{1, 0, 0, 1}}
	b := &Mesh{Positions: make([]float32, 12), UVs: []float32{0, 0, 1, 0, 1, 1, 0, 1}, Indices: []uint32{0, 1, 2, 0, 2, 3}, Diffuse: [4]float32{0, 1, 0, 1}}

	attr, err := BuildAttributes([]*Mesh{a, b}, []uint32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 0}, attr.VertexBase)
	assert.Equal(t, []float32{0, 1, 0, 1, 1, 0, 0, 1}, attr.PerMesh)
	assert.Len(t, attr.PerVertex, 7*VertexStride)
	assert.Equal(t, []float32{0, 0, 1, 0, 0, 0, 0, 0}, attr.PerVertex[:VertexStride])
	assert.Equal(t, []float32{0, 0, 0, 0, 1, 1, 0, 0}, attr.PerVertex[5*VertexStride:6*VertexStride])

	_, err = BuildAttributes([]*Mesh{a, b}, []uint32{0, 0})
	assert.Error(t, err)
	_, err = BuildAttributes([]*Mesh{a}, []uint32{0, 1})
	assert.Error(t, err)
}

func TestModelTransform(t *testing.T) {
	m := Model{Rotate: [3]float32{0, 90, 0}, Scale: [3]float32{2, 2, 2}, Translate: [3]float32{0, 0, -5}}
	tr := m.Transform()
	// +x scaled by 2 and rotated a quarter turn around y lies on the z axis.
	x := [3]float32{tr[0], tr[4], tr[8]}
	assert.InDelta(t, 0, x[0], 1e-5)
	assert.InDelta(t, 0, x[1], 1e-5)
	assert.InDelta(t, 2, math32.Abs(x[2]), 1e-5)
	assert.Equal(t, float32(-5), tr[11])
}

func TestPackLights(t *testing.T) {
	fs := PackLights([]Light{{Center: math32.Vec3(1, 2, 3), Radius: 4, Emittance: math32.Vec3(5, 6, 7)}})
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 0}, fs)

	assert.ErrorIs(t, ValidateLights(nil), ErrNoLights)
	var fe *FieldError
	require.ErrorAs(t, ValidateLights([]Light{{Radius: 0}}), &fe)
	assert.Equal(t, "light[0].radius", fe.Field)
}

func TestNoise(t *testing.T) {
	img := LoadNoise("")
	assert.Equal(t, image.Rect(0, 0, NoiseSize, NoiseSize), img.Bounds())
	assert.Equal(t, GenerateNoise(NoiseSize, 1).Pix, img.Pix)
	assert.NotEqual(t, GenerateNoise(8, 1).Pix, GenerateNoise(8, 2).Pix)

	assert.Equal(t, img.Bounds(), LoadNoise(filepath.Join(t.TempDir(), "none.png")).Bounds())

	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	src.Set(1, 1, color.NRGBA{R: 9, G: 8, B: 7, A: 255})
	p := filepath.Join(t.TempDir(), "noise.png")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	got := LoadNoise(p)
	assert.Equal(t, image.Rect(0, 0, 4, 2), got.Bounds())
	assert.Equal(t, color.RGBA{R: 9, G: 8, B: 7, A: 255}, got.RGBAAt(1, 1))
}
