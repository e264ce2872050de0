// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package scene describes what the renderer draws: a camera, a list of
// models loaded from Wavefront OBJ files and spherical lights.
//
// Scene files are TOML:
//
//	[camera]
//	position = [0, 1, 4]
//	view_direction = [0, 0, -1]
//	vertical_fov = 60
//	width = 1280
//	height = 720
//
//	[[model]]
//	file = "bunny.obj"
//	translate = [0, 0, -2]
//	rotate = [0, 90, 0]
//	scale = [1, 1, 1]
//	diffuse = [0.8, 0.2, 0.2]
//
//	[[light]]
//	center = [0, 5, 0]
//	radius = 0.5
//	emittance = [10, 10, 10]
package scene

import (
	"errors"
	"fmt"

	"cogentcore.org/core/math32"
	"github.com/xlab/linmath"

	"github.com/tomas-mraz/vulkan-hybrid/accel"
	"github.com/tomas-mraz/vulkan-hybrid/camera"
)

var (
	// ErrNoMeshes is returned for a scene without geometry.
	ErrNoMeshes = accel.ErrNoMeshes
	// ErrNoLights is returned for a scene without light sources.
	ErrNoLights = errors.New("scene has no lights")
)

// FieldError reports an invalid or missing field of a scene
// description. Line is zero when the position is unknown.
type FieldError struct {
	File  string
	Line  int
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %v", e.File, e.Line, e.Field, e.Err)
	case e.File != "":
		return fmt.Sprintf("%s: %s: %v", e.File, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ErrMissing is wrapped by FieldError for absent mandatory fields.
var ErrMissing = errors.New("missing")

// DefaultDiffuse is the colour of models without one.
var DefaultDiffuse = [3]float32{0.7, 0.7, 0.7}

// Model references one OBJ file placed in the world.
type Model struct {
	File string
	// Translate, Scale and Rotate (degrees around x, then y, then z)
	// compose to T·R·S.
	Translate [3]float32
	Rotate    [3]float32
	Scale     [3]float32
	Material  string
	Diffuse   [3]float32
}

// Transform returns T·Rx·Ry·Rz·S.
func (m *Model) Transform() accel.Transform {
	var t, r, s, tmp, out linmath.Mat4x4
	t.Translate(m.Translate[0], m.Translate[1], m.Translate[2])

	var id, rx, ry linmath.Mat4x4
	id.Identity()
	rx.Rotate(&id, 1, 0, 0, math32.DegToRad(m.Rotate[0]))
	ry.Rotate(&rx, 0, 1, 0, math32.DegToRad(m.Rotate[1]))
	r.Rotate(&ry, 0, 0, 1, math32.DegToRad(m.Rotate[2]))

	s.Identity()
	s.ScaleAniso(&s, m.Scale[0], m.Scale[1], m.Scale[2])

	tmp.Mult(&r, &s)
	out.Mult(&t, &tmp)
	return accel.FromMat4(&out)
}

// Light is a spherical area light.
type Light struct {
	Center    math32.Vector3
	Radius    float32
	Emittance math32.Vector3
}

// LightStride is the number of floats per packed light.
const LightStride = 8

// PackLights packs lights as {center, radius, emittance, 0} vec4 pairs.
func PackLights(lights []Light) []float32 {
	fs := make([]float32, 0, len(lights)*LightStride)
	for _, l := range lights {
		fs = append(fs,
			l.Center.X, l.Center.Y, l.Center.Z, l.Radius,
			l.Emittance.X, l.Emittance.Y, l.Emittance.Z, 0)
	}
	return fs
}

// Description is a validated-on-demand scene.
type Description struct {
	// Path of the scene file, if loaded from one. Model files are
	// relative to its directory.
	Path   string
	Camera camera.Config
	Models []Model
	Lights []Light
}

// Validate checks counts first, then every light and the camera.
func (d *Description) Validate() error {
	if len(d.Models) == 0 {
		return ErrNoMeshes
	}
	if len(d.Lights) == 0 {
		return ErrNoLights
	}
	for i, m := range d.Models {
		if m.File == "" {
			return &FieldError{File: d.Path, Field: fmt.Sprintf("model[%d].file", i), Err: ErrMissing}
		}
		for _, s := range m.Scale {
			if s == 0 {
				return &FieldError{File: d.Path, Field: fmt.Sprintf("model[%d].scale", i), Err: errors.New("zero scale")}
			}
		}
	}
	if err := ValidateLights(d.Lights); err != nil {
		return err
	}
	if err := d.Camera.Validate(); err != nil {
		var fe *camera.FieldError
		if errors.As(err, &fe) {
			return &FieldError{File: d.Path, Field: "camera." + fe.Field, Err: fe.Err}
		}
		return err
	}
	return nil
}

// ValidateLights checks that there is at least one light and every
// radius is positive.
func ValidateLights(lights []Light) error {
	if len(lights) == 0 {
		return ErrNoLights
	}
	for i, l := range lights {
		if l.Radius <= 0 {
			return &FieldError{Field: fmt.Sprintf("light[%d].radius", i), Err: fmt.Errorf("must be positive, got %g", l.Radius)}
		}
	}
	return nil
}
