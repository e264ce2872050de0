// Copyright (c) 2025 Cubyte.online under the AGPL License

package scene

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cogentcore.org/core/math32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/tomas-mraz/vulkan-hybrid/camera"
)

type vec3 = *[3]float32

type fileCamera struct {
	Position      vec3     `toml:"position" yaml:"position"`
	ViewDirection vec3     `toml:"view_direction" yaml:"view_direction"`
	VerticalFOV   *float32 `toml:"vertical_fov" yaml:"vertical_fov"`
	Width         *int     `toml:"width" yaml:"width"`
	Height        *int     `toml:"height" yaml:"height"`
}

type fileModel struct {
	File      string `toml:"file" yaml:"file"`
	Translate vec3   `toml:"translate" yaml:"translate"`
	Rotate    vec3   `toml:"rotate" yaml:"rotate"`
	Scale     vec3   `toml:"scale" yaml:"scale"`
	Material  string `toml:"material" yaml:"material"`
	Diffuse   vec3   `toml:"diffuse" yaml:"diffuse"`
}

type fileLight struct {
	Center    vec3     `toml:"center" yaml:"center"`
	Radius    *float32 `toml:"radius" yaml:"radius"`
	Emittance vec3     `toml:"emittance" yaml:"emittance"`
}

type file struct {
	Camera *fileCamera `toml:"camera" yaml:"camera"`
	Models []fileModel `toml:"model" yaml:"model"`
	Lights []fileLight `toml:"light" yaml:"light"`
}

// Load reads and validates a scene file.
func Load(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode reads a scene from r. path is used for diagnostics and to
// resolve model files; a .yaml or .yml extension selects YAML, anything
// else TOML. The result is validated.
func Decode(r io.Reader, path string) (*Description, error) {
	var sf file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&sf); err != nil {
			return nil, fmt.Errorf("scene: %s: %w", path, err)
		}
	default:
		dec := toml.NewDecoder(r).DisallowUnknownFields()
		if err := dec.Decode(&sf); err != nil {
			return nil, decodeError(path, err)
		}
	}
	d := &Description{Path: path}
	if err := sf.camera(d); err != nil {
		return nil, err
	}
	for i, m := range sf.Models {
		model := Model{
			File:     m.File,
			Material: m.Material,
			Scale:    [3]float32{1, 1, 1},
			Diffuse:  DefaultDiffuse,
		}
		set(&model.Translate, m.Translate)
		set(&model.Rotate, m.Rotate)
		set(&model.Scale, m.Scale)
		set(&model.Diffuse, m.Diffuse)
		if m.Material == "matte" && m.Diffuse == nil {
			return nil, &FieldError{File: path, Field: fmt.Sprintf("model[%d].diffuse", i), Err: ErrMissing}
		}
		d.Models = append(d.Models, model)
	}
	for i, l := range sf.Lights {
		var light Light
		switch {
		case l.Center == nil:
			return nil, &FieldError{File: path, Field: fmt.Sprintf("light[%d].center", i), Err: ErrMissing}
		case l.Radius == nil:
			return nil, &FieldError{File: path, Field: fmt.Sprintf("light[%d].radius", i), Err: ErrMissing}
		case l.Emittance == nil:
			return nil, &FieldError{File: path, Field: fmt.Sprintf("light[%d].emittance", i), Err: ErrMissing}
		}
		light.Center = vector(l.Center)
		light.Radius = *l.Radius
		light.Emittance = vector(l.Emittance)
		d.Lights = append(d.Lights, light)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	slog.Debug(fmt.Sprintf("scene: %s: %d models, %d lights", path, len(d.Models), len(d.Lights)))
	return d, nil
}

func (sf *file) camera(d *Description) error {
	missing := func(field string) error {
		return &FieldError{File: d.Path, Field: "camera." + field, Err: ErrMissing}
	}
	c := sf.Camera
	switch {
	case c == nil:
		return &FieldError{File: d.Path, Field: "camera", Err: ErrMissing}
	case c.Position == nil:
		return missing("position")
	case c.ViewDirection == nil:
		return missing("view_direction")
	case c.VerticalFOV == nil:
		return missing("vertical_fov")
	case c.Width == nil:
		return missing("width")
	case c.Height == nil:
		return missing("height")
	}
	d.Camera = camera.Config{
		Origin:    vector(c.Position),
		Direction: vector(c.ViewDirection),
		FOV:       *c.VerticalFOV,
		Width:     *c.Width,
		Height:    *c.Height,
	}
	return nil
}

func set(dst *[3]float32, v vec3) {
	if v != nil {
		*dst = *v
	}
}

func vector(v vec3) math32.Vector3 { return math32.Vec3(v[0], v[1], v[2]) }

// decodeError converts TOML errors into a FieldError carrying the
// line of the offending key.
func decodeError(path string, err error) error {
	var de *toml.DecodeError
	if errors.As(err, &de) {
		row, _ := de.Position()
		return &FieldError{File: path, Line: row, Field: strings.Join(de.Key(), "."), Err: err}
	}
	var se *toml.StrictMissingError
	if errors.As(err, &se) && len(se.Errors) > 0 {
		first := &se.Errors[0]
		row, _ := first.Position()
		return &FieldError{File: path, Line: row, Field: strings.Join(first.Key(), "."), Err: errors.New("unknown field")}
	}
	return fmt.Errorf("scene: %s: %w", path, err)
}

// LoadMeshes loads the OBJ file of every model, relative to the scene
// file, and places its meshes with the model transform.
func (d *Description) LoadMeshes() ([]*Mesh, error) {
	dir := filepath.Dir(d.Path)
	var meshes []*Mesh
	for i := range d.Models {
		m := &d.Models[i]
		p := m.File
		if !filepath.IsAbs(p) && d.Path != "" {
			p = filepath.Join(dir, p)
		}
		ms, err := LoadOBJFile(p)
		if err != nil {
			return nil, &FieldError{File: d.Path, Field: fmt.Sprintf("model[%d].file", i), Err: err}
		}
		tr := m.Transform()
		for _, mesh := range ms {
			mesh.Transform = tr
			mesh.Diffuse = [4]float32{m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], 1}
		}
		meshes = append(meshes, ms...)
	}
	if len(meshes) == 0 {
		return nil, ErrNoMeshes
	}
	return meshes, nil
}
