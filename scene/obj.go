// Copyright (c) 2025 Cubyte.online under the AGPL License

package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tomas-mraz/vulkan-hybrid/accel"
)

// Mesh is an indexed triangle mesh with optional per-vertex normals
// and texture coordinates.
type Mesh struct {
	Name string
	// Positions, Normals and UVs hold 3, 3 and 2 floats per vertex.
	// Normals and UVs are zero when the file does not define them.
	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32

	Diffuse   [4]float32
	Transform accel.Transform
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) / 3 }

// Accel returns the geometry of m for acceleration structure builds.
func (m *Mesh) Accel() accel.Mesh {
	return accel.Mesh{Vertices: m.Positions, Indices: m.Indices, Transform: m.Transform}
}

// LoadOBJFile reads the Wavefront OBJ file at path.
func LoadOBJFile(path string) ([]*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadOBJ(f, path)
}

type objReader struct {
	name string

	positions [][3]float32
	normals   [][3]float32
	uvs       [][2]float32

	meshes []*Mesh
	// index of each v/vt/vn triple in the current mesh
	seen map[[3]int]uint32
}

// LoadOBJ reads OBJ data. Each "o" or "g" statement starts a new mesh;
// faces before any of them go to a mesh called "default". Polygons are
// triangulated as fans. Materials are ignored.
func LoadOBJ(r io.Reader, name string) ([]*Mesh, error) {
	o := &objReader{name: name}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}
		if err := o.statement(tokens); err != nil {
			return nil, &FieldError{File: name, Line: line, Field: tokens[0], Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("obj: %s: %w", name, err)
	}
	var meshes []*Mesh
	for _, m := range o.meshes {
		if len(m.Indices) > 0 {
			meshes = append(meshes, m)
		}
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("obj: %s: %w", name, ErrNoMeshes)
	}
	return meshes, nil
}

func (o *objReader) statement(tokens []string) error {
	switch tokens[0] {
	case "v":
		v, err := parseFloats(tokens, 3)
		if err != nil {
			return err
		}
		o.positions = append(o.positions, [3]float32{v[0], v[1], v[2]})
	case "vn":
		v, err := parseFloats(tokens, 3)
		if err != nil {
			return err
		}
		o.normals = append(o.normals, [3]float32{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(tokens, 2)
		if err != nil {
			return err
		}
		o.uvs = append(o.uvs, [2]float32{v[0], v[1]})
	case "o", "g":
		if len(tokens) < 2 {
			return fmt.Errorf("expected an object name")
		}
		o.begin(tokens[1])
	case "f":
		return o.face(tokens[1:])
	}
	return nil
}

func (o *objReader) begin(name string) {
	o.meshes = append(o.meshes, &Mesh{Name: name, Diffuse: [4]float32{DefaultDiffuse[0], DefaultDiffuse[1], DefaultDiffuse[2], 1}, Transform: accel.Identity})
	o.seen = make(map[[3]int]uint32)
}

func (o *objReader) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("face needs at least 3 vertices, got %d", len(args))
	}
	if len(o.meshes) == 0 {
		o.begin("default")
	}
	m := o.meshes[len(o.meshes)-1]
	idx := make([]uint32, len(args))
	for i, arg := range args {
		key, err := o.vertex(arg)
		if err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
		v, ok := o.seen[key]
		if !ok {
			v = uint32(m.VertexCount())
			o.seen[key] = v
			p := o.positions[key[0]]
			m.Positions = append(m.Positions, p[0], p[1], p[2])
			var uv [2]float32
			if key[1] >= 0 {
				uv = o.uvs[key[1]]
			}
			m.UVs = append(m.UVs, uv[0], uv[1])
			var n [3]float32
			if key[2] >= 0 {
				n = o.normals[key[2]]
			}
			m.Normals = append(m.Normals, n[0], n[1], n[2])
		}
		idx[i] = v
	}
	for i := 1; i+1 < len(idx); i++ {
		m.Indices = append(m.Indices, idx[0], idx[i], idx[i+1])
	}
	return nil
}

// vertex parses v, v/vt, v//vn or v/vt/vn into 0-based offsets, -1 for
// missing components.
func (o *objReader) vertex(arg string) ([3]int, error) {
	key := [3]int{-1, -1, -1}
	parts := strings.Split(arg, "/")
	if len(parts) > 3 || parts[0] == "" {
		return key, fmt.Errorf("malformed vertex reference %q", arg)
	}
	lens := [3]int{len(o.positions), len(o.uvs), len(o.normals)}
	for i, p := range parts {
		if p == "" {
			continue
		}
		off, err := coordIndex(p, lens[i])
		if err != nil {
			return key, err
		}
		key[i] = off
	}
	return key, nil
}

// coordIndex converts a 1-based or negative (relative to the end) OBJ
// index into an offset.
func coordIndex(tok string, n int) (int, error) {
	i, err := strconv.Atoi(tok)
	if err != nil {
		return -1, err
	}
	off := i - 1
	if i < 0 {
		off = n + i
	}
	if off < 0 || off >= n {
		return -1, fmt.Errorf("index %d out of bounds", i)
	}
	return off, nil
}

func parseFloats(tokens []string, n int) ([]float32, error) {
	if len(tokens) < n+1 {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(tokens)-1)
	}
	fs := make([]float32, n)
	for i := range fs {
		v, err := strconv.ParseFloat(tokens[i+1], 32)
		if err != nil {
			return nil, err
		}
		fs[i] = float32(v)
	}
	return fs, nil
}
