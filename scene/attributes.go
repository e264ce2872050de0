// Copyright (c) 2025 Cubyte.online under the AGPL License

package scene

import "fmt"

// Strides of the closest-hit attribute buffers, in 32-bit words.
const (
	// MeshStride holds the diffuse colour as vec4.
	MeshStride = 4
	// VertexStride holds the normal as vec4 followed by the uv as vec4.
	VertexStride = 8
)

// Attributes are the tables read by the closest-hit shader. The hit
// shader finds the mesh of an instance by its custom index and the
// vertex attributes at VertexBase[custom] + primitive index triples.
type Attributes struct {
	// VertexBase maps a custom index to the first entry of its mesh in
	// PerVertex.
	VertexBase []uint32
	PerMesh    []float32
	PerVertex  []float32
}

// BuildAttributes lays out the attribute tables for meshes in instance
// order. customIndices[i] is the custom index of instance i and must be
// a permutation of [0, len(meshes)).
func BuildAttributes(meshes []*Mesh, customIndices []uint32) (*Attributes, error) {
	if len(customIndices) != len(meshes) {
		return nil, fmt.Errorf("scene: %d custom indices for %d meshes", len(customIndices), len(meshes))
	}
	a := &Attributes{
		VertexBase: make([]uint32, len(meshes)),
		PerMesh:    make([]float32, len(meshes)*MeshStride),
	}
	seen := make([]bool, len(meshes))
	var base uint32
	for i, m := range meshes {
		c := customIndices[i]
		if int(c) >= len(meshes) || seen[c] {
			return nil, fmt.Errorf("scene: custom index %d of instance %d is not dense", c, i)
		}
		seen[c] = true
		a.VertexBase[c] = base
		copy(a.PerMesh[int(c)*MeshStride:], m.Diffuse[:])
		for v := 0; v < m.VertexCount(); v++ {
			var n [3]float32
			if len(m.Normals) >= 3*(v+1) {
				copy(n[:], m.Normals[3*v:])
			}
			var uv [2]float32
			if len(m.UVs) >= 2*(v+1) {
				copy(uv[:], m.UVs[2*v:])
			}
			a.PerVertex = append(a.PerVertex, n[0], n[1], n[2], 0, uv[0], uv[1], 0, 0)
		}
		base += uint32(m.VertexCount())
	}
	return a, nil
}
