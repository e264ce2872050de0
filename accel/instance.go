// Copyright (c) 2025 Cubyte.online under the AGPL License

package accel

import (
	"encoding/binary"
	"math"

	"github.com/xlab/linmath"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Transform is a row-major 3×4 affine transform.
type Transform [12]float32

// Identity is the identity transform.
var Identity = Transform{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
}

// FromMat4 converts a column-major linmath matrix, dropping the
// projective row.
func FromMat4(m *linmath.Mat4x4) Transform {
	var t Transform
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			t[r*4+c] = m[c][r]
		}
	}
	return t
}

// Mat4 converts t back to a column-major linmath matrix.
func (t Transform) Mat4() linmath.Mat4x4 {
	var m linmath.Mat4x4
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			m[c][r] = t[r*4+c]
		}
	}
	m[3][3] = 1
	return m
}

// Translate returns t moved by (x, y, z) in world space.
func (t Transform) Translate(x, y, z float32) Transform {
	t[3] += x
	t[7] += y
	t[11] += z
	return t
}

// Instance flags.
const (
	FlagCullDisable = 0x1
	FlagForceOpaque = 0x4
)

// DefaultMask makes an instance visible to every ray.
const DefaultMask = 0xff

// Instance is one top-level instance record.
type Instance struct {
	Transform Transform
	// CustomIndex is 24 bits, SBTOffset 24 bits.
	CustomIndex uint32
	Mask        uint8
	SBTOffset   uint32
	Flags       uint8
	BLAS        uint64
}

// Encode writes the record into b, which must hold gpu.InstanceSize
// bytes. The layout is the one ray tracing devices read instance
// buffers in.
func (in *Instance) Encode(b []byte) {
	_ = b[gpu.InstanceSize-1]
	for i, f := range in.Transform {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(b[48:], in.CustomIndex&0xffffff|uint32(in.Mask)<<24)
	binary.LittleEndian.PutUint32(b[52:], in.SBTOffset&0xffffff|uint32(in.Flags)<<24)
	binary.LittleEndian.PutUint64(b[56:], in.BLAS)
}

// Decode reads a record written by Encode.
func (in *Instance) Decode(b []byte) {
	_ = b[gpu.InstanceSize-1]
	for i := range in.Transform {
		in.Transform[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	w := binary.LittleEndian.Uint32(b[48:])
	in.CustomIndex, in.Mask = w&0xffffff, uint8(w>>24)
	w = binary.LittleEndian.Uint32(b[52:])
	in.SBTOffset, in.Flags = w&0xffffff, uint8(w>>24)
	in.BLAS = binary.LittleEndian.Uint64(b[56:])
}

func encodeAll(dst []byte, ins []Instance) {
	for i := range ins {
		ins[i].Encode(dst[i*gpu.InstanceSize:])
	}
}
