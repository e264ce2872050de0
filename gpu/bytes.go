// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

import (
	"encoding/binary"
	"math"
)

// Float32Bytes returns fs in the little-endian layout shaders read.
func Float32Bytes(fs []float32) []byte {
	b := make([]byte, len(fs)*4)
	PutFloat32s(b, fs)
	return b
}

// PutFloat32s writes fs into b, which must hold 4*len(fs) bytes.
func PutFloat32s(b []byte, fs []float32) {
	for i, f := range fs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
}

// Uint32Bytes returns us in little-endian layout.
func Uint32Bytes(us []uint32) []byte {
	b := make([]byte, len(us)*4)
	for i, u := range us {
		binary.LittleEndian.PutUint32(b[i*4:], u)
	}
	return b
}
