// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

// AccelLevel is the level of an acceleration structure.
type AccelLevel int

// Acceleration structure levels.
const (
	BottomLevel AccelLevel = iota
	TopLevel
)

// AccelStruct is a ray tracing acceleration structure.
type AccelStruct interface {
	Destroyer

	Level() AccelLevel

	// Handle returns the opaque device handle referenced by
	// top-level instance records.
	Handle() uint64

	// ScratchSize returns the scratch memory needed to build it.
	ScratchSize() int64
}

// Geometry is indexed triangle data for one bottom-level structure.
// Vertices hold 3 float32 per vertex; Indices hold uint32 triples.
type Geometry struct {
	Vertices    Buffer
	VertexCount int
	Indices     Buffer
	IndexCount  int
}

// InstanceSize is the size in bytes of one top-level instance record.
const InstanceSize = 64
