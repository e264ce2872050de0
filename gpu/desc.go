// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

// DescKind is the type of a descriptor.
type DescKind int

// Descriptor kinds.
const (
	DAccel DescKind = iota
	DStorageImage
	DSampledImage
	DUniform
	DStorage
	DInputAttachment
	descKindN
)

func (k DescKind) String() string {
	switch k {
	case DAccel:
		return "acceleration-structure"
	case DStorageImage:
		return "storage-image"
	case DSampledImage:
		return "sampled-image"
	case DUniform:
		return "uniform-buffer"
	case DStorage:
		return "storage-buffer"
	case DInputAttachment:
		return "input-attachment"
	}
	return "invalid"
}

// Valid reports whether k is a known descriptor kind.
func (k DescKind) Valid() bool { return k >= DAccel && k < descKindN }

// Stage is a bit set of shader stages.
type Stage int

// Shader stages.
const (
	StRaygen Stage = 1 << iota
	StClosestHit
	StMiss
	StVertex
	StFragment
)

// Descriptor describes one binding of a descriptor set layout.
type Descriptor struct {
	Binding int
	Kind    DescKind
	Stages  Stage
}

// DescLayout is a descriptor set layout.
type DescLayout interface {
	Destroyer

	Descriptors() []Descriptor
}

// DescSet is a descriptor set. Setters only record references;
// resource contents can change without rewriting the set.
type DescSet interface {
	// SetAccel writes a top-level acceleration structure.
	SetAccel(binding int, as AccelStruct)

	// SetImage writes a storage image or input attachment that
	// will be in layout when accessed.
	SetImage(binding int, img Image, layout Layout)

	// SetSampled writes a combined image sampler.
	SetSampled(binding int, img Image, spl Sampler, layout Layout)

	// SetBuffer writes a uniform or storage buffer, whole range.
	SetBuffer(binding int, buf Buffer)
}

// PoolSizes counts the descriptors of each kind needed to allocate
// n sets of ds.
func PoolSizes(ds []Descriptor, n int) map[DescKind]int {
	m := make(map[DescKind]int)
	for _, d := range ds {
		m[d.Kind] += n
	}
	return m
}
