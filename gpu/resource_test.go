// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferConfigValidate(t *testing.T) {
	cfg := &BufferConfig{Usage: UUniform, Data: make([]byte, 48)}
	require.NoError(t, cfg.Validate())
	assert.EqualValues(t, 48, cfg.Size, "size defaults to the data length")

	assert.Error(t, (&BufferConfig{Usage: UUniform}).Validate())
	assert.Error(t, (&BufferConfig{Size: 16}).Validate())
	assert.Error(t, (&BufferConfig{Size: 4, Usage: UStorage, Data: make([]byte, 8)}).Validate())
}

func TestImageConfigValidate(t *testing.T) {
	ok := &ImageConfig{Name: "noise", Width: 2, Height: 2, Format: RGBA8Unorm, Usage: USampled | UCopyDst, Data: make([]byte, 16)}
	require.NoError(t, ok.Validate())

	for name, cfg := range map[string]*ImageConfig{
		"size":    {Name: "a", Format: RGBA8Unorm, Usage: USampled},
		"format":  {Name: "a", Width: 1, Height: 1, Usage: USampled},
		"usage":   {Name: "a", Width: 1, Height: 1, Format: RGBA8Unorm},
		"no-copy": {Name: "a", Width: 1, Height: 1, Format: RGBA8Unorm, Usage: USampled, Data: make([]byte, 4)},
		"data":    {Name: "a", Width: 2, Height: 1, Format: RGBA32Float, Usage: UCopyDst, Data: make([]byte, 16)},
	} {
		err := cfg.Validate()
		assert.Error(t, err, name)
	}
}

func TestRTStateGroups(t *testing.T) {
	s := &RTState{}
	assert.Error(t, s.Validate())

	var code struct{ ShaderCode }
	var layout struct{ DescLayout }
	s = &RTState{Raygen: code, Hit: []ShaderCode{code, code}, Miss: []ShaderCode{code, code}, Layouts: []DescLayout{layout}}
	require.NoError(t, s.Validate())
	assert.Equal(t, 1, s.MaxRecursion)
	assert.Equal(t, 5, s.Groups())
	assert.Equal(t, 1, s.HitGroup())
	assert.Equal(t, 3, s.MissGroup())
}

func TestPoolSizes(t *testing.T) {
	ds := []Descriptor{
		{Binding: 0, Kind: DAccel},
		{Binding: 1, Kind: DStorageImage},
		{Binding: 2, Kind: DStorageImage},
		{Binding: 3, Kind: DUniform},
	}
	assert.Equal(t, map[DescKind]int{DAccel: 2, DStorageImage: 4, DUniform: 2}, PoolSizes(ds, 2))
	assert.False(t, descKindN.Valid())
	assert.Equal(t, "input-attachment", DInputAttachment.String())
}
