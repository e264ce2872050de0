// Copyright (c) 2025 Cubyte.online under the AGPL License

package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
	"github.com/tomas-mraz/vulkan-hybrid/gpu/gputest"
)

func TestTablesValid(t *testing.T) {
	for _, tb := range Tables {
		assert.NoError(t, tb.Validate(), tb.String())
	}
	assert.Len(t, RTPrimaryRaygen.Entries, 7)
	assert.Len(t, RTPrimaryHit.Entries, 3)
	for _, e := range RTPrimaryHit.Entries {
		assert.Equal(t, gpu.StClosestHit, e.Stages, e.Name)
	}
	assert.Equal(t, 1, RTPrimaryHit.Set)
}

func TestTableValidateRejects(t *testing.T) {
	dup := &Table{Pipeline: "p", Entries: []Entry{
		{Binding: 0, Kind: gpu.DUniform, Stages: gpu.StRaygen, Name: "a"},
		{Binding: 0, Kind: gpu.DStorage, Stages: gpu.StRaygen, Name: "b"},
	}}
	assert.ErrorContains(t, dup.Validate(), "declared twice")

	noLayout := &Table{Pipeline: "p", Entries: []Entry{
		{Binding: 0, Kind: gpu.DStorageImage, Stages: gpu.StRaygen, Name: "img"},
	}}
	assert.Error(t, noLayout.Validate())

	noStage := &Table{Pipeline: "p", Entries: []Entry{{Binding: 0, Kind: gpu.DUniform, Name: "u"}}}
	assert.Error(t, noStage.Validate())
}

func fixtures(t *testing.T, g *gputest.GPU) (gpu.AccelStruct, gpu.Image, gpu.Sampler, gpu.Buffer) {
	as, err := g.NewTLAS(1)
	require.NoError(t, err)
	img, err := g.NewImage(&gpu.ImageConfig{Name: "color", Width: 4, Height: 4, Format: gpu.RGBA32Float, Usage: gpu.UStorageImage | gpu.USampled, Layout: gpu.LGeneral})
	require.NoError(t, err)
	spl, err := g.NewSampler(&gpu.SamplerConfig{})
	require.NoError(t, err)
	buf, err := g.NewBuffer(&gpu.BufferConfig{Size: 64, Usage: gpu.UUniform | gpu.UStorage, Visible: true})
	require.NoError(t, err)
	return as, img, spl, buf
}

func TestWriteValidated(t *testing.T) {
	g := gputest.New()
	as, img, spl, buf := fixtures(t, g)

	s, err := NewSets(g, RTPrimaryRaygen, 2)
	require.NoError(t, err)
	defer s.Destroy()
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, RTPrimaryRaygen.Descriptors(), s.Layout().Descriptors())

	err = s.Write(0, Accel(PrimaryTLAS, as), Storage(PrimaryCamera, buf))
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.Equal(t, PrimaryCamera, we.Binding)
	assert.Contains(t, err.Error(), "rt-primary set 0 binding 4 (camera)")
	assert.Empty(t, s.At(0).(*gputest.DescSet).Writes, "nothing is written when any write is invalid")

	assert.ErrorIs(t, s.Write(0, Uniform(9, buf)), ErrUnknownBinding)
	assert.ErrorIs(t, s.Write(0, Uniform(PrimaryCamera, nil)), ErrNilResource)
	assert.ErrorIs(t, s.Write(0, Write{Binding: PrimaryColor, Kind: gpu.DStorageImage, Image: img, Layout: gpu.LShaderRead}), ErrLayoutMismatch)
	assert.Error(t, s.Write(2, Uniform(PrimaryCamera, buf)))

	require.NoError(t, s.WriteAll(
		Accel(PrimaryTLAS, as),
		StorageImage(PrimaryColor, img),
		StorageImage(PrimaryPosition, img),
		StorageImage(PrimaryNormal, img),
		Storage(PrimaryLights, buf),
		Uniform(PrimaryScalars, buf),
	))
	assert.ErrorIs(t, s.Complete(), ErrIncomplete)
	require.NoError(t, s.Write(0, Uniform(PrimaryCamera, buf)))
	assert.ErrorContains(t, s.Complete(), "set 1")
	require.NoError(t, s.Write(1, Uniform(PrimaryCamera, buf)))
	assert.NoError(t, s.Complete())

	w := s.At(1).(*gputest.DescSet).Writes[PrimaryColor]
	assert.Equal(t, "SetImage", w.Method)
	assert.Equal(t, gpu.LGeneral, w.Layout)

	sampled := Sampled(BlurColor, img, spl)
	bs, err := NewSets(g, RasterBlur, 1)
	require.NoError(t, err)
	defer bs.Destroy()
	require.NoError(t, bs.Write(0, sampled))
	assert.Equal(t, spl, bs.At(0).(*gputest.DescSet).Writes[BlurColor].Sampler)
	assert.ErrorIs(t, bs.Write(0, Sampled(BlurAO, img, nil)), ErrNilResource)
}

func TestPoolSizes(t *testing.T) {
	m := PoolSizes([]*Table{RTPrimaryRaygen, RTAO, RasterTemporal}, []int{2, 2, 1})
	assert.Equal(t, map[gpu.DescKind]int{
		gpu.DAccel:           4,
		gpu.DStorageImage:    8,
		gpu.DUniform:         7,
		gpu.DStorage:         2,
		gpu.DSampledImage:    8,
		gpu.DInputAttachment: 1,
	}, m)
}
