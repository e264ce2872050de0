// Copyright (c) 2025 Cubyte.online under the AGPL License

// Package binding declares the descriptor bindings of every pipeline
// as static tables and writes descriptor sets checked against them.
package binding

import (
	"fmt"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Entry is one binding of a table.
type Entry struct {
	Binding int
	Kind    gpu.DescKind
	Stages  gpu.Stage
	Name    string
	// Layout is the layout images of this binding are accessed in.
	// It is LUndefined for non-image kinds.
	Layout gpu.Layout
}

// Table is the binding layout of one descriptor set of a pipeline.
type Table struct {
	Pipeline string
	Set      int
	Entries  []Entry
}

func (t *Table) String() string { return fmt.Sprintf("%s set %d", t.Pipeline, t.Set) }

// Validate checks that binding indices are unique and every entry is
// well formed.
func (t *Table) Validate() error {
	if len(t.Entries) == 0 {
		return fmt.Errorf("binding: %s has no entries", t)
	}
	seen := make(map[int]string, len(t.Entries))
	for _, e := range t.Entries {
		if name, ok := seen[e.Binding]; ok {
			return fmt.Errorf("binding: %s binding %d declared twice (%s, %s)", t, e.Binding, name, e.Name)
		}
		seen[e.Binding] = e.Name
		if !e.Kind.Valid() {
			return fmt.Errorf("binding: %s binding %d has invalid kind %d", t, e.Binding, e.Kind)
		}
		if e.Stages == 0 {
			return fmt.Errorf("binding: %s binding %d is visible to no stage", t, e.Binding)
		}
		if isImage(e.Kind) == (e.Layout == gpu.LUndefined) {
			return fmt.Errorf("binding: %s binding %d (%s) has layout %s", t, e.Binding, e.Kind, e.Layout)
		}
	}
	return nil
}

// Lookup returns the entry with the given binding index.
func (t *Table) Lookup(binding int) (Entry, bool) {
	for _, e := range t.Entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return Entry{}, false
}

// Descriptors converts the table into a layout description.
func (t *Table) Descriptors() []gpu.Descriptor {
	ds := make([]gpu.Descriptor, len(t.Entries))
	for i, e := range t.Entries {
		ds[i] = gpu.Descriptor{Binding: e.Binding, Kind: e.Kind, Stages: e.Stages}
	}
	return ds
}

func isImage(k gpu.DescKind) bool {
	return k == gpu.DStorageImage || k == gpu.DSampledImage || k == gpu.DInputAttachment
}

// PoolSizes returns the descriptors of each kind needed to allocate
// counts[i] sets of tables[i].
func PoolSizes(tables []*Table, counts []int) map[gpu.DescKind]int {
	m := make(map[gpu.DescKind]int)
	for i, t := range tables {
		for k, n := range gpu.PoolSizes(t.Descriptors(), counts[i]) {
			m[k] += n
		}
	}
	return m
}

// Primary ray tracing, set 0 (ray generation).
const (
	PrimaryTLAS = iota
	PrimaryColor
	PrimaryPosition
	PrimaryNormal
	PrimaryCamera
	PrimaryLights
	PrimaryScalars
)

// Primary ray tracing, set 1 (closest hit).
const (
	HitCustomIndex = iota
	HitMeshAttributes
	HitVertexAttributes
)

// Ambient occlusion ray tracing, set 0.
const (
	AOTLAS = iota
	AOPosition
	AONormal
	AOImage
	AOFrame
	AOBlueNoise
)

// Blur subpass, set 0.
const (
	BlurColor = iota
	BlurAO
	BlurSettings
)

// Temporal integration subpass, set 0.
const (
	TemporalHistory = iota
	TemporalPosition
	TemporalCurrent
	TemporalCamera
)

// RTPrimaryRaygen is read by the primary ray generation shader, which
// writes color, position and normal.
var RTPrimaryRaygen = &Table{Pipeline: "rt-primary", Set: 0, Entries: []Entry{
	{Binding: PrimaryTLAS, Kind: gpu.DAccel, Stages: gpu.StRaygen, Name: "tlas"},
	{Binding: PrimaryColor, Kind: gpu.DStorageImage, Stages: gpu.StRaygen, Name: "color", Layout: gpu.LGeneral},
	{Binding: PrimaryPosition, Kind: gpu.DStorageImage, Stages: gpu.StRaygen, Name: "position", Layout: gpu.LGeneral},
	{Binding: PrimaryNormal, Kind: gpu.DStorageImage, Stages: gpu.StRaygen, Name: "normal", Layout: gpu.LGeneral},
	{Binding: PrimaryCamera, Kind: gpu.DUniform, Stages: gpu.StRaygen, Name: "camera"},
	{Binding: PrimaryLights, Kind: gpu.DStorage, Stages: gpu.StRaygen, Name: "lights"},
	{Binding: PrimaryScalars, Kind: gpu.DUniform, Stages: gpu.StRaygen, Name: "scalars"},
}}

// RTPrimaryHit holds the per-instance attribute lookups of the closest
// hit shader, bound separately from the ray generation data.
var RTPrimaryHit = &Table{Pipeline: "rt-primary", Set: 1, Entries: []Entry{
	{Binding: HitCustomIndex, Kind: gpu.DStorage, Stages: gpu.StClosestHit, Name: "custom-index-map"},
	{Binding: HitMeshAttributes, Kind: gpu.DStorage, Stages: gpu.StClosestHit, Name: "mesh-attributes"},
	{Binding: HitVertexAttributes, Kind: gpu.DStorage, Stages: gpu.StClosestHit, Name: "vertex-attributes"},
}}

// RTAO is the ambient occlusion pass, traced at half resolution from
// the primary G-buffer.
var RTAO = &Table{Pipeline: "rt-ao", Set: 0, Entries: []Entry{
	{Binding: AOTLAS, Kind: gpu.DAccel, Stages: gpu.StRaygen, Name: "tlas"},
	{Binding: AOPosition, Kind: gpu.DSampledImage, Stages: gpu.StRaygen, Name: "position", Layout: gpu.LShaderRead},
	{Binding: AONormal, Kind: gpu.DSampledImage, Stages: gpu.StRaygen, Name: "normal", Layout: gpu.LShaderRead},
	{Binding: AOImage, Kind: gpu.DStorageImage, Stages: gpu.StRaygen, Name: "ao", Layout: gpu.LGeneral},
	{Binding: AOFrame, Kind: gpu.DUniform, Stages: gpu.StRaygen, Name: "frame"},
	{Binding: AOBlueNoise, Kind: gpu.DSampledImage, Stages: gpu.StRaygen, Name: "blue-noise", Layout: gpu.LShaderRead},
}}

// RasterBlur is subpass 0 of the composition pass.
var RasterBlur = &Table{Pipeline: "raster-blur", Set: 0, Entries: []Entry{
	{Binding: BlurColor, Kind: gpu.DSampledImage, Stages: gpu.StFragment, Name: "color", Layout: gpu.LShaderRead},
	{Binding: BlurAO, Kind: gpu.DSampledImage, Stages: gpu.StFragment, Name: "ao", Layout: gpu.LShaderRead},
	{Binding: BlurSettings, Kind: gpu.DUniform, Stages: gpu.StFragment, Name: "blur"},
}}

// RasterTemporal is subpass 1 of the composition pass.
var RasterTemporal = &Table{Pipeline: "raster-temporal", Set: 0, Entries: []Entry{
	{Binding: TemporalHistory, Kind: gpu.DSampledImage, Stages: gpu.StFragment, Name: "history", Layout: gpu.LShaderRead},
	{Binding: TemporalPosition, Kind: gpu.DSampledImage, Stages: gpu.StFragment, Name: "position", Layout: gpu.LShaderRead},
	{Binding: TemporalCurrent, Kind: gpu.DInputAttachment, Stages: gpu.StFragment, Name: "current", Layout: gpu.LShaderRead},
	{Binding: TemporalCamera, Kind: gpu.DUniform, Stages: gpu.StFragment, Name: "camera"},
}}

// Tables lists every declared table.
var Tables = []*Table{RTPrimaryRaygen, RTPrimaryHit, RTAO, RasterBlur, RasterTemporal}
