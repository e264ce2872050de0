// Copyright (c) 2025 Cubyte.online under the AGPL License

package render

import (
	"fmt"
	"os"
	"path/filepath"
)

// Logical shader names. Files are looked up as <name>.spv.
const (
	PrimaryRaygen     = "primary.rgen"
	PrimaryHit        = "primary.rchit"
	PrimaryShadowHit  = "primary_shadow.rchit"
	PrimaryMiss       = "primary.rmiss"
	PrimaryShadowMiss = "primary_shadow.rmiss"
	AORaygen          = "ao.rgen"
	AOHit             = "ao.rchit"
	AOShadowHit       = "ao_shadow.rchit"
	AOMiss            = "ao.rmiss"
	AOShadowMiss      = "ao_shadow.rmiss"
	BlurVert          = "blur.vert"
	BlurFrag          = "blur.frag"
	TemporalVert      = "temporal.vert"
	TemporalFrag      = "temporal.frag"
)

// ShaderNames lists every shader a scene needs.
var ShaderNames = []string{
	PrimaryRaygen, PrimaryHit, PrimaryShadowHit, PrimaryMiss, PrimaryShadowMiss,
	AORaygen, AOHit, AOShadowHit, AOMiss, AOShadowMiss,
	BlurVert, BlurFrag, TemporalVert, TemporalFrag,
}

// ShaderSet maps logical shader names to SPIR-V binaries.
type ShaderSet map[string][]byte

// LoadShaders reads every shader of ShaderNames from dir.
func LoadShaders(dir string) (ShaderSet, error) {
	s := make(ShaderSet, len(ShaderNames))
	for _, name := range ShaderNames {
		data, err := os.ReadFile(filepath.Join(dir, name+".spv"))
		if err != nil {
			return nil, fmt.Errorf("render: shader %s: %w", name, err)
		}
		s[name] = data
	}
	return s, s.Validate()
}

// Validate checks that every shader is present and word aligned.
func (s ShaderSet) Validate() error {
	for _, name := range ShaderNames {
		data, ok := s[name]
		switch {
		case !ok || len(data) == 0:
			return fmt.Errorf("render: shader %s missing", name)
		case len(data)%4 != 0:
			return fmt.Errorf("render: shader %s is %d bytes, not a SPIR-V word stream", name, len(data))
		}
	}
	return nil
}
