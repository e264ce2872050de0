// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

import (
	"errors"
	"fmt"
)

// PipelineKind is the bind point of a pipeline.
type PipelineKind int

// Pipeline kinds.
const (
	RayTracing PipelineKind = iota
	Graphics
)

// Pipeline is a ray tracing or graphics pipeline.
type Pipeline interface {
	Destroyer

	Kind() PipelineKind
}

// RTState describes a ray tracing pipeline. Shader groups are laid
// out as raygen (group 0), one triangles group per Hit entry,
// then one general group per Miss entry. The shader binding table
// follows the same order.
type RTState struct {
	Raygen       ShaderCode
	Hit          []ShaderCode
	Miss         []ShaderCode
	Layouts      []DescLayout
	MaxRecursion int
}

// Validate checks the state.
func (s *RTState) Validate() error {
	switch {
	case s.Raygen == nil:
		return errors.New("gpu: ray tracing pipeline has no raygen shader")
	case len(s.Hit) == 0:
		return errors.New("gpu: ray tracing pipeline has no hit group")
	case len(s.Miss) == 0:
		return errors.New("gpu: ray tracing pipeline has no miss shader")
	case len(s.Layouts) == 0:
		return errors.New("gpu: ray tracing pipeline has no descriptor layout")
	}
	if s.MaxRecursion <= 0 {
		s.MaxRecursion = 1
	}
	return nil
}

// Groups returns the number of shader groups.
func (s *RTState) Groups() int { return 1 + len(s.Hit) + len(s.Miss) }

// HitGroup returns the group index of the first hit group.
func (s *RTState) HitGroup() int { return 1 }

// MissGroup returns the group index of the first miss group.
func (s *RTState) MissGroup() int { return 1 + len(s.Hit) }

// GraphState describes a graphics pipeline drawing screen-space
// triangles. Vertex input is fixed to a vec2 position followed by a
// vec2 texture coordinate. Viewport and scissor cover Width×Height.
type GraphState struct {
	Vert, Frag    ShaderCode
	Layouts       []DescLayout
	Pass          RenderPass
	Subpass       int
	Width, Height int
}

// Validate checks the state.
func (s *GraphState) Validate() error {
	switch {
	case s.Vert == nil || s.Frag == nil:
		return errors.New("gpu: graphics pipeline needs vertex and fragment shaders")
	case s.Pass == nil:
		return errors.New("gpu: graphics pipeline has no render pass")
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("gpu: graphics pipeline has invalid viewport %dx%d", s.Width, s.Height)
	}
	return nil
}

// LoadOp is the type of an attachment's load operation.
type LoadOp int

// Load operations.
const (
	LDontCare LoadOp = iota
	LClear
	LLoad
)

// StoreOp is the type of an attachment's store operation.
type StoreOp int

// Store operations.
const (
	SDontCare StoreOp = iota
	SStore
)

// Attachment describes a render target of a render pass.
type Attachment struct {
	Format       Format
	Load         LoadOp
	Store        StoreOp
	LayoutBefore Layout
	LayoutAfter  Layout
}

// Subpass lists the attachment indices a subpass writes as color
// and reads as input attachments.
type Subpass struct {
	Color []int
	Input []int
}

// External names the implicit subpass outside a render pass.
const External = -1

// Dependency is an execution and memory dependency between two
// subpasses, or between a subpass and External.
type Dependency struct {
	From, To int
	Barrier
}

// RenderPass is a render pass into which draw commands operate.
type RenderPass interface {
	Destroyer

	// NewFB creates a framebuffer. Each image in views corresponds
	// to the attachment of same index.
	NewFB(views []Image, width, height int) (Framebuf, error)
}

// Framebuf is a set of attachments bound to a render pass.
type Framebuf interface {
	Destroyer
}
