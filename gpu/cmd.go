// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

// CmdBuffer is the interface that defines a command buffer.
// Call Begin, record commands, call End and then GPU.Submit.
// BeginPass/NextSubpass/EndPass must be balanced and cannot
// be nested.
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	// It implicitly resets previously recorded commands.
	Begin() error

	// End ends command recording.
	End() error

	// Barrier inserts a number of global memory barriers.
	Barrier(b []Barrier)

	// Transition inserts a number of image layout transitions.
	Transition(t []Transition)

	// BuildAccel records the build of dst. Top-level structures
	// read their instance records from inst; inst is nil for
	// bottom-level structures. scratch must be at least
	// dst.ScratchSize() bytes.
	BuildAccel(dst AccelStruct, inst Buffer, scratch Buffer)

	// SetPipeline binds a pipeline to its bind point.
	SetPipeline(pl Pipeline)

	// SetDescSets binds descriptor sets starting at set index start
	// for the given pipeline.
	SetDescSets(pl Pipeline, start int, sets []DescSet)

	// TraceRays dispatches width×height rays with the shader binding
	// table of the bound ray tracing pipeline.
	TraceRays(pl Pipeline, width, height int)

	// BeginPass begins the first subpass of a render pass.
	BeginPass(pass RenderPass, fb Framebuf, clear [][4]float32)

	// NextSubpass ends the current subpass and begins the next one.
	NextSubpass()

	// EndPass ends the current render pass.
	EndPass()

	// SetVertexBuf binds a vertex buffer at binding 0.
	SetVertexBuf(buf Buffer)

	// SetIndexBuf binds a uint32 index buffer.
	SetIndexBuf(buf Buffer)

	// DrawIndexed draws count indices as a triangle list.
	DrawIndexed(count int)

	// Blit copies the whole of from into the whole of to with
	// linear filtering.
	Blit(from Image, fromLayout Layout, to Image, toLayout Layout)
}

// Sync is the type of a synchronization scope.
type Sync int

// Synchronization scopes.
const (
	STopOfPipe Sync = 1 << iota
	SRayTracing
	SASBuild
	SVertexShading
	SFragmentShading
	SColorOutput
	SCopy
	SBottomOfPipe
	SNone Sync = 0
)

// Access is the type of a memory access scope.
type Access int

// Memory access scopes.
const (
	AASRead Access = 1 << iota
	AASWrite
	AShaderRead
	AShaderWrite
	AColorRead
	AColorWrite
	AInputRead
	ACopyRead
	ACopyWrite
	AHostWrite
	ANone Access = 0
)

// Layout is the type of an image layout.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	LGeneral
	LColorTarget
	LShaderRead
	LCopySrc
	LCopyDst
	LPresent
)

func (l Layout) String() string {
	switch l {
	case LUndefined:
		return "undefined"
	case LGeneral:
		return "general"
	case LColorTarget:
		return "color-target"
	case LShaderRead:
		return "shader-read"
	case LCopySrc:
		return "copy-src"
	case LCopyDst:
		return "copy-dst"
	case LPresent:
		return "present"
	}
	return "invalid"
}

// Barrier represents a synchronization barrier.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition represents a layout transition of a whole image.
type Transition struct {
	Barrier

	LayoutBefore Layout
	LayoutAfter  Layout
	Image        Image
}
