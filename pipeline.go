// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	"fmt"

	vk "github.com/tomas-mraz/vulkan"

	"github.com/tomas-mraz/vulkan-hybrid/gpu"
)

// Pipeline is a graphics or ray tracing pipeline with its layout.
// Ray tracing pipelines own their shader binding table.
type Pipeline struct {
	dev      vk.Device
	kind     gpu.PipelineKind
	Pipeline vk.Pipeline
	Layout   vk.PipelineLayout

	sbt                           *Buffer
	stride, missOffset, hitOffset int64
}

func (p *Pipeline) Kind() gpu.PipelineKind { return p.kind }

func (p *Pipeline) bindPoint() vk.PipelineBindPoint {
	if p.kind == gpu.RayTracing {
		return bindPointRayTracingNV
	}
	return vk.PipelineBindPointGraphics
}

func (p *Pipeline) Destroy() {
	if p.sbt != nil {
		p.sbt.Destroy()
		p.sbt = nil
	}
	if p.Pipeline != vk.NullPipeline {
		vk.DestroyPipeline(p.dev, p.Pipeline, nil)
		p.Pipeline = vk.NullPipeline
	}
	if p.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.dev, p.Layout, nil)
		p.Layout = vk.NullPipelineLayout
	}
}

func (d *Device) newPipeline(kind gpu.PipelineKind, layouts []gpu.DescLayout) (*Pipeline, error) {
	setLayouts := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		setLayouts[i] = l.(*DescLayout).Layout
	}
	p := &Pipeline{dev: d.Device, kind: kind}
	ret := vk.CreatePipelineLayout(d.Device, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}, nil, &p.Layout)
	if err := vkError("vk.CreatePipelineLayout", ret); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Device) NewRTPipeline(state *gpu.RTState) (gpu.Pipeline, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if state.MaxRecursion > d.rt.MaxRecursion {
		return nil, fmt.Errorf("asch: recursion depth %d exceeds the device limit %d", state.MaxRecursion, d.rt.MaxRecursion)
	}
	p, err := d.newPipeline(gpu.RayTracing, state.Layouts)
	if err != nil {
		return nil, err
	}
	if err := d.initRT(p, state); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (d *Device) initRT(p *Pipeline, state *gpu.RTState) error {
	modules := []vk.ShaderModule{state.Raygen.(*ShaderCode).Module}
	for _, s := range state.Hit {
		modules = append(modules, s.(*ShaderCode).Module)
	}
	for _, s := range state.Miss {
		modules = append(modules, s.(*ShaderCode).Module)
	}
	var err error
	p.Pipeline, err = d.rt.createPipeline(p.Layout, modules, len(state.Hit), len(state.Miss), state.MaxRecursion)
	if err != nil {
		return err
	}

	// Shader binding table: one record per group in group order, each
	// aligned to the base alignment so every section offset is valid.
	groups := state.Groups()
	handles, err := d.rt.groupHandles(p.Pipeline, groups)
	if err != nil {
		return err
	}
	hs := int64(d.rt.HandleSize)
	p.stride = alignUp(hs, int64(d.rt.BaseAlignment))
	table := make([]byte, int64(groups)*p.stride)
	for i := int64(0); i < int64(groups); i++ {
		copy(table[i*p.stride:], handles[i*hs:(i+1)*hs])
	}
	p.hitOffset = int64(state.HitGroup()) * p.stride
	p.missOffset = int64(state.MissGroup()) * p.stride
	b, err := d.NewBuffer(&gpu.BufferConfig{Usage: gpu.URayTracing, Visible: true, Data: table})
	if err != nil {
		return fmt.Errorf("asch: shader binding table: %w", err)
	}
	p.sbt = b.(*Buffer)
	return nil
}

func alignUp(n, a int64) int64 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

func (d *Device) NewGraphPipeline(state *gpu.GraphState) (gpu.Pipeline, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	rp := state.Pass.(*RenderPass)
	p, err := d.newPipeline(gpu.Graphics, state.Layouts)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(state.Vert, vk.ShaderStageVertexBit),
		shaderStage(state.Frag, vk.ShaderStageFragmentBit),
	}
	// vec2 position, vec2 uv
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    16,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: 2,
		PVertexAttributeDescriptions: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 8},
		},
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			Width:    float32(state.Width),
			Height:   float32(state.Height),
			MinDepth: 0,
			MaxDepth: 1,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Extent: NewExtentSize(state.Width, state.Height),
		}},
	}
	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}
	multisampleState := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	blend := make([]vk.PipelineColorBlendAttachmentState, rp.colorAttachments(state.Subpass))
	for i := range blend {
		blend[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable: vk.False,
			ColorWriteMask: vk.ColorComponentFlags(
				vk.ColorComponentRBit | vk.ColorComponentGBit |
					vk.ColorComponentBBit | vk.ColorComponentABit,
			),
		}
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		AttachmentCount: uint32(len(blend)),
		PAttachments:    blend,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(d.Device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PColorBlendState:    &colorBlendState,
		Layout:              p.Layout,
		RenderPass:          rp.Pass,
		Subpass:             uint32(state.Subpass),
		BasePipelineIndex:   -1,
	}}, nil, pipelines)
	if err := vkError("vk.CreateGraphicsPipelines", ret); err != nil {
		p.Destroy()
		return nil, err
	}
	p.Pipeline = pipelines[0]
	return p, nil
}
