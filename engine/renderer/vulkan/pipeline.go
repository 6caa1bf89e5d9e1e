package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbind/engine/core"
)

// maxPushConstantRanges bounds the ranges of a layout: only 128 bytes of
// push constants are guaranteed, at 4-byte alignment.
const maxPushConstantRanges = 32

type PipelineLayoutConfig struct {
	SetLayouts         []*VulkanDescriptorSetLayout
	PushConstantRanges []vk.PushConstantRange
}

type VulkanPipelineLayout struct {
	device *VulkanDevice
	handle vk.PipelineLayout
	id     trackID

	SetLayouts []*VulkanDescriptorSetLayout
}

func (d *VulkanDevice) CreatePipelineLayout(config PipelineLayoutConfig) (*VulkanPipelineLayout, error) {
	const op = "vkCreatePipelineLayout"
	if len(config.PushConstantRanges) > maxPushConstantRanges {
		return nil, d.precondition(op, "cannot have more than %d push constant ranges, got %d", maxPushConstantRanges, len(config.PushConstantRanges))
	}
	setLayouts := make([]vk.DescriptorSetLayout, len(config.SetLayouts))
	for i, l := range config.SetLayouts {
		setLayouts[i] = l.handle
	}
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(config.PushConstantRanges)),
		PPushConstantRanges:    append([]vk.PushConstantRange(nil), config.PushConstantRanges...),
	}
	handle, res := d.drv.CreatePipelineLayout(d.handle, &pipelineLayoutCreateInfo)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	l := &VulkanPipelineLayout{
		device:     d,
		handle:     handle,
		SetLayouts: append([]*VulkanDescriptorSetLayout(nil), config.SetLayouts...),
	}
	l.id = d.own(l)
	return l, nil
}

func (l *VulkanPipelineLayout) Handle() vk.PipelineLayout { return l.handle }

func (l *VulkanPipelineLayout) Destroy() {
	if l.handle == nil {
		return
	}
	l.device.drv.DestroyPipelineLayout(l.device.handle, l.handle)
	l.device.disown(l.id)
	l.handle = nil
}

type GraphicsPipelineConfig struct {
	RenderPass *VulkanRenderPass
	Subpass    uint32
	Layout     *VulkanPipelineLayout
	Stages     []ShaderStage

	VertexBindings   []vk.VertexInputBindingDescription
	VertexAttributes []vk.VertexInputAttributeDescription
	Topology         vk.PrimitiveTopology

	// The initial viewport and scissor. Both are dynamic unless
	// DynamicStates is set.
	Viewport vk.Viewport
	Scissor  vk.Rect2D

	CullMode    vk.CullModeFlags
	FrontFace   vk.FrontFace
	IsWireframe bool
	DepthTest   bool
	DepthWrite  bool
	// Blend enables alpha blending on every color attachment.
	Blend bool
	// ColorAttachments defaults to 1.
	ColorAttachments uint32
	DynamicStates    []vk.DynamicState
}

// DefaultGraphicsPipelineConfig is a back-face culled, alpha blended
// triangle list pipeline covering extent, with one interleaved vertex
// binding of the given stride.
func DefaultGraphicsPipelineConfig(pass *VulkanRenderPass, layout *VulkanPipelineLayout, stages []ShaderStage, extent vk.Extent2D, stride uint32, attributes []vk.VertexInputAttributeDescription) GraphicsPipelineConfig {
	config := GraphicsPipelineConfig{
		RenderPass:       pass,
		Layout:           layout,
		Stages:           stages,
		VertexAttributes: attributes,
		Topology:         vk.PrimitiveTopologyTriangleList,
		Viewport: vk.Viewport{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MaxDepth: 1.0,
		},
		Scissor:   vk.Rect2D{Extent: extent},
		CullMode:  vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace: vk.FrontFaceCounterClockwise,
		Blend:     true,
	}
	if stride > 0 {
		config.VertexBindings = []vk.VertexInputBindingDescription{{
			Binding:   0, // Binding index
			Stride:    stride,
			InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
		}}
	}
	return config
}

type ComputePipelineConfig struct {
	Layout *VulkanPipelineLayout
	Stage  ShaderStage
}

type VulkanPipeline struct {
	device *VulkanDevice
	handle vk.Pipeline
	id     trackID

	Layout    *VulkanPipelineLayout
	BindPoint vk.PipelineBindPoint
}

func (d *VulkanDevice) graphicsPipelineInfo(op string, config GraphicsPipelineConfig) (vk.GraphicsPipelineCreateInfo, error) {
	if config.RenderPass == nil || config.Layout == nil {
		return vk.GraphicsPipelineCreateInfo{}, d.precondition(op, "render pass and layout are required")
	}
	if len(config.Stages) == 0 {
		return vk.GraphicsPipelineCreateInfo{}, d.precondition(op, "at least one shader stage is required")
	}
	stages := make([]vk.PipelineShaderStageCreateInfo, len(config.Stages))
	for i, s := range config.Stages {
		if s.Module == nil {
			return vk.GraphicsPipelineCreateInfo{}, d.precondition(op, "stage %d has no module", i)
		}
		stages[i] = s.info()
	}

	// Viewport state
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{config.Viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{config.Scissor},
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                config.CullMode,
		FrontFace:               config.FrontFace,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  boolToVk(config.DepthTest),
		DepthWriteEnable: boolToVk(config.DepthWrite),
		DepthCompareOp:   vk.CompareOpLess,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         boolToVk(config.Blend),
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	attachments := make([]vk.PipelineColorBlendAttachmentState, orOne(config.ColorAttachments))
	for i := range attachments {
		attachments[i] = colorBlendAttachmentState
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
	}

	// Dynamic state
	dynamicStates := config.DynamicStates
	if dynamicStates == nil {
		dynamicStates = []vk.DynamicState{
			vk.DynamicStateViewport,
			vk.DynamicStateScissor,
			vk.DynamicStateLineWidth,
		}
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    append([]vk.DynamicState(nil), dynamicStates...),
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(config.VertexBindings)),
		PVertexBindingDescriptions:      append([]vk.VertexInputBindingDescription(nil), config.VertexBindings...),
		VertexAttributeDescriptionCount: uint32(len(config.VertexAttributes)),
		PVertexAttributeDescriptions:    append([]vk.VertexInputAttributeDescription(nil), config.VertexAttributes...),
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               config.Topology,
		PrimitiveRestartEnable: vk.False,
	}

	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              config.Layout.handle,
		RenderPass:          config.RenderPass.handle,
		Subpass:             config.Subpass,
		BasePipelineIndex:   -1,
	}, nil
}

// CreateGraphicsPipelines builds one pipeline per config in a single call.
// cache may be nil.
func (d *VulkanDevice) CreateGraphicsPipelines(cache *VulkanPipelineCache, configs ...GraphicsPipelineConfig) ([]*VulkanPipeline, error) {
	const op = "vkCreateGraphicsPipelines"
	if len(configs) == 0 {
		return nil, d.precondition(op, "at least one pipeline config is required")
	}
	infos := make([]vk.GraphicsPipelineCreateInfo, len(configs))
	for i, c := range configs {
		info, err := d.graphicsPipelineInfo(op, c)
		if err != nil {
			return nil, err
		}
		infos[i] = info
	}
	handles, res := d.drv.CreateGraphicsPipelines(d.handle, cache.native(), infos)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	out := make([]*VulkanPipeline, len(handles))
	for i, h := range handles {
		out[i] = &VulkanPipeline{device: d, handle: h, Layout: configs[i].Layout, BindPoint: vk.PipelineBindPointGraphics}
		out[i].id = d.own(out[i])
	}
	core.LogDebug("%d graphics pipeline(s) created", len(out))
	return out, nil
}

func (d *VulkanDevice) CreateComputePipeline(cache *VulkanPipelineCache, config ComputePipelineConfig) (*VulkanPipeline, error) {
	const op = "vkCreateComputePipelines"
	if config.Layout == nil || config.Stage.Module == nil {
		return nil, d.precondition(op, "layout and shader module are required")
	}
	if config.Stage.Stage == 0 {
		config.Stage.Stage = vk.ShaderStageComputeBit
	}
	info := vk.ComputePipelineCreateInfo{
		SType:             vk.StructureTypeComputePipelineCreateInfo,
		Stage:             config.Stage.info(),
		Layout:            config.Layout.handle,
		BasePipelineIndex: -1,
	}
	handles, res := d.drv.CreateComputePipelines(d.handle, cache.native(), []vk.ComputePipelineCreateInfo{info})
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	p := &VulkanPipeline{device: d, handle: handles[0], Layout: config.Layout, BindPoint: vk.PipelineBindPointCompute}
	p.id = d.own(p)
	return p, nil
}

func (p *VulkanPipeline) Handle() vk.Pipeline { return p.handle }

// Destroy releases the pipeline. The layout is owned separately.
func (p *VulkanPipeline) Destroy() {
	if p.handle == nil {
		return
	}
	p.device.drv.DestroyPipeline(p.device.handle, p.handle)
	p.device.disown(p.id)
	p.handle = nil
}

func (p *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer) error {
	return commandBuffer.BindPipeline(p)
}
