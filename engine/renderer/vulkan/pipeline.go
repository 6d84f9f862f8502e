package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/renderer"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief The renderpass to associate with the pipeline. */
	Renderpass *VulkanRenderpass
	/** @brief The stride of the vertex data to be used. */
	Stride uint32
	/** @brief An array of attributes. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief An array of stages. */
	Stages []vk.PipelineShaderStageCreateInfo
	/** @brief The primitive topology. */
	Topology vk.PrimitiveTopology
	/** @brief The face cull mode. */
	CullMode metadata.FaceCullMode
}

func pixelFormatToVulkan(format metadata.PixelFormat) (vk.Format, error) {
	switch format {
	case metadata.PixelFormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm, nil
	default:
		return vk.FormatUndefined, fmt.Errorf("%s: %w", format, core.ErrUnsupportedPixelFormat)
	}
}

func vertexFormatToVulkan(format metadata.VertexFormat) (vk.Format, error) {
	switch format {
	case metadata.VertexFormatFloat3:
		return vk.FormatR32g32b32Sfloat, nil
	default:
		return vk.FormatUndefined, fmt.Errorf("unsupported vertex format %d", format)
	}
}

func primitiveTopology(p metadata.PrimitiveType) (vk.PrimitiveTopology, error) {
	switch p {
	case metadata.PrimitiveTypeTriangle:
		return vk.PrimitiveTopologyTriangleList, nil
	default:
		return vk.PrimitiveTopologyTriangleList, fmt.Errorf("unsupported primitive type %s", p)
	}
}

func cullModeFlags(mode metadata.FaceCullMode) vk.CullModeFlags {
	switch mode {
	case metadata.FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

// vertexAttributes converts the descriptor's attributes, all read from binding 0.
func vertexAttributes(descriptor metadata.VertexDescriptor) ([]vk.VertexInputAttributeDescription, error) {
	attributes := make([]vk.VertexInputAttributeDescription, 0, len(descriptor.Attributes))
	for _, a := range descriptor.Attributes {
		format, err := vertexFormatToVulkan(a.Format)
		if err != nil {
			return nil, err
		}
		if a.Offset+a.Format.Size() > descriptor.Stride {
			return nil, fmt.Errorf("attribute at location %d overruns the vertex stride %d", a.Location, descriptor.Stride)
		}
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  0,
			Format:   format,
			Offset:   a.Offset,
		})
	}
	return attributes, nil
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{}

	// Viewport and scissor are dynamic; only the counts matter here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullModeFlags(config.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0, // Binding index
		Stride:    config.Stride,
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               config.Topology,
		PrimitiveRestartEnable: vk.False,
	}

	// No descriptor sets and no push constants.
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}

	if err := lockPool.SafeCall(PipelineManagement, func() error {
		return resultError("vkCreatePipelineLayout", vk.CreatePipelineLayout(
			context.Device.LogicalDevice,
			&pipelineLayoutCreateInfo,
			context.Allocator,
			&outPipeline.PipelineLayout))
	}); err != nil {
		return nil, err
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		return resultError("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			context.Allocator,
			pPipelines))
	}); err != nil {
		outPipeline.Destroy(context)
		return nil, err
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("Graphics pipeline created!")
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	_ = lockPool.SafeCall(PipelineManagement, func() error {
		if pipeline.Handle != vk.NullPipeline {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			pipeline.Handle = vk.NullPipeline
		}
		if pipeline.PipelineLayout != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
			pipeline.PipelineLayout = vk.NullPipelineLayout
		}
		return nil
	})
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}

// VulkanRenderPipelineState is a graphics pipeline built from a
// RenderPipelineDescriptor against the main render pass.
type VulkanRenderPipelineState struct {
	context     *VulkanContext
	label       string
	pixelFormat metadata.PixelFormat
	topology    metadata.PrimitiveType
	Pipeline    *VulkanPipeline
}

var _ renderer.RenderPipelineState = (*VulkanRenderPipelineState)(nil)

func NewRenderPipelineState(context *VulkanContext, library *VulkanShaderLibrary, descriptor *metadata.RenderPipelineDescriptor) (*VulkanRenderPipelineState, error) {
	format, err := pixelFormatToVulkan(descriptor.ColorPixelFormat)
	if err != nil {
		return nil, err
	}
	renderpass := context.MainRenderpass
	if renderpass == nil {
		return nil, fmt.Errorf("pipeline %q: renderer is not initialized", descriptor.Label)
	}
	if renderpass.Format != format {
		return nil, fmt.Errorf("pipeline %q targets %s but the view renders format %d: %w",
			descriptor.Label, descriptor.ColorPixelFormat, renderpass.Format, core.ErrUnsupportedPixelFormat)
	}
	if library == nil {
		return nil, fmt.Errorf("pipeline %q: no shader library loaded", descriptor.Label)
	}

	vertex, err := library.function(descriptor.VertexFunction)
	if err != nil {
		return nil, err
	}
	fragment, err := library.function(descriptor.FragmentFunction)
	if err != nil {
		return nil, err
	}
	if vertex.Stage() != metadata.ShaderStageVertex || fragment.Stage() != metadata.ShaderStageFragment {
		return nil, fmt.Errorf("pipeline %q: shader stages do not match: %w", descriptor.Label, core.ErrShaderNotFound)
	}

	attributes, err := vertexAttributes(descriptor.VertexDescriptor)
	if err != nil {
		return nil, err
	}
	topology, err := primitiveTopology(descriptor.Topology)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", descriptor.Label, err)
	}

	pipeline, err := NewGraphicsPipeline(context, &VulkanPipelineConfig{
		Renderpass: renderpass,
		Stride:     descriptor.VertexDescriptor.Stride,
		Attributes: attributes,
		Stages:     []vk.PipelineShaderStageCreateInfo{vertex.ShaderStageCreateInfo, fragment.ShaderStageCreateInfo},
		Topology:   topology,
		CullMode:   descriptor.CullMode,
	})
	if err != nil {
		return nil, err
	}
	return &VulkanRenderPipelineState{
		context:     context,
		label:       descriptor.Label,
		pixelFormat: descriptor.ColorPixelFormat,
		topology:    descriptor.Topology,
		Pipeline:    pipeline,
	}, nil
}

func (s *VulkanRenderPipelineState) Label() string                     { return s.label }
func (s *VulkanRenderPipelineState) PixelFormat() metadata.PixelFormat { return s.pixelFormat }

func (s *VulkanRenderPipelineState) Destroy() {
	if s.Pipeline != nil {
		s.Pipeline.Destroy(s.context)
		s.Pipeline = nil
	}
}
