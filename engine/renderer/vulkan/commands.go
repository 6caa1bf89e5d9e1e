package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
)

// maxUpdateBufferSize is the largest inline buffer update Vulkan accepts.
const maxUpdateBufferSize = 65536

func (v *VulkanCommandBuffer) cmd(op string, rule passRule) (driver.Driver, error) {
	if err := v.recording(op, rule); err != nil {
		return nil, err
	}
	return v.device().drv, nil
}

func (v *VulkanCommandBuffer) extension(op string, rule passRule, c Capability) (driver.Driver, driver.ProcAddr, error) {
	drv, err := v.cmd(op, rule)
	if err != nil {
		return nil, nil, err
	}
	caps := v.device().caps
	if !caps.Has(c) {
		return nil, nil, v.device().precondition(op, "%s is not available on this device", c)
	}
	return drv, caps.proc(c), nil
}

type RenderPassBeginConfig struct {
	RenderPass  *VulkanRenderPass
	Framebuffer *VulkanFramebuffer
	// RenderArea defaults to the whole framebuffer.
	RenderArea  *vk.Rect2D
	ClearValues []vk.ClearValue
	Contents    vk.SubpassContents
}

func (v *VulkanCommandBuffer) BeginRenderPass(config RenderPassBeginConfig) error {
	const op = "vkCmdBeginRenderPass"
	drv, err := v.cmd(op, outsideRenderPass)
	if err != nil {
		return err
	}
	if config.RenderPass == nil || config.Framebuffer == nil {
		return v.device().precondition(op, "render pass and framebuffer are required")
	}
	area := vk.Rect2D{Extent: vk.Extent2D{Width: config.Framebuffer.Width, Height: config.Framebuffer.Height}}
	if config.RenderArea != nil {
		area = *config.RenderArea
	}
	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      config.RenderPass.handle,
		Framebuffer:     config.Framebuffer.handle,
		RenderArea:      area,
		ClearValueCount: uint32(len(config.ClearValues)),
		PClearValues:    append([]vk.ClearValue(nil), config.ClearValues...),
	}
	drv.CmdBeginRenderPass(v.handle, &beginInfo, config.Contents)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return nil
}

func (v *VulkanCommandBuffer) EndRenderPass() error {
	drv, err := v.cmd("vkCmdEndRenderPass", insideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdEndRenderPass(v.handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) BindPipeline(pipeline *VulkanPipeline) error {
	drv, err := v.cmd("vkCmdBindPipeline", anyPass)
	if err != nil {
		return err
	}
	drv.CmdBindPipeline(v.handle, pipeline.BindPoint, pipeline.handle)
	return nil
}

func (v *VulkanCommandBuffer) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout *VulkanPipelineLayout, firstSet uint32, sets []*VulkanDescriptorSet, dynamicOffsets []uint32) error {
	const op = "vkCmdBindDescriptorSets"
	drv, err := v.cmd(op, anyPass)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return v.device().precondition(op, "at least one descriptor set is required")
	}
	handles := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		handles[i] = s.handle
	}
	drv.CmdBindDescriptorSets(v.handle, bindPoint, layout.handle, firstSet, handles, append([]uint32(nil), dynamicOffsets...))
	return nil
}

func (v *VulkanCommandBuffer) BindIndexBuffer(buffer *VulkanBuffer, offset vk.DeviceSize, indexType vk.IndexType) error {
	drv, err := v.cmd("vkCmdBindIndexBuffer", anyPass)
	if err != nil {
		return err
	}
	drv.CmdBindIndexBuffer(v.handle, buffer.handle, offset, indexType)
	return nil
}

// BindVertexBuffers binds buffers[i] at offsets[i] to binding firstBinding+i.
func (v *VulkanCommandBuffer) BindVertexBuffers(firstBinding uint32, buffers []*VulkanBuffer, offsets []vk.DeviceSize) error {
	const op = "vkCmdBindVertexBuffers"
	drv, err := v.cmd(op, anyPass)
	if err != nil {
		return err
	}
	if len(buffers) == 0 || len(buffers) != len(offsets) {
		return v.device().precondition(op, "%d buffers with %d offsets", len(buffers), len(offsets))
	}
	handles := make([]vk.Buffer, len(buffers))
	for i, b := range buffers {
		handles[i] = b.handle
	}
	drv.CmdBindVertexBuffers(v.handle, firstBinding, handles, append([]vk.DeviceSize(nil), offsets...))
	return nil
}

func (v *VulkanCommandBuffer) BlitImage(src *VulkanImage, srcLayout vk.ImageLayout, dst *VulkanImage, dstLayout vk.ImageLayout, filter vk.Filter, regions ...vk.ImageBlit) error {
	const op = "vkCmdBlitImage"
	drv, err := v.cmd(op, outsideRenderPass)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		return v.device().precondition(op, "at least one region is required")
	}
	drv.CmdBlitImage(v.handle, src.handle, srcLayout, dst.handle, dstLayout, append([]vk.ImageBlit(nil), regions...), filter)
	return nil
}

// ClearColorImage clears ranges of image, or all of it when none are given.
func (v *VulkanCommandBuffer) ClearColorImage(image *VulkanImage, layout vk.ImageLayout, color [4]float32, ranges ...vk.ImageSubresourceRange) error {
	drv, err := v.cmd("vkCmdClearColorImage", outsideRenderPass)
	if err != nil {
		return err
	}
	if len(ranges) == 0 {
		ranges = []vk.ImageSubresourceRange{image.fullRange()}
	}
	drv.CmdClearColorImage(v.handle, image.handle, layout, color, append([]vk.ImageSubresourceRange(nil), ranges...))
	return nil
}

// CopyBuffer copies regions, or the common prefix of both buffers when
// none are given.
func (v *VulkanCommandBuffer) CopyBuffer(src, dst *VulkanBuffer, regions ...vk.BufferCopy) error {
	drv, err := v.cmd("vkCmdCopyBuffer", outsideRenderPass)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		regions = []vk.BufferCopy{{Size: min(src.Size, dst.Size)}}
	}
	drv.CmdCopyBuffer(v.handle, src.handle, dst.handle, append([]vk.BufferCopy(nil), regions...))
	return nil
}

func wholeImageCopy(img *VulkanImage) vk.BufferImageCopy {
	return vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: img.Aspect(),
			LayerCount: img.ArrayLayers,
		},
		ImageExtent: img.Extent,
	}
}

// CopyBufferToImage copies tightly packed texels into mip level 0 of dst
// when no regions are given.
func (v *VulkanCommandBuffer) CopyBufferToImage(src *VulkanBuffer, dst *VulkanImage, dstLayout vk.ImageLayout, regions ...vk.BufferImageCopy) error {
	drv, err := v.cmd("vkCmdCopyBufferToImage", outsideRenderPass)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		regions = []vk.BufferImageCopy{wholeImageCopy(dst)}
	}
	drv.CmdCopyBufferToImage(v.handle, src.handle, dst.handle, dstLayout, append([]vk.BufferImageCopy(nil), regions...))
	return nil
}

func (v *VulkanCommandBuffer) CopyImageToBuffer(src *VulkanImage, srcLayout vk.ImageLayout, dst *VulkanBuffer, regions ...vk.BufferImageCopy) error {
	drv, err := v.cmd("vkCmdCopyImageToBuffer", outsideRenderPass)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		regions = []vk.BufferImageCopy{wholeImageCopy(src)}
	}
	drv.CmdCopyImageToBuffer(v.handle, src.handle, srcLayout, dst.handle, append([]vk.BufferImageCopy(nil), regions...))
	return nil
}

func (v *VulkanCommandBuffer) CopyImage(src *VulkanImage, srcLayout vk.ImageLayout, dst *VulkanImage, dstLayout vk.ImageLayout, regions ...vk.ImageCopy) error {
	const op = "vkCmdCopyImage"
	drv, err := v.cmd(op, outsideRenderPass)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		return v.device().precondition(op, "at least one region is required")
	}
	drv.CmdCopyImage(v.handle, src.handle, srcLayout, dst.handle, dstLayout, append([]vk.ImageCopy(nil), regions...))
	return nil
}

func (v *VulkanCommandBuffer) Dispatch(x, y, z uint32) error {
	drv, err := v.cmd("vkCmdDispatch", outsideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdDispatch(v.handle, x, y, z)
	return nil
}

func (v *VulkanCommandBuffer) DispatchBase(baseX, baseY, baseZ, x, y, z uint32) error {
	drv, proc, err := v.extension("vkCmdDispatchBase", outsideRenderPass, CapDispatchBase)
	if err != nil {
		return err
	}
	drv.CmdDispatchBase(proc, v.handle, baseX, baseY, baseZ, x, y, z)
	return nil
}

func (v *VulkanCommandBuffer) DispatchIndirect(buffer *VulkanBuffer, offset vk.DeviceSize) error {
	drv, err := v.cmd("vkCmdDispatchIndirect", outsideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdDispatchIndirect(v.handle, buffer.handle, offset)
	return nil
}

func (v *VulkanCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	drv, err := v.cmd("vkCmdDraw", insideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdDraw(v.handle, vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

func (v *VulkanCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	drv, err := v.cmd("vkCmdDrawIndexed", insideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdDrawIndexed(v.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

func (v *VulkanCommandBuffer) DrawIndirect(buffer *VulkanBuffer, offset vk.DeviceSize, drawCount, stride uint32) error {
	drv, err := v.cmd("vkCmdDrawIndirect", insideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdDrawIndirect(v.handle, buffer.handle, offset, drawCount, stride)
	return nil
}

func (v *VulkanCommandBuffer) DrawIndexedIndirect(buffer *VulkanBuffer, offset vk.DeviceSize, drawCount, stride uint32) error {
	drv, err := v.cmd("vkCmdDrawIndexedIndirect", insideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdDrawIndexedIndirect(v.handle, buffer.handle, offset, drawCount, stride)
	return nil
}

// DrawIndirectCount reads the draw count from countBuffer when the buffer
// executes, capped at maxDrawCount.
func (v *VulkanCommandBuffer) DrawIndirectCount(buffer *VulkanBuffer, offset vk.DeviceSize, countBuffer *VulkanBuffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32) error {
	drv, proc, err := v.extension("vkCmdDrawIndirectCount", insideRenderPass, CapDrawIndirectCount)
	if err != nil {
		return err
	}
	drv.CmdDrawIndirectCount(proc, v.handle, buffer.handle, offset, countBuffer.handle, countOffset, maxDrawCount, stride)
	return nil
}

func (v *VulkanCommandBuffer) DrawIndexedIndirectCount(buffer *VulkanBuffer, offset vk.DeviceSize, countBuffer *VulkanBuffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32) error {
	drv, proc, err := v.extension("vkCmdDrawIndexedIndirectCount", insideRenderPass, CapDrawIndexedIndirectCount)
	if err != nil {
		return err
	}
	drv.CmdDrawIndexedIndirectCount(proc, v.handle, buffer.handle, offset, countBuffer.handle, countOffset, maxDrawCount, stride)
	return nil
}

// FillBuffer writes data repeatedly over size bytes from offset. A size of
// zero fills to the end of the buffer.
func (v *VulkanCommandBuffer) FillBuffer(buffer *VulkanBuffer, offset, size vk.DeviceSize, data uint32) error {
	const op = "vkCmdFillBuffer"
	drv, err := v.cmd(op, outsideRenderPass)
	if err != nil {
		return err
	}
	if offset%4 != 0 {
		return v.device().precondition(op, "offset %d is not a multiple of 4", offset)
	}
	if size == 0 {
		size = WholeSize
	}
	drv.CmdFillBuffer(v.handle, buffer.handle, offset, size, data)
	return nil
}

func (v *VulkanCommandBuffer) PipelineBarrier(srcStage, dstStage vk.PipelineStageFlags, deps vk.DependencyFlags, barriers ...Barrier) error {
	drv, err := v.cmd("vkCmdPipelineBarrier", anyPass)
	if err != nil {
		return err
	}
	memory, buffers, images := splitBarriers(barriers)
	drv.CmdPipelineBarrier(v.handle, srcStage, dstStage, deps, memory, buffers, images)
	return nil
}

// TransitionImageLayout records an image barrier with the access masks and
// stages of the common upload and sampling transitions.
func (v *VulkanCommandBuffer) TransitionImageLayout(image *VulkanImage, oldLayout, newLayout vk.ImageLayout) error {
	var (
		srcAccess, dstAccess vk.AccessFlags
		srcStage, dstStage   vk.PipelineStageFlags
	)
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		// Don't care about the old layout - transition to optimal layout (for the underlying implementation).
		dstAccess = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		// Transitioning from a transfer destination layout to a shader-readonly layout.
		srcAccess = vk.AccessFlags(vk.AccessTransferWriteBit)
		dstAccess = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutPresentSrc:
		srcAccess = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	case oldLayout == vk.ImageLayoutPresentSrc && newLayout == vk.ImageLayoutTransferSrcOptimal:
		// Reading back a rendered frame.
		srcAccess = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		dstAccess = vk.AccessFlags(vk.AccessTransferReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferSrcOptimal && newLayout == vk.ImageLayoutPresentSrc:
		srcAccess = vk.AccessFlags(vk.AccessTransferReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutDepthStencilAttachmentOptimal:
		dstAccess = vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	default:
		return v.device().precondition("vkCmdPipelineBarrier", "unsupported layout transition %d -> %d", oldLayout, newLayout)
	}
	return v.PipelineBarrier(srcStage, dstStage, 0, ImageBarrier{
		SrcAccess: srcAccess,
		DstAccess: dstAccess,
		Image:     image,
		OldLayout: oldLayout,
		NewLayout: newLayout,
	})
}

// PushConstants uploads data at offset. Both must be 4-byte aligned.
func (v *VulkanCommandBuffer) PushConstants(layout *VulkanPipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) error {
	const op = "vkCmdPushConstants"
	drv, err := v.cmd(op, anyPass)
	if err != nil {
		return err
	}
	if offset%4 != 0 || len(data) == 0 || len(data)%4 != 0 {
		return v.device().precondition(op, "offset %d and size %d must be non-empty multiples of 4", offset, len(data))
	}
	drv.CmdPushConstants(v.handle, layout.handle, stages, offset, append([]byte(nil), data...))
	return nil
}

// SetBlendConstants takes exactly four values, RGBA.
func (v *VulkanCommandBuffer) SetBlendConstants(constants []float32) error {
	const op = "vkCmdSetBlendConstants"
	drv, err := v.cmd(op, anyPass)
	if err != nil {
		return err
	}
	if len(constants) != 4 {
		return v.device().precondition(op, "blend constants need 4 values, got %d", len(constants))
	}
	drv.CmdSetBlendConstants(v.handle, [4]float32(constants))
	return nil
}

func (v *VulkanCommandBuffer) SetDepthBias(constantFactor, clamp, slopeFactor float32) error {
	drv, err := v.cmd("vkCmdSetDepthBias", anyPass)
	if err != nil {
		return err
	}
	drv.CmdSetDepthBias(v.handle, constantFactor, clamp, slopeFactor)
	return nil
}

func (v *VulkanCommandBuffer) SetDepthBounds(minDepth, maxDepth float32) error {
	const op = "vkCmdSetDepthBounds"
	drv, err := v.cmd(op, anyPass)
	if err != nil {
		return err
	}
	if minDepth > maxDepth {
		return v.device().precondition(op, "min depth %v is above max depth %v", minDepth, maxDepth)
	}
	drv.CmdSetDepthBounds(v.handle, minDepth, maxDepth)
	return nil
}

func (v *VulkanCommandBuffer) SetDeviceMask(mask uint32) error {
	const op = "vkCmdSetDeviceMask"
	drv, proc, err := v.extension(op, anyPass, CapSetDeviceMask)
	if err != nil {
		return err
	}
	if mask == 0 {
		return v.device().precondition(op, "device mask must not be zero")
	}
	drv.CmdSetDeviceMask(proc, v.handle, mask)
	return nil
}

func (v *VulkanCommandBuffer) SetLineWidth(width float32) error {
	drv, err := v.cmd("vkCmdSetLineWidth", anyPass)
	if err != nil {
		return err
	}
	drv.CmdSetLineWidth(v.handle, width)
	return nil
}

func (v *VulkanCommandBuffer) SetEvent(event *VulkanEvent, stage vk.PipelineStageFlags) error {
	drv, err := v.cmd("vkCmdSetEvent", outsideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdSetEvent(v.handle, event.handle, stage)
	return nil
}

func (v *VulkanCommandBuffer) ResetEvent(event *VulkanEvent, stage vk.PipelineStageFlags) error {
	drv, err := v.cmd("vkCmdResetEvent", outsideRenderPass)
	if err != nil {
		return err
	}
	drv.CmdResetEvent(v.handle, event.handle, stage)
	return nil
}

func (v *VulkanCommandBuffer) SetScissor(first uint32, scissors ...vk.Rect2D) error {
	const op = "vkCmdSetScissor"
	drv, err := v.cmd(op, anyPass)
	if err != nil {
		return err
	}
	if len(scissors) == 0 {
		return v.device().precondition(op, "at least one scissor is required")
	}
	drv.CmdSetScissor(v.handle, first, append([]vk.Rect2D(nil), scissors...))
	return nil
}

func (v *VulkanCommandBuffer) SetViewport(first uint32, viewports ...vk.Viewport) error {
	const op = "vkCmdSetViewport"
	drv, err := v.cmd(op, anyPass)
	if err != nil {
		return err
	}
	if len(viewports) == 0 {
		return v.device().precondition(op, "at least one viewport is required")
	}
	drv.CmdSetViewport(v.handle, first, append([]vk.Viewport(nil), viewports...))
	return nil
}

func (v *VulkanCommandBuffer) SetStencilCompareMask(face vk.StencilFaceFlags, mask uint32) error {
	drv, err := v.cmd("vkCmdSetStencilCompareMask", anyPass)
	if err != nil {
		return err
	}
	drv.CmdSetStencilCompareMask(v.handle, face, mask)
	return nil
}

func (v *VulkanCommandBuffer) SetStencilReference(face vk.StencilFaceFlags, reference uint32) error {
	drv, err := v.cmd("vkCmdSetStencilReference", anyPass)
	if err != nil {
		return err
	}
	drv.CmdSetStencilReference(v.handle, face, reference)
	return nil
}

func (v *VulkanCommandBuffer) SetStencilWriteMask(face vk.StencilFaceFlags, mask uint32) error {
	drv, err := v.cmd("vkCmdSetStencilWriteMask", anyPass)
	if err != nil {
		return err
	}
	drv.CmdSetStencilWriteMask(v.handle, face, mask)
	return nil
}

// UpdateBuffer writes data inline into the command stream. The size must be
// a multiple of 4 and at most 64 KiB.
func (v *VulkanCommandBuffer) UpdateBuffer(buffer *VulkanBuffer, offset vk.DeviceSize, data []byte) error {
	const op = "vkCmdUpdateBuffer"
	drv, err := v.cmd(op, outsideRenderPass)
	if err != nil {
		return err
	}
	if len(data) == 0 || len(data)%4 != 0 || len(data) > maxUpdateBufferSize {
		return v.device().precondition(op, "update size %d must be a multiple of 4 in (0, %d]", len(data), maxUpdateBufferSize)
	}
	if offset%4 != 0 || offset+vk.DeviceSize(len(data)) > buffer.Size {
		return v.device().precondition(op, "range [%d, %d) does not fit a %d byte buffer", offset, offset+vk.DeviceSize(len(data)), buffer.Size)
	}
	drv.CmdUpdateBuffer(v.handle, buffer.handle, offset, append([]byte(nil), data...))
	return nil
}

func (v *VulkanCommandBuffer) WaitEvents(events []*VulkanEvent, srcStage, dstStage vk.PipelineStageFlags, barriers ...Barrier) error {
	const op = "vkCmdWaitEvents"
	drv, err := v.cmd(op, anyPass)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return v.device().precondition(op, "at least one event is required")
	}
	memory, buffers, images := splitBarriers(barriers)
	drv.CmdWaitEvents(v.handle, eventHandles(events), srcStage, dstStage, memory, buffers, images)
	return nil
}
