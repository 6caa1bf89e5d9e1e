package driver

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

func (*Vulkan) BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	return vk.BeginCommandBuffer(cb, info)
}

func (*Vulkan) EndCommandBuffer(cb vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(cb)
}

func (*Vulkan) ResetCommandBuffer(cb vk.CommandBuffer, flags vk.CommandBufferResetFlags) vk.Result {
	return vk.ResetCommandBuffer(cb, flags)
}

func (*Vulkan) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	vk.CmdBeginRenderPass(cb, info, contents)
}

func (*Vulkan) CmdEndRenderPass(cb vk.CommandBuffer) {
	vk.CmdEndRenderPass(cb)
}

func (*Vulkan) CmdBindPipeline(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cb, bindPoint, pipeline)
}

func (*Vulkan) CmdBindDescriptorSets(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	vk.CmdBindDescriptorSets(cb, bindPoint, layout, firstSet, uint32(len(sets)), sets, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (*Vulkan) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cb, buffer, offset, indexType)
}

func (*Vulkan) CmdBindVertexBuffers(cb vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cb, firstBinding, uint32(len(buffers)), buffers, offsets)
}

func (*Vulkan) CmdBlitImage(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(cb, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions, filter)
}

func (*Vulkan) CmdClearColorImage(cb vk.CommandBuffer, image vk.Image, layout vk.ImageLayout, color [4]float32, ranges []vk.ImageSubresourceRange) {
	var value vk.ClearColorValue
	*(*[4]float32)(unsafe.Pointer(&value)) = color
	vk.CmdClearColorImage(cb, image, layout, &value, uint32(len(ranges)), ranges)
}

func (*Vulkan) CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cb, src, dst, uint32(len(regions)), regions)
}

func (*Vulkan) CmdCopyBufferToImage(cb vk.CommandBuffer, src vk.Buffer, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cb, src, dst, dstLayout, uint32(len(regions)), regions)
}

func (*Vulkan) CmdCopyImage(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageCopy) {
	vk.CmdCopyImage(cb, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions)
}

func (*Vulkan) CmdCopyImageToBuffer(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Buffer, regions []vk.BufferImageCopy) {
	vk.CmdCopyImageToBuffer(cb, src, srcLayout, dst, uint32(len(regions)), regions)
}

func (*Vulkan) CmdDispatch(cb vk.CommandBuffer, x, y, z uint32) {
	vk.CmdDispatch(cb, x, y, z)
}

func (*Vulkan) CmdDispatchIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize) {
	vk.CmdDispatchIndirect(cb, buffer, offset)
}

func (*Vulkan) CmdDraw(cb vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(cb, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (*Vulkan) CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cb, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (*Vulkan) CmdDrawIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32) {
	vk.CmdDrawIndirect(cb, buffer, offset, drawCount, stride)
}

func (*Vulkan) CmdDrawIndexedIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32) {
	vk.CmdDrawIndexedIndirect(cb, buffer, offset, drawCount, stride)
}

func (*Vulkan) CmdFillBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset, size vk.DeviceSize, data uint32) {
	vk.CmdFillBuffer(cb, buffer, offset, size, data)
}

func (*Vulkan) CmdPipelineBarrier(cb vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, deps vk.DependencyFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cb, srcStage, dstStage, deps,
		uint32(len(memory)), memory,
		uint32(len(buffers)), buffers,
		uint32(len(images)), images)
}

func (*Vulkan) CmdPushConstants(cb vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cb, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (*Vulkan) CmdSetBlendConstants(cb vk.CommandBuffer, constants [4]float32) {
	vk.CmdSetBlendConstants(cb, &constants)
}

func (*Vulkan) CmdSetDepthBias(cb vk.CommandBuffer, constantFactor, clamp, slopeFactor float32) {
	vk.CmdSetDepthBias(cb, constantFactor, clamp, slopeFactor)
}

func (*Vulkan) CmdSetDepthBounds(cb vk.CommandBuffer, min, max float32) {
	vk.CmdSetDepthBounds(cb, min, max)
}

func (*Vulkan) CmdSetLineWidth(cb vk.CommandBuffer, width float32) {
	vk.CmdSetLineWidth(cb, width)
}

func (*Vulkan) CmdSetEvent(cb vk.CommandBuffer, event vk.Event, stage vk.PipelineStageFlags) {
	vk.CmdSetEvent(cb, event, stage)
}

func (*Vulkan) CmdResetEvent(cb vk.CommandBuffer, event vk.Event, stage vk.PipelineStageFlags) {
	vk.CmdResetEvent(cb, event, stage)
}

func (*Vulkan) CmdSetScissor(cb vk.CommandBuffer, first uint32, scissors []vk.Rect2D) {
	vk.CmdSetScissor(cb, first, uint32(len(scissors)), scissors)
}

func (*Vulkan) CmdSetStencilCompareMask(cb vk.CommandBuffer, face vk.StencilFaceFlags, mask uint32) {
	vk.CmdSetStencilCompareMask(cb, face, mask)
}

func (*Vulkan) CmdSetStencilReference(cb vk.CommandBuffer, face vk.StencilFaceFlags, reference uint32) {
	vk.CmdSetStencilReference(cb, face, reference)
}

func (*Vulkan) CmdSetStencilWriteMask(cb vk.CommandBuffer, face vk.StencilFaceFlags, mask uint32) {
	vk.CmdSetStencilWriteMask(cb, face, mask)
}

func (*Vulkan) CmdSetViewport(cb vk.CommandBuffer, first uint32, viewports []vk.Viewport) {
	vk.CmdSetViewport(cb, first, uint32(len(viewports)), viewports)
}

func (*Vulkan) CmdUpdateBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdUpdateBuffer(cb, buffer, offset, vk.DeviceSize(len(data)), (*uint32)(unsafe.Pointer(&data[0])))
}

func (*Vulkan) CmdWaitEvents(cb vk.CommandBuffer, events []vk.Event, srcStage, dstStage vk.PipelineStageFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	vk.CmdWaitEvents(cb, uint32(len(events)), events, srcStage, dstStage,
		uint32(len(memory)), memory,
		uint32(len(buffers)), buffers,
		uint32(len(images)), images)
}
