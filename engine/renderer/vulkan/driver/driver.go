// Package driver defines the table of native Vulkan entry points the
// wrapper layer calls, and its implementation over github.com/goki/vulkan.
//
// Enumeration entry points keep the native two-call shape: called with a nil
// output slice they only write the count.
package driver

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// ProcAddr is an extension entry point resolved through the device.
type ProcAddr unsafe.Pointer

type Driver interface {
	Name() string

	InstanceDriver
	PhysicalDeviceDriver
	DeviceDriver
	ResourceDriver
	SyncDriver
	SwapchainDriver
	CommandDriver
}

type InstanceDriver interface {
	EnumerateInstanceLayerProperties(count *uint32, out []vk.LayerProperties) vk.Result
	EnumerateInstanceExtensionProperties(layer string, count *uint32, out []vk.ExtensionProperties) vk.Result
	CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result)
	DestroyInstance(instance vk.Instance)
	EnumeratePhysicalDevices(instance vk.Instance, count *uint32, out []vk.PhysicalDevice) vk.Result
	// SurfaceFromHandle turns a platform surface handle into a vk.Surface.
	SurfaceFromHandle(handle uintptr) vk.Surface
	DestroySurface(instance vk.Instance, surface vk.Surface)
}

type PhysicalDeviceDriver interface {
	GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties
	GetPhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures
	GetPhysicalDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties
	GetPhysicalDeviceQueueFamilyProperties(pd vk.PhysicalDevice, count *uint32, out []vk.QueueFamilyProperties)
	GetPhysicalDeviceFormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties
	EnumerateDeviceExtensionProperties(pd vk.PhysicalDevice, layer string, count *uint32, out []vk.ExtensionProperties) vk.Result
	GetPhysicalDeviceSurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result)
	GetPhysicalDeviceSurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result)
	GetPhysicalDeviceSurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface, count *uint32, out []vk.SurfaceFormat) vk.Result
	GetPhysicalDeviceSurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface, count *uint32, out []vk.PresentMode) vk.Result
	CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result)
}

type DeviceDriver interface {
	DestroyDevice(device vk.Device)
	DeviceWaitIdle(device vk.Device) vk.Result
	// DeviceProcAddr returns nil when the entry point is unknown to the device.
	DeviceProcAddr(device vk.Device, name string) ProcAddr
	GetDeviceQueue(device vk.Device, family, index uint32) vk.Queue
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	// QueueSubmitTimeline is QueueSubmit with per-submit timeline values
	// chained onto each submit. waitValues[i] and signalValues[i] belong to
	// submits[i] and may be nil.
	QueueSubmitTimeline(queue vk.Queue, submits []vk.SubmitInfo, waitValues, signalValues [][]uint64, fence vk.Fence) vk.Result
	QueueWaitIdle(queue vk.Queue) vk.Result
}

type ResourceDriver interface {
	AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result)
	FreeMemory(device vk.Device, memory vk.DeviceMemory)
	MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result)
	UnmapMemory(device vk.Device, memory vk.DeviceMemory)
	FlushMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result

	CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, vk.Result)
	DestroyBuffer(device vk.Device, buffer vk.Buffer)
	GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result
	CreateBufferView(device vk.Device, info *vk.BufferViewCreateInfo) (vk.BufferView, vk.Result)
	DestroyBufferView(device vk.Device, view vk.BufferView)

	CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, vk.Result)
	DestroyImage(device vk.Device, image vk.Image)
	GetImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements
	BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result
	CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result)
	DestroyImageView(device vk.Device, view vk.ImageView)
	CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result)
	DestroySampler(device vk.Device, sampler vk.Sampler)

	CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result)
	DestroyShaderModule(device vk.Device, module vk.ShaderModule)
	CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result)
	DestroyRenderPass(device vk.Device, pass vk.RenderPass)
	CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result)
	DestroyFramebuffer(device vk.Device, fb vk.Framebuffer)
	CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result)
	DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout)
	CreatePipelineCache(device vk.Device, info *vk.PipelineCacheCreateInfo) (vk.PipelineCache, vk.Result)
	DestroyPipelineCache(device vk.Device, cache vk.PipelineCache)
	GetPipelineCacheData(device vk.Device, cache vk.PipelineCache, size *uint64, out []byte) vk.Result
	CreateGraphicsPipelines(device vk.Device, cache vk.PipelineCache, infos []vk.GraphicsPipelineCreateInfo) ([]vk.Pipeline, vk.Result)
	CreateComputePipelines(device vk.Device, cache vk.PipelineCache, infos []vk.ComputePipelineCreateInfo) ([]vk.Pipeline, vk.Result)
	DestroyPipeline(device vk.Device, pipeline vk.Pipeline)

	CreateDescriptorSetLayout(device vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result)
	DestroyDescriptorSetLayout(device vk.Device, layout vk.DescriptorSetLayout)
	CreateDescriptorPool(device vk.Device, info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result)
	DestroyDescriptorPool(device vk.Device, pool vk.DescriptorPool)
	ResetDescriptorPool(device vk.Device, pool vk.DescriptorPool) vk.Result
	AllocateDescriptorSets(device vk.Device, info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, vk.Result)
	FreeDescriptorSets(device vk.Device, pool vk.DescriptorPool, sets []vk.DescriptorSet) vk.Result
	UpdateDescriptorSets(device vk.Device, writes []vk.WriteDescriptorSet, copies []vk.CopyDescriptorSet)

	CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result)
	DestroyCommandPool(device vk.Device, pool vk.CommandPool)
	ResetCommandPool(device vk.Device, pool vk.CommandPool, flags vk.CommandPoolResetFlags) vk.Result
	AllocateCommandBuffers(device vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result)
	FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer)
}

type SyncDriver interface {
	CreateFence(device vk.Device, info *vk.FenceCreateInfo) (vk.Fence, vk.Result)
	DestroyFence(device vk.Device, fence vk.Fence)
	WaitForFences(device vk.Device, fences []vk.Fence, waitAll bool, timeout uint64) vk.Result
	ResetFences(device vk.Device, fences []vk.Fence) vk.Result
	GetFenceStatus(device vk.Device, fence vk.Fence) vk.Result

	CreateSemaphore(device vk.Device, info *vk.SemaphoreCreateInfo) (vk.Semaphore, vk.Result)
	CreateTimelineSemaphore(device vk.Device, initial uint64) (vk.Semaphore, vk.Result)
	DestroySemaphore(device vk.Device, semaphore vk.Semaphore)
	GetSemaphoreCounterValue(proc ProcAddr, device vk.Device, semaphore vk.Semaphore) (uint64, vk.Result)
	SignalSemaphore(proc ProcAddr, device vk.Device, semaphore vk.Semaphore, value uint64) vk.Result
	WaitSemaphores(proc ProcAddr, device vk.Device, semaphores []vk.Semaphore, values []uint64, timeout uint64) vk.Result

	CreateEvent(device vk.Device, info *vk.EventCreateInfo) (vk.Event, vk.Result)
	DestroyEvent(device vk.Device, event vk.Event)
	GetEventStatus(device vk.Device, event vk.Event) vk.Result
	SetEvent(device vk.Device, event vk.Event) vk.Result
	ResetEvent(device vk.Device, event vk.Event) vk.Result
}

type SwapchainDriver interface {
	CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result)
	DestroySwapchain(device vk.Device, swapchain vk.Swapchain)
	GetSwapchainImages(device vk.Device, swapchain vk.Swapchain, count *uint32, out []vk.Image) vk.Result
	AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, vk.Result)
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result
}

type CommandDriver interface {
	BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result
	EndCommandBuffer(cb vk.CommandBuffer) vk.Result
	ResetCommandBuffer(cb vk.CommandBuffer, flags vk.CommandBufferResetFlags) vk.Result

	CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents)
	CmdEndRenderPass(cb vk.CommandBuffer)
	CmdBindPipeline(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline)
	CmdBindDescriptorSets(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32)
	CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	CmdBindVertexBuffers(cb vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBlitImage(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter)
	CmdClearColorImage(cb vk.CommandBuffer, image vk.Image, layout vk.ImageLayout, color [4]float32, ranges []vk.ImageSubresourceRange)
	CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdCopyBufferToImage(cb vk.CommandBuffer, src vk.Buffer, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.BufferImageCopy)
	CmdCopyImage(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageCopy)
	CmdCopyImageToBuffer(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Buffer, regions []vk.BufferImageCopy)
	CmdDispatch(cb vk.CommandBuffer, x, y, z uint32)
	CmdDispatchBase(proc ProcAddr, cb vk.CommandBuffer, baseX, baseY, baseZ, x, y, z uint32)
	CmdDispatchIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize)
	CmdDraw(cb vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdDrawIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32)
	CmdDrawIndexedIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32)
	CmdDrawIndirectCount(proc ProcAddr, cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32)
	CmdDrawIndexedIndirectCount(proc ProcAddr, cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32)
	CmdFillBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset, size vk.DeviceSize, data uint32)
	CmdPipelineBarrier(cb vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, deps vk.DependencyFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier)
	CmdPushConstants(cb vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	CmdSetBlendConstants(cb vk.CommandBuffer, constants [4]float32)
	CmdSetDepthBias(cb vk.CommandBuffer, constantFactor, clamp, slopeFactor float32)
	CmdSetDepthBounds(cb vk.CommandBuffer, min, max float32)
	CmdSetDeviceMask(proc ProcAddr, cb vk.CommandBuffer, mask uint32)
	CmdSetLineWidth(cb vk.CommandBuffer, width float32)
	CmdSetEvent(cb vk.CommandBuffer, event vk.Event, stage vk.PipelineStageFlags)
	CmdResetEvent(cb vk.CommandBuffer, event vk.Event, stage vk.PipelineStageFlags)
	CmdSetScissor(cb vk.CommandBuffer, first uint32, scissors []vk.Rect2D)
	CmdSetStencilCompareMask(cb vk.CommandBuffer, face vk.StencilFaceFlags, mask uint32)
	CmdSetStencilReference(cb vk.CommandBuffer, face vk.StencilFaceFlags, reference uint32)
	CmdSetStencilWriteMask(cb vk.CommandBuffer, face vk.StencilFaceFlags, mask uint32)
	CmdSetViewport(cb vk.CommandBuffer, first uint32, viewports []vk.Viewport)
	CmdUpdateBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, data []byte)
	CmdWaitEvents(cb vk.CommandBuffer, events []vk.Event, srcStage, dstStage vk.PipelineStageFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier)
}
