package driver

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Vulkan forwards every entry point to the system Vulkan loader through
// github.com/goki/vulkan.
type Vulkan struct{}

// New initializes the loader. procAddr is a vkGetInstanceProcAddr pointer,
// for example glfw.GetVulkanGetInstanceProcAddress(); nil selects the
// default system loader.
func New(procAddr unsafe.Pointer) (*Vulkan, error) {
	if procAddr != nil {
		vk.SetGetInstanceProcAddr(procAddr)
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, fmt.Errorf("loading vulkan: %w", err)
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("initializing vulkan: %w", err)
	}
	return &Vulkan{}, nil
}

func (*Vulkan) Name() string { return "vulkan" }

func bool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// instance

func (*Vulkan) EnumerateInstanceLayerProperties(count *uint32, out []vk.LayerProperties) vk.Result {
	res := vk.EnumerateInstanceLayerProperties(count, out)
	for i := range out {
		out[i].Deref()
	}
	return res
}

func (*Vulkan) EnumerateInstanceExtensionProperties(layer string, count *uint32, out []vk.ExtensionProperties) vk.Result {
	res := vk.EnumerateInstanceExtensionProperties(layer, count, out)
	for i := range out {
		out[i].Deref()
	}
	return res
}

func (*Vulkan) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result) {
	var instance vk.Instance
	if res := vk.CreateInstance(info, nil, &instance); res != vk.Success {
		return nil, res
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, vk.ErrorInitializationFailed
	}
	return instance, vk.Success
}

func (*Vulkan) DestroyInstance(instance vk.Instance) {
	vk.DestroyInstance(instance, nil)
}

func (*Vulkan) EnumeratePhysicalDevices(instance vk.Instance, count *uint32, out []vk.PhysicalDevice) vk.Result {
	return vk.EnumeratePhysicalDevices(instance, count, out)
}

func (*Vulkan) SurfaceFromHandle(handle uintptr) vk.Surface {
	return vk.SurfaceFromPointer(handle)
}

func (*Vulkan) DestroySurface(instance vk.Instance, surface vk.Surface) {
	vk.DestroySurface(instance, surface, nil)
}

// physical device

func (*Vulkan) GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	props.Limits.Deref()
	props.SparseProperties.Deref()
	return props
}

func (*Vulkan) GetPhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()
	return features
}

func (*Vulkan) GetPhysicalDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &props)
	props.Deref()
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
	}
	for i := uint32(0); i < props.MemoryHeapCount; i++ {
		props.MemoryHeaps[i].Deref()
	}
	return props
}

func (*Vulkan) GetPhysicalDeviceQueueFamilyProperties(pd vk.PhysicalDevice, count *uint32, out []vk.QueueFamilyProperties) {
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, count, out)
	for i := range out {
		out[i].Deref()
		out[i].MinImageTransferGranularity.Deref()
	}
}

func (*Vulkan) GetPhysicalDeviceFormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(pd, format, &props)
	props.Deref()
	return props
}

func (*Vulkan) EnumerateDeviceExtensionProperties(pd vk.PhysicalDevice, layer string, count *uint32, out []vk.ExtensionProperties) vk.Result {
	res := vk.EnumerateDeviceExtensionProperties(pd, layer, count, out)
	for i := range out {
		out[i].Deref()
	}
	return res
}

func (*Vulkan) GetPhysicalDeviceSurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result) {
	var supported vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(pd, family, surface, &supported)
	return supported == vk.True, res
}

func (*Vulkan) GetPhysicalDeviceSurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, res
}

func (*Vulkan) GetPhysicalDeviceSurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface, count *uint32, out []vk.SurfaceFormat) vk.Result {
	res := vk.GetPhysicalDeviceSurfaceFormats(pd, surface, count, out)
	for i := range out {
		out[i].Deref()
	}
	return res
}

func (*Vulkan) GetPhysicalDeviceSurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface, count *uint32, out []vk.PresentMode) vk.Result {
	return vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, count, out)
}

func (*Vulkan) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result) {
	var device vk.Device
	res := vk.CreateDevice(pd, info, nil, &device)
	return device, res
}

// device and queues

func (*Vulkan) DestroyDevice(device vk.Device) {
	vk.DestroyDevice(device, nil)
}

func (*Vulkan) DeviceWaitIdle(device vk.Device) vk.Result {
	return vk.DeviceWaitIdle(device)
}

func (*Vulkan) GetDeviceQueue(device vk.Device, family, index uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(device, family, index, &queue)
	return queue
}

func (*Vulkan) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (*Vulkan) QueueWaitIdle(queue vk.Queue) vk.Result {
	return vk.QueueWaitIdle(queue)
}

// memory

func (*Vulkan) AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	var memory vk.DeviceMemory
	res := vk.AllocateMemory(device, info, nil, &memory)
	return memory, res
}

func (*Vulkan) FreeMemory(device vk.Device, memory vk.DeviceMemory) {
	vk.FreeMemory(device, memory, nil)
}

func (*Vulkan) MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	var data unsafe.Pointer
	res := vk.MapMemory(device, memory, offset, size, 0, &data)
	return data, res
}

func (*Vulkan) UnmapMemory(device vk.Device, memory vk.DeviceMemory) {
	vk.UnmapMemory(device, memory)
}

func (*Vulkan) FlushMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result {
	return vk.FlushMappedMemoryRanges(device, uint32(len(ranges)), ranges)
}

// buffers and images

func (*Vulkan) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	var buffer vk.Buffer
	res := vk.CreateBuffer(device, info, nil, &buffer)
	return buffer, res
}

func (*Vulkan) DestroyBuffer(device vk.Device, buffer vk.Buffer) {
	vk.DestroyBuffer(device, buffer, nil)
}

func (*Vulkan) GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer, &reqs)
	reqs.Deref()
	return reqs
}

func (*Vulkan) BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindBufferMemory(device, buffer, memory, offset)
}

func (*Vulkan) CreateBufferView(device vk.Device, info *vk.BufferViewCreateInfo) (vk.BufferView, vk.Result) {
	var view vk.BufferView
	res := vk.CreateBufferView(device, info, nil, &view)
	return view, res
}

func (*Vulkan) DestroyBufferView(device vk.Device, view vk.BufferView) {
	vk.DestroyBufferView(device, view, nil)
}

func (*Vulkan) CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	var image vk.Image
	res := vk.CreateImage(device, info, nil, &image)
	return image, res
}

func (*Vulkan) DestroyImage(device vk.Device, image vk.Image) {
	vk.DestroyImage(device, image, nil)
}

func (*Vulkan) GetImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &reqs)
	reqs.Deref()
	return reqs
}

func (*Vulkan) BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindImageMemory(device, image, memory, offset)
}

func (*Vulkan) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	var view vk.ImageView
	res := vk.CreateImageView(device, info, nil, &view)
	return view, res
}

func (*Vulkan) DestroyImageView(device vk.Device, view vk.ImageView) {
	vk.DestroyImageView(device, view, nil)
}

func (*Vulkan) CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	var sampler vk.Sampler
	res := vk.CreateSampler(device, info, nil, &sampler)
	return sampler, res
}

func (*Vulkan) DestroySampler(device vk.Device, sampler vk.Sampler) {
	vk.DestroySampler(device, sampler, nil)
}

// pipelines

func (*Vulkan) CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result) {
	var module vk.ShaderModule
	res := vk.CreateShaderModule(device, info, nil, &module)
	return module, res
}

func (*Vulkan) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	vk.DestroyShaderModule(device, module, nil)
}

func (*Vulkan) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	var pass vk.RenderPass
	res := vk.CreateRenderPass(device, info, nil, &pass)
	return pass, res
}

func (*Vulkan) DestroyRenderPass(device vk.Device, pass vk.RenderPass) {
	vk.DestroyRenderPass(device, pass, nil)
}

func (*Vulkan) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	var fb vk.Framebuffer
	res := vk.CreateFramebuffer(device, info, nil, &fb)
	return fb, res
}

func (*Vulkan) DestroyFramebuffer(device vk.Device, fb vk.Framebuffer) {
	vk.DestroyFramebuffer(device, fb, nil)
}

func (*Vulkan) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(device, info, nil, &layout)
	return layout, res
}

func (*Vulkan) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(device, layout, nil)
}

func (*Vulkan) CreatePipelineCache(device vk.Device, info *vk.PipelineCacheCreateInfo) (vk.PipelineCache, vk.Result) {
	var cache vk.PipelineCache
	res := vk.CreatePipelineCache(device, info, nil, &cache)
	return cache, res
}

func (*Vulkan) DestroyPipelineCache(device vk.Device, cache vk.PipelineCache) {
	vk.DestroyPipelineCache(device, cache, nil)
}

func (*Vulkan) GetPipelineCacheData(device vk.Device, cache vk.PipelineCache, size *uint64, out []byte) vk.Result {
	if len(out) == 0 {
		return vk.GetPipelineCacheData(device, cache, size, nil)
	}
	return vk.GetPipelineCacheData(device, cache, size, unsafe.Pointer(&out[0]))
}

func (*Vulkan) CreateGraphicsPipelines(device vk.Device, cache vk.PipelineCache, infos []vk.GraphicsPipelineCreateInfo) ([]vk.Pipeline, vk.Result) {
	pipelines := make([]vk.Pipeline, len(infos))
	res := vk.CreateGraphicsPipelines(device, cache, uint32(len(infos)), infos, nil, pipelines)
	return pipelines, res
}

func (*Vulkan) CreateComputePipelines(device vk.Device, cache vk.PipelineCache, infos []vk.ComputePipelineCreateInfo) ([]vk.Pipeline, vk.Result) {
	pipelines := make([]vk.Pipeline, len(infos))
	res := vk.CreateComputePipelines(device, cache, uint32(len(infos)), infos, nil, pipelines)
	return pipelines, res
}

func (*Vulkan) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	vk.DestroyPipeline(device, pipeline, nil)
}

// descriptors

func (*Vulkan) CreateDescriptorSetLayout(device vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(device, info, nil, &layout)
	return layout, res
}

func (*Vulkan) DestroyDescriptorSetLayout(device vk.Device, layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(device, layout, nil)
}

func (*Vulkan) CreateDescriptorPool(device vk.Device, info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	var pool vk.DescriptorPool
	res := vk.CreateDescriptorPool(device, info, nil, &pool)
	return pool, res
}

func (*Vulkan) DestroyDescriptorPool(device vk.Device, pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(device, pool, nil)
}

func (*Vulkan) ResetDescriptorPool(device vk.Device, pool vk.DescriptorPool) vk.Result {
	return vk.ResetDescriptorPool(device, pool, 0)
}

func (*Vulkan) AllocateDescriptorSets(device vk.Device, info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, vk.Result) {
	if info.DescriptorSetCount == 0 {
		return nil, vk.Success
	}
	sets := make([]vk.DescriptorSet, info.DescriptorSetCount)
	res := vk.AllocateDescriptorSets(device, info, &sets[0])
	return sets, res
}

func (*Vulkan) FreeDescriptorSets(device vk.Device, pool vk.DescriptorPool, sets []vk.DescriptorSet) vk.Result {
	if len(sets) == 0 {
		return vk.Success
	}
	return vk.FreeDescriptorSets(device, pool, uint32(len(sets)), &sets[0])
}

func (*Vulkan) UpdateDescriptorSets(device vk.Device, writes []vk.WriteDescriptorSet, copies []vk.CopyDescriptorSet) {
	vk.UpdateDescriptorSets(device, uint32(len(writes)), writes, uint32(len(copies)), copies)
}

// command pools

func (*Vulkan) CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	var pool vk.CommandPool
	res := vk.CreateCommandPool(device, info, nil, &pool)
	return pool, res
}

func (*Vulkan) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	vk.DestroyCommandPool(device, pool, nil)
}

func (*Vulkan) ResetCommandPool(device vk.Device, pool vk.CommandPool, flags vk.CommandPoolResetFlags) vk.Result {
	return vk.ResetCommandPool(device, pool, flags)
}

func (*Vulkan) AllocateCommandBuffers(device vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	res := vk.AllocateCommandBuffers(device, info, buffers)
	return buffers, res
}

func (*Vulkan) FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(device, pool, uint32(len(buffers)), buffers)
}

// synchronization

func (*Vulkan) CreateFence(device vk.Device, info *vk.FenceCreateInfo) (vk.Fence, vk.Result) {
	var fence vk.Fence
	res := vk.CreateFence(device, info, nil, &fence)
	return fence, res
}

func (*Vulkan) DestroyFence(device vk.Device, fence vk.Fence) {
	vk.DestroyFence(device, fence, nil)
}

func (*Vulkan) WaitForFences(device vk.Device, fences []vk.Fence, waitAll bool, timeout uint64) vk.Result {
	return vk.WaitForFences(device, uint32(len(fences)), fences, bool32(waitAll), timeout)
}

func (*Vulkan) ResetFences(device vk.Device, fences []vk.Fence) vk.Result {
	return vk.ResetFences(device, uint32(len(fences)), fences)
}

func (*Vulkan) GetFenceStatus(device vk.Device, fence vk.Fence) vk.Result {
	return vk.GetFenceStatus(device, fence)
}

func (*Vulkan) CreateSemaphore(device vk.Device, info *vk.SemaphoreCreateInfo) (vk.Semaphore, vk.Result) {
	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(device, info, nil, &semaphore)
	return semaphore, res
}

func (*Vulkan) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	vk.DestroySemaphore(device, semaphore, nil)
}

func (*Vulkan) CreateEvent(device vk.Device, info *vk.EventCreateInfo) (vk.Event, vk.Result) {
	var event vk.Event
	res := vk.CreateEvent(device, info, nil, &event)
	return event, res
}

func (*Vulkan) DestroyEvent(device vk.Device, event vk.Event) {
	vk.DestroyEvent(device, event, nil)
}

func (*Vulkan) GetEventStatus(device vk.Device, event vk.Event) vk.Result {
	return vk.GetEventStatus(device, event)
}

func (*Vulkan) SetEvent(device vk.Device, event vk.Event) vk.Result {
	return vk.SetEvent(device, event)
}

func (*Vulkan) ResetEvent(device vk.Device, event vk.Event) vk.Result {
	return vk.ResetEvent(device, event)
}

// swapchain

func (*Vulkan) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(device, info, nil, &swapchain)
	return swapchain, res
}

func (*Vulkan) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	vk.DestroySwapchain(device, swapchain, nil)
}

func (*Vulkan) GetSwapchainImages(device vk.Device, swapchain vk.Swapchain, count *uint32, out []vk.Image) vk.Result {
	return vk.GetSwapchainImages(device, swapchain, count, out)
}

func (*Vulkan) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, vk.Result) {
	var index uint32
	res := vk.AcquireNextImage(device, swapchain, timeout, semaphore, fence, &index)
	return index, res
}

func (*Vulkan) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

var _ Driver = (*Vulkan)(nil)
