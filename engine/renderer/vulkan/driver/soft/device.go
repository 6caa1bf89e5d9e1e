package soft

import (
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"

	emath "github.com/spaghettifunk/vkbind/engine/math"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
)

func (d *Driver) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.physical(pd, "vkCreateDevice") {
		return nil, vk.ErrorInitializationFailed
	}
	exts := cstrs(info.PpEnabledExtensionNames)
	for _, e := range exts {
		if !slices.Contains(d.cfg.DeviceExtensions, e) {
			return nil, vk.ErrorExtensionNotPresent
		}
	}
	dev := &deviceObj{
		physical:   handleOf(unsafe.Pointer(pd)),
		extensions: exts,
		queues:     make(map[[2]uint32]handle),
	}
	h, res := d.create(KindDevice, 0, dev)
	if res != vk.Success {
		return nil, res
	}
	for _, qi := range info.PQueueCreateInfos {
		if int(qi.QueueFamilyIndex) >= len(d.cfg.QueueFamilies) || qi.QueueCount > d.cfg.QueueFamilies[qi.QueueFamilyIndex].Count {
			d.releaseOwned(h)
			d.arenas[KindDevice].release(h)
			return nil, vk.ErrorInitializationFailed
		}
		for i := uint32(0); i < qi.QueueCount; i++ {
			q := &queueObj{device: h, family: qi.QueueFamilyIndex, index: i}
			qh, res := d.create(KindQueue, h, q)
			if res != vk.Success {
				return nil, res
			}
			dev.queues[[2]uint32{qi.QueueFamilyIndex, i}] = qh
		}
	}
	return vk.Device(h.ptr()), vk.Success
}

func (d *Driver) DestroyDevice(device vk.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := handleOf(unsafe.Pointer(device))
	if h == 0 {
		return
	}
	obj, ok := d.get(KindDevice, h.ptr(), "vkDestroyDevice")
	if !ok {
		return
	}
	dev := obj.(*deviceObj)
	for _, qh := range dev.queues {
		if e, ok := d.arenas[KindQueue].lookup(qh); ok && len(e.obj.(*queueObj).pending) > 0 {
			d.report("vkDestroyDevice: queue %#x still has pending work", uint32(qh))
		}
	}
	var live []string
	for _, child := range d.children(h) {
		if !isQueueSummary(child) {
			live = append(live, child)
		}
	}
	if len(live) > 0 {
		d.report("vkDestroyDevice: device destroyed with live children %v", live)
	}
	d.releaseOwned(h)
	d.arenas[KindDevice].release(h)
}

func isQueueSummary(s string) bool {
	return len(s) > 6 && s[:6] == "Queue "
}

func (d *Driver) device(device vk.Device, op string) (*deviceObj, handle, bool) {
	obj, ok := d.get(KindDevice, unsafe.Pointer(device), op)
	if !ok {
		return nil, 0, false
	}
	return obj.(*deviceObj), handleOf(unsafe.Pointer(device)), true
}

func (d *Driver) DeviceWaitIdle(device vk.Device) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, _, ok := d.device(device, "vkDeviceWaitIdle")
	if !ok {
		return vk.ErrorDeviceLost
	}
	for _, qh := range dev.queues {
		d.drain(qh, nil)
	}
	return vk.Success
}

func (d *Driver) DeviceProcAddr(device vk.Device, name string) driver.ProcAddr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, _, ok := d.device(device, "vkGetDeviceProcAddr"); !ok {
		return nil
	}
	p, ok := d.procs[name]
	if !ok {
		return nil
	}
	return driver.ProcAddr(unsafe.Pointer(p))
}

func (d *Driver) GetDeviceQueue(device vk.Device, family, index uint32) vk.Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, _, ok := d.device(device, "vkGetDeviceQueue")
	if !ok {
		return nil
	}
	qh, ok := dev.queues[[2]uint32{family, index}]
	if !ok {
		d.report("vkGetDeviceQueue: queue %d of family %d was not requested at device creation", index, family)
		return nil
	}
	return vk.Queue(qh.ptr())
}

// child creates a device-owned object after validating the device.
func (d *Driver) child(device vk.Device, kind Kind, obj any, op string) (unsafe.Pointer, vk.Result) {
	_, h, ok := d.device(device, op)
	if !ok {
		return nil, vk.ErrorDeviceLost
	}
	ch, res := d.create(kind, h, obj)
	if res != vk.Success {
		return nil, res
	}
	return ch.ptr(), vk.Success
}

func (d *Driver) AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info.MemoryTypeIndex > 2 {
		d.report("vkAllocateMemory: memory type %d out of range", info.MemoryTypeIndex)
		return nil, vk.ErrorOutOfDeviceMemory
	}
	if info.AllocationSize == 0 || d.allocatedBytes()+info.AllocationSize > d.cfg.HeapSize {
		return nil, vk.ErrorOutOfDeviceMemory
	}
	p, res := d.child(device, KindMemory, &memoryObj{
		data:      make([]byte, info.AllocationSize),
		typeIndex: info.MemoryTypeIndex,
	}, "vkAllocateMemory")
	return vk.DeviceMemory(p), res
}

func (d *Driver) allocatedBytes() vk.DeviceSize {
	var n vk.DeviceSize
	d.arenas[KindMemory].each(func(_ handle, e *entry) {
		n += vk.DeviceSize(len(e.obj.(*memoryObj).data))
	})
	return n
}

func (d *Driver) FreeMemory(device vk.Device, memory vk.DeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindMemory, unsafe.Pointer(memory), "vkFreeMemory")
}

func (d *Driver) MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindMemory, unsafe.Pointer(memory), "vkMapMemory")
	if !ok {
		return nil, vk.ErrorMemoryMapFailed
	}
	m := obj.(*memoryObj)
	if m.typeIndex == 0 {
		d.report("vkMapMemory: memory type %d is not host visible", m.typeIndex)
		return nil, vk.ErrorMemoryMapFailed
	}
	if m.mapped {
		d.report("vkMapMemory: memory is already mapped")
		return nil, vk.ErrorMemoryMapFailed
	}
	if size == wholeSize {
		size = vk.DeviceSize(len(m.data)) - offset
	}
	if offset+size > vk.DeviceSize(len(m.data)) || size == 0 {
		d.report("vkMapMemory: range [%d, %d) exceeds allocation of %d bytes", offset, offset+size, len(m.data))
		return nil, vk.ErrorMemoryMapFailed
	}
	m.mapped = true
	return unsafe.Pointer(&m.data[offset]), vk.Success
}

func (d *Driver) UnmapMemory(device vk.Device, memory vk.DeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindMemory, unsafe.Pointer(memory), "vkUnmapMemory")
	if !ok {
		return
	}
	m := obj.(*memoryObj)
	if !m.mapped {
		d.report("vkUnmapMemory: memory is not mapped")
	}
	m.mapped = false
}

func (d *Driver) FlushMappedMemoryRanges(device vk.Device, ranges []vk.MappedMemoryRange) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range ranges {
		obj, ok := d.get(KindMemory, unsafe.Pointer(r.Memory), "vkFlushMappedMemoryRanges")
		if !ok {
			return vk.ErrorMemoryMapFailed
		}
		if !obj.(*memoryObj).mapped {
			d.report("vkFlushMappedMemoryRanges: memory is not mapped")
		}
	}
	return vk.Success
}

const bindAlignment = 256

// wholeSize is VK_WHOLE_SIZE.
const wholeSize = vk.DeviceSize(math.MaxUint64)

func (d *Driver) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info.Size == 0 {
		d.report("vkCreateBuffer: size must be greater than zero")
		return nil, vk.ErrorInitializationFailed
	}
	p, res := d.child(device, KindBuffer, &bufferObj{size: info.Size, usage: info.Usage}, "vkCreateBuffer")
	return vk.Buffer(p), res
}

func (d *Driver) DestroyBuffer(device vk.Device, buffer vk.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindBuffer, unsafe.Pointer(buffer), "vkDestroyBuffer")
}

func (d *Driver) GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindBuffer, unsafe.Pointer(buffer), "vkGetBufferMemoryRequirements")
	if !ok {
		return vk.MemoryRequirements{}
	}
	return vk.MemoryRequirements{
		Size:           emath.AlignUp(obj.(*bufferObj).size, bindAlignment),
		Alignment:      bindAlignment,
		MemoryTypeBits: 0b111,
	}
}

func (d *Driver) bind(op string, memory vk.DeviceMemory, offset, size vk.DeviceSize) (*memoryObj, vk.Result) {
	obj, ok := d.get(KindMemory, unsafe.Pointer(memory), op)
	if !ok {
		return nil, vk.ErrorOutOfDeviceMemory
	}
	m := obj.(*memoryObj)
	if offset%bindAlignment != 0 {
		d.report("%s: offset %d is not aligned to %d", op, offset, bindAlignment)
	}
	if offset+size > vk.DeviceSize(len(m.data)) {
		d.report("%s: range [%d, %d) exceeds allocation of %d bytes", op, offset, offset+size, len(m.data))
		return nil, vk.ErrorOutOfDeviceMemory
	}
	return m, vk.Success
}

func (d *Driver) BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindBuffer, unsafe.Pointer(buffer), "vkBindBufferMemory")
	if !ok {
		return vk.ErrorOutOfDeviceMemory
	}
	b := obj.(*bufferObj)
	if b.memory != nil {
		d.report("vkBindBufferMemory: buffer is already bound")
		return vk.ErrorInitializationFailed
	}
	m, res := d.bind("vkBindBufferMemory", memory, offset, b.size)
	if res != vk.Success {
		return res
	}
	b.memory, b.offset = m, offset
	return vk.Success
}

func (d *Driver) CreateBufferView(device vk.Device, info *vk.BufferViewCreateInfo) (vk.BufferView, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(KindBuffer, unsafe.Pointer(info.Buffer), "vkCreateBufferView"); !ok {
		return nil, vk.ErrorInitializationFailed
	}
	p, res := d.child(device, KindBufferView, &bufferViewObj{buffer: handleOf(unsafe.Pointer(info.Buffer))}, "vkCreateBufferView")
	return vk.BufferView(p), res
}

func (d *Driver) DestroyBufferView(device vk.Device, view vk.BufferView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindBufferView, unsafe.Pointer(view), "vkDestroyBufferView")
}

func (d *Driver) CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		d.report("vkCreateImage: extent %dx%d is empty", info.Extent.Width, info.Extent.Height)
		return nil, vk.ErrorInitializationFailed
	}
	if info.Format == vk.FormatUndefined {
		return nil, vk.ErrorFormatNotSupported
	}
	img := &imageObj{
		format: info.Format,
		extent: info.Extent,
		layers: max(info.ArrayLayers, 1),
		mips:   max(info.MipLevels, 1),
		usage:  info.Usage,
	}
	p, res := d.child(device, KindImage, img, "vkCreateImage")
	return vk.Image(p), res
}

func (d *Driver) DestroyImage(device vk.Device, image vk.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if obj, ok := d.arenas[KindImage].lookup(handleOf(unsafe.Pointer(image))); ok && obj.obj.(*imageObj).swapchain != 0 {
		d.report("vkDestroyImage: swapchain images are owned by the swapchain")
		return
	}
	d.destroy(KindImage, unsafe.Pointer(image), "vkDestroyImage")
}

func (d *Driver) GetImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindImage, unsafe.Pointer(image), "vkGetImageMemoryRequirements")
	if !ok {
		return vk.MemoryRequirements{}
	}
	return vk.MemoryRequirements{
		Size:           emath.AlignUp(obj.(*imageObj).size(), bindAlignment),
		Alignment:      bindAlignment,
		MemoryTypeBits: 0b111,
	}
}

func (d *Driver) BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindImage, unsafe.Pointer(image), "vkBindImageMemory")
	if !ok {
		return vk.ErrorOutOfDeviceMemory
	}
	img := obj.(*imageObj)
	if img.memory != nil || img.own != nil {
		d.report("vkBindImageMemory: image is already bound")
		return vk.ErrorInitializationFailed
	}
	m, res := d.bind("vkBindImageMemory", memory, offset, img.size())
	if res != vk.Success {
		return res
	}
	img.memory, img.offset = m, offset
	return vk.Success
}

func (d *Driver) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(KindImage, unsafe.Pointer(info.Image), "vkCreateImageView"); !ok {
		return nil, vk.ErrorInitializationFailed
	}
	p, res := d.child(device, KindImageView, &imageViewObj{
		image:  handleOf(unsafe.Pointer(info.Image)),
		format: info.Format,
	}, "vkCreateImageView")
	return vk.ImageView(p), res
}

func (d *Driver) DestroyImageView(device vk.Device, view vk.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindImageView, unsafe.Pointer(view), "vkDestroyImageView")
}

func (d *Driver) CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, res := d.child(device, KindSampler, &samplerObj{}, "vkCreateSampler")
	return vk.Sampler(p), res
}

func (d *Driver) DestroySampler(device vk.Device, sampler vk.Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindSampler, unsafe.Pointer(sampler), "vkDestroySampler")
}

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

func (d *Driver) CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info.CodeSize == 0 || info.CodeSize%4 != 0 || len(info.PCode) == 0 || info.PCode[0] != spirvMagic {
		d.report("vkCreateShaderModule: code is not a SPIR-V module")
		return nil, vk.ErrorInvalidShaderNv
	}
	p, res := d.child(device, KindShaderModule, &shaderModuleObj{words: len(info.PCode)}, "vkCreateShaderModule")
	return vk.ShaderModule(p), res
}

func (d *Driver) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindShaderModule, unsafe.Pointer(module), "vkDestroyShaderModule")
}

func (d *Driver) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info.SubpassCount == 0 {
		d.report("vkCreateRenderPass: at least one subpass is required")
		return nil, vk.ErrorInitializationFailed
	}
	p, res := d.child(device, KindRenderPass, &renderPassObj{
		attachments: append([]vk.AttachmentDescription(nil), info.PAttachments...),
	}, "vkCreateRenderPass")
	return vk.RenderPass(p), res
}

func (d *Driver) DestroyRenderPass(device vk.Device, pass vk.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindRenderPass, unsafe.Pointer(pass), "vkDestroyRenderPass")
}

func (d *Driver) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindRenderPass, unsafe.Pointer(info.RenderPass), "vkCreateFramebuffer")
	if !ok {
		return nil, vk.ErrorInitializationFailed
	}
	if len(info.PAttachments) != len(obj.(*renderPassObj).attachments) {
		d.report("vkCreateFramebuffer: %d attachments given, render pass declares %d",
			len(info.PAttachments), len(obj.(*renderPassObj).attachments))
		return nil, vk.ErrorInitializationFailed
	}
	fb := &framebufferObj{pass: handleOf(unsafe.Pointer(info.RenderPass)), width: info.Width, height: info.Height}
	for _, v := range info.PAttachments {
		if _, ok := d.get(KindImageView, unsafe.Pointer(v), "vkCreateFramebuffer"); !ok {
			return nil, vk.ErrorInitializationFailed
		}
		fb.views = append(fb.views, handleOf(unsafe.Pointer(v)))
	}
	p, res := d.child(device, KindFramebuffer, fb, "vkCreateFramebuffer")
	return vk.Framebuffer(p), res
}

func (d *Driver) DestroyFramebuffer(device vk.Device, fb vk.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindFramebuffer, unsafe.Pointer(fb), "vkDestroyFramebuffer")
}

func (d *Driver) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range info.PSetLayouts {
		if _, ok := d.get(KindDescriptorSetLayout, unsafe.Pointer(l), "vkCreatePipelineLayout"); !ok {
			return nil, vk.ErrorInitializationFailed
		}
	}
	p, res := d.child(device, KindPipelineLayout, &pipelineLayoutObj{setLayouts: len(info.PSetLayouts)}, "vkCreatePipelineLayout")
	return vk.PipelineLayout(p), res
}

func (d *Driver) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindPipelineLayout, unsafe.Pointer(layout), "vkDestroyPipelineLayout")
}
