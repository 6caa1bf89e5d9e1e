package soft

import (
	vk "github.com/goki/vulkan"
)

type instanceObj struct {
	layers     []string
	extensions []string
	physical   handle
}

type physicalDeviceObj struct{}

type deviceObj struct {
	physical   handle
	extensions []string
	queues     map[[2]uint32]handle
}

type queueObj struct {
	device  handle
	family  uint32
	index   uint32
	pending []work
}

type memoryObj struct {
	data      []byte
	typeIndex uint32
	mapped    bool
}

type bufferObj struct {
	size   vk.DeviceSize
	usage  vk.BufferUsageFlags
	memory *memoryObj
	offset vk.DeviceSize
}

// bytes returns the bound storage or nil when unbound.
func (b *bufferObj) bytes() []byte {
	if b.memory == nil {
		return nil
	}
	return b.memory.data[b.offset : b.offset+b.size]
}

type bufferViewObj struct {
	buffer handle
}

type imageObj struct {
	format vk.Format
	extent vk.Extent3D
	layers uint32
	mips   uint32
	usage  vk.ImageUsageFlags
	memory *memoryObj
	offset vk.DeviceSize
	// own backs swapchain images, which are never bound to device memory.
	own       []byte
	swapchain handle
}

func (i *imageObj) texelSize() int { return texelSize(i.format) }

// levelSize is the byte size of mip level 0 of one array layer.
func (i *imageObj) levelSize() int {
	return int(i.extent.Width) * int(i.extent.Height) * int(max(i.extent.Depth, 1)) * i.texelSize()
}

func (i *imageObj) size() vk.DeviceSize {
	total := 0
	w, h, dep := int(i.extent.Width), int(i.extent.Height), int(max(i.extent.Depth, 1))
	for l := uint32(0); l < max(i.mips, 1); l++ {
		total += w * h * dep * i.texelSize()
		w, h, dep = max(w/2, 1), max(h/2, 1), max(dep/2, 1)
	}
	return vk.DeviceSize(total * int(max(i.layers, 1)))
}

// bytes returns mip 0 of the given layer, or nil when unbound.
func (i *imageObj) bytes(layer uint32) []byte {
	var all []byte
	switch {
	case i.own != nil:
		all = i.own
	case i.memory != nil:
		all = i.memory.data[i.offset : i.offset+i.size()]
	default:
		return nil
	}
	layerSize := int(i.size()) / int(max(i.layers, 1))
	start := int(layer) * layerSize
	return all[start : start+i.levelSize()]
}

type imageViewObj struct {
	image  handle
	format vk.Format
}

type samplerObj struct{}

type shaderModuleObj struct {
	words int
}

type renderPassObj struct {
	attachments []vk.AttachmentDescription
}

type framebufferObj struct {
	pass   handle
	views  []handle
	width  uint32
	height uint32
}

type pipelineLayoutObj struct {
	setLayouts int
}

type pipelineCacheObj struct {
	data []byte
}

type pipelineObj struct {
	bindPoint vk.PipelineBindPoint
}

type descriptorSetLayoutObj struct {
	bindings map[uint32]vk.DescriptorSetLayoutBinding
}

type descriptorPoolObj struct {
	maxSets   uint32
	allocated uint32
	freeable  bool
}

type descriptorSetObj struct {
	layout   handle
	bindings map[uint32]vk.DescriptorSetLayoutBinding
	written  map[uint32]vk.DescriptorType
}

type commandPoolObj struct {
	family     uint32
	resettable bool
}

type cbState uint8

const (
	cbInitial cbState = iota
	cbRecording
	cbExecutable
	cbPending
	cbInvalid
)

var cbStateNames = [...]string{"initial", "recording", "executable", "pending", "invalid"}

func (s cbState) String() string { return cbStateNames[s] }

type commandBufferObj struct {
	pool         handle
	level        vk.CommandBufferLevel
	state        cbState
	oneTime      bool
	inRenderPass bool
	ops          []op
}

type fenceObj struct {
	signaled bool
}

type semaphoreObj struct {
	timeline bool
	value    uint64
	// signaled is the binary payload.
	signaled bool
}

type eventObj struct {
	set bool
}

type swapchainObj struct {
	surface        handle
	surfaceVersion uint64
	format         vk.Format
	extent         vk.Extent2D
	images         []handle
	// held marks images owned by the application or queued for present.
	held    []bool
	next    int
	retired bool
}
