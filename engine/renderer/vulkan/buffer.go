package vulkan

import (
	vk "github.com/goki/vulkan"
)

type BufferConfig struct {
	Size  vk.DeviceSize
	Usage vk.BufferUsageFlags
	// SharingMode defaults to exclusive. Concurrent sharing needs at least
	// two QueueFamilies.
	SharingMode   vk.SharingMode
	QueueFamilies []uint32
}

type VulkanBuffer struct {
	device *VulkanDevice
	handle vk.Buffer
	id     trackID
	memory *VulkanDeviceMemory
	offset vk.DeviceSize

	Size  vk.DeviceSize
	Usage vk.BufferUsageFlags
}

func sharing(f failer, op string, mode vk.SharingMode, families []uint32) ([]uint32, error) {
	if mode != vk.SharingModeConcurrent {
		return nil, nil
	}
	if len(families) < 2 {
		return nil, f.precondition(op, "concurrent sharing needs at least two queue families, got %d", len(families))
	}
	return append([]uint32(nil), families...), nil
}

func (d *VulkanDevice) CreateBuffer(config BufferConfig) (*VulkanBuffer, error) {
	const op = "vkCreateBuffer"
	if config.Size == 0 {
		return nil, d.precondition(op, "size must be greater than zero")
	}
	families, err := sharing(d.failer, op, config.SharingMode, config.QueueFamilies)
	if err != nil {
		return nil, err
	}
	info := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  config.Size,
		Usage:                 config.Usage,
		SharingMode:           config.SharingMode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
	}
	handle, res := d.drv.CreateBuffer(d.handle, &info)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	b := &VulkanBuffer{device: d, handle: handle, Size: config.Size, Usage: config.Usage}
	b.id = d.own(b)
	return b, nil
}

// CreateAllocatedBuffer creates a buffer and binds it to a dedicated
// allocation with the given memory properties.
func (d *VulkanDevice) CreateAllocatedBuffer(config BufferConfig, properties vk.MemoryPropertyFlags) (*VulkanBuffer, *VulkanDeviceMemory, error) {
	b, err := d.CreateBuffer(config)
	if err != nil {
		return nil, nil, err
	}
	mem, err := d.AllocateMemoryFor(b.MemoryRequirements(), properties)
	if err != nil {
		b.Destroy()
		return nil, nil, err
	}
	if err := b.BindMemory(mem, 0); err != nil {
		b.Destroy()
		mem.Destroy()
		return nil, nil, err
	}
	return b, mem, nil
}

func (b *VulkanBuffer) Handle() vk.Buffer { return b.handle }

func (b *VulkanBuffer) Memory() *VulkanDeviceMemory { return b.memory }

func (b *VulkanBuffer) MemoryOffset() vk.DeviceSize { return b.offset }

func (b *VulkanBuffer) Destroy() {
	if b.handle == nil {
		return
	}
	b.device.drv.DestroyBuffer(b.device.handle, b.handle)
	b.device.disown(b.id)
	b.handle = nil
	b.memory = nil
}

func (b *VulkanBuffer) MemoryRequirements() vk.MemoryRequirements {
	return b.device.drv.GetBufferMemoryRequirements(b.device.handle, b.handle)
}

func (b *VulkanBuffer) BindMemory(memory *VulkanDeviceMemory, offset vk.DeviceSize) error {
	if err := b.device.check("vkBindBufferMemory", b.device.drv.BindBufferMemory(b.device.handle, b.handle, memory.handle, offset)); err != nil {
		return err
	}
	b.memory, b.offset = memory, offset
	return nil
}

type BufferViewConfig struct {
	Buffer *VulkanBuffer
	Format vk.Format
	Offset vk.DeviceSize
	// Range defaults to WholeSize.
	Range vk.DeviceSize
}

type VulkanBufferView struct {
	device *VulkanDevice
	handle vk.BufferView
	id     trackID

	Buffer *VulkanBuffer
	Format vk.Format
}

func (d *VulkanDevice) CreateBufferView(config BufferViewConfig) (*VulkanBufferView, error) {
	const op = "vkCreateBufferView"
	if config.Buffer == nil {
		return nil, d.precondition(op, "buffer is required")
	}
	rng := config.Range
	if rng == 0 {
		rng = WholeSize
	}
	info := vk.BufferViewCreateInfo{
		SType:  vk.StructureTypeBufferViewCreateInfo,
		Buffer: config.Buffer.handle,
		Format: config.Format,
		Offset: config.Offset,
		Range:  rng,
	}
	handle, res := d.drv.CreateBufferView(d.handle, &info)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	v := &VulkanBufferView{device: d, handle: handle, Buffer: config.Buffer, Format: config.Format}
	v.id = d.own(v)
	return v, nil
}

func (v *VulkanBufferView) Handle() vk.BufferView { return v.handle }

func (v *VulkanBufferView) Destroy() {
	if v.handle == nil {
		return
	}
	v.device.drv.DestroyBufferView(v.device.handle, v.handle)
	v.device.disown(v.id)
	v.handle = nil
}
