package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

type MemoryConfig struct {
	Size      vk.DeviceSize
	TypeIndex uint32
}

type VulkanDeviceMemory struct {
	device *VulkanDevice
	handle vk.DeviceMemory
	id     trackID
	mapped []byte

	Size      vk.DeviceSize
	TypeIndex uint32
}

func (d *VulkanDevice) AllocateMemory(config MemoryConfig) (*VulkanDeviceMemory, error) {
	const op = "vkAllocateMemory"
	if config.Size == 0 {
		return nil, d.precondition(op, "allocation size must be greater than zero")
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  config.Size,
		MemoryTypeIndex: config.TypeIndex,
	}
	handle, res := d.drv.AllocateMemory(d.handle, &info)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	m := &VulkanDeviceMemory{device: d, handle: handle, Size: config.Size, TypeIndex: config.TypeIndex}
	m.id = d.own(m)
	return m, nil
}

// AllocateMemoryFor allocates memory satisfying reqs from the first memory
// type that has every bit of properties.
func (d *VulkanDevice) AllocateMemoryFor(reqs vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (*VulkanDeviceMemory, error) {
	index, ok := d.physical.FindMemoryType(reqs.MemoryTypeBits, properties)
	if !ok {
		return nil, d.precondition("vkAllocateMemory", "no memory type matches bits %#b with properties %#x", reqs.MemoryTypeBits, properties)
	}
	return d.AllocateMemory(MemoryConfig{Size: reqs.Size, TypeIndex: index})
}

func (m *VulkanDeviceMemory) Handle() vk.DeviceMemory { return m.handle }

// Destroy frees the allocation, unmapping it first if needed.
func (m *VulkanDeviceMemory) Destroy() {
	if m.handle == nil {
		return
	}
	if m.mapped != nil {
		m.Unmap()
	}
	m.device.drv.FreeMemory(m.device.handle, m.handle)
	m.device.disown(m.id)
	m.handle = nil
}

// Map exposes size bytes from offset as a byte slice. A size of zero maps to
// the end of the allocation. The slice is valid until Unmap.
func (m *VulkanDeviceMemory) Map(offset, size vk.DeviceSize) ([]byte, error) {
	const op = "vkMapMemory"
	if m.mapped != nil {
		return nil, m.device.precondition(op, "memory is already mapped")
	}
	if offset >= m.Size {
		return nil, m.device.precondition(op, "offset %d is past the allocation of %d bytes", offset, m.Size)
	}
	length := size
	request := size
	if size == 0 || size == WholeSize {
		length = m.Size - offset
		request = WholeSize
	}
	if offset+length > m.Size {
		return nil, m.device.precondition(op, "range [%d, %d) exceeds allocation of %d bytes", offset, offset+length, m.Size)
	}
	ptr, res := m.device.drv.MapMemory(m.device.handle, m.handle, offset, request)
	if err := m.device.check(op, res); err != nil {
		return nil, err
	}
	m.mapped = unsafe.Slice((*byte)(ptr), int(length))
	return m.mapped, nil
}

func (m *VulkanDeviceMemory) Unmap() {
	if m.mapped == nil {
		return
	}
	m.device.drv.UnmapMemory(m.device.handle, m.handle)
	m.mapped = nil
}

// Flush makes host writes to a mapped non-coherent range visible. A size of
// zero flushes to the end of the allocation.
func (m *VulkanDeviceMemory) Flush(offset, size vk.DeviceSize) error {
	if size == 0 {
		size = WholeSize
	}
	r := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: m.handle,
		Offset: offset,
		Size:   size,
	}
	return m.device.check("vkFlushMappedMemoryRanges", m.device.drv.FlushMappedMemoryRanges(m.device.handle, []vk.MappedMemoryRange{r}))
}

// Write maps the memory, copies data at offset and unmaps again.
func (m *VulkanDeviceMemory) Write(offset vk.DeviceSize, data []byte) error {
	dst, err := m.Map(offset, vk.DeviceSize(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	m.Unmap()
	return nil
}

// Read maps the memory and copies size bytes from offset.
func (m *VulkanDeviceMemory) Read(offset, size vk.DeviceSize) ([]byte, error) {
	src, err := m.Map(offset, size)
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), src...)
	m.Unmap()
	return out, nil
}
