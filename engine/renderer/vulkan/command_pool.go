package vulkan

import (
	vk "github.com/goki/vulkan"
)

type CommandPoolConfig struct {
	Family uint32
	// Transient hints that buffers are short-lived.
	Transient bool
}

// VulkanCommandPool owns the command buffers allocated from it. Destroying
// the pool frees every buffer still allocated.
type VulkanCommandPool struct {
	device  *VulkanDevice
	handle  vk.CommandPool
	id      trackID
	buffers map[*VulkanCommandBuffer]struct{}

	Family uint32
}

// CreateCommandPool creates a pool whose buffers can be reset individually.
func (d *VulkanDevice) CreateCommandPool(config CommandPoolConfig) (*VulkanCommandPool, error) {
	flags := vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)
	if config.Transient {
		flags |= vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit)
	}
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: config.Family,
		Flags:            flags,
	}
	handle, res := d.drv.CreateCommandPool(d.handle, &poolCreateInfo)
	if err := d.check("vkCreateCommandPool", res); err != nil {
		return nil, err
	}
	p := &VulkanCommandPool{
		device:  d,
		handle:  handle,
		buffers: make(map[*VulkanCommandBuffer]struct{}),
		Family:  config.Family,
	}
	p.id = d.own(p)
	return p, nil
}

func (p *VulkanCommandPool) Handle() vk.CommandPool { return p.handle }

func (p *VulkanCommandPool) Device() *VulkanDevice { return p.device }

// Allocated is the number of command buffers currently allocated from the
// pool.
func (p *VulkanCommandPool) Allocated() int { return len(p.buffers) }

func (p *VulkanCommandPool) Destroy() {
	if p.handle == nil {
		return
	}
	p.device.drv.DestroyCommandPool(p.device.handle, p.handle)
	for cb := range p.buffers {
		cb.release()
	}
	p.buffers = nil
	p.device.disown(p.id)
	p.handle = nil
}

// AllocateCommandBuffers allocates count buffers of the given level.
func (p *VulkanCommandPool) AllocateCommandBuffers(level vk.CommandBufferLevel, count uint32) ([]*VulkanCommandBuffer, error) {
	const op = "vkAllocateCommandBuffers"
	if count == 0 {
		return nil, p.device.precondition(op, "count must be at least 1")
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              level,
		CommandBufferCount: count,
	}
	handles, res := p.device.drv.AllocateCommandBuffers(p.device.handle, &allocateInfo)
	if err := p.device.check(op, res); err != nil {
		return nil, err
	}
	out := make([]*VulkanCommandBuffer, len(handles))
	for i, h := range handles {
		cb := &VulkanCommandBuffer{pool: p, handle: h, Level: level, State: COMMAND_BUFFER_STATE_READY}
		p.buffers[cb] = struct{}{}
		out[i] = cb
	}
	return out, nil
}

// AllocateCommandBuffer allocates a single primary or secondary buffer.
func (p *VulkanCommandPool) AllocateCommandBuffer(isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}
	cbs, err := p.AllocateCommandBuffers(level, 1)
	if err != nil {
		return nil, err
	}
	return cbs[0], nil
}

// FreeCommandBuffers returns the buffers to the pool as one batch.
func (p *VulkanCommandPool) FreeCommandBuffers(cbs ...*VulkanCommandBuffer) error {
	const op = "vkFreeCommandBuffers"
	handles := make([]vk.CommandBuffer, 0, len(cbs))
	for _, cb := range cbs {
		if cb.pool != p {
			return p.device.precondition(op, "command buffer belongs to another pool")
		}
		if cb.handle == nil {
			continue
		}
		handles = append(handles, cb.handle)
	}
	if len(handles) == 0 {
		return nil
	}
	p.device.drv.FreeCommandBuffers(p.device.handle, p.handle, handles)
	for _, cb := range cbs {
		cb.release()
		delete(p.buffers, cb)
	}
	return nil
}

// Reset returns every buffer of the pool to the ready state.
func (p *VulkanCommandPool) Reset(releaseResources bool) error {
	var flags vk.CommandPoolResetFlags
	if releaseResources {
		flags = vk.CommandPoolResetFlags(vk.CommandPoolResetReleaseResourcesBit)
	}
	if err := p.device.check("vkResetCommandPool", p.device.drv.ResetCommandPool(p.device.handle, p.handle, flags)); err != nil {
		return err
	}
	for cb := range p.buffers {
		cb.State = COMMAND_BUFFER_STATE_READY
	}
	return nil
}

/**
 * Allocates and begins recording a primary buffer for a one-off submission.
 */
func (p *VulkanCommandPool) AllocateAndBeginSingleUse() (*VulkanCommandBuffer, error) {
	cb, err := p.AllocateCommandBuffer(true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(BeginConfig{}); err != nil {
		p.FreeCommandBuffers(cb)
		return nil, err
	}
	return cb, nil
}
