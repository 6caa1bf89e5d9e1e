package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return "in render pass"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	case COMMAND_BUFFER_STATE_NOT_ALLOCATED:
		return "not allocated"
	}
	return "unknown"
}

type VulkanCommandBuffer struct {
	pool   *VulkanCommandPool
	handle vk.CommandBuffer
	// Recorded with the one-time-submit flag.
	singleUse bool

	Level vk.CommandBufferLevel
	State VulkanCommandBufferState
}

// BeginConfig is one-time-submit unless Reusable is set. The inheritance
// fields only apply to secondary buffers.
type BeginConfig struct {
	Reusable           bool
	RenderPassContinue bool
	SimultaneousUse    bool

	RenderPass  *VulkanRenderPass
	Subpass     uint32
	Framebuffer *VulkanFramebuffer
}

func (v *VulkanCommandBuffer) Handle() vk.CommandBuffer { return v.handle }

func (v *VulkanCommandBuffer) Pool() *VulkanCommandPool { return v.pool }

func (v *VulkanCommandBuffer) device() *VulkanDevice { return v.pool.device }

// Free returns the buffer to its pool.
func (v *VulkanCommandBuffer) Free() error {
	return v.pool.FreeCommandBuffers(v)
}

func (v *VulkanCommandBuffer) release() {
	v.handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(config BeginConfig) error {
	const op = "vkBeginCommandBuffer"
	switch v.State {
	case COMMAND_BUFFER_STATE_READY, COMMAND_BUFFER_STATE_RECORDING_ENDED, COMMAND_BUFFER_STATE_SUBMITTED:
	default:
		return v.device().precondition(op, "command buffer is %s", v.State)
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if !config.Reusable {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if config.RenderPassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if config.SimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}
	if v.Level == vk.CommandBufferLevelSecondary {
		inheritance := vk.CommandBufferInheritanceInfo{
			SType:   vk.StructureTypeCommandBufferInheritanceInfo,
			Subpass: config.Subpass,
		}
		if config.RenderPass != nil {
			inheritance.RenderPass = config.RenderPass.handle
		}
		if config.Framebuffer != nil {
			inheritance.Framebuffer = config.Framebuffer.handle
		}
		beginInfo.PInheritanceInfo = []vk.CommandBufferInheritanceInfo{inheritance}
	}

	if err := v.device().check(op, v.device().drv.BeginCommandBuffer(v.handle, &beginInfo)); err != nil {
		return err
	}
	v.singleUse = !config.Reusable
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	const op = "vkEndCommandBuffer"
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return v.device().precondition(op, "command buffer is %s", v.State)
	}
	if err := v.device().check(op, v.device().drv.EndCommandBuffer(v.handle)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset discards the recorded commands. With releaseResources the buffer
// also hands its memory back to the pool.
func (v *VulkanCommandBuffer) Reset(releaseResources bool) error {
	const op = "vkResetCommandBuffer"
	if v.State == COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		return v.device().precondition(op, "command buffer is %s", v.State)
	}
	var flags vk.CommandBufferResetFlags
	if releaseResources {
		flags = vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)
	}
	if err := v.device().check(op, v.device().drv.ResetCommandBuffer(v.handle, flags)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (v *VulkanCommandBuffer) submittable() bool {
	return v.State == COMMAND_BUFFER_STATE_RECORDING_ENDED ||
		(v.State == COMMAND_BUFFER_STATE_SUBMITTED && !v.singleUse)
}

/**
 * Ends recording, submits to and waits for queue operation and frees the command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(queue *VulkanQueue) error {
	// End the command buffer.
	if err := v.End(); err != nil {
		return err
	}
	// Submit the queue
	if err := queue.Submit([]SubmitInfo{{CommandBuffers: []*VulkanCommandBuffer{v}}}, nil); err != nil {
		return err
	}
	// Wait for it to finish
	if err := queue.WaitIdle(); err != nil {
		return err
	}
	return v.Free()
}

// recording checks that a command may be recorded, optionally requiring an
// active render pass (inside) or its absence (outside).
func (v *VulkanCommandBuffer) recording(op string, rule passRule) error {
	switch {
	case v.State != COMMAND_BUFFER_STATE_RECORDING && v.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return v.device().precondition(op, "command buffer is %s", v.State)
	case rule == insideRenderPass && v.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return v.device().precondition(op, "needs an active render pass")
	case rule == outsideRenderPass && v.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return v.device().precondition(op, "not allowed inside a render pass")
	}
	return nil
}

type passRule int

const (
	anyPass passRule = iota
	insideRenderPass
	outsideRenderPass
)
