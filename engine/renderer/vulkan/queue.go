package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanQueue is owned by its device and has nothing to destroy. Callers
// submitting from several goroutines serialize through a LockPool.
type VulkanQueue struct {
	device *VulkanDevice
	handle vk.Queue

	Family uint32
	Index  uint32
}

type SubmitInfo struct {
	// WaitSemaphores and WaitStages are parallel.
	WaitSemaphores   []*VulkanSemaphore
	WaitStages       []vk.PipelineStageFlags
	CommandBuffers   []*VulkanCommandBuffer
	SignalSemaphores []*VulkanSemaphore
	// Timeline values, parallel to WaitSemaphores and SignalSemaphores when
	// set. Binary semaphores in the same list ignore their entry.
	WaitValues   []uint64
	SignalValues []uint64
}

type PresentInfo struct {
	WaitSemaphores []*VulkanSemaphore
	// Swapchains and ImageIndices are parallel.
	Swapchains   []*VulkanSwapchain
	ImageIndices []uint32
}

func (q *VulkanQueue) Handle() vk.Queue { return q.handle }

func (q *VulkanQueue) Device() *VulkanDevice { return q.device }

// Submit queues the batches and marks their command buffers submitted. The
// optional fence is signaled once every batch completes.
func (q *VulkanQueue) Submit(submits []SubmitInfo, fence *VulkanFence) error {
	const op = "vkQueueSubmit"
	d := q.device
	infos := make([]vk.SubmitInfo, len(submits))
	var waitValues, signalValues [][]uint64
	timeline := false
	for i, s := range submits {
		if len(s.WaitSemaphores) != len(s.WaitStages) {
			return d.precondition(op, "submit %d: %d wait semaphores but %d wait stages", i, len(s.WaitSemaphores), len(s.WaitStages))
		}
		if s.WaitValues != nil && len(s.WaitValues) != len(s.WaitSemaphores) {
			return d.precondition(op, "submit %d: %d wait values for %d wait semaphores", i, len(s.WaitValues), len(s.WaitSemaphores))
		}
		if s.SignalValues != nil && len(s.SignalValues) != len(s.SignalSemaphores) {
			return d.precondition(op, "submit %d: %d signal values for %d signal semaphores", i, len(s.SignalValues), len(s.SignalSemaphores))
		}
		buffers := make([]vk.CommandBuffer, len(s.CommandBuffers))
		for j, cb := range s.CommandBuffers {
			if !cb.submittable() {
				return d.precondition(op, "submit %d: command buffer %d is %s", i, j, cb.State)
			}
			buffers[j] = cb.handle
		}
		infos[i] = vk.SubmitInfo{
			SType:                vk.StructureTypeSubmitInfo,
			WaitSemaphoreCount:   uint32(len(s.WaitSemaphores)),
			PWaitSemaphores:      semaphoreHandles(s.WaitSemaphores),
			PWaitDstStageMask:    append([]vk.PipelineStageFlags(nil), s.WaitStages...),
			CommandBufferCount:   uint32(len(buffers)),
			PCommandBuffers:      buffers,
			SignalSemaphoreCount: uint32(len(s.SignalSemaphores)),
			PSignalSemaphores:    semaphoreHandles(s.SignalSemaphores),
		}
		if s.WaitValues != nil || s.SignalValues != nil {
			timeline = true
		}
	}

	var res vk.Result
	if timeline {
		waitValues = make([][]uint64, len(submits))
		signalValues = make([][]uint64, len(submits))
		for i, s := range submits {
			waitValues[i] = append([]uint64(nil), s.WaitValues...)
			signalValues[i] = append([]uint64(nil), s.SignalValues...)
		}
		res = d.drv.QueueSubmitTimeline(q.handle, infos, waitValues, signalValues, fenceHandle(fence))
	} else {
		res = d.drv.QueueSubmit(q.handle, infos, fenceHandle(fence))
	}
	if err := d.check(op, res); err != nil {
		return err
	}
	for _, s := range submits {
		for _, cb := range s.CommandBuffers {
			cb.UpdateSubmitted()
		}
	}
	return nil
}

// Present queues the images for presentation and returns one result per
// swapchain. An out-of-date swapchain is reported as core.ErrOutOfDate
// without engaging the failure policy; suboptimal counts as success.
func (q *VulkanQueue) Present(info PresentInfo) ([]vk.Result, error) {
	const op = "vkQueuePresentKHR"
	d := q.device
	if len(info.Swapchains) == 0 {
		return nil, d.precondition(op, "no swapchains given")
	}
	if len(info.Swapchains) != len(info.ImageIndices) {
		return nil, d.precondition(op, "%d swapchains but %d image indices", len(info.Swapchains), len(info.ImageIndices))
	}
	swapchains := make([]vk.Swapchain, len(info.Swapchains))
	for i, sc := range info.Swapchains {
		swapchains[i] = sc.handle
	}
	results := make([]vk.Result, len(swapchains))
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(info.WaitSemaphores)),
		PWaitSemaphores:    semaphoreHandles(info.WaitSemaphores),
		SwapchainCount:     uint32(len(swapchains)),
		PSwapchains:        swapchains,
		PImageIndices:      append([]uint32(nil), info.ImageIndices...),
		PResults:           results,
	}
	res := d.drv.QueuePresent(q.handle, &presentInfo)
	return results, d.surfaceStatus(op, res)
}

func (q *VulkanQueue) WaitIdle() error {
	return q.device.check("vkQueueWaitIdle", q.device.drv.QueueWaitIdle(q.handle))
}
