//go:build !(linux || darwin || freebsd)

package driver

import (
	vk "github.com/goki/vulkan"
)

// Extension entry points are resolved through dlopen, which this platform
// build does not provide. Every capability lookup reports missing.

func (*Vulkan) DeviceProcAddr(device vk.Device, name string) ProcAddr { return nil }

func (*Vulkan) CreateTimelineSemaphore(device vk.Device, initial uint64) (vk.Semaphore, vk.Result) {
	return nil, vk.ErrorFeatureNotPresent
}

func (v *Vulkan) QueueSubmitTimeline(queue vk.Queue, submits []vk.SubmitInfo, waitValues, signalValues [][]uint64, fence vk.Fence) vk.Result {
	for i := range submits {
		if (i < len(waitValues) && len(waitValues[i]) > 0) || (i < len(signalValues) && len(signalValues[i]) > 0) {
			return vk.ErrorFeatureNotPresent
		}
	}
	return v.QueueSubmit(queue, submits, fence)
}

func (*Vulkan) GetSemaphoreCounterValue(proc ProcAddr, device vk.Device, semaphore vk.Semaphore) (uint64, vk.Result) {
	return 0, vk.ErrorFeatureNotPresent
}

func (*Vulkan) SignalSemaphore(proc ProcAddr, device vk.Device, semaphore vk.Semaphore, value uint64) vk.Result {
	return vk.ErrorFeatureNotPresent
}

func (*Vulkan) WaitSemaphores(proc ProcAddr, device vk.Device, semaphores []vk.Semaphore, values []uint64, timeout uint64) vk.Result {
	return vk.ErrorFeatureNotPresent
}

func (*Vulkan) CmdDispatchBase(proc ProcAddr, cb vk.CommandBuffer, baseX, baseY, baseZ, x, y, z uint32) {
}

func (*Vulkan) CmdSetDeviceMask(proc ProcAddr, cb vk.CommandBuffer, mask uint32) {}

func (*Vulkan) CmdDrawIndirectCount(proc ProcAddr, cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32) {
}

func (*Vulkan) CmdDrawIndexedIndirectCount(proc ProcAddr, cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32) {
}
