package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
)

type VulkanFence struct {
	device *VulkanDevice
	handle vk.Fence
	id     trackID
}

// CreateFence creates a fence. Frame loops create theirs signaled so the
// first wait returns at once.
func (d *VulkanDevice) CreateFence(createSignaled bool) (*VulkanFence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	handle, res := d.drv.CreateFence(d.handle, &fenceCreateInfo)
	if err := d.check("vkCreateFence", res); err != nil {
		return nil, err
	}
	f := &VulkanFence{device: d, handle: handle}
	f.id = d.own(f)
	return f, nil
}

func (vf *VulkanFence) Handle() vk.Fence { return vf.handle }

func (vf *VulkanFence) Destroy() {
	if vf.handle == nil {
		return
	}
	vf.device.drv.DestroyFence(vf.device.handle, vf.handle)
	vf.device.disown(vf.id)
	vf.handle = nil
}

// Wait blocks until the fence is signaled or timeoutNs elapses, in which
// case core.ErrTimeout is returned.
func (vf *VulkanFence) Wait(timeoutNs uint64) error {
	res := vf.device.drv.WaitForFences(vf.device.handle, []vk.Fence{vf.handle}, true, timeoutNs)
	if res == vk.Timeout {
		core.LogDebug("vk_fence_wait - Timed out")
	}
	return vf.device.waited("vkWaitForFences", res)
}

func (vf *VulkanFence) Reset() error {
	return vf.device.check("vkResetFences", vf.device.drv.ResetFences(vf.device.handle, []vk.Fence{vf.handle}))
}

// Status polls the fence without blocking and reports whether it is
// signaled.
func (vf *VulkanFence) Status() (bool, error) {
	res := vf.device.drv.GetFenceStatus(vf.device.handle, vf.handle)
	if res == vk.NotReady {
		return false, nil
	}
	if err := vf.device.check("vkGetFenceStatus", res); err != nil {
		return false, err
	}
	return true, nil
}

func fenceHandles(fences []*VulkanFence) []vk.Fence {
	out := make([]vk.Fence, len(fences))
	for i, f := range fences {
		out[i] = f.handle
	}
	return out
}

// fenceHandle maps an optional fence to its handle.
func fenceHandle(f *VulkanFence) vk.Fence {
	if f == nil {
		return nil
	}
	return f.handle
}
