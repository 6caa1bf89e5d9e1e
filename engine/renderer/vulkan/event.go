package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanEvent struct {
	device *VulkanDevice
	handle vk.Event
	id     trackID
}

func (d *VulkanDevice) CreateEvent() (*VulkanEvent, error) {
	info := vk.EventCreateInfo{
		SType: vk.StructureTypeEventCreateInfo,
	}
	handle, res := d.drv.CreateEvent(d.handle, &info)
	if err := d.check("vkCreateEvent", res); err != nil {
		return nil, err
	}
	e := &VulkanEvent{device: d, handle: handle}
	e.id = d.own(e)
	return e, nil
}

func (e *VulkanEvent) Handle() vk.Event { return e.handle }

func (e *VulkanEvent) Destroy() {
	if e.handle == nil {
		return
	}
	e.device.drv.DestroyEvent(e.device.handle, e.handle)
	e.device.disown(e.id)
	e.handle = nil
}

// Status reports whether the event is set.
func (e *VulkanEvent) Status() (bool, error) {
	res := e.device.drv.GetEventStatus(e.device.handle, e.handle)
	switch res {
	case vk.EventSet:
		return true, nil
	case vk.EventReset:
		return false, nil
	}
	return false, e.device.check("vkGetEventStatus", res)
}

func (e *VulkanEvent) Set() error {
	return e.device.check("vkSetEvent", e.device.drv.SetEvent(e.device.handle, e.handle))
}

func (e *VulkanEvent) Reset() error {
	return e.device.check("vkResetEvent", e.device.drv.ResetEvent(e.device.handle, e.handle))
}

func eventHandles(events []*VulkanEvent) []vk.Event {
	out := make([]vk.Event, len(events))
	for i, e := range events {
		out[i] = e.handle
	}
	return out
}
