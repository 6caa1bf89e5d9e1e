package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanSemaphore struct {
	device   *VulkanDevice
	handle   vk.Semaphore
	id       trackID
	timeline bool
}

func (d *VulkanDevice) CreateSemaphore() (*VulkanSemaphore, error) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	handle, res := d.drv.CreateSemaphore(d.handle, &info)
	if err := d.check("vkCreateSemaphore", res); err != nil {
		return nil, err
	}
	s := &VulkanSemaphore{device: d, handle: handle}
	s.id = d.own(s)
	return s, nil
}

// CreateTimelineSemaphore creates a semaphore carrying a 64-bit counter that
// starts at initialValue.
func (d *VulkanDevice) CreateTimelineSemaphore(initialValue uint64) (*VulkanSemaphore, error) {
	handle, res := d.drv.CreateTimelineSemaphore(d.handle, initialValue)
	if err := d.check("vkCreateSemaphore", res); err != nil {
		return nil, err
	}
	s := &VulkanSemaphore{device: d, handle: handle, timeline: true}
	s.id = d.own(s)
	return s, nil
}

func (s *VulkanSemaphore) Handle() vk.Semaphore { return s.handle }

func (s *VulkanSemaphore) IsTimeline() bool { return s.timeline }

func (s *VulkanSemaphore) Destroy() {
	if s.handle == nil {
		return
	}
	s.device.drv.DestroySemaphore(s.device.handle, s.handle)
	s.device.disown(s.id)
	s.handle = nil
}

func (s *VulkanSemaphore) requireTimeline(op string, cap Capability) error {
	if !s.timeline {
		return s.device.precondition(op, "semaphore is not a timeline semaphore")
	}
	if !s.device.caps.Has(cap) {
		return s.device.precondition(op, "%s is not available on this device", cap)
	}
	return nil
}

// CounterValue reads the current timeline value.
func (s *VulkanSemaphore) CounterValue() (uint64, error) {
	const op = "vkGetSemaphoreCounterValue"
	if err := s.requireTimeline(op, CapGetSemaphoreCounterValue); err != nil {
		return 0, err
	}
	v, res := s.device.drv.GetSemaphoreCounterValue(s.device.caps.proc(CapGetSemaphoreCounterValue), s.device.handle, s.handle)
	if err := s.device.check(op, res); err != nil {
		return 0, err
	}
	return v, nil
}

// Signal sets the timeline to value from the host. The value must be greater
// than the current one.
func (s *VulkanSemaphore) Signal(value uint64) error {
	const op = "vkSignalSemaphore"
	if err := s.requireTimeline(op, CapSignalSemaphore); err != nil {
		return err
	}
	return s.device.check(op, s.device.drv.SignalSemaphore(s.device.caps.proc(CapSignalSemaphore), s.device.handle, s.handle, value))
}

// Wait blocks until the timeline reaches value. Running out of time returns
// core.ErrTimeout.
func (s *VulkanSemaphore) Wait(value, timeoutNs uint64) error {
	return s.device.WaitSemaphores([]*VulkanSemaphore{s}, []uint64{value}, timeoutNs)
}

// WaitSemaphores blocks until every timeline semaphore reaches its value.
func (d *VulkanDevice) WaitSemaphores(semaphores []*VulkanSemaphore, values []uint64, timeoutNs uint64) error {
	const op = "vkWaitSemaphores"
	if len(semaphores) == 0 {
		return d.precondition(op, "no semaphores given")
	}
	if len(semaphores) != len(values) {
		return d.precondition(op, "%d semaphores but %d values", len(semaphores), len(values))
	}
	for _, s := range semaphores {
		if err := s.requireTimeline(op, CapWaitSemaphores); err != nil {
			return err
		}
	}
	res := d.drv.WaitSemaphores(d.caps.proc(CapWaitSemaphores), d.handle, semaphoreHandles(semaphores), values, timeoutNs)
	return d.waited(op, res)
}

func semaphoreHandles(semaphores []*VulkanSemaphore) []vk.Semaphore {
	if len(semaphores) == 0 {
		return nil
	}
	out := make([]vk.Semaphore, len(semaphores))
	for i, s := range semaphores {
		out[i] = s.handle
	}
	return out
}

func semaphoreHandle(s *VulkanSemaphore) vk.Semaphore {
	if s == nil {
		return nil
	}
	return s.handle
}
