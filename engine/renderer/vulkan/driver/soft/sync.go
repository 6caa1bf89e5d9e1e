package soft

import (
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
)

// Waits with a zero timeout never run queued work. Any other timeout runs
// work until the condition holds; when it cannot, a finite timeout returns
// Timeout and an infinite one is additionally recorded as a deadlock.
const infinite = math.MaxUint64

func (d *Driver) CreateFence(device vk.Device, info *vk.FenceCreateInfo) (vk.Fence, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := &fenceObj{signaled: info.Flags&vk.FenceCreateFlags(vk.FenceCreateSignaledBit) != 0}
	p, res := d.child(device, KindFence, f, "vkCreateFence")
	return vk.Fence(p), res
}

func (d *Driver) DestroyFence(device vk.Device, fence vk.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindFence, unsafe.Pointer(fence), "vkDestroyFence")
}

func (d *Driver) fences(fences []vk.Fence, op string) ([]*fenceObj, bool) {
	out := make([]*fenceObj, len(fences))
	for i, f := range fences {
		obj, ok := d.get(KindFence, unsafe.Pointer(f), op)
		if !ok {
			return nil, false
		}
		out[i] = obj.(*fenceObj)
	}
	return out, true
}

func (d *Driver) WaitForFences(device vk.Device, fences []vk.Fence, waitAll bool, timeout uint64) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkWaitForFences"
	_, dh, ok := d.device(device, op)
	if !ok {
		return vk.ErrorDeviceLost
	}
	fs, ok := d.fences(fences, op)
	if !ok {
		return vk.ErrorDeviceLost
	}
	done := func() bool {
		for _, f := range fs {
			if f.signaled && !waitAll {
				return true
			}
			if !f.signaled && waitAll {
				return false
			}
		}
		return waitAll
	}
	if done() {
		return vk.Success
	}
	if timeout == 0 {
		return vk.Timeout
	}
	if d.drainDevice(dh, done) {
		return vk.Success
	}
	if timeout == infinite {
		d.report("%s: waiting forever on fences that no pending submission signals", op)
	}
	return vk.Timeout
}

func (d *Driver) ResetFences(device vk.Device, fences []vk.Fence) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	fs, ok := d.fences(fences, "vkResetFences")
	if !ok {
		return vk.ErrorDeviceLost
	}
	for _, f := range fs {
		f.signaled = false
	}
	return vk.Success
}

func (d *Driver) GetFenceStatus(device vk.Device, fence vk.Fence) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindFence, unsafe.Pointer(fence), "vkGetFenceStatus")
	if !ok {
		return vk.ErrorDeviceLost
	}
	if obj.(*fenceObj).signaled {
		return vk.Success
	}
	return vk.NotReady
}

func (d *Driver) CreateSemaphore(device vk.Device, info *vk.SemaphoreCreateInfo) (vk.Semaphore, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, res := d.child(device, KindSemaphore, &semaphoreObj{}, "vkCreateSemaphore")
	return vk.Semaphore(p), res
}

func (d *Driver) CreateTimelineSemaphore(device vk.Device, initial uint64) (vk.Semaphore, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, _, ok := d.device(device, "vkCreateSemaphore")
	if !ok {
		return nil, vk.ErrorDeviceLost
	}
	if !d.timelineEnabled(dev) {
		d.report("vkCreateSemaphore: timeline semaphores need VK_KHR_timeline_semaphore or a 1.2 device")
		return nil, vk.ErrorFeatureNotPresent
	}
	p, res := d.child(device, KindSemaphore, &semaphoreObj{timeline: true, value: initial}, "vkCreateSemaphore")
	return vk.Semaphore(p), res
}

func (d *Driver) timelineEnabled(dev *deviceObj) bool {
	if d.cfg.APIVersion >= vk.MakeVersion(1, 2, 0) {
		return true
	}
	for _, e := range dev.extensions {
		if e == "VK_KHR_timeline_semaphore" {
			return true
		}
	}
	return false
}

func (d *Driver) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindSemaphore, unsafe.Pointer(semaphore), "vkDestroySemaphore")
}

func (d *Driver) timeline(proc driver.ProcAddr, semaphore vk.Semaphore, op string) (*semaphoreObj, vk.Result) {
	if proc == nil {
		d.report("%s: entry point was not resolved", op)
		return nil, vk.ErrorFeatureNotPresent
	}
	obj, ok := d.get(KindSemaphore, unsafe.Pointer(semaphore), op)
	if !ok {
		return nil, vk.ErrorDeviceLost
	}
	s := obj.(*semaphoreObj)
	if !s.timeline {
		d.report("%s: semaphore %#x is not a timeline semaphore", op, uint32(handleOf(unsafe.Pointer(semaphore))))
		return nil, vk.ErrorFeatureNotPresent
	}
	return s, vk.Success
}

func (d *Driver) GetSemaphoreCounterValue(proc driver.ProcAddr, device vk.Device, semaphore vk.Semaphore) (uint64, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, res := d.timeline(proc, semaphore, "vkGetSemaphoreCounterValue")
	if res != vk.Success {
		return 0, res
	}
	return s.value, vk.Success
}

func (d *Driver) SignalSemaphore(proc driver.ProcAddr, device vk.Device, semaphore vk.Semaphore, value uint64) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkSignalSemaphore"
	s, res := d.timeline(proc, semaphore, op)
	if res != vk.Success {
		return res
	}
	if value <= s.value {
		d.report("%s: value %d is not greater than current value %d", op, value, s.value)
		return vk.ErrorInitializationFailed
	}
	s.value = value
	return vk.Success
}

func (d *Driver) WaitSemaphores(proc driver.ProcAddr, device vk.Device, semaphores []vk.Semaphore, values []uint64, timeout uint64) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkWaitSemaphores"
	_, dh, ok := d.device(device, op)
	if !ok {
		return vk.ErrorDeviceLost
	}
	if len(semaphores) != len(values) {
		d.report("%s: %d semaphores but %d values", op, len(semaphores), len(values))
		return vk.ErrorInitializationFailed
	}
	waits := make([]semValue, len(semaphores))
	for i, sem := range semaphores {
		if _, res := d.timeline(proc, sem, op); res != vk.Success {
			return res
		}
		waits[i] = semValue{sem: handleOf(unsafe.Pointer(sem)), value: values[i]}
	}
	done := func() bool {
		for _, w := range waits {
			if !d.semaphoreReached(w) {
				return false
			}
		}
		return true
	}
	if done() {
		return vk.Success
	}
	if timeout == 0 {
		return vk.Timeout
	}
	if d.drainDevice(dh, done) {
		return vk.Success
	}
	if timeout == infinite {
		d.report("%s: waiting forever on values that no pending submission or host signal reaches", op)
	}
	return vk.Timeout
}

func (d *Driver) CreateEvent(device vk.Device, info *vk.EventCreateInfo) (vk.Event, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, res := d.child(device, KindEvent, &eventObj{}, "vkCreateEvent")
	return vk.Event(p), res
}

func (d *Driver) DestroyEvent(device vk.Device, event vk.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindEvent, unsafe.Pointer(event), "vkDestroyEvent")
}

func (d *Driver) event(event vk.Event, op string) *eventObj {
	obj, ok := d.get(KindEvent, unsafe.Pointer(event), op)
	if !ok {
		return nil
	}
	return obj.(*eventObj)
}

func (d *Driver) GetEventStatus(device vk.Device, event vk.Event) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.event(event, "vkGetEventStatus")
	switch {
	case e == nil:
		return vk.ErrorDeviceLost
	case e.set:
		return vk.EventSet
	default:
		return vk.EventReset
	}
}

func (d *Driver) SetEvent(device vk.Device, event vk.Event) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.event(event, "vkSetEvent")
	if e == nil {
		return vk.ErrorDeviceLost
	}
	e.set = true
	return vk.Success
}

func (d *Driver) ResetEvent(device vk.Device, event vk.Event) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.event(event, "vkResetEvent")
	if e == nil {
		return vk.ErrorDeviceLost
	}
	e.set = false
	return vk.Success
}
