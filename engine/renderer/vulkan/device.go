package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
)

// WaitForever is the timeout that never expires.
const WaitForever uint64 = math.MaxUint64

type QueueRequest struct {
	Family uint32
	// Count defaults to 1.
	Count uint32
	// Priorities default to 1.0 for every queue.
	Priorities []float32
}

type DeviceConfig struct {
	Queues     []QueueRequest
	Extensions []string
	// Layers are deprecated on devices and passed through verbatim.
	Layers   []string
	Features *vk.PhysicalDeviceFeatures
}

type VulkanDevice struct {
	failer
	physical *VulkanPhysicalDevice
	drv      driver.Driver
	handle   vk.Device
	id       trackID
	children *core.Registry
	caps     Capabilities
	queues   map[[2]uint32]*VulkanQueue

	Extensions []string
}

func (pd *VulkanPhysicalDevice) CreateDevice(config DeviceConfig) (*VulkanDevice, error) {
	vi := pd.instance
	if len(config.Queues) == 0 {
		return nil, vi.precondition("vkCreateDevice", "at least one queue must be requested")
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(config.Queues))
	for i, q := range config.Queues {
		count := q.Count
		if count == 0 {
			count = 1
		}
		priorities := make([]float32, count)
		for j := range priorities {
			priorities[j] = 1.0
		}
		if len(q.Priorities) > 0 {
			if len(q.Priorities) != int(count) {
				return nil, vi.precondition("vkCreateDevice", "family %d: %d priorities for %d queues", q.Family, len(q.Priorities), count)
			}
			copy(priorities, q.Priorities)
		}
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: q.Family,
			QueueCount:       count,
			PQueuePriorities: priorities,
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(config.Extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(config.Extensions),
		EnabledLayerCount:       uint32(len(config.Layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(config.Layers),
	}
	if config.Features != nil {
		deviceCreateInfo.PEnabledFeatures = []vk.PhysicalDeviceFeatures{*config.Features}
	}

	handle, res := vi.drv.CreateDevice(pd.handle, &deviceCreateInfo)
	if err := vi.check("vkCreateDevice", res); err != nil {
		return nil, err
	}
	core.LogInfo("Logical device created.")

	d := &VulkanDevice{
		failer:     vi.failer,
		physical:   pd,
		drv:        vi.drv,
		handle:     handle,
		children:   core.NewRegistry(),
		caps:       resolveCapabilities(vi.drv, handle),
		queues:     make(map[[2]uint32]*VulkanQueue),
		Extensions: slices.Clone(config.Extensions),
	}
	for c := Capability(0); c < capabilityCount; c++ {
		if name := d.caps.Resolved(c); name != "" {
			core.LogDebug("Capability %s resolved as %s.", c, name)
		}
	}
	for _, q := range queueCreateInfos {
		for i := uint32(0); i < q.QueueCount; i++ {
			qh := vi.drv.GetDeviceQueue(handle, q.QueueFamilyIndex, i)
			d.queues[[2]uint32{q.QueueFamilyIndex, i}] = &VulkanQueue{device: d, handle: qh, Family: q.QueueFamilyIndex, Index: i}
		}
	}
	core.LogInfo("Queues obtained.")
	d.id = track(vi.children, d)
	return d, nil
}

func (d *VulkanDevice) Handle() vk.Device { return d.handle }

func (d *VulkanDevice) PhysicalDevice() *VulkanPhysicalDevice { return d.physical }

func (d *VulkanDevice) Instance() *VulkanInstance { return d.physical.instance }

func (d *VulkanDevice) Capabilities() Capabilities { return d.caps }

// LiveChildren summarises the wrappers created from this device that have
// not been destroyed, by type.
func (d *VulkanDevice) LiveChildren() []string { return d.children.Summary() }

// Queue returns the queue requested at creation. Queues are owned by the
// device.
func (d *VulkanDevice) Queue(family, index uint32) (*VulkanQueue, error) {
	q, ok := d.queues[[2]uint32{family, index}]
	if !ok {
		return nil, d.precondition("vkGetDeviceQueue", "queue %d of family %d was not requested", index, family)
	}
	return q, nil
}

func (d *VulkanDevice) WaitIdle() error {
	return d.check("vkDeviceWaitIdle", d.drv.DeviceWaitIdle(d.handle))
}

// WaitForFences blocks until all (or, without waitAll, any) of the fences
// are signaled. Running out of time returns core.ErrTimeout.
func (d *VulkanDevice) WaitForFences(fences []*VulkanFence, waitAll bool, timeout uint64) error {
	if len(fences) == 0 {
		return d.precondition("vkWaitForFences", "no fences given")
	}
	res := d.drv.WaitForFences(d.handle, fenceHandles(fences), waitAll, timeout)
	return d.waited("vkWaitForFences", res)
}

func (d *VulkanDevice) ResetFences(fences ...*VulkanFence) error {
	if len(fences) == 0 {
		return d.precondition("vkResetFences", "no fences given")
	}
	return d.check("vkResetFences", d.drv.ResetFences(d.handle, fenceHandles(fences)))
}

// Destroy releases the logical device. Children must be destroyed first;
// any still alive are reported and left to the driver.
func (d *VulkanDevice) Destroy() {
	if d.handle == nil {
		return
	}
	if live := d.children.Summary(); len(live) > 0 {
		core.LogWarn("Destroying device with live children: %v", live)
	}
	core.LogInfo("Destroying logical device...")
	d.drv.DestroyDevice(d.handle)
	untrack(d.physical.instance.children, d.id)
	d.handle = nil
	d.queues = nil
}

// own registers a child wrapper with the device tracker.
func (d *VulkanDevice) own(child interface{}) trackID {
	return track(d.children, child)
}

func (d *VulkanDevice) disown(id trackID) {
	untrack(d.children, id)
}
