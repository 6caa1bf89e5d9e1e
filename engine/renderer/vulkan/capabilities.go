package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
)

// Capability is an entry point that may come from core Vulkan or from one
// of several extensions.
type Capability int

const (
	CapDrawIndirectCount Capability = iota
	CapDrawIndexedIndirectCount
	CapGetSemaphoreCounterValue
	CapSignalSemaphore
	CapWaitSemaphores
	CapDispatchBase
	CapSetDeviceMask
	capabilityCount
)

// Candidate names per capability, in lookup order.
var capabilityNames = [capabilityCount][]string{
	CapDrawIndirectCount:        {"vkCmdDrawIndirectCount", "vkCmdDrawIndirectCountKHR", "vkCmdDrawIndirectCountAMD"},
	CapDrawIndexedIndirectCount: {"vkCmdDrawIndexedIndirectCount", "vkCmdDrawIndexedIndirectCountKHR", "vkCmdDrawIndexedIndirectCountAMD"},
	CapGetSemaphoreCounterValue: {"vkGetSemaphoreCounterValue", "vkGetSemaphoreCounterValueKHR"},
	CapSignalSemaphore:          {"vkSignalSemaphore", "vkSignalSemaphoreKHR"},
	CapWaitSemaphores:           {"vkWaitSemaphores", "vkWaitSemaphoresKHR"},
	CapDispatchBase:             {"vkCmdDispatchBase", "vkCmdDispatchBaseKHR"},
	CapSetDeviceMask:            {"vkCmdSetDeviceMask", "vkCmdSetDeviceMaskKHR"},
}

func (c Capability) String() string {
	if c < 0 || c >= capabilityCount {
		return "unknown capability"
	}
	return capabilityNames[c][0]
}

// Capabilities is the table of optional entry points resolved once at
// device creation.
type Capabilities struct {
	procs [capabilityCount]driver.ProcAddr
	names [capabilityCount]string
}

func resolveCapabilities(drv driver.Driver, device vk.Device) Capabilities {
	var caps Capabilities
	for c, candidates := range capabilityNames {
		for _, name := range candidates {
			if p := drv.DeviceProcAddr(device, name); p != nil {
				caps.procs[c] = p
				caps.names[c] = name
				break
			}
		}
	}
	return caps
}

func (c Capabilities) Has(cap Capability) bool {
	return cap >= 0 && cap < capabilityCount && c.procs[cap] != nil
}

// Resolved returns the entry point name that satisfied cap, or "" when none
// did.
func (c Capabilities) Resolved(cap Capability) string {
	if cap < 0 || cap >= capabilityCount {
		return ""
	}
	return c.names[cap]
}

func (c Capabilities) proc(cap Capability) driver.ProcAddr {
	return c.procs[cap]
}
