package soft

import (
	vk "github.com/goki/vulkan"
)

// QueueFamily describes one queue family of the virtual device.
type QueueFamily struct {
	Flags   vk.QueueFlags
	Count   uint32
	Present bool
}

// Config describes the virtual physical device and what it exposes.
type Config struct {
	DeviceName         string
	APIVersion         uint32
	Layers             []string
	InstanceExtensions []string
	DeviceExtensions   []string
	// DeviceProcs are the extension entry points DeviceProcAddr resolves.
	DeviceProcs   []string
	QueueFamilies []QueueFamily
	HeapSize      vk.DeviceSize

	SurfaceFormats []vk.SurfaceFormat
	PresentModes   []vk.PresentMode
	MinImageCount  uint32
	MaxImageCount  uint32
}

// Core 1.2 names of the extension entry points the wrapper layer looks up.
var CoreDeviceProcs = []string{
	"vkCmdDrawIndirectCount",
	"vkCmdDrawIndexedIndirectCount",
	"vkGetSemaphoreCounterValue",
	"vkSignalSemaphore",
	"vkWaitSemaphores",
	"vkCmdDispatchBase",
	"vkCmdSetDeviceMask",
}

// DefaultConfig returns a 1.2 device with a graphics+compute+present family
// and a transfer-only family.
func DefaultConfig() Config {
	return Config{
		DeviceName:         "vkbind software device",
		APIVersion:         vk.MakeVersion(1, 2, 0),
		Layers:             []string{"VK_LAYER_KHRONOS_validation"},
		InstanceExtensions: []string{"VK_KHR_surface", "VK_EXT_debug_utils"},
		DeviceExtensions:   []string{"VK_KHR_swapchain", "VK_KHR_timeline_semaphore"},
		DeviceProcs:        CoreDeviceProcs,
		QueueFamilies: []QueueFamily{
			{Flags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit), Count: 2, Present: true},
			{Flags: vk.QueueFlags(vk.QueueTransferBit), Count: 1},
		},
		HeapSize: 256 << 20,
		SurfaceFormats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes:  []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeImmediate},
		MinImageCount: 2,
		MaxImageCount: 8,
	}
}
