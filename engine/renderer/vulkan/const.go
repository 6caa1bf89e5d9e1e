package vulkan

import vk "github.com/goki/vulkan"

// DefaultAcquireTimeout bounds a swapchain acquire, in nanoseconds.
const DefaultAcquireTimeout uint64 = 1_000_000_000

// VulkanAPIVersion is requested when InstanceConfig leaves it unset.
var VulkanAPIVersion = vk.MakeVersion(1, 2, 0)
