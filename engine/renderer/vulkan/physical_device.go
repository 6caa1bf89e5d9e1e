package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
)

// VulkanPhysicalDevice is a non-owning view of an adapter. It lives as long
// as its instance and has nothing to destroy.
type VulkanPhysicalDevice struct {
	instance *VulkanInstance
	handle   vk.PhysicalDevice
}

type PhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	Compute              bool
	Transfer             bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	DiscreteGPU          bool
}

type QueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
	ComputeFamilyIndex  int32
	TransferFamilyIndex int32
}

type SwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func (pd *VulkanPhysicalDevice) Handle() vk.PhysicalDevice { return pd.handle }

func (pd *VulkanPhysicalDevice) Instance() *VulkanInstance { return pd.instance }

func (pd *VulkanPhysicalDevice) Properties() vk.PhysicalDeviceProperties {
	return pd.instance.drv.GetPhysicalDeviceProperties(pd.handle)
}

func (pd *VulkanPhysicalDevice) Name() string {
	props := pd.Properties()
	return cString(props.DeviceName[:])
}

func (pd *VulkanPhysicalDevice) Features() vk.PhysicalDeviceFeatures {
	return pd.instance.drv.GetPhysicalDeviceFeatures(pd.handle)
}

func (pd *VulkanPhysicalDevice) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return pd.instance.drv.GetPhysicalDeviceMemoryProperties(pd.handle)
}

func (pd *VulkanPhysicalDevice) QueueFamilies() []vk.QueueFamilyProperties {
	families, _ := enumerate(func(count *uint32, out []vk.QueueFamilyProperties) vk.Result {
		pd.instance.drv.GetPhysicalDeviceQueueFamilyProperties(pd.handle, count, out)
		return vk.Success
	})
	return families
}

func (pd *VulkanPhysicalDevice) FormatProperties(format vk.Format) vk.FormatProperties {
	return pd.instance.drv.GetPhysicalDeviceFormatProperties(pd.handle, format)
}

func (pd *VulkanPhysicalDevice) Extensions() ([]ExtensionInfo, error) {
	props, res := enumerate(func(count *uint32, out []vk.ExtensionProperties) vk.Result {
		return pd.instance.drv.EnumerateDeviceExtensionProperties(pd.handle, "", count, out)
	})
	if err := pd.instance.check("vkEnumerateDeviceExtensionProperties", res); err != nil {
		return nil, err
	}
	return extensionInfos(props), nil
}

func (pd *VulkanPhysicalDevice) SurfaceSupport(family uint32, surface *VulkanSurface) (bool, error) {
	ok, res := pd.instance.drv.GetPhysicalDeviceSurfaceSupport(pd.handle, family, surface.handle)
	if err := pd.instance.check("vkGetPhysicalDeviceSurfaceSupportKHR", res); err != nil {
		return false, err
	}
	return ok, nil
}

func (pd *VulkanPhysicalDevice) SurfaceCapabilities(surface *VulkanSurface) (vk.SurfaceCapabilities, error) {
	caps, res := pd.instance.drv.GetPhysicalDeviceSurfaceCapabilities(pd.handle, surface.handle)
	if err := pd.instance.check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res); err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	return caps, nil
}

func (pd *VulkanPhysicalDevice) SurfaceFormats(surface *VulkanSurface) ([]vk.SurfaceFormat, error) {
	formats, res := enumerate(func(count *uint32, out []vk.SurfaceFormat) vk.Result {
		return pd.instance.drv.GetPhysicalDeviceSurfaceFormats(pd.handle, surface.handle, count, out)
	})
	if err := pd.instance.check("vkGetPhysicalDeviceSurfaceFormatsKHR", res); err != nil {
		return nil, err
	}
	return formats, nil
}

func (pd *VulkanPhysicalDevice) SurfacePresentModes(surface *VulkanSurface) ([]vk.PresentMode, error) {
	modes, res := enumerate(func(count *uint32, out []vk.PresentMode) vk.Result {
		return pd.instance.drv.GetPhysicalDeviceSurfacePresentModes(pd.handle, surface.handle, count, out)
	})
	if err := pd.instance.check("vkGetPhysicalDeviceSurfacePresentModesKHR", res); err != nil {
		return nil, err
	}
	return modes, nil
}

// SwapchainSupport gathers the surface capabilities, formats and present
// modes in one call.
func (pd *VulkanPhysicalDevice) SwapchainSupport(surface *VulkanSurface) (SwapchainSupportInfo, error) {
	var info SwapchainSupportInfo
	var err error
	if info.Capabilities, err = pd.SurfaceCapabilities(surface); err != nil {
		return info, err
	}
	if info.Formats, err = pd.SurfaceFormats(surface); err != nil {
		return info, err
	}
	if info.PresentModes, err = pd.SurfacePresentModes(surface); err != nil {
		return info, err
	}
	return info, nil
}

// FindMemoryType returns the first memory type allowed by typeFilter that has
// every bit of propertyFlags.
func (pd *VulkanPhysicalDevice) FindMemoryType(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, bool) {
	memoryProperties := pd.MemoryProperties()
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<i) != 0 && memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, true
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, false
}

// DetectDepthFormat picks the first depth format usable as a depth-stencil
// attachment.
func (pd *VulkanPhysicalDevice) DetectDepthFormat() (vk.Format, bool) {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		properties := pd.FormatProperties(candidate)
		if properties.LinearTilingFeatures&flags == flags || properties.OptimalTilingFeatures&flags == flags {
			return candidate, true
		}
	}
	return vk.FormatUndefined, false
}

// MeetsRequirements evaluates the device against req and picks the queue
// families to use. A nil surface skips the present checks.
func (pd *VulkanPhysicalDevice) MeetsRequirements(req PhysicalDeviceRequirements, surface *VulkanSurface) (QueueFamilyInfo, bool) {
	queueInfo := QueueFamilyInfo{-1, -1, -1, -1}
	properties := pd.Properties()
	name := cString(properties.DeviceName[:])

	if req.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return queueInfo, false
	}
	if req.SamplerAnisotropy && pd.Features().SamplerAnisotropy != vk.True {
		core.LogInfo("Device '%s' does not support samplerAnisotropy. Skipping.", name)
		return queueInfo, false
	}

	minTransferScore := 255
	for i, family := range pd.QueueFamilies() {
		currentTransferScore := 0
		if family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			if queueInfo.GraphicsFamilyIndex < 0 {
				queueInfo.GraphicsFamilyIndex = int32(i)
			}
			currentTransferScore++
		}
		if family.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			if queueInfo.ComputeFamilyIndex < 0 {
				queueInfo.ComputeFamilyIndex = int32(i)
			}
			currentTransferScore++
		}
		// Take the index if it is the current lowest. This increases the
		// likelihood that it is a dedicated transfer queue.
		if family.QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0 && currentTransferScore <= minTransferScore {
			minTransferScore = currentTransferScore
			queueInfo.TransferFamilyIndex = int32(i)
		}
		if surface != nil && queueInfo.PresentFamilyIndex < 0 {
			if ok, err := pd.SurfaceSupport(uint32(i), surface); err == nil && ok {
				queueInfo.PresentFamilyIndex = int32(i)
			}
		}
	}

	core.LogDebug("Graphics | Present | Compute | Transfer | Name")
	core.LogDebug("%8d | %7d | %7d | %8d | %s",
		queueInfo.GraphicsFamilyIndex, queueInfo.PresentFamilyIndex,
		queueInfo.ComputeFamilyIndex, queueInfo.TransferFamilyIndex, name)

	if (req.Graphics && queueInfo.GraphicsFamilyIndex < 0) ||
		(req.Present && surface != nil && queueInfo.PresentFamilyIndex < 0) ||
		(req.Compute && queueInfo.ComputeFamilyIndex < 0) ||
		(req.Transfer && queueInfo.TransferFamilyIndex < 0) {
		return queueInfo, false
	}

	if len(req.DeviceExtensionNames) > 0 {
		available, err := pd.Extensions()
		if err != nil {
			return queueInfo, false
		}
		for _, want := range req.DeviceExtensionNames {
			found := false
			for _, ext := range available {
				if ext.Name == want {
					found = true
					break
				}
			}
			if !found {
				core.LogInfo("Required extension not found: '%s', skipping device.", want)
				return queueInfo, false
			}
		}
	}

	if surface != nil && req.Present {
		support, err := pd.SwapchainSupport(surface)
		if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
			core.LogInfo("Required swapchain support not present, skipping device.")
			return queueInfo, false
		}
	}
	return queueInfo, true
}

// SelectPhysicalDevice returns the first device meeting req.
func (vi *VulkanInstance) SelectPhysicalDevice(req PhysicalDeviceRequirements, surface *VulkanSurface) (*VulkanPhysicalDevice, QueueFamilyInfo, error) {
	devices, err := vi.PhysicalDevices()
	if err != nil {
		return nil, QueueFamilyInfo{}, err
	}
	for _, pd := range devices {
		queueInfo, ok := pd.MeetsRequirements(req, surface)
		if !ok {
			continue
		}
		properties := pd.Properties()
		core.LogInfo("Selected device: '%s'.", cString(properties.DeviceName[:]))
		core.LogInfo("GPU type is %s.", deviceTypeName(properties.DeviceType))
		core.LogInfo("Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch())
		return pd, queueInfo, nil
	}
	return nil, QueueFamilyInfo{}, vi.precondition("SelectPhysicalDevice", "no physical device meets the requirements")
}

// TypeName describes the device type, for example "Discrete".
func (pd *VulkanPhysicalDevice) TypeName() string {
	return deviceTypeName(pd.Properties().DeviceType)
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	}
	return "Unknown"
}
