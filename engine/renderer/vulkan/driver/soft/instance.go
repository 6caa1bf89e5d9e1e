package soft

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"
)

const (
	vendorID = 0x10005
	deviceID = 0x5f7
)

func (d *Driver) EnumerateInstanceLayerProperties(count *uint32, out []vk.LayerProperties) vk.Result {
	all := make([]vk.LayerProperties, len(d.cfg.Layers))
	for i, name := range d.cfg.Layers {
		copy(all[i].LayerName[:], name)
		all[i].SpecVersion = d.cfg.APIVersion
		all[i].ImplementationVersion = 1
	}
	return enumerate(all, count, out)
}

func (d *Driver) EnumerateInstanceExtensionProperties(layer string, count *uint32, out []vk.ExtensionProperties) vk.Result {
	return enumerate(extensionProps(d.cfg.InstanceExtensions), count, out)
}

func extensionProps(names []string) []vk.ExtensionProperties {
	all := make([]vk.ExtensionProperties, len(names))
	for i, name := range names {
		copy(all[i].ExtensionName[:], name)
		all[i].SpecVersion = 1
	}
	return all
}

func (d *Driver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result) {
	layers := cstrs(info.PpEnabledLayerNames)
	exts := cstrs(info.PpEnabledExtensionNames)
	for _, l := range layers {
		if !slices.Contains(d.cfg.Layers, l) {
			return nil, vk.ErrorLayerNotPresent
		}
	}
	for _, e := range exts {
		if !slices.Contains(d.cfg.InstanceExtensions, e) {
			return nil, vk.ErrorExtensionNotPresent
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	inst := &instanceObj{layers: layers, extensions: exts}
	h, res := d.create(KindInstance, 0, inst)
	if res != vk.Success {
		return nil, res
	}
	inst.physical, res = d.create(KindPhysicalDevice, h, &physicalDeviceObj{})
	if res != vk.Success {
		d.arenas[KindInstance].release(h)
		return nil, res
	}
	return vk.Instance(h.ptr()), vk.Success
}

func (d *Driver) DestroyInstance(instance vk.Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := handleOf(unsafe.Pointer(instance))
	if h == 0 {
		return
	}
	if _, ok := d.get(KindInstance, h.ptr(), "vkDestroyInstance"); !ok {
		return
	}
	var live []string
	for _, child := range d.children(h) {
		if child != "PhysicalDevice x1" {
			live = append(live, child)
		}
	}
	if len(live) > 0 {
		d.report("vkDestroyInstance: instance destroyed with live children %v", live)
	}
	d.releaseOwned(h)
	d.arenas[KindInstance].release(h)
}

func (d *Driver) EnumeratePhysicalDevices(instance vk.Instance, count *uint32, out []vk.PhysicalDevice) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindInstance, unsafe.Pointer(instance), "vkEnumeratePhysicalDevices")
	if !ok {
		return vk.ErrorInitializationFailed
	}
	inst := obj.(*instanceObj)
	return enumerate([]vk.PhysicalDevice{vk.PhysicalDevice(inst.physical.ptr())}, count, out)
}

func (d *Driver) SurfaceFromHandle(h uintptr) vk.Surface {
	return vk.Surface(unsafe.Pointer(h))
}

func (d *Driver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindSurface, unsafe.Pointer(surface), "vkDestroySurfaceKHR")
}

func (d *Driver) physical(pd vk.PhysicalDevice, op string) bool {
	_, ok := d.get(KindPhysicalDevice, unsafe.Pointer(pd), op)
	return ok
}

func (d *Driver) GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	var props vk.PhysicalDeviceProperties
	if !d.physical(pd, "vkGetPhysicalDeviceProperties") {
		return props
	}
	props.ApiVersion = d.cfg.APIVersion
	props.DriverVersion = vk.MakeVersion(1, 0, 0)
	props.VendorID = vendorID
	props.DeviceID = deviceID
	props.DeviceType = vk.PhysicalDeviceTypeCpu
	copy(props.DeviceName[:], d.cfg.DeviceName)
	copy(props.PipelineCacheUUID[:], "vkbind-soft-0001")
	props.Limits.MaxImageDimension2D = 16384
	props.Limits.MaxBoundDescriptorSets = 8
	props.Limits.MaxPushConstantsSize = 128
	props.Limits.MinUniformBufferOffsetAlignment = 256
	props.Limits.NonCoherentAtomSize = 64
	props.Limits.TimestampPeriod = 1
	return props
}

func (d *Driver) GetPhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	d.mu.Lock()
	defer d.mu.Unlock()
	var f vk.PhysicalDeviceFeatures
	if !d.physical(pd, "vkGetPhysicalDeviceFeatures") {
		return f
	}
	f.SamplerAnisotropy = vk.True
	f.FillModeNonSolid = vk.True
	f.MultiDrawIndirect = vk.True
	f.DepthBounds = vk.True
	f.WideLines = vk.True
	return f
}

// Memory types: 0 device-local, 1 host-visible coherent, 2 both.
func (d *Driver) GetPhysicalDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	var m vk.PhysicalDeviceMemoryProperties
	if !d.physical(pd, "vkGetPhysicalDeviceMemoryProperties") {
		return m
	}
	m.MemoryHeapCount = 1
	m.MemoryHeaps[0].Size = d.cfg.HeapSize
	m.MemoryHeaps[0].Flags = vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit)
	m.MemoryTypeCount = 3
	m.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	m.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	m.MemoryTypes[2].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	return m
}

func (d *Driver) GetPhysicalDeviceQueueFamilyProperties(pd vk.PhysicalDevice, count *uint32, out []vk.QueueFamilyProperties) {
	all := make([]vk.QueueFamilyProperties, len(d.cfg.QueueFamilies))
	for i, qf := range d.cfg.QueueFamilies {
		all[i].QueueFlags = qf.Flags
		all[i].QueueCount = qf.Count
		all[i].TimestampValidBits = 64
		all[i].MinImageTransferGranularity = vk.Extent3D{Width: 1, Height: 1, Depth: 1}
	}
	enumerate(all, count, out)
}

func (d *Driver) GetPhysicalDeviceFormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	var p vk.FormatProperties
	color := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit | vk.FormatFeatureColorAttachmentBit |
		vk.FormatFeatureBlitSrcBit | vk.FormatFeatureBlitDstBit | vk.FormatFeatureTransferSrcBit | vk.FormatFeatureTransferDstBit)
	depth := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit | vk.FormatFeatureSampledImageBit)
	switch format {
	case vk.FormatUndefined:
	case vk.FormatD16Unorm, vk.FormatD32Sfloat, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		p.OptimalTilingFeatures = depth
	default:
		p.OptimalTilingFeatures = color
		p.LinearTilingFeatures = color
		p.BufferFeatures = vk.FormatFeatureFlags(vk.FormatFeatureVertexBufferBit | vk.FormatFeatureUniformTexelBufferBit)
	}
	return p
}

func (d *Driver) EnumerateDeviceExtensionProperties(pd vk.PhysicalDevice, layer string, count *uint32, out []vk.ExtensionProperties) vk.Result {
	return enumerate(extensionProps(d.cfg.DeviceExtensions), count, out)
}

func (d *Driver) familyPresents(family uint32) bool {
	return int(family) < len(d.cfg.QueueFamilies) && d.cfg.QueueFamilies[family].Present
}

func (d *Driver) GetPhysicalDeviceSurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(KindSurface, unsafe.Pointer(surface), "vkGetPhysicalDeviceSurfaceSupportKHR"); !ok {
		return false, vk.ErrorSurfaceLost
	}
	return d.familyPresents(family), vk.Success
}

func (d *Driver) GetPhysicalDeviceSurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var caps vk.SurfaceCapabilities
	obj, ok := d.get(KindSurface, unsafe.Pointer(surface), "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
	if !ok {
		return caps, vk.ErrorSurfaceLost
	}
	w := obj.(*Window)
	extent := vk.Extent2D{Width: w.width, Height: w.height}
	caps.MinImageCount = d.cfg.MinImageCount
	caps.MaxImageCount = d.cfg.MaxImageCount
	caps.CurrentExtent = extent
	caps.MinImageExtent = vk.Extent2D{Width: 1, Height: 1}
	caps.MaxImageExtent = vk.Extent2D{Width: 16384, Height: 16384}
	caps.MaxImageArrayLayers = 1
	caps.SupportedTransforms = vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit)
	caps.CurrentTransform = vk.SurfaceTransformIdentityBit
	caps.SupportedCompositeAlpha = vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit)
	caps.SupportedUsageFlags = vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit | vk.ImageUsageTransferSrcBit)
	return caps, vk.Success
}

func (d *Driver) GetPhysicalDeviceSurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface, count *uint32, out []vk.SurfaceFormat) vk.Result {
	return enumerate(d.cfg.SurfaceFormats, count, out)
}

func (d *Driver) GetPhysicalDeviceSurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface, count *uint32, out []vk.PresentMode) vk.Result {
	return enumerate(d.cfg.PresentModes, count, out)
}
