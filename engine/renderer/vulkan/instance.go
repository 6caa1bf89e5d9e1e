package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
)

type InstanceConfig struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	// APIVersion defaults to 1.2 when zero.
	APIVersion uint32
	Layers     []string
	Extensions []string
	Policy     FailurePolicy
}

type LayerInfo struct {
	Name                  string
	Description           string
	SpecVersion           uint32
	ImplementationVersion uint32
}

type ExtensionInfo struct {
	Name        string
	SpecVersion uint32
}

// VulkanInstance is the root of the ownership tree. Its failure policy is
// inherited by everything created from it.
type VulkanInstance struct {
	failer
	drv      driver.Driver
	handle   vk.Instance
	children *core.Registry

	Layers     []string
	Extensions []string
}

// InstanceLayers lists the layers the loader can enable.
func InstanceLayers(drv driver.Driver) ([]LayerInfo, error) {
	props, res := enumerate(func(count *uint32, out []vk.LayerProperties) vk.Result {
		return drv.EnumerateInstanceLayerProperties(count, out)
	})
	if !VulkanResultIsSuccess(res) {
		return nil, &ResultError{Op: "vkEnumerateInstanceLayerProperties", Result: res}
	}
	layers := make([]LayerInfo, len(props))
	for i, p := range props {
		layers[i] = LayerInfo{
			Name:                  cString(p.LayerName[:]),
			Description:           cString(p.Description[:]),
			SpecVersion:           p.SpecVersion,
			ImplementationVersion: p.ImplementationVersion,
		}
	}
	return layers, nil
}

// InstanceExtensions lists the instance extensions the loader exposes.
func InstanceExtensions(drv driver.Driver) ([]ExtensionInfo, error) {
	props, res := enumerate(func(count *uint32, out []vk.ExtensionProperties) vk.Result {
		return drv.EnumerateInstanceExtensionProperties("", count, out)
	})
	if !VulkanResultIsSuccess(res) {
		return nil, &ResultError{Op: "vkEnumerateInstanceExtensionProperties", Result: res}
	}
	return extensionInfos(props), nil
}

func extensionInfos(props []vk.ExtensionProperties) []ExtensionInfo {
	out := make([]ExtensionInfo, len(props))
	for i, p := range props {
		out[i] = ExtensionInfo{Name: cString(p.ExtensionName[:]), SpecVersion: p.SpecVersion}
	}
	return out
}

func CreateInstance(drv driver.Driver, config InstanceConfig) (*VulkanInstance, error) {
	f := failer{policy: config.Policy}

	if len(config.Layers) > 0 {
		available, err := InstanceLayers(drv)
		if err != nil {
			return nil, f.fail(err)
		}
		names := make([]string, len(available))
		for i, l := range available {
			names[i] = l.Name
		}
		for _, want := range config.Layers {
			if !slices.Contains(names, want) {
				return nil, f.precondition("vkCreateInstance", "layer %q is not available", want)
			}
			core.LogDebug("Found validation layer: %s", want)
		}
	}

	apiVersion := config.APIVersion
	if apiVersion == 0 {
		apiVersion = VulkanAPIVersion
	}
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		ApplicationVersion: config.ApplicationVersion,
		PEngineName:        VulkanSafeString(config.EngineName),
		EngineVersion:      vk.MakeVersion(0, 1, 0),
		ApiVersion:         apiVersion,
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledLayerCount:       uint32(len(config.Layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(config.Layers),
		EnabledExtensionCount:   uint32(len(config.Extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(config.Extensions),
	}

	handle, res := drv.CreateInstance(&createInfo)
	if err := f.check("vkCreateInstance", res); err != nil {
		return nil, err
	}
	core.LogInfo("Vulkan instance created (%s driver).", drv.Name())

	return &VulkanInstance{
		failer:     f,
		drv:        drv,
		handle:     handle,
		children:   core.NewRegistry(),
		Layers:     slices.Clone(config.Layers),
		Extensions: slices.Clone(config.Extensions),
	}, nil
}

func (vi *VulkanInstance) Handle() vk.Instance { return vi.handle }

func (vi *VulkanInstance) Driver() driver.Driver { return vi.drv }

func (vi *VulkanInstance) Policy() FailurePolicy { return vi.policy }

// Destroy releases the instance. Devices and surfaces must be destroyed
// first; any still alive are reported.
func (vi *VulkanInstance) Destroy() {
	if vi.handle == nil {
		return
	}
	if live := vi.children.Summary(); len(live) > 0 {
		core.LogWarn("Destroying instance with live children: %v", live)
	}
	vi.drv.DestroyInstance(vi.handle)
	vi.handle = nil
	core.LogInfo("Vulkan instance destroyed.")
}

// PhysicalDevices enumerates the devices visible to the instance.
func (vi *VulkanInstance) PhysicalDevices() ([]*VulkanPhysicalDevice, error) {
	handles, res := enumerate(func(count *uint32, out []vk.PhysicalDevice) vk.Result {
		return vi.drv.EnumeratePhysicalDevices(vi.handle, count, out)
	})
	if err := vi.check("vkEnumeratePhysicalDevices", res); err != nil {
		return nil, err
	}
	out := make([]*VulkanPhysicalDevice, len(handles))
	for i, h := range handles {
		out[i] = &VulkanPhysicalDevice{instance: vi, handle: h}
	}
	return out, nil
}

// SurfaceSource creates a platform surface for an instance. *glfw.Window
// satisfies it, as does the software driver's virtual window.
type SurfaceSource interface {
	CreateWindowSurface(instance interface{}, allocator unsafe.Pointer) (uintptr, error)
}

type VulkanSurface struct {
	instance *VulkanInstance
	handle   vk.Surface
	id       trackID
}

func (vi *VulkanInstance) CreateSurface(source SurfaceSource) (*VulkanSurface, error) {
	ptr, err := source.CreateWindowSurface(vi.handle, nil)
	if err != nil {
		return nil, vi.fail(fmt.Errorf("vkCreateSurfaceKHR: %w: %v", core.ErrInitializationFailed, err))
	}
	s := &VulkanSurface{instance: vi, handle: vi.drv.SurfaceFromHandle(ptr)}
	s.id = track(vi.children, s)
	return s, nil
}

func (s *VulkanSurface) Handle() vk.Surface { return s.handle }

func (s *VulkanSurface) Instance() *VulkanInstance { return s.instance }

func (s *VulkanSurface) Destroy() {
	if s.handle == nil {
		return
	}
	s.instance.drv.DestroySurface(s.instance.handle, s.handle)
	untrack(s.instance.children, s.id)
	s.handle = nil
}
