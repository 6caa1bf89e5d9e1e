package vulkan

import (
	"fmt"
	"math"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	emath "github.com/spaghettifunk/vkbind/engine/math"
)

// AcquireStatus tells a usable acquire apart from one the caller may want
// to follow with a recreation.
type AcquireStatus int

const (
	AcquireOptimal AcquireStatus = iota
	AcquireSuboptimal
)

func (s AcquireStatus) String() string {
	if s == AcquireSuboptimal {
		return "suboptimal"
	}
	return "optimal"
}

var presentModes = map[string]vk.PresentMode{
	"immediate":    vk.PresentModeImmediate,
	"mailbox":      vk.PresentModeMailbox,
	"fifo":         vk.PresentModeFifo,
	"fifo_relaxed": vk.PresentModeFifoRelaxed,
}

// ParsePresentMode maps a configuration name to a present mode.
func ParsePresentMode(name string) (vk.PresentMode, error) {
	mode, ok := presentModes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown present mode %q", core.ErrInvalidConfig, name)
	}
	return mode, nil
}

type SwapchainConfig struct {
	Surface *VulkanSurface
	// Width and Height are used when the surface lets the swapchain pick its
	// extent. Either way the extent is clamped to the surface limits.
	Width  uint32
	Height uint32
	// ImageCount defaults to one above the surface minimum.
	ImageCount uint32
	// PresentModes in order of preference. FIFO is always available and is
	// the fallback.
	PresentModes []vk.PresentMode
	// Format defaults to B8G8R8A8 unorm with sRGB non-linear color space
	// when the surface offers it, else to the first surface format.
	Format *vk.SurfaceFormat
	// Two or more distinct families share the images concurrently.
	QueueFamilies []uint32
	Old           *VulkanSwapchain
}

type VulkanSwapchain struct {
	device  *VulkanDevice
	handle  vk.Swapchain
	id      trackID
	surface *VulkanSurface
	images  []*VulkanImage

	Format      vk.SurfaceFormat
	Extent      vk.Extent2D
	PresentMode vk.PresentMode
	Usage       vk.ImageUsageFlags
}

var preferredSurfaceFormat = vk.SurfaceFormat{
	Format:     vk.FormatB8g8r8a8Unorm,
	ColorSpace: vk.ColorSpaceSrgbNonlinear,
}

func chooseSurfaceFormat(available []vk.SurfaceFormat, requested *vk.SurfaceFormat) vk.SurfaceFormat {
	// A single undefined entry means the surface takes any format.
	if len(available) == 1 && available[0].Format == vk.FormatUndefined {
		if requested != nil && requested.Format != vk.FormatUndefined {
			return *requested
		}
		return preferredSurfaceFormat
	}
	want := preferredSurfaceFormat
	if requested != nil {
		want = *requested
	}
	for _, f := range available {
		if f.Format == want.Format && f.ColorSpace == want.ColorSpace {
			return f
		}
	}
	return available[0]
}

func choosePresentMode(available, preferred []vk.PresentMode) vk.PresentMode {
	for _, want := range preferred {
		for _, m := range available {
			if m == want {
				return m
			}
		}
	}
	return vk.PresentModeFifo
}

func swapchainExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	extent := vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != math.MaxUint32 {
		extent = caps.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	extent.Width = emath.Clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = emath.Clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	return extent
}

// swapchainImageCount clamps requested to the surface limits. A maximum of
// zero means no upper limit.
func swapchainImageCount(caps vk.SurfaceCapabilities, requested uint32) uint32 {
	count := requested
	if count == 0 {
		count = caps.MinImageCount + 1
	}
	count = emath.Max(count, caps.MinImageCount)
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func (d *VulkanDevice) CreateSwapchain(config SwapchainConfig) (*VulkanSwapchain, error) {
	const op = "vkCreateSwapchainKHR"
	if config.Surface == nil {
		return nil, d.precondition(op, "surface is required")
	}
	support, err := d.physical.SwapchainSupport(config.Surface)
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 {
		return nil, d.precondition(op, "surface reports no formats")
	}
	caps := support.Capabilities
	format := chooseSurfaceFormat(support.Formats, config.Format)
	presentMode := choosePresentMode(support.PresentModes, config.PresentModes)
	extent := swapchainExtent(caps, config.Width, config.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, d.precondition(op, "surface extent is %dx%d", extent.Width, extent.Height)
	}
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          config.Surface.handle,
		MinImageCount:    swapchainImageCount(caps, config.ImageCount),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       usage,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}
	// Setup the queue family indices
	if families := distinctFamilies(config.QueueFamilies); len(families) >= 2 {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = uint32(len(families))
		swapchainCreateInfo.PQueueFamilyIndices = families
	}
	if config.Old != nil {
		swapchainCreateInfo.OldSwapchain = config.Old.handle
	}

	handle, res := d.drv.CreateSwapchain(d.handle, &swapchainCreateInfo)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	sc := &VulkanSwapchain{
		device:      d,
		handle:      handle,
		surface:     config.Surface,
		Format:      format,
		Extent:      extent,
		PresentMode: presentMode,
		Usage:       usage,
	}
	images, res := enumerate(func(count *uint32, out []vk.Image) vk.Result {
		return d.drv.GetSwapchainImages(d.handle, handle, count, out)
	})
	if err := d.check("vkGetSwapchainImagesKHR", res); err != nil {
		d.drv.DestroySwapchain(d.handle, handle)
		return nil, err
	}
	for _, img := range images {
		sc.images = append(sc.images, &VulkanImage{
			device:         d,
			handle:         img,
			swapchainOwned: true,
			Format:         format.Format,
			Extent:         vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
			MipLevels:      1,
			ArrayLayers:    1,
			Usage:          usage,
		})
	}
	sc.id = d.own(sc)
	core.LogDebug("Swapchain created: %dx%d, %d images, present mode %d", extent.Width, extent.Height, len(sc.images), presentMode)
	return sc, nil
}

func distinctFamilies(families []uint32) []uint32 {
	var out []uint32
	seen := make(map[uint32]bool, len(families))
	for _, f := range families {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func (sc *VulkanSwapchain) Handle() vk.Swapchain { return sc.handle }

func (sc *VulkanSwapchain) Surface() *VulkanSurface { return sc.surface }

// Images returns the presentable images. They belong to the swapchain and
// are released with it.
func (sc *VulkanSwapchain) Images() []*VulkanImage { return sc.images }

func (sc *VulkanSwapchain) ImageCount() int { return len(sc.images) }

// Destroy releases the swapchain and invalidates its images. Views and
// framebuffers built on them must be destroyed first.
func (sc *VulkanSwapchain) Destroy() {
	if sc.handle == nil {
		return
	}
	sc.device.drv.DestroySwapchain(sc.device.handle, sc.handle)
	sc.device.disown(sc.id)
	for _, img := range sc.images {
		img.handle = nil
	}
	sc.images = nil
	sc.handle = nil
}

// AcquireNextImage returns the index of the next presentable image.
// Timeouts return core.ErrTimeout or core.ErrNotReady and an out-of-date
// swapchain returns core.ErrOutOfDate, none of which engage the failure
// policy.
func (sc *VulkanSwapchain) AcquireNextImage(timeoutNs uint64, semaphore *VulkanSemaphore, fence *VulkanFence) (uint32, AcquireStatus, error) {
	const op = "vkAcquireNextImageKHR"
	d := sc.device
	if semaphore == nil && fence == nil {
		return 0, AcquireOptimal, d.precondition(op, "a semaphore or a fence is required")
	}
	index, res := d.drv.AcquireNextImage(d.handle, sc.handle, timeoutNs, semaphoreHandle(semaphore), fenceHandle(fence))
	switch res {
	case vk.Success:
		return index, AcquireOptimal, nil
	case vk.Suboptimal:
		return index, AcquireSuboptimal, nil
	case vk.Timeout, vk.NotReady:
		return 0, AcquireOptimal, d.waited(op, res)
	}
	return 0, AcquireOptimal, d.surfaceStatus(op, res)
}
