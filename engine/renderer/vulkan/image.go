package vulkan

import (
	vk "github.com/goki/vulkan"
)

type ImageConfig struct {
	// Type defaults to 2D.
	Type   vk.ImageType
	Format vk.Format
	Width  uint32
	Height uint32
	// Depth, MipLevels and ArrayLayers default to 1.
	Depth       uint32
	MipLevels   uint32
	ArrayLayers uint32
	// Samples defaults to one sample per texel.
	Samples       vk.SampleCountFlagBits
	Tiling        vk.ImageTiling
	Usage         vk.ImageUsageFlags
	SharingMode   vk.SharingMode
	QueueFamilies []uint32
	InitialLayout vk.ImageLayout
}

type VulkanImage struct {
	device *VulkanDevice
	handle vk.Image
	id     trackID
	memory *VulkanDeviceMemory
	// Swapchain images are destroyed with their swapchain.
	swapchainOwned bool

	Format      vk.Format
	Extent      vk.Extent3D
	MipLevels   uint32
	ArrayLayers uint32
	Usage       vk.ImageUsageFlags
}

func orOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func (d *VulkanDevice) CreateImage(config ImageConfig) (*VulkanImage, error) {
	const op = "vkCreateImage"
	if config.Width == 0 || config.Height == 0 {
		return nil, d.precondition(op, "extent %dx%d is empty", config.Width, config.Height)
	}
	families, err := sharing(d.failer, op, config.SharingMode, config.QueueFamilies)
	if err != nil {
		return nil, err
	}
	imageType := config.Type
	if imageType == 0 {
		imageType = vk.ImageType2d
	}
	samples := config.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	extent := vk.Extent3D{Width: config.Width, Height: config.Height, Depth: orOne(config.Depth)}
	info := vk.ImageCreateInfo{
		SType:                 vk.StructureTypeImageCreateInfo,
		ImageType:             imageType,
		Format:                config.Format,
		Extent:                extent,
		MipLevels:             orOne(config.MipLevels),
		ArrayLayers:           orOne(config.ArrayLayers),
		Samples:               samples,
		Tiling:                config.Tiling,
		Usage:                 config.Usage,
		SharingMode:           config.SharingMode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		InitialLayout:         config.InitialLayout,
	}
	handle, res := d.drv.CreateImage(d.handle, &info)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	img := &VulkanImage{
		device:      d,
		handle:      handle,
		Format:      config.Format,
		Extent:      extent,
		MipLevels:   info.MipLevels,
		ArrayLayers: info.ArrayLayers,
		Usage:       config.Usage,
	}
	img.id = d.own(img)
	return img, nil
}

// CreateAllocatedImage creates an image and binds it to a dedicated
// allocation with the given memory properties.
func (d *VulkanDevice) CreateAllocatedImage(config ImageConfig, properties vk.MemoryPropertyFlags) (*VulkanImage, *VulkanDeviceMemory, error) {
	img, err := d.CreateImage(config)
	if err != nil {
		return nil, nil, err
	}
	mem, err := d.AllocateMemoryFor(img.MemoryRequirements(), properties)
	if err != nil {
		img.Destroy()
		return nil, nil, err
	}
	if err := img.BindMemory(mem, 0); err != nil {
		img.Destroy()
		mem.Destroy()
		return nil, nil, err
	}
	return img, mem, nil
}

func (img *VulkanImage) Handle() vk.Image { return img.handle }

func (img *VulkanImage) Memory() *VulkanDeviceMemory { return img.memory }

func (img *VulkanImage) SwapchainOwned() bool { return img.swapchainOwned }

// Destroy releases the image. It does nothing for swapchain images.
func (img *VulkanImage) Destroy() {
	if img.handle == nil || img.swapchainOwned {
		return
	}
	img.device.drv.DestroyImage(img.device.handle, img.handle)
	img.device.disown(img.id)
	img.handle = nil
	img.memory = nil
}

func (img *VulkanImage) MemoryRequirements() vk.MemoryRequirements {
	return img.device.drv.GetImageMemoryRequirements(img.device.handle, img.handle)
}

func (img *VulkanImage) BindMemory(memory *VulkanDeviceMemory, offset vk.DeviceSize) error {
	if err := img.device.check("vkBindImageMemory", img.device.drv.BindImageMemory(img.device.handle, img.handle, memory.handle, offset)); err != nil {
		return err
	}
	img.memory = memory
	return nil
}

// Aspect is the natural aspect of the image format.
func (img *VulkanImage) Aspect() vk.ImageAspectFlags {
	return formatAspect(img.Format)
}

func (img *VulkanImage) fullRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     img.Aspect(),
		BaseMipLevel:   0,
		LevelCount:     img.MipLevels,
		BaseArrayLayer: 0,
		LayerCount:     img.ArrayLayers,
	}
}

func formatAspect(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD16Unorm, vk.FormatD32Sfloat, vk.FormatX8D24UnormPack32:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	case vk.FormatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

type ImageViewConfig struct {
	Image *VulkanImage
	// ViewType defaults to 2D, Format to the image format and Aspect to the
	// format's aspect.
	ViewType vk.ImageViewType
	Format   vk.Format
	Aspect   vk.ImageAspectFlags
	// Zero counts cover the remaining levels or layers of the image.
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

type VulkanImageView struct {
	device *VulkanDevice
	handle vk.ImageView
	id     trackID

	Image  *VulkanImage
	Format vk.Format
}

func (d *VulkanDevice) CreateImageView(config ImageViewConfig) (*VulkanImageView, error) {
	const op = "vkCreateImageView"
	img := config.Image
	if img == nil {
		return nil, d.precondition(op, "image is required")
	}
	if config.BaseMipLevel >= img.MipLevels || config.BaseArrayLayer >= img.ArrayLayers {
		return nil, d.precondition(op, "subresource base (%d, %d) is outside the image", config.BaseMipLevel, config.BaseArrayLayer)
	}
	viewType := config.ViewType
	if viewType == 0 && img.Extent.Depth <= 1 {
		viewType = vk.ImageViewType2d
	}
	format := config.Format
	if format == vk.FormatUndefined {
		format = img.Format
	}
	aspect := config.Aspect
	if aspect == 0 {
		aspect = formatAspect(format)
	}
	levels := config.LevelCount
	if levels == 0 {
		levels = img.MipLevels - config.BaseMipLevel
	}
	layers := config.LayerCount
	if layers == 0 {
		layers = img.ArrayLayers - config.BaseArrayLayer
	}
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.handle,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   config.BaseMipLevel,
			LevelCount:     levels,
			BaseArrayLayer: config.BaseArrayLayer,
			LayerCount:     layers,
		},
	}
	handle, res := d.drv.CreateImageView(d.handle, &viewInfo)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	v := &VulkanImageView{device: d, handle: handle, Image: img, Format: format}
	v.id = d.own(v)
	return v, nil
}

func (v *VulkanImageView) Handle() vk.ImageView { return v.handle }

func (v *VulkanImageView) Destroy() {
	if v.handle == nil {
		return
	}
	v.device.drv.DestroyImageView(v.device.handle, v.handle)
	v.device.disown(v.id)
	v.handle = nil
}
