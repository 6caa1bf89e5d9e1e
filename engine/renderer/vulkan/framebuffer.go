package vulkan

import (
	vk "github.com/goki/vulkan"
)

type FramebufferConfig struct {
	RenderPass  *VulkanRenderPass
	Attachments []*VulkanImageView
	Width       uint32
	Height      uint32
	// Layers defaults to 1.
	Layers uint32
}

type VulkanFramebuffer struct {
	device *VulkanDevice
	handle vk.Framebuffer
	id     trackID

	RenderPass  *VulkanRenderPass
	Attachments []*VulkanImageView
	Width       uint32
	Height      uint32
}

func (d *VulkanDevice) CreateFramebuffer(config FramebufferConfig) (*VulkanFramebuffer, error) {
	const op = "vkCreateFramebuffer"
	if config.RenderPass == nil {
		return nil, d.precondition(op, "render pass is required")
	}
	if uint32(len(config.Attachments)) != config.RenderPass.AttachmentCount {
		return nil, d.precondition(op, "%d attachments for a render pass with %d", len(config.Attachments), config.RenderPass.AttachmentCount)
	}
	views := make([]vk.ImageView, len(config.Attachments))
	for i, a := range config.Attachments {
		views[i] = a.handle
	}
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      config.RenderPass.handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           config.Width,
		Height:          config.Height,
		Layers:          orOne(config.Layers),
	}
	handle, res := d.drv.CreateFramebuffer(d.handle, &framebufferCreateInfo)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	fb := &VulkanFramebuffer{
		device: d,
		handle: handle,
		// Take a copy of the attachments.
		Attachments: append([]*VulkanImageView(nil), config.Attachments...),
		RenderPass:  config.RenderPass,
		Width:       config.Width,
		Height:      config.Height,
	}
	fb.id = d.own(fb)
	return fb, nil
}

func (fb *VulkanFramebuffer) Handle() vk.Framebuffer { return fb.handle }

func (fb *VulkanFramebuffer) Destroy() {
	if fb.handle == nil {
		return
	}
	fb.device.drv.DestroyFramebuffer(fb.device.handle, fb.handle)
	fb.device.disown(fb.id)
	fb.handle = nil
	fb.Attachments = nil
}
