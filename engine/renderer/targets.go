package renderer

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
)

// presentTargets owns the render pass drawing into swapchain images and one
// view and framebuffer per image.
type presentTargets struct {
	device       *vulkan.VulkanDevice
	renderPass   *vulkan.VulkanRenderPass
	format       vk.Format
	views        []*vulkan.VulkanImageView
	framebuffers []*vulkan.VulkanFramebuffer
}

// regenerate rebuilds the views and framebuffers for sc. The render pass is
// kept unless the image format changed.
func (t *presentTargets) regenerate(sc *vulkan.VulkanSwapchain) error {
	t.release()
	if t.renderPass == nil || t.format != sc.Format.Format {
		if t.renderPass != nil {
			t.renderPass.Destroy()
			t.renderPass = nil
		}
		rp, err := t.device.CreateRenderPass(vulkan.PresentRenderPassConfig(sc.Format.Format, vk.FormatUndefined))
		if err != nil {
			return err
		}
		t.renderPass = rp
		t.format = sc.Format.Format
	}
	for _, img := range sc.Images() {
		view, err := t.device.CreateImageView(vulkan.ImageViewConfig{Image: img})
		if err != nil {
			t.release()
			return err
		}
		t.views = append(t.views, view)
		fb, err := t.device.CreateFramebuffer(vulkan.FramebufferConfig{
			RenderPass:  t.renderPass,
			Attachments: []*vulkan.VulkanImageView{view},
			Width:       sc.Extent.Width,
			Height:      sc.Extent.Height,
		})
		if err != nil {
			t.release()
			return err
		}
		t.framebuffers = append(t.framebuffers, fb)
	}
	return nil
}

// release destroys the per-image objects, keeping the render pass.
func (t *presentTargets) release() {
	for _, fb := range t.framebuffers {
		fb.Destroy()
	}
	for _, v := range t.views {
		v.Destroy()
	}
	t.framebuffers = nil
	t.views = nil
}

func (t *presentTargets) destroy() {
	t.release()
	if t.renderPass != nil {
		t.renderPass.Destroy()
		t.renderPass = nil
	}
}
