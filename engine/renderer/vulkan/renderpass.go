package vulkan

import (
	vk "github.com/goki/vulkan"
)

type SubpassConfig struct {
	// BindPoint defaults to graphics.
	BindPoint              vk.PipelineBindPoint
	ColorAttachments       []vk.AttachmentReference
	DepthStencilAttachment *vk.AttachmentReference
	InputAttachments       []vk.AttachmentReference
	// ResolveAttachments is empty or parallel to ColorAttachments.
	ResolveAttachments  []vk.AttachmentReference
	PreserveAttachments []uint32
}

type RenderPassConfig struct {
	Attachments  []vk.AttachmentDescription
	Subpasses    []SubpassConfig
	Dependencies []vk.SubpassDependency
}

type VulkanRenderPass struct {
	device *VulkanDevice
	handle vk.RenderPass
	id     trackID

	AttachmentCount uint32
}

// PresentRenderPassConfig describes a single subpass that clears a color
// attachment and leaves it ready for presentation. A depth format other
// than undefined adds a cleared depth attachment.
func PresentRenderPassConfig(colorFormat, depthFormat vk.Format) RenderPassConfig {
	config := RenderPassConfig{
		Attachments: []vk.AttachmentDescription{{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
			FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
		}},
		Subpasses: []SubpassConfig{{
			ColorAttachments: []vk.AttachmentReference{{
				Attachment: 0,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			}},
		}},
		Dependencies: []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		}},
	}
	if depthFormat != vk.FormatUndefined {
		config.Attachments = append(config.Attachments, vk.AttachmentDescription{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		config.Subpasses[0].DepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}
	return config
}

func (d *VulkanDevice) CreateRenderPass(config RenderPassConfig) (*VulkanRenderPass, error) {
	const op = "vkCreateRenderPass"
	if len(config.Subpasses) == 0 {
		return nil, d.precondition(op, "at least one subpass is required")
	}
	subpasses := make([]vk.SubpassDescription, len(config.Subpasses))
	for i, sp := range config.Subpasses {
		if len(sp.ResolveAttachments) > 0 && len(sp.ResolveAttachments) != len(sp.ColorAttachments) {
			return nil, d.precondition(op, "subpass %d: %d resolve attachments for %d color attachments", i, len(sp.ResolveAttachments), len(sp.ColorAttachments))
		}
		bindPoint := sp.BindPoint
		if bindPoint == 0 {
			bindPoint = vk.PipelineBindPointGraphics
		}
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:       bindPoint,
			InputAttachmentCount:    uint32(len(sp.InputAttachments)),
			PInputAttachments:       append([]vk.AttachmentReference(nil), sp.InputAttachments...),
			ColorAttachmentCount:    uint32(len(sp.ColorAttachments)),
			PColorAttachments:       append([]vk.AttachmentReference(nil), sp.ColorAttachments...),
			PResolveAttachments:     append([]vk.AttachmentReference(nil), sp.ResolveAttachments...),
			PreserveAttachmentCount: uint32(len(sp.PreserveAttachments)),
			PPreserveAttachments:    append([]uint32(nil), sp.PreserveAttachments...),
		}
		if sp.DepthStencilAttachment != nil {
			ref := *sp.DepthStencilAttachment
			subpasses[i].PDepthStencilAttachment = &ref
		}
	}
	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(config.Attachments)),
		PAttachments:    append([]vk.AttachmentDescription(nil), config.Attachments...),
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(config.Dependencies)),
		PDependencies:   append([]vk.SubpassDependency(nil), config.Dependencies...),
	}
	handle, res := d.drv.CreateRenderPass(d.handle, &renderpassCreateInfo)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	rp := &VulkanRenderPass{device: d, handle: handle, AttachmentCount: uint32(len(config.Attachments))}
	rp.id = d.own(rp)
	return rp, nil
}

func (rp *VulkanRenderPass) Handle() vk.RenderPass { return rp.handle }

func (rp *VulkanRenderPass) Destroy() {
	if rp.handle == nil {
		return
	}
	rp.device.drv.DestroyRenderPass(rp.device.handle, rp.handle)
	rp.device.disown(rp.id)
	rp.handle = nil
}

// ClearColor builds a color clear value.
func ClearColor(r, g, b, a float32) vk.ClearValue {
	var cv vk.ClearValue
	cv.SetColor([]float32{r, g, b, a})
	return cv
}

// ClearDepthStencil builds a depth-stencil clear value.
func ClearDepthStencil(depth float32, stencil uint32) vk.ClearValue {
	var cv vk.ClearValue
	cv.SetDepthStencil(depth, stencil)
	return cv
}
