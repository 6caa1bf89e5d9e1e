package vulkan

import (
	vk "github.com/goki/vulkan"
)

// SamplerConfig zero value is a nearest, repeat sampler without anisotropy.
type SamplerConfig struct {
	MagFilter    vk.Filter
	MinFilter    vk.Filter
	MipmapMode   vk.SamplerMipmapMode
	AddressModeU vk.SamplerAddressMode
	AddressModeV vk.SamplerAddressMode
	AddressModeW vk.SamplerAddressMode
	MipLodBias   float32
	// MaxAnisotropy above 1 enables anisotropic filtering.
	MaxAnisotropy float32
	CompareOp     *vk.CompareOp
	MinLod        float32
	MaxLod        float32
	BorderColor   vk.BorderColor
	Unnormalized  bool
}

const lodClampNone = 1000.0

// LinearSamplerConfig is a trilinear repeat sampler over every mip level.
func LinearSamplerConfig(maxAnisotropy float32) SamplerConfig {
	return SamplerConfig{
		MagFilter:     vk.FilterLinear,
		MinFilter:     vk.FilterLinear,
		MipmapMode:    vk.SamplerMipmapModeLinear,
		AddressModeU:  vk.SamplerAddressModeRepeat,
		AddressModeV:  vk.SamplerAddressModeRepeat,
		AddressModeW:  vk.SamplerAddressModeRepeat,
		MaxAnisotropy: maxAnisotropy,
		MaxLod:        lodClampNone,
		BorderColor:   vk.BorderColorFloatOpaqueBlack,
	}
}

type VulkanSampler struct {
	device *VulkanDevice
	handle vk.Sampler
	id     trackID
}

func (d *VulkanDevice) CreateSampler(config SamplerConfig) (*VulkanSampler, error) {
	const op = "vkCreateSampler"
	if config.MinLod > config.MaxLod {
		return nil, d.precondition(op, "minLod %v is above maxLod %v", config.MinLod, config.MaxLod)
	}
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               config.MagFilter,
		MinFilter:               config.MinFilter,
		MipmapMode:              config.MipmapMode,
		AddressModeU:            config.AddressModeU,
		AddressModeV:            config.AddressModeV,
		AddressModeW:            config.AddressModeW,
		MipLodBias:              config.MipLodBias,
		AnisotropyEnable:        boolToVk(config.MaxAnisotropy > 1),
		MaxAnisotropy:           config.MaxAnisotropy,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  config.MinLod,
		MaxLod:                  config.MaxLod,
		BorderColor:             config.BorderColor,
		UnnormalizedCoordinates: boolToVk(config.Unnormalized),
	}
	if config.CompareOp != nil {
		sci.CompareEnable = vk.True
		sci.CompareOp = *config.CompareOp
	}
	handle, res := d.drv.CreateSampler(d.handle, &sci)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	s := &VulkanSampler{device: d, handle: handle}
	s.id = d.own(s)
	return s, nil
}

func (s *VulkanSampler) Handle() vk.Sampler { return s.handle }

func (s *VulkanSampler) Destroy() {
	if s.handle == nil {
		return
	}
	s.device.drv.DestroySampler(s.device.handle, s.handle)
	s.device.disown(s.id)
	s.handle = nil
}

func samplerHandles(samplers []*VulkanSampler) []vk.Sampler {
	if len(samplers) == 0 {
		return nil
	}
	out := make([]vk.Sampler, len(samplers))
	for i, s := range samplers {
		out[i] = s.handle
	}
	return out
}
