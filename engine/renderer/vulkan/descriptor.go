package vulkan

import (
	vk "github.com/goki/vulkan"
)

type DescriptorBinding struct {
	Binding uint32
	Type    vk.DescriptorType
	// Count defaults to 1, or to the number of immutable samplers.
	Count             uint32
	Stages            vk.ShaderStageFlags
	ImmutableSamplers []*VulkanSampler
}

type DescriptorSetLayoutConfig struct {
	Bindings []DescriptorBinding
}

type VulkanDescriptorSetLayout struct {
	device *VulkanDevice
	handle vk.DescriptorSetLayout
	id     trackID

	Bindings []vk.DescriptorSetLayoutBinding
}

// layoutBinding fills the native binding. Zero immutable samplers leave the
// sampler slice nil.
func layoutBinding(b DescriptorBinding) vk.DescriptorSetLayoutBinding {
	count := b.Count
	if count == 0 {
		count = orOne(uint32(len(b.ImmutableSamplers)))
	}
	return vk.DescriptorSetLayoutBinding{
		Binding:            b.Binding,
		DescriptorType:     b.Type,
		DescriptorCount:    count,
		StageFlags:         b.Stages,
		PImmutableSamplers: samplerHandles(b.ImmutableSamplers),
	}
}

func (d *VulkanDevice) CreateDescriptorSetLayout(config DescriptorSetLayoutConfig) (*VulkanDescriptorSetLayout, error) {
	const op = "vkCreateDescriptorSetLayout"
	bindings := make([]vk.DescriptorSetLayoutBinding, len(config.Bindings))
	seen := make(map[uint32]struct{}, len(config.Bindings))
	for i, b := range config.Bindings {
		if _, dup := seen[b.Binding]; dup {
			return nil, d.precondition(op, "binding %d declared twice", b.Binding)
		}
		seen[b.Binding] = struct{}{}
		if len(b.ImmutableSamplers) > 0 && b.Count != 0 && int(b.Count) != len(b.ImmutableSamplers) {
			return nil, d.precondition(op, "binding %d: %d immutable samplers for %d descriptors", b.Binding, len(b.ImmutableSamplers), b.Count)
		}
		bindings[i] = layoutBinding(b)
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	handle, res := d.drv.CreateDescriptorSetLayout(d.handle, &layoutInfo)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	l := &VulkanDescriptorSetLayout{device: d, handle: handle, Bindings: bindings}
	l.id = d.own(l)
	return l, nil
}

func (l *VulkanDescriptorSetLayout) Handle() vk.DescriptorSetLayout { return l.handle }

func (l *VulkanDescriptorSetLayout) Destroy() {
	if l.handle == nil {
		return
	}
	l.device.drv.DestroyDescriptorSetLayout(l.device.handle, l.handle)
	l.device.disown(l.id)
	l.handle = nil
}

type DescriptorPoolConfig struct {
	MaxSets   uint32
	PoolSizes []vk.DescriptorPoolSize
	// FreeIndividual allows VulkanDescriptorSet.Free.
	FreeIndividual bool
}

type VulkanDescriptorPool struct {
	device *VulkanDevice
	handle vk.DescriptorPool
	id     trackID
	sets   map[*VulkanDescriptorSet]struct{}

	FreeIndividual bool
}

func (d *VulkanDevice) CreateDescriptorPool(config DescriptorPoolConfig) (*VulkanDescriptorPool, error) {
	const op = "vkCreateDescriptorPool"
	if config.MaxSets == 0 {
		return nil, d.precondition(op, "maxSets must be greater than zero")
	}
	if len(config.PoolSizes) == 0 {
		return nil, d.precondition(op, "at least one pool size is required")
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       config.MaxSets,
		PoolSizeCount: uint32(len(config.PoolSizes)),
		PPoolSizes:    append([]vk.DescriptorPoolSize(nil), config.PoolSizes...),
	}
	if config.FreeIndividual {
		poolInfo.Flags = vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit)
	}
	handle, res := d.drv.CreateDescriptorPool(d.handle, &poolInfo)
	if err := d.check(op, res); err != nil {
		return nil, err
	}
	p := &VulkanDescriptorPool{
		device:         d,
		handle:         handle,
		sets:           make(map[*VulkanDescriptorSet]struct{}),
		FreeIndividual: config.FreeIndividual,
	}
	p.id = d.own(p)
	return p, nil
}

func (p *VulkanDescriptorPool) Handle() vk.DescriptorPool { return p.handle }

// Allocated is the number of live sets from this pool.
func (p *VulkanDescriptorPool) Allocated() int { return len(p.sets) }

// Destroy frees the pool and every set allocated from it.
func (p *VulkanDescriptorPool) Destroy() {
	if p.handle == nil {
		return
	}
	p.forget()
	p.device.drv.DestroyDescriptorPool(p.device.handle, p.handle)
	p.device.disown(p.id)
	p.handle = nil
}

func (p *VulkanDescriptorPool) forget() {
	for s := range p.sets {
		s.handle = nil
	}
	clear(p.sets)
}

// Reset returns every set to the pool.
func (p *VulkanDescriptorPool) Reset() error {
	if err := p.device.check("vkResetDescriptorPool", p.device.drv.ResetDescriptorPool(p.device.handle, p.handle)); err != nil {
		return err
	}
	p.forget()
	return nil
}

type VulkanDescriptorSet struct {
	pool   *VulkanDescriptorPool
	handle vk.DescriptorSet

	Layout *VulkanDescriptorSetLayout
}

// AllocateDescriptorSets allocates one set per layout.
func (p *VulkanDescriptorPool) AllocateDescriptorSets(layouts ...*VulkanDescriptorSetLayout) ([]*VulkanDescriptorSet, error) {
	const op = "vkAllocateDescriptorSets"
	if len(layouts) == 0 {
		return nil, p.device.precondition(op, "at least one layout is required")
	}
	handles := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		handles[i] = l.handle
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.handle,
		DescriptorSetCount: uint32(len(handles)),
		PSetLayouts:        handles,
	}
	raw, res := p.device.drv.AllocateDescriptorSets(p.device.handle, &allocInfo)
	if err := p.device.check(op, res); err != nil {
		return nil, err
	}
	sets := make([]*VulkanDescriptorSet, len(raw))
	for i, h := range raw {
		sets[i] = &VulkanDescriptorSet{pool: p, handle: h, Layout: layouts[i]}
		p.sets[sets[i]] = struct{}{}
	}
	return sets, nil
}

func (s *VulkanDescriptorSet) Handle() vk.DescriptorSet { return s.handle }

func (s *VulkanDescriptorSet) Pool() *VulkanDescriptorPool { return s.pool }

// Free returns the set to a pool created with FreeIndividual.
func (s *VulkanDescriptorSet) Free() error {
	const op = "vkFreeDescriptorSets"
	if s.handle == nil {
		return nil
	}
	p := s.pool
	if !p.FreeIndividual {
		return p.device.precondition(op, "pool does not allow freeing individual sets")
	}
	if err := p.device.check(op, p.device.drv.FreeDescriptorSets(p.device.handle, p.handle, []vk.DescriptorSet{s.handle})); err != nil {
		return err
	}
	delete(p.sets, s)
	s.handle = nil
	return nil
}

type DescriptorImage struct {
	Sampler *VulkanSampler
	View    *VulkanImageView
	Layout  vk.ImageLayout
}

type DescriptorBuffer struct {
	Buffer *VulkanBuffer
	Offset vk.DeviceSize
	// Range defaults to WholeSize.
	Range vk.DeviceSize
}

// DescriptorWrite updates consecutive descriptors from ArrayElement. The
// descriptor type picks which of Images, Buffers or TexelViews is read.
type DescriptorWrite struct {
	Set          *VulkanDescriptorSet
	Binding      uint32
	ArrayElement uint32
	Type         vk.DescriptorType
	Images       []DescriptorImage
	Buffers      []DescriptorBuffer
	TexelViews   []*VulkanBufferView
}

type DescriptorCopy struct {
	Src, Dst                         *VulkanDescriptorSet
	SrcBinding, DstBinding           uint32
	SrcArrayElement, DstArrayElement uint32
	Count                            uint32
}

func (d *VulkanDevice) writeDescriptor(w DescriptorWrite) (vk.WriteDescriptorSet, error) {
	const op = "vkUpdateDescriptorSets"
	out := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          w.Set.handle,
		DstBinding:      w.Binding,
		DstArrayElement: w.ArrayElement,
		DescriptorType:  w.Type,
	}
	switch w.Type {
	case vk.DescriptorTypeSampler, vk.DescriptorTypeSampledImage,
		vk.DescriptorTypeCombinedImageSampler, vk.DescriptorTypeStorageImage,
		vk.DescriptorTypeInputAttachment:
		if len(w.Images) == 0 {
			return out, d.precondition(op, "binding %d: image descriptor write without images", w.Binding)
		}
		infos := make([]vk.DescriptorImageInfo, len(w.Images))
		for i, img := range w.Images {
			if img.Sampler != nil {
				infos[i].Sampler = img.Sampler.handle
			}
			if img.View != nil {
				infos[i].ImageView = img.View.handle
			}
			infos[i].ImageLayout = img.Layout
		}
		out.DescriptorCount = uint32(len(infos))
		out.PImageInfo = infos
	case vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeStorageBuffer,
		vk.DescriptorTypeUniformBufferDynamic, vk.DescriptorTypeStorageBufferDynamic:
		if len(w.Buffers) == 0 {
			return out, d.precondition(op, "binding %d: buffer descriptor write without buffers", w.Binding)
		}
		infos := make([]vk.DescriptorBufferInfo, len(w.Buffers))
		for i, b := range w.Buffers {
			rng := b.Range
			if rng == 0 {
				rng = WholeSize
			}
			infos[i] = vk.DescriptorBufferInfo{Buffer: b.Buffer.handle, Offset: b.Offset, Range: rng}
		}
		out.DescriptorCount = uint32(len(infos))
		out.PBufferInfo = infos
	case vk.DescriptorTypeUniformTexelBuffer, vk.DescriptorTypeStorageTexelBuffer:
		if len(w.TexelViews) == 0 {
			return out, d.precondition(op, "binding %d: texel descriptor write without views", w.Binding)
		}
		views := make([]vk.BufferView, len(w.TexelViews))
		for i, v := range w.TexelViews {
			views[i] = v.handle
		}
		out.DescriptorCount = uint32(len(views))
		out.PTexelBufferView = views
	default:
		return out, d.precondition(op, "binding %d: unsupported descriptor type %d", w.Binding, w.Type)
	}
	return out, nil
}

// UpdateDescriptorSets applies writes then copies. Nothing is applied when
// any write is malformed.
func (d *VulkanDevice) UpdateDescriptorSets(writes []DescriptorWrite, copies []DescriptorCopy) error {
	native := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		if w.Set == nil {
			return d.precondition("vkUpdateDescriptorSets", "write %d has no set", i)
		}
		nw, err := d.writeDescriptor(w)
		if err != nil {
			return err
		}
		native[i] = nw
	}
	var nativeCopies []vk.CopyDescriptorSet
	for _, c := range copies {
		nativeCopies = append(nativeCopies, vk.CopyDescriptorSet{
			SType:           vk.StructureTypeCopyDescriptorSet,
			SrcSet:          c.Src.handle,
			SrcBinding:      c.SrcBinding,
			SrcArrayElement: c.SrcArrayElement,
			DstSet:          c.Dst.handle,
			DstBinding:      c.DstBinding,
			DstArrayElement: c.DstArrayElement,
			DescriptorCount: orOne(c.Count),
		})
	}
	d.drv.UpdateDescriptorSets(d.handle, native, nativeCopies)
	return nil
}
