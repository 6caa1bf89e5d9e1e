package soft

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

const cacheHeaderSize = 32

func (d *Driver) cacheHeader() []byte {
	h := make([]byte, cacheHeaderSize)
	binary.LittleEndian.PutUint32(h[0:], cacheHeaderSize)
	binary.LittleEndian.PutUint32(h[4:], 1)
	binary.LittleEndian.PutUint32(h[8:], vendorID)
	binary.LittleEndian.PutUint32(h[12:], deviceID)
	copy(h[16:], "vkbind-soft-0001")
	return h
}

// CreatePipelineCache keeps the initial data only when its header matches
// this device, like a real driver silently discarding foreign blobs.
func (d *Driver) CreatePipelineCache(device vk.Device, info *vk.PipelineCacheCreateInfo) (vk.PipelineCache, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &pipelineCacheObj{}
	if info.InitialDataSize > 0 && info.PInitialData != nil {
		initial := unsafe.Slice((*byte)(info.PInitialData), info.InitialDataSize)
		if len(initial) >= cacheHeaderSize && bytes.Equal(initial[:cacheHeaderSize], d.cacheHeader()) {
			c.data = append(c.data, initial[cacheHeaderSize:]...)
		}
	}
	p, res := d.child(device, KindPipelineCache, c, "vkCreatePipelineCache")
	return vk.PipelineCache(p), res
}

func (d *Driver) DestroyPipelineCache(device vk.Device, cache vk.PipelineCache) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindPipelineCache, unsafe.Pointer(cache), "vkDestroyPipelineCache")
}

func (d *Driver) GetPipelineCacheData(device vk.Device, cache vk.PipelineCache, size *uint64, out []byte) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindPipelineCache, unsafe.Pointer(cache), "vkGetPipelineCacheData")
	if !ok {
		return vk.ErrorInitializationFailed
	}
	blob := append(d.cacheHeader(), obj.(*pipelineCacheObj).data...)
	if out == nil {
		*size = uint64(len(blob))
		return vk.Success
	}
	n := copy(out[:min(int(*size), len(out))], blob)
	*size = uint64(n)
	if n < len(blob) {
		return vk.Incomplete
	}
	return vk.Success
}

func (d *Driver) recordPipeline(cache vk.PipelineCache, kind string, index int) {
	if cache == nil {
		return
	}
	obj, ok := d.get(KindPipelineCache, unsafe.Pointer(cache), "vkCreatePipelines")
	if !ok {
		return
	}
	c := obj.(*pipelineCacheObj)
	c.data = append(c.data, fmt.Sprintf("%s:%d;", kind, index)...)
}

func (d *Driver) createPipelines(device vk.Device, cache vk.PipelineCache, n int, bindPoint vk.PipelineBindPoint, check func(i int) bool, op string) ([]vk.Pipeline, vk.Result) {
	out := make([]vk.Pipeline, n)
	for i := range out {
		if !check(i) {
			for _, p := range out[:i] {
				d.destroy(KindPipeline, unsafe.Pointer(p), op)
			}
			return nil, vk.ErrorInitializationFailed
		}
		p, res := d.child(device, KindPipeline, &pipelineObj{bindPoint: bindPoint}, op)
		if res != vk.Success {
			return nil, res
		}
		out[i] = vk.Pipeline(p)
		d.recordPipeline(cache, fmt.Sprint(bindPoint), i)
	}
	return out, vk.Success
}

func (d *Driver) CreateGraphicsPipelines(device vk.Device, cache vk.PipelineCache, infos []vk.GraphicsPipelineCreateInfo) ([]vk.Pipeline, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkCreateGraphicsPipelines"
	return d.createPipelines(device, cache, len(infos), vk.PipelineBindPointGraphics, func(i int) bool {
		info := &infos[i]
		if _, ok := d.get(KindPipelineLayout, unsafe.Pointer(info.Layout), op); !ok {
			return false
		}
		if _, ok := d.get(KindRenderPass, unsafe.Pointer(info.RenderPass), op); !ok {
			return false
		}
		for _, st := range info.PStages {
			if _, ok := d.get(KindShaderModule, unsafe.Pointer(st.Module), op); !ok {
				return false
			}
		}
		return true
	}, op)
}

func (d *Driver) CreateComputePipelines(device vk.Device, cache vk.PipelineCache, infos []vk.ComputePipelineCreateInfo) ([]vk.Pipeline, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkCreateComputePipelines"
	return d.createPipelines(device, cache, len(infos), vk.PipelineBindPointCompute, func(i int) bool {
		info := &infos[i]
		if _, ok := d.get(KindPipelineLayout, unsafe.Pointer(info.Layout), op); !ok {
			return false
		}
		_, ok := d.get(KindShaderModule, unsafe.Pointer(info.Stage.Module), op)
		return ok
	}, op)
}

func (d *Driver) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindPipeline, unsafe.Pointer(pipeline), "vkDestroyPipeline")
}

func (d *Driver) CreateDescriptorSetLayout(device vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := &descriptorSetLayoutObj{bindings: make(map[uint32]vk.DescriptorSetLayoutBinding)}
	for _, b := range info.PBindings {
		if _, dup := l.bindings[b.Binding]; dup {
			d.report("vkCreateDescriptorSetLayout: binding %d declared twice", b.Binding)
			return nil, vk.ErrorInitializationFailed
		}
		l.bindings[b.Binding] = b
	}
	p, res := d.child(device, KindDescriptorSetLayout, l, "vkCreateDescriptorSetLayout")
	return vk.DescriptorSetLayout(p), res
}

func (d *Driver) DestroyDescriptorSetLayout(device vk.Device, layout vk.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindDescriptorSetLayout, unsafe.Pointer(layout), "vkDestroyDescriptorSetLayout")
}

func (d *Driver) CreateDescriptorPool(device vk.Device, info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info.MaxSets == 0 {
		d.report("vkCreateDescriptorPool: maxSets must be greater than zero")
		return nil, vk.ErrorInitializationFailed
	}
	pool := &descriptorPoolObj{
		maxSets:  info.MaxSets,
		freeable: info.Flags&vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit) != 0,
	}
	p, res := d.child(device, KindDescriptorPool, pool, "vkCreateDescriptorPool")
	return vk.DescriptorPool(p), res
}

func (d *Driver) DestroyDescriptorPool(device vk.Device, pool vk.DescriptorPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := handleOf(unsafe.Pointer(pool))
	if h != 0 {
		d.releaseOwned(h)
	}
	d.destroy(KindDescriptorPool, unsafe.Pointer(pool), "vkDestroyDescriptorPool")
}

func (d *Driver) ResetDescriptorPool(device vk.Device, pool vk.DescriptorPool) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindDescriptorPool, unsafe.Pointer(pool), "vkResetDescriptorPool")
	if !ok {
		return vk.ErrorInitializationFailed
	}
	d.releaseOwned(handleOf(unsafe.Pointer(pool)))
	obj.(*descriptorPoolObj).allocated = 0
	return vk.Success
}

func (d *Driver) AllocateDescriptorSets(device vk.Device, info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindDescriptorPool, unsafe.Pointer(info.DescriptorPool), "vkAllocateDescriptorSets")
	if !ok {
		return nil, vk.ErrorInitializationFailed
	}
	pool := obj.(*descriptorPoolObj)
	n := uint32(len(info.PSetLayouts))
	if pool.allocated+n > pool.maxSets {
		return nil, vk.ErrorOutOfPoolMemory
	}
	poolHandle := handleOf(unsafe.Pointer(info.DescriptorPool))
	out := make([]vk.DescriptorSet, 0, n)
	for _, l := range info.PSetLayouts {
		lobj, ok := d.get(KindDescriptorSetLayout, unsafe.Pointer(l), "vkAllocateDescriptorSets")
		if !ok {
			for _, s := range out {
				d.arenas[KindDescriptorSet].release(handleOf(unsafe.Pointer(s)))
			}
			return nil, vk.ErrorInitializationFailed
		}
		set := &descriptorSetObj{
			layout:   handleOf(unsafe.Pointer(l)),
			bindings: lobj.(*descriptorSetLayoutObj).bindings,
			written:  make(map[uint32]vk.DescriptorType),
		}
		h, res := d.create(KindDescriptorSet, poolHandle, set)
		if res != vk.Success {
			return nil, res
		}
		out = append(out, vk.DescriptorSet(h.ptr()))
	}
	pool.allocated += n
	return out, vk.Success
}

func (d *Driver) FreeDescriptorSets(device vk.Device, pool vk.DescriptorPool, sets []vk.DescriptorSet) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindDescriptorPool, unsafe.Pointer(pool), "vkFreeDescriptorSets")
	if !ok {
		return vk.ErrorInitializationFailed
	}
	p := obj.(*descriptorPoolObj)
	if !p.freeable {
		d.report("vkFreeDescriptorSets: pool was not created with FREE_DESCRIPTOR_SET_BIT")
		return vk.ErrorInitializationFailed
	}
	for _, s := range sets {
		if d.destroy(KindDescriptorSet, unsafe.Pointer(s), "vkFreeDescriptorSets") {
			p.allocated--
		}
	}
	return vk.Success
}

func (d *Driver) UpdateDescriptorSets(device vk.Device, writes []vk.WriteDescriptorSet, copies []vk.CopyDescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkUpdateDescriptorSets"
	for _, w := range writes {
		obj, ok := d.get(KindDescriptorSet, unsafe.Pointer(w.DstSet), op)
		if !ok {
			continue
		}
		set := obj.(*descriptorSetObj)
		b, ok := set.bindings[w.DstBinding]
		if !ok {
			d.report("%s: set has no binding %d", op, w.DstBinding)
			continue
		}
		if b.DescriptorType != w.DescriptorType {
			d.report("%s: binding %d is %d, write is %d", op, w.DstBinding, b.DescriptorType, w.DescriptorType)
			continue
		}
		if w.DstArrayElement+w.DescriptorCount > b.DescriptorCount {
			d.report("%s: write of %d descriptors overruns binding %d", op, w.DescriptorCount, w.DstBinding)
			continue
		}
		set.written[w.DstBinding] = w.DescriptorType
	}
	for _, c := range copies {
		src, ok := d.get(KindDescriptorSet, unsafe.Pointer(c.SrcSet), op)
		if !ok {
			continue
		}
		dst, ok := d.get(KindDescriptorSet, unsafe.Pointer(c.DstSet), op)
		if !ok {
			continue
		}
		if t, ok := src.(*descriptorSetObj).written[c.SrcBinding]; ok {
			dst.(*descriptorSetObj).written[c.DstBinding] = t
		}
	}
}

// DescriptorWrites returns the bindings of set that have been written.
func (d *Driver) DescriptorWrites(set vk.DescriptorSet) map[uint32]vk.DescriptorType {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(KindDescriptorSet, unsafe.Pointer(set), "DescriptorWrites")
	if !ok {
		return nil
	}
	out := make(map[uint32]vk.DescriptorType)
	for k, v := range obj.(*descriptorSetObj).written {
		out[k] = v
	}
	return out
}

func (d *Driver) CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(info.QueueFamilyIndex) >= len(d.cfg.QueueFamilies) {
		d.report("vkCreateCommandPool: queue family %d does not exist", info.QueueFamilyIndex)
		return nil, vk.ErrorInitializationFailed
	}
	pool := &commandPoolObj{
		family:     info.QueueFamilyIndex,
		resettable: info.Flags&vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit) != 0,
	}
	p, res := d.child(device, KindCommandPool, pool, "vkCreateCommandPool")
	return vk.CommandPool(p), res
}

func (d *Driver) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := handleOf(unsafe.Pointer(pool))
	if h == 0 {
		return
	}
	d.arenas[KindCommandBuffer].each(func(ch handle, e *entry) {
		if e.owner == h && e.obj.(*commandBufferObj).state == cbPending {
			d.report("vkDestroyCommandPool: command buffer %#x is still pending", uint32(ch))
		}
	})
	d.releaseOwned(h)
	d.destroy(KindCommandPool, h.ptr(), "vkDestroyCommandPool")
}

func (d *Driver) ResetCommandPool(device vk.Device, pool vk.CommandPool, flags vk.CommandPoolResetFlags) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := handleOf(unsafe.Pointer(pool))
	if _, ok := d.get(KindCommandPool, h.ptr(), "vkResetCommandPool"); !ok {
		return vk.ErrorInitializationFailed
	}
	d.arenas[KindCommandBuffer].each(func(_ handle, e *entry) {
		if e.owner == h {
			cb := e.obj.(*commandBufferObj)
			cb.state, cb.ops, cb.inRenderPass = cbInitial, nil, false
		}
	})
	return vk.Success
}

func (d *Driver) AllocateCommandBuffers(device vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	poolHandle := handleOf(unsafe.Pointer(info.CommandPool))
	if _, ok := d.get(KindCommandPool, poolHandle.ptr(), "vkAllocateCommandBuffers"); !ok {
		return nil, vk.ErrorInitializationFailed
	}
	out := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range out {
		h, res := d.create(KindCommandBuffer, poolHandle, &commandBufferObj{pool: poolHandle, level: info.Level})
		if res != vk.Success {
			return nil, res
		}
		out[i] = vk.CommandBuffer(h.ptr())
	}
	return out, vk.Success
}

func (d *Driver) FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range buffers {
		if e, ok := d.arenas[KindCommandBuffer].lookup(handleOf(unsafe.Pointer(b))); ok && e.obj.(*commandBufferObj).state == cbPending {
			d.report("vkFreeCommandBuffers: command buffer is still pending")
		}
		d.destroy(KindCommandBuffer, unsafe.Pointer(b), "vkFreeCommandBuffers")
	}
}
