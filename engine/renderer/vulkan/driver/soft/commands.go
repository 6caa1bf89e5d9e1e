package soft

import (
	"encoding/binary"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
)

// op is one recorded command. It runs with d.mu held.
type op func(d *Driver)

// remainingLayers is VK_REMAINING_ARRAY_LAYERS.
const remainingLayers = ^uint32(0)

type passRule uint8

const (
	anywhere passRule = iota
	insidePass
	outsidePass
)

func (d *Driver) commandBuffer(cb vk.CommandBuffer, name string) (*commandBufferObj, bool) {
	obj, ok := d.get(KindCommandBuffer, unsafe.Pointer(cb), name)
	if !ok {
		return nil, false
	}
	return obj.(*commandBufferObj), true
}

// record appends fn to a recording command buffer after checking the state
// and render pass rules.
func (d *Driver) record(cb vk.CommandBuffer, name string, rule passRule, fn op, after ...func(*commandBufferObj)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.commandBuffer(cb, name)
	if !ok {
		return
	}
	if c.state != cbRecording {
		d.report("%s: command buffer is in %s state, not recording", name, c.state)
		return
	}
	switch {
	case rule == insidePass && !c.inRenderPass:
		d.report("%s: must be recorded inside a render pass", name)
		return
	case rule == outsidePass && c.inRenderPass:
		d.report("%s: must be recorded outside a render pass", name)
		return
	}
	if fn != nil {
		c.ops = append(c.ops, fn)
	}
	for _, a := range after {
		a(c)
	}
}

func (d *Driver) BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	const name = "vkBeginCommandBuffer"
	c, ok := d.commandBuffer(cb, name)
	if !ok {
		return vk.ErrorInitializationFailed
	}
	switch c.state {
	case cbRecording, cbPending:
		d.report("%s: command buffer is in %s state", name, c.state)
		return vk.ErrorInitializationFailed
	case cbExecutable, cbInvalid:
		if e, ok := d.arenas[KindCommandPool].lookup(c.pool); ok && !e.obj.(*commandPoolObj).resettable {
			d.report("%s: implicit reset needs a pool created with RESET_COMMAND_BUFFER_BIT", name)
		}
	}
	c.state = cbRecording
	c.ops = nil
	c.inRenderPass = false
	c.oneTime = info.Flags&vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit) != 0
	return vk.Success
}

func (d *Driver) EndCommandBuffer(cb vk.CommandBuffer) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	const name = "vkEndCommandBuffer"
	c, ok := d.commandBuffer(cb, name)
	if !ok {
		return vk.ErrorInitializationFailed
	}
	if c.state != cbRecording {
		d.report("%s: command buffer is in %s state, not recording", name, c.state)
		return vk.ErrorInitializationFailed
	}
	if c.inRenderPass {
		d.report("%s: render pass is still active", name)
		return vk.ErrorInitializationFailed
	}
	c.state = cbExecutable
	return vk.Success
}

func (d *Driver) ResetCommandBuffer(cb vk.CommandBuffer, flags vk.CommandBufferResetFlags) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	const name = "vkResetCommandBuffer"
	c, ok := d.commandBuffer(cb, name)
	if !ok {
		return vk.ErrorInitializationFailed
	}
	if c.state == cbPending {
		d.report("%s: command buffer is pending", name)
		return vk.ErrorInitializationFailed
	}
	if e, ok := d.arenas[KindCommandPool].lookup(c.pool); ok && !e.obj.(*commandPoolObj).resettable {
		d.report("%s: pool was not created with RESET_COMMAND_BUFFER_BIT", name)
	}
	c.state, c.ops, c.inRenderPass = cbInitial, nil, false
	return vk.Success
}

// CommandBufferState returns the lifecycle state name of cb.
func (d *Driver) CommandBufferState(cb vk.CommandBuffer) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.commandBuffer(cb, "CommandBufferState")
	if !ok {
		return "destroyed"
	}
	return c.state.String()
}

// Execution-time lookups. They report use of objects destroyed after the
// command was recorded.

func (d *Driver) execBuffer(b vk.Buffer, name string) []byte {
	obj, ok := d.get(KindBuffer, unsafe.Pointer(b), name)
	if !ok {
		return nil
	}
	data := obj.(*bufferObj).bytes()
	if data == nil {
		d.report("%s: buffer has no memory bound", name)
	}
	return data
}

func (d *Driver) execImage(img vk.Image, name string) *imageObj {
	obj, ok := d.get(KindImage, unsafe.Pointer(img), name)
	if !ok {
		return nil
	}
	i := obj.(*imageObj)
	if i.own == nil && i.memory == nil {
		d.report("%s: image has no memory bound", name)
		return nil
	}
	return i
}

func (d *Driver) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	const name = "vkCmdBeginRenderPass"
	pass, fb := info.RenderPass, info.Framebuffer
	clears := append([]vk.ClearValue(nil), info.PClearValues...)
	d.record(cb, name, outsidePass, func(d *Driver) {
		d.stats.RenderPasses++
		pobj, ok := d.get(KindRenderPass, unsafe.Pointer(pass), name)
		if !ok {
			return
		}
		fobj, ok := d.get(KindFramebuffer, unsafe.Pointer(fb), name)
		if !ok {
			return
		}
		for i, att := range pobj.(*renderPassObj).attachments {
			if att.LoadOp != vk.AttachmentLoadOpClear || i >= len(clears) || i >= len(fobj.(*framebufferObj).views) {
				continue
			}
			vh := fobj.(*framebufferObj).views[i]
			vobj, ok := d.get(KindImageView, vh.ptr(), name)
			if !ok {
				continue
			}
			img := d.execImage(vk.Image(vobj.(*imageViewObj).image.ptr()), name)
			if img == nil {
				continue
			}
			color := *(*[4]float32)(unsafe.Pointer(&clears[i]))
			fill(img.bytes(0), encodeColor(img.format, color))
		}
	}, func(c *commandBufferObj) { c.inRenderPass = true })
}

func (d *Driver) CmdEndRenderPass(cb vk.CommandBuffer) {
	d.record(cb, "vkCmdEndRenderPass", insidePass, nil, func(c *commandBufferObj) { c.inRenderPass = false })
}

func (d *Driver) CmdBindPipeline(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	const name = "vkCmdBindPipeline"
	d.record(cb, name, anywhere, func(d *Driver) {
		if obj, ok := d.get(KindPipeline, unsafe.Pointer(pipeline), name); ok && obj.(*pipelineObj).bindPoint != bindPoint {
			d.report("%s: pipeline bind point mismatch", name)
		}
	})
}

func (d *Driver) CmdBindDescriptorSets(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	const name = "vkCmdBindDescriptorSets"
	sets = append([]vk.DescriptorSet(nil), sets...)
	d.record(cb, name, anywhere, func(d *Driver) {
		d.get(KindPipelineLayout, unsafe.Pointer(layout), name)
		for _, s := range sets {
			d.get(KindDescriptorSet, unsafe.Pointer(s), name)
		}
	})
}

func (d *Driver) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	const name = "vkCmdBindIndexBuffer"
	d.record(cb, name, anywhere, func(d *Driver) { d.get(KindBuffer, unsafe.Pointer(buffer), name) })
}

func (d *Driver) CmdBindVertexBuffers(cb vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	const name = "vkCmdBindVertexBuffers"
	if len(buffers) != len(offsets) {
		d.mu.Lock()
		d.report("%s: %d buffers but %d offsets", name, len(buffers), len(offsets))
		d.mu.Unlock()
		return
	}
	buffers = append([]vk.Buffer(nil), buffers...)
	d.record(cb, name, anywhere, func(d *Driver) {
		for _, b := range buffers {
			d.get(KindBuffer, unsafe.Pointer(b), name)
		}
	})
}

func (d *Driver) CmdBlitImage(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	const name = "vkCmdBlitImage"
	regions = append([]vk.ImageBlit(nil), regions...)
	d.record(cb, name, outsidePass, func(d *Driver) {
		s, t := d.execImage(src, name), d.execImage(dst, name)
		if s == nil || t == nil {
			return
		}
		for _, r := range regions {
			blit(s, t, r)
		}
	})
}

// blit scales with nearest filtering. Formats must match in texel size.
func blit(s, t *imageObj, r vk.ImageBlit) {
	ts := s.texelSize()
	if t.texelSize() != ts {
		return
	}
	sb, tb := s.bytes(r.SrcSubresource.BaseArrayLayer), t.bytes(r.DstSubresource.BaseArrayLayer)
	sx0, sy0 := int(r.SrcOffsets[0].X), int(r.SrcOffsets[0].Y)
	sw, sh := int(r.SrcOffsets[1].X)-sx0, int(r.SrcOffsets[1].Y)-sy0
	dx0, dy0 := int(r.DstOffsets[0].X), int(r.DstOffsets[0].Y)
	dw, dh := int(r.DstOffsets[1].X)-dx0, int(r.DstOffsets[1].Y)-dy0
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return
	}
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			sx, sy := sx0+x*sw/dw, sy0+y*sh/dh
			so := (sy*int(s.extent.Width) + sx) * ts
			do := ((dy0+y)*int(t.extent.Width) + dx0 + x) * ts
			copy(tb[do:do+ts], sb[so:so+ts])
		}
	}
}

func (d *Driver) CmdClearColorImage(cb vk.CommandBuffer, img vk.Image, layout vk.ImageLayout, color [4]float32, ranges []vk.ImageSubresourceRange) {
	const name = "vkCmdClearColorImage"
	ranges = append([]vk.ImageSubresourceRange(nil), ranges...)
	d.record(cb, name, outsidePass, func(d *Driver) {
		i := d.execImage(img, name)
		if i == nil {
			return
		}
		texel := encodeColor(i.format, color)
		for _, r := range ranges {
			count := r.LayerCount
			if count == remainingLayers {
				count = i.layers - r.BaseArrayLayer
			}
			for l := r.BaseArrayLayer; l < r.BaseArrayLayer+count && l < i.layers; l++ {
				fill(i.bytes(l), texel)
			}
		}
	})
}

func (d *Driver) CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	const name = "vkCmdCopyBuffer"
	regions = append([]vk.BufferCopy(nil), regions...)
	d.record(cb, name, outsidePass, func(d *Driver) {
		s, t := d.execBuffer(src, name), d.execBuffer(dst, name)
		if s == nil || t == nil {
			return
		}
		for _, r := range regions {
			if r.SrcOffset+r.Size > vk.DeviceSize(len(s)) || r.DstOffset+r.Size > vk.DeviceSize(len(t)) {
				d.report("%s: region of %d bytes is out of bounds", name, r.Size)
				continue
			}
			copy(t[r.DstOffset:r.DstOffset+r.Size], s[r.SrcOffset:r.SrcOffset+r.Size])
		}
	})
}

// texelCopy moves rows between a tightly described buffer and an image.
func (d *Driver) texelCopy(name string, buf []byte, img *imageObj, r vk.BufferImageCopy, toImage bool) {
	ts := img.texelSize()
	rowLen := int(r.BufferRowLength)
	if rowLen == 0 {
		rowLen = int(r.ImageExtent.Width)
	}
	w, h := int(r.ImageExtent.Width), int(r.ImageExtent.Height)
	ox, oy := int(r.ImageOffset.X), int(r.ImageOffset.Y)
	if ox+w > int(img.extent.Width) || oy+h > int(img.extent.Height) {
		d.report("%s: region exceeds image extent", name)
		return
	}
	needed := int(r.BufferOffset) + ((h-1)*rowLen+w)*ts
	if h > 0 && needed > len(buf) {
		d.report("%s: region needs %d bytes, buffer has %d", name, needed, len(buf))
		return
	}
	layer := img.bytes(r.ImageSubresource.BaseArrayLayer)
	for y := 0; y < h; y++ {
		bo := int(r.BufferOffset) + y*rowLen*ts
		io := ((oy+y)*int(img.extent.Width) + ox) * ts
		if toImage {
			copy(layer[io:io+w*ts], buf[bo:bo+w*ts])
		} else {
			copy(buf[bo:bo+w*ts], layer[io:io+w*ts])
		}
	}
}

func (d *Driver) CmdCopyBufferToImage(cb vk.CommandBuffer, src vk.Buffer, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.BufferImageCopy) {
	const name = "vkCmdCopyBufferToImage"
	regions = append([]vk.BufferImageCopy(nil), regions...)
	d.record(cb, name, outsidePass, func(d *Driver) {
		b, i := d.execBuffer(src, name), d.execImage(dst, name)
		if b == nil || i == nil {
			return
		}
		for _, r := range regions {
			d.texelCopy(name, b, i, r, true)
		}
	})
}

func (d *Driver) CmdCopyImageToBuffer(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Buffer, regions []vk.BufferImageCopy) {
	const name = "vkCmdCopyImageToBuffer"
	regions = append([]vk.BufferImageCopy(nil), regions...)
	d.record(cb, name, outsidePass, func(d *Driver) {
		i, b := d.execImage(src, name), d.execBuffer(dst, name)
		if b == nil || i == nil {
			return
		}
		for _, r := range regions {
			d.texelCopy(name, b, i, r, false)
		}
	})
}

func (d *Driver) CmdCopyImage(cb vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageCopy) {
	const name = "vkCmdCopyImage"
	regions = append([]vk.ImageCopy(nil), regions...)
	d.record(cb, name, outsidePass, func(d *Driver) {
		s, t := d.execImage(src, name), d.execImage(dst, name)
		if s == nil || t == nil {
			return
		}
		for _, r := range regions {
			blit(s, t, vk.ImageBlit{
				SrcSubresource: r.SrcSubresource,
				SrcOffsets: [2]vk.Offset3D{r.SrcOffset, {
					X: r.SrcOffset.X + int32(r.Extent.Width), Y: r.SrcOffset.Y + int32(r.Extent.Height), Z: 1}},
				DstSubresource: r.DstSubresource,
				DstOffsets: [2]vk.Offset3D{r.DstOffset, {
					X: r.DstOffset.X + int32(r.Extent.Width), Y: r.DstOffset.Y + int32(r.Extent.Height), Z: 1}},
			})
		}
	})
}

func (d *Driver) CmdDispatch(cb vk.CommandBuffer, x, y, z uint32) {
	d.record(cb, "vkCmdDispatch", outsidePass, func(d *Driver) { d.stats.Dispatches++ })
}

func (d *Driver) CmdDispatchBase(proc driver.ProcAddr, cb vk.CommandBuffer, baseX, baseY, baseZ, x, y, z uint32) {
	if !d.resolved(proc, "vkCmdDispatchBase") {
		return
	}
	d.record(cb, "vkCmdDispatchBase", outsidePass, func(d *Driver) { d.stats.Dispatches++ })
}

func (d *Driver) CmdDispatchIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize) {
	const name = "vkCmdDispatchIndirect"
	d.record(cb, name, outsidePass, func(d *Driver) {
		if d.execBuffer(buffer, name) != nil {
			d.stats.Dispatches++
		}
	})
}

func (d *Driver) draw(cb vk.CommandBuffer, name string, count func(d *Driver) int) {
	d.record(cb, name, insidePass, func(d *Driver) { d.stats.Draws += count(d) })
}

func one(*Driver) int { return 1 }

func (d *Driver) CmdDraw(cb vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	d.draw(cb, "vkCmdDraw", one)
}

func (d *Driver) CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.draw(cb, "vkCmdDrawIndexed", one)
}

func (d *Driver) indirect(cb vk.CommandBuffer, name string, buffer vk.Buffer, drawCount uint32) {
	d.draw(cb, name, func(d *Driver) int {
		if d.execBuffer(buffer, name) == nil {
			return 0
		}
		return int(drawCount)
	})
}

func (d *Driver) CmdDrawIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32) {
	d.indirect(cb, "vkCmdDrawIndirect", buffer, drawCount)
}

func (d *Driver) CmdDrawIndexedIndirect(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32) {
	d.indirect(cb, "vkCmdDrawIndexedIndirect", buffer, drawCount)
}

// countedDraws reads the draw count from countBuffer at execution time.
func (d *Driver) countedDraws(cb vk.CommandBuffer, name string, buffer, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount uint32) {
	d.draw(cb, name, func(d *Driver) int {
		if d.execBuffer(buffer, name) == nil {
			return 0
		}
		cnt := d.execBuffer(countBuffer, name)
		if cnt == nil || countOffset+4 > vk.DeviceSize(len(cnt)) {
			return 0
		}
		return int(min(binary.LittleEndian.Uint32(cnt[countOffset:]), maxDrawCount))
	})
}

func (d *Driver) resolved(proc driver.ProcAddr, name string) bool {
	if proc != nil {
		return true
	}
	d.mu.Lock()
	d.report("%s: entry point was not resolved", name)
	d.mu.Unlock()
	return false
}

func (d *Driver) CmdDrawIndirectCount(proc driver.ProcAddr, cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32) {
	if d.resolved(proc, "vkCmdDrawIndirectCount") {
		d.countedDraws(cb, "vkCmdDrawIndirectCount", buffer, countBuffer, countOffset, maxDrawCount)
	}
}

func (d *Driver) CmdDrawIndexedIndirectCount(proc driver.ProcAddr, cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, countBuffer vk.Buffer, countOffset vk.DeviceSize, maxDrawCount, stride uint32) {
	if d.resolved(proc, "vkCmdDrawIndexedIndirectCount") {
		d.countedDraws(cb, "vkCmdDrawIndexedIndirectCount", buffer, countBuffer, countOffset, maxDrawCount)
	}
}

func (d *Driver) CmdFillBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset, size vk.DeviceSize, data uint32) {
	const name = "vkCmdFillBuffer"
	d.record(cb, name, outsidePass, func(d *Driver) {
		b := d.execBuffer(buffer, name)
		if b == nil {
			return
		}
		end := offset + size
		if size == wholeSize {
			end = vk.DeviceSize(len(b))
			end -= (end - offset) % 4
		}
		if offset%4 != 0 || end > vk.DeviceSize(len(b)) || (end-offset)%4 != 0 {
			d.report("%s: range [%d, %d) is misaligned or out of bounds", name, offset, end)
			return
		}
		var word [4]byte
		binary.LittleEndian.PutUint32(word[:], data)
		fill(b[offset:end], word[:])
	})
}

func (d *Driver) CmdPipelineBarrier(cb vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, deps vk.DependencyFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	const name = "vkCmdPipelineBarrier"
	bufs := make([]vk.Buffer, len(buffers))
	for i, b := range buffers {
		bufs[i] = b.Buffer
	}
	imgs := make([]vk.Image, len(images))
	for i, im := range images {
		imgs[i] = im.Image
	}
	d.record(cb, name, anywhere, func(d *Driver) {
		for _, b := range bufs {
			d.get(KindBuffer, unsafe.Pointer(b), name)
		}
		for _, im := range imgs {
			d.get(KindImage, unsafe.Pointer(im), name)
		}
		d.stats.Barriers++
	})
}

func (d *Driver) CmdPushConstants(cb vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	const name = "vkCmdPushConstants"
	if offset%4 != 0 || len(data)%4 != 0 || offset+uint32(len(data)) > 128 {
		d.mu.Lock()
		d.report("%s: range [%d, %d) violates push constant limits", name, offset, offset+uint32(len(data)))
		d.mu.Unlock()
		return
	}
	d.record(cb, name, anywhere, func(d *Driver) { d.get(KindPipelineLayout, unsafe.Pointer(layout), name) })
}

func (d *Driver) CmdSetBlendConstants(cb vk.CommandBuffer, constants [4]float32) {
	d.record(cb, "vkCmdSetBlendConstants", anywhere, nil)
}

func (d *Driver) CmdSetDepthBias(cb vk.CommandBuffer, constantFactor, clamp, slopeFactor float32) {
	d.record(cb, "vkCmdSetDepthBias", anywhere, nil)
}

func (d *Driver) CmdSetDepthBounds(cb vk.CommandBuffer, min, max float32) {
	if min > max {
		d.mu.Lock()
		d.report("vkCmdSetDepthBounds: min %g exceeds max %g", min, max)
		d.mu.Unlock()
		return
	}
	d.record(cb, "vkCmdSetDepthBounds", anywhere, nil)
}

func (d *Driver) CmdSetDeviceMask(proc driver.ProcAddr, cb vk.CommandBuffer, mask uint32) {
	if !d.resolved(proc, "vkCmdSetDeviceMask") {
		return
	}
	if mask == 0 {
		d.mu.Lock()
		d.report("vkCmdSetDeviceMask: mask must not be zero")
		d.mu.Unlock()
		return
	}
	d.record(cb, "vkCmdSetDeviceMask", anywhere, nil)
}

func (d *Driver) CmdSetLineWidth(cb vk.CommandBuffer, width float32) {
	d.record(cb, "vkCmdSetLineWidth", anywhere, nil)
}

func (d *Driver) CmdSetEvent(cb vk.CommandBuffer, event vk.Event, stage vk.PipelineStageFlags) {
	const name = "vkCmdSetEvent"
	d.record(cb, name, outsidePass, func(d *Driver) {
		if e := d.event(event, name); e != nil {
			e.set = true
		}
	})
}

func (d *Driver) CmdResetEvent(cb vk.CommandBuffer, event vk.Event, stage vk.PipelineStageFlags) {
	const name = "vkCmdResetEvent"
	d.record(cb, name, outsidePass, func(d *Driver) {
		if e := d.event(event, name); e != nil {
			e.set = false
		}
	})
}

func (d *Driver) CmdSetScissor(cb vk.CommandBuffer, first uint32, scissors []vk.Rect2D) {
	d.record(cb, "vkCmdSetScissor", anywhere, nil)
}

func (d *Driver) CmdSetStencilCompareMask(cb vk.CommandBuffer, face vk.StencilFaceFlags, mask uint32) {
	d.record(cb, "vkCmdSetStencilCompareMask", anywhere, nil)
}

func (d *Driver) CmdSetStencilReference(cb vk.CommandBuffer, face vk.StencilFaceFlags, reference uint32) {
	d.record(cb, "vkCmdSetStencilReference", anywhere, nil)
}

func (d *Driver) CmdSetStencilWriteMask(cb vk.CommandBuffer, face vk.StencilFaceFlags, mask uint32) {
	d.record(cb, "vkCmdSetStencilWriteMask", anywhere, nil)
}

func (d *Driver) CmdSetViewport(cb vk.CommandBuffer, first uint32, viewports []vk.Viewport) {
	d.record(cb, "vkCmdSetViewport", anywhere, nil)
}

func (d *Driver) CmdUpdateBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, data []byte) {
	const name = "vkCmdUpdateBuffer"
	if offset%4 != 0 || len(data)%4 != 0 || len(data) == 0 || len(data) > 65536 {
		d.mu.Lock()
		d.report("%s: %d bytes at offset %d violates update limits", name, len(data), offset)
		d.mu.Unlock()
		return
	}
	data = append([]byte(nil), data...)
	d.record(cb, name, outsidePass, func(d *Driver) {
		b := d.execBuffer(buffer, name)
		if b == nil {
			return
		}
		if offset+vk.DeviceSize(len(data)) > vk.DeviceSize(len(b)) {
			d.report("%s: update of %d bytes at %d is out of bounds", name, len(data), offset)
			return
		}
		copy(b[offset:], data)
	})
}

// CmdWaitEvents checks at execution that every event is set. Work never
// runs concurrently here, so an unset event is a deadlock on real hardware.
func (d *Driver) CmdWaitEvents(cb vk.CommandBuffer, events []vk.Event, srcStage, dstStage vk.PipelineStageFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	const name = "vkCmdWaitEvents"
	events = append([]vk.Event(nil), events...)
	d.record(cb, name, anywhere, func(d *Driver) {
		for _, ev := range events {
			if e := d.event(ev, name); e != nil && !e.set {
				d.report("%s: event %#x is not set when the wait executes", name, uint32(handleOf(unsafe.Pointer(ev))))
			}
		}
		d.stats.Barriers++
	})
}
