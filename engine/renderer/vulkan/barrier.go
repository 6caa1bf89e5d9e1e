package vulkan

import (
	vk "github.com/goki/vulkan"
)

// WholeSize covers a buffer or memory range from the offset to the end.
const WholeSize = ^vk.DeviceSize(0)

// Barrier is one of GlobalBarrier, BufferBarrier or ImageBarrier. The three
// share only their access masks.
type Barrier interface {
	AccessMasks() (src, dst vk.AccessFlags)
	barrier()
}

type GlobalBarrier struct {
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
}

// BufferBarrier covers Size bytes of Buffer from Offset. The queue families
// only apply when Transfer is set.
type BufferBarrier struct {
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	Buffer    *VulkanBuffer
	Offset    vk.DeviceSize
	// Size defaults to WholeSize.
	Size vk.DeviceSize

	Transfer       bool
	SrcQueueFamily uint32
	DstQueueFamily uint32
}

type ImageBarrier struct {
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	Image     *VulkanImage
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
	// Range defaults to every mip level and layer of the format aspect.
	Range *vk.ImageSubresourceRange

	Transfer       bool
	SrcQueueFamily uint32
	DstQueueFamily uint32
}

func (b GlobalBarrier) AccessMasks() (vk.AccessFlags, vk.AccessFlags) {
	return b.SrcAccess, b.DstAccess
}

func (b BufferBarrier) AccessMasks() (vk.AccessFlags, vk.AccessFlags) {
	return b.SrcAccess, b.DstAccess
}

func (b ImageBarrier) AccessMasks() (vk.AccessFlags, vk.AccessFlags) {
	return b.SrcAccess, b.DstAccess
}

func (GlobalBarrier) barrier() {}
func (BufferBarrier) barrier() {}
func (ImageBarrier) barrier()  {}

func queueFamilies(transfer bool, src, dst uint32) (uint32, uint32) {
	if !transfer {
		return vk.QueueFamilyIgnored, vk.QueueFamilyIgnored
	}
	return src, dst
}

// splitBarriers sorts barriers into the three native arrays, keeping the
// relative order within each kind.
func splitBarriers(barriers []Barrier) ([]vk.MemoryBarrier, []vk.BufferMemoryBarrier, []vk.ImageMemoryBarrier) {
	var memory []vk.MemoryBarrier
	var buffers []vk.BufferMemoryBarrier
	var images []vk.ImageMemoryBarrier
	for _, b := range barriers {
		switch b := b.(type) {
		case GlobalBarrier:
			memory = append(memory, vk.MemoryBarrier{
				SType:         vk.StructureTypeMemoryBarrier,
				SrcAccessMask: b.SrcAccess,
				DstAccessMask: b.DstAccess,
			})
		case BufferBarrier:
			size := b.Size
			if size == 0 {
				size = WholeSize
			}
			src, dst := queueFamilies(b.Transfer, b.SrcQueueFamily, b.DstQueueFamily)
			buffers = append(buffers, vk.BufferMemoryBarrier{
				SType:               vk.StructureTypeBufferMemoryBarrier,
				SrcAccessMask:       b.SrcAccess,
				DstAccessMask:       b.DstAccess,
				SrcQueueFamilyIndex: src,
				DstQueueFamilyIndex: dst,
				Buffer:              b.Buffer.handle,
				Offset:              b.Offset,
				Size:                size,
			})
		case ImageBarrier:
			rng := b.Image.fullRange()
			if b.Range != nil {
				rng = *b.Range
			}
			src, dst := queueFamilies(b.Transfer, b.SrcQueueFamily, b.DstQueueFamily)
			images = append(images, vk.ImageMemoryBarrier{
				SType:               vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:       b.SrcAccess,
				DstAccessMask:       b.DstAccess,
				OldLayout:           b.OldLayout,
				NewLayout:           b.NewLayout,
				SrcQueueFamilyIndex: src,
				DstQueueFamilyIndex: dst,
				Image:               b.Image.handle,
				SubresourceRange:    rng,
			})
		}
	}
	return memory, buffers, images
}
