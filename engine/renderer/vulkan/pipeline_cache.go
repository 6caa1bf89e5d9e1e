package vulkan

import (
	"bytes"
	"fmt"
	"io"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pierrec/lz4"

	"github.com/spaghettifunk/vkbind/engine/core"
)

type VulkanPipelineCache struct {
	device *VulkanDevice
	handle vk.PipelineCache
	id     trackID
}

// CreatePipelineCache creates a cache seeded with initial, which may be
// empty. Drivers ignore data produced by a different device.
func (d *VulkanDevice) CreatePipelineCache(initial []byte) (*VulkanPipelineCache, error) {
	info := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	if len(initial) > 0 {
		data := append([]byte(nil), initial...)
		info.InitialDataSize = uint64(len(data))
		info.PInitialData = unsafe.Pointer(&data[0])
	}
	handle, res := d.drv.CreatePipelineCache(d.handle, &info)
	if err := d.check("vkCreatePipelineCache", res); err != nil {
		return nil, err
	}
	c := &VulkanPipelineCache{device: d, handle: handle}
	c.id = d.own(c)
	return c, nil
}

// LoadPipelineCache seeds a cache from a stream written by Save.
func (d *VulkanDevice) LoadPipelineCache(r io.Reader) (*VulkanPipelineCache, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lz4.NewReader(r)); err != nil {
		return nil, d.fail(fmt.Errorf("vkCreatePipelineCache: %w: decoding saved cache: %w", core.ErrPrecondition, err))
	}
	return d.CreatePipelineCache(buf.Bytes())
}

func (c *VulkanPipelineCache) Handle() vk.PipelineCache { return c.handle }

func (c *VulkanPipelineCache) native() vk.PipelineCache {
	if c == nil {
		return nil
	}
	return c.handle
}

func (c *VulkanPipelineCache) Destroy() {
	if c.handle == nil {
		return
	}
	c.device.drv.DestroyPipelineCache(c.device.handle, c.handle)
	c.device.disown(c.id)
	c.handle = nil
}

// Data returns the cache contents. The size query is repeated while the
// cache grows between the two calls.
func (c *VulkanPipelineCache) Data() ([]byte, error) {
	const op = "vkGetPipelineCacheData"
	for {
		var size uint64
		if err := c.device.check(op, c.device.drv.GetPipelineCacheData(c.device.handle, c.handle, &size, nil)); err != nil {
			return nil, err
		}
		if size == 0 {
			return nil, nil
		}
		out := make([]byte, size)
		res := c.device.drv.GetPipelineCacheData(c.device.handle, c.handle, &size, out)
		if res == vk.Incomplete {
			continue
		}
		if err := c.device.check(op, res); err != nil {
			return nil, err
		}
		return out[:size], nil
	}
}

// Save writes the cache contents lz4-compressed.
func (c *VulkanPipelineCache) Save(w io.Writer) error {
	data, err := c.Data()
	if err != nil {
		return err
	}
	writer := lz4.NewWriter(w)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		return err
	}
	return writer.Close()
}
