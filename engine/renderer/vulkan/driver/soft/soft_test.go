package soft

import (
	"encoding/binary"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
)

type fixture struct {
	d      *Driver
	inst   vk.Instance
	pd     vk.PhysicalDevice
	dev    vk.Device
	queue  vk.Queue
	pool   vk.CommandPool
	hostMT uint32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := New(DefaultConfig())
	inst, res := d.CreateInstance(&vk.InstanceCreateInfo{PpEnabledExtensionNames: []string{"VK_KHR_surface\x00"}})
	if res != vk.Success {
		t.Fatalf("CreateInstance: %d", res)
	}
	var n uint32
	d.EnumeratePhysicalDevices(inst, &n, nil)
	pds := make([]vk.PhysicalDevice, n)
	if res := d.EnumeratePhysicalDevices(inst, &n, pds); res != vk.Success || n != 1 {
		t.Fatalf("EnumeratePhysicalDevices: %d, %d devices", res, n)
	}
	dev, res := d.CreateDevice(pds[0], &vk.DeviceCreateInfo{
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{{QueueFamilyIndex: 0, QueueCount: 1, PQueuePriorities: []float32{1}}},
		PpEnabledExtensionNames: []string{"VK_KHR_swapchain\x00"},
	})
	if res != vk.Success {
		t.Fatalf("CreateDevice: %d", res)
	}
	pool, res := d.CreateCommandPool(dev, &vk.CommandPoolCreateInfo{
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	})
	if res != vk.Success {
		t.Fatalf("CreateCommandPool: %d", res)
	}
	return &fixture{d: d, inst: inst, pd: pds[0], dev: dev, queue: d.GetDeviceQueue(dev, 0, 0), pool: pool, hostMT: 1}
}

func (f *fixture) hostBuffer(t *testing.T, size vk.DeviceSize) (vk.Buffer, vk.DeviceMemory) {
	t.Helper()
	buf, res := f.d.CreateBuffer(f.dev, &vk.BufferCreateInfo{Size: size})
	if res != vk.Success {
		t.Fatalf("CreateBuffer: %d", res)
	}
	req := f.d.GetBufferMemoryRequirements(f.dev, buf)
	mem, res := f.d.AllocateMemory(f.dev, &vk.MemoryAllocateInfo{AllocationSize: req.Size, MemoryTypeIndex: f.hostMT})
	if res != vk.Success {
		t.Fatalf("AllocateMemory: %d", res)
	}
	if res := f.d.BindBufferMemory(f.dev, buf, mem, 0); res != vk.Success {
		t.Fatalf("BindBufferMemory: %d", res)
	}
	return buf, mem
}

func (f *fixture) commandBuffer(t *testing.T) vk.CommandBuffer {
	t.Helper()
	cbs, res := f.d.AllocateCommandBuffers(f.dev, &vk.CommandBufferAllocateInfo{
		CommandPool: f.pool, Level: vk.CommandBufferLevelPrimary, CommandBufferCount: 1,
	})
	if res != vk.Success {
		t.Fatalf("AllocateCommandBuffers: %d", res)
	}
	return cbs[0]
}

func TestHandleEncoding(t *testing.T) {
	h := makeHandle(KindBuffer, 7, 41)
	if h.kind() != KindBuffer || h.gen() != 7 || h.slot() != 41 {
		t.Fatalf("decoded %v/%d/%d", h.kind(), h.gen(), h.slot())
	}
	if uint32(h) < 1<<24 {
		t.Fatalf("handle %#x is below the kind byte", uint32(h))
	}
	if handleOf(h.ptr()) != h {
		t.Fatal("pointer round trip changed the handle")
	}
}

func TestArenaReuseBumpsGeneration(t *testing.T) {
	a := arena{kind: KindFence}
	first, _ := a.alloc(0, &fenceObj{})
	a.release(first)
	second, _ := a.alloc(0, &fenceObj{})
	if first.slot() != second.slot() {
		t.Fatalf("slot not reused: %d vs %d", first.slot(), second.slot())
	}
	if _, ok := a.lookup(first); ok {
		t.Fatal("stale handle still resolves")
	}
	if _, ok := a.lookup(second); !ok {
		t.Fatal("fresh handle does not resolve")
	}
}

func TestUseAfterDestroyIsReported(t *testing.T) {
	f := newFixture(t)
	fence, _ := f.d.CreateFence(f.dev, &vk.FenceCreateInfo{})
	f.d.DestroyFence(f.dev, fence)
	if res := f.d.GetFenceStatus(f.dev, fence); res != vk.ErrorDeviceLost {
		t.Fatalf("GetFenceStatus on destroyed fence = %d", res)
	}
	if !f.d.HasMessage("use of destroyed Fence") {
		t.Fatalf("messages = %v", f.d.Messages())
	}
	f.d.ClearMessages()
	f.d.DestroyFence(f.dev, fence)
	if !f.d.HasMessage("double destroy") {
		t.Fatalf("messages = %v", f.d.Messages())
	}
}

func TestDestroyDeviceReportsLiveChildren(t *testing.T) {
	f := newFixture(t)
	f.d.CreateSemaphore(f.dev, &vk.SemaphoreCreateInfo{})
	f.d.DestroyDevice(f.dev)
	if !f.d.HasMessage("live children") || !f.d.HasMessage("Semaphore x1") {
		t.Fatalf("messages = %v", f.d.Messages())
	}
	if n := f.d.LiveObjects(KindSemaphore); n != 0 {
		t.Fatalf("%d semaphores survive device destruction", n)
	}
}

func TestSubmissionRunsWhenFenceIsWaited(t *testing.T) {
	f := newFixture(t)
	buf, mem := f.hostBuffer(t, 64)
	cb := f.commandBuffer(t)
	f.d.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{})
	f.d.CmdFillBuffer(cb, buf, 0, wholeSize, 0xAABBCCDD)
	f.d.CmdUpdateBuffer(cb, buf, 8, []byte{1, 2, 3, 4})
	if res := f.d.EndCommandBuffer(cb); res != vk.Success {
		t.Fatalf("EndCommandBuffer: %d", res)
	}
	fence, _ := f.d.CreateFence(f.dev, &vk.FenceCreateInfo{})
	if res := f.d.QueueSubmit(f.queue, []vk.SubmitInfo{{PCommandBuffers: []vk.CommandBuffer{cb}}}, fence); res != vk.Success {
		t.Fatalf("QueueSubmit: %d", res)
	}
	if got := f.d.GetFenceStatus(f.dev, fence); got != vk.NotReady {
		t.Fatalf("fence status before wait = %d", got)
	}
	if got := f.d.CommandBufferState(cb); got != "pending" {
		t.Fatalf("state = %s", got)
	}
	if res := f.d.WaitForFences(f.dev, []vk.Fence{fence}, true, infinite); res != vk.Success {
		t.Fatalf("WaitForFences: %d", res)
	}
	p, _ := f.d.MapMemory(f.dev, mem, 0, wholeSize)
	data := unsafe.Slice((*byte)(p), 64)
	if got := binary.LittleEndian.Uint32(data[0:]); got != 0xAABBCCDD {
		t.Fatalf("word 0 = %#x", got)
	}
	if data[8] != 1 || data[11] != 4 {
		t.Fatalf("update not applied: % x", data[8:12])
	}
	if got := f.d.CommandBufferState(cb); got != "executable" {
		t.Fatalf("state after execution = %s", got)
	}
}

func TestWaitWithoutPendingSignalTimesOut(t *testing.T) {
	f := newFixture(t)
	fence, _ := f.d.CreateFence(f.dev, &vk.FenceCreateInfo{})
	if res := f.d.WaitForFences(f.dev, []vk.Fence{fence}, true, 1000); res != vk.Timeout {
		t.Fatalf("finite wait = %d", res)
	}
	if f.d.HasMessage("waiting forever") {
		t.Fatal("finite wait reported as deadlock")
	}
	if res := f.d.WaitForFences(f.dev, []vk.Fence{fence}, true, infinite); res != vk.Timeout {
		t.Fatalf("infinite wait = %d", res)
	}
	if !f.d.HasMessage("waiting forever") {
		t.Fatalf("messages = %v", f.d.Messages())
	}
}

func TestTimelineSemaphore(t *testing.T) {
	f := newFixture(t)
	proc := f.d.DeviceProcAddr(f.dev, "vkWaitSemaphores")
	if proc == nil {
		t.Fatal("vkWaitSemaphores not resolved")
	}
	sem, res := f.d.CreateTimelineSemaphore(f.dev, 5)
	if res != vk.Success {
		t.Fatalf("CreateTimelineSemaphore: %d", res)
	}
	if res := f.d.QueueSubmitTimeline(f.queue, []vk.SubmitInfo{{PSignalSemaphores: []vk.Semaphore{sem}}}, nil, [][]uint64{{9}}, nil); res != vk.Success {
		t.Fatalf("QueueSubmitTimeline: %d", res)
	}
	if v, _ := f.d.GetSemaphoreCounterValue(proc, f.dev, sem); v != 5 {
		t.Fatalf("value before wait = %d", v)
	}
	if res := f.d.WaitSemaphores(proc, f.dev, []vk.Semaphore{sem}, []uint64{9}, infinite); res != vk.Success {
		t.Fatalf("WaitSemaphores: %d", res)
	}
	if res := f.d.SignalSemaphore(proc, f.dev, sem, 3); res == vk.Success {
		t.Fatal("signal to a lower value succeeded")
	}
}

func TestSwapchainOutOfDateAfterResize(t *testing.T) {
	f := newFixture(t)
	win := f.d.NewWindow(64, 32)
	raw, err := win.CreateWindowSurface(f.inst, nil)
	if err != nil {
		t.Fatal(err)
	}
	surface := f.d.SurfaceFromHandle(raw)
	sc, res := f.d.CreateSwapchain(f.dev, &vk.SwapchainCreateInfo{
		Surface: surface, MinImageCount: 3, ImageFormat: vk.FormatR8g8b8a8Unorm,
		ImageExtent: vk.Extent2D{Width: 64, Height: 32},
	})
	if res != vk.Success {
		t.Fatalf("CreateSwapchain: %d", res)
	}
	sem, _ := f.d.CreateSemaphore(f.dev, &vk.SemaphoreCreateInfo{})
	idx, res := f.d.AcquireNextImage(f.dev, sc, infinite, sem, nil)
	if res != vk.Success || idx != 0 {
		t.Fatalf("acquire = %d, %d", idx, res)
	}
	if res := f.d.QueuePresent(f.queue, &vk.PresentInfo{
		PWaitSemaphores: []vk.Semaphore{sem}, PSwapchains: []vk.Swapchain{sc}, PImageIndices: []uint32{idx},
	}); res != vk.Success {
		t.Fatalf("present: %d", res)
	}
	f.d.QueueWaitIdle(f.queue)
	if win.Presents() != 1 || win.Snapshot() == nil {
		t.Fatalf("presents = %d", win.Presents())
	}
	win.Resize(80, 40)
	if _, res := f.d.AcquireNextImage(f.dev, sc, infinite, sem, nil); res != vk.ErrorOutOfDate {
		t.Fatalf("acquire after resize = %d", res)
	}
}

func TestAcquireBlocksWhenAllImagesHeld(t *testing.T) {
	f := newFixture(t)
	win := f.d.NewWindow(8, 8)
	raw, _ := win.CreateWindowSurface(f.inst, nil)
	sc, _ := f.d.CreateSwapchain(f.dev, &vk.SwapchainCreateInfo{
		Surface: f.d.SurfaceFromHandle(raw), MinImageCount: 2, ImageFormat: vk.FormatB8g8r8a8Unorm,
		ImageExtent: vk.Extent2D{Width: 8, Height: 8},
	})
	for i := 0; i < 2; i++ {
		fence, _ := f.d.CreateFence(f.dev, &vk.FenceCreateInfo{})
		if _, res := f.d.AcquireNextImage(f.dev, sc, infinite, nil, fence); res != vk.Success {
			t.Fatalf("acquire %d = %d", i, res)
		}
	}
	fence, _ := f.d.CreateFence(f.dev, &vk.FenceCreateInfo{})
	if _, res := f.d.AcquireNextImage(f.dev, sc, 0, nil, fence); res != vk.NotReady {
		t.Fatalf("non-blocking acquire = %d", res)
	}
	if _, res := f.d.AcquireNextImage(f.dev, sc, infinite, nil, fence); res != vk.Timeout {
		t.Fatalf("blocking acquire = %d", res)
	}
	if !f.d.HasMessage("can never complete") {
		t.Fatalf("messages = %v", f.d.Messages())
	}
}

func TestClearAndReadBackImage(t *testing.T) {
	f := newFixture(t)
	img, _ := f.d.CreateImage(f.dev, &vk.ImageCreateInfo{
		Format: vk.FormatR8g8b8a8Unorm, Extent: vk.Extent3D{Width: 4, Height: 4, Depth: 1}, MipLevels: 1, ArrayLayers: 1,
	})
	req := f.d.GetImageMemoryRequirements(f.dev, img)
	mem, _ := f.d.AllocateMemory(f.dev, &vk.MemoryAllocateInfo{AllocationSize: req.Size, MemoryTypeIndex: 0})
	f.d.BindImageMemory(f.dev, img, mem, 0)
	buf, bufMem := f.hostBuffer(t, 64)

	cb := f.commandBuffer(t)
	f.d.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{})
	f.d.CmdClearColorImage(cb, img, vk.ImageLayoutTransferDstOptimal, [4]float32{1, 0, 0, 1},
		[]vk.ImageSubresourceRange{{LevelCount: 1, LayerCount: 1}})
	f.d.CmdCopyImageToBuffer(cb, img, vk.ImageLayoutTransferSrcOptimal, buf, []vk.BufferImageCopy{{
		ImageExtent: vk.Extent3D{Width: 4, Height: 4, Depth: 1},
	}})
	f.d.EndCommandBuffer(cb)
	f.d.QueueSubmit(f.queue, []vk.SubmitInfo{{PCommandBuffers: []vk.CommandBuffer{cb}}}, nil)
	f.d.QueueWaitIdle(f.queue)

	p, _ := f.d.MapMemory(f.dev, bufMem, 0, wholeSize)
	data := unsafe.Slice((*byte)(p), 64)
	for i := 0; i < 16; i++ {
		px := data[i*4 : i*4+4]
		if px[0] != 255 || px[1] != 0 || px[2] != 0 || px[3] != 255 {
			t.Fatalf("texel %d = % x", i, px)
		}
	}
	if msgs := f.d.Messages(); len(msgs) != 0 {
		t.Fatalf("unexpected messages %v", msgs)
	}
}

func TestDrawOutsideRenderPassIsRejected(t *testing.T) {
	f := newFixture(t)
	cb := f.commandBuffer(t)
	f.d.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{})
	f.d.CmdDraw(cb, 3, 1, 0, 0)
	if !f.d.HasMessage("inside a render pass") {
		t.Fatalf("messages = %v", f.d.Messages())
	}
}

func TestDescriptorPoolExhaustion(t *testing.T) {
	f := newFixture(t)
	layout, _ := f.d.CreateDescriptorSetLayout(f.dev, &vk.DescriptorSetLayoutCreateInfo{
		PBindings: []vk.DescriptorSetLayoutBinding{{Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1}},
	})
	pool, _ := f.d.CreateDescriptorPool(f.dev, &vk.DescriptorPoolCreateInfo{MaxSets: 1})
	info := &vk.DescriptorSetAllocateInfo{DescriptorPool: pool, PSetLayouts: []vk.DescriptorSetLayout{layout}}
	if _, res := f.d.AllocateDescriptorSets(f.dev, info); res != vk.Success {
		t.Fatalf("first allocation = %d", res)
	}
	if _, res := f.d.AllocateDescriptorSets(f.dev, info); res != vk.ErrorOutOfPoolMemory {
		t.Fatalf("second allocation = %d", res)
	}
	f.d.ResetDescriptorPool(f.dev, pool)
	if _, res := f.d.AllocateDescriptorSets(f.dev, info); res != vk.Success {
		t.Fatalf("allocation after reset = %d", res)
	}
}

func TestPipelineCacheBlobRoundTrip(t *testing.T) {
	f := newFixture(t)
	cache, _ := f.d.CreatePipelineCache(f.dev, &vk.PipelineCacheCreateInfo{})
	layout, _ := f.d.CreatePipelineLayout(f.dev, &vk.PipelineLayoutCreateInfo{})
	module, _ := f.d.CreateShaderModule(f.dev, &vk.ShaderModuleCreateInfo{CodeSize: 8, PCode: []uint32{spirvMagic, 0}})
	if _, res := f.d.CreateComputePipelines(f.dev, cache, []vk.ComputePipelineCreateInfo{{
		Stage: vk.PipelineShaderStageCreateInfo{Module: module}, Layout: layout,
	}}); res != vk.Success {
		t.Fatalf("CreateComputePipelines: %d", res)
	}
	var size uint64
	f.d.GetPipelineCacheData(f.dev, cache, &size, nil)
	blob := make([]byte, size)
	if res := f.d.GetPipelineCacheData(f.dev, cache, &size, blob); res != vk.Success {
		t.Fatalf("GetPipelineCacheData: %d", res)
	}
	short := make([]byte, 4)
	n := uint64(len(short))
	if res := f.d.GetPipelineCacheData(f.dev, cache, &n, short); res != vk.Incomplete {
		t.Fatalf("short read = %d", res)
	}

	reloaded, _ := f.d.CreatePipelineCache(f.dev, &vk.PipelineCacheCreateInfo{
		InitialDataSize: uint64(len(blob)), PInitialData: unsafe.Pointer(&blob[0]),
	})
	var size2 uint64
	f.d.GetPipelineCacheData(f.dev, reloaded, &size2, nil)
	if size2 != size {
		t.Fatalf("reloaded cache has %d bytes, want %d", size2, size)
	}
}
