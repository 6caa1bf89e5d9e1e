package vulkan

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

type testEnv struct {
	drv    *soft.Driver
	inst   *VulkanInstance
	device *VulkanDevice
	queue  *VulkanQueue
}

func newTestEnv(t *testing.T, cfg soft.Config, policy FailurePolicy) *testEnv {
	t.Helper()
	drv := soft.New(cfg)
	inst, err := CreateInstance(drv, InstanceConfig{
		ApplicationName: t.Name(),
		Extensions:      []string{"VK_KHR_surface"},
		Policy:          policy,
	})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	pds, err := inst.PhysicalDevices()
	if err != nil || len(pds) != 1 {
		t.Fatalf("PhysicalDevices: %d, %v", len(pds), err)
	}
	device, err := pds[0].CreateDevice(DeviceConfig{
		Queues:     []QueueRequest{{Family: 0, Count: 2}},
		Extensions: []string{"VK_KHR_swapchain"},
	})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	queue, err := device.Queue(0, 0)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	t.Cleanup(func() {
		device.Destroy()
		inst.Destroy()
	})
	return &testEnv{drv: drv, inst: inst, device: device, queue: queue}
}

// recordAborts replaces the abort hook for the duration of the test.
func recordAborts(t *testing.T) *[]error {
	t.Helper()
	var got []error
	prev := abort
	abort = func(err error) { got = append(got, err) }
	t.Cleanup(func() { abort = prev })
	return &got
}

var hostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

func (e *testEnv) hostBuffer(t *testing.T, size vk.DeviceSize, usage vk.BufferUsageFlagBits) (*VulkanBuffer, *VulkanDeviceMemory) {
	t.Helper()
	buf, mem, err := e.device.CreateAllocatedBuffer(BufferConfig{Size: size, Usage: vk.BufferUsageFlags(usage)}, hostVisible)
	if err != nil {
		t.Fatalf("CreateAllocatedBuffer: %v", err)
	}
	t.Cleanup(func() {
		buf.Destroy()
		mem.Destroy()
	})
	return buf, mem
}

func (e *testEnv) commandPool(t *testing.T) *VulkanCommandPool {
	t.Helper()
	pool, err := e.device.CreateCommandPool(CommandPoolConfig{Family: 0})
	if err != nil {
		t.Fatalf("CreateCommandPool: %v", err)
	}
	t.Cleanup(pool.Destroy)
	return pool
}

func TestHandleIsStableUntilDestroy(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	buf, err := env.device.CreateBuffer(BufferConfig{Size: 64, Usage: vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	h := buf.Handle()
	if h == nil || buf.Handle() != h {
		t.Fatalf("handle changed between calls")
	}
	buf.Destroy()
	if buf.Handle() != nil {
		t.Fatalf("handle survives Destroy")
	}
	buf.Destroy()
}

func TestAllocateCommandBuffersAreDistinct(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	pool := env.commandPool(t)
	cbs, err := pool.AllocateCommandBuffers(vk.CommandBufferLevelPrimary, 3)
	if err != nil {
		t.Fatalf("AllocateCommandBuffers: %v", err)
	}
	if len(cbs) != 3 || pool.Allocated() != 3 {
		t.Fatalf("allocated %d, pool tracks %d", len(cbs), pool.Allocated())
	}
	seen := map[vk.CommandBuffer]bool{}
	for _, cb := range cbs {
		if cb.Handle() == nil || seen[cb.Handle()] {
			t.Fatalf("duplicate or null handle %v", cb.Handle())
		}
		seen[cb.Handle()] = true
	}
	if err := pool.FreeCommandBuffers(cbs[0]); err != nil {
		t.Fatalf("FreeCommandBuffers: %v", err)
	}
	if pool.Allocated() != 2 {
		t.Fatalf("after free the pool tracks %d", pool.Allocated())
	}
}

func TestMemoryRequirements(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	buf, err := env.device.CreateBuffer(BufferConfig{Size: 1000, Usage: vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	defer buf.Destroy()
	if req := buf.MemoryRequirements(); req.Size < 1000 || req.MemoryTypeBits == 0 {
		t.Errorf("buffer requirements %+v", req)
	}

	img, err := env.device.CreateImage(ImageConfig{
		Format: vk.FormatR8g8b8a8Unorm,
		Width:  64,
		Height: 32,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageSampledBit),
	})
	if err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	defer img.Destroy()
	if req := img.MemoryRequirements(); req.Size != 64*32*4 {
		t.Errorf("image requirements size %d, want %d", req.Size, 64*32*4)
	}
}

func TestCreateRejectsUnavailableLayersAndExtensions(t *testing.T) {
	drv := soft.New(soft.DefaultConfig())
	_, err := CreateInstance(drv, InstanceConfig{Layers: []string{"VK_LAYER_missing"}, Policy: FailPropagate})
	if !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("missing layer: err = %v, want ErrPrecondition", err)
	}
	_, err = CreateInstance(drv, InstanceConfig{Extensions: []string{"VK_EXT_missing"}, Policy: FailPropagate})
	if !errors.Is(err, core.ErrMissingCapability) {
		t.Errorf("missing instance extension: err = %v, want ErrMissingCapability", err)
	}

	inst, err := CreateInstance(drv, InstanceConfig{Layers: []string{"VK_LAYER_KHRONOS_validation"}, Policy: FailPropagate})
	if err != nil {
		t.Fatalf("CreateInstance with validation layer: %v", err)
	}
	defer inst.Destroy()
	pds, err := inst.PhysicalDevices()
	if err != nil || len(pds) != 1 {
		t.Fatalf("PhysicalDevices: %d, %v", len(pds), err)
	}
	_, err = pds[0].CreateDevice(DeviceConfig{
		Queues:     []QueueRequest{{Family: 0}},
		Extensions: []string{"VK_EXT_missing"},
	})
	if !errors.Is(err, core.ErrMissingCapability) {
		t.Errorf("missing device extension: err = %v, want ErrMissingCapability", err)
	}
}

func TestDeviceTracksLiveChildren(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	fence, err := env.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	live := env.device.LiveChildren()
	if len(live) != 1 || !strings.Contains(live[0], "VulkanFence") {
		t.Fatalf("LiveChildren() = %v", live)
	}
	fence.Destroy()
	if live := env.device.LiveChildren(); len(live) != 0 {
		t.Fatalf("LiveChildren() after destroy = %v", live)
	}

	if _, err := env.device.CreateSemaphore(); err != nil {
		t.Fatalf("CreateSemaphore: %v", err)
	}
	env.device.Destroy()
	if !env.drv.HasMessage("live children") {
		t.Errorf("driver did not report the leaked semaphore: %v", env.drv.Messages())
	}
}

func TestSubmitWithoutFenceCompletesOnWaitIdle(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	buf, mem := env.hostBuffer(t, 256, vk.BufferUsageTransferDstBit)
	pool := env.commandPool(t)

	cb, err := pool.AllocateAndBeginSingleUse()
	if err != nil {
		t.Fatalf("AllocateAndBeginSingleUse: %v", err)
	}
	if err := cb.FillBuffer(buf, 0, 0, 0xdeadbeef); err != nil {
		t.Fatalf("FillBuffer: %v", err)
	}
	if err := cb.UpdateBuffer(buf, 16, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("UpdateBuffer: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := env.queue.Submit([]SubmitInfo{{CommandBuffers: []*VulkanCommandBuffer{cb}}}, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if cb.State != COMMAND_BUFFER_STATE_SUBMITTED {
		t.Errorf("state after submit = %s", cb.State)
	}
	if err := env.device.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	data, err := mem.Read(0, 20)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := binary.LittleEndian.Uint32(data[0:]); got != 0xdeadbeef {
		t.Errorf("word 0 = %#x", got)
	}
	if got := data[16:20]; got[0] != 1 || got[3] != 4 {
		t.Errorf("updated bytes = %v", got)
	}
}

func TestRecordingRulesArePreconditions(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	buf, _ := env.hostBuffer(t, 256, vk.BufferUsageTransferDstBit)
	pool := env.commandPool(t)
	cb, err := pool.AllocateAndBeginSingleUse()
	if err != nil {
		t.Fatalf("AllocateAndBeginSingleUse: %v", err)
	}
	if err := cb.Draw(3, 1, 0, 0); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("Draw outside a render pass: %v", err)
	}
	if err := cb.FillBuffer(buf, 2, 4, 0); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("misaligned FillBuffer: %v", err)
	}
	if err := cb.UpdateBuffer(buf, 0, []byte{1, 2, 3}); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("UpdateBuffer of 3 bytes: %v", err)
	}
	if err := cb.SetBlendConstants([]float32{1, 1, 1}); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("three blend constants: %v", err)
	}
	if err := cb.SetDepthBounds(1, 0); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("inverted depth bounds: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := cb.End(); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("End twice: %v", err)
	}
}

func TestShaderModuleValidatesCode(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	if _, err := env.device.CreateShaderModule([]byte{1, 2, 3}); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("odd-sized code: %v", err)
	}
	if _, err := env.device.CreateShaderModule(make([]byte, 8)); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("missing magic: %v", err)
	}
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, SPIRVMagic)
	m, err := env.device.CreateShaderModule(code)
	if err != nil {
		t.Fatalf("CreateShaderModule: %v", err)
	}
	defer m.Destroy()
	if m.Words != 5 {
		t.Errorf("Words = %d", m.Words)
	}
}
