package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

func TestFenceStatusAndTimeout(t *testing.T) {
	aborts := recordAborts(t)
	env := newTestEnv(t, soft.DefaultConfig(), FailAbort)

	fence, err := env.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	defer fence.Destroy()
	if ok, err := fence.Status(); ok || err != nil {
		t.Fatalf("Status() = %v, %v", ok, err)
	}
	if err := fence.Wait(0); !errors.Is(err, core.ErrTimeout) || !IsTimeout(err) {
		t.Fatalf("Wait(0) = %v", err)
	}
	if len(*aborts) != 0 {
		t.Fatalf("a timeout engaged the failure policy: %v", *aborts)
	}

	signaled, err := env.device.CreateFence(true)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	defer signaled.Destroy()
	if err := env.device.WaitForFences([]*VulkanFence{signaled}, true, WaitForever); err != nil {
		t.Fatalf("WaitForFences: %v", err)
	}
	if err := env.device.ResetFences(signaled); err != nil {
		t.Fatalf("ResetFences: %v", err)
	}
	if ok, _ := signaled.Status(); ok {
		t.Fatalf("fence still signaled after reset")
	}
}

func TestFenceSignaledBySubmit(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	pool := env.commandPool(t)
	fence, err := env.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	defer fence.Destroy()
	cb, err := pool.AllocateAndBeginSingleUse()
	if err != nil {
		t.Fatalf("AllocateAndBeginSingleUse: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := env.queue.Submit([]SubmitInfo{{CommandBuffers: []*VulkanCommandBuffer{cb}}}, fence); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := fence.Wait(WaitForever); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ok, _ := fence.Status(); !ok {
		t.Fatalf("fence not signaled after wait")
	}
}

func TestTimelineSemaphore(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	sem, err := env.device.CreateTimelineSemaphore(1)
	if err != nil {
		t.Fatalf("CreateTimelineSemaphore: %v", err)
	}
	defer sem.Destroy()
	if v, err := sem.CounterValue(); v != 1 || err != nil {
		t.Fatalf("CounterValue() = %d, %v", v, err)
	}
	if err := sem.Signal(5); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := sem.Wait(5, 0); err != nil {
		t.Fatalf("Wait(5): %v", err)
	}
	if err := sem.Wait(6, 0); !IsTimeout(err) {
		t.Fatalf("Wait(6) = %v", err)
	}

	binary, err := env.device.CreateSemaphore()
	if err != nil {
		t.Fatalf("CreateSemaphore: %v", err)
	}
	defer binary.Destroy()
	if _, err := binary.CounterValue(); !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("CounterValue on a binary semaphore: %v", err)
	}
}

func TestTimelineSubmitSignalsValue(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	pool := env.commandPool(t)
	sem, err := env.device.CreateTimelineSemaphore(0)
	if err != nil {
		t.Fatalf("CreateTimelineSemaphore: %v", err)
	}
	defer sem.Destroy()
	cb, err := pool.AllocateAndBeginSingleUse()
	if err != nil {
		t.Fatalf("AllocateAndBeginSingleUse: %v", err)
	}
	cb.End()
	err = env.queue.Submit([]SubmitInfo{{
		CommandBuffers:   []*VulkanCommandBuffer{cb},
		SignalSemaphores: []*VulkanSemaphore{sem},
		SignalValues:     []uint64{3},
	}}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := env.device.WaitSemaphores([]*VulkanSemaphore{sem}, []uint64{3}, WaitForever); err != nil {
		t.Fatalf("WaitSemaphores: %v", err)
	}
	if v, _ := sem.CounterValue(); v != 3 {
		t.Fatalf("CounterValue() = %d", v)
	}
}

func TestEventStatus(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	ev, err := env.device.CreateEvent()
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	defer ev.Destroy()
	if set, err := ev.Status(); set || err != nil {
		t.Fatalf("Status() = %v, %v", set, err)
	}
	if err := ev.Set(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if set, _ := ev.Status(); !set {
		t.Fatalf("event not set")
	}
	if err := ev.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if set, _ := ev.Status(); set {
		t.Fatalf("event still set after reset")
	}
}

func TestFailurePolicy(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want FailurePolicy
		ok   bool
	}{
		{"", FailAbort, true},
		{"abort", FailAbort, true},
		{" Propagate ", FailPropagate, true},
		{"panic", FailAbort, false},
	} {
		got, err := ParseFailurePolicy(tc.in)
		if got != tc.want || (err == nil) != tc.ok {
			t.Errorf("ParseFailurePolicy(%q) = %v, %v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, core.ErrInvalidConfig) {
			t.Errorf("ParseFailurePolicy(%q) error %v does not wrap ErrInvalidConfig", tc.in, err)
		}
	}

	aborts := recordAborts(t)
	env := newTestEnv(t, soft.DefaultConfig(), FailAbort)
	_, err := env.device.CreateImage(ImageConfig{Format: vk.FormatR8g8b8a8Unorm})
	if !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("CreateImage with an empty extent: %v", err)
	}
	if len(*aborts) != 1 || !errors.Is((*aborts)[0], core.ErrPrecondition) {
		t.Fatalf("aborts = %v", *aborts)
	}
}

func TestResultErrorMapsToSentinels(t *testing.T) {
	for res, want := range map[vk.Result]error{
		vk.ErrorOutOfDate:           core.ErrOutOfDate,
		vk.ErrorDeviceLost:          core.ErrDeviceLost,
		vk.ErrorOutOfDeviceMemory:   core.ErrOutOfMemory,
		vk.ErrorSurfaceLost:         core.ErrSurfaceLost,
		vk.ErrorExtensionNotPresent: core.ErrMissingCapability,
		vk.ErrorUnknown:             core.ErrNative,
	} {
		err := error(&ResultError{Op: "vkTest", Result: res})
		if !errors.Is(err, want) {
			t.Errorf("%s does not wrap %v", VulkanResultString(res, false), want)
		}
	}
	if !VulkanResultIsSuccess(vk.Suboptimal) || VulkanResultIsSuccess(vk.ErrorOutOfDate) {
		t.Errorf("VulkanResultIsSuccess misclassifies swapchain results")
	}
}

func TestCapabilityLookupOrder(t *testing.T) {
	cfg := soft.DefaultConfig()
	cfg.DeviceProcs = []string{"vkCmdDrawIndirectCountAMD", "vkCmdDrawIndirectCountKHR", "vkSignalSemaphoreKHR"}
	env := newTestEnv(t, cfg, FailPropagate)
	caps := env.device.Capabilities()
	if got := caps.Resolved(CapDrawIndirectCount); got != "vkCmdDrawIndirectCountKHR" {
		t.Errorf("DrawIndirectCount resolved as %q", got)
	}
	if got := caps.Resolved(CapSignalSemaphore); got != "vkSignalSemaphoreKHR" {
		t.Errorf("SignalSemaphore resolved as %q", got)
	}
	if caps.Has(CapDispatchBase) || caps.Has(CapGetSemaphoreCounterValue) {
		t.Errorf("unexported procs reported present")
	}

	sem, err := env.device.CreateTimelineSemaphore(0)
	if err != nil {
		t.Fatalf("CreateTimelineSemaphore: %v", err)
	}
	defer sem.Destroy()
	if _, err := sem.CounterValue(); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("CounterValue without the entry point: %v", err)
	}
	if err := sem.Signal(1); err != nil {
		t.Errorf("Signal through the KHR alias: %v", err)
	}

	pool := env.commandPool(t)
	cb, err := pool.AllocateAndBeginSingleUse()
	if err != nil {
		t.Fatalf("AllocateAndBeginSingleUse: %v", err)
	}
	if err := cb.DispatchBase(0, 0, 0, 1, 1, 1); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("DispatchBase without the entry point: %v", err)
	}
}
