package renderer

import (
	"errors"
	"image/color"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

type frameEnv struct {
	drv    *soft.Driver
	win    *soft.Window
	device *vulkan.VulkanDevice
	coord  *FrameCoordinator
}

func newFrameEnv(t *testing.T, configure func(*FrameConfig)) *frameEnv {
	t.Helper()
	drv := soft.New(soft.DefaultConfig())
	return newFrameEnvWith(t, drv, drv, configure)
}

// newFrameEnvWith builds the environment on native, which must forward to
// drv for every call it does not intercept.
func newFrameEnvWith(t *testing.T, drv *soft.Driver, native driver.Driver, configure func(*FrameConfig)) *frameEnv {
	t.Helper()
	inst, err := vulkan.CreateInstance(native, vulkan.InstanceConfig{
		ApplicationName: t.Name(),
		Extensions:      []string{"VK_KHR_surface"},
		Policy:          vulkan.FailPropagate,
	})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	win := drv.NewWindow(64, 48)
	surface, err := inst.CreateSurface(win)
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	pds, err := inst.PhysicalDevices()
	if err != nil || len(pds) == 0 {
		t.Fatalf("PhysicalDevices: %v", err)
	}
	device, err := pds[0].CreateDevice(vulkan.DeviceConfig{
		Queues:     []vulkan.QueueRequest{{Family: 0, Count: 1}},
		Extensions: []string{"VK_KHR_swapchain"},
	})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	queue, err := device.Queue(0, 0)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	config := FrameConfig{
		Device:          device,
		Surface:         surface,
		GraphicsQueue:   queue,
		FramebufferSize: win.Size,
		ImageCount:      3,
		PresentModes:    []vk.PresentMode{vk.PresentModeFifo},
		Recreate:        true,
		ClearColor:      [4]float32{0, 1, 0, 1},
	}
	if configure != nil {
		configure(&config)
	}
	coord, err := NewFrameCoordinator(config)
	if err != nil {
		t.Fatalf("NewFrameCoordinator: %v", err)
	}
	t.Cleanup(func() {
		coord.Destroy()
		device.Destroy()
		surface.Destroy()
		inst.Destroy()
	})
	return &frameEnv{drv: drv, win: win, device: device, coord: coord}
}

func TestFrameRingBoundsInFlightWork(t *testing.T) {
	env := newFrameEnv(t, nil)
	c := env.coord
	if c.FramesInFlight() != 3 {
		t.Fatalf("FramesInFlight() = %d", c.FramesInFlight())
	}
	const frames = 40
	for i := 0; i < frames; i++ {
		if err := c.RenderFrame(nil); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if n := env.drv.UnsignaledFences(); n > c.FramesInFlight() {
			t.Fatalf("frame %d: %d fences unsignaled", i, n)
		}
		if c.Pending() > c.FramesInFlight() {
			t.Fatalf("frame %d: %d submissions pending", i, c.Pending())
		}
	}
	if c.FrameNumber() != frames || c.Metrics().Frames() != frames {
		t.Errorf("frame number %d, metrics frames %d", c.FrameNumber(), c.Metrics().Frames())
	}
	if err := env.device.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if got := env.win.Presents(); got != frames {
		t.Errorf("window saw %d presents, want %d", got, frames)
	}
	if got := env.drv.Stats().RenderPasses; got != frames {
		t.Errorf("%d render passes ran, want %d", got, frames)
	}
	snap := env.win.Snapshot()
	if snap == nil {
		t.Fatalf("nothing was presented")
	}
	if got := snap.RGBAAt(10, 10); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("presented pixel = %v", got)
	}
}

func TestFrameRecreatesAfterResize(t *testing.T) {
	env := newFrameEnv(t, nil)
	c := env.coord
	for i := 0; i < 2; i++ {
		if err := c.RenderFrame(nil); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	env.win.Resize(32, 16)
	if err := c.RenderFrame(nil); err != nil {
		t.Fatalf("frame after resize: %v", err)
	}
	if c.Metrics().Recreated() != 1 {
		t.Fatalf("Recreated() = %d", c.Metrics().Recreated())
	}
	if ext := c.Swapchain().Extent; ext.Width != 32 || ext.Height != 16 {
		t.Fatalf("extent after recreation = %+v", ext)
	}
	if err := c.RenderFrame(nil); err != nil {
		t.Fatalf("frame after recreation: %v", err)
	}
	if err := env.device.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if snap := env.win.Snapshot(); snap == nil || snap.Bounds().Dx() != 32 || snap.Bounds().Dy() != 16 {
		t.Errorf("last presented image has the wrong size")
	}
}

func TestFrameResizedNotification(t *testing.T) {
	env := newFrameEnv(t, func(fc *FrameConfig) { fc.FramebufferSize = nil; fc.Width, fc.Height = 64, 48 })
	c := env.coord
	c.Resized(0, 0)
	if _, err := c.BeginFrame(); !errors.Is(err, core.ErrSwapchainBooting) {
		t.Fatalf("BeginFrame while minimized = %v", err)
	}
	if c.Metrics().Recreated() != 0 {
		t.Fatalf("recreated a zero-sized swapchain")
	}
	env.win.Resize(40, 30)
	c.Resized(40, 30)
	if err := c.RenderFrame(nil); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if c.Metrics().Recreated() != 1 {
		t.Fatalf("Recreated() = %d", c.Metrics().Recreated())
	}
	if err := c.RenderFrame(nil); err != nil {
		t.Fatalf("RenderFrame after recreation: %v", err)
	}
}

func TestFrameOutOfDateWithoutRecreate(t *testing.T) {
	env := newFrameEnv(t, func(fc *FrameConfig) { fc.Recreate = false })
	c := env.coord
	if err := c.RenderFrame(nil); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	env.win.Resize(100, 100)
	err := c.RenderFrame(nil)
	if !errors.Is(err, core.ErrOutOfDate) {
		t.Fatalf("RenderFrame after resize = %v", err)
	}
	var re *vulkan.ResultError
	if !errors.As(err, &re) || re.Result != vk.ErrorOutOfDate {
		t.Errorf("error %v carries no out-of-date result", err)
	}
	if c.Metrics().Recreated() != 0 {
		t.Errorf("swapchain recreated with recreation disabled")
	}
}

func TestFrameSuboptimalSchedulesRecreation(t *testing.T) {
	env := newFrameEnv(t, nil)
	c := env.coord
	env.win.SetSuboptimal(true)
	if err := c.RenderFrame(nil); err != nil {
		t.Fatalf("suboptimal frame: %v", err)
	}
	if c.Metrics().Suboptimal() != 1 || c.Metrics().Recreated() != 1 {
		t.Fatalf("suboptimal %d, recreated %d", c.Metrics().Suboptimal(), c.Metrics().Recreated())
	}
	env.win.SetSuboptimal(false)
	if err := c.RenderFrame(nil); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if c.Metrics().Suboptimal() != 1 || c.Metrics().Recreated() != 1 {
		t.Errorf("optimal frame changed the counters: suboptimal %d, recreated %d", c.Metrics().Suboptimal(), c.Metrics().Recreated())
	}
}

func TestFrameRecordErrorRebuildsState(t *testing.T) {
	env := newFrameEnv(t, nil)
	c := env.coord
	boom := errors.New("boom")
	err := c.RenderFrame(func(*Frame, *vulkan.VulkanCommandBuffer) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("RenderFrame = %v", err)
	}
	if err := c.RenderFrame(nil); err != nil {
		t.Fatalf("RenderFrame after an abandoned frame: %v", err)
	}
	if c.Metrics().Recreated() != 1 {
		t.Errorf("Recreated() = %d", c.Metrics().Recreated())
	}
	draws := 0
	err = c.RenderFrame(func(f *Frame, cb *vulkan.VulkanCommandBuffer) error {
		draws++
		if f.CommandBuffer != cb || f.Framebuffer == nil {
			t.Errorf("frame %d is missing its targets", f.Number)
		}
		return nil
	})
	if err != nil || draws != 1 {
		t.Fatalf("RenderFrame = %v, recorded %d times", err, draws)
	}
}

// failingDriver makes selected entry points report out of host memory.
type failingDriver struct {
	*soft.Driver
	semaphores bool
	swapchains bool
	submits    bool
}

func (d *failingDriver) CreateSemaphore(device vk.Device, info *vk.SemaphoreCreateInfo) (vk.Semaphore, vk.Result) {
	if d.semaphores {
		return nil, vk.ErrorOutOfHostMemory
	}
	return d.Driver.CreateSemaphore(device, info)
}

func (d *failingDriver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	if d.swapchains {
		return nil, vk.ErrorOutOfHostMemory
	}
	return d.Driver.CreateSwapchain(device, info)
}

func (d *failingDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	if d.submits {
		return vk.ErrorOutOfHostMemory
	}
	return d.Driver.QueueSubmit(queue, submits, fence)
}

func TestFrameRecoversFromNativeFailures(t *testing.T) {
	tests := []struct {
		name   string
		resize bool
		fail   func(d *failingDriver, on bool)
	}{
		{"semaphore during recreation", true, func(d *failingDriver, on bool) { d.semaphores = on }},
		{"swapchain during recreation", true, func(d *failingDriver, on bool) { d.swapchains = on }},
		{"queue submit", false, func(d *failingDriver, on bool) { d.submits = on }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			native := &failingDriver{Driver: soft.New(soft.DefaultConfig())}
			env := newFrameEnvWith(t, native.Driver, native, nil)
			c := env.coord
			if err := c.RenderFrame(nil); err != nil {
				t.Fatalf("first frame: %v", err)
			}
			if tt.resize {
				env.win.Resize(32, 16)
			}

			tt.fail(native, true)
			err := c.RenderFrame(nil)
			var re *vulkan.ResultError
			if !errors.As(err, &re) || re.Result != vk.ErrorOutOfHostMemory || !errors.Is(err, core.ErrOutOfMemory) {
				t.Fatalf("RenderFrame with a failing driver = %v", err)
			}
			if tt.resize {
				// The rebuild is retried, and fails again, while the driver fails.
				if err := c.RenderFrame(nil); err == nil {
					t.Fatal("RenderFrame succeeded while the driver still fails")
				}
			}
			tt.fail(native, false)

			for i := 0; i < 6; i++ {
				if err := c.RenderFrame(nil); err != nil {
					t.Fatalf("frame %d after recovery: %v", i, err)
				}
				if n := env.drv.UnsignaledFences(); n > c.FramesInFlight() {
					t.Fatalf("frame %d: %d unsignaled fences for %d slots", i, n, c.FramesInFlight())
				}
			}
			if got := c.Metrics().Recreated(); got != 1 {
				t.Errorf("Recreated() = %d, want 1", got)
			}
			if tt.resize {
				if ext := c.Swapchain().Extent; ext.Width != 32 || ext.Height != 16 {
					t.Errorf("extent after recovery = %dx%d", ext.Width, ext.Height)
				}
			}
		})
	}
}

func TestFrameStepPreconditions(t *testing.T) {
	env := newFrameEnv(t, nil)
	c := env.coord
	f, err := c.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if _, err := c.BeginFrame(); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("second BeginFrame = %v", err)
	}
	if err := c.Present(f); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("Present before Submit = %v", err)
	}
	if err := c.Submit(&Frame{}); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("Submit of a foreign frame = %v", err)
	}

	cb := f.CommandBuffer
	if err := cb.Begin(vulkan.BeginConfig{}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := c.Submit(f, cb); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := c.Submit(f, cb); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("second Submit = %v", err)
	}
	if err := c.Present(f); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if c.FrameNumber() != 1 {
		t.Errorf("FrameNumber() = %d", c.FrameNumber())
	}
	next, err := c.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if next.Slot != 1 || next.Number != 1 {
		t.Errorf("next frame slot %d number %d", next.Slot, next.Number)
	}
}

func TestApplySwapchainConfig(t *testing.T) {
	var fc FrameConfig
	sc := core.DefaultConfig().Swapchain
	if err := fc.ApplySwapchainConfig(sc); err != nil {
		t.Fatalf("ApplySwapchainConfig: %v", err)
	}
	if fc.ImageCount != 3 || !fc.Recreate || fc.AcquireTimeout != vulkan.WaitForever {
		t.Errorf("config = %+v", fc)
	}
	if len(fc.PresentModes) != 1 || fc.PresentModes[0] != vk.PresentModeFifo {
		t.Errorf("present modes = %v", fc.PresentModes)
	}
	sc.AcquireTimeout = "250ms"
	if err := fc.ApplySwapchainConfig(sc); err != nil || fc.AcquireTimeout != 250_000_000 {
		t.Errorf("timeout %d, %v", fc.AcquireTimeout, err)
	}
	sc.PresentMode = "vsync"
	if err := fc.ApplySwapchainConfig(sc); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("bad present mode = %v", err)
	}
	if _, err := NewFrameCoordinator(FrameConfig{}); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("empty FrameConfig = %v", err)
	}
}
