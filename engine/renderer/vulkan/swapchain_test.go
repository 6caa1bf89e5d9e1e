package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

func (e *testEnv) surface(t *testing.T, width, height uint32) (*soft.Window, *VulkanSurface) {
	t.Helper()
	win := e.drv.NewWindow(width, height)
	surface, err := e.inst.CreateSurface(win)
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	return win, surface
}

func TestParsePresentMode(t *testing.T) {
	if m, err := ParsePresentMode(" Mailbox"); err != nil || m != vk.PresentModeMailbox {
		t.Errorf("ParsePresentMode(mailbox) = %v, %v", m, err)
	}
	if _, err := ParsePresentMode("vsync"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("ParsePresentMode(vsync) = %v", err)
	}
}

func TestSwapchainSelection(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  3,
		CurrentExtent:  vk.Extent2D{Width: ^uint32(0), Height: ^uint32(0)},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 1024, Height: 768},
	}
	if got := swapchainExtent(caps, 4000, 100); got.Width != 1024 || got.Height != 100 {
		t.Errorf("swapchainExtent = %+v", got)
	}
	caps.CurrentExtent = vk.Extent2D{Width: 800, Height: 600}
	if got := swapchainExtent(caps, 4000, 100); got.Width != 800 || got.Height != 600 {
		t.Errorf("swapchainExtent with a current extent = %+v", got)
	}
	for requested, want := range map[uint32]uint32{0: 3, 1: 2, 3: 3, 9: 3} {
		if got := swapchainImageCount(caps, requested); got != want {
			t.Errorf("swapchainImageCount(%d) = %d, want %d", requested, got, want)
		}
	}
	caps.MaxImageCount = 0
	if got := swapchainImageCount(caps, 9); got != 9 {
		t.Errorf("unbounded swapchainImageCount(9) = %d", got)
	}

	if got := choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, []vk.PresentMode{vk.PresentModeMailbox}); got != vk.PresentModeFifo {
		t.Errorf("choosePresentMode fell back to %d", got)
	}
	undefined := []vk.SurfaceFormat{{Format: vk.FormatUndefined}}
	if got := chooseSurfaceFormat(undefined, nil); got != preferredSurfaceFormat {
		t.Errorf("chooseSurfaceFormat(undefined) = %+v", got)
	}
	if got := distinctFamilies([]uint32{0, 0, 1, 0}); len(got) != 2 {
		t.Errorf("distinctFamilies = %v", got)
	}
}

func TestSwapchainAcquirePresent(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	win, surface := env.surface(t, 320, 240)
	defer surface.Destroy()

	sc, err := env.device.CreateSwapchain(SwapchainConfig{
		Surface:      surface,
		PresentModes: []vk.PresentMode{vk.PresentModeMailbox},
	})
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	defer sc.Destroy()
	if sc.ImageCount() != 3 || sc.PresentMode != vk.PresentModeMailbox {
		t.Fatalf("%d images, present mode %d", sc.ImageCount(), sc.PresentMode)
	}
	if sc.Extent.Width != 320 || sc.Extent.Height != 240 {
		t.Fatalf("extent %+v", sc.Extent)
	}
	for _, img := range sc.Images() {
		if !img.SwapchainOwned() {
			t.Fatalf("swapchain image not marked as owned")
		}
	}

	if _, _, err := sc.AcquireNextImage(DefaultAcquireTimeout, nil, nil); !errors.Is(err, core.ErrPrecondition) {
		t.Fatalf("acquire without semaphore or fence: %v", err)
	}
	fence, err := env.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	defer fence.Destroy()
	index, status, err := sc.AcquireNextImage(DefaultAcquireTimeout, nil, fence)
	if err != nil || status != AcquireOptimal {
		t.Fatalf("AcquireNextImage = %d, %s, %v", index, status, err)
	}
	if err := fence.Wait(WaitForever); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	results, err := env.queue.Present(PresentInfo{Swapchains: []*VulkanSwapchain{sc}, ImageIndices: []uint32{index}})
	if err != nil || results[0] != vk.Success {
		t.Fatalf("Present = %v, %v", results, err)
	}
	if err := env.queue.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if win.Presents() != 1 {
		t.Fatalf("window saw %d presents", win.Presents())
	}
}

func TestSwapchainOutOfDateAfterResize(t *testing.T) {
	aborts := recordAborts(t)
	env := newTestEnv(t, soft.DefaultConfig(), FailAbort)
	win, surface := env.surface(t, 320, 240)
	defer surface.Destroy()

	sc, err := env.device.CreateSwapchain(SwapchainConfig{Surface: surface})
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	sem, err := env.device.CreateSemaphore()
	if err != nil {
		t.Fatalf("CreateSemaphore: %v", err)
	}
	defer sem.Destroy()

	win.Resize(640, 480)
	_, _, err = sc.AcquireNextImage(DefaultAcquireTimeout, sem, nil)
	if !errors.Is(err, core.ErrOutOfDate) {
		t.Fatalf("acquire after resize: %v", err)
	}
	var re *ResultError
	if !errors.As(err, &re) || re.Result != vk.ErrorOutOfDate {
		t.Fatalf("error %v is not a ResultError", err)
	}
	if len(*aborts) != 0 {
		t.Fatalf("out of date engaged the failure policy: %v", *aborts)
	}

	next, err := env.device.CreateSwapchain(SwapchainConfig{Surface: surface, Old: sc})
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	sc.Destroy()
	defer next.Destroy()
	if next.Extent.Width != 640 || next.Extent.Height != 480 {
		t.Fatalf("recreated extent %+v", next.Extent)
	}
	if _, status, err := next.AcquireNextImage(DefaultAcquireTimeout, sem, nil); err != nil || status != AcquireOptimal {
		t.Fatalf("acquire on the new swapchain: %s, %v", status, err)
	}
}

func TestSwapchainSuboptimalIsUsable(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	win, surface := env.surface(t, 64, 64)
	defer surface.Destroy()
	sc, err := env.device.CreateSwapchain(SwapchainConfig{Surface: surface})
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	defer sc.Destroy()
	fence, err := env.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	defer fence.Destroy()

	win.SetSuboptimal(true)
	index, status, err := sc.AcquireNextImage(DefaultAcquireTimeout, nil, fence)
	if err != nil || status != AcquireSuboptimal {
		t.Fatalf("AcquireNextImage = %s, %v", status, err)
	}
	results, err := env.queue.Present(PresentInfo{Swapchains: []*VulkanSwapchain{sc}, ImageIndices: []uint32{index}})
	if err != nil || results[0] != vk.Suboptimal {
		t.Fatalf("Present = %v, %v", results, err)
	}
}

func TestSwapchainAcquireTimesOutWhenImagesHeld(t *testing.T) {
	env := newTestEnv(t, soft.DefaultConfig(), FailPropagate)
	_, surface := env.surface(t, 64, 64)
	defer surface.Destroy()
	sc, err := env.device.CreateSwapchain(SwapchainConfig{Surface: surface, ImageCount: 2})
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	defer sc.Destroy()
	var fences []*VulkanFence
	defer func() {
		for _, f := range fences {
			f.Destroy()
		}
	}()
	for i := 0; i < sc.ImageCount(); i++ {
		f, err := env.device.CreateFence(false)
		if err != nil {
			t.Fatalf("CreateFence: %v", err)
		}
		fences = append(fences, f)
		if _, _, err := sc.AcquireNextImage(DefaultAcquireTimeout, nil, f); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	extra, err := env.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	fences = append(fences, extra)
	if _, _, err := sc.AcquireNextImage(0, nil, extra); !errors.Is(err, core.ErrNotReady) {
		t.Fatalf("zero-timeout acquire: %v", err)
	}
	if _, _, err := sc.AcquireNextImage(1000, nil, extra); !errors.Is(err, core.ErrTimeout) {
		t.Fatalf("bounded acquire: %v", err)
	}
}
