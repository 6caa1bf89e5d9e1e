package engine

import (
	"encoding/binary"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
)

func headlessConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.Application.Width = 32
	cfg.Application.Height = 24
	cfg.Vulkan.FailurePolicy = "propagate"
	cfg.Log.Level = "error"
	return cfg
}

func TestHeadlessRun(t *testing.T) {
	var updates, renders int
	var resized [2]uint32
	g := &Game{
		ClearColor: [4]float32{0, 0, 1, 1},
		FnUpdate: func(float64) error {
			updates++
			return nil
		},
		FnRender: func(f *renderer.Frame, cb *vulkan.VulkanCommandBuffer, _ float64) error {
			renders++
			if cb == nil || f.Extent.Width != 32 {
				t.Errorf("frame %d: extent %+v", f.Number, f.Extent)
			}
			return nil
		},
		FnOnResize: func(w, h uint32) error {
			resized = [2]uint32{w, h}
			return nil
		},
	}
	e, err := New(g, headlessConfig(), Options{Headless: true, Frames: 5})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if resized != [2]uint32{32, 24} {
		t.Errorf("initial resize hook got %v", resized)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if updates != 5 || renders != 5 {
		t.Errorf("%d updates, %d renders", updates, renders)
	}
	if err := e.Device().WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	snap := e.SoftWindow().Snapshot()
	if snap == nil || snap.RGBAAt(0, 0) != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("last frame was not cleared to blue")
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if e.Stage() != EngineStageUninitialized {
		t.Errorf("stage after shutdown = %d", e.Stage())
	}
}

func TestRenderErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	g := &Game{
		FnRender: func(*renderer.Frame, *vulkan.VulkanCommandBuffer, float64) error { return boom },
	}
	e, err := New(g, headlessConfig(), Options{Headless: true, Frames: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Shutdown()
	if err := e.Run(); !errors.Is(err, core.ErrPrecondition) {
		t.Errorf("Run before Initialize = %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := e.Run(); !errors.Is(err, boom) {
		t.Errorf("Run = %v", err)
	}
}

func TestEngineLoadsShaders(t *testing.T) {
	dir := t.TempDir()
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, vulkan.SPIRVMagic)
	if err := os.WriteFile(filepath.Join(dir, "clear.vert.spv"), code, 0o644); err != nil {
		t.Fatal(err)
	}
	var module *vulkan.VulkanShaderModule
	g := &Game{
		FnInitialize: func(e *Engine) error {
			var err error
			module, err = e.Shaders().CreateModule(e.Device(), "clear.vert")
			return err
		},
		FnShutdown: func() error {
			module.Destroy()
			return nil
		},
	}
	e, err := New(g, headlessConfig(), Options{Headless: true, Frames: 1, ShaderDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Shutdown()
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if module == nil || module.Words != 5 {
		t.Fatalf("shader module not created")
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := headlessConfig()
	cfg.Swapchain.PresentMode = "sometimes"
	if _, err := New(&Game{}, cfg, Options{Headless: true}); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("New with a bad present mode = %v", err)
	}
	if _, err := New(nil, nil, Options{}); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("New without a game = %v", err)
	}
}

func TestQuitEventStopsRun(t *testing.T) {
	var updates int
	g := &Game{
		FnUpdate: func(float64) error {
			updates++
			if updates == 3 {
				core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
			}
			return nil
		},
	}
	e, err := New(g, headlessConfig(), Options{Headless: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Shutdown()
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if updates != 3 || e.Frames().FrameNumber() != 3 {
		t.Errorf("%d updates, %d frames after quit", updates, e.Frames().FrameNumber())
	}
}
