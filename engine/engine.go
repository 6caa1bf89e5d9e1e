package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vkbind/engine/assets"
	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/platform"
	"github.com/spaghettifunk/vkbind/engine/renderer"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver/soft"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Options struct {
	// Headless renders to a window of the software driver instead of a
	// GLFW window.
	Headless bool
	// Frames stops the loop after that many presented frames. Zero runs
	// until the window closes or Stop is called.
	Frames uint64
	// ShaderDir, when set, is loaded into a watched shader library.
	ShaderDir string
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	options      Options
	isRunning    atomic.Bool
	isSuspended  bool

	platform   *platform.Platform
	softWindow *soft.Window
	instance   *vulkan.VulkanInstance
	surface    *vulkan.VulkanSurface
	device     *vulkan.VulkanDevice
	locks      *vulkan.LockPool
	frames     *renderer.FrameCoordinator
	shaders    *assets.ShaderLibrary

	graphicsFamily uint32
	presentFamily  uint32

	width    uint32
	height   uint32
	clock    *core.Clock
	lastTime float64
}

func New(g *Game, config *core.Config, options Options) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: no game", core.ErrInvalidConfig)
	}
	if config == nil {
		config = core.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		options:      options,
		clock:        core.NewClock(),
		width:        config.Application.Width,
		height:       config.Application.Height,
		locks:        vulkan.NewLockPool(),
	}, nil
}

func (e *Engine) Device() *vulkan.VulkanDevice { return e.device }

func (e *Engine) Frames() *renderer.FrameCoordinator { return e.frames }

// Shaders is nil unless Options.ShaderDir was set.
func (e *Engine) Shaders() *assets.ShaderLibrary { return e.shaders }

func (e *Engine) Locks() *vulkan.LockPool { return e.locks }

// SoftWindow is the virtual window of a headless engine, nil otherwise.
func (e *Engine) SoftWindow() *soft.Window { return e.softWindow }

func (e *Engine) Stage() Stage { return e.currentStage }

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("%w: engine already initialized", core.ErrPrecondition)
	}
	e.currentStage = EngineStageInitializing
	core.SetLogLevel(e.config.Log.Level)

	if !core.EventSystemInitialize() {
		core.LogWarn("event system was already initialized")
	}
	if err := core.InputInitialize(); err != nil {
		return err
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)

	policy, err := vulkan.ParseFailurePolicy(e.config.Vulkan.FailurePolicy)
	if err != nil {
		return err
	}
	name := e.config.Application.Name
	if e.gameInstance.Name != "" {
		name = e.gameInstance.Name
	}

	var (
		drv        driver.Driver
		source     vulkan.SurfaceSource
		extensions []string
		sizeFn     func() (uint32, uint32)
	)
	if e.options.Headless {
		sd := soft.New(soft.DefaultConfig())
		e.softWindow = sd.NewWindow(e.width, e.height)
		drv, source, sizeFn = sd, e.softWindow, e.softWindow.Size
		extensions = []string{"VK_KHR_surface"}
	} else {
		e.platform = platform.New()
		if err := e.platform.Startup(name, e.config.Application.PosX, e.config.Application.PosY, e.width, e.height); err != nil {
			return err
		}
		e.platform.OnResize(e.onResized)
		vkDriver, err := driver.New(e.platform.VulkanProcAddr())
		if err != nil {
			return err
		}
		drv, source, sizeFn = vkDriver, e.platform.Window, e.platform.FramebufferSize
		extensions = e.platform.RequiredInstanceExtensions()
	}
	extensions = appendUnique(extensions, e.config.Vulkan.InstanceExtensions...)

	e.instance, err = vulkan.CreateInstance(drv, vulkan.InstanceConfig{
		ApplicationName: name,
		EngineName:      "vkbind",
		Layers:          e.config.Vulkan.EnabledLayers(),
		Extensions:      extensions,
		Policy:          policy,
	})
	if err != nil {
		return err
	}
	if e.surface, err = e.instance.CreateSurface(source); err != nil {
		return err
	}
	if err := e.createDevice(); err != nil {
		return err
	}

	graphics, err := e.device.Queue(e.graphicsFamily, 0)
	if err != nil {
		return err
	}
	present, err := e.device.Queue(e.presentFamily, 0)
	if err != nil {
		return err
	}
	frameConfig := renderer.FrameConfig{
		Device:          e.device,
		Surface:         e.surface,
		GraphicsQueue:   graphics,
		PresentQueue:    present,
		Width:           e.width,
		Height:          e.height,
		FramebufferSize: sizeFn,
		ClearColor:      e.gameInstance.ClearColor,
		Locks:           e.locks,
	}
	if err := frameConfig.ApplySwapchainConfig(e.config.Swapchain); err != nil {
		return err
	}
	if e.frames, err = renderer.NewFrameCoordinator(frameConfig); err != nil {
		return err
	}

	if e.options.ShaderDir != "" {
		if e.shaders, err = assets.NewShaderLibrary(e.options.ShaderDir); err != nil {
			return err
		}
		if err := e.shaders.Watch(); err != nil {
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// createDevice selects a physical device that can render and present to
// the surface. A configured queue family overrides the selected graphics
// family.
func (e *Engine) createDevice() error {
	pd, families, err := e.instance.SelectPhysicalDevice(vulkan.PhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		Transfer:             true,
		DeviceExtensionNames: e.config.Vulkan.DeviceExtensions,
	}, e.surface)
	if err != nil {
		return err
	}
	graphics := families.GraphicsFamilyIndex
	if q := e.config.Vulkan.QueueFamily; q != core.AnyQueueFamily {
		if n := len(pd.QueueFamilies()); int(q) >= n {
			return fmt.Errorf("%w: queue_family %d but the device has %d families", core.ErrInvalidConfig, q, n)
		}
		graphics = q
	}
	e.graphicsFamily = uint32(graphics)
	e.presentFamily = uint32(families.PresentFamilyIndex)

	queues := []vulkan.QueueRequest{{Family: e.graphicsFamily}}
	if e.presentFamily != e.graphicsFamily {
		queues = append(queues, vulkan.QueueRequest{Family: e.presentFamily})
	}
	e.device, err = pd.CreateDevice(vulkan.DeviceConfig{
		Queues:     queues,
		Extensions: e.config.Vulkan.DeviceExtensions,
	})
	return err
}

func appendUnique(list []string, more ...string) []string {
	out := append([]string(nil), list...)
	for _, m := range more {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

func (e *Engine) onQuit(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.Stop()
	return true
}

// Stop ends the loop after the current frame. It may be called from any
// goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("%w: engine is not initialized", core.ErrPrecondition)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		e.drainShaderReloads()

		if e.isSuspended {
			continue
		}
		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down: %v", err)
				return err
			}
		}

		err := e.frames.RenderFrame(func(f *renderer.Frame, cb *vulkan.VulkanCommandBuffer) error {
			if e.gameInstance.FnRender == nil {
				return nil
			}
			return e.gameInstance.FnRender(f, cb, delta)
		})
		switch {
		case vulkan.IsTimeout(err):
			core.LogWarn("frame skipped: %v", err)
		case err != nil:
			core.LogError("Render failed, shutting down: %v", err)
			return err
		}

		core.InputUpdate()
		e.lastTime = currentTime
		if e.options.Frames > 0 && e.frames.FrameNumber() >= e.options.Frames {
			e.isRunning.Store(false)
		}
	}
	return nil
}

func (e *Engine) drainShaderReloads() {
	if e.shaders == nil {
		return
	}
	for {
		select {
		case name := <-e.shaders.Reloads():
			core.LogInfo("shader %s reloaded", name)
			core.EventFire(core.EVENT_CODE_SHADER_RELOADED, e, core.EventContext{})
			if e.gameInstance.FnShaderReload != nil {
				if err := e.gameInstance.FnShaderReload(name); err != nil {
					core.LogError("shader reload hook for %s: %v", name, err)
				}
			}
		default:
			return
		}
	}
}

// Shutdown releases everything in reverse creation order. It is safe to
// call after a failed Initialize.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)
	var errs []error
	if e.device != nil {
		if err := e.device.WaitIdle(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.shaders != nil {
		errs = append(errs, e.shaders.Close())
		e.shaders = nil
	}
	if e.frames != nil {
		e.frames.Destroy()
		e.frames = nil
	}
	if e.device != nil {
		e.device.Destroy()
		e.device = nil
	}
	if e.surface != nil {
		e.surface.Destroy()
		e.surface = nil
	}
	if e.instance != nil {
		e.instance.Destroy()
		e.instance = nil
	}
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
		e.platform = nil
	}
	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	errs = append(errs, core.InputShutdown(), core.EventSystemShutdown())
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onResized(width, height uint32) {
	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.frames != nil {
		e.frames.Resized(width, height)
	}
	var ctx core.EventContext
	ctx.Data.U32[0], ctx.Data.U32[1] = width, height
	core.EventFire(core.EVENT_CODE_RESIZED, e, ctx)
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("resize hook: %v", err)
		}
	}
}
