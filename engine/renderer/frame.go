package renderer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/containers"
	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
)

type FrameConfig struct {
	Device        *vulkan.VulkanDevice
	Surface       *vulkan.VulkanSurface
	GraphicsQueue *vulkan.VulkanQueue
	// PresentQueue defaults to GraphicsQueue.
	PresentQueue *vulkan.VulkanQueue

	Width  uint32
	Height uint32
	// FramebufferSize, when set, is asked for the drawable size on every
	// recreation.
	FramebufferSize func() (uint32, uint32)

	// ImageCount is clamped to the surface limits and becomes the ring size.
	ImageCount   uint32
	PresentModes []vk.PresentMode
	// AcquireTimeout is in nanoseconds. Zero means
	// vulkan.DefaultAcquireTimeout.
	AcquireTimeout uint64
	// Recreate rebuilds the swapchain when it goes out of date or suboptimal
	// instead of returning core.ErrOutOfDate.
	Recreate   bool
	ClearColor [4]float32

	// Locks serializes queue and swapchain calls against other goroutines
	// using the same device.
	Locks *vulkan.LockPool
}

// ApplySwapchainConfig copies the [swapchain] settings of a configuration
// file.
func (fc *FrameConfig) ApplySwapchainConfig(sc core.SwapchainConfig) error {
	mode := vk.PresentModeFifo
	if strings.TrimSpace(sc.PresentMode) != "" {
		var err error
		if mode, err = vulkan.ParsePresentMode(sc.PresentMode); err != nil {
			return err
		}
	}
	timeout, err := sc.Timeout()
	if err != nil {
		return err
	}
	fc.ImageCount = sc.ImageCount
	fc.PresentModes = []vk.PresentMode{mode}
	fc.Recreate = sc.Recreate
	fc.AcquireTimeout = vulkan.WaitForever
	if timeout > 0 {
		fc.AcquireTimeout = uint64(timeout / time.Nanosecond)
	}
	return nil
}

// Frame is one acquired swapchain image on its way to presentation.
type Frame struct {
	// Number counts frames since the coordinator was created.
	Number        uint64
	Slot          int
	ImageIndex    uint32
	Image         *vulkan.VulkanImage
	Framebuffer   *vulkan.VulkanFramebuffer
	CommandBuffer *vulkan.VulkanCommandBuffer
	Extent        vk.Extent2D
	Suboptimal    bool

	submitted bool
}

type frameSlot struct {
	imageAvailable *vulkan.VulkanSemaphore
	renderFinished *vulkan.VulkanSemaphore
	inFlight       *vulkan.VulkanFence
	commandBuffer  *vulkan.VulkanCommandBuffer
}

type submission struct {
	frame uint64
	fence *vulkan.VulkanFence
}

// FrameCoordinator cycles a swapchain through a ring of frame slots, one per
// swapchain image, so that the CPU never records more frames ahead of the
// GPU than there are images. A coordinator is driven by one goroutine.
type FrameCoordinator struct {
	config    FrameConfig
	device    *vulkan.VulkanDevice
	swapchain *vulkan.VulkanSwapchain
	targets   *presentTargets
	pool      *vulkan.VulkanCommandPool

	slots []frameSlot
	// imagesInFlight holds, per swapchain image, the fence of the slot that
	// last rendered to it.
	imagesInFlight []*vulkan.VulkanFence
	inFlight       *containers.RingQueue[submission]
	frameNumber    uint64
	current        *Frame

	width                         uint32
	height                        uint32
	framebufferSizeGeneration     uint64
	framebufferSizeLastGeneration uint64
	recreatePending               bool

	metrics  *core.Metrics
	clock    *core.Clock
	lastTime float64
}

func NewFrameCoordinator(config FrameConfig) (*FrameCoordinator, error) {
	if config.Device == nil || config.Surface == nil || config.GraphicsQueue == nil {
		return nil, fmt.Errorf("%w: frame coordinator needs a device, a surface and a graphics queue", core.ErrInvalidConfig)
	}
	if config.PresentQueue == nil {
		config.PresentQueue = config.GraphicsQueue
	}
	if config.AcquireTimeout == 0 {
		config.AcquireTimeout = vulkan.DefaultAcquireTimeout
	}
	c := &FrameCoordinator{
		config:  config,
		device:  config.Device,
		targets: &presentTargets{device: config.Device},
		width:   config.Width,
		height:  config.Height,
		metrics: core.NewMetrics(),
		clock:   core.NewClock(),
	}
	if config.FramebufferSize != nil {
		c.width, c.height = config.FramebufferSize()
	}

	pool, err := c.device.CreateCommandPool(vulkan.CommandPoolConfig{Family: config.GraphicsQueue.Family})
	if err != nil {
		return nil, err
	}
	c.pool = pool
	sc, err := c.createSwapchain(nil)
	if err != nil {
		c.Destroy()
		return nil, err
	}
	c.swapchain = sc
	if err := c.buildImageState(); err != nil {
		c.Destroy()
		return nil, err
	}
	c.clock.Start()
	core.LogInfo("Frame coordinator ready: %d frames in flight, %dx%d", len(c.slots), sc.Extent.Width, sc.Extent.Height)
	return c, nil
}

func (c *FrameCoordinator) Swapchain() *vulkan.VulkanSwapchain { return c.swapchain }

func (c *FrameCoordinator) RenderPass() *vulkan.VulkanRenderPass { return c.targets.renderPass }

func (c *FrameCoordinator) Metrics() *core.Metrics { return c.metrics }

// FramesInFlight is the ring size.
func (c *FrameCoordinator) FramesInFlight() int { return len(c.slots) }

// Pending is the number of submissions not yet known to be complete.
func (c *FrameCoordinator) Pending() int { return c.inFlight.Len() }

// FrameNumber is the number of frames presented so far.
func (c *FrameCoordinator) FrameNumber() uint64 { return c.frameNumber }

// SetClearColor changes the color the render pass clears to, starting with
// the next recorded frame.
func (c *FrameCoordinator) SetClearColor(rgba [4]float32) { c.config.ClearColor = rgba }

// Resized records a new drawable size. The swapchain is recreated at the
// start of the next frame when recreation is enabled.
func (c *FrameCoordinator) Resized(width, height uint32) {
	c.width = width
	c.height = height
	c.framebufferSizeGeneration++
	core.LogDebug("Frame coordinator resized: %dx%d (generation %d)", width, height, c.framebufferSizeGeneration)
}

func (c *FrameCoordinator) locked(group vulkan.LockGroup, fn func() error) error {
	if c.config.Locks == nil {
		return fn()
	}
	return c.config.Locks.SafeCall(group, fn)
}

func (c *FrameCoordinator) createSwapchain(old *vulkan.VulkanSwapchain) (*vulkan.VulkanSwapchain, error) {
	var sc *vulkan.VulkanSwapchain
	err := c.locked(vulkan.SwapchainManagement, func() error {
		var err error
		sc, err = c.device.CreateSwapchain(vulkan.SwapchainConfig{
			Surface:       c.config.Surface,
			Width:         c.width,
			Height:        c.height,
			ImageCount:    c.config.ImageCount,
			PresentModes:  c.config.PresentModes,
			QueueFamilies: []uint32{c.config.GraphicsQueue.Family, c.config.PresentQueue.Family},
			Old:           old,
		})
		return err
	})
	return sc, err
}

// buildImageState sizes the slot ring to the swapchain and rebuilds the
// targets. The device must be idle. The new slots replace the old ones only
// once all of them exist.
func (c *FrameCoordinator) buildImageState() error {
	if err := c.targets.regenerate(c.swapchain); err != nil {
		return err
	}
	n := c.swapchain.ImageCount()
	slots, err := c.createSlots(n)
	if err != nil {
		return err
	}
	c.destroySlots()
	c.slots = slots
	c.imagesInFlight = make([]*vulkan.VulkanFence, n)
	c.inFlight = containers.NewRingQueue[submission](n)
	return nil
}

func (c *FrameCoordinator) createSlots(n int) (slots []frameSlot, err error) {
	cbs, err := c.pool.AllocateCommandBuffers(vk.CommandBufferLevelPrimary, uint32(n))
	if err != nil {
		return nil, err
	}
	slots = make([]frameSlot, n)
	for i := range slots {
		slots[i].commandBuffer = cbs[i]
	}
	defer func() {
		if err != nil {
			destroySlots(slots)
			slots = nil
		}
	}()
	for i := range slots {
		slot := &slots[i]
		if slot.imageAvailable, err = c.device.CreateSemaphore(); err != nil {
			return nil, err
		}
		if slot.renderFinished, err = c.device.CreateSemaphore(); err != nil {
			return nil, err
		}
		// Created signaled so the first wait on each slot returns at once.
		if slot.inFlight, err = c.device.CreateFence(true); err != nil {
			return nil, err
		}
	}
	return slots, nil
}

func (c *FrameCoordinator) destroySlots() {
	destroySlots(c.slots)
	c.slots = nil
	c.imagesInFlight = nil
}

func destroySlots(slots []frameSlot) {
	for _, slot := range slots {
		if slot.imageAvailable != nil {
			slot.imageAvailable.Destroy()
		}
		if slot.renderFinished != nil {
			slot.renderFinished.Destroy()
		}
		if slot.inFlight != nil {
			slot.inFlight.Destroy()
		}
		if slot.commandBuffer != nil {
			slot.commandBuffer.Free()
		}
	}
}

// recreate replaces the swapchain and everything sized by it. A zero-sized
// drawable leaves the old swapchain in place and reports
// core.ErrSwapchainBooting. Until a recreation succeeds no frame is begun,
// and the next BeginFrame tries again.
func (c *FrameCoordinator) recreate() error {
	c.recreatePending = true
	c.current = nil
	if c.config.FramebufferSize != nil {
		c.width, c.height = c.config.FramebufferSize()
	}
	if c.width == 0 || c.height == 0 {
		core.LogDebug("recreate swapchain skipped: drawable is %dx%d", c.width, c.height)
		return core.ErrSwapchainBooting
	}
	if err := c.device.WaitIdle(); err != nil {
		return err
	}
	c.targets.release()
	sc, err := c.createSwapchain(c.swapchain)
	if err != nil {
		return err
	}
	c.swapchain.Destroy()
	c.swapchain = sc
	if err := c.buildImageState(); err != nil {
		return err
	}
	c.framebufferSizeLastGeneration = c.framebufferSizeGeneration
	c.recreatePending = false
	c.metrics.MarkRecreated()
	core.LogInfo("Swapchain recreated: %dx%d, %d images", sc.Extent.Width, sc.Extent.Height, sc.ImageCount())
	return nil
}

func (c *FrameCoordinator) suboptimal(f *Frame) {
	if f.Suboptimal {
		return
	}
	f.Suboptimal = true
	c.metrics.MarkSuboptimal()
	if c.config.Recreate {
		c.recreatePending = true
	}
}

// retire drops completed submissions from the front of the ring.
// Submissions on one queue complete in order.
func (c *FrameCoordinator) retire() error {
	for !c.inFlight.IsEmpty() {
		s, _ := c.inFlight.Peek()
		done, err := s.fence.Status()
		if err != nil {
			return err
		}
		if !done {
			return nil
		}
		c.inFlight.Dequeue()
	}
	return nil
}

// BeginFrame waits for the slot's previous work, acquires the next image
// and returns the frame to record. core.ErrSwapchainBooting means the
// swapchain was just recreated (or cannot be yet) and no frame was begun.
func (c *FrameCoordinator) BeginFrame() (*Frame, error) {
	if c.current != nil {
		return nil, fmt.Errorf("%w: frame %d is still open", core.ErrPrecondition, c.current.Number)
	}
	resized := c.framebufferSizeGeneration != c.framebufferSizeLastGeneration && c.config.Recreate
	if resized || c.recreatePending {
		if err := c.recreate(); err != nil {
			return nil, err
		}
		return nil, core.ErrSwapchainBooting
	}

	slotIndex := int(c.frameNumber % uint64(len(c.slots)))
	slot := &c.slots[slotIndex]
	if err := slot.inFlight.Wait(vulkan.WaitForever); err != nil {
		return nil, err
	}
	if err := c.retire(); err != nil {
		return nil, err
	}

	imageIndex, status, err := c.swapchain.AcquireNextImage(c.config.AcquireTimeout, slot.imageAvailable, nil)
	if err != nil {
		if errors.Is(err, core.ErrOutOfDate) && c.config.Recreate {
			if err := c.recreate(); err != nil {
				return nil, err
			}
			return nil, core.ErrSwapchainBooting
		}
		return nil, err
	}

	// The image may still be in use by a frame submitted from another slot.
	if prev := c.imagesInFlight[imageIndex]; prev != nil && prev != slot.inFlight {
		if err := prev.Wait(vulkan.WaitForever); err != nil {
			c.recreatePending = true
			return nil, err
		}
	}
	c.imagesInFlight[imageIndex] = slot.inFlight

	frame := &Frame{
		Number:        c.frameNumber,
		Slot:          slotIndex,
		ImageIndex:    imageIndex,
		Image:         c.swapchain.Images()[imageIndex],
		Framebuffer:   c.targets.framebuffers[imageIndex],
		CommandBuffer: slot.commandBuffer,
		Extent:        c.swapchain.Extent,
	}
	if status == vulkan.AcquireSuboptimal {
		c.suboptimal(frame)
	}
	c.current = frame
	return frame, nil
}

func (c *FrameCoordinator) checkOpen(op string, f *Frame) error {
	if f == nil || f != c.current {
		return fmt.Errorf("%s: %w: frame is not the open frame", op, core.ErrPrecondition)
	}
	return nil
}

// Submit queues cmds for the frame. They wait for the image to be
// available at the color attachment output stage and signal the frame's
// render finished semaphore and fence.
func (c *FrameCoordinator) Submit(f *Frame, cmds ...*vulkan.VulkanCommandBuffer) error {
	const op = "submit frame"
	if err := c.checkOpen(op, f); err != nil {
		return err
	}
	if f.submitted {
		return fmt.Errorf("%s: %w: frame %d was already submitted", op, core.ErrPrecondition, f.Number)
	}
	if c.inFlight.IsFull() {
		return fmt.Errorf("%s: frame %d: %d submissions in flight: %w", op, f.Number, c.inFlight.Len(), containers.ErrQueueFull)
	}
	slot := &c.slots[f.Slot]
	if err := slot.inFlight.Reset(); err != nil {
		return err
	}
	submits := []vulkan.SubmitInfo{{
		WaitSemaphores:   []*vulkan.VulkanSemaphore{slot.imageAvailable},
		WaitStages:       []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBuffers:   cmds,
		SignalSemaphores: []*vulkan.VulkanSemaphore{slot.renderFinished},
	}}
	var err error
	if c.config.Locks != nil {
		err = c.config.Locks.Submit(c.config.GraphicsQueue, submits, slot.inFlight)
	} else {
		err = c.config.GraphicsQueue.Submit(submits, slot.inFlight)
	}
	if err != nil {
		return err
	}
	if err := c.inFlight.Enqueue(submission{frame: f.Number, fence: slot.inFlight}); err != nil {
		return fmt.Errorf("%s: frame %d: %w", op, f.Number, err)
	}
	f.submitted = true
	return nil
}

// Present queues the frame's image for presentation and advances to the
// next slot.
func (c *FrameCoordinator) Present(f *Frame) error {
	const op = "present frame"
	if err := c.checkOpen(op, f); err != nil {
		return err
	}
	if !f.submitted {
		return fmt.Errorf("%s: %w: frame %d was not submitted", op, core.ErrPrecondition, f.Number)
	}
	info := vulkan.PresentInfo{
		WaitSemaphores: []*vulkan.VulkanSemaphore{c.slots[f.Slot].renderFinished},
		Swapchains:     []*vulkan.VulkanSwapchain{c.swapchain},
		ImageIndices:   []uint32{f.ImageIndex},
	}
	var (
		results []vk.Result
		err     error
	)
	if c.config.Locks != nil {
		results, err = c.config.Locks.Present(c.config.PresentQueue, info)
	} else {
		results, err = c.config.PresentQueue.Present(info)
	}
	c.current = nil
	c.frameNumber++
	c.updateTiming()

	if err != nil {
		if errors.Is(err, core.ErrOutOfDate) && c.config.Recreate {
			return c.recreateAfterPresent()
		}
		return err
	}
	if len(results) > 0 && results[0] == vk.Suboptimal {
		c.suboptimal(f)
	}
	if c.recreatePending {
		return c.recreateAfterPresent()
	}
	return nil
}

func (c *FrameCoordinator) recreateAfterPresent() error {
	if err := c.recreate(); err != nil && !errors.Is(err, core.ErrSwapchainBooting) {
		return err
	}
	return nil
}

func (c *FrameCoordinator) updateTiming() {
	c.clock.Update()
	now := c.clock.Elapsed()
	delta := now - c.lastTime
	c.lastTime = now
	if c.metrics.Update(delta) {
		core.LogDebug("FPS: %.0f, frame time: %.2fms", c.metrics.FPS(), c.metrics.FrameTime())
	}
}

// abandon drops an acquired frame that will not be presented. Its image
// stays acquired and its semaphore signaled, so the swapchain is rebuilt
// before the next frame.
func (c *FrameCoordinator) abandon(f *Frame) {
	if f == c.current {
		c.current = nil
		c.recreatePending = true
	}
}

// RecordFunc records draw commands inside the frame's render pass.
type RecordFunc func(f *Frame, cb *vulkan.VulkanCommandBuffer) error

// RenderFrame runs one full cycle: begin, record into the slot's command
// buffer inside the present render pass, submit and present. A frame
// skipped for a swapchain recreation returns nil.
func (c *FrameCoordinator) RenderFrame(record RecordFunc) error {
	f, err := c.BeginFrame()
	if errors.Is(err, core.ErrSwapchainBooting) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := c.record(f, record); err != nil {
		c.abandon(f)
		return err
	}
	if err := c.Submit(f, f.CommandBuffer); err != nil {
		c.abandon(f)
		return err
	}
	return c.Present(f)
}

func (c *FrameCoordinator) record(f *Frame, record RecordFunc) error {
	cb := f.CommandBuffer
	if err := cb.Begin(vulkan.BeginConfig{}); err != nil {
		return err
	}
	viewport := vk.Viewport{
		Width:    float32(f.Extent.Width),
		Height:   float32(f.Extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	if err := cb.SetViewport(0, viewport); err != nil {
		return err
	}
	if err := cb.SetScissor(0, vk.Rect2D{Extent: f.Extent}); err != nil {
		return err
	}
	cc := c.config.ClearColor
	err := cb.BeginRenderPass(vulkan.RenderPassBeginConfig{
		RenderPass:  c.targets.renderPass,
		Framebuffer: f.Framebuffer,
		ClearValues: []vk.ClearValue{vulkan.ClearColor(cc[0], cc[1], cc[2], cc[3])},
		Contents:    vk.SubpassContentsInline,
	})
	if err != nil {
		return err
	}
	if record != nil {
		if err := record(f, cb); err != nil {
			return err
		}
	}
	if err := cb.EndRenderPass(); err != nil {
		return err
	}
	return cb.End()
}

// Destroy waits for the device to go idle and releases everything the
// coordinator created.
func (c *FrameCoordinator) Destroy() {
	if c.device == nil {
		return
	}
	if err := c.device.WaitIdle(); err != nil {
		core.LogWarn("frame coordinator: wait idle before destroy: %v", err)
	}
	c.destroySlots()
	c.targets.destroy()
	if c.swapchain != nil {
		c.swapchain.Destroy()
		c.swapchain = nil
	}
	if c.pool != nil {
		c.pool.Destroy()
		c.pool = nil
	}
	c.device = nil
}
