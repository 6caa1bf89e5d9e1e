package soft

import (
	"errors"
	"image"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Window is a virtual presentation target. It stands in for a platform
// window: the wrapper layer creates its surface through CreateWindowSurface
// exactly as it would through GLFW.
type Window struct {
	d          *Driver
	surface    handle
	width      uint32
	height     uint32
	version    uint64
	suboptimal bool
	lost       bool

	frame       []byte
	frameFormat vk.Format
	frameExtent vk.Extent2D
	presents    int
}

// NewWindow returns a window with the given framebuffer size.
func (d *Driver) NewWindow(width, height uint32) *Window {
	return &Window{d: d, width: width, height: height}
}

// CreateWindowSurface registers the window as a surface of instance, which
// must be a vk.Instance created by the same driver.
func (w *Window) CreateWindowSurface(instance interface{}, _ unsafe.Pointer) (uintptr, error) {
	inst, ok := instance.(vk.Instance)
	if !ok {
		return 0, errors.New("soft: instance is not a vk.Instance")
	}
	d := w.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(KindInstance, unsafe.Pointer(inst), "vkCreateSurfaceKHR"); !ok {
		return 0, errors.New("soft: unknown instance")
	}
	if _, ok := d.arenas[KindSurface].lookup(w.surface); ok {
		return 0, errors.New("soft: window already has a surface")
	}
	h, res := d.create(KindSurface, handleOf(unsafe.Pointer(inst)), w)
	if res != vk.Success {
		return 0, errors.New("soft: surface arena exhausted")
	}
	w.surface = h
	return uintptr(h), nil
}

// Resize changes the framebuffer size; swapchains built for the old size
// report out of date from then on.
func (w *Window) Resize(width, height uint32) {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	w.width, w.height = width, height
	w.version++
}

// SetSuboptimal makes acquire and present report Suboptimal.
func (w *Window) SetSuboptimal(v bool) {
	w.d.mu.Lock()
	w.suboptimal = v
	w.d.mu.Unlock()
}

// Lose makes every later surface operation fail with SurfaceLost.
func (w *Window) Lose() {
	w.d.mu.Lock()
	w.lost = true
	w.d.mu.Unlock()
}

// Size returns the current framebuffer size.
func (w *Window) Size() (uint32, uint32) {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	return w.width, w.height
}

// Presents returns how many images were presented to the window.
func (w *Window) Presents() int {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	return w.presents
}

// Snapshot returns the last presented image, or nil before the first present.
func (w *Window) Snapshot() *image.RGBA {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	if w.frame == nil {
		return nil
	}
	width, height := int(w.frameExtent.Width), int(w.frameExtent.Height)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	ts := texelSize(w.frameFormat)
	for i := 0; i < width*height; i++ {
		px := rgba(w.frameFormat, w.frame[i*ts:(i+1)*ts])
		copy(img.Pix[i*4:], px[:])
	}
	return img
}

func (d *Driver) swapchain(sc vk.Swapchain, op string) (*swapchainObj, bool) {
	obj, ok := d.get(KindSwapchain, unsafe.Pointer(sc), op)
	if !ok {
		return nil, false
	}
	return obj.(*swapchainObj), true
}

func (d *Driver) window(h handle) *Window {
	e, ok := d.arenas[KindSurface].lookup(h)
	if !ok {
		return nil
	}
	return e.obj.(*Window)
}

func (d *Driver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkCreateSwapchainKHR"
	obj, ok := d.get(KindSurface, unsafe.Pointer(info.Surface), op)
	if !ok {
		return nil, vk.ErrorSurfaceLost
	}
	w := obj.(*Window)
	if w.lost {
		return nil, vk.ErrorSurfaceLost
	}
	if info.ImageExtent.Width == 0 || info.ImageExtent.Height == 0 {
		d.report("%s: image extent %dx%d is empty", op, info.ImageExtent.Width, info.ImageExtent.Height)
		return nil, vk.ErrorInitializationFailed
	}
	if info.ImageExtent.Width != w.width || info.ImageExtent.Height != w.height {
		d.report("%s: image extent %dx%d does not match surface %dx%d", op,
			info.ImageExtent.Width, info.ImageExtent.Height, w.width, w.height)
	}
	if info.OldSwapchain != nil {
		old, ok := d.swapchain(info.OldSwapchain, op)
		if !ok {
			return nil, vk.ErrorInitializationFailed
		}
		old.retired = true
	} else {
		live := false
		d.arenas[KindSwapchain].each(func(_ handle, e *entry) {
			if s := e.obj.(*swapchainObj); s.surface == w.surface && !s.retired {
				live = true
			}
		})
		if live {
			d.report("%s: surface already has a swapchain and no old swapchain was given", op)
			return nil, vk.ErrorNativeWindowInUse
		}
	}
	count := min(max(info.MinImageCount, d.cfg.MinImageCount), d.cfg.MaxImageCount)
	sc := &swapchainObj{
		surface:        w.surface,
		surfaceVersion: w.version,
		format:         info.ImageFormat,
		extent:         info.ImageExtent,
		held:           make([]bool, count),
	}
	p, res := d.child(device, KindSwapchain, sc, op)
	if res != vk.Success {
		return nil, res
	}
	sh := handleOf(p)
	for i := uint32(0); i < count; i++ {
		img := &imageObj{
			format:    info.ImageFormat,
			extent:    vk.Extent3D{Width: info.ImageExtent.Width, Height: info.ImageExtent.Height, Depth: 1},
			layers:    1,
			mips:      1,
			usage:     info.ImageUsage,
			swapchain: sh,
		}
		img.own = make([]byte, img.size())
		ih, res := d.create(KindImage, sh, img)
		if res != vk.Success {
			return nil, res
		}
		sc.images = append(sc.images, ih)
	}
	return vk.Swapchain(p), vk.Success
}

func (d *Driver) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := handleOf(unsafe.Pointer(swapchain))
	if h == 0 {
		return
	}
	d.releaseOwned(h)
	d.destroy(KindSwapchain, h.ptr(), "vkDestroySwapchainKHR")
}

func (d *Driver) GetSwapchainImages(device vk.Device, swapchain vk.Swapchain, count *uint32, out []vk.Image) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.swapchain(swapchain, "vkGetSwapchainImagesKHR")
	if !ok {
		return vk.ErrorSurfaceLost
	}
	all := make([]vk.Image, len(sc.images))
	for i, h := range sc.images {
		all[i] = vk.Image(h.ptr())
	}
	return enumerate(all, count, out)
}

// surfaceState reports the result presentation through sc would see now.
func (d *Driver) surfaceState(sc *swapchainObj) vk.Result {
	w := d.window(sc.surface)
	switch {
	case w == nil || w.lost:
		return vk.ErrorSurfaceLost
	case sc.retired || w.version != sc.surfaceVersion:
		return vk.ErrorOutOfDate
	case w.suboptimal:
		return vk.Suboptimal
	}
	return vk.Success
}

func (sc *swapchainObj) free() int {
	n := len(sc.images)
	for i := 0; i < n; i++ {
		idx := (sc.next + i) % n
		if !sc.held[idx] {
			return idx
		}
	}
	return -1
}

func (d *Driver) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkAcquireNextImageKHR"
	sc, ok := d.swapchain(swapchain, op)
	if !ok {
		return 0, vk.ErrorSurfaceLost
	}
	if semaphore == nil && fence == nil {
		d.report("%s: semaphore and fence are both null", op)
	}
	state := d.surfaceState(sc)
	if state != vk.Success && state != vk.Suboptimal {
		return 0, state
	}

	idx := sc.free()
	if idx < 0 && timeout != 0 {
		e, _ := d.arenas[KindSwapchain].lookup(handleOf(unsafe.Pointer(swapchain)))
		d.drainDevice(e.owner, func() bool { return sc.free() >= 0 })
		idx = sc.free()
	}
	if idx < 0 {
		switch timeout {
		case 0:
			return 0, vk.NotReady
		case infinite:
			d.report("%s: all %d images are held by the application; acquire can never complete", op, len(sc.images))
		}
		return 0, vk.Timeout
	}

	if semaphore != nil {
		obj, ok := d.get(KindSemaphore, unsafe.Pointer(semaphore), op)
		if !ok {
			return 0, vk.ErrorInitializationFailed
		}
		s := obj.(*semaphoreObj)
		if s.timeline {
			d.report("%s: semaphore must be binary", op)
			return 0, vk.ErrorInitializationFailed
		}
		if s.signaled {
			d.report("%s: semaphore %#x is already signaled", op, uint32(handleOf(unsafe.Pointer(semaphore))))
		}
		s.signaled = true
	}
	if fence != nil {
		obj, ok := d.get(KindFence, unsafe.Pointer(fence), op)
		if !ok {
			return 0, vk.ErrorInitializationFailed
		}
		obj.(*fenceObj).signaled = true
	}
	sc.held[idx] = true
	sc.next = (idx + 1) % len(sc.images)
	return uint32(idx), state
}

type presentation struct {
	device     handle
	queue      handle
	waits      []semValue
	swapchains []handle
	indices    []uint32
	// show is false for targets that were out of date at present time.
	show []bool
}

func (p *presentation) run(d *Driver) {
	for _, w := range p.waits {
		d.wait(p.device, p.queue, w)
	}
	for i, sh := range p.swapchains {
		e, ok := d.arenas[KindSwapchain].lookup(sh)
		if !ok {
			continue
		}
		sc := e.obj.(*swapchainObj)
		idx := p.indices[i]
		sc.held[idx] = false
		if !p.show[i] {
			continue
		}
		w := d.window(sc.surface)
		img, ok := d.arenas[KindImage].lookup(sc.images[idx])
		if w == nil || !ok {
			continue
		}
		w.frame = append(w.frame[:0], img.obj.(*imageObj).own...)
		w.frameFormat = sc.format
		w.frameExtent = sc.extent
		w.presents++
		d.stats.Presents++
	}
}

func (d *Driver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkQueuePresentKHR"
	q, ok := d.queue(queue, op)
	if !ok {
		return vk.ErrorDeviceLost
	}
	if !d.familyPresents(q.family) {
		d.report("%s: queue family %d cannot present", op, q.family)
		return vk.ErrorInitializationFailed
	}
	if len(info.PSwapchains) != len(info.PImageIndices) {
		d.report("%s: %d swapchains but %d image indices", op, len(info.PSwapchains), len(info.PImageIndices))
		return vk.ErrorInitializationFailed
	}
	p := &presentation{device: q.device, queue: handleOf(unsafe.Pointer(queue))}
	for _, sem := range info.PWaitSemaphores {
		if _, ok := d.get(KindSemaphore, unsafe.Pointer(sem), op); !ok {
			return vk.ErrorInitializationFailed
		}
		p.waits = append(p.waits, semValue{sem: handleOf(unsafe.Pointer(sem))})
	}

	overall := vk.Success
	for i, swapchain := range info.PSwapchains {
		sc, ok := d.swapchain(swapchain, op)
		if !ok {
			return vk.ErrorSurfaceLost
		}
		idx := info.PImageIndices[i]
		if int(idx) >= len(sc.images) || !sc.held[idx] {
			d.report("%s: image %d was not acquired", op, idx)
			return vk.ErrorInitializationFailed
		}
		res := d.surfaceState(sc)
		p.swapchains = append(p.swapchains, handleOf(unsafe.Pointer(swapchain)))
		p.indices = append(p.indices, idx)
		p.show = append(p.show, res == vk.Success || res == vk.Suboptimal)
		if i < len(info.PResults) {
			info.PResults[i] = res
		}
		switch {
		case res < 0 && overall >= 0:
			overall = res
		case res == vk.Suboptimal && overall == vk.Success:
			overall = res
		}
	}
	q.pending = append(q.pending, p)
	return overall
}
