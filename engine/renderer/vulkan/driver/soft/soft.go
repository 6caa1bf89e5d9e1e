// Package soft is an in-process implementation of driver.Driver.
//
// It keeps every object in a generation-checked arena, runs submitted work
// lazily when the host waits on it, and presents into virtual windows. Misuse
// that a validation layer would catch is recorded as a message instead of
// crashing, so tests can assert on it.
package soft

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan/driver"
)

// Kind tags every handle the driver hands out.
type Kind uint8

const (
	KindInstance Kind = iota + 1
	KindPhysicalDevice
	KindSurface
	KindDevice
	KindQueue
	KindMemory
	KindBuffer
	KindBufferView
	KindImage
	KindImageView
	KindSampler
	KindShaderModule
	KindRenderPass
	KindFramebuffer
	KindPipelineLayout
	KindPipelineCache
	KindPipeline
	KindDescriptorSetLayout
	KindDescriptorPool
	KindDescriptorSet
	KindCommandPool
	KindCommandBuffer
	KindFence
	KindSemaphore
	KindEvent
	KindSwapchain
	kindCount
)

var kindNames = [...]string{
	KindInstance:            "Instance",
	KindPhysicalDevice:      "PhysicalDevice",
	KindSurface:             "Surface",
	KindDevice:              "Device",
	KindQueue:               "Queue",
	KindMemory:              "DeviceMemory",
	KindBuffer:              "Buffer",
	KindBufferView:          "BufferView",
	KindImage:               "Image",
	KindImageView:           "ImageView",
	KindSampler:             "Sampler",
	KindShaderModule:        "ShaderModule",
	KindRenderPass:          "RenderPass",
	KindFramebuffer:         "Framebuffer",
	KindPipelineLayout:      "PipelineLayout",
	KindPipelineCache:       "PipelineCache",
	KindPipeline:            "Pipeline",
	KindDescriptorSetLayout: "DescriptorSetLayout",
	KindDescriptorPool:      "DescriptorPool",
	KindDescriptorSet:       "DescriptorSet",
	KindCommandPool:         "CommandPool",
	KindCommandBuffer:       "CommandBuffer",
	KindFence:               "Fence",
	KindSemaphore:           "Semaphore",
	KindEvent:               "Event",
	KindSwapchain:           "Swapchain",
}

func (k Kind) String() string {
	if k == 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// handle layout: kind in bits 24-31, generation in 16-23, slot+1 in 0-15.
// The kind byte is never zero, so a handle is never below 1<<24 and never
// looks like a small integer posing as a pointer.
type handle uint32

func makeHandle(kind Kind, gen uint8, slot int) handle {
	return handle(uint32(kind)<<24 | uint32(gen)<<16 | uint32(slot+1))
}

func (h handle) kind() Kind { return Kind(h >> 24) }
func (h handle) gen() uint8 { return uint8(h >> 16) }
func (h handle) slot() int  { return int(h&0xFFFF) - 1 }

func (h handle) ptr() unsafe.Pointer { return unsafe.Pointer(uintptr(h)) }

func handleOf(p unsafe.Pointer) handle { return handle(uintptr(p)) }

const maxSlots = 0xFFFF

type entry struct {
	gen   uint8
	live  bool
	owner handle
	obj   any
}

// arena stores objects of one kind. Freed slots are reused with a bumped
// generation so stale handles stay detectable.
type arena struct {
	kind    Kind
	entries []entry
	free    []int
}

func (a *arena) alloc(owner handle, obj any) (handle, bool) {
	var slot int
	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if len(a.entries) >= maxSlots {
			return 0, false
		}
		a.entries = append(a.entries, entry{})
		slot = len(a.entries) - 1
	}
	e := &a.entries[slot]
	e.live = true
	e.owner = owner
	e.obj = obj
	return makeHandle(a.kind, e.gen, slot), true
}

func (a *arena) lookup(h handle) (*entry, bool) {
	if h.kind() != a.kind {
		return nil, false
	}
	s := h.slot()
	if s < 0 || s >= len(a.entries) {
		return nil, false
	}
	e := &a.entries[s]
	if !e.live || e.gen != h.gen() {
		return nil, false
	}
	return e, true
}

func (a *arena) release(h handle) bool {
	e, ok := a.lookup(h)
	if !ok {
		return false
	}
	e.live = false
	e.obj = nil
	e.owner = 0
	e.gen++
	a.free = append(a.free, h.slot())
	return true
}

func (a *arena) each(fn func(h handle, e *entry)) {
	for i := range a.entries {
		e := &a.entries[i]
		if e.live {
			fn(makeHandle(a.kind, e.gen, i), e)
		}
	}
}

// Driver is the software implementation. It is safe for concurrent use; one
// mutex guards all object state.
type Driver struct {
	mu       sync.Mutex
	cfg      Config
	arenas   [kindCount]arena
	messages []string
	procs    map[string]*byte
	draining map[handle]bool
	stats    Stats
}

// Stats counts work the driver executed.
type Stats struct {
	Submits      int
	Presents     int
	Draws        int
	Dispatches   int
	Barriers     int
	RenderPasses int
}

var _ driver.Driver = (*Driver)(nil)

// New returns a driver exposing a single physical device described by cfg.
func New(cfg Config) *Driver {
	d := &Driver{cfg: cfg, procs: make(map[string]*byte), draining: make(map[handle]bool)}
	for k := Kind(1); k < kindCount; k++ {
		d.arenas[k].kind = k
	}
	for _, name := range cfg.DeviceProcs {
		d.procs[name] = new(byte)
	}
	return d
}

func (d *Driver) Name() string { return "soft" }

// Messages returns the validation messages recorded so far.
func (d *Driver) Messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.messages...)
}

// ClearMessages drops the recorded validation messages.
func (d *Driver) ClearMessages() {
	d.mu.Lock()
	d.messages = nil
	d.mu.Unlock()
}

// HasMessage reports whether any validation message contains substr.
func (d *Driver) HasMessage(substr string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// LiveObjects returns the number of live objects of the given kind.
func (d *Driver) LiveObjects(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	d.arenas[kind].each(func(handle, *entry) { n++ })
	return n
}

// TotalLiveObjects counts every live object except the instance-owned
// physical devices and device-owned queues, which have no destroy call.
func (d *Driver) TotalLiveObjects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for k := Kind(1); k < kindCount; k++ {
		if k == KindPhysicalDevice || k == KindQueue {
			continue
		}
		d.arenas[k].each(func(handle, *entry) { n++ })
	}
	return n
}

// Stats returns a copy of the execution counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// UnsignaledFences counts live fences that are currently unsignaled.
func (d *Driver) UnsignaledFences() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	d.arenas[KindFence].each(func(_ handle, e *entry) {
		if !e.obj.(*fenceObj).signaled {
			n++
		}
	})
	return n
}

// report records a validation message. Caller holds d.mu.
func (d *Driver) report(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.messages = append(d.messages, msg)
	core.LogWarn("soft driver: %s", msg)
}

// create allocates an object. Caller holds d.mu.
func (d *Driver) create(kind Kind, owner handle, obj any) (handle, vk.Result) {
	h, ok := d.arenas[kind].alloc(owner, obj)
	if !ok {
		return 0, vk.ErrorOutOfHostMemory
	}
	return h, vk.Success
}

// get resolves a handle, reporting stale or mistyped handles. Caller holds d.mu.
func (d *Driver) get(kind Kind, p unsafe.Pointer, op string) (any, bool) {
	h := handleOf(p)
	if h == 0 {
		d.report("%s: null %s handle", op, kind)
		return nil, false
	}
	if h.kind() != kind {
		d.report("%s: handle %#x is a %s, not a %s", op, uint32(h), h.kind(), kind)
		return nil, false
	}
	e, ok := d.arenas[kind].lookup(h)
	if !ok {
		d.report("%s: use of destroyed %s %#x", op, kind, uint32(h))
		return nil, false
	}
	return e.obj, true
}

// destroy releases an object. Destroying a null handle is a no-op as in the
// native API. Caller holds d.mu.
func (d *Driver) destroy(kind Kind, p unsafe.Pointer, op string) bool {
	h := handleOf(p)
	if h == 0 {
		return false
	}
	if !d.arenas[kind].release(h) {
		d.report("%s: double destroy of %s %#x", op, kind, uint32(h))
		return false
	}
	return true
}

// children lists live objects owned by h, by kind name. Caller holds d.mu.
func (d *Driver) children(owner handle) []string {
	counts := map[string]int{}
	for k := Kind(1); k < kindCount; k++ {
		d.arenas[k].each(func(_ handle, e *entry) {
			if e.owner == owner {
				counts[k.String()]++
			}
		})
	}
	out := make([]string, 0, len(counts))
	for name, n := range counts {
		out = append(out, fmt.Sprintf("%s x%d", name, n))
	}
	sort.Strings(out)
	return out
}

// releaseOwned drops every object owned by owner, recursively.
func (d *Driver) releaseOwned(owner handle) {
	for k := Kind(1); k < kindCount; k++ {
		var owned []handle
		d.arenas[k].each(func(h handle, e *entry) {
			if e.owner == owner {
				owned = append(owned, h)
			}
		})
		for _, h := range owned {
			d.releaseOwned(h)
			d.arenas[k].release(h)
		}
	}
}

func cstr(s string) string { return strings.TrimRight(s, "\x00") }

func cstrs(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = cstr(s)
	}
	return out
}

// enumerate implements the two-call convention over a prepared list.
func enumerate[T any](all []T, count *uint32, out []T) vk.Result {
	if out == nil {
		*count = uint32(len(all))
		return vk.Success
	}
	n := copy(out[:min(int(*count), len(out))], all)
	*count = uint32(n)
	if n < len(all) {
		return vk.Incomplete
	}
	return vk.Success
}
