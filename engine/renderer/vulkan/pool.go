package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
)

// LockGroup names a class of objects whose calls a LockPool serializes.
type LockGroup string

const (
	CommandPoolManagement     LockGroup = "command_pool_management"
	DescriptorPoolManagement  LockGroup = "descriptor_pool_management"
	MemoryManagement          LockGroup = "memory_management"
	PipelineManagement        LockGroup = "pipeline_management"
	SwapchainManagement       LockGroup = "swapchain_management"
	SynchronizationManagement LockGroup = "synchronization_management"
)

// LockPool hands out one mutex per lock group and one per queue family. The
// wrappers perform no locking of their own: goroutines sharing a queue or a
// pool go through the same LockPool. The zero value is ready to use.
type LockPool struct {
	mu     sync.Mutex // Protects access to the maps
	groups map[LockGroup]*sync.Mutex
	queues map[uint32]*sync.Mutex
}

func NewLockPool() *LockPool {
	return &LockPool{}
}

func (lp *LockPool) group(g LockGroup) *sync.Mutex {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.groups == nil {
		lp.groups = make(map[LockGroup]*sync.Mutex)
	}
	l, ok := lp.groups[g]
	if !ok {
		l = &sync.Mutex{}
		lp.groups[g] = l
	}
	return l
}

func (lp *LockPool) queue(family uint32) *sync.Mutex {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.queues == nil {
		lp.queues = make(map[uint32]*sync.Mutex)
	}
	l, ok := lp.queues[family]
	if !ok {
		l = &sync.Mutex{}
		lp.queues[family] = l
	}
	return l
}

// SafeCall runs fn holding the mutex of group.
func (lp *LockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lp.group(group)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// SafeQueueCall runs fn holding the mutex of the queue family. The pool map
// lock is not held while fn runs.
func (lp *LockPool) SafeQueueCall(family uint32, fn func() error) error {
	l := lp.queue(family)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Submit is q.Submit serialized on the queue family.
func (lp *LockPool) Submit(q *VulkanQueue, submits []SubmitInfo, fence *VulkanFence) error {
	return lp.SafeQueueCall(q.Family, func() error {
		return q.Submit(submits, fence)
	})
}

// Present is q.Present serialized on the queue family.
func (lp *LockPool) Present(q *VulkanQueue, info PresentInfo) ([]vk.Result, error) {
	var results []vk.Result
	err := lp.SafeQueueCall(q.Family, func() error {
		var err error
		results, err = q.Present(info)
		return err
	})
	return results, err
}
