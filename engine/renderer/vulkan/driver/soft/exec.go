package soft

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// work is one queued unit: a batch of command buffers or a presentation.
type work interface {
	run(d *Driver)
}

type semValue struct {
	sem   handle
	value uint64
}

type submission struct {
	buffers []handle
	waits   []semValue
	signals []semValue
	fence   handle
}

func (d *Driver) queue(q vk.Queue, op string) (*queueObj, bool) {
	obj, ok := d.get(KindQueue, unsafe.Pointer(q), op)
	if !ok {
		return nil, false
	}
	return obj.(*queueObj), true
}

// drain executes pending work on qh in order until done reports true or
// the queue is empty. It returns whether done was satisfied. A queue already
// being drained further up the stack is left alone so cross-queue waits
// cannot run its work out of order.
func (d *Driver) drain(qh handle, done func() bool) bool {
	e, ok := d.arenas[KindQueue].lookup(qh)
	if !ok {
		return done != nil && done()
	}
	q := e.obj.(*queueObj)
	if d.draining[qh] {
		return done != nil && done()
	}
	d.draining[qh] = true
	defer delete(d.draining, qh)
	for {
		if done != nil && done() {
			return true
		}
		if len(q.pending) == 0 {
			return done == nil
		}
		w := q.pending[0]
		q.pending = q.pending[1:]
		w.run(d)
	}
}

// drainDevice drains every queue of the device owning owner until done.
func (d *Driver) drainDevice(device handle, done func() bool) bool {
	e, ok := d.arenas[KindDevice].lookup(device)
	if !ok {
		return done()
	}
	for _, qh := range e.obj.(*deviceObj).queues {
		if d.drain(qh, done) {
			return true
		}
	}
	return done()
}

func (d *Driver) semaphore(h handle) *semaphoreObj {
	e, ok := d.arenas[KindSemaphore].lookup(h)
	if !ok {
		return nil
	}
	return e.obj.(*semaphoreObj)
}

func (d *Driver) semaphoreReached(w semValue) bool {
	s := d.semaphore(w.sem)
	if s == nil {
		return true
	}
	if s.timeline {
		return s.value >= w.value
	}
	return s.signaled
}

// wait consumes a semaphore wait, first running other queues of the same
// device if that is the only way the semaphore can be signaled.
func (d *Driver) wait(device, self handle, w semValue) {
	s := d.semaphore(w.sem)
	if s == nil {
		d.report("queue wait: use of destroyed Semaphore %#x", uint32(w.sem))
		return
	}
	if !d.semaphoreReached(w) {
		if e, ok := d.arenas[KindDevice].lookup(device); ok {
			for _, qh := range e.obj.(*deviceObj).queues {
				if qh != self && d.drain(qh, func() bool { return d.semaphoreReached(w) }) {
					break
				}
			}
		}
	}
	if !d.semaphoreReached(w) {
		if s.timeline {
			d.report("queue wait: timeline semaphore %#x waits for %d but is at %d with nothing pending to signal it",
				uint32(w.sem), w.value, s.value)
		} else {
			d.report("queue wait: binary semaphore %#x has no pending signal operation", uint32(w.sem))
		}
		return
	}
	if !s.timeline {
		s.signaled = false
	}
}

func (d *Driver) signal(w semValue) {
	s := d.semaphore(w.sem)
	if s == nil {
		d.report("queue signal: use of destroyed Semaphore %#x", uint32(w.sem))
		return
	}
	if s.timeline {
		if w.value <= s.value {
			d.report("queue signal: timeline semaphore %#x signaled with %d, not greater than %d", uint32(w.sem), w.value, s.value)
			return
		}
		s.value = w.value
		return
	}
	if s.signaled {
		d.report("queue signal: binary semaphore %#x is already signaled", uint32(w.sem))
	}
	s.signaled = true
}

type queuedSubmission struct {
	submission
	device handle
	queue  handle
}

func (s *queuedSubmission) run(d *Driver) {
	for _, w := range s.waits {
		d.wait(s.device, s.queue, w)
	}
	for _, h := range s.buffers {
		e, ok := d.arenas[KindCommandBuffer].lookup(h)
		if !ok {
			d.report("queue execute: use of destroyed CommandBuffer %#x", uint32(h))
			continue
		}
		cb := e.obj.(*commandBufferObj)
		for _, o := range cb.ops {
			o(d)
		}
		if cb.oneTime {
			cb.state = cbInvalid
		} else {
			cb.state = cbExecutable
		}
	}
	for _, sg := range s.signals {
		d.signal(sg)
	}
	if s.fence != 0 {
		if e, ok := d.arenas[KindFence].lookup(s.fence); ok {
			e.obj.(*fenceObj).signaled = true
		} else {
			d.report("queue execute: use of destroyed Fence %#x", uint32(s.fence))
		}
	}
	d.stats.Submits++
}

func (d *Driver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return d.QueueSubmitTimeline(queue, submits, nil, nil, fence)
}

func (d *Driver) QueueSubmitTimeline(queue vk.Queue, submits []vk.SubmitInfo, waitValues, signalValues [][]uint64, fence vk.Fence) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	const op = "vkQueueSubmit"
	q, ok := d.queue(queue, op)
	if !ok {
		return vk.ErrorDeviceLost
	}
	qh := handleOf(unsafe.Pointer(queue))
	fh := handleOf(unsafe.Pointer(fence))
	if fh != 0 {
		obj, ok := d.get(KindFence, fh.ptr(), op)
		if !ok {
			return vk.ErrorInitializationFailed
		}
		if obj.(*fenceObj).signaled {
			d.report("%s: fence %#x is already signaled", op, uint32(fh))
		}
	}

	batch := make([]*queuedSubmission, 0, max(len(submits), 1))
	for i, s := range submits {
		qs := &queuedSubmission{device: q.device, queue: qh}
		if len(s.PWaitDstStageMask) != len(s.PWaitSemaphores) {
			d.report("%s: submit %d has %d wait semaphores but %d stage masks", op, i, len(s.PWaitSemaphores), len(s.PWaitDstStageMask))
		}
		values := func(all [][]uint64) []uint64 {
			if i < len(all) {
				return all[i]
			}
			return nil
		}
		for j, sem := range s.PWaitSemaphores {
			obj, ok := d.get(KindSemaphore, unsafe.Pointer(sem), op)
			if !ok {
				return vk.ErrorInitializationFailed
			}
			w := semValue{sem: handleOf(unsafe.Pointer(sem))}
			if obj.(*semaphoreObj).timeline {
				vs := values(waitValues)
				if j >= len(vs) {
					d.report("%s: timeline semaphore %#x waited without a value", op, uint32(w.sem))
					return vk.ErrorInitializationFailed
				}
				w.value = vs[j]
			}
			qs.waits = append(qs.waits, w)
		}
		for j, sem := range s.PSignalSemaphores {
			obj, ok := d.get(KindSemaphore, unsafe.Pointer(sem), op)
			if !ok {
				return vk.ErrorInitializationFailed
			}
			sg := semValue{sem: handleOf(unsafe.Pointer(sem))}
			if obj.(*semaphoreObj).timeline {
				vs := values(signalValues)
				if j >= len(vs) {
					d.report("%s: timeline semaphore %#x signaled without a value", op, uint32(sg.sem))
					return vk.ErrorInitializationFailed
				}
				sg.value = vs[j]
			}
			qs.signals = append(qs.signals, sg)
		}
		for _, cbv := range s.PCommandBuffers {
			obj, ok := d.get(KindCommandBuffer, unsafe.Pointer(cbv), op)
			if !ok {
				return vk.ErrorInitializationFailed
			}
			cb := obj.(*commandBufferObj)
			if cb.state != cbExecutable {
				d.report("%s: command buffer %#x is in %s state, not executable", op, uint32(handleOf(unsafe.Pointer(cbv))), cb.state)
				return vk.ErrorInitializationFailed
			}
			if cb.level != vk.CommandBufferLevelPrimary {
				d.report("%s: secondary command buffers cannot be submitted", op)
				return vk.ErrorInitializationFailed
			}
			qs.buffers = append(qs.buffers, handleOf(unsafe.Pointer(cbv)))
		}
		batch = append(batch, qs)
	}
	if len(batch) == 0 {
		batch = append(batch, &queuedSubmission{device: q.device, queue: qh})
	}
	batch[len(batch)-1].fence = fh

	for _, qs := range batch {
		for _, h := range qs.buffers {
			e, _ := d.arenas[KindCommandBuffer].lookup(h)
			e.obj.(*commandBufferObj).state = cbPending
		}
		q.pending = append(q.pending, qs)
	}
	return vk.Success
}

func (d *Driver) QueueWaitIdle(queue vk.Queue) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.queue(queue, "vkQueueWaitIdle"); !ok {
		return vk.ErrorDeviceLost
	}
	d.drain(handleOf(unsafe.Pointer(queue)), nil)
	return vk.Success
}

// PendingWork returns the number of queued but unexecuted units on queue.
func (d *Driver) PendingWork(queue vk.Queue) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queue(queue, "PendingWork")
	if !ok {
		return 0
	}
	return len(q.pending)
}
