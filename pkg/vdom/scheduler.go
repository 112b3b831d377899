package vdom

import "sync"

// Scheduler batches component re-render requests. Requests made before a
// flush coalesce into one batch; a request whose committed ancestor is
// also in the batch is skipped, since re-rendering the ancestor renders
// the descendant through the normal content diff. Task queues are
// drained after all component batches of the same flush, each task
// exactly once.
//
// Go has no microtask queue, so deferral is pluggable: with no Defer
// hook, requests accumulate until an explicit Flush (how tests and
// hydration drain); a live session installs a Defer hook that wakes its
// event loop.
type Scheduler struct {
	mu       sync.Mutex
	queue    []*VNode
	queued   map[*Instance]bool
	tasks    []func()
	pending  bool
	deferFn  func(flush func())
	rerender func(*VNode)
}

// NewScheduler creates a scheduler. The rerender callback is invoked for
// every batch entry that survives the ancestor-skip rule.
func NewScheduler(rerender func(*VNode)) *Scheduler {
	return &Scheduler{
		queued:   make(map[*Instance]bool),
		rerender: rerender,
	}
}

// SetDefer installs the deferred-flush hook. The hook receives a flush
// function to call when the embedding event loop is ready.
func (s *Scheduler) SetDefer(fn func(flush func())) {
	s.mu.Lock()
	s.deferFn = fn
	s.mu.Unlock()
}

// Enqueue requests a re-render of the component vnode. Duplicate
// requests for the same instance coalesce.
func (s *Scheduler) Enqueue(v *VNode) {
	if v == nil || v.Kind != KComponent || v.inst == nil {
		return
	}
	s.mu.Lock()
	if !s.queued[v.inst] {
		s.queued[v.inst] = true
		s.queue = append(s.queue, v)
	}
	deferFn := s.deferFn
	shouldDefer := !s.pending && deferFn != nil
	if shouldDefer {
		s.pending = true
	}
	s.mu.Unlock()
	if shouldDefer {
		deferFn(s.Flush)
	}
}

// EnqueueTasks adds tasks to the post-render task queue.
func (s *Scheduler) EnqueueTasks(tasks []func()) {
	if len(tasks) == 0 {
		return
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, tasks...)
	s.mu.Unlock()
}

// Flush drains all pending component batches, then runs the task queue
// once. Safe to call with nothing pending.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		batchSet := s.queued
		s.queued = make(map[*Instance]bool)
		s.mu.Unlock()
		if len(batch) == 0 {
			break
		}
		for _, v := range batch {
			in := v.inst
			if in.removed || in.vnode != v {
				// Replaced or torn down since enqueue.
				continue
			}
			if ancestorScheduled(v, batchSet) {
				continue
			}
			s.rerender(v)
		}
	}
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, t := range tasks {
		t()
	}
}

// ancestorScheduled walks the parent chain looking for a component
// instance that is part of the same batch.
func ancestorScheduled(v *VNode, batch map[*Instance]bool) bool {
	for p := v.parent; p != nil; p = p.parent {
		if p.Kind == KComponent && p.inst != nil && batch[p.inst] {
			return true
		}
	}
	return false
}
