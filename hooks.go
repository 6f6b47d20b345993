package segmaster

import (
	"sync"

	"github.com/agentstation/segmaster/pkg/segments"
)

// Hook function types for segment events
type (
	// SegmentCreatedHook is called when a segment is created at the platform
	SegmentCreatedHook func(segment segments.Reconciled)

	// SegmentModifiedHook is called when a segment is re-pointed to a new master
	SegmentModifiedHook func(segment segments.Reconciled)

	// SegmentUntouchedHook is called when a segment keeps its master
	SegmentUntouchedHook func(segment segments.Reconciled)
)

// hooks manages event callbacks for reconciled segments
type hooks struct {
	mu          sync.RWMutex
	onCreated   []SegmentCreatedHook
	onModified  []SegmentModifiedHook
	onUntouched []SegmentUntouchedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnSegmentCreated registers a callback for created segments
func (h *hooks) OnSegmentCreated(fn SegmentCreatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCreated = append(h.onCreated, fn)
}

// OnSegmentModified registers a callback for modified segments
func (h *hooks) OnSegmentModified(fn SegmentModifiedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onModified = append(h.onModified, fn)
}

// OnSegmentUntouched registers a callback for untouched segments
func (h *hooks) OnSegmentUntouched(fn SegmentUntouchedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUntouched = append(h.onUntouched, fn)
}

// trigger dispatches r to the hooks registered for its status
func (h *hooks) trigger(r segments.Reconciled) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch r.Status {
	case segments.StatusCreated:
		for _, hook := range h.onCreated {
			hook(r)
		}
	case segments.StatusModified:
		for _, hook := range h.onModified {
			hook(r)
		}
	case segments.StatusUntouched:
		for _, hook := range h.onUntouched {
			hook(r)
		}
	}
}
