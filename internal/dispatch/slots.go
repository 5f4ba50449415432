package dispatch

import "context"

// SlotPool bounds the number of concurrently supervised crawl
// processes. Each admitted job holds exactly one slot until terminal.
type SlotPool struct {
	slots chan struct{}
}

// NewSlotPool creates a pool with the given capacity.
func NewSlotPool(capacity int) *SlotPool {
	if capacity < 1 {
		capacity = 1
	}
	return &SlotPool{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or the context finishes.
func (p *SlotPool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire reserves a slot without blocking.
func (p *SlotPool) TryAcquire() bool {
	select {
	case p.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a slot. Releasing more slots than were acquired is a
// bookkeeping bug, not a runtime condition, so it panics.
func (p *SlotPool) Release() {
	select {
	case <-p.slots:
	default:
		panic("dispatch: slot released without acquire")
	}
}

// InUse reports the number of currently held slots.
func (p *SlotPool) InUse() int {
	return len(p.slots)
}

// Capacity reports the configured maximum.
func (p *SlotPool) Capacity() int {
	return cap(p.slots)
}
