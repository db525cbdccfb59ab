package event

import (
	"context"
	"errors"
	"sync"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
)

var ErrBusClosed = errors.New("event bus is closed")

// Bus is a buffered in-process channel of blob removal requests.
type Bus struct {
	mu     sync.RWMutex
	closed bool
	ch     chan entity.BlobRemovalEvent
}

func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}

	return &Bus{
		ch: make(chan entity.BlobRemovalEvent, buffer),
	}
}

func (b *Bus) Publish(ctx context.Context, event entity.BlobRemovalEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}

	select {
	case b.ch <- event:
		b.mu.RUnlock()
		return nil
	case <-ctx.Done():
		b.mu.RUnlock()
		return ctx.Err()
	}
}

func (b *Bus) Subscribe() <-chan entity.BlobRemovalEvent {
	return b.ch
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.ch)
}
