// Package event moves blob cleanup off the request path: eviction publishes
// a removal event, workers delete the file with retries. A lost event only
// orphans a blob file, which is harmless.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
)

// Remover deletes a stored blob by key. Removing an absent blob must
// succeed, since an event can be retried after a partial failure.
type Remover interface {
	Remove(key string) error
}

type ConsumerConfig struct {
	Workers     int
	MaxRetries  int
	BaseBackoff time.Duration
}

// CleanupConsumer drains the bus and deletes evicted blobs.
type CleanupConsumer struct {
	bus         *Bus
	remover     Remover
	workers     int
	maxRetries  int
	baseBackoff time.Duration
	seen        sync.Map
	wg          sync.WaitGroup
}

func NewCleanupConsumer(bus *Bus, remover Remover, cfg ConsumerConfig) *CleanupConsumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 2
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	return &CleanupConsumer{
		bus:         bus,
		remover:     remover,
		workers:     workers,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
	}
}

func (c *CleanupConsumer) Start() {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop closes the bus and waits for in-flight deletions to finish.
func (c *CleanupConsumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CleanupConsumer) worker() {
	defer c.wg.Done()

	for event := range c.bus.Subscribe() {
		c.processEvent(event)
	}
}

func (c *CleanupConsumer) processEvent(event entity.BlobRemovalEvent) {
	if c.remover == nil {
		return
	}

	if event.EventID != "" {
		if _, loaded := c.seen.LoadOrStore(event.EventID, struct{}{}); loaded {
			slog.Info("skip duplicate blob removal event",
				"event_id", event.EventID, "blob_key", event.BlobKey)
			return
		}
	}

	backoff := c.baseBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := c.remover.Remove(event.BlobKey)
		if err == nil {
			return
		}

		if attempt == c.maxRetries {
			slog.Error("failed to remove blob after retries",
				"event_id", event.EventID, "blob_key", event.BlobKey, "error", err)
			return
		}

		if !sleepBackoff(backoff) {
			return
		}
		backoff *= 2
	}
}

func sleepBackoff(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	<-timer.C
	return true
}
