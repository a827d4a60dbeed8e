package services

import (
	"context"
	"time"

	"chatrelay/internal/logging"
	"chatrelay/internal/models"
	"chatrelay/internal/selector"
	"chatrelay/internal/worker"
)

// ProbeStore persists probe outcomes.
type ProbeStore interface {
	Record(ctx context.Context, r *models.ProbeResult) error
}

// EndpointMonitor implements selector.Observer. It persists probe results
// and publishes endpoint events off the selector's critical path, then
// forwards both to any further observers.
type EndpointMonitor struct {
	store ProbeStore
	bus   EventBus
	next  []selector.Observer
	pool  *worker.Pool
}

// NewEndpointMonitor accepts a nil store or bus. A single worker keeps
// events in the order the selector emitted them.
func NewEndpointMonitor(store ProbeStore, bus EventBus, next ...selector.Observer) *EndpointMonitor {
	pool := worker.NewPool("endpoint-monitor", 1, 256, 5*time.Second)
	pool.Start()
	return &EndpointMonitor{
		store: store,
		bus:   bus,
		next:  next,
		pool:  pool,
	}
}

func (m *EndpointMonitor) ProbeCompleted(result models.ProbeResult) {
	for _, o := range m.next {
		o.ProbeCompleted(result)
	}
	if m.store == nil {
		return
	}

	m.pool.Submit(func(ctx context.Context) {
		if err := m.store.Record(ctx, &result); err != nil {
			logging.Warn("failed to record probe result", "model", result.Model, "err", err)
		}
	})
}

func (m *EndpointMonitor) EndpointChanged(event models.EndpointEvent) {
	for _, o := range m.next {
		o.EndpointChanged(event)
	}
	if m.bus == nil {
		return
	}

	m.pool.Submit(func(ctx context.Context) {
		if err := m.bus.Publish(ctx, event); err != nil {
			logging.Warn("failed to publish endpoint event", "type", event.Type, "err", err)
		}
	})
}

// Close finishes pending writes and publishes. Later notifications are
// still forwarded to the next observers but no longer persisted.
func (m *EndpointMonitor) Close() {
	m.pool.Stop()
}
