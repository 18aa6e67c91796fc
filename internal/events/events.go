// Package events carries post-commit notifications to in-process
// subscribers. Delivery is best-effort: every subscriber runs on every
// publish, a failing or panicking subscriber is logged and skipped, and
// nothing ever propagates back to the publisher.
package events

import (
	"context"
	"log"
	"sync"

	"github.com/safar/go-storefront/internal/models"
)

type OrderCreated struct {
	Order *models.Order
}

type OrderCreatedHandler func(ctx context.Context, event OrderCreated) error

type Bus struct {
	mu          sync.RWMutex
	subscribers []OrderCreatedHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SubscribeOrderCreated(handler OrderCreatedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, handler)
}

// PublishOrderCreated invokes every subscriber in registration order.
func (b *Bus) PublishOrderCreated(ctx context.Context, event OrderCreated) {
	b.mu.RLock()
	subscribers := make([]OrderCreatedHandler, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.RUnlock()

	for i, handler := range subscribers {
		b.deliver(ctx, i, handler, event)
	}
}

func (b *Bus) deliver(ctx context.Context, i int, handler OrderCreatedHandler, event OrderCreated) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("order_created subscriber %d panicked: %v", i, r)
		}
	}()

	if err := handler(ctx, event); err != nil {
		log.Printf("order_created subscriber %d failed: %v", i, err)
	}
}
