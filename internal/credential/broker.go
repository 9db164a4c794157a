// Package credential holds the API key used for remote calls and lets jobs
// wait for one to be selected at runtime.
package credential

import (
	"context"
	"strings"
	"sync"
)

type Broker struct {
	mu      sync.RWMutex
	key     string
	waiters []chan struct{}
}

func NewBroker(initialKey string) *Broker {
	return &Broker{key: strings.TrimSpace(initialKey)}
}

func (b *Broker) Key() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.key
}

func (b *Broker) HasSelectedKey(context.Context) (bool, error) {
	return b.Key() != "", nil
}

// OpenSelectKey blocks until a key is set or ctx ends.
func (b *Broker) OpenSelectKey(ctx context.Context) error {
	b.mu.Lock()
	if b.key != "" {
		b.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	b.waiters = append(b.waiters, ch)
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		for i, w := range b.waiters {
			if w == ch {
				b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		return ctx.Err()
	}
}

// Set replaces the key. A non-empty key releases every pending OpenSelectKey.
func (b *Broker) Set(key string) {
	key = strings.TrimSpace(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.key = key
	if key == "" {
		return
	}
	for _, w := range b.waiters {
		close(w)
	}
	b.waiters = nil
}

// Pending reports how many callers are waiting for a key.
func (b *Broker) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.waiters)
}
