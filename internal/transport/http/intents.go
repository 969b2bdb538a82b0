package http

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleshka4/dex-aggregator/internal/swap"
)

// intentBook holds built intents until they are submitted.
type intentBook struct {
	mu      sync.Mutex
	intents map[uuid.UUID]*swap.Intent
	now     func() time.Time
}

func newIntentBook() *intentBook {
	return &intentBook{
		intents: make(map[uuid.UUID]*swap.Intent),
		now:     time.Now,
	}
}

// put stores in and drops expired intents.
func (b *intentBook) put(in *swap.Intent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, old := range b.intents {
		if old.Expired(now) {
			delete(b.intents, id)
		}
	}
	b.intents[in.ID] = in
}

// take removes and returns the intent with id.
func (b *intentBook) take(id uuid.UUID) (*swap.Intent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	in, ok := b.intents[id]
	if ok {
		delete(b.intents, id)
	}
	return in, ok
}

func (b *intentBook) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.intents)
}
