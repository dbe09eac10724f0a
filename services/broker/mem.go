package brokersvc

import (
	"context"
	"sync"

	"github.com/elimuhq/elimu/core"
)

// subscriber buffer; a subscriber this far behind starts losing events.
const subBufSize = 16

type memBroker struct {
	mu   sync.Mutex
	subs map[chan core.Event]struct{}
}

var _ core.Broker = (*memBroker)(nil)

// NewMemBroker fans events out in process. It is the single-instance default;
// deployments with several API instances use the Redis broker instead.
func NewMemBroker() *memBroker {
	return &memBroker{subs: make(map[chan core.Event]struct{})}
}

func (b *memBroker) Publish(_ context.Context, evt core.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		select {
		case sub <- evt:
		default: // subscriber is full; drop rather than block
		}
	}
}

func (b *memBroker) Subscribe(ctx context.Context) (<-chan core.Event, func()) {
	ch := make(chan core.Event, subBufSize)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel
}
