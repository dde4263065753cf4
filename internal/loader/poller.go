package loader

import (
	"context"
	"sync"
	"time"
)

// Poller reloads a snapshot on a fixed interval until stopped. Each tick
// is an independent Load; no state carries over between refreshes.
type Poller struct {
	loader   *Loader
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewPoller(l *Loader, interval time.Duration) *Poller {
	return &Poller{
		loader:   l,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start loads once immediately, then on every interval tick, delivering
// each result to fn. fn also receives all-candidates-failed results
// (ok=false) so the consumer can render an unavailable state.
func (p *Poller) Start(ctx context.Context, fn func(Snapshot, bool)) {
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		snap, ok := p.loader.Load(ctx)
		fn(snap, ok)

		for {
			select {
			case <-ticker.C:
				snap, ok := p.loader.Load(ctx)
				fn(snap, ok)
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the refresh loop and waits for the last delivery to
// finish. Safe to call more than once; must follow Start.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	<-p.done
}
