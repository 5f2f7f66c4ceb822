package rulesource

import (
	"context"
	"sync"
	"time"

	"github.com/aalemi-dev/apmbridge/observability"
	"github.com/aalemi-dev/apmbridge/rules"
)

// Poller re-reads a source on an interval and activates tables with a newer version.
type Poller struct {
	src      Source
	store    *rules.Store
	interval time.Duration
	timeout  time.Duration
	logger   Logger
	observer observability.Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller returns a poller for src. timeout bounds every fetch.
func NewPoller(src Source, store *rules.Store, interval, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Poller{src: src, store: store, interval: interval, timeout: timeout}
}

func (p *Poller) WithLogger(l Logger) *Poller {
	p.logger = l
	return p
}

func (p *Poller) WithObserver(o observability.Observer) *Poller {
	p.observer = o
	return p
}

// Start polls in a background goroutine until Stop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.interval <= 0 {
		return
	}
	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = p.Poll(ctx)
			}
		}
	}()
}

// Stop ends polling.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll fetches the source once. It reports whether a new engine became active.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	changed, err := p.poll(ctx)
	if err != nil && p.logger != nil {
		p.logger.WarnWithContext(ctx, "rule table poll failed", err, map[string]interface{}{
			"source": p.src.Name(),
			"active": p.store.Engine().Version(),
		})
	}
	if changed && p.logger != nil {
		p.logger.InfoWithContext(ctx, "rule table updated", nil, map[string]interface{}{
			"source": p.src.Name(),
			"active": p.store.Engine().Version(),
		})
	}
	if p.observer != nil {
		p.observer.ObserveOperation(observability.OperationContext{
			Component: "rulesource",
			Operation: "poll",
			Resource:  p.src.Name(),
			Duration:  time.Since(start),
			Error:     err,
			Metadata:  map[string]interface{}{"changed": changed},
		})
	}
	return changed, err
}

func (p *Poller) poll(ctx context.Context) (bool, error) {
	next, err := Load(ctx, p.src)
	if err != nil {
		return false, err
	}
	if next.Version() == p.store.Engine().Version() {
		return false, nil
	}
	if err := p.store.Replace(next); err != nil {
		return false, err
	}
	return true, nil
}
