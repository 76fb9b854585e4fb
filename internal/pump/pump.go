// Package pump delivers serial control loop ticks at a fixed period. The clock is injected so
// tests can drive it deterministically.
package pump

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Pump ticks at Period on Clock.
type Pump struct {
	Clock  clock.Clock
	Period time.Duration
}

// New returns a pump on the wall clock.
func New(period time.Duration) *Pump {
	return &Pump{Clock: clock.New(), Period: period}
}

func (p *Pump) validate() error {
	if p.Period <= 0 {
		return errors.Errorf("pump period %v must be positive", p.Period)
	}
	if p.Clock == nil {
		p.Clock = clock.New()
	}
	return nil
}

// Steps runs n ticks back to back without waiting, stopping at the first error.
func (p *Pump) Steps(n int, tick func() error) error {
	for i := 0; i < n; i++ {
		if err := tick(); err != nil {
			return errors.Wrapf(err, "tick %d", i)
		}
	}
	return nil
}

// RunFor runs duration/Period ticks, one per clock tick. It stops early when ctx is done or a tick
// fails.
func (p *Pump) RunFor(ctx context.Context, duration time.Duration, tick func() error) error {
	if err := p.validate(); err != nil {
		return err
	}
	n := int(duration / p.Period)
	ticker := p.Clock.Ticker(p.Period)
	defer ticker.Stop()
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := tick(); err != nil {
			return errors.Wrapf(err, "tick %d", i)
		}
	}
	return nil
}

// Running is a pump ticking in the background.
type Running struct {
	mu                      sync.Mutex
	cancel                  func()
	err                     error
	activeBackgroundWorkers sync.WaitGroup
}

// Start ticks in a background goroutine until Stop is called or a tick fails.
func (p *Pump) Start(tick func() error) (*Running, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Running{cancel: cancel}
	r.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer r.activeBackgroundWorkers.Done()
		ticker := p.Clock.Ticker(p.Period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := tick(); err != nil {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
				return
			}
		}
	})
	return r, nil
}

// Stop stops ticking, waits for the current tick to finish and returns the error that stopped the
// pump, if any.
func (r *Running) Stop() error {
	r.cancel()
	r.activeBackgroundWorkers.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
