package pump

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

const period = 20 * time.Millisecond

func TestSteps(t *testing.T) {
	p := &Pump{Period: period}
	count := 0
	test.That(t, p.Steps(5, func() error {
		count++
		return nil
	}), test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, 5)

	count = 0
	err := p.Steps(5, func() error {
		count++
		if count == 3 {
			return errors.New("stalled")
		}
		return nil
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "tick 2")
	test.That(t, count, test.ShouldEqual, 3)
}

func TestRunForTicksOnTheClock(t *testing.T) {
	mock := clock.NewMock()
	p := &Pump{Clock: mock, Period: period}
	var count atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- p.RunFor(context.Background(), 100*time.Millisecond, func() error {
			count.Add(1)
			return nil
		})
	}()

	for {
		select {
		case err := <-done:
			test.That(t, err, test.ShouldBeNil)
			test.That(t, count.Load(), test.ShouldEqual, int32(5))
			return
		default:
			mock.Add(period)
		}
	}
}

func TestRunForCancel(t *testing.T) {
	p := &Pump{Clock: clock.NewMock(), Period: period}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.RunFor(ctx, time.Second, func() error {
		t.Fatal("ticked after cancel")
		return nil
	})
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestInvalidPeriod(t *testing.T) {
	p := &Pump{}
	test.That(t, p.RunFor(context.Background(), time.Second, func() error { return nil }), test.ShouldNotBeNil)
	_, err := p.Start(func() error { return nil })
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStartStop(t *testing.T) {
	mock := clock.NewMock()
	p := &Pump{Clock: mock, Period: period}
	var count atomic.Int32
	running, err := p.Start(func() error {
		if count.Add(1) == 3 {
			return errors.New("motor fault")
		}
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	for count.Load() < 3 {
		mock.Add(period)
	}
	err = running.Stop()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "motor fault")
	test.That(t, count.Load(), test.ShouldEqual, int32(3))
}
