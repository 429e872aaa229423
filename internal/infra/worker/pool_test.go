//go:build !integration

package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"membership-payments/internal/infra/worker"
)

func TestPool_RunsAndCounts(t *testing.T) {
	logger := zerolog.Nop()
	p := worker.NewPool(2, 16, &logger)
	p.Start(context.Background())

	var ran int32
	for i := 0; i < 10; i++ {
		fail := i%5 == 0
		if err := p.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			if fail {
				return errors.New("boom")
			}
			return nil
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	p.Stop()

	st := p.Stats()
	if ran != 10 || st.Done != 8 || st.Failed != 2 {
		t.Fatalf("ran=%d stats=%+v", ran, st)
	}
	p.Stop()
}

func TestPool_RejectsWhenFull(t *testing.T) {
	logger := zerolog.Nop()
	p := worker.NewPool(1, 1, &logger) // not started: nothing drains the queue

	noop := func(context.Context) error { return nil }
	if err := p.Submit(noop); err != nil {
		t.Fatal(err)
	}
	if err := p.Submit(noop); !errors.Is(err, worker.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := p.Submit(nil); err == nil {
		t.Fatal("nil task accepted")
	}
	if p.Stats().Dropped != 1 {
		t.Fatalf("dropped = %d", p.Stats().Dropped)
	}
}
