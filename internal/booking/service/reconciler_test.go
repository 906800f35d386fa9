package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"evcharge/pkg/logger"
)

type reconcileSpy struct {
	Coordinator
	done chan struct{}
	once sync.Once
}

func (s *reconcileSpy) Reconcile(ctx context.Context) (int, error) {
	s.once.Do(func() { close(s.done) })
	return 0, nil
}

func TestReconcilerRunsFirstPassImmediately(t *testing.T) {
	spy := &reconcileSpy{done: make(chan struct{})}
	log := logger.New(logger.Config{Output: io.Discard})

	// An hour-long interval: the only way the pass below happens inside
	// the test deadline is the startup run before the ticker loop.
	r := NewReconciler(spy, time.Hour, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	select {
	case <-spy.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no reconciliation pass before the first interval tick")
	}
}
