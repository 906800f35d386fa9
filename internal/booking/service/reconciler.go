package service

import (
	"context"
	"time"

	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/logger"
)

// Reconciler periodically replays unsynced cache records against the
// booking backend. Each tick is one full pass; a pass that loses
// connectivity midway simply waits for the next tick.
type Reconciler struct {
	coordinator Coordinator
	interval    time.Duration
	log         *logger.Logger
}

func NewReconciler(coordinator Coordinator, interval time.Duration, log *logger.Logger) *Reconciler {
	return &Reconciler{
		coordinator: coordinator,
		interval:    interval,
		log:         log.WithComponent("reconciler"),
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("Reconciler started", "interval", r.interval)

	// Replay anything queued while the process was down before waiting
	// out the first interval.
	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Reconciler stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Reconciler) runOnce(ctx context.Context) {
	replayed, err := r.coordinator.Reconcile(ctx)
	switch {
	case err == nil:
		if replayed > 0 {
			r.log.Info("Reconciliation pass complete", "replayed", replayed)
		}
	case apperrors.IsCode(err, apperrors.CodeRemoteUnavailable):
		r.log.Debug("Backend unreachable, reconciliation deferred", "replayed", replayed)
	default:
		r.log.Error("Reconciliation pass failed", "replayed", replayed, "error", err)
	}
}
