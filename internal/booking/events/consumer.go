package events

import (
	"context"

	"evcharge/internal/booking/state"
	"evcharge/internal/cache"
	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/kafka"
	kafka_config "evcharge/pkg/kafka/config"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"
)

const operatorConsumerGroup = "evcharge-operator-events"

// Applier folds operator-side transitions broadcast by the station backend
// into the offline cache, so a client that was offline when a booking got
// approved or completed converges without polling.
type Applier struct {
	store   cache.Store
	machine *state.Machine
	logger  *logger.Logger
}

func NewApplier(store cache.Store, machine *state.Machine, log *logger.Logger) *Applier {
	return &Applier{
		store:   store,
		machine: machine,
		logger:  log,
	}
}

// Handle is the kafka message handler for the operator topic.
func (a *Applier) Handle(ctx context.Context, msg kafka.Message) error {
	var event Event
	if err := msg.DecodeValue(&event); err != nil {
		// Undecodable payloads are permanent failures; retrying cannot help.
		return kafka.NewPermanentError("failed to decode operator event", err)
	}

	switch event.Type {
	case EventBookingApproved:
		return a.applyApprove(ctx, &event)
	case EventBookingRemoteComplete:
		return a.applyComplete(ctx, &event)
	default:
		a.logger.Debug("ignoring operator event", "event_type", event.Type)
		return nil
	}
}

func (a *Applier) applyApprove(ctx context.Context, event *Event) error {
	current, err := a.store.Get(ctx, event.BookingID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			// Not cached locally: the booking was made on another device.
			// Mirror the broadcast copy if the event carries one.
			if event.Booking != nil {
				return a.store.Put(ctx, event.Booking)
			}
			a.logger.Debug("approval for unknown booking ignored", "booking_id", event.BookingID)
			return nil
		}
		return err
	}

	confirmed, err := a.machine.ApplyApprove(current)
	if err != nil {
		a.logger.Warn("stale approval event dropped",
			"booking_id", event.BookingID,
			"status", current.Status,
			"error", err,
		)
		return nil
	}

	if err := a.store.Update(ctx, confirmed); err != nil {
		return err
	}

	a.logger.Info("booking approved by operator", "booking_id", event.BookingID)
	return nil
}

func (a *Applier) applyComplete(ctx context.Context, event *Event) error {
	current, err := a.store.Get(ctx, event.BookingID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			a.logger.Debug("completion for unknown booking ignored", "booking_id", event.BookingID)
			return nil
		}
		return err
	}

	if current.Status == model.StatusCompleted {
		return nil // already converged
	}

	completed, err := a.machine.ApplyComplete(current)
	if err != nil {
		a.logger.Warn("completion event conflicts with local state",
			"booking_id", event.BookingID,
			"status", current.Status,
			"error", err,
		)
		return nil
	}

	if err := a.store.Update(ctx, completed); err != nil {
		return err
	}

	a.logger.Info("booking completed by operator", "booking_id", event.BookingID)
	return nil
}

// NewOperatorConsumer wires the applier to the operator topic with the
// shared retry/DLQ consumer.
func NewOperatorConsumer(cfg *kafka_config.Config, applier *Applier) (*kafka.Consumer, error) {
	return kafka.NewConsumer(cfg, TopicOperator, operatorConsumerGroup, TopicOperatorDLQ, applier.Handle)
}
