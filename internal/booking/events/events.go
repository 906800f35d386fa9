package events

import (
	"context"
	"time"

	"evcharge/pkg/kafka"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"
)

// Lifecycle event types published by the coordinator.
const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingSynced    = "booking.synced"
)

// Operator-side event types consumed from the station backend.
const (
	EventBookingApproved       = "booking.approved"
	EventBookingRemoteComplete = "booking.completed"
)

// Topics. Lifecycle events are keyed by booking id so all transitions of
// one booking land on the same partition in order.
const (
	TopicLifecycle    = "evcharge.booking.lifecycle"
	TopicLifecycleDLQ = "evcharge.booking.lifecycle.dlq"
	TopicOperator     = "evcharge.booking.operator"
	TopicOperatorDLQ  = "evcharge.booking.operator.dlq"
)

const sourceService = "evcharge-bookings"

// Event is the payload carried on both topics.
type Event struct {
	Type       string         `json:"type"`
	BookingID  string         `json:"bookingId"`
	UserID     string         `json:"userId,omitempty"`
	Status     string         `json:"status,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Booking    *model.Booking `json:"booking,omitempty"`
}

// Publisher emits booking lifecycle events. The coordinator treats event
// publication as best-effort: a failed publish is logged, never allowed to
// fail the booking operation itself.
type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking)
}

type kafkaPublisher struct {
	producer *kafka.Producer
	logger   *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		logger:   log,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) {
	event := Event{
		Type:       eventType,
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		Status:     booking.Status,
		OccurredAt: time.Now().UTC(),
		Booking:    booking,
	}

	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(event).
		WithEventType(eventType).
		WithSource(sourceService).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.logger.Warn("failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
		return
	}

	p.logger.Debug("booking event published",
		"event_type", eventType,
		"booking_id", booking.ID,
		"status", booking.Status,
	)
}

// NopPublisher discards events. Used when Kafka is not configured and in
// tests that do not care about the event stream.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *model.Booking) {}
