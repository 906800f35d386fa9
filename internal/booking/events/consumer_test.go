package events

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"evcharge/internal/booking/state"
	"evcharge/internal/booking/validator"
	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/kafka"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	bookings map[string]*model.Booking
}

func (m *memStore) Put(_ context.Context, b *model.Booking) error {
	copied := *b
	m.bookings[b.ID] = &copied
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("booking", id)
	}
	copied := *b
	return &copied, nil
}

func (m *memStore) ListByUser(context.Context, string) ([]*model.Booking, error) { return nil, nil }

func (m *memStore) Update(_ context.Context, b *model.Booking) error {
	if _, ok := m.bookings[b.ID]; !ok {
		return apperrors.NotFoundWithID("booking", b.ID)
	}
	copied := *b
	m.bookings[b.ID] = &copied
	return nil
}

func (m *memStore) Delete(context.Context, string) error                  { return nil }
func (m *memStore) ListUnsynced(context.Context) ([]*model.Booking, error) { return nil, nil }
func (m *memStore) ReplaceID(context.Context, string, *model.Booking) error {
	return nil
}
func (m *memStore) PutUser(context.Context, *model.User) error { return nil }
func (m *memStore) GetUser(context.Context, string) (*model.User, error) {
	return nil, apperrors.NotFound("user")
}

func newTestApplier(store *memStore) *Applier {
	log := logger.New(logger.Config{Output: io.Discard})
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return now }
	v := validator.NewBookingValidator(7*24*time.Hour, nowFn, log)
	machine := state.NewMachine(v, 12*time.Hour, nowFn, log)
	return NewApplier(store, machine, log)
}

func eventMessage(t *testing.T, event Event) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{
		Key:     event.BookingID,
		Value:   payload,
		Headers: map[string]string{kafka.HeaderEventType: event.Type},
	}
}

func TestHandleApproval(t *testing.T) {
	store := &memStore{bookings: map[string]*model.Booking{
		"srv-1001": {ID: "srv-1001", UserID: "199800501234", Status: model.StatusPending},
	}}
	applier := newTestApplier(store)

	msg := eventMessage(t, Event{Type: EventBookingApproved, BookingID: "srv-1001"})
	require.NoError(t, applier.Handle(context.Background(), msg))

	assert.Equal(t, model.StatusConfirmed, store.bookings["srv-1001"].Status)
}

func TestHandleApprovalIsIdempotent(t *testing.T) {
	store := &memStore{bookings: map[string]*model.Booking{
		"srv-1001": {ID: "srv-1001", Status: model.StatusConfirmed},
	}}
	applier := newTestApplier(store)

	msg := eventMessage(t, Event{Type: EventBookingApproved, BookingID: "srv-1001"})
	require.NoError(t, applier.Handle(context.Background(), msg))
	require.NoError(t, applier.Handle(context.Background(), msg))

	assert.Equal(t, model.StatusConfirmed, store.bookings["srv-1001"].Status)
}

func TestHandleApprovalForUnknownBookingMirrorsBroadcastCopy(t *testing.T) {
	store := &memStore{bookings: map[string]*model.Booking{}}
	applier := newTestApplier(store)

	msg := eventMessage(t, Event{
		Type:      EventBookingApproved,
		BookingID: "srv-2001",
		Booking:   &model.Booking{ID: "srv-2001", UserID: "199800501234", Status: model.StatusConfirmed},
	})
	require.NoError(t, applier.Handle(context.Background(), msg))

	require.Contains(t, store.bookings, "srv-2001")
	assert.Equal(t, model.StatusConfirmed, store.bookings["srv-2001"].Status)
}

func TestHandleRemoteCompletion(t *testing.T) {
	store := &memStore{bookings: map[string]*model.Booking{
		"srv-1001": {ID: "srv-1001", Status: model.StatusConfirmed, QRToken: "EVBooking:srv-1001:a9f3c1"},
	}}
	applier := newTestApplier(store)

	msg := eventMessage(t, Event{Type: EventBookingRemoteComplete, BookingID: "srv-1001"})
	require.NoError(t, applier.Handle(context.Background(), msg))

	got := store.bookings["srv-1001"]
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Empty(t, got.QRToken)
}

func TestHandleCompletionConflictIsDroppedNotRetried(t *testing.T) {
	store := &memStore{bookings: map[string]*model.Booking{
		"srv-1001": {ID: "srv-1001", Status: model.StatusCancelled},
	}}
	applier := newTestApplier(store)

	msg := eventMessage(t, Event{Type: EventBookingRemoteComplete, BookingID: "srv-1001"})
	require.NoError(t, applier.Handle(context.Background(), msg))

	assert.Equal(t, model.StatusCancelled, store.bookings["srv-1001"].Status)
}

func TestHandleUndecodablePayloadIsPermanent(t *testing.T) {
	applier := newTestApplier(&memStore{bookings: map[string]*model.Booking{}})

	err := applier.Handle(context.Background(), kafka.Message{Value: []byte("{not json")})
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}

func TestHandleIgnoresUnknownEventTypes(t *testing.T) {
	applier := newTestApplier(&memStore{bookings: map[string]*model.Booking{}})

	msg := eventMessage(t, Event{Type: "booking.rebalanced", BookingID: "srv-1001"})
	assert.NoError(t, applier.Handle(context.Background(), msg))
}
