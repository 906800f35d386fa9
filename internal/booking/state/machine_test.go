package state

import (
	"bytes"
	"io"
	"testing"
	"time"

	"evcharge/internal/booking/validator"
	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(now time.Time) *Machine {
	log := logger.New(logger.Config{Output: io.Discard})
	nowFn := func() time.Time { return now }
	v := validator.NewBookingValidator(7*24*time.Hour, nowFn, log)
	return NewMachine(v, 12*time.Hour, nowFn, log)
}

func pendingBooking(now time.Time, leadTime time.Duration) *model.Booking {
	start := now.Add(leadTime)
	return &model.Booking{
		ID:          "bk-100",
		UserID:      "199800501234",
		StationID:   "st-001",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      model.StatusPending,
		VehicleType: "car",
		TotalCost:   10,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCheckCreate(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	m := newTestMachine(now)

	t.Run("valid booking defaults to pending", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		b.Status = ""
		require.NoError(t, m.CheckCreate(b))
		assert.Equal(t, model.StatusPending, b.Status)
	})

	t.Run("non-pending status rejected", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		b.Status = model.StatusConfirmed
		assert.True(t, apperrors.IsCode(m.CheckCreate(b), apperrors.CodeStateConflict))
	})

	t.Run("window failure maps to validation error", func(t *testing.T) {
		b := pendingBooking(now, 10*24*time.Hour)
		assert.True(t, apperrors.IsCode(m.CheckCreate(b), apperrors.CodeValidation))
	})
}

func TestApplyEdit(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	m := newTestMachine(now)

	t.Run("preserves identity fields", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		newStart := b.StartTime.Add(2 * time.Hour)
		newEnd := newStart.Add(time.Hour)

		edited, err := m.ApplyEdit(b, &model.BookingUpdate{
			StartTime:   &newStart,
			EndTime:     &newEnd,
			VehicleType: "truck",
		})
		require.NoError(t, err)

		assert.Equal(t, b.ID, edited.ID)
		assert.Equal(t, b.UserID, edited.UserID)
		assert.Equal(t, b.StationID, edited.StationID)
		assert.Equal(t, newStart, edited.StartTime)
		assert.Equal(t, "truck", edited.VehicleType)
		assert.Equal(t, now, edited.UpdatedAt)

		// original untouched
		assert.Equal(t, model.StatusPending, b.Status)
		assert.NotEqual(t, newStart, b.StartTime)
	})

	t.Run("confirmed booking cannot be edited", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		b.Status = model.StatusConfirmed

		_, err := m.ApplyEdit(b, &model.BookingUpdate{})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))
	})

	t.Run("terminal booking cannot be edited", func(t *testing.T) {
		for _, status := range []string{model.StatusCompleted, model.StatusCancelled} {
			b := pendingBooking(now, 24*time.Hour)
			b.Status = status

			_, err := m.ApplyEdit(b, &model.BookingUpdate{})
			assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict), status)
		}
	})

	t.Run("invalid new interval rejected", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		badStart := b.EndTime.Add(time.Hour)

		_, err := m.ApplyEdit(b, &model.BookingUpdate{StartTime: &badStart})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})
}

func TestCheckCancelCutoff(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	m := newTestMachine(now)

	t.Run("allowed thirteen hours before start", func(t *testing.T) {
		b := pendingBooking(now, 13*time.Hour)
		assert.NoError(t, m.CheckCancel(b))
	})

	t.Run("rejected eleven hours before start", func(t *testing.T) {
		b := pendingBooking(now, 11*time.Hour)
		assert.True(t, apperrors.IsCode(m.CheckCancel(b), apperrors.CodeCutoffExceeded))
	})

	t.Run("rejected exactly at cutoff", func(t *testing.T) {
		b := pendingBooking(now, 12*time.Hour)
		assert.True(t, apperrors.IsCode(m.CheckCancel(b), apperrors.CodeCutoffExceeded))
	})

	t.Run("confirmed booking may be cancelled before cutoff", func(t *testing.T) {
		b := pendingBooking(now, 48*time.Hour)
		b.Status = model.StatusConfirmed
		assert.NoError(t, m.CheckCancel(b))
	})

	t.Run("terminal booking cannot be cancelled", func(t *testing.T) {
		b := pendingBooking(now, 48*time.Hour)
		b.Status = model.StatusCancelled
		assert.True(t, apperrors.IsCode(m.CheckCancel(b), apperrors.CodeStateConflict))
	})
}

func TestApplyCancelClearsToken(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	m := newTestMachine(now)

	b := pendingBooking(now, 48*time.Hour)
	b.Status = model.StatusConfirmed
	b.QRToken = "EVBooking:bk-100:abc123"

	cancelled := m.ApplyCancel(b)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.QRToken)
}

func TestApplyApprove(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	m := newTestMachine(now)

	t.Run("pending becomes confirmed", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		confirmed, err := m.ApplyApprove(b)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, confirmed.Status)
	})

	t.Run("approve is idempotent on confirmed", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		b.Status = model.StatusConfirmed
		confirmed, err := m.ApplyApprove(b)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, confirmed.Status)
	})

	t.Run("cancelled cannot be approved", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		b.Status = model.StatusCancelled
		_, err := m.ApplyApprove(b)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))
	})
}

func TestCompleteTransitions(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	m := newTestMachine(now)

	t.Run("token issuance requires confirmed", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		assert.True(t, apperrors.IsCode(m.CheckIssueToken(b), apperrors.CodeStateConflict))

		b.Status = model.StatusConfirmed
		assert.NoError(t, m.CheckIssueToken(b))
	})

	t.Run("confirmed completes and clears token", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		b.Status = model.StatusConfirmed
		b.QRToken = "EVBooking:bk-100:abc123"

		completed, err := m.ApplyComplete(b)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, completed.Status)
		assert.Empty(t, completed.QRToken)
		assert.True(t, completed.IsCompleted())
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		_, err := m.ApplyComplete(b)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))
	})

	t.Run("completed cannot complete twice", func(t *testing.T) {
		b := pendingBooking(now, 24*time.Hour)
		b.Status = model.StatusCompleted
		_, err := m.ApplyComplete(b)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))
	})
}

func TestRejectedTransitionsAreLogged(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf})
	nowFn := func() time.Time { return now }
	v := validator.NewBookingValidator(7*24*time.Hour, nowFn, log)
	m := NewMachine(v, 12*time.Hour, nowFn, log)

	t.Run("cancel past cutoff", func(t *testing.T) {
		buf.Reset()
		b := pendingBooking(now, 2*time.Hour)
		require.Error(t, m.CheckCancel(b))
		assert.Contains(t, buf.String(), "cancel rejected")
	})

	t.Run("edit of terminal booking", func(t *testing.T) {
		buf.Reset()
		b := pendingBooking(now, 24*time.Hour)
		b.Status = model.StatusCompleted
		_, err := m.ApplyEdit(b, &model.BookingUpdate{})
		require.Error(t, err)
		assert.Contains(t, buf.String(), "edit rejected")
	})
}
