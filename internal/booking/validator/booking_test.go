package validator

import (
	"io"
	"testing"
	"time"

	"evcharge/pkg/logger"
	"evcharge/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(now time.Time) *BookingValidator {
	log := logger.New(logger.Config{Output: io.Discard})
	return NewBookingValidator(7*24*time.Hour, func() time.Time { return now }, log)
}

func validBooking(now time.Time) *model.Booking {
	start := now.Add(24 * time.Hour)
	return &model.Booking{
		UserID:      "199800501234",
		StationID:   "st-001",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      model.StatusPending,
		VehicleType: "car",
		TotalCost:   12.50,
	}
}

func TestValidateAcceptsBookingInsideWindow(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	v := newTestValidator(now)

	require.NoError(t, v.Validate(validBooking(now)))
}

func TestValidateRequiredFields(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	v := newTestValidator(now)

	tests := []struct {
		name   string
		mutate func(b *model.Booking)
		field  string
	}{
		{
			name:   "missing station",
			mutate: func(b *model.Booking) { b.StationID = "" },
			field:  "StationID",
		},
		{
			name:   "missing vehicle type",
			mutate: func(b *model.Booking) { b.VehicleType = "" },
			field:  "VehicleType",
		},
		{
			name:   "missing user",
			mutate: func(b *model.Booking) { b.UserID = "" },
			field:  "UserID",
		},
		{
			name:   "zero start time",
			mutate: func(b *model.Booking) { b.StartTime = time.Time{} },
			field:  "StartTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking(now)
			tt.mutate(b)

			err := v.Validate(b)
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.NotEmpty(t, verrs)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidateStationBeforeVehicleType(t *testing.T) {
	// When both are missing the station error is reported first.
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	v := newTestValidator(now)

	b := validBooking(now)
	b.StationID = ""
	b.VehicleType = ""

	var verrs ValidationErrors
	require.ErrorAs(t, v.Validate(b), &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "StationID", verrs[0].Field)
	assert.Equal(t, "VehicleType", verrs[1].Field)
}

func TestValidateIntervalRules(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	v := newTestValidator(now)

	tests := []struct {
		name    string
		mutate  func(b *model.Booking)
		field   string
		message string
	}{
		{
			name: "end before start",
			mutate: func(b *model.Booking) {
				b.EndTime = b.StartTime.Add(-time.Hour)
			},
			field: "EndTime",
		},
		{
			name: "end equals start",
			mutate: func(b *model.Booking) {
				b.EndTime = b.StartTime
			},
			field: "EndTime",
		},
		{
			name: "crosses utc midnight",
			mutate: func(b *model.Booking) {
				b.StartTime = time.Date(2026, 9, 2, 23, 30, 0, 0, time.UTC)
				b.EndTime = time.Date(2026, 9, 3, 0, 30, 0, 0, time.UTC)
			},
			field:   "EndTime",
			message: "same UTC day",
		},
		{
			name: "start in the past",
			mutate: func(b *model.Booking) {
				b.StartTime = now.Add(-time.Hour)
				b.EndTime = now.Add(time.Hour)
			},
			field: "StartTime",
		},
		{
			name: "start beyond seven day window",
			mutate: func(b *model.Booking) {
				b.StartTime = now.Add(8 * 24 * time.Hour)
				b.EndTime = b.StartTime.Add(time.Hour)
			},
			field: "StartTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking(now)
			tt.mutate(b)

			var verrs ValidationErrors
			require.ErrorAs(t, v.Validate(b), &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
			if tt.message != "" {
				assert.Contains(t, verrs[0].Message, tt.message)
			}
		})
	}
}

func TestValidateWindowBoundaryInclusive(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	v := newTestValidator(now)

	b := validBooking(now)
	b.StartTime = now.Add(7 * 24 * time.Hour)
	b.EndTime = b.StartTime.Add(time.Hour)

	assert.NoError(t, v.Validate(b))
}

func TestValidateUpdateUsesPatchedInterval(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	v := newTestValidator(now)

	current := validBooking(now)

	t.Run("valid start move", func(t *testing.T) {
		start := current.StartTime.Add(-30 * time.Minute)
		update := &model.BookingUpdate{StartTime: &start}
		assert.NoError(t, v.ValidateUpdate(update, current))
	})

	t.Run("start moved past current end", func(t *testing.T) {
		start := current.EndTime.Add(time.Hour)
		update := &model.BookingUpdate{StartTime: &start}

		var verrs ValidationErrors
		require.ErrorAs(t, v.ValidateUpdate(update, current), &verrs)
		assert.Equal(t, "EndTime", verrs[0].Field)
	})

	t.Run("end moved outside window day", func(t *testing.T) {
		end := current.StartTime.Add(26 * time.Hour)
		update := &model.BookingUpdate{EndTime: &end}

		var verrs ValidationErrors
		require.ErrorAs(t, v.ValidateUpdate(update, current), &verrs)
		assert.Equal(t, "EndTime", verrs[0].Field)
	})

	t.Run("negative cost rejected", func(t *testing.T) {
		cost := -5.0
		update := &model.BookingUpdate{TotalCost: &cost}

		var verrs ValidationErrors
		require.ErrorAs(t, v.ValidateUpdate(update, current), &verrs)
		assert.Equal(t, "TotalCost", verrs[0].Field)
	})

	t.Run("blank vehicle type rejected", func(t *testing.T) {
		update := &model.BookingUpdate{VehicleType: "   "}

		var verrs ValidationErrors
		require.ErrorAs(t, v.ValidateUpdate(update, current), &verrs)
		assert.Equal(t, "VehicleType", verrs[0].Field)
	})

	t.Run("omitted vehicle type accepted", func(t *testing.T) {
		update := &model.BookingUpdate{}
		assert.NoError(t, v.ValidateUpdate(update, current))
	})
}
