package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooking_JSONRoundTrip(t *testing.T) {
	start := time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC)
	original := Booking{
		ID:          "68ba1f0c2a9e4d0012345678",
		UserID:      "200012345678",
		StationID:   "S1",
		StationName: "Colombo Fort Supercharge",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      StatusPending,
		VehicleType: "Car",
		TotalCost:   1250.50,
		CreatedAt:   start.Add(-48 * time.Hour),
		UpdatedAt:   start.Add(-48 * time.Hour),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	// Status stays lowercase on the wire, timestamps are ISO-8601 UTC.
	assert.Contains(t, string(data), `"status":"pending"`)
	assert.Contains(t, string(data), `"startTime":"2026-09-03T10:00:00Z"`)

	var decoded Booking
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestBooking_LocalFlagsNotOnWire(t *testing.T) {
	b := Booking{
		ID:        NewLocalID(),
		Unsynced:  true,
		SyncError: "window expired",
	}

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "unsynced")
	assert.NotContains(t, string(data), "window expired")
}

func TestBooking_DerivedViews(t *testing.T) {
	b := &Booking{Status: StatusConfirmed}
	assert.False(t, b.IsCompleted())

	b.Status = StatusCompleted
	assert.True(t, b.IsCompleted())

	assert.True(t, IsTerminalStatus(StatusCancelled))
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusConfirmed))
}

func TestNewLocalID(t *testing.T) {
	id := NewLocalID()
	assert.True(t, strings.HasPrefix(id, LocalIDPrefix))
	assert.NotEqual(t, id, NewLocalID())

	b := &Booking{ID: id}
	assert.True(t, b.IsLocal())

	b.ID = "68ba1f0c2a9e4d0012345678"
	assert.False(t, b.IsLocal())
}

func TestStatsFromBookings(t *testing.T) {
	bookings := []*Booking{
		{Status: StatusPending},
		{Status: StatusPending},
		{Status: StatusConfirmed},
		{Status: "approved"},
		{Status: StatusCompleted},
		{Status: StatusCancelled},
		{Status: "rejected"},
		{Status: ""},
	}

	stats := StatsFromBookings(bookings)
	assert.Equal(t, 2, stats.PendingReservations)
	assert.Equal(t, 2, stats.ApprovedReservations)
	assert.Equal(t, 3, stats.PastBookings)
}
