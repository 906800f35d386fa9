package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Booking statuses exchanged with the booking service. Status is the single
// source of truth for lifecycle state; "is this booking done" is always
// derived from it, never stored separately.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// LocalIDPrefix marks bookings created offline that have no server-assigned
// id yet. Reconciliation replaces the local id with the server one.
const LocalIDPrefix = "local-"

type Booking struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID      string    `json:"userId" bson:"user_id" validate:"required"`
	StationID   string    `json:"stationId" bson:"station_id" validate:"required"`
	StationName string    `json:"stationName,omitempty" bson:"station_name,omitempty"`
	StartTime   time.Time `json:"startTime" bson:"start_time" validate:"required"`
	EndTime     time.Time `json:"endTime" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status      string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed completed cancelled"`
	VehicleType string    `json:"vehicleType" bson:"vehicle_type" validate:"required"`
	TotalCost   float64   `json:"totalCost" bson:"total_cost" validate:"gte=0"`
	QRToken     string    `json:"qrToken,omitempty" bson:"qr_token,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`

	// Local bookkeeping, never sent to the booking service.
	Unsynced  bool   `json:"-" bson:"unsynced"`
	SyncError string `json:"-" bson:"sync_error,omitempty"`
}

// BookingUpdate carries the fields a user may change on a pending booking.
// Identity fields (id, user, station) are deliberately not representable.
type BookingUpdate struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	VehicleType string     `json:"vehicleType,omitempty"`
	TotalCost   *float64   `json:"totalCost,omitempty" validate:"omitempty,gte=0"`
}

// IsCompleted is a derived view of Status.
func (b *Booking) IsCompleted() bool {
	return b.Status == StatusCompleted
}

// IsLocal reports whether the booking still carries an offline-assigned id.
func (b *Booking) IsLocal() bool {
	return strings.HasPrefix(b.ID, LocalIDPrefix)
}

func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// NewLocalID mints a temporary id for a booking created while offline.
func NewLocalID() string {
	return LocalIDPrefix + uuid.New().String()
}
