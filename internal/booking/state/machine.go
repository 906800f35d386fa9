package state

import (
	"fmt"
	"time"

	"evcharge/internal/booking/validator"
	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"
)

// Machine owns the booking lifecycle transitions. Every mutating operation
// goes through a Check/Apply pair here before any store or network call, so
// an invalid request never touches persistence.
//
// Terminal statuses (completed, cancelled) admit no further transitions.
type Machine struct {
	validator *validator.BookingValidator
	cutoff    time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

func NewMachine(v *validator.BookingValidator, cutoff time.Duration, now func() time.Time, log *logger.Logger) *Machine {
	if now == nil {
		now = time.Now
	}

	return &Machine{
		validator: v,
		cutoff:    cutoff,
		now:       now,
		logger:    log,
	}
}

// CheckCreate validates a new booking. New bookings always enter as pending.
func (m *Machine) CheckCreate(booking *model.Booking) error {
	if booking.Status == "" {
		booking.Status = model.StatusPending
	}
	if booking.Status != model.StatusPending {
		m.logger.Warn("create rejected", "status", booking.Status)
		return apperrors.StateConflict(fmt.Sprintf("a new booking must be pending, got %q", booking.Status), nil)
	}

	if err := m.validator.Validate(booking); err != nil {
		m.logger.Warn("create rejected", "reason", err.Error())
		return apperrors.Validation(err.Error(), nil)
	}

	return nil
}

// ApplyEdit returns a copy of current with the update applied. Identity
// fields (id, user, station) are preserved verbatim; only temporal fields,
// vehicle type and cost may change. Edits are permitted only while pending.
func (m *Machine) ApplyEdit(current *model.Booking, update *model.BookingUpdate) (*model.Booking, error) {
	if model.IsTerminalStatus(current.Status) {
		m.logger.Warn("edit rejected", "id", current.ID, "status", current.Status)
		return nil, apperrors.StateConflict(fmt.Sprintf("cannot edit a %s booking", current.Status), nil)
	}
	if current.Status != model.StatusPending {
		m.logger.Warn("edit rejected", "id", current.ID, "status", current.Status)
		return nil, apperrors.StateConflict(fmt.Sprintf("only pending bookings can be edited, got %q", current.Status), nil)
	}

	if err := m.validator.ValidateUpdate(update, current); err != nil {
		m.logger.Warn("edit rejected", "id", current.ID, "reason", err.Error())
		return nil, apperrors.Validation(err.Error(), nil)
	}

	edited := *current
	if update.StartTime != nil {
		edited.StartTime = *update.StartTime
	}
	if update.EndTime != nil {
		edited.EndTime = *update.EndTime
	}
	if update.VehicleType != "" {
		edited.VehicleType = update.VehicleType
	}
	if update.TotalCost != nil {
		edited.TotalCost = *update.TotalCost
	}
	edited.UpdatedAt = m.now()

	return &edited, nil
}

// CheckCancel enforces the cancellation guard: only pending or confirmed
// bookings may be cancelled, and only while more than the cutoff remains
// before the start time.
func (m *Machine) CheckCancel(current *model.Booking) error {
	if model.IsTerminalStatus(current.Status) {
		m.logger.Warn("cancel rejected", "id", current.ID, "status", current.Status)
		return apperrors.StateConflict(fmt.Sprintf("cannot cancel a %s booking", current.Status), nil)
	}

	if !m.now().Before(current.StartTime.Add(-m.cutoff)) {
		m.logger.Warn("cancel rejected past cutoff", "id", current.ID, "start_time", current.StartTime)
		return apperrors.CutoffExceeded(fmt.Sprintf("bookings can only be cancelled at least %s before start time", m.cutoff))
	}

	return nil
}

// ApplyCancel transitions the booking to cancelled. The caller must have
// run CheckCancel first.
func (m *Machine) ApplyCancel(current *model.Booking) *model.Booking {
	cancelled := *current
	cancelled.Status = model.StatusCancelled
	cancelled.QRToken = ""
	cancelled.UpdatedAt = m.now()
	return &cancelled
}

// ApplyApprove records the external approval signal. Approval is owned by
// the remote service; this only accepts the resulting state change.
func (m *Machine) ApplyApprove(current *model.Booking) (*model.Booking, error) {
	if current.Status == model.StatusConfirmed {
		return current, nil // already applied, approval is idempotent
	}
	if current.Status != model.StatusPending {
		m.logger.Warn("approve rejected", "id", current.ID, "status", current.Status)
		return nil, apperrors.StateConflict(fmt.Sprintf("cannot approve a %s booking", current.Status), nil)
	}

	confirmed := *current
	confirmed.Status = model.StatusConfirmed
	confirmed.UpdatedAt = m.now()
	return &confirmed, nil
}

// CheckIssueToken guards completion-token issuance: confirmed bookings only.
func (m *Machine) CheckIssueToken(current *model.Booking) error {
	if current.Status != model.StatusConfirmed {
		m.logger.Warn("token issuance rejected", "id", current.ID, "status", current.Status)
		return apperrors.StateConflict(fmt.Sprintf("a completion token requires a confirmed booking, got %q", current.Status), nil)
	}
	return nil
}

// ApplyComplete transitions a confirmed booking to completed and clears the
// consumed token. The completed state itself is authoritative; the token has
// no meaning past this point.
func (m *Machine) ApplyComplete(current *model.Booking) (*model.Booking, error) {
	if current.Status != model.StatusConfirmed {
		m.logger.Warn("complete rejected", "id", current.ID, "status", current.Status)
		return nil, apperrors.StateConflict(fmt.Sprintf("cannot complete a %s booking", current.Status), nil)
	}

	completed := *current
	completed.Status = model.StatusCompleted
	completed.QRToken = ""
	completed.UpdatedAt = m.now()
	return &completed, nil
}
