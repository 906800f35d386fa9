package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"evcharge/pkg/logger"
	"evcharge/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// BookingValidator enforces the reservation window rules: a booking must
// start within the next ReservationWindow from now, and start and end must
// fall on the same UTC calendar day.
type BookingValidator struct {
	validate *validator.Validate
	window   time.Duration
	now      func() time.Time
	logger   *logger.Logger
}

func NewBookingValidator(window time.Duration, now func() time.Time, log *logger.Logger) *BookingValidator {
	if now == nil {
		now = time.Now
	}

	log.Info("Booking validator initialized successfully",
		"reservation_window", window,
	)

	return &BookingValidator{
		validate: validator.New(),
		window:   window,
		now:      now,
		logger:   log,
	}
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.validateInterval(booking.StartTime, booking.EndTime)
}

func (v *BookingValidator) ValidateUpdate(update *model.BookingUpdate, current *model.Booking) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	// An omitted vehicle type is the empty string; a supplied one must
	// still contain something once trimmed, or the patched booking would
	// lose a required field.
	if update.VehicleType != "" && strings.TrimSpace(update.VehicleType) == "" {
		return ValidationErrors{
			ValidationError{
				Field:   "VehicleType",
				Message: "vehicle_type must not be blank",
			},
		}
	}

	// Edits are validated against the interval the booking would have after
	// the patch is applied, not just the changed fields.
	start := current.StartTime
	end := current.EndTime
	if update.StartTime != nil {
		start = *update.StartTime
	}
	if update.EndTime != nil {
		end = *update.EndTime
	}

	return v.validateInterval(start, end)
}

func (v *BookingValidator) validateInterval(start, end time.Time) error {
	if !end.After(start) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must be after start_time",
			},
		}
	}

	startUTC := start.UTC()
	endUTC := end.UTC()
	if startUTC.Year() != endUTC.Year() || startUTC.YearDay() != endUTC.YearDay() {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "start_time and end_time must fall on the same UTC day",
			},
		}
	}

	now := v.now()
	if start.Before(now) {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: "start_time cannot be in the past",
			},
		}
	}

	if start.After(now.Add(v.window)) {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: fmt.Sprintf("start_time must be within the next %s", v.window),
			},
		}
	}

	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
