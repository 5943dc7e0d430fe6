package booking

import "errors"

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrDoctorUnavailable = errors.New("doctor is not accepting bookings")
	ErrSlotUnavailable   = errors.New("slot already has an active appointment")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrInvalidSlot       = errors.New("invalid slot date or time")

	ErrNotOwner         = errors.New("requester does not own this appointment")
	ErrAlreadyCancelled = errors.New("appointment is already cancelled")
	ErrAlreadyPaid      = errors.New("appointment is already paid")
	ErrCancelled        = errors.New("appointment is cancelled")
	ErrCompleted        = errors.New("appointment is completed")
)
