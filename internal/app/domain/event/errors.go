package event

import "errors"

var (
	// ErrInvalidWindow is returned when registrationStart is after registrationEnd.
	ErrInvalidWindow = errors.New("event: registration start must not be after registration end")
	// ErrInvalidCapacity is returned when capacity is less than one.
	ErrInvalidCapacity = errors.New("event: capacity must be at least 1")
	// ErrInvalidWaitingCap is returned when a finite waiting-list cap is less than one.
	ErrInvalidWaitingCap = errors.New("event: waiting list cap must be at least 1 when finite")
)
