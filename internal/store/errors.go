package store

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrRoomUnavailable     = errors.New("room unavailable")
	ErrRoomConflict        = errors.New("room schedule conflict")
	ErrAccessDenied        = errors.New("access denied")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrAssignmentNotFound  = errors.New("test assignment not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDepartmentNotFound  = errors.New("department not found")
	ErrTestNotFound        = errors.New("test type not found")
)
