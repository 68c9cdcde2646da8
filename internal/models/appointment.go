package models

import "time"

const (
	AppointmentScheduled  = "scheduled"
	AppointmentInProgress = "in_progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
)

type Appointment struct {
	AppointmentID        string    `json:"appointment_id"`
	PatientID            string    `json:"patient_id"`
	RoomID               string    `json:"room_id"`
	ScheduledAt          time.Time `json:"scheduled_at"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
}

// TestHistory is the patient-facing view of one assignment, returned
// through the self-service portal.
type TestHistory struct {
	AssignmentID string     `json:"assignment_id"`
	TestName     string     `json:"test_name"`
	Department   string     `json:"department"`
	Status       string     `json:"status"`
	RoomNumber   *string    `json:"room_number,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

type PortalSnapshot struct {
	PatientName     string        `json:"patient_name"`
	UniqueID        string        `json:"unique_id"`
	UpcomingTests   []TestHistory `json:"upcoming_tests"`
	CompletedTests  []TestHistory `json:"completed_tests"`
	NextAppointment *Appointment  `json:"next_appointment,omitempty"`
}
