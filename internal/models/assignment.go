package models

import "time"

const (
	TestStatusPending    = "pending"
	TestStatusInProgress = "in_progress"
	TestStatusCompleted  = "completed"
)

// TestAssignment is one required test for one patient, tracked through
// the queue lifecycle. RoomID is non-nil exactly while the assignment is
// in_progress; StartedAt is set once the assignment has ever started and
// CompletedAt once it has completed.
type TestAssignment struct {
	AssignmentID string     `json:"assignment_id"`
	PatientID    string     `json:"patient_id"`
	TestID       string     `json:"test_id"`
	Status       string     `json:"status"`
	RoomID       *string    `json:"room_id,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// QueueEntry is the operator-facing view of a live assignment, joined
// with patient and catalogue data.
type QueueEntry struct {
	AssignmentID    string    `json:"assignment_id"`
	PatientID       string    `json:"patient_id"`
	UniqueID        string    `json:"unique_id"`
	PatientName     string    `json:"patient_name"`
	TestName        string    `json:"test_name"`
	Department      string    `json:"department"`
	Status          string    `json:"status"`
	RoomNumber      *string   `json:"room_number,omitempty"`
	WaitTimeMinutes *int      `json:"wait_time,omitempty"`
	AssignedAt      time.Time `json:"assigned_at"`
}

type DepartmentMetrics struct {
	Department string `json:"department"`
	Pending    int    `json:"pending"`
	InProgress int    `json:"in_progress"`
	Completed  int    `json:"completed"`
}

type QueueMetrics struct {
	TotalPending    int                 `json:"total_pending"`
	TotalInProgress int                 `json:"total_in_progress"`
	TotalCompleted  int                 `json:"total_completed"`
	Departments     []DepartmentMetrics `json:"department_metrics"`
}
