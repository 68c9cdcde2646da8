package models

// Reference data: departments, their test catalogue, and their rooms.
// Immutable as far as this engine is concerned; rooms carry no
// availability flag because availability is computed from current
// holders.

type Department struct {
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`
}

type TestType struct {
	TestID          string `json:"test_id"`
	DepartmentID    string `json:"department_id"`
	Name            string `json:"name"`
	Code            string `json:"code"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"estimated_duration_minutes"`
}

type Room struct {
	RoomID       string `json:"room_id"`
	DepartmentID string `json:"department_id"`
	RoomNumber   string `json:"room_number"`
}
