package store

import (
	"context"
	"time"

	"mhcqms/queue-engine/internal/models"
	"mhcqms/queue-engine/internal/risk"
)

type RegisterPatientInput struct {
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	Gender       string
	Phone        string
	Email        string
	Address      string
	Factors      models.RiskFactors
	RegisteredAt time.Time
}

type RegistrationResult struct {
	Patient     models.Patient
	RiskLevel   risk.Level
	RiskScore   int
	Assignments []models.TestAssignment
}

type TransitionInput struct {
	AssignmentID string
	Target       string
	RoomID       string
	Notes        string
	OccurredAt   time.Time
}

type ScheduleInput struct {
	PatientID            string
	RoomID               string
	StartAt              time.Time
	EstimatedWaitMinutes int
	CreatedAt            time.Time
}

type AppointmentStatusInput struct {
	AppointmentID string
	Target        string
	OccurredAt    time.Time
}

// Store is the persistence boundary of the allocation engine. The
// postgres implementation backs deployments; the memory implementation
// backs tests and zero-dependency local runs.
type Store interface {
	RegisterPatient(ctx context.Context, input RegisterPatientInput) (RegistrationResult, error)
	GetPatient(ctx context.Context, patientID string) (models.Patient, bool, error)
	GetPatientByUniqueID(ctx context.Context, uniqueID string) (models.Patient, bool, error)
	QueueStatus(ctx context.Context, departmentID string) ([]models.QueueEntry, error)
	QueueMetrics(ctx context.Context) (models.QueueMetrics, error)
	TransitionTest(ctx context.Context, input TransitionInput) (models.TestAssignment, error)
	ScheduleAppointment(ctx context.Context, input ScheduleInput) (models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, input AppointmentStatusInput) (models.Appointment, error)
	AccessPortal(ctx context.Context, uniqueID string, dateOfBirth time.Time) (models.PortalSnapshot, error)
	ListAvailableRooms(ctx context.Context, departmentID string) ([]models.Room, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	ListAssignmentEvents(ctx context.Context, assignmentID string) ([]AssignmentEvent, error)
}
