package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mhcqms/queue-engine/internal/models"
	"mhcqms/queue-engine/internal/risk"
	"mhcqms/queue-engine/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(risk.DefaultPanels(), 30)
	s.SeedCatalog()
	return s
}

func registerLowRisk(t *testing.T, s *Store, first string) store.RegistrationResult {
	t.Helper()
	result, err := s.RegisterPatient(context.Background(), store.RegisterPatientInput{
		FirstName:    first,
		LastName:     "Sharma",
		DateOfBirth:  time.Date(1996, 5, 10, 0, 0, 0, 0, time.UTC),
		Gender:       "female",
		RegisteredAt: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return result
}

func TestRegisterPatientAssignsPanel(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	result, err := s.RegisterPatient(context.Background(), store.RegisterPatientInput{
		FirstName:    "Asha",
		LastName:     "Verma",
		DateOfBirth:  time.Date(1981, 3, 2, 0, 0, 0, 0, time.UTC), // 45 at registration
		Gender:       "female",
		Factors:      models.RiskFactors{Smoking: true, Diabetes: true, FamilyHistory: true},
		RegisteredAt: at,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.RiskLevel != risk.LevelHigh || result.RiskScore != 6 {
		t.Fatalf("risk: got %s/%d, want high/6", result.RiskLevel, result.RiskScore)
	}
	if len(result.Assignments) != 6 {
		t.Fatalf("high panel should assign 6 tests, got %d", len(result.Assignments))
	}
	for _, assignment := range result.Assignments {
		if assignment.Status != models.TestStatusPending {
			t.Fatalf("fresh assignment not pending: %s", assignment.Status)
		}
		if assignment.RoomID != nil {
			t.Fatal("fresh assignment must not hold a room")
		}
		events, err := s.ListAssignmentEvents(context.Background(), assignment.AssignmentID)
		if err != nil {
			t.Fatalf("events: %v", err)
		}
		if len(events) != 1 || events[0].Type != store.EventAssigned {
			t.Fatalf("expected single assigned event, got %+v", events)
		}
	}
	if len(result.Patient.UniqueID) != 14 || result.Patient.UniqueID[:9] != "P20260828" {
		t.Fatalf("unexpected UHID: %s", result.Patient.UniqueID)
	}
}

func TestRegisterPatientValidation(t *testing.T) {
	s := newTestStore(t)
	cases := []store.RegisterPatientInput{
		{LastName: "X", DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)},
		{FirstName: "X", DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)},
		{FirstName: "X", LastName: "Y"},
		{FirstName: "X", LastName: "Y", DateOfBirth: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for i, input := range cases {
		if _, err := s.RegisterPatient(context.Background(), input); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("case %d: got %v, want ErrValidation", i, err)
		}
	}
}

func TestTransitionLifecycle(t *testing.T) {
	s := newTestStore(t)
	result := registerLowRisk(t, s, "Meera")
	assignment := result.Assignments[0] // XRAY_CHEST, radiology

	started, err := s.TransitionTest(context.Background(), store.TransitionInput{
		AssignmentID: assignment.AssignmentID,
		Target:       models.TestStatusInProgress,
		RoomID:       "R101",
		Notes:        "fasting confirmed",
		OccurredAt:   time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != models.TestStatusInProgress || started.RoomID == nil || *started.RoomID != "R101" {
		t.Fatalf("unexpected started state: %+v", started)
	}
	if started.StartedAt == nil || started.Notes != "fasting confirmed" {
		t.Fatalf("started_at/notes not recorded: %+v", started)
	}

	rooms, err := s.ListAvailableRooms(context.Background(), "radiology")
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	for _, room := range rooms {
		if room.RoomID == "R101" {
			t.Fatal("held room listed as available")
		}
	}

	completed, err := s.TransitionTest(context.Background(), store.TransitionInput{
		AssignmentID: assignment.AssignmentID,
		Target:       models.TestStatusCompleted,
		RoomID:       "C101", // ignored on completion
		Notes:        "report pending",
		OccurredAt:   time.Date(2026, 8, 28, 9, 50, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.TestStatusCompleted || completed.RoomID != nil || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed state: %+v", completed)
	}
	if completed.Notes != "fasting confirmed\nreport pending" {
		t.Fatalf("notes not appended: %q", completed.Notes)
	}

	rooms, err = s.ListAvailableRooms(context.Background(), "radiology")
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("room not released: %d available", len(rooms))
	}

	events, err := s.ListAssignmentEvents(context.Background(), assignment.AssignmentID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected assigned/started/completed events, got %d", len(events))
	}
	if err := store.VerifyEventChain(events); err != nil {
		t.Fatalf("event chain broken: %v", err)
	}
}

func TestTransitionRejections(t *testing.T) {
	s := newTestStore(t)
	result := registerLowRisk(t, s, "Meera")
	assignment := result.Assignments[0]
	ctx := context.Background()

	cases := []struct {
		name  string
		input store.TransitionInput
		want  error
	}{
		{"skip to completed", store.TransitionInput{AssignmentID: assignment.AssignmentID, Target: models.TestStatusCompleted}, store.ErrInvalidTransition},
		{"back to pending", store.TransitionInput{AssignmentID: assignment.AssignmentID, Target: models.TestStatusPending}, store.ErrInvalidTransition},
		{"missing room", store.TransitionInput{AssignmentID: assignment.AssignmentID, Target: models.TestStatusInProgress}, store.ErrValidation},
		{"unknown room", store.TransitionInput{AssignmentID: assignment.AssignmentID, Target: models.TestStatusInProgress, RoomID: "Z999"}, store.ErrRoomNotFound},
		{"wrong department", store.TransitionInput{AssignmentID: assignment.AssignmentID, Target: models.TestStatusInProgress, RoomID: "C101"}, store.ErrValidation},
		{"unknown target", store.TransitionInput{AssignmentID: assignment.AssignmentID, Target: "archived"}, store.ErrValidation},
		{"unknown assignment", store.TransitionInput{AssignmentID: "nope", Target: models.TestStatusCompleted}, store.ErrAssignmentNotFound},
	}
	for _, tt := range cases {
		if _, err := s.TransitionTest(ctx, tt.input); !errors.Is(err, tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}

	// Failed transitions leave the record untouched.
	entries, err := s.QueueStatus(ctx, "")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	for _, entry := range entries {
		if entry.AssignmentID == assignment.AssignmentID && entry.Status != models.TestStatusPending {
			t.Fatalf("failed transitions mutated the assignment: %s", entry.Status)
		}
	}
}

func TestTransitionSameStateRequests(t *testing.T) {
	s := newTestStore(t)
	result := registerLowRisk(t, s, "Meera")
	assignment := result.Assignments[0]
	ctx := context.Background()

	if _, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: assignment.AssignmentID, Target: models.TestStatusInProgress, RoomID: "R101",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: assignment.AssignmentID, Target: models.TestStatusInProgress, RoomID: "R102",
	}); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("in_progress twice: got %v, want ErrInvalidTransition", err)
	}

	first, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: assignment.AssignmentID, Target: models.TestStatusCompleted,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	again, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: assignment.AssignmentID, Target: models.TestStatusCompleted,
	})
	if err != nil {
		t.Fatalf("complete twice must be idempotent: %v", err)
	}
	if !again.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatal("idempotent completion must not move completed_at")
	}
}

func TestRoomAcquisitionSingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := registerLowRisk(t, s, "Asha").Assignments[0]
	b := registerLowRisk(t, s, "Binu").Assignments[0]

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, assignmentID := range []string{a.AssignmentID, b.AssignmentID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = s.TransitionTest(ctx, store.TransitionInput{
				AssignmentID: id, Target: models.TestStatusInProgress, RoomID: "R103",
			})
		}(i, assignmentID)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, store.ErrRoomUnavailable):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 || losers != 1 {
		t.Fatalf("want exactly one winner and one loser, got %d/%d", winners, losers)
	}
}

func TestScheduleAppointmentConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	patient := registerLowRisk(t, s, "Asha").Patient
	slotStart := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	first, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: patient.PatientID, RoomID: "C101", StartAt: slotStart, EstimatedWaitMinutes: 15,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if first.Status != models.AppointmentScheduled {
		t.Fatalf("fresh appointment status: %s", first.Status)
	}

	// Overlapping window in the same room.
	if _, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: patient.PatientID, RoomID: "C101", StartAt: slotStart.Add(15 * time.Minute),
	}); !errors.Is(err, store.ErrRoomConflict) {
		t.Fatalf("overlap: got %v, want ErrRoomConflict", err)
	}
	// Back-to-back slot is fine.
	if _, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: patient.PatientID, RoomID: "C101", StartAt: slotStart.Add(30 * time.Minute),
	}); err != nil {
		t.Fatalf("adjacent slot: %v", err)
	}
	// Same window, different room is fine.
	if _, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: patient.PatientID, RoomID: "C102", StartAt: slotStart,
	}); err != nil {
		t.Fatalf("other room: %v", err)
	}

	// Cancelled appointments stop conflicting.
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: first.AppointmentID, Target: models.AppointmentCancelled,
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: patient.PatientID, RoomID: "C101", StartAt: slotStart,
	}); err != nil {
		t.Fatalf("slot freed by cancellation: %v", err)
	}

	if _, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: "nope", RoomID: "C101", StartAt: slotStart.Add(2 * time.Hour),
	}); !errors.Is(err, store.ErrPatientNotFound) {
		t.Fatalf("unknown patient: got %v", err)
	}
	if _, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: patient.PatientID, RoomID: "Z999", StartAt: slotStart.Add(2 * time.Hour),
	}); !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("unknown room: got %v", err)
	}
}

func TestScheduleAppointmentRejectsHeldRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	result := registerLowRisk(t, s, "Asha")

	if _, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: result.Assignments[0].AssignmentID, Target: models.TestStatusInProgress, RoomID: "R101",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: result.Patient.PatientID, RoomID: "R101", StartAt: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}); !errors.Is(err, store.ErrRoomConflict) {
		t.Fatalf("held room: got %v, want ErrRoomConflict", err)
	}
}

func TestUpdateAppointmentStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	patient := registerLowRisk(t, s, "Asha").Patient
	appointment, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: patient.PatientID, RoomID: "C101", StartAt: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: appointment.AppointmentID, Target: models.AppointmentCompleted,
	}); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("scheduled->completed: got %v", err)
	}
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: appointment.AppointmentID, Target: models.AppointmentInProgress,
	}); err != nil {
		t.Fatalf("scheduled->in_progress: %v", err)
	}
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: appointment.AppointmentID, Target: models.AppointmentCancelled,
	}); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("in_progress->cancelled: got %v", err)
	}
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: appointment.AppointmentID, Target: models.AppointmentCompleted,
	}); err != nil {
		t.Fatalf("in_progress->completed: %v", err)
	}
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: "nope", Target: models.AppointmentCancelled,
	}); !errors.Is(err, store.ErrAppointmentNotFound) {
		t.Fatalf("unknown appointment: got %v", err)
	}
}

func TestAppointmentInProgressKeepsRoomExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	result := registerLowRisk(t, s, "Asha")
	slotStart := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	first, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: result.Patient.PatientID, RoomID: "R101", StartAt: slotStart,
	})
	if err != nil {
		t.Fatalf("schedule first: %v", err)
	}
	second, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: result.Patient.PatientID, RoomID: "R101", StartAt: slotStart.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("schedule second: %v", err)
	}

	// A test assignment takes the room after booking.
	if _, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: result.Assignments[0].AssignmentID, Target: models.TestStatusInProgress, RoomID: "R101",
	}); err != nil {
		t.Fatalf("start test: %v", err)
	}
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: first.AppointmentID, Target: models.AppointmentInProgress,
	}); !errors.Is(err, store.ErrRoomConflict) {
		t.Fatalf("appointment started while a test holds the room: got %v, want ErrRoomConflict", err)
	}

	if _, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: result.Assignments[0].AssignmentID, Target: models.TestStatusCompleted,
	}); err != nil {
		t.Fatalf("complete test: %v", err)
	}
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: first.AppointmentID, Target: models.AppointmentInProgress,
	}); err != nil {
		t.Fatalf("start first appointment after room freed: %v", err)
	}

	// The first appointment overruns; the second must wait for the room.
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: second.AppointmentID, Target: models.AppointmentInProgress,
	}); !errors.Is(err, store.ErrRoomConflict) {
		t.Fatalf("two in_progress appointments in one room: got %v, want ErrRoomConflict", err)
	}
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: first.AppointmentID, Target: models.AppointmentCompleted,
	}); err != nil {
		t.Fatalf("complete first appointment: %v", err)
	}
	if _, err := s.UpdateAppointmentStatus(ctx, store.AppointmentStatusInput{
		AppointmentID: second.AppointmentID, Target: models.AppointmentInProgress,
	}); err != nil {
		t.Fatalf("start second appointment after room freed: %v", err)
	}
}

func TestQueueStatusOrderingAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }

	first, err := s.RegisterPatient(ctx, store.RegisterPatientInput{
		FirstName: "Asha", LastName: "Verma",
		DateOfBirth:  time.Date(1996, 5, 10, 0, 0, 0, 0, time.UTC),
		RegisteredAt: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := s.RegisterPatient(ctx, store.RegisterPatientInput{
		FirstName: "Binu", LastName: "Nair",
		DateOfBirth:  time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		Factors:      models.RiskFactors{Smoking: true}, // medium: adds cardiology tests
		RegisteredAt: time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	entries, err := s.QueueStatus(ctx, "")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if len(entries) != len(first.Assignments)+len(second.Assignments) {
		t.Fatalf("entry count: %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].AssignedAt.Before(entries[i-1].AssignedAt) {
			t.Fatal("entries not in assignment order")
		}
	}
	if entries[0].PatientName != "Asha Verma" || *entries[0].WaitTimeMinutes != 60 {
		t.Fatalf("head entry: %+v", entries[0])
	}

	cardio, err := s.QueueStatus(ctx, "cardiology")
	if err != nil {
		t.Fatalf("filtered status: %v", err)
	}
	for _, entry := range cardio {
		if entry.Department != "Cardiology" {
			t.Fatalf("filter leaked %s", entry.Department)
		}
	}
	if len(cardio) != 2 { // medium panel adds ECG and PFT
		t.Fatalf("cardiology entries: %d", len(cardio))
	}

	if _, err := s.QueueStatus(ctx, "dermatology"); !errors.Is(err, store.ErrDepartmentNotFound) {
		t.Fatalf("unknown department: got %v", err)
	}
}

func TestQueueMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	result := registerLowRisk(t, s, "Asha")

	if _, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: result.Assignments[0].AssignmentID, Target: models.TestStatusInProgress, RoomID: "R101",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	metrics, err := s.QueueMetrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.TotalPending != 1 || metrics.TotalInProgress != 1 || metrics.TotalCompleted != 0 {
		t.Fatalf("totals: %+v", metrics)
	}
	if len(metrics.Departments) != 1 || metrics.Departments[0].Department != "Radiology" {
		t.Fatalf("departments: %+v", metrics.Departments)
	}
}

func TestAccessPortal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }
	result := registerLowRisk(t, s, "Asha")
	dob := result.Patient.DateOfBirth

	if _, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: result.Assignments[0].AssignmentID, Target: models.TestStatusInProgress, RoomID: "R101",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.TransitionTest(ctx, store.TransitionInput{
		AssignmentID: result.Assignments[0].AssignmentID, Target: models.TestStatusCompleted,
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	appointment, err := s.ScheduleAppointment(ctx, store.ScheduleInput{
		PatientID: result.Patient.PatientID, RoomID: "C101",
		StartAt: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	snapshot, err := s.AccessPortal(ctx, result.Patient.UniqueID, dob)
	if err != nil {
		t.Fatalf("portal: %v", err)
	}
	if snapshot.PatientName != "Asha Sharma" || snapshot.UniqueID != result.Patient.UniqueID {
		t.Fatalf("identity: %+v", snapshot)
	}
	if len(snapshot.CompletedTests) != 1 || len(snapshot.UpcomingTests) != 1 {
		t.Fatalf("test split: %d completed, %d upcoming", len(snapshot.CompletedTests), len(snapshot.UpcomingTests))
	}
	if snapshot.NextAppointment == nil || snapshot.NextAppointment.AppointmentID != appointment.AppointmentID {
		t.Fatalf("next appointment: %+v", snapshot.NextAppointment)
	}

	if _, err := s.AccessPortal(ctx, result.Patient.UniqueID, dob.AddDate(0, 0, 1)); !errors.Is(err, store.ErrAccessDenied) {
		t.Fatalf("wrong dob: got %v", err)
	}
	if _, err := s.AccessPortal(ctx, "P20260101ZZZZZ", dob); !errors.Is(err, store.ErrAccessDenied) {
		t.Fatalf("unknown uhid: got %v", err)
	}
}

func TestListDepartments(t *testing.T) {
	s := newTestStore(t)
	departments, err := s.ListDepartments(context.Background())
	if err != nil {
		t.Fatalf("departments: %v", err)
	}
	if len(departments) != 2 || departments[0].Name != "Cardiology" || departments[1].Name != "Radiology" {
		t.Fatalf("unexpected departments: %+v", departments)
	}
}
