// Package memory implements store.Store behind a single mutex. It backs
// unit tests and zero-dependency local runs; postgres is the production
// implementation.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mhcqms/queue-engine/internal/models"
	"mhcqms/queue-engine/internal/risk"
	"mhcqms/queue-engine/internal/store"
)

type Store struct {
	mu sync.Mutex

	panels      risk.PanelConfig
	slotMinutes int
	now         func() time.Time

	patients     map[string]models.Patient // by patient_id
	uniqueIDs    map[string]string         // unique_id -> patient_id
	departments  map[string]models.Department
	tests        map[string]models.TestType
	testsByCode  map[string]string
	rooms        map[string]models.Room
	assignments  map[string]models.TestAssignment
	appointments map[string]models.Appointment
	events       map[string][]store.AssignmentEvent
}

func New(panels risk.PanelConfig, slotMinutes int) *Store {
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	return &Store{
		panels:       panels,
		slotMinutes:  slotMinutes,
		now:          time.Now,
		patients:     make(map[string]models.Patient),
		uniqueIDs:    make(map[string]string),
		departments:  make(map[string]models.Department),
		tests:        make(map[string]models.TestType),
		testsByCode:  make(map[string]string),
		rooms:        make(map[string]models.Room),
		assignments:  make(map[string]models.TestAssignment),
		appointments: make(map[string]models.Appointment),
		events:       make(map[string][]store.AssignmentEvent),
	}
}

func (s *Store) RegisterPatient(_ context.Context, input store.RegisterPatientInput) (store.RegistrationResult, error) {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return store.RegistrationResult{}, fmt.Errorf("%w: first and last name required", store.ErrValidation)
	}
	if input.DateOfBirth.IsZero() {
		return store.RegistrationResult{}, fmt.Errorf("%w: date of birth required", store.ErrValidation)
	}
	at := input.RegisteredAt
	if at.IsZero() {
		at = s.now()
	}
	if input.DateOfBirth.After(at) {
		return store.RegistrationResult{}, fmt.Errorf("%w: date of birth in the future", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	level, score := risk.Assess(input.Factors, input.DateOfBirth, at)
	panel := s.panels.Panel(level)
	if panel == nil {
		return store.RegistrationResult{}, fmt.Errorf("%w: no panel configured for level %q", store.ErrValidation, level)
	}

	patient := models.Patient{
		PatientID:   uuid.NewString(),
		UniqueID:    store.NewUniqueID(at),
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		DateOfBirth: input.DateOfBirth,
		Gender:      input.Gender,
		Phone:       input.Phone,
		Email:       input.Email,
		Address:     input.Address,
		Factors:     input.Factors,
		CreatedAt:   at,
	}

	assignments := make([]models.TestAssignment, 0, len(panel))
	for _, code := range panel {
		testID, ok := s.testsByCode[code]
		if !ok {
			return store.RegistrationResult{}, fmt.Errorf("%w: panel references unknown code %q", store.ErrTestNotFound, code)
		}
		assignment := models.TestAssignment{
			AssignmentID: uuid.NewString(),
			PatientID:    patient.PatientID,
			TestID:       testID,
			Status:       models.TestStatusPending,
			AssignedAt:   at,
		}
		assignments = append(assignments, assignment)
	}

	// All validation passed; commit the patient and every assignment
	// together.
	s.patients[patient.PatientID] = patient
	s.uniqueIDs[patient.UniqueID] = patient.PatientID
	for _, assignment := range assignments {
		s.assignments[assignment.AssignmentID] = assignment
		s.appendEventLocked(assignment, store.EventAssigned, at)
	}

	return store.RegistrationResult{
		Patient:     patient,
		RiskLevel:   level,
		RiskScore:   score,
		Assignments: assignments,
	}, nil
}

func (s *Store) GetPatient(_ context.Context, patientID string) (models.Patient, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patient, ok := s.patients[patientID]
	return patient, ok, nil
}

func (s *Store) GetPatientByUniqueID(_ context.Context, uniqueID string) (models.Patient, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patientID, ok := s.uniqueIDs[uniqueID]
	if !ok {
		return models.Patient{}, false, nil
	}
	return s.patients[patientID], true, nil
}

func (s *Store) QueueStatus(_ context.Context, departmentID string) ([]models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if departmentID != "" {
		if _, ok := s.departments[departmentID]; !ok {
			return nil, store.ErrDepartmentNotFound
		}
	}

	now := s.now()
	entries := make([]models.QueueEntry, 0)
	for _, assignment := range s.assignments {
		if assignment.Status == models.TestStatusCompleted {
			continue
		}
		test := s.tests[assignment.TestID]
		if departmentID != "" && test.DepartmentID != departmentID {
			continue
		}
		patient := s.patients[assignment.PatientID]
		wait := int(now.Sub(assignment.AssignedAt).Minutes())
		if wait < 0 {
			wait = 0
		}
		entry := models.QueueEntry{
			AssignmentID:    assignment.AssignmentID,
			PatientID:       patient.PatientID,
			UniqueID:        patient.UniqueID,
			PatientName:     patient.FullName(),
			TestName:        test.Name,
			Department:      s.departments[test.DepartmentID].Name,
			Status:          assignment.Status,
			WaitTimeMinutes: &wait,
			AssignedAt:      assignment.AssignedAt,
		}
		if assignment.RoomID != nil {
			number := s.rooms[*assignment.RoomID].RoomNumber
			entry.RoomNumber = &number
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AssignedAt.Equal(entries[j].AssignedAt) {
			return entries[i].AssignmentID < entries[j].AssignmentID
		}
		return entries[i].AssignedAt.Before(entries[j].AssignedAt)
	})
	return entries, nil
}

func (s *Store) QueueMetrics(_ context.Context) (models.QueueMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics := models.QueueMetrics{}
	byDept := make(map[string]*models.DepartmentMetrics)
	for _, assignment := range s.assignments {
		test := s.tests[assignment.TestID]
		dept := s.departments[test.DepartmentID]
		dm, ok := byDept[dept.DepartmentID]
		if !ok {
			dm = &models.DepartmentMetrics{Department: dept.Name}
			byDept[dept.DepartmentID] = dm
		}
		switch assignment.Status {
		case models.TestStatusPending:
			metrics.TotalPending++
			dm.Pending++
		case models.TestStatusInProgress:
			metrics.TotalInProgress++
			dm.InProgress++
		case models.TestStatusCompleted:
			metrics.TotalCompleted++
			dm.Completed++
		}
	}
	for _, dm := range byDept {
		metrics.Departments = append(metrics.Departments, *dm)
	}
	sort.Slice(metrics.Departments, func(i, j int) bool {
		return metrics.Departments[i].Department < metrics.Departments[j].Department
	})
	return metrics, nil
}

func (s *Store) TransitionTest(_ context.Context, input store.TransitionInput) (models.TestAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignment, ok := s.assignments[input.AssignmentID]
	if !ok {
		return models.TestAssignment{}, store.ErrAssignmentNotFound
	}
	at := input.OccurredAt
	if at.IsZero() {
		at = s.now()
	}

	switch input.Target {
	case models.TestStatusInProgress:
		if !store.ValidTestTransition(input.Target, assignment.Status) {
			return models.TestAssignment{}, store.ErrInvalidTransition
		}
		if input.RoomID == "" {
			return models.TestAssignment{}, fmt.Errorf("%w: room_id required to start a test", store.ErrValidation)
		}
		room, ok := s.rooms[input.RoomID]
		if !ok {
			return models.TestAssignment{}, store.ErrRoomNotFound
		}
		test := s.tests[assignment.TestID]
		if room.DepartmentID != test.DepartmentID {
			return models.TestAssignment{}, fmt.Errorf("%w: room %s is not in the test's department", store.ErrValidation, room.RoomNumber)
		}
		if s.roomHeldLocked(input.RoomID, "") {
			return models.TestAssignment{}, store.ErrRoomUnavailable
		}
		roomID := input.RoomID
		assignment.Status = models.TestStatusInProgress
		assignment.RoomID = &roomID
		assignment.StartedAt = &at
		assignment.Notes = appendNotes(assignment.Notes, input.Notes)
		s.assignments[assignment.AssignmentID] = assignment
		s.appendEventLocked(assignment, store.EventStarted, at)
		return assignment, nil

	case models.TestStatusCompleted:
		if assignment.Status == models.TestStatusCompleted {
			// Idempotent: completing twice succeeds without touching
			// timestamps. Fresh notes still land.
			if input.Notes != "" {
				assignment.Notes = appendNotes(assignment.Notes, input.Notes)
				s.assignments[assignment.AssignmentID] = assignment
				s.appendEventLocked(assignment, store.EventNoteAdded, at)
			}
			return assignment, nil
		}
		if !store.ValidTestTransition(input.Target, assignment.Status) {
			return models.TestAssignment{}, store.ErrInvalidTransition
		}
		assignment.Status = models.TestStatusCompleted
		assignment.RoomID = nil
		assignment.CompletedAt = &at
		assignment.Notes = appendNotes(assignment.Notes, input.Notes)
		s.assignments[assignment.AssignmentID] = assignment
		s.appendEventLocked(assignment, store.EventCompleted, at)
		return assignment, nil

	case models.TestStatusPending:
		return models.TestAssignment{}, store.ErrInvalidTransition

	default:
		return models.TestAssignment{}, fmt.Errorf("%w: unknown target status %q", store.ErrValidation, input.Target)
	}
}

func (s *Store) ScheduleAppointment(_ context.Context, input store.ScheduleInput) (models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[input.PatientID]; !ok {
		return models.Appointment{}, store.ErrPatientNotFound
	}
	if _, ok := s.rooms[input.RoomID]; !ok {
		return models.Appointment{}, store.ErrRoomNotFound
	}
	if input.StartAt.IsZero() {
		return models.Appointment{}, fmt.Errorf("%w: scheduled time required", store.ErrValidation)
	}
	if s.roomHeldLocked(input.RoomID, "") {
		return models.Appointment{}, store.ErrRoomConflict
	}
	slot := time.Duration(s.slotMinutes) * time.Minute
	start := input.StartAt
	end := start.Add(slot)
	for _, existing := range s.appointments {
		if existing.RoomID != input.RoomID {
			continue
		}
		if existing.Status == models.AppointmentCancelled || existing.Status == models.AppointmentCompleted {
			continue
		}
		existingEnd := existing.ScheduledAt.Add(slot)
		if start.Before(existingEnd) && existing.ScheduledAt.Before(end) {
			return models.Appointment{}, store.ErrRoomConflict
		}
	}

	at := input.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	appointment := models.Appointment{
		AppointmentID:        uuid.NewString(),
		PatientID:            input.PatientID,
		RoomID:               input.RoomID,
		ScheduledAt:          input.StartAt,
		EstimatedWaitMinutes: input.EstimatedWaitMinutes,
		Status:               models.AppointmentScheduled,
		CreatedAt:            at,
	}
	s.appointments[appointment.AppointmentID] = appointment
	return appointment, nil
}

func (s *Store) UpdateAppointmentStatus(_ context.Context, input store.AppointmentStatusInput) (models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appointment, ok := s.appointments[input.AppointmentID]
	if !ok {
		return models.Appointment{}, store.ErrAppointmentNotFound
	}
	switch input.Target {
	case models.AppointmentScheduled, models.AppointmentInProgress, models.AppointmentCompleted, models.AppointmentCancelled:
	default:
		return models.Appointment{}, fmt.Errorf("%w: unknown target status %q", store.ErrValidation, input.Target)
	}
	if !store.ValidAppointmentTransition(input.Target, appointment.Status) {
		return models.Appointment{}, store.ErrInvalidTransition
	}
	// Entering in_progress occupies the room; it must not already be held
	// by an active assignment or another appointment.
	if input.Target == models.AppointmentInProgress && s.roomHeldLocked(appointment.RoomID, appointment.AppointmentID) {
		return models.Appointment{}, store.ErrRoomConflict
	}
	appointment.Status = input.Target
	s.appointments[appointment.AppointmentID] = appointment
	return appointment, nil
}

func (s *Store) AccessPortal(_ context.Context, uniqueID string, dateOfBirth time.Time) (models.PortalSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patientID, found := s.uniqueIDs[uniqueID]
	patient := s.patients[patientID]
	if !found || !sameDate(patient.DateOfBirth, dateOfBirth) {
		return models.PortalSnapshot{}, store.ErrAccessDenied
	}

	snapshot := models.PortalSnapshot{
		PatientName: patient.FullName(),
		UniqueID:    patient.UniqueID,
	}
	histories := make([]models.TestHistory, 0)
	for _, assignment := range s.assignments {
		if assignment.PatientID != patient.PatientID {
			continue
		}
		test := s.tests[assignment.TestID]
		history := models.TestHistory{
			AssignmentID: assignment.AssignmentID,
			TestName:     test.Name,
			Department:   s.departments[test.DepartmentID].Name,
			Status:       assignment.Status,
			AssignedAt:   assignment.AssignedAt,
			StartedAt:    assignment.StartedAt,
			CompletedAt:  assignment.CompletedAt,
			Notes:        assignment.Notes,
		}
		if assignment.RoomID != nil {
			number := s.rooms[*assignment.RoomID].RoomNumber
			history.RoomNumber = &number
		}
		histories = append(histories, history)
	}
	sort.Slice(histories, func(i, j int) bool {
		if histories[i].AssignedAt.Equal(histories[j].AssignedAt) {
			return histories[i].AssignmentID < histories[j].AssignmentID
		}
		return histories[i].AssignedAt.Before(histories[j].AssignedAt)
	})
	for _, history := range histories {
		if history.Status == models.TestStatusCompleted {
			snapshot.CompletedTests = append(snapshot.CompletedTests, history)
		} else {
			snapshot.UpcomingTests = append(snapshot.UpcomingTests, history)
		}
	}

	now := s.now()
	for _, appointment := range s.appointments {
		if appointment.PatientID != patient.PatientID || appointment.Status != models.AppointmentScheduled {
			continue
		}
		if appointment.ScheduledAt.Before(now) {
			continue
		}
		if snapshot.NextAppointment == nil || appointment.ScheduledAt.Before(snapshot.NextAppointment.ScheduledAt) {
			next := appointment
			snapshot.NextAppointment = &next
		}
	}
	return snapshot, nil
}

func (s *Store) ListAvailableRooms(_ context.Context, departmentID string) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if departmentID != "" {
		if _, ok := s.departments[departmentID]; !ok {
			return nil, store.ErrDepartmentNotFound
		}
	}
	rooms := make([]models.Room, 0)
	for _, room := range s.rooms {
		if departmentID != "" && room.DepartmentID != departmentID {
			continue
		}
		if s.roomHeldLocked(room.RoomID, "") {
			continue
		}
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomNumber < rooms[j].RoomNumber })
	return rooms, nil
}

func (s *Store) ListDepartments(_ context.Context) ([]models.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	departments := make([]models.Department, 0, len(s.departments))
	for _, department := range s.departments {
		departments = append(departments, department)
	}
	sort.Slice(departments, func(i, j int) bool { return departments[i].Name < departments[j].Name })
	return departments, nil
}

func (s *Store) ListAssignmentEvents(_ context.Context, assignmentID string) ([]store.AssignmentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[assignmentID]; !ok {
		return nil, store.ErrAssignmentNotFound
	}
	events := make([]store.AssignmentEvent, len(s.events[assignmentID]))
	copy(events, s.events[assignmentID])
	return events, nil
}

// roomHeldLocked reports whether a room is occupied right now: bound to
// an in_progress assignment or hosting an in_progress appointment other
// than excludeAppointmentID. Callers hold s.mu.
func (s *Store) roomHeldLocked(roomID, excludeAppointmentID string) bool {
	for _, assignment := range s.assignments {
		if assignment.Status == models.TestStatusInProgress && assignment.RoomID != nil && *assignment.RoomID == roomID {
			return true
		}
	}
	for _, appointment := range s.appointments {
		if appointment.AppointmentID == excludeAppointmentID {
			continue
		}
		if appointment.RoomID == roomID && appointment.Status == models.AppointmentInProgress {
			return true
		}
	}
	return false
}

func (s *Store) appendEventLocked(assignment models.TestAssignment, eventType string, at time.Time) {
	payload, err := json.Marshal(store.EventPayload{
		AssignmentID: assignment.AssignmentID,
		PatientID:    assignment.PatientID,
		TestID:       assignment.TestID,
		Status:       assignment.Status,
		RoomID:       assignment.RoomID,
		AssignedAt:   &assignment.AssignedAt,
		StartedAt:    assignment.StartedAt,
		CompletedAt:  assignment.CompletedAt,
		Notes:        assignment.Notes,
	})
	if err != nil {
		return
	}
	chain := s.events[assignment.AssignmentID]
	prevHash := ""
	if len(chain) > 0 {
		prevHash = chain[len(chain)-1].Hash
	}
	event := store.AssignmentEvent{
		AssignmentID: assignment.AssignmentID,
		Seq:          len(chain) + 1,
		Type:         eventType,
		Payload:      payload,
		CreatedAt:    at,
		PrevHash:     prevHash,
	}
	event.Hash = store.ComputeEventHash(prevHash, event.AssignmentID, event.Type, event.Payload, event.CreatedAt, event.Seq)
	s.events[assignment.AssignmentID] = append(chain, event)
}

func appendNotes(existing, added string) string {
	if added == "" {
		return existing
	}
	if existing == "" {
		return added
	}
	return existing + "\n" + added
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
