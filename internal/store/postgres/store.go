package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mhcqms/queue-engine/internal/models"
	"mhcqms/queue-engine/internal/risk"
	"mhcqms/queue-engine/internal/store"
)

type Store struct {
	pool        *pgxpool.Pool
	panels      risk.PanelConfig
	slotMinutes int
}

type Options struct {
	Panels      risk.PanelConfig
	SlotMinutes int
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	panels := options.Panels
	if panels == nil {
		panels = risk.DefaultPanels()
	}
	slot := options.SlotMinutes
	if slot <= 0 {
		slot = 30
	}
	return &Store{pool: pool, panels: panels, slotMinutes: slot}
}

func (s *Store) RegisterPatient(ctx context.Context, input store.RegisterPatientInput) (store.RegistrationResult, error) {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return store.RegistrationResult{}, fmt.Errorf("%w: first and last name required", store.ErrValidation)
	}
	if input.DateOfBirth.IsZero() {
		return store.RegistrationResult{}, fmt.Errorf("%w: date of birth required", store.ErrValidation)
	}
	at := input.RegisteredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if input.DateOfBirth.After(at) {
		return store.RegistrationResult{}, fmt.Errorf("%w: date of birth in the future", store.ErrValidation)
	}

	level, score := risk.Assess(input.Factors, input.DateOfBirth, at)
	panel := s.panels.Panel(level)
	if panel == nil {
		return store.RegistrationResult{}, fmt.Errorf("%w: no panel configured for level %q", store.ErrValidation, level)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.RegistrationResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

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

	_, err = tx.Exec(ctx, `
		INSERT INTO patients (
			patient_id, unique_id, first_name, last_name, date_of_birth, gender, phone, email, address,
			smoking, diabetes, hypertension, obesity, family_history, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, patient.PatientID, patient.UniqueID, patient.FirstName, patient.LastName, patient.DateOfBirth,
		nullIfEmpty(patient.Gender), nullIfEmpty(patient.Phone), nullIfEmpty(patient.Email), nullIfEmpty(patient.Address),
		patient.Factors.Smoking, patient.Factors.Diabetes, patient.Factors.Hypertension, patient.Factors.Obesity, patient.Factors.FamilyHistory,
		patient.CreatedAt)
	if err != nil {
		return store.RegistrationResult{}, err
	}

	assignments := make([]models.TestAssignment, 0, len(panel))
	for _, code := range panel {
		var testID string
		row := tx.QueryRow(ctx, `SELECT test_id FROM tests WHERE code = $1`, code)
		if err = row.Scan(&testID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = fmt.Errorf("%w: panel references unknown code %q", store.ErrTestNotFound, code)
			}
			return store.RegistrationResult{}, err
		}
		assignment := models.TestAssignment{
			AssignmentID: uuid.NewString(),
			PatientID:    patient.PatientID,
			TestID:       testID,
			Status:       models.TestStatusPending,
			AssignedAt:   at,
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO patient_tests (assignment_id, patient_id, test_id, status, assigned_at, notes)
			VALUES ($1, $2, $3, $4, $5, '')
		`, assignment.AssignmentID, assignment.PatientID, assignment.TestID, assignment.Status, assignment.AssignedAt)
		if err != nil {
			return store.RegistrationResult{}, err
		}
		if err = insertAssignmentEvent(ctx, tx, assignment, store.EventAssigned); err != nil {
			return store.RegistrationResult{}, err
		}
		assignments = append(assignments, assignment)
	}

	if err = tx.Commit(ctx); err != nil {
		return store.RegistrationResult{}, err
	}
	return store.RegistrationResult{
		Patient:     patient,
		RiskLevel:   level,
		RiskScore:   score,
		Assignments: assignments,
	}, nil
}

const patientColumns = `
	patient_id, unique_id, first_name, last_name, date_of_birth, gender, phone, email, address,
	smoking, diabetes, hypertension, obesity, family_history, created_at
`

func (s *Store) GetPatient(ctx context.Context, patientID string) (models.Patient, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE patient_id = $1`, patientID)
	return scanPatient(row)
}

func (s *Store) GetPatientByUniqueID(ctx context.Context, uniqueID string) (models.Patient, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE unique_id = $1`, uniqueID)
	return scanPatient(row)
}

func scanPatient(row pgx.Row) (models.Patient, bool, error) {
	var patient models.Patient
	var genderNull, phoneNull, emailNull, addressNull sql.NullString
	if err := row.Scan(&patient.PatientID, &patient.UniqueID, &patient.FirstName, &patient.LastName, &patient.DateOfBirth,
		&genderNull, &phoneNull, &emailNull, &addressNull,
		&patient.Factors.Smoking, &patient.Factors.Diabetes, &patient.Factors.Hypertension, &patient.Factors.Obesity, &patient.Factors.FamilyHistory,
		&patient.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Patient{}, false, nil
		}
		return models.Patient{}, false, err
	}
	patient.Gender = stringOrEmpty(genderNull)
	patient.Phone = stringOrEmpty(phoneNull)
	patient.Email = stringOrEmpty(emailNull)
	patient.Address = stringOrEmpty(addressNull)
	return patient, true, nil
}

func (s *Store) QueueStatus(ctx context.Context, departmentID string) ([]models.QueueEntry, error) {
	if departmentID != "" {
		if err := s.ensureDepartmentExists(ctx, departmentID); err != nil {
			return nil, err
		}
	}

	query := `
		SELECT a.assignment_id, p.patient_id, p.unique_id, p.first_name, p.last_name,
			t.name, d.name, a.status, r.room_number, a.assigned_at
		FROM patient_tests a
		JOIN patients p ON p.patient_id = a.patient_id
		JOIN tests t ON t.test_id = a.test_id
		JOIN departments d ON d.department_id = t.department_id
		LEFT JOIN rooms r ON r.room_id = a.room_id
		WHERE a.status IN ('pending', 'in_progress')
	`
	args := []interface{}{}
	if departmentID != "" {
		query += " AND d.department_id = $1"
		args = append(args, departmentID)
	}
	query += " ORDER BY a.assigned_at ASC, a.assignment_id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	entries := make([]models.QueueEntry, 0)
	for rows.Next() {
		var entry models.QueueEntry
		var firstName, lastName string
		var roomNumberNull sql.NullString
		if err := rows.Scan(&entry.AssignmentID, &entry.PatientID, &entry.UniqueID, &firstName, &lastName,
			&entry.TestName, &entry.Department, &entry.Status, &roomNumberNull, &entry.AssignedAt); err != nil {
			return nil, err
		}
		entry.PatientName = firstName + " " + lastName
		entry.RoomNumber = nullStringPtr(roomNumberNull)
		wait := int(now.Sub(entry.AssignedAt).Minutes())
		if wait < 0 {
			wait = 0
		}
		entry.WaitTimeMinutes = &wait
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) QueueMetrics(ctx context.Context) (models.QueueMetrics, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.name,
			COUNT(*) FILTER (WHERE a.status = 'pending'),
			COUNT(*) FILTER (WHERE a.status = 'in_progress'),
			COUNT(*) FILTER (WHERE a.status = 'completed')
		FROM patient_tests a
		JOIN tests t ON t.test_id = a.test_id
		JOIN departments d ON d.department_id = t.department_id
		GROUP BY d.name
		ORDER BY d.name ASC
	`)
	if err != nil {
		return models.QueueMetrics{}, err
	}
	defer rows.Close()

	metrics := models.QueueMetrics{}
	for rows.Next() {
		var dm models.DepartmentMetrics
		if err := rows.Scan(&dm.Department, &dm.Pending, &dm.InProgress, &dm.Completed); err != nil {
			return models.QueueMetrics{}, err
		}
		metrics.TotalPending += dm.Pending
		metrics.TotalInProgress += dm.InProgress
		metrics.TotalCompleted += dm.Completed
		metrics.Departments = append(metrics.Departments, dm)
	}
	if err := rows.Err(); err != nil {
		return models.QueueMetrics{}, err
	}
	return metrics, nil
}

func (s *Store) TransitionTest(ctx context.Context, input store.TransitionInput) (models.TestAssignment, error) {
	switch input.Target {
	case models.TestStatusInProgress:
		return s.startTest(ctx, input)
	case models.TestStatusCompleted:
		return s.completeTest(ctx, input)
	case models.TestStatusPending:
		return models.TestAssignment{}, store.ErrInvalidTransition
	default:
		return models.TestAssignment{}, fmt.Errorf("%w: unknown target status %q", store.ErrValidation, input.Target)
	}
}

func (s *Store) startTest(ctx context.Context, input store.TransitionInput) (models.TestAssignment, error) {
	if input.RoomID == "" {
		return models.TestAssignment{}, fmt.Errorf("%w: room_id required to start a test", store.ErrValidation)
	}
	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.TestAssignment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var roomDepartment, roomNumber string
	row := tx.QueryRow(ctx, `SELECT department_id, room_number FROM rooms WHERE room_id = $1`, input.RoomID)
	if err = row.Scan(&roomDepartment, &roomNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrRoomNotFound
		}
		return models.TestAssignment{}, err
	}

	var testDepartment string
	row = tx.QueryRow(ctx, `
		SELECT t.department_id
		FROM patient_tests a
		JOIN tests t ON t.test_id = a.test_id
		WHERE a.assignment_id = $1
	`, input.AssignmentID)
	if err = row.Scan(&testDepartment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrAssignmentNotFound
		}
		return models.TestAssignment{}, err
	}
	if roomDepartment != testDepartment {
		err = fmt.Errorf("%w: room %s is not in the test's department", store.ErrValidation, roomNumber)
		return models.TestAssignment{}, err
	}

	// All room acquisitions and conflict checks for one room serialize on
	// this lock; the conditional UPDATE below is the commit point.
	if err = lockRoom(ctx, tx, input.RoomID); err != nil {
		return models.TestAssignment{}, err
	}

	var assignment models.TestAssignment
	row = tx.QueryRow(ctx, `
		UPDATE patient_tests
		SET status = 'in_progress',
			room_id = $2,
			started_at = $3,
			notes = CASE WHEN $4 = '' THEN notes
				WHEN notes = '' THEN $4
				ELSE notes || E'\n' || $4 END
		WHERE assignment_id = $1 AND status = 'pending'
			AND NOT EXISTS (
				SELECT 1 FROM patient_tests h
				WHERE h.room_id = $2 AND h.status = 'in_progress'
			)
			AND NOT EXISTS (
				SELECT 1 FROM appointments ap
				WHERE ap.room_id = $2 AND ap.status = 'in_progress'
			)
		RETURNING assignment_id, patient_id, test_id, status, room_id, assigned_at, started_at, completed_at, notes
	`, input.AssignmentID, input.RoomID, at, input.Notes)
	if assignment, err = scanAssignment(row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = s.diagnoseStartFailure(ctx, tx, input.AssignmentID)
		}
		return models.TestAssignment{}, err
	}

	if err = insertAssignmentEvent(ctx, tx, assignment, store.EventStarted); err != nil {
		return models.TestAssignment{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.TestAssignment{}, err
	}
	return assignment, nil
}

func (s *Store) diagnoseStartFailure(ctx context.Context, tx pgx.Tx, assignmentID string) error {
	var status string
	row := tx.QueryRow(ctx, `SELECT status FROM patient_tests WHERE assignment_id = $1`, assignmentID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrAssignmentNotFound
		}
		return err
	}
	if status != models.TestStatusPending {
		return store.ErrInvalidTransition
	}
	return store.ErrRoomUnavailable
}

func (s *Store) completeTest(ctx context.Context, input store.TransitionInput) (models.TestAssignment, error) {
	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.TestAssignment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT assignment_id, patient_id, test_id, status, room_id, assigned_at, started_at, completed_at, notes
		FROM patient_tests
		WHERE assignment_id = $1
		FOR UPDATE
	`, input.AssignmentID)
	var assignment models.TestAssignment
	if assignment, err = scanAssignment(row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrAssignmentNotFound
		}
		return models.TestAssignment{}, err
	}

	switch assignment.Status {
	case models.TestStatusCompleted:
		// Idempotent; fresh notes still land.
		if input.Notes == "" {
			if err = tx.Commit(ctx); err != nil {
				return models.TestAssignment{}, err
			}
			return assignment, nil
		}
		row = tx.QueryRow(ctx, `
			UPDATE patient_tests
			SET notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END
			WHERE assignment_id = $1
			RETURNING assignment_id, patient_id, test_id, status, room_id, assigned_at, started_at, completed_at, notes
		`, input.AssignmentID, input.Notes)
		if assignment, err = scanAssignment(row); err != nil {
			return models.TestAssignment{}, err
		}
		if err = insertAssignmentEvent(ctx, tx, assignment, store.EventNoteAdded); err != nil {
			return models.TestAssignment{}, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.TestAssignment{}, err
		}
		return assignment, nil

	case models.TestStatusInProgress:
		if assignment.RoomID != nil {
			if err = lockRoom(ctx, tx, *assignment.RoomID); err != nil {
				return models.TestAssignment{}, err
			}
		}
		row = tx.QueryRow(ctx, `
			UPDATE patient_tests
			SET status = 'completed',
				room_id = NULL,
				completed_at = $2,
				notes = CASE WHEN $3 = '' THEN notes
					WHEN notes = '' THEN $3
					ELSE notes || E'\n' || $3 END
			WHERE assignment_id = $1 AND status = 'in_progress'
			RETURNING assignment_id, patient_id, test_id, status, room_id, assigned_at, started_at, completed_at, notes
		`, input.AssignmentID, at, input.Notes)
		if assignment, err = scanAssignment(row); err != nil {
			return models.TestAssignment{}, err
		}
		if err = insertAssignmentEvent(ctx, tx, assignment, store.EventCompleted); err != nil {
			return models.TestAssignment{}, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.TestAssignment{}, err
		}
		return assignment, nil

	default:
		err = store.ErrInvalidTransition
		return models.TestAssignment{}, err
	}
}

func (s *Store) ScheduleAppointment(ctx context.Context, input store.ScheduleInput) (models.Appointment, error) {
	if input.StartAt.IsZero() {
		return models.Appointment{}, fmt.Errorf("%w: scheduled time required", store.ErrValidation)
	}
	at := input.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Appointment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists bool
	row := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE patient_id = $1)`, input.PatientID)
	if err = row.Scan(&exists); err != nil {
		return models.Appointment{}, err
	}
	if !exists {
		err = store.ErrPatientNotFound
		return models.Appointment{}, err
	}
	row = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE room_id = $1)`, input.RoomID)
	if err = row.Scan(&exists); err != nil {
		return models.Appointment{}, err
	}
	if !exists {
		err = store.ErrRoomNotFound
		return models.Appointment{}, err
	}

	if err = lockRoom(ctx, tx, input.RoomID); err != nil {
		return models.Appointment{}, err
	}

	var held bool
	row = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patient_tests WHERE room_id = $1 AND status = 'in_progress'
		) OR EXISTS (
			SELECT 1 FROM appointments WHERE room_id = $1 AND status = 'in_progress'
		)
	`, input.RoomID)
	if err = row.Scan(&held); err != nil {
		return models.Appointment{}, err
	}
	if held {
		err = store.ErrRoomConflict
		return models.Appointment{}, err
	}

	var overlap bool
	row = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE room_id = $1 AND status IN ('scheduled', 'in_progress')
				AND scheduled_at < $2 + make_interval(mins => $3)
				AND scheduled_at + make_interval(mins => $3) > $2
		)
	`, input.RoomID, input.StartAt, s.slotMinutes)
	if err = row.Scan(&overlap); err != nil {
		return models.Appointment{}, err
	}
	if overlap {
		err = store.ErrRoomConflict
		return models.Appointment{}, err
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
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (appointment_id, patient_id, room_id, scheduled_at, estimated_wait_minutes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, appointment.AppointmentID, appointment.PatientID, appointment.RoomID, appointment.ScheduledAt,
		appointment.EstimatedWaitMinutes, appointment.Status, appointment.CreatedAt)
	if err != nil {
		return models.Appointment{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Appointment{}, err
	}
	return appointment, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, input store.AppointmentStatusInput) (models.Appointment, error) {
	switch input.Target {
	case models.AppointmentScheduled, models.AppointmentInProgress, models.AppointmentCompleted, models.AppointmentCancelled:
	default:
		return models.Appointment{}, fmt.Errorf("%w: unknown target status %q", store.ErrValidation, input.Target)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Appointment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var appointment models.Appointment
	row := tx.QueryRow(ctx, `
		SELECT appointment_id, patient_id, room_id, scheduled_at, estimated_wait_minutes, status, created_at
		FROM appointments
		WHERE appointment_id = $1
		FOR UPDATE
	`, input.AppointmentID)
	if err = row.Scan(&appointment.AppointmentID, &appointment.PatientID, &appointment.RoomID, &appointment.ScheduledAt,
		&appointment.EstimatedWaitMinutes, &appointment.Status, &appointment.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrAppointmentNotFound
		}
		return models.Appointment{}, err
	}
	if !store.ValidAppointmentTransition(input.Target, appointment.Status) {
		err = store.ErrInvalidTransition
		return models.Appointment{}, err
	}

	// Entering in_progress occupies the room; serialize with acquisitions.
	if input.Target == models.AppointmentInProgress {
		if err = lockRoom(ctx, tx, appointment.RoomID); err != nil {
			return models.Appointment{}, err
		}
		var held bool
		row = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM patient_tests WHERE room_id = $1 AND status = 'in_progress'
			) OR EXISTS (
				SELECT 1 FROM appointments WHERE room_id = $1 AND status = 'in_progress' AND appointment_id <> $2
			)
		`, appointment.RoomID, appointment.AppointmentID)
		if err = row.Scan(&held); err != nil {
			return models.Appointment{}, err
		}
		if held {
			err = store.ErrRoomConflict
			return models.Appointment{}, err
		}
	}

	_, err = tx.Exec(ctx, `UPDATE appointments SET status = $2 WHERE appointment_id = $1`, input.AppointmentID, input.Target)
	if err != nil {
		return models.Appointment{}, err
	}
	appointment.Status = input.Target

	if err = tx.Commit(ctx); err != nil {
		return models.Appointment{}, err
	}
	return appointment, nil
}

func (s *Store) AccessPortal(ctx context.Context, uniqueID string, dateOfBirth time.Time) (models.PortalSnapshot, error) {
	patient, found, err := s.GetPatientByUniqueID(ctx, uniqueID)
	if err != nil {
		return models.PortalSnapshot{}, err
	}
	if !found || !sameDate(patient.DateOfBirth, dateOfBirth) {
		return models.PortalSnapshot{}, store.ErrAccessDenied
	}

	snapshot := models.PortalSnapshot{
		PatientName: patient.FullName(),
		UniqueID:    patient.UniqueID,
	}

	rows, err := s.pool.Query(ctx, `
		SELECT a.assignment_id, t.name, d.name, a.status, r.room_number, a.assigned_at, a.started_at, a.completed_at, a.notes
		FROM patient_tests a
		JOIN tests t ON t.test_id = a.test_id
		JOIN departments d ON d.department_id = t.department_id
		LEFT JOIN rooms r ON r.room_id = a.room_id
		WHERE a.patient_id = $1
		ORDER BY a.assigned_at ASC, a.assignment_id ASC
	`, patient.PatientID)
	if err != nil {
		return models.PortalSnapshot{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var history models.TestHistory
		var roomNumberNull sql.NullString
		var startedAtNull, completedAtNull sql.NullTime
		if err := rows.Scan(&history.AssignmentID, &history.TestName, &history.Department, &history.Status,
			&roomNumberNull, &history.AssignedAt, &startedAtNull, &completedAtNull, &history.Notes); err != nil {
			return models.PortalSnapshot{}, err
		}
		history.RoomNumber = nullStringPtr(roomNumberNull)
		history.StartedAt = nullTimePtr(startedAtNull)
		history.CompletedAt = nullTimePtr(completedAtNull)
		if history.Status == models.TestStatusCompleted {
			snapshot.CompletedTests = append(snapshot.CompletedTests, history)
		} else {
			snapshot.UpcomingTests = append(snapshot.UpcomingTests, history)
		}
	}
	if err := rows.Err(); err != nil {
		return models.PortalSnapshot{}, err
	}

	var appointment models.Appointment
	row := s.pool.QueryRow(ctx, `
		SELECT appointment_id, patient_id, room_id, scheduled_at, estimated_wait_minutes, status, created_at
		FROM appointments
		WHERE patient_id = $1 AND status = 'scheduled' AND scheduled_at >= now()
		ORDER BY scheduled_at ASC
		LIMIT 1
	`, patient.PatientID)
	if err := row.Scan(&appointment.AppointmentID, &appointment.PatientID, &appointment.RoomID, &appointment.ScheduledAt,
		&appointment.EstimatedWaitMinutes, &appointment.Status, &appointment.CreatedAt); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.PortalSnapshot{}, err
		}
	} else {
		snapshot.NextAppointment = &appointment
	}

	return snapshot, nil
}

func (s *Store) ListAvailableRooms(ctx context.Context, departmentID string) ([]models.Room, error) {
	if departmentID != "" {
		if err := s.ensureDepartmentExists(ctx, departmentID); err != nil {
			return nil, err
		}
	}

	query := `
		SELECT r.room_id, r.department_id, r.room_number
		FROM rooms r
		WHERE NOT EXISTS (
			SELECT 1 FROM patient_tests a
			WHERE a.room_id = r.room_id AND a.status = 'in_progress'
		)
		AND NOT EXISTS (
			SELECT 1 FROM appointments ap
			WHERE ap.room_id = r.room_id AND ap.status = 'in_progress'
		)
	`
	args := []interface{}{}
	if departmentID != "" {
		query += " AND r.department_id = $1"
		args = append(args, departmentID)
	}
	query += " ORDER BY r.room_number ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]models.Room, 0)
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.RoomID, &room.DepartmentID, &room.RoomNumber); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT department_id, name, type, COALESCE(description, '')
		FROM departments
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := make([]models.Department, 0)
	for rows.Next() {
		var department models.Department
		if err := rows.Scan(&department.DepartmentID, &department.Name, &department.Type, &department.Description); err != nil {
			return nil, err
		}
		departments = append(departments, department)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return departments, nil
}

func (s *Store) ListAssignmentEvents(ctx context.Context, assignmentID string) ([]store.AssignmentEvent, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patient_tests WHERE assignment_id = $1)`, assignmentID)
	if err := row.Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrAssignmentNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT assignment_id, seq, type, payload, created_at, prev_hash, hash
		FROM assignment_events
		WHERE assignment_id = $1
		ORDER BY seq ASC
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]store.AssignmentEvent, 0)
	for rows.Next() {
		var event store.AssignmentEvent
		if err := rows.Scan(&event.AssignmentID, &event.Seq, &event.Type, &event.Payload, &event.CreatedAt, &event.PrevHash, &event.Hash); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) ensureDepartmentExists(ctx context.Context, departmentID string) error {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE department_id = $1)`, departmentID)
	if err := row.Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrDepartmentNotFound
	}
	return nil
}

func lockRoom(ctx context.Context, tx pgx.Tx, roomID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, roomID)
	return err
}

func scanAssignment(row pgx.Row) (models.TestAssignment, error) {
	var assignment models.TestAssignment
	var roomIDNull sql.NullString
	var startedAtNull, completedAtNull sql.NullTime
	if err := row.Scan(&assignment.AssignmentID, &assignment.PatientID, &assignment.TestID, &assignment.Status,
		&roomIDNull, &assignment.AssignedAt, &startedAtNull, &completedAtNull, &assignment.Notes); err != nil {
		return models.TestAssignment{}, err
	}
	assignment.RoomID = nullStringPtr(roomIDNull)
	assignment.StartedAt = nullTimePtr(startedAtNull)
	assignment.CompletedAt = nullTimePtr(completedAtNull)
	return assignment, nil
}

func insertAssignmentEvent(ctx context.Context, tx pgx.Tx, assignment models.TestAssignment, eventType string) error {
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
		return err
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, assignment.AssignmentID); err != nil {
		return err
	}

	var lastSeq int
	var prevHash sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT seq, hash
		FROM assignment_events
		WHERE assignment_id = $1
		ORDER BY seq DESC
		LIMIT 1
		FOR UPDATE
	`, assignment.AssignmentID)
	if err := row.Scan(&lastSeq, &prevHash); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	nextSeq := lastSeq + 1
	prev := ""
	if prevHash.Valid {
		prev = prevHash.String
	}
	createdAt := time.Now().UTC()
	hash := store.ComputeEventHash(prev, assignment.AssignmentID, eventType, payload, createdAt, nextSeq)

	_, err = tx.Exec(ctx, `
		INSERT INTO assignment_events (assignment_id, seq, type, payload, created_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, assignment.AssignmentID, nextSeq, eventType, payload, createdAt, prev, hash)
	return err
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func stringOrEmpty(value sql.NullString) string {
	if !value.Valid {
		return ""
	}
	return value.String
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	return &value.Time
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
