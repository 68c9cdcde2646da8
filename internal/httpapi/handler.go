package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"mhcqms/queue-engine/internal/gate"
	"mhcqms/queue-engine/internal/models"
	"mhcqms/queue-engine/internal/observability/metrics"
	"mhcqms/queue-engine/internal/store"
)

const dateLayout = "2006-01-02"

type Handler struct {
	store   store.Store
	metrics *metrics.Metrics
}

type Options struct {
	Metrics *metrics.Metrics
}

func NewHandler(store store.Store, options Options) *Handler {
	return &Handler{store: store, metrics: options.Metrics}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}
	mux.HandleFunc("/api/patients/register", h.handleRegisterPatient)
	mux.HandleFunc("/api/patients/", h.handleGetPatient)
	mux.HandleFunc("/api/queue/status", h.handleQueueStatus)
	mux.HandleFunc("/api/queue/metrics", h.handleQueueMetrics)
	mux.HandleFunc("/api/queue/tests/", h.handleTestSubroutes)
	mux.HandleFunc("/api/appointments", h.handleCreateAppointment)
	mux.HandleFunc("/api/appointments/", h.handleAppointmentStatus)
	mux.HandleFunc("/api/portal/access", h.handlePortalAccess)
	mux.HandleFunc("/api/rooms/available", h.handleAvailableRooms)
	mux.HandleFunc("/api/departments", h.handleDepartments)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type registerPatientRequest struct {
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	DateOfBirth string             `json:"date_of_birth"`
	Gender      string             `json:"gender"`
	Phone       string             `json:"phone"`
	Email       string             `json:"email"`
	Address     string             `json:"address"`
	Factors     models.RiskFactors `json:"risk_factors"`
}

type registerPatientResponse struct {
	Patient       models.Patient          `json:"patient"`
	RiskLevel     string                  `json:"risk_level"`
	RiskScore     int                     `json:"risk_score"`
	AssignedTests []models.TestAssignment `json:"assigned_tests"`
}

func (h *Handler) handleRegisterPatient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerPatientRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	if req.FirstName == "" || req.LastName == "" || req.DateOfBirth == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "first_name, last_name, and date_of_birth are required")
		return
	}
	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date_of_birth must be formatted YYYY-MM-DD")
		return
	}

	result, err := h.store.RegisterPatient(r.Context(), store.RegisterPatientInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  dob,
		Gender:       strings.TrimSpace(req.Gender),
		Phone:        strings.TrimSpace(req.Phone),
		Email:        strings.TrimSpace(req.Email),
		Address:      strings.TrimSpace(req.Address),
		Factors:      req.Factors,
		RegisteredAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if h.metrics != nil {
		h.metrics.RegistrationsTotal.WithLabelValues(string(result.RiskLevel)).Inc()
	}

	writeJSON(w, http.StatusCreated, registerPatientResponse{
		Patient:       result.Patient,
		RiskLevel:     string(result.RiskLevel),
		RiskScore:     result.RiskScore,
		AssignedTests: result.Assignments,
	})
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	patientID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/patients/"), "/")
	if patientID == "" || strings.Contains(patientID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	patient, found, err := h.store.GetPatient(r.Context(), patientID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "patient_not_found", "patient not found")
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (h *Handler) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	departmentID := strings.TrimSpace(r.URL.Query().Get("department_id"))

	entries, err := h.store.QueueStatus(r.Context(), departmentID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleQueueMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	queueMetrics, err := h.store.QueueMetrics(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, queueMetrics)
}

func (h *Handler) handleTestSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/queue/tests/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	assignmentID := parts[0]

	switch parts[1] {
	case "transition":
		h.handleTransitionTest(w, r, assignmentID)
	case "events":
		h.handleAssignmentEvents(w, r, assignmentID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type transitionRequest struct {
	Status string `json:"status"`
	RoomID string `json:"room_id"`
	Notes  string `json:"notes"`
}

func (h *Handler) handleTransitionTest(w http.ResponseWriter, r *http.Request, assignmentID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	assignment, err := h.store.TransitionTest(r.Context(), store.TransitionInput{
		AssignmentID: assignmentID,
		Target:       req.Status,
		RoomID:       strings.TrimSpace(req.RoomID),
		Notes:        req.Notes,
		OccurredAt:   time.Now().UTC(),
	})
	if h.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "rejected"
		}
		h.metrics.TransitionsTotal.WithLabelValues(req.Status, outcome).Inc()
	}
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (h *Handler) handleAssignmentEvents(w http.ResponseWriter, r *http.Request, assignmentID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	events, err := h.store.ListAssignmentEvents(r.Context(), assignmentID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type createAppointmentRequest struct {
	PatientID            string `json:"patient_id"`
	RoomID               string `json:"room_id"`
	ScheduledAt          string `json:"scheduled_at"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
}

func (h *Handler) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createAppointmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.RoomID = strings.TrimSpace(req.RoomID)
	req.ScheduledAt = strings.TrimSpace(req.ScheduledAt)
	if req.PatientID == "" || req.RoomID == "" || req.ScheduledAt == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "patient_id, room_id, and scheduled_at are required")
		return
	}
	startAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "scheduled_at must be an RFC3339 timestamp")
		return
	}
	if req.EstimatedWaitMinutes < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "estimated_wait_minutes must not be negative")
		return
	}

	appointment, err := h.store.ScheduleAppointment(r.Context(), store.ScheduleInput{
		PatientID:            req.PatientID,
		RoomID:               req.RoomID,
		StartAt:              startAt,
		EstimatedWaitMinutes: req.EstimatedWaitMinutes,
		CreatedAt:            time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, appointment)
}

type appointmentStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/appointments/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[1] != "status" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req appointmentStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	appointment, err := h.store.UpdateAppointmentStatus(r.Context(), store.AppointmentStatusInput{
		AppointmentID: parts[0],
		Target:        req.Status,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

type portalAccessRequest struct {
	UniqueID    string `json:"unique_id"`
	DateOfBirth string `json:"date_of_birth"`
}

func (h *Handler) handlePortalAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req portalAccessRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.UniqueID = strings.TrimSpace(req.UniqueID)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	if req.UniqueID == "" || req.DateOfBirth == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "unique_id and date_of_birth are required")
		return
	}
	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date_of_birth must be formatted YYYY-MM-DD")
		return
	}

	patient, found, err := h.store.GetPatientByUniqueID(r.Context(), req.UniqueID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if !gate.Verify(patient, found, req.UniqueID, dob) {
		if h.metrics != nil {
			h.metrics.PortalDenialsTotal.Inc()
		}
		writeError(w, http.StatusForbidden, "access_denied", "access denied")
		return
	}

	snapshot, err := h.store.AccessPortal(r.Context(), req.UniqueID, dob)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleAvailableRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	departmentID := strings.TrimSpace(r.URL.Query().Get("department_id"))

	rooms, err := h.store.ListAvailableRooms(r.Context(), departmentID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *Handler) handleDepartments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	departments, err := h.store.ListDepartments(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, departments)
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, "validation_failed", err.Error()
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "current status does not allow this transition"
	case errors.Is(err, store.ErrRoomUnavailable):
		return http.StatusConflict, "room_unavailable", "room is occupied"
	case errors.Is(err, store.ErrRoomConflict):
		return http.StatusConflict, "room_conflict", "room is booked for this time slot"
	case errors.Is(err, store.ErrAccessDenied):
		return http.StatusForbidden, "access_denied", "access denied"
	case errors.Is(err, store.ErrPatientNotFound):
		return http.StatusNotFound, "patient_not_found", "patient not found"
	case errors.Is(err, store.ErrRoomNotFound):
		return http.StatusNotFound, "room_not_found", "room not found"
	case errors.Is(err, store.ErrAssignmentNotFound):
		return http.StatusNotFound, "assignment_not_found", "test assignment not found"
	case errors.Is(err, store.ErrAppointmentNotFound):
		return http.StatusNotFound, "appointment_not_found", "appointment not found"
	case errors.Is(err, store.ErrDepartmentNotFound):
		return http.StatusNotFound, "department_not_found", "department not found"
	case errors.Is(err, store.ErrTestNotFound):
		return http.StatusNotFound, "test_not_found", "test type not found"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
