package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// AssignmentEvent is one link in the per-assignment audit chain. Each
// event hashes its predecessor, so tampering with history breaks every
// hash after the edit.
type AssignmentEvent struct {
	AssignmentID string          `json:"assignment_id"`
	Seq          int             `json:"seq"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	PrevHash     string          `json:"prev_hash"`
	Hash         string          `json:"hash"`
}

const (
	EventAssigned  = "assigned"
	EventStarted   = "started"
	EventCompleted = "completed"
	EventNoteAdded = "note_added"
)

type EventPayload struct {
	AssignmentID string     `json:"assignment_id"`
	PatientID    string     `json:"patient_id"`
	TestID       string     `json:"test_id"`
	Status       string     `json:"status"`
	RoomID       *string    `json:"room_id"`
	AssignedAt   *time.Time `json:"assigned_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	Notes        string     `json:"notes,omitempty"`
}

func ComputeEventHash(prevHash, assignmentID, eventType string, payload json.RawMessage, createdAt time.Time, seq int) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%d|%s", prevHash, assignmentID, eventType, createdAt.UTC().Format(time.RFC3339Nano), seq, payload)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

// VerifyEventChain checks sequence continuity and hash linkage for a
// single assignment's ordered events.
func VerifyEventChain(events []AssignmentEvent) error {
	prevHash := ""
	for i, event := range events {
		if event.Seq != i+1 {
			return fmt.Errorf("event %d: sequence gap, got seq %d", i, event.Seq)
		}
		if event.PrevHash != prevHash {
			return fmt.Errorf("event seq %d: prev_hash mismatch", event.Seq)
		}
		want := ComputeEventHash(event.PrevHash, event.AssignmentID, event.Type, event.Payload, event.CreatedAt, event.Seq)
		if event.Hash != want {
			return fmt.Errorf("event seq %d: hash mismatch", event.Seq)
		}
		prevHash = event.Hash
	}
	return nil
}
