// Package audit implements the append-only, tamper-evident event log the
// orchestrator and the bootstrap installer write to. The hash computation
// is a small, pure function kept independent of any live sink so the chain
// can be verified without a database connection.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the event types the credential-lifecycle core emits.
type EventType string

const (
	EventSetupCompleted  EventType = "setup.completed"
	EventSessionCreated  EventType = "session.created"
	EventSessionRevoked  EventType = "session.revoked"
	EventSessionsCleaned EventType = "sessions.cleaned"
)

// Event is one append-only row in the tamper-evident audit log. PrevHash is
// empty for the first row in a chain. EventID is the row's own identity,
// independent of the hash chain and of the table's bigserial primary key,
// so a caller holding only the event (not yet persisted) has a stable
// handle to reference it by.
type Event struct {
	EventID       string         `json:"event_id"`
	EventType     EventType      `json:"event_type"`
	SessionID     string         `json:"session_id,omitempty"`
	Username      string         `json:"username,omitempty"`
	CorrelationID string         `json:"correlation_id"`
	EventData     map[string]any `json:"event_data"`
	CreatedAt     time.Time      `json:"created_at"`
	PrevHash      string         `json:"prev_hash,omitempty"`
	EventHash     string         `json:"event_hash"`
}

// NewEventID generates the random identifier assigned to an Event before
// it is persisted.
func NewEventID() string {
	return uuid.NewString()
}

// hashPayload is the stable, order-independent subset of an event that
// feeds the content hash: {event_type, event_data} plus the chain link.
// CorrelationID, SessionID, Username, and CreatedAt are deliberately
// excluded so the hash verifies the event's effect, not its envelope.
type hashPayload struct {
	EventType EventType      `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	PrevHash  string         `json:"prev_hash"`
}

// ComputeEventHash computes the content hash for an event given its
// predecessor's hash (empty for the first row in the chain). Callers set
// the result on Event.EventHash before the row is persisted. Kept as a pure
// function so the chain can be verified offline, independent of a live
// database connection.
func ComputeEventHash(eventType EventType, eventData map[string]any, prevHash string) (string, error) {
	payload := hashPayload{EventType: eventType, EventData: eventData, PrevHash: prevHash}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChain reports whether each event's EventHash matches
// ComputeEventHash of its own {event_type, event_data, prev_hash} and that
// PrevHash correctly links to the previous row's EventHash. events must be
// in insertion order.
func VerifyChain(events []Event) (bool, error) {
	prev := ""
	for _, e := range events {
		if e.PrevHash != prev {
			return false, nil
		}
		want, err := ComputeEventHash(e.EventType, e.EventData, e.PrevHash)
		if err != nil {
			return false, err
		}
		if want != e.EventHash {
			return false, nil
		}
		prev = e.EventHash
	}
	return true, nil
}
