// Package events defines registration change events and the publishers that relay them.
package events

import "time"

// ChangeOp is the kind of mutation observed on the registrations table.
type ChangeOp string

const (
	OpInsert  ChangeOp = "insert"
	OpUpdate  ChangeOp = "update"
	OpReplace ChangeOp = "replace"
	OpDelete  ChangeOp = "delete"
)

// Valid reports whether op is one of the known mutation kinds.
func (op ChangeOp) Valid() bool {
	switch op {
	case OpInsert, OpUpdate, OpReplace, OpDelete:
		return true
	}
	return false
}

// ChangeEvent signals that the registrations collection changed.
// It is a marker only: consumers re-read the store for current state.
type ChangeEvent struct {
	Op             ChangeOp  `json:"op"`
	RegistrationID string    `json:"registrationId,omitempty"`
	At             time.Time `json:"at"`
	// Origin names the instance that observed the change in the database.
	Origin string `json:"origin,omitempty"`
}

// MessageTypeUpdate is the only message type pushed to realtime clients.
const MessageTypeUpdate = "update"

// UpdateMessage is the exact body of every realtime notification: {"type":"update"}.
type UpdateMessage struct {
	Type string `json:"type"`
}
