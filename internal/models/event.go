package models

import "time"

// EventType names a committed mutation.
type EventType string

const (
	EventComplaintCreated EventType = "complaint.created"
	EventComplaintUpdated EventType = "complaint.updated"
	EventComplaintDeleted EventType = "complaint.deleted"
	EventFeedbackCreated  EventType = "feedback.created"
	EventFeedbackUpdated  EventType = "feedback.updated"
	EventFeedbackDeleted  EventType = "feedback.deleted"
	EventReplyAdded       EventType = "reply.added"
	EventReplyUpdated     EventType = "reply.updated"
	EventReplyDeleted     EventType = "reply.deleted"
)

// Event is broadcast to staff listeners after a successful write.
type Event struct {
	Type        EventType `json:"type"`
	RecordID    string    `json:"recordId"`
	ReferenceID string    `json:"referenceId,omitempty"`
	Status      Status    `json:"status,omitempty"`
	Category    string    `json:"category,omitempty"`
	Rating      *int      `json:"rating,omitempty"`
	At          time.Time `json:"at"`
}
