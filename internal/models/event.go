package models

import (
	"encoding/json"
	"time"
)

// EventType categorizes events in the system.
type EventType string

const (
	// Miv events
	EventTypeMivReceived  EventType = "miv.received"
	EventTypeMivReplied   EventType = "miv.replied"
	EventTypeMivAcked     EventType = "miv.acked"
	EventTypeMivRead      EventType = "miv.read"
	EventTypeMivForgotten EventType = "miv.forgotten"

	// Conversation events
	EventTypeConversationArchived EventType = "conversation.archived"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	// EntityTypeDesk is used for notifications; EntityID is the desk the
	// notification is addressed to.
	EntityTypeDesk         EntityType = "desk"
	EntityTypeConversation EntityType = "conversation"
	EntityTypeMiv          EntityType = "miv"
)

// Event represents an append-only log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`

	// ReadAt is set once the addressed desk has seen a notification.
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// NotificationKind mirrors the notification categories shown to a desk.
type NotificationKind string

const (
	NotificationNewMiv      NotificationKind = "NEW_MIV"
	NotificationReply       NotificationKind = "REPLY"
	NotificationAck         NotificationKind = "ACK"
	NotificationReadReceipt NotificationKind = "READ_RECEIPT"
	NotificationForgotten   NotificationKind = "FORGOTTEN"
	NotificationArchived    NotificationKind = "ARCHIVED"
)

// NotificationPayload is the payload for desk-addressed events.
type NotificationPayload struct {
	Kind           NotificationKind `json:"kind"`
	DeskID         string           `json:"desk_id"`
	ConversationID string           `json:"conversation_id"`
	MivID          string           `json:"miv_id,omitempty"`
	From           string           `json:"from,omitempty"`
	Subject        string           `json:"subject,omitempty"`
	Message        string           `json:"message"`
}

// NewNotificationEvent builds a desk-addressed event carrying payload.
func NewNotificationEvent(eventType EventType, payload NotificationPayload, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	metadata := map[string]string{"conversation_id": payload.ConversationID}
	if payload.MivID != "" {
		metadata["miv_id"] = payload.MivID
	}
	return &Event{
		Timestamp:  at,
		Type:       eventType,
		EntityType: EntityTypeDesk,
		EntityID:   payload.DeskID,
		Payload:    data,
		Metadata:   metadata,
	}, nil
}

// Notification decodes the payload of a desk-addressed event.
func (e *Event) Notification() (*NotificationPayload, error) {
	var payload NotificationPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
