package events

import (
	"time"

	"github.com/chatdesk/support-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketStatusChanged  EventType = "ticket_status_changed"
	EventMessageAdded         EventType = "message_added"
	EventAttachmentRegistered EventType = "attachment_registered"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket     domain.Ticket `json:"ticket"`
	CustomerID string        `json:"customer_id"`
	SessionID  string        `json:"session_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket    domain.Ticket       `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	AdminID   string              `json:"admin_id"`
}

// MessageAddedPayload payload.
type MessageAddedPayload struct {
	Message domain.Message `json:"message"`
}

// AttachmentRegisteredPayload payload.
type AttachmentRegisteredPayload struct {
	Attachment domain.Attachment `json:"attachment"`
	MessageID  string            `json:"message_id"`
}
