package domain

import "time"

// SenderType indicates who authored a message.
type SenderType string

const (
	SenderTypeCustomer SenderType = "customer"
	SenderTypeAdmin    SenderType = "admin"
)

// ValidSenderType reports whether s is a known sender type.
func ValidSenderType(s SenderType) bool {
	return s == SenderTypeCustomer || s == SenderTypeAdmin
}

// MaxMessageLength bounds message content, matching the widget input limit.
const MaxMessageLength = 5000

// MaxSubjectLength bounds ticket subjects.
const MaxSubjectLength = 500

// Message is one turn in a ticket's conversation thread. Immutable once
// created; appending one refreshes the parent ticket's updated_at.
type Message struct {
	ID         string
	TicketID   string
	SenderID   string
	SenderType SenderType
	Content    string
	CreatedAt  time.Time

	// Attachments is populated by thread queries. Nil elsewhere.
	Attachments []Attachment
}
