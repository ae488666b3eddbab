package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Ticket is the aggregate for customer support requests. Status moves freely
// between states; the only lifecycle guard is that closed tickets reject new
// messages.
type Ticket struct {
	ID         string
	CustomerID string
	Subject    string
	Status     TicketStatus
	Priority   TicketPriority
	AdminID    *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time

	// Customer is populated by queries that join the owning customer
	// (admin listing, ticket detail). Nil elsewhere.
	Customer *Customer
}
