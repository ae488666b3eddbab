package dto

import (
	"time"

	"github.com/chatdesk/support-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject       string                `json:"subject"`
	Message       string                `json:"message"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email"`
	Priority      domain.TicketPriority `json:"priority"`
	SessionID     string                `json:"session_id"`
}

// CreateTicketResponse is returned on successful submission.
type CreateTicketResponse struct {
	Success   bool   `json:"success"`
	TicketID  string `json:"ticket_id"`
	SessionID string `json:"session_id"`
}

// AddMessageRequest payload.
type AddMessageRequest struct {
	TicketID   string            `json:"ticket_id"`
	SenderID   string            `json:"sender_id"`
	SenderType domain.SenderType `json:"sender_type"`
	Content    string            `json:"content"`
}

// AddMessageResponse wraps the created message.
type AddMessageResponse struct {
	Success bool            `json:"success"`
	Message MessageResponse `json:"message"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	TicketID string              `json:"ticket_id"`
	Status   domain.TicketStatus `json:"status"`
	AdminID  string              `json:"admin_id"`
}

// UpdateStatusResponse wraps the updated ticket.
type UpdateStatusResponse struct {
	Success bool           `json:"success"`
	Ticket  TicketResponse `json:"ticket"`
}

// TicketResponse is the wire shape of a ticket.
type TicketResponse struct {
	ID         string                `json:"id"`
	CustomerID string                `json:"customer_id"`
	Subject    string                `json:"subject"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	AdminID    *string               `json:"admin_id"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	ResolvedAt *time.Time            `json:"resolved_at"`
	Customer   *CustomerResponse     `json:"customer,omitempty"`
	Messages   []MessageResponse     `json:"messages,omitempty"`
}

// CustomerResponse is the wire shape of a customer.
type CustomerResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

// MessageResponse is the wire shape of a message.
type MessageResponse struct {
	ID          string               `json:"id"`
	TicketID    string               `json:"ticket_id"`
	SenderID    string               `json:"sender_id"`
	SenderType  domain.SenderType    `json:"sender_type"`
	Content     string               `json:"content"`
	CreatedAt   time.Time            `json:"created_at"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
}

// AnalyticsResponse is the admin dashboard summary.
type AnalyticsResponse struct {
	TotalTickets         int64    `json:"total_tickets"`
	PendingTickets       int64    `json:"pending_tickets"`
	ResolvedTickets      int64    `json:"resolved_tickets"`
	ClosedTickets        int64    `json:"closed_tickets"`
	AvgResolutionSeconds *float64 `json:"avg_resolution_seconds"`
}
