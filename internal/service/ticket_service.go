package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chatdesk/support-service/internal/domain"
	"github.com/chatdesk/support-service/internal/events"
	"github.com/chatdesk/support-service/internal/repository"
	apperrors "github.com/chatdesk/support-service/pkg/util"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// TicketService coordinates the ticket, message and status workflows.
type TicketService struct {
	customers   repository.CustomerRepository
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	dispatcher  events.Dispatcher
	now         func() time.Time
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	CustomerRepo   repository.CustomerRepository
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	Dispatcher     events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		customers:   deps.CustomerRepo,
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		dispatcher:  deps.Dispatcher,
		now:         time.Now,
	}
}

// TicketCreateInput describes a widget ticket submission.
type TicketCreateInput struct {
	Subject       string
	Message       string
	CustomerName  string
	CustomerEmail string
	Priority      domain.TicketPriority
	SessionID     string
}

// TicketCreateResult is what the widget needs back: the new ticket id and the
// session token to persist client-side.
type TicketCreateResult struct {
	TicketID  string
	SessionID string
}

// CreateTicket validates a submission, resolves the customer behind the
// session token (creating or patching the record), then inserts the ticket
// and its first message. The three inserts are independent calls with no
// rollback: a failed message insert leaves the ticket without messages.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*TicketCreateResult, error) {
	if err := validateTicketInput(input); err != nil {
		return nil, err
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	customer, err := s.resolveCustomer(ctx, sessionID, input.CustomerName, input.CustomerEmail)
	if err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	ticket := &domain.Ticket{
		CustomerID: customer.ID,
		Subject:    input.Subject,
		Status:     domain.TicketStatusPending,
		Priority:   priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		TicketID:   ticket.ID,
		SenderID:   customer.ID,
		SenderType: domain.SenderTypeCustomer,
		Content:    input.Message,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Ticket:     *ticket,
			CustomerID: customer.ID,
			SessionID:  sessionID,
		},
	})
	return &TicketCreateResult{TicketID: ticket.ID, SessionID: sessionID}, nil
}

// resolveCustomer looks up the customer behind a session token, patching
// name/email when supplied, or inserts a fresh record. Concurrent first
// submissions with the same token can race past the lookup and both insert;
// the unique constraint makes one of them fail, which surfaces as a backend
// error to that caller.
func (s *TicketService) resolveCustomer(ctx context.Context, sessionID, name, email string) (*domain.Customer, error) {
	existing, err := s.customers.GetBySessionID(ctx, sessionID)
	if err == nil {
		if name != "" || email != "" {
			if name != "" {
				existing.Name = name
			}
			if email != "" {
				existing.Email = &email
			}
			if err := s.customers.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	if !isNoRows(err) {
		return nil, err
	}

	customer := &domain.Customer{
		Name:      domain.DefaultCustomerName,
		SessionID: sessionID,
	}
	if name != "" {
		customer.Name = name
	}
	if email != "" {
		customer.Email = &email
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// MessageInput describes one message append.
type MessageInput struct {
	TicketID   string
	SenderID   string
	SenderType domain.SenderType
	Content    string
}

// AddMessage appends a message to a ticket. The ticket must exist and not be
// closed; the ticket's updated_at is refreshed after the insert.
func (s *TicketService) AddMessage(ctx context.Context, input MessageInput) (*domain.Message, error) {
	if err := validateMessageInput(input); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		return nil, apperrors.NotFoundForRows(err, "ticket")
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewBusinessRuleError("Cannot add messages to closed tickets")
	}

	msg := &domain.Message{
		TicketID:   ticket.ID,
		SenderID:   input.SenderID,
		SenderType: input.SenderType,
		Content:    input.Content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.tickets.Touch(ctx, ticket.ID); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageAdded,
		TicketID: ticket.ID,
		Payload:  events.MessageAddedPayload{Message: *msg},
	})
	return msg, nil
}

// StatusUpdateInput describes an admin status change.
type StatusUpdateInput struct {
	TicketID string
	Status   domain.TicketStatus
	AdminID  string
}

// UpdateStatus applies a status transition. Any target state is reachable
// from any current state; resolved_at is stamped (overwriting any prior
// value) when moving to resolved or closed and left untouched for pending.
func (s *TicketService) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*domain.Ticket, error) {
	if input.TicketID == "" {
		return nil, apperrors.NewValidationError("Ticket ID is required", nil)
	}
	if !domain.ValidStatus(input.Status) {
		return nil, apperrors.NewValidationError("Invalid status", nil)
	}
	if input.AdminID == "" {
		return nil, apperrors.NewValidationError("Admin ID is required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		return nil, apperrors.NotFoundForRows(err, "ticket")
	}

	oldStatus := ticket.Status
	ticket.Status = input.Status
	adminID := input.AdminID
	ticket.AdminID = &adminID
	if input.Status == domain.TicketStatusResolved || input.Status == domain.TicketStatusClosed {
		now := s.now()
		ticket.ResolvedAt = &now
	}
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return nil, apperrors.NotFoundForRows(err, "ticket")
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			Ticket:    *ticket,
			OldStatus: oldStatus,
			AdminID:   input.AdminID,
		},
	})
	return ticket, nil
}

// ListCustomerTickets returns the ticket threads belonging to the customer
// behind a session token, newest first, with messages and attachments.
func (s *TicketService) ListCustomerTickets(ctx context.Context, sessionID string) ([]domain.Ticket, error) {
	if sessionID == "" {
		return nil, apperrors.NewValidationError("Session ID is required", nil)
	}
	customer, err := s.customers.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NotFoundForRows(err, "customer")
	}
	tickets, err := s.tickets.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicket fetches one ticket with its owning customer and full thread.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.tickets.GetByIDWithCustomer(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.NotFoundForRows(err, "ticket")
	}
	msgs, err := s.threadWithAttachments(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// AdminTicketFilter describes admin listing filters.
type AdminTicketFilter struct {
	Statuses    []domain.TicketStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SearchTerm  *string
	Limit       int
	Offset      int
}

// ListAdminTickets returns a filtered, paginated ticket listing with the
// owning customers joined in.
func (s *TicketService) ListAdminTickets(ctx context.Context, filter AdminTicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:    filter.Statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		SearchTerm:  filter.SearchTerm,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// Analytics returns the dashboard summary.
func (s *TicketService) Analytics(ctx context.Context) (*domain.AnalyticsSummary, error) {
	return s.tickets.AnalyticsSummary(ctx)
}

func (s *TicketService) threadWithAttachments(ctx context.Context, ticketID string) ([]domain.Message, error) {
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		attachments, err := s.attachments.ListByMessage(ctx, msgs[i].ID)
		if err != nil {
			return nil, err
		}
		msgs[i].Attachments = attachments
	}
	return msgs, nil
}

func validateTicketInput(input TicketCreateInput) error {
	if strings.TrimSpace(input.Subject) == "" {
		return apperrors.NewValidationError("Subject is required", nil)
	}
	if utf8.RuneCountInString(input.Subject) > domain.MaxSubjectLength {
		return apperrors.NewValidationError("Subject must be less than 500 characters", nil)
	}
	if strings.TrimSpace(input.Message) == "" {
		return apperrors.NewValidationError("Message is required", nil)
	}
	if utf8.RuneCountInString(input.Message) > domain.MaxMessageLength {
		return apperrors.NewValidationError("Message must be less than 5000 characters", nil)
	}
	if input.CustomerEmail != "" && !emailPattern.MatchString(input.CustomerEmail) {
		return apperrors.NewValidationError("Invalid email format", nil)
	}
	if input.Priority != "" && !domain.ValidPriority(input.Priority) {
		return apperrors.NewValidationError("Invalid priority level", nil)
	}
	return nil
}

func validateMessageInput(input MessageInput) error {
	if input.TicketID == "" {
		return apperrors.NewValidationError("Ticket ID is required", nil)
	}
	if input.SenderID == "" {
		return apperrors.NewValidationError("Sender ID is required", nil)
	}
	if !domain.ValidSenderType(input.SenderType) {
		return apperrors.NewValidationError("Invalid sender type", nil)
	}
	if strings.TrimSpace(input.Content) == "" {
		return apperrors.NewValidationError("Message content is required", nil)
	}
	if utf8.RuneCountInString(input.Content) > domain.MaxMessageLength {
		return apperrors.NewValidationError("Message must be less than 5000 characters", nil)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
