package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chatdesk/support-service/internal/domain"
	"github.com/chatdesk/support-service/internal/events"
	"github.com/chatdesk/support-service/internal/repository"
	apperrors "github.com/chatdesk/support-service/pkg/util"
)

// In-memory repository fakes. IDs are assigned sequentially so tests can
// assert on relationships without a database.

type memCustomerRepo struct {
	customers []*domain.Customer
	nextID    int
}

func (r *memCustomerRepo) Create(_ context.Context, customer *domain.Customer) error {
	for _, existing := range r.customers {
		if existing.SessionID == customer.SessionID {
			return errors.New("duplicate session_id")
		}
	}
	r.nextID++
	customer.ID = "customer-" + itoa(r.nextID)
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = customer.CreatedAt
	stored := *customer
	r.customers = append(r.customers, &stored)
	return nil
}

func (r *memCustomerRepo) Update(_ context.Context, customer *domain.Customer) error {
	for _, existing := range r.customers {
		if existing.ID == customer.ID {
			existing.Name = customer.Name
			existing.Email = customer.Email
			existing.UpdatedAt = time.Now()
			customer.UpdatedAt = existing.UpdatedAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	for _, existing := range r.customers {
		if existing.ID == id {
			clone := *existing
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memCustomerRepo) GetBySessionID(_ context.Context, sessionID string) (*domain.Customer, error) {
	for _, existing := range r.customers {
		if existing.SessionID == sessionID {
			clone := *existing
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memTicketRepo struct {
	tickets []*domain.Ticket
	nextID  int
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.nextID++
	ticket.ID = "ticket-" + itoa(r.nextID)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.tickets = append(r.tickets, &stored)
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	for _, existing := range r.tickets {
		if existing.ID == id {
			clone := *existing
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) GetByIDWithCustomer(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTicketRepo) ListByCustomer(_ context.Context, customerID string) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, existing := range r.tickets {
		if existing.CustomerID == customerID {
			result = append(result, *existing)
		}
	}
	return result, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, existing := range r.tickets {
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if existing.Status == status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, *existing)
	}
	return result, nil
}

func (r *memTicketRepo) Touch(_ context.Context, id string) error {
	for _, existing := range r.tickets {
		if existing.ID == id {
			existing.UpdatedAt = time.Now()
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memTicketRepo) UpdateStatus(_ context.Context, ticket *domain.Ticket) error {
	for _, existing := range r.tickets {
		if existing.ID == ticket.ID {
			existing.Status = ticket.Status
			existing.AdminID = ticket.AdminID
			existing.ResolvedAt = ticket.ResolvedAt
			existing.UpdatedAt = time.Now()
			ticket.UpdatedAt = existing.UpdatedAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memTicketRepo) AnalyticsSummary(_ context.Context) (*domain.AnalyticsSummary, error) {
	summary := &domain.AnalyticsSummary{}
	for _, existing := range r.tickets {
		summary.TotalTickets++
		switch existing.Status {
		case domain.TicketStatusPending:
			summary.PendingTickets++
		case domain.TicketStatusResolved:
			summary.ResolvedTickets++
		case domain.TicketStatusClosed:
			summary.ClosedTickets++
		}
	}
	return summary, nil
}

type memMessageRepo struct {
	messages []*domain.Message
	nextID   int
}

func (r *memMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.nextID++
	msg.ID = "message-" + itoa(r.nextID)
	msg.CreatedAt = time.Now()
	stored := *msg
	r.messages = append(r.messages, &stored)
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	for _, existing := range r.messages {
		if existing.ID == id {
			clone := *existing
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	var result []domain.Message
	for _, existing := range r.messages {
		if existing.TicketID == ticketID {
			result = append(result, *existing)
		}
	}
	return result, nil
}

type memAttachmentRepo struct {
	attachments []*domain.Attachment
	nextID      int
}

func (r *memAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.nextID++
	attachment.ID = "attachment-" + itoa(r.nextID)
	attachment.CreatedAt = time.Now()
	stored := *attachment
	r.attachments = append(r.attachments, &stored)
	return nil
}

func (r *memAttachmentRepo) ListByMessage(_ context.Context, messageID string) ([]domain.Attachment, error) {
	var result []domain.Attachment
	for _, existing := range r.attachments {
		if existing.MessageID == messageID {
			result = append(result, *existing)
		}
	}
	return result, nil
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{digits[n%10]}, out...)
		n /= 10
	}
	return string(out)
}

type fixture struct {
	customers   *memCustomerRepo
	tickets     *memTicketRepo
	messages    *memMessageRepo
	attachments *memAttachmentRepo
	service     *TicketService
}

func newFixture() *fixture {
	f := &fixture{
		customers:   &memCustomerRepo{},
		tickets:     &memTicketRepo{},
		messages:    &memMessageRepo{},
		attachments: &memAttachmentRepo{},
	}
	f.service = NewTicketService(TicketDependencies{
		CustomerRepo:   f.customers,
		TicketRepo:     f.tickets,
		MessageRepo:    f.messages,
		AttachmentRepo: f.attachments,
		Dispatcher:     events.NewInMemoryDispatcher(),
	})
	return f
}

func wantValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s (%v)", domainErr.Code, err)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	tests := []struct {
		name  string
		input TicketCreateInput
	}{
		{"empty subject", TicketCreateInput{Subject: "", Message: "help"}},
		{"whitespace subject", TicketCreateInput{Subject: "   ", Message: "help"}},
		{"overlong subject", TicketCreateInput{Subject: strings.Repeat("s", 501), Message: "help"}},
		{"empty message", TicketCreateInput{Subject: "Login issue", Message: ""}},
		{"whitespace message", TicketCreateInput{Subject: "Login issue", Message: " \t "}},
		{"overlong message", TicketCreateInput{Subject: "Login issue", Message: strings.Repeat("m", 5001)}},
		{"bad email", TicketCreateInput{Subject: "Login issue", Message: "help", CustomerEmail: "not-an-email"}},
		{"email without domain dot", TicketCreateInput{Subject: "Login issue", Message: "help", CustomerEmail: "a@b"}},
		{"unknown priority", TicketCreateInput{Subject: "Login issue", Message: "help", Priority: "urgent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.service.CreateTicket(context.Background(), tt.input)
			wantValidationError(t, err)
			if len(f.tickets.tickets) != 0 {
				t.Fatalf("expected no ticket created, got %d", len(f.tickets.tickets))
			}
			if len(f.customers.customers) != 0 {
				t.Fatalf("expected no customer created, got %d", len(f.customers.customers))
			}
		})
	}
}

func TestCreateTicketBoundaryLengthsAccepted(t *testing.T) {
	f := newFixture()
	result, err := f.service.CreateTicket(context.Background(), TicketCreateInput{
		Subject: strings.Repeat("s", 500),
		Message: strings.Repeat("m", 5000),
	})
	if err != nil {
		t.Fatalf("boundary-length input rejected: %v", err)
	}
	if result.TicketID == "" {
		t.Fatal("expected ticket id")
	}
}

func TestCreateTicketMultibyteLengthCountsCharacters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// 500 two-byte characters: within the character limit even though the
	// byte count is double.
	result, err := f.service.CreateTicket(ctx, TicketCreateInput{
		Subject: strings.Repeat("é", 500),
		Message: strings.Repeat("问", 5000),
	})
	if err != nil {
		t.Fatalf("multibyte input within the character limit rejected: %v", err)
	}

	if _, err := f.service.AddMessage(ctx, MessageInput{
		TicketID:   result.TicketID,
		SenderID:   "admin1",
		SenderType: domain.SenderTypeAdmin,
		Content:    strings.Repeat("é", 5000),
	}); err != nil {
		t.Fatalf("multibyte message content within the character limit rejected: %v", err)
	}

	// One character over still fails regardless of encoding width.
	_, err = f.service.CreateTicket(ctx, TicketCreateInput{
		Subject: strings.Repeat("é", 501),
		Message: "help",
	})
	wantValidationError(t, err)
}

func TestCreateTicketNewAnonymousCustomer(t *testing.T) {
	f := newFixture()
	result, err := f.service.CreateTicket(context.Background(), TicketCreateInput{
		Subject: "Login issue",
		Message: "Cannot log in",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if result.SessionID == "" {
		t.Fatal("expected generated session id")
	}
	if len(f.customers.customers) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(f.customers.customers))
	}
	customer := f.customers.customers[0]
	if customer.Name != domain.DefaultCustomerName {
		t.Fatalf("expected anonymous default name, got %q", customer.Name)
	}
	if customer.Email != nil {
		t.Fatalf("expected nil email, got %v", *customer.Email)
	}

	ticket := f.tickets.tickets[0]
	if ticket.Status != domain.TicketStatusPending {
		t.Fatalf("expected pending, got %s", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("expected default medium priority, got %s", ticket.Priority)
	}

	if len(f.messages.messages) != 1 {
		t.Fatalf("expected 1 initial message, got %d", len(f.messages.messages))
	}
	msg := f.messages.messages[0]
	if msg.TicketID != ticket.ID || msg.SenderID != customer.ID || msg.SenderType != domain.SenderTypeCustomer {
		t.Fatalf("initial message mislinked: %+v", msg)
	}
}

func TestCreateTicketReusesCustomerBySessionToken(t *testing.T) {
	f := newFixture()
	first, err := f.service.CreateTicket(context.Background(), TicketCreateInput{
		Subject:   "Login issue",
		Message:   "Cannot log in",
		SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("first CreateTicket: %v", err)
	}
	if first.SessionID != "s1" {
		t.Fatalf("expected supplied session id back, got %s", first.SessionID)
	}

	_, err = f.service.CreateTicket(context.Background(), TicketCreateInput{
		Subject:       "Another problem",
		Message:       "Still broken",
		SessionID:     "s1",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("second CreateTicket: %v", err)
	}

	if len(f.customers.customers) != 1 {
		t.Fatalf("expected session token to reuse the customer, got %d customers", len(f.customers.customers))
	}
	customer := f.customers.customers[0]
	if customer.Name != "Ada" {
		t.Fatalf("expected name patched to Ada, got %q", customer.Name)
	}
	if customer.Email == nil || *customer.Email != "ada@example.com" {
		t.Fatal("expected email patched")
	}
	if len(f.tickets.tickets) != 2 {
		t.Fatalf("expected 2 tickets for the same customer, got %d", len(f.tickets.tickets))
	}
	if f.tickets.tickets[0].CustomerID != f.tickets.tickets[1].CustomerID {
		t.Fatal("tickets should share one customer")
	}
}

func TestAddMessageValidation(t *testing.T) {
	tests := []struct {
		name  string
		input MessageInput
	}{
		{"missing ticket id", MessageInput{SenderID: "x", SenderType: domain.SenderTypeCustomer, Content: "hi"}},
		{"missing sender id", MessageInput{TicketID: "t", SenderType: domain.SenderTypeCustomer, Content: "hi"}},
		{"bad sender type", MessageInput{TicketID: "t", SenderID: "x", SenderType: "robot", Content: "hi"}},
		{"empty content", MessageInput{TicketID: "t", SenderID: "x", SenderType: domain.SenderTypeAdmin, Content: "  "}},
		{"overlong content", MessageInput{TicketID: "t", SenderID: "x", SenderType: domain.SenderTypeAdmin, Content: strings.Repeat("c", 5001)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.service.AddMessage(context.Background(), tt.input)
			wantValidationError(t, err)
			if len(f.messages.messages) != 0 {
				t.Fatal("expected no message appended")
			}
		})
	}
}

func TestAddMessageTicketNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.service.AddMessage(context.Background(), MessageInput{
		TicketID:   "missing",
		SenderID:   "admin1",
		SenderType: domain.SenderTypeAdmin,
		Content:    "hello",
	})
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestAddMessageClosedTicketRejected(t *testing.T) {
	f := newFixture()
	result, err := f.service.CreateTicket(context.Background(), TicketCreateInput{
		Subject: "Login issue", Message: "Cannot log in",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := f.service.UpdateStatus(context.Background(), StatusUpdateInput{
		TicketID: result.TicketID, Status: domain.TicketStatusClosed, AdminID: "admin1",
	}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	before := len(f.messages.messages)
	_, err = f.service.AddMessage(context.Background(), MessageInput{
		TicketID:   result.TicketID,
		SenderID:   "admin1",
		SenderType: domain.SenderTypeAdmin,
		Content:    "too late",
	})
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != "BUSINESS_RULE_VIOLATION" {
		t.Fatalf("expected business-rule rejection, got %v", err)
	}
	if len(f.messages.messages) != before {
		t.Fatal("message table changed despite rejection")
	}
}

func TestUpdateStatusResolvedAtStamping(t *testing.T) {
	tests := []struct {
		name         string
		target       domain.TicketStatus
		wantResolved bool
	}{
		{"resolved stamps resolved_at", domain.TicketStatusResolved, true},
		{"closed stamps resolved_at", domain.TicketStatusClosed, true},
		{"pending leaves resolved_at unset", domain.TicketStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			result, err := f.service.CreateTicket(context.Background(), TicketCreateInput{
				Subject: "Login issue", Message: "Cannot log in",
			})
			if err != nil {
				t.Fatalf("CreateTicket: %v", err)
			}
			ticket, err := f.service.UpdateStatus(context.Background(), StatusUpdateInput{
				TicketID: result.TicketID, Status: tt.target, AdminID: "admin1",
			})
			if err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			if ticket.Status != tt.target {
				t.Fatalf("expected status %s, got %s", tt.target, ticket.Status)
			}
			if (ticket.ResolvedAt != nil) != tt.wantResolved {
				t.Fatalf("resolved_at presence = %v, want %v", ticket.ResolvedAt != nil, tt.wantResolved)
			}
			if ticket.AdminID == nil || *ticket.AdminID != "admin1" {
				t.Fatal("expected acting admin recorded")
			}
		})
	}
}

func TestUpdateStatusBackwardTransitionsPermitted(t *testing.T) {
	f := newFixture()
	result, err := f.service.CreateTicket(context.Background(), TicketCreateInput{
		Subject: "Login issue", Message: "Cannot log in",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	for _, target := range []domain.TicketStatus{
		domain.TicketStatusClosed,
		domain.TicketStatusPending,
		domain.TicketStatusResolved,
	} {
		if _, err := f.service.UpdateStatus(context.Background(), StatusUpdateInput{
			TicketID: result.TicketID, Status: target, AdminID: "admin1",
		}); err != nil {
			t.Fatalf("transition to %s rejected: %v", target, err)
		}
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name  string
		input StatusUpdateInput
	}{
		{"missing ticket id", StatusUpdateInput{Status: domain.TicketStatusResolved, AdminID: "a"}},
		{"unknown status", StatusUpdateInput{TicketID: "t", Status: "reopened", AdminID: "a"}},
		{"missing admin id", StatusUpdateInput{TicketID: "t", Status: domain.TicketStatusResolved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.UpdateStatus(context.Background(), tt.input)
			wantValidationError(t, err)
		})
	}
}

func TestTicketLifecycleEndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.service.CreateTicket(ctx, TicketCreateInput{
		Subject:   "Login issue",
		Message:   "Cannot log in",
		SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	ticket, msgs, err := f.service.GetTicket(ctx, result.TicketID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if ticket.Status != domain.TicketStatusPending {
		t.Fatalf("expected pending, got %s", ticket.Status)
	}
	if len(msgs) != 1 || msgs[0].SenderType != domain.SenderTypeCustomer {
		t.Fatalf("expected one customer message, got %+v", msgs)
	}

	if _, err := f.service.AddMessage(ctx, MessageInput{
		TicketID:   result.TicketID,
		SenderID:   "admin1",
		SenderType: domain.SenderTypeAdmin,
		Content:    "Looking into it",
	}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	_, msgs, err = f.service.GetTicket(ctx, result.TicketID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	updated, err := f.service.UpdateStatus(ctx, StatusUpdateInput{
		TicketID: result.TicketID,
		Status:   domain.TicketStatusResolved,
		AdminID:  "admin1",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != domain.TicketStatusResolved || updated.ResolvedAt == nil {
		t.Fatalf("expected resolved with timestamp, got %+v", updated)
	}

	// Resolved tickets still accept messages; only closed blocks them.
	if _, err := f.service.AddMessage(ctx, MessageInput{
		TicketID:   result.TicketID,
		SenderID:   "admin1",
		SenderType: domain.SenderTypeAdmin,
		Content:    "Following up",
	}); err != nil {
		t.Fatalf("message on resolved ticket rejected: %v", err)
	}
}

func TestListCustomerTickets(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := f.service.CreateTicket(ctx, TicketCreateInput{
			Subject: "Issue", Message: "body", SessionID: "s1",
		}); err != nil {
			t.Fatalf("CreateTicket: %v", err)
		}
	}
	if _, err := f.service.CreateTicket(ctx, TicketCreateInput{
		Subject: "Other", Message: "body", SessionID: "s2",
	}); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	tickets, err := f.service.ListCustomerTickets(ctx, "s1")
	if err != nil {
		t.Fatalf("ListCustomerTickets: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets for s1, got %d", len(tickets))
	}

	_, err = f.service.ListCustomerTickets(ctx, "unknown-session")
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND for unknown session, got %v", err)
	}
}

func TestRealtimeEventsPublishedOnWorkflow(t *testing.T) {
	f := newFixture()
	dispatcher := events.NewInMemoryDispatcher()
	f.service.dispatcher = dispatcher

	var seen []events.EventType
	record := func(_ context.Context, event events.Event) error {
		seen = append(seen, event.Type)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketCreated, record)
	dispatcher.Subscribe(events.EventMessageAdded, record)
	dispatcher.Subscribe(events.EventTicketStatusChanged, record)

	ctx := context.Background()
	result, err := f.service.CreateTicket(ctx, TicketCreateInput{Subject: "s", Message: "m"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := f.service.AddMessage(ctx, MessageInput{
		TicketID: result.TicketID, SenderID: "admin1", SenderType: domain.SenderTypeAdmin, Content: "hi",
	}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, StatusUpdateInput{
		TicketID: result.TicketID, Status: domain.TicketStatusResolved, AdminID: "admin1",
	}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	want := []events.EventType{events.EventTicketCreated, events.EventMessageAdded, events.EventTicketStatusChanged}
	if len(seen) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, seen[i], want[i])
		}
	}
}
