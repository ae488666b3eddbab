package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chatdesk/support-service/internal/api/dto"
	"github.com/chatdesk/support-service/internal/domain"
	"github.com/chatdesk/support-service/internal/service"
	apperrors "github.com/chatdesk/support-service/pkg/util"
)

// TicketsHandler serves the widget-facing ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/create-ticket.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Subject:       req.Subject,
		Message:       req.Message,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Priority:      req.Priority,
		SessionID:     req.SessionID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.CreateTicketResponse{
		Success:   true,
		TicketID:  result.TicketID,
		SessionID: result.SessionID,
	})
}

// AddMessage POST /api/add-message.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	var req dto.AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.AddMessage(c.UserContext(), service.MessageInput{
		TicketID:   req.TicketID,
		SenderID:   req.SenderID,
		SenderType: req.SenderType,
		Content:    req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.AddMessageResponse{
		Success: true,
		Message: messageResponse(msg),
	})
}

// UpdateStatus POST /api/update-ticket-status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), service.StatusUpdateInput{
		TicketID: req.TicketID,
		Status:   req.Status,
		AdminID:  req.AdminID,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.UpdateStatusResponse{
		Success: true,
		Ticket:  ticketResponse(ticket, nil),
	})
}

// ListCustomerTickets GET /api/tickets?session_id=.
func (h *TicketsHandler) ListCustomerTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListCustomerTickets(c.UserContext(), c.Query("session_id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, msgs, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, msgs)})
}

func parseAdminTicketQuery(c *fiber.Ctx) service.AdminTicketFilter {
	filter := service.AdminTicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket, msgs []domain.Message) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:         ticket.ID,
		CustomerID: ticket.CustomerID,
		Subject:    ticket.Subject,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		AdminID:    ticket.AdminID,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
		ResolvedAt: ticket.ResolvedAt,
	}
	if ticket.Customer != nil {
		resp.Customer = &dto.CustomerResponse{
			ID:    ticket.Customer.ID,
			Name:  ticket.Customer.Name,
			Email: ticket.Customer.Email,
		}
	}
	for i := range msgs {
		resp.Messages = append(resp.Messages, messageResponse(&msgs[i]))
	}
	return resp
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	resp := dto.MessageResponse{
		ID:         msg.ID,
		TicketID:   msg.TicketID,
		SenderID:   msg.SenderID,
		SenderType: msg.SenderType,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
	for _, att := range msg.Attachments {
		resp.Attachments = append(resp.Attachments, attachmentResponse(&att))
	}
	return resp
}

func attachmentResponse(att *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:          att.ID,
		MessageID:   att.MessageID,
		FileName:    att.FileName,
		FileType:    att.FileType,
		FileSize:    att.FileSize,
		StoragePath: att.StoragePath,
		CreatedAt:   att.CreatedAt,
	}
}
