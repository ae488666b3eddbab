package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chatdesk/support-service/internal/api/dto"
	"github.com/chatdesk/support-service/internal/service"
)

// AdminHandler serves the admin dashboard read endpoints.
type AdminHandler struct {
	service *service.TicketService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(ticketService *service.TicketService) *AdminHandler {
	return &AdminHandler{service: ticketService}
}

// ListTickets GET /api/admin/tickets.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseAdminTicketQuery(c)
	tickets, err := h.service.ListAdminTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Analytics GET /api/admin/analytics.
func (h *AdminHandler) Analytics(c *fiber.Ctx) error {
	summary, err := h.service.Analytics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AnalyticsResponse{
		TotalTickets:         summary.TotalTickets,
		PendingTickets:       summary.PendingTickets,
		ResolvedTickets:      summary.ResolvedTickets,
		ClosedTickets:        summary.ClosedTickets,
		AvgResolutionSeconds: summary.AvgResolutionSeconds,
	}})
}
