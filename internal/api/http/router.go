package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chatdesk/support-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Tickets     *handlers.TicketsHandler
	Attachments *handlers.AttachmentsHandler
	Admin       *handlers.AdminHandler
	Realtime    *handlers.RealtimeHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/create-ticket", cfg.Tickets.CreateTicket)
	api.Post("/add-message", cfg.Tickets.AddMessage)
	api.Post("/update-ticket-status", cfg.Tickets.UpdateStatus)
	api.Post("/get-signed-url", cfg.Attachments.GetSignedURL)
	api.Post("/attachments", cfg.Attachments.RegisterAttachment)

	api.Get("/tickets", cfg.Tickets.ListCustomerTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Get("/admin/tickets", cfg.Admin.ListTickets)
	api.Get("/admin/analytics", cfg.Admin.Analytics)

	app.Get("/realtime/ws", cfg.Realtime.Upgrade, cfg.Realtime.Subscribe())
}
