package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/chatdesk/support-service/internal/realtime"
)

var subscribableTables = map[string]struct{}{
	"tickets":     {},
	"messages":    {},
	"attachments": {},
}

// RealtimeHandler bridges websocket clients onto the realtime broker.
type RealtimeHandler struct {
	broker *realtime.Broker
	logger *zap.Logger
}

// NewRealtimeHandler constructs handler.
func NewRealtimeHandler(broker *realtime.Broker, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{broker: broker, logger: logger}
}

// Upgrade gates the route to websocket upgrade requests.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Subscribe GET /realtime/ws?table=&ticket_id=. Streams row-change events for
// one table, optionally scoped to a single ticket, until the client hangs up.
// A client disconnected during an update misses it; re-fetch on reconnect is
// the client's job.
func (h *RealtimeHandler) Subscribe() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		table := conn.Query("table", "tickets")
		if _, ok := subscribableTables[table]; !ok {
			_ = conn.WriteJSON(fiber.Map{"error": "unknown table"})
			return
		}
		ticketID := conn.Query("ticket_id")

		sub := h.broker.Subscribe(table, ticketID)
		defer sub.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case event, ok := <-sub.C:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					h.logger.Debug("realtime write failed", zap.Error(err))
					return
				}
			}
		}
	})
}
