package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/chatdesk/support-service/internal/events"
	"github.com/chatdesk/support-service/internal/realtime"
)

// RealtimeService forwards domain events to the realtime broker as row-change
// notifications. Delivery is fire-and-forget: a forwarding failure is logged
// and the request that produced the event is unaffected.
type RealtimeService struct {
	broker *realtime.Broker
	logger *zap.Logger
}

// NewRealtimeService creates the service.
func NewRealtimeService(broker *realtime.Broker, logger *zap.Logger) *RealtimeService {
	return &RealtimeService{broker: broker, logger: logger}
}

// RegisterHandlers subscribes to the domain events that map to row changes.
func (r *RealtimeService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || r.broker == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, r.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, r.handleTicketStatusChanged)
	dispatcher.Subscribe(events.EventMessageAdded, r.handleMessageAdded)
	dispatcher.Subscribe(events.EventAttachmentRegistered, r.handleAttachmentRegistered)
}

func (r *RealtimeService) handleTicketCreated(ctx context.Context, event events.Event) error {
	return r.forward(ctx, event, "tickets", realtime.ActionInsert)
}

func (r *RealtimeService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	return r.forward(ctx, event, "tickets", realtime.ActionUpdate)
}

func (r *RealtimeService) handleMessageAdded(ctx context.Context, event events.Event) error {
	return r.forward(ctx, event, "messages", realtime.ActionInsert)
}

func (r *RealtimeService) handleAttachmentRegistered(ctx context.Context, event events.Event) error {
	return r.forward(ctx, event, "attachments", realtime.ActionInsert)
}

func (r *RealtimeService) forward(ctx context.Context, event events.Event, table string, action realtime.ChangeAction) error {
	record, err := json.Marshal(event.Payload)
	if err != nil {
		r.logger.Warn("realtime payload marshal failed", zap.Error(err), zap.String("event_type", string(event.Type)))
		return nil
	}
	change := realtime.ChangeEvent{
		Table:    table,
		Action:   action,
		TicketID: event.TicketID,
		Record:   record,
	}
	if err := r.broker.Publish(ctx, change); err != nil {
		r.logger.Warn("realtime publish failed",
			zap.Error(err),
			zap.String("table", table),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}
