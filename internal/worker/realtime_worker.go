package worker

import (
	"github.com/chatdesk/support-service/internal/events"
	"github.com/chatdesk/support-service/internal/service"
)

// StartRealtimeWorker wires domain events into the realtime fan-out.
func StartRealtimeWorker(realtimeService *service.RealtimeService, dispatcher events.Dispatcher) {
	if realtimeService == nil {
		return
	}
	realtimeService.RegisterHandlers(dispatcher)
}
