package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chatdesk/support-service/internal/config"
)

// ChangeAction mirrors the row-change kinds clients care about.
type ChangeAction string

const (
	ActionInsert ChangeAction = "INSERT"
	ActionUpdate ChangeAction = "UPDATE"
)

// ChangeEvent is one row-change notification fanned out to listening clients.
type ChangeEvent struct {
	Table    string          `json:"table"`
	Action   ChangeAction    `json:"action"`
	TicketID string          `json:"ticket_id"`
	Record   json.RawMessage `json:"record"`
}

// Subscription is an explicit handle for one listener. Events arrive on C;
// Close unregisters the listener. Delivery is at-most-once: a listener that is
// slow or gone simply misses events, there is no replay.
type Subscription struct {
	C chan ChangeEvent

	table    string
	ticketID string
	broker   *Broker
	once     sync.Once
}

// Close unregisters the subscription and releases its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
	})
}

// Broker fans row-change events out to websocket listeners through Redis
// Pub/Sub, one channel per table. Cross-process: every service instance
// publishes to Redis and relays its own listeners from there.
type Broker struct {
	client *redis.Client
	cfg    config.RealtimeConfig
	logger *zap.Logger

	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	readers map[string]context.CancelFunc
}

// NewBroker constructs a broker over the given Redis client.
func NewBroker(client *redis.Client, cfg config.RealtimeConfig, logger *zap.Logger) *Broker {
	return &Broker{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		subs:    make(map[string]map[*Subscription]struct{}),
		readers: make(map[string]context.CancelFunc),
	}
}

func (b *Broker) channelFor(table string) string {
	return b.cfg.ChannelPrefix + ":" + table
}

// Publish sends a change event to every instance listening on the table's
// channel.
func (b *Broker) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channelFor(event.Table), payload).Err()
}

// Subscribe registers a listener for changes to one table, optionally scoped
// to a single ticket. The first listener per table starts a Redis reader;
// cancellation is Close on the returned handle.
func (b *Broker) Subscribe(table, ticketID string) *Subscription {
	buffer := b.cfg.SubscriberBuffer
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{
		C:        make(chan ChangeEvent, buffer),
		table:    table,
		ticketID: ticketID,
		broker:   b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[table] == nil {
		b.subs[table] = make(map[*Subscription]struct{})
	}
	b.subs[table][sub] = struct{}{}
	if _, running := b.readers[table]; !running && b.client != nil {
		ctx, cancel := context.WithCancel(context.Background())
		b.readers[table] = cancel
		go b.readLoop(ctx, table)
	}
	return sub
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	listeners, ok := b.subs[sub.table]
	if !ok {
		return
	}
	if _, ok := listeners[sub]; !ok {
		return
	}
	delete(listeners, sub)
	close(sub.C)
	if len(listeners) == 0 {
		delete(b.subs, sub.table)
		if cancel, ok := b.readers[sub.table]; ok {
			cancel()
			delete(b.readers, sub.table)
		}
	}
}

func (b *Broker) readLoop(ctx context.Context, table string) {
	pubsub := b.client.Subscribe(ctx, b.channelFor(table))
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("dropping malformed realtime payload", zap.Error(err))
				continue
			}
			b.dispatch(event)
		}
	}
}

// dispatch delivers an event to matching local listeners. Sends never block;
// a listener with a full buffer loses the event.
func (b *Broker) dispatch(event ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[event.Table] {
		if sub.ticketID != "" && sub.ticketID != event.TicketID {
			continue
		}
		select {
		case sub.C <- event:
		default:
		}
	}
}
