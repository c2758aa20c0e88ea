package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"portfolio-ai-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	processingLogTopic = "document.processing.logs"
	redisChannel       = "processing_log_events"
)

// LogEvent is one progress entry emitted while a document is chunked
// and embedded, pushed to any client watching that document's log
// stream.
type LogEvent struct {
	DocumentId uuid.UUID `json:"document_id"`
	Stage      string    `json:"stage"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hub is the connection registry for processing-log streams. Producers
// publish through an in-process watermill bus; subscribers register per
// document id and are cleaned up on disconnect. With Redis available,
// events also fan out to other instances.
type Hub struct {
	pubsub *gochannel.GoChannel
	rdb    *redis.Client
	logger logger.ILogger

	instanceId  string
	mu          sync.RWMutex
	subscribers map[uuid.UUID][]chan LogEvent
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		pubsub:      gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
		rdb:         rdb,
		logger:      log,
		instanceId:  watermill.NewUUID(),
		subscribers: make(map[uuid.UUID][]chan LogEvent),
	}
}

type redisEnvelope struct {
	Origin string   `json:"origin"`
	Event  LogEvent `json:"event"`
}

// Run consumes the in-process bus and dispatches to local subscribers
// until ctx is cancelled. Call it once from a goroutine at startup.
func (h *Hub) Run(ctx context.Context) error {
	messages, err := h.pubsub.Subscribe(ctx, processingLogTopic)
	if err != nil {
		return err
	}

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for msg := range messages {
		var event LogEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			h.logger.Warn("stream", "dropping malformed log event", map[string]interface{}{
				"error": err.Error(),
			})
			msg.Ack()
			continue
		}

		h.dispatch(event)

		if h.rdb != nil {
			envelope, err := json.Marshal(redisEnvelope{Origin: h.instanceId, Event: event})
			if err == nil {
				h.rdb.Publish(ctx, redisChannel, envelope)
			}
		}

		msg.Ack()
	}
	return nil
}

// Publish emits a processing-log event onto the bus.
func (h *Hub) Publish(event LogEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := h.pubsub.Publish(processingLogTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		h.logger.Warn("stream", "failed to publish log event", map[string]interface{}{
			"document_id": event.DocumentId,
			"error":       err.Error(),
		})
	}
}

// Subscribe registers a listener for one document's log stream. The
// returned cancel function deregisters and closes the channel; callers
// must invoke it when the client disconnects.
func (h *Hub) Subscribe(documentId uuid.UUID) (<-chan LogEvent, func()) {
	ch := make(chan LogEvent, 16)

	h.mu.Lock()
	h.subscribers[documentId] = append(h.subscribers[documentId], ch)
	h.mu.Unlock()

	h.logger.Info("stream", "log subscriber registered", map[string]interface{}{
		"document_id": documentId,
	})

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[documentId]
		for i, sub := range subs {
			if sub == ch {
				h.subscribers[documentId] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
		if len(h.subscribers[documentId]) == 0 {
			delete(h.subscribers, documentId)
		}
	}
	return ch, cancel
}

func (h *Hub) dispatch(event LogEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers[event.DocumentId] {
		select {
		case sub <- event:
		default:
			// Slow consumer, drop rather than stall the bus.
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var envelope redisEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			continue
		}
		// Skip events this instance already dispatched locally.
		if envelope.Origin == h.instanceId {
			continue
		}
		h.dispatch(envelope.Event)
	}
}

// Close shuts the underlying bus down.
func (h *Hub) Close() error {
	return h.pubsub.Close()
}
