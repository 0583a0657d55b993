package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/dto"
	"github.com/datasprint/datasprint-api/internal/observability"
)

const eventBufferSize = 16

// ChangePublisher is implemented by the event service and consumed by every
// writer in the system: each authoritative write announces itself so that
// subscribers can re-read and re-derive state without polling.
type ChangePublisher interface {
	PublishChange(ctx context.Context, event dto.ChangeEvent)
}

// EventService fans collection change events out to every current
// subscriber, locally and across nodes.
type EventService interface {
	ChangePublisher
	Subscribe() (<-chan dto.ChangeEvent, func())
	Start(ctx context.Context)
}

type eventService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *eventBroker
	nodeID       string
	now          func() time.Time
}

type changeEnvelope struct {
	Source string          `json:"source"`
	Event  dto.ChangeEvent `json:"event"`
}

type eventBroker struct {
	mu          sync.RWMutex
	subscribers map[chan dto.ChangeEvent]struct{}
}

// NewEventService constructs the change-event fan-out service. Both the redis
// client and the NATS connection are optional; without them events still reach
// local subscribers.
func NewEventService(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EventService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":changes"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".changes"
	}

	return &eventService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "event_service").Logger(),
		broker:       &eventBroker{subscribers: make(map[chan dto.ChangeEvent]struct{})},
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

func (s *eventService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// PublishChange delivers the event to local subscribers and mirrors it to the
// configured brokers. Delivery failures are logged, never propagated: a write
// that succeeded must not fail because a notification did.
func (s *eventService) PublishChange(ctx context.Context, event dto.ChangeEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}

	s.broker.broadcast(event)
	observability.EventsPublished().WithLabelValues(event.Collection).Inc()

	envelope := changeEnvelope{Source: s.nodeID, Event: event}
	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode change event")
		return
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish change event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish change event to nats")
		}
	}
}

// Subscribe registers a listener for every subsequent change event. The
// returned cleanup must be called when the listener goes away.
func (s *eventService) Subscribe() (<-chan dto.ChangeEvent, func()) {
	channel := make(chan dto.ChangeEvent, eventBufferSize)

	s.broker.subscribe(channel)
	observability.SSEClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(channel)
		observability.SSEClientsActive().Dec()
	}

	return channel, cleanup
}

func (s *eventService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("change event redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *eventService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "datasprint-changes", func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats changes subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain nats change subscription")
		}
	}()
}

func (s *eventService) handleEnvelope(payload []byte) {
	var envelope changeEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid change event payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	observability.EventsPublished().WithLabelValues(envelope.Event.Collection).Inc()
	s.broker.broadcast(envelope.Event)
}

func (b *eventBroker) subscribe(ch chan dto.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[ch] = struct{}{}
}

func (b *eventBroker) unsubscribe(ch chan dto.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// broadcast drops events for slow subscribers rather than blocking a writer.
func (b *eventBroker) broadcast(event dto.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
