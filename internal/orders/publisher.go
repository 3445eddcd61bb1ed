package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

const (
	TopicOrdersPlaced = "orders-placed"
	EventOrderPlaced  = "OrderPlaced"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PublisherConfig struct {
	Topic        string
	WriteTimeout time.Duration
	// BreakerFailures consecutive failures open the breaker for
	// BreakerOpenFor.
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// Publisher emits an OrderPlaced event per order. Writes go through a
// circuit breaker; while it is open Publish fails without touching the
// broker.
type Publisher struct {
	writer  messageWriter
	cb      *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
	log     zerolog.Logger
}

func NewPublisher(cfg PublisherConfig, log zerolog.Logger, brokers ...string) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = TopicOrdersPlaced
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg, log)
}

func newPublisher(w messageWriter, cfg PublisherConfig, log zerolog.Logger) *Publisher {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "orders-publisher",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
		},
	})

	return &Publisher{writer: w, cb: cb, timeout: cfg.WriteTimeout, log: log}
}

func (p *Publisher) Publish(ctx context.Context, order domain.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderPlaced)},
		},
	}

	_, err = p.cb.Execute(func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish order %s: %w", order.ID, err)
	}
	return nil
}

// Record implements checkout.OrderSink.
func (p *Publisher) Record(ctx context.Context, order domain.Order) error {
	return p.Publish(ctx, order)
}

func (p *Publisher) State() gobreaker.State {
	return p.cb.State()
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
