package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

const (
	defaultRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer archives OrderPlaced events. Redelivered events are skipped.
// An offset is committed only once its message is archived, recognised
// as a duplicate, or discarded as unusable; archive failures are retried
// in place until they succeed or the context ends.
type Consumer struct {
	repo       OrderRepository
	reader     messageReader
	log        zerolog.Logger
	retryDelay time.Duration
}

func NewConsumer(repo OrderRepository, groupID string, log zerolog.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    TopicOrdersPlaced,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(repo, reader, log)
}

func newConsumer(repo OrderRepository, reader messageReader, log zerolog.Logger) *Consumer {
	return &Consumer{repo: repo, reader: reader, log: log, retryDelay: defaultRetryDelay}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !c.processMessage(ctx) {
			return
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error().Err(err).Msg("error closing kafka reader")
	}
}

// processMessage reports false once the reader can no longer deliver or
// ctx ends with the message unarchived.
func (c *Consumer) processMessage(ctx context.Context) bool {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return false
		}
		c.log.Error().Err(err).Msg("error reading message")
		return true
	}

	if !c.handle(ctx, m) {
		return false
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.log.Error().Err(err).Int64("offset", m.Offset).Msg("error committing message")
	}
	return true
}

// handle reports false only when ctx ends before the order is stored.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) bool {
	if et := eventType(m); et != "" && et != EventOrderPlaced {
		c.log.Debug().Str("event_type", et).Msg("skipping unrelated event")
		return true
	}

	var order domain.Order
	if err := json.Unmarshal(m.Value, &order); err != nil {
		c.log.Error().Err(err).Int64("offset", m.Offset).Msg("error parsing message")
		return true
	}
	if order.ID == "" {
		c.log.Error().Str("key", string(m.Key)).Msg("order event without id")
		return true
	}

	delay := c.retryDelay
	for {
		err := c.repo.CreateOrder(ctx, order)
		switch {
		case err == nil:
			c.log.Info().Str("order_id", order.ID).Msg("order archived")
			return true
		case errors.Is(err, ErrDuplicateOrder):
			c.log.Info().Str("order_id", order.ID).Msg("order already archived, skipping")
			return true
		}

		c.log.Error().Err(err).Str("order_id", order.ID).Dur("retry_in", delay).Msg("failed to archive order")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
