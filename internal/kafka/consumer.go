package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes one message value. Errors are logged; the offset is
// committed either way since the handler owns retries and dead-lettering.
type Handler interface {
	HandleEvent(ctx context.Context, raw []byte) error
}

type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	logger  *zap.Logger
	workers int
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, workers int, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	if workers < 1 {
		workers = 1
	}
	return &Consumer{reader: r, handler: handler, logger: logger, workers: workers}
}

// Start blocks until ctx is cancelled. Messages are fetched in order and
// handled by a bounded worker pool; commits happen after handling.
func (c *Consumer) Start(ctx context.Context) error {
	jobs := make(chan kafka.Message)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := c.handler.HandleEvent(ctx, m.Value); err != nil {
					c.logger.Warn("event handling failed", zap.ByteString("key", m.Key), zap.Error(err))
				}
				if err := c.reader.CommitMessages(context.WithoutCancel(ctx), m); err != nil {
					c.logger.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
				}
			}
		}()
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			c.logger.Error("kafka read error", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
