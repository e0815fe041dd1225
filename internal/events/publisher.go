// Package events carries domain events from services to the notifier, either
// through Kafka or in-process.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, ev *models.Event) error
}

// Writer is the subset of the Kafka producer used here.
type Writer interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
}

// Handler consumes raw event payloads.
type Handler interface {
	HandleEvent(ctx context.Context, raw []byte) error
}

func New(t models.EventType, agencyID, houseID, userID, refID string, data map[string]string) *models.Event {
	return &models.Event{
		ID:         uuid.NewString(),
		Type:       t,
		AgencyID:   agencyID,
		HouseID:    houseID,
		UserID:     userID,
		RefID:      refID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

func stamp(ev *models.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
}

// partitionKey keeps a house's events ordered.
func partitionKey(ev *models.Event) string {
	if ev.HouseID != "" {
		return ev.HouseID
	}
	return ev.AgencyID
}

type KafkaPublisher struct {
	w Writer
}

func NewKafkaPublisher(w Writer) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev *models.Event) error {
	stamp(ev)
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.PublishMessage(ctx, partitionKey(ev), b)
}

// LocalPublisher hands events straight to a handler on a goroutine. Used
// when Kafka is disabled.
type LocalPublisher struct {
	h   Handler
	log *zap.Logger
	wg  sync.WaitGroup
}

func NewLocalPublisher(h Handler, log *zap.Logger) *LocalPublisher {
	return &LocalPublisher{h: h, log: log}
}

func (p *LocalPublisher) Publish(ctx context.Context, ev *models.Event) error {
	stamp(ev)
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.h.HandleEvent(context.WithoutCancel(ctx), b); err != nil {
			p.log.Warn("local event handling failed", zap.String("type", string(ev.Type)), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every dispatched event has been handled.
func (p *LocalPublisher) Wait() { p.wg.Wait() }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, *models.Event) error { return nil }
