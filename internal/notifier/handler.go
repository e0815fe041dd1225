package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fathima-sithara/moms/internal/metrics"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnknownEvent = errors.New("unknown event type")

type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// Pusher delivers a payload to a user's live connections, if any.
type Pusher interface {
	PushToUser(userID string, v interface{})
}

// DeadLetter receives events that could not be processed.
type DeadLetter interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
}

type Handler struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	sms           SMSSender
	push          Pusher
	dlq           DeadLetter
	maxRetries    int
	backoff       time.Duration
	logger        *zap.Logger
}

func NewHandler(
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	sms SMSSender,
	push Pusher,
	dlq DeadLetter,
	maxRetries int,
	backoffInterval time.Duration,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:         users,
		notifications: notifications,
		sms:           sms,
		push:          push,
		dlq:           dlq,
		maxRetries:    maxRetries,
		backoff:       backoffInterval,
		logger:        logger,
	}
}

// HandleEvent stores one notification per recipient, retrying with
// exponential backoff. Redelivered events are ignored per recipient. Events
// that still fail go to the dead letter writer.
func (h *Handler) HandleEvent(ctx context.Context, raw []byte) error {
	var ev models.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Error("invalid event payload", zap.Error(err))
		h.deadLetter(ctx, "", raw)
		return err
	}
	if ev.ID == "" {
		h.deadLetter(ctx, "", raw)
		return errors.New("event without id")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = h.backoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(h.maxRetries)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := h.process(ctx, &ev)
		if errors.Is(err, ErrUnknownEvent) {
			return backoff.Permanent(err)
		}
		if err != nil {
			h.logger.Warn("notification attempt failed", zap.String("event_id", ev.ID), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}, policy)
	if err != nil {
		h.logger.Error("pushing event to DLQ", zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)), zap.Error(err))
		h.deadLetter(ctx, ev.ID, raw)
		return err
	}
	return nil
}

func (h *Handler) deadLetter(ctx context.Context, key string, raw []byte) {
	if h.dlq == nil {
		return
	}
	metrics.EventsDeadLettered.Inc()
	if err := h.dlq.PublishMessage(context.WithoutCancel(ctx), key, raw); err != nil {
		h.logger.Error("dlq push failed", zap.String("event_id", key), zap.Error(err))
	}
}

func (h *Handler) process(ctx context.Context, ev *models.Event) error {
	recipients, err := h.recipients(ctx, ev)
	if err != nil {
		return err
	}
	title, body := render(ev)

	for _, u := range recipients {
		n := &models.Notification{
			ID:      uuid.NewString(),
			UserID:  u.ID,
			EventID: ev.ID,
			Type:    ev.Type,
			Title:   title,
			Body:    body,
			RefID:   ev.RefID,
		}
		err := h.notifications.Create(ctx, n)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("store notification for %s: %w", u.ID, err)
		}
		metrics.Notifications.WithLabelValues("in_app", "stored").Inc()

		if h.push != nil {
			h.push.PushToUser(u.ID, n)
		}
		if h.sms != nil && u.Notifications.SMS && u.Phone != "" && smsWorthy(ev.Type) {
			// best effort: the in-app notification is already stored
			if err := h.sms.Send(ctx, u.Phone, body); err != nil {
				metrics.Notifications.WithLabelValues("sms", "failed").Inc()
				h.logger.Warn("sms delivery failed", zap.String("user_id", u.ID), zap.Error(err))
			} else {
				metrics.Notifications.WithLabelValues("sms", "sent").Inc()
			}
		}
	}
	return nil
}

func (h *Handler) recipients(ctx context.Context, ev *models.Event) ([]*models.Identity, error) {
	switch ev.Type {
	case models.EventOrderPlaced, models.EventPaymentRecorded:
		return h.users.ListByAgency(ctx, ev.AgencyID, models.RoleNameAgencyOwner, models.RoleNameAgencyHelper)
	case models.EventBillGenerated:
		return h.users.ListByHouse(ctx, ev.HouseID)
	case models.EventOrderStatusChanged, models.EventPaymentConfirmed, models.EventPaymentRejected:
		u, err := h.users.FindByID(ctx, ev.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*models.Identity{u}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Type)
}
