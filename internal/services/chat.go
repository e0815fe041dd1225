package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"go.uber.org/zap"
)

const (
	chatPageSize   = 100
	maxMessageRune = 2000
)

// Broadcaster delivers a stored message to the live room of its house.
type Broadcaster interface {
	Broadcast(ctx context.Context, m *models.ChatMessage) error
}

type MessageInput struct {
	Type         models.MessageType
	Text         string
	ImageURL     string
	ThumbnailURL string
}

type ChatService struct {
	messages repository.ChatRepository
	houses   repository.HouseRepository
	orders   repository.OrderRepository
	bills    repository.BillRepository
	live     Broadcaster
	clock    Clock
	log      *zap.Logger
}

func NewChatService(
	messages repository.ChatRepository,
	houses repository.HouseRepository,
	orders repository.OrderRepository,
	bills repository.BillRepository,
	live Broadcaster,
	clock Clock,
	log *zap.Logger,
) *ChatService {
	if clock == nil {
		clock = SystemClock
	}
	return &ChatService{messages: messages, houses: houses, orders: orders, bills: bills, live: live, clock: clock, log: log}
}

// room loads the house and checks that the caller may post in it: its
// members and the staff of its agency.
func (s *ChatService) room(ctx context.Context, c *caller, houseID string) (*models.House, error) {
	h, err := s.houses.FindByID(ctx, houseID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load house: %w", err)
	}
	if !c.memberOf(h.ID) && !c.staffOf(h.AgencyID) {
		return nil, ErrForbidden
	}
	return h, nil
}

// CanJoin reports whether the session may follow the live room of houseID.
func (s *ChatService) CanJoin(ctx context.Context, sess *session.Session, houseID string) error {
	c, err := callerOf(sess)
	if err != nil {
		return err
	}
	_, err = s.room(ctx, c, houseID)
	return err
}

func (s *ChatService) Send(ctx context.Context, sess *session.Session, houseID string, in MessageInput) (*models.ChatMessage, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.room(ctx, c, houseID)
	if err != nil {
		return nil, err
	}
	m := &models.ChatMessage{HouseID: h.ID, Type: in.Type}
	switch in.Type {
	case models.MessageText, "":
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return nil, invalid("message text is required")
		}
		if utf8.RuneCountInString(text) > maxMessageRune {
			return nil, invalid(fmt.Sprintf("messages are limited to %d characters", maxMessageRune))
		}
		m.Type, m.Text = models.MessageText, text
	case models.MessageImage:
		if strings.TrimSpace(in.ImageURL) == "" {
			return nil, invalid("imageUrl is required for image messages")
		}
		m.ImageURL, m.ThumbnailURL = in.ImageURL, in.ThumbnailURL
		m.Text = strings.TrimSpace(in.Text)
	default:
		return nil, invalid("use share for order and bill messages")
	}
	return s.post(ctx, c, m)
}

// Share posts a summary card for an order or bill of the same house.
func (s *ChatService) Share(ctx context.Context, sess *session.Session, houseID string, kind models.MessageType, refID string) (*models.ChatMessage, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.room(ctx, c, houseID)
	if err != nil {
		return nil, err
	}
	m := &models.ChatMessage{HouseID: h.ID, Type: kind, RefID: refID}
	switch kind {
	case models.MessageOrder:
		o, err := s.orders.FindByID(ctx, refID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && o.HouseID != h.ID) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load order: %w", err)
		}
		m.Summary = fmt.Sprintf("%s order for %s, %d item(s), ₹%s (%s)", o.MealType, o.Date, len(o.Items), money(o.Total), o.Status)
	case models.MessageBill:
		b, err := s.bills.FindByID(ctx, refID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && b.HouseID != h.ID) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load bill: %w", err)
		}
		m.Summary = fmt.Sprintf("Bill %s to %s, ₹%s (%s)", b.PeriodStart, b.PeriodEnd, money(b.TotalAmount), b.EffectiveStatus(s.clock.Now()))
	default:
		return nil, invalid("only orders and bills can be shared")
	}
	return s.post(ctx, c, m)
}

func (s *ChatService) post(ctx context.Context, c *caller, m *models.ChatMessage) (*models.ChatMessage, error) {
	m.ID = utils.NewID()
	m.SenderID = c.ID
	m.SenderName = c.Name
	m.CreatedAt = s.clock.Now().UTC()
	if err := s.messages.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	if s.live != nil {
		if err := s.live.Broadcast(context.WithoutCancel(ctx), m); err != nil {
			s.log.Warn("chat broadcast failed", zap.String("house_id", m.HouseID), zap.Error(err))
		}
	}
	return m, nil
}

// History returns up to 100 messages older than before, oldest first.
func (s *ChatService) History(ctx context.Context, sess *session.Session, houseID string, before time.Time) ([]*models.ChatMessage, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if _, err := s.room(ctx, c, houseID); err != nil {
		return nil, err
	}
	return s.messages.List(ctx, houseID, chatPageSize, before)
}
