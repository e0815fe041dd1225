package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fathima-sithara/moms/internal/middleware"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const sendTimeout = 5 * time.Second

type inbound struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	ImageURL     string `json:"imageUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

type Handler struct {
	hub       *Hub
	chat      *services.ChatService
	perSecond int
	log       *zap.Logger
}

func NewHandler(hub *Hub, chat *services.ChatService, messagesPerSecond int, log *zap.Logger) *Handler {
	if messagesPerSecond <= 0 {
		messagesPerSecond = 5
	}
	return &Handler{hub: hub, chat: chat, perSecond: messagesPerSecond, log: log}
}

// Upgrade lets only websocket handshakes through.
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// JoinHouse checks room access before the handshake completes.
func (h *Handler) JoinHouse(c *fiber.Ctx) error {
	if err := h.chat.CanJoin(c.UserContext(), middleware.SessionFrom(c), c.Params("houseId")); err != nil {
		return err
	}
	return c.Next()
}

func sessionOf(conn *websocket.Conn) (*session.Session, bool) {
	sess, ok := conn.Locals(middleware.LocalSession).(*session.Session)
	return sess, ok && sess != nil
}

// Profile streams the session's profile: the current document first, then
// every change until the socket or the session closes.
func (h *Handler) Profile() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sess, ok := sessionOf(conn)
		if !ok {
			_ = conn.Close()
			return
		}
		cl := NewClient(conn, sess.UserID(), "")
		h.hub.Add(cl)
		defer h.hub.Remove(cl)

		updates, stop := sess.Updates()
		defer stop()
		if u := sess.Identity(); u != nil {
			h.queue(cl, TypeProfile, u)
		}
		go func() {
			for u := range updates {
				h.queue(cl, TypeProfile, u)
			}
			cl.Close()
		}()
		go func() {
			cl.readPump(nil)
			cl.Close()
		}()
		cl.writePump()
	})
}

// House joins the chat room of :houseId. Inbound frames are posted as
// messages, limited per connection.
func (h *Handler) House() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sess, ok := sessionOf(conn)
		if !ok {
			_ = conn.Close()
			return
		}
		houseID := conn.Params("houseId")
		cl := NewClient(conn, sess.UserID(), houseID)
		h.hub.Add(cl)
		defer h.hub.Remove(cl)

		limiter := rate.NewLimiter(rate.Limit(h.perSecond), h.perSecond)
		go func() {
			cl.readPump(func(data []byte) {
				if !limiter.Allow() {
					h.queue(cl, TypeError, fiber.Map{"code": "TOO_MANY_REQUESTS", "error": "slow down"})
					return
				}
				h.post(cl, sess, houseID, data)
			})
			cl.Close()
		}()
		cl.writePump()
	})
}

func (h *Handler) post(cl *Client, sess *session.Session, houseID string, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		h.queue(cl, TypeError, fiber.Map{"code": services.CodeValidation, "error": "invalid frame"})
		return
	}
	mt := models.MessageType(in.Type)
	if in.Type == TypeMessage {
		mt = models.MessageText
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	_, err := h.chat.Send(ctx, sess, houseID, services.MessageInput{
		Type:         mt,
		Text:         in.Text,
		ImageURL:     in.ImageURL,
		ThumbnailURL: in.ThumbnailURL,
	})
	if err != nil {
		code := services.CodeOf(err)
		if code == services.CodeInternal {
			h.log.Error("ws chat send failed", zap.String("house_id", houseID), zap.Error(err))
		}
		h.queue(cl, TypeError, fiber.Map{"code": code, "error": services.PublicMessage(err)})
	}
}

func (h *Handler) queue(cl *Client, typ string, data any) {
	frame, err := encode(typ, data)
	if err != nil {
		h.log.Warn("encode frame", zap.String("type", typ), zap.Error(err))
		return
	}
	cl.offer(frame)
}
