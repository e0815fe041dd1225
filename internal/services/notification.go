package services

import (
	"context"
	"errors"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
)

const notificationPageSize = 50

type Inbox struct {
	Items  []*models.Notification `json:"items"`
	Unread int64                  `json:"unread"`
}

// NotificationService serves the in-app feed written by the notifier.
type NotificationService struct {
	notes repository.NotificationRepository
	auth  *AuthService
}

func NewNotificationService(notes repository.NotificationRepository, auth *AuthService) *NotificationService {
	return &NotificationService{notes: notes, auth: auth}
}

func (s *NotificationService) List(ctx context.Context, sess *session.Session) (*Inbox, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	items, err := s.notes.ListByUser(ctx, c.ID, notificationPageSize)
	if err != nil {
		return nil, err
	}
	unread, err := s.notes.CountUnread(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Notification{}
	}
	return &Inbox{Items: items, Unread: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, sess *session.Session, id string) error {
	c, err := callerOf(sess)
	if err != nil {
		return err
	}
	err = s.notes.MarkRead(ctx, c.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, sess *session.Session) error {
	c, err := callerOf(sess)
	if err != nil {
		return err
	}
	return s.notes.MarkAllRead(ctx, c.ID)
}

// UpdateSettings switches SMS delivery. It is a profile write, so open
// sessions of the user see it on their profile stream.
func (s *NotificationService) UpdateSettings(ctx context.Context, sess *session.Session, sms bool) (*models.NotificationSettings, error) {
	u, err := s.auth.UpdateProfile(ctx, sess, ProfileUpdate{SMS: &sms})
	if err != nil {
		return nil, err
	}
	return &u.Notifications, nil
}
