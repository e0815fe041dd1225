package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Accounts creates credential and profile pairs and writes profiles. Every
// profile write is published to the profile feed.
type Accounts struct {
	creds       repository.CredentialRepository
	users       repository.UserRepository
	feed        session.ProfileFeed
	domain      string
	hashCost    int
	minPassword int
	clock       Clock
	log         *zap.Logger
}

func NewAccounts(
	creds repository.CredentialRepository,
	users repository.UserRepository,
	feed session.ProfileFeed,
	domain string,
	hashCost int,
	minPassword int,
	clock Clock,
	log *zap.Logger,
) *Accounts {
	if hashCost < bcrypt.MinCost {
		hashCost = bcrypt.DefaultCost
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Accounts{
		creds:       creds,
		users:       users,
		feed:        feed,
		domain:      domain,
		hashCost:    hashCost,
		minPassword: minPassword,
		clock:       clock,
		log:         log,
	}
}

func (a *Accounts) Identifier(phone string) string {
	return utils.CredentialIdentifier(phone, a.domain)
}

func (a *Accounts) checkPassword(password string) error {
	if len(password) < a.minPassword {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, a.minPassword)
	}
	return nil
}

// Create stores a credential for phone, then the profile. If the profile
// cannot be written the credential is deleted again.
func (a *Accounts) Create(ctx context.Context, phone, password string, profile *models.Identity) (*models.Identity, error) {
	if err := a.checkPassword(password); err != nil {
		return nil, err
	}
	if !utils.IsValidPhone(phone) {
		return nil, invalid("invalid phone number")
	}
	phone = utils.NormalizePhone(phone)
	identifier := a.Identifier(phone)

	if _, err := a.creds.FindByIdentifier(ctx, identifier); err == nil {
		return nil, ErrPhoneRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := a.clock.Now().UTC()
	cred := &models.Credential{
		ID:           utils.NewID(),
		Identifier:   identifier,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if err := a.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPhoneRegistered
		}
		return nil, fmt.Errorf("create credential: %w", err)
	}

	u := *profile
	u.ID = cred.ID
	u.Phone = phone
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	u.CreatedAt, u.UpdatedAt = now, now
	if err := a.users.Save(ctx, &u); err != nil {
		if delErr := a.creds.Delete(context.WithoutCancel(ctx), cred.ID); delErr != nil {
			a.log.Error("failed to remove credential after profile write failure",
				zap.String("user_id", cred.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("save profile: %w", err)
	}
	a.publish(ctx, &u)
	return &u, nil
}

// Save writes the profile and publishes it.
func (a *Accounts) Save(ctx context.Context, u *models.Identity) error {
	u.UpdatedAt = a.clock.Now().UTC()
	if err := a.users.Save(ctx, u); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	a.publish(ctx, u)
	return nil
}

func (a *Accounts) publish(ctx context.Context, u *models.Identity) {
	if a.feed == nil {
		return
	}
	if err := a.feed.Publish(ctx, u); err != nil {
		a.log.Warn("profile publish failed", zap.String("user_id", u.ID), zap.Error(err))
	}
}

// Remove deletes the credential of userID. The profile is kept and marked
// suspended so historical records still resolve a name.
func (a *Accounts) Remove(ctx context.Context, userID string) error {
	u, err := a.users.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load profile: %w", err)
	}
	if err := a.creds.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete credential: %w", err)
	}
	if u == nil {
		return nil
	}
	u.Status = models.UserStatusSuspended
	return a.Save(ctx, u)
}

// VerifyPassword checks password against the credential of identifier.
func (a *Accounts) VerifyPassword(ctx context.Context, identifier, password string) (*models.Credential, error) {
	cred, err := a.creds.FindByIdentifier(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup credential: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return cred, nil
}
