package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fathima-sithara/moms/internal/cache"
	"github.com/fathima-sithara/moms/internal/metrics"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"go.uber.org/zap"
)

// AuthResult is returned by sign-in, registration and /me.
type AuthResult struct {
	Tokens     *models.AuthTokens `json:"tokens,omitempty"`
	User       *models.Identity   `json:"user"`
	State      string             `json:"state"`
	Registered bool               `json:"registered"`
	Dashboard  models.Dashboard   `json:"dashboard,omitempty"`
	HouseName  string             `json:"houseName,omitempty"`
}

// ProfileUpdate carries the fields a user may change on their own profile.
type ProfileUpdate struct {
	Name *string
	SMS  *bool
}

type AuthService struct {
	accounts *Accounts
	users    repository.UserRepository
	houses   repository.HouseRepository
	agencies repository.AgencyRepository
	sessions *session.Manager
	tokens   RefreshTokenStore
	attempts LoginLimiter
	carts    CartStore
	jwt      *utils.JWTManager
	log      *zap.Logger
}

func NewAuthService(
	accounts *Accounts,
	users repository.UserRepository,
	houses repository.HouseRepository,
	agencies repository.AgencyRepository,
	sessions *session.Manager,
	tokens RefreshTokenStore,
	attempts LoginLimiter,
	carts CartStore,
	jwt *utils.JWTManager,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		users:    users,
		houses:   houses,
		agencies: agencies,
		sessions: sessions,
		tokens:   tokens,
		attempts: attempts,
		carts:    carts,
		jwt:      jwt,
		log:      log,
	}
}

// Login signs in with phone and password. A credential without a profile
// gets a default customer profile.
func (s *AuthService) Login(ctx context.Context, phone, password string) (*AuthResult, error) {
	phone = utils.NormalizePhone(phone)
	identifier := s.accounts.Identifier(phone)

	locked, err := s.attempts.Locked(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("check login attempts: %w", err)
	}
	if locked {
		metrics.LoginFailures.WithLabelValues("locked").Inc()
		return nil, ErrTooManyAttempts
	}

	cred, err := s.accounts.VerifyPassword(ctx, identifier, password)
	if errors.Is(err, ErrInvalidCredentials) {
		metrics.LoginFailures.WithLabelValues("invalid_credentials").Inc()
		if _, ferr := s.attempts.Fail(ctx, identifier); ferr != nil {
			s.log.Warn("failed to count login attempt", zap.Error(ferr))
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if err := s.attempts.Reset(ctx, identifier); err != nil {
		s.log.Warn("failed to reset login attempts", zap.Error(err))
	}

	sess := s.sessions.Begin()
	identity, err := s.loadOrCreateProfile(ctx, cred.ID, phone)
	if err != nil {
		sess.Fail()
		return nil, err
	}
	if identity != nil && identity.Status == models.UserStatusSuspended {
		sess.Fail()
		return nil, ErrAccountSuspended
	}
	return s.establish(ctx, sess, cred.ID, identity, "")
}

func (s *AuthService) loadOrCreateProfile(ctx context.Context, userID, phone string) (*models.Identity, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err == nil {
		s.backfillAgency(ctx, u)
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	u = &models.Identity{
		ID:     userID,
		Phone:  phone,
		Name:   "User",
		Role:   models.RoleNameCustomer,
		Status: models.UserStatusActive,
	}
	u.CreatedAt = s.accounts.clock.Now().UTC()
	if err := s.accounts.Save(ctx, u); err != nil {
		// Signed in but unregistered; the client is sent to registration.
		s.log.Warn("could not recreate missing profile", zap.String("user_id", userID), zap.Error(err))
		return nil, nil
	}
	return u, nil
}

// backfillAgency fills in the agency of an agency owner whose profile lacks it.
func (s *AuthService) backfillAgency(ctx context.Context, u *models.Identity) {
	if u.Role != models.RoleNameAgencyOwner || u.AgencyID != "" {
		return
	}
	a, err := s.agencies.FindByOwnerID(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("agency lookup failed", zap.String("user_id", u.ID), zap.Error(err))
		}
		return
	}
	u.AgencyID = a.ID
	if err := s.accounts.Save(ctx, u); err != nil {
		s.log.Warn("agency backfill not persisted", zap.String("user_id", u.ID), zap.Error(err))
	}
}

// Register creates an account for a phone listed on a house. The house is
// resolved before any credential exists; unknown phones get ErrNotAuthorized.
func (s *AuthService) Register(ctx context.Context, phone, password, name string) (*AuthResult, error) {
	phone = utils.NormalizePhone(phone)

	house, role, err := s.resolveHouse(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotAuthorized) {
			metrics.LoginFailures.WithLabelValues("not_authorized").Inc()
		}
		return nil, err
	}

	identity, err := s.accounts.Create(ctx, phone, password, &models.Identity{
		Name:          name,
		Role:          role.Name(),
		Status:        models.UserStatusActive,
		AgencyID:      house.AgencyID,
		HouseID:       house.ID,
		SmallHouseID:  house.SmallHouseID,
		Notifications: models.NotificationSettings{SMS: true},
	})
	if err != nil {
		return nil, err
	}

	sess := s.sessions.Begin()
	return s.establish(ctx, sess, identity.ID, identity, house.Name)
}

// resolveHouse finds the house listing phone, members first, then admins.
func (s *AuthService) resolveHouse(ctx context.Context, phone string) (*models.House, models.Role, error) {
	h, err := s.houses.FindByMemberPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		h, err = s.houses.FindByAdminPhone(ctx, phone)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup house: %w", err)
	}
	if h.HouseAdminPhone == phone {
		return h, models.HouseAdmin, nil
	}
	return h, models.Customer, nil
}

func (s *AuthService) establish(ctx context.Context, sess *session.Session, userID string, identity *models.Identity, houseName string) (*AuthResult, error) {
	tokens, err := s.issue(ctx, sess.ID(), userID)
	if err != nil {
		sess.Fail()
		return nil, err
	}
	if err := s.sessions.Activate(ctx, sess, userID, identity); err != nil {
		_ = s.tokens.Revoke(context.WithoutCancel(ctx), sess.ID())
		return nil, fmt.Errorf("activate session: %w", err)
	}
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))

	res := describe(sess)
	res.Tokens = tokens
	res.HouseName = houseName
	return res, nil
}

func (s *AuthService) issue(ctx context.Context, sessionID, userID string) (*models.AuthTokens, error) {
	access, accessExp, err := s.jwt.GenerateAccessToken(userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.jwt.GenerateRefreshToken(userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.tokens.Save(ctx, sessionID, userID, refresh, s.jwt.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &models.AuthTokens{
		SessionID:        sessionID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh rotates the refresh token. Presenting a superseded token revokes
// the session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	claims, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	access, accessExp, err := s.jwt.GenerateAccessToken(claims.UserID, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.jwt.GenerateRefreshToken(claims.UserID, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	err = s.tokens.Rotate(ctx, claims.SessionID, refreshToken, refresh, s.jwt.RefreshTTL())
	if errors.Is(err, cache.ErrTokenReused) || errors.Is(err, cache.ErrSessionRevoked) {
		s.sessions.Revoke(ctx, claims.SessionID)
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return &models.AuthTokens{
		SessionID:        claims.SessionID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Resume returns the live session for a verified access token, rebuilding
// it from the token store when this process has not seen it.
func (s *AuthService) Resume(ctx context.Context, sessionID, userID string) (*session.Session, error) {
	// The token store is the source of truth: another node may have signed
	// the session out or revoked it on refresh-token reuse.
	rec, err := s.tokens.Lookup(ctx, sessionID)
	if errors.Is(err, cache.ErrSessionRevoked) {
		s.sessions.Close(sessionID)
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if rec.UserID != userID {
		return nil, ErrInvalidRefreshToken
	}

	if sess, ok := s.sessions.Get(sessionID); ok {
		if sess.UserID() != userID {
			return nil, ErrInvalidRefreshToken
		}
		return sess, nil
	}

	identity, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		identity = nil
	} else if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	} else {
		s.backfillAgency(ctx, identity)
	}

	sess, err := s.sessions.Restore(ctx, sessionID, userID, identity)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	return sess, nil
}

// SignOut cancels the profile subscription, revokes the refresh token, drops
// the cart and tells the other nodes to close the session.
func (s *AuthService) SignOut(ctx context.Context, sess *session.Session) error {
	id, cartKey := sess.ID(), sess.CartKey()
	s.sessions.Close(id)

	if err := s.tokens.Revoke(ctx, id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.sessions.Revoke(ctx, id)
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	if err := s.carts.Delete(ctx, cartKey); err != nil {
		s.log.Warn("failed to drop cart", zap.String("session_id", id), zap.Error(err))
	}
	return nil
}

// Me describes the session.
func (s *AuthService) Me(sess *session.Session) *AuthResult {
	return describe(sess)
}

func describe(sess *session.Session) *AuthResult {
	res := &AuthResult{
		User:       sess.Identity(),
		State:      sess.State().String(),
		Registered: sess.IsRegistered(),
	}
	if role, ok := sess.Role(); ok {
		res.Dashboard = role.Dashboard()
	}
	return res
}

// UpdateProfile merges the update into the stored profile.
func (s *AuthService) UpdateProfile(ctx context.Context, sess *session.Session, in ProfileUpdate) (*models.Identity, error) {
	if !sess.IsRegistered() {
		return nil, ErrNotRegistered
	}
	u, err := s.users.FindByID(ctx, sess.UserID())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.SMS != nil {
		u.Notifications.SMS = *in.SMS
	}
	if err := s.accounts.Save(ctx, u); err != nil {
		return nil, err
	}
	sess.Apply(u)
	return u, nil
}

// RefreshUserData reloads the profile into the session.
func (s *AuthService) RefreshUserData(ctx context.Context, sess *session.Session) (*models.Identity, error) {
	u, err := s.users.FindByID(ctx, sess.UserID())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	s.backfillAgency(ctx, u)
	// Apply also promotes an unregistered session once its profile exists.
	sess.Apply(u)
	return u, nil
}
