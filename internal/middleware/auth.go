package middleware

import (
	"errors"
	"strings"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LocalSession is the fiber.Ctx local holding the caller's *session.Session.
const LocalSession = "session"

// bearer reads the access token from the Authorization header, or from the
// token query parameter for websocket handshakes.
func bearer(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return c.Query("token")
}

// Auth resolves the access token to a live session. Sessions unknown to this
// process are restored from the refresh-token store.
func Auth(jwt *utils.JWTManager, auth *services.AuthService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearer(c)
		if token == "" {
			return utils.JSONError(c, fiber.StatusUnauthorized, services.CodeInvalidCredentials, "missing authorization")
		}
		claims, err := jwt.ParseAccess(token)
		if err != nil {
			return utils.JSONError(c, fiber.StatusUnauthorized, services.CodeInvalidCredentials, "invalid or expired token")
		}
		sess, err := auth.Resume(c.UserContext(), claims.SessionID, claims.UserID)
		if err != nil {
			if errors.Is(err, services.ErrInvalidRefreshToken) {
				return utils.JSONError(c, fiber.StatusUnauthorized, services.CodeInvalidCredentials, "session has ended, sign in again")
			}
			log.Error("resume session failed", zap.String("session_id", claims.SessionID), zap.Error(err))
			return utils.JSONError(c, fiber.StatusInternalServerError, services.CodeInternal, services.ErrInternal.Error())
		}
		c.Locals(LocalSession, sess)
		return c.Next()
	}
}

// SessionFrom returns the session stored by Auth, or nil.
func SessionFrom(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(LocalSession).(*session.Session)
	return sess
}

// RequireRegistered rejects sessions without a profile.
func RequireRegistered() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil || !sess.IsRegistered() {
			return utils.JSONError(c, fiber.StatusForbidden, services.CodeNotRegistered, services.ErrNotRegistered.Error())
		}
		return c.Next()
	}
}

// RequireRoles lets registered sessions holding one of roles through.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil || !sess.IsRegistered() {
			return utils.JSONError(c, fiber.StatusForbidden, services.CodeNotRegistered, services.ErrNotRegistered.Error())
		}
		role, ok := sess.Role()
		if ok {
			for _, r := range roles {
				if r == role {
					return c.Next()
				}
			}
		}
		return utils.JSONError(c, fiber.StatusForbidden, services.CodeForbidden, "you do not have access to this resource")
	}
}
