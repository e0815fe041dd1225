package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CustomClaims binds a token to both the identity and the server-side
// session it was issued for.
type CustomClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

func NewJWTManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (j *JWTManager) AccessTTL() time.Duration  { return j.accessTTL }
func (j *JWTManager) RefreshTTL() time.Duration { return j.refreshTTL }

func (j *JWTManager) generate(userID, sessionID, audience string, ttl time.Duration) (string, time.Time, error) {
	now := j.now()
	exp := now.Add(ttl)
	claims := &CustomClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{audience},
			ID:        NewID(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	return signed, exp, err
}

func (j *JWTManager) GenerateAccessToken(userID, sessionID string) (string, time.Time, error) {
	return j.generate(userID, sessionID, audienceAccess, j.accessTTL)
}

func (j *JWTManager) GenerateRefreshToken(userID, sessionID string) (string, time.Time, error) {
	return j.generate(userID, sessionID, audienceRefresh, j.refreshTTL)
}

func (j *JWTManager) VerifyToken(tokenStr string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer), jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (j *JWTManager) ParseAccess(tokenStr string) (*CustomClaims, error) {
	return j.parse(tokenStr, audienceAccess)
}

func (j *JWTManager) ParseRefresh(tokenStr string) (*CustomClaims, error) {
	return j.parse(tokenStr, audienceRefresh)
}

func (j *JWTManager) parse(tokenStr, audience string) (*CustomClaims, error) {
	claims, err := j.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if !containsAudience(claims.Audience, audience) || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, target string) bool {
	for _, a := range aud {
		if a == target {
			return true
		}
	}
	return false
}
