package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshPrefix = "refresh:"

var (
	ErrSessionRevoked = errors.New("session revoked or expired")
	ErrTokenReused    = errors.New("refresh token does not match the session")
)

// SessionRecord is what survives a restart: enough to rebuild a session from
// a still-valid token.
type SessionRecord struct {
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *TokenStore) Save(ctx context.Context, sessionID, userID, refreshToken string, ttl time.Duration) error {
	rec := SessionRecord{UserID: userID, TokenHash: HashToken(refreshToken), CreatedAt: time.Now().UTC()}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, refreshPrefix+sessionID, b, ttl).Err()
}

func (s *TokenStore) Lookup(ctx context.Context, sessionID string) (*SessionRecord, error) {
	b, err := s.rdb.Get(ctx, refreshPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionRevoked
	}
	if err != nil {
		return nil, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// luaRotate swaps the token hash only if the caller presented the current
// token. A stale token deletes the record. Returns 1 on swap, 0 on reuse and
// -1 when the session is gone.
const luaRotate = `
local cur = redis.call("get", KEYS[1])
if not cur then
  return -1
end
local rec = cjson.decode(cur)
if rec["token_hash"] ~= ARGV[1] then
  redis.call("del", KEYS[1])
  return 0
end
rec["token_hash"] = ARGV[2]
redis.call("set", KEYS[1], cjson.encode(rec), "PX", ARGV[3])
return 1
`

// Rotate swaps the stored refresh token in one step. A token that is not the
// current one revokes the session.
func (s *TokenStore) Rotate(ctx context.Context, sessionID, oldToken, newToken string, ttl time.Duration) error {
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	res, err := s.rdb.Eval(ctx, luaRotate, []string{refreshPrefix + sessionID}, HashToken(oldToken), HashToken(newToken), ms).Int()
	if err != nil {
		return err
	}
	return rotateResult(res)
}

func rotateResult(res int) error {
	switch res {
	case 1:
		return nil
	case 0:
		return ErrTokenReused
	default:
		return ErrSessionRevoked
	}
}

func (s *TokenStore) Revoke(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, refreshPrefix+sessionID).Err()
}
