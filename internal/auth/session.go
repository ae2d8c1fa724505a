// AngelaMos | 2026
// session.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

const (
	sessionPrefix   = "session:"
	familyPrefix    = "session_family:"
	userPrefix      = "user_sessions:"
	blacklistPrefix = "blacklist:"
)

// SessionStore keeps refresh sessions in redis. Each session key expires with
// its token; family and user index sets are trimmed on revocation.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session: %w", core.ErrTokenExpired)
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionPrefix+sess.TokenHash, payload, ttl)
	pipe.SAdd(ctx, familyPrefix+sess.FamilyID, sess.TokenHash)
	pipe.Expire(ctx, familyPrefix+sess.FamilyID, ttl)
	pipe.SAdd(ctx, userPrefix+sess.UserID, sess.FamilyID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (s *SessionStore) Get(ctx context.Context, tokenHash string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, sessionPrefix+tokenHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &sess, nil
}

// MarkUsed flips the used flag while keeping the key's TTL, so a replayed
// token can still be recognized as reuse.
func (s *SessionStore) MarkUsed(ctx context.Context, sess *Session) error {
	sess.Used = true

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.rdb.SetArgs(ctx, sessionPrefix+sess.TokenHash, payload, redis.SetArgs{
		KeepTTL: true,
		Mode:    "XX",
	}).Err()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("mark session used: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("mark session used: %w", err)
	}

	return nil
}

func (s *SessionStore) RevokeFamily(ctx context.Context, familyID string) error {
	hashes, err := s.rdb.SMembers(ctx, familyPrefix+familyID).Result()
	if err != nil {
		return fmt.Errorf("list family: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, sessionPrefix+h)
	}
	keys = append(keys, familyPrefix+familyID)

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke family: %w", err)
	}

	return nil
}

func (s *SessionStore) RevokeUser(ctx context.Context, userID string) error {
	families, err := s.rdb.SMembers(ctx, userPrefix+userID).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	for _, f := range families {
		if err := s.RevokeFamily(ctx, f); err != nil {
			return err
		}
	}

	return s.rdb.Del(ctx, userPrefix+userID).Err()
}

func (s *SessionStore) BlacklistAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (s *SessionStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}
