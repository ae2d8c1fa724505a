// AngelaMos | 2026
// auth_test.go

package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*UserInfo)}
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) Create(ctx context.Context, email, hash, name string) (*UserInfo, error) {
	if _, err := m.GetByEmail(ctx, email); err == nil {
		return nil, core.ErrDuplicateKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &UserInfo{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: hash,
		Role:         "classified",
		Tier:         "free",
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) IncrementTokenVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

func newTestService(t *testing.T) (*Service, *JWTManager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	jwtMgr, err := NewJWTManagerFromKey(key, config.JWTConfig{
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "test",
		Audience:           "test-api",
	})
	require.NoError(t, err)

	sessions := NewSessionStore(rdb)
	jwtMgr.SetRevocations(sessions)

	return NewService(jwtMgr, sessions, newMemUsers()), jwtMgr, mr
}

func register(t *testing.T, svc *Service) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "dana@example.com",
		Password: "hunter2hunter2",
		Name:     "Dana",
	}, ClientInfo{})
	require.NoError(t, err)
	return resp
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	svc, jwtMgr, _ := newTestService(t)
	resp := register(t, svc)

	claims, err := jwtMgr.VerifyAccessToken(context.Background(), resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "free", claims.Tier)
	assert.NotEmpty(t, claims.JTI)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "DANA@example.com", Password: "another-password", Name: "D",
	}, ClientInfo{})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email: "dana@example.com", Password: "wrong-password",
	}, ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginRequest{
		Email: "nobody@example.com", Password: "wrong-password",
	}, ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotationAndReuseDetection(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	first := register(t, svc)

	second, err := svc.Refresh(ctx, first.Tokens.RefreshToken, ClientInfo{})
	require.NoError(t, err)
	assert.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	_, err = svc.Refresh(ctx, first.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, ErrTokenReuse)

	_, err = svc.Refresh(ctx, second.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	svc, jwtMgr, _ := newTestService(t)
	ctx := context.Background()
	resp := register(t, svc)

	claims, err := jwtMgr.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.Tokens.RefreshToken, resp.User.ID, claims.JTI))

	_, err = jwtMgr.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = svc.Refresh(ctx, resp.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc)

	err := svc.Logout(context.Background(), resp.Tokens.RefreshToken, "someone-else", "")
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, jwtMgr, _ := newTestService(t)
	_, err := jwtMgr.VerifyAccessToken(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}
