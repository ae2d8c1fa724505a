// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
	ErrAccountSuspended   = errors.New("account suspended")
)

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Tier         string
	TokenVersion int
	IsSuspended  bool
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, email, passwordHash, name string) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
}

type Service struct {
	jwt      *JWTManager
	sessions *SessionStore
	users    UserProvider
	now      func() time.Time
}

func NewService(jwt *JWTManager, sessions *SessionStore, users UserProvider) *Service {
	return &Service{
		jwt:      jwt,
		sessions: sessions,
		users:    users,
		now:      time.Now,
	}
}

type ClientInfo struct {
	UserAgent string
	IPAddress string
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	client ClientInfo,
) (*AuthResponse, error) {
	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, req.Email, hash, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(ctx, u, client, "")
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	client ClientInfo,
) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // equalizes timing for unknown emails
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := core.VerifyPasswordTimingSafe(req.Password, &u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if u.IsSuspended {
		return nil, ErrAccountSuspended
	}

	return s.issue(ctx, u, client, "")
}

// Refresh rotates a refresh token. Presenting an already rotated token
// revokes the whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
	client ClientInfo,
) (*AuthResponse, error) {
	sess, err := s.sessions.Get(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, err
	}

	if sess.Used {
		//nolint:errcheck // revocation is best effort, reuse is reported regardless
		_ = s.sessions.RevokeFamily(ctx, sess.FamilyID)
		return nil, ErrTokenReuse
	}

	if sess.IsExpired(s.now()) {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.IsSuspended {
		return nil, ErrAccountSuspended
	}

	if err := s.sessions.MarkUsed(ctx, sess); err != nil {
		return nil, err
	}

	return s.issue(ctx, u, client, sess.FamilyID)
}

func (s *Service) Logout(ctx context.Context, refreshToken, userID, jti string) error {
	sess, err := s.sessions.Get(ctx, core.HashToken(refreshToken))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}

	if sess != nil {
		if sess.UserID != userID {
			return fmt.Errorf("logout: %w", core.ErrForbidden)
		}
		if err := s.sessions.RevokeFamily(ctx, sess.FamilyID); err != nil {
			return err
		}
	}

	return s.sessions.BlacklistAccessToken(ctx, jti, s.now().Add(s.jwt.AccessTTL()))
}

func (s *Service) LogoutAll(ctx context.Context, userID, jti string) error {
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return s.sessions.BlacklistAccessToken(ctx, jti, s.now().Add(s.jwt.AccessTTL()))
}

func (s *Service) issue(
	ctx context.Context,
	u *UserInfo,
	client ClientInfo,
	familyID string,
) (*AuthResponse, error) {
	access, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       u.ID,
		Role:         u.Role,
		Tier:         u.Tier,
		TokenVersion: u.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refresh, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	if familyID == "" {
		familyID = uuid.New().String()
	}

	now := s.now()
	if err := s.sessions.Save(ctx, &Session{
		TokenHash: core.HashToken(refresh),
		UserID:    u.ID,
		FamilyID:  familyID,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwt.RefreshTTL()),
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResponse{
		User: UserResponse{
			ID:    u.ID,
			Email: u.Email,
			Name:  u.Name,
			Role:  u.Role,
			Tier:  u.Tier,
		},
		Tokens: TokenResponse{
			AccessToken:  access.Token,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    int(s.jwt.AccessTTL().Seconds()),
			ExpiresAt:    access.ExpiresAt,
		},
	}, nil
}
