// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/lovelistings/internal/tier"
)

type UpdateUserRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=classified admin"`
}

type UpdateUserTierRequest struct {
	Tier  string     `json:"tier"                 validate:"required,oneof=free basic vip elite"`
	Until *time.Time `json:"expires_at,omitempty"`
}

type SuspendUserRequest struct {
	Suspended bool `json:"suspended"`
}

type UserResponse struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Role         string            `json:"role"`
	Tier         string            `json:"tier"`
	TierExpires  *time.Time        `json:"tier_expires,omitempty"`
	LoveCoins    int               `json:"love_coins"`
	IsVerified   bool              `json:"is_verified"`
	IsSuspended  bool              `json:"is_suspended"`
	Entitlements tier.Entitlements `json:"entitlements"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
	Tier     string `json:"tier"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		Tier:         string(u.TierLevel()),
		TierExpires:  u.TierExpires,
		LoveCoins:    u.LoveCoins,
		IsVerified:   u.IsVerified,
		IsSuspended:  u.IsSuspended,
		Entitlements: u.Entitlements(),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return out
}
