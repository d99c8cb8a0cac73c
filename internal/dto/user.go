package dto

import (
	"time"

	"github.com/yukikurage/timesheet-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64      `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name,omitempty"`
	Email    string      `json:"email,omitempty"`
	Role     models.Role `json:"role"`
	Position string      `json:"position,omitempty"`
	Site     string      `json:"site,omitempty"`
}

// UserSummaryDTO is the short form embedded in other resources
type UserSummaryDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// AuthResponse is returned by login: the user plus a bearer token for
// clients that do not keep the session cookie.
type AuthResponse struct {
	User      UserDTO   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		Position: user.Position,
		Site:     user.Site,
	}
}

// toUserSummary returns nil when the relation was not preloaded
func toUserSummary(user models.User) *UserSummaryDTO {
	if user.ID == 0 {
		return nil
	}
	return &UserSummaryDTO{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.DisplayName(),
	}
}
