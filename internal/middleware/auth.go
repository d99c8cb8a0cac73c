package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yukikurage/timesheet-api/internal/auth"
	"github.com/yukikurage/timesheet-api/internal/constants"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/repository"
)

// RequireAuth authenticates the caller from the session cookie, or from an
// "Authorization: Bearer" token when there is no session. The role is read
// from the database on every request so a role change applies at once.
func RequireAuth(users repository.UserRepository, tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			userID, ok = bearerUserID(c, tokens)
		}
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUserRole, user.Role)
		c.Next()
	}
}

func sessionUserID(c *gin.Context) (uint64, bool) {
	session := sessions.Default(c)
	return toUint64(session.Get(constants.ContextKeyUserID))
}

func bearerUserID(c *gin.Context, tokens *auth.Manager) (uint64, bool) {
	if tokens == nil {
		return 0, false
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, false
	}

	claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, false
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return userID, true
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetSubject returns the authenticated caller for permission checks
func GetSubject(c *gin.Context) (policy.Subject, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return policy.Subject{}, false
	}
	role, _ := c.Get(constants.ContextKeyUserRole)
	r, _ := role.(models.Role)
	return policy.Subject{UserID: userID, Role: r}, true
}

func toUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
