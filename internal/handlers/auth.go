package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/auth"
	"github.com/yukikurage/timesheet-api/internal/constants"
	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/middleware"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	tokens      *auth.Manager
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. tokens may be nil, in which
// case login only opens a session.
func NewAuthHandler(authService *services.AuthService, tokens *auth.Manager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
		log:         log,
	}
}

// Signup registers a new user.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Username string `json:"username" binding:"required,min=3,max=50"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
		Email    string `json:"email" binding:"omitempty,email"`
		Position string `json:"position"`
		Site     string `json:"site"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), services.SignupInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
		Position: req.Position,
		Site:     req.Site,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Data(c, http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user, opens the session and issues a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		h.log.Error("failed to save session", zap.Uint64("user_id", user.ID), zap.Error(err))
		apierrors.InternalError(c, "Impossible d'enregistrer la session")
		return
	}

	resp := dto.AuthResponse{User: dto.ToUserDTO(*user)}
	if h.tokens != nil {
		token, expiresAt, err := h.tokens.Issue(user)
		if err != nil {
			h.log.Error("failed to issue token", zap.Uint64("user_id", user.ID), zap.Error(err))
			apierrors.InternalError(c, "")
			return
		}
		resp.Token = token
		resp.ExpiresAt = expiresAt
	}

	apierrors.Data(c, http.StatusOK, resp)
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Échec de la déconnexion")
		return
	}

	apierrors.Data(c, http.StatusOK, gin.H{"message": "Déconnecté"})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Non authentifié")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Data(c, http.StatusOK, dto.ToUserDTO(*user))
}

// ChangeRole sets the role of a user. ADMIN only.
func (h *AuthHandler) ChangeRole(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	user, err := h.authService.ChangeRole(c.Request.Context(), sub, userID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Data(c, http.StatusOK, dto.ToUserDTO(*user))
}
