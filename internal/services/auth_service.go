package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yukikurage/timesheet-api/internal/constants"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/repository"
)

var (
	ErrUsernameRequired   = validationError("Le nom d'utilisateur est obligatoire")
	ErrUsernameTaken      = conflictError("Ce nom d'utilisateur est déjà utilisé")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordTooShort   = validationError(fmt.Sprintf("Le mot de passe doit contenir au moins %d caractères", constants.MinPasswordLength))
	ErrInvalidRole        = validationError("Rôle invalide")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	repo   *repository.Repository
	policy *policy.Resolver
	audit  *AuditService
	log    *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *repository.Repository, resolver *policy.Resolver, audit *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		policy: resolver,
		audit:  audit,
		log:    log,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username string
	Password string
	Name     string
	Email    string
	Position string
	Site     string
}

// Signup creates a new EMPLOYEE account.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.repo.User.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		Position:     strings.TrimSpace(input.Position),
		Site:         strings.TrimSpace(input.Site),
		PasswordHash: string(hashedPassword),
		Role:         models.RoleEmployee,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user signed up", zap.Uint64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.repo.User.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.repo.User.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// ChangeRole sets the role of a user. Only ADMIN may do it.
func (s *AuthService) ChangeRole(ctx context.Context, sub policy.Subject, userID uint64, role models.Role) (*models.User, error) {
	if err := s.policy.Authorize(sub, policy.ActionChangeRole, policy.Resource{Kind: policy.KindUser}); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.Role
	if previous == role {
		return user, nil
	}

	if err := s.repo.User.UpdateRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	user.Role = role

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionUpdate,
		Entity:   models.AuditEntityUser,
		EntityID: user.ID,
		Before:   map[string]interface{}{"role": previous},
		After:    map[string]interface{}{"role": role},
	})
	s.log.Info("user role changed",
		zap.Uint64("user_id", user.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(role)),
		zap.Uint64("by", sub.UserID),
	)

	return user, nil
}
