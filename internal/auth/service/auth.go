package service

import (
	"context"
	"errors"
	"time"

	autherrors "campushub/internal/auth/errors"
	"campushub/internal/auth/repository"
	userserrors "campushub/internal/users/errors"
	usersrepo "campushub/internal/users/repository"
	usersvalidator "campushub/internal/users/validator"
	"campushub/pkg/config"
	apperrors "campushub/pkg/errors"
	"campushub/pkg/model"

	"github.com/google/uuid"
)

// AuthService issues and resolves opaque session tokens. A session is a
// stored projection of the user at login time; SyncUser keeps the
// projections honest when the directory changes underneath them.
type AuthService interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.Session, error)
	Logout(ctx context.Context, token string) error
	Session(ctx context.Context, token string) (*model.Session, error)
	SyncUser(ctx context.Context, userID string) error
}

type authService struct {
	sessions  repository.SessionRepository
	users     usersrepo.UserRepository
	validator *usersvalidator.UserValidator
	cfg       *config.Config
}

func NewAuthService(
	sessions repository.SessionRepository,
	users usersrepo.UserRepository,
	userValidator *usersvalidator.UserValidator,
	cfg *config.Config,
) AuthService {
	return &authService{
		sessions:  sessions,
		users:     users,
		validator: userValidator,
		cfg:       cfg,
	}
}

// Login matches the credentials against the directory and mints a new
// session. Bad credentials and unknown usernames are deliberately
// indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.Session, error) {
	if err := s.validator.ValidateLogin(req); err != nil {
		s.cfg.Log.Warn("Login validation failed", "username", req.Username, "error", err)
		return nil, apperrors.Validation("Invalid login input", map[string]any{"error": err.Error()})
	}

	user, err := s.users.FindByCredentials(ctx, req.Username, req.PIN)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			s.cfg.Log.Warn("Login refused", "username", req.Username)
			return nil, apperrors.Unauthorized("Unknown username or wrong pin")
		}
		return nil, apperrors.Internal("Failed to verify credentials", err)
	}

	session := &model.Session{
		Token:     uuid.New().String(),
		User:      user.Projection(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.Internal("Failed to create session", err)
	}

	s.cfg.Log.Info("Login succeeded", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return session, nil
}

// Logout revokes the token. Revoking an already-dead token is fine.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.Unauthorized("Missing session token")
	}

	err := s.sessions.Delete(ctx, token)
	if err != nil && !errors.Is(err, autherrors.ErrSessionNotFound) {
		return apperrors.Internal("Failed to delete session", err)
	}

	s.cfg.Log.Info("Logout", "token_present", true)
	return nil
}

func (s *authService) Session(ctx context.Context, token string) (*model.Session, error) {
	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, autherrors.ErrSessionNotFound) {
			return nil, apperrors.Unauthorized("Session expired or revoked")
		}
		return nil, apperrors.Internal("Failed to resolve session", err)
	}
	return session, nil
}

// SyncUser reconciles sessions with the directory after an edit or
// delete: a deleted user loses every session, an edited user gets the
// fresh projection pushed into theirs.
func (s *authService) SyncUser(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
				return apperrors.Internal("Failed to revoke sessions", err)
			}
			s.cfg.Log.Info("Sessions revoked for deleted user", "user_id", userID)
			return nil
		}
		return apperrors.Internal("Failed to load user", err)
	}

	if err := s.sessions.UpdateProjections(ctx, user.Projection()); err != nil {
		return apperrors.Internal("Failed to refresh session projections", err)
	}
	return nil
}
