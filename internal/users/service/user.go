package service

import (
	"context"
	"errors"

	authservice "campushub/internal/auth/service"
	userserrors "campushub/internal/users/errors"
	"campushub/internal/users/repository"
	"campushub/internal/users/validator"
	"campushub/pkg/config"
	apperrors "campushub/pkg/errors"
	"campushub/pkg/model"
	"campushub/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserService is the admin-facing directory. Every returned user is the
// full document, pin included; the directory page edits pins in place.
type UserService interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetAll(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, id string, update *model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	auth      authservice.AuthService
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	userValidator *validator.UserValidator,
	auth authservice.AuthService,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		validator: userValidator,
		auth:      auth,
		cfg:       cfg,
	}
}

// Create inserts a new directory entry. The duplicate-username check
// and the insert run in one transaction so two admins cannot race the
// same name in.
func (s *userService) Create(ctx context.Context, user *model.User) error {
	user.Username = sanitizer.CleanText(user.Username)
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	if err := s.validator.ValidateUser(user); err != nil {
		s.cfg.Log.Warn("User validation failed", "username", user.Username, "error", err)
		return apperrors.Validation("Invalid user input", map[string]any{"error": err.Error()})
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		_, err := s.repo.FindByUsername(sessCtx, user.Username)
		if err == nil {
			return apperrors.Conflict("Username already exists")
		}
		if !errors.Is(err, userserrors.ErrNotFound) {
			return err
		}

		return s.repo.Create(sessCtx, user)
	})
	if err != nil {
		if errors.Is(err, userserrors.ErrDuplicateUsername) {
			return apperrors.Conflict("Username already exists")
		}
		if apperrors.IsAppError(err) {
			return err
		}
		s.cfg.Log.Error("Failed to create user", "username", user.Username, "error", err)
		return apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User created", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		s.cfg.Log.Error("Failed to get user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *userService) GetAll(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list users", "error", err)
		return nil, apperrors.Internal("Failed to retrieve users", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// Update merges the partial edit over the stored user, re-validates and
// persists, then pushes the fresh projection into any live sessions.
func (s *userService) Update(ctx context.Context, id string, update *model.UserUpdate) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	update.Username = sanitizer.CleanText(update.Username)
	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.Warn("User update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid user input", map[string]any{"error": err.Error()})
	}

	var updated *model.User
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		user, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			if errors.Is(err, userserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("User", id)
			}
			return err
		}

		if update.Username != "" && update.Username != user.Username {
			existing, err := s.repo.FindByUsername(sessCtx, update.Username)
			if err == nil && existing.ID != id {
				return apperrors.Conflict("Username already exists")
			}
			if err != nil && !errors.Is(err, userserrors.ErrNotFound) {
				return err
			}
			user.Username = update.Username
		}
		if update.PIN != "" {
			user.PIN = update.PIN
		}
		if update.Role != "" {
			user.Role = update.Role
		}

		if err := s.repo.Update(sessCtx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		if errors.Is(err, userserrors.ErrDuplicateUsername) {
			return nil, apperrors.Conflict("Username already exists")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to update user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update user", err)
	}

	if err := s.auth.SyncUser(ctx, id); err != nil {
		s.cfg.Log.Error("Failed to sync sessions after user update", "id", id, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("User updated", "user_id", updated.ID, "username", updated.Username, "role", updated.Role)
	return updated, nil
}

// Delete removes the directory entry and revokes every session the
// user held.
func (s *userService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("User ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("User", id)
		}
		s.cfg.Log.Error("Failed to delete user", "id", id, "error", err)
		return apperrors.Internal("Failed to delete user", err)
	}

	if err := s.auth.SyncUser(ctx, id); err != nil {
		s.cfg.Log.Error("Failed to revoke sessions after user delete", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("User deleted", "user_id", id)
	return nil
}
