package service

import (
	"context"
	"net/http"
	"testing"

	autherrors "campushub/internal/auth/errors"
	userserrors "campushub/internal/users/errors"
	usersvalidator "campushub/internal/users/validator"
	"campushub/pkg/config"
	mongotx "campushub/pkg/db/mongo"
	apperrors "campushub/pkg/errors"
	"campushub/pkg/logger"
	"campushub/pkg/model"
)

// ────────────────────────────────────────────────
// In-memory repositories for testing
// ────────────────────────────────────────────────

type memorySessionRepository struct {
	sessions map[string]*model.Session
}

func newMemorySessionRepository() *memorySessionRepository {
	return &memorySessionRepository{sessions: map[string]*model.Session{}}
}

func (m *memorySessionRepository) Create(ctx context.Context, session *model.Session) error {
	clone := *session
	m.sessions[session.Token] = &clone
	return nil
}

func (m *memorySessionRepository) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	session, ok := m.sessions[token]
	if !ok {
		return nil, autherrors.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (m *memorySessionRepository) Delete(ctx context.Context, token string) error {
	if _, ok := m.sessions[token]; !ok {
		return autherrors.ErrSessionNotFound
	}
	delete(m.sessions, token)
	return nil
}

func (m *memorySessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	for token, session := range m.sessions {
		if session.User.ID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *memorySessionRepository) UpdateProjections(ctx context.Context, user model.SessionUser) error {
	for _, session := range m.sessions {
		if session.User.ID == user.ID {
			session.User.Username = user.Username
			session.User.Role = user.Role
		}
	}
	return nil
}

type fixedUserRepository struct {
	users map[string]*model.User
}

func (m *fixedUserRepository) Create(ctx context.Context, user *model.User) error { return nil }

func (m *fixedUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	return user, nil
}

func (m *fixedUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, userserrors.ErrNotFound
}

func (m *fixedUserRepository) FindByCredentials(ctx context.Context, username, pin string) (*model.User, error) {
	for _, user := range m.users {
		if user.Username == username && user.PIN == pin {
			return user, nil
		}
	}
	return nil, userserrors.ErrNotFound
}

func (m *fixedUserRepository) FindAll(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}

func (m *fixedUserRepository) Update(ctx context.Context, user *model.User) error { return nil }

func (m *fixedUserRepository) Delete(ctx context.Context, id string) error { return nil }

func (m *fixedUserRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func newTestAuthService(sessions *memorySessionRepository, users *fixedUserRepository) AuthService {
	log := logger.New(logger.Config{Level: logger.LevelError, Service: "test"})
	cfg := &config.Config{Log: log}
	return NewAuthService(sessions, users, usersvalidator.NewUserValidator(log), cfg)
}

func directory() *fixedUserRepository {
	return &fixedUserRepository{users: map[string]*model.User{
		"1": {ID: "1", Username: "admin", PIN: "1234", Role: model.RoleAdmin},
		"2": {ID: "2", Username: "user1", PIN: "1111", Role: model.RoleUser},
	}}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	return apperrors.AsAppError(err).HTTPStatus
}

// ────────────────────────────────────────────────
// Login / Logout / Session
// ────────────────────────────────────────────────

func TestLogin_MintsSessionWithoutPin(t *testing.T) {
	sessions := newMemorySessionRepository()
	svc := newTestAuthService(sessions, directory())

	session, err := svc.Login(context.Background(), &model.LoginRequest{Username: "admin", PIN: "1234"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.Token == "" {
		t.Error("expected non-empty token")
	}
	if session.User.ID != "1" || session.User.Username != "admin" || session.User.Role != model.RoleAdmin {
		t.Errorf("projection = %+v", session.User)
	}
	if _, ok := sessions.sessions[session.Token]; !ok {
		t.Error("session not stored")
	}
}

func TestLogin_WrongPinIs401(t *testing.T) {
	svc := newTestAuthService(newMemorySessionRepository(), directory())

	_, err := svc.Login(context.Background(), &model.LoginRequest{Username: "admin", PIN: "9999"})
	if status := statusOf(t, err); status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownUsernameIs401(t *testing.T) {
	svc := newTestAuthService(newMemorySessionRepository(), directory())

	_, err := svc.Login(context.Background(), &model.LoginRequest{Username: "ghost", PIN: "1234"})
	if status := statusOf(t, err); status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestLogin_MalformedPinFailsValidation(t *testing.T) {
	svc := newTestAuthService(newMemorySessionRepository(), directory())

	_, err := svc.Login(context.Background(), &model.LoginRequest{Username: "admin", PIN: "12ab"})
	if status := statusOf(t, err); status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
}

func TestSession_ResolvesStoredToken(t *testing.T) {
	sessions := newMemorySessionRepository()
	svc := newTestAuthService(sessions, directory())

	created, err := svc.Login(context.Background(), &model.LoginRequest{Username: "user1", PIN: "1111"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	resolved, err := svc.Session(context.Background(), created.Token)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if resolved.User != created.User {
		t.Errorf("resolved user = %+v, want %+v", resolved.User, created.User)
	}
}

func TestSession_StaleTokenIs401(t *testing.T) {
	svc := newTestAuthService(newMemorySessionRepository(), directory())

	_, err := svc.Session(context.Background(), "gone")
	if status := statusOf(t, err); status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	sessions := newMemorySessionRepository()
	svc := newTestAuthService(sessions, directory())

	created, err := svc.Login(context.Background(), &model.LoginRequest{Username: "user1", PIN: "1111"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := svc.Logout(context.Background(), created.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := svc.Session(context.Background(), created.Token); err == nil {
		t.Error("token still resolves after logout")
	}
}

func TestLogout_DeadTokenIsIdempotent(t *testing.T) {
	svc := newTestAuthService(newMemorySessionRepository(), directory())

	if err := svc.Logout(context.Background(), "already-gone"); err != nil {
		t.Fatalf("Logout of dead token should succeed, got %v", err)
	}
}

// ────────────────────────────────────────────────
// SyncUser
// ────────────────────────────────────────────────

func TestSyncUser_DeletedUserLosesSessions(t *testing.T) {
	sessions := newMemorySessionRepository()
	users := directory()
	svc := newTestAuthService(sessions, users)

	created, err := svc.Login(context.Background(), &model.LoginRequest{Username: "user1", PIN: "1111"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	delete(users.users, "2")
	if err := svc.SyncUser(context.Background(), "2"); err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}

	if _, err := svc.Session(context.Background(), created.Token); err == nil {
		t.Error("session survived user deletion")
	}
}

func TestSyncUser_EditRefreshesProjection(t *testing.T) {
	sessions := newMemorySessionRepository()
	users := directory()
	svc := newTestAuthService(sessions, users)

	created, err := svc.Login(context.Background(), &model.LoginRequest{Username: "user1", PIN: "1111"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	users.users["2"].Username = "renamed"
	users.users["2"].Role = model.RoleAdmin
	if err := svc.SyncUser(context.Background(), "2"); err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}

	resolved, err := svc.Session(context.Background(), created.Token)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if resolved.User.Username != "renamed" || resolved.User.Role != model.RoleAdmin {
		t.Errorf("projection not refreshed: %+v", resolved.User)
	}
}
