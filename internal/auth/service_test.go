package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/elimucore/elimucore/internal/authz"
	"github.com/elimucore/elimucore/internal/shared"
)

type memoryAccounts struct {
	nextID   int64
	byEmail  map[string]*User
	byID     map[int64]*User
	sessions map[string]int64
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{
		nextID:   1,
		byEmail:  map[string]*User{},
		byID:     map[int64]*User{},
		sessions: map[string]int64{},
	}
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memoryAccounts) FindByID(_ context.Context, id int64) (*User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memoryAccounts) CreateWithApproval(_ context.Context, user User) (*User, error) {
	if _, ok := m.byEmail[user.Email]; ok {
		return nil, ErrEmailTaken
	}
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	stored := user
	m.byEmail[user.Email] = &stored
	m.byID[user.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *memoryAccounts) UpdateProfile(_ context.Context, id int64, name, phone string) (*User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	user.Name = name
	user.Phone = phone
	copied := *user
	return &copied, nil
}

func (m *memoryAccounts) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	user, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *memoryAccounts) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	user, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.LastLoginAt = &at
	return nil
}

func (m *memoryAccounts) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	m.sessions[id] = userID
	return nil
}

func (m *memoryAccounts) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memoryAccounts) DeleteExpiredSessions(_ context.Context) (int64, error) {
	return 0, nil
}

func (m *memoryAccounts) seed(t *testing.T, email, password string, role authz.Role, approved, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := m.CreateWithApproval(context.Background(), User{
		Name:         "Seed Account",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	require.NoError(t, err)
	m.byID[user.ID].IsApproved = approved
	m.byID[user.ID].IsActive = active
	return m.byID[user.ID]
}

func newAuthService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterOpensUnapprovedAccount(t *testing.T) {
	repo := newMemoryAccounts()
	svc := newAuthService(repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Wanjiku Kamau",
		Email:    "wanjiku@example.com",
		Password: "hunter2hunter2",
		Role:     authz.RoleTeacher,
	})
	require.NoError(t, err)
	require.False(t, user.IsApproved)
	require.NotEqual(t, "hunter2hunter2", user.PasswordHash)

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2hunter2")))
}

func TestRegisterRejectsPrivilegedRoles(t *testing.T) {
	svc := newAuthService(newMemoryAccounts())

	for _, role := range []authz.Role{authz.RoleBursar, authz.RolePrincipal, authz.RoleSuperAdmin} {
		_, err := svc.Register(context.Background(), RegisterInput{
			Name: "X", Email: "x@example.com", Password: "passwordpass", Role: role,
		})
		require.ErrorIs(t, err, ErrInvalidRole, "role %s", role)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMemoryAccounts()
	repo.seed(t, "mary@example.com", "correct-horse", authz.RoleTeacher, true, true)
	svc := newAuthService(repo)

	_, err := svc.Authenticate(context.Background(), "mary@example.com", "wrong-horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := newAuthService(newMemoryAccounts())

	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticatePendingApproval(t *testing.T) {
	repo := newMemoryAccounts()
	repo.seed(t, "new@example.com", "correct-horse", authz.RoleParent, false, true)
	svc := newAuthService(repo)

	_, err := svc.Authenticate(context.Background(), "new@example.com", "correct-horse")
	var deny *authz.DenyError
	require.ErrorAs(t, err, &deny)
	require.Equal(t, authz.DenyPendingApproval, deny.Reason)
}

func TestAuthenticateDeactivatedAccount(t *testing.T) {
	repo := newMemoryAccounts()
	repo.seed(t, "gone@example.com", "correct-horse", authz.RoleTeacher, true, false)
	svc := newAuthService(repo)

	_, err := svc.Authenticate(context.Background(), "gone@example.com", "correct-horse")
	var deny *authz.DenyError
	require.ErrorAs(t, err, &deny)
	require.Equal(t, authz.DenyInactive, deny.Reason)
}

func TestAuthenticateInactiveWinsOverPending(t *testing.T) {
	repo := newMemoryAccounts()
	repo.seed(t, "frozen@example.com", "correct-horse", authz.RoleTeacher, false, false)
	svc := newAuthService(repo)

	// A deactivated account reads as inactive even when its registration was
	// never reviewed, matching the guard's check order.
	_, err := svc.Authenticate(context.Background(), "frozen@example.com", "correct-horse")
	var deny *authz.DenyError
	require.ErrorAs(t, err, &deny)
	require.Equal(t, authz.DenyInactive, deny.Reason)
}

func TestAuthenticateTouchesLastLogin(t *testing.T) {
	repo := newMemoryAccounts()
	seeded := repo.seed(t, "ok@example.com", "correct-horse", authz.RoleTeacher, true, true)
	svc := newAuthService(repo)

	user, err := svc.Authenticate(context.Background(), "ok@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, user.ID)
	require.NotNil(t, repo.byID[seeded.ID].LastLoginAt)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	repo := newMemoryAccounts()
	seeded := repo.seed(t, "rotate@example.com", "old-secret-pw", authz.RoleTeacher, true, true)
	svc := newAuthService(repo)

	err := svc.ChangePassword(context.Background(), seeded.ID, "not-the-old-one", "new-secret-pw")
	require.ErrorIs(t, err, ErrPasswordMismatch)

	require.NoError(t, svc.ChangePassword(context.Background(), seeded.ID, "old-secret-pw", "new-secret-pw"))

	_, err = svc.Authenticate(context.Background(), "rotate@example.com", "new-secret-pw")
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), "rotate@example.com", "old-secret-pw")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoadPrincipalProjectsGuardView(t *testing.T) {
	repo := newMemoryAccounts()
	seeded := repo.seed(t, "guard@example.com", "correct-horse", authz.RoleBursar, true, true)
	svc := newAuthService(repo)

	principal, err := svc.LoadPrincipal(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, seeded.ID, principal.ID)
	require.Equal(t, authz.RoleBursar, principal.Role)
	require.True(t, principal.IsApproved)
	require.True(t, principal.IsActive)

	_, err = svc.LoadPrincipal(context.Background(), 9999)
	require.Error(t, err)
}
