package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
)

type mockUserAdminRepo struct {
	users       map[string]*models.User
	deactivated []string
	deleted     []string
}

func (m *mockUserAdminRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserAdminRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserAdminRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "new-user"
	m.users[user.ID] = user
	return nil
}

func (m *mockUserAdminRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserAdminRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *mockUserAdminRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

func (m *mockUserAdminRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, len(out), nil
}

type mockUserRules struct {
	retired []string
}

func (m *mockUserRules) DeactivateBySupervisor(ctx context.Context, supervisorID string) error {
	m.retired = append(m.retired, supervisorID)
	return nil
}

func encryptedUser(t *testing.T, id string, role models.UserRole) *models.User {
	t.Helper()
	encrypt := func(value string) *string {
		encrypted, err := testStore.EncryptField(value)
		require.NoError(t, err)
		return &encrypted
	}
	return &models.User{
		ID:        id,
		Email:     id + "@example.com",
		FirstName: encrypt("Maria"),
		LastName:  encrypt("Lopez"),
		Phone:     encrypt("5512345678"),
		Role:      role,
		Status:    models.StatusActive,
	}
}

func newUserService(repo *mockUserAdminRepo, rules *mockUserRules, audit *mockAudit) *UserService {
	return NewUserService(repo, rules, testStore, audit, validator.New(), zap.NewNop())
}

func TestUserGetDecryptsForAdmin(t *testing.T) {
	repo := &mockUserAdminRepo{users: map[string]*models.User{"u1": encryptedUser(t, "u1", models.RoleReporter)}}
	svc := newUserService(repo, &mockUserRules{}, &mockAudit{})

	profile, err := svc.Get(context.Background(), models.RoleAdmin, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Maria", profile.FirstName)
	assert.Equal(t, "5512345678", profile.Phone)
}

func TestUserGetMasksForSupervisor(t *testing.T) {
	repo := &mockUserAdminRepo{users: map[string]*models.User{"u1": encryptedUser(t, "u1", models.RoleReporter)}}
	svc := newUserService(repo, &mockUserRules{}, &mockAudit{})

	profile, err := svc.Get(context.Background(), models.RoleSupervisor, "u1")
	require.NoError(t, err)
	assert.Equal(t, "M****", profile.FirstName)
	assert.Equal(t, "L****", profile.LastName)
	assert.NotContains(t, profile.Phone, "5512345678")
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	existing := encryptedUser(t, "u1", models.RoleReporter)
	repo := &mockUserAdminRepo{users: map[string]*models.User{"u1": existing}}
	svc := newUserService(repo, &mockUserRules{}, &mockAudit{})

	_, err := svc.Create(context.Background(), "admin-1", UserCreateRequest{
		Email:    existing.Email,
		Password: "Str0ng!pass",
		Role:     models.RoleReporter,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserDeleteRefusesReporter(t *testing.T) {
	repo := &mockUserAdminRepo{users: map[string]*models.User{"u1": encryptedUser(t, "u1", models.RoleReporter)}}
	svc := newUserService(repo, &mockUserRules{}, &mockAudit{})

	err := svc.Delete(context.Background(), "admin-1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestUserDeleteSupervisorRetiresRules(t *testing.T) {
	repo := &mockUserAdminRepo{users: map[string]*models.User{"s1": encryptedUser(t, "s1", models.RoleSupervisor)}}
	rules := &mockUserRules{}
	audit := &mockAudit{}
	svc := newUserService(repo, rules, audit)

	require.NoError(t, svc.Delete(context.Background(), "admin-1", "s1"))
	assert.Equal(t, []string{"s1"}, rules.retired)
	assert.Equal(t, []string{"s1"}, repo.deleted)
	assert.Equal(t, models.AuditActionUserDelete, audit.lastAction())
}

func TestUserDeactivateSoftDeletes(t *testing.T) {
	repo := &mockUserAdminRepo{users: map[string]*models.User{"u1": encryptedUser(t, "u1", models.RoleReporter)}}
	audit := &mockAudit{}
	rules := &mockUserRules{}
	svc := newUserService(repo, rules, audit)

	require.NoError(t, svc.Deactivate(context.Background(), "admin-1", "u1"))
	assert.Equal(t, []string{"u1"}, repo.deactivated)
	assert.Empty(t, repo.deleted)
	assert.Empty(t, rules.retired)
	assert.Equal(t, models.AuditActionUserDeactivate, audit.lastAction())
}

func TestUserDeactivateSupervisorRetiresRules(t *testing.T) {
	repo := &mockUserAdminRepo{users: map[string]*models.User{"s1": encryptedUser(t, "s1", models.RoleSupervisor)}}
	rules := &mockUserRules{}
	svc := newUserService(repo, rules, &mockAudit{})

	require.NoError(t, svc.Deactivate(context.Background(), "admin-1", "s1"))
	assert.Equal(t, []string{"s1"}, rules.retired)
	assert.Equal(t, []string{"s1"}, repo.deactivated)
	assert.Empty(t, repo.deleted)
}
