package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
	"github.com/vozsegura/vozsegura-api/pkg/secrets"
)

type userAdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

type userRuleRepository interface {
	DeactivateBySupervisor(ctx context.Context, supervisorID string) error
}

// UserCreateRequest carries the payload for an admin creating an account.
type UserCreateRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required"`
	FirstName string          `json:"first_name" validate:"omitempty,min=2"`
	LastName  string          `json:"last_name" validate:"omitempty,min=2"`
	Phone     string          `json:"phone" validate:"omitempty,numeric,len=10"`
	Role      models.UserRole `json:"role" validate:"required,oneof=ADMIN SUPERVISOR REPORTER"`
}

// UserUpdateRequest carries the payload for updating an account.
type UserUpdateRequest struct {
	FirstName string            `json:"first_name" validate:"omitempty,min=2"`
	LastName  string            `json:"last_name" validate:"omitempty,min=2"`
	Phone     string            `json:"phone" validate:"omitempty,numeric,len=10"`
	Role      models.UserRole   `json:"role" validate:"required,oneof=ADMIN SUPERVISOR REPORTER"`
	Status    models.UserStatus `json:"status" validate:"required,oneof=ACTIVE INACTIVE LOCKED"`
}

// UserService implements account administration. PII columns are encrypted
// at rest; reads decrypt for admins and mask for everyone else.
type UserService struct {
	repo      userAdminRepository
	rules     userRuleRepository
	secrets   *secrets.Store
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userAdminRepository, rules userRuleRepository, store *secrets.Store, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, rules: rules, secrets: store, audit: audit, validator: validate, logger: logger}
}

// List returns user profiles matching the filter.
func (s *UserService) List(ctx context.Context, viewer models.UserRole, filter models.UserFilter) ([]models.UserProfile, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	profiles := make([]models.UserProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, s.profile(&users[i], viewer))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return profiles, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one user profile.
func (s *UserService) Get(ctx context.Context, viewer models.UserRole, id string) (*models.UserProfile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	profile := s.profile(user, viewer)
	return &profile, nil
}

// Create adds a new account on behalf of an administrator.
func (s *UserService) Create(ctx context.Context, actorID string, req UserCreateRequest) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := s.secrets.HashCredential(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Status:       models.StatusActive,
	}
	if user.FirstName, err = s.encryptOptional(req.FirstName); err != nil {
		return nil, err
	}
	if user.LastName, err = s.encryptOptional(req.LastName); err != nil {
		return nil, err
	}
	if user.Phone, err = s.encryptOptional(req.Phone); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionUserCreate,
		ResourceTable: strPtr("users"),
		ResourceID:    &user.ID,
		Success:       true,
	})

	profile := s.profile(user, models.RoleAdmin)
	return &profile, nil
}

// Update replaces profile fields, role and status of an account.
func (s *UserService) Update(ctx context.Context, actorID, id string, req UserUpdateRequest) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.FirstName, err = s.encryptOptional(req.FirstName); err != nil {
		return nil, err
	}
	if user.LastName, err = s.encryptOptional(req.LastName); err != nil {
		return nil, err
	}
	if user.Phone, err = s.encryptOptional(req.Phone); err != nil {
		return nil, err
	}
	user.Role = req.Role
	user.Status = req.Status

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionUserUpdate,
		ResourceTable: strPtr("users"),
		ResourceID:    &user.ID,
		Success:       true,
	})

	profile := s.profile(user, models.RoleAdmin)
	return &profile, nil
}

// Deactivate soft-deletes an account. Reporter accounts are never removed
// outright so their filed cases keep a valid owner. Deactivating a
// supervisor also retires the rules routing cases to it, so new cases fall
// through to the least-loaded active supervisor instead.
func (s *UserService) Deactivate(ctx context.Context, actorID, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.Role == models.RoleSupervisor {
		if err := s.rules.DeactivateBySupervisor(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire supervisor rules")
		}
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionUserDeactivate,
		ResourceTable: strPtr("users"),
		ResourceID:    &id,
		Success:       true,
	})

	return nil
}

// Delete permanently removes a supervisor account and retires every rule
// that routed cases to it. Non-supervisor accounts are refused; use
// Deactivate for those.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.Role != models.RoleSupervisor {
		return appErrors.Clone(appErrors.ErrForbidden, "only supervisor accounts can be deleted")
	}

	if err := s.rules.DeactivateBySupervisor(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire supervisor rules")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionUserDelete,
		ResourceTable: strPtr("users"),
		ResourceID:    &id,
		Success:       true,
	})

	return nil
}

func (s *UserService) profile(user *models.User, viewer models.UserRole) models.UserProfile {
	profile := models.UserProfile{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		LastLogin: user.LastLogin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	decrypt := func(value *string) string {
		if value == nil {
			return ""
		}
		plaintext, err := s.secrets.DecryptField(*value)
		if err != nil {
			s.logger.Warn("failed to decrypt stored field", zap.Error(err))
			return ""
		}
		return plaintext
	}

	profile.FirstName = decrypt(user.FirstName)
	profile.LastName = decrypt(user.LastName)
	profile.Phone = decrypt(user.Phone)

	if viewer != models.RoleAdmin {
		if profile.FirstName != "" {
			profile.FirstName = secrets.MaskForDisplay(profile.FirstName)
		}
		if profile.LastName != "" {
			profile.LastName = secrets.MaskForDisplay(profile.LastName)
		}
		if profile.Phone != "" {
			profile.Phone = secrets.MaskForDisplay(profile.Phone)
		}
	}

	return profile
}

func (s *UserService) encryptOptional(value string) (*string, error) {
	if value == "" {
		return nil, nil
	}
	encrypted, err := s.secrets.EncryptField(value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encrypt field")
	}
	return &encrypted, nil
}
