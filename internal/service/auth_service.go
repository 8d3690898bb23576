package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
	"github.com/vozsegura/vozsegura-api/pkg/secrets"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RegisterFailedAttempt(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	ResetLockout(ctx context.Context, id string) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry *models.AuditEntry)
}

// dummyHash is compared against when the email is unknown so a missing
// account costs the same bcrypt work as a wrong password.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret     string
	TokenExpiry     time.Duration
	Issuer          string
	MaxAttempts     int
	LockoutDuration time.Duration
}

// AuthService provides login, registration and session validation.
type AuthService struct {
	repo      authUserRepository
	secrets   *secrets.Store
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, store *secrets.Store, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = 15 * time.Minute
	}
	return &AuthService{repo: repo, secrets: store, audit: audit, validator: validate, logger: logger, config: config}
}

// Login authenticates a user and returns an issued token.
//
// Unknown email and wrong password produce byte-identical error responses
// so the endpoint cannot be used to probe which accounts exist. Failed
// attempts are counted in a single conditional UPDATE at the storage layer,
// so concurrent wrong guesses cannot slip past the lockout threshold.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.secrets.VerifyCredential(req.Password, dummyHash)
			s.recordLoginFailure(ctx, nil, req, "unknown email")
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	now := time.Now().UTC()

	if user.TemporarilyLocked(now) {
		s.recordLoginFailure(ctx, &user.ID, req, "account locked")
		return nil, appErrors.Clone(appErrors.ErrAccountLocked, "")
	}

	// An expired lockout window resets the counter before the attempt is
	// judged, so the next failure starts a fresh count.
	if user.LockedUntil != nil {
		if err := s.repo.ResetLockout(ctx, user.ID); err != nil {
			s.logger.Warn("failed to clear expired lockout", zap.Error(err))
		}
		user.FailedAttempts = 0
		user.LockedUntil = nil
	}

	if user.Status != models.StatusActive {
		s.recordLoginFailure(ctx, &user.ID, req, "account not active")
		if user.Status == models.StatusLocked {
			return nil, appErrors.Clone(appErrors.ErrAccountLocked, "account locked by an administrator")
		}
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	if !s.secrets.VerifyCredential(req.Password, user.PasswordHash) {
		attempts, lockedUntil, err := s.repo.RegisterFailedAttempt(ctx, user.ID, s.config.MaxAttempts, now.Add(s.config.LockoutDuration))
		if err != nil {
			s.logger.Warn("failed to register failed login attempt", zap.Error(err))
		}
		s.recordLoginFailure(ctx, &user.ID, req, fmt.Sprintf("wrong password, attempt %d", attempts))

		if lockedUntil != nil && now.Before(*lockedUntil) {
			return nil, appErrors.Clone(appErrors.ErrAccountLocked, "")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if user.FailedAttempts > 0 {
		if err := s.repo.ResetLockout(ctx, user.ID); err != nil {
			s.logger.Warn("failed to reset lockout after successful login", zap.Error(err))
		}
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create token")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:   &user.ID,
		Action:    models.AuditActionLogin,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		Success:   true,
	})

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(time.Until(expiresAt).Seconds()),
		IssuedAt:  now,
		User:      s.userInfo(user),
	}, nil
}

// Register creates a reporter account. PII fields are encrypted before they
// reach storage.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
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

	role := req.Role
	if role == "" {
		role = models.RoleReporter
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
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
		ActorID:       &user.ID,
		Action:        models.AuditActionUserCreate,
		ResourceTable: strPtr("users"),
		ResourceID:    &user.ID,
		IPAddress:     req.IP,
		UserAgent:     req.UserAgent,
		Success:       true,
	})

	return &models.UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      user.Role,
	}, nil
}

// Me returns the authenticated account with PII decrypted.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	info := s.userInfo(user)
	return &info, nil
}

// ChangePassword updates the password for an authenticated user after
// verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !s.secrets.VerifyCredential(oldPassword, user.PasswordHash) {
		return appErrors.Clone(appErrors.ErrForbidden, "current password does not match")
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := s.secrets.HashCredential(newPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &userID,
		Action:        models.AuditActionPasswordChange,
		ResourceTable: strPtr("users"),
		ResourceID:    &userID,
		Success:       true,
	})

	return nil
}

// ValidateToken parses and validates a session token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) userInfo(user *models.User) models.UserInfo {
	info := models.UserInfo{ID: user.ID, Email: user.Email, Role: user.Role}
	info.FirstName = s.decryptLenient(user.FirstName)
	info.LastName = s.decryptLenient(user.LastName)
	return info
}

func (s *AuthService) encryptOptional(value string) (*string, error) {
	if value == "" {
		return nil, nil
	}
	encrypted, err := s.secrets.EncryptField(value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encrypt field")
	}
	return &encrypted, nil
}

func (s *AuthService) decryptLenient(value *string) string {
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

func (s *AuthService) recordLoginFailure(ctx context.Context, actorID *string, req models.LoginRequest, reason string) {
	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:   actorID,
		Action:    models.AuditActionLoginFailed,
		Detail:    []byte(fmt.Sprintf(`{"reason":%q}`, reason)),
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		Success:   false,
	})
}

func strPtr(s string) *string {
	return &s
}
