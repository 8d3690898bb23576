package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
	"github.com/vozsegura/vozsegura-api/pkg/secrets"
)

type recoveryCodeStore interface {
	StoreCode(ctx context.Context, email, code string, ttl time.Duration) error
	ConsumeCode(ctx context.Context, email string) (string, error)
}

type recoveryUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// RecoveryConfig governs one-time recovery codes.
type RecoveryConfig struct {
	CodeTTL time.Duration
}

// RecoveryService implements password recovery through identity
// re-verification. The request step issues a short-lived one-time code only
// when every supplied identity attribute matches the account on file; the
// complete step redeems that code for a password change. Unlike login, a
// mismatch here names the failing attribute. The flow trades enumeration
// resistance for usability on purpose.
type RecoveryService struct {
	repo      recoveryUserRepository
	codes     recoveryCodeStore
	secrets   *secrets.Store
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    RecoveryConfig
}

// NewRecoveryService constructs a RecoveryService instance.
func NewRecoveryService(repo recoveryUserRepository, codes recoveryCodeStore, store *secrets.Store, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config RecoveryConfig) *RecoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.CodeTTL <= 0 {
		config.CodeTTL = 5 * time.Minute
	}
	return &RecoveryService{repo: repo, codes: codes, secrets: store, audit: audit, validator: validate, logger: logger, config: config}
}

// Request starts the recovery flow. All identity attributes must match the
// decrypted values on file; a mismatch is rejected with an error naming the
// first failing attribute.
func (s *RecoveryService) Request(ctx context.Context, req models.RecoveryRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recovery payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.audit.Record(ctx, &models.AuditEntry{
				Action:    models.AuditActionRecoveryStart,
				Detail:    []byte(`{"field":"email"}`),
				IPAddress: req.IP,
				UserAgent: req.UserAgent,
				Success:   false,
			})
			return "", appErrors.Clone(appErrors.ErrValidation, "email does not match any account")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if field := s.firstMismatch(user, req); field != "" {
		s.audit.Record(ctx, &models.AuditEntry{
			ActorID:   &user.ID,
			Action:    models.AuditActionRecoveryStart,
			Detail:    []byte(fmt.Sprintf(`{"field":%q}`, field)),
			IPAddress: req.IP,
			UserAgent: req.UserAgent,
			Success:   false,
		})
		return "", appErrors.Clone(appErrors.ErrValidation, field+" does not match the account on file")
	}

	code, err := generateRecoveryCode()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}

	if err := s.codes.StoreCode(ctx, req.Email, code, s.config.CodeTTL); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:   &user.ID,
		Action:    models.AuditActionRecoveryStart,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		Success:   true,
	})

	return code, nil
}

// Complete redeems a recovery code for a password change. The code is
// consumed atomically, so a second attempt with the same code fails even
// when racing the first. A successful reset also clears any login lockout.
func (s *RecoveryService) Complete(ctx context.Context, req models.RecoveryCompleteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recovery payload")
	}

	stored, err := s.codes.ConsumeCode(ctx, req.Email)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.Clone(appErrors.ErrRecoveryCode, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume code")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(req.Code)) != 1 {
		return appErrors.Clone(appErrors.ErrRecoveryCode, "")
	}

	if err := ValidatePasswordStrength(req.NewPassword); err != nil {
		return err
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrRecoveryCode, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	hash, err := s.secrets.HashCredential(req.NewPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	// UpdatePassword also zeroes failed_attempts and locked_until; a user
	// who recovered their password should not stay locked out.
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &user.ID,
		Action:        models.AuditActionPasswordReset,
		ResourceTable: strPtr("users"),
		ResourceID:    &user.ID,
		IPAddress:     req.IP,
		UserAgent:     req.UserAgent,
		Success:       true,
	})

	return nil
}

// firstMismatch compares each supplied attribute against the decrypted
// value on file, case-insensitively and ignoring surrounding whitespace.
// It returns the name of the first attribute that fails, checked in a
// fixed order, or "" when everything matches.
func (s *RecoveryService) firstMismatch(user *models.User, req models.RecoveryRequest) string {
	match := func(stored *string, supplied string) bool {
		if stored == nil {
			return false
		}
		plaintext, err := s.secrets.DecryptField(*stored)
		if err != nil {
			s.logger.Warn("failed to decrypt identity field during recovery", zap.Error(err))
			return false
		}
		return strings.EqualFold(strings.TrimSpace(plaintext), strings.TrimSpace(supplied))
	}

	switch {
	case !match(user.FirstName, req.FirstName):
		return "first_name"
	case !match(user.LastName, req.LastName):
		return "last_name"
	case !match(user.Phone, req.Phone):
		return "phone"
	}
	return ""
}

func generateRecoveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
