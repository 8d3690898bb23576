package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecoveryRepository stores one-time recovery codes in Redis. Codes expire
// via TTL and are consumed atomically with GETDEL, so a code can be redeemed
// at most once even under concurrent attempts.
type RecoveryRepository struct {
	client *redis.Client
}

// NewRecoveryRepository constructs a recovery code store.
func NewRecoveryRepository(client *redis.Client) *RecoveryRepository {
	return &RecoveryRepository{client: client}
}

func recoveryKey(email string) string {
	return fmt.Sprintf("recovery:%s", email)
}

// StoreCode saves the code for an email with the given TTL, replacing any
// previously issued code for the same account.
func (r *RecoveryRepository) StoreCode(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := r.client.Set(ctx, recoveryKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("store recovery code: %w", err)
	}
	return nil
}

// ConsumeCode fetches and deletes the stored code in one round trip.
// Returns redis.Nil when no code exists or it already expired.
func (r *RecoveryRepository) ConsumeCode(ctx context.Context, email string) (string, error) {
	code, err := r.client.GetDel(ctx, recoveryKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", err
		}
		return "", fmt.Errorf("consume recovery code: %w", err)
	}
	return code, nil
}
