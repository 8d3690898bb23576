package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
)

const (
	bcryptCost     = 12
	keyIterations  = 100_000
	keyLength      = 32
	nonceLength    = 12
	gcmTagLength   = 16
	fieldSeparator = ":"
	maskRune       = '*'
)

// keySalt is fixed so the same passphrase always derives the same field key.
var keySalt = []byte("vozsegura-field-key-v1")

// Store performs credential hashing and field-level encryption for PII columns.
type Store struct {
	key []byte
}

// NewStore derives the AES key from the configured passphrase.
func NewStore(passphrase string) *Store {
	key := pbkdf2.Key([]byte(passphrase), keySalt, keyIterations, keyLength, sha512.New)
	return &Store{key: key}
}

// HashCredential hashes a plaintext credential with bcrypt.
// Cost 12 keeps a single hash in the hundreds of milliseconds on
// commodity hardware, which is the point.
func (s *Store) HashCredential(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}
	return string(hash), nil
}

// VerifyCredential compares a plaintext credential against a stored hash.
func (s *Store) VerifyCredential(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// EncryptField encrypts a value with AES-256-GCM. The output encodes the
// random nonce, the authentication tag, and the ciphertext as a delimited
// base64 triple. The nonce is fresh per call.
func (s *Store) EncryptField(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}

	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcmTagLength]
	tag := sealed[len(sealed)-gcmTagLength:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, fieldSeparator), nil
}

// DecryptField reverses EncryptField. It fails when the payload is malformed
// or the authentication tag does not verify.
func (s *Store) DecryptField(encoded string) (string, error) {
	parts := strings.Split(encoded, fieldSeparator)
	if len(parts) != 3 {
		return "", appErrors.Clone(appErrors.ErrDecryption, "malformed encrypted field")
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceLength {
		return "", appErrors.Clone(appErrors.ErrDecryption, "malformed encrypted field")
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(tag) != gcmTagLength {
		return "", appErrors.Clone(appErrors.ErrDecryption, "malformed encrypted field")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrDecryption, "malformed encrypted field")
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDecryption.Code, appErrors.ErrDecryption.Status, "init cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDecryption.Code, appErrors.ErrDecryption.Status, "init gcm")
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrDecryption, "integrity check failed")
	}

	return string(plaintext), nil
}

// MaskForDisplay keeps the first rune of each whitespace-separated token and
// masks the remainder. Used when PII is shown to roles that should not see
// the full value.
func MaskForDisplay(plaintext string) string {
	if plaintext == "" {
		return "***"
	}

	tokens := strings.Fields(plaintext)
	masked := make([]string, 0, len(tokens))
	for _, token := range tokens {
		runes := []rune(token)
		if len(runes) <= 1 {
			masked = append(masked, token)
			continue
		}
		masked = append(masked, string(runes[0])+strings.Repeat(string(maskRune), len(runes)-1))
	}

	return strings.Join(masked, " ")
}
