package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrUnknownHashType is returned when a stored hash has an unrecognized format.
var ErrUnknownHashType = errors.New("unknown hash type")

// ContentHash returns the stable SHA-256 hex digest of a raw token, used as
// the fallback revocation key for opaque tokens that carry no extractable
// token-id claim.
func ContentHash(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// argon2idParams are OWASP's minimum recommended parameters for Argon2id.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024, // 47 MiB (OWASP minimum: 46 MiB)
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashSecretArgon2id hashes a client secret (used for /oauth/revoke Basic
// auth and the static bearer-signing secret at rest) in PHC format.
func HashSecretArgon2id(secret string) (string, error) {
	return argon2id.CreateHash(secret, argon2idParams)
}

// HashSecretSHA256 returns the legacy SHA-256 hex hash of a secret.
// Deprecated: kept only to verify secrets hashed before the Argon2id
// migration; new secrets must use HashSecretArgon2id.
func HashSecretSHA256(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}

// DetectHashType identifies the hash algorithm used for a stored hash.
func DetectHashType(storedHash string) string {
	if strings.HasPrefix(storedHash, "$argon2id$") {
		return "argon2id"
	}
	if strings.HasPrefix(storedHash, "sha256:") {
		return "sha256"
	}
	if len(storedHash) == 64 && isHexString(storedHash) {
		return "sha256"
	}
	return "unknown"
}

func isHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// VerifySecret verifies a raw secret against a stored hash. Supports
// Argon2id (PHC format), SHA-256 prefixed, and legacy bare SHA-256 hex.
func VerifySecret(secret, storedHash string) (bool, error) {
	switch DetectHashType(storedHash) {
	case "argon2id":
		return safeArgon2idCompare(secret, storedHash)
	case "sha256":
		expected := strings.TrimPrefix(storedHash, "sha256:")
		computed := HashSecretSHA256(secret)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(expected)) == 1, nil
	default:
		return false, ErrUnknownHashType
	}
}

// safeArgon2idCompare wraps argon2id.ComparePasswordAndHash with panic
// recovery: the underlying library panics on malformed hash parameters
// (e.g. t=0 rounds), so this converts that into an error instead.
func safeArgon2idCompare(secret, storedHash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(secret, storedHash)
}
