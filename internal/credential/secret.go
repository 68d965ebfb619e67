// Package credential implements the Credential Lifecycle component (spec
// §4.3): creation, hashing, validation, expiry, revocation, rotation, and
// pruning for clients, tokens, and authorization codes.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// clientSecretBytes and credentialSecretBytes are design constants (spec
// §3, §4.3): client secrets are 32 random bytes (64 hex chars); access
// tokens, refresh tokens, and authorization codes are 40 random bytes
// (80 hex chars).
const (
	clientSecretBytes     = 32
	credentialSecretBytes = 40
)

// generateSecret returns a hex-encoded CSPRNG secret of n random bytes.
func generateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("credential: generateSecret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// newClientSecret generates the plaintext secret handed to a confidential
// client exactly once at creation time.
func newClientSecret() (string, error) {
	return generateSecret(clientSecretBytes)
}

// newCredentialSecret generates the plaintext for an access token, refresh
// token, or authorization code.
func newCredentialSecret() (string, error) {
	return generateSecret(credentialSecretBytes)
}

// hashSecret computes the SHA-256 hex digest of a plaintext secret. This is
// the only form ever persisted; the plaintext is returned to the caller
// once and then discarded.
func hashSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// secretsEqual compares two hex digests in constant time, so a timing
// side-channel cannot be used to recover a hash byte-by-byte.
func secretsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
