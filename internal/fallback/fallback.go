// Package fallback generates deterministic pseudo-identifiers for company
// names that no authoritative source could resolve.
package fallback

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // determinism primitive, not a security boundary
	"encoding/base32"
	"os"

	"go.uber.org/zap"

	"github.com/sells-group/identity-cli/internal/normalize"
)

const (
	// IDPrefix visually distinguishes generated IDs from real identifiers.
	IDPrefix = "IN"

	// digestLen is the number of HMAC digest bytes encoded into the ID.
	// 10 bytes (80 bits) keeps collisions negligible at operational scale.
	digestLen = 10

	// SaltEnvVar names the environment variable supplying the HMAC salt.
	SaltEnvVar = "IDENTITY_SALT"

	// devSalt is the clearly-named development-only default. Production
	// runs without IDENTITY_SALT are detectable by the warning it triggers.
	devSalt = "identity-cli-dev-salt-do-not-use-in-production"
)

// encodedLen is the fixed length of a generated ID.
const encodedLen = len(IDPrefix) + (digestLen*8+4)/5

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator produces stable fallback IDs keyed by a secret salt.
type Generator struct {
	salt []byte
}

// New creates a Generator with the given salt.
func New(salt string) *Generator {
	return &Generator{salt: []byte(salt)}
}

// SaltFromEnv reads the HMAC salt from the environment. A missing salt is
// not fatal: it logs loudly and falls back to the development-only default
// so that unsalted runs show up in logs instead of silently diverging.
func SaltFromEnv() string {
	if salt := os.Getenv(SaltEnvVar); salt != "" {
		return salt
	}
	zap.L().Warn("fallback: salt env var is not set, using development-only default; generated IDs will not match salted environments",
		zap.String("env_var", SaltEnvVar),
	)
	return devSalt
}

// GenerateID returns the fallback identifier for a raw company name:
// an HMAC-SHA1 digest of the normalized name keyed by the salt, truncated
// to 10 bytes, base32-encoded without padding, prefixed with IDPrefix.
// Output is fixed-length and deterministic for a given (name, salt) pair.
func (g *Generator) GenerateID(raw string) string {
	name := normalize.Normalize(raw)
	mac := hmac.New(sha1.New, g.salt)
	mac.Write([]byte(name))
	return IDPrefix + b32.EncodeToString(mac.Sum(nil)[:digestLen])
}

// IsFallbackID reports whether id has the shape of a generated fallback ID.
func IsFallbackID(id string) bool {
	if len(id) != encodedLen || id[:len(IDPrefix)] != IDPrefix {
		return false
	}
	_, err := b32.DecodeString(id[len(IDPrefix):])
	return err == nil
}
