// Package auth implements the KeyManager: opaque bearer API keys stored
// only as their argon2id hash, grounded in the teacher's
// internal/security.APIKeyManager (generateKeyID/generateKeySecret/
// hashKeySecret/verifyKeySecret idiom), adapted to persist through
// pkg/database.DB instead of an in-memory map so keys survive a restart,
// and to tiers/rate caps instead of trading permissions.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
	"github.com/shieldcore/firewall/pkg/observability"
)

// Tier sets a key's per-window request cap.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// RateCap returns the requests-per-minute ceiling for a tier.
func (t Tier) RateCap() int {
	switch t {
	case TierPro:
		return 600
	case TierEnterprise:
		return 6000
	default:
		return 60
	}
}

// Key is a validated API key's metadata (never its secret).
type Key struct {
	ID        string
	Tier      Tier
	CreatedAt time.Time
	RevokedAt *time.Time
}

// argon2 tuning, matching the teacher's parameters (1 pass, 64MB memory, 4
// threads, 32-byte output).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

type KeyManager struct {
	db       *database.DB
	auditLog *observability.AuditLogger
}

func NewKeyManager(db *database.DB, logger *observability.Logger) *KeyManager {
	return &KeyManager{db: db, auditLog: observability.NewAuditLogger(logger)}
}

// Issue creates a new key for tier and returns its one-time-visible full
// token (id.secret); only the hash is persisted.
func (m *KeyManager) Issue(ctx context.Context, tier Tier) (fullKey string, key Key, err error) {
	id, err := randomToken(16)
	if err != nil {
		return "", Key{}, model.NewShieldError(model.KindInternalInvariant, "auth.Issue", err)
	}
	secret, err := randomToken(32)
	if err != nil {
		return "", Key{}, model.NewShieldError(model.KindInternalInvariant, "auth.Issue", err)
	}
	hash, err := hashSecret(secret)
	if err != nil {
		return "", Key{}, model.NewShieldError(model.KindInternalInvariant, "auth.Issue", err)
	}

	now := time.Now()
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash, tier, created_at) VALUES ($1, $2, $3, $4)
	`, id, hash, string(tier), now)
	if err != nil {
		return "", Key{}, model.NewShieldError(model.KindInternalInvariant, "auth.Issue", err)
	}

	m.auditLog.LogUserAction(ctx, "issue", id, "api_key", map[string]interface{}{"tier": string(tier)})
	return fmt.Sprintf("%s.%s", id, secret), Key{ID: id, Tier: tier, CreatedAt: now}, nil
}

// Revoke marks a key inactive; it immediately fails future Validate calls.
func (m *KeyManager) Revoke(ctx context.Context, id string) error {
	_, err := m.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return model.NewShieldError(model.KindInternalInvariant, "auth.Revoke", err)
	}
	m.auditLog.LogUserAction(ctx, "revoke", id, "api_key")
	return nil
}

// Validate parses "id.secret", verifies the secret against the stored
// hash, and returns the key's metadata. Constant-time comparison on the
// hash prevents timing-based secret recovery.
func (m *KeyManager) Validate(ctx context.Context, fullKey string) (Key, error) {
	id, secret, ok := splitToken(fullKey)
	if !ok {
		return Key{}, model.NewShieldError(model.KindAuthError, "auth.Validate", fmt.Errorf("malformed key"))
	}

	var storedHash, tier string
	var createdAt time.Time
	var revokedAt sql.NullTime
	row := m.db.QueryRowContext(ctx, `SELECT key_hash, tier, created_at, revoked_at FROM api_keys WHERE id = $1`, id)
	if err := row.Scan(&storedHash, &tier, &createdAt, &revokedAt); err != nil {
		if err == sql.ErrNoRows {
			return Key{}, model.NewShieldError(model.KindAuthError, "auth.Validate", fmt.Errorf("unknown key"))
		}
		return Key{}, model.NewShieldError(model.KindInternalInvariant, "auth.Validate", err)
	}
	if revokedAt.Valid {
		return Key{}, model.NewShieldError(model.KindAuthError, "auth.Validate", fmt.Errorf("key revoked"))
	}
	if !verifySecret(storedHash, secret) {
		return Key{}, model.NewShieldError(model.KindAuthError, "auth.Validate", fmt.Errorf("invalid secret"))
	}

	key := Key{ID: id, Tier: Tier(tier), CreatedAt: createdAt}
	if revokedAt.Valid {
		t := revokedAt.Time
		key.RevokedAt = &t
	}
	return key, nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func splitToken(fullKey string) (id, secret string, ok bool) {
	for i := 0; i < len(fullKey); i++ {
		if fullKey[i] == '.' {
			return fullKey[:i], fullKey[i+1:], true
		}
	}
	return "", "", false
}

func hashSecret(secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.StdEncoding.EncodeToString(append(salt, hash...)), nil
}

func verifySecret(storedHash, secret string) bool {
	combined, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil || len(combined) < saltLen {
		return false
	}
	salt, hash := combined[:saltLen], combined[saltLen:]
	candidate := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(hash, candidate) == 1
}
