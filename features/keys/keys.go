// Package keys persists provider API keys and client API keys in SQLite and
// implements the assistant credential resolver on top of them.
package keys

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound reports a key id that does not exist or was revoked.
var ErrNotFound = errors.New("keys: not found")

const schema = `
CREATE TABLE IF NOT EXISTS provider_keys (
	id           TEXT PRIMARY KEY,
	provider     TEXT NOT NULL,
	label        TEXT NOT NULL DEFAULT '',
	secret       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	last_used_at TIMESTAMP,
	revoked_at   TIMESTAMP
);
CREATE TABLE IF NOT EXISTS client_keys (
	id          TEXT PRIMARY KEY,
	label       TEXT NOT NULL DEFAULT '',
	secret_hash TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMP NOT NULL,
	revoked_at  TIMESTAMP
);
`

// Store is a SQLite-backed key store. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the key database at path.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("keys: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("keys: init schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// OpenDB wraps an existing database handle, creating the schema if needed.
// Used to share one SQLite file with other features.
func OpenDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("keys: init schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// WithClock overrides the store clock. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ProviderKey is the masked public view of a stored provider credential.
type ProviderKey struct {
	ID         string     `json:"id"`
	Provider   string     `json:"provider"`
	Label      string     `json:"label,omitempty"`
	MaskedKey  string     `json:"masked_key"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// CreateProviderKey stores a provider credential and returns its masked view.
func (s *Store) CreateProviderKey(ctx context.Context, provider, label, secret string) (ProviderKey, error) {
	if secret == "" {
		return ProviderKey{}, errors.New("keys: secret is required")
	}
	key := ProviderKey{
		ID:        uuid.NewString(),
		Provider:  provider,
		Label:     label,
		MaskedKey: Mask(secret),
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO provider_keys (id, provider, label, secret, created_at) VALUES (?, ?, ?, ?, ?)`,
		key.ID, provider, label, secret, key.CreatedAt)
	if err != nil {
		return ProviderKey{}, fmt.Errorf("keys: create provider key: %w", err)
	}
	return key, nil
}

// ListProviderKeys returns all non-revoked provider keys, newest first, with
// secrets masked.
func (s *Store) ListProviderKeys(ctx context.Context) ([]ProviderKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, label, secret, created_at, last_used_at
		 FROM provider_keys WHERE revoked_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("keys: list provider keys: %w", err)
	}
	defer rows.Close()
	var out []ProviderKey
	for rows.Next() {
		var (
			k        ProviderKey
			secret   string
			lastUsed sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.Provider, &k.Label, &secret, &k.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("keys: scan provider key: %w", err)
		}
		k.MaskedKey = Mask(secret)
		if lastUsed.Valid {
			t := lastUsed.Time
			k.LastUsedAt = &t
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// RevokeProviderKey marks a provider key revoked. Revoked keys no longer
// resolve.
func (s *Store) RevokeProviderKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("keys: revoke provider key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// providerSecret returns the stored secret for id and records the use.
func (s *Store) providerSecret(ctx context.Context, id string) (provider, secret string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT provider, secret FROM provider_keys WHERE id = ? AND revoked_at IS NULL`, id).
		Scan(&provider, &secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("keys: load provider key: %w", err)
	}
	_, _ = s.db.ExecContext(ctx,
		`UPDATE provider_keys SET last_used_at = ? WHERE id = ?`, s.now().UTC(), id)
	return provider, secret, nil
}

// ClientKey is the public view of a request-auth credential. Secret is only
// populated on creation; afterwards the store holds its hash.
type ClientKey struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	Secret    string    `json:"secret,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateClientKey mints a new client API key. The cleartext secret is
// returned exactly once.
func (s *Store) CreateClientKey(ctx context.Context, label string) (ClientKey, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return ClientKey{}, fmt.Errorf("keys: generate client key: %w", err)
	}
	key := ClientKey{
		ID:        uuid.NewString(),
		Label:     label,
		Secret:    "udc_" + hex.EncodeToString(raw),
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_keys (id, label, secret_hash, created_at) VALUES (?, ?, ?, ?)`,
		key.ID, label, hashSecret(key.Secret), key.CreatedAt)
	if err != nil {
		return ClientKey{}, fmt.Errorf("keys: create client key: %w", err)
	}
	return key, nil
}

// ValidateClientKey reports whether secret matches a non-revoked client key
// and returns its id for rate-limit attribution.
func (s *Store) ValidateClientKey(ctx context.Context, secret string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM client_keys WHERE secret_hash = ? AND revoked_at IS NULL`,
		hashSecret(secret)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keys: validate client key: %w", err)
	}
	return id, nil
}

// RevokeClientKey marks a client key revoked.
func (s *Store) RevokeClientKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE client_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("keys: revoke client key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Mask renders a secret safe for listing: first four and last four characters
// with the middle elided. Short secrets mask entirely.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
