package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// The pair lives in a single row so that Set replaces both tokens in one
// statement. Token values are encrypted with AES-256-GCM before write and
// decrypted after read.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable credential storage (Get and Set return ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Get returns the stored pair, or the zero pair if none is stored.
func (r *CredentialRepo) Get(ctx context.Context) (model.CredentialPair, error) {
	if r.key == nil {
		return model.CredentialPair{}, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT access_token, refresh_token FROM session_credentials WHERE id = 1`
	var encAccess, encRefresh string
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&encAccess, &encRefresh)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CredentialPair{}, nil
	}
	if err != nil {
		return model.CredentialPair{}, fmt.Errorf("get session credentials: %w", err)
	}

	access, err := r.decrypt(encAccess)
	if err != nil {
		return model.CredentialPair{}, fmt.Errorf("decrypt access token: %w", err)
	}
	refresh, err := r.decrypt(encRefresh)
	if err != nil {
		return model.CredentialPair{}, fmt.Errorf("decrypt refresh token: %w", err)
	}

	return model.CredentialPair{Access: access, Refresh: refresh}, nil
}

// Set replaces the stored pair. Both tokens are written by one statement.
func (r *CredentialRepo) Set(ctx context.Context, pair model.CredentialPair) error {
	encAccess, err := r.encrypt(pair.Access)
	if err != nil {
		return err
	}
	encRefresh, err := r.encrypt(pair.Refresh)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO session_credentials (id, access_token, refresh_token, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Writer.ExecContext(ctx, query, encAccess, encRefresh); err != nil {
		return fmt.Errorf("set session credentials: %w", err)
	}
	return nil
}

// Clear removes the stored pair.
func (r *CredentialRepo) Clear(ctx context.Context) error {
	const query = `DELETE FROM session_credentials WHERE id = 1`
	if _, err := r.db.Writer.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear session credentials: %w", err)
	}
	return nil
}

// UpdatedAt returns when the pair was last written. Returns the zero time if
// no pair is stored.
func (r *CredentialRepo) UpdatedAt(ctx context.Context) (time.Time, error) {
	const query = `SELECT updated_at FROM session_credentials WHERE id = 1`
	var updatedAt string
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get session credentials updated_at: %w", err)
	}
	return parseTime(updatedAt)
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt reverses encrypt.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

// parseTime parses the timestamp formats SQLite may return for DATETIME columns.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
