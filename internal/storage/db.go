package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rental-console/internal/auth"
	"rental-console/internal/models"

	"github.com/jmoiron/sqlx"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned for unknown or expired session tokens.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists authenticated sessions keyed by cookie token.
// Only login creates a session and only logout deletes one.
type SessionStore interface {
	CreateSession(ctx context.Context, token string, s models.Session, expiresAt time.Time) error
	ValidateSession(ctx context.Context, token string) (*SessionInfo, error)
	RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	CleanExpiredSessions(ctx context.Context) error
	Close() error
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	Session      *models.Session
	LastActivity time.Time
	ExpiresAt    time.Time
}

// CapExpiry bounds a session expiry by the bearer token's own expiry.
// A zero token expiry means the token lifetime is unknown.
func CapExpiry(expiresAt, tokenExpiresAt time.Time) time.Time {
	if !tokenExpiresAt.IsZero() && tokenExpiresAt.Before(expiresAt) {
		return tokenExpiresAt
	}
	return expiresAt
}

// DB is the SQLite-backed SessionStore.
type DB struct {
	conn   *sqlx.DB
	sealer *auth.Sealer
}

var _ SessionStore = (*DB)(nil)

// NewDB opens a database connection and runs migrations.
func NewDB(path string, sealer *auth.Sealer) (*DB, error) {
	if sealer == nil {
		return nil, errors.New("storage: nil sealer")
	}
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, sealer: sealer}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			role_name TEXT NOT NULL DEFAULT '',
			sealed_token BLOB NOT NULL,
			token_expires_at INTEGER NOT NULL DEFAULT 0,
			expires_at INTEGER NOT NULL,
			last_activity INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type sessionRow struct {
	TokenHash      string `db:"token_hash"`
	UserID         string `db:"user_id"`
	Email          string `db:"email"`
	FullName       string `db:"full_name"`
	RoleName       string `db:"role_name"`
	SealedToken    []byte `db:"sealed_token"`
	TokenExpiresAt int64  `db:"token_expires_at"`
	ExpiresAt      int64  `db:"expires_at"`
	LastActivity   int64  `db:"last_activity"`
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// CreateSession stores s under the hash of token. The bearer token is sealed.
func (db *DB) CreateSession(ctx context.Context, token string, s models.Session, expiresAt time.Time) error {
	sealed, err := db.sealer.Seal(s.BearerToken)
	if err != nil {
		return err
	}
	row := sessionRow{
		TokenHash:      auth.TokenHash(token),
		UserID:         s.UserID,
		Email:          s.Email,
		FullName:       s.FullName,
		RoleName:       s.RoleName,
		SealedToken:    sealed,
		TokenExpiresAt: toMillis(s.TokenExpiresAt),
		ExpiresAt:      toMillis(CapExpiry(expiresAt, s.TokenExpiresAt)),
		LastActivity:   time.Now().UnixMilli(),
	}
	_, err = db.conn.NamedExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, email, full_name, role_name, sealed_token, token_expires_at, expires_at, last_activity)
		VALUES (:token_hash, :user_id, :email, :full_name, :role_name, :sealed_token, :token_expires_at, :expires_at, :last_activity)
	`, row)
	return err
}

// ValidateSession checks if a session token is valid and returns session details.
func (db *DB) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	var row sessionRow
	err := db.conn.GetContext(ctx, &row, `
		SELECT token_hash, user_id, email, full_name, role_name, sealed_token, token_expires_at, expires_at, last_activity
		FROM sessions
		WHERE token_hash = ? AND expires_at > ?
	`, auth.TokenHash(token), time.Now().UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	bearer, err := db.sealer.Open(row.SealedToken)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		Session: &models.Session{
			UserID:         row.UserID,
			Email:          row.Email,
			FullName:       row.FullName,
			RoleName:       row.RoleName,
			BearerToken:    bearer,
			TokenExpiresAt: fromMillis(row.TokenExpiresAt),
		},
		LastActivity: fromMillis(row.LastActivity),
		ExpiresAt:    fromMillis(row.ExpiresAt),
	}, nil
}

// RenewSession updates last_activity and extends expires_at, never past the
// bearer token's expiry.
func (db *DB) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE sessions
		SET last_activity = ?,
			expires_at = CASE WHEN token_expires_at > 0 AND token_expires_at < ? THEN token_expires_at ELSE ? END
		WHERE token_hash = ?
	`, time.Now().UnixMilli(), toMillis(newExpiresAt), toMillis(newExpiresAt), auth.TokenHash(token))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", auth.TokenHash(token))
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UnixMilli())
	return err
}

// SessionCount returns the number of stored sessions, expired or not.
func (db *DB) SessionCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM sessions")
	return count, err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
