package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rental-console/internal/auth"
	"rental-console/internal/models"

	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultSessionPrefix = "pcrs:session"

// RedisSettings configures the Redis connection.
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore is a SessionStore keeping one JSON record per session, expiring
// with the session itself.
type RedisStore struct {
	client *red.Client
	sealer *auth.Sealer
	prefix string
	logger *zap.Logger
}

var _ SessionStore = (*RedisStore)(nil)

type redisRecord struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	RoleName       string `json:"role_name"`
	SealedToken    []byte `json:"sealed_token"`
	TokenExpiresAt int64  `json:"token_expires_at"`
	ExpiresAt      int64  `json:"expires_at"`
	LastActivity   int64  `json:"last_activity"`
}

// NewRedisClient opens a pooled client and pings it.
func NewRedisClient(ctx context.Context, cfg RedisSettings, logger *zap.Logger) (*red.Client, error) {
	client := red.NewClient(&red.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)
	return client, nil
}

// NewRedisStore wraps client. An empty prefix falls back to "pcrs:session".
func NewRedisStore(client *red.Client, sealer *auth.Sealer, prefix string, logger *zap.Logger) (*RedisStore, error) {
	if client == nil || sealer == nil {
		return nil, errors.New("storage: redis store needs a client and a sealer")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, sealer: sealer, prefix: prefix, logger: logger}, nil
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + auth.TokenHash(token)
}

func (s *RedisStore) CreateSession(ctx context.Context, token string, sess models.Session, expiresAt time.Time) error {
	sealed, err := s.sealer.Seal(sess.BearerToken)
	if err != nil {
		return err
	}
	expiresAt = CapExpiry(expiresAt, sess.TokenExpiresAt)
	rec := redisRecord{
		UserID:         sess.UserID,
		Email:          sess.Email,
		FullName:       sess.FullName,
		RoleName:       sess.RoleName,
		SealedToken:    sealed,
		TokenExpiresAt: toMillis(sess.TokenExpiresAt),
		ExpiresAt:      toMillis(expiresAt),
		LastActivity:   time.Now().UnixMilli(),
	}
	return s.put(ctx, token, rec, expiresAt)
}

func (s *RedisStore) put(ctx context.Context, token string, rec redisRecord, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", expiresAt.Format(time.RFC3339))
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, token string) (*redisRecord, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if rec.ExpiresAt <= time.Now().UnixMilli() {
		return nil, ErrSessionNotFound
	}
	return &rec, nil
}

func (s *RedisStore) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	rec, err := s.get(ctx, token)
	if err != nil {
		return nil, err
	}
	bearer, err := s.sealer.Open(rec.SealedToken)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		Session: &models.Session{
			UserID:         rec.UserID,
			Email:          rec.Email,
			FullName:       rec.FullName,
			RoleName:       rec.RoleName,
			BearerToken:    bearer,
			TokenExpiresAt: fromMillis(rec.TokenExpiresAt),
		},
		LastActivity: fromMillis(rec.LastActivity),
		ExpiresAt:    fromMillis(rec.ExpiresAt),
	}, nil
}

func (s *RedisStore) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	rec, err := s.get(ctx, token)
	if err != nil {
		return err
	}
	newExpiresAt = CapExpiry(newExpiresAt, fromMillis(rec.TokenExpiresAt))
	rec.ExpiresAt = toMillis(newExpiresAt)
	rec.LastActivity = time.Now().UnixMilli()
	return s.put(ctx, token, *rec, newExpiresAt)
}

func (s *RedisStore) DeleteSession(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// CleanExpiredSessions is a no-op: Redis expires keys on its own.
func (s *RedisStore) CleanExpiredSessions(context.Context) error {
	return nil
}

func (s *RedisStore) Close() error {
	s.logger.Info("Closing Redis connection")
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
