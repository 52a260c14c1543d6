package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrSessionInvalid = errors.New("session is invalid or expired")

const (
	tokenTTL       = 24 * time.Hour
	tokenKeyPrefix = "token:"
)

// TokenStore mints JWT session tokens and tracks the live token per user in
// Redis so logout can revoke it server-side.
type TokenStore struct {
	redis  *redis.Client
	secret []byte
	logger *zap.Logger
}

func NewTokenStore(client *redis.Client, secret string, logger *zap.Logger) *TokenStore {
	return &TokenStore{
		redis:  client,
		secret: []byte(secret),
		logger: logger.Named("TokenStore"),
	}
}

// Issue mints a signed token for uid and caches it as the user's live
// session.
func (s *TokenStore) Issue(ctx context.Context, uid string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": uid,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	if err := s.redis.Set(ctx, tokenKeyPrefix+uid, token, tokenTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to cache session token: %w", err)
	}
	return token, nil
}

// Validate parses the token and confirms it is still the user's live session.
func (s *TokenStore) Validate(ctx context.Context, tokenString string) (string, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrSessionInvalid
	}
	uid, err := parsed.Claims.GetSubject()
	if err != nil || uid == "" {
		return "", ErrSessionInvalid
	}

	cached, err := s.redis.Get(ctx, tokenKeyPrefix+uid).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionInvalid
		}
		return "", err
	}
	if cached != tokenString {
		return "", ErrSessionInvalid
	}
	return uid, nil
}

// Invalidate revokes the user's live session. Used by logout.
func (s *TokenStore) Invalidate(ctx context.Context, uid string) error {
	return s.redis.Del(ctx, tokenKeyPrefix+uid).Err()
}
