package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pazzo-admin/internal/cache"
	"pazzo-admin/internal/model"
)

const (
	// TokenPrefix is the prefix for all admin session tokens.
	TokenPrefix = "pzt_"

	// DefaultTokenTTL is the token lifetime when none is configured.
	DefaultTokenTTL = 1 * time.Hour

	tokenKeyPrefix = "token:"
)

// ErrInvalidToken covers malformed, unknown and expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and validates admin session tokens.
type TokenService struct {
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
}

// NewTokenService creates a token service storing tokens in c.
func NewTokenService(c cache.Cache, ttl time.Duration, log *zap.Logger) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenService{cache: c, ttl: ttl, log: log, now: time.Now}
}

// GenerateToken creates a new session token for email.
func (s *TokenService) GenerateToken(ctx context.Context, email string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := TokenPrefix + hex.EncodeToString(tokenBytes)

	data := model.TokenData{Email: email, CreatedAt: s.now()}
	data.ExpiresAt = data.CreatedAt.Add(s.ttl)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token data: %w", err)
	}
	if err := s.cache.Set(ctx, tokenKeyPrefix+token, jsonData, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.log.Info("token issued", zap.String("email", email), zap.Time("expires", data.ExpiresAt))
	return token, nil
}

// ValidateToken checks a token and returns its data.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if !strings.HasPrefix(token, TokenPrefix) {
		return nil, ErrInvalidToken
	}

	key := tokenKeyPrefix + token
	jsonData, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var data model.TokenData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse token data: %w", err)
	}
	if s.now().After(data.ExpiresAt) {
		_ = s.cache.Delete(ctx, key)
		return nil, ErrInvalidToken
	}
	return &data, nil
}

// RevokeToken deletes a token.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, tokenKeyPrefix+token)
}
