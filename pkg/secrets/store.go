package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// ErrNotFound is returned when no backend holds the requested key
var ErrNotFound = errors.New("secret not found")

// Store resolves credential keys (ANGEL_API_KEY, LLM_API_KEY, ...) to plaintext
// ⭐ SSOT: 자격증명은 이 인터페이스를 통해서만 조회
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// EnvStore serves the credential values collected by config.Load
type EnvStore struct {
	values map[string]string
}

// NewEnvStore copies values so later mutation of the map has no effect
func NewEnvStore(values map[string]string) *EnvStore {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &EnvStore{values: cp}
}

// Get returns the value for key or ErrNotFound
func (s *EnvStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return strings.TrimSpace(v), nil
}

// Chain consults stores in order and returns the first hit.
// Backend errors other than ErrNotFound are logged and skipped.
type Chain struct {
	stores []Store
	logger *logger.Logger
}

// NewChain builds a chained store
func NewChain(log *logger.Logger, stores ...Store) *Chain {
	return &Chain{stores: stores, logger: log}
}

// Get walks the chain
func (c *Chain) Get(ctx context.Context, key string) (string, error) {
	for _, s := range c.stores {
		v, err := s.Get(ctx, key)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			c.logger.WithError(err).WithField("secret", key).Warn("Secret backend failed, trying next")
		}
	}
	return "", fmt.Errorf("%s: %w", key, ErrNotFound)
}

// Open builds the store selected by SECRETS_BACKEND. The gcp backend falls
// back to env values. The returned close func releases backend clients.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, func() error, error) {
	env := NewEnvStore(cfg.Secrets)

	switch cfg.SecretsBackend {
	case "gcp":
		gcp, err := NewGCPStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, err
		}
		return NewChain(log, gcp, env), gcp.Close, nil
	default:
		return env, func() error { return nil }, nil
	}
}
