package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// GCPStore reads secrets from Google Secret Manager. ANGEL_API_KEY maps
// to the secret "angel-api-key". Values are cached for the process lifetime.
type GCPStore struct {
	client    *secretmanager.Client
	projectID string

	mu    sync.RWMutex
	cache map[string]string
}

// NewGCPStore creates a Secret Manager client using ambient credentials
func NewGCPStore(ctx context.Context, projectID string) (*GCPStore, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secretmanager client: %w", err)
	}

	return &GCPStore{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]string),
	}, nil
}

// SecretName converts an env-style key into a Secret Manager name
func SecretName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

// Get accesses the latest version of the secret for key
func (g *GCPStore) Get(ctx context.Context, key string) (string, error) {
	g.mu.RLock()
	v, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		return v, nil
	}

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", g.projectID, SecretName(key))
	result, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", key, err)
	}

	v = strings.TrimSpace(string(result.GetPayload().GetData()))
	if v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	g.mu.Lock()
	g.cache[key] = v
	g.mu.Unlock()
	return v, nil
}

// Close releases the underlying gRPC connection
func (g *GCPStore) Close() error {
	return g.client.Close()
}
