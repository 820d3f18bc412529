package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/services/registry"
)

// Provider fetches the identity snapshot for one platform account.
type Provider interface {
	// Platform names the provider, e.g. "aws".
	Platform() string
	// FetchIdentities returns every identity visible to the profile with its
	// permission documents and activity metadata attached.
	FetchIdentities(ctx context.Context) ([]domain.IdentitySnapshot, error)
}

// Factory is a function type that creates a Provider from a connection profile
type Factory func(ctx context.Context, profile registry.Profile) (Provider, error)

// Registry manages platform provider factories
type Registry interface {
	// Register adds a new platform provider factory
	Register(platform string, factory Factory) error
	// Create instantiates a provider for the profile's platform
	Create(ctx context.Context, profile registry.Profile) (Provider, error)
	// ListPlatforms returns a list of registered platforms
	ListPlatforms() []string
}

type providerRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new provider registry
func NewRegistry() Registry {
	return &providerRegistry{
		factories: make(map[string]Factory),
	}
}

func (r *providerRegistry) Register(platform string, factory Factory) error {
	if platform == "" {
		return fmt.Errorf("platform name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[platform]; exists {
		return fmt.Errorf("platform %q is already registered", platform)
	}

	r.factories[platform] = factory
	return nil
}

func (r *providerRegistry) Create(ctx context.Context, profile registry.Profile) (Provider, error) {
	if profile.Platform == "" {
		return nil, fmt.Errorf("profile %q does not declare a platform", profile.Name)
	}

	r.mu.RLock()
	factory, exists := r.factories[profile.Platform]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("platform %q is not registered", profile.Platform)
	}

	return factory(ctx, profile)
}

func (r *providerRegistry) ListPlatforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]string, 0, len(r.factories))
	for platform := range r.factories {
		platforms = append(platforms, platform)
	}
	return platforms
}
