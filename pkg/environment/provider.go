package environment

import (
	"context"
	"os"
)

// Provider resolves named environment values. Implementations may read the
// process environment, an in-memory map, or a chain of other providers.
type Provider interface {
	// Get returns the value for name and whether it was found.
	Get(ctx context.Context, name string) (string, bool)
}

// OSProvider reads values from the process environment.
type OSProvider struct{}

func NewOSProvider() *OSProvider {
	return &OSProvider{}
}

func (p *OSProvider) Get(_ context.Context, name string) (string, bool) {
	return os.LookupEnv(name)
}

// MultiProvider queries a list of providers in order and returns the first
// value found.
type MultiProvider struct {
	providers []Provider
}

func NewMultiProvider(providers ...Provider) *MultiProvider {
	return &MultiProvider{providers: providers}
}

func (p *MultiProvider) Get(ctx context.Context, name string) (string, bool) {
	for _, provider := range p.providers {
		if val, found := provider.Get(ctx, name); found {
			return val, true
		}
	}
	return "", false
}
