package mock

import (
	"context"
	"fmt"

	"github.com/SergeyBurlaka/muzei/internal/cache"
)

// Provider implements a mock cache
type Provider struct {
	// FailGet makes Get return an error instead of a miss
	FailGet bool
	// FailSet makes Set return an error
	FailSet bool
}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	if p.FailGet {
		return nil, fmt.Errorf("get error")
	}

	return nil, cache.ErrNotFound
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	if p.FailSet {
		return fmt.Errorf("set error")
	}

	return nil
}

// Delete removes an object from the cache
func (p *Provider) Delete(ctx context.Context, key string) (err error) {
	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
