package mock

import (
	"context"
	"fmt"
)

// Provider implements a mock artwork storage where every operation fails
type Provider struct {
}

// Get returns the artwork bytes for an artwork id
func (p *Provider) Get(ctx context.Context, id string) ([]byte, error) {
	return nil, fmt.Errorf("get error")
}

// Put stores the artwork bytes for an artwork id
func (p *Provider) Put(ctx context.Context, id string, data []byte) error {
	return fmt.Errorf("put error")
}

// Delete removes the artwork bytes for an artwork id
func (p *Provider) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("delete error")
}
