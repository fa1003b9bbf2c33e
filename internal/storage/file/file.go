package file

import (
	"context"
	"os"
	"path/filepath"

	"github.com/SergeyBurlaka/muzei/internal/storage"
)

// Provider implements a file-based artwork storage
type Provider struct {
	path string
}

// New returns a new Provider instance
func New(path string) (*Provider, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}

	return &Provider{
		path: path,
	}, nil
}

// Get returns the artwork bytes for an artwork id
func (p *Provider) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(p.artworkPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

// Put stores the artwork bytes for an artwork id
func (p *Provider) Put(ctx context.Context, id string, data []byte) error {
	// Write to a temporary file first so readers never see partial artwork
	tmp, err := os.CreateTemp(p.path, id+".*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), p.artworkPath(id))
}

// Delete removes the artwork bytes for an artwork id
func (p *Provider) Delete(ctx context.Context, id string) error {
	err := os.Remove(p.artworkPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (p *Provider) artworkPath(id string) string {
	return filepath.Join(p.path, id)
}
