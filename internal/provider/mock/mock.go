package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/SergeyBurlaka/muzei/internal/provider"
)

// Provider implements a scriptable in-process art provider
type Provider struct {
	Name string
	Desc string

	mu      sync.Mutex
	records []provider.ArtworkRecord

	// ids whose bytes can not be opened
	unopenable map[int64]bool

	// methods that fail with a remote error
	failing map[string]bool

	requestLoadCalls int
	markedLoaded     []int64
	triggered        []int
}

// New returns a new Provider instance
func New(name string) *Provider {
	return &Provider{
		Name:       name,
		unopenable: make(map[int64]bool),
		failing:    make(map[string]bool),
	}
}

// Add appends artwork records to the provider's listing
func (p *Provider) Add(records ...provider.ArtworkRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.records = append(p.records, records...)
}

// SetUnopenable marks an artwork id as listed but not retrievable
func (p *Provider) SetUnopenable(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unopenable[id] = true
}

// Fail makes the given protocol method fail with a remote error
func (p *Provider) Fail(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failing[method] = true
}

// RequestLoadCalls returns how many times RequestLoad was invoked
func (p *Provider) RequestLoadCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.requestLoadCalls
}

// MarkedLoaded returns the ids acknowledged via MarkLoaded
func (p *Provider) MarkedLoaded() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]int64{}, p.markedLoaded...)
}

// TriggeredCommands returns the command ids invoked via TriggerCommand
func (p *Provider) TriggeredCommands() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]int{}, p.triggered...)
}

// ComponentName returns the identifier of the provider
func (p *Provider) ComponentName() string {
	return p.Name
}

func (p *Provider) remoteError(method string) error {
	return &provider.RemoteError{
		ComponentName: p.Name,
		Method:        method,
		Err:           fmt.Errorf("provider crashed"),
	}
}

// ListArtwork returns the provider's artwork listing
func (p *Provider) ListArtwork(ctx context.Context, filter provider.Filter) ([]provider.ArtworkRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing["list_artwork"] {
		return nil, p.remoteError("list_artwork")
	}

	records := []provider.ArtworkRecord{}
	for _, record := range p.records {
		if record.ID > filter.MinID {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if filter.Descending {
			return records[i].ID > records[j].ID
		}
		return records[i].ID < records[j].ID
	})

	return records, nil
}

// OpenArtwork opens the image bytes for a record
func (p *Provider) OpenArtwork(ctx context.Context, record provider.ArtworkRecord) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing["open_artwork"] {
		return nil, p.remoteError("open_artwork")
	}

	// Callers opening by locator alone pass a record with only the uri set
	if record.ID == 0 && record.PersistentURI != "" {
		for _, known := range p.records {
			if known.PersistentURI == record.PersistentURI {
				record = known
				break
			}
		}
	}

	if p.unopenable[record.ID] {
		return nil, provider.ErrNotFound
	}

	return io.NopCloser(bytes.NewReader([]byte(fmt.Sprintf("image-bytes-%d", record.ID)))), nil
}

// LoadInfo returns the provider's loading bookkeeping
func (p *Provider) LoadInfo(ctx context.Context) (*provider.LoadInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing[provider.MethodGetLoadInfo] {
		return nil, p.remoteError(provider.MethodGetLoadInfo)
	}

	info := &provider.LoadInfo{}
	for _, record := range p.records {
		if record.ID > info.MaxLoadedArtworkID {
			info.MaxLoadedArtworkID = record.ID
		}
	}

	return info, nil
}

// RequestLoad asks the provider to produce more artwork
func (p *Provider) RequestLoad(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing[provider.MethodRequestLoad] {
		return p.remoteError(provider.MethodRequestLoad)
	}

	p.requestLoadCalls++
	return nil
}

// MarkLoaded acknowledges that a record was committed
func (p *Provider) MarkLoaded(ctx context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing[provider.MethodMarkLoaded] {
		return p.remoteError(provider.MethodMarkLoaded)
	}

	p.markedLoaded = append(p.markedLoaded, id)
	return nil
}

// Description returns the provider's current description
func (p *Provider) Description(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing[provider.MethodGetDescription] {
		return "", p.remoteError(provider.MethodGetDescription)
	}

	return p.Desc, nil
}

// Commands returns the user commands available for an artwork
func (p *Provider) Commands(ctx context.Context, artworkID int64) ([]provider.Command, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing[provider.MethodGetCommands] {
		return nil, p.remoteError(provider.MethodGetCommands)
	}

	return []provider.Command{{ID: 1, Title: "Next Artwork"}}, nil
}

// TriggerCommand invokes a user command for an artwork
func (p *Provider) TriggerCommand(ctx context.Context, artworkID int64, commandID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing[provider.MethodTriggerCommand] {
		return p.remoteError(provider.MethodTriggerCommand)
	}

	p.triggered = append(p.triggered, commandID)
	return nil
}

// OpenArtworkInfo asks the provider to open the artwork's info page
func (p *Provider) OpenArtworkInfo(ctx context.Context, artworkID int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing[provider.MethodOpenArtworkInfo] {
		return false, p.remoteError(provider.MethodOpenArtworkInfo)
	}

	return true, nil
}

// Factory resolves component names to scripted providers
type Factory struct {
	mu        sync.Mutex
	providers map[string]*Provider
}

// NewFactory returns a new Factory instance
func NewFactory() *Factory {
	return &Factory{
		providers: make(map[string]*Provider),
	}
}

// Register adds a scripted provider to the factory
func (f *Factory) Register(p *Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.providers[p.Name] = p
}

// ClientFor returns the scripted provider for a component name, creating an
// empty one if it was never registered
func (f *Factory) ClientFor(componentName string) provider.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.providers[componentName]; ok {
		return p
	}

	p := New(componentName)
	f.providers[componentName] = p
	return p
}
