package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/cache"
	"github.com/SergeyBurlaka/muzei/internal/database"
	"github.com/SergeyBurlaka/muzei/internal/logger"
	"github.com/SergeyBurlaka/muzei/internal/notify"
	"github.com/SergeyBurlaka/muzei/internal/provider"
	"github.com/SergeyBurlaka/muzei/internal/queue"

	"golang.org/x/sync/singleflight"
)

// How many consecutive remote failures before the selected provider is
// reported as unreachable
const unreachableThreshold = 3

// Manager serializes all rotation state changes through a single worker,
// schedules periodic loads, and answers capability lookups about the selected
// provider.
type Manager struct {
	loader   *Loader
	store    database.Store
	clients  provider.Factory
	notifier notify.Notifier
	log      *logger.Logger

	queue *queue.Queue

	// touched only from the queue worker
	remoteFailures int

	capabilityCache cache.Provider
	descriptions    *cache.Auto
	supportsNext    *cache.Auto
	loadCoalescer   singleflight.Group
}

func descriptionKey(componentName string) string  { return "description/" + componentName }
func supportsNextKey(componentName string) string { return "supports_next/" + componentName }

type loadJob struct {
	ctx  context.Context
	seed *int64
}

type selectJob struct {
	ctx           context.Context
	componentName string
}

// New creates a new Manager
func New(loader *Loader, store database.Store, clients provider.Factory, cacheProvider cache.Provider, notifier notify.Notifier, log *logger.Logger) *Manager {
	m := &Manager{
		loader:          loader,
		store:           store,
		clients:         clients,
		notifier:        notifier,
		log:             log,
		capabilityCache: cacheProvider,
	}

	m.queue = queue.New(1, m.process)

	m.descriptions = &cache.Auto{
		Provider: cacheProvider,
		Loader: func(ctx context.Context, key string) ([]byte, error) {
			componentName := strings.TrimPrefix(key, "description/")
			description, err := m.clients.ClientFor(componentName).Description(ctx)
			if err != nil {
				return nil, err
			}

			return []byte(description), nil
		},
	}

	m.supportsNext = &cache.Auto{
		Provider: cacheProvider,
		Loader: func(ctx context.Context, key string) ([]byte, error) {
			componentName := strings.TrimPrefix(key, "supports_next/")
			records, err := m.clients.ClientFor(componentName).ListArtwork(ctx, provider.Filter{})
			if err != nil {
				return nil, err
			}

			if len(records) > 1 {
				return []byte("1"), nil
			}

			return []byte("0"), nil
		},
	}

	return m
}

func (m *Manager) process(data interface{}) (interface{}, error) {
	switch job := data.(type) {
	case loadJob:
		artwork, err := m.runLoad(job)
		if err != nil {
			return nil, err
		}
		return artwork, nil
	case selectJob:
		prov, err := m.runSelect(job)
		if err != nil {
			return nil, err
		}
		return prov, nil
	default:
		return nil, fmt.Errorf("unknown job type %T", data)
	}
}

// NextArtwork advances the rotation by one artwork. Concurrent callers share
// a single load instead of burning through the rotation.
func (m *Manager) NextArtwork(ctx context.Context) (*database.Artwork, error) {
	artwork, err, _ := m.loadCoalescer.Do("load", func() (interface{}, error) {
		return m.queue.Process(loadJob{ctx: ctx})
	})
	if err != nil {
		return nil, err
	}

	return artwork.(*database.Artwork), nil
}

// NextArtworkWithSeed advances the rotation deterministically for a seed
func (m *Manager) NextArtworkWithSeed(ctx context.Context, seed int64) (*database.Artwork, error) {
	artwork, err := m.queue.Process(loadJob{ctx: ctx, seed: &seed})
	if err != nil {
		return nil, err
	}

	return artwork.(*database.Artwork), nil
}

func (m *Manager) runLoad(job loadJob) (*database.Artwork, error) {
	var artwork *database.Artwork
	var err error

	if job.seed != nil {
		artwork, err = m.loader.LoadArtworkWithSeed(job.ctx, *job.seed)
	} else {
		artwork, err = m.loader.LoadArtwork(job.ctx)
	}

	m.trackReachability(err)

	if err != nil {
		return nil, err
	}

	// Listings grow as providers produce artwork, so cached capability
	// answers are only trusted until the rotation state changes
	m.invalidateCapabilities(job.ctx, artwork.SourceComponentName)

	return artwork, nil
}

// invalidateCapabilities drops cached capability answers so that the next
// lookup asks the provider again
func (m *Manager) invalidateCapabilities(ctx context.Context, componentName string) {
	for _, key := range []string{descriptionKey(componentName), supportsNextKey(componentName)} {
		if err := m.capabilityCache.Delete(ctx, key); err != nil {
			m.log.Debugw("capability cache invalidation failed",
				"key", key,
				"error", err,
			)
		}
	}
}

// trackReachability reports the provider as unreachable after enough
// consecutive remote failures, and resets on any contact
func (m *Manager) trackReachability(err error) {
	if err != nil && !provider.IsRemote(err) {
		return
	}

	if err == nil {
		m.remoteFailures = 0
		return
	}

	m.remoteFailures++
	if m.remoteFailures != unreachableThreshold {
		return
	}

	prov, dbErr := m.store.GetProvider(context.Background())
	if dbErr != nil {
		return
	}

	m.log.Warnw("provider unreachable",
		"provider", prov.ComponentName,
		"failures", m.remoteFailures,
	)

	if m.notifier != nil {
		m.notifier.Publish(notify.Event{
			Type:          notify.EventProviderUnreachable,
			ComponentName: prov.ComponentName,
		})
	}
}

// SelectProvider makes componentName the selected provider. Selecting the
// provider that is already selected keeps its rotation state and publishes
// nothing.
func (m *Manager) SelectProvider(ctx context.Context, componentName string) (*database.Provider, error) {
	prov, err := m.queue.Process(selectJob{ctx: ctx, componentName: componentName})
	if err != nil {
		return nil, err
	}

	return prov.(*database.Provider), nil
}

func (m *Manager) runSelect(job selectJob) (*database.Provider, error) {
	prov, changed, err := m.store.SelectProvider(job.ctx, job.componentName)
	if err != nil {
		return nil, err
	}

	if !changed {
		return prov, nil
	}

	m.remoteFailures = 0
	m.invalidateCapabilities(job.ctx, prov.ComponentName)

	if m.notifier != nil {
		m.notifier.Publish(notify.Event{
			Type:          notify.EventProviderChanged,
			ComponentName: prov.ComponentName,
		})
	}

	// Kick off an immediate load so the switch shows artwork right away
	go func() {
		if _, err := m.NextArtwork(context.Background()); err != nil && Retryable(err) {
			m.log.Infow("initial load after provider switch failed",
				"provider", prov.ComponentName,
				"error", err,
			)
		}
	}()

	return prov, nil
}

// Description returns the selected provider's current display description,
// degrading to an empty string when the provider can not be reached
func (m *Manager) Description(ctx context.Context, componentName string) string {
	data, err := m.descriptions.Get(ctx, descriptionKey(componentName))
	if err != nil {
		return ""
	}

	return string(data)
}

// SupportsNextArtwork reports whether the selected provider can produce an
// alternative to the current artwork, degrading to false when the provider
// can not be reached
func (m *Manager) SupportsNextArtwork(ctx context.Context, componentName string) bool {
	data, err := m.supportsNext.Get(ctx, supportsNextKey(componentName))
	if err != nil {
		return false
	}

	return string(data) == "1"
}

// Run schedules periodic loads until the context is cancelled. An interval of
// zero disables scheduled rotation, manual loads still work.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval == 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.NextArtwork(ctx); err != nil {
				m.log.Debugw("scheduled load failed",
					"error", err,
					"retryable", Retryable(err),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops the queue after the current job finishes
func (m *Manager) Shutdown() {
	m.queue.Shutdown()
}
