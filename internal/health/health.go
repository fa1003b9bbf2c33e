package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/cache"
	"github.com/SergeyBurlaka/muzei/internal/database"
	"github.com/SergeyBurlaka/muzei/internal/logger"
	"github.com/SergeyBurlaka/muzei/internal/provider"
	"github.com/SergeyBurlaka/muzei/internal/storage"
)

const checkInterval = 10 * time.Second
const checkTimeout = 8 * time.Second

// Checker is a periodic health checker
type Checker struct {
	Ctx      context.Context
	Database database.Store
	Cache    cache.Provider
	Storage  storage.Provider
	Clients  provider.Factory
	status   Status
	mutex    sync.RWMutex
	Log      *logger.Logger
}

// Status contains the healtcheck status
type Status struct {
	Healthy  bool   `json:"healthy"`
	Database string `json:"database,omitempty"`
	Cache    string `json:"cache,omitempty"`
	Storage  string `json:"storage,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Run starts the health checker
func (c *Checker) Run() {
	ticker := time.NewTicker(checkInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.runCheck()
			case <-c.Ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	c.runCheck()
}

// Status returns the status of the health checks
func (c *Checker) Status() Status {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.status
}

func (c *Checker) runCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	channel := make(chan Status, 1)
	go func() {
		c.check(ctx, channel)
	}()

	select {
	case <-ctx.Done():
		c.mutex.Lock()

		c.status = Status{
			Healthy: false,
		}
		if c.Database != nil {
			c.status.Database = "unknown"
		}
		if c.Cache != nil {
			c.status.Cache = "unknown"
		}
		if c.Storage != nil {
			c.status.Storage = "unknown"
		}

		c.mutex.Unlock()
		c.Log.Errorw("healthcheck timed out")
	case status, ok := <-channel:
		if !ok {
			return
		}

		c.mutex.Lock()
		c.status = status
		c.mutex.Unlock()
		if !status.Healthy {
			c.Log.Errorw("healthcheck error",
				"status", status,
			)
		}
	}
}

func (c *Checker) check(ctx context.Context, channel chan Status) {
	defer close(channel)

	if ctx.Err() != nil {
		return
	}

	status := Status{
		Healthy: true,
	}
	if c.Database != nil {
		status.Database = "unknown"
	}
	if c.Cache != nil {
		status.Cache = "unknown"
	}
	if c.Storage != nil {
		status.Storage = "unknown"
	}

	var selected *database.Provider

	if c.Database != nil {
		// An empty registry is a valid state, only an errored lookup counts
		// against us
		prov, err := c.Database.GetProvider(ctx)
		if err != nil && !errors.Is(err, database.ErrNoProvider) {
			status.Healthy = false
			status.Database = "unhealthy"
		} else {
			selected = prov
			status.Database = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	if c.Cache != nil {
		if _, err := c.Cache.Get(ctx, "healthcheck"); err != cache.ErrNotFound {
			status.Healthy = false
			status.Cache = "unhealthy"
		} else {
			status.Cache = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	if c.Storage != nil {
		if _, err := c.Storage.Get(ctx, "healthcheck"); err != nil && !errors.Is(err, storage.ErrNotFound) {
			status.Healthy = false
			status.Storage = "unhealthy"
		} else {
			status.Storage = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	// Provider outages are expected and reported without marking the service
	// itself unhealthy
	if c.Clients != nil && selected != nil {
		client := c.Clients.ClientFor(selected.ComponentName)
		if _, err := client.LoadInfo(ctx); err != nil {
			status.Provider = "unreachable"
		} else {
			status.Provider = "reachable"
		}
	}

	channel <- status
}
