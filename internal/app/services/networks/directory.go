package networks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/internal/app/system"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

var _ system.Service = (*Directory)(nil)

// DefaultRefreshSpec is the cron schedule used when none is configured.
const DefaultRefreshSpec = "@every 5m"

// Directory caches the name to network mapping. Network rows change rarely,
// so lookups are served from memory, refreshed on a cron schedule and on a
// miss.
type Directory struct {
	store storage.NetworkStore
	log   *logger.Logger
	spec  string

	mu       sync.RWMutex
	byName   map[string]network.Network
	loadedAt time.Time

	lifecycle sync.Mutex
	cron      *cron.Cron
}

// NewDirectory creates a directory refreshed according to spec, a robfig/cron
// expression. An empty spec selects DefaultRefreshSpec.
func NewDirectory(store storage.NetworkStore, spec string, log *logger.Logger) *Directory {
	if log == nil {
		log = logger.NewDefault("network-directory")
	}
	if spec == "" {
		spec = DefaultRefreshSpec
	}
	return &Directory{store: store, log: log, spec: spec, byName: map[string]network.Network{}}
}

func (d *Directory) Name() string { return "network-directory" }

// Start loads the directory and schedules refreshes. A failed initial load is
// logged; lookups fall through to the store until a refresh succeeds.
func (d *Directory) Start(ctx context.Context) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	if d.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(d.spec, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.Refresh(refreshCtx); err != nil {
			d.log.WithError(err).Warn("network directory refresh failed")
		}
	}); err != nil {
		return err
	}

	if err := d.Refresh(ctx); err != nil {
		d.log.WithError(err).Warn("initial network directory load failed")
	}
	c.Start()
	d.cron = c
	d.log.WithField("schedule", d.spec).Info("network directory started")
	return nil
}

func (d *Directory) Stop(ctx context.Context) error {
	d.lifecycle.Lock()
	c := d.cron
	d.cron = nil
	d.lifecycle.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	d.log.Info("network directory stopped")
	return nil
}

// Refresh reloads every network from the store.
func (d *Directory) Refresh(ctx context.Context) error {
	nets, err := d.store.ListNetworks(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]network.Network, len(nets))
	for _, n := range nets {
		byName[n.Name] = n
	}

	d.mu.Lock()
	d.byName = byName
	d.loadedAt = time.Now()
	d.mu.Unlock()
	return nil
}

// GetNetworkByName returns the cached network, consulting the store on a
// miss so networks added between refreshes resolve immediately.
func (d *Directory) GetNetworkByName(ctx context.Context, name string) (network.Network, error) {
	d.mu.RLock()
	n, ok := d.byName[name]
	d.mu.RUnlock()
	if ok {
		return n, nil
	}

	n, err := d.store.GetNetworkByName(ctx, name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			d.log.WithError(err).WithField("network", name).Warn("network lookup failed")
		}
		return network.Network{}, err
	}

	d.mu.Lock()
	d.byName[name] = n
	d.mu.Unlock()
	return n, nil
}

// LoadedAt reports when the last full refresh completed.
func (d *Directory) LoadedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt
}
