package app

import (
	"context"
	"time"

	"github.com/R3E-Network/explorer_api/internal/app/services/dashboard"
	"github.com/R3E-Network/explorer_api/internal/app/services/facts"
	"github.com/R3E-Network/explorer_api/internal/app/services/feeds"
	"github.com/R3E-Network/explorer_api/internal/app/services/history"
	"github.com/R3E-Network/explorer_api/internal/app/services/networks"
	"github.com/R3E-Network/explorer_api/internal/app/services/nodes"
	"github.com/R3E-Network/explorer_api/internal/app/services/search"
	"github.com/R3E-Network/explorer_api/internal/app/services/sources"
	"github.com/R3E-Network/explorer_api/internal/app/services/stats"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/internal/app/storage/memory"
	"github.com/R3E-Network/explorer_api/internal/app/system"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Networks  storage.NetworkStore
	Feeds     storage.FeedStore
	Facts     storage.FactStore
	Nodes     storage.NodeStore
	Sources   storage.SourceStore
	Bulletins storage.BulletinStore
}

// Options tune the application wiring.
type Options struct {
	// DirectorySpec is the cron schedule for refreshing the network directory.
	DirectorySpec string
	// Now overrides the clock used for lookbacks, dashboards and default
	// date ranges.
	Now func() time.Time
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Networks  *networks.Service
	Directory *networks.Directory
	Feeds     *feeds.Service
	Facts     *facts.Service
	Nodes     *nodes.Service
	Sources   *sources.Service
	Search    *search.Service
	Dashboard *dashboard.Service
	Stats     *stats.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger, opts Options) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	var mem *memory.Store
	fallback := func() *memory.Store {
		if mem == nil {
			mem = memory.New()
		}
		return mem
	}
	if stores.Networks == nil {
		stores.Networks = fallback()
	}
	if stores.Feeds == nil {
		stores.Feeds = fallback()
	}
	if stores.Facts == nil {
		stores.Facts = fallback()
	}
	if stores.Nodes == nil {
		stores.Nodes = fallback()
	}
	if stores.Sources == nil {
		stores.Sources = fallback()
	}
	if stores.Bulletins == nil {
		stores.Bulletins = fallback()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	directory := networks.NewDirectory(stores.Networks, opts.DirectorySpec, log.Named("directory"))
	resolver := history.New(stores.Facts, log.Named("history"), history.WithClock(now))

	manager := system.NewManager(log.Named("system"))
	manager.Register(directory)

	return &Application{
		manager:   manager,
		log:       log,
		Networks:  networks.New(stores.Networks, log.Named("networks")),
		Directory: directory,
		Feeds:     feeds.New(stores.Feeds, stores.Facts, resolver, log.Named("feeds")),
		Facts:     facts.New(stores.Facts, stores.Feeds, stores.Nodes, log.Named("facts")),
		Nodes:     nodes.New(stores.Nodes, stores.Facts, stores.Feeds, log.Named("nodes")),
		Sources:   sources.New(stores.Sources, stores.Facts, stores.Feeds, log.Named("sources")),
		Search:    search.New(stores.Facts, stores.Feeds, log.Named("search")),
		Dashboard: dashboard.New(dashboard.Stores{
			Facts:     stores.Facts,
			Feeds:     stores.Feeds,
			Nodes:     stores.Nodes,
			Sources:   stores.Sources,
			Bulletins: stores.Bulletins,
		}, log.Named("dashboard"), now),
		Stats: stats.New(directory, stores.Facts, log.Named("stats"), stats.WithClock(now)),
	}
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
