package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/explorer_api/internal/app/domain/bulletin"
	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// NodeSummary is the dashboard projection of a node.
type NodeSummary struct {
	ID      string `json:"id"`
	NodeURN string `json:"node_urn"`
	Network string `json:"network"`
	Status  string `json:"status"`
	Type    string `json:"type"`
	Name    string `json:"name"`
}

// SourceSummary is the dashboard projection of a source.
type SourceSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Network string `json:"network"`
	Type    string `json:"type"`
}

// Summary is the network overview.
type Summary struct {
	TotalFacts          int64           `json:"totalFacts"`
	TotalFacts24Hour    int64           `json:"totalFacts24Hour"`
	TotalActiveFeeds    int64           `json:"totalActiveFeeds"`
	ActiveIncidents     int64           `json:"activeIncidents"`
	LatestNetworkUpdate *bulletin.Item  `json:"latestNetworkUpdate"`
	Nodes               []NodeSummary   `json:"nodes"`
	Sources             []SourceSummary `json:"sources"`
	LastUpdated         time.Time       `json:"lastUpdated"`
}

// Stores bundles the readers the dashboard draws on.
type Stores struct {
	Facts     storage.FactStore
	Feeds     storage.FeedStore
	Nodes     storage.NodeStore
	Sources   storage.SourceStore
	Bulletins storage.BulletinStore
}

// Service builds network overviews.
type Service struct {
	stores Stores
	log    *logger.Logger
	now    func() time.Time
}

// New constructs a dashboard service. now may be nil.
func New(stores Stores, log *logger.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logger.NewDefault("dashboard")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{stores: stores, log: log, now: now}
}

// Summary collects the network's counters, the newest bulletin, its nodes and
// its active sources. "24 hour" counts facts published since midnight UTC.
func (s *Service) Summary(ctx context.Context, networkID string) (Summary, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out Summary
	var err error
	if out.TotalFacts, err = s.stores.Facts.CountFacts(ctx, fact.Filter{NetworkID: networkID}); err != nil {
		return Summary{}, fmt.Errorf("count facts: %w", err)
	}
	if out.TotalFacts24Hour, err = s.stores.Facts.CountFacts(ctx, fact.Filter{NetworkID: networkID, PublishedFrom: midnight}); err != nil {
		return Summary{}, fmt.Errorf("count today's facts: %w", err)
	}
	if out.TotalActiveFeeds, err = s.stores.Feeds.CountActiveFeeds(ctx, networkID); err != nil {
		return Summary{}, fmt.Errorf("count active feeds: %w", err)
	}
	if out.ActiveIncidents, err = s.stores.Bulletins.CountOpenIncidents(ctx); err != nil {
		return Summary{}, fmt.Errorf("count incidents: %w", err)
	}

	item, ok, err := s.stores.Bulletins.LatestBulletin(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("latest bulletin: %w", err)
	}
	if ok {
		item.Description = item.Summary()
		out.LatestNetworkUpdate = &item
	}

	nodes, err := s.stores.Nodes.ListNodes(ctx, networkID)
	if err != nil {
		return Summary{}, fmt.Errorf("list nodes: %w", err)
	}
	out.Nodes = make([]NodeSummary, 0, len(nodes))
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, NodeSummary{ID: n.ID, NodeURN: n.NodeURN, Network: n.Network, Status: n.Status, Type: n.Type, Name: n.Name})
	}

	sources, err := s.stores.Sources.ListActiveSources(ctx, networkID)
	if err != nil {
		return Summary{}, fmt.Errorf("list sources: %w", err)
	}
	out.Sources = make([]SourceSummary, 0, len(sources))
	for _, src := range sources {
		out.Sources = append(out.Sources, SourceSummary{ID: src.ID, Name: src.Name, Network: src.Network, Type: src.Type})
	}

	out.LastUpdated = now
	return out, nil
}
