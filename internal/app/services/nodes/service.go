package nodes

import (
	"context"
	"fmt"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/node"
	"github.com/R3E-Network/explorer_api/internal/app/services/facts"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// View is a node with the facts it co-signed.
type View struct {
	node.Node
	TotalFacts int64           `json:"totalFacts"`
	LatestFact *facts.WithFeed `json:"latestFact"`
}

// Service lists oracle nodes.
type Service struct {
	nodes storage.NodeStore
	facts storage.FactStore
	feeds storage.FeedStore
	log   *logger.Logger
}

// New constructs a node service.
func New(nodes storage.NodeStore, facts storage.FactStore, feeds storage.FeedStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("nodes")
	}
	return &Service{nodes: nodes, facts: facts, feeds: feeds, log: log}
}

// List returns the network's nodes, each with the number of facts it
// participated in and the newest of them.
func (s *Service) List(ctx context.Context, networkID string) ([]View, error) {
	items, err := s.nodes.ListNodes(ctx, networkID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	views := make([]View, 0, len(items))
	for _, n := range items {
		filter := fact.Filter{NetworkID: networkID, NodeID: n.ID}
		total, err := s.facts.CountFacts(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("count facts for node %s: %w", n.ID, err)
		}
		latest, err := latestWithFeed(ctx, s.facts, s.feeds, filter)
		if err != nil {
			return nil, fmt.Errorf("latest fact for node %s: %w", n.ID, err)
		}
		views = append(views, View{Node: n, TotalFacts: total, LatestFact: latest})
	}
	return views, nil
}

// latestWithFeed returns the newest matching fact with its feed attached, or
// nil when there is none or its feed is gone.
func latestWithFeed(ctx context.Context, factStore storage.FactStore, feedStore storage.FeedStore, filter fact.Filter) (*facts.WithFeed, error) {
	items, err := factStore.ListFacts(ctx, filter, fact.Page{Limit: 1})
	if err != nil || len(items) == 0 {
		return nil, err
	}
	attached, err := facts.AttachFeeds(ctx, feedStore, items)
	if err != nil {
		return nil, err
	}
	if attached[0].Feed == nil {
		return nil, nil
	}
	return &attached[0], nil
}
