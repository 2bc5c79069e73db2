package sources

import (
	"context"
	"fmt"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/source"
	"github.com/R3E-Network/explorer_api/internal/app/services/facts"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// View is an active source with the facts collected from it.
type View struct {
	source.Source
	TotalFacts int64           `json:"totalFacts"`
	LatestFact *facts.WithFeed `json:"latestFact"`
}

// Service lists data sources.
type Service struct {
	sources storage.SourceStore
	facts   storage.FactStore
	feeds   storage.FeedStore
	log     *logger.Logger
}

// New constructs a source service.
func New(sources storage.SourceStore, facts storage.FactStore, feeds storage.FeedStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sources")
	}
	return &Service{sources: sources, facts: facts, feeds: feeds, log: log}
}

// List returns the network's active sources with fact counts and the newest
// fact drawn from each.
func (s *Service) List(ctx context.Context, networkID string) ([]View, error) {
	items, err := s.sources.ListActiveSources(ctx, networkID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	views := make([]View, 0, len(items))
	for _, src := range items {
		filter := fact.Filter{NetworkID: networkID, SourceID: src.ID}
		total, err := s.facts.CountFacts(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("count facts for source %s: %w", src.ID, err)
		}

		view := View{Source: src, TotalFacts: total}
		latest, err := s.facts.ListFacts(ctx, filter, fact.Page{Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("latest fact for source %s: %w", src.ID, err)
		}
		if len(latest) > 0 {
			attached, err := facts.AttachFeeds(ctx, s.feeds, latest)
			if err != nil {
				return nil, err
			}
			if attached[0].Feed != nil {
				view.LatestFact = &attached[0]
			}
		}
		views = append(views, view)
	}
	return views, nil
}
