package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/services/facts"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// Limit caps each result list.
const Limit = 50

// ErrQueryRequired is returned for a blank query.
var ErrQueryRequired = errors.New("query parameter 'q' is required")

// FeedHit is a feed matched by identifier.
type FeedHit struct {
	feed.Feed
	TypeDescription      string `json:"type_description"`
	TypeDescriptionShort string `json:"type_description_short"`
	TotalFacts           int64  `json:"totalFacts"`
}

// Results groups fact and feed matches.
type Results struct {
	Facts []facts.WithFeed `json:"facts"`
	Feeds []FeedHit        `json:"feeds"`
}

// Service performs substring search over facts and feeds.
type Service struct {
	facts storage.FactStore
	feeds storage.FeedStore
	log   *logger.Logger
}

// New constructs a search service.
func New(facts storage.FactStore, feeds storage.FeedStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("search")
	}
	return &Service{facts: facts, feeds: feeds, log: log}
}

// Search matches q case-insensitively against fact URNs, storage URNs,
// transaction ids and block hashes, and against feed identifiers. Feed hits
// do not carry fact counts.
func (s *Service) Search(ctx context.Context, networkID, q string) (Results, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Results{}, ErrQueryRequired
	}

	matched, err := s.facts.ListFacts(ctx, fact.Filter{NetworkID: networkID, Query: q}, fact.Page{Limit: Limit})
	if err != nil {
		return Results{}, fmt.Errorf("search facts: %w", err)
	}
	factHits, err := facts.AttachFeeds(ctx, s.feeds, matched)
	if err != nil {
		return Results{}, err
	}

	feeds, err := s.feeds.SearchFeeds(ctx, networkID, q, Limit)
	if err != nil {
		return Results{}, fmt.Errorf("search feeds: %w", err)
	}
	feedHits := make([]FeedHit, 0, len(feeds))
	for _, f := range feeds {
		feedHits = append(feedHits, FeedHit{
			Feed:                 f,
			TypeDescription:      feed.TypeDescription,
			TypeDescriptionShort: feed.TypeDescriptionShort,
		})
	}

	s.log.WithField("network_id", networkID).
		WithField("facts", len(factHits)).
		WithField("feeds", len(feedHits)).
		Debug("search completed")
	return Results{Facts: factHits, Feeds: feedHits}, nil
}
