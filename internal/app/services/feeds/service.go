package feeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/services/history"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// MaxRangeFacts caps the facts returned by FactsInRange.
const MaxRangeFacts = 5000

// View is a feed enriched with its latest fact, fact count and historical
// values.
type View struct {
	feed.Feed
	LatestFact           *fact.Fact `json:"latestFact"`
	TotalFacts           int64      `json:"totalFacts"`
	TypeDescription      string     `json:"type_description"`
	TypeDescriptionShort string     `json:"type_description_short"`
	feed.HistoricalValues
}

// Service serves feed listings and per-feed fact windows.
type Service struct {
	feeds    storage.FeedStore
	facts    storage.FactStore
	resolver *history.Resolver
	log      *logger.Logger
}

// New constructs a feed service.
func New(feeds storage.FeedStore, facts storage.FactStore, resolver *history.Resolver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("feeds")
	}
	if resolver == nil {
		resolver = history.New(facts, log)
	}
	return &Service{feeds: feeds, facts: facts, resolver: resolver, log: log}
}

// List returns the feeds of a network, most recently updated first.
func (s *Service) List(ctx context.Context, networkID string) ([]View, error) {
	items, err := s.feeds.ListFeeds(ctx, networkID)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	if len(items) == 0 {
		return []View{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, f := range items {
		ids = append(ids, f.ID)
	}
	latest, err := s.facts.LatestFacts(ctx, networkID, ids)
	if err != nil {
		return nil, fmt.Errorf("latest facts: %w", err)
	}
	counts, err := s.facts.CountFactsByFeed(ctx, networkID, ids)
	if err != nil {
		return nil, fmt.Errorf("count facts: %w", err)
	}
	historical := s.resolver.SnapshotMany(ctx, networkID, ids)

	views := make([]View, 0, len(items))
	for _, f := range items {
		var lf *fact.Fact
		if l, ok := latest[f.ID]; ok {
			lf = &l
		}
		views = append(views, newView(f, lf, counts[f.ID], historical[f.ID]))
	}
	return views, nil
}

// Get returns the most recently updated feed whose feed_id is key followed by
// a version suffix. A trailing "/facts/undefined" on key is ignored.
func (s *Service) Get(ctx context.Context, networkID, key string) (View, error) {
	f, err := s.feeds.FindFeed(ctx, networkID, CleanKey(key))
	if err != nil {
		return View{}, err
	}

	latest, err := s.facts.LatestFacts(ctx, networkID, []string{f.ID})
	if err != nil {
		return View{}, fmt.Errorf("latest fact: %w", err)
	}
	total, err := s.facts.CountFacts(ctx, fact.Filter{NetworkID: networkID, FeedRef: f.ID})
	if err != nil {
		return View{}, fmt.Errorf("count facts: %w", err)
	}

	var lf *fact.Fact
	if l, ok := latest[f.ID]; ok {
		lf = &l
	}
	return newView(f, lf, total, s.resolver.Snapshot(ctx, networkID, f.ID)), nil
}

// FactsInRange returns the feed's facts validated after midnight UTC of the
// day rangeDays-1 days before start, newest first. rangeDays below 1 is
// treated as 1.
func (s *Service) FactsInRange(ctx context.Context, networkID, key string, rangeDays int, start time.Time) ([]fact.Fact, error) {
	f, err := s.feeds.FindFeed(ctx, networkID, CleanKey(key))
	if err != nil {
		return nil, err
	}
	if rangeDays < 1 {
		rangeDays = 1
	}

	from := start.UTC().AddDate(0, 0, -(rangeDays - 1))
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)

	items, err := s.facts.ListFacts(ctx,
		fact.Filter{NetworkID: networkID, FeedRef: f.ID, ValidatedAfter: from},
		fact.Page{Limit: MaxRangeFacts},
	)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	out := make([]fact.Fact, 0, len(items))
	for _, item := range items {
		out = append(out, item.Normalized())
	}
	return out, nil
}

// CleanKey strips the "/facts/undefined" suffix some clients append to feed
// keys.
func CleanKey(key string) string {
	return strings.TrimSuffix(key, "/facts/undefined")
}

func newView(f feed.Feed, latest *fact.Fact, total int64, hv feed.HistoricalValues) View {
	if latest != nil {
		n := latest.Normalized()
		latest = &n
	}
	return View{
		Feed:                 f,
		LatestFact:           latest,
		TotalFacts:           total,
		TypeDescription:      feed.TypeDescription,
		TypeDescriptionShort: feed.TypeDescriptionShort,
		HistoricalValues:     hv,
	}
}
