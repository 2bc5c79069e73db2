package facts

import (
	"context"
	"fmt"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/domain/node"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// PageSize is the number of facts per page.
const PageSize = 5

// WithFeed is a fact whose feed reference is replaced by the feed record.
type WithFeed struct {
	fact.Fact
	Feed *feed.Feed `json:"feed"`
}

// Detail additionally expands participating node ids into node records.
// Ids that match no node are dropped.
type Detail struct {
	WithFeed
	ParticipatingNodes []node.Node `json:"participating_nodes"`
}

// PageResult is one page of facts.
type PageResult struct {
	Facts      []Detail `json:"facts"`
	TotalPages int64    `json:"totalPages"`
	TotalFacts int64    `json:"totalFacts"`
}

// Service pages through facts and looks them up by URN.
type Service struct {
	facts storage.FactStore
	feeds storage.FeedStore
	nodes storage.NodeStore
	log   *logger.Logger
}

// New constructs a fact service.
func New(facts storage.FactStore, feeds storage.FeedStore, nodes storage.NodeStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("facts")
	}
	return &Service{facts: facts, feeds: feeds, nodes: nodes, log: log}
}

// Page returns page (1-based) of the network's facts, newest first. feedKey,
// when set, restricts the listing to the feed with that exact feed_id.
func (s *Service) Page(ctx context.Context, networkID string, page int, feedKey string) (PageResult, error) {
	if page < 1 {
		page = 1
	}
	filter := fact.Filter{NetworkID: networkID, FeedKey: feedKey}

	items, err := s.facts.ListFacts(ctx, filter, fact.Page{Limit: PageSize, Offset: (page - 1) * PageSize})
	if err != nil {
		return PageResult{}, fmt.Errorf("list facts: %w", err)
	}
	total, err := s.facts.CountFacts(ctx, filter)
	if err != nil {
		return PageResult{}, fmt.Errorf("count facts: %w", err)
	}
	details, err := s.expand(ctx, items)
	if err != nil {
		return PageResult{}, err
	}
	return PageResult{
		Facts:      details,
		TotalPages: (total + PageSize - 1) / PageSize,
		TotalFacts: total,
	}, nil
}

// ByURN returns the fact with the given URN, optionally constrained to a
// feed_id. It returns storage.ErrNotFound when nothing matches.
func (s *Service) ByURN(ctx context.Context, networkID, factURN, feedKey string) (Detail, error) {
	items, err := s.facts.ListFacts(ctx,
		fact.Filter{NetworkID: networkID, FactURN: factURN, FeedKey: feedKey},
		fact.Page{Limit: 1},
	)
	if err != nil {
		return Detail{}, fmt.Errorf("find fact: %w", err)
	}
	if len(items) == 0 {
		return Detail{}, storage.ErrNotFound
	}
	details, err := s.expand(ctx, items)
	if err != nil {
		return Detail{}, err
	}
	return details[0], nil
}

func (s *Service) expand(ctx context.Context, items []fact.Fact) ([]Detail, error) {
	withFeeds, err := AttachFeeds(ctx, s.feeds, items)
	if err != nil {
		return nil, err
	}

	var nodeIDs []string
	seen := map[string]bool{}
	for _, f := range items {
		for _, id := range f.ParticipatingNodes {
			if !seen[id] {
				seen[id] = true
				nodeIDs = append(nodeIDs, id)
			}
		}
	}
	nodes := map[string]node.Node{}
	if len(nodeIDs) > 0 {
		if nodes, err = s.nodes.GetNodesByIDs(ctx, nodeIDs); err != nil {
			return nil, fmt.Errorf("load nodes: %w", err)
		}
	}

	out := make([]Detail, 0, len(withFeeds))
	for _, wf := range withFeeds {
		expanded := make([]node.Node, 0, len(wf.Fact.ParticipatingNodes))
		for _, id := range wf.Fact.ParticipatingNodes {
			if n, ok := nodes[id]; ok {
				expanded = append(expanded, n)
			}
		}
		out = append(out, Detail{WithFeed: wf, ParticipatingNodes: expanded})
	}
	return out, nil
}

// AttachFeeds loads the feed of every fact with one batched lookup. Facts
// whose feed no longer exists keep a nil feed.
func AttachFeeds(ctx context.Context, feeds storage.FeedStore, items []fact.Fact) ([]WithFeed, error) {
	out := make([]WithFeed, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, f := range items {
		if !seen[f.Feed] {
			seen[f.Feed] = true
			ids = append(ids, f.Feed)
		}
	}
	byID, err := feeds.GetFeedsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}

	for _, f := range items {
		wf := WithFeed{Fact: f.Normalized()}
		if fd, ok := byID[f.Feed]; ok {
			fd := fd
			wf.Feed = &fd
		}
		out = append(out, wf)
	}
	return out, nil
}
