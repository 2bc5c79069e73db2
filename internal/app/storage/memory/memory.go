package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/explorer_api/internal/app/domain/bulletin"
	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/domain/node"
	"github.com/R3E-Network/explorer_api/internal/app/domain/source"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	networks  map[string]network.Network
	policies  []network.Policy
	assets    map[string]feed.Asset
	feeds     map[string]feed.Feed
	facts     []fact.Fact
	nodes     map[string]node.Node
	sources   map[string]source.Source
	bulletins []bulletin.Item
}

var _ storage.NetworkStore = (*Store)(nil)
var _ storage.FeedStore = (*Store)(nil)
var _ storage.FactStore = (*Store)(nil)
var _ storage.NodeStore = (*Store)(nil)
var _ storage.SourceStore = (*Store)(nil)
var _ storage.BulletinStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		networks: make(map[string]network.Network),
		assets:   make(map[string]feed.Asset),
		feeds:    make(map[string]feed.Feed),
		nodes:    make(map[string]node.Node),
		sources:  make(map[string]source.Source),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// Seeding ---------------------------------------------------------------------

// AddNetwork stores a network, assigning an id when empty.
func (s *Store) AddNetwork(n network.Network) network.Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = s.nextIDLocked()
	}
	n.Policies = nil
	s.networks[n.ID] = n
	return n
}

// AddPolicy stores a network policy.
func (s *Store) AddPolicy(p network.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = append(s.policies, p)
}

// AddAsset stores an asset, assigning an id when empty.
func (s *Store) AddAsset(a feed.Asset) feed.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = s.nextIDLocked()
	}
	s.assets[a.ID] = a
	return a
}

// AddFeed stores a feed. Assets are referenced through BaseAssetID and
// QuoteAssetID and resolved on read.
func (s *Store) AddFeed(f feed.Feed) feed.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = s.nextIDLocked()
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now().UTC()
	}
	f.BaseAsset, f.QuoteAsset = nil, nil
	s.feeds[f.ID] = f
	return s.withAssetsLocked(f)
}

// AddFact stores a fact, assigning an id when empty.
func (s *Store) AddFact(f fact.Fact) fact.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = s.nextIDLocked()
	}
	f.ValidationDate = f.ValidationDate.UTC()
	f.PublicationDate = f.PublicationDate.UTC()
	s.facts = append(s.facts, f)
	return f
}

// AddNode stores a node, assigning an id when empty.
func (s *Store) AddNode(n node.Node) node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = s.nextIDLocked()
	}
	s.nodes[n.ID] = n
	return n
}

// AddSource stores a source, assigning an id when empty.
func (s *Store) AddSource(src source.Source) source.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src.ID == "" {
		src.ID = s.nextIDLocked()
	}
	s.sources[src.ID] = src
	return src
}

// AddBulletin stores a news item, assigning an id when empty.
func (s *Store) AddBulletin(item bulletin.Item) bulletin.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = s.nextIDLocked()
	}
	s.bulletins = append(s.bulletins, item)
	return item
}

// NetworkStore implementation -------------------------------------------------

func (s *Store) ListNetworks(_ context.Context) ([]network.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]network.Network, 0, len(s.networks))
	for _, n := range s.networks {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *Store) GetNetworkByName(_ context.Context, name string) (network.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.networks {
		if n.Name == name {
			return n, nil
		}
	}
	return network.Network{}, storage.ErrNotFound
}

func (s *Store) ListPolicies(_ context.Context, networkIDs []string) ([]network.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(networkIDs)
	var result []network.Policy
	for _, p := range s.policies {
		if wanted[p.Network] {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].StartingSlot > result[j].StartingSlot })
	return result, nil
}

// FeedStore implementation ----------------------------------------------------

func (s *Store) ListFeeds(_ context.Context, networkID string) ([]feed.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []feed.Feed
	for _, f := range s.feeds {
		if f.Network == networkID {
			result = append(result, s.withAssetsLocked(f))
		}
	}
	sortFeedsByUpdated(result)
	return result, nil
}

func (s *Store) FindFeed(_ context.Context, networkID, key string) (feed.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []feed.Feed
	for _, f := range s.feeds {
		if f.Network == networkID && strings.HasPrefix(f.FeedID, key+"/") {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		return feed.Feed{}, storage.ErrNotFound
	}
	sortFeedsByUpdated(matches)
	return s.withAssetsLocked(matches[0]), nil
}

func (s *Store) GetFeedsByIDs(_ context.Context, ids []string) (map[string]feed.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]feed.Feed, len(ids))
	for _, id := range ids {
		if f, ok := s.feeds[id]; ok {
			result[id] = s.withAssetsLocked(f)
		}
	}
	return result, nil
}

func (s *Store) SearchFeeds(_ context.Context, networkID, query string, limit int) ([]feed.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var result []feed.Feed
	for _, f := range s.feeds {
		if f.Network == networkID && strings.Contains(strings.ToLower(f.FeedID), needle) {
			result = append(result, s.withAssetsLocked(f))
		}
	}
	sortFeedsByUpdated(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CountActiveFeeds(_ context.Context, networkID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, f := range s.feeds {
		if f.Network == networkID && f.Status == feed.StatusActive {
			count++
		}
	}
	return count, nil
}

func (s *Store) withAssetsLocked(f feed.Feed) feed.Feed {
	if a, ok := s.assets[f.BaseAssetID]; ok {
		asset := a
		f.BaseAsset = &asset
	}
	if a, ok := s.assets[f.QuoteAssetID]; ok {
		asset := a
		f.QuoteAsset = &asset
	}
	return f
}

// FactStore implementation ----------------------------------------------------

func (s *Store) ListFacts(_ context.Context, filter fact.Filter, page fact.Page) ([]fact.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchFactsLocked(filter)
	sortNewestFirst(matched)

	if page.Offset > 0 {
		if page.Offset >= len(matched) {
			return []fact.Fact{}, nil
		}
		matched = matched[page.Offset:]
	}
	if page.Limit > 0 && len(matched) > page.Limit {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

func (s *Store) CountFacts(_ context.Context, filter fact.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matchFactsLocked(filter))), nil
}

func (s *Store) LatestFacts(_ context.Context, networkID string, feedIDs []string) (map[string]fact.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(feedIDs)
	result := make(map[string]fact.Fact)
	for _, f := range s.facts {
		if f.Network != networkID || !wanted[f.Feed] {
			continue
		}
		if cur, ok := result[f.Feed]; !ok || f.Newer(cur) {
			result[f.Feed] = f
		}
	}
	return result, nil
}

func (s *Store) CountFactsByFeed(_ context.Context, networkID string, feedIDs []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(feedIDs)
	result := make(map[string]int64)
	for _, f := range s.facts {
		if f.Network == networkID && wanted[f.Feed] {
			result[f.Feed]++
		}
	}
	return result, nil
}

func (s *Store) ValueAsOf(ctx context.Context, networkID, feedID string, cutoff time.Time) (float64, bool, error) {
	values, err := s.ValuesAsOf(ctx, networkID, []string{feedID}, cutoff)
	if err != nil {
		return 0, false, err
	}
	v, ok := values[feedID]
	return v, ok, nil
}

func (s *Store) ValuesAsOf(_ context.Context, networkID string, feedIDs []string, cutoff time.Time) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(feedIDs)
	best := make(map[string]fact.Fact)
	for _, f := range s.facts {
		if f.Network != networkID || !wanted[f.Feed] || f.ValidationDate.After(cutoff) {
			continue
		}
		if cur, ok := best[f.Feed]; !ok || f.Newer(cur) {
			best[f.Feed] = f
		}
	}

	result := make(map[string]float64, len(best))
	for id, f := range best {
		result[id] = f.Value
	}
	return result, nil
}

func (s *Store) ScanStamps(ctx context.Context, networkID string, from, to time.Time, fn func(fact.Stamp) error) error {
	s.mu.RLock()
	var stamps []fact.Stamp
	for _, f := range s.facts {
		if f.Network != networkID || f.PublicationDate.Before(from) || !f.PublicationDate.Before(to) {
			continue
		}
		fd, ok := s.feeds[f.Feed]
		if !ok {
			continue
		}
		stamps = append(stamps, fact.Stamp{
			FeedID:          fd.FeedID,
			PublicationDate: f.PublicationDate,
			TransactionID:   f.TransactionID,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(stamps, func(i, j int) bool {
		if stamps[i].FeedID != stamps[j].FeedID {
			return stamps[i].FeedID < stamps[j].FeedID
		}
		return stamps[i].PublicationDate.Before(stamps[j].PublicationDate)
	})

	for _, st := range stamps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Totals(_ context.Context, networkID string, from, to time.Time) (fact.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals fact.Totals
	txs := make(map[string]struct{})
	for _, f := range s.facts {
		if f.Network != networkID || f.PublicationDate.Before(from) || !f.PublicationDate.Before(to) {
			continue
		}
		totals.Facts++
		if f.TransactionID != "" {
			txs[f.TransactionID] = struct{}{}
		}
	}
	totals.Transactions = int64(len(txs))
	return totals, nil
}

func (s *Store) matchFactsLocked(filter fact.Filter) []fact.Fact {
	needle := strings.ToLower(filter.Query)
	var result []fact.Fact
	for _, f := range s.facts {
		if filter.NetworkID != "" && f.Network != filter.NetworkID {
			continue
		}
		if filter.FeedRef != "" && f.Feed != filter.FeedRef {
			continue
		}
		if filter.FeedKey != "" {
			fd, ok := s.feeds[f.Feed]
			if !ok || fd.FeedID != filter.FeedKey {
				continue
			}
		}
		if filter.FactURN != "" && f.FactURN != filter.FactURN {
			continue
		}
		if filter.NodeID != "" && !contains(f.ParticipatingNodes, filter.NodeID) {
			continue
		}
		if filter.SourceID != "" && !contains(f.Sources, filter.SourceID) {
			continue
		}
		if !filter.ValidatedAfter.IsZero() && !f.ValidationDate.After(filter.ValidatedAfter) {
			continue
		}
		if !filter.PublishedFrom.IsZero() && f.PublicationDate.Before(filter.PublishedFrom) {
			continue
		}
		if needle != "" && !factMatches(f, needle) {
			continue
		}
		result = append(result, f)
	}
	return result
}

func factMatches(f fact.Fact, needle string) bool {
	for _, field := range []string{f.FactURN, f.StorageURN, f.TransactionID, f.BlockHash} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// NodeStore implementation ----------------------------------------------------

func (s *Store) ListNodes(_ context.Context, networkID string) ([]node.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []node.Node
	for _, n := range s.nodes {
		if n.Network == networkID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *Store) GetNodesByIDs(_ context.Context, ids []string) (map[string]node.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]node.Node, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			result[id] = n
		}
	}
	return result, nil
}

// SourceStore implementation --------------------------------------------------

func (s *Store) ListActiveSources(_ context.Context, networkID string) ([]source.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []source.Source
	for _, src := range s.sources {
		if src.Network == networkID && src.Status == source.StatusActive {
			result = append(result, src)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// BulletinStore implementation ------------------------------------------------

func (s *Store) LatestBulletin(_ context.Context) (bulletin.Item, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest bulletin.Item
		found  bool
	)
	for _, item := range s.bulletins {
		if !found || item.PublishDate.After(latest.PublishDate) {
			latest, found = item, true
		}
	}
	return latest, found, nil
}

func (s *Store) CountOpenIncidents(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, item := range s.bulletins {
		if item.Type == bulletin.TypeIncidentReport && item.Status != bulletin.StatusResolved {
			count++
		}
	}
	return count, nil
}

// helpers ---------------------------------------------------------------------

func sortNewestFirst(facts []fact.Fact) {
	sort.Slice(facts, func(i, j int) bool { return facts[i].Newer(facts[j]) })
}

func sortFeedsByUpdated(feeds []feed.Feed) {
	sort.Slice(feeds, func(i, j int) bool {
		if !feeds[i].UpdatedAt.Equal(feeds[j].UpdatedAt) {
			return feeds[i].UpdatedAt.After(feeds[j].UpdatedAt)
		}
		return feeds[i].ID > feeds[j].ID
	})
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
