package storage

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/explorer_api/internal/app/domain/bulletin"
	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/domain/node"
	"github.com/R3E-Network/explorer_api/internal/app/domain/source"
)

// ErrNotFound is returned by single-record lookups that match nothing.
var ErrNotFound = errors.New("record not found")

// NetworkStore reads network records and their policies.
type NetworkStore interface {
	ListNetworks(ctx context.Context) ([]network.Network, error)
	GetNetworkByName(ctx context.Context, name string) (network.Network, error)
	ListPolicies(ctx context.Context, networkIDs []string) ([]network.Policy, error)
}

// FeedStore reads feeds together with their base and quote assets.
type FeedStore interface {
	ListFeeds(ctx context.Context, networkID string) ([]feed.Feed, error)
	// FindFeed returns the most recently updated feed whose feed_id starts
	// with key followed by a version suffix ("key/...").
	FindFeed(ctx context.Context, networkID, key string) (feed.Feed, error)
	GetFeedsByIDs(ctx context.Context, ids []string) (map[string]feed.Feed, error)
	SearchFeeds(ctx context.Context, networkID, query string, limit int) ([]feed.Feed, error)
	CountActiveFeeds(ctx context.Context, networkID string) (int64, error)
}

// FactStore reads facts. Listings are ordered newest first by validation date,
// ties broken by the higher id.
type FactStore interface {
	ListFacts(ctx context.Context, filter fact.Filter, page fact.Page) ([]fact.Fact, error)
	CountFacts(ctx context.Context, filter fact.Filter) (int64, error)

	LatestFacts(ctx context.Context, networkID string, feedIDs []string) (map[string]fact.Fact, error)
	CountFactsByFeed(ctx context.Context, networkID string, feedIDs []string) (map[string]int64, error)

	// ValueAsOf returns the value of the newest fact of feedID validated at
	// or before cutoff. ok is false when no such fact exists.
	ValueAsOf(ctx context.Context, networkID, feedID string, cutoff time.Time) (value float64, ok bool, err error)
	// ValuesAsOf is the batched form of ValueAsOf. Feeds without a fact at
	// or before cutoff are absent from the result.
	ValuesAsOf(ctx context.Context, networkID string, feedIDs []string, cutoff time.Time) (map[string]float64, error)

	// ScanStamps streams facts published in [from, to) joined to their feed
	// identifier. Iteration stops at the first error returned by fn.
	ScanStamps(ctx context.Context, networkID string, from, to time.Time, fn func(fact.Stamp) error) error
	// Totals counts facts and distinct non-empty transaction ids published in [from, to).
	Totals(ctx context.Context, networkID string, from, to time.Time) (fact.Totals, error)
}

// NodeStore reads oracle nodes.
type NodeStore interface {
	ListNodes(ctx context.Context, networkID string) ([]node.Node, error)
	GetNodesByIDs(ctx context.Context, ids []string) (map[string]node.Node, error)
}

// SourceStore reads data sources.
type SourceStore interface {
	ListActiveSources(ctx context.Context, networkID string) ([]source.Source, error)
}

// BulletinStore reads the network news feed.
type BulletinStore interface {
	LatestBulletin(ctx context.Context) (bulletin.Item, bool, error)
	CountOpenIncidents(ctx context.Context) (int64, error)
}
