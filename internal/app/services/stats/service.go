// Package stats groups published facts into calendar buckets per feed.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/metrics"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// NetworkLookup resolves a network name. Both the network store and the
// cached directory satisfy it. A miss is reported as storage.ErrNotFound.
type NetworkLookup interface {
	GetNetworkByName(ctx context.Context, name string) (network.Network, error)
}

// Result is the aggregation response.
type Result struct {
	All   Summary     `json:"all"`
	Feeds []FeedStats `json:"feeds"`
}

// Summary totals the whole window, independent of per-feed grouping.
type Summary struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	TotalFacts int64  `json:"totalFacts"`
	TotalTxs   int64  `json:"totalTxs"`
}

// FeedStats holds one feed's buckets, ordered by start.
type FeedStats struct {
	FeedID     string          `json:"feed_id"`
	TotalFacts int64           `json:"totalFacts"`
	TotalTxs   int64           `json:"totalTxs"`
	Intervals  []IntervalStats `json:"intervals"`
}

// IntervalStats are the counts of one bucket.
type IntervalStats struct {
	Type       string `json:"type"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Label      string `json:"label"`
	TotalFacts int64  `json:"totalFacts"`
	TotalTxs   int64  `json:"totalTxs"`
}

const dateLayout = "2006-01-02"

// Service runs interval aggregations.
type Service struct {
	networks NetworkLookup
	facts    storage.FactStore
	log      *logger.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the clock used to default the end date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a stats service.
func New(networks NetworkLookup, facts storage.FactStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("stats")
	}
	s := &Service{networks: networks, facts: facts, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Aggregate validates q, resolves its network and buckets the facts published
// in the requested window. Validation failures are ValidationError values;
// an unknown network is storage.ErrNotFound.
func (s *Service) Aggregate(ctx context.Context, q Query) (Result, error) {
	req, err := q.validate(s.now())
	if err != nil {
		return Result{}, err
	}

	net, err := s.networks.GetNetworkByName(ctx, req.network)
	if err != nil {
		return Result{}, err
	}

	started := time.Now()
	res, err := s.aggregate(ctx, net.ID, req)
	metrics.RecordAggregation(req.interval.Kind(), time.Since(started), err == nil)
	if err != nil {
		s.log.WithError(err).
			WithField("network", req.network).
			WithField("interval", req.interval.Kind()).
			Error("stats aggregation failed")
		return Result{}, err
	}
	return res, nil
}

type bucketAcc struct {
	bucket Bucket
	facts  int64
	txs    map[string]struct{}
}

func (s *Service) aggregate(ctx context.Context, networkID string, req request) (Result, error) {
	perFeed := make(map[string]map[time.Time]*bucketAcc)

	err := s.facts.ScanStamps(ctx, networkID, req.rng.From, req.rng.To, func(st fact.Stamp) error {
		b := req.interval.Bucket(st.PublicationDate)
		buckets, ok := perFeed[st.FeedID]
		if !ok {
			buckets = make(map[time.Time]*bucketAcc)
			perFeed[st.FeedID] = buckets
		}
		acc, ok := buckets[b.Start]
		if !ok {
			acc = &bucketAcc{bucket: b, txs: make(map[string]struct{})}
			buckets[b.Start] = acc
		}
		acc.facts++
		if st.TransactionID != "" {
			acc.txs[st.TransactionID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("scan facts: %w", err)
	}

	totals, err := s.facts.Totals(ctx, networkID, req.rng.From, req.rng.To)
	if err != nil {
		return Result{}, fmt.Errorf("count facts: %w", err)
	}

	return Result{
		All: Summary{
			Start:      req.rng.From.Format(dateLayout),
			End:        req.rng.Last.Format(dateLayout),
			TotalFacts: totals.Facts,
			TotalTxs:   totals.Transactions,
		},
		Feeds: assemble(perFeed),
	}, nil
}

func assemble(perFeed map[string]map[time.Time]*bucketAcc) []FeedStats {
	feedIDs := make([]string, 0, len(perFeed))
	for id := range perFeed {
		feedIDs = append(feedIDs, id)
	}
	sort.Strings(feedIDs)

	out := make([]FeedStats, 0, len(feedIDs))
	for _, id := range feedIDs {
		accs := make([]*bucketAcc, 0, len(perFeed[id]))
		for _, acc := range perFeed[id] {
			accs = append(accs, acc)
		}
		sort.Slice(accs, func(i, j int) bool { return accs[i].bucket.Start.Before(accs[j].bucket.Start) })

		fs := FeedStats{FeedID: id, Intervals: make([]IntervalStats, 0, len(accs))}
		for _, acc := range accs {
			txs := int64(len(acc.txs))
			fs.Intervals = append(fs.Intervals, IntervalStats{
				Type:       acc.bucket.Type,
				Start:      acc.bucket.Start.Format(dateLayout),
				End:        acc.bucket.End.Format(dateLayout),
				Label:      acc.bucket.Label,
				TotalFacts: acc.facts,
				TotalTxs:   txs,
			})
			fs.TotalFacts += acc.facts
			fs.TotalTxs += txs
		}
		out = append(out, fs)
	}
	return out
}
