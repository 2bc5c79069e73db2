// Package history resolves the value a feed had at a point in the past.
package history

import (
	"context"
	"time"

	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/metrics"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// Lookbacks are the day offsets reported for every feed.
var Lookbacks = [...]int{1, 3, 7}

// Cutoff returns the instant days before now at the same UTC time of day,
// truncated to the millisecond precision facts are stored with.
func Cutoff(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, -days).Truncate(time.Millisecond)
}

// Resolver performs backward nearest-value lookups over a feed's facts.
// It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	facts storage.FactStore
	log   *logger.Logger
	now   func() time.Time
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithClock replaces the wall clock used to derive cutoffs.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a resolver over the fact store.
func New(facts storage.FactStore, log *logger.Logger, opts ...Option) *Resolver {
	if log == nil {
		log = logger.NewDefault("history")
	}
	r := &Resolver{facts: facts, log: log, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAsOf returns the value of the newest fact of the feed validated at
// or before cutoff. A store failure is logged and reported as absent.
func (r *Resolver) ResolveAsOf(ctx context.Context, networkID, feedID string, cutoff time.Time) (float64, bool) {
	value, outcome := r.resolve(ctx, networkID, feedID, cutoff)
	return value, outcome == outcomeHit
}

// Snapshot resolves every lookback for one feed. Each cutoff is taken from
// the clock when its lookup runs.
func (r *Resolver) Snapshot(ctx context.Context, networkID, feedID string) feed.HistoricalValues {
	var out feed.HistoricalValues
	for _, days := range Lookbacks {
		value, outcome := r.resolve(ctx, networkID, feedID, Cutoff(r.now(), days))
		metrics.RecordHistoricalLookup(days, outcome)
		if outcome == outcomeHit {
			assign(&out, days, value)
		}
	}
	return out
}

const (
	outcomeHit    = "hit"
	outcomeAbsent = "absent"
	outcomeError  = "error"
)

func (r *Resolver) resolve(ctx context.Context, networkID, feedID string, cutoff time.Time) (float64, string) {
	value, ok, err := r.facts.ValueAsOf(ctx, networkID, feedID, cutoff.UTC())
	if err != nil {
		r.log.WithError(err).
			WithField("network_id", networkID).
			WithField("feed_id", feedID).
			WithField("cutoff", cutoff.UTC().Format(time.RFC3339Nano)).
			Warn("historical value lookup failed")
		return 0, outcomeError
	}
	if !ok {
		return 0, outcomeAbsent
	}
	return value, outcomeHit
}

// SnapshotMany resolves every lookback for a set of feeds with one batched
// query per lookback. Feeds missing from the result of a lookback, or whose
// lookback query failed, get a nil value for it.
func (r *Resolver) SnapshotMany(ctx context.Context, networkID string, feedIDs []string) map[string]feed.HistoricalValues {
	out := make(map[string]feed.HistoricalValues, len(feedIDs))
	for _, id := range feedIDs {
		out[id] = feed.HistoricalValues{}
	}
	if len(feedIDs) == 0 {
		return out
	}

	for _, days := range Lookbacks {
		cutoff := Cutoff(r.now(), days)
		values, err := r.facts.ValuesAsOf(ctx, networkID, feedIDs, cutoff)
		if err != nil {
			metrics.RecordHistoricalLookup(days, outcomeError)
			r.log.WithError(err).
				WithField("network_id", networkID).
				WithField("lookback_days", days).
				Warn("batched historical value lookup failed")
			continue
		}
		for _, id := range feedIDs {
			value, ok := values[id]
			if !ok {
				metrics.RecordHistoricalLookup(days, outcomeAbsent)
				continue
			}
			metrics.RecordHistoricalLookup(days, outcomeHit)
			hv := out[id]
			assign(&hv, days, value)
			out[id] = hv
		}
	}
	return out
}

func assign(hv *feed.HistoricalValues, days int, value float64) {
	v := value
	switch days {
	case 1:
		hv.OneDayAgo = &v
	case 3:
		hv.ThreeDaysAgo = &v
	case 7:
		hv.SevenDaysAgo = &v
	}
}
