package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/internal/app/storage/memory"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

type fixture struct {
	store *memory.Store
	net   network.Network
	ada   feed.Feed
	btc   feed.Feed
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	net := store.AddNetwork(network.Network{Name: network.Mainnet})
	other := store.AddNetwork(network.Network{Name: network.Preview})
	ada := store.AddFeed(feed.Feed{FeedID: "ADA-USD/3", Network: net.ID})
	btc := store.AddFeed(feed.Feed{FeedID: "BTC-USD/1", Network: net.ID})
	foreign := store.AddFeed(feed.Feed{FeedID: "ADA-USD/3", Network: other.ID})

	publish := func(f feed.Feed, networkID, at, tx string) {
		ts, err := time.Parse(time.RFC3339, at)
		require.NoError(t, err)
		store.AddFact(fact.Fact{Network: networkID, Feed: f.ID, PublicationDate: ts, ValidationDate: ts, TransactionID: tx})
	}

	// Two facts share tx-1 on Wednesday 2024-03-13.
	publish(ada, net.ID, "2024-03-13T08:00:00Z", "tx-1")
	publish(ada, net.ID, "2024-03-13T08:00:00Z", "tx-1")
	publish(ada, net.ID, "2024-03-16T23:59:59Z", "tx-2")
	publish(ada, net.ID, "2024-03-17T00:00:00Z", "tx-3")
	publish(ada, net.ID, "2024-02-29T10:00:00Z", "tx-4")
	publish(btc, net.ID, "2024-03-11T00:00:00Z", "tx-5")
	publish(btc, net.ID, "2024-03-12T00:00:00Z", "")
	// Outside the window or network.
	publish(ada, net.ID, "2024-04-01T00:00:00Z", "tx-6")
	publish(ada, net.ID, "2024-02-27T23:59:59Z", "tx-7")
	publish(foreign, other.ID, "2024-03-13T00:00:00Z", "tx-8")

	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	svc := New(store, store, logger.Discard(), WithClock(func() time.Time { return now }))
	return &fixture{store: store, net: net, ada: ada, btc: btc, svc: svc}
}

func TestAggregateWeeks(t *testing.T) {
	fx := newFixture(t)

	res, err := fx.svc.Aggregate(context.Background(), Query{Network: "Mainnet", Interval: "week", Start: "2024-02-28", End: "2024-03-31"})
	require.NoError(t, err)

	assert.Equal(t, Summary{Start: "2024-02-28", End: "2024-03-31", TotalFacts: 7, TotalTxs: 5}, res.All)
	require.Len(t, res.Feeds, 2)

	ada := res.Feeds[0]
	assert.Equal(t, "ADA-USD/3", ada.FeedID)
	assert.Equal(t, int64(5), ada.TotalFacts)
	assert.Equal(t, int64(4), ada.TotalTxs)
	require.Len(t, ada.Intervals, 3)
	assert.Equal(t, IntervalStats{Type: "week", Start: "2024-02-25", End: "2024-03-02", Label: "2024-W08", TotalFacts: 1, TotalTxs: 1}, ada.Intervals[0])
	assert.Equal(t, IntervalStats{Type: "week", Start: "2024-03-10", End: "2024-03-16", Label: "2024-W10", TotalFacts: 3, TotalTxs: 2}, ada.Intervals[1])
	assert.Equal(t, IntervalStats{Type: "week", Start: "2024-03-17", End: "2024-03-23", Label: "2024-W11", TotalFacts: 1, TotalTxs: 1}, ada.Intervals[2])

	btc := res.Feeds[1]
	assert.Equal(t, "BTC-USD/1", btc.FeedID)
	require.Len(t, btc.Intervals, 1)
	assert.Equal(t, int64(2), btc.Intervals[0].TotalFacts)
	assert.Equal(t, int64(1), btc.Intervals[0].TotalTxs, "empty transaction ids are not counted")
}

func TestAggregateTotalsMatchBuckets(t *testing.T) {
	fx := newFixture(t)
	for _, kind := range []string{"week", "month", "year"} {
		t.Run(kind, func(t *testing.T) {
			res, err := fx.svc.Aggregate(context.Background(), Query{Network: "Mainnet", Interval: kind, Start: "2024-01-01"})
			require.NoError(t, err)

			var sum int64
			for _, fs := range res.Feeds {
				var feedFacts int64
				for i, iv := range fs.Intervals {
					assert.LessOrEqual(t, iv.TotalTxs, iv.TotalFacts)
					if i > 0 {
						assert.Less(t, fs.Intervals[i-1].Start, iv.Start)
					}
					feedFacts += iv.TotalFacts
				}
				assert.Equal(t, fs.TotalFacts, feedFacts)
				sum += feedFacts
			}
			assert.Equal(t, res.All.TotalFacts, sum)
			assert.Equal(t, "2024-03-31", res.All.End, "end defaults to today")
		})
	}
}

func TestAggregateMonthLeapDay(t *testing.T) {
	fx := newFixture(t)
	res, err := fx.svc.Aggregate(context.Background(), Query{Network: "Mainnet", Interval: "month", Start: "2024-02-29", End: "2024-02-29"})
	require.NoError(t, err)
	require.Len(t, res.Feeds, 1)
	assert.Equal(t, []IntervalStats{{Type: "month", Start: "2024-02-01", End: "2024-02-29", Label: "2024-02", TotalFacts: 1, TotalTxs: 1}}, res.Feeds[0].Intervals)
}

func TestAggregateEmptyWindow(t *testing.T) {
	fx := newFixture(t)
	res, err := fx.svc.Aggregate(context.Background(), Query{Network: "Mainnet", Interval: "year", Start: "2020-01-01", End: "2020-12-31"})
	require.NoError(t, err)
	assert.Empty(t, res.Feeds)
	assert.NotNil(t, res.Feeds)
	assert.Zero(t, res.All.TotalFacts)
}

func TestAggregateValidation(t *testing.T) {
	fx := newFixture(t)
	cases := []struct {
		name  string
		query Query
		field string
	}{
		{"missing network", Query{Interval: "week", Start: "2024-01-01"}, "network"},
		{"missing interval", Query{Network: "Mainnet", Start: "2024-01-01"}, "interval"},
		{"missing start", Query{Network: "Mainnet", Interval: "week"}, "start"},
		{"unknown network", Query{Network: "Testnet", Interval: "week", Start: "2024-01-01"}, "network"},
		{"unknown interval", Query{Network: "Mainnet", Interval: "day", Start: "2024-01-01"}, "interval"},
		{"bad start", Query{Network: "Mainnet", Interval: "week", Start: "2024-1-01"}, "start"},
		{"bad end", Query{Network: "Mainnet", Interval: "week", Start: "2024-01-01", End: "01/02/2024"}, "end"},
		{"impossible date", Query{Network: "Mainnet", Interval: "week", Start: "2024-02-30"}, "start"},
		{"padded network", Query{Network: " Mainnet", Interval: "week", Start: "2024-01-01"}, "network"},
		{"padded interval", Query{Network: "Mainnet", Interval: "week ", Start: "2024-01-01"}, "interval"},
		{"padded start", Query{Network: "Mainnet", Interval: "week", Start: " 2024-01-01"}, "start"},
		{"lowercase network", Query{Network: "mainnet", Interval: "week", Start: "2024-01-01"}, "network"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Aggregate(context.Background(), tc.query)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestAggregateUnknownNetworkRecord(t *testing.T) {
	store := memory.New()
	svc := New(store, store, logger.Discard())
	_, err := svc.Aggregate(context.Background(), Query{Network: "Preview", Interval: "week", Start: "2024-01-01"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

type brokenFacts struct {
	storage.FactStore
}

func (brokenFacts) ScanStamps(context.Context, string, time.Time, time.Time, func(fact.Stamp) error) error {
	return errors.New("db down")
}

func TestAggregateSurfacesStoreFailure(t *testing.T) {
	fx := newFixture(t)
	svc := New(fx.store, brokenFacts{}, logger.Discard())
	_, err := svc.Aggregate(context.Background(), Query{Network: "Mainnet", Interval: "week", Start: "2024-01-01"})
	require.Error(t, err)
	var verr ValidationError
	assert.False(t, errors.As(err, &verr))
	assert.False(t, errors.Is(err, storage.ErrNotFound))
}

func TestParseRangeDefaultsEndToToday(t *testing.T) {
	now := time.Date(2024, 5, 6, 23, 0, 0, 0, time.UTC)
	rng, err := ParseRange("2024-05-01", "", now)
	require.NoError(t, err)
	assert.Equal(t, date("2024-05-01"), rng.From)
	assert.Equal(t, date("2024-05-07"), rng.To)
	assert.Equal(t, date("2024-05-06"), rng.Last)

	rng, err = ParseRange("2024-05-10", "2024-05-01", now)
	require.NoError(t, err)
	assert.Equal(t, rng.From, rng.To, "reversed bounds give an empty window")
	assert.Equal(t, date("2024-05-01"), rng.Last)
}
