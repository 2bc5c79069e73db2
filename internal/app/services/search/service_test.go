package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/storage/memory"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

func TestSearch(t *testing.T) {
	store := memory.New()
	ada := store.AddFeed(feed.Feed{FeedID: "ADA-USD/3", Network: "net"})
	store.AddFeed(feed.Feed{FeedID: "BTC-USD/1", Network: "net"})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.AddFact(fact.Fact{ID: "1", Network: "net", Feed: ada.ID, TransactionID: "ABCDEF01", ValidationDate: base})
	store.AddFact(fact.Fact{ID: "2", Network: "net", Feed: ada.ID, BlockHash: "ff00abcd", ValidationDate: base.Add(time.Hour)})
	store.AddFact(fact.Fact{ID: "3", Network: "net", Feed: ada.ID, FactURN: "urn:zzz", ValidationDate: base})
	store.AddFact(fact.Fact{ID: "4", Network: "other", Feed: ada.ID, StorageURN: "abcd", ValidationDate: base})

	svc := New(store, store, logger.Discard())

	res, err := svc.Search(context.Background(), "net", "abcd")
	require.NoError(t, err)
	require.Len(t, res.Facts, 2)
	assert.Equal(t, "2", res.Facts[0].ID, "newest first")
	assert.Equal(t, "1", res.Facts[1].ID, "case-insensitive")
	assert.Equal(t, "ADA-USD/3", res.Facts[0].Feed.FeedID)
	assert.Empty(t, res.Feeds)
	assert.NotNil(t, res.Feeds)

	res, err = svc.Search(context.Background(), "net", "usd")
	require.NoError(t, err)
	assert.Empty(t, res.Facts)
	require.Len(t, res.Feeds, 2)
	assert.Equal(t, feed.TypeDescriptionShort, res.Feeds[0].TypeDescriptionShort)
	assert.Zero(t, res.Feeds[0].TotalFacts)
}

func TestSearchRequiresQuery(t *testing.T) {
	_, err := New(memory.New(), memory.New(), logger.Discard()).Search(context.Background(), "net", "  ")
	assert.ErrorIs(t, err, ErrQueryRequired)
}

func TestSearchCapsResults(t *testing.T) {
	store := memory.New()
	fd := store.AddFeed(feed.Feed{FeedID: "X/1", Network: "net"})
	for i := 0; i < Limit+10; i++ {
		store.AddFact(fact.Fact{Network: "net", Feed: fd.ID, FactURN: fmt.Sprintf("urn:hit:%d", i)})
	}
	res, err := New(store, store, logger.Discard()).Search(context.Background(), "net", "hit")
	require.NoError(t, err)
	assert.Len(t, res.Facts, Limit)
}
