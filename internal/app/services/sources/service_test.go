package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/domain/source"
	"github.com/R3E-Network/explorer_api/internal/app/storage/memory"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

func TestListActiveSourcesOnly(t *testing.T) {
	store := memory.New()
	fd := store.AddFeed(feed.Feed{FeedID: "ADA-USD/3", Network: "net"})
	kraken := store.AddSource(source.Source{Name: "Kraken", Network: "net", Status: source.StatusActive})
	store.AddSource(source.Source{Name: "Retired", Network: "net", Status: "inactive"})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.AddFact(fact.Fact{ID: "old", Network: "net", Feed: fd.ID, ValidationDate: base, Sources: []string{kraken.ID}})
	store.AddFact(fact.Fact{ID: "new", Network: "net", Feed: fd.ID, ValidationDate: base.Add(time.Minute), Sources: []string{kraken.ID}})

	views, err := New(store, store, store, logger.Discard()).List(context.Background(), "net")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Kraken", views[0].Name)
	assert.Equal(t, int64(2), views[0].TotalFacts)
	require.NotNil(t, views[0].LatestFact)
	assert.Equal(t, "new", views[0].LatestFact.ID)
	assert.Equal(t, fd.ID, views[0].LatestFact.Feed.ID)
}
