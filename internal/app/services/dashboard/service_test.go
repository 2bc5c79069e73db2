package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/explorer_api/internal/app/domain/bulletin"
	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/domain/node"
	"github.com/R3E-Network/explorer_api/internal/app/domain/source"
	"github.com/R3E-Network/explorer_api/internal/app/storage/memory"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

func TestSummary(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	store := memory.New()
	fd := store.AddFeed(feed.Feed{FeedID: "ADA-USD/3", Network: "net", Status: feed.StatusActive})
	store.AddFeed(feed.Feed{FeedID: "ADA-USD/2", Network: "net", Status: "inactive"})
	store.AddFact(fact.Fact{Network: "net", Feed: fd.ID, PublicationDate: now.Add(-time.Hour)})
	store.AddFact(fact.Fact{Network: "net", Feed: fd.ID, PublicationDate: now.Add(-10 * time.Hour)})
	store.AddFact(fact.Fact{Network: "other", Feed: fd.ID, PublicationDate: now})
	store.AddNode(node.Node{Name: "alpha", Network: "net", AddressLocality: "Berlin"})
	store.AddSource(source.Source{Name: "Kraken", Network: "net", Status: source.StatusActive})
	store.AddSource(source.Source{Name: "Gone", Network: "net"})
	store.AddBulletin(bulletin.Item{Type: bulletin.TypeIncidentReport, Status: "investigating", PublishDate: now.AddDate(0, 0, -3)})
	store.AddBulletin(bulletin.Item{Type: bulletin.TypeIncidentReport, Status: bulletin.StatusResolved, PublishDate: now.AddDate(0, 0, -2)})
	store.AddBulletin(bulletin.Item{
		Title:       "Release",
		Type:        bulletin.TypeBlogPost,
		Description: "<figure><img/></figure><p><em>June 1</em></p><p>First.</p><p>Second.</p>",
		PublishDate: now.AddDate(0, 0, -1),
	})

	svc := New(Stores{Facts: store, Feeds: store, Nodes: store, Sources: store, Bulletins: store}, logger.Discard(), func() time.Time { return now })
	sum, err := svc.Summary(context.Background(), "net")
	require.NoError(t, err)

	assert.Equal(t, int64(2), sum.TotalFacts)
	assert.Equal(t, int64(1), sum.TotalFacts24Hour, "counts facts since midnight UTC")
	assert.Equal(t, int64(1), sum.TotalActiveFeeds)
	assert.Equal(t, int64(1), sum.ActiveIncidents)
	require.NotNil(t, sum.LatestNetworkUpdate)
	assert.Equal(t, "Release", sum.LatestNetworkUpdate.Title)
	assert.Equal(t, "<p>First.</p>", sum.LatestNetworkUpdate.Description)
	require.Len(t, sum.Nodes, 1)
	assert.Equal(t, "alpha", sum.Nodes[0].Name)
	require.Len(t, sum.Sources, 1)
	assert.Equal(t, "Kraken", sum.Sources[0].Name)
	assert.Equal(t, now, sum.LastUpdated)
}

func TestSummaryEmpty(t *testing.T) {
	store := memory.New()
	svc := New(Stores{Facts: store, Feeds: store, Nodes: store, Sources: store, Bulletins: store}, logger.Discard(), nil)
	sum, err := svc.Summary(context.Background(), "net")
	require.NoError(t, err)
	assert.Nil(t, sum.LatestNetworkUpdate)
	assert.NotNil(t, sum.Nodes)
	assert.NotNil(t, sum.Sources)
}
