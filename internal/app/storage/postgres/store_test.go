package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return New(db), mock
}

func TestGetNetworkByNameNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM networks WHERE name = \$1 LIMIT 1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(networkColumns))

	_, err := store.GetNetworkByName(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindFeedEscapesKeyAndDecodesAssets(t *testing.T) {
	store, mock := newMock(t)
	cols := []string{
		"id", "feed_id", "network", "type", "name", "version", "status", "inactive_reason", "source_type",
		"funding_type", "calculation_method", "heartbeat_interval", "deviation", "base_asset", "quote_asset", "updated",
		"ba_id", "ba_ticker", "ba_name", "ba_type", "ba_website", "ba_fingerprint", "ba_image_path", "ba_background_color", "ba_risk_rating",
		"qa_id", "qa_ticker", "qa_name", "qa_type", "qa_website", "qa_fingerprint", "qa_image_path", "qa_background_color", "qa_risk_rating",
	}
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(cols).AddRow(
		"feed-1", "ADA_USD/3", "net", "CER", "ADA-USD", 3, "active", "", "", "", "", int64(3600), 1.5, "asset-ada", "", updated,
		"asset-ada", "ADA", "Cardano", "crypto", "", "", "", "", true,
		"", "", "", "", "", "", "", "", false,
	)
	mock.ExpectQuery(`FROM feeds f LEFT JOIN assets ba ON ba.id = f.base_asset LEFT JOIN assets qa ON qa.id = f.quote_asset WHERE f.network = \$1 AND f.feed_id LIKE \$2 ORDER BY f.updated DESC, f.id DESC LIMIT 1`).
		WithArgs("net", `ADA\_USD/%`).
		WillReturnRows(rows)

	f, err := store.FindFeed(context.Background(), "net", "ADA_USD")
	require.NoError(t, err)
	assert.Equal(t, "ADA_USD/3", f.FeedID)
	assert.Equal(t, updated, f.UpdatedAt)
	require.NotNil(t, f.BaseAsset)
	assert.Equal(t, "ADA", f.BaseAsset.Ticker)
	assert.True(t, f.BaseAsset.HasXerberusRiskRating)
	assert.Nil(t, f.QuoteAsset)
}

func TestListFactsAppliesFilter(t *testing.T) {
	store, mock := newMock(t)
	validated := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "network", "policy", "fact_urn", "feed", "value", "value_inverse", "validation_date",
		"publication_date", "transaction_id", "storage_urn", "block_hash", "output_index", "address", "slot",
		"statement_hash", "publication_cost", "participating_nodes", "storage_cost", "sources",
		"content_signature", "collection_date", "is_archive_indexed",
	}).AddRow(
		"fact-1", "net", "pol", "urn:orcfax:1", "feed-1", 0.5, 2.0, validated,
		validated, "tx-1", "ar:1", "hash", 0, "addr", int64(10),
		"st", 0.1, []byte("{node-a,node-b}"), 0.2, []byte("{}"),
		"sig", nil, false,
	)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM facts f JOIN feeds fd ON fd.id = f.feed WHERE f.network = $1 AND fd.feed_id = $2 AND (f.fact_urn ILIKE $3 OR f.storage_urn ILIKE $4 OR f.transaction_id ILIKE $5 OR f.block_hash ILIKE $6) ORDER BY f.validation_date DESC, f.id DESC LIMIT 5 OFFSET 10`)).
		WithArgs("net", "ADA-USD/3", "%50\\%%", "%50\\%%", "%50\\%%", "%50\\%%").
		WillReturnRows(rows)

	items, err := store.ListFacts(context.Background(),
		fact.Filter{NetworkID: "net", FeedKey: "ADA-USD/3", Query: "50%"},
		fact.Page{Limit: 5, Offset: 10},
	)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"node-a", "node-b"}, items[0].ParticipatingNodes)
	assert.Empty(t, items[0].Sources)
	assert.Nil(t, items[0].CollectionDate)
	assert.Equal(t, validated, items[0].ValidationDate)
}

func TestValueAsOf(t *testing.T) {
	store, mock := newMock(t)
	cutoff := time.Date(2024, 1, 7, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT f.value FROM facts f WHERE f.network = $1 AND f.feed = $2 AND f.validation_date <= $3 ORDER BY f.validation_date DESC, f.id DESC LIMIT 1`)).
		WithArgs("net", "feed-1", cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(0.0))
	mock.ExpectQuery(`SELECT f.value FROM facts f`).
		WithArgs("net", "feed-2", cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	v, ok, err := store.ValueAsOf(context.Background(), "net", "feed-1", cutoff)
	require.NoError(t, err)
	assert.True(t, ok, "a zero value is still a value")
	assert.Zero(t, v)

	_, ok, err = store.ValueAsOf(context.Background(), "net", "feed-2", cutoff)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValuesAsOf(t *testing.T) {
	store, mock := newMock(t)
	cutoff := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT DISTINCT ON \(f.feed\) f.feed, f.value FROM facts f WHERE f.network = \$1 AND f.feed = ANY\(\$2\) AND f.validation_date <= \$3 ORDER BY f.feed, f.validation_date DESC, f.id DESC`).
		WithArgs("net", sqlmock.AnyArg(), cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"feed", "value"}).AddRow("feed-1", 1.25).AddRow("feed-3", 7.0))

	values, err := store.ValuesAsOf(context.Background(), "net", []string{"feed-1", "feed-2", "feed-3"}, cutoff)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"feed-1": 1.25, "feed-3": 7.0}, values)

	empty, err := store.ValuesAsOf(context.Background(), "net", nil, cutoff)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestScanStamps(t *testing.T) {
	store, mock := newMock(t)
	from := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT fd.feed_id, f.publication_date, f.transaction_id FROM facts f JOIN feeds fd ON fd.id = f.feed WHERE f.network = $1 AND f.publication_date >= $2 AND f.publication_date < $3 ORDER BY fd.feed_id, f.publication_date`)).
		WithArgs("net", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"feed_id", "publication_date", "transaction_id"}).
			AddRow("ADA-USD/3", t1, "tx-1").
			AddRow("ADA-USD/3", t2, "").
			AddRow("BTC-USD/1", t2, "tx-2"))

	var got []fact.Stamp
	err := store.ScanStamps(context.Background(), "net", from, to, func(s fact.Stamp) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, fact.Stamp{FeedID: "ADA-USD/3", PublicationDate: t1, TransactionID: "tx-1"}, got[0])
	assert.Equal(t, "BTC-USD/1", got[2].FeedID)
}

func TestScanStampsStopsOnCallbackError(t *testing.T) {
	store, mock := newMock(t)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM facts f JOIN feeds fd`).
		WillReturnRows(sqlmock.NewRows([]string{"feed_id", "publication_date", "transaction_id"}).
			AddRow("A/1", at, "x").
			AddRow("B/1", at, "y"))

	stop := errors.New("stop")
	calls := 0
	err := store.ScanStamps(context.Background(), "net", at, at.AddDate(0, 0, 1), func(fact.Stamp) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestTotals(t *testing.T) {
	store, mock := newMock(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS facts, COUNT(DISTINCT NULLIF(f.transaction_id, '')) AS transactions FROM facts f`)).
		WithArgs("net", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"facts", "transactions"}).AddRow(int64(7), int64(5)))

	totals, err := store.Totals(context.Background(), "net", from, to)
	require.NoError(t, err)
	assert.Equal(t, fact.Totals{Facts: 7, Transactions: 5}, totals)
}

func TestLatestBulletinEmpty(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`FROM rss ORDER BY publish_date DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "type", "description", "link", "publish_date", "status"}))

	_, ok, err := store.LatestBulletin(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryErrorsPropagate(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(`FROM nodes`).WillReturnError(boom)

	_, err := store.ListNodes(context.Background(), "net")
	assert.ErrorIs(t, err, boom)
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()
	if _, err := store.ListNetworks(ctx); err != nil {
		t.Fatalf("list networks: %v", err)
	}
	if _, err := store.Totals(ctx, "missing", time.Now().AddDate(0, 0, -7), time.Now()); err != nil {
		t.Fatalf("totals: %v", err)
	}
}
