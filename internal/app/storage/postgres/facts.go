package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
)

// newestFirst is the total validation order of facts.
var newestFirst = []string{"f.validation_date DESC", "f.id DESC"}

func applyFactFilter(q sq.SelectBuilder, filter fact.Filter) sq.SelectBuilder {
	if filter.NetworkID != "" {
		q = q.Where(sq.Eq{"f.network": filter.NetworkID})
	}
	if filter.FeedRef != "" {
		q = q.Where(sq.Eq{"f.feed": filter.FeedRef})
	}
	if filter.FeedKey != "" {
		q = q.Join("feeds fd ON fd.id = f.feed").Where(sq.Eq{"fd.feed_id": filter.FeedKey})
	}
	if filter.FactURN != "" {
		q = q.Where(sq.Eq{"f.fact_urn": filter.FactURN})
	}
	if filter.NodeID != "" {
		q = q.Where("? = ANY(f.participating_nodes)", filter.NodeID)
	}
	if filter.SourceID != "" {
		q = q.Where("? = ANY(f.sources)", filter.SourceID)
	}
	if !filter.ValidatedAfter.IsZero() {
		q = q.Where(sq.Gt{"f.validation_date": filter.ValidatedAfter.UTC()})
	}
	if !filter.PublishedFrom.IsZero() {
		q = q.Where(sq.GtOrEq{"f.publication_date": filter.PublishedFrom.UTC()})
	}
	if filter.Query != "" {
		pattern := containsPattern(filter.Query)
		q = q.Where(sq.Or{
			sq.ILike{"f.fact_urn": pattern},
			sq.ILike{"f.storage_urn": pattern},
			sq.ILike{"f.transaction_id": pattern},
			sq.ILike{"f.block_hash": pattern},
		})
	}
	return q
}

func (s *Store) listFacts(ctx context.Context, q sq.Sqlizer) ([]fact.Fact, error) {
	var rows []factRow
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	result := make([]fact.Fact, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *Store) ListFacts(ctx context.Context, filter fact.Filter, page fact.Page) ([]fact.Fact, error) {
	q := applyFactFilter(s.sb.Select(factColumns...).From("facts f"), filter).OrderBy(newestFirst...)
	if page.Limit > 0 {
		q = q.Limit(uint64(page.Limit))
	}
	if page.Offset > 0 {
		q = q.Offset(uint64(page.Offset))
	}
	return s.listFacts(ctx, q)
}

func (s *Store) CountFacts(ctx context.Context, filter fact.Filter) (int64, error) {
	var count int64
	q := applyFactFilter(s.sb.Select("COUNT(*)").From("facts f"), filter)
	err := s.selectOne(ctx, &count, q)
	return count, err
}

func (s *Store) LatestFacts(ctx context.Context, networkID string, feedIDs []string) (map[string]fact.Fact, error) {
	result := make(map[string]fact.Fact, len(feedIDs))
	if len(feedIDs) == 0 {
		return result, nil
	}
	q := s.sb.Select(factColumns...).
		Options("DISTINCT ON (f.feed)").
		From("facts f").
		Where(sq.Eq{"f.network": networkID}).
		Where("f.feed = ANY(?)", stringArray(feedIDs)).
		OrderBy(append([]string{"f.feed"}, newestFirst...)...)
	items, err := s.listFacts(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, f := range items {
		result[f.Feed] = f
	}
	return result, nil
}

func (s *Store) CountFactsByFeed(ctx context.Context, networkID string, feedIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(feedIDs))
	if len(feedIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		Feed  string `db:"feed"`
		Count int64  `db:"count"`
	}
	q := s.sb.Select("f.feed", "COUNT(*) AS count").
		From("facts f").
		Where(sq.Eq{"f.network": networkID}).
		Where("f.feed = ANY(?)", stringArray(feedIDs)).
		GroupBy("f.feed")
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.Feed] = r.Count
	}
	return result, nil
}

func (s *Store) ValueAsOf(ctx context.Context, networkID, feedID string, cutoff time.Time) (float64, bool, error) {
	var value float64
	q := s.sb.Select("f.value").
		From("facts f").
		Where(sq.Eq{"f.network": networkID}).
		Where(sq.Eq{"f.feed": feedID}).
		Where(sq.LtOrEq{"f.validation_date": cutoff.UTC()}).
		OrderBy(newestFirst...).
		Limit(1)
	if err := s.selectOne(ctx, &value, q); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return value, true, nil
}

func (s *Store) ValuesAsOf(ctx context.Context, networkID string, feedIDs []string, cutoff time.Time) (map[string]float64, error) {
	result := make(map[string]float64, len(feedIDs))
	if len(feedIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		Feed  string  `db:"feed"`
		Value float64 `db:"value"`
	}
	q := s.sb.Select("f.feed", "f.value").
		Options("DISTINCT ON (f.feed)").
		From("facts f").
		Where(sq.Eq{"f.network": networkID}).
		Where("f.feed = ANY(?)", stringArray(feedIDs)).
		Where(sq.LtOrEq{"f.validation_date": cutoff.UTC()}).
		OrderBy(append([]string{"f.feed"}, newestFirst...)...)
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.Feed] = r.Value
	}
	return result, nil
}

type stampRow struct {
	FeedID          string    `db:"feed_id"`
	PublicationDate time.Time `db:"publication_date"`
	TransactionID   string    `db:"transaction_id"`
}

func (s *Store) ScanStamps(ctx context.Context, networkID string, from, to time.Time, fn func(fact.Stamp) error) error {
	query, args, err := s.sb.Select("fd.feed_id", "f.publication_date", "f.transaction_id").
		From("facts f").
		Join("feeds fd ON fd.id = f.feed").
		Where(sq.Eq{"f.network": networkID}).
		Where(sq.GtOrEq{"f.publication_date": from.UTC()}).
		Where(sq.Lt{"f.publication_date": to.UTC()}).
		OrderBy("fd.feed_id", "f.publication_date").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r stampRow
		if err := rows.StructScan(&r); err != nil {
			return err
		}
		if err := fn(fact.Stamp{FeedID: r.FeedID, PublicationDate: r.PublicationDate.UTC(), TransactionID: r.TransactionID}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) Totals(ctx context.Context, networkID string, from, to time.Time) (fact.Totals, error) {
	var row struct {
		Facts        int64 `db:"facts"`
		Transactions int64 `db:"transactions"`
	}
	q := s.sb.Select("COUNT(*) AS facts", "COUNT(DISTINCT NULLIF(f.transaction_id, '')) AS transactions").
		From("facts f").
		Where(sq.Eq{"f.network": networkID}).
		Where(sq.GtOrEq{"f.publication_date": from.UTC()}).
		Where(sq.Lt{"f.publication_date": to.UTC()})
	if err := s.selectOne(ctx, &row, q); err != nil {
		return fact.Totals{}, err
	}
	return fact.Totals{Facts: row.Facts, Transactions: row.Transactions}, nil
}
