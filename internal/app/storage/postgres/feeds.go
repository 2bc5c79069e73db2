package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
)

func (s *Store) feedQuery() sq.SelectBuilder {
	return s.sb.Select(feedColumns...).
		From("feeds f").
		LeftJoin("assets ba ON ba.id = f.base_asset").
		LeftJoin("assets qa ON qa.id = f.quote_asset")
}

func (s *Store) listFeeds(ctx context.Context, q sq.SelectBuilder) ([]feed.Feed, error) {
	var rows []feedRow
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	result := make([]feed.Feed, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *Store) ListFeeds(ctx context.Context, networkID string) ([]feed.Feed, error) {
	return s.listFeeds(ctx, s.feedQuery().
		Where(sq.Eq{"f.network": networkID}).
		OrderBy("f.updated DESC", "f.id DESC"))
}

func (s *Store) FindFeed(ctx context.Context, networkID, key string) (feed.Feed, error) {
	var row feedRow
	q := s.feedQuery().
		Where(sq.Eq{"f.network": networkID}).
		Where(sq.Like{"f.feed_id": likeEscaper.Replace(key) + "/%"}).
		OrderBy("f.updated DESC", "f.id DESC").
		Limit(1)
	if err := s.selectOne(ctx, &row, q); err != nil {
		return feed.Feed{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetFeedsByIDs(ctx context.Context, ids []string) (map[string]feed.Feed, error) {
	result := make(map[string]feed.Feed, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	items, err := s.listFeeds(ctx, s.feedQuery().Where("f.id = ANY(?)", stringArray(ids)))
	if err != nil {
		return nil, err
	}
	for _, f := range items {
		result[f.ID] = f
	}
	return result, nil
}

func (s *Store) SearchFeeds(ctx context.Context, networkID, query string, limit int) ([]feed.Feed, error) {
	q := s.feedQuery().
		Where(sq.Eq{"f.network": networkID}).
		Where(sq.ILike{"f.feed_id": containsPattern(query)}).
		OrderBy("f.updated DESC", "f.id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.listFeeds(ctx, q)
}

func (s *Store) CountActiveFeeds(ctx context.Context, networkID string) (int64, error) {
	var count int64
	q := s.sb.Select("COUNT(*)").From("feeds").Where(sq.Eq{"network": networkID, "status": feed.StatusActive})
	err := s.selectOne(ctx, &count, q)
	return count, err
}
