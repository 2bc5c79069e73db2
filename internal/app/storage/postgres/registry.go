package postgres

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/R3E-Network/explorer_api/internal/app/domain/bulletin"
	"github.com/R3E-Network/explorer_api/internal/app/domain/node"
	"github.com/R3E-Network/explorer_api/internal/app/domain/source"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
)

// --- NodeStore --------------------------------------------------------------

func (s *Store) ListNodes(ctx context.Context, networkID string) ([]node.Node, error) {
	var rows []nodeRow
	q := s.sb.Select(nodeColumns...).From("nodes").Where(sq.Eq{"network": networkID}).OrderBy("updated DESC", "id DESC")
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	result := make([]node.Node, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *Store) GetNodesByIDs(ctx context.Context, ids []string) (map[string]node.Node, error) {
	result := make(map[string]node.Node, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []nodeRow
	q := s.sb.Select(nodeColumns...).From("nodes").Where("id = ANY(?)", stringArray(ids))
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.ID] = r.toDomain()
	}
	return result, nil
}

// --- SourceStore ------------------------------------------------------------

func (s *Store) ListActiveSources(ctx context.Context, networkID string) ([]source.Source, error) {
	var rows []sourceRow
	q := s.sb.Select(sourceColumns...).
		From("sources").
		Where(sq.Eq{"network": networkID, "status": source.StatusActive}).
		OrderBy("updated DESC", "id DESC")
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	result := make([]source.Source, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

// --- BulletinStore ----------------------------------------------------------

func (s *Store) LatestBulletin(ctx context.Context) (bulletin.Item, bool, error) {
	var row rssRow
	q := s.sb.Select("id", "title", "type", "description", "link", "publish_date", "status").
		From("rss").
		OrderBy("publish_date DESC").
		Limit(1)
	if err := s.selectOne(ctx, &row, q); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return bulletin.Item{}, false, nil
		}
		return bulletin.Item{}, false, err
	}
	return row.toDomain(), true, nil
}

func (s *Store) CountOpenIncidents(ctx context.Context) (int64, error) {
	var count int64
	q := s.sb.Select("COUNT(*)").
		From("rss").
		Where(sq.Eq{"type": bulletin.TypeIncidentReport}).
		Where(sq.NotEq{"status": bulletin.StatusResolved})
	err := s.selectOne(ctx, &count, q)
	return count, err
}
