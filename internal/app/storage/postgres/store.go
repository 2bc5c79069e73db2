package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

var _ storage.NetworkStore = (*Store)(nil)
var _ storage.FeedStore = (*Store)(nil)
var _ storage.FactStore = (*Store)(nil)
var _ storage.NodeStore = (*Store)(nil)
var _ storage.SourceStore = (*Store)(nil)
var _ storage.BulletinStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{
		db: sqlx.NewDb(db, "postgres"),
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *Store) selectAll(ctx context.Context, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

// selectOne maps sql.ErrNoRows to storage.ErrNotFound.
func (s *Store) selectOne(ctx context.Context, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := s.db.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}

// likeEscaper neutralises LIKE wildcards in user input.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string { return "%" + likeEscaper.Replace(s) + "%" }

// --- NetworkStore -----------------------------------------------------------

var networkColumns = []string{
	"id", "name", "fact_statement_pointer", "script_token", "arweave_wallet_address",
	"arweave_system_identifier", "cardano_smart_contract_address", "chain_index_base_url",
	"active_feeds_url", "block_explorer_base_url", "arweave_explorer_base_url", "last_block_hash",
	"last_checkpoint_slot", "zero_time", "zero_slot", "slot_length", "is_enabled",
}

func (s *Store) ListNetworks(ctx context.Context) ([]network.Network, error) {
	var rows []networkRow
	q := s.sb.Select(networkColumns...).From("networks").OrderBy("id DESC")
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	result := make([]network.Network, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *Store) GetNetworkByName(ctx context.Context, name string) (network.Network, error) {
	var row networkRow
	q := s.sb.Select(networkColumns...).From("networks").Where(sq.Eq{"name": name}).Limit(1)
	if err := s.selectOne(ctx, &row, q); err != nil {
		return network.Network{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListPolicies(ctx context.Context, networkIDs []string) ([]network.Policy, error) {
	if len(networkIDs) == 0 {
		return nil, nil
	}
	var rows []policyRow
	q := s.sb.Select("network", "policy_id", "starting_slot", "starting_block_hash", "starting_date").
		From("policies").
		Where("network = ANY(?)", stringArray(networkIDs)).
		OrderBy("starting_slot DESC")
	if err := s.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	result := make([]network.Policy, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}
