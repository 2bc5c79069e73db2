package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/R3E-Network/explorer_api/internal/app/domain/bulletin"
	"github.com/R3E-Network/explorer_api/internal/app/domain/fact"
	"github.com/R3E-Network/explorer_api/internal/app/domain/feed"
	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/domain/node"
	"github.com/R3E-Network/explorer_api/internal/app/domain/source"
)

func stringArray(values []string) interface{} { return pq.Array(values) }

type networkRow struct {
	ID                          string `db:"id"`
	Name                        string `db:"name"`
	FactStatementPointer        string `db:"fact_statement_pointer"`
	ScriptToken                 string `db:"script_token"`
	ArweaveWalletAddress        string `db:"arweave_wallet_address"`
	ArweaveSystemIdentifier     string `db:"arweave_system_identifier"`
	CardanoSmartContractAddress string `db:"cardano_smart_contract_address"`
	ChainIndexBaseURL           string `db:"chain_index_base_url"`
	ActiveFeedsURL              string `db:"active_feeds_url"`
	BlockExplorerBaseURL        string `db:"block_explorer_base_url"`
	ArweaveExplorerBaseURL      string `db:"arweave_explorer_base_url"`
	LastBlockHash               string `db:"last_block_hash"`
	LastCheckpointSlot          int64  `db:"last_checkpoint_slot"`
	ZeroTime                    int64  `db:"zero_time"`
	ZeroSlot                    int64  `db:"zero_slot"`
	SlotLength                  int64  `db:"slot_length"`
	IsEnabled                   bool   `db:"is_enabled"`
}

func (r networkRow) toDomain() network.Network {
	return network.Network{
		ID:                          r.ID,
		Name:                        r.Name,
		FactStatementPointer:        r.FactStatementPointer,
		ScriptToken:                 r.ScriptToken,
		ArweaveWalletAddress:        r.ArweaveWalletAddress,
		ArweaveSystemIdentifier:     r.ArweaveSystemIdentifier,
		CardanoSmartContractAddress: r.CardanoSmartContractAddress,
		ChainIndexBaseURL:           r.ChainIndexBaseURL,
		ActiveFeedsURL:              r.ActiveFeedsURL,
		BlockExplorerBaseURL:        r.BlockExplorerBaseURL,
		ArweaveExplorerBaseURL:      r.ArweaveExplorerBaseURL,
		LastBlockHash:               r.LastBlockHash,
		LastCheckpointSlot:          r.LastCheckpointSlot,
		ZeroTime:                    r.ZeroTime,
		ZeroSlot:                    r.ZeroSlot,
		SlotLength:                  r.SlotLength,
		IsEnabled:                   r.IsEnabled,
	}
}

type policyRow struct {
	Network           string       `db:"network"`
	PolicyID          string       `db:"policy_id"`
	StartingSlot      int64        `db:"starting_slot"`
	StartingBlockHash string       `db:"starting_block_hash"`
	StartingDate      sql.NullTime `db:"starting_date"`
}

func (r policyRow) toDomain() network.Policy {
	return network.Policy{
		Network:           r.Network,
		PolicyID:          r.PolicyID,
		StartingSlot:      r.StartingSlot,
		StartingBlockHash: r.StartingBlockHash,
		StartingDate:      r.StartingDate.Time.UTC(),
	}
}

// feedRow is a feed left-joined to its base (ba_) and quote (qa_) assets.
// Asset columns are coalesced so missing assets decode as empty strings.
type feedRow struct {
	ID                string    `db:"id"`
	FeedID            string    `db:"feed_id"`
	Network           string    `db:"network"`
	Type              string    `db:"type"`
	Name              string    `db:"name"`
	Version           int       `db:"version"`
	Status            string    `db:"status"`
	InactiveReason    string    `db:"inactive_reason"`
	SourceType        string    `db:"source_type"`
	FundingType       string    `db:"funding_type"`
	CalculationMethod string    `db:"calculation_method"`
	HeartbeatInterval int64     `db:"heartbeat_interval"`
	Deviation         float64   `db:"deviation"`
	BaseAsset         string    `db:"base_asset"`
	QuoteAsset        string    `db:"quote_asset"`
	Updated           time.Time `db:"updated"`

	BaID              string `db:"ba_id"`
	BaTicker          string `db:"ba_ticker"`
	BaName            string `db:"ba_name"`
	BaType            string `db:"ba_type"`
	BaWebsite         string `db:"ba_website"`
	BaFingerprint     string `db:"ba_fingerprint"`
	BaImagePath       string `db:"ba_image_path"`
	BaBackgroundColor string `db:"ba_background_color"`
	BaRiskRating      bool   `db:"ba_risk_rating"`

	QaID              string `db:"qa_id"`
	QaTicker          string `db:"qa_ticker"`
	QaName            string `db:"qa_name"`
	QaType            string `db:"qa_type"`
	QaWebsite         string `db:"qa_website"`
	QaFingerprint     string `db:"qa_fingerprint"`
	QaImagePath       string `db:"qa_image_path"`
	QaBackgroundColor string `db:"qa_background_color"`
	QaRiskRating      bool   `db:"qa_risk_rating"`
}

var feedColumns = []string{
	"f.id", "f.feed_id", "f.network", "f.type", "f.name", "f.version", "f.status", "f.inactive_reason",
	"f.source_type", "f.funding_type", "f.calculation_method", "f.heartbeat_interval", "f.deviation",
	"COALESCE(f.base_asset, '') AS base_asset", "COALESCE(f.quote_asset, '') AS quote_asset", "f.updated",
	"COALESCE(ba.id, '') AS ba_id", "COALESCE(ba.ticker, '') AS ba_ticker", "COALESCE(ba.name, '') AS ba_name",
	"COALESCE(ba.type, '') AS ba_type", "COALESCE(ba.website, '') AS ba_website",
	"COALESCE(ba.fingerprint, '') AS ba_fingerprint", "COALESCE(ba.image_path, '') AS ba_image_path",
	"COALESCE(ba.background_color, '') AS ba_background_color",
	"COALESCE(ba.has_xerberus_risk_rating, FALSE) AS ba_risk_rating",
	"COALESCE(qa.id, '') AS qa_id", "COALESCE(qa.ticker, '') AS qa_ticker", "COALESCE(qa.name, '') AS qa_name",
	"COALESCE(qa.type, '') AS qa_type", "COALESCE(qa.website, '') AS qa_website",
	"COALESCE(qa.fingerprint, '') AS qa_fingerprint", "COALESCE(qa.image_path, '') AS qa_image_path",
	"COALESCE(qa.background_color, '') AS qa_background_color",
	"COALESCE(qa.has_xerberus_risk_rating, FALSE) AS qa_risk_rating",
}

func (r feedRow) toDomain() feed.Feed {
	f := feed.Feed{
		ID:                r.ID,
		FeedID:            r.FeedID,
		Network:           r.Network,
		Type:              r.Type,
		Name:              r.Name,
		Version:           r.Version,
		Status:            r.Status,
		InactiveReason:    r.InactiveReason,
		SourceType:        r.SourceType,
		FundingType:       r.FundingType,
		CalculationMethod: r.CalculationMethod,
		HeartbeatInterval: r.HeartbeatInterval,
		Deviation:         r.Deviation,
		BaseAssetID:       r.BaseAsset,
		QuoteAssetID:      r.QuoteAsset,
		UpdatedAt:         r.Updated.UTC(),
	}
	if r.BaID != "" {
		f.BaseAsset = &feed.Asset{
			ID: r.BaID, Ticker: r.BaTicker, Name: r.BaName, Type: r.BaType, Website: r.BaWebsite,
			Fingerprint: r.BaFingerprint, ImagePath: r.BaImagePath, BackgroundColor: r.BaBackgroundColor,
			HasXerberusRiskRating: r.BaRiskRating,
		}
	}
	if r.QaID != "" {
		f.QuoteAsset = &feed.Asset{
			ID: r.QaID, Ticker: r.QaTicker, Name: r.QaName, Type: r.QaType, Website: r.QaWebsite,
			Fingerprint: r.QaFingerprint, ImagePath: r.QaImagePath, BackgroundColor: r.QaBackgroundColor,
			HasXerberusRiskRating: r.QaRiskRating,
		}
	}
	return f
}

type factRow struct {
	ID                 string         `db:"id"`
	Network            string         `db:"network"`
	Policy             string         `db:"policy"`
	FactURN            string         `db:"fact_urn"`
	Feed               string         `db:"feed"`
	Value              float64        `db:"value"`
	ValueInverse       float64        `db:"value_inverse"`
	ValidationDate     time.Time      `db:"validation_date"`
	PublicationDate    time.Time      `db:"publication_date"`
	TransactionID      string         `db:"transaction_id"`
	StorageURN         string         `db:"storage_urn"`
	BlockHash          string         `db:"block_hash"`
	OutputIndex        int            `db:"output_index"`
	Address            string         `db:"address"`
	Slot               int64          `db:"slot"`
	StatementHash      string         `db:"statement_hash"`
	PublicationCost    float64        `db:"publication_cost"`
	ParticipatingNodes pq.StringArray `db:"participating_nodes"`
	StorageCost        float64        `db:"storage_cost"`
	Sources            pq.StringArray `db:"sources"`
	ContentSignature   string         `db:"content_signature"`
	CollectionDate     sql.NullTime   `db:"collection_date"`
	IsArchiveIndexed   bool           `db:"is_archive_indexed"`
}

var factColumns = []string{
	"f.id", "f.network", "f.policy", "f.fact_urn", "f.feed", "f.value", "f.value_inverse",
	"f.validation_date", "f.publication_date", "f.transaction_id", "f.storage_urn", "f.block_hash",
	"f.output_index", "f.address", "f.slot", "f.statement_hash", "f.publication_cost",
	"f.participating_nodes", "f.storage_cost", "f.sources", "f.content_signature",
	"f.collection_date", "f.is_archive_indexed",
}

func (r factRow) toDomain() fact.Fact {
	f := fact.Fact{
		ID:                 r.ID,
		Network:            r.Network,
		Policy:             r.Policy,
		FactURN:            r.FactURN,
		Feed:               r.Feed,
		Value:              r.Value,
		ValueInverse:       r.ValueInverse,
		ValidationDate:     r.ValidationDate.UTC(),
		PublicationDate:    r.PublicationDate.UTC(),
		TransactionID:      r.TransactionID,
		StorageURN:         r.StorageURN,
		BlockHash:          r.BlockHash,
		OutputIndex:        r.OutputIndex,
		Address:            r.Address,
		Slot:               r.Slot,
		StatementHash:      r.StatementHash,
		PublicationCost:    r.PublicationCost,
		ParticipatingNodes: []string(r.ParticipatingNodes),
		StorageCost:        r.StorageCost,
		Sources:            []string(r.Sources),
		ContentSignature:   r.ContentSignature,
		IsArchiveIndexed:   r.IsArchiveIndexed,
	}
	if r.CollectionDate.Valid {
		t := r.CollectionDate.Time.UTC()
		f.CollectionDate = &t
	}
	return f
}

type nodeRow struct {
	ID              string `db:"id"`
	NodeURN         string `db:"node_urn"`
	Network         string `db:"network"`
	Status          string `db:"status"`
	Type            string `db:"type"`
	Name            string `db:"name"`
	AddressLocality string `db:"address_locality"`
	AddressRegion   string `db:"address_region"`
	GeoCoordinates  string `db:"geo_coordinates"`
}

var nodeColumns = []string{"id", "node_urn", "network", "status", "type", "name", "address_locality", "address_region", "geo_coordinates"}

func (r nodeRow) toDomain() node.Node {
	return node.Node(r)
}

type sourceRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	Network         string `db:"network"`
	Recipient       string `db:"recipient"`
	Sender          string `db:"sender"`
	Type            string `db:"type"`
	Website         string `db:"website"`
	ImagePath       string `db:"image_path"`
	BackgroundColor string `db:"background_color"`
	Status          string `db:"status"`
}

var sourceColumns = []string{"id", "name", "network", "recipient", "sender", "type", "website", "image_path", "background_color", "status"}

func (r sourceRow) toDomain() source.Source {
	return source.Source(r)
}

type rssRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Type        string    `db:"type"`
	Description string    `db:"description"`
	Link        string    `db:"link"`
	PublishDate time.Time `db:"publish_date"`
	Status      string    `db:"status"`
}

func (r rssRow) toDomain() bulletin.Item {
	return bulletin.Item{
		ID:          r.ID,
		Title:       r.Title,
		Type:        r.Type,
		Description: r.Description,
		Link:        r.Link,
		PublishDate: r.PublishDate.UTC(),
		Status:      r.Status,
	}
}
