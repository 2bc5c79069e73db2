package fact

import "time"

// Fact is an immutable observation published for a feed. Facts of a feed are
// ordered by ValidationDate; PublicationDate drives calendar bucketing.
type Fact struct {
	ID                 string     `json:"id"`
	Network            string     `json:"network"`
	Policy             string     `json:"policy"`
	FactURN            string     `json:"fact_urn"`
	Feed               string     `json:"feed"`
	Value              float64    `json:"value"`
	ValueInverse       float64    `json:"value_inverse"`
	ValidationDate     time.Time  `json:"validation_date"`
	PublicationDate    time.Time  `json:"publication_date"`
	TransactionID      string     `json:"transaction_id"`
	StorageURN         string     `json:"storage_urn"`
	BlockHash          string     `json:"block_hash"`
	OutputIndex        int        `json:"output_index"`
	Address            string     `json:"address"`
	Slot               int64      `json:"slot"`
	StatementHash      string     `json:"statement_hash"`
	PublicationCost    float64    `json:"publication_cost"`
	ParticipatingNodes []string   `json:"participating_nodes"`
	StorageCost        float64    `json:"storage_cost"`
	Sources            []string   `json:"sources"`
	ContentSignature   string     `json:"content_signature"`
	CollectionDate     *time.Time `json:"collection_date"`
	IsArchiveIndexed   bool       `json:"is_archive_indexed"`
}

// Newer reports whether f sorts after other in validation order. Equal
// validation dates fall back to the record id so the order is total.
func (f Fact) Newer(other Fact) bool {
	if !f.ValidationDate.Equal(other.ValidationDate) {
		return f.ValidationDate.After(other.ValidationDate)
	}
	return f.ID > other.ID
}

// Stamp is the projection of a fact needed for interval statistics.
type Stamp struct {
	FeedID          string
	PublicationDate time.Time
	TransactionID   string
}

// Totals counts facts and distinct transactions over a range.
type Totals struct {
	Facts        int64
	Transactions int64
}

// Filter narrows fact listings. Empty fields do not constrain.
type Filter struct {
	NetworkID string
	// FeedKey matches the human feed identifier (feeds.feed_id).
	FeedKey string
	// FeedRef matches the feed record id (facts.feed).
	FeedRef        string
	NodeID         string
	SourceID       string
	FactURN        string
	ValidatedAfter time.Time
	PublishedFrom  time.Time
	// Query is a case-insensitive substring matched against the fact URN,
	// storage URN, transaction id and block hash.
	Query string
}

// Page bounds a listing. Limit <= 0 means unbounded.
type Page struct {
	Limit  int
	Offset int
}

// Normalized returns f with nil list fields replaced by empty lists so they
// encode as [] rather than null.
func (f Fact) Normalized() Fact {
	if f.ParticipatingNodes == nil {
		f.ParticipatingNodes = []string{}
	}
	if f.Sources == nil {
		f.Sources = []string{}
	}
	return f
}
