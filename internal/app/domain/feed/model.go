package feed

import "time"

// Asset is one side of a feed pair.
type Asset struct {
	ID                    string `json:"id"`
	Ticker                string `json:"ticker"`
	Name                  string `json:"name"`
	Type                  string `json:"type"`
	Website               string `json:"website"`
	Fingerprint           string `json:"fingerprint"`
	ImagePath             string `json:"image_path"`
	BackgroundColor       string `json:"background_color"`
	HasXerberusRiskRating bool   `json:"hasXerberusRiskRating,omitempty"`
}

// Feed is a named data series (an exchange rate pair) within a network.
// FeedID is the human identifier, e.g. "ADA-USD/3".
type Feed struct {
	ID                string  `json:"id"`
	FeedID            string  `json:"feed_id"`
	Network           string  `json:"network"`
	Type              string  `json:"type"`
	Name              string  `json:"name"`
	Version           int     `json:"version"`
	Status            string  `json:"status"`
	InactiveReason    string  `json:"inactive_reason"`
	SourceType        string  `json:"source_type"`
	FundingType       string  `json:"funding_type"`
	CalculationMethod string  `json:"calculation_method"`
	HeartbeatInterval int64   `json:"heartbeat_interval"`
	Deviation         float64 `json:"deviation"`
	BaseAsset         *Asset  `json:"base_asset"`
	QuoteAsset        *Asset  `json:"quote_asset"`

	BaseAssetID  string    `json:"-"`
	QuoteAssetID string    `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// StatusActive marks feeds that are currently published.
const StatusActive = "active"

// Type descriptions reported alongside every feed.
const (
	TypeDescription      = "Current Exchange Rate"
	TypeDescriptionShort = "CER"
)

// HistoricalValues holds the value a feed had at fixed lookbacks. A nil
// pointer means no fact existed at or before the cutoff.
type HistoricalValues struct {
	OneDayAgo    *float64 `json:"oneDayAgo"`
	ThreeDaysAgo *float64 `json:"threeDaysAgo"`
	SevenDaysAgo *float64 `json:"sevenDaysAgo"`
}
