package network

import "time"

// Network describes a deployment of the fact publishing protocol (Mainnet,
// Preview) and the chain coordinates used to index it.
type Network struct {
	ID                          string   `json:"id"`
	Name                        string   `json:"name"`
	FactStatementPointer        string   `json:"fact_statement_pointer"`
	ScriptToken                 string   `json:"script_token"`
	ArweaveWalletAddress        string   `json:"arweave_wallet_address"`
	ArweaveSystemIdentifier     string   `json:"arweave_system_identifier"`
	CardanoSmartContractAddress string   `json:"cardano_smart_contract_address"`
	ChainIndexBaseURL           string   `json:"chain_index_base_url"`
	ActiveFeedsURL              string   `json:"active_feeds_url"`
	BlockExplorerBaseURL        string   `json:"block_explorer_base_url"`
	ArweaveExplorerBaseURL      string   `json:"arweave_explorer_base_url"`
	LastBlockHash               string   `json:"last_block_hash"`
	LastCheckpointSlot          int64    `json:"last_checkpoint_slot"`
	ZeroTime                    int64    `json:"zero_time"`
	ZeroSlot                    int64    `json:"zero_slot"`
	SlotLength                  int64    `json:"slot_length"`
	IsEnabled                   bool     `json:"is_enabled"`
	Policies                    []Policy `json:"policies"`
}

// Policy is a minting policy a network used from StartingSlot onwards.
type Policy struct {
	Network           string    `json:"network"`
	PolicyID          string    `json:"policy_id"`
	StartingSlot      int64     `json:"starting_slot"`
	StartingBlockHash string    `json:"starting_block_hash"`
	StartingDate      time.Time `json:"starting_date"`
}

// Known network names accepted by name-based endpoints.
const (
	Mainnet = "Mainnet"
	Preview = "Preview"
)

// IsKnownName reports whether name is one of the enumerated network names.
func IsKnownName(name string) bool {
	return name == Mainnet || name == Preview
}
