package model

import "time"

// Seller is one marketplace participant whose bazaar can be scanned.
// LastTrade is a unix timestamp used only for recency ranking.
type Seller struct {
	PlayerID    int64      `json:"player_id"`
	PlayerName  string     `json:"player_name"`
	LastTrade   int64      `json:"last_trade"`
	IsActive    bool       `json:"is_active"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}
