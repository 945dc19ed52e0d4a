package model

import "time"

// Listing is one (seller, item) observation. The set of listings stored for
// a seller is always the full content of that seller's last successful
// fetch; it is replaced as a unit, never merged.
type Listing struct {
	PlayerID     int64     `json:"playerId"`
	PlayerName   string    `json:"playerName"`
	ItemID       int64     `json:"itemId"`
	ItemName     string    `json:"itemName"`
	ItemType     string    `json:"itemType"`
	Quantity     int64     `json:"quantity"`
	Price        int64     `json:"price"`
	MarketPrice  int64     `json:"marketPrice"`
	PricePerUnit int64     `json:"pricePerUnit"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// UnitPrice returns the per-unit ask price, rounded half-up.
// A non-positive quantity yields 0 rather than a divide panic.
func UnitPrice(price, quantity int64) int64 {
	if quantity <= 0 {
		return 0
	}
	return (price + quantity/2) / quantity
}

// ScanStats summarizes scanner state for the stats endpoint and the
// snapshot-mode response.
type ScanStats struct {
	TotalTraders  int64 `json:"totalTraders"`
	TotalListings int64 `json:"totalListings"`
	ScansLastHour int64 `json:"scansLastHour"`
	IsScanning    bool  `json:"isScanning"`
	ScanInterval  int   `json:"scanInterval"`
}
