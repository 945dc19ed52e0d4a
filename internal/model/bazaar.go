package model

import "time"

// BazaarItem is one offer as returned by the upstream bazaar selection.
type BazaarItem struct {
	ID          int64  `json:"ID"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Quantity    int64  `json:"quantity"`
	Price       int64  `json:"price"`
	MarketPrice int64  `json:"market_price"`
}

// BazaarSnapshot is the full content of one seller's bazaar at FetchedAt.
// Ephemeral: cached for a short TTL, rebuildable from a fresh fetch.
type BazaarSnapshot struct {
	PlayerID   int64        `json:"player_id"`
	PlayerName string       `json:"player_name"`
	Items      []BazaarItem `json:"items"`
	FetchedAt  time.Time    `json:"fetched_at"`
}

// Listings converts every offer in the snapshot into listings.
func (s *BazaarSnapshot) Listings() []Listing {
	out := make([]Listing, 0, len(s.Items))
	for _, item := range s.Items {
		out = append(out, s.listing(item))
	}
	return out
}

// ListingsFor converts the snapshot offers matching itemID into listings.
func (s *BazaarSnapshot) ListingsFor(itemID int64) []Listing {
	var out []Listing
	for _, item := range s.Items {
		if item.ID != itemID {
			continue
		}
		out = append(out, s.listing(item))
	}
	return out
}

func (s *BazaarSnapshot) listing(item BazaarItem) Listing {
	return Listing{
		PlayerID:     s.PlayerID,
		PlayerName:   s.PlayerName,
		ItemID:       item.ID,
		ItemName:     item.Name,
		ItemType:     item.Type,
		Quantity:     item.Quantity,
		Price:        item.Price,
		MarketPrice:  item.MarketPrice,
		PricePerUnit: UnitPrice(item.Price, item.Quantity),
		LastUpdated:  s.FetchedAt,
	}
}
