package repository

import (
	"context"

	"torn-bazaar-api/internal/model"
)

// MarketRepository defines persisted marketplace data access.
//
// Listing rows for a seller are only ever written through ReplaceListings,
// which swaps the full set in one transaction: a reader sees either the
// previous snapshot or the new one, never a partially written mix.
type MarketRepository interface {
	// UpsertSellers imports sellers from the registry, ignoring duplicates.
	UpsertSellers(ctx context.Context, sellers []model.Seller) error

	// ActiveSellers returns active sellers ordered by most recent trade activity.
	ActiveSellers(ctx context.Context) ([]model.Seller, error)

	// ReplaceListings atomically replaces a seller's listings with the given
	// set and updates the seller's last-scanned time.
	ReplaceListings(ctx context.Context, playerID int64, listings []model.Listing) error

	// ListingsForItem returns all persisted listings for an item, joined with
	// the seller name, ordered ascending by price per unit.
	ListingsForItem(ctx context.Context, itemID int64) ([]model.Listing, error)

	// RecordScanAttempt appends one scan audit record.
	RecordScanAttempt(ctx context.Context, attempt model.ScanAttempt) error

	// Stats returns seller/listing totals and the count of scans in the last hour.
	Stats(ctx context.Context) (model.ScanStats, error)

	// Close closes the repository connection.
	Close() error
}
