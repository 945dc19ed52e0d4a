package service

import (
	"context"
	"log"
	"time"

	"torn-bazaar-api/internal/model"
	"torn-bazaar-api/internal/repository"
)

// ItemCatalog answers catalog market prices for items. The catalog service
// itself is an external collaborator; only this interface is consumed here.
type ItemCatalog interface {
	MarketValue(ctx context.Context, itemID int64) (int64, error)
}

// ScanStatus reports scanner state for the stats endpoint.
type ScanStatus interface {
	IsScanning() bool
	IntervalMinutes() int
}

// SnapshotResult is the snapshot-mode answer for one item.
type SnapshotResult struct {
	ItemID   int64           `json:"itemId"`
	Total    int             `json:"totalListingsFound"`
	Listings []model.Listing `json:"listings"`
	Stats    model.ScanStats `json:"scanStats"`
}

// LiveResult is the live-mode and cached-mode answer for one item.
type LiveResult struct {
	ItemID      int64           `json:"itemId"`
	Total       int             `json:"totalListingsFound"`
	Listings    []model.Listing `json:"listings"`
	MarketPrice int64           `json:"marketPrice"`
	Details     SearchDetails   `json:"searchDetails"`
}

// SearchDetails records how a search was bounded and when it ran.
type SearchDetails struct {
	Limit     int       `json:"limit"`
	Timestamp time.Time `json:"timestamp"`
}

// ListingService merges the persisted view and the live-finder view behind
// one interface. It caches nothing and persists nothing: snapshot mode
// reads what the scanner last wrote, live mode delegates to the finder.
type ListingService struct {
	repo    repository.MarketRepository
	finder  *Finder
	catalog ItemCatalog
	status  ScanStatus
}

// NewListingService creates the query façade.
// Returns nil if repo or finder is nil (required dependencies).
func NewListingService(repo repository.MarketRepository, finder *Finder, catalog ItemCatalog, status ScanStatus) *ListingService {
	if repo == nil || finder == nil {
		return nil
	}
	return &ListingService{
		repo:    repo,
		finder:  finder,
		catalog: catalog,
		status:  status,
	}
}

// SnapshotListings returns persisted listings for an item, at most one
// scan interval stale. Never touches the upstream API.
func (s *ListingService) SnapshotListings(ctx context.Context, itemID int64) (*SnapshotResult, error) {
	listings, err := s.repo.ListingsForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, listings)

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		log.Printf("[ListingService] Error loading scan stats: %v", err)
		stats = model.ScanStats{}
	}
	if s.status != nil {
		stats.IsScanning = s.status.IsScanning()
		stats.ScanInterval = s.status.IntervalMinutes()
	}

	return &SnapshotResult{
		ItemID:   itemID,
		Total:    len(listings),
		Listings: listings,
		Stats:    stats,
	}, nil
}

// LiveListings runs an on-demand search for an item. Slower and partial,
// but fresh. Upstream trouble degrades to fewer (or zero) listings, never
// to an error the end user sees.
func (s *ListingService) LiveListings(ctx context.Context, itemID int64, limit int) (*LiveResult, error) {
	listings, err := s.finder.LiveSearch(ctx, itemID, limit)
	if err != nil {
		return nil, err
	}
	return s.searchResult(ctx, itemID, limit, listings), nil
}

// CachedListings searches up to maxSellers sellers for an item, reusing
// recently fetched bazaar snapshots. Cheaper than LiveListings on repeated
// queries, at most one cache TTL stale per seller.
func (s *ListingService) CachedListings(ctx context.Context, itemID int64, maxSellers int) (*LiveResult, error) {
	listings, err := s.finder.FindCached(ctx, itemID, maxSellers)
	if err != nil {
		return nil, err
	}
	return s.searchResult(ctx, itemID, maxSellers, listings), nil
}

func (s *ListingService) searchResult(ctx context.Context, itemID int64, limit int, listings []model.Listing) *LiveResult {
	s.enrich(ctx, listings)

	var marketPrice int64
	if s.catalog != nil {
		if v, err := s.catalog.MarketValue(ctx, itemID); err == nil {
			marketPrice = v
		} else {
			log.Printf("[ListingService] Could not fetch market price for item %d: %v", itemID, err)
		}
	}

	return &LiveResult{
		ItemID:      itemID,
		Total:       len(listings),
		Listings:    listings,
		MarketPrice: marketPrice,
		Details: SearchDetails{
			Limit:     limit,
			Timestamp: time.Now().UTC(),
		},
	}
}

// Stats returns the scanner statistics.
func (s *ListingService) Stats(ctx context.Context) (model.ScanStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return model.ScanStats{}, err
	}
	if s.status != nil {
		stats.IsScanning = s.status.IsScanning()
		stats.ScanInterval = s.status.IntervalMinutes()
	}
	return stats, nil
}

// enrich fills derived and catalog fields the source rows may lack.
func (s *ListingService) enrich(ctx context.Context, listings []model.Listing) {
	var catalogPrice int64
	catalogLoaded := false

	for i := range listings {
		if listings[i].PricePerUnit == 0 {
			listings[i].PricePerUnit = model.UnitPrice(listings[i].Price, listings[i].Quantity)
		}
		if listings[i].MarketPrice == 0 && s.catalog != nil {
			if !catalogLoaded {
				catalogLoaded = true
				if v, err := s.catalog.MarketValue(ctx, listings[i].ItemID); err == nil {
					catalogPrice = v
				}
			}
			listings[i].MarketPrice = catalogPrice
		}
	}
}
