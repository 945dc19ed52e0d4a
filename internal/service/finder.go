package service

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"torn-bazaar-api/internal/cache"
	"torn-bazaar-api/internal/model"
	"torn-bazaar-api/internal/repository"
)

// FinderConfig holds configuration for item searches.
type FinderConfig struct {
	// CacheTTL is how long a fetched bazaar snapshot is reused by the
	// cached scan. Default: 5 minutes.
	CacheTTL time.Duration

	// MatchTarget is the live-search early-exit threshold: once this many
	// listings are accumulated the search stops even if its seller limit
	// has not been reached. Default: 10.
	MatchTarget int
}

// Finder searches seller bazaars for one item on demand. Two modes:
// FindCached reuses recent snapshots within a TTL for low latency on
// repeated queries, LiveSearch always fetches fresh. Both visit sellers in
// order of most recent trade activity, so the result is a recency-biased
// sample, not the global price minimum.
type Finder struct {
	repo    repository.MarketRepository
	fetcher BazaarFetcher
	cache   cache.Cache
	config  FinderConfig
}

// NewFinder creates a finder.
func NewFinder(repo repository.MarketRepository, fetcher BazaarFetcher, c cache.Cache, config FinderConfig) *Finder {
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.MatchTarget <= 0 {
		config.MatchTarget = 10
	}
	return &Finder{
		repo:    repo,
		fetcher: fetcher,
		cache:   c,
		config:  config,
	}
}

// LiveSearch fetches up to limit sellers' bazaars fresh, collecting
// listings for itemID. It exits early once MatchTarget listings are found.
// Per-seller failures are logged and skipped; they never abort the search.
// Results are sorted ascending by price per unit.
func (f *Finder) LiveSearch(ctx context.Context, itemID int64, limit int) ([]model.Listing, error) {
	sellers, err := f.repo.ActiveSellers(ctx)
	if err != nil {
		return nil, err
	}

	var results []model.Listing
	checked := 0
	for _, seller := range sellers {
		if checked >= limit {
			break
		}
		if ctx.Err() != nil {
			break
		}

		snapshot, err := f.fetcher.FetchBazaar(ctx, seller.PlayerID)
		checked++
		if err != nil {
			log.Printf("[Finder] Error checking seller %d: %v", seller.PlayerID, err)
			continue
		}
		if snapshot.PlayerName == "" {
			snapshot.PlayerName = seller.PlayerName
		}

		if matches := snapshot.ListingsFor(itemID); len(matches) > 0 {
			results = append(results, matches...)
			log.Printf("[Finder] Found %d listings in %s's bazaar", len(matches), snapshot.PlayerName)
		}

		if len(results) >= f.config.MatchTarget {
			log.Printf("[Finder] Reached %d listings after %d sellers, stopping early", len(results), checked)
			break
		}
	}

	log.Printf("[Finder] Live search done: checked %d sellers, found %d listings for item %d", checked, len(results), itemID)
	sortByUnitPrice(results)
	return results, nil
}

// FindCached searches up to maxSellers sellers for itemID, reusing each
// seller's cached snapshot while it is younger than the TTL and fetching
// fresh otherwise. Results are sorted ascending by price per unit.
func (f *Finder) FindCached(ctx context.Context, itemID int64, maxSellers int) ([]model.Listing, error) {
	sellers, err := f.repo.ActiveSellers(ctx)
	if err != nil {
		return nil, err
	}

	var results []model.Listing
	checked := 0
	for _, seller := range sellers {
		if checked >= maxSellers {
			break
		}
		if ctx.Err() != nil {
			break
		}

		snapshot, err := f.cachedSnapshot(ctx, seller)
		checked++
		if err != nil {
			log.Printf("[Finder] Error checking seller %d: %v", seller.PlayerID, err)
			continue
		}

		results = append(results, snapshot.ListingsFor(itemID)...)
	}

	sortByUnitPrice(results)
	return results, nil
}

// cachedSnapshot returns the seller's bazaar snapshot from cache, fetching
// and caching it when absent or expired.
func (f *Finder) cachedSnapshot(ctx context.Context, seller model.Seller) (*model.BazaarSnapshot, error) {
	data, err := f.cache.GetOrSet(ctx, cache.SnapshotKey(seller.PlayerID), f.config.CacheTTL, func() ([]byte, error) {
		snapshot, err := f.fetcher.FetchBazaar(ctx, seller.PlayerID)
		if err != nil {
			return nil, err
		}
		if snapshot.PlayerName == "" {
			snapshot.PlayerName = seller.PlayerName
		}
		return json.Marshal(snapshot)
	})
	if err != nil {
		return nil, err
	}

	var snapshot model.BazaarSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ClearCache flushes all cached snapshots. Idempotent.
func (f *Finder) ClearCache(ctx context.Context) error {
	if err := f.cache.Clear(ctx); err != nil {
		return err
	}
	log.Printf("[Finder] Snapshot cache cleared")
	return nil
}

func sortByUnitPrice(listings []model.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].PricePerUnit < listings[j].PricePerUnit
	})
}
