package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"torn-bazaar-api/internal/cache"
	"torn-bazaar-api/internal/model"
)

func seedSellers(t *testing.T, repo interface {
	UpsertSellers(ctx context.Context, sellers []model.Seller) error
}, n int) {
	t.Helper()
	sellers := make([]model.Seller, 0, n)
	for i := 1; i <= n; i++ {
		sellers = append(sellers, model.Seller{
			PlayerID:   int64(i),
			PlayerName: "Seller" + string(rune('A'+i-1)),
			LastTrade:  int64(1000 - i), // keeps ActiveSellers ordering stable
			IsActive:   true,
		})
	}
	if err := repo.UpsertSellers(context.Background(), sellers); err != nil {
		t.Fatalf("seed sellers: %v", err)
	}
}

func TestLiveSearchEarlyExit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seedSellers(t, repo, 20)

	// Every seller carries 4 matching offers: the target of 10 is crossed
	// after the third seller.
	snapshots := make(map[int64]*model.BazaarSnapshot)
	for i := int64(1); i <= 20; i++ {
		snapshots[i] = snapshotOf(i, "",
			model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 1, Price: 800 + i},
			model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 1, Price: 900 + i},
			model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 1, Price: 1000 + i},
			model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 1, Price: 1100 + i},
		)
	}
	fetcher := &fakeFetcher{snapshots: snapshots}
	f := NewFinder(repo, fetcher, cache.NewMemoryCache(), FinderConfig{})

	results, err := f.LiveSearch(ctx, 206, 20)
	if err != nil {
		t.Fatalf("LiveSearch: %v", err)
	}
	if len(results) != 12 {
		t.Errorf("got %d listings, want 12 (three sellers of four offers each)", len(results))
	}
	if got := fetcher.callCount(); got != 3 {
		t.Errorf("fetch count = %d, want 3 (early exit)", got)
	}
}

func TestLiveSearchSkipsFailedSellers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seedSellers(t, repo, 3)

	fetcher := &fakeFetcher{
		errs: map[int64]error{2: errors.New("timeout")},
		snapshots: map[int64]*model.BazaarSnapshot{
			1: snapshotOf(1, "", model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 2, Price: 1700}),
			3: snapshotOf(3, "", model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 1, Price: 820}),
		},
	}
	f := NewFinder(repo, fetcher, cache.NewMemoryCache(), FinderConfig{})

	results, err := f.LiveSearch(ctx, 206, 3)
	if err != nil {
		t.Fatalf("LiveSearch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d listings, want 2", len(results))
	}
	// Sorted ascending by unit price: 820 before round(1700/2)=850.
	want := []int64{820, 850}
	got := []int64{results[0].PricePerUnit, results[1].PricePerUnit}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unit price order mismatch (-want +got):\n%s", diff)
	}
}

func TestLiveSearchRespectsSellerLimit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seedSellers(t, repo, 10)

	fetcher := &fakeFetcher{}
	f := NewFinder(repo, fetcher, cache.NewMemoryCache(), FinderConfig{})

	results, err := f.LiveSearch(ctx, 206, 4)
	if err != nil {
		t.Fatalf("LiveSearch: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d listings from empty bazaars, want 0", len(results))
	}
	if got := fetcher.callCount(); got != 4 {
		t.Errorf("fetch count = %d, want 4 (seller limit)", got)
	}
}

func TestFindCachedReusesSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seedSellers(t, repo, 2)

	fetcher := &fakeFetcher{snapshots: map[int64]*model.BazaarSnapshot{
		1: snapshotOf(1, "", model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 1, Price: 800}),
		2: snapshotOf(2, "", model.BazaarItem{ID: 18, Name: "Bat", Type: "Melee", Quantity: 1, Price: 500}),
	}}
	f := NewFinder(repo, fetcher, cache.NewMemoryCache(), FinderConfig{CacheTTL: time.Minute})

	first, err := f.FindCached(ctx, 206, 2)
	if err != nil {
		t.Fatalf("first FindCached: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d listings, want 1", len(first))
	}
	if got := fetcher.callCount(); got != 2 {
		t.Fatalf("fetch count after first search = %d, want 2", got)
	}

	// A repeat search within the TTL is served entirely from cache. A search
	// for a different item reuses the same snapshots too.
	if _, err := f.FindCached(ctx, 206, 2); err != nil {
		t.Fatalf("second FindCached: %v", err)
	}
	if _, err := f.FindCached(ctx, 18, 2); err != nil {
		t.Fatalf("third FindCached: %v", err)
	}
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("fetch count after cached searches = %d, want 2", got)
	}
}

func TestFindCachedAfterClearRefetches(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seedSellers(t, repo, 1)

	fetcher := &fakeFetcher{snapshots: map[int64]*model.BazaarSnapshot{
		1: snapshotOf(1, "", model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 1, Price: 800}),
	}}
	f := NewFinder(repo, fetcher, cache.NewMemoryCache(), FinderConfig{CacheTTL: time.Minute})

	if _, err := f.FindCached(ctx, 206, 1); err != nil {
		t.Fatalf("FindCached: %v", err)
	}
	if err := f.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if _, err := f.FindCached(ctx, 206, 1); err != nil {
		t.Fatalf("FindCached after clear: %v", err)
	}
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("fetch count = %d, want 2 (refetched after clear)", got)
	}
}

func TestFindCachedFillsPlayerNameFromRegistry(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seedSellers(t, repo, 1)

	fetcher := &fakeFetcher{snapshots: map[int64]*model.BazaarSnapshot{
		1: snapshotOf(1, "", model.BazaarItem{ID: 206, Name: "Xanax", Type: "Drug", Quantity: 1, Price: 800}),
	}}
	f := NewFinder(repo, fetcher, cache.NewMemoryCache(), FinderConfig{CacheTTL: time.Minute})

	results, err := f.FindCached(ctx, 206, 1)
	if err != nil {
		t.Fatalf("FindCached: %v", err)
	}
	if len(results) != 1 || results[0].PlayerName != "SellerA" {
		t.Errorf("unexpected results: %+v", results)
	}
}
