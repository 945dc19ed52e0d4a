package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"torn-bazaar-api/internal/model"
)

func newTestRepo(t *testing.T) *SQLiteMarketRepository {
	t.Helper()
	r, err := NewSQLiteMarketRepository(":memory:")
	if err != nil {
		t.Fatalf("new sqlite repo: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func seedSellers(t *testing.T, r *SQLiteMarketRepository, sellers ...model.Seller) {
	t.Helper()
	if err := r.UpsertSellers(context.Background(), sellers); err != nil {
		t.Fatalf("seed sellers: %v", err)
	}
}

func listing(playerID, itemID, quantity, price int64) model.Listing {
	return model.Listing{
		PlayerID:    playerID,
		ItemID:      itemID,
		ItemName:    "Item",
		ItemType:    "Misc",
		Quantity:    quantity,
		Price:       price,
		LastUpdated: time.Now().UTC(),
	}
}

func TestUpsertSellersIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	seedSellers(t, r,
		model.Seller{PlayerID: 1, PlayerName: "Alpha", LastTrade: 100, IsActive: true},
		model.Seller{PlayerID: 2, PlayerName: "Beta", LastTrade: 200, IsActive: true},
	)
	// Re-import with a changed name must not duplicate or overwrite.
	seedSellers(t, r, model.Seller{PlayerID: 1, PlayerName: "Renamed", LastTrade: 999, IsActive: true})

	sellers, err := r.ActiveSellers(ctx)
	if err != nil {
		t.Fatalf("active sellers: %v", err)
	}
	if len(sellers) != 2 {
		t.Fatalf("got %d sellers, want 2", len(sellers))
	}
	// Ordered by last_trade descending.
	if sellers[0].PlayerID != 2 || sellers[1].PlayerID != 1 {
		t.Errorf("wrong order: %d, %d", sellers[0].PlayerID, sellers[1].PlayerID)
	}
	if sellers[1].PlayerName != "Alpha" {
		t.Errorf("duplicate import overwrote name: %q", sellers[1].PlayerName)
	}
}

func TestReplaceListingsSwapsFullSet(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedSellers(t, r, model.Seller{PlayerID: 1, PlayerName: "Alpha", IsActive: true})

	first := []model.Listing{listing(1, 10, 1, 100), listing(1, 11, 2, 300)}
	if err := r.ReplaceListings(ctx, 1, first); err != nil {
		t.Fatalf("replace: %v", err)
	}

	second := []model.Listing{listing(1, 12, 1, 50)}
	if err := r.ReplaceListings(ctx, 1, second); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	// No leftovers from the first scan.
	for _, itemID := range []int64{10, 11} {
		got, err := r.ListingsForItem(ctx, itemID)
		if err != nil {
			t.Fatalf("listings for %d: %v", itemID, err)
		}
		if len(got) != 0 {
			t.Errorf("item %d still has %d listings after replacement", itemID, len(got))
		}
	}

	got, err := r.ListingsForItem(ctx, 12)
	if err != nil {
		t.Fatalf("listings for 12: %v", err)
	}
	if len(got) != 1 || got[0].Price != 50 {
		t.Errorf("unexpected listings: %+v", got)
	}

	// Replacement bumps last_scanned.
	sellers, err := r.ActiveSellers(ctx)
	if err != nil {
		t.Fatalf("active sellers: %v", err)
	}
	if sellers[0].LastScanned == nil {
		t.Error("last_scanned not set after replacement")
	}
}

func TestReplaceListingsEmptySet(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedSellers(t, r, model.Seller{PlayerID: 1, PlayerName: "Alpha", IsActive: true})

	if err := r.ReplaceListings(ctx, 1, []model.Listing{listing(1, 10, 1, 100)}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	// A seller who emptied their bazaar ends up with zero rows.
	if err := r.ReplaceListings(ctx, 1, nil); err != nil {
		t.Fatalf("replace with empty: %v", err)
	}

	got, err := r.ListingsForItem(ctx, 10)
	if err != nil {
		t.Fatalf("listings: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d listings, want 0", len(got))
	}
}

func TestListingsForItemOrderAndJoin(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedSellers(t, r,
		model.Seller{PlayerID: 1, PlayerName: "Alpha", IsActive: true},
		model.Seller{PlayerID: 2, PlayerName: "Beta", IsActive: true},
	)

	// Alpha: 2000 for 2 => 1000/unit. Beta: 2400 for 3 => 800/unit.
	if err := r.ReplaceListings(ctx, 1, []model.Listing{listing(1, 206, 2, 2000)}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := r.ReplaceListings(ctx, 2, []model.Listing{listing(2, 206, 3, 2400)}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := r.ListingsForItem(ctx, 206)
	if err != nil {
		t.Fatalf("listings: %v", err)
	}

	want := []model.Listing{
		{PlayerID: 2, PlayerName: "Beta", ItemID: 206, ItemName: "Item", ItemType: "Misc", Quantity: 3, Price: 2400, PricePerUnit: 800},
		{PlayerID: 1, PlayerName: "Alpha", ItemID: 206, ItemName: "Item", ItemType: "Misc", Quantity: 2, Price: 2000, PricePerUnit: 1000},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(model.Listing{}, "LastUpdated")); diff != "" {
		t.Errorf("listings mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsCountsRecentScans(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedSellers(t, r, model.Seller{PlayerID: 1, PlayerName: "Alpha", IsActive: true})

	attempts := []model.ScanAttempt{
		{PlayerID: 1, ScanTime: time.Now().UTC(), ItemsFound: 3, Success: true},
		{PlayerID: 1, ScanTime: time.Now().UTC().Add(-30 * time.Minute), Success: false, ErrorMessage: "timeout"},
		{PlayerID: 1, ScanTime: time.Now().UTC().Add(-2 * time.Hour), ItemsFound: 1, Success: true},
	}
	for _, a := range attempts {
		if err := r.RecordScanAttempt(ctx, a); err != nil {
			t.Fatalf("record attempt: %v", err)
		}
	}

	if err := r.ReplaceListings(ctx, 1, []model.Listing{listing(1, 10, 1, 100)}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalTraders != 1 {
		t.Errorf("TotalTraders = %d, want 1", stats.TotalTraders)
	}
	if stats.TotalListings != 1 {
		t.Errorf("TotalListings = %d, want 1", stats.TotalListings)
	}
	if stats.ScansLastHour != 2 {
		t.Errorf("ScansLastHour = %d, want 2", stats.ScansLastHour)
	}
}
