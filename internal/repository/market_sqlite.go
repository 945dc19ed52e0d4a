package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required

	"torn-bazaar-api/internal/model"
	"torn-bazaar-api/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLiteMarketRepository implements MarketRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteMarketRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteMarketRepository opens the SQLite database at dbPath and runs
// pending migrations.
func NewSQLiteMarketRepository(dbPath string) (*SQLiteMarketRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("[SQLiteMarketRepository] Initialized with database: %s", dbPath)
	return &SQLiteMarketRepository{db: db}, nil
}

// UpsertSellers imports sellers, ignoring already-known player IDs.
func (r *SQLiteMarketRepository) UpsertSellers(ctx context.Context, sellers []model.Seller) error {
	if len(sellers) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO traders (player_id, player_name, last_trade, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(timeLayout)
	for _, s := range sellers {
		if _, err := stmt.ExecContext(ctx, s.PlayerID, s.PlayerName, s.LastTrade, boolToInt(s.IsActive), now); err != nil {
			return fmt.Errorf("failed to upsert seller %d: %w", s.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ActiveSellers returns active sellers, most recently trading first.
func (r *SQLiteMarketRepository) ActiveSellers(ctx context.Context) ([]model.Seller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT player_id, player_name, last_trade, is_active, last_scanned
		FROM traders
		WHERE is_active = 1
		ORDER BY last_trade DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sellers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sellers []model.Seller
	for rows.Next() {
		var s model.Seller
		var active int
		var lastScanned sql.NullString
		if err := rows.Scan(&s.PlayerID, &s.PlayerName, &s.LastTrade, &active, &lastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		s.IsActive = active != 0
		if lastScanned.Valid {
			if t, err := time.Parse(timeLayout, lastScanned.String); err == nil {
				s.LastScanned = &t
			}
		}
		sellers = append(sellers, s)
	}
	return sellers, rows.Err()
}

// ReplaceListings swaps a seller's listings for the given set in one
// transaction and bumps the seller's last-scanned time.
func (r *SQLiteMarketRepository) ReplaceListings(ctx context.Context, playerID int64, listings []model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bazaar_listings WHERE player_id = ?`, playerID); err != nil {
		return fmt.Errorf("failed to delete listings for player %d: %w", playerID, err)
	}

	if len(listings) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bazaar_listings (player_id, item_id, item_name, item_type, quantity, price, market_price, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, l := range listings {
			_, err := stmt.ExecContext(ctx, playerID, l.ItemID, l.ItemName, l.ItemType,
				l.Quantity, l.Price, l.MarketPrice, l.LastUpdated.UTC().Format(timeLayout))
			if err != nil {
				return fmt.Errorf("failed to insert listing for item %d: %w", l.ItemID, err)
			}
		}
	}

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx, `UPDATE traders SET last_scanned = ? WHERE player_id = ?`, now, playerID); err != nil {
		return fmt.Errorf("failed to update last_scanned for player %d: %w", playerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListingsForItem returns listings for an item ordered by price per unit.
func (r *SQLiteMarketRepository) ListingsForItem(ctx context.Context, itemID int64) ([]model.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT l.player_id, t.player_name, l.item_id, l.item_name, l.item_type,
		       l.quantity, l.price, l.market_price, l.last_updated
		FROM bazaar_listings l
		INNER JOIN traders t ON l.player_id = t.player_id
		WHERE l.item_id = ?
		ORDER BY CAST(l.price AS REAL) / l.quantity ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings for item %d: %w", itemID, err)
	}
	defer func() { _ = rows.Close() }()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var updated string
		if err := rows.Scan(&l.PlayerID, &l.PlayerName, &l.ItemID, &l.ItemName, &l.ItemType,
			&l.Quantity, &l.Price, &l.MarketPrice, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		l.PricePerUnit = model.UnitPrice(l.Price, l.Quantity)
		l.LastUpdated, _ = time.Parse(timeLayout, updated)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// RecordScanAttempt appends one scan audit record.
func (r *SQLiteMarketRepository) RecordScanAttempt(ctx context.Context, attempt model.ScanAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errMsg sql.NullString
	if attempt.ErrorMessage != "" {
		errMsg = sql.NullString{String: attempt.ErrorMessage, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_history (player_id, scan_time, items_found, success, error_message)
		VALUES (?, ?, ?, ?, ?)`,
		attempt.PlayerID, attempt.ScanTime.UTC().Format(timeLayout),
		attempt.ItemsFound, boolToInt(attempt.Success), errMsg)
	if err != nil {
		return fmt.Errorf("failed to record scan attempt: %w", err)
	}
	return nil
}

// Stats returns seller/listing totals and scans in the last hour.
func (r *SQLiteMarketRepository) Stats(ctx context.Context) (model.ScanStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats model.ScanStats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM traders`).Scan(&stats.TotalTraders); err != nil {
		return stats, fmt.Errorf("failed to count traders: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bazaar_listings`).Scan(&stats.TotalListings); err != nil {
		return stats, fmt.Errorf("failed to count listings: %w", err)
	}

	cutoff := time.Now().UTC().Add(-time.Hour).Format(timeLayout)
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_history WHERE scan_time > ?`, cutoff).Scan(&stats.ScansLastHour); err != nil {
		return stats, fmt.Errorf("failed to count recent scans: %w", err)
	}
	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteMarketRepository) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ MarketRepository = (*SQLiteMarketRepository)(nil)
