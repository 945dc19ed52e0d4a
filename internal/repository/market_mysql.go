package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver registration.

	"torn-bazaar-api/internal/model"
)

// MySQLMarketRepository implements MarketRepository using MySQL, for
// deployments that already run one. Selected with DB_TYPE=mysql.
type MySQLMarketRepository struct {
	db *sql.DB
}

// NewMySQLMarketRepository connects to MySQL and ensures the schema exists.
func NewMySQLMarketRepository(dsn string) (*MySQLMarketRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQLMarketRepository] Initialized")
	return &MySQLMarketRepository{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS traders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			player_id BIGINT NOT NULL UNIQUE,
			player_name VARCHAR(64) NOT NULL,
			last_trade BIGINT DEFAULT 0,
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			last_scanned DATETIME NULL,
			created_at DATETIME NOT NULL,
			INDEX idx_traders_active (is_active)
		)`,
		`CREATE TABLE IF NOT EXISTS bazaar_listings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			player_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			item_name VARCHAR(128) NOT NULL,
			item_type VARCHAR(64) NOT NULL,
			quantity BIGINT NOT NULL,
			price BIGINT NOT NULL,
			market_price BIGINT DEFAULT 0,
			last_updated DATETIME NOT NULL,
			INDEX idx_listings_item (item_id),
			INDEX idx_listings_player (player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS scan_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			player_id BIGINT NOT NULL,
			scan_time DATETIME NOT NULL,
			items_found INT NOT NULL DEFAULT 0,
			success TINYINT(1) NOT NULL DEFAULT 1,
			error_message TEXT NULL,
			INDEX idx_scan_history_time (scan_time)
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSellers imports sellers, ignoring already-known player IDs.
func (r *MySQLMarketRepository) UpsertSellers(ctx context.Context, sellers []model.Seller) error {
	if len(sellers) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT IGNORE INTO traders (player_id, player_name, last_trade, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, s := range sellers {
		if _, err := stmt.ExecContext(ctx, s.PlayerID, s.PlayerName, s.LastTrade, s.IsActive, now); err != nil {
			return fmt.Errorf("failed to upsert seller %d: %w", s.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ActiveSellers returns active sellers, most recently trading first.
func (r *MySQLMarketRepository) ActiveSellers(ctx context.Context) ([]model.Seller, error) {
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
		var lastScanned sql.NullTime
		if err := rows.Scan(&s.PlayerID, &s.PlayerName, &s.LastTrade, &s.IsActive, &lastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		if lastScanned.Valid {
			t := lastScanned.Time
			s.LastScanned = &t
		}
		sellers = append(sellers, s)
	}
	return sellers, rows.Err()
}

// ReplaceListings swaps a seller's listings for the given set in one
// transaction and bumps the seller's last-scanned time.
func (r *MySQLMarketRepository) ReplaceListings(ctx context.Context, playerID int64, listings []model.Listing) error {
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
				l.Quantity, l.Price, l.MarketPrice, l.LastUpdated.UTC())
			if err != nil {
				return fmt.Errorf("failed to insert listing for item %d: %w", l.ItemID, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE traders SET last_scanned = ? WHERE player_id = ?`, time.Now().UTC(), playerID); err != nil {
		return fmt.Errorf("failed to update last_scanned for player %d: %w", playerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListingsForItem returns listings for an item ordered by price per unit.
func (r *MySQLMarketRepository) ListingsForItem(ctx context.Context, itemID int64) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.player_id, t.player_name, l.item_id, l.item_name, l.item_type,
		       l.quantity, l.price, l.market_price, l.last_updated
		FROM bazaar_listings l
		INNER JOIN traders t ON l.player_id = t.player_id
		WHERE l.item_id = ?
		ORDER BY l.price / l.quantity ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings for item %d: %w", itemID, err)
	}
	defer func() { _ = rows.Close() }()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.PlayerID, &l.PlayerName, &l.ItemID, &l.ItemName, &l.ItemType,
			&l.Quantity, &l.Price, &l.MarketPrice, &l.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		l.PricePerUnit = model.UnitPrice(l.Price, l.Quantity)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// RecordScanAttempt appends one scan audit record.
func (r *MySQLMarketRepository) RecordScanAttempt(ctx context.Context, attempt model.ScanAttempt) error {
	var errMsg sql.NullString
	if attempt.ErrorMessage != "" {
		errMsg = sql.NullString{String: attempt.ErrorMessage, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_history (player_id, scan_time, items_found, success, error_message)
		VALUES (?, ?, ?, ?, ?)`,
		attempt.PlayerID, attempt.ScanTime.UTC(), attempt.ItemsFound, attempt.Success, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record scan attempt: %w", err)
	}
	return nil
}

// Stats returns seller/listing totals and scans in the last hour.
func (r *MySQLMarketRepository) Stats(ctx context.Context) (model.ScanStats, error) {
	var stats model.ScanStats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM traders`).Scan(&stats.TotalTraders); err != nil {
		return stats, fmt.Errorf("failed to count traders: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bazaar_listings`).Scan(&stats.TotalListings); err != nil {
		return stats, fmt.Errorf("failed to count listings: %w", err)
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scan_history WHERE scan_time > NOW() - INTERVAL 1 HOUR`).Scan(&stats.ScansLastHour); err != nil {
		return stats, fmt.Errorf("failed to count recent scans: %w", err)
	}
	return stats, nil
}

// Close closes the database connection.
func (r *MySQLMarketRepository) Close() error {
	return r.db.Close()
}

var _ MarketRepository = (*MySQLMarketRepository)(nil)
