// Package registry loads the externally supplied seller registry.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"torn-bazaar-api/internal/model"
)

// ErrNotFound is returned when no registry file exists at any candidate
// location. Callers treat this as "scanning disabled", not a fatal error.
var ErrNotFound = errors.New("trader registry file not found")

type traderFile struct {
	Traders []traderEntry `json:"traders"`
}

type traderEntry struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LastTrade int64  `json:"last_trade"`
}

// Load reads the trader registry from path, falling back to the historical
// locations the file has lived at. Returned sellers are all active.
func Load(path string) ([]model.Seller, error) {
	candidates := []string{
		path,
		"trader_ids.json",
		filepath.Join("server", "trader_ids.json"),
	}

	var data []byte
	var found bool
	for _, p := range candidates {
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		data = b
		found = true
		break
	}
	if !found {
		return nil, ErrNotFound
	}

	var f traderFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse trader registry: %w", err)
	}

	sellers := make([]model.Seller, 0, len(f.Traders))
	for _, t := range f.Traders {
		if t.ID <= 0 {
			continue
		}
		sellers = append(sellers, model.Seller{
			PlayerID:   t.ID,
			PlayerName: t.Name,
			LastTrade:  t.LastTrade,
			IsActive:   true,
		})
	}
	return sellers, nil
}
