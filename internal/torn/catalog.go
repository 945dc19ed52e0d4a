package torn

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const catalogEntryTTL = time.Hour

type catalogEntry struct {
	marketValue int64
	fetchedAt   time.Time
}

// Catalog answers "what is the catalog market price of item X" from the
// Torn items selection. Item reference data moves slowly, so answers are
// memoized in process for an hour.
type Catalog struct {
	client *Client

	mu      sync.Mutex
	entries map[int64]catalogEntry
}

// NewCatalog creates a catalog backed by the given client. Lookups go
// through the client's shared rate limiter like every other upstream call.
func NewCatalog(client *Client) *Catalog {
	return &Catalog{
		client:  client,
		entries: make(map[int64]catalogEntry),
	}
}

type itemsResponse struct {
	Items map[string]struct {
		Name        string `json:"name"`
		MarketValue int64  `json:"market_value"`
	} `json:"items"`
	Error *APIError `json:"error"`
}

// MarketValue returns the catalog market price for an item, or an error if
// the upstream cannot answer. Unknown items yield 0, not an error.
func (c *Catalog) MarketValue(ctx context.Context, itemID int64) (int64, error) {
	c.mu.Lock()
	if e, ok := c.entries[itemID]; ok && time.Since(e.fetchedAt) < catalogEntryTTL {
		c.mu.Unlock()
		return e.marketValue, nil
	}
	c.mu.Unlock()

	if err := c.client.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/torn/%d?selections=items&key=%s", c.client.baseURL, itemID, c.client.apiKey)
	var decoded itemsResponse
	if err := c.client.getJSON(ctx, url, &decoded); err != nil {
		return 0, fmt.Errorf("fetch item %d: %w", itemID, err)
	}
	if decoded.Error != nil {
		return 0, decoded.Error
	}

	var value int64
	if item, ok := decoded.Items[strconv.FormatInt(itemID, 10)]; ok {
		value = item.MarketValue
	}

	c.mu.Lock()
	c.entries[itemID] = catalogEntry{marketValue: value, fetchedAt: time.Now()}
	c.mu.Unlock()

	return value, nil
}
