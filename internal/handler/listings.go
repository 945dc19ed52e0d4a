package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"torn-bazaar-api/internal/service"
	"torn-bazaar-api/pkg/apierror"
	"torn-bazaar-api/pkg/response"
)

// ListingsHandler handles item listing HTTP requests.
type ListingsHandler struct {
	listingService *service.ListingService
	defaultLimit   int
	maxLimit       int
	cachedMaxScans int
}

// NewListingsHandler creates a new listings handler.
func NewListingsHandler(listingService *service.ListingService, defaultLimit, maxLimit, cachedMaxScans int) *ListingsHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = 50
	}
	if cachedMaxScans <= 0 {
		cachedMaxScans = 50
	}
	return &ListingsHandler{
		listingService: listingService,
		defaultLimit:   defaultLimit,
		maxLimit:       maxLimit,
		cachedMaxScans: cachedMaxScans,
	}
}

// GetListings handles GET /api/v1/listings/{itemID}
// Snapshot mode: instant results from the last background scan.
func (h *ListingsHandler) GetListings(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseItemID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid item ID"))
		return
	}

	result, err := h.listingService.SnapshotListings(r.Context(), itemID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, result)
}

// LiveSearch handles GET /api/v1/live-search/{itemID}?limit=N
// Live mode: fresh, partial, recency-biased results from on-demand fetches.
func (h *ListingsHandler) LiveSearch(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseItemID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid item ID"))
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(w, apierror.BadRequest("invalid limit"))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	result, err := h.listingService.LiveListings(r.Context(), itemID, limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, result)
}

// FindCached handles GET /api/v1/find/{itemID}?sellers=N
// Cached mode: reuses recent bazaar snapshots, at most one TTL stale.
func (h *ListingsHandler) FindCached(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseItemID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid item ID"))
		return
	}

	maxSellers := h.cachedMaxScans
	if raw := r.URL.Query().Get("sellers"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(w, apierror.BadRequest("invalid sellers count"))
			return
		}
		maxSellers = n
	}
	if maxSellers > h.cachedMaxScans {
		maxSellers = h.cachedMaxScans
	}

	result, err := h.listingService.CachedListings(r.Context(), itemID, maxSellers)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, result)
}

// GetStats handles GET /api/v1/stats
func (h *ListingsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.listingService.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"totalSellers":        stats.TotalTraders,
		"totalListings":       stats.TotalListings,
		"scansLastHour":       stats.ScansLastHour,
		"isScanning":          stats.IsScanning,
		"scanIntervalMinutes": stats.ScanInterval,
	})
}

func parseItemID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
}
