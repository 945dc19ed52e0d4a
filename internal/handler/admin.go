package handler

import (
	"errors"
	"net/http"

	"torn-bazaar-api/internal/service"
	"torn-bazaar-api/pkg/apierror"
	"torn-bazaar-api/pkg/response"
)

// AdminHandler handles operational HTTP requests.
type AdminHandler struct {
	finder  *service.Finder
	scanner *service.Scanner
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(finder *service.Finder, scanner *service.Scanner) *AdminHandler {
	return &AdminHandler{
		finder:  finder,
		scanner: scanner,
	}
}

// ClearCache handles POST /api/v1/admin/cache/clear
// Idempotent: clearing an empty cache succeeds.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.finder.ClearCache(r.Context()); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]string{
		"status": "cache cleared",
	})
}

// TriggerScan handles POST /api/v1/admin/scan
func (h *AdminHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		response.Error(w, apierror.ServiceUnavailable("background scanner is disabled"))
		return
	}

	if err := h.scanner.RunNow(); err != nil {
		if errors.Is(err, service.ErrScanInProgress) {
			response.Error(w, apierror.Conflict("a full scan is already in progress"))
			return
		}
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]string{
		"status": "scan started",
	})
}
