package handler

import (
	"net/http"
	"strconv"

	"github.com/slugzin/leadflow-backend/internal/quota"
	"github.com/slugzin/leadflow-backend/internal/repository"
)

type UsageHandler struct {
	Quota      *quota.Gate
	Recipients repository.RecipientRepositoryInterface
}

// GetUsage re-reads authoritative usage, overwriting the cached
// snapshot, and returns the allowance rows.
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	operator := operatorID(r)
	if operator == "" {
		http.Error(w, "missing X-Operator-ID header", http.StatusBadRequest)
		return
	}

	states, err := h.Quota.Refresh(r.Context(), operator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": states})
}

func (h *UsageHandler) RefreshUsage(w http.ResponseWriter, r *http.Request) {
	h.GetUsage(w, r)
}

// ListRecipients serves the lead selection list the dispatch UI builds
// from.
func (h *UsageHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	operator := operatorID(r)
	if operator == "" {
		http.Error(w, "missing X-Operator-ID header", http.StatusBadRequest)
		return
	}

	page := 1
	pageSize := 50
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 && ps <= 200 {
		pageSize = ps
	}

	recipients, err := h.Recipients.ListBySearch(operator, r.URL.Query().Get("pesquisa"), (page-1)*pageSize, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": recipients})
}
