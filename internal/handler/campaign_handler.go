package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slugzin/leadflow-backend/internal/dispatch"
	appErrors "github.com/slugzin/leadflow-backend/internal/errors"
	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/repository"
)

type CampaignHandler struct {
	Orchestrator *dispatch.Orchestrator
	Campaigns    repository.CampaignRepositoryInterface
	Sends        repository.ScheduledSendRepositoryInterface
}

// DispatchCampaign launches a send campaign. A partial quota grant is a
// 200 with limited=true, not an error; partial persistence is a 207 with
// the partial campaign visible.
func (h *CampaignHandler) DispatchCampaign(w http.ResponseWriter, r *http.Request) {
	operator := operatorID(r)
	if operator == "" {
		http.Error(w, "missing X-Operator-ID header", http.StatusBadRequest)
		return
	}

	var payload struct {
		RecipientIDs []string        `json:"recipient_ids"`
		Message      string          `json:"message,omitempty"`
		Steps        []dispatch.Step `json:"steps,omitempty"`
		ConnectionID string          `json:"connection_id"`
		DelaySeconds int             `json:"delay_seconds"`
		Pattern      string          `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	steps := payload.Steps
	if len(steps) == 0 && payload.Message != "" {
		steps = []dispatch.Step{{Text: payload.Message, PhaseLabel: "mensagem"}}
	}

	result, err := h.Orchestrator.Dispatch(r.Context(), dispatch.Request{
		OperatorID:          operator,
		RecipientIDs:        payload.RecipientIDs,
		Steps:               steps,
		ConnectionID:        payload.ConnectionID,
		DefaultDelaySeconds: payload.DelaySeconds,
		Pattern:             payload.Pattern,
	})
	if err != nil {
		if appErrors.IsPersistencePartial(err) {
			writeJSON(w, http.StatusMultiStatus, map[string]interface{}{
				"result": result,
				"error":  err.Error(),
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	operator := operatorID(r)
	if operator == "" {
		http.Error(w, "missing X-Operator-ID header", http.StatusBadRequest)
		return
	}

	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 && ps <= 100 {
		pageSize = ps
	}
	kind := r.URL.Query().Get("kind")

	campaigns, total, err := h.Campaigns.ListCampaigns(operator, (page-1)*pageSize, pageSize, kind)
	if err != nil {
		writeError(w, err)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": campaigns,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
			"total_pages": totalPages,
		},
	})
}

// CampaignDetails is a campaign with per-status send stats and a status
// derived from them; campaign status is never stored authoritatively.
type CampaignDetails struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Kind         model.CampaignKind `json:"kind"`
	ConnectionID string             `json:"connection_id"`
	Status       string             `json:"status"`
	Targeted     int                `json:"targeted"`
	CreatedAt    time.Time          `json:"created_at"`
	Stats        map[string]int     `json:"stats"`
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.Campaigns.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.Campaigns.GetCampaignStats(id)
	if err != nil {
		writeError(w, err)
		return
	}
	total := 0
	for _, count := range stats {
		total += count
	}
	stats["total"] = total

	writeJSON(w, http.StatusOK, CampaignDetails{
		ID:           campaign.ID,
		Name:         campaign.Name,
		Kind:         campaign.Kind,
		ConnectionID: campaign.ConnectionID,
		Status:       deriveStatus(stats),
		Targeted:     campaign.Targeted,
		CreatedAt:    campaign.CreatedAt,
		Stats:        stats,
	})
}

func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Campaigns.SoftDelete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func deriveStatus(stats map[string]int) string {
	if stats["pending"] > 0 || stats["processing"] > 0 {
		return "sending"
	}
	if stats["total"] == 0 {
		return "empty"
	}
	return "completed"
}
