package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appErrors "github.com/slugzin/leadflow-backend/internal/errors"
	"github.com/slugzin/leadflow-backend/internal/gateway"
	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/quota"
	"github.com/slugzin/leadflow-backend/internal/reconcile"
	"github.com/slugzin/leadflow-backend/internal/repository"
)

type ConnectionHandler struct {
	Connections repository.ConnectionRepositoryInterface
	Quota       *quota.Gate
	Gateway     gateway.Client
	Reconciler  *reconcile.Reconciler
}

// CreateConnection registers a messaging account slot. The first
// connection is always granted; later ones consume connection quota.
func (h *ConnectionHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	operator := operatorID(r)
	if operator == "" {
		http.Error(w, "missing X-Operator-ID header", http.StatusBadRequest)
		return
	}

	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.DisplayName) == "" {
		writeError(w, appErrors.NewValidation("display_name is required"))
		return
	}

	decision := h.Quota.Authorize(r.Context(), operator, model.KindConnection, 1)
	if decision.Granted == 0 {
		writeError(w, appErrors.NewQuotaExhausted(string(model.KindConnection)))
		return
	}

	connection := &model.Connection{
		OperatorID:    operator,
		DisplayName:   payload.DisplayName,
		TechnicalName: technicalName(payload.DisplayName),
		Status:        model.ConnectionDisconnected,
	}
	if err := h.Connections.Create(connection); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, connection)
}

func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	operator := operatorID(r)
	if operator == "" {
		http.Error(w, "missing X-Operator-ID header", http.StatusBadRequest)
		return
	}

	connections, err := h.Connections.ListByOperator(operator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": connections})
}

// DeleteConnection tears the account down. Gateway logout and instance
// deletion are best-effort; their failure never blocks local deletion.
func (h *ConnectionHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	connection, err := h.Connections.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := h.Gateway.Logout(ctx, connection.TechnicalName); err != nil {
		log.Println("⚠️ gateway logout failed, continuing with local deletion:", err)
	}
	if err := h.Gateway.DeleteInstance(ctx, connection.TechnicalName); err != nil {
		log.Println("⚠️ gateway instance deletion failed, continuing with local deletion:", err)
	}

	if err := h.Connections.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncConnection reconciles one connection against the gateway.
func (h *ConnectionHandler) SyncConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	connection, err := h.Reconciler.ReconcileConnection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, connection)
}

// SyncAll reconciles every connection the operator holds.
func (h *ConnectionHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	operator := operatorID(r)
	if operator == "" {
		http.Error(w, "missing X-Operator-ID header", http.StatusBadRequest)
		return
	}

	updated, err := h.Reconciler.ReconcileAll(r.Context(), operator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reconciled": updated})
}

// technicalName derives the gateway instance name: a slug of the display
// name plus a short unique fragment.
func technicalName(displayName string) string {
	slug := strings.ToLower(strings.TrimSpace(displayName))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		}
		return -1
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "conta"
	}
	return slug + "-" + uuid.NewString()[:8]
}
