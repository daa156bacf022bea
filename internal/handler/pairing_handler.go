package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slugzin/leadflow-backend/internal/pairing"
	"github.com/slugzin/leadflow-backend/internal/repository"
)

type PairingHandler struct {
	Manager     *pairing.Manager
	Connections repository.ConnectionRepositoryInterface
}

// OpenPairing starts (or resumes) the pairing view for a connection and
// returns the current session snapshot. The first code request fires
// immediately; the UI polls GetPairing for the code.
func (h *PairingHandler) OpenPairing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	connection, err := h.Connections.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}

	session := h.Manager.Open(connection.ID, connection.TechnicalName)
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (h *PairingHandler) GetPairing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session := h.Manager.Get(id)
	if session == nil {
		http.Error(w, "no pairing view open for connection "+id, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// RegeneratePairing re-requests a code after an expiry or error.
func (h *PairingHandler) RegeneratePairing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session := h.Manager.Get(id)
	if session == nil {
		http.Error(w, "no pairing view open for connection "+id, http.StatusNotFound)
		return
	}
	session.Regenerate()
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// ClosePairing cancels the session; in-flight requests are discarded.
func (h *PairingHandler) ClosePairing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.Manager.Close(id)
	w.WriteHeader(http.StatusNoContent)
}
