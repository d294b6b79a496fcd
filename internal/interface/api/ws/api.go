package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"reactbot/internal/domain"
)

// BindingLister es la vista de solo lectura del store que expone la API.
type BindingLister interface {
	List(ctx context.Context) ([]*domain.ReactionRole, error)
}

type apiHandlers struct {
	bindings BindingLister
}

func newAPIHandlers(cfg Config) *apiHandlers {
	return &apiHandlers{bindings: cfg.Bindings}
}

func (a *apiHandlers) register(mux *http.ServeMux) {
	if a == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/health", a.withCORS(a.handleHealth))
	if a.bindings != nil {
		mux.HandleFunc("/api/reaction-roles", a.withCORS(a.handleReactionRoles))
	}
}

func (a *apiHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type bindingResponse struct {
	MessageID string `json:"message_id"`
	Reaction  string `json:"reaction"`
	RoleID    string `json:"role_id"`
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
}

func (a *apiHandlers) handleReactionRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rows, err := a.bindings.List(r.Context())
	if err != nil {
		log.WithError(err).Error("list bindings")
		writeError(w, http.StatusInternalServerError, "could not list bindings")
		return
	}
	out := make([]bindingResponse, 0, len(rows))
	for _, rr := range rows {
		out = append(out, bindingResponse{
			MessageID: rr.MessageID,
			Reaction:  rr.Reaction,
			RoleID:    rr.RoleID,
			Type:      string(rr.Type),
			ChannelID: rr.ChannelID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiHandlers) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
