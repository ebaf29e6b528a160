package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartline/internal/model"
	"smartline/internal/mw"
	"smartline/internal/service"
)

type ingestRequest struct {
	Text string `json:"text"`
}

// IngestOrderHandler runs the whole pipeline for one raw message. The three
// failure kinds map to distinct statuses so the client can phrase the chat
// reply: 422 for a rejected item, 502 for a parser failure, 500 for storage.
func IngestOrderHandler(pipeline *service.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		caller, ok := mw.Principal(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			http.Error(w, "text required", http.StatusBadRequest)
			return
		}

		orders, err := pipeline.ProcessMessage(r.Context(), caller, req.Text)
		if err != nil {
			var notOffered *service.ItemNotOfferedError
			var parseErr *service.ParsingError
			switch {
			case errors.As(err, &notOffered):
				http.Error(w, notOffered.Error(), http.StatusUnprocessableEntity)
			case errors.As(err, &parseErr):
				http.Error(w, "message could not be parsed", http.StatusBadGateway)
			default:
				slog.Error("ingestion failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		if orders == nil {
			orders = []model.Order{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(orders); err != nil {
			slog.Error("encode orders failed", "error", err)
		}
	}
}

func ListOrdersHandler(ledger *service.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		caller, ok := mw.Principal(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		filter := service.Filter{
			Actor:  caller,
			Search: r.URL.Query().Get("q"),
			Status: model.OrderStatus(r.URL.Query().Get("status")),
		}

		orders, err := ledger.List(r.Context(), filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(orders); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	caller, ok := mw.Principal(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	if !caller.Role.CanManageCatalog() {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

func SetOrderStatusHandler(ledger *service.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Status != model.StatusPending && req.Status != model.StatusCompleted {
			http.Error(w, "invalid status", http.StatusUnprocessableEntity)
			return
		}

		if err := ledger.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type flagRequest struct {
	Flagged bool `json:"flagged"`
}

func SetOrderFlagHandler(ledger *service.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		var req flagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := ledger.SetFlag(r.Context(), chi.URLParam(r, "id"), req.Flagged); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func DeleteOrderHandler(ledger *service.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		if err := ledger.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
