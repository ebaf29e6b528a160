package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartline/internal/mw"
	"smartline/internal/service"
)

// ListPricesHandler returns the catalog. Members only see what is currently
// offered; operators see everything including unpriced drafts.
func ListPricesHandler(catalog *service.CatalogService) http.HandlerFunc {
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

		list := catalog.Available
		if caller.Role.CanManageCatalog() {
			list = catalog.List
		}

		prices, err := list(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(prices); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}

type upsertPriceRequest struct {
	ItemName string  `json:"itemName"`
	Region   string  `json:"region,omitempty"`
	Price    float64 `json:"price"`
}

func UpsertPriceHandler(catalog *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		var req upsertPriceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.ItemName == "" || req.Price < 0 {
			http.Error(w, "item name and non-negative price required", http.StatusUnprocessableEntity)
			return
		}

		record, err := catalog.Upsert(r.Context(), req.ItemName, req.Region, req.Price)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(record); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}

// IngestPricesHandler feeds maintenance text through the parser and upserts
// every extracted entry.
func IngestPricesHandler(catalog *service.CatalogService, parser service.TextParser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			http.Error(w, "text required", http.StatusBadRequest)
			return
		}

		records, err := catalog.IngestText(r.Context(), parser, req.Text)
		if err != nil {
			var parseErr *service.ParsingError
			if errors.As(err, &parseErr) {
				http.Error(w, "text could not be parsed", http.StatusBadGateway)
				return
			}
			slog.Error("price ingestion failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(records); err != nil {
			slog.Error("encode prices failed", "error", err)
		}
	}
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

func SetPriceAvailabilityHandler(catalog *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		var req availabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := catalog.SetAvailability(r.Context(), chi.URLParam(r, "id"), req.Available); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func DeletePriceHandler(catalog *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		if err := catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
