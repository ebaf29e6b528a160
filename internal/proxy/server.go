package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartline/internal/storage"
)

// Server exposes the four entity endpoints of the storage proxy protocol:
// GET /api/store/{entity} returns the raw record set, POST applies one
// tagged mutation. The protocol is versionless; both sides change together.
type Server struct {
	store DocStore
}

func NewServer(store DocStore) *Server {
	return &Server{store: store}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/store/{entity}", s.handleRead)
	r.Post("/api/store/{entity}", s.handleWrite)
	return r
}

func knownEntity(name string) bool {
	for _, e := range storage.Entities {
		if string(e) == name {
			return true
		}
	}
	return false
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if !knownEntity(entity) {
		http.Error(w, "unknown entity", http.StatusNotFound)
		return
	}

	docs, err := s.store.List(r.Context(), entity)
	if err != nil {
		slog.Error("proxy read failed", "entity", entity, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []Doc{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(docs); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if !knownEntity(entity) {
		http.Error(w, "unknown entity", http.StatusNotFound)
		return
	}

	var m storage.WireMutation
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var err error
	switch m.Op {
	case storage.WireInsert:
		id, ok := m.Record[storage.KeyField(storage.Entity(entity))].(string)
		if !ok || id == "" {
			http.Error(w, "record missing key field", http.StatusBadRequest)
			return
		}
		err = s.store.Put(r.Context(), entity, id, m.Record)
	case storage.WireUpdate:
		if m.ID == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		err = s.store.Merge(r.Context(), entity, m.ID, m.Fields)
	case storage.WireDelete:
		if m.ID == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		err = s.store.Delete(r.Context(), entity, m.ID)
	default:
		http.Error(w, "unknown operation", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("proxy write failed", "entity", entity, "op", m.Op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
