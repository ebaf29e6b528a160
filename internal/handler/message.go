package handler

import (
	"encoding/json"
	"net/http"

	"smartline/internal/model"
	"smartline/internal/service"
)

// ListMessagesHandler returns the confirmation log in chronological order.
func ListMessagesHandler(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		log, err := messages.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if log == nil {
			log = []model.ChatMessage{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(log); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	}
}
