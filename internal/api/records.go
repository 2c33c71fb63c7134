package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"countcam/internal/store"
)

// listRecords returns all saved records, newest first.
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List()
	if err != nil {
		s.logger.Printf("record list failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []*store.Record{}
	}
	s.respond(w, http.StatusOK, records)
}

type renameRequest struct {
	Name string `json:"name"`
}

// renameRecord updates a record's name, the only mutable field.
func (s *Server) renameRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.store.Rename(id, req.Name)
	switch {
	case errors.Is(err, store.ErrNameRequired):
		s.respondError(w, http.StatusBadRequest, "name required")
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "record not found")
	case err != nil:
		s.logger.Printf("record rename failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to rename record")
	default:
		s.respond(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "record renamed",
		})
	}
}

// deleteRecord removes a record permanently.
func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.store.Delete(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "record not found")
	case err != nil:
		s.logger.Printf("record delete failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to delete record")
	default:
		s.respond(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "record deleted",
		})
	}
}
