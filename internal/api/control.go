package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"countcam/internal/store"
)

type controlRequest struct {
	ClientID string `json:"client_id"`
}

// startProcessing enables the detection transform and opens a new session
// for the client. An unknown client id is created on the spot.
func (s *Server) startProcessing(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if r.Body != nil {
		// An empty or absent body is fine, the cookie carries the id then.
		json.NewDecoder(r.Body).Decode(&req)
	}

	id := clientID(r, req.ClientID)
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "client_id required")
		return
	}

	client := s.registry.Resolve(id)
	client.Session.Start(time.Now())
	client.Processor.EnableDetection()
	s.logger.Printf("processing started for client %s", id)

	s.respond(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "processing started",
		"client_id": id,
	})
}

// stopProcessing disables the transform, closes the session and persists it
// as a new record. Unlike start, an unknown client id is an error here.
func (s *Server) stopProcessing(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	id := clientID(r, req.ClientID)
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "client_id required")
		return
	}

	client, ok := s.registry.Lookup(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown client")
		return
	}

	client.Processor.DisableDetection()
	startedAt, average := client.Session.Stop()
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	var image string
	if snapshot := client.Processor.Snapshot(); snapshot != nil {
		image = base64.StdEncoding.EncodeToString(snapshot)
	}

	existing, err := s.store.Count()
	if err != nil {
		s.logger.Printf("record count failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to save record")
		return
	}

	rec := &store.Record{
		Timestamp:    startedAt,
		Image:        image,
		Name:         fmt.Sprintf("Record %d", existing+1),
		AverageCount: average,
	}
	if err := s.store.Save(rec); err != nil {
		s.logger.Printf("record save failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to save record")
		return
	}
	s.metrics.RecordsSaved.Add(1)
	s.logger.Printf("processing stopped for client %s, record %s (avg %.2f)", id, rec.ID, average)

	s.respond(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "processing stopped",
		"record_id": rec.ID,
		"client_id": id,
	})
}
