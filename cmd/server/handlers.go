package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/ARWorldMap/pkg/logger"
	"github.com/himanishpuri/ARWorldMap/pkg/models"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap/imagemeta"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	persist *worldmap.Persistence
	config  *ServerConfig
	log     worldmap.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DataDir        string
	Backend        worldmap.BackendKind
	Sealed         bool
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(persist *worldmap.Persistence, config *ServerConfig) *Server {
	return &Server{
		persist: persist,
		config:  config,
		log:     logger.GetLogger().Named("server"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondLoadError maps persistence errors to HTTP statuses
func (s *Server) respondLoadError(w http.ResponseWriter, err error) {
	var nf *worldmap.NotFoundError
	var decErr *worldmap.DecodingError
	switch {
	case errors.As(err, &nf):
		s.respondError(w, http.StatusNotFound, "No saved map found")
	case errors.As(err, &decErr):
		s.log.Warnf("Saved map is corrupt: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Errorf("Failed to load saved map: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read saved map")
	}
}

func anchorDTO(id models.AnchorID, img models.Image) AnchorDTO {
	dto := AnchorDTO{
		ID:        string(id),
		SizeBytes: len(img.Data),
		Size:      humanize.Bytes(uint64(len(img.Data))),
	}
	meta, err := imagemeta.Probe(img)
	if err != nil {
		dto.ProbeError = err.Error()
		return dto
	}
	dto.Format = meta.Format
	dto.Width = meta.Width
	dto.Height = meta.Height
	return dto
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "ARWorldMap viewer API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"map":         "GET /api/map",
			"anchor":      "GET /api/anchors/{id}",
			"anchorImage": "GET /api/anchors/{id}/image",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	resp := MetricsResponse{
		Status:  "healthy",
		Backend: string(s.config.Backend),
		DataDir: s.config.DataDir,
		Sealed:  s.config.Sealed,
	}

	m, err := s.persist.LoadMap(r.Context())
	var nf *worldmap.NotFoundError
	switch {
	case err == nil:
		resp.WorldMapBytes = m.WorldMapBytes
		resp.ImageMapBytes = m.ImageMapBytes
		resp.ImageCount = m.Store.Len()
	case errors.As(err, &nf):
		resp.Status = "empty"
	default:
		s.log.Warnf("Metrics could not read saved map: %v", err)
		resp.Status = "degraded"
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleMap handles GET /api/map
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	m, err := s.persist.LoadMap(r.Context())
	if err != nil {
		s.respondLoadError(w, err)
		return
	}

	anchors := make([]AnchorDTO, 0, m.Store.Len())
	for _, id := range m.Store.IDs() {
		img, _ := m.Store.Get(id)
		anchors = append(anchors, anchorDTO(id, img))
	}

	s.respondJSON(w, http.StatusOK, MapResponse{
		WorldMapBytes:       len(m.Snapshot.Data),
		WorldMapStoredBytes: m.WorldMapBytes,
		ImageMapStoredBytes: m.ImageMapBytes,
		Anchors:             anchors,
		Count:               len(anchors),
	})
}

// anchorImage loads the saved map and looks up the anchor named in the path
func (s *Server) anchorImage(w http.ResponseWriter, r *http.Request) (models.AnchorID, models.Image, bool) {
	id := models.AnchorID(r.PathValue("id"))
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Anchor ID required")
		return "", models.Image{}, false
	}

	m, err := s.persist.LoadMap(r.Context())
	if err != nil {
		s.respondLoadError(w, err)
		return "", models.Image{}, false
	}
	img, ok := m.Store.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("No image for anchor %s", id))
		return "", models.Image{}, false
	}
	return id, img, true
}

// handleAnchor handles GET /api/anchors/{id}
func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	id, img, ok := s.anchorImage(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, anchorDTO(id, img))
}

// handleAnchorImage handles GET /api/anchors/{id}/image
func (s *Server) handleAnchorImage(w http.ResponseWriter, r *http.Request) {
	id, img, ok := s.anchorImage(w, r)
	if !ok {
		return
	}

	contentType := "application/octet-stream"
	if meta, err := imagemeta.Probe(img); err == nil {
		contentType = "image/" + meta.Format
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		s.log.Warnf("Failed to write image for anchor %s: %v", id, err)
	}
}
