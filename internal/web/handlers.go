package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/datasweep/internal/core"
	"github.com/JonMunkholm/datasweep/internal/web/templates"
)

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := templates.IndexData{
		MaxFileSizeMB: s.cfg.Upload.MaxFileSize / (1 << 20),
		MaxFiles:      s.cfg.Upload.MaxFiles,
		PreviewRows:   s.cfg.Pipeline.PreviewRows,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.IndexPage(data).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// HealthResponse reports liveness and upload capacity.
type HealthResponse struct {
	Status  string                   `json:"status"`
	Uptime  string                   `json:"uptime"`
	Uploads core.UploadLimiterStatus `json:"uploads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Uploads: s.runner.Limiter.Status(),
	})
}

// handleAuditList returns the most recent audit entries, newest first.
// ?limit= caps the count (default core.DefaultAuditLimit).
func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSON(w, http.StatusOK, []core.AuditEntry{})
		return
	}

	limit := parseIntParam(r, "limit", core.DefaultAuditLimit)
	entries, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
