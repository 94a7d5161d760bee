package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopscan/shopscan/internal/store"
	urlutil "github.com/shopscan/shopscan/internal/utils/url"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListProducts serves /api/products with optional q, limit and
// offset query parameters.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no product store configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	var err error
	var products any
	if q := r.URL.Query().Get("q"); q != "" {
		products, err = s.store.Search(r.Context(), q, limit)
	} else {
		products, err = s.store.List(r.Context(), limit, offset)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no product store configured")
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	product, err := s.store.GetByURL(r.Context(), url)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no product store configured")
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type scrapeRequest struct {
	StartURL string `json:"start_url"`
	Pattern  string `json:"pattern"`
	MaxPages int    `json:"max_pages"`
}

// handleCreateJob accepts a crawl request and returns the queued job.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not configured")
		return
	}

	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := urlutil.ValidateURL(req.StartURL); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid start_url: %v", err))
		return
	}
	if req.MaxPages <= 0 {
		req.MaxPages = 10
	}

	// The job outlives this request; it is bounded by the server's
	// lifetime, not the HTTP request context.
	job := s.jobs.Submit(context.WithoutCancel(r.Context()), req.StartURL, req.Pattern, req.MaxPages)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.jobs.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not configured")
		return
	}
	job, ok := s.jobs.Get(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><title>shopscan</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
</style>
</head>
<body>
<h1>shopscan</h1>
<p>{{.Products}} products from {{.Brands}} brands.</p>
<p>
<a href="/api/products">products</a> ·
<a href="/api/products/stats">stats</a> ·
<a href="/api/jobs">jobs</a> ·
<a href="/metrics">metrics</a>
</p>
</body>
</html>`))

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := &store.Stats{}
	if s.store != nil {
		if stats, err := s.store.Stats(r.Context()); err == nil {
			data = stats
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	dashboardTmpl.Execute(w, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}
