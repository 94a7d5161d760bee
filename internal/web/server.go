package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/shopscan/shopscan/internal/metrics"
	"github.com/shopscan/shopscan/internal/store"
	"github.com/shopscan/shopscan/pkg/models"
)

// ProductStore is the slice of the persistence layer the dashboard needs.
type ProductStore interface {
	List(ctx context.Context, limit, offset int) ([]*models.Product, error)
	Search(ctx context.Context, term string, limit int) ([]*models.Product, error)
	GetByURL(ctx context.Context, url string) (*models.Product, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

// Server exposes scraped products and job control over HTTP.
type Server struct {
	store   ProductStore
	jobs    *JobManager
	metrics *metrics.Metrics
	addr    string
}

func NewServer(addr string, st ProductStore, jobs *JobManager, m *metrics.Metrics) *Server {
	return &Server{
		store:   st,
		jobs:    jobs,
		metrics: m,
		addr:    addr,
	}
}

// Router assembles the HTTP surface: dashboard, JSON API, Prometheus.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleDashboard)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.handleListProducts)
		r.Get("/products/stats", s.handleStats)
		r.Get("/product", s.handleGetProduct)
		r.Post("/scrape", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then drains it.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
