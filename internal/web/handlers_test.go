package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopscan/shopscan/internal/store"
	"github.com/shopscan/shopscan/pkg/models"
)

type fakeStore struct {
	products []*models.Product
	stats    store.Stats
}

func (f *fakeStore) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	if offset >= len(f.products) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.products) {
		end = len(f.products)
	}
	return f.products[offset:end], nil
}

func (f *fakeStore) Search(ctx context.Context, term string, limit int) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByURL(ctx context.Context, url string) (*models.Product, error) {
	for _, p := range f.products {
		if p.URL == url {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) Stats(ctx context.Context) (*store.Stats, error) {
	return &f.stats, nil
}

func newTestServer(crawl CrawlFunc) (*Server, *fakeStore) {
	fs := &fakeStore{
		products: []*models.Product{
			{URL: "https://shop.example.com/product/mug", Name: "Enamel Mug"},
			{URL: "https://shop.example.com/product/plate", Name: "Tin Plate"},
		},
		stats: store.Stats{Products: 2, Brands: 1},
	}
	var jobs *JobManager
	if crawl != nil {
		jobs = NewJobManager(crawl)
	}
	return NewServer(":0", fs, jobs, nil), fs
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListProducts(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := get(t, s.Router(), "/api/products")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var products []*models.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &products); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("got %d products", len(products))
	}
}

func TestSearchProducts(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := get(t, s.Router(), "/api/products?q=mug")
	var products []*models.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &products); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Enamel Mug" {
		t.Errorf("search results = %v", products)
	}
}

func TestGetProduct(t *testing.T) {
	s, _ := newTestServer(nil)
	router := s.Router()

	rec := get(t, router, "/api/product?url=https://shop.example.com/product/mug")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	rec = get(t, router, "/api/product?url=https://shop.example.com/product/unknown")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = get(t, router, "/api/product")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without url", rec.Code)
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := get(t, s.Router(), "/api/products/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats store.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Products != 2 {
		t.Errorf("products = %d", stats.Products)
	}
}

func TestCreateAndPollJob(t *testing.T) {
	done := make(chan struct{})
	crawl := func(ctx context.Context, startURL, pattern string, maxPages int) ([]*models.Product, error) {
		defer close(done)
		return []*models.Product{{Name: "One"}}, nil
	}
	s, _ := newTestServer(crawl)
	router := s.Router()

	body := strings.NewReader(`{"start_url": "https://shop.example.com/catalog", "max_pages": 2}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scrape", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var job Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatal(err)
	}
	if job.ID == "" || job.StartURL != "https://shop.example.com/catalog" {
		t.Errorf("job = %+v", job)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("crawl never ran")
	}

	// The job eventually reports completion with its product count.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = get(t, router, "/api/jobs/"+job.ID)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			t.Fatal(err)
		}
		if job.Status == JobCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job.Products != 1 {
		t.Errorf("products = %d, want 1", job.Products)
	}
	if job.FinishedAt == nil {
		t.Error("finished_at not set")
	}
}

func TestCreateJobRejectsBadURL(t *testing.T) {
	s, _ := newTestServer(func(ctx context.Context, startURL, pattern string, maxPages int) ([]*models.Product, error) {
		return nil, nil
	})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scrape",
		strings.NewReader(`{"start_url": "not-a-url"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestJobNotFound(t *testing.T) {
	s, _ := newTestServer(func(ctx context.Context, startURL, pattern string, maxPages int) ([]*models.Product, error) {
		return nil, nil
	})
	rec := get(t, s.Router(), "/api/jobs/missing-id")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDashboardRenders(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := get(t, s.Router(), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "shopscan") {
		t.Error("dashboard body missing title")
	}
}
