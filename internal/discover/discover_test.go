package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopscan/shopscan/internal/fetch"
)

func newDiscovery(t *testing.T) (*Discovery, *http.ServeMux, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	p, err := fetch.New(fetch.Config{RequestsPerSecond: 1000, BurstSize: 1000}, nil)
	if err != nil {
		t.Fatalf("fetch.New: %v", err)
	}
	return New(p), mux, server
}

func servePage(mux *http.ServeMux, path string, products []string, next string) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		var b strings.Builder
		b.WriteString("<html><body><ul>")
		for _, p := range products {
			fmt.Fprintf(&b, `<li class="product-item"><a href=%q>buy</a></li>`, p)
		}
		b.WriteString("</ul>")
		if next != "" {
			fmt.Fprintf(&b, `<a rel="next" href=%q>Next</a>`, next)
		}
		b.WriteString("</body></html>")
		fmt.Fprint(w, b.String())
	})
}

func TestDiscoverThreePages(t *testing.T) {
	d, mux, server := newDiscovery(t)
	servePage(mux, "/page1", []string{"/product/1", "/product/2"}, "/page2")
	servePage(mux, "/page2", []string{"/product/3", "/product/4"}, "/page3")
	servePage(mux, "/page3", []string{}, "")

	urls, err := d.Discover(context.Background(), server.URL+"/page1", "", 10)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{
		server.URL + "/product/1",
		server.URL + "/product/2",
		server.URL + "/product/3",
		server.URL + "/product/4",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls %v, want %d", len(urls), urls, len(want))
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q (first-seen order)", i, urls[i], want[i])
		}
	}
}

func TestDiscoverMaxPagesCap(t *testing.T) {
	d, mux, server := newDiscovery(t)
	servePage(mux, "/page1", []string{"/product/1", "/product/2"}, "/page2")
	servePage(mux, "/page2", []string{"/product/3", "/product/4"}, "/page3")
	servePage(mux, "/page3", []string{"/product/5"}, "")

	urls, err := d.Discover(context.Background(), server.URL+"/page1", "", 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("got %v, want only the 2 urls from page 1", urls)
	}
}

func TestDiscoverDeduplicates(t *testing.T) {
	d, mux, server := newDiscovery(t)
	// Page 2 repeats a product from page 1.
	servePage(mux, "/page1", []string{"/product/1", "/product/2"}, "/page2")
	servePage(mux, "/page2", []string{"/product/2", "/product/3"}, "")

	urls, err := d.Discover(context.Background(), server.URL+"/page1", "", 10)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(urls) != 3 {
		t.Errorf("got %v, want 3 unique urls", urls)
	}
	if urls[1] != server.URL+"/product/2" {
		t.Errorf("dedupe must keep first-seen order, got %v", urls)
	}
}

func TestDiscoverPatternFilter(t *testing.T) {
	d, mux, server := newDiscovery(t)
	servePage(mux, "/page1", []string{"/product/widget-a", "/product/gadget-b"}, "")

	urls, err := d.Discover(context.Background(), server.URL+"/page1", "widget", 10)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(urls) != 1 || !strings.Contains(urls[0], "widget-a") {
		t.Errorf("pattern filter failed: %v", urls)
	}
}

func TestDiscoverInvalidPattern(t *testing.T) {
	d, _, server := newDiscovery(t)
	if _, err := d.Discover(context.Background(), server.URL+"/page1", "[unclosed", 10); err == nil {
		t.Error("invalid pattern must fail fast")
	}
}

func TestDiscoverPartialResultOnFetchFailure(t *testing.T) {
	d, mux, server := newDiscovery(t)
	servePage(mux, "/page1", []string{"/product/1"}, "/page2")
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	urls, err := d.Discover(context.Background(), server.URL+"/page1", "", 10)
	if err != nil {
		t.Fatalf("partial crawl must not report an error, got %v", err)
	}
	if len(urls) != 1 {
		t.Errorf("got %v, want the 1 url found before the failure", urls)
	}
}

func TestDiscoverSelfReferencingNextStops(t *testing.T) {
	d, mux, server := newDiscovery(t)
	servePage(mux, "/page1", []string{"/product/1"}, "/page1")

	urls, err := d.Discover(context.Background(), server.URL+"/page1", "", 10)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(urls) != 1 {
		t.Errorf("self-referencing pagination must stop after one page, got %v", urls)
	}
}

func TestDiscoverEmptyPageContinuesPagination(t *testing.T) {
	d, mux, server := newDiscovery(t)
	servePage(mux, "/page1", []string{}, "/page2")
	servePage(mux, "/page2", []string{"/product/1"}, "")

	urls, err := d.Discover(context.Background(), server.URL+"/page1", "", 10)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(urls) != 1 {
		t.Errorf("a page without product links must not stop the crawl, got %v", urls)
	}
}
