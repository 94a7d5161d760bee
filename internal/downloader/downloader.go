package downloader

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Result records the outcome of one image download.
type Result struct {
	URL      string
	FilePath string
	Size     int64
	Err      error
	Duration time.Duration
}

// Downloader fetches product images concurrently and streams them to
// disk. It carries the crawl session's User-Agent so image requests look
// like the page requests that preceded them.
type Downloader struct {
	client      *http.Client
	userAgent   string
	concurrency int
}

func New(timeout time.Duration, userAgent string, concurrency int) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}
	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:   userAgent,
		concurrency: concurrency,
	}
}

// DownloadAll fetches every URL into outputDir using a bounded worker
// pool. Results come back in completion order; failures are reported per
// URL, not as a batch error.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string, outputDir string) []*Result {
	if len(urls) == 0 {
		return nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		results := make([]*Result, len(urls))
		for i, u := range urls {
			results[i] = &Result{URL: u, Err: err}
		}
		return results
	}

	jobs := make(chan string, len(urls))
	out := make(chan *Result, len(urls))

	var wg sync.WaitGroup
	for w := 0; w < d.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				select {
				case <-ctx.Done():
					out <- &Result{URL: u, Err: ctx.Err()}
					continue
				default:
				}
				out <- d.download(ctx, u, outputDir)
			}
		}()
	}

	for _, u := range urls {
		jobs <- u
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]*Result, 0, len(urls))
	for r := range out {
		results = append(results, r)
	}
	return results
}

func (d *Downloader) download(ctx context.Context, imageURL, outputDir string) *Result {
	start := time.Now()
	result := &Result{URL: imageURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Errorf("bad status: %s", resp.Status)
		result.Duration = time.Since(start)
		return result
	}

	path := filepath.Join(outputDir, filenameFor(imageURL))
	result.FilePath = path

	file, err := os.Create(path)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	defer file.Close()

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		os.Remove(path)
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	result.Size = n
	result.Duration = time.Since(start)
	log.Debug().
		Str("url", imageURL).
		Str("file", path).
		Int64("bytes", n).
		Msg("downloaded image")
	return result
}

// filenameFor derives a safe local filename from an image URL. The last
// path segment is kept for readability; a short hash of the full URL is
// prefixed so two "thumb.jpg" from different galleries never collide.
func filenameFor(imageURL string) string {
	base := "image"
	if u, err := url.Parse(imageURL); err == nil {
		if seg := filepath.Base(u.Path); seg != "." && seg != "/" && seg != "" {
			base = seg
		}
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		cleaned = "image"
	}

	sum := sha1.Sum([]byte(imageURL))
	return fmt.Sprintf("%x_%s", sum[:4], cleaned)
}
