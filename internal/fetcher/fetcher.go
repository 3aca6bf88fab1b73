// Package fetcher retrieves pages over HTTP, backed by the durable cache
// and an in-process memo so a URL hits the network at most once per run.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/saptahik/internal/cache"
	"github.com/Adda-Baaj/saptahik/internal/domain"
	"github.com/Adda-Baaj/saptahik/internal/logger"
	"github.com/Adda-Baaj/saptahik/pkg/httpclient"
)

// NetworkError reports an unreachable host or a non-success status that
// survived the client's retries.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Fetcher resolves URLs to page bytes, consulting the cache first.
type Fetcher struct {
	client  httpclient.Client
	store   *cache.Store
	log     logger.Logger
	headers map[string]string

	// memo keeps entries resolved during this run so even TTL-expired or
	// uncached URLs are fetched once per process.
	memo map[string]domain.CacheEntry
}

// New builds a Fetcher. store may be nil to run without durable caching.
func New(client httpclient.Client, store *cache.Store, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Fetcher{
		client: client,
		store:  store,
		log:    log,
		memo:   make(map[string]domain.CacheEntry),
	}
}

// SetHeaders sets headers sent with every request.
func (f *Fetcher) SetHeaders(headers map[string]string) {
	f.headers = headers
}

// Fetch returns the page at url, from cache when possible. maxAge bounds
// how old a durable cache entry may be; zero means entries never expire.
func (f *Fetcher) Fetch(ctx context.Context, url string, maxAge time.Duration) (domain.CacheEntry, error) {
	if entry, ok := f.memo[url]; ok {
		return entry, nil
	}

	if f.store != nil {
		entry, err := f.store.Get(url)
		switch {
		case err == nil && fresh(entry, maxAge):
			f.log.DebugObj("cache hit", "cache_hit", map[string]any{"url": url})
			f.memo[url] = entry
			return entry, nil
		case err != nil && !errors.Is(err, cache.ErrNotFound):
			return domain.CacheEntry{}, err
		}
	}

	entry, err := f.download(ctx, url)
	if err != nil {
		return domain.CacheEntry{}, err
	}

	f.memo[url] = entry
	if f.store != nil {
		if err := f.store.Put(entry); err != nil {
			return domain.CacheEntry{}, err
		}
	}
	return entry, nil
}

// Invalidate drops the durable and in-process entries for url so the next
// Fetch goes to the network.
func (f *Fetcher) Invalidate(url string) error {
	delete(f.memo, url)
	if f.store == nil {
		return nil
	}
	return f.store.Delete(url)
}

func (f *Fetcher) download(ctx context.Context, url string) (domain.CacheEntry, error) {
	f.log.DebugObj("fetching url", "fetch_start", map[string]any{"url": url})

	resp, err := f.client.Get(ctx, url, f.headers)
	if err != nil {
		return domain.CacheEntry{}, &NetworkError{URL: url, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		f.log.WarnObj("fetch returned non-success status", "fetch_status", map[string]any{
			"url":    url,
			"status": resp.StatusCode(),
			"body":   responseSnippet(resp.Body()),
		})
		return domain.CacheEntry{}, &NetworkError{URL: url, Status: resp.StatusCode()}
	}

	return domain.CacheEntry{
		URL:         url,
		FinalURL:    resp.FinalURL(),
		ContentType: resp.ContentType(),
		Body:        resp.Body(),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func fresh(entry domain.CacheEntry, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return time.Since(entry.FetchedAt) < maxAge
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
