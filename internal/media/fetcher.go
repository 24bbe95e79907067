// Package media downloads headshot images named in import rows and stores
// them in a blob backend.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a single image download.
	DefaultTimeout = 30 * time.Second
	// MaxImageBytes caps the accepted body size.
	MaxImageBytes = 10 << 20
)

// ErrInvalidURL is returned for URLs that are not absolute http(s) links.
var ErrInvalidURL = errors.New("invalid image url")

// Importer fetches a remote image and returns the stored blob key.
type Importer interface {
	FetchAndStore(ctx context.Context, rawURL string) (string, error)
}

// Fetcher downloads images over HTTP and writes them to a BlobStore.
type Fetcher struct {
	store   BlobStore
	client  *http.Client
	timeout time.Duration
}

// NewFetcher returns a Fetcher. A zero timeout means DefaultTimeout.
func NewFetcher(store BlobStore, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		store:   store,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

var imageExt = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// FetchAndStore downloads rawURL and stores it under headshots/<uuid><ext>.
func (f *Fetcher) FetchAndStore(ctx context.Context, rawURL string) (string, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("image host returned %d", resp.StatusCode)
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("not an image: %q", resp.Header.Get("Content-Type"))
	}
	if resp.ContentLength > MaxImageBytes {
		return "", fmt.Errorf("image too large: %d bytes", resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	key := "headshots/" + uuid.NewString() + extension(mediaType, u.Path)
	if err := f.store.Put(ctx, key, data, mediaType); err != nil {
		return "", err
	}
	return key, nil
}

func extension(mediaType, urlPath string) string {
	if ext, ok := imageExt[mediaType]; ok {
		return ext
	}
	ext := strings.ToLower(path.Ext(urlPath))
	if len(ext) > 1 && len(ext) <= 5 {
		return ext
	}
	return ""
}
