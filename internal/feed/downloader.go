package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"factorsync/internal/domain"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 50 * 1024 * 1024
)

// Payload is a downloaded feed. Raw keeps the bytes as published, Text is
// the same content decoded from ISO-8859-1.
type Payload struct {
	URL  string
	Raw  []byte
	Text string
}

// Downloader fetches the reference feed under a timeout and a size cap.
type Downloader struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	log        *zap.Logger
}

// NewDownloader creates a Downloader. Non-positive bounds fall back to the defaults.
func NewDownloader(timeout time.Duration, maxBytes int64, userAgent string, log *zap.Logger) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Downloader{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		log:       log,
	}
}

// Fetch downloads rawURL. Transport errors and non-2xx statuses wrap
// domain.ErrDownloadFailed; oversized bodies wrap domain.ErrSizeLimitExceeded.
// A declared Content-Length over the cap fails before the body is read.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*Payload, error) {
	d.log.Info("downloading feed", zap.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrDownloadFailed, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.8")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s", domain.ErrDownloadFailed, resp.Status)
	}

	if resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: declared %.1f MB, limit %.1f MB",
			domain.ErrSizeLimitExceeded, megabytes(resp.ContentLength), megabytes(d.maxBytes))
	}

	// One byte past the cap is enough to detect an undeclared oversize body.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrDownloadFailed, err)
	}
	if int64(len(raw)) > d.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %.1f MB", domain.ErrSizeLimitExceeded, megabytes(d.maxBytes))
	}

	text, err := DecodeLatin1(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrDownloadFailed, err)
	}

	d.log.Info("feed downloaded", zap.Int("bytes", len(raw)), zap.Int("chars", utf8.RuneCountInString(text)))
	return &Payload{URL: rawURL, Raw: raw, Text: text}, nil
}

// DecodeLatin1 converts ISO-8859-1 bytes to a UTF-8 string. The publisher does
// not emit UTF-8, and the keyword rules depend on accented characters surviving.
func DecodeLatin1(raw []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func megabytes(n int64) float64 {
	return float64(n) / 1024 / 1024
}
