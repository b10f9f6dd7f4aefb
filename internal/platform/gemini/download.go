package gemini

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Download fetches a generated media payload. The API key is attached only for
// hosts in Config.DownloadHosts; signed URLs elsewhere must not see it.
func (c *Client) Download(ctx context.Context, apiKey string, uri string) (data []byte, mime string, err error) {
	ctx, span, err := c.begin(ctx, "gemini.Download", attribute.String("host", hostOf(uri)))
	if err != nil {
		return nil, "", err
	}
	defer func() { finish(span, err) }()

	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		data, mime, err = c.downloadOnce(ctx, apiKey, uri)
		if err == nil {
			break
		}
		if attempt >= c.cfg.MaxRetries || !retryable(err) || ctx.Err() != nil {
			return nil, "", classify("download video", err)
		}
		c.log.Debug("Retrying download", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = sniffVideoMime(data)
	}
	return data, mime, nil
}

func (c *Client) downloadOnce(ctx context.Context, apiKey string, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", err
	}
	if c.shouldAttachKey(uri) && apiKey != "" {
		req.Header.Set("x-goog-api-key", apiKey)
	}
	c.mu.Lock()
	hc := c.httpClient
	c.mu.Unlock()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	ct := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return raw, ct, nil
}

func (c *Client) shouldAttachKey(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	if c.cfg.BaseURL != "" && host == hostOf(c.cfg.BaseURL) {
		return true
	}
	for _, suffix := range c.cfg.DownloadHosts {
		suffix = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(suffix), "."))
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u == nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func retryable(err error) bool {
	if he, ok := err.(*httpStatusError); ok {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	return true
}

func sniffVideoMime(b []byte) string {
	if len(b) >= 12 && bytes.Contains(b[:12], []byte("ftyp")) {
		return "video/mp4"
	}
	if len(b) >= 4 && b[0] == 0x1A && b[1] == 0x45 && b[2] == 0xDF && b[3] == 0xA3 {
		return "video/webm"
	}
	return "video/mp4"
}
