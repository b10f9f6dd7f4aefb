package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestDownloadAttachesKeyOnlyForTrustedHosts(t *testing.T) {
	var seen []string
	c := NewClient(logger.Nop(), Config{RatePerSecond: 100, Burst: 10}).WithHTTPClient(&http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			seen = append(seen, req.URL.Host+"="+req.Header.Get("x-goog-api-key"))
			body := "\x00\x00\x00\x18ftypmp42rest"
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/octet-stream"}},
				Body:       io.NopCloser(strings.NewReader(body)),
				Request:    req,
			}, nil
		}),
	})

	data, mime, err := c.Download(context.Background(), "k1", "https://generativelanguage.googleapis.com/v1beta/files/abc:download?alt=media")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if mime != "video/mp4" || len(data) == 0 {
		t.Fatalf("payload: want video/mp4 got mime=%q len=%d", mime, len(data))
	}
	if _, _, err := c.Download(context.Background(), "k1", "https://cdn.example.com/v.mp4"); err != nil {
		t.Fatalf("Download other host: %v", err)
	}
	if seen[0] != "generativelanguage.googleapis.com=k1" {
		t.Fatalf("trusted host header: got=%q", seen[0])
	}
	if seen[1] != "cdn.example.com=" {
		t.Fatalf("untrusted host must not get the key: got=%q", seen[1])
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "video/webm")
		_, _ = w.Write([]byte{0x1A, 0x45, 0xDF, 0xA3})
	}))
	defer srv.Close()

	c := NewClient(logger.Nop(), Config{RatePerSecond: 100, Burst: 10, MaxRetries: 2})
	_, mime, err := c.Download(context.Background(), "k", srv.URL+"/v")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if mime != "video/webm" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("want webm after 2 calls got mime=%q calls=%d", mime, calls)
	}
}

func TestDownloadClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(logger.Nop(), Config{RatePerSecond: 100, Burst: 10, MaxRetries: 3})
	_, _, err := c.Download(context.Background(), "k", srv.URL+"/v")
	if !errors.Is(err, apierr.ErrCredentialMissing) {
		t.Fatalf("Download 403: want CredentialMissing got=%v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestGenerateImageReturnsFirstInlinePart(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ModelImagePro) {
			t.Errorf("path: want model %s got=%s", ModelImagePro, r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k1" {
			t.Errorf("api key header: got=%q", r.Header.Get("x-goog-api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"here you go"},{"inlineData":{"mimeType":"image/jpeg","data":%q}}]}}]}`,
			base64.StdEncoding.EncodeToString(png))
	}))
	defer srv.Close()

	c := NewClient(logger.Nop(), Config{BaseURL: srv.URL, RatePerSecond: 100, Burst: 10})
	res, err := c.GenerateImage(context.Background(), "k1", ImageCall{Model: ModelImagePro, Prompt: "a fox", AspectRatio: "16:9", ImageSize: "2K"})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if res.Image == nil || res.Image.MIMEType != "image/jpeg" || string(res.Image.Data) != string(png) {
		t.Fatalf("image: got=%+v", res.Image)
	}
	if res.Text != "here you go" {
		t.Fatalf("text: want=%q got=%q", "here you go", res.Text)
	}
}

func TestGenerateImageTextOnlyHasNoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"I can't help with that."}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(logger.Nop(), Config{BaseURL: srv.URL, RatePerSecond: 100, Burst: 10})
	res, err := c.GenerateImage(context.Background(), "k1", ImageCall{Model: ModelImageEdit, Prompt: "edit", Images: []InlineImage{{Data: []byte{1}, MIMEType: "image/png"}}})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if res.Image != nil {
		t.Fatalf("image: want nil got=%+v", res.Image)
	}
}

func TestClassifyKeepsContextErrors(t *testing.T) {
	if err := classify("x", context.Canceled); !errors.Is(err, context.Canceled) || apierr.KindOf(err) != "" {
		t.Fatalf("canceled: got=%v", err)
	}
	if err := classify("x", errors.New("dial tcp: refused")); !errors.Is(err, apierr.ErrTransport) {
		t.Fatalf("network: want Transport got=%v", err)
	}
}
