package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/yungbote/creator-studio/internal/platform/ctxutil"
	"github.com/yungbote/creator-studio/internal/platform/envutil"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

type Config struct {
	// BaseURL overrides the API endpoint (proxies, tests).
	BaseURL string `yaml:"base_url"`
	// RatePerSecond and Burst bound outgoing calls across all jobs.
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	// DownloadHosts lists host suffixes that receive the API key on media downloads.
	DownloadHosts []string `yaml:"download_hosts"`
	MaxRetries    int      `yaml:"download_retries"`
}

// ConfigFromEnv overlays GEMINI_* and STUDIO_RATE_* variables on base.
func ConfigFromEnv(base Config) Config {
	cfg := Config{
		BaseURL:       envutil.String("GEMINI_BASE_URL", base.BaseURL),
		RatePerSecond: envutil.Float("STUDIO_RATE_PER_SEC", orFloat(base.RatePerSecond, 2)),
		Burst:         envutil.Int("STUDIO_RATE_BURST", orInt(base.Burst, 4)),
		HTTPTimeout:   envutil.Duration("GEMINI_TIMEOUT", orDuration(base.HTTPTimeout, 5*time.Minute)),
		MaxRetries:    envutil.Int("GEMINI_DOWNLOAD_RETRIES", orInt(base.MaxRetries, 2)),
		DownloadHosts: base.DownloadHosts,
	}
	if hosts := envutil.String("GEMINI_DOWNLOAD_HOSTS", ""); hosts != "" {
		cfg.DownloadHosts = nil
		for _, h := range strings.Split(hosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				cfg.DownloadHosts = append(cfg.DownloadHosts, h)
			}
		}
	}
	return cfg
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer

	mu      sync.Mutex
	clients map[string]*genai.Client
}

var _ Provider = (*Client)(nil)

func NewClient(log *logger.Logger, cfg Config) *Client {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Minute
	}
	if len(cfg.DownloadHosts) == 0 {
		cfg.DownloadHosts = []string{"googleapis.com"}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{
		log:        log.With("service", "GeminiClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		tracer:     otel.Tracer("github.com/yungbote/creator-studio/internal/platform/gemini"),
		clients:    map[string]*genai.Client{},
	}
}

// WithHTTPClient swaps the transport; used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = hc
	c.clients = map[string]*genai.Client{}
	return c
}

// sdk returns a client bound to apiKey. Keys change when the user picks another one,
// so clients are cached per key.
func (c *Client) sdk(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: empty api key")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[apiKey]; ok {
		return cl, nil
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL + "/"}
	}
	cl, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: init client: %w", err)
	}
	c.clients[apiKey] = cl
	return cl, nil
}

func (c *Client) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, error) {
	ctx = ctxutil.Default(ctx)
	ctx, span := c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.End()
		return ctx, nil, err
	}
	return ctx, span, nil
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Client) GenerateImage(ctx context.Context, apiKey string, call ImageCall) (out *ImageResult, err error) {
	ctx, span, err := c.begin(ctx, "gemini.GenerateImage",
		attribute.String("model", call.Model),
		attribute.Int("images", len(call.Images)),
		attribute.String("aspect_ratio", call.AspectRatio),
		attribute.String("image_size", call.ImageSize),
	)
	if err != nil {
		return nil, err
	}
	defer func() { finish(span, err) }()

	cl, err := c.sdk(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, len(call.Images)+1)
	for _, img := range call.Images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
	}
	parts = append(parts, genai.NewPartFromText(call.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var gcc *genai.GenerateContentConfig
	if call.AspectRatio != "" || call.ImageSize != "" {
		gcc = &genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: call.AspectRatio,
				ImageSize:   call.ImageSize,
			},
		}
	}

	start := time.Now()
	res, err := cl.Models.GenerateContent(ctx, call.Model, contents, gcc)
	if err != nil {
		c.log.Warn("Image generation call failed", "model", call.Model, "error", err)
		return nil, classify("generate image", err)
	}
	out = &ImageResult{}
	if len(res.Candidates) > 0 && res.Candidates[0].Content != nil {
		var text strings.Builder
		for _, p := range res.Candidates[0].Content.Parts {
			if p == nil {
				continue
			}
			if p.InlineData != nil && len(p.InlineData.Data) > 0 && out.Image == nil {
				out.Image = &InlineImage{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}
			}
			if p.Text != "" {
				text.WriteString(p.Text)
			}
		}
		out.Text = strings.TrimSpace(text.String())
	}
	c.log.Debug("Image generation call done", "model", call.Model, "has_image", out.Image != nil, "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) GenerateText(ctx context.Context, apiKey string, model string, prompt string) (out string, err error) {
	ctx, span, err := c.begin(ctx, "gemini.GenerateText", attribute.String("model", model))
	if err != nil {
		return "", err
	}
	defer func() { finish(span, err) }()

	cl, err := c.sdk(ctx, apiKey)
	if err != nil {
		return "", err
	}
	res, err := cl.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", classify("generate text", err)
	}
	return strings.TrimSpace(res.Text()), nil
}

func (c *Client) StartVideo(ctx context.Context, apiKey string, call VideoCall) (out *Operation, err error) {
	ctx, span, err := c.begin(ctx, "gemini.StartVideo",
		attribute.String("model", call.Model),
		attribute.Int("references", len(call.References)),
		attribute.Bool("frame", call.Frame != nil),
		attribute.String("aspect_ratio", call.AspectRatio),
		attribute.String("resolution", call.Resolution),
	)
	if err != nil {
		return nil, err
	}
	defer func() { finish(span, err) }()

	cl, err := c.sdk(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	n := call.NumberOfVideos
	if n <= 0 {
		n = 1
	}
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: int32(n),
		AspectRatio:    call.AspectRatio,
		Resolution:     call.Resolution,
	}
	for _, ref := range call.References {
		cfg.ReferenceImages = append(cfg.ReferenceImages, &genai.VideoGenerationReferenceImage{
			Image:         &genai.Image{ImageBytes: ref.Data, MIMEType: ref.MIMEType},
			ReferenceType: genai.VideoGenerationReferenceTypeAsset,
		})
	}
	var frame *genai.Image
	if call.Frame != nil {
		frame = &genai.Image{ImageBytes: call.Frame.Data, MIMEType: call.Frame.MIMEType}
	}

	op, err := cl.Models.GenerateVideos(ctx, call.Model, call.Prompt, frame, cfg)
	if err != nil {
		c.log.Warn("Video submission failed", "model", call.Model, "error", err)
		return nil, classify("start video", err)
	}
	out = fromSDKOperation(op)
	span.SetAttributes(attribute.String("operation", out.Name))
	return out, nil
}

func (c *Client) PollVideo(ctx context.Context, apiKey string, op *Operation) (out *Operation, err error) {
	if op == nil || op.Name == "" {
		return nil, fmt.Errorf("gemini: poll without operation name")
	}
	ctx, span, err := c.begin(ctx, "gemini.PollVideo", attribute.String("operation", op.Name))
	if err != nil {
		return nil, err
	}
	defer func() { finish(span, err) }()

	cl, err := c.sdk(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	next, err := cl.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: op.Name}, nil)
	if err != nil {
		return nil, classify("poll video", err)
	}
	return fromSDKOperation(next), nil
}

func fromSDKOperation(op *genai.GenerateVideosOperation) *Operation {
	if op == nil {
		return &Operation{}
	}
	out := &Operation{Name: op.Name, Done: op.Done}
	if op.Error != nil {
		out.Done = true
		if msg, ok := op.Error["message"].(string); ok && msg != "" {
			out.ErrorMessage = msg
		} else {
			out.ErrorMessage = fmt.Sprint(op.Error)
		}
	}
	if op.Response != nil {
		for _, gv := range op.Response.GeneratedVideos {
			if gv == nil || gv.Video == nil {
				continue
			}
			out.VideoURI = gv.Video.URI
			out.VideoBytes = gv.Video.VideoBytes
			out.VideoMIMEType = gv.Video.MIMEType
			break
		}
	}
	return out
}
