package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/observability"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/ctxutil"
	"github.com/yungbote/creator-studio/internal/platform/gemini"
	"github.com/yungbote/creator-studio/internal/platform/imagetools"
	"github.com/yungbote/creator-studio/internal/platform/logger"
	"github.com/yungbote/creator-studio/internal/platform/media"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 15 * time.Minute
	defaultVideoMIME    = "video/mp4"
	// consecutive failed status checks tolerated before the job fails
	maxPollErrors = 3
)

type Config struct {
	PollInterval time.Duration
	// PollTimeout bounds how long a video job is observed; 0 means no bound.
	PollTimeout time.Duration
}

type Orchestrator struct {
	log      *logger.Logger
	provider gemini.Provider
	resolver *credential.Resolver
	media    media.Store
	metrics  *observability.Metrics
	tracer   trace.Tracer
	cfg      Config
}

func NewOrchestrator(log *logger.Logger, provider gemini.Provider, resolver *credential.Resolver, store media.Store, metrics *observability.Metrics, cfg Config) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout < 0 {
		cfg.PollTimeout = 0
	}
	return &Orchestrator{
		log:      log.With("service", "GenerationOrchestrator"),
		provider: provider,
		resolver: resolver,
		media:    store,
		metrics:  metrics,
		tracer:   otel.Tracer("github.com/yungbote/creator-studio/internal/generation"),
		cfg:      cfg,
	}
}

// Submit runs any request to completion. Video requests block until the remote job
// finishes; use StartVideo to observe progress.
func (o *Orchestrator) Submit(ctx context.Context, sess *credential.Session, req Request) (*Result, error) {
	switch r := req.(type) {
	case ImageRequest:
		return o.GenerateImage(ctx, sess, r)
	case *ImageRequest:
		return o.GenerateImage(ctx, sess, *r)
	case EditRequest:
		return o.EditImage(ctx, sess, r)
	case *EditRequest:
		return o.EditImage(ctx, sess, *r)
	case VideoRequest:
		return o.generateVideo(ctx, sess, r)
	case *VideoRequest:
		return o.generateVideo(ctx, sess, *r)
	default:
		return nil, apierr.Newf(apierr.KindInvalidRequest, "unsupported request type %T", req)
	}
}

func (o *Orchestrator) generateVideo(ctx context.Context, sess *credential.Session, req VideoRequest) (*Result, error) {
	job, err := o.StartVideo(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	return job.Wait(ctx)
}

func (o *Orchestrator) GenerateImage(ctx context.Context, sess *credential.Session, req ImageRequest) (res *Result, err error) {
	ctx, span := o.tracer.Start(ctxutil.Default(ctx), "generation.Image",
		trace.WithAttributes(attribute.String("size", string(req.Size)), attribute.String("aspect_ratio", req.AspectRatio)))
	start := time.Now()
	defer func() { o.observe(span, creations.MediaImage, gemini.ModelImagePro, start, err) }()

	if err = req.Validate(); err != nil {
		return nil, err
	}
	var cred credential.Credential
	if req.Size.Premium() {
		cred, err = o.resolver.RequirePremium(ctx, sess)
	} else {
		cred, err = o.ensure(ctx, sess)
	}
	if err != nil {
		return nil, err
	}

	out, err := o.provider.GenerateImage(ctx, cred.Key, gemini.ImageCall{
		Model:       gemini.ModelImagePro,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		ImageSize:   string(req.Size),
	})
	if err != nil {
		return nil, err
	}
	img, err := imageOf(out)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:        creations.MediaImage,
		URL:         img.DataURI(),
		MIMEType:    img.MIMEType,
		Prompt:      req.Prompt,
		Model:       gemini.ModelImagePro,
		AspectRatio: req.AspectRatio,
		Size:        req.Size,
		Tags:        append([]string(nil), req.Tags...),
	}, nil
}

func (o *Orchestrator) EditImage(ctx context.Context, sess *credential.Session, req EditRequest) (res *Result, err error) {
	ctx, span := o.tracer.Start(ctxutil.Default(ctx), "generation.Edit",
		trace.WithAttributes(attribute.String("mime", req.MIMEType), attribute.Int("bytes", len(req.Image))))
	start := time.Now()
	defer func() { o.observe(span, creations.MediaImage, gemini.ModelImageEdit, start, err) }()

	if err = req.Validate(); err != nil {
		return nil, err
	}
	cred, err := o.ensure(ctx, sess)
	if err != nil {
		return nil, err
	}
	out, err := o.provider.GenerateImage(ctx, cred.Key, gemini.ImageCall{
		Model:  gemini.ModelImageEdit,
		Prompt: req.Prompt,
		Images: []gemini.InlineImage{{Data: req.Image, MIMEType: req.MIMEType}},
	})
	if err != nil {
		return nil, err
	}
	img, err := imageOf(out)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:     creations.MediaImage,
		URL:      img.DataURI(),
		MIMEType: img.MIMEType,
		Prompt:   req.Prompt,
		Model:    gemini.ModelImageEdit,
	}, nil
}

// ComposeFrame merges several reference images into one 16:9 frame at 2K. The
// caller has already passed the premium gate.
func (o *Orchestrator) ComposeFrame(ctx context.Context, sess *credential.Session, prompt string, images []Image) (res *Result, err error) {
	ctx, span := o.tracer.Start(ctxutil.Default(ctx), "generation.ComposeFrame", trace.WithAttributes(attribute.Int("images", len(images))))
	start := time.Now()
	defer func() { o.observe(span, creations.MediaImage, gemini.ModelImagePro, start, err) }()

	if len(images) == 0 {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "nothing to compose")
	}
	cred, err := o.resolver.RequirePremium(ctx, sess)
	if err != nil {
		return nil, err
	}
	call := gemini.ImageCall{
		Model:       gemini.ModelImagePro,
		Prompt:      prompt,
		AspectRatio: Aspect16x9,
		ImageSize:   string(Size2K),
	}
	for _, img := range images {
		call.Images = append(call.Images, gemini.InlineImage{Data: img.Data, MIMEType: img.MIMEType})
	}
	out, err := o.provider.GenerateImage(ctx, cred.Key, call)
	if err != nil {
		return nil, err
	}
	img, err := imageOf(out)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:        creations.MediaImage,
		URL:         img.DataURI(),
		MIMEType:    img.MIMEType,
		Prompt:      prompt,
		Model:       gemini.ModelImagePro,
		AspectRatio: Aspect16x9,
		Size:        Size2K,
	}, nil
}

// ensure resolves a credential for non-premium calls, offering the interactive
// chooser once when nothing is configured.
func (o *Orchestrator) ensure(ctx context.Context, sess *credential.Session) (credential.Credential, error) {
	cred, err := o.resolver.Resolve(ctx, sess)
	if err == nil {
		return cred, nil
	}
	ok, selErr := o.resolver.RequestInteractiveSelection(ctx, sess)
	if selErr != nil || !ok {
		return credential.Credential{}, err
	}
	return sess.Credential(), nil
}

func imageOf(out *gemini.ImageResult) (Image, error) {
	if out == nil || out.Image == nil || len(out.Image.Data) == 0 {
		msg := "the model returned no image"
		if out != nil && out.Text != "" {
			msg += ": " + out.Text
		}
		return Image{}, apierr.Newf(apierr.KindEmptyResult, "%s", msg)
	}
	mime := strings.TrimSpace(out.Image.MIMEType)
	if mime == "" {
		mime = imagetools.DefaultImageMIME
	}
	return Image{Data: out.Image.Data, MIMEType: mime}, nil
}

func (o *Orchestrator) observe(span trace.Span, kind creations.MediaKind, model string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = statusOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.Warn("Generation failed", "kind", kind, "model", model, "status", status, "error", err)
	}
	span.End()
	o.metrics.ObserveGeneration(string(kind), model, status, time.Since(start))
}

func statusOf(err error) string {
	if k := apierr.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline"
	}
	return "error"
}
