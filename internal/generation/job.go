package generation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/ctxutil"
	"github.com/yungbote/creator-studio/internal/platform/gemini"
)

type Stage string

const (
	StageBuilding  Stage = "BUILDING"
	StageSubmitted Stage = "SUBMITTED"
	StagePolling   Stage = "POLLING"
	StageDone      Stage = "DONE"
	StageFailed    Stage = "FAILED"
)

func (s Stage) Terminal() bool { return s == StageDone || s == StageFailed }

// Update is one state change of a VideoJob.
type Update struct {
	Stage   Stage
	Poll    int
	Message string
	At      time.Time
}

// VideoJob observes one remote video generation. Cancel stops local observation
// only; the remote job keeps running upstream.
type VideoJob struct {
	ID   string
	Plan VideoPlan

	cancel  context.CancelFunc
	updates chan Update
	done    chan struct{}

	mu     sync.Mutex
	stage  Stage
	result *Result
	err    error
}

func newVideoJob(plan VideoPlan, cancel context.CancelFunc) *VideoJob {
	return &VideoJob{
		ID:      uuid.NewString(),
		Plan:    plan,
		cancel:  cancel,
		updates: make(chan Update, 64),
		done:    make(chan struct{}),
	}
}

// Progress delivers state changes and is closed when the job ends. Updates are
// dropped rather than blocking the job when nobody reads.
func (j *VideoJob) Progress() <-chan Update { return j.updates }

func (j *VideoJob) Stage() Stage {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stage
}

func (j *VideoJob) Cancel() { j.cancel() }

// Done is closed once the job reached DONE or FAILED.
func (j *VideoJob) Done() <-chan struct{} { return j.done }

// Wait blocks until the job ends or ctx is done. Giving up on ctx leaves the job
// running.
func (j *VideoJob) Wait(ctx context.Context) (*Result, error) {
	ctx = ctxutil.Default(ctx)
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *VideoJob) emit(stage Stage, poll int, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stage.Terminal() {
		return
	}
	j.stage = stage
	select {
	case j.updates <- Update{Stage: stage, Poll: poll, Message: msg, At: time.Now()}:
	default:
	}
}

func (j *VideoJob) finish(res *Result, err error) {
	stage, msg := StageDone, ""
	if err != nil {
		stage, msg = StageFailed, err.Error()
	}
	j.emit(stage, 0, msg)
	j.mu.Lock()
	j.result, j.err = res, err
	close(j.updates)
	j.mu.Unlock()
	close(j.done)
}

// StartVideo checks the premium gate and validates synchronously, then runs the job
// on its own goroutine. ctx bounds the whole job.
func (o *Orchestrator) StartVideo(ctx context.Context, sess *credential.Session, req VideoRequest) (*VideoJob, error) {
	ctx = ctxutil.Default(ctx)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cred, err := o.resolver.RequirePremium(ctx, sess)
	if err != nil {
		o.metrics.ObserveGeneration(string(creations.MediaVideo), PlanVideo(req).Model, statusOf(err), 0)
		return nil, err
	}
	plan := PlanVideo(req)
	jobCtx, cancel := context.WithCancel(ctx)
	job := newVideoJob(plan, cancel)
	owner := sess.OwnerID()
	jobCtx = ctxutil.WithTraceData(jobCtx, &ctxutil.TraceData{JobID: job.ID, OwnerID: owner})

	job.emit(StageBuilding, 0, plan.Model)
	o.log.Info("Video job started", "job_id", job.ID, "model", plan.Model, "references", len(plan.References), "frame", plan.Frame != nil, "owner_id", owner)
	go o.runVideo(jobCtx, job, cred.Key, owner, req.Prompt)
	return job, nil
}

func (o *Orchestrator) runVideo(ctx context.Context, job *VideoJob, apiKey, owner, prompt string) {
	defer job.cancel()
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "generation.Video", trace.WithAttributes(
		attribute.String("job_id", job.ID),
		attribute.String("model", job.Plan.Model),
		attribute.String("resolution", job.Plan.Resolution),
		attribute.String("aspect_ratio", job.Plan.AspectRatio),
	))
	res, err := o.videoSteps(ctx, job, apiKey, owner, prompt)
	o.observe(span, creations.MediaVideo, job.Plan.Model, start, err)
	if err == nil {
		o.log.Info("Video job done", "job_id", job.ID, "handle", res.URL, "duration_ms", time.Since(start).Milliseconds())
	}
	job.finish(res, err)
}

func (o *Orchestrator) videoSteps(ctx context.Context, job *VideoJob, apiKey, owner, prompt string) (*Result, error) {
	op, err := o.provider.StartVideo(ctx, apiKey, job.Plan.call(prompt))
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, apierr.Newf(apierr.KindEmptyResult, "the video service returned no operation")
	}
	job.emit(StageSubmitted, 0, op.Name)

	op, err = o.poll(ctx, job, apiKey, op)
	if err != nil {
		return nil, err
	}
	if op.ErrorMessage != "" {
		return nil, apierr.Newf(apierr.KindRemoteJobFailed, "%s", op.ErrorMessage)
	}

	data, mime := op.VideoBytes, op.VideoMIMEType
	if len(data) == 0 {
		if op.VideoURI == "" {
			return nil, apierr.Newf(apierr.KindEmptyResult, "the video job finished without output")
		}
		data, mime, err = o.provider.Download(ctx, apiKey, op.VideoURI)
		if err != nil {
			o.metrics.IncDownload(statusOf(err))
			return nil, err
		}
		o.metrics.IncDownload("ok")
	}
	if mime == "" {
		mime = defaultVideoMIME
	}
	handle, err := o.media.Put(ctx, owner, data, mime)
	if err != nil {
		return nil, apierr.New(apierr.KindStorageUnavailable, "could not store the generated video", err)
	}
	return &Result{
		Kind:        creations.MediaVideo,
		URL:         handle,
		MIMEType:    mime,
		Prompt:      prompt,
		Model:       job.Plan.Model,
		AspectRatio: job.Plan.AspectRatio,
		Resolution:  job.Plan.Resolution,
	}, nil
}

// poll checks the operation every PollInterval until it is done, ctx ends or
// PollTimeout passes.
func (o *Orchestrator) poll(ctx context.Context, job *VideoJob, apiKey string, op *gemini.Operation) (*gemini.Operation, error) {
	if op.Done {
		return op, nil
	}
	var deadline <-chan time.Time
	if o.cfg.PollTimeout > 0 {
		t := time.NewTimer(o.cfg.PollTimeout)
		defer t.Stop()
		deadline = t.C
	}
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	failures := 0
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			o.log.Info("Video job observation stopped", "job_id", job.ID, "operation", op.Name, "error", ctx.Err())
			return nil, ctx.Err()
		case <-deadline:
			return nil, apierr.Newf(apierr.KindTimeout, "video job %s did not finish within %s", op.Name, o.cfg.PollTimeout)
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		o.metrics.IncVideoPoll()
		next, err := o.provider.PollVideo(ctx, apiKey, op)
		if err != nil {
			failures++
			if apierr.KindOf(err) != apierr.KindTransport || failures >= maxPollErrors {
				return nil, err
			}
			o.log.Warn("Video status check failed, retrying", "job_id", job.ID, "attempt", failures, "error", err)
			continue
		}
		failures = 0
		if next == nil {
			next = op
		}
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
		if op.Done {
			return op, nil
		}
		job.emit(StagePolling, n, op.Name)
	}
}
