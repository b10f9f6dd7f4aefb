package workflow

import (
	"context"
	"sync"

	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/generation"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
)

// MergeDraft holds a composed master frame awaiting approval.
type MergeDraft struct {
	c    *Controller
	sess *credential.Session
	req  generation.VideoRequest

	mu        sync.Mutex
	frame     *generation.Result
	finalized bool
	approving bool
}

// BeginMerge composes the request's references into one 16:9 frame. Nothing is
// submitted for video until Approve.
func (c *Controller) BeginMerge(ctx context.Context, sess *credential.Session, req generation.VideoRequest) (*MergeDraft, error) {
	if len(req.Images) < 2 {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "merging needs at least two reference images, got %d", len(req.Images))
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := c.resolver.RequirePremium(ctx, sess); err != nil {
		return nil, err
	}
	d := &MergeDraft{c: c, sess: sess, req: req}
	if err := d.compose(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *MergeDraft) compose(ctx context.Context) error {
	res, err := d.c.orch.ComposeFrame(ctx, d.sess, d.req.Prompt, d.req.Images)
	if err != nil {
		d.c.log.Warn("Reference merge failed", "images", len(d.req.Images), "error", err)
		return err
	}
	d.mu.Lock()
	d.frame = res
	d.mu.Unlock()
	return nil
}

// Frame is the current composed image for review.
func (d *MergeDraft) Frame() *generation.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Regenerate replaces the frame with a fresh composition. A failed attempt keeps
// the previous frame.
func (d *MergeDraft) Regenerate(ctx context.Context) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	return d.compose(ctx)
}

// Approve animates the frame as a single-reference video at 1080p and 16:9. The
// draft stays open when the submission fails, so Approve can be retried.
func (d *MergeDraft) Approve(ctx context.Context) (*generation.VideoJob, error) {
	d.mu.Lock()
	if d.finalized || d.approving {
		d.mu.Unlock()
		return nil, apierr.Newf(apierr.KindInvalidRequest, "merge draft already finished")
	}
	frame := d.frame
	d.approving = true
	d.mu.Unlock()

	job, err := d.startVideo(ctx, frame)

	d.mu.Lock()
	d.approving = false
	if err == nil {
		d.finalized = true
	}
	d.mu.Unlock()
	if err != nil {
		d.c.log.Warn("Merged frame could not be animated", "error", err)
		return nil, err
	}
	return job, nil
}

func (d *MergeDraft) startVideo(ctx context.Context, frame *generation.Result) (*generation.VideoJob, error) {
	img, err := generation.ImageFromDataURI(frame.URL)
	if err != nil {
		return nil, err
	}
	return d.c.orch.StartVideo(ctx, d.sess, generation.VideoRequest{
		Prompt:      d.req.Prompt,
		Images:      []generation.Image{img},
		AspectRatio: generation.Aspect16x9,
		Resolution:  generation.Res1080p,
	})
}

// Discard abandons the draft without submitting anything.
func (d *MergeDraft) Discard() {
	d.mu.Lock()
	d.finalized = true
	d.frame = nil
	d.mu.Unlock()
}

func (d *MergeDraft) checkOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finalized {
		return apierr.Newf(apierr.KindInvalidRequest, "merge draft already finished")
	}
	return nil
}
