package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/domain/user"
	"github.com/yungbote/creator-studio/internal/observability"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/gemini"
	"github.com/yungbote/creator-studio/internal/platform/gemini/geminitest"
	"github.com/yungbote/creator-studio/internal/platform/logger"
	"github.com/yungbote/creator-studio/internal/platform/media"
)

type harness struct {
	orch    *Orchestrator
	fake    *geminitest.Fake
	sess    *credential.Session
	host    *credential.StaticHost
	store   *media.TransientStore
	metrics *observability.Metrics
}

func newHarness(t *testing.T, envKey string, cfg Config) *harness {
	t.Helper()
	log := logger.Nop()
	fake := geminitest.New()
	host := &credential.StaticHost{}
	sess := credential.NewSession()
	sess.SignIn(user.Demo(), envKey)
	store := media.NewTransientStore(log, time.Hour)
	metrics := observability.NewMetrics()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	orch := NewOrchestrator(log, fake, credential.NewResolver(log, host), store, metrics, cfg)
	return &harness{orch: orch, fake: fake, sess: sess, host: host, store: store, metrics: metrics}
}

func refs(n int) []Image {
	out := make([]Image, n)
	for i := range out {
		out[i] = Image{Data: geminitest.PNG(8, 8), MIMEType: "image/png"}
	}
	return out
}

func TestPlanVideoByReferenceCount(t *testing.T) {
	p := PlanVideo(VideoRequest{Prompt: "p", AspectRatio: Aspect16x9, Resolution: Res1080p})
	if p.Model != gemini.ModelVideoFast || p.Resolution != Res1080p || p.AspectRatio != Aspect16x9 || p.Frame != nil || len(p.References) != 0 {
		t.Fatalf("0 images: got=%+v", p)
	}

	p = PlanVideo(VideoRequest{Prompt: "p", Images: refs(1), AspectRatio: Aspect9x16, Resolution: Res720p})
	if p.Model != gemini.ModelVideoFast || p.AspectRatio != Aspect9x16 || p.Resolution != Res720p || p.Frame == nil || len(p.References) != 0 {
		t.Fatalf("1 image: got=%+v", p)
	}

	for _, n := range []int{2, 3} {
		p = PlanVideo(VideoRequest{Prompt: "p", Images: refs(n), AspectRatio: Aspect9x16, Resolution: Res1080p})
		if p.Model != gemini.ModelVideo || p.Resolution != Res720p || p.AspectRatio != Aspect16x9 || p.Frame != nil || len(p.References) != n {
			t.Fatalf("%d images: want base/720p/16:9 got=%+v", n, p)
		}
	}
}

func TestRequestValidation(t *testing.T) {
	cases := []struct {
		name string
		req  Request
	}{
		{"empty prompt", ImageRequest{Size: Size1K, AspectRatio: Aspect1x1}},
		{"bad size", ImageRequest{Prompt: "p", Size: "8K", AspectRatio: Aspect1x1}},
		{"bad ratio", ImageRequest{Prompt: "p", Size: Size1K, AspectRatio: "21:9"}},
		{"edit without image", EditRequest{Prompt: "p", MIMEType: "image/png"}},
		{"edit non image", EditRequest{Prompt: "p", Image: []byte{1}, MIMEType: "text/plain"}},
		{"video 4 refs", VideoRequest{Prompt: "p", Images: refs(4), AspectRatio: Aspect16x9, Resolution: Res720p}},
		{"video square", VideoRequest{Prompt: "p", AspectRatio: Aspect1x1, Resolution: Res720p}},
		{"video 4k", VideoRequest{Prompt: "p", AspectRatio: Aspect16x9, Resolution: "4k"}},
	}
	for _, tc := range cases {
		if err := tc.req.Validate(); !errors.Is(err, apierr.ErrInvalidRequest) {
			t.Fatalf("%s: want InvalidRequest got=%v", tc.name, err)
		}
	}
}

func TestGenerateImageReturnsDataURI(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	res, err := h.orch.Submit(context.Background(), h.sess, ImageRequest{Prompt: "a fox", Size: Size1K, AspectRatio: Aspect4x3, Tags: []string{"Fox"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.HasPrefix(res.URL, "data:image/png;base64,") {
		t.Fatalf("url: want png data URI got=%.40s", res.URL)
	}
	if res.Kind != creations.MediaImage || res.Model != gemini.ModelImagePro || len(res.Tags) != 1 {
		t.Fatalf("result: got=%+v", res)
	}
	calls := h.fake.ImageCalls()
	if len(calls) != 1 || calls[0].ImageSize != "1K" || calls[0].AspectRatio != Aspect4x3 {
		t.Fatalf("image call: got=%+v", calls)
	}
	if got := h.metrics.Generations("IMAGE", gemini.ModelImagePro, "ok"); got != 1 {
		t.Fatalf("metrics: want=1 got=%v", got)
	}
}

func TestGenerateImageDefaultsMissingMIME(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	h.fake.ImageFunc = func(gemini.ImageCall) (*gemini.ImageResult, error) {
		return &gemini.ImageResult{Image: &gemini.InlineImage{Data: []byte{1, 2, 3}}}, nil
	}
	res, err := h.orch.GenerateImage(context.Background(), h.sess, ImageRequest{Prompt: "p", Size: Size1K, AspectRatio: Aspect1x1})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if res.MIMEType != "image/png" || !strings.HasPrefix(res.URL, "data:image/png;base64,") {
		t.Fatalf("mime: want image/png got=%s", res.MIMEType)
	}
}

func TestPremiumImageDeclinedMakesNoRemoteCall(t *testing.T) {
	h := newHarness(t, "", Config{})
	_, err := h.orch.Submit(context.Background(), h.sess, ImageRequest{Prompt: "p", Size: Size2K, AspectRatio: Aspect1x1})
	if !errors.Is(err, apierr.ErrPremiumCapabilityDenied) {
		t.Fatalf("Submit: want PremiumCapabilityDenied got=%v", err)
	}
	if h.host.Calls != 1 {
		t.Fatalf("chooser calls: want=1 got=%d", h.host.Calls)
	}
	if n := h.fake.RemoteCalls(); n != 0 {
		t.Fatalf("remote calls: want=0 got=%d", n)
	}
}

func TestImageWithoutCredentialIsMissing(t *testing.T) {
	h := newHarness(t, "", Config{})
	_, err := h.orch.GenerateImage(context.Background(), h.sess, ImageRequest{Prompt: "p", Size: Size1K, AspectRatio: Aspect1x1})
	if !errors.Is(err, apierr.ErrCredentialMissing) {
		t.Fatalf("want CredentialMissing got=%v", err)
	}
	if n := h.fake.RemoteCalls(); n != 0 {
		t.Fatalf("remote calls: want=0 got=%d", n)
	}
}

func TestEditTextOnlyIsEmptyResult(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	h.fake.ImageFunc = func(gemini.ImageCall) (*gemini.ImageResult, error) {
		return &gemini.ImageResult{Text: "I can't help with that."}, nil
	}
	_, err := h.orch.EditImage(context.Background(), h.sess, EditRequest{Prompt: "remove the hat", Image: geminitest.PNG(4, 4), MIMEType: "image/png"})
	if !errors.Is(err, apierr.ErrEmptyResult) {
		t.Fatalf("want EmptyResult got=%v", err)
	}
	if msg := apierr.UserMessage(err); !strings.Contains(msg, "content policy") {
		t.Fatalf("user message: want content policy hint got=%q", msg)
	}
}

func TestEditEchoesReturnedMIME(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	h.fake.ImageFunc = func(call gemini.ImageCall) (*gemini.ImageResult, error) {
		if len(call.Images) != 1 || call.Images[0].MIMEType != "image/jpeg" {
			t.Errorf("edit call images: got=%+v", call.Images)
		}
		return &gemini.ImageResult{Image: &gemini.InlineImage{Data: []byte{9}, MIMEType: "image/webp"}}, nil
	}
	res, err := h.orch.EditImage(context.Background(), h.sess, EditRequest{Prompt: "sepia", Image: []byte{1}, MIMEType: "image/jpeg"})
	if err != nil {
		t.Fatalf("EditImage: %v", err)
	}
	if res.MIMEType != "image/webp" || res.Model != gemini.ModelImageEdit {
		t.Fatalf("result: got=%+v", res)
	}
}

func TestVideoCompletesIntoMediaStore(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	h.fake.PollSeq = []*gemini.Operation{
		{Name: "operations/video-1"},
		{Name: "operations/video-1"},
		{Name: "operations/video-1", Done: true, VideoURI: "https://generativelanguage.googleapis.com/files/abc"},
	}
	job, err := h.orch.StartVideo(context.Background(), h.sess, VideoRequest{Prompt: "waves", Images: refs(2), AspectRatio: Aspect9x16, Resolution: Res1080p})
	if err != nil {
		t.Fatalf("StartVideo: %v", err)
	}
	var stages []Stage
	for u := range job.Progress() {
		stages = append(stages, u.Stage)
	}
	res, err := job.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if job.Stage() != StageDone {
		t.Fatalf("stage: want=DONE got=%s", job.Stage())
	}
	if stages[0] != StageBuilding || stages[1] != StageSubmitted || stages[len(stages)-1] != StageDone {
		t.Fatalf("stages: got=%v", stages)
	}
	if !strings.HasPrefix(res.URL, "blob:") || res.Resolution != Res720p || res.AspectRatio != Aspect16x9 || res.Model != gemini.ModelVideo {
		t.Fatalf("result: got=%+v", res)
	}
	data, mime, err := h.store.Open(context.Background(), user.DemoUserID, res.URL)
	if err != nil || mime != "video/mp4" || len(data) == 0 {
		t.Fatalf("stored video: mime=%q bytes=%d err=%v", mime, len(data), err)
	}
	calls := h.fake.VideoCalls()
	if len(calls) != 1 || len(calls[0].References) != 2 || calls[0].Frame != nil {
		t.Fatalf("video call: got=%+v", calls)
	}
	if h.fake.Polls() != 3 {
		t.Fatalf("polls: want=3 got=%d", h.fake.Polls())
	}
}

func TestVideoRemoteFailureKeepsMessage(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	h.fake.PollSeq = []*gemini.Operation{{Name: "operations/video-1", Done: true, ErrorMessage: "The prompt was blocked by safety filters."}}
	_, err := h.orch.Submit(context.Background(), h.sess, VideoRequest{Prompt: "p", AspectRatio: Aspect16x9, Resolution: Res720p})
	if !errors.Is(err, apierr.ErrRemoteJobFailed) {
		t.Fatalf("want RemoteJobFailed got=%v", err)
	}
	if !strings.Contains(err.Error(), "blocked by safety filters") {
		t.Fatalf("message: got=%q", err.Error())
	}
	if len(h.fake.Downloads()) != 0 {
		t.Fatalf("downloads: want none")
	}
}

func TestVideoWithoutOutputIsEmptyResult(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	h.fake.PollSeq = []*gemini.Operation{{Name: "operations/video-1", Done: true}}
	_, err := h.orch.Submit(context.Background(), h.sess, VideoRequest{Prompt: "p", AspectRatio: Aspect16x9, Resolution: Res720p})
	if !errors.Is(err, apierr.ErrEmptyResult) {
		t.Fatalf("want EmptyResult got=%v", err)
	}
}

func TestVideoPollTimeout(t *testing.T) {
	h := newHarness(t, "env-key", Config{PollTimeout: 20 * time.Millisecond})
	h.fake.PollSeq = []*gemini.Operation{{Name: "operations/video-1"}}
	_, err := h.orch.Submit(context.Background(), h.sess, VideoRequest{Prompt: "p", AspectRatio: Aspect16x9, Resolution: Res720p})
	if !errors.Is(err, apierr.ErrTimeout) {
		t.Fatalf("want Timeout got=%v", err)
	}
}

func TestVideoCancelStopsPolling(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	h.fake.PollSeq = []*gemini.Operation{{Name: "operations/video-1"}}
	job, err := h.orch.StartVideo(context.Background(), h.sess, VideoRequest{Prompt: "p", AspectRatio: Aspect16x9, Resolution: Res720p})
	if err != nil {
		t.Fatalf("StartVideo: %v", err)
	}
	for u := range job.Progress() {
		if u.Stage == StagePolling {
			job.Cancel()
			break
		}
	}
	_, err = job.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got=%v", err)
	}
	polls := h.fake.Polls()
	time.Sleep(20 * time.Millisecond)
	if h.fake.Polls() != polls {
		t.Fatalf("polling continued after cancel: before=%d after=%d", polls, h.fake.Polls())
	}
	if job.Stage() != StageFailed {
		t.Fatalf("stage: want=FAILED got=%s", job.Stage())
	}
}

func TestVideoPollToleratesTransientErrors(t *testing.T) {
	h := newHarness(t, "env-key", Config{})
	transient := apierr.New(apierr.KindTransport, "poll video", errors.New("connection reset"))
	h.fake.PollErrs = []error{transient, transient}
	h.fake.PollSeq = []*gemini.Operation{nil, nil, {Name: "operations/video-1", Done: true, VideoBytes: []byte("inline"), VideoMIMEType: "video/webm"}}
	res, err := h.orch.Submit(context.Background(), h.sess, VideoRequest{Prompt: "p", AspectRatio: Aspect16x9, Resolution: Res720p})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.MIMEType != "video/webm" || len(h.fake.Downloads()) != 0 {
		t.Fatalf("inline bytes: want webm without download got mime=%s downloads=%d", res.MIMEType, len(h.fake.Downloads()))
	}
}

func TestVideoWithoutPremiumIsRejectedBeforeSubmission(t *testing.T) {
	h := newHarness(t, "", Config{})
	if _, err := h.orch.StartVideo(context.Background(), h.sess, VideoRequest{Prompt: "p", AspectRatio: Aspect16x9, Resolution: Res720p}); !errors.Is(err, apierr.ErrPremiumCapabilityDenied) {
		t.Fatalf("want PremiumCapabilityDenied got=%v", err)
	}
	if n := h.fake.RemoteCalls(); n != 0 {
		t.Fatalf("remote calls: want=0 got=%d", n)
	}
}
