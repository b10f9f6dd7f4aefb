package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/domain/user"
	"github.com/yungbote/creator-studio/internal/generation"
	"github.com/yungbote/creator-studio/internal/observability"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/gemini"
	"github.com/yungbote/creator-studio/internal/platform/gemini/geminitest"
	"github.com/yungbote/creator-studio/internal/platform/imagetools"
	"github.com/yungbote/creator-studio/internal/platform/logger"
	"github.com/yungbote/creator-studio/internal/platform/media"
)

func newController(t *testing.T, envKey string) (*Controller, *geminitest.Fake, *credential.Session) {
	t.Helper()
	log := logger.Nop()
	fake := geminitest.New()
	resolver := credential.NewResolver(log, &credential.StaticHost{})
	orch := generation.NewOrchestrator(log, fake, resolver, media.NewTransientStore(log, time.Hour), observability.NewMetrics(), generation.Config{PollInterval: time.Millisecond})
	sess := credential.NewSession()
	sess.SignIn(user.Demo(), envKey)
	return NewController(log, orch, fake, resolver), fake, sess
}

func images(n int) []generation.Image {
	out := make([]generation.Image, n)
	for i := range out {
		out[i] = generation.Image{Data: geminitest.PNG(8+i, 8), MIMEType: "image/png"}
	}
	return out
}

func TestEnhancePrompt(t *testing.T) {
	c, fake, sess := newController(t, "env-key")
	fake.Text = "  A weathered lighthouse at dusk, long exposure, teal and amber.  "
	got, err := c.EnhancePrompt(context.Background(), sess, "lighthouse")
	if err != nil {
		t.Fatalf("EnhancePrompt: %v", err)
	}
	if got != "A weathered lighthouse at dusk, long exposure, teal and amber." {
		t.Fatalf("enhanced: got=%q", got)
	}
	if calls := fake.TextCalls(); len(calls) != 1 {
		t.Fatalf("text calls: want=1 got=%d", len(calls))
	}
}

func TestEnhancePromptFailureKeepsDraft(t *testing.T) {
	c, fake, sess := newController(t, "env-key")
	fake.TextErr = apierr.New(apierr.KindTransport, "generate text", errors.New("dial tcp: timeout"))
	got, err := c.EnhancePrompt(context.Background(), sess, "lighthouse")
	if err == nil || got != "lighthouse" {
		t.Fatalf("failure: want draft+error got=%q err=%v", got, err)
	}

	got, err = c.EnhancePrompt(context.Background(), sess, "   ")
	if err != nil || got != "   " || len(fake.TextCalls()) != 1 {
		t.Fatalf("empty draft: want unchanged without call got=%q err=%v calls=%d", got, err, len(fake.TextCalls()))
	}
}

func TestMergeThenAnimate(t *testing.T) {
	c, fake, sess := newController(t, "env-key")
	req := generation.VideoRequest{Prompt: "the three heroes meet", Images: images(3), AspectRatio: generation.Aspect9x16, Resolution: generation.Res720p}

	d, err := c.BeginMerge(context.Background(), sess, req)
	if err != nil {
		t.Fatalf("BeginMerge: %v", err)
	}
	calls := fake.ImageCalls()
	if len(calls) != 1 {
		t.Fatalf("compose calls: want=1 got=%d", len(calls))
	}
	if len(calls[0].Images) != 3 || calls[0].Prompt != req.Prompt || calls[0].AspectRatio != "16:9" || calls[0].ImageSize != "2K" {
		t.Fatalf("compose call: got images=%d prompt=%q ratio=%s size=%s", len(calls[0].Images), calls[0].Prompt, calls[0].AspectRatio, calls[0].ImageSize)
	}
	if len(fake.VideoCalls()) != 0 {
		t.Fatalf("video submitted before approval")
	}
	if !imagetools.IsDataURI(d.Frame().URL) {
		t.Fatalf("frame: want data URI got=%.30s", d.Frame().URL)
	}

	if err := d.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if n := len(fake.ImageCalls()); n != 2 {
		t.Fatalf("compose calls after regenerate: want=2 got=%d", n)
	}

	job, err := d.Approve(context.Background())
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := job.Wait(context.Background()); err != nil {
		t.Fatalf("video job: %v", err)
	}
	vcalls := fake.VideoCalls()
	if len(vcalls) != 1 {
		t.Fatalf("video calls: want=1 got=%d", len(vcalls))
	}
	v := vcalls[0]
	if v.Frame == nil || len(v.References) != 0 || v.Resolution != "1080p" || v.AspectRatio != "16:9" || v.Model != gemini.ModelVideoFast {
		t.Fatalf("video call: got=%+v", v)
	}
	if _, err := d.Approve(context.Background()); !errors.Is(err, apierr.ErrInvalidRequest) {
		t.Fatalf("second approve: want InvalidRequest got=%v", err)
	}
}

func TestMergeFailureSubmitsNoVideo(t *testing.T) {
	c, fake, sess := newController(t, "env-key")
	fake.ImageFunc = func(gemini.ImageCall) (*gemini.ImageResult, error) { return &gemini.ImageResult{Text: "no"}, nil }
	_, err := c.BeginMerge(context.Background(), sess, generation.VideoRequest{Prompt: "p", Images: images(2), AspectRatio: generation.Aspect16x9, Resolution: generation.Res720p})
	if !errors.Is(err, apierr.ErrEmptyResult) {
		t.Fatalf("want EmptyResult got=%v", err)
	}
	if len(fake.VideoCalls()) != 0 {
		t.Fatalf("video calls: want=0 got=%d", len(fake.VideoCalls()))
	}
}

func TestMergeDeclinedPremium(t *testing.T) {
	c, fake, sess := newController(t, "")
	_, err := c.BeginMerge(context.Background(), sess, generation.VideoRequest{Prompt: "p", Images: images(2), AspectRatio: generation.Aspect16x9, Resolution: generation.Res720p})
	if !errors.Is(err, apierr.ErrPremiumCapabilityDenied) {
		t.Fatalf("want PremiumCapabilityDenied got=%v", err)
	}
	if fake.RemoteCalls() != 0 {
		t.Fatalf("remote calls: want=0 got=%d", fake.RemoteCalls())
	}
}

func TestFailedApproveKeepsDraftOpen(t *testing.T) {
	c, fake, sess := newController(t, "env-key")
	d, err := c.BeginMerge(context.Background(), sess, generation.VideoRequest{Prompt: "p", Images: images(2), AspectRatio: generation.Aspect16x9, Resolution: generation.Res720p})
	if err != nil {
		t.Fatalf("BeginMerge: %v", err)
	}
	frame := d.Frame()

	sess.SignOut()
	if _, err := d.Approve(context.Background()); err == nil {
		t.Fatalf("approve without credential: want error got=nil")
	}
	if d.Frame() != frame {
		t.Fatalf("frame: want unchanged after failed approve")
	}
	if n := len(fake.VideoCalls()); n != 0 {
		t.Fatalf("video calls after failed approve: want=0 got=%d", n)
	}

	sess.SignIn(user.Demo(), "env-key")
	job, err := d.Approve(context.Background())
	if err != nil {
		t.Fatalf("retry approve: want=nil got=%v", err)
	}
	if _, err := job.Wait(context.Background()); err != nil {
		t.Fatalf("video job: %v", err)
	}
	if n := len(fake.VideoCalls()); n != 1 {
		t.Fatalf("video calls: want=1 got=%d", n)
	}
	if _, err := d.Approve(context.Background()); !errors.Is(err, apierr.ErrInvalidRequest) {
		t.Fatalf("approve after success: want InvalidRequest got=%v", err)
	}
}

func TestDiscardedDraftCannotBeApproved(t *testing.T) {
	c, fake, sess := newController(t, "env-key")
	d, err := c.BeginMerge(context.Background(), sess, generation.VideoRequest{Prompt: "p", Images: images(2), AspectRatio: generation.Aspect16x9, Resolution: generation.Res720p})
	if err != nil {
		t.Fatalf("BeginMerge: %v", err)
	}
	d.Discard()
	if _, err := d.Approve(context.Background()); !errors.Is(err, apierr.ErrInvalidRequest) {
		t.Fatalf("approve after discard: want InvalidRequest got=%v", err)
	}
	if err := d.Regenerate(context.Background()); !errors.Is(err, apierr.ErrInvalidRequest) {
		t.Fatalf("regenerate after discard: want InvalidRequest got=%v", err)
	}
	if len(fake.VideoCalls()) != 0 {
		t.Fatalf("video calls: want=0")
	}
}

func historyItem(id string, kind creations.MediaKind, tags ...string) *creations.HistoryItem {
	return &creations.HistoryItem{
		ID:   id,
		Kind: kind,
		URL:  imagetools.EncodeDataURI("image/png", geminitest.PNG(4, 4)),
		Tags: datatypes.JSONSlice[string](tags),
	}
}

func TestSuggestTags(t *testing.T) {
	history := []*creations.HistoryItem{
		historyItem("3", creations.MediaImage, "Knight", "castle"),
		historyItem("2", creations.MediaVideo, "knight", "Dragon"),
		historyItem("1", creations.MediaImage, "CASTLE", " "),
	}
	got := SuggestTags(history)
	want := []string{"Knight", "castle", "Dragon"}
	if len(got) != len(want) {
		t.Fatalf("tags: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tags: want=%v got=%v", want, got)
		}
	}
}

func TestApplySuggestedTagWithoutMatchAddsTagOnly(t *testing.T) {
	d := &Draft{Tags: []string{"Hero"}}
	history := []*creations.HistoryItem{historyItem("v1", creations.MediaVideo, "Dragon")}
	out := ApplySuggestedTag(d, history, "Dragon")
	if !out.TagAdded || out.ReferenceAdded || out.CapacityWarning {
		t.Fatalf("outcome: got=%+v", out)
	}
	if len(d.Tags) != 2 || len(d.References) != 0 {
		t.Fatalf("draft: tags=%v refs=%d", d.Tags, len(d.References))
	}
	again := ApplySuggestedTag(d, history, "dragon")
	if again.TagAdded || len(d.Tags) != 2 {
		t.Fatalf("re-apply: want no duplicate got tags=%v", d.Tags)
	}
}

func TestApplySuggestedTagAddsNewestImage(t *testing.T) {
	d := &Draft{}
	history := []*creations.HistoryItem{
		historyItem("new", creations.MediaImage, "hero"),
		historyItem("old", creations.MediaImage, "Hero"),
	}
	out := ApplySuggestedTag(d, history, "HERO")
	if !out.ReferenceAdded || out.Match == nil || out.Match.ID != "new" {
		t.Fatalf("outcome: got=%+v", out)
	}
	if len(d.References) != 1 || d.References[0].HistoryID != "new" {
		t.Fatalf("references: got=%+v", d.References)
	}
	out = ApplySuggestedTag(d, history, "hero")
	if out.ReferenceAdded || len(d.References) != 1 {
		t.Fatalf("already selected: want no change got refs=%d", len(d.References))
	}
}

func TestApplySuggestedTagAtCapacity(t *testing.T) {
	d := &Draft{References: []Reference{{HistoryID: "a"}, {HistoryID: "b"}, {HistoryID: "c"}}}
	history := []*creations.HistoryItem{historyItem("d", creations.MediaImage, "Hero")}
	out := ApplySuggestedTag(d, history, "Hero")
	if !out.CapacityWarning || out.ReferenceAdded || !out.TagAdded {
		t.Fatalf("outcome: got=%+v", out)
	}
	if len(d.References) != 3 || d.References[2].HistoryID != "c" {
		t.Fatalf("references changed: got=%+v", d.References)
	}
}

func TestApplySuggestedTagReportsUnusableImage(t *testing.T) {
	d := &Draft{}
	item := historyItem("blob", creations.MediaImage, "Hero")
	item.URL = "blob:studio/missing"
	out := ApplySuggestedTag(d, []*creations.HistoryItem{item}, "Hero")
	if out.Err == nil {
		t.Fatalf("err: want non-nil got=nil")
	}
	if !out.TagAdded || out.ReferenceAdded || out.Match == nil || out.Match.ID != "blob" {
		t.Fatalf("outcome: got=%+v", out)
	}
	if len(d.References) != 0 {
		t.Fatalf("references: want=0 got=%d", len(d.References))
	}
}
