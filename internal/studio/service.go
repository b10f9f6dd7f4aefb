package studio

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/data/repos"
	types "github.com/yungbote/creator-studio/internal/domain"
	"github.com/yungbote/creator-studio/internal/generation"
	"github.com/yungbote/creator-studio/internal/observability"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/logger"
	"github.com/yungbote/creator-studio/internal/platform/media"
	"github.com/yungbote/creator-studio/internal/session"
	"github.com/yungbote/creator-studio/internal/workflow"
)

// Service is everything a studio front end calls.
type Service interface {
	SubmitImageRequest(ctx context.Context, req generation.ImageRequest) (*generation.Result, error)
	SubmitEditRequest(ctx context.Context, req generation.EditRequest) (*generation.Result, error)
	SubmitVideoRequest(ctx context.Context, req generation.VideoRequest) (*generation.Result, error)
	StartVideoRequest(ctx context.Context, req generation.VideoRequest) (*generation.VideoJob, error)
	EnhancePrompt(ctx context.Context, draft string) (string, error)
	MergeReferences(ctx context.Context, req generation.VideoRequest) (*workflow.MergeDraft, error)

	ListHistory(ctx context.Context) []*types.HistoryItem
	SaveHistoryItem(ctx context.Context, item *types.HistoryItem) ([]*types.HistoryItem, error)
	UpdateHistoryItem(ctx context.Context, id string, patch types.HistoryPatch) ([]*types.HistoryItem, error)
	DeleteHistoryItem(ctx context.Context, id string) ([]*types.HistoryItem, error)
	ClearHistory(ctx context.Context) error

	ListAssets(ctx context.Context) []*types.ReferenceAsset
	SaveAsset(ctx context.Context, name string, img generation.Image) ([]*types.ReferenceAsset, error)
	DeleteAsset(ctx context.Context, id string) ([]*types.ReferenceAsset, error)

	HasCredential(ctx context.Context) bool
	RequestCredential(ctx context.Context) (bool, error)
	RestoreSession(ctx context.Context) (*types.User, error)
	SignInDemo(ctx context.Context) (*types.User, error)
	SignInFederated(ctx context.Context, idToken string) (*types.User, error)
	SignOut(ctx context.Context) error
	CurrentUser() *types.User

	SuggestTags(ctx context.Context) []string
	ApplySuggestedTag(ctx context.Context, draft *workflow.Draft, tag string) workflow.TagOutcome
	Library(ctx context.Context) (*Library, error)
	OpenMedia(ctx context.Context, handle string) ([]byte, string, error)
}

type Deps struct {
	History      repos.HistoryRepo
	Assets       repos.AssetRepo
	Session      *credential.Session
	Resolver     *credential.Resolver
	Orchestrator *generation.Orchestrator
	Workflow     *workflow.Controller
	SessionStore *session.Store
	Media        media.Store
	Metrics      *observability.Metrics
}

type Options struct {
	// EnvKey becomes the session credential at sign-in.
	EnvKey string
	// Audience is checked on federated identity tokens when set.
	Audience      string
	ThumbnailSize int
	Now           func() time.Time
}

type studioService struct {
	log  *logger.Logger
	deps Deps
	opts Options
}

func NewService(log *logger.Logger, deps Deps, opts Options) Service {
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = 256
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &studioService{
		log:  log.With("service", "StudioService"),
		deps: deps,
		opts: opts,
	}
}

func (s *studioService) SubmitImageRequest(ctx context.Context, req generation.ImageRequest) (*generation.Result, error) {
	return s.deps.Orchestrator.GenerateImage(ctx, s.deps.Session, req)
}

func (s *studioService) SubmitEditRequest(ctx context.Context, req generation.EditRequest) (*generation.Result, error) {
	return s.deps.Orchestrator.EditImage(ctx, s.deps.Session, req)
}

func (s *studioService) SubmitVideoRequest(ctx context.Context, req generation.VideoRequest) (*generation.Result, error) {
	return s.deps.Orchestrator.Submit(ctx, s.deps.Session, req)
}

func (s *studioService) StartVideoRequest(ctx context.Context, req generation.VideoRequest) (*generation.VideoJob, error) {
	return s.deps.Orchestrator.StartVideo(ctx, s.deps.Session, req)
}

func (s *studioService) EnhancePrompt(ctx context.Context, draft string) (string, error) {
	return s.deps.Workflow.EnhancePrompt(ctx, s.deps.Session, draft)
}

func (s *studioService) MergeReferences(ctx context.Context, req generation.VideoRequest) (*workflow.MergeDraft, error) {
	return s.deps.Workflow.BeginMerge(ctx, s.deps.Session, req)
}

func (s *studioService) HasCredential(ctx context.Context) bool {
	return s.deps.Resolver.HasCredential(ctx, s.deps.Session)
}

func (s *studioService) RequestCredential(ctx context.Context) (bool, error) {
	return s.deps.Resolver.RequestInteractiveSelection(ctx, s.deps.Session)
}

// OpenMedia reads a media handle belonging to the signed-in user.
func (s *studioService) OpenMedia(ctx context.Context, handle string) ([]byte, string, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, "", err
	}
	data, mime, err := s.deps.Media.Open(ctx, owner, handle)
	if errors.Is(err, media.ErrUnknownHandle) {
		return nil, "", apierr.New(apierr.KindNotFound, "media not found", err)
	}
	return data, mime, err
}
