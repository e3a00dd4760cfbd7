package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/providers"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

// PostService owns the post lifecycle: CRUD with validation, scheduling, and
// the publish orchestration that drives a post through the state machine.
type PostService struct {
	posts        repository.PostRepository
	media        repository.PostMediaRepository
	integrations repository.IntegrationRepository
	registry     *providers.Registry
	validator    *PostValidator
}

func NewPostService(
	posts repository.PostRepository,
	media repository.PostMediaRepository,
	integrations repository.IntegrationRepository,
	registry *providers.Registry,
	validator *PostValidator) *PostService {
	return &PostService{
		posts:        posts,
		media:        media,
		integrations: integrations,
		registry:     registry,
		validator:    validator,
	}
}

func (s *PostService) CreatePost(ctx context.Context, req *transfer.PostCreation) (*models.Post, error) {
	post := &models.Post{
		Platform:      req.Platform,
		IntegrationID: req.IntegrationID,
		Content:       req.Content,
		Link:          req.Link,
		CTA:           req.CTA,
		VideoTitle:    req.VideoTitle,
		IsPost:        req.IsPost,
		IsReel:        req.IsReel,
		IsStory:       req.IsStory,
		IsIGPost:      req.IsIGPost,
		IsIGReel:      req.IsIGReel,
		IsIGStory:     req.IsIGStory,
		Status:        models.PostStatusDraft,
		ScheduledTime: req.ScheduledTime,
	}
	for i, m := range req.Media {
		post.Media = append(post.Media, &models.PostMedia{
			FileURL:      m.FileURL,
			FileType:     m.FileType,
			FileSize:     m.FileSize,
			DisplayOrder: i,
		})
	}

	if post.Platform == "" || post.IntegrationID == 0 {
		return nil, fmt.Errorf("platform and integration are required")
	}
	integ, err := s.integrations.GetByID(ctx, post.IntegrationID)
	if err != nil {
		return nil, err
	}
	if integ == nil {
		return nil, fmt.Errorf("integration not found")
	}
	if integ.Platform != post.Platform {
		return nil, fmt.Errorf("integration belongs to %s, not %s", integ.Platform, post.Platform)
	}

	if err := s.validator.Validate(post); err != nil {
		return nil, err
	}

	if req.ScheduledTime != nil {
		if !req.ScheduledTime.After(time.Now()) {
			return nil, fmt.Errorf("Scheduled time must be in the future")
		}
		post.Status = models.PostStatusScheduled
	}

	id, err := s.posts.Create(ctx, post)
	if err != nil {
		return nil, err
	}
	post.ID = id
	for _, m := range post.Media {
		m.PostID = id
		if _, err := s.media.Create(ctx, m); err != nil {
			return nil, err
		}
	}
	return post, nil
}

// GetPost loads a post with its media rows, or (nil, nil) when absent.
func (s *PostService) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil || post == nil {
		return post, err
	}
	media, err := s.media.GetByPostID(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Media = media
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, status string) ([]*models.Post, error) {
	return s.posts.List(ctx, status)
}

func (s *PostService) RemovePost(ctx context.Context, id int64) error {
	if err := s.media.RemoveByPostID(ctx, id); err != nil {
		return err
	}
	return s.posts.Remove(ctx, id)
}

// publishableFrom is the orchestrator's entry gate. It deliberately admits
// Publishing (resumed attempt) and Cancelled, which the entity transition
// table does not; the status flip below is a direct write for that reason.
func publishableFrom(status string) bool {
	switch status {
	case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed,
		models.PostStatusCancelled, models.PostStatusPublishing:
		return true
	}
	return false
}

// PublishPost drives one publish attempt end to end. It never returns a Go
// error and never panics outward: every failure, expected or not, lands in
// the outcome and in the post row.
func (s *PostService) PublishPost(ctx context.Context, postID int64) (outcome transfer.PublishOutcome) {
	var retryCount int

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("internal error: %v", r)
			slog.Error(fmt.Sprintf("panic while publishing post %d: %v", postID, r))
			if err := s.posts.SetFailure(ctx, postID, models.PostStatusFailed, msg, retryCount+1); err != nil {
				slog.Info(err.Error())
			}
			outcome = transfer.PublishOutcome{Success: false, Status: models.PostStatusFailed, Error: msg}
		}
	}()

	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return transfer.PublishOutcome{Success: false, Error: err.Error()}
	}
	if post == nil {
		return transfer.PublishOutcome{Success: false, Error: "post not found"}
	}
	retryCount = post.RetryCount

	if !publishableFrom(post.Status) {
		return transfer.PublishOutcome{
			Success: false,
			Status:  post.Status,
			Error:   fmt.Sprintf("cannot publish a post in status %s", post.Status),
		}
	}

	// Point of no return: from here every exit path writes a final status.
	if post.Status != models.PostStatusPublishing {
		if err := s.posts.UpdateStatus(ctx, post.ID, models.PostStatusPublishing); err != nil {
			return transfer.PublishOutcome{Success: false, Status: post.Status, Error: err.Error()}
		}
	}

	if post.Platform == "" || post.IntegrationID == 0 {
		return s.fail(ctx, post, "post has no target platform or account")
	}

	integ, err := s.integrations.GetByID(ctx, post.IntegrationID)
	if err != nil {
		return s.fail(ctx, post, err.Error())
	}
	if integ == nil {
		return s.fail(ctx, post, "integration not found")
	}
	if integ.ConnectionStatus != models.ConnectionConnected {
		return s.fail(ctx, post, fmt.Sprintf("%s account is not connected", post.Platform))
	}
	if integ.IsTokenExpired() {
		return s.fail(ctx, post, fmt.Sprintf("%s access token has expired", post.Platform))
	}

	provider, err := s.registry.ForPlatform(post.Platform)
	if err != nil {
		return s.fail(ctx, post, err.Error())
	}

	req := providers.PublishRequest{
		Content:    utils.StripHTML(post.Content),
		IsPost:     post.IsPost || post.IsIGPost,
		IsReel:     post.IsReel || post.IsIGReel,
		IsStory:    post.IsStory || post.IsIGStory,
		Link:       post.Link,
		CTA:        post.CTA,
		VideoTitle: post.VideoTitle,
	}
	for _, m := range post.Media {
		req.Media = append(req.Media, providers.MediaFile{
			URL:      m.FileURL,
			MIMEType: m.FileType,
			Size:     m.FileSize,
		})
	}

	result := provider.PublishPost(ctx, integ, req)

	if result.Success && result.PostID == "" {
		return s.fail(ctx, post, "provider returned invalid response")
	}
	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "provider returned invalid response"
		}
		return s.fail(ctx, post, msg)
	}

	publishedAt := time.Now()
	if err := s.posts.SetPublished(ctx, post.ID, result.PostID, publishedAt); err != nil {
		slog.Info(err.Error())
	}
	return transfer.PublishOutcome{
		Success:        true,
		Status:         models.PostStatusPublished,
		PlatformPostID: result.PostID,
		PostURL:        result.PostURL,
	}
}

// fail records a terminal failure for this attempt with a direct status
// write, bypassing entity validation, and bumps the retry counter.
func (s *PostService) fail(ctx context.Context, post *models.Post, msg string) transfer.PublishOutcome {
	slog.Info(fmt.Sprintf("publish failed for post %d: %s", post.ID, msg))
	if err := s.posts.SetFailure(ctx, post.ID, models.PostStatusFailed, msg, post.RetryCount+1); err != nil {
		slog.Info(err.Error())
	}
	return transfer.PublishOutcome{Success: false, Status: models.PostStatusFailed, Error: msg}
}

// PublishNow submits a draft for immediate publishing. Drafts first get
// scheduled_time=now so the record reflects when publishing was requested.
func (s *PostService) PublishNow(ctx context.Context, postID int64) (transfer.PublishOutcome, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return transfer.PublishOutcome{}, err
	}
	if post == nil {
		return transfer.PublishOutcome{}, fmt.Errorf("post not found")
	}

	if post.Status == models.PostStatusDraft {
		now := time.Now()
		post.ScheduledTime = &now
		if err := s.posts.Update(ctx, post); err != nil {
			return transfer.PublishOutcome{}, err
		}
	}

	return s.PublishPost(ctx, postID), nil
}

// Schedule moves the post to Scheduled for a strictly future time.
func (s *PostService) Schedule(ctx context.Context, postID int64, at time.Time) error {
	if !at.After(time.Now()) {
		return fmt.Errorf("Scheduled time must be in the future")
	}

	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("post not found")
	}

	if err := s.validator.Validate(post); err != nil {
		return err
	}
	if post.Status != models.PostStatusScheduled {
		if err := post.Transition(models.PostStatusScheduled); err != nil {
			return err
		}
	}
	post.ScheduledTime = &at
	return s.posts.Update(ctx, post)
}

// CancelScheduledPost cancels a post that has not started publishing.
func (s *PostService) CancelScheduledPost(ctx context.Context, postID int64) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("post not found")
	}

	switch post.Status {
	case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed:
		return s.posts.UpdateStatus(ctx, post.ID, models.PostStatusCancelled)
	default:
		return fmt.Errorf("cannot cancel a post in status %s", post.Status)
	}
}

// ValidateContent is the dry-run length check used by the editor.
func (s *PostService) ValidateContent(content string, platforms []string) []ContentCheck {
	return s.validator.ValidateContent(content, platforms)
}
