package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

var (
	errMissingReelVideo  = errors.New("Instagram reels require a video")
	errMissingStoryMedia = errors.New("Instagram stories require an image or video")
	errNoContainerID     = errors.New("Instagram did not return a container id")
	errNoMediaID         = errors.New("Instagram did not return a media id")
)

// pollBudget bounds one container wait: attempts × delay. Instagram keeps
// containers IN_PROGRESS while it transcodes, so video paths get longer
// budgets than image paths.
type pollBudget struct {
	attempts int
	delay    time.Duration
}

var (
	pollStoryImage   = pollBudget{attempts: 20, delay: 2 * time.Second}
	pollStoryVideo   = pollBudget{attempts: 60, delay: 5 * time.Second}
	pollReel         = pollBudget{attempts: 120, delay: 6 * time.Second}
	pollFeedVideo    = pollBudget{attempts: 60, delay: 6 * time.Second}
	pollCarouselItem = pollBudget{attempts: 15, delay: 2 * time.Second}
)

type InstagramProvider struct {
	cfg     config.Config
	store   *secrets.Store
	limiter RateLimiter
	graph   *graphClient

	// wait is swapped out in tests so poll loops run instantly.
	wait func(ctx context.Context, d time.Duration) error
}

// sleepCtx waits for d, returning early when ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func NewInstagramProvider(cfg config.Config, store *secrets.Store, limiter RateLimiter, client *http.Client) *InstagramProvider {
	return &InstagramProvider{
		cfg:     cfg,
		store:   store,
		limiter: limiter,
		graph:   newGraphClient(client, cfg.Meta.APIVersion),
		wait:    sleepCtx,
	}
}

func (p *InstagramProvider) Platform() string { return models.PlatformInstagram }

func (p *InstagramProvider) DailyLimit() int { return 25 }

func (p *InstagramProvider) Limits() Limits {
	return Limits{
		MaxContentLength:  2200,
		MaxMediaCount:     10,
		MaxImages:         10,
		AllowsMultiVideo:  false,
		SupportsMedia:     true,
		AllowedImageTypes: []string{"image/jpeg"},
		AllowedVideoTypes: []string{"video/mp4", "video/quicktime"},
		MaxImageSize:      8 * 1024 * 1024,
		MaxVideoSize:      100 * 1024 * 1024,
		StoryMaxImageSize: 8 * 1024 * 1024,
		StoryMaxVideoSize: 100 * 1024 * 1024,
		ReelMaxVideoSize:  1024 * 1024 * 1024,
		ReelMinDuration:   3,
		ReelMaxDuration:   90,
	}
}

func (p *InstagramProvider) RefreshToken(ctx context.Context, integ *models.Integration) TokenRefreshResult {
	return unsupportedRefresh()
}

func (p *InstagramProvider) PublishPost(ctx context.Context, integ *models.Integration, req PublishRequest) PublishResult {
	token, err := p.store.Decrypt(integ.AccessToken)
	if err != nil || token == "" || integ.ProfileID == "" {
		return failure("Instagram credentials are missing")
	}
	igUserID := integ.ProfileID

	allowed, err := p.limiter.CheckAndIncrement(ctx, models.PlatformInstagram)
	if err != nil {
		slog.Info(err.Error())
	} else if !allowed {
		return failure("Daily post limit reached for Instagram")
	}

	images, videos := splitMedia(req.Media)

	var containerID string
	var pubErr error
	switch {
	case req.IsStory:
		containerID, pubErr = p.createStoryContainer(ctx, token, igUserID, images, videos)
	case req.IsReel:
		containerID, pubErr = p.createReelContainer(ctx, token, igUserID, req.Content, videos)
	case len(videos) > 0:
		containerID, pubErr = p.createVideoContainer(ctx, token, igUserID, req.Content, videos[0])
	case len(images) > 1:
		containerID, pubErr = p.createCarouselContainer(ctx, token, igUserID, req.Content, images)
	case len(images) == 1:
		containerID, pubErr = p.createImageContainer(ctx, token, igUserID, req.Content, images[0])
	default:
		return failure("Instagram posts require at least one media file")
	}
	if pubErr != nil {
		return failure("%s", pubErr.Error())
	}

	mediaID, err := p.publishContainer(ctx, token, igUserID, containerID)
	if err != nil {
		return failure("%s", err.Error())
	}

	return PublishResult{
		Success: true,
		PostID:  mediaID,
		PostURL: p.permalink(ctx, token, mediaID),
	}
}

func (p *InstagramProvider) createImageContainer(ctx context.Context, token, igUserID, caption string, image MediaFile) (string, error) {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("image_url", image.URL)
	form.Set("caption", caption)
	id, err := p.createContainer(ctx, igUserID, form)
	if err != nil {
		return "", err
	}
	return id, p.waitForContainer(ctx, token, id, pollStoryImage)
}

func (p *InstagramProvider) createVideoContainer(ctx context.Context, token, igUserID, caption string, video MediaFile) (string, error) {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("media_type", "REELS")
	form.Set("video_url", video.URL)
	form.Set("caption", caption)
	form.Set("share_to_feed", "true")
	id, err := p.createContainer(ctx, igUserID, form)
	if err != nil {
		return "", err
	}
	return id, p.waitForContainer(ctx, token, id, pollFeedVideo)
}

func (p *InstagramProvider) createReelContainer(ctx context.Context, token, igUserID, caption string, videos []MediaFile) (string, error) {
	if len(videos) == 0 {
		return "", errMissingReelVideo
	}
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("media_type", "REELS")
	form.Set("video_url", videos[0].URL)
	form.Set("caption", caption)
	id, err := p.createContainer(ctx, igUserID, form)
	if err != nil {
		return "", err
	}
	return id, p.waitForContainer(ctx, token, id, pollReel)
}

func (p *InstagramProvider) createStoryContainer(ctx context.Context, token, igUserID string, images, videos []MediaFile) (string, error) {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("media_type", "STORIES")

	budget := pollStoryImage
	switch {
	case len(videos) > 0:
		form.Set("video_url", videos[0].URL)
		budget = pollStoryVideo
	case len(images) > 0:
		form.Set("image_url", images[0].URL)
	default:
		return "", errMissingStoryMedia
	}

	id, err := p.createContainer(ctx, igUserID, form)
	if err != nil {
		return "", err
	}
	return id, p.waitForContainer(ctx, token, id, budget)
}

// createCarouselContainer builds one child container per image, waits for
// each, then wraps them in a CAROUSEL parent. Carousels are images only.
func (p *InstagramProvider) createCarouselContainer(ctx context.Context, token, igUserID, caption string, images []MediaFile) (string, error) {
	var children []string
	for _, img := range images {
		form := url.Values{}
		form.Set("access_token", token)
		form.Set("image_url", img.URL)
		form.Set("is_carousel_item", "true")
		id, err := p.createContainer(ctx, igUserID, form)
		if err != nil {
			return "", err
		}
		if err := p.waitForContainer(ctx, token, id, pollCarouselItem); err != nil {
			return "", err
		}
		children = append(children, id)
	}

	form := url.Values{}
	form.Set("access_token", token)
	form.Set("media_type", "CAROUSEL")
	form.Set("children", strings.Join(children, ","))
	form.Set("caption", caption)
	id, err := p.createContainer(ctx, igUserID, form)
	if err != nil {
		return "", err
	}
	return id, p.waitForContainer(ctx, token, id, pollCarouselItem)
}

func (p *InstagramProvider) createContainer(ctx context.Context, igUserID string, form url.Values) (string, error) {
	var resp graphIDResponse
	if err := p.graph.PostForm(ctx, "/"+igUserID+"/media", form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errNoContainerID
	}
	return resp.ID, nil
}

// waitForContainer polls status_code until FINISHED, failing on ERROR or
// when the budget runs out. The delay between attempts honors ctx.
func (p *InstagramProvider) waitForContainer(ctx context.Context, token, containerID string, budget pollBudget) error {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "status_code,status")

	for i := 0; i < budget.attempts; i++ {
		var resp struct {
			StatusCode string `json:"status_code"`
			Status     string `json:"status"`
		}
		if err := p.graph.Get(ctx, "/"+containerID, params, &resp); err != nil {
			return err
		}
		switch resp.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			if resp.Status != "" {
				return fmt.Errorf("media processing failed: %s", resp.Status)
			}
			return fmt.Errorf("media processing failed")
		}
		if err := p.wait(ctx, budget.delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("media processing timed out")
}

func (p *InstagramProvider) publishContainer(ctx context.Context, token, igUserID, containerID string) (string, error) {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("creation_id", containerID)
	var resp graphIDResponse
	if err := p.graph.PostForm(ctx, "/"+igUserID+"/media_publish", form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errNoMediaID
	}
	return resp.ID, nil
}

// permalink is best-effort; a missing permalink never fails the publish.
func (p *InstagramProvider) permalink(ctx context.Context, token, mediaID string) string {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "permalink")
	var resp struct {
		Permalink string `json:"permalink"`
	}
	if err := p.graph.Get(ctx, "/"+mediaID, params, &resp); err == nil && resp.Permalink != "" {
		return resp.Permalink
	}
	return "https://www.instagram.com/p/" + mediaID + "/"
}

// Instagram insight fetching is not wired yet; the Graph insights surface
// for business accounts needs its own permission review.
func (p *InstagramProvider) FetchAccountAnalytics(ctx context.Context, integ *models.Integration) AnalyticsResult {
	return analyticsFailure("Instagram account analytics are not yet implemented")
}

func (p *InstagramProvider) FetchPostAnalytics(ctx context.Context, platformPostID string, integ *models.Integration) AnalyticsResult {
	return analyticsFailure("Instagram post analytics are not yet implemented")
}
