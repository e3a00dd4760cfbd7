package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

// callToActionTypes maps the editor's CTA labels to Graph API enum values.
var callToActionTypes = map[string]string{
	"Learn More": "LEARN_MORE",
	"Shop Now":   "SHOP_NOW",
	"Buy Now":    "BUY_NOW",
	"Sign Up":    "SIGN_UP",
	"Book Now":   "BOOK_NOW",
	"Contact Us": "CONTACT_US",
}

type FacebookProvider struct {
	cfg     config.Config
	store   *secrets.Store
	limiter RateLimiter
	graph   *graphClient
	client  *http.Client
}

func NewFacebookProvider(cfg config.Config, store *secrets.Store, limiter RateLimiter, client *http.Client) *FacebookProvider {
	return &FacebookProvider{
		cfg:     cfg,
		store:   store,
		limiter: limiter,
		graph:   newGraphClient(client, cfg.Meta.APIVersion),
		client:  client,
	}
}

func (p *FacebookProvider) Platform() string { return models.PlatformFacebook }

func (p *FacebookProvider) DailyLimit() int { return 200 }

func (p *FacebookProvider) Limits() Limits {
	return Limits{
		MaxContentLength:  63206,
		MaxMediaCount:     10,
		MaxImages:         10,
		AllowsMultiVideo:  false,
		SupportsMedia:     true,
		AllowedImageTypes: []string{"image/jpeg", "image/png", "image/gif"},
		AllowedVideoTypes: []string{"video/mp4", "video/quicktime"},
		MaxImageSize:      8 * 1024 * 1024,
		MaxVideoSize:      4 * 1024 * 1024 * 1024,
		StoryMaxImageSize: 8 * 1024 * 1024,
		StoryMaxVideoSize: 100 * 1024 * 1024,
		ReelMaxVideoSize:  1024 * 1024 * 1024,
		ReelMinDuration:   3,
		ReelMaxDuration:   90,
	}
}

func (p *FacebookProvider) RefreshToken(ctx context.Context, integ *models.Integration) TokenRefreshResult {
	return unsupportedRefresh()
}

func (p *FacebookProvider) credentials(integ *models.Integration) (token, pageID string, err error) {
	token, err = p.store.Decrypt(integ.PageAccessToken)
	if err != nil {
		return "", "", err
	}
	if token == "" {
		token, err = p.store.Decrypt(integ.AccessToken)
		if err != nil {
			return "", "", err
		}
	}
	return token, integ.PageID, nil
}

func (p *FacebookProvider) PublishPost(ctx context.Context, integ *models.Integration, req PublishRequest) PublishResult {
	token, pageID, err := p.credentials(integ)
	if err != nil || token == "" || pageID == "" {
		return failure("Facebook page credentials are missing")
	}

	allowed, err := p.limiter.CheckAndIncrement(ctx, models.PlatformFacebook)
	if err != nil {
		slog.Info(err.Error())
	} else if !allowed {
		return failure("Daily post limit reached for Facebook")
	}

	switch {
	case req.IsStory:
		return p.publishStory(ctx, token, pageID, req)
	case req.IsReel:
		return p.publishReel(ctx, token, pageID, req)
	default:
		return p.publishFeed(ctx, token, pageID, req)
	}
}

type graphIDResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

func (p *FacebookProvider) publishFeed(ctx context.Context, token, pageID string, req PublishRequest) PublishResult {
	images, videos := splitMedia(req.Media)

	switch {
	case len(videos) > 0:
		return p.publishVideo(ctx, token, pageID, videos[0], req.Content, req.Link, req.CTA)
	case len(images) == 1:
		form := url.Values{}
		form.Set("access_token", token)
		form.Set("url", images[0].URL)
		form.Set("caption", req.Content)
		var resp graphIDResponse
		if err := p.graph.PostForm(ctx, "/"+pageID+"/photos", form, &resp); err != nil {
			return failure("%s", err.Error())
		}
		postID := resp.PostID
		if postID == "" {
			postID = resp.ID
		}
		return p.published(postID)
	case len(images) > 1:
		return p.publishMultiPhoto(ctx, token, pageID, images, req.Content)
	default:
		form := url.Values{}
		form.Set("access_token", token)
		form.Set("message", req.Content)
		if req.Link != "" {
			form.Set("link", req.Link)
		}
		var resp graphIDResponse
		if err := p.graph.PostForm(ctx, "/"+pageID+"/feed", form, &resp); err != nil {
			return failure("%s", err.Error())
		}
		return p.published(resp.ID)
	}
}

// publishMultiPhoto uploads every image unpublished, then creates one feed
// post referencing all of them through attached_media.
func (p *FacebookProvider) publishMultiPhoto(ctx context.Context, token, pageID string, images []MediaFile, caption string) PublishResult {
	var attached []map[string]string
	for _, img := range images {
		form := url.Values{}
		form.Set("access_token", token)
		form.Set("url", img.URL)
		form.Set("published", "false")
		var resp graphIDResponse
		if err := p.graph.PostForm(ctx, "/"+pageID+"/photos", form, &resp); err != nil {
			return failure("%s", err.Error())
		}
		attached = append(attached, map[string]string{"media_fbid": resp.ID})
	}

	form := url.Values{}
	form.Set("access_token", token)
	form.Set("message", caption)
	attachedJSON, _ := json.Marshal(attached)
	form.Set("attached_media", string(attachedJSON))
	var resp graphIDResponse
	if err := p.graph.PostForm(ctx, "/"+pageID+"/feed", form, &resp); err != nil {
		return failure("%s", err.Error())
	}
	return p.published(resp.ID)
}

func (p *FacebookProvider) publishVideo(ctx context.Context, token, pageID string, video MediaFile, description, link, cta string) PublishResult {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("file_url", video.URL)
	form.Set("description", description)
	if link != "" {
		if ctaType, ok := callToActionTypes[cta]; ok {
			payload, _ := json.Marshal(map[string]any{
				"type":  ctaType,
				"value": map[string]string{"link": link},
			})
			form.Set("call_to_action", string(payload))
		}
	}
	var resp graphIDResponse
	if err := p.graph.PostForm(ctx, "/"+pageID+"/videos", form, &resp); err != nil {
		return failure("%s", err.Error())
	}
	return p.published(resp.ID)
}

func (p *FacebookProvider) publishStory(ctx context.Context, token, pageID string, req PublishRequest) PublishResult {
	images, videos := splitMedia(req.Media)
	switch {
	case len(videos) > 0:
		return p.publishVideoStory(ctx, token, pageID, videos[0])
	case len(images) > 0:
		return p.publishPhotoStory(ctx, token, pageID, images[0])
	default:
		return failure("Facebook stories require an image or video")
	}
}

func (p *FacebookProvider) publishPhotoStory(ctx context.Context, token, pageID string, image MediaFile) PublishResult {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("url", image.URL)
	form.Set("published", "false")
	var photo graphIDResponse
	if err := p.graph.PostForm(ctx, "/"+pageID+"/photos", form, &photo); err != nil {
		return failure("%s", err.Error())
	}

	form = url.Values{}
	form.Set("access_token", token)
	form.Set("photo_id", photo.ID)
	var resp struct {
		Success bool   `json:"success"`
		PostID  string `json:"post_id"`
	}
	if err := p.graph.PostForm(ctx, "/"+pageID+"/photo_stories", form, &resp); err != nil {
		return failure("%s", err.Error())
	}
	if !resp.Success {
		return failure("Facebook did not accept the photo story")
	}
	return p.published(resp.PostID)
}

// publishVideoStory runs the three-phase story upload: start a session on
// /video_stories, stream the bytes to the returned upload URL with
// offset/file_size headers, then finish with the session's video id.
func (p *FacebookProvider) publishVideoStory(ctx context.Context, token, pageID string, video MediaFile) PublishResult {
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("upload_phase", "start")
	var start struct {
		VideoID   string `json:"video_id"`
		UploadURL string `json:"upload_url"`
	}
	if err := p.graph.PostForm(ctx, "/"+pageID+"/video_stories", form, &start); err != nil {
		return failure("%s", err.Error())
	}
	if start.VideoID == "" || start.UploadURL == "" {
		return failure("upload session did not return a video id")
	}

	if err := p.uploadVideoBytes(ctx, token, start.UploadURL, video.URL); err != nil {
		return failure("%s", err.Error())
	}

	form = url.Values{}
	form.Set("access_token", token)
	form.Set("upload_phase", "finish")
	form.Set("video_id", start.VideoID)
	var finish struct {
		Success bool   `json:"success"`
		PostID  string `json:"post_id"`
	}
	if err := p.graph.PostForm(ctx, "/"+pageID+"/video_stories", form, &finish); err != nil {
		return failure("%s", err.Error())
	}
	if !finish.Success {
		return failure("Facebook did not accept the video story")
	}
	postID := finish.PostID
	if postID == "" {
		postID = start.VideoID
	}
	return p.published(postID)
}

func (p *FacebookProvider) publishReel(ctx context.Context, token, pageID string, req PublishRequest) PublishResult {
	_, videos := splitMedia(req.Media)
	if len(videos) == 0 {
		return failure("Facebook reels require a video")
	}
	return p.publishVideo(ctx, token, pageID, videos[0], req.Content, req.Link, req.CTA)
}

// uploadVideoBytes downloads the asset and streams it to the Graph upload
// service in one chunk with the offset/file_size headers the session expects.
func (p *FacebookProvider) uploadVideoBytes(ctx context.Context, token, uploadURL, fileURL string) error {
	tmp, size, err := downloadToTemp(ctx, p.client, fileURL)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	f, err := os.Open(tmp)
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, f)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Authorization", "OAuth "+token)
	req.Header.Set("offset", "0")
	req.Header.Set("file_size", fmt.Sprintf("%d", size))

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s", parseGraphError(body))
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &out); err == nil && !out.Success {
		return fmt.Errorf("video upload was not accepted")
	}
	return nil
}

func (p *FacebookProvider) published(postID string) PublishResult {
	if postID == "" {
		return failure("Facebook did not return a post id")
	}
	return PublishResult{
		Success: true,
		PostID:  postID,
		PostURL: "https://www.facebook.com/" + postID,
	}
}

func (p *FacebookProvider) FetchAccountAnalytics(ctx context.Context, integ *models.Integration) AnalyticsResult {
	token, pageID, err := p.credentials(integ)
	if err != nil || token == "" || pageID == "" {
		return analyticsFailure("Facebook page credentials are missing")
	}

	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "fan_count,followers_count,talking_about_count")
	var page struct {
		FanCount          float64 `json:"fan_count"`
		FollowersCount    float64 `json:"followers_count"`
		TalkingAboutCount float64 `json:"talking_about_count"`
	}
	if err := p.graph.Get(ctx, "/"+pageID, params, &page); err != nil {
		return analyticsFailure("%s", err.Error())
	}

	metrics := map[string]float64{
		"followers":     page.FollowersCount,
		"likes":         page.FanCount,
		"talking_about": page.TalkingAboutCount,
	}

	params = url.Values{}
	params.Set("access_token", token)
	params.Set("metric", "page_impressions,page_impressions_unique")
	params.Set("period", "day")
	var insights struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value float64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := p.graph.Get(ctx, "/"+pageID+"/insights", params, &insights); err == nil {
		for _, d := range insights.Data {
			if len(d.Values) == 0 {
				continue
			}
			latest := d.Values[len(d.Values)-1].Value
			switch d.Name {
			case "page_impressions":
				metrics["impressions"] = latest
			case "page_impressions_unique":
				metrics["reach"] = latest
			}
		}
	}

	return AnalyticsResult{Success: true, Metrics: metrics}
}

func (p *FacebookProvider) FetchPostAnalytics(ctx context.Context, platformPostID string, integ *models.Integration) AnalyticsResult {
	token, _, err := p.credentials(integ)
	if err != nil || token == "" {
		return analyticsFailure("Facebook page credentials are missing")
	}

	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "likes.summary(true),comments.summary(true),shares")
	var post struct {
		Likes struct {
			Summary struct {
				TotalCount float64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary struct {
				TotalCount float64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
		Shares struct {
			Count float64 `json:"count"`
		} `json:"shares"`
	}
	if err := p.graph.Get(ctx, "/"+platformPostID, params, &post); err != nil {
		return analyticsFailure("%s", err.Error())
	}

	metrics := map[string]float64{
		"likes":    post.Likes.Summary.TotalCount,
		"comments": post.Comments.Summary.TotalCount,
		"shares":   post.Shares.Count,
	}

	params = url.Values{}
	params.Set("access_token", token)
	params.Set("metric", "post_impressions,post_impressions_unique,post_clicks")
	var insights struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value float64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := p.graph.Get(ctx, "/"+platformPostID+"/insights", params, &insights); err == nil {
		for _, d := range insights.Data {
			if len(d.Values) == 0 {
				continue
			}
			latest := d.Values[len(d.Values)-1].Value
			switch d.Name {
			case "post_impressions":
				metrics["impressions"] = latest
			case "post_impressions_unique":
				metrics["reach"] = latest
			case "post_clicks":
				metrics["clicks"] = latest
			}
		}
	}

	return AnalyticsResult{Success: true, Metrics: metrics}
}

// splitMedia partitions attachments into images and videos by MIME family.
func splitMedia(media []MediaFile) (images, videos []MediaFile) {
	for _, m := range media {
		if strings.HasPrefix(m.MIMEType, "video/") {
			videos = append(videos, m)
		} else {
			images = append(images, m)
		}
	}
	return images, videos
}
