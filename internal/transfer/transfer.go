package transfer

import "time"

// PostCreation is the request body for creating or updating a post.
type PostCreation struct {
	Platform      string     `json:"platform"`
	IntegrationID int64      `json:"integration_id"`
	Content       string     `json:"content"`
	Link          string     `json:"link"`
	CTA           string     `json:"cta"`
	VideoTitle    string     `json:"video_title"`
	IsPost        bool       `json:"is_post"`
	IsReel        bool       `json:"is_reel"`
	IsStory       bool       `json:"is_story"`
	IsIGPost      bool       `json:"is_ig_post"`
	IsIGReel      bool       `json:"is_ig_reel"`
	IsIGStory     bool       `json:"is_ig_story"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	Media         []MediaInput `json:"media"`
}

// MediaInput references an already-uploaded media asset.
type MediaInput struct {
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

// PublishOutcome is the structured result of one publish attempt. It is
// always well-formed; orchestrator-level faults become Success=false.
type PublishOutcome struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	PostURL        string `json:"post_url,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ScheduleRequest carries the target time for scheduling a post.
type ScheduleRequest struct {
	ScheduledTime time.Time `json:"scheduled_time"`
}

// ContentValidationRequest is the dry-run length check input.
type ContentValidationRequest struct {
	Content   string   `json:"content"`
	Platforms []string `json:"platforms"`
}

// OAuthInitiation is returned when an authorization flow starts.
type OAuthInitiation struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// AccountMetadata carries the optional labels a user attaches when
// connecting an account. They ride along with the OAuth state and land on
// the saved integration.
type AccountMetadata struct {
	AccountName  string `json:"account_name,omitempty"`
	Description  string `json:"description,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// TokenResponse is the common shape of OAuth token-endpoint replies.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// MetaPage is one Facebook page offered during the page-selection step.
type MetaPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	InstagramID string `json:"instagram_id,omitempty"`
}
