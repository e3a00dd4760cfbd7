package models

import (
	"fmt"
	"time"
)

// Post lifecycle states.
const (
	PostStatusDraft              = "Draft"
	PostStatusScheduled          = "Scheduled"
	PostStatusPublishing         = "Publishing"
	PostStatusPublished          = "Published"
	PostStatusPartiallyPublished = "Partially Published"
	PostStatusFailed             = "Failed"
	PostStatusCancelled          = "Cancelled"
)

const MaxPublishRetries = 3

// ValidTransitions is the full status graph. Published is terminal; Failed
// and Cancelled are restartable.
var ValidTransitions = map[string][]string{
	PostStatusDraft:              {PostStatusScheduled, PostStatusPublishing, PostStatusCancelled},
	PostStatusScheduled:          {PostStatusPublishing, PostStatusDraft, PostStatusCancelled},
	PostStatusPublishing:         {PostStatusPublished, PostStatusPartiallyPublished, PostStatusFailed},
	PostStatusPublished:          {},
	PostStatusPartiallyPublished: {PostStatusPublishing},
	PostStatusFailed:             {PostStatusScheduled, PostStatusPublishing, PostStatusCancelled},
	PostStatusCancelled:          {PostStatusDraft},
}

// Post is one piece of content targeted at one platform account.
type Post struct {
	ID            int64      `db:"id" json:"id"`
	Platform      string     `db:"platform" json:"platform"`
	IntegrationID int64      `db:"integration_id" json:"integration_id"`
	Content       string     `db:"content" json:"content"`
	Link          string     `db:"link" json:"link"`
	CTA           string     `db:"cta" json:"cta"`
	VideoTitle    string     `db:"video_title" json:"video_title"`

	// Facebook content-mode flags.
	IsPost  bool `db:"is_post" json:"is_post"`
	IsReel  bool `db:"is_reel" json:"is_reel"`
	IsStory bool `db:"is_story" json:"is_story"`

	// Instagram content-mode flags.
	IsIGPost  bool `db:"is_ig_post" json:"is_ig_post"`
	IsIGReel  bool `db:"is_ig_reel" json:"is_ig_reel"`
	IsIGStory bool `db:"is_ig_story" json:"is_ig_story"`

	Status         string     `db:"status" json:"status"`
	ScheduledTime  *time.Time `db:"scheduled_time" json:"scheduled_time"`
	PublishedTime  *time.Time `db:"published_time" json:"published_time"`
	PlatformPostID string     `db:"platform_post_id" json:"platform_post_id"`
	ErrorLog       string     `db:"error_log" json:"error_log"`
	RetryCount     int        `db:"retry_count" json:"retry_count"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	// Media rows are loaded separately by the post media repository.
	Media []*PostMedia `db:"-" json:"media,omitempty"`
}

// PostMedia is one attached file, ordered by DisplayOrder.
type PostMedia struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	FileURL      string    `db:"file_url" json:"file_url"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CanTransitionTo reports whether moving to newStatus is allowed from the
// post's current status.
func (p *Post) CanTransitionTo(newStatus string) bool {
	for _, allowed := range ValidTransitions[p.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// Transition moves the post to newStatus in memory, or fails without
// mutation when the edge is not in the status graph. Persistence is the
// caller's responsibility.
func (p *Post) Transition(newStatus string) error {
	if !p.CanTransitionTo(newStatus) {
		return fmt.Errorf("cannot change status from %s to %s", p.Status, newStatus)
	}
	p.Status = newStatus
	return nil
}

// ApplyModeDefaults selects the plain post mode when no content-mode flag is
// set, for the platforms that define modes.
func (p *Post) ApplyModeDefaults() {
	switch p.Platform {
	case PlatformInstagram:
		if !p.IsIGPost && !p.IsIGReel && !p.IsIGStory {
			p.IsIGPost = true
		}
	case PlatformFacebook:
		if !p.IsPost && !p.IsReel && !p.IsStory {
			p.IsPost = true
		}
	}
}
