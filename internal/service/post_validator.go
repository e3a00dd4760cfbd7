package service

import (
	"fmt"
	"strings"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/providers"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

// PostValidator enforces the per-platform constraint table before a post is
// saved or queued. It shares the Limits specs with the providers so the two
// can never disagree.
type PostValidator struct {
	registry *providers.Registry
}

func NewPostValidator(registry *providers.Registry) *PostValidator {
	return &PostValidator{registry: registry}
}

// Validate normalizes the post in place (mode defaults, MIME repair) and
// returns the first rule violation.
func (v *PostValidator) Validate(post *models.Post) error {
	limits, err := v.registry.LimitsFor(post.Platform)
	if err != nil {
		return err
	}

	if err := v.checkModeFlags(post); err != nil {
		return err
	}
	post.ApplyModeDefaults()

	content := utils.StripHTML(post.Content)
	if limits.MaxContentLength > 0 && len([]rune(content)) > limits.MaxContentLength {
		return fmt.Errorf("content exceeds the %d character limit for %s", limits.MaxContentLength, post.Platform)
	}

	v.repairMediaMetadata(post)

	if !limits.SupportsMedia && len(post.Media) > 0 {
		return fmt.Errorf("%s posts cannot include media", post.Platform)
	}

	if err := v.checkMedia(post, limits); err != nil {
		return err
	}
	if err := v.checkPlatformRules(post); err != nil {
		return err
	}

	if post.CTA != "" {
		if post.Platform == models.PlatformFacebook && !post.IsPost {
			return fmt.Errorf("call-to-action buttons are only available on regular posts")
		}
		if post.Link == "" {
			return fmt.Errorf("call-to-action buttons require a link")
		}
	}

	return nil
}

// checkModeFlags rejects more than one selected content mode per platform.
func (v *PostValidator) checkModeFlags(post *models.Post) error {
	fbModes := countTrue(post.IsPost, post.IsReel, post.IsStory)
	igModes := countTrue(post.IsIGPost, post.IsIGReel, post.IsIGStory)
	if fbModes > 1 || igModes > 1 {
		return fmt.Errorf("please select only one option: Post, Reel, or Story")
	}
	return nil
}

// repairMediaMetadata backfills missing or malformed MIME types from file
// extensions and auto-corrects the common image/jpg misspelling.
func (v *PostValidator) repairMediaMetadata(post *models.Post) {
	for _, m := range post.Media {
		if m.FileType == "image/jpg" {
			m.FileType = "image/jpeg"
		}
		m.FileType = utils.NormalizeFileType(m.FileURL, m.FileType)
	}
}

func (v *PostValidator) checkMedia(post *models.Post, limits providers.Limits) error {
	if len(post.Media) == 0 {
		return nil
	}
	if limits.MaxMediaCount > 0 && len(post.Media) > limits.MaxMediaCount {
		return fmt.Errorf("%s allows at most %d media files per post", post.Platform, limits.MaxMediaCount)
	}

	var videoCount int
	for _, m := range post.Media {
		if utils.IsVideoType(m.FileType) {
			videoCount++
		}
	}
	if videoCount > 1 && !limits.AllowsMultiVideo {
		return fmt.Errorf("only one video is allowed per post")
	}

	isStory := post.IsStory || post.IsIGStory
	isReel := post.IsReel || post.IsIGReel

	for _, m := range post.Media {
		// Uploads always record a size; a zero here would slip past every
		// size cap below.
		if m.FileSize <= 0 {
			return fmt.Errorf("media %s is missing its file size", fileName(m.FileURL))
		}
		switch {
		case utils.IsImageType(m.FileType):
			if len(limits.AllowedImageTypes) > 0 && !contains(limits.AllowedImageTypes, m.FileType) {
				return fmt.Errorf("%s does not accept %s images", post.Platform, m.FileType)
			}
			maxSize := limits.MaxImageSize
			if isStory && limits.StoryMaxImageSize > 0 {
				maxSize = limits.StoryMaxImageSize
			}
			if maxSize > 0 && m.FileSize > maxSize {
				return fmt.Errorf("image %s exceeds the %s size limit", fileName(m.FileURL), formatSize(maxSize))
			}
		case utils.IsVideoType(m.FileType):
			if len(limits.AllowedVideoTypes) > 0 && !contains(limits.AllowedVideoTypes, m.FileType) {
				return fmt.Errorf("%s does not accept %s videos", post.Platform, m.FileType)
			}
			maxSize := limits.MaxVideoSize
			if isStory && limits.StoryMaxVideoSize > 0 {
				maxSize = limits.StoryMaxVideoSize
			}
			if isReel && limits.ReelMaxVideoSize > 0 {
				maxSize = limits.ReelMaxVideoSize
			}
			if maxSize > 0 && m.FileSize > maxSize {
				return fmt.Errorf("video %s exceeds the %s size limit", fileName(m.FileURL), formatSize(maxSize))
			}
		default:
			return fmt.Errorf("unsupported media type %s", m.FileType)
		}
	}
	return nil
}

// checkPlatformRules holds the structural requirements the generic limits
// table cannot express.
func (v *PostValidator) checkPlatformRules(post *models.Post) error {
	images, videos := 0, 0
	for _, m := range post.Media {
		if utils.IsVideoType(m.FileType) {
			videos++
		} else {
			images++
		}
	}

	switch post.Platform {
	case models.PlatformYouTube:
		if videos != 1 || images > 0 {
			return fmt.Errorf("YouTube posts require exactly one video")
		}
		if strings.TrimSpace(post.VideoTitle) == "" {
			return fmt.Errorf("YouTube posts require a video title")
		}
	case models.PlatformInstagram:
		switch {
		case post.IsIGStory:
			if len(post.Media) != 1 {
				return fmt.Errorf("Instagram stories require exactly one media file")
			}
		case post.IsIGReel:
			if videos != 1 || images > 0 {
				return fmt.Errorf("Instagram reels require exactly one video")
			}
		default:
			if len(post.Media) == 0 {
				return fmt.Errorf("Instagram posts require at least one media file")
			}
			if len(post.Media) > 1 && videos > 0 {
				return fmt.Errorf("Instagram carousels can only contain images")
			}
		}
	case models.PlatformFacebook:
		if post.IsStory && len(post.Media) == 0 {
			return fmt.Errorf("Facebook stories require an image or video")
		}
		if post.IsReel && videos != 1 {
			return fmt.Errorf("Facebook reels require exactly one video")
		}
	}
	return nil
}

// ContentCheck is the per-platform result of a dry-run length validation.
type ContentCheck struct {
	Platform string `json:"platform"`
	Length   int    `json:"length"`
	Limit    int    `json:"limit"`
	Valid    bool   `json:"valid"`
	Warning  string `json:"warning,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ValidateContent reports the stripped-content length against each requested
// platform's limit, warning when usage passes 90%.
func (v *PostValidator) ValidateContent(content string, platforms []string) []ContentCheck {
	stripped := utils.StripHTML(content)
	length := len([]rune(stripped))

	checks := make([]ContentCheck, 0, len(platforms))
	for _, platform := range platforms {
		limits, err := v.registry.LimitsFor(platform)
		if err != nil {
			checks = append(checks, ContentCheck{Platform: platform, Length: length, Error: err.Error()})
			continue
		}
		check := ContentCheck{
			Platform: platform,
			Length:   length,
			Limit:    limits.MaxContentLength,
			Valid:    length <= limits.MaxContentLength,
		}
		switch {
		case !check.Valid:
			check.Error = fmt.Sprintf("content exceeds the %d character limit", limits.MaxContentLength)
		case length*10 > limits.MaxContentLength*9:
			check.Warning = fmt.Sprintf("content is over 90%% of the %d character limit", limits.MaxContentLength)
		}
		checks = append(checks, check)
	}
	return checks
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func fileName(fileURL string) string {
	if idx := strings.LastIndex(fileURL, "/"); idx >= 0 {
		return fileURL[idx+1:]
	}
	return fileURL
}

func formatSize(bytes int64) string {
	const (
		mb = 1024 * 1024
		gb = 1024 * mb
	)
	if bytes >= gb {
		return fmt.Sprintf("%dGB", bytes/gb)
	}
	return fmt.Sprintf("%dMB", bytes/mb)
}
