package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialflow/internal/models"
)

func jpeg(size int64) *models.PostMedia {
	return &models.PostMedia{FileURL: "https://cdn.example.com/a.jpg", FileType: "image/jpeg", FileSize: size}
}

func mp4(size int64) *models.PostMedia {
	return &models.PostMedia{FileURL: "https://cdn.example.com/a.mp4", FileType: "video/mp4", FileSize: size}
}

func TestValidateModeExclusivity(t *testing.T) {
	v := NewPostValidator(testRegistry())

	err := v.Validate(&models.Post{
		Platform: models.PlatformFacebook,
		IsPost:   true,
		IsReel:   true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one option")

	err = v.Validate(&models.Post{
		Platform:  models.PlatformInstagram,
		IsIGReel:  true,
		IsIGStory: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one option")
}

func TestValidateAppliesModeDefaults(t *testing.T) {
	v := NewPostValidator(testRegistry())

	post := &models.Post{
		Platform: models.PlatformInstagram,
		Content:  "caption",
		Media:    []*models.PostMedia{jpeg(1024)},
	}
	require.NoError(t, v.Validate(post))
	assert.True(t, post.IsIGPost)
}

func TestValidateContentLength(t *testing.T) {
	v := NewPostValidator(testRegistry())

	tests := []struct {
		platform string
		limit    int
	}{
		{models.PlatformTwitter, 280},
		{models.PlatformInstagram, 2200},
		{models.PlatformLinkedIn, 3000},
		{models.PlatformFacebook, 63206},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			post := &models.Post{
				Platform: tt.platform,
				Content:  strings.Repeat("x", tt.limit+1),
			}
			if tt.platform == models.PlatformInstagram {
				post.Media = []*models.PostMedia{jpeg(1024)}
			}
			err := v.Validate(post)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "character limit")
		})
	}
}

func TestValidateCountsRunesNotBytes(t *testing.T) {
	v := NewPostValidator(testRegistry())

	// 280 multibyte runes are within Twitter's limit even though the byte
	// count is far larger.
	post := &models.Post{
		Platform: models.PlatformTwitter,
		Content:  strings.Repeat("é", 280),
	}
	assert.NoError(t, v.Validate(post))
}

func TestValidateStripsMarkupBeforeCounting(t *testing.T) {
	v := NewPostValidator(testRegistry())

	// Markup inflates the raw string past the limit; the stripped text fits.
	post := &models.Post{
		Platform: models.PlatformTwitter,
		Content:  "<p>" + strings.Repeat("<strong>a</strong>", 250) + "</p>",
	}
	assert.NoError(t, v.Validate(post))
}

func TestValidateRepairsJpgMimeType(t *testing.T) {
	v := NewPostValidator(testRegistry())

	post := &models.Post{
		Platform: models.PlatformInstagram,
		Content:  "caption",
		Media: []*models.PostMedia{
			{FileURL: "https://cdn.example.com/pic.jpg", FileType: "image/jpg", FileSize: 1024},
		},
	}
	require.NoError(t, v.Validate(post))
	assert.Equal(t, "image/jpeg", post.Media[0].FileType)
}

func TestValidateInfersMissingMimeType(t *testing.T) {
	v := NewPostValidator(testRegistry())

	post := &models.Post{
		Platform: models.PlatformFacebook,
		Media: []*models.PostMedia{
			{FileURL: "https://cdn.example.com/clip.mp4", FileSize: 1024},
		},
	}
	require.NoError(t, v.Validate(post))
	assert.Equal(t, "video/mp4", post.Media[0].FileType)
}

func TestValidateTextOnlyPlatformsRejectMedia(t *testing.T) {
	v := NewPostValidator(testRegistry())

	for _, platform := range []string{models.PlatformTwitter, models.PlatformLinkedIn} {
		t.Run(platform, func(t *testing.T) {
			err := v.Validate(&models.Post{
				Platform: platform,
				Content:  "text",
				Media:    []*models.PostMedia{jpeg(1024)},
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "cannot include media")
		})
	}
}

func TestValidateMediaRules(t *testing.T) {
	v := NewPostValidator(testRegistry())

	t.Run("media count cap", func(t *testing.T) {
		post := &models.Post{Platform: models.PlatformFacebook}
		for i := 0; i < 11; i++ {
			post.Media = append(post.Media, jpeg(1024))
		}
		err := v.Validate(post)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at most 10 media files")
	})

	t.Run("single video only", func(t *testing.T) {
		post := &models.Post{
			Platform: models.PlatformFacebook,
			Media:    []*models.PostMedia{mp4(1024), mp4(1024)},
		}
		err := v.Validate(post)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only one video")
	})

	t.Run("instagram rejects png", func(t *testing.T) {
		post := &models.Post{
			Platform: models.PlatformInstagram,
			Media: []*models.PostMedia{
				{FileURL: "https://cdn.example.com/a.png", FileType: "image/png", FileSize: 1024},
			},
		}
		err := v.Validate(post)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not accept image/png images")
	})

	t.Run("missing file size cannot dodge the caps", func(t *testing.T) {
		post := &models.Post{
			Platform: models.PlatformInstagram,
			Media: []*models.PostMedia{
				{FileURL: "https://cdn.example.com/a.jpg", FileType: "image/jpeg"},
			},
		}
		err := v.Validate(post)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing its file size")
	})

	t.Run("image size cap", func(t *testing.T) {
		post := &models.Post{
			Platform: models.PlatformInstagram,
			Media:    []*models.PostMedia{jpeg(9 * 1024 * 1024)},
		}
		err := v.Validate(post)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "8MB size limit")
	})

	t.Run("reel gets larger video budget", func(t *testing.T) {
		post := &models.Post{
			Platform: models.PlatformInstagram,
			IsIGReel: true,
			Media:    []*models.PostMedia{mp4(500 * 1024 * 1024)},
		}
		assert.NoError(t, v.Validate(post), "500MB fits the 1GB reel cap even though feed videos stop at 100MB")
	})
}

func TestValidatePlatformStructureRules(t *testing.T) {
	v := NewPostValidator(testRegistry())

	t.Run("youtube requires one video", func(t *testing.T) {
		err := v.Validate(&models.Post{
			Platform:   models.PlatformYouTube,
			VideoTitle: "title",
			Media:      []*models.PostMedia{jpeg(1024)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one video")
	})

	t.Run("youtube requires a title", func(t *testing.T) {
		err := v.Validate(&models.Post{
			Platform: models.PlatformYouTube,
			Media:    []*models.PostMedia{mp4(1024)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "video title")
	})

	t.Run("instagram story takes exactly one media", func(t *testing.T) {
		err := v.Validate(&models.Post{
			Platform:  models.PlatformInstagram,
			IsIGStory: true,
			Media:     []*models.PostMedia{jpeg(1024), jpeg(1024)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one media file")
	})

	t.Run("instagram feed post needs media", func(t *testing.T) {
		err := v.Validate(&models.Post{
			Platform: models.PlatformInstagram,
			Content:  "caption",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one media file")
	})

	t.Run("instagram carousel is images only", func(t *testing.T) {
		err := v.Validate(&models.Post{
			Platform: models.PlatformInstagram,
			Media:    []*models.PostMedia{jpeg(1024), mp4(1024)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only contain images")
	})

	t.Run("facebook reel needs a video", func(t *testing.T) {
		err := v.Validate(&models.Post{
			Platform: models.PlatformFacebook,
			IsReel:   true,
			Media:    []*models.PostMedia{jpeg(1024)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one video")
	})
}

func TestValidateCTARules(t *testing.T) {
	v := NewPostValidator(testRegistry())

	t.Run("cta requires a link", func(t *testing.T) {
		err := v.Validate(&models.Post{
			Platform: models.PlatformFacebook,
			IsPost:   true,
			Content:  "text",
			CTA:      "Learn More",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "require a link")
	})

	t.Run("cta only on regular posts", func(t *testing.T) {
		err := v.Validate(&models.Post{
			Platform: models.PlatformFacebook,
			IsStory:  true,
			Media:    []*models.PostMedia{jpeg(1024)},
			CTA:      "Shop Now",
			Link:     "https://example.com",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only available on regular posts")
	})

	t.Run("cta with link on a post passes", func(t *testing.T) {
		assert.NoError(t, v.Validate(&models.Post{
			Platform: models.PlatformFacebook,
			IsPost:   true,
			Content:  "text",
			CTA:      "Learn More",
			Link:     "https://example.com",
		}))
	})
}

func TestValidateContentChecks(t *testing.T) {
	v := NewPostValidator(testRegistry())

	t.Run("per-platform results", func(t *testing.T) {
		content := strings.Repeat("a", 300)
		checks := v.ValidateContent(content, []string{models.PlatformTwitter, models.PlatformLinkedIn})
		require.Len(t, checks, 2)

		assert.False(t, checks[0].Valid)
		assert.Contains(t, checks[0].Error, "280 character limit")
		assert.True(t, checks[1].Valid)
		assert.Empty(t, checks[1].Warning)
	})

	t.Run("warning above 90 percent", func(t *testing.T) {
		checks := v.ValidateContent(strings.Repeat("a", 270), []string{models.PlatformTwitter})
		require.Len(t, checks, 1)
		assert.True(t, checks[0].Valid)
		assert.Contains(t, checks[0].Warning, "90%")
	})

	t.Run("unknown platform reported inline", func(t *testing.T) {
		checks := v.ValidateContent("hi", []string{"Myspace"})
		require.Len(t, checks, 1)
		assert.Contains(t, checks[0].Error, "unknown platform")
	})
}
