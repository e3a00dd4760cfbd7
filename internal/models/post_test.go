package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStatuses() []string {
	return []string{
		PostStatusDraft,
		PostStatusScheduled,
		PostStatusPublishing,
		PostStatusPublished,
		PostStatusPartiallyPublished,
		PostStatusFailed,
		PostStatusCancelled,
	}
}

func TestTransitionAllowedEdges(t *testing.T) {
	tests := []struct {
		from string
		to   string
	}{
		{PostStatusDraft, PostStatusScheduled},
		{PostStatusDraft, PostStatusPublishing},
		{PostStatusDraft, PostStatusCancelled},
		{PostStatusScheduled, PostStatusPublishing},
		{PostStatusScheduled, PostStatusDraft},
		{PostStatusScheduled, PostStatusCancelled},
		{PostStatusPublishing, PostStatusPublished},
		{PostStatusPublishing, PostStatusPartiallyPublished},
		{PostStatusPublishing, PostStatusFailed},
		{PostStatusPartiallyPublished, PostStatusPublishing},
		{PostStatusFailed, PostStatusScheduled},
		{PostStatusFailed, PostStatusPublishing},
		{PostStatusFailed, PostStatusCancelled},
		{PostStatusCancelled, PostStatusDraft},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			p := &Post{Status: tt.from}
			require.NoError(t, p.Transition(tt.to))
			assert.Equal(t, tt.to, p.Status)
		})
	}
}

func TestTransitionRejectsEverythingElse(t *testing.T) {
	allowed := make(map[string]map[string]bool)
	for from, tos := range ValidTransitions {
		allowed[from] = make(map[string]bool)
		for _, to := range tos {
			allowed[from][to] = true
		}
	}

	for _, from := range allStatuses() {
		for _, to := range allStatuses() {
			if allowed[from][to] {
				continue
			}
			p := &Post{Status: from}
			err := p.Transition(to)
			require.Error(t, err, "expected %s -> %s to be rejected", from, to)
			assert.Equal(t, from, p.Status, "status must not change on a rejected transition")
		}
	}
}

func TestPublishedIsTerminal(t *testing.T) {
	for _, to := range allStatuses() {
		p := &Post{Status: PostStatusPublished}
		assert.False(t, p.CanTransitionTo(to), "Published -> %s must be rejected", to)
	}
}

func TestApplyModeDefaults(t *testing.T) {
	t.Run("instagram defaults to feed post", func(t *testing.T) {
		p := &Post{Platform: PlatformInstagram}
		p.ApplyModeDefaults()
		assert.True(t, p.IsIGPost)
		assert.False(t, p.IsIGReel)
		assert.False(t, p.IsIGStory)
	})

	t.Run("facebook defaults to feed post", func(t *testing.T) {
		p := &Post{Platform: PlatformFacebook}
		p.ApplyModeDefaults()
		assert.True(t, p.IsPost)
	})

	t.Run("explicit mode is kept", func(t *testing.T) {
		p := &Post{Platform: PlatformInstagram, IsIGReel: true}
		p.ApplyModeDefaults()
		assert.False(t, p.IsIGPost)
		assert.True(t, p.IsIGReel)
	})

	t.Run("no defaults for other platforms", func(t *testing.T) {
		p := &Post{Platform: PlatformTwitter}
		p.ApplyModeDefaults()
		assert.False(t, p.IsPost)
		assert.False(t, p.IsIGPost)
	})
}
