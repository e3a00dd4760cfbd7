package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron"

	"github.com/maheshrc27/socialflow/internal/queue"
	"github.com/maheshrc27/socialflow/internal/ratelimit"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/service"
)

// Jobs are the periodic sweeps. Each sweep only enumerates due work and
// enqueues one deduplicated task per entity; the worker does the real work,
// so a slow publish never delays the next sweep tick.
type Jobs struct {
	client    *asynq.Client
	posts     repository.PostRepository
	tokens    *service.TokenService
	analytics *service.AnalyticsService
	limiter   *ratelimit.Limiter
}

func NewJobs(
	client *asynq.Client,
	posts repository.PostRepository,
	tokens *service.TokenService,
	analytics *service.AnalyticsService,
	limiter *ratelimit.Limiter) *Jobs {
	return &Jobs{
		client:    client,
		posts:     posts,
		tokens:    tokens,
		analytics: analytics,
		limiter:   limiter,
	}
}

// Register attaches every sweep to the cron scheduler.
func (j *Jobs) Register(c *cron.Cron) error {
	if err := c.AddFunc("0 * * * * *", j.PublishScheduledPosts); err != nil {
		return err
	}
	if err := c.AddFunc("@hourly", j.RefreshExpiringTokens); err != nil {
		return err
	}
	if err := c.AddFunc("@hourly", j.FetchDailyAnalytics); err != nil {
		return err
	}
	if err := c.AddFunc("@hourly", j.FetchPostAnalyticsSweep); err != nil {
		return err
	}
	return c.AddFunc("0 0 0 * * *", j.ResetRateLimitCounters)
}

// PublishScheduledPosts enqueues every due Scheduled post.
func (j *Jobs) PublishScheduledPosts() {
	ctx := context.Background()
	posts, err := j.posts.ListDue(ctx, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	for _, post := range posts {
		if err := queue.EnqueuePublishPost(j.client, post.ID); err != nil {
			slog.Info(fmt.Sprintf("could not enqueue publish for post %d: %s", post.ID, err.Error()))
		}
	}
}

// RefreshExpiringTokens enqueues a refresh for every token inside the
// expiry window.
func (j *Jobs) RefreshExpiringTokens() {
	ctx := context.Background()
	integrations, err := j.tokens.ListExpiring(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	for _, integ := range integrations {
		if err := queue.EnqueueRefreshToken(j.client, integ.ID); err != nil {
			slog.Info(fmt.Sprintf("could not enqueue token refresh for integration %d: %s", integ.ID, err.Error()))
		}
	}
}

// FetchDailyAnalytics enqueues an account-metrics pull for every connected
// integration.
func (j *Jobs) FetchDailyAnalytics() {
	ctx := context.Background()
	integrations, err := j.analytics.ListConnectedIntegrations(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	for _, integ := range integrations {
		if err := queue.EnqueueAccountMetrics(j.client, integ.ID); err != nil {
			slog.Info(fmt.Sprintf("could not enqueue analytics for integration %d: %s", integ.ID, err.Error()))
		}
	}
}

// FetchPostAnalyticsSweep enqueues metric pulls for recently published posts.
func (j *Jobs) FetchPostAnalyticsSweep() {
	ctx := context.Background()
	posts, err := j.analytics.ListPostsForSweep(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	for _, post := range posts {
		if err := queue.EnqueuePostMetrics(j.client, post.ID, post.Platform); err != nil {
			slog.Info(fmt.Sprintf("could not enqueue post analytics for post %d: %s", post.ID, err.Error()))
		}
	}
}

// ResetRateLimitCounters runs at midnight.
func (j *Jobs) ResetRateLimitCounters() {
	if err := j.limiter.ResetDailyCounters(context.Background()); err != nil {
		slog.Info(err.Error())
	}
}
