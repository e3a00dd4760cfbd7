package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Handlers return an error only for transient infrastructure faults so asynq
// retries those; domain failures are already persisted on the entity by the
// service, and retrying the task would not change the outcome.

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	outcome := q.posts.PublishPost(ctx, payload.PostID)
	if !outcome.Success {
		slog.Info(fmt.Sprintf("publish task for post %d ended in %s: %s", payload.PostID, outcome.Status, outcome.Error))
	}
	return nil
}

func (q *Queue) HandleRefreshTokenTask(ctx context.Context, task *asynq.Task) error {
	var payload RefreshTokenPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := q.tokens.RefreshIntegrationToken(ctx, payload.IntegrationID); err != nil {
		slog.Info(fmt.Sprintf("token refresh task for integration %d: %s", payload.IntegrationID, err.Error()))
	}
	return nil
}

func (q *Queue) HandleAccountMetricsTask(ctx context.Context, task *asynq.Task) error {
	var payload AccountMetricsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if _, err := q.analytics.FetchAccountAnalytics(ctx, payload.IntegrationID); err != nil {
		slog.Info(fmt.Sprintf("account analytics task for integration %d: %s", payload.IntegrationID, err.Error()))
	}
	return nil
}

func (q *Queue) HandlePostMetricsTask(ctx context.Context, task *asynq.Task) error {
	var payload PostMetricsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if _, err := q.analytics.FetchPostAnalytics(ctx, payload.PostID); err != nil {
		slog.Info(fmt.Sprintf("post analytics task for post %d: %s", payload.PostID, err.Error()))
	}
	return nil
}

// Mux wires the task types to their handlers.
func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, q.HandlePublishPostTask)
	mux.HandleFunc(TaskTypeRefreshToken, q.HandleRefreshTokenTask)
	mux.HandleFunc(TaskTypeAccountMetrics, q.HandleAccountMetricsTask)
	mux.HandleFunc(TaskTypePostMetrics, q.HandlePostMetricsTask)
	return mux
}
