package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// Enqueue helpers. Each task carries a deterministic TaskID so asynq keeps
// at most one in-flight job per entity; a duplicate enqueue from an
// overlapping sweep is dropped silently.

func enqueue(client *asynq.Client, taskType string, payload any, taskID string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskType, data)
	_, err = client.Enqueue(task, asynq.TaskID(taskID))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func EnqueuePublishPost(client *asynq.Client, postID int64) error {
	return enqueue(client, TaskTypePublishPost,
		PublishPostPayload{PostID: postID},
		fmt.Sprintf("publish_post:%d", postID))
}

func EnqueueRefreshToken(client *asynq.Client, integrationID int64) error {
	return enqueue(client, TaskTypeRefreshToken,
		RefreshTokenPayload{IntegrationID: integrationID},
		fmt.Sprintf("refresh_token:%d", integrationID))
}

func EnqueueAccountMetrics(client *asynq.Client, integrationID int64) error {
	return enqueue(client, TaskTypeAccountMetrics,
		AccountMetricsPayload{IntegrationID: integrationID},
		fmt.Sprintf("analytics_fetch:%d", integrationID))
}

func EnqueuePostMetrics(client *asynq.Client, postID int64, platform string) error {
	return enqueue(client, TaskTypePostMetrics,
		PostMetricsPayload{PostID: postID, Platform: platform},
		fmt.Sprintf("post_analytics_fetch:%d:%s", postID, platform))
}
