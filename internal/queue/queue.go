package queue

import (
	"github.com/maheshrc27/socialflow/internal/service"
)

// Task types routed through asynq.
const (
	TaskTypePublishPost    = "post:publish"
	TaskTypeRefreshToken   = "token:refresh"
	TaskTypeAccountMetrics = "analytics:account"
	TaskTypePostMetrics    = "analytics:post"
)

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

type RefreshTokenPayload struct {
	IntegrationID int64 `json:"integration_id"`
}

type AccountMetricsPayload struct {
	IntegrationID int64 `json:"integration_id"`
}

type PostMetricsPayload struct {
	PostID   int64  `json:"post_id"`
	Platform string `json:"platform"`
}

// Queue carries the services the worker handlers dispatch into.
type Queue struct {
	posts     *service.PostService
	tokens    *service.TokenService
	analytics *service.AnalyticsService
}

func NewQueue(posts *service.PostService, tokens *service.TokenService, analytics *service.AnalyticsService) *Queue {
	return &Queue{posts: posts, tokens: tokens, analytics: analytics}
}
