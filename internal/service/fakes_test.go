package service

import (
	"context"
	"sort"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/providers"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

// In-memory repository fakes backing the service tests. They copy semantics
// from the SQL implementations: absent rows read as (nil, nil), timestamps
// are set on write.

type memPostRepo struct {
	nextID int64
	posts  map[int64]*models.Post
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{nextID: 1, posts: make(map[int64]*models.Post)}
}

func (r *memPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *memPostRepo) List(ctx context.Context, status string) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.posts {
		if status == "" || p.Status == status {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memPostRepo) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledTime != nil && !p.ScheduledTime.After(now) {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memPostRepo) ListPublishedSince(ctx context.Context, since time.Time) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusPublished && p.PlatformPostID != "" &&
			p.PublishedTime != nil && !p.PublishedTime.Before(since) {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memPostRepo) Create(ctx context.Context, post *models.Post) (int64, error) {
	id := r.nextID
	r.nextID++
	clone := *post
	clone.ID = id
	clone.CreatedAt = time.Now()
	r.posts[id] = &clone
	return id, nil
}

func (r *memPostRepo) Update(ctx context.Context, post *models.Post) error {
	clone := *post
	clone.UpdatedAt = time.Now()
	r.posts[post.ID] = &clone
	return nil
}

func (r *memPostRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	if p, ok := r.posts[id]; ok {
		p.Status = status
	}
	return nil
}

func (r *memPostRepo) SetPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	if p, ok := r.posts[id]; ok {
		p.Status = models.PostStatusPublished
		p.PlatformPostID = platformPostID
		p.PublishedTime = &publishedAt
		p.ErrorLog = ""
	}
	return nil
}

func (r *memPostRepo) SetFailure(ctx context.Context, id int64, status, errorLog string, retryCount int) error {
	if p, ok := r.posts[id]; ok {
		p.Status = status
		p.ErrorLog = errorLog
		p.RetryCount = retryCount
	}
	return nil
}

func (r *memPostRepo) Remove(ctx context.Context, id int64) error {
	delete(r.posts, id)
	return nil
}

type memMediaRepo struct {
	nextID int64
	media  map[int64][]*models.PostMedia
}

func newMemMediaRepo() *memMediaRepo {
	return &memMediaRepo{nextID: 1, media: make(map[int64][]*models.PostMedia)}
}

func (r *memMediaRepo) GetByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	rows := r.media[postID]
	out := make([]*models.PostMedia, 0, len(rows))
	for _, m := range rows {
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r *memMediaRepo) Create(ctx context.Context, media *models.PostMedia) (int64, error) {
	id := r.nextID
	r.nextID++
	clone := *media
	clone.ID = id
	r.media[media.PostID] = append(r.media[media.PostID], &clone)
	return id, nil
}

func (r *memMediaRepo) Update(ctx context.Context, media *models.PostMedia) error {
	for i, m := range r.media[media.PostID] {
		if m.ID == media.ID {
			clone := *media
			r.media[media.PostID][i] = &clone
		}
	}
	return nil
}

func (r *memMediaRepo) RemoveByPostID(ctx context.Context, postID int64) error {
	delete(r.media, postID)
	return nil
}

type memIntegrationRepo struct {
	nextID       int64
	integrations map[int64]*models.Integration
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{nextID: 1, integrations: make(map[int64]*models.Integration)}
}

func (r *memIntegrationRepo) add(integ *models.Integration) *models.Integration {
	if integ.ID == 0 {
		integ.ID = r.nextID
		r.nextID++
	}
	r.integrations[integ.ID] = integ
	return integ
}

func (r *memIntegrationRepo) GetByID(ctx context.Context, id int64) (*models.Integration, error) {
	i, ok := r.integrations[id]
	if !ok {
		return nil, nil
	}
	clone := *i
	return &clone, nil
}

func (r *memIntegrationRepo) GetByPlatformProfile(ctx context.Context, platform, profileID string) (*models.Integration, error) {
	for _, i := range r.integrations {
		if i.Platform == platform && i.ProfileID == profileID {
			clone := *i
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memIntegrationRepo) List(ctx context.Context) ([]*models.Integration, error) {
	var out []*models.Integration
	for _, i := range r.integrations {
		clone := *i
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memIntegrationRepo) ListConnected(ctx context.Context) ([]*models.Integration, error) {
	var out []*models.Integration
	for _, i := range r.integrations {
		if i.Enabled && i.ConnectionStatus == models.ConnectionConnected {
			clone := *i
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memIntegrationRepo) ListExpiringSoon(ctx context.Context, days int) ([]*models.Integration, error) {
	cutoff := time.Now().AddDate(0, 0, days)
	var out []*models.Integration
	for _, i := range r.integrations {
		if i.TokenExpiry != nil && i.TokenExpiry.Before(cutoff) {
			clone := *i
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memIntegrationRepo) Create(ctx context.Context, integ *models.Integration) (int64, error) {
	clone := *integ
	return r.add(&clone).ID, nil
}

func (r *memIntegrationRepo) Update(ctx context.Context, integ *models.Integration) error {
	clone := *integ
	r.integrations[integ.ID] = &clone
	return nil
}

func (r *memIntegrationRepo) UpdateFollowersCount(ctx context.Context, id, followers int64) error {
	if i, ok := r.integrations[id]; ok {
		i.FollowersCount = followers
	}
	return nil
}

func (r *memIntegrationRepo) Remove(ctx context.Context, id int64) error {
	delete(r.integrations, id)
	return nil
}

// stubProvider answers publish and analytics calls with canned results.
type stubProvider struct {
	platform       string
	limits         providers.Limits
	publishResult  providers.PublishResult
	accountResult  providers.AnalyticsResult
	postResult     providers.AnalyticsResult
	refreshResult  providers.TokenRefreshResult
	publishCalls   int
	lastRequest    providers.PublishRequest
	panicOnPublish bool
}

func (s *stubProvider) Platform() string         { return s.platform }
func (s *stubProvider) Limits() providers.Limits { return s.limits }
func (s *stubProvider) DailyLimit() int          { return 100 }

func (s *stubProvider) PublishPost(ctx context.Context, integ *models.Integration, req providers.PublishRequest) providers.PublishResult {
	s.publishCalls++
	s.lastRequest = req
	if s.panicOnPublish {
		panic("provider blew up")
	}
	return s.publishResult
}

func (s *stubProvider) FetchAccountAnalytics(ctx context.Context, integ *models.Integration) providers.AnalyticsResult {
	return s.accountResult
}

func (s *stubProvider) FetchPostAnalytics(ctx context.Context, platformPostID string, integ *models.Integration) providers.AnalyticsResult {
	return s.postResult
}

func (s *stubProvider) RefreshToken(ctx context.Context, integ *models.Integration) providers.TokenRefreshResult {
	return s.refreshResult
}

type noopLimiter struct{}

func (noopLimiter) Check(ctx context.Context, platform string) (bool, error)   { return true, nil }
func (noopLimiter) Increment(ctx context.Context, platform string) error       { return nil }
func (noopLimiter) CheckAndIncrement(ctx context.Context, platform string) (bool, error) {
	return true, nil
}
func (noopLimiter) CheckAndConsumeQuota(ctx context.Context, units int) (bool, error) {
	return true, nil
}

type stubSettings struct{}

func (stubSettings) Get(ctx context.Context) (*models.Settings, error) {
	return &models.Settings{TwitterTier: "Free"}, nil
}

func testRegistry() *providers.Registry {
	cfg := config.Config{
		Meta: config.MetaApp{APIVersion: "v21.0"},
	}
	store := secrets.NewStore("0123456789abcdef0123456789abcdef")
	return providers.NewRegistry(cfg, store, noopLimiter{}, stubSettings{}, nil)
}
