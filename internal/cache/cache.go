package cache

import (
	"context"
	"fmt"
	"time"

	"restopos/backend/internal/domain"
)

// SummaryCache stores computed report summaries. Keys embed a per-restaurant
// revision so that bumping the revision invalidates every cached range.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.Summary, bool, error)
	Set(ctx context.Context, key string, value *domain.Summary, ttl time.Duration) error
	Revision(ctx context.Context, restaurantID string) (int64, error)
	Bump(ctx context.Context, restaurantID string) error
}

func SummaryKey(restaurantID string, revision int64, from string, to string) string {
	return fmt.Sprintf("restopos:summary:%s:r%d:%s:%s", restaurantID, revision, from, to)
}

func revisionKey(restaurantID string) string {
	return "restopos:summary-rev:" + restaurantID
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.Summary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.Summary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Revision(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

func (NoopSummaryCache) Bump(_ context.Context, _ string) error {
	return nil
}
