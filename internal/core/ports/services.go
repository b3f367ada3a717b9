package ports

import (
	"context"

	"github.com/folimar/solkat/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishDatasetUpdated(ctx context.Context, v *domain.DatasetVersion) error
	PublishIngestProgress(ctx context.Context, slug string, rows int64) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeDatasetUpdated(ctx context.Context, handler func(ctx context.Context, v *domain.DatasetVersion) error) error
}

// DependencyLog records which input dataset versions a derived artifact
// was last built from, so a rebuild can be skipped when nothing moved.
type DependencyLog interface {
	Read(ctx context.Context, slug string) (map[string]string, error)
	Write(ctx context.Context, slug string, versions map[string]string) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
