package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

const viewWindow = time.Hour

// ViewDedup remembers which viewer opened which resource in the current
// window. Key format: views:<kind>:<resource_id>:<viewer>
type ViewDedup struct {
	client *redis.Client
	window time.Duration
}

func NewViewDedup(client *redis.Client) *ViewDedup {
	return &ViewDedup{client: client, window: viewWindow}
}

// MarkViewed records the view and reports whether it was the first one in
// the window. SETNX makes check and mark a single step.
func (d *ViewDedup) MarkViewed(ctx context.Context, ev domain.ViewEvent) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(ev), "1", d.window).Result()
	if err != nil {
		return false, fmt.Errorf("view dedup: %w", err)
	}
	return ok, nil
}

func (d *ViewDedup) key(ev domain.ViewEvent) string {
	return fmt.Sprintf("views:%s:%s:%s", ev.Kind, ev.ResourceID, ev.ViewerKey)
}
