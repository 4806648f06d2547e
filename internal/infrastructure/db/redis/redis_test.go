package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Addr: addr, DB: 15, Timeout: 2 * time.Second})
	if err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestViewDedup_FirstViewOnly(t *testing.T) {
	d := NewViewDedup(testClient(t))
	ctx := context.Background()
	ev := domain.ViewEvent{Kind: domain.ResourcePost, ResourceID: "p1", ViewerKey: "alice"}

	first, err := d.MarkViewed(ctx, ev)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = d.MarkViewed(ctx, ev)
	require.NoError(t, err)
	assert.False(t, first)

	ev.ViewerKey = "bob"
	first, err = d.MarkViewed(ctx, ev)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestPolicyStore_SaveLoadAndBroadcast(t *testing.T) {
	client := testClient(t)
	store := NewPolicyStore(client, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, m)

	got := make(chan domain.Matrix, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = store.Subscribe(ctx, func(m domain.Matrix) { got <- m })
	}()
	<-ready
	// give the subscription time to register before publishing
	time.Sleep(100 * time.Millisecond)

	want := domain.Matrix{domain.PermWriteCommunity: {domain.RoleAdmin}}
	require.NoError(t, store.Save(ctx, want))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, loaded)

	select {
	case m := <-got:
		assert.Equal(t, want, m)
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}
}
