package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

const (
	policyKey     = "policy:permission_matrix"
	policyChannel = "policy:permission_matrix:updates"
)

// PolicyStore keeps the permission matrix in a Redis key and announces every
// save on a pub/sub channel so other instances can swap it in.
type PolicyStore struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewPolicyStore(client *redis.Client, logger zerolog.Logger) *PolicyStore {
	return &PolicyStore{client: client, logger: logger}
}

func (s *PolicyStore) Load(ctx context.Context) (domain.Matrix, error) {
	raw, err := s.client.Get(ctx, policyKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	var m domain.Matrix
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	return m, nil
}

// Save writes m and publishes it in one transaction.
func (s *PolicyStore) Save(ctx context.Context, m domain.Matrix) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, policyKey, raw, 0)
		pipe.Publish(ctx, policyChannel, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

// Subscribe blocks until ctx is done, handing each decodable snapshot to
// apply. Undecodable messages are logged and skipped.
func (s *PolicyStore) Subscribe(ctx context.Context, apply func(domain.Matrix)) error {
	sub := s.client.Subscribe(ctx, policyChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe policy: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m domain.Matrix
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				s.logger.Warn().Err(err).Msg("discarding undecodable policy update")
				continue
			}
			apply(m)
		}
	}
}
