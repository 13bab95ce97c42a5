// Package redisstore implements core.TranscriptStore on Redis. Each
// conversation is a list of JSON encoded messages plus a termination key.
package redisstore

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ core.TranscriptStore = (*Store)(nil)

// Options configures a Store.
type Options struct {
	// KeyPrefix namespaces all keys. Defaults to "agentchat".
	KeyPrefix string
	// TTL expires a transcript after its last write. 0 keeps it forever.
	TTL time.Duration
}

// Store is a Redis backed transcript store.
type Store struct {
	client redis.UniversalClient
	opts   Options
	owned  bool
}

// New wraps an existing client. Close does not close it.
func New(client redis.UniversalClient, optFns ...func(o *Options)) *Store {
	opts := Options{KeyPrefix: "agentchat"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, opts: opts}
}

// Dial connects to the server described by cfg and verifies the connection.
func Dial(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := New(client, func(o *Options) {
		if cfg.KeyPrefix != "" {
			o.KeyPrefix = cfg.KeyPrefix
		}
		o.TTL = cfg.TTL
	})
	s.owned = true

	return s, nil
}

func (s *Store) messagesKey(id string) string {
	return s.opts.KeyPrefix + ":conversation:" + id + ":messages"
}

func (s *Store) terminatedKey(id string) string {
	return s.opts.KeyPrefix + ":conversation:" + id + ":terminated"
}

// Append implements core.TranscriptStore.
func (s *Store) Append(ctx context.Context, conversationID string, msg core.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.messagesKey(conversationID), data)
	if s.opts.TTL > 0 {
		pipe.Expire(ctx, s.messagesKey(conversationID), s.opts.TTL)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Load implements core.TranscriptStore.
func (s *Store) Load(ctx context.Context, conversationID string) ([]core.Message, error) {
	raw, err := s.client.LRange(ctx, s.messagesKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]core.Message, 0, len(raw))
	for i, r := range raw {
		var msg core.Message
		if err := json.Unmarshal([]byte(r), &msg); err != nil {
			return nil, fmt.Errorf("decode message %d of %s: %w", i, conversationID, err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

// MarkTerminated implements core.TranscriptStore.
func (s *Store) MarkTerminated(ctx context.Context, conversationID string) error {
	return s.client.Set(ctx, s.terminatedKey(conversationID), "1", s.opts.TTL).Err()
}

// Terminated implements core.TranscriptStore.
func (s *Store) Terminated(ctx context.Context, conversationID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.terminatedKey(conversationID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Ping checks if the store is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client when it was created by Dial.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
