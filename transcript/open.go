package transcript

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/transcript/redisstore"
	"github.com/hupe1980/agentchat/transcript/sqlstore"
)

// Store is a TranscriptStore owning resources that must be released.
type Store interface {
	core.TranscriptStore
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*redisstore.Store)(nil)
	_ Store = (*sqlstore.Store)(nil)
)

// Open selects a backend from cfg. Type "none" (or empty) returns a nil Store
// and no error, meaning transcripts are not persisted.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		s, err := redisstore.Dial(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sql":
		s, err := sqlstore.Open(cfg.SQL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
