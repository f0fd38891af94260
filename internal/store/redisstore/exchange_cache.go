package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viVeK21111/chatgpt-clone/internal/chat"
)

const versionTTL = 24 * time.Hour

// setIfVersion writes the list only while the session version still equals
// ARGV[1]. A missing version counts as 0.
var setIfVersion = redis.NewScript(`
local v = redis.call('GET', KEYS[2])
if not v then v = '0' end
if v ~= ARGV[1] then
    return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func exchangesKey(sessionID string) string {
	return "chat:exchanges:" + sessionID
}

func exchangesVersionKey(sessionID string) string {
	return "chat:exchanges:ver:" + sessionID
}

func parseVersion(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected version type %T", v)
	}
}

// GetExchanges returns the cached list and the version it belongs to. On a
// miss the version is still reported so the caller can fill the entry.
func (s *Store) GetExchanges(ctx context.Context, sessionID string) ([]chat.Exchange, int64, bool, error) {
	vals, err := s.Client.MGet(ctx, exchangesKey(sessionID), exchangesVersionKey(sessionID)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get exchanges failed: %w", err)
	}
	if len(vals) != 2 {
		return nil, 0, false, errors.New("redis get exchanges: short reply")
	}
	version, err := parseVersion(vals[1])
	if err != nil {
		return nil, 0, false, fmt.Errorf("parse exchanges version failed: %w", err)
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, version, false, nil
	}
	var exchanges []chat.Exchange
	if err := json.Unmarshal([]byte(raw), &exchanges); err != nil {
		return nil, 0, false, fmt.Errorf("unmarshal cached exchanges failed: %w", err)
	}
	return exchanges, version, true, nil
}

// SetExchanges stores the list unless an insert has bumped the version
// since it was read.
func (s *Store) SetExchanges(ctx context.Context, sessionID string, version int64, exchanges []chat.Exchange) error {
	payload, err := json.Marshal(exchanges)
	if err != nil {
		return fmt.Errorf("marshal exchanges failed: %w", err)
	}
	keys := []string{exchangesKey(sessionID), exchangesVersionKey(sessionID)}
	if err := setIfVersion.Run(ctx, s.Client, keys, version, payload, s.cacheTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis set exchanges failed: %w", err)
	}
	return nil
}

func (s *Store) InvalidateExchanges(ctx context.Context, sessionID string) error {
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, exchangesVersionKey(sessionID))
		pipe.Expire(ctx, exchangesVersionKey(sessionID), versionTTL)
		pipe.Del(ctx, exchangesKey(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate exchanges failed: %w", err)
	}
	return nil
}
