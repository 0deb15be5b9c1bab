package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher 以 Redis PUBLISH 發布事件
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisPublisher 連接 Redis 並確認可用
func NewRedisPublisher(ctx context.Context, addr, prefix string, logger *slog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MaxRetries:   2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("連接 Redis 失敗: %w", err)
	}

	return &RedisPublisher{client: client, prefix: prefix, logger: logger}, nil
}

// Publish 發布到 <prefix>.<type> channel
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失敗: %w", err)
	}

	receivers, err := p.client.Publish(ctx, Subject(p.prefix, ev.Type), data).Result()
	if err != nil {
		return fmt.Errorf("發布事件失敗: %w", err)
	}

	p.logger.Debug("事件已發布", "type", ev.Type, "room_id", ev.RoomID, "receivers", receivers)
	return nil
}

// Close 關閉連接池
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
