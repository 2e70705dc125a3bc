package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client обертка над redis.Client; все ключи получают префикс установки
type Client struct {
	client *redis.Client
	prefix string
}

// Config конфигурация для подключения к Redis
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewClient создает новый Redis клиент и проверяет подключение
func NewClient(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return Wrap(rdb, cfg.KeyPrefix), nil
}

// Wrap оборачивает готовый redis.Client
func Wrap(rdb *redis.Client, prefix string) *Client {
	return &Client{client: rdb, prefix: prefix}
}

// Key возвращает полное имя ключа с префиксом
func (c *Client) Key(key string) string {
	return c.prefix + key
}

// Ping проверяет подключение к Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set устанавливает значение с TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.client.Set(ctx, c.Key(key), value, ttl).Err()
}

// Get получает значение по ключу; промах - redis.Nil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.Key(key)).Result()
}

// Del удаляет ключи
func (c *Client) Del(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.Key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// Close закрывает подключение
func (c *Client) Close() error {
	return c.client.Close()
}
