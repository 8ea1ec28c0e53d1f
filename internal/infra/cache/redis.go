// Package cache は商品一覧のキャッシュ。REDIS_ADDRが無ければNoopを使う。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/go-redis/redis/v8"
)

const (
	catalogKey    = "catalog:products"
	generationKey = "catalog:products:gen"
)

type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// 接続確認までして返す
func NewRedisCatalogCache(ctx context.Context, addr, password string, ttl time.Duration) (*RedisCatalogCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCatalogCacheFromClient(client, ttl), nil
}

func NewRedisCatalogCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{client: client, ttl: ttl}
}

var _ repo.CatalogCache = (*RedisCatalogCache)(nil)

func (c *RedisCatalogCache) GetProducts(ctx context.Context) ([]model.Product, bool, error) {
	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []model.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		// 壊れた値は捨ててミス扱い
		_ = c.client.Del(ctx, catalogKey).Err()
		return nil, false, nil
	}
	return products, true, nil
}

func (c *RedisCatalogCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// 世代キーをWATCHして、読んだ後にInvalidateが入っていたら書かない
func (c *RedisCatalogCache) SetProducts(ctx context.Context, products []model.Product, gen int64) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, catalogKey, raw, c.ttl)
			return nil
		})
		return err
	}, generationKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, catalogKey)
		return nil
	})
	return err
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

// キャッシュ無し
type NoopCatalogCache struct{}

func (NoopCatalogCache) GetProducts(ctx context.Context) ([]model.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Generation(ctx context.Context) (int64, error) {
	return 0, nil
}

func (NoopCatalogCache) SetProducts(ctx context.Context, products []model.Product, gen int64) error {
	return nil
}

func (NoopCatalogCache) Invalidate(ctx context.Context) error {
	return nil
}
