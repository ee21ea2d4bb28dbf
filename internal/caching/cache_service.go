package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopcatalog/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CacheService is the read-side cache for catalog views. Misses return
// (nil, nil); failures are for callers to log and ignore, a cache error
// never fails an operation.
type CacheService interface {
	GetCategoryCounts(ctx context.Context) ([]*models.CategoryWithCount, error)
	SetCategoryCounts(ctx context.Context, counts []*models.CategoryWithCount, ttl time.Duration) error

	GetProductDetail(ctx context.Context, productID uuid.UUID) (*models.ProductDetail, error)
	SetProductDetail(ctx context.Context, detail *models.ProductDetail, ttl time.Duration) error
	DeleteProductDetail(ctx context.Context, productID uuid.UUID) error

	InvalidateCatalog(ctx context.Context) error
}

const (
	keyPrefix         = "shopcatalog:"
	categoryCountsKey = keyPrefix + "categories:counts"
	productDetailKey  = keyPrefix + "product:%s"
)

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisCacheService{client: client}
}

func (r *redisCacheService) GetCategoryCounts(ctx context.Context) ([]*models.CategoryWithCount, error) {
	data, err := r.client.Get(ctx, categoryCountsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var counts []*models.CategoryWithCount
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *redisCacheService) SetCategoryCounts(ctx context.Context, counts []*models.CategoryWithCount, ttl time.Duration) error {
	data, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, categoryCountsKey, data, ttl).Err()
}

func (r *redisCacheService) GetProductDetail(ctx context.Context, productID uuid.UUID) (*models.ProductDetail, error) {
	key := fmt.Sprintf(productDetailKey, productID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var detail models.ProductDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *redisCacheService) SetProductDetail(ctx context.Context, detail *models.ProductDetail, ttl time.Duration) error {
	key := fmt.Sprintf(productDetailKey, detail.ID.String())
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteProductDetail(ctx context.Context, productID uuid.UUID) error {
	return r.client.Del(ctx, fmt.Sprintf(productDetailKey, productID.String())).Err()
}

func (r *redisCacheService) InvalidateCatalog(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}
