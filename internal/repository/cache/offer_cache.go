package cache

import (
	"context"
	"encoding/json"
	"errors"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "planner:offers:"

// OfferCache is a read-through Redis cache in front of an offer repository.
// Redis failures fall back to the wrapped repository.
type OfferCache struct {
	next   repository.OfferRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func NewOfferCache(next repository.OfferRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *OfferCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &OfferCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *OfferCache) ListByPurpose(ctx context.Context, purpose domain.LoanPurpose) ([]domain.LenderOffer, error) {
	key := keyPrefix + string(purpose)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var offers []domain.LenderOffer
		if err := json.Unmarshal(raw, &offers); err == nil {
			return offers, nil
		}
		c.logger.WarnContext(ctx, "Discarding malformed cached offers", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "Offer cache unavailable", slog.String("key", key), slog.Any("error", err))
	}

	offers, err := c.next.ListByPurpose(ctx, purpose)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(offers)
	if err != nil {
		return offers, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Failed to fill offer cache", slog.String("key", key), slog.Any("error", err))
	}
	return offers, nil
}

// SaveOffer writes through and invalidates the cached list for the offer's purpose.
func (c *OfferCache) SaveOffer(ctx context.Context, offer domain.LenderOffer) error {
	if err := c.next.SaveOffer(ctx, offer); err != nil {
		return err
	}
	if err := c.client.Del(ctx, keyPrefix+string(offer.Purpose)).Err(); err != nil {
		c.logger.WarnContext(ctx, "Failed to invalidate offer cache",
			slog.String("purpose", string(offer.Purpose)),
			slog.Any("error", err),
		)
	}
	return nil
}

func (c *OfferCache) Close() error {
	return c.client.Close()
}

var _ repository.OfferRepository = (*OfferCache)(nil)
