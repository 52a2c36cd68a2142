package cache

import (
	"context"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository/memory"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestOfferCache_FallsBackWhenRedisIsDown(t *testing.T) {
	repo := memory.NewOfferRepository(domain.LenderOffer{ID: "o-1", Purpose: domain.PurposeRefinance})
	c := NewOfferCache(repo, unreachableClient(), time.Minute, nil)
	defer c.Close()

	offers, err := c.ListByPurpose(context.Background(), domain.PurposeRefinance)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 1 || offers[0].ID != "o-1" {
		t.Errorf("expected offer o-1, got %+v", offers)
	}
}

func TestOfferCache_SaveOfferWritesThrough(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOfferRepository()
	c := NewOfferCache(repo, unreachableClient(), time.Minute, nil)
	defer c.Close()

	err := c.SaveOffer(ctx, domain.LenderOffer{ID: "o-2", Purpose: domain.PurposeUpgrade})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.ListByPurpose(ctx, domain.PurposeUpgrade)
	if len(stored) != 1 {
		t.Errorf("expected offer in backing repository, got %d", len(stored))
	}
}

func TestOfferCache_ServesCachedListAndInvalidates(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	repo := memory.NewOfferRepository(domain.LenderOffer{ID: "o-1", Purpose: domain.PurposeInvestment})
	c := NewOfferCache(repo, NewRedisClient(addr), time.Minute, nil)
	defer c.Close()
	_ = c.client.Del(ctx, keyPrefix+string(domain.PurposeInvestment)).Err()

	if _, err := c.ListByPurpose(ctx, domain.PurposeInvestment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = repo.SaveOffer(ctx, domain.LenderOffer{ID: "o-2", Purpose: domain.PurposeInvestment})
	cached, _ := c.ListByPurpose(ctx, domain.PurposeInvestment)
	if len(cached) != 1 {
		t.Fatalf("expected cached single offer, got %d", len(cached))
	}

	_ = c.SaveOffer(ctx, domain.LenderOffer{ID: "o-3", Purpose: domain.PurposeInvestment})
	fresh, _ := c.ListByPurpose(ctx, domain.PurposeInvestment)
	if len(fresh) != 3 {
		t.Errorf("expected 3 offers after invalidation, got %d", len(fresh))
	}
}
