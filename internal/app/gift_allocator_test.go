package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	"quiz-campaign-service/internal/domain"
	"quiz-campaign-service/internal/infra/memory"
)

func intPtr(v int) *int { return &v }

func TestAllocatePicksLowestMinScoreFirst(t *testing.T) {
	store := memory.NewGiftStore(
		domain.Gift{ID: 2, CampaignID: 1, Name: "Big", MinScore: 3, CodePrefix: "BIG"},
		domain.Gift{ID: 1, CampaignID: 1, Name: "Small", MinScore: 1, CodePrefix: "SML"},
	)
	allocator := NewGiftAllocator(store)

	gift, err := allocator.Allocate(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if gift == nil || gift.Name != "Small" {
		t.Fatalf("expected lowest min_score gift, got %+v", gift)
	}
}

func TestAllocateFallsThroughWhenExhausted(t *testing.T) {
	store := memory.NewGiftStore(
		domain.Gift{ID: 1, CampaignID: 1, Name: "Drained", MinScore: 1, MaxQuantity: intPtr(1), UsedCount: 1, CodePrefix: "AAA"},
		domain.Gift{ID: 2, CampaignID: 1, Name: "Backup", MinScore: 1, CodePrefix: "BBB"},
	)
	allocator := NewGiftAllocator(store)

	gift, err := allocator.Allocate(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if gift == nil || gift.Name != "Backup" {
		t.Fatalf("expected fallthrough to backup gift, got %+v", gift)
	}
}

func TestAllocateReturnsNilWhenNothingMatches(t *testing.T) {
	store := memory.NewGiftStore(
		domain.Gift{ID: 1, CampaignID: 1, MinScore: 5, CodePrefix: "TOP"},
	)
	allocator := NewGiftAllocator(store)

	gift, err := allocator.Allocate(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if gift != nil {
		t.Fatalf("expected no gift for low score, got %+v", gift)
	}
}

func TestAllocateCodeFormat(t *testing.T) {
	store := memory.NewGiftStore(
		domain.Gift{ID: 1, CampaignID: 1, Name: "Voucher", MinScore: 0, CodePrefix: "vef"},
	)
	allocator := NewGiftAllocator(store)

	gift, err := allocator.Allocate(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if gift == nil {
		t.Fatal("expected a gift")
	}
	if !strings.HasPrefix(gift.Code, "VEF") {
		t.Fatalf("expected uppercased prefix, got %q", gift.Code)
	}
	if len(gift.Code) != len("VEF")+6 {
		t.Fatalf("expected 6 random characters after prefix, got %q", gift.Code)
	}
	if gift.Code != strings.ToUpper(gift.Code) {
		t.Fatalf("expected uppercase code, got %q", gift.Code)
	}
}

func TestAllocateNeverOversells(t *testing.T) {
	const capacity = 5
	const attempts = 40

	store := memory.NewGiftStore(
		domain.Gift{ID: 1, CampaignID: 1, Name: "Scarce", MinScore: 0, MaxQuantity: intPtr(capacity), CodePrefix: "SCR"},
	)
	allocator := NewGiftAllocator(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	codes := make(map[string]struct{})
	wins := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gift, err := allocator.Allocate(context.Background(), 1, 1)
			if err != nil {
				t.Errorf("allocate: %v", err)
				return
			}
			if gift == nil {
				return
			}
			mu.Lock()
			wins++
			codes[gift.Code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if wins != capacity {
		t.Fatalf("expected exactly %d winners, got %d", capacity, wins)
	}
	if len(codes) != capacity {
		t.Fatalf("expected %d distinct codes, got %d", capacity, len(codes))
	}
	if used := store.UsedCount(1); used != capacity {
		t.Fatalf("used_count = %d, want %d", used, capacity)
	}
}

// collidingGifts reports every generated code as taken.
type collidingGifts struct {
	gift domain.Gift
}

func (c *collidingGifts) EligibleGifts(context.Context, int64, int) ([]domain.Gift, error) {
	return []domain.Gift{c.gift}, nil
}

func (c *collidingGifts) TryClaim(context.Context, int64) (bool, error) { return true, nil }

func (c *collidingGifts) CodeExists(context.Context, int64, string) (bool, error) {
	return true, nil
}

func TestAllocateGivesUpAfterRepeatedCollisions(t *testing.T) {
	allocator := NewGiftAllocator(&collidingGifts{gift: domain.Gift{ID: 1, CodePrefix: "X"}})

	_, err := allocator.Allocate(context.Background(), 1, 1)
	if err != domain.ErrCodeGenerationExhausted {
		t.Fatalf("expected ErrCodeGenerationExhausted, got %v", err)
	}
}
