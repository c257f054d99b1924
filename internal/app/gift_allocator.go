package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"quiz-campaign-service/internal/domain"
)

// GiftRepository abstracts gift inventory storage. EligibleGifts returns
// candidates for a score ordered by min_score ascending, then ID ascending,
// already filtered to remaining capacity. TryClaim performs the atomic
// conditional increment of used_count and reports whether a unit was
// actually claimed; it must be safe under concurrent callers.
type GiftRepository interface {
	EligibleGifts(ctx context.Context, campaignID int64, score int) ([]domain.Gift, error)
	TryClaim(ctx context.Context, giftID int64) (bool, error)
	CodeExists(ctx context.Context, giftID int64, code string) (bool, error)
}

const (
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLen  = 6
	codeMaxRetries = 5
)

// GiftAllocator selects at most one gift for a score and issues a unique
// redemption code for it.
type GiftAllocator struct {
	gifts GiftRepository
}

func NewGiftAllocator(gifts GiftRepository) *GiftAllocator {
	return &GiftAllocator{gifts: gifts}
}

// Allocate walks the eligible gifts in order and claims the first one with
// remaining inventory. A nil result with a nil error means no gift matched
// or every match was exhausted; that is a normal outcome for low scores.
//
// Claiming is not check-then-act: TryClaim is a single conditional
// decrement, and a claim that loses an inventory race simply falls through
// to the next candidate within the same request.
func (a *GiftAllocator) Allocate(ctx context.Context, campaignID int64, score int) (*domain.GiftResult, error) {
	candidates, err := a.gifts.EligibleGifts(ctx, campaignID, score)
	if err != nil {
		return nil, fmt.Errorf("list eligible gifts: %w", err)
	}

	for _, gift := range candidates {
		claimed, err := a.gifts.TryClaim(ctx, gift.ID)
		if err != nil {
			return nil, fmt.Errorf("claim gift %d: %w", gift.ID, err)
		}
		if !claimed {
			continue
		}

		code, err := a.generateCode(ctx, gift)
		if err != nil {
			return nil, err
		}
		return &domain.GiftResult{
			GiftID: gift.ID,
			Name:   gift.Name,
			Value:  gift.Value,
			Code:   code,
		}, nil
	}
	return nil, nil
}

// generateCode builds UPPER(prefix + 6 random alphanumerics) and retries a
// bounded number of times on collision with an existing code for the gift.
func (a *GiftAllocator) generateCode(ctx context.Context, gift domain.Gift) (string, error) {
	prefix := strings.ToUpper(gift.CodePrefix)
	for attempt := 0; attempt < codeMaxRetries; attempt++ {
		suffix, err := randomSuffix(codeSuffixLen)
		if err != nil {
			return "", fmt.Errorf("generate gift code: %w", err)
		}
		code := prefix + suffix

		exists, err := a.gifts.CodeExists(ctx, gift.ID, code)
		if err != nil {
			return "", fmt.Errorf("check gift code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.ErrCodeGenerationExhausted
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
