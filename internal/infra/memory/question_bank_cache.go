package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-campaign-service/internal/domain"
)

// QuestionLoader fetches a campaign's question bank from a backing store.
type QuestionLoader interface {
	LoadCampaignQuestions(ctx context.Context, campaignID int64) ([]domain.Question, error)
}

// CachedQuestionBank caches per-campaign question banks with a TTL so the
// start path does not hit the database for every entrant. Sessions freeze
// their own snapshot at start, so a slightly stale bank here never
// affects scoring of past attempts.
type CachedQuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedBank
}

type cachedBank struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionBank(loader QuestionLoader, ttl time.Duration) *CachedQuestionBank {
	return &CachedQuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedBank),
	}
}

func (b *CachedQuestionBank) GetCampaignQuestions(ctx context.Context, campaignID int64) ([]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.cache[campaignID]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return entry.questions, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do(strconv.FormatInt(campaignID, 10), func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.cache[campaignID]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.questions, nil
		}
		b.mu.RUnlock()

		questions, err := b.loader.LoadCampaignQuestions(ctx, campaignID)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[campaignID] = cachedBank{
			questions: questions,
			expiresAt: now.Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a campaign's cached bank, for admin-side edits.
func (b *CachedQuestionBank) Invalidate(campaignID int64) {
	b.mu.Lock()
	delete(b.cache, campaignID)
	b.mu.Unlock()
}

// ttlWithJitter adds up to 10% jitter to spread expirations.
func (b *CachedQuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
