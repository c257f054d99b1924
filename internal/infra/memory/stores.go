// Package memory provides in-process implementations of the app
// repositories. They back unit tests and redis/postgres-less deployments;
// every mutation takes the store mutex so the concurrency-sensitive
// operations (participant create, gift claim, finalize) behave like their
// constraint-backed Postgres counterparts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-campaign-service/internal/domain"
)

// CampaignStore holds campaigns keyed by ID.
type CampaignStore struct {
	mu        sync.RWMutex
	campaigns map[int64]domain.Campaign
}

func NewCampaignStore(campaigns ...domain.Campaign) *CampaignStore {
	s := &CampaignStore{campaigns: make(map[int64]domain.Campaign)}
	for _, c := range campaigns {
		s.campaigns[c.ID] = c
	}
	return s
}

func (s *CampaignStore) Put(c domain.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

func (s *CampaignStore) GetCampaign(_ context.Context, campaignID int64) (domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[campaignID]
	if !ok || c.ArchivedAt != nil {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	return c, nil
}

// QuestionBank serves a static per-campaign question list.
type QuestionBank struct {
	mu        sync.RWMutex
	questions map[int64][]domain.Question
}

func NewQuestionBank(byCampaign map[int64][]domain.Question) *QuestionBank {
	if byCampaign == nil {
		byCampaign = make(map[int64][]domain.Question)
	}
	return &QuestionBank{questions: byCampaign}
}

func (b *QuestionBank) Put(campaignID int64, questions []domain.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.questions[campaignID] = questions
}

func (b *QuestionBank) GetCampaignQuestions(_ context.Context, campaignID int64) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Question(nil), b.questions[campaignID]...), nil
}

type participantKey struct {
	campaignID int64
	phone      string
}

// ParticipantStore enforces the (campaign, phone) uniqueness and the
// one-shot finalize under its mutex.
type ParticipantStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Participant
	byKey  map[participantKey]int64
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{
		byID:  make(map[int64]*domain.Participant),
		byKey: make(map[participantKey]int64),
	}
}

func (s *ParticipantStore) Create(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{p.CampaignID, p.Phone}
	if _, exists := s.byKey[key]; exists {
		return domain.ErrDuplicateParticipation
	}
	s.nextID++
	p.ID = s.nextID
	stored := *p
	s.byID[p.ID] = &stored
	s.byKey[key] = p.ID
	return nil
}

func (s *ParticipantStore) HasParticipated(_ context.Context, campaignID int64, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byKey[participantKey{campaignID, phone}]
	return ok, nil
}

func (s *ParticipantStore) Count(_ context.Context, campaignID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.byID {
		if p.CampaignID == campaignID {
			count++
		}
	}
	return count, nil
}

func (s *ParticipantStore) Finalize(_ context.Context, participantID int64, score, totalQuestions, completionTime int, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[participantID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if p.CompletedAt != nil {
		return domain.ErrAlreadyCompleted
	}
	at := completedAt
	p.CompletedAt = &at
	p.Score = score
	p.TotalQuestions = totalQuestions
	p.CompletionTime = completionTime
	return nil
}

func (s *ParticipantStore) AttachGift(_ context.Context, participantID, giftID int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[participantID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	id := giftID
	p.GiftID = &id
	p.GiftCode = code
	p.GiftStatus = domain.GiftStatusAssigned
	return nil
}

// DeleteStaleUncompleted reclaims abandoned attempts older than maxAge.
func (s *ParticipantStore) DeleteStaleUncompleted(_ context.Context, maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	var removed int64
	for id, p := range s.byID {
		if p.CompletedAt == nil && p.StartedAt.Before(cutoff) {
			delete(s.byKey, participantKey{p.CampaignID, p.Phone})
			delete(s.byID, id)
			removed++
		}
	}
	return removed, nil
}

// Get returns a copy of a stored participant, for test assertions.
func (s *ParticipantStore) Get(participantID int64) (domain.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[participantID]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// GiftStore keeps gift inventory; TryClaim mirrors the conditional
// UPDATE ... WHERE used_count < max_quantity semantics.
type GiftStore struct {
	mu    sync.Mutex
	gifts map[int64]*domain.Gift
	codes map[int64]map[string]struct{}
}

func NewGiftStore(gifts ...domain.Gift) *GiftStore {
	s := &GiftStore{
		gifts: make(map[int64]*domain.Gift),
		codes: make(map[int64]map[string]struct{}),
	}
	for _, g := range gifts {
		stored := g
		s.gifts[g.ID] = &stored
	}
	return s
}

func (s *GiftStore) EligibleGifts(_ context.Context, campaignID int64, score int) ([]domain.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var eligible []domain.Gift
	for _, g := range s.gifts {
		if g.CampaignID != campaignID || !g.Matches(score) {
			continue
		}
		if g.MaxQuantity != nil && g.UsedCount >= *g.MaxQuantity {
			continue
		}
		eligible = append(eligible, *g)
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].MinScore != eligible[j].MinScore {
			return eligible[i].MinScore < eligible[j].MinScore
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible, nil
}

func (s *GiftStore) TryClaim(_ context.Context, giftID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gifts[giftID]
	if !ok {
		return false, nil
	}
	if g.MaxQuantity != nil && g.UsedCount >= *g.MaxQuantity {
		return false, nil
	}
	g.UsedCount++
	return true, nil
}

// CodeExists registers the code on first sight so concurrent generators
// cannot hand out duplicates.
func (s *GiftStore) CodeExists(_ context.Context, giftID int64, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.codes[giftID]
	if !ok {
		set = make(map[string]struct{})
		s.codes[giftID] = set
	}
	if _, exists := set[code]; exists {
		return true, nil
	}
	set[code] = struct{}{}
	return false, nil
}

// UsedCount returns a gift's current inventory consumption, for tests.
func (s *GiftStore) UsedCount(giftID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gifts[giftID]; ok {
		return g.UsedCount
	}
	return 0
}

// AnalyticsLog appends events in memory.
type AnalyticsLog struct {
	mu     sync.Mutex
	events []domain.AnalyticsEvent
}

func NewAnalyticsLog() *AnalyticsLog {
	return &AnalyticsLog{}
}

func (l *AnalyticsLog) Record(_ context.Context, event domain.AnalyticsEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Events returns a snapshot of recorded events.
func (l *AnalyticsLog) Events() []domain.AnalyticsEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.AnalyticsEvent(nil), l.events...)
}
