package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"quiz-campaign-service/internal/domain"
)

// CampaignRepository loads campaign configuration.
type CampaignRepository interface {
	GetCampaign(ctx context.Context, campaignID int64) (domain.Campaign, error)
}

// QuestionBank returns the active, ordered question set for a campaign,
// answer keys included. Answer keys are stripped by the service before
// anything is handed to the transport layer.
type QuestionBank interface {
	GetCampaignQuestions(ctx context.Context, campaignID int64) ([]domain.Question, error)
}

// ParticipantRepository owns participant rows keyed by (campaign, phone).
// Create must rely on a storage-level uniqueness constraint, not a
// check-then-insert, and return ErrDuplicateParticipation on collision.
// Finalize must be a single conditional update on completed_at and return
// ErrAlreadyCompleted when the row was finalized before.
type ParticipantRepository interface {
	Create(ctx context.Context, p *domain.Participant) error
	HasParticipated(ctx context.Context, campaignID int64, phone string) (bool, error)
	Count(ctx context.Context, campaignID int64) (int, error)
	Finalize(ctx context.Context, participantID int64, score, totalQuestions, completionTime int, completedAt time.Time) error
	AttachGift(ctx context.Context, participantID, giftID int64, code string) error
}

// SessionStore keeps in-progress quiz sessions. SaveAnswers performs an
// idempotent per-question upsert (last write wins) so out-of-order
// auto-saves cannot corrupt the final answer set.
type SessionStore interface {
	Create(ctx context.Context, session *domain.QuizSession) error
	Get(ctx context.Context, sessionID string) (domain.QuizSession, error)
	SaveAnswers(ctx context.Context, sessionID string, answers domain.AnswerSet) error
	Complete(ctx context.Context, sessionID string) error
}

// AnalyticsRecorder appends events for dashboards. Writes are best-effort;
// failures must never fail the participant-facing path.
type AnalyticsRecorder interface {
	Record(ctx context.Context, event domain.AnalyticsEvent) error
}

// FulfillmentNotifier pushes assigned gifts to an external fulfillment
// API. Calls are fire-and-forget; a failure degrades to "gift assigned,
// fulfillment pending".
type FulfillmentNotifier interface {
	NotifyGiftAssigned(ctx context.Context, participant int64, gift domain.GiftResult) error
}

// RequestMeta carries submission metadata recorded on the participant row.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// QuizService wires the quiz flow together: participant registration,
// question delivery, scoring, gift allocation, and finalization.
type QuizService struct {
	campaigns    CampaignRepository
	questions    QuestionBank
	participants ParticipantRepository
	sessions     SessionStore
	allocator    *GiftAllocator
	analytics    AnalyticsRecorder
	fulfillment  FulfillmentNotifier

	validate    *validator.Validate
	countryCode string
	grace       time.Duration
	now         func() time.Time
	rnd         *rand.Rand
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock substitutes the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithCountryCode sets the dialing prefix used for phone normalization.
func WithCountryCode(code string) Option {
	return func(s *QuizService) { s.countryCode = code }
}

// WithDeadlineGrace sets the slack added to a campaign time limit before a
// late submission is rejected.
func WithDeadlineGrace(grace time.Duration) Option {
	return func(s *QuizService) { s.grace = grace }
}

// WithAnalytics attaches an event recorder.
func WithAnalytics(recorder AnalyticsRecorder) Option {
	return func(s *QuizService) { s.analytics = recorder }
}

// WithFulfillment attaches an external gift-fulfillment hook.
func WithFulfillment(notifier FulfillmentNotifier) Option {
	return func(s *QuizService) { s.fulfillment = notifier }
}

// WithRand substitutes the sampling source, for deterministic tests.
func WithRand(rnd *rand.Rand) Option {
	return func(s *QuizService) { s.rnd = rnd }
}

func NewQuizService(
	campaigns CampaignRepository,
	questions QuestionBank,
	participants ParticipantRepository,
	sessions SessionStore,
	gifts GiftRepository,
	opts ...Option,
) *QuizService {
	s := &QuizService{
		campaigns:    campaigns,
		questions:    questions,
		participants: participants,
		sessions:     sessions,
		allocator:    NewGiftAllocator(gifts),
		validate:     validator.New(),
		countryCode:  domain.DefaultCountryCode,
		grace:        30 * time.Second,
		now:          time.Now,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckParticipation is the advisory pre-check used by clients before
// rendering the form. The result is not authoritative: StartQuiz re-checks
// via the storage uniqueness constraint.
func (s *QuizService) CheckParticipation(ctx context.Context, campaignID int64, phone string) (bool, error) {
	normalized, err := domain.NormalizePhone(phone, s.countryCode)
	if err != nil {
		return false, err
	}
	return s.participants.HasParticipated(ctx, campaignID, normalized)
}

// StartQuiz validates the entrant, creates the participant row, and
// freezes the question list for a new session.
func (s *QuizService) StartQuiz(ctx context.Context, campaignID int64, fields domain.ParticipantFields, meta RequestMeta) (domain.StartResult, error) {
	if err := s.validate.Struct(fields); err != nil {
		return domain.StartResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	phone, err := domain.NormalizePhone(fields.Phone, s.countryCode)
	if err != nil {
		return domain.StartResult{}, err
	}

	campaign, err := s.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return domain.StartResult{}, err
	}
	now := s.now()
	if !campaign.AcceptsEntriesAt(now) {
		return domain.StartResult{}, domain.ErrCampaignNotActive
	}

	if campaign.MaxParticipants > 0 {
		count, err := s.participants.Count(ctx, campaignID)
		if err != nil {
			return domain.StartResult{}, fmt.Errorf("count participants: %w", err)
		}
		if count >= campaign.MaxParticipants {
			return domain.StartResult{}, domain.ErrCampaignFull
		}
	}

	// Advisory only: the unique constraint in Create is the real guard
	// against two concurrent starts with the same phone.
	taken, err := s.participants.HasParticipated(ctx, campaignID, phone)
	if err != nil {
		return domain.StartResult{}, fmt.Errorf("check participation: %w", err)
	}
	if taken {
		return domain.StartResult{}, domain.ErrDuplicateParticipation
	}

	selected, err := s.selectQuestions(ctx, campaign)
	if err != nil {
		return domain.StartResult{}, err
	}

	participant := &domain.Participant{
		CampaignID:   campaignID,
		FullName:     fields.FullName,
		Phone:        phone,
		Province:     fields.Province,
		PharmacyCode: fields.PharmacyCode,
		Email:        fields.Email,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		StartedAt:    now,
		GiftStatus:   domain.GiftStatusNone,
	}
	if err := s.participants.Create(ctx, participant); err != nil {
		return domain.StartResult{}, err
	}

	session := &domain.QuizSession{
		ID:            uuid.NewString(),
		CampaignID:    campaignID,
		ParticipantID: participant.ID,
		Questions:     selected,
		Answers:       domain.AnswerSet{},
		PassScore:     campaign.PassScore,
		TimeLimit:     campaign.TimeLimit,
		StartedAt:     now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.StartResult{}, fmt.Errorf("create session: %w", err)
	}

	s.record(ctx, domain.AnalyticsEvent{
		CampaignID:    campaignID,
		EventType:     domain.EventQuizStarted,
		ParticipantID: participant.ID,
		SessionID:     session.ID,
	})

	views := make([]domain.QuestionView, 0, len(selected))
	for _, q := range selected {
		views = append(views, q.View())
	}
	return domain.StartResult{
		SessionID: session.ID,
		TimeLimit: campaign.TimeLimit,
		Questions: views,
	}, nil
}

// SaveAnswers persists a partial answer set for an in-progress session.
// Saves are idempotent per question; duplicates and reordering are safe.
func (s *QuizService) SaveAnswers(ctx context.Context, sessionID string, answers domain.AnswerSet) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Completed {
		return domain.ErrAlreadyCompleted
	}
	return s.sessions.SaveAnswers(ctx, sessionID, answers)
}

// SubmitQuiz scores a session against its frozen snapshot, finalizes the
// participant row exactly once, and allocates at most one gift.
func (s *QuizService) SubmitQuiz(ctx context.Context, sessionID string, answers domain.AnswerSet) (domain.SubmitResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if session.Completed {
		return domain.SubmitResult{}, domain.ErrAlreadyCompleted
	}

	now := s.now()
	if deadline := session.Deadline(s.grace); !deadline.IsZero() && now.After(deadline) {
		return domain.SubmitResult{}, domain.ErrSessionExpired
	}

	merged := mergeAnswers(session.Answers, answers)
	scored := ScoreAttempt(session.Questions, merged)
	completionTime := CompletionSeconds(session.StartedAt, now)

	// Finalize claims completion before any gift is touched: if two
	// submissions race, the loser gets ErrAlreadyCompleted here and no
	// inventory is consumed for it.
	err = s.participants.Finalize(ctx, session.ParticipantID, scored.Score, scored.TotalQuestions, completionTime, now)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	result := domain.SubmitResult{
		Score:          scored.Score,
		TotalQuestions: scored.TotalQuestions,
		Percentage:     scored.Percentage(),
		Passed:         scored.Score >= session.PassScore,
		CompletionTime: completionTime,
	}

	gift, err := s.allocator.Allocate(ctx, session.CampaignID, scored.Score)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if gift != nil {
		if err := s.participants.AttachGift(ctx, session.ParticipantID, gift.GiftID, gift.Code); err != nil {
			return domain.SubmitResult{}, fmt.Errorf("attach gift: %w", err)
		}
		result.Gift = gift
		s.notifyFulfillment(session.ParticipantID, *gift)
	}

	if err := s.sessions.Complete(ctx, sessionID); err != nil {
		log.Printf("warning: mark session %s completed: %v", sessionID, err)
	}

	s.record(ctx, domain.AnalyticsEvent{
		CampaignID:    session.CampaignID,
		EventType:     domain.EventQuizCompleted,
		ParticipantID: session.ParticipantID,
		SessionID:     sessionID,
		Payload:       marshalPayload(result),
	})
	if gift != nil {
		s.record(ctx, domain.AnalyticsEvent{
			CampaignID:    session.CampaignID,
			EventType:     domain.EventGiftAssigned,
			ParticipantID: session.ParticipantID,
			SessionID:     sessionID,
			Payload:       marshalPayload(gift),
		})
	}
	return result, nil
}

// selectQuestions freezes the question list for one attempt: a random
// sample when the campaign randomizes, otherwise the stored order.
func (s *QuizService) selectQuestions(ctx context.Context, campaign domain.Campaign) ([]domain.Question, error) {
	all, err := s.questions.GetCampaignQuestions(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	active := all[:0:0]
	for _, q := range all {
		if q.IsActive && len(q.CorrectOptionIDs()) > 0 {
			active = append(active, q)
		}
	}
	// A shortened quiz silently changes scoring semantics; shortfall is a
	// setup error, never truncation.
	if len(active) < campaign.QuestionsPerQuiz {
		return nil, domain.ErrInsufficientQuestions
	}

	if campaign.Randomize {
		shuffled := append([]domain.Question(nil), active...)
		s.rnd.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		return shuffled[:campaign.QuestionsPerQuiz], nil
	}
	return active[:campaign.QuestionsPerQuiz], nil
}

func (s *QuizService) record(ctx context.Context, event domain.AnalyticsEvent) {
	if s.analytics == nil {
		return
	}
	if err := s.analytics.Record(ctx, event); err != nil {
		log.Printf("warning: record %s event: %v", event.EventType, err)
	}
}

// notifyFulfillment fires the external hook without blocking the
// participant-facing response.
func (s *QuizService) notifyFulfillment(participantID int64, gift domain.GiftResult) {
	if s.fulfillment == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.fulfillment.NotifyGiftAssigned(ctx, participantID, gift); err != nil {
			log.Printf("warning: gift fulfillment for participant %d pending: %v", participantID, err)
		}
	}()
}

// mergeAnswers overlays the final submission on top of auto-saved answers;
// the submission wins per question.
func mergeAnswers(saved, submitted domain.AnswerSet) domain.AnswerSet {
	merged := make(domain.AnswerSet, len(saved)+len(submitted))
	for id, opts := range saved {
		merged[id] = opts
	}
	for id, opts := range submitted {
		merged[id] = opts
	}
	return merged
}

func marshalPayload(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
