package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// QuestionType tags how a question is answered and scored.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
)

// GiftStatus tracks the lifecycle of an assigned gift on a participant row.
type GiftStatus string

const (
	GiftStatusNone     GiftStatus = "none"
	GiftStatusAssigned GiftStatus = "assigned"
	GiftStatusClaimed  GiftStatus = "claimed"
	GiftStatusExpired  GiftStatus = "expired"
)

// Campaign is a time-boxed quiz configuration with its own questions,
// gifts, and participant pool. Campaigns are archived, never hard-deleted,
// while participants reference them.
type Campaign struct {
	bun.BaseModel `bun:"table:campaigns"`

	ID               int64      `bun:"id,pk,autoincrement" json:"id"`
	Name             string     `bun:"name,notnull" json:"name"`
	Description      string     `bun:"description" json:"description"`
	StartsAt         time.Time  `bun:"starts_at,notnull" json:"starts_at"`
	EndsAt           time.Time  `bun:"ends_at,notnull" json:"ends_at"`
	MaxParticipants  int        `bun:"max_participants" json:"max_participants"` // 0 = unlimited
	QuestionsPerQuiz int        `bun:"questions_per_quiz,notnull" json:"questions_per_quiz"`
	PassScore        int        `bun:"pass_score,notnull" json:"pass_score"`
	TimeLimit        int        `bun:"time_limit" json:"time_limit"` // seconds, 0 = untimed
	Randomize        bool       `bun:"randomize" json:"randomize"`
	IsActive         bool       `bun:"is_active" json:"is_active"`
	ArchivedAt       *time.Time `bun:"archived_at" json:"archived_at,omitempty"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,default:now()" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,default:now()" json:"updated_at"`
}

// Validate enforces the campaign setup invariants checked at save time.
func (c Campaign) Validate() error {
	if c.QuestionsPerQuiz <= 0 {
		return ErrInvalidCampaign
	}
	if c.PassScore < 0 || c.PassScore > c.QuestionsPerQuiz {
		return ErrInvalidCampaign
	}
	if !c.EndsAt.After(c.StartsAt) {
		return ErrInvalidCampaign
	}
	return nil
}

// AcceptsEntriesAt reports whether the campaign is open for new
// participants at the given instant.
func (c Campaign) AcceptsEntriesAt(now time.Time) bool {
	if !c.IsActive || c.ArchivedAt != nil {
		return false
	}
	return !now.Before(c.StartsAt) && now.Before(c.EndsAt)
}

// Option is one selectable answer on a question. The Correct flag must
// never be serialized toward the participant-facing layer; handlers send
// OptionView instead.
type Option struct {
	bun.BaseModel `bun:"table:question_options"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	QuestionID int64  `bun:"question_id,notnull" json:"question_id"`
	Text       string `bun:"text,notnull" json:"text"`
	Correct    bool   `bun:"is_correct,notnull" json:"correct"`
	Position   int    `bun:"position" json:"position"`
}

// Question belongs to exactly one campaign.
type Question struct {
	bun.BaseModel `bun:"table:questions"`

	ID         int64        `bun:"id,pk,autoincrement" json:"id"`
	CampaignID int64        `bun:"campaign_id,notnull" json:"campaign_id"`
	Text       string       `bun:"text,notnull" json:"text"`
	Type       QuestionType `bun:"type,notnull" json:"type"`
	Points     int          `bun:"points" json:"points"` // defaults to 1 if zero
	IsActive   bool         `bun:"is_active" json:"is_active"`
	Options    []Option     `bun:"rel:has-many,join:id=question_id" json:"options"`
}

// CorrectOptionIDs returns the set of option IDs flagged correct.
func (q Question) CorrectOptionIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, opt := range q.Options {
		if opt.Correct {
			ids[opt.ID] = struct{}{}
		}
	}
	return ids
}

// PointValue returns the question's score weight, defaulting to 1.
func (q Question) PointValue() int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// OptionView is the participant-facing shape of an option, without the
// correctness flag.
type OptionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the participant-facing shape of a question.
type QuestionView struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []OptionView `json:"options"`
}

// View strips the answer key from a question for delivery to clients.
func (q Question) View() QuestionView {
	view := QuestionView{ID: q.ID, Text: q.Text, Type: q.Type}
	for _, opt := range q.Options {
		view.Options = append(view.Options, OptionView{ID: opt.ID, Text: opt.Text})
	}
	return view
}

// ParticipantFields are the identity fields collected at quiz start.
type ParticipantFields struct {
	FullName     string `json:"full_name" validate:"required,min=2,max=100"`
	Phone        string `json:"phone" validate:"required"`
	Province     string `json:"province" validate:"max=100"`
	PharmacyCode string `json:"pharmacy_code" validate:"max=50"`
	Email        string `json:"email" validate:"omitempty,email"`
}

// Participant is one phone-number-identified entrant in a campaign.
// The row is created at quiz start and finalized exactly once at submit;
// only gift_status may change afterwards.
type Participant struct {
	bun.BaseModel `bun:"table:participants"`

	ID             int64      `bun:"id,pk,autoincrement" json:"id"`
	CampaignID     int64      `bun:"campaign_id,notnull" json:"campaign_id"`
	FullName       string     `bun:"full_name,notnull" json:"full_name"`
	Phone          string     `bun:"phone,notnull" json:"phone"` // normalized form
	Province       string     `bun:"province" json:"province"`
	PharmacyCode   string     `bun:"pharmacy_code" json:"pharmacy_code"`
	Email          string     `bun:"email" json:"email"`
	IPAddress      string     `bun:"ip_address" json:"ip_address"`
	UserAgent      string     `bun:"user_agent" json:"user_agent"`
	StartedAt      time.Time  `bun:"started_at,notnull" json:"started_at"`
	CompletedAt    *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	Score          int        `bun:"score" json:"score"`
	TotalQuestions int        `bun:"total_questions" json:"total_questions"`
	CompletionTime int        `bun:"completion_time" json:"completion_time"` // seconds
	GiftID         *int64     `bun:"gift_id" json:"gift_id,omitempty"`
	GiftCode       string     `bun:"gift_code" json:"gift_code,omitempty"`
	GiftStatus     GiftStatus `bun:"gift_status" json:"gift_status"`
}

// Gift is a reward unit with a score-based eligibility window and finite
// inventory. UsedCount never exceeds MaxQuantity when MaxQuantity is set.
type Gift struct {
	bun.BaseModel `bun:"table:gifts"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	CampaignID  int64  `bun:"campaign_id,notnull" json:"campaign_id"`
	Name        string `bun:"name,notnull" json:"name"`
	GiftType    string `bun:"gift_type" json:"gift_type"`
	Value       string `bun:"value" json:"value"`
	MinScore    int    `bun:"min_score,notnull" json:"min_score"`
	MaxScore    *int   `bun:"max_score" json:"max_score,omitempty"`       // nil = unbounded
	MaxQuantity *int   `bun:"max_quantity" json:"max_quantity,omitempty"` // nil = unlimited
	UsedCount   int    `bun:"used_count" json:"used_count"`
	CodePrefix  string `bun:"code_prefix" json:"code_prefix"`
}

// Matches reports whether a score falls inside the gift's eligibility
// window.
func (g Gift) Matches(score int) bool {
	if score < g.MinScore {
		return false
	}
	return g.MaxScore == nil || score <= *g.MaxScore
}

// GiftResult is the outcome of a successful allocation.
type GiftResult struct {
	GiftID int64  `json:"gift_id"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Code   string `json:"code"`
}

// AnswerSet maps a question ID to the set of selected option IDs.
type AnswerSet map[int64][]int64

// QuizSession is one attempt's ephemeral state: the frozen ordered
// question list assigned at start plus the answers accumulated so far.
// The question snapshot (answer keys included) is immutable after
// creation so that later edits to the question bank cannot change a past
// result.
type QuizSession struct {
	ID            string     `json:"id"`
	CampaignID    int64      `json:"campaign_id"`
	ParticipantID int64      `json:"participant_id"`
	Questions     []Question `json:"questions"`
	Answers       AnswerSet  `json:"answers"`
	PassScore     int        `json:"pass_score"`
	TimeLimit     int        `json:"time_limit"` // seconds, 0 = untimed
	StartedAt     time.Time  `json:"started_at"`
	Completed     bool       `json:"completed"`
}

// Deadline returns the server-side submission deadline, or the zero time
// when the session is untimed.
func (s QuizSession) Deadline(grace time.Duration) time.Time {
	if s.TimeLimit <= 0 {
		return time.Time{}
	}
	return s.StartedAt.Add(time.Duration(s.TimeLimit)*time.Second + grace)
}

// QuestionResult is the per-question verdict kept for admin-facing views.
// It never travels back to the participant.
type QuestionResult struct {
	QuestionID int64   `json:"question_id"`
	Submitted  []int64 `json:"submitted"`
	Correct    []int64 `json:"correct"`
	IsCorrect  bool    `json:"is_correct"`
	Points     int     `json:"points"`
}

// ScoreResult is the output of scoring one completed attempt.
type ScoreResult struct {
	Score          int              `json:"score"`
	MaxScore       int              `json:"max_score"`
	TotalQuestions int              `json:"total_questions"`
	CorrectCount   int              `json:"correct_count"`
	Details        []QuestionResult `json:"-"`
}

// Percentage returns the score as a share of the maximum, in whole
// percent.
func (r ScoreResult) Percentage() int {
	if r.MaxScore == 0 {
		return 0
	}
	return r.Score * 100 / r.MaxScore
}

// StartResult is returned to the caller of StartQuiz.
type StartResult struct {
	SessionID string         `json:"session_id"`
	TimeLimit int            `json:"time_limit"`
	Questions []QuestionView `json:"questions"`
}

// SubmitResult is returned to the caller of SubmitQuiz. Gift is nil when
// no gift matched or inventory was exhausted; that is a normal outcome.
type SubmitResult struct {
	Score          int         `json:"score"`
	TotalQuestions int         `json:"total_questions"`
	Percentage     int         `json:"percentage"`
	Passed         bool        `json:"passed"`
	CompletionTime int         `json:"completion_time"`
	Gift           *GiftResult `json:"gift"`
}

// AnalyticsEvent is an append-only record feeding reporting dashboards.
// The core writes it best-effort and never reads it back.
type AnalyticsEvent struct {
	bun.BaseModel `bun:"table:analytics_events"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	CampaignID    int64     `bun:"campaign_id,notnull" json:"campaign_id"`
	EventType     string    `bun:"event_type,notnull" json:"event_type"`
	ParticipantID int64     `bun:"participant_id" json:"participant_id,omitempty"`
	SessionID     string    `bun:"session_id" json:"session_id,omitempty"`
	Payload       string    `bun:"payload,type:jsonb" json:"payload,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
}

// Analytics event types emitted by the quiz flow.
const (
	EventQuizStarted   = "quiz_started"
	EventQuizCompleted = "quiz_completed"
	EventGiftAssigned  = "gift_assigned"
)
