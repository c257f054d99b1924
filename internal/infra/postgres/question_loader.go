package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-campaign-service/internal/domain"
)

// QuestionLoader reads a campaign's question bank from Postgres over a
// pgx pool. It sits behind the in-process TTL cache; the quiz flow never
// queries it directly per request.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// LoadCampaignQuestions returns the campaign's active questions with
// their options in stored order, answer keys included.
func (l *QuestionLoader) LoadCampaignQuestions(ctx context.Context, campaignID int64) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, campaign_id, text, type, points, is_active
		FROM questions
		WHERE campaign_id = $1 AND is_active
		ORDER BY id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	index := make(map[int64]int)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.CampaignID, &q.Text, &q.Type, &q.Points, &q.IsActive); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil
	}

	optRows, err := l.pool.Query(ctx, `
		SELECT o.id, o.question_id, o.text, o.is_correct, o.position
		FROM question_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.campaign_id = $1 AND q.is_active
		ORDER BY o.question_id, o.position, o.id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt domain.Option
		if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.Text, &opt.Correct, &opt.Position); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if i, ok := index[opt.QuestionID]; ok {
			questions[i].Options = append(questions[i].Options, opt)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return questions, nil
}
