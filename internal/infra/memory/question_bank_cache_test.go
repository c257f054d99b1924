package memory

import (
	"context"
	"testing"
	"time"

	"quiz-campaign-service/internal/domain"
)

type countingLoader struct {
	calls     int
	questions []domain.Question
}

func (l *countingLoader) LoadCampaignQuestions(context.Context, int64) ([]domain.Question, error) {
	l.calls++
	return l.questions, nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID: 1, CampaignID: 1, Type: domain.SingleChoice, IsActive: true, Text: "Q1",
			Options: []domain.Option{
				{ID: 1, Text: "a", Correct: true},
				{ID: 2, Text: "b"},
			},
		},
	}
}

func TestCachedQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{questions: sampleQuestions()}
	bank := NewCachedQuestionBank(loader, time.Minute)

	if _, err := bank.GetCampaignQuestions(context.Background(), 1); err != nil {
		t.Fatalf("get: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	questions, err := bank.GetCampaignQuestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(questions) != 1 || questions[0].ID != 1 {
		t.Fatalf("unexpected questions: %+v", questions)
	}
}

func TestCachedQuestionBankInvalidate(t *testing.T) {
	loader := &countingLoader{questions: sampleQuestions()}
	bank := NewCachedQuestionBank(loader, time.Minute)

	if _, err := bank.GetCampaignQuestions(context.Background(), 1); err != nil {
		t.Fatalf("get: %v", err)
	}
	bank.Invalidate(1)
	if _, err := bank.GetCampaignQuestions(context.Background(), 1); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", loader.calls)
	}
}
