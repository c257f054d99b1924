package app

import (
	"sort"
	"time"

	"quiz-campaign-service/internal/domain"
)

// ScoreAttempt grades a frozen question snapshot against submitted answers.
// It is a pure function: the same snapshot and answers always produce the
// same result, regardless of what the live question bank looks like now.
//
// A question is correct iff the submitted option-ID set equals the correct
// option-ID set exactly. No partial credit; this applies uniformly to
// single-choice (sets of size 1) and multi-select questions. Unanswered
// questions are scored as incorrect, not rejected.
func ScoreAttempt(questions []domain.Question, answers domain.AnswerSet) domain.ScoreResult {
	result := domain.ScoreResult{TotalQuestions: len(questions)}

	for _, q := range questions {
		correct := q.CorrectOptionIDs()
		submitted := answers[q.ID]
		points := q.PointValue()
		result.MaxScore += points

		detail := domain.QuestionResult{
			QuestionID: q.ID,
			Submitted:  append([]int64(nil), submitted...),
			Correct:    sortedIDs(correct),
			IsCorrect:  setsEqual(submitted, correct),
			Points:     points,
		}
		if detail.IsCorrect {
			result.Score += points
			result.CorrectCount++
		}
		result.Details = append(result.Details, detail)
	}
	return result
}

// CompletionSeconds is the wall-clock attempt duration in whole seconds.
// Negative deltas from clock skew are clamped to 0 rather than rejected.
func CompletionSeconds(startedAt, submittedAt time.Time) int {
	secs := int(submittedAt.Sub(startedAt) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// setsEqual compares a submitted option slice (possibly with duplicates)
// against the correct set.
func setsEqual(submitted []int64, correct map[int64]struct{}) bool {
	if len(correct) == 0 {
		return false
	}
	seen := make(map[int64]struct{}, len(submitted))
	for _, id := range submitted {
		if _, ok := correct[id]; !ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return len(seen) == len(correct)
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
