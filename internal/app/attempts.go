package app

import (
	"context"

	"quizweb/internal/config"
	"quizweb/internal/domain"
)

// Attempts scores play-throughs and keeps participation counts.
type Attempts struct {
	catalog *Catalog
	quizzes QuizRepository
	cache   QuizCache
}

func NewAttempts(catalog *Catalog, quizzes QuizRepository, cache QuizCache) *Attempts {
	return &Attempts{catalog: catalog, quizzes: quizzes, cache: cache}
}

// Submit scores responses (question id to chosen value) against the quiz.
// Unanswered questions count as wrong; unknown question ids are rejected.
func (a *Attempts) Submit(ctx context.Context, quizID int64, responses map[int64]bool) (domain.AttemptResult, error) {
	detail, err := a.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	result, err := scoreAttempt(detail, responses)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	if err := a.quizzes.IncrementParticipation(ctx, quizID); err != nil {
		// the score is still valid; only the counter is stale
		config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("participation count not updated")
	} else {
		a.cache.Invalidate(ctx, quizID)
	}
	return result, nil
}

func scoreAttempt(detail domain.QuizDetail, responses map[int64]bool) (domain.AttemptResult, error) {
	known := make(map[int64]struct{}, len(detail.Questions))
	for _, q := range detail.Questions {
		known[q.ID] = struct{}{}
	}
	for id := range responses {
		if _, ok := known[id]; !ok {
			return domain.AttemptResult{}, domain.ErrQuestionNotFound
		}
	}

	result := domain.AttemptResult{
		QuizID:  detail.Quiz.ID,
		Total:   len(detail.Questions),
		Results: make([]domain.QuestionResult, 0, len(detail.Questions)),
	}
	for _, q := range detail.Questions {
		qr := domain.QuestionResult{QuestionID: q.ID, Expected: q.Answer}
		if given, ok := responses[q.ID]; ok {
			qr.Given = &given
			qr.Correct = given == q.Answer
		}
		if qr.Correct {
			result.Correct++
		}
		result.Results = append(result.Results, qr)
	}
	return result, nil
}
