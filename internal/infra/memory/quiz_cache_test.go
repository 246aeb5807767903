package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizweb/internal/domain"
)

func TestQuizCacheCaches(t *testing.T) {
	store := NewQuizStore()
	quiz := seedQuiz(t, store, "Capitals")
	loader := &countingLoader{QuizLoader: store}
	cache := NewQuizCache(loader, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), quiz.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := cache.GetQuiz(context.Background(), quiz.ID); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}

	cache.Invalidate(context.Background(), quiz.ID)
	if _, err := cache.GetQuiz(context.Background(), quiz.ID); err != nil {
		t.Fatalf("get quiz 3: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.count())
	}
}

func TestQuizCacheExpires(t *testing.T) {
	store := NewQuizStore()
	quiz := seedQuiz(t, store, "Capitals")
	loader := &countingLoader{QuizLoader: store}
	cache := NewQuizCache(loader, time.Minute)

	now := time.Now()
	cache.clock = func() time.Time { return now }
	_, _ = cache.GetQuiz(context.Background(), quiz.ID)

	now = now.Add(2 * time.Minute)
	_, _ = cache.GetQuiz(context.Background(), quiz.ID)
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestQuizCacheMissPropagates(t *testing.T) {
	cache := NewQuizCache(NewQuizStore(), time.Minute)
	if _, err := cache.GetQuiz(context.Background(), 99); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizDetail, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func seedQuiz(t *testing.T, store *QuizStore, title string) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := store.CreateQuiz(ctx, domain.Quiz{OwnerID: 1, Title: title, CategoryID: 5})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	question, err := store.CreateQuestion(ctx, domain.Question{QuizID: quiz.ID, Text: "Paris is the capital of France"})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := store.CreateAnswer(ctx, domain.Answer{QuizID: quiz.ID, QuestionID: question.ID, Value: true}); err != nil {
		t.Fatalf("create answer: %v", err)
	}
	return quiz
}
