package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"quizweb/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizRepository. Deleting a
// quiz cascades to its questions and answers.
type QuizStore struct {
	mu             sync.RWMutex
	clock          func() time.Time
	nextQuizID     int64
	nextQuestionID int64
	quizzes        map[int64]domain.Quiz
	questions      map[int64]domain.Question
	answers        map[int64]domain.Answer
}

func NewQuizStore() *QuizStore {
	return NewQuizStoreWithClock(time.Now)
}

// NewQuizStoreWithClock is used by tests that need deterministic creation times.
func NewQuizStoreWithClock(now func() time.Time) *QuizStore {
	return &QuizStore{
		clock:     now,
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]domain.Question),
		answers:   make(map[int64]domain.Answer),
	}
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuizID++
	quiz.ID = s.nextQuizID
	quiz.CreatedAt = s.clock()
	s.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (s *QuizStore) CreateQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.Question{}, fmt.Errorf("insert question: %w", domain.ErrQuizNotFound)
	}
	s.nextQuestionID++
	question.ID = s.nextQuestionID
	s.questions[question.ID] = question
	return question, nil
}

func (s *QuizStore) CreateAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[answer.QuestionID]
	if !ok || question.QuizID != answer.QuizID {
		return fmt.Errorf("insert answer: %w", domain.ErrQuestionNotFound)
	}
	if _, exists := s.answers[answer.QuestionID]; exists {
		return fmt.Errorf("insert answer: question %d already answered", answer.QuestionID)
	}
	s.answers[answer.QuestionID] = answer
	return nil
}

func (s *QuizStore) DeleteQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, quizID)
	for id, q := range s.questions {
		if q.QuizID == quizID {
			delete(s.questions, id)
			delete(s.answers, id)
		}
	}
	return nil
}

func (s *QuizStore) DeleteQuestion(_ context.Context, questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, questionID)
	delete(s.answers, questionID)
	return nil
}

func (s *QuizStore) DeleteAnswer(_ context.Context, questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.answers, questionID)
	return nil
}

func (s *QuizStore) LoadQuiz(_ context.Context, quizID int64) (domain.QuizDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizDetail{}, domain.ErrQuizNotFound
	}
	detail := domain.QuizDetail{
		Quiz:      quiz,
		Category:  domain.CategoryName(quiz.CategoryID),
		Questions: make([]domain.QuizQuestion, 0),
	}
	for id, q := range s.questions {
		if q.QuizID != quizID {
			continue
		}
		detail.Questions = append(detail.Questions, domain.QuizQuestion{
			ID:     id,
			Text:   q.Text,
			Answer: s.answers[id].Value,
		})
	}
	sort.Slice(detail.Questions, func(i, j int) bool {
		return detail.Questions[i].ID < detail.Questions[j].ID
	})
	return detail, nil
}

func (s *QuizStore) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	title := strings.ToLower(filter.Title)
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if title != "" && !strings.Contains(strings.ToLower(q.Title), title) {
			continue
		}
		if filter.CategoryID != 0 && q.CategoryID != filter.CategoryID {
			continue
		}
		if filter.OwnerID != 0 && q.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Popular && out[i].ParticipationCount != out[j].ParticipationCount {
			return out[i].ParticipationCount > out[j].ParticipationCount
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *QuizStore) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	current.Title = quiz.Title
	current.CategoryID = quiz.CategoryID
	s.quizzes[quiz.ID] = current
	return nil
}

func (s *QuizStore) IncrementParticipation(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.ParticipationCount++
	s.quizzes[quizID] = quiz
	return nil
}

// Counts reports stored rows, for tests asserting that nothing leaked.
func (s *QuizStore) Counts() (quizzes, questions, answers int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quizzes), len(s.questions), len(s.answers)
}
