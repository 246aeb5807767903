package app

import (
	"context"

	"quizweb/internal/domain"
)

// SessionSlot is the durable per-browser storage behind a Session.
// Get reports ok=false when nothing is stored under key.
type SessionSlot interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// SessionRegistry keeps one live Session per browser key so that every
// observer of a browser shares the same reactive value. Every GetOrCreate is
// released with DeleteIfIdle.
type SessionRegistry interface {
	GetOrCreate(key string) *Session
	Get(key string) (*Session, bool)
	DeleteIfIdle(key string)
}

// UserRepository stores identity records. Lookups by email are case-insensitive.
// Find methods return domain.ErrUserNotFound when nothing matches; Create
// returns domain.ErrEmailTaken on a duplicate email.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByDisplayName(ctx context.Context, displayName string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}

// QuizRepository is the relational store for quizzes, questions and answers.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	CreateAnswer(ctx context.Context, answer domain.Answer) error

	DeleteQuiz(ctx context.Context, quizID int64) error
	DeleteQuestion(ctx context.Context, questionID int64) error
	DeleteAnswer(ctx context.Context, questionID int64) error

	LoadQuiz(ctx context.Context, quizID int64) (domain.QuizDetail, error)
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	IncrementParticipation(ctx context.Context, quizID int64) error
}

// QuizCache serves quiz details and falls back to the repository on a miss.
type QuizCache interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.QuizDetail, error)
	Invalidate(ctx context.Context, quizID int64)
}
