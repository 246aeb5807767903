package app

import (
	"context"
	"errors"
	"strings"

	"quizweb/internal/config"
	"quizweb/internal/domain"
)

const topQuizzesLimit = 10

// Catalog serves the read-only quiz and category views plus owner edits.
type Catalog struct {
	quizzes QuizRepository
	cache   QuizCache
}

func NewCatalog(quizzes QuizRepository, cache QuizCache) *Catalog {
	return &Catalog{quizzes: quizzes, cache: cache}
}

func (c *Catalog) ListCategories() []domain.Category {
	return domain.Categories()
}

func (c *Catalog) GetCategory(id int) (domain.Category, error) {
	cat, ok := domain.CategoryByID(id)
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return cat, nil
}

// ListQuizzes returns quizzes matching filter, newest first unless the filter
// asks for popularity. Title matching is a case-insensitive substring.
func (c *Catalog) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error) {
	filter.Title = strings.TrimSpace(filter.Title)
	quizzes, err := c.quizzes.ListQuizzes(ctx, filter)
	if err != nil {
		config.WithContext(ctx).WithError(err).Error("list quizzes failed")
		return nil, domain.ErrUnexpected
	}
	out := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, domain.QuizSummary{Quiz: q, Category: domain.CategoryName(q.CategoryID)})
	}
	return out, nil
}

// TopQuizzes returns the most played quizzes for the home page.
func (c *Catalog) TopQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return c.ListQuizzes(ctx, domain.QuizFilter{Limit: topQuizzesLimit, Popular: true})
}

func (c *Catalog) GetQuiz(ctx context.Context, id int64) (domain.QuizDetail, error) {
	detail, err := c.cache.GetQuiz(ctx, id)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return domain.QuizDetail{}, domain.ErrQuizNotFound
	}
	if err != nil {
		config.WithContext(ctx).WithError(err).WithField("quiz_id", id).Error("load quiz failed")
		return domain.QuizDetail{}, domain.ErrUnexpected
	}
	return detail, nil
}

// UpdateQuiz changes the title and category of a quiz owned by identity.
func (c *Catalog) UpdateQuiz(ctx context.Context, identity *domain.Identity, id int64, title string, categoryID int) (domain.Quiz, error) {
	if identity == nil {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}
	if err := domain.ValidateTitle(title); err != nil {
		return domain.Quiz{}, err
	}
	if err := domain.ValidateCategory(categoryID); err != nil {
		return domain.Quiz{}, err
	}

	detail, err := c.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if detail.Quiz.OwnerID != identity.ID {
		return domain.Quiz{}, domain.ErrNotQuizOwner
	}

	quiz := detail.Quiz
	quiz.Title = strings.TrimSpace(title)
	quiz.CategoryID = categoryID
	if err := c.quizzes.UpdateQuiz(ctx, quiz); err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.Quiz{}, err
		}
		config.WithContext(ctx).WithError(err).WithField("quiz_id", id).Error("update quiz failed")
		return domain.Quiz{}, domain.ErrUnexpected
	}
	c.cache.Invalidate(ctx, id)
	return quiz, nil
}
