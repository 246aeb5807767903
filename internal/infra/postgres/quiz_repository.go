package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quizweb/internal/domain"
)

// QuizRepository stores quizzes, questions and answers. Each call is a single
// statement; multi-step consistency is handled by the caller.
type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (owner_id, title, category_id, cover_image, participation_count)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		quiz.OwnerID, quiz.Title, quiz.CategoryID, quiz.CoverImage, quiz.ParticipationCount,
	).Scan(&quiz.ID, &quiz.CreatedAt)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return quiz, nil
}

func (r *QuizRepository) CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, text) VALUES ($1, $2) RETURNING id`,
		question.QuizID, question.Text,
	).Scan(&question.ID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return question, nil
}

func (r *QuizRepository) CreateAnswer(ctx context.Context, answer domain.Answer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answers (quiz_id, question_id, value) VALUES ($1, $2, $3)`,
		answer.QuizID, answer.QuestionID, answer.Value,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (r *QuizRepository) DeleteQuiz(ctx context.Context, quizID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID); err != nil {
		return fmt.Errorf("delete quiz %d: %w", quizID, err)
	}
	return nil
}

func (r *QuizRepository) DeleteQuestion(ctx context.Context, questionID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, questionID); err != nil {
		return fmt.Errorf("delete question %d: %w", questionID, err)
	}
	return nil
}

func (r *QuizRepository) DeleteAnswer(ctx context.Context, questionID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM answers WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("delete answer %d: %w", questionID, err)
	}
	return nil
}

const selectQuiz = `SELECT id, owner_id, title, category_id, cover_image, created_at, participation_count FROM quizzes`

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.OwnerID, &q.Title, &q.CategoryID, &q.CoverImage, &q.CreatedAt, &q.ParticipationCount)
	return q, err
}

// LoadQuiz reads the quiz row and its questions with their answers.
func (r *QuizRepository) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizDetail, error) {
	quiz, err := scanQuiz(r.pool.QueryRow(ctx, selectQuiz+` WHERE id = $1`, quizID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizDetail{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizDetail{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.text, COALESCE(a.value, false)
		 FROM questions q LEFT JOIN answers a ON a.question_id = q.id
		 WHERE q.quiz_id = $1 ORDER BY q.id`, quizID)
	if err != nil {
		return domain.QuizDetail{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	detail := domain.QuizDetail{
		Quiz:      quiz,
		Category:  domain.CategoryName(quiz.CategoryID),
		Questions: make([]domain.QuizQuestion, 0),
	}
	for rows.Next() {
		var q domain.QuizQuestion
		if err := rows.Scan(&q.ID, &q.Text, &q.Answer); err != nil {
			return domain.QuizDetail{}, fmt.Errorf("scan question: %w", err)
		}
		detail.Questions = append(detail.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizDetail{}, fmt.Errorf("load questions: %w", err)
	}
	return detail, nil
}

// ListQuizzes applies the filter in SQL. Titles match as case-insensitive substrings.
func (r *QuizRepository) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Title != "" {
		args = append(args, filter.Title)
		where = append(where, fmt.Sprintf("strpos(lower(title), lower($%d)) > 0", len(args)))
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.OwnerID != 0 {
		args = append(args, filter.OwnerID)
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}

	query := selectQuiz
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.Popular {
		query += " ORDER BY participation_count DESC, created_at DESC, id DESC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Quiz, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *QuizRepository) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET title = $1, category_id = $2 WHERE id = $3`,
		quiz.Title, quiz.CategoryID, quiz.ID,
	)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (r *QuizRepository) IncrementParticipation(ctx context.Context, quizID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE quizzes SET participation_count = participation_count + 1 WHERE id = $1`, quizID)
	if err != nil {
		return fmt.Errorf("increment participation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
