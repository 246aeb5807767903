package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quizweb/internal/domain"
)

const uniqueViolation = "23505"

// UserRepository stores identity records in the users table.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const selectUser = `SELECT id, display_name, email, password_hash, role, created_at FROM users`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, selectUser+` WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) FindByDisplayName(ctx context.Context, displayName string) (domain.User, error) {
	return r.findOne(ctx, selectUser+` WHERE display_name = $1`, displayName)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (display_name, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		user.DisplayName, user.Email, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_display_name_key" {
				return domain.User{}, domain.ErrDisplayNameTaken
			}
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}
