package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"quizweb/internal/app"
	"quizweb/internal/config"
	"quizweb/internal/infra/memory"
	"quizweb/internal/infra/postgres"
	redisinfra "quizweb/internal/infra/redis"
)

// services is the dependency graph shared by the start and seed commands.
type services struct {
	sessions  app.SessionRegistry
	auth      *app.AuthService
	authoring *app.Authoring
	catalog   *app.Catalog
	attempts  *app.Attempts

	closers []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices picks Postgres and Redis when configured and falls back to
// in-memory stores otherwise.
func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	log := config.Logger()
	s := &services{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, func() { redisClient.Close() })
		log.WithField("addr", cfg.Redis.Addr).Info("using redis for sessions and quiz cache")
	}

	var (
		users   app.UserRepository
		quizzes app.QuizRepository
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		users = postgres.NewUserRepository(pool)
		quizzes = postgres.NewQuizRepository(pool)
		log.Info("using postgres for users and quizzes")
	} else {
		log.Warn("postgres not configured, data lives in memory only")
		users = memory.NewUserRepository()
		quizzes = memory.NewQuizStore()
	}

	sessionTTL := config.TTLDuration(cfg.Auth.SessionTTL, 720*time.Hour)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var (
		slot  app.SessionSlot
		cache app.QuizCache
	)
	if redisClient != nil {
		slot = redisinfra.NewSessionSlot(redisClient, config.TTLDuration(cfg.Redis.TTL, sessionTTL))
		cache = redisinfra.NewQuizCache(redisClient, quizzes, quizTTL)
	} else {
		slot = memory.NewSessionSlot()
		cache = memory.NewQuizCache(quizzes, quizTTL)
	}

	s.sessions = memory.NewSessionStore(slot)
	s.auth = app.NewAuthService(users, app.AuthOptions{
		SignupAutoLogin: cfg.Auth.AutoLogin(),
		BcryptCost:      cfg.Auth.BcryptCost,
	})
	s.authoring = app.NewAuthoring(users, quizzes, app.AuthoringOptions{CoverImage: cfg.Quiz.CoverImage})
	s.catalog = app.NewCatalog(quizzes, cache)
	s.attempts = app.NewAttempts(s.catalog, quizzes, cache)
	return s, nil
}

// cookieSecret returns the configured signing secret, or a random one that
// only lives as long as the process.
func cookieSecret(cfg config.AuthConfig) ([]byte, error) {
	if cfg.Secret != "" {
		return []byte(cfg.Secret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate cookie secret: %w", err)
	}
	config.Logger().Warn("auth.secret not set, sessions will not survive a restart")
	return secret, nil
}
