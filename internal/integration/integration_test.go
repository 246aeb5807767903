package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
	"quizweb/internal/app"
	"quizweb/internal/domain"
	"quizweb/internal/infra/memory"
	"quizweb/internal/infra/postgres"
	pgmigrations "quizweb/internal/infra/postgres/migrations"
	infraredis "quizweb/internal/infra/redis"
)

type stack struct {
	pool      *pgxpool.Pool
	redis     *goredis.Client
	users     *postgres.UserRepository
	quizzes   *postgres.QuizRepository
	slot      *infraredis.SessionSlot
	auth      *app.AuthService
	catalog   *app.Catalog
	attempts  *app.Attempts
	authoring *app.Authoring
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	s := &stack{
		pool:    pool,
		redis:   redisClient,
		users:   postgres.NewUserRepository(pool),
		quizzes: postgres.NewQuizRepository(pool),
		slot:    infraredis.NewSessionSlot(redisClient, time.Hour),
	}
	cache := infraredis.NewQuizCache(redisClient, s.quizzes, 5*time.Minute)
	s.auth = app.NewAuthService(s.users, app.AuthOptions{SignupAutoLogin: true, BcryptCost: bcrypt.MinCost})
	s.catalog = app.NewCatalog(s.quizzes, cache)
	s.attempts = app.NewAttempts(s.catalog, s.quizzes, cache)
	s.authoring = app.NewAuthoring(s.users, s.quizzes, app.AuthoringOptions{})
	return s
}

func TestAuthorAndPlayEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	sessions := memory.NewSessionStore(s.slot)
	sess := sessions.GetOrCreate("browser-1")
	identity, err := s.auth.Signup(ctx, sess, "alice", "Alice@Example.com", "secret1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	// a fresh process sees the same session through redis
	reloaded := memory.NewSessionStore(s.slot).GetOrCreate("browser-1").Load(ctx)
	if !reloaded.Authenticated() || reloaded.Identity.ID != identity.ID {
		t.Fatalf("expected session to survive reload, got %+v", reloaded)
	}

	if _, err := s.auth.Signup(ctx, sessions.GetOrCreate("browser-2"), "alice2", "alice@example.com", "secret1"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected case-insensitive duplicate email, got %v", err)
	}

	wf := s.authoring.Workflow("browser-1", identity.ID)
	if _, err := wf.Apply(draftPatch("Capitales d'Europe", 5, []bool{true, false, true})); err != nil {
		t.Fatalf("apply: %v", err)
	}
	quiz, err := wf.Submit(ctx, &identity)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if quiz.OwnerID != identity.ID || quiz.CoverImage != "/placeholder.svg" {
		t.Fatalf("unexpected quiz row: %+v", quiz)
	}

	detail, err := s.catalog.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(detail.Questions) != 3 || detail.Category != "Culture générale" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	for i, q := range detail.Questions {
		if q.Text != fmt.Sprintf("question %d", i+1) {
			t.Fatalf("questions out of order: %+v", detail.Questions)
		}
	}

	found, err := s.catalog.ListQuizzes(ctx, domain.QuizFilter{Title: "capitales"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != quiz.ID {
		t.Fatalf("expected search hit, got %+v", found)
	}

	responses := map[int64]bool{}
	for _, q := range detail.Questions {
		responses[q.ID] = q.Answer
	}
	result, err := s.attempts.Submit(ctx, quiz.ID, responses)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if result.Correct != 3 {
		t.Fatalf("expected perfect score, got %d/%d", result.Correct, result.Total)
	}

	detail, err = s.catalog.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz after attempt: %v", err)
	}
	if detail.Quiz.ParticipationCount != 1 {
		t.Fatalf("expected cache invalidated after attempt, got count %d", detail.Quiz.ParticipationCount)
	}
}

// failingAnswers breaks the nth answer insert to exercise rollback against a real database.
type failingAnswers struct {
	*postgres.QuizRepository
	failAt int
	calls  int
}

func (f *failingAnswers) CreateAnswer(ctx context.Context, answer domain.Answer) error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("connection reset")
	}
	return f.QuizRepository.CreateAnswer(ctx, answer)
}

func TestSubmitRollsBackPartialQuiz(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	sess := memory.NewSessionStore(s.slot).GetOrCreate("browser-1")
	identity, err := s.auth.Signup(ctx, sess, "bob", "bob@example.com", "secret1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	repo := &failingAnswers{QuizRepository: s.quizzes, failAt: 2}
	authoring := app.NewAuthoring(s.users, repo, app.AuthoringOptions{})
	wf := authoring.Workflow("browser-1", identity.ID)
	if _, err := wf.Apply(draftPatch("Partial", 4, []bool{true, false, true})); err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err = wf.Submit(ctx, &identity)
	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != domain.StageAnswer || stageErr.Index != 2 {
		t.Fatalf("expected answer 2 failure, got %v", err)
	}
	if stageErr.RollbackErr != nil {
		t.Fatalf("rollback failed: %v", stageErr.RollbackErr)
	}

	for table, want := range map[string]int{"quizzes": 0, "questions": 0, "answers": 0} {
		var got int
		if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != want {
			t.Fatalf("expected %d rows in %s after rollback, got %d", want, table, got)
		}
	}

	// the draft survives, so a retry succeeds once the store recovers
	repo.failAt = 0
	if _, err := wf.Submit(ctx, &identity); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestDisplayNameConstraint(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	if _, err := s.users.Create(ctx, domain.User{DisplayName: "carol", Email: "carol@example.com", PasswordHash: "x", Role: domain.RoleUser}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.users.Create(ctx, domain.User{DisplayName: "carol", Email: "other@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if !errors.Is(err, domain.ErrDisplayNameTaken) {
		t.Fatalf("expected display name conflict, got %v", err)
	}
	_, err = s.users.Create(ctx, domain.User{DisplayName: "carol2", Email: "CAROL@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func draftPatch(title string, category int, answers []bool) domain.DraftPatch {
	count := len(answers)
	patch := domain.DraftPatch{
		Title:         &title,
		CategoryID:    &category,
		QuestionCount: &count,
		Questions:     make(map[int]domain.DraftQuestionPatch, count),
	}
	for i, answer := range answers {
		text, a := fmt.Sprintf("question %d", i+1), answer
		patch.Questions[i+1] = domain.DraftQuestionPatch{Text: &text, Answer: &a}
	}
	return patch
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
