package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"quizweb/internal/app"
	"quizweb/internal/config"
	"quizweb/internal/domain"
	"quizweb/internal/infra/memory"
)

const (
	seedDisplayName = "demo"
	seedEmail       = "demo@quizweb.local"
	seedPassword    = "demo-password"
)

type seedQuestion struct {
	text   string
	answer bool
}

var seedQuizzes = []struct {
	title    string
	category int
	items    []seedQuestion
}{
	{
		title:    "Les bases de Go",
		category: 4,
		items: []seedQuestion{
			{"Go has a garbage collector", true},
			{"Go supports class inheritance", false},
			{"A goroutine is an operating system thread", false},
		},
	},
	{
		title:    "Football",
		category: 1,
		items: []seedQuestion{
			{"A football team fields eleven players", true},
			{"A match lasts two halves of 30 minutes", false},
		},
	},
}

// NewSeedCmd creates a demo account with a few quizzes in the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create a demo user and sample quizzes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			config.InitLogger(cfg.Log)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured, nothing to seed")
			}
			ctx := cmd.Context()
			if err := runMigrations(ctx, cfg); err != nil {
				return err
			}
			svc, err := buildServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()
			return seed(ctx, svc)
		},
	}
}

// seed signs the demo user in on a throwaway session and authors the sample
// quizzes through the regular workflow.
func seed(ctx context.Context, svc *services) error {
	log := config.Logger()
	sess := app.NewSession("seed", memory.NewSessionSlot())

	identity, err := svc.auth.Signup(ctx, sess, seedDisplayName, seedEmail, seedPassword)
	switch {
	case errors.Is(err, domain.ErrEmailTaken), errors.Is(err, domain.ErrDisplayNameTaken):
		identity, err = svc.auth.Login(ctx, sess, seedEmail, seedPassword)
		if err != nil {
			return fmt.Errorf("sign in demo user: %w", err)
		}
	case err != nil:
		return fmt.Errorf("create demo user: %w", err)
	}

	for _, q := range seedQuizzes {
		wf := svc.authoring.Workflow(sess.Key(), identity.ID)
		title, category, count := q.title, q.category, len(q.items)
		patch := domain.DraftPatch{
			Title:         &title,
			CategoryID:    &category,
			QuestionCount: &count,
			Questions:     make(map[int]domain.DraftQuestionPatch, len(q.items)),
		}
		for i, item := range q.items {
			text, answer := item.text, item.answer
			patch.Questions[i+1] = domain.DraftQuestionPatch{Text: &text, Answer: &answer}
		}
		if _, err := wf.Apply(patch); err != nil {
			return err
		}
		quiz, err := wf.Submit(ctx, &identity)
		if err != nil {
			return fmt.Errorf("seed quiz %q: %w", q.title, err)
		}
		log.WithField("quiz_id", quiz.ID).Infof("seeded quiz %q", quiz.Title)
	}
	return nil
}
