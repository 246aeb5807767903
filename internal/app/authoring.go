package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"quizweb/internal/config"
	"quizweb/internal/domain"
)

// WorkflowState is the position of a draft in the authoring state machine.
type WorkflowState string

const (
	StateEditing    WorkflowState = "editing"
	StateValidating WorkflowState = "validating"
	StateSubmitting WorkflowState = "submitting"
	StateSucceeded  WorkflowState = "succeeded"
)

type AuthoringOptions struct {
	CoverImage string
}

// Authoring keeps one quiz-creation workflow per browser and signed-in user,
// and runs submissions against the quiz store.
type Authoring struct {
	users   UserRepository
	quizzes QuizRepository
	opts    AuthoringOptions

	mu        sync.Mutex
	workflows map[workflowKey]*Workflow
}

type workflowKey struct {
	browser string
	ownerID int64
}

func NewAuthoring(users UserRepository, quizzes QuizRepository, opts AuthoringOptions) *Authoring {
	if opts.CoverImage == "" {
		opts.CoverImage = "/placeholder.svg"
	}
	return &Authoring{
		users:     users,
		quizzes:   quizzes,
		opts:      opts,
		workflows: make(map[workflowKey]*Workflow),
	}
}

// Workflow returns the workflow of ownerID on a browser, starting a fresh
// draft if needed. Drafts of different users never share a workflow.
func (a *Authoring) Workflow(browser string, ownerID int64) *Workflow {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := workflowKey{browser: browser, ownerID: ownerID}
	if w, ok := a.workflows[key]; ok {
		return w
	}
	w := &Workflow{owner: a, key: key, state: StateEditing, draft: domain.NewDraft()}
	a.workflows[key] = w
	return w
}

// Discard drops the draft of ownerID on a browser. An in-flight submission
// keeps running; only its result is forgotten.
func (a *Authoring) Discard(browser string, ownerID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.workflows, workflowKey{browser: browser, ownerID: ownerID})
}

// DiscardBrowser drops every draft held for a browser. It runs whenever the
// signed-in user of the browser changes.
func (a *Authoring) DiscardBrowser(browser string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key := range a.workflows {
		if key.browser == browser {
			delete(a.workflows, key)
		}
	}
}

// release forgets w once its quiz is written, unless a newer workflow
// already took its place.
func (a *Authoring) release(w *Workflow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.workflows[w.key] == w {
		delete(a.workflows, w.key)
	}
}

// WorkflowSnapshot is a copy of a workflow safe to hand to the transport layer.
type WorkflowSnapshot struct {
	State     WorkflowState `json:"state"`
	Draft     domain.Draft  `json:"draft"`
	LastError string        `json:"lastError,omitempty"`
	QuizID    int64         `json:"quizId,omitempty"`
}

// Workflow is one author's draft plus its submission state.
type Workflow struct {
	owner *Authoring
	key   workflowKey

	mu      sync.Mutex
	state   WorkflowState
	draft   domain.Draft
	lastErr error
	quizID  int64
}

func (w *Workflow) Snapshot() WorkflowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Apply patches the draft. Editing is refused while a submission is running.
func (w *Workflow) Apply(patch domain.DraftPatch) (WorkflowSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateSubmitting, StateValidating:
		return w.snapshotLocked(), domain.ErrDraftLocked
	case StateSucceeded:
		w.draft = domain.NewDraft()
		w.quizID = 0
	}
	w.state = StateEditing
	w.lastErr = nil
	w.draft.Apply(patch)
	return w.snapshotLocked(), nil
}

// Submit validates the draft and writes it as a new quiz owned by identity.
// Writes are sequential: quiz row, then each question followed by its answer.
// Any failure rolls back what was written and leaves the draft intact.
func (w *Workflow) Submit(ctx context.Context, identity *domain.Identity) (domain.Quiz, error) {
	if identity == nil {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}

	w.mu.Lock()
	if w.state == StateSubmitting || w.state == StateValidating {
		w.mu.Unlock()
		return domain.Quiz{}, domain.ErrSubmitInProgress
	}
	w.state = StateValidating
	if err := w.draft.Validate(); err != nil {
		w.state = StateEditing
		w.lastErr = err
		w.mu.Unlock()
		return domain.Quiz{}, err
	}
	w.state = StateSubmitting
	w.lastErr = nil
	draft := w.draft
	draft.Questions = copyQuestions(w.draft.Questions)
	w.mu.Unlock()

	// leaving the page must not abort writes halfway
	quiz, err := w.owner.run(context.WithoutCancel(ctx), *identity, draft)

	w.mu.Lock()
	if err != nil {
		// a failed run hands the intact draft back for editing
		w.state = StateEditing
		w.lastErr = err
		w.mu.Unlock()
		return domain.Quiz{}, err
	}
	w.state = StateSucceeded
	w.quizID = quiz.ID
	w.draft = domain.NewDraft()
	w.mu.Unlock()

	w.owner.release(w)
	return quiz, nil
}

func (w *Workflow) snapshotLocked() WorkflowSnapshot {
	snap := WorkflowSnapshot{State: w.state, Draft: w.draft, QuizID: w.quizID}
	snap.Draft.Questions = copyQuestions(w.draft.Questions)
	if w.lastErr != nil {
		snap.LastError = domain.UserMessage(w.lastErr)
	}
	return snap
}

func (a *Authoring) run(ctx context.Context, identity domain.Identity, draft domain.Draft) (quiz domain.Quiz, err error) {
	log := config.WithContext(ctx).WithField("email", identity.Email)
	var undo []func(context.Context) error
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("quiz submission panicked")
			if rbErr := rollback(ctx, undo); rbErr != nil {
				log.WithError(rbErr).Error("rollback after panic failed")
			}
			quiz, err = domain.Quiz{}, domain.ErrUnexpected
		}
	}()

	fail := func(stageErr *domain.StageError) (domain.Quiz, error) {
		stageErr.RollbackErr = rollback(ctx, undo)
		log.WithError(stageErr).WithFields(logrus.Fields{
			"stage": stageErr.Stage,
			"index": stageErr.Index,
		}).Error("quiz submission failed")
		return domain.Quiz{}, stageErr
	}

	owner, err := a.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		return fail(&domain.StageError{Stage: domain.StageResolveOwner, Err: err})
	}

	quiz, err = a.quizzes.CreateQuiz(ctx, domain.Quiz{
		OwnerID:            owner.ID,
		Title:              strings.TrimSpace(draft.Title),
		CategoryID:         draft.CategoryID,
		CoverImage:         a.opts.CoverImage,
		ParticipationCount: 0,
	})
	if err != nil {
		return fail(&domain.StageError{Stage: domain.StageQuiz, Err: err})
	}
	quizID := quiz.ID
	undo = append(undo, func(ctx context.Context) error { return a.quizzes.DeleteQuiz(ctx, quizID) })

	for i, q := range draft.Ready() {
		index := i + 1
		question, err := a.quizzes.CreateQuestion(ctx, domain.Question{QuizID: quizID, Text: strings.TrimSpace(q.Text)})
		if err != nil {
			return fail(&domain.StageError{Stage: domain.StageQuestion, Index: index, Err: err})
		}
		questionID := question.ID
		undo = append(undo, func(ctx context.Context) error { return a.quizzes.DeleteQuestion(ctx, questionID) })

		if err := a.quizzes.CreateAnswer(ctx, domain.Answer{QuizID: quizID, QuestionID: questionID, Value: *q.Answer}); err != nil {
			return fail(&domain.StageError{Stage: domain.StageAnswer, Index: index, Err: err})
		}
		undo = append(undo, func(ctx context.Context) error { return a.quizzes.DeleteAnswer(ctx, questionID) })
	}

	log.WithField("quiz_id", quizID).Info("quiz created")
	return quiz, nil
}

// rollback runs compensations newest first and reports every failure.
func rollback(ctx context.Context, undo []func(context.Context) error) error {
	var errs []error
	for i := len(undo) - 1; i >= 0; i-- {
		if err := undo[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d compensating writes failed: %w", len(errs), errors.Join(errs...))
}

func copyQuestions(in map[int]domain.DraftQuestion) map[int]domain.DraftQuestion {
	out := make(map[int]domain.DraftQuestion, len(in))
	for k, v := range in {
		if v.Answer != nil {
			answer := *v.Answer
			v.Answer = &answer
		}
		out[k] = v
	}
	return out
}
