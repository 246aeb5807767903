package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is deliberately generic: it never says which field was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrDisplayNameTaken   = errors.New("this display name is already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthenticated    = errors.New("not authenticated")

	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNotQuizOwner     = errors.New("only the quiz owner can edit it")

	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrDraftLocked      = errors.New("draft cannot be edited while it is being submitted")
	ErrUnexpected       = errors.New("an unexpected error occurred")
)

// ValidationError carries a user-facing message for the first failed rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// Stage names a step of the quiz submission protocol.
type Stage string

const (
	StageResolveOwner Stage = "resolve owner"
	StageQuiz         Stage = "create quiz"
	StageQuestion     Stage = "add question"
	StageAnswer       Stage = "add answer"
)

// StageError reports which step of a submission failed. Index is 1-based and
// only meaningful for question and answer stages.
type StageError struct {
	Stage       Stage
	Index       int
	Err         error
	RollbackErr error
}

func (e *StageError) Error() string {
	msg := e.UserMessage()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.RollbackErr != nil {
		msg += " (rollback failed: " + e.RollbackErr.Error() + ")"
	}
	return msg
}

// UserMessage names the failed stage without the underlying cause, which may
// carry database details.
func (e *StageError) UserMessage() string {
	switch e.Stage {
	case StageQuestion:
		return fmt.Sprintf("error adding question %d", e.Index)
	case StageAnswer:
		return fmt.Sprintf("error adding answer %d", e.Index)
	case StageQuiz:
		return "error creating quiz"
	default:
		return "error resolving quiz owner"
	}
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text of err that is safe to show to a user.
func UserMessage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.UserMessage()
	}
	return err.Error()
}
