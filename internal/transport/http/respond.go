package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quizweb/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Stage string `json:"stage,omitempty"`
	Index int    `json:"index,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeDomainError maps service errors to a status and a user-facing message.
// Anything unclassified is reported generically.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var stageErr *domain.StageError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Message, Field: verr.Field})
	case errors.As(err, &stageErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: stageErr.UserMessage(), Stage: string(stageErr.Stage), Index: stageErr.Index})
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrEmailTaken), errors.Is(err, domain.ErrDisplayNameTaken),
		errors.Is(err, domain.ErrSubmitInProgress), errors.Is(err, domain.ErrDraftLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotQuizOwner):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, domain.ErrUnexpected.Error())
	}
}

type redirectBody struct {
	Redirect string `json:"redirect"`
}

// redirectTo answers 303 See Other with the target echoed in the body for
// clients that do not follow redirects.
func redirectTo(w http.ResponseWriter, target string) {
	w.Header().Set("Location", target)
	writeJSON(w, http.StatusSeeOther, redirectBody{Redirect: target})
}
