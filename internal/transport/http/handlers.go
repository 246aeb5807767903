package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"quizweb/internal/app"
	"quizweb/internal/config"
	"quizweb/internal/domain"
)

// Handler serves the page routes as JSON views.
type Handler struct {
	auth      *app.AuthService
	authoring *app.Authoring
	catalog   *app.Catalog
	attempts  *app.Attempts
}

func NewHandler(auth *app.AuthService, authoring *app.Authoring, catalog *app.Catalog, attempts *app.Attempts) *Handler {
	return &Handler{auth: auth, authoring: authoring, catalog: catalog, attempts: attempts}
}

type homeView struct {
	Identity   *domain.Identity     `json:"identity,omitempty"`
	TopQuizzes []domain.QuizSummary `json:"topQuizzes"`
	Categories []domain.Category    `json:"categories"`
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	top, err := h.catalog.TopQuizzes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, homeView{
		Identity:   currentIdentity(r),
		TopQuizzes: top,
		Categories: h.catalog.ListCategories(),
	})
}

type credentials struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// bindCredentials accepts either a JSON body or a classic form post.
func bindCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			return c, err
		}
		return c, nil
	}
	if err := r.ParseForm(); err != nil {
		return c, err
	}
	c.DisplayName = r.PostFormValue("displayName")
	c.Email = r.PostFormValue("email")
	c.Password = r.PostFormValue("password")
	return c, nil
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": "login"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := bindCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := sessionFrom(r.Context())
	if _, err := h.auth.Login(r.Context(), sess, c.Email, c.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	h.authoring.DiscardBrowser(sess.Key())
	redirectTo(w, "/")
}

func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"page": "signup", "autoLogin": h.auth.AutoLogin()})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	c, err := bindCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := sessionFrom(r.Context())
	if _, err := h.auth.Signup(r.Context(), sess, c.DisplayName, c.Email, c.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	h.authoring.DiscardBrowser(sess.Key())
	if h.auth.AutoLogin() {
		redirectTo(w, "/")
		return
	}
	redirectTo(w, "/login")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := h.auth.Logout(r.Context(), sess); err != nil {
		writeDomainError(w, err)
		return
	}
	h.authoring.DiscardBrowser(sess.Key())
	redirectTo(w, "/")
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.ListCategories())
}

type categoryView struct {
	Category domain.Category      `json:"category"`
	Quizzes  []domain.QuizSummary `json:"quizzes"`
}

func (h *Handler) Category(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrCategoryNotFound.Error())
		return
	}
	cat, err := h.catalog.GetCategory(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	quizzes, err := h.catalog.ListQuizzes(r.Context(), domain.QuizFilter{CategoryID: id})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryView{Category: cat, Quizzes: quizzes})
}

type searchView struct {
	Title   string               `json:"title"`
	Quizzes []domain.QuizSummary `json:"quizzes"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	quizzes, err := h.catalog.ListQuizzes(r.Context(), domain.QuizFilter{Title: title})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchView{Title: title, Quizzes: quizzes})
}

type createQuizView struct {
	app.WorkflowSnapshot
	Categories []domain.Category `json:"categories"`
}

// workflow returns the draft of the signed-in user on this browser.
func (h *Handler) workflow(r *http.Request) (*app.Workflow, error) {
	identity := currentIdentity(r)
	if identity == nil {
		return nil, domain.ErrUnauthenticated
	}
	return h.authoring.Workflow(sessionFrom(r.Context()).Key(), identity.ID), nil
}

func (h *Handler) CreateQuizPage(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflow(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	snap := wf.Snapshot()
	writeJSON(w, http.StatusOK, createQuizView{WorkflowSnapshot: snap, Categories: h.catalog.ListCategories()})
}

func (h *Handler) PatchDraft(w http.ResponseWriter, r *http.Request) {
	var patch domain.DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft payload")
		return
	}
	wf, err := h.workflow(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	snap, err := wf.Apply(patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SubmitQuiz optionally applies a final patch from the body, then submits.
func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflow(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if r.ContentLength > 0 {
		var patch domain.DraftPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid draft payload")
			return
		}
		if _, err := wf.Apply(patch); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	quiz, err := wf.Submit(r.Context(), currentIdentity(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	redirectTo(w, fmt.Sprintf("/quiz/%d", quiz.ID))
}

func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if identity := currentIdentity(r); identity != nil {
		h.authoring.Discard(sessionFrom(r.Context()).Key(), identity.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

type questionView struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Answer *bool  `json:"answer,omitempty"`
}

type quizView struct {
	Quiz      domain.Quiz    `json:"quiz"`
	Category  string         `json:"category"`
	Owner     bool           `json:"owner"`
	Questions []questionView `json:"questions"`
}

// newQuizView hides expected answers from everyone but the owner.
func newQuizView(detail domain.QuizDetail, identity *domain.Identity) quizView {
	owner := identity != nil && identity.ID == detail.Quiz.OwnerID
	view := quizView{
		Quiz:      detail.Quiz,
		Category:  detail.Category,
		Owner:     owner,
		Questions: make([]questionView, 0, len(detail.Questions)),
	}
	for _, q := range detail.Questions {
		qv := questionView{ID: q.ID, Text: q.Text}
		if owner {
			answer := q.Answer
			qv.Answer = &answer
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func quizID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) Quiz(w http.ResponseWriter, r *http.Request) {
	id, ok := quizID(r)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrQuizNotFound.Error())
		return
	}
	detail, err := h.catalog.GetQuiz(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizView(detail, currentIdentity(r)))
}

type attemptRequest struct {
	Responses map[int64]bool `json:"responses"`
}

func (h *Handler) Attempt(w http.ResponseWriter, r *http.Request) {
	id, ok := quizID(r)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrQuizNotFound.Error())
		return
	}
	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid attempt payload")
		return
	}
	result, err := h.attempts.Submit(r.Context(), id, req.Responses)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) EditQuizPage(w http.ResponseWriter, r *http.Request) {
	id, ok := quizID(r)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrQuizNotFound.Error())
		return
	}
	detail, err := h.catalog.GetQuiz(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	view := newQuizView(detail, currentIdentity(r))
	if !view.Owner {
		writeDomainError(w, domain.ErrNotQuizOwner)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		quizView
		Categories []domain.Category `json:"categories"`
	}{view, h.catalog.ListCategories()})
}

type editRequest struct {
	Title      string `json:"title"`
	CategoryID int    `json:"categoryId"`
}

func (h *Handler) EditQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := quizID(r)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrQuizNotFound.Error())
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz payload")
		return
	}
	quiz, err := h.catalog.UpdateQuiz(r.Context(), currentIdentity(r), id, req.Title, req.CategoryID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	config.WithContext(r.Context()).WithField("quiz_id", quiz.ID).Info("quiz updated")
	writeJSON(w, http.StatusOK, quiz)
}

type profileView struct {
	Identity *domain.Identity     `json:"identity"`
	Quizzes  []domain.QuizSummary `json:"quizzes"`
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	identity := currentIdentity(r)
	if identity == nil {
		writeDomainError(w, domain.ErrUnauthenticated)
		return
	}
	quizzes, err := h.catalog.ListQuizzes(r.Context(), domain.QuizFilter{OwnerID: identity.ID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileView{Identity: identity, Quizzes: quizzes})
}
