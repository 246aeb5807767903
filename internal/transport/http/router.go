package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"quizweb/internal/app"
	"quizweb/internal/config"
	"quizweb/internal/guard"
)

type RouterConfig struct {
	Keys      *BrowserKeys
	Sessions  app.SessionRegistry
	Handler   *Handler
	WSHandler *WSHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware(cfg.Keys, cfg.Sessions))
		r.Use(guard.Middleware(requestSession))

		h := cfg.Handler
		r.Get("/", h.Home)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Get("/signup", h.SignupPage)
		r.Post("/signup", h.Signup)
		r.Post("/logout", h.Logout)

		r.Get("/categories", h.Categories)
		r.Get("/category/{id}", h.Category)
		r.Get("/recherche", h.Search)

		r.Route("/create-quiz", func(r chi.Router) {
			r.Get("/", h.CreateQuizPage)
			r.Patch("/", h.PatchDraft)
			r.Post("/", h.SubmitQuiz)
			r.Delete("/", h.DiscardDraft)
		})

		r.Get("/quiz/{id}", h.Quiz)
		r.Post("/quiz/{id}/attempts", h.Attempt)
		r.Get("/edit-quiz/{id}", h.EditQuizPage)
		r.Post("/edit-quiz/{id}", h.EditQuiz)
		r.Get("/profile", h.Profile)

		r.Get("/ws/session", cfg.WSHandler.ServeWS)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		config.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
