package guard

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"quizweb/internal/config"
	"quizweb/internal/domain"
)

// SessionFunc resolves the session of a request and whether it has been loaded.
type SessionFunc func(r *http.Request) (domain.Session, bool)

// Middleware redirects requests the guard rejects with 303 See Other.
func Middleware(session SessionFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phase := PhaseOf(session(r))
			if target, ok := Decide(phase, r.URL.Path); ok {
				config.WithContext(r.Context()).WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"phase": phase.String(),
					"to":    target,
				}).Debug("guard redirect")
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
