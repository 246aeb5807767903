// Package guard decides which routes a visitor may see for a given
// authentication phase. It is the single place where route protection lives.
package guard

import (
	"strings"
	"sync"

	"quizweb/internal/domain"
)

// Phase is the authentication phase of a browser.
type Phase int

const (
	// Loading lasts until the session has been read once; nothing redirects meanwhile.
	Loading Phase = iota
	Unauthenticated
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "authenticated"
	}
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// A prefix ending in "/" only guards the paths below it.
var protectedPrefixes = []string{"/create-quiz", "/profile", "/quiz/", "/edit-quiz"}

var authOnlyPaths = map[string]struct{}{
	"/login":  {},
	"/signup": {},
}

// PhaseOf maps a session snapshot to its phase.
func PhaseOf(session domain.Session, loaded bool) Phase {
	switch {
	case !loaded:
		return Loading
	case session.Authenticated():
		return Authenticated
	default:
		return Unauthenticated
	}
}

// IsProtected reports whether path needs an authenticated session. Prefixes
// match whole segments, so /quizzes is not protected by /quiz/.
func IsProtected(path string) bool {
	path = normalize(path)
	for _, prefix := range protectedPrefixes {
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// IsAuthOnly reports whether path is meant for signed-out visitors only.
func IsAuthOnly(path string) bool {
	_, ok := authOnlyPaths[normalize(path)]
	return ok
}

// Decide returns the redirect target for a visit to path, if any.
func Decide(phase Phase, path string) (string, bool) {
	switch phase {
	case Unauthenticated:
		if IsProtected(path) {
			return LoginPath, true
		}
	case Authenticated:
		if IsAuthOnly(path) {
			return HomePath, true
		}
	}
	return "", false
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return HomePath
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return HomePath
		}
	}
	return path
}

// Tracker re-evaluates the guard whenever the path or the session changes,
// mirroring what a single-page client sees.
type Tracker struct {
	mu    sync.Mutex
	path  string
	phase Phase
}

func NewTracker(path string) *Tracker {
	return &Tracker{path: normalize(path), phase: Loading}
}

// Navigate records a new path and returns the redirect it triggers, if any.
// A redirect moves the tracker to the target path.
func (t *Tracker) Navigate(path string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.path = normalize(path)
	return t.evaluateLocked()
}

// SessionChanged records a new session value, ending the loading phase.
func (t *Tracker) SessionChanged(session domain.Session) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = PhaseOf(session, true)
	return t.evaluateLocked()
}

func (t *Tracker) Path() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Tracker) evaluateLocked() (string, bool) {
	target, ok := Decide(t.phase, t.path)
	if ok {
		t.path = target
	}
	return target, ok
}
