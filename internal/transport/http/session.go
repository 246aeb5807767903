package http

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"quizweb/internal/app"
	"quizweb/internal/domain"
)

// BrowserKeys issues and verifies the signed cookie that identifies a browser.
// The cookie only names the browser; the session itself lives in the slot.
type BrowserKeys struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

type browserClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

func NewBrowserKeys(secret []byte, cookieName string, ttl time.Duration) *BrowserKeys {
	return &BrowserKeys{secret: secret, cookieName: cookieName, ttl: ttl, now: time.Now}
}

// Resolve returns the browser key of r, minting and setting a new cookie when
// the current one is missing, forged or expired. Cookies past half their
// lifetime are re-issued for the same key.
func (b *BrowserKeys) Resolve(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(b.cookieName); err == nil {
		if claims, err := b.parse(cookie.Value); err == nil {
			if claims.IssuedAt != nil && b.now().Sub(claims.IssuedAt.Time) > b.ttl/2 {
				b.issue(w, claims.SID)
			}
			return claims.SID
		}
	}
	sid := uuid.NewString()
	b.issue(w, sid)
	return sid
}

func (b *BrowserKeys) parse(raw string) (*browserClaims, error) {
	claims := &browserClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now))
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.SID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (b *BrowserKeys) issue(w http.ResponseWriter, sid string) {
	now := b.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, browserClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
		},
	}).SignedString(b.secret)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(b.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type sessionCtxKey struct{}

// sessionMiddleware attaches the browser's live session to the request,
// loading it from the slot first. Idle sessions are released afterwards.
func sessionMiddleware(keys *BrowserKeys, sessions app.SessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keys.Resolve(w, r)
			sess := sessions.GetOrCreate(key)
			defer sessions.DeleteIfIdle(key)

			sess.Load(r.Context())
			ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(ctx context.Context) *app.Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*app.Session)
	return sess
}

// requestSession reports the session snapshot for the route guard.
func requestSession(r *http.Request) (domain.Session, bool) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		return domain.Session{}, false
	}
	return sess.Snapshot()
}

func currentIdentity(r *http.Request) *domain.Identity {
	snap, _ := requestSession(r)
	return snap.Identity
}
