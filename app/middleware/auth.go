package middleware

import (
	"context"
	"errors"
	"net/http"

	"inkwell/app/models"
	"inkwell/app/repositories"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	// SessionName is the cookie holding the caller's identity.
	SessionName = "inkwell_session"
	// SessionUserKey is the session value naming the author.
	SessionUserKey = "username"
)

// AuthorLookup resolves the username stored in a session.
type AuthorLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.Author, error)
}

// NewSessionStore returns the cookie store shared by the server and the
// session command.
func NewSessionStore(key []byte) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// IssueCookie encodes a session naming username, as the auth provider would.
func IssueCookie(store *sessions.CookieStore, username string) (*http.Cookie, error) {
	values := map[interface{}]interface{}{SessionUserKey: username}
	encoded, err := securecookie.EncodeMulti(SessionName, values, store.Codecs...)
	if err != nil {
		return nil, err
	}
	return sessions.NewCookie(SessionName, encoded, store.Options), nil
}

// Identity attaches the session's author to the request context. Requests
// without a valid session continue anonymously.
func Identity(store sessions.Store, authors AuthorLookup) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, SessionName)
			if err != nil {
				LogEntry(r).WithError(err).Debug("ignoring unreadable session")
				next.ServeHTTP(w, r)
				return
			}
			username, _ := session.Values[SessionUserKey].(string)
			if username == "" {
				next.ServeHTTP(w, r)
				return
			}

			author, err := authors.GetByUsername(r.Context(), username)
			if err != nil {
				if !errors.Is(err, repositories.ErrNotFound) {
					LogEntry(r).WithError(err).Error("failed to resolve session author")
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthor(r.Context(), author)))
		})
	}
}

// RequireAuthor answers 401 unless Identity found an author.
func RequireAuthor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentAuthor(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithAuthor returns ctx carrying author as the caller.
func WithAuthor(ctx context.Context, author *models.Author) context.Context {
	return context.WithValue(ctx, authorKey, author)
}

// CurrentAuthor returns the caller, if identified.
func CurrentAuthor(ctx context.Context) (*models.Author, bool) {
	author, ok := ctx.Value(authorKey).(*models.Author)
	return author, ok && author != nil
}

// ViewerID is the caller's id, or 0 when anonymous.
func ViewerID(ctx context.Context) int {
	if author, ok := CurrentAuthor(ctx); ok {
		return author.ID
	}
	return 0
}
