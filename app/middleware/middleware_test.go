package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inkwell/app/models"
	"inkwell/app/monitoring"
	"inkwell/app/repositories"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)

	handler := RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "GET", entry.Data["method"])
	assert.Equal(t, "/test", entry.Data["path"])
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Contains(t, entry.Data, "duration")
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("GET", "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rw.Header().Get(RequestIDHeader))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "given")
	rw = httptest.NewRecorder()
	handler.ServeHTTP(rw, req)
	assert.Equal(t, "given", seen)
}

func TestRecoverer(t *testing.T) {
	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)

	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "test panic", hook.LastEntry().Data["panic"])
}

func TestContentTypeJSON(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedHeader string
	}{
		{
			name:           "API route",
			path:           "/api/test",
			expectedHeader: "application/json",
		},
		{
			name:           "Non-API route",
			path:           "/test",
			expectedHeader: "",
		},
		{
			name:           "Short path",
			path:           "/",
			expectedHeader: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedHeader, w.Header().Get("Content-Type"))
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	handler := Logger(Recoverer(ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "panic") {
			panic("test panic")
		}
		w.WriteHeader(http.StatusOK)
	}))))

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"Normal API request", "/api/test", http.StatusOK},
		{"Panic request", "/api/panic", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestInstrumentUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Instrument)
	router.HandleFunc("/instrumented/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	before := testutil.CollectAndCount(monitoring.RequestDuration)
	for _, path := range []string{"/instrumented/1", "/instrumented/2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}
	// Both requests land in the same series.
	assert.Equal(t, before+1, testutil.CollectAndCount(monitoring.RequestDuration))
}

type fakeAuthors map[string]*models.Author

func (f fakeAuthors) GetByUsername(_ context.Context, username string) (*models.Author, error) {
	if a, ok := f[username]; ok {
		return a, nil
	}
	return nil, repositories.ErrNotFound
}

func TestIdentity(t *testing.T) {
	store := NewSessionStore([]byte("0123456789abcdef0123456789abcdef"))
	authors := fakeAuthors{"alice": {ID: 7, Username: "alice"}}

	var got *models.Author
	handler := Identity(store, authors)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentAuthor(r.Context())
	}))

	serve := func(cookie *http.Cookie) {
		got = nil
		req := httptest.NewRequest("GET", "/", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	t.Run("valid session", func(t *testing.T) {
		cookie, err := IssueCookie(store, "alice")
		require.NoError(t, err)
		serve(cookie)
		require.NotNil(t, got)
		assert.Equal(t, 7, got.ID)
	})

	t.Run("no cookie", func(t *testing.T) {
		serve(nil)
		assert.Nil(t, got)
	})

	t.Run("unknown username", func(t *testing.T) {
		cookie, err := IssueCookie(store, "mallory")
		require.NoError(t, err)
		serve(cookie)
		assert.Nil(t, got)
	})

	t.Run("forged cookie", func(t *testing.T) {
		other := NewSessionStore([]byte("another-key-another-key-another-"))
		cookie, err := IssueCookie(other, "alice")
		require.NoError(t, err)
		serve(cookie)
		assert.Nil(t, got)
	})
}

func TestRequireAuthor(t *testing.T) {
	handler := RequireAuthor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("POST", "/api/posts", nil))
	assert.Equal(t, http.StatusUnauthorized, rw.Code)

	req := httptest.NewRequest("POST", "/api/posts", nil)
	req = req.WithContext(WithAuthor(req.Context(), &models.Author{ID: 1, Username: "alice"}))
	rw = httptest.NewRecorder()
	handler.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusNoContent, rw.Code)
	assert.Equal(t, 1, ViewerID(req.Context()))
	assert.Equal(t, 0, ViewerID(context.Background()))
}
