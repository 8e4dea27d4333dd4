package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"inkwell/app/media"
	"inkwell/app/middleware"
	"inkwell/app/models"
	"inkwell/app/pagination"
	"inkwell/app/repositories"
	"inkwell/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router  *mux.Router
	authors *services.AuthorService
	groups  *services.GroupService
	posts   *services.PostService
	follows *services.FollowService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repositories.OpenBadger("")
	require.NoError(t, err)
	store := repositories.NewBadgerStore(db)
	t.Cleanup(func() { store.Close() })

	images, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	feed := services.NewFeedService(store, nil, pagination.New(2, false))
	env := &testEnv{
		authors: services.NewAuthorService(store, nil),
		groups:  services.NewGroupService(store, nil),
		posts:   services.NewPostService(store, nil, images, clock),
		follows: services.NewFollowService(store, nil),
	}

	pc := NewPostController(feed, env.posts)
	cc := NewCommentController(env.posts)
	gc := NewGroupController(feed)
	prc := NewProfileController(feed, env.follows)

	router := mux.NewRouter()
	router.HandleFunc("/api/posts", pc.Index).Methods("GET")
	router.HandleFunc("/api/posts", pc.Create).Methods("POST")
	router.HandleFunc("/api/posts/{id:[0-9]+}", pc.Show).Methods("GET")
	router.HandleFunc("/api/posts/{id:[0-9]+}", pc.Edit).Methods("PUT", "POST")
	router.HandleFunc("/api/posts/{id:[0-9]+}/comments", cc.Create).Methods("POST")
	router.HandleFunc("/api/follow", pc.Feed).Methods("GET")
	router.HandleFunc("/api/groups/{slug}/posts", gc.Posts).Methods("GET")
	router.HandleFunc("/api/profile/{username}", prc.Show).Methods("GET")
	router.HandleFunc("/api/profile/{username}/follow", prc.Follow).Methods("POST")
	router.HandleFunc("/api/profile/{username}/unfollow", prc.Unfollow).Methods("POST")
	env.router = router
	return env
}

func (env *testEnv) author(t *testing.T, name string) *models.Author {
	t.Helper()
	a, err := env.authors.Create(context.Background(), name)
	require.NoError(t, err)
	return a
}

func (env *testEnv) post(t *testing.T, author *models.Author, text string, group int) int {
	t.Helper()
	id, err := env.posts.CreatePost(context.Background(), author.ID, services.PostInput{Text: text, GroupID: group})
	require.NoError(t, err)
	return id
}

// do serves req, identified as as when it is non-nil.
func (env *testEnv) do(req *http.Request, as *models.Author) *httptest.ResponseRecorder {
	if as != nil {
		req = req.WithContext(middleware.WithAuthor(req.Context(), as))
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type pageBody struct {
	Items []struct {
		ID     int    `json:"id"`
		Text   string `json:"text"`
		Author string `json:"author"`
	} `json:"items"`
	Number   int  `json:"number"`
	NumPages int  `json:"num_pages"`
	Count    int  `json:"count"`
	HasNext  bool `json:"has_next"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestPostIndex(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.author(t, "alice")
	for _, text := range []string{"one", "two", "three"} {
		env.post(t, alice, text, 0)
	}

	tests := []struct {
		name      string
		path      string
		wantTexts []string
		wantPage  int
		wantNext  bool
	}{
		{"first page", "/api/posts", []string{"three", "two"}, 1, true},
		{"second page", "/api/posts?page=2", []string{"one"}, 2, false},
		{"past the end clamps", "/api/posts?page=9", []string{"one"}, 2, false},
		{"garbage page", "/api/posts?page=abc", []string{"three", "two"}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(httptest.NewRequest("GET", tt.path, nil), nil)
			require.Equal(t, http.StatusOK, w.Code)

			var body pageBody
			decode(t, w, &body)
			var texts []string
			for _, item := range body.Items {
				texts = append(texts, item.Text)
				assert.Equal(t, "alice", item.Author)
			}
			assert.Equal(t, tt.wantTexts, texts)
			assert.Equal(t, tt.wantPage, body.Number)
			assert.Equal(t, tt.wantNext, body.HasNext)
			assert.Equal(t, 3, body.Count)
		})
	}
}

func TestPostShow(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.author(t, "alice")
	id := env.post(t, alice, "hello", 0)
	_, err := env.posts.CreateComment(context.Background(), alice.ID, id, "first!")
	require.NoError(t, err)

	w := env.do(httptest.NewRequest("GET", postURL(id), nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Post struct {
			Text string `json:"text"`
		} `json:"post"`
		Author struct {
			Username string `json:"username"`
		} `json:"author"`
		AuthorPostCount int `json:"author_post_count"`
		Comments        []struct {
			Text   string `json:"text"`
			Author string `json:"author"`
		} `json:"comments"`
	}
	decode(t, w, &body)
	assert.Equal(t, "hello", body.Post.Text)
	assert.Equal(t, "alice", body.Author.Username)
	assert.Equal(t, 1, body.AuthorPostCount)
	require.Len(t, body.Comments, 1)
	assert.Equal(t, "first!", body.Comments[0].Text)

	w = env.do(httptest.NewRequest("GET", "/api/posts/999", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
}

func TestPostCreate(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.author(t, "alice")
	news, err := env.groups.Create(context.Background(), "News", "news", "what happened")
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		w := env.do(jsonRequest("POST", "/api/posts", `{"text":"  hello  ","group":`+strconv.Itoa(news.ID)+`}`), alice)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var body struct {
			Post struct {
				ID      int    `json:"id"`
				Text    string `json:"text"`
				GroupID int    `json:"group_id"`
			} `json:"post"`
			Group struct {
				Slug string `json:"slug"`
			} `json:"group"`
		}
		decode(t, w, &body)
		assert.Equal(t, "hello", body.Post.Text)
		assert.Equal(t, news.ID, body.Post.GroupID)
		assert.Equal(t, "news", body.Group.Slug)
		assert.Equal(t, postURL(body.Post.ID), w.Header().Get("Location"))
	})

	t.Run("multipart with image", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("text", "a picture"))
		part, err := mw.CreateFormFile("image", "dot.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(part, image.NewGray(image.Rect(0, 0, 1, 1))))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", "/api/posts", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := env.do(req, alice)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var body struct {
			Post struct {
				Image string `json:"image"`
			} `json:"post"`
		}
		decode(t, w, &body)
		assert.True(t, strings.HasPrefix(body.Post.Image, media.PostsDir+"/"))
		assert.True(t, strings.HasSuffix(body.Post.Image, ".png"))
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			body  string
			field string
		}{
			{"blank text", `{"text":"   "}`, "text"},
			{"unknown group", `{"text":"x","group":999}`, "group"},
			{"not an image", `{"text":"x","image":"aGVsbG8="}`, "image"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := env.do(jsonRequest("POST", "/api/posts", tt.body), alice)
				require.Equal(t, http.StatusBadRequest, w.Code)
				var body struct {
					Error  string            `json:"error"`
					Fields map[string]string `json:"fields"`
				}
				decode(t, w, &body)
				assert.Equal(t, "validation failed", body.Error)
				assert.Contains(t, body.Fields, tt.field)
			})
		}
	})

	t.Run("malformed form group", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/posts", strings.NewReader("text=hi&group=abc"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := env.do(req, alice)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"group"`)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := env.do(jsonRequest("POST", "/api/posts", `{"text":`), alice)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("oversized json", func(t *testing.T) {
		body := `{"text":"hi","image":"` + strings.Repeat("A", maxPostBody) + `"}`
		w := env.do(jsonRequest("POST", "/api/posts", body), alice)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.JSONEq(t, `{"error":"request body too large"}`, w.Body.String())
	})

	t.Run("anonymous", func(t *testing.T) {
		w := env.do(jsonRequest("POST", "/api/posts", `{"text":"x"}`), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPostEdit(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.author(t, "alice")
	bob := env.author(t, "bob")
	id := env.post(t, alice, "draft", 0)

	t.Run("owner", func(t *testing.T) {
		w := env.do(jsonRequest("PUT", postURL(id), `{"text":"final"}`), alice)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var body struct {
			ID   int    `json:"id"`
			Text string `json:"text"`
		}
		decode(t, w, &body)
		assert.Equal(t, id, body.ID)
		assert.Equal(t, "final", body.Text)
	})

	t.Run("someone else is redirected", func(t *testing.T) {
		w := env.do(jsonRequest("POST", postURL(id), `{"text":"hijacked"}`), bob)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, postURL(id), w.Header().Get("Location"))

		detail, err := env.posts.GetPost(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "final", detail.Post.Text)
	})

	t.Run("missing post", func(t *testing.T) {
		w := env.do(jsonRequest("PUT", "/api/posts/999", `{"text":"x"}`), alice)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCommentCreate(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.author(t, "alice")
	bob := env.author(t, "bob")
	id := env.post(t, alice, "hello", 0)

	w := env.do(jsonRequest("POST", postURL(id)+"/comments", `{"text":"nice"}`), bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var comment models.Comment
	decode(t, w, &comment)
	assert.Equal(t, id, comment.PostID)
	assert.Equal(t, bob.ID, comment.AuthorID)
	assert.Equal(t, "nice", comment.Text)

	req := httptest.NewRequest("POST", postURL(id)+"/comments", strings.NewReader("text=also+nice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = env.do(req, bob)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(jsonRequest("POST", postURL(id)+"/comments", `{"text":""}`), bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(jsonRequest("POST", "/api/posts/999/comments", `{"text":"x"}`), bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(jsonRequest("POST", postURL(id)+"/comments", `{"text":"`+strings.Repeat("x", maxCommentBody)+`"}`), bob)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestGroupPosts(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.author(t, "alice")
	news, err := env.groups.Create(context.Background(), "News", "news", "what happened")
	require.NoError(t, err)
	env.post(t, alice, "in news", news.ID)
	env.post(t, alice, "elsewhere", 0)

	w := env.do(httptest.NewRequest("GET", "/api/groups/news/posts", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Group models.Group `json:"group"`
		Posts pageBody     `json:"posts"`
	}
	decode(t, w, &body)
	assert.Equal(t, "news", body.Group.Slug)
	require.Len(t, body.Posts.Items, 1)
	assert.Equal(t, "in news", body.Posts.Items[0].Text)

	w = env.do(httptest.NewRequest("GET", "/api/groups/nope/posts", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileAndFollow(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.author(t, "alice")
	bob := env.author(t, "bob")
	env.post(t, alice, "from alice", 0)
	env.post(t, bob, "from bob", 0)

	profile := func(as *models.Author) services.ProfilePage {
		w := env.do(httptest.NewRequest("GET", "/api/profile/alice", nil), as)
		require.Equal(t, http.StatusOK, w.Code)
		var page services.ProfilePage
		decode(t, w, &page)
		return page
	}

	page := profile(nil)
	assert.Equal(t, "alice", page.Author.Username)
	assert.Equal(t, 1, page.PostCount)
	assert.False(t, page.Following)

	w := env.do(httptest.NewRequest("POST", "/api/profile/alice/follow", nil), bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"alice","following":true}`, w.Body.String())

	page = profile(bob)
	assert.True(t, page.Following)
	assert.Equal(t, 1, page.FollowerCount)

	w = env.do(httptest.NewRequest("GET", "/api/follow", nil), bob)
	require.Equal(t, http.StatusOK, w.Code)
	var feed pageBody
	decode(t, w, &feed)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "from alice", feed.Items[0].Text)

	w = env.do(httptest.NewRequest("POST", "/api/profile/bob/follow", nil), bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(httptest.NewRequest("POST", "/api/profile/nobody/follow", nil), bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(httptest.NewRequest("POST", "/api/profile/alice/unfollow", nil), bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, profile(bob).Following)

	w = env.do(httptest.NewRequest("GET", "/api/profile/nobody", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, true},
		{"", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		req := mux.SetURLVars(httptest.NewRequest("GET", "/", nil), map[string]string{"id": tt.raw})
		got, err := pathID(req, "id")
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
