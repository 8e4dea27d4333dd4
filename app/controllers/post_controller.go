package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"inkwell/app/media"
	"inkwell/app/services"
)

// PostController handles HTTP requests for posts and feeds
type PostController struct {
	feed  *services.FeedService
	posts *services.PostService
}

// NewPostController creates a new PostController
func NewPostController(feed *services.FeedService, posts *services.PostService) *PostController {
	return &PostController{feed: feed, posts: posts}
}

// postRequest is the body of a create or edit. JSON carries the image
// base64 encoded; forms carry it as the "image" file part.
type postRequest struct {
	Text       string `json:"text"`
	Group      int    `json:"group"`
	Image      []byte `json:"image,omitempty"`
	ClearImage bool   `json:"clear_image,omitempty"`
}

func (req postRequest) input() services.PostInput {
	return services.PostInput{Text: req.Text, GroupID: req.Group, Image: req.Image}
}

// Index lists every post, newest first
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page, err := pc.feed.ListPosts(r.Context(), services.All(), pageNumber(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, page)
}

// Feed lists posts by the authors the caller follows
func (pc *PostController) Feed(w http.ResponseWriter, r *http.Request) {
	viewer, ok := caller(w, r)
	if !ok {
		return
	}
	page, err := pc.feed.ListPosts(r.Context(), services.FollowedFeed(viewer), pageNumber(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, page)
}

// Show displays a single post with its comments
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendError(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	detail, err := pc.posts.GetPost(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, detail)
}

// Create handles the creation of a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	author, ok := caller(w, r)
	if !ok {
		return
	}
	req, err := decodePostRequest(w, r)
	if err != nil {
		writeDecodeError(w, r, err)
		return
	}

	id, err := pc.posts.CreatePost(r.Context(), author, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	detail, err := pc.posts.GetPost(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", postURL(id))
	sendJSON(w, http.StatusCreated, detail)
}

// Edit updates an existing post. Anyone but the author is sent back to the
// post unchanged.
func (pc *PostController) Edit(w http.ResponseWriter, r *http.Request) {
	author, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendError(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	req, err := decodePostRequest(w, r)
	if err != nil {
		writeDecodeError(w, r, err)
		return
	}

	post, err := pc.posts.EditPost(r.Context(), author, id, services.EditInput{
		PostInput:  req.input(),
		ClearImage: req.ClearImage,
	})
	if errors.Is(err, services.ErrForbidden) {
		http.Redirect(w, r, postURL(id), http.StatusSeeOther)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

func postURL(id int) string {
	return fmt.Sprintf("/api/posts/%d", id)
}

// maxPostBody fits a largest image as base64 JSON with room for the rest.
const maxPostBody = media.MaxImageSize*4/3 + 1<<20

var (
	// errBadBody marks request bodies that could not be read at all.
	errBadBody      = errors.New("invalid request body")
	errBodyTooLarge = errors.New("request body too large")
)

// bodyError classifies a failure to read the request body.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	return fmt.Errorf("%w: %v", errBadBody, err)
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		sendError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, errBadBody):
		sendError(w, err.Error(), http.StatusBadRequest)
	default:
		writeServiceError(w, r, err)
	}
}

func decodePostRequest(w http.ResponseWriter, r *http.Request) (postRequest, error) {
	var req postRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxPostBody)
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") && !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, bodyError(err)
		}
		return req, nil
	}

	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(media.MaxImageSize + 1<<20); err != nil {
			return req, bodyError(err)
		}
	} else if err := r.ParseForm(); err != nil {
		return req, bodyError(err)
	}

	req.Text = r.FormValue("text")
	if raw := strings.TrimSpace(r.FormValue("group")); raw != "" {
		group, err := strconv.Atoi(raw)
		if err != nil || group < 0 {
			return req, &services.ValidationError{Fields: map[string]string{
				"group": "select a valid choice; that group does not exist",
			}}
		}
		req.Group = group
	}
	req.ClearImage, _ = strconv.ParseBool(r.FormValue("clear_image"))

	if r.MultipartForm != nil {
		file, _, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return req, bodyError(err)
		default:
			defer file.Close()
			// One byte past the limit is enough for the size check.
			data, err := io.ReadAll(io.LimitReader(file, media.MaxImageSize+1))
			if err != nil {
				return req, bodyError(err)
			}
			req.Image = data
		}
	}
	return req, nil
}
