package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"inkwell/app/services"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	posts *services.PostService
}

// NewCommentController creates a new CommentController
func NewCommentController(posts *services.PostService) *CommentController {
	return &CommentController{posts: posts}
}

const maxCommentBody = 1 << 20

type commentRequest struct {
	Text string `json:"text"`
}

// Create adds a comment to the post in the path
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	author, ok := caller(w, r)
	if !ok {
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		sendError(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var req commentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCommentBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDecodeError(w, r, bodyError(err))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeDecodeError(w, r, bodyError(err))
			return
		}
		req.Text = r.PostFormValue("text")
	}

	comment, err := cc.posts.CreateComment(r.Context(), author, postID, req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, comment)
}
