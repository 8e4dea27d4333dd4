package controllers

import (
	"net/http"

	"inkwell/app/middleware"
	"inkwell/app/services"

	"github.com/gorilla/mux"
)

// ProfileController serves author profiles and follow actions
type ProfileController struct {
	feed    *services.FeedService
	follows *services.FollowService
}

func NewProfileController(feed *services.FeedService, follows *services.FollowService) *ProfileController {
	return &ProfileController{feed: feed, follows: follows}
}

type followResponse struct {
	Username  string `json:"username"`
	Following bool   `json:"following"`
}

// Show renders a profile page. The following flag is only set for
// identified callers.
func (pc *ProfileController) Show(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	page, err := pc.feed.Profile(r.Context(), username, middleware.ViewerID(r.Context()), pageNumber(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, page)
}

// Follow subscribes the caller to the author in the path
func (pc *ProfileController) Follow(w http.ResponseWriter, r *http.Request) {
	viewer, ok := caller(w, r)
	if !ok {
		return
	}
	username := mux.Vars(r)["username"]
	if err := pc.follows.FollowUsername(r.Context(), viewer, username); err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, followResponse{Username: username, Following: true})
}

// Unfollow removes the subscription, if any
func (pc *ProfileController) Unfollow(w http.ResponseWriter, r *http.Request) {
	viewer, ok := caller(w, r)
	if !ok {
		return
	}
	username := mux.Vars(r)["username"]
	if err := pc.follows.UnfollowUsername(r.Context(), viewer, username); err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, followResponse{Username: username, Following: false})
}
