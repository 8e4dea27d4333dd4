package controllers

import (
	"net/http"

	"inkwell/app/services"

	"github.com/gorilla/mux"
)

// GroupController serves group feeds
type GroupController struct {
	feed *services.FeedService
}

func NewGroupController(feed *services.FeedService) *GroupController {
	return &GroupController{feed: feed}
}

// Posts lists the posts of the group named by slug
func (gc *GroupController) Posts(w http.ResponseWriter, r *http.Request) {
	page, err := gc.feed.GroupFeed(r.Context(), mux.Vars(r)["slug"], pageNumber(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, page)
}
