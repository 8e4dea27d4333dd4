package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"inkwell/app/middleware"
	"inkwell/app/pagination"
	"inkwell/app/services"

	"github.com/gorilla/mux"
)

// sendJSON sends a JSON response
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, map[string]string{"error": message})
}

// writeServiceError turns a service failure into its HTTP answer.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		sendJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, services.ErrOutOfRange):
		sendError(w, "Page out of range", http.StatusNotFound)
	case errors.Is(err, services.ErrNotFound):
		sendError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		sendError(w, "Forbidden", http.StatusForbidden)
	default:
		middleware.LogEntry(r).WithError(err).Error("request failed")
		sendError(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// pathID parses the numeric route variable name.
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func pageNumber(r *http.Request) int {
	return pagination.ParseNumber(r.URL.Query().Get("page"))
}

// caller is the identified author. Routes needing one are wrapped in
// middleware.RequireAuthor, so a miss here is answered like it would.
func caller(w http.ResponseWriter, r *http.Request) (int, bool) {
	id := middleware.ViewerID(r.Context())
	if id == 0 {
		sendError(w, "authentication required", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}
