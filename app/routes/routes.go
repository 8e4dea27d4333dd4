package routes

import (
	"net/http"
	"time"

	"inkwell/app/controllers"
	"inkwell/app/middleware"
	"inkwell/app/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router hands to controllers.
type Deps struct {
	Feed     *services.FeedService
	Posts    *services.PostService
	Follows  *services.FollowService
	Sessions sessions.Store
	Authors  middleware.AuthorLookup
	// Media serves uploaded images under /media/; nil leaves it unmounted.
	Media http.Handler
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(d Deps) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Instrument)

	postController := controllers.NewPostController(d.Feed, d.Posts)
	commentController := controllers.NewCommentController(d.Posts)
	groupController := controllers.NewGroupController(d.Feed)
	profileController := controllers.NewProfileController(d.Feed, d.Follows)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	if d.Media != nil {
		router.PathPrefix("/media/").Handler(http.StripPrefix("/media/", d.Media)).Methods("GET", "HEAD")
	}

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	api.Use(middleware.Identity(d.Sessions, d.Authors))

	authed := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuthor(h) }

	// Routes hang directly off api: a sibling subrouter that fails to match
	// clears the method mismatch recorded by an earlier one.
	api.HandleFunc("/posts", postController.Index).Methods("GET")
	api.Handle("/posts", authed(postController.Create)).Methods("POST")
	api.HandleFunc("/posts/{id:[0-9]+}", postController.Show).Methods("GET")
	api.Handle("/posts/{id:[0-9]+}", authed(postController.Edit)).Methods("PUT", "POST")
	api.Handle("/posts/{id:[0-9]+}/edit", authed(postController.Edit)).Methods("POST")
	api.Handle("/posts/{id:[0-9]+}/comments", authed(commentController.Create)).Methods("POST")

	api.HandleFunc("/groups/{slug}/posts", groupController.Posts).Methods("GET")
	api.Handle("/follow", authed(postController.Feed)).Methods("GET")

	api.HandleFunc("/profile/{username}", profileController.Show).Methods("GET")
	api.Handle("/profile/{username}/follow", authed(profileController.Follow)).Methods("POST")
	api.Handle("/profile/{username}/unfollow", authed(profileController.Unfollow)).Methods("POST")

	// Middleware registered with Use only runs on matched routes.
	notFoundHandler := middleware.RequestID(middleware.Logger(http.HandlerFunc(notFound)))
	methodNotAllowedHandler := middleware.RequestID(middleware.Logger(http.HandlerFunc(methodNotAllowed)))
	router.NotFoundHandler = notFoundHandler
	router.MethodNotAllowedHandler = methodNotAllowedHandler
	api.MethodNotAllowedHandler = methodNotAllowedHandler

	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not found"}`))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	w.Write([]byte(`{"error":"Method not allowed"}`))
}

// NewServer wraps handler in an http.Server with the timeouts used in
// production.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
