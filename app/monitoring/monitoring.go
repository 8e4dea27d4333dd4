// Package monitoring declares the Prometheus collectors of the server.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_created_total",
		Help: "Total posts successfully created",
	})

	PostsEdited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_edited_total",
		Help: "Total posts successfully edited",
	})

	CommentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comments_created_total",
		Help: "Total comments successfully created",
	})

	FollowActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "follow_actions_total",
		Help: "Total follow and unfollow actions",
	}, []string{"action"})

	FeedCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_cache_requests_total",
		Help: "Feed page lookups by cache result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PostsCreated)
	prometheus.MustRegister(PostsEdited)
	prometheus.MustRegister(CommentsCreated)
	prometheus.MustRegister(FollowActions)
	prometheus.MustRegister(FeedCache)
}
