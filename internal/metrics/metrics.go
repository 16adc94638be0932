// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_tweet_mutations_total",
		Help: "Successful tweet mutations by event name",
	}, []string{"event"})
	CascadeRemovals = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialfeed_cascade_removals_total",
		Help: "Tweets removed by delete, including replies removed by cascade",
	})
	EventsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_events_delivered_total",
		Help: "Events handed to a sink without error",
	}, []string{"sink"})
	EventsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_events_failed_total",
		Help: "Events a sink failed to deliver",
	}, []string{"sink"})
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialfeed_events_dropped_total",
		Help: "Events discarded because the dispatch queue was full",
	})
	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "socialfeed_realtime_subscribers",
		Help: "Connected realtime subscribers",
	})
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialfeed_http_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter",
	})
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_tweet_cache_lookups_total",
		Help: "Tweet cache lookups by result (hit or miss)",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(Mutations, CascadeRemovals, EventsDelivered, EventsFailed, EventsDropped, Subscribers, RateLimited, CacheLookups)
}

// Handler exposes the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
