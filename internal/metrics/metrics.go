package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal    *prometheus.CounterVec
	votesCastTotal       *prometheus.CounterVec
	votesDuplicateTotal  *prometheus.CounterVec
	votesChangedTotal    *prometheus.CounterVec
	publishFailuresTotal *prometheus.CounterVec
	tallyDrift           *prometheus.GaugeVec
	registerOnce         sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poll",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the poll API.",
		}, []string{"method", "path", "status"})

		votesCastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poll",
			Name:      "votes_cast_total",
			Help:      "Total votes durably recorded, including changes.",
		}, []string{"poll_id"})

		votesDuplicateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poll",
			Name:      "votes_duplicate_total",
			Help:      "Total vote casts rejected as duplicates.",
		}, []string{"poll_id"})

		votesChangedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poll",
			Name:      "votes_changed_total",
			Help:      "Total votes that replaced an earlier choice.",
		}, []string{"poll_id"})

		publishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poll",
			Name:      "vote_publish_failures_total",
			Help:      "Tally updates that could not be published to live subscribers.",
		}, []string{"poll_id"})

		tallyDrift = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "poll",
			Name:      "tally_drift",
			Help:      "Absolute difference between authoritative vote counts and the tally cache, per poll.",
		}, []string{"poll_id"})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncVoteCast(pollID string) {
	if votesCastTotal == nil {
		return
	}
	votesCastTotal.WithLabelValues(pollID).Inc()
}

func IncVoteDuplicate(pollID string) {
	if votesDuplicateTotal == nil {
		return
	}
	votesDuplicateTotal.WithLabelValues(pollID).Inc()
}

func IncVoteChanged(pollID string) {
	if votesChangedTotal == nil {
		return
	}
	votesChangedTotal.WithLabelValues(pollID).Inc()
}

func IncPublishFailure(pollID string) {
	if publishFailuresTotal == nil {
		return
	}
	publishFailuresTotal.WithLabelValues(pollID).Inc()
}

// SetTallyDrift records the drift the audit worker found for a poll.
func SetTallyDrift(pollID string, drift float64) {
	if tallyDrift == nil {
		return
	}
	tallyDrift.WithLabelValues(pollID).Set(drift)
}
