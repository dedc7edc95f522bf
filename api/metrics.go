package api

import (
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	ballotsSubmitted = metrics.NewCounter("relay_ballots_submitted_total")
	membersAdded     = metrics.NewCounter("relay_members_added_total")
	groupsPublished  = metrics.NewCounter("relay_groups_published_total")
	keysRevealed     = metrics.NewCounter("relay_group_keys_revealed_total")

	submitFailures = metrics.NewCounter(`relay_contract_failures_total{method="postReview"}`)
	memberFailures = metrics.NewCounter(`relay_contract_failures_total{method="addMember"}`)
	submitUnmined  = metrics.NewCounter(`relay_tx_unmined_total{method="postReview"}`)
	memberUnmined  = metrics.NewCounter(`relay_tx_unmined_total{method="addMember"}`)

	txDuration = metrics.NewHistogram("relay_tx_duration_seconds")
)

// writeMetrics exposes the relay metrics in the Prometheus text format.
// GET /metrics
func (a *API) writeMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, false)
}

// observeTx records the time spent sending a transaction and waiting for it.
func observeTx(start time.Time) {
	txDuration.UpdateDuration(start)
}
