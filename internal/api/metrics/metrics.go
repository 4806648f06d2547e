// Package metrics defines the custom Prometheus metrics of the community API.
// Metrics register with the default registry through promauto on import; HTTP
// request metrics come from the echoprometheus middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "community"

// ── Authentication & authorization ───────────────────────────────────────────

// AuthDecisionsTotal counts outcomes of bearer token resolution.
// Label:
//   - result: "ok", "missing_token", "malformed", "expired", "invalid_signature",
//     "user_not_found", "deactivated", "error"
var AuthDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_decisions_total",
		Help:      "Total number of bearer token resolutions, by result.",
	},
	[]string{"result"},
)

// GuardDenialsTotal counts requests stopped by an authorization guard.
// Labels:
//   - guard: "permission", "role_level", "ownership"
//   - reason: short kind (e.g. "insufficient_permission", "not_owner")
var GuardDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_denials_total",
		Help:      "Total number of requests denied by authorization guards.",
	},
	[]string{"guard", "reason"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "pending", "deactivated", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// PolicyUpdatesTotal counts permission matrix swaps.
// Label:
//   - source: "api" (local update) or "broadcast" (applied from another instance)
var PolicyUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_updates_total",
		Help:      "Total number of permission matrix updates applied.",
	},
	[]string{"source"},
)

// ── View counting ─────────────────────────────────────────────────────────────

// ViewQueueDepth tracks pending views per dispatcher shard.
var ViewQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "view_queue_depth",
		Help:      "Current number of views pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ViewsProcessedTotal counts views taken off the queue.
var ViewsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "views_processed_total",
		Help:      "Total number of view events processed, by resource kind and result.",
	},
	[]string{"kind", "result"},
)

// ViewsDroppedTotal counts views refused because their shard was full.
var ViewsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "views_dropped_total",
		Help:      "Total number of view events dropped on a full queue.",
	},
	[]string{"kind"},
)
