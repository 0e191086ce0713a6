package service

import (
	"github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var policyDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "modpolicy",
		Name:      "policy_decisions_total",
		Help:      "Policy operations by outcome: allowed, a rejection kind, or error",
	},
	[]string{"operation", "outcome"},
)

// observe records the outcome of a policy operation. Use it deferred with a
// named error result.
func observe(operation string, err error) {
	outcome := "allowed"
	if err != nil {
		if kind := errors.KindOf(err); kind != errors.KindUnknown {
			outcome = kind.String()
		} else {
			outcome = "error"
		}
	}
	policyDecisions.WithLabelValues(operation, outcome).Inc()
}
