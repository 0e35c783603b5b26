package server

import "github.com/prometheus/client_golang/prometheus"

func init() {
	prometheus.MustRegister(verificationsMetric)
}

// verificationsMetric counts signed-URL decisions by outcome: "granted" or
// the rejection reason.
var verificationsMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vaultgate",
	Subsystem: "signed_urls",
	Name:      "verifications_total",
	Help:      "Signed URL verifications by outcome",
}, []string{"outcome"})
