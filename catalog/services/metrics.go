package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	mutationMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_mutations_total",
		Help: "Catalog changes by entity and action",
	}, []string{"entity", "action"})

	uploadMetric = promauto.NewSummary(prometheus.SummaryOpts{Name: "catalog_upload_bytes", Help: "Size of uploaded documents"})
)

func recordMutation(entity, action string) {
	mutationMetric.WithLabelValues(entity, action).Inc()
}
