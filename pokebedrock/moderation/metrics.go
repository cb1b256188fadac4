package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var punishmentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_punishments_applied_total",
	Help: "Number of punishments applied, by type",
}, []string{"type"})

var punishmentsExpired = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_punishments_expired_total",
	Help: "Number of punishments lifted or expired, by type",
}, []string{"type"})

var punishmentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_punishments_rejected_total",
	Help: "Number of punishments that failed validation, by type",
}, []string{"type"})
