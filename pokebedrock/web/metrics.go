package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var intentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_web_intents_total",
	Help: "Web panel commands by outcome",
}, []string{"outcome"})

var ackAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_web_acks_total",
	Help: "Acknowledgements sent to the web panel by result",
}, []string{"result"})

var pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_web_polls_total",
	Help: "Web panel polls by result",
}, []string{"result"})
