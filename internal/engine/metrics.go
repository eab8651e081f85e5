package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociapay_messages_total",
		Help: "Inbound messages processed, by platform and classified intent",
	}, []string{"platform", "intent"})

	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociapay_transfers_total",
		Help: "Executed transfers, by platform and terminal status",
	}, []string{"platform", "status"})
)
