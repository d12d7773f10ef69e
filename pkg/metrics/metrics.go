package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawcare_chats_created_total",
		Help: "Number of booking chats created.",
	})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawcare_messages_sent_total",
		Help: "Number of chat messages delivered.",
	})

	ReadSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawcare_read_sweeps_total",
		Help: "Number of read-tracking sweeps committed.",
	})

	StreamSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pawcare_stream_sessions",
		Help: "Currently open real-time message streams.",
	})
)
