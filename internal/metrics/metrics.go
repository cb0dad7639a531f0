package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsJoined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_sessions_joined_total",
			Help: "Total sessions that reached active",
		},
	)

	SessionsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_sessions_closed_total",
			Help: "Total sessions torn down",
		},
	)

	JoinFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_join_failures_total",
			Help: "Join failures by stage",
		},
		[]string{"stage"},
	)

	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_chat_messages_total",
			Help: "Chat messages by direction",
		},
		[]string{"direction"}, // "sent", "received", "dropped"
	)

	TranscriptLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_transcript_lines_total",
			Help: "Final transcript lines appended",
		},
	)

	ChannelReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_channel_reconnect_attempts_total",
			Help: "Messaging channel reconnect attempts",
		},
	)
)
