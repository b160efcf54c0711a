package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "satsquest"

var (
	QuizRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quiz_requests_total",
		Help:      "Quiz requests by cache result (hit or miss).",
	}, []string{"result"})

	QuizGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quiz_generations_total",
		Help:      "Background quiz generations by outcome (cached, failed, rejected).",
	}, []string{"result"})

	PresenceSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "presence_sessions",
		Help:      "Currently connected presence sessions.",
	})

	OracleQuestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_questions_total",
		Help:      "Player questions to the oracle by outcome (answered, refused, failed).",
	}, []string{"result"})
)
