package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "livequiz"

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	factory promauto.Factory

	lobbiesOpen    prometheus.Gauge
	gamesActive    prometheus.Gauge
	gamesEnded     *prometheus.CounterVec
	answers        *prometheus.CounterVec
	answerScore    prometheus.Histogram
	lobbyRejection *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		factory: f,

		lobbiesOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lobbies_open",
			Help:      "Number of lobbies waiting for a game to start.",
		}),
		gamesActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games_active",
			Help:      "Number of games in progress.",
		}),
		gamesEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Games that left the active registry, by final state.",
		}, []string{"state"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Submitted answers, by task kind and outcome.",
		}, []string{"kind", "outcome"}),
		answerScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_score",
			Help:      "Scores of accepted answers.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		lobbyRejection: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobby_join_rejected_total",
			Help:      "Rejected lobby joins, by reason.",
		}, []string{"reason"}),
	}
}

// WatchRandomLobbies exports count as the number of open lobbies that accept
// random joins. It is read on every scrape and must be registered once.
func (m *Metrics) WatchRandomLobbies(count func() int) {
	if m == nil {
		return
	}

	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lobbies_random_open",
		Help:      "Number of open lobbies accepting random joins.",
	}, func() float64 { return float64(count()) })
}

func (m *Metrics) LobbyOpened() {
	if m != nil {
		m.lobbiesOpen.Inc()
	}
}

func (m *Metrics) LobbyClosed() {
	if m != nil {
		m.lobbiesOpen.Dec()
	}
}

func (m *Metrics) JoinRejected(reason string) {
	if m != nil {
		m.lobbyRejection.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) GameStarted() {
	if m != nil {
		m.gamesActive.Inc()
	}
}

func (m *Metrics) GameEnded(state string) {
	if m != nil {
		m.gamesActive.Dec()
		m.gamesEnded.WithLabelValues(state).Inc()
	}
}

// AnswerScored records an accepted answer.
func (m *Metrics) AnswerScored(kind string, score float64) {
	if m != nil {
		m.answers.WithLabelValues(kind, "scored").Inc()
		m.answerScore.Observe(score)
	}
}

// AnswerRejected records an answer refused before scoring.
func (m *Metrics) AnswerRejected(kind, reason string) {
	if m != nil {
		m.answers.WithLabelValues(kind, reason).Inc()
	}
}
