package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	EmbedCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embed_cache_hits_total",
			Help: "Embedding cache hits by backend",
		},
		[]string{"backend"},
	)
	EmbedCacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embed_cache_misses_total",
			Help: "Embedding cache misses by backend",
		},
		[]string{"backend"},
	)

	// Matching outcome distributions
	MatchOverallScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_overall_score",
			Help:    "Distribution of overall match scores ([0,100])",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
	RecommendCandidatesScreened = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_candidates_screened",
			Help:    "Number of candidates screened per recommendation request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	RecommendCandidatesSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_candidates_skipped_total",
			Help: "Candidates left out of the index by reason",
		},
		[]string{"reason"},
	)
	OutreachFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_fallback_total",
			Help: "Outreach drafts replaced by the static fallback message",
		},
	)

	ProfileEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_events_total",
			Help: "Profile change events handled by kind and status",
		},
		[]string{"kind", "status"},
	)
	EmbeddingsRefreshedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embeddings_refreshed_total",
			Help: "Embedding vectors recomputed and stored by kind and status",
		},
		[]string{"kind", "status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(AIRequestsTotal)
		prometheus.MustRegister(AIRequestDuration)
		prometheus.MustRegister(EmbedCacheHitsTotal)
		prometheus.MustRegister(EmbedCacheMissesTotal)
		prometheus.MustRegister(MatchOverallScore)
		prometheus.MustRegister(RecommendCandidatesScreened)
		prometheus.MustRegister(RecommendCandidatesSkippedTotal)
		prometheus.MustRegister(OutreachFallbackTotal)
		prometheus.MustRegister(ProfileEventsTotal)
		prometheus.MustRegister(EmbeddingsRefreshedTotal)
		prometheus.MustRegister(CircuitBreakerState)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest counts one provider call and its latency.
func ObserveAIRequest(provider, operation string, start time.Time) {
	AIRequestsTotal.WithLabelValues(provider, operation).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

// RecordCacheLookup counts an embedding cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	if hit {
		EmbedCacheHitsTotal.WithLabelValues(backend).Inc()
		return
	}
	EmbedCacheMissesTotal.WithLabelValues(backend).Inc()
}

// ObserveMatch records the overall score of a completed match.
func ObserveMatch(overall float64) {
	if overall >= 0 && overall <= 100 {
		MatchOverallScore.Observe(overall)
	}
}

// ObserveRecommendation records the pool size of a recommendation request.
func ObserveRecommendation(screened int) {
	RecommendCandidatesScreened.Observe(float64(screened))
}

// RecordCandidateSkipped counts candidates left out of a ranking.
func RecordCandidateSkipped(reason string, n int) {
	if n > 0 {
		RecommendCandidatesSkippedTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordOutreachFallback counts one static outreach substitution.
func RecordOutreachFallback() { OutreachFallbackTotal.Inc() }

// RecordProfileEvent counts a handled profile change event.
func RecordProfileEvent(kind, status string) {
	if kind == "" {
		kind = "unknown"
	}
	ProfileEventsTotal.WithLabelValues(kind, status).Inc()
}

// RecordEmbeddingRefresh counts one stored (or failed) embedding refresh.
func RecordEmbeddingRefresh(kind, status string) {
	EmbeddingsRefreshedTotal.WithLabelValues(kind, status).Inc()
}

// RecordCircuitBreakerState publishes the state of a named breaker.
func RecordCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
