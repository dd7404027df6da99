package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager holds the discovery Prometheus metrics.
type MetricsManager struct {
	Registry                     *prometheus.Registry
	FetchesTotal                 *prometheus.CounterVec
	FetchLatency                 *prometheus.HistogramVec
	GenerationResetsTotal        prometheus.Counter
	RecommendationFallbacksTotal *prometheus.CounterVec
	CacheLookupsTotal            *prometheus.CounterVec
	HTTPRequestLatency           *prometheus.HistogramVec
}

// NewMetricsManager initializes and registers the metrics on a private registry.
func NewMetricsManager(namespace string) *MetricsManager {
	registry := prometheus.NewRegistry()

	fetchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listing_fetches_total",
		Help:      "Listing page fetches by outcome.",
	}, []string{"outcome"})
	fetchLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "listing_fetch_duration_seconds",
		Help:      "Latency of listing page fetches by outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	generationResets := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_resets_total",
		Help:      "Result list resets caused by query-relevant filter changes.",
	})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendation_fallbacks_total",
		Help:      "Recommended queries compiled as newest, by reason.",
	}, []string{"reason"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "page_cache_lookups_total",
		Help:      "Page cache lookups by result.",
	}, []string{"result"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	registry.MustRegister(
		fetchesTotal,
		fetchLatency,
		generationResets,
		fallbacks,
		cacheLookups,
		httpLatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:                     registry,
		FetchesTotal:                 fetchesTotal,
		FetchLatency:                 fetchLatency,
		GenerationResetsTotal:        generationResets,
		RecommendationFallbacksTotal: fallbacks,
		CacheLookupsTotal:            cacheLookups,
		HTTPRequestLatency:           httpLatency,
	}
}

func (m *MetricsManager) FetchCompleted(outcome string, elapsed time.Duration) {
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *MetricsManager) GenerationReset() {
	m.GenerationResetsTotal.Inc()
}

func (m *MetricsManager) RecommendationFallback(reason string) {
	m.RecommendationFallbacksTotal.WithLabelValues(reason).Inc()
}

func (m *MetricsManager) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *MetricsManager) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequestLatency.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// StartMetricsServer serves /metrics until ctx is cancelled.
func StartMetricsServer(ctx context.Context, port string, appLogger *logger.Logger, registry *prometheus.Registry) error {
	if port == "" {
		appLogger.Info("Prometheus metrics server port not configured, server will not start.")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	appLogger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
