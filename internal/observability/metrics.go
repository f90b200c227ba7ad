package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Metrics is the process metrics registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	cacheLookups    *CounterVec
	cacheGeneration *HistogramVec

	storeOps       *HistogramVec
	storeConflicts *CounterVec
	storeRetries   *CounterVec
	transitions    *CounterVec

	jobRuns      *CounterVec
	jobDuration  *HistogramVec
	workerGauges *GaugeVec

	dbStats    *GaugeVec
	redisGauge *GaugeVec
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("lingua_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("lingua_api_request_duration_seconds", "API request latency in seconds.", []string{"method", "route", "status"}, latencyBuckets),
		apiInflight: NewGaugeVec("lingua_api_inflight_requests", "In-flight API requests.", nil),

		llmRequests: NewCounterVec("lingua_llm_requests_total", "Chat completion requests by model/status.", []string{"model", "status"}),
		llmLatency:  NewHistogramVec("lingua_llm_request_duration_seconds", "Chat completion latency in seconds.", []string{"model", "status"}, latencyBuckets),
		llmTokens:   NewCounterVec("lingua_llm_tokens_total", "Tokens consumed by model/direction.", []string{"model", "direction"}),

		cacheLookups:    NewCounterVec("lingua_cache_lookups_total", "Content cache lookups by category/result.", []string{"category", "result"}),
		cacheGeneration: NewHistogramVec("lingua_cache_generation_duration_seconds", "Time spent generating on cache miss.", []string{"category", "status"}, latencyBuckets),

		storeOps:       NewHistogramVec("lingua_store_operation_duration_seconds", "Content store write latency by operation/status.", []string{"operation", "status"}, nil),
		storeConflicts: NewCounterVec("lingua_store_conflicts_total", "Content store conflicts by operation.", []string{"operation"}),
		storeRetries:   NewCounterVec("lingua_store_retryable_total", "Content store retryable failures by operation.", []string{"operation"}),
		transitions:    NewCounterVec("lingua_curriculum_transitions_total", "Committed curriculum status transitions.", []string{"from", "to"}),

		jobRuns:      NewCounterVec("lingua_job_runs_total", "Background job runs by job/status.", []string{"job", "status"}),
		jobDuration:  NewHistogramVec("lingua_job_duration_seconds", "Background job duration.", []string{"job", "status"}, latencyBuckets),
		workerGauges: NewGaugeVec("lingua_worker_pool", "Worker pool state.", []string{"stat"}),

		dbStats:    NewGaugeVec("lingua_db_stats", "database/sql pool statistics.", []string{"stat"}),
		redisGauge: NewGaugeVec("lingua_redis", "Redis reachability.", []string{"stat"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.cacheLookups, m.cacheGeneration,
		m.storeOps, m.storeConflicts, m.storeRetries, m.transitions,
		m.jobRuns, m.jobDuration, m.workerGauges,
		m.dbStats, m.redisGauge,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveLLMRequest(model, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, status)
	m.llmLatency.Observe(dur.Seconds(), model, status)
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// IncCacheLookup records one cache outcome: hit, miss, joined, stored or error.
func (m *Metrics) IncCacheLookup(category, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.Inc(category, result)
}

func (m *Metrics) CacheLookups(category, result string) float64 {
	if m == nil {
		return 0
	}
	return m.cacheLookups.Value(category, result)
}

func (m *Metrics) ObserveCacheGeneration(category, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.cacheGeneration.Observe(dur.Seconds(), category, status)
}

func (m *Metrics) ObserveStoreOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.storeOps.Observe(dur.Seconds(), strings.TrimSpace(name), strings.TrimSpace(status))
}

func (m *Metrics) StoreOperations(name, status string) uint64 {
	if m == nil {
		return 0
	}
	return m.storeOps.Count(name, status)
}

func (m *Metrics) IncStoreConflict(name string) {
	if m == nil {
		return
	}
	m.storeConflicts.Inc(strings.TrimSpace(name))
}

func (m *Metrics) IncStoreRetry(name string) {
	if m == nil {
		return
	}
	m.storeRetries.Inc(strings.TrimSpace(name))
}

func (m *Metrics) IncCurriculumTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.Inc(from, to)
}

func (m *Metrics) CurriculumTransitions(from, to string) float64 {
	if m == nil {
		return 0
	}
	return m.transitions.Value(from, to)
}

func (m *Metrics) ObserveJob(job, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(job, status)
	m.jobDuration.Observe(dur.Seconds(), job, status)
}

func (m *Metrics) JobRuns(job, status string) float64 {
	if m == nil {
		return 0
	}
	return m.jobRuns.Value(job, status)
}

// SetWorkerPool publishes the pool's running, waiting and capacity counts.
func (m *Metrics) SetWorkerPool(running, waiting, capacity int) {
	if m == nil {
		return
	}
	m.workerGauges.Set(float64(running), "running")
	m.workerGauges.Set(float64(waiting), "waiting")
	m.workerGauges.Set(float64(capacity), "capacity")
}

// StartDBCollector samples connection pool stats until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings the cache client until ctx is done. The client is not closed here.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisGauge.Set(0, "up")
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisGauge.Set(1, "up")
				m.redisGauge.Set(time.Since(start).Seconds(), "ping_seconds")
			}
		}
	}()
}
