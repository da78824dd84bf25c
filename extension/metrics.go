package extension

import (
	"sync"
	"time"

	"github.com/flowscan/colligo"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Success  = "success"
	NotFound = "notfound"
	Error    = "error"
)

const (
	Hit  = "hit"
	Miss = "miss"
)

// Collection of prometheus metrics, meant to be shared by every loader of
// one process
type LoaderMetrics struct {
	AdditionalLabels       []string
	DispatchTimeHistogram  *prometheus.HistogramVec
	DispatchBatchHistogram *prometheus.HistogramVec
	KeyStatusCounter       *prometheus.CounterVec
	ScopeLookupCounter     *prometheus.CounterVec
}

// Create a new loader metric collector
// additionalLabels is a list of additional labels used for metric partitioning
func NewLoaderMetrics(additionalLabels ...string) *LoaderMetrics {
	c := &LoaderMetrics{}
	c.AdditionalLabels = additionalLabels
	c.DispatchTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "colligo",
		Name:      "dispatch_time_seconds",
		Help:      "The time it takes the source to settle a dispatched batch",
	}, append(additionalLabels, []string{"loader", "status"}...))
	c.DispatchBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "colligo",
		Name:      "dispatch_batch",
		Help:      "The number of distinct keys in each dispatched batch",
	}, append(additionalLabels, []string{"loader"}...))
	c.KeyStatusCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "colligo",
		Name:      "key_status_total",
		Help:      "Dispatched keys partitioned by their outcome",
	}, append(additionalLabels, []string{"loader", "status"}...))
	c.ScopeLookupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "colligo",
		Name:      "scope_lookup_total",
		Help:      "Scope cache lookups partitioned by hit or miss",
	}, append(additionalLabels, []string{"loader", "result"}...))
	return c
}

// PrometheusMetrics is an extension for loader instrumentation
type PrometheusMetrics[TKey comparable, TValue any] struct {
	loaderName        string
	metrics           *LoaderMetrics
	labelValues       []string
	dispatchStartTime map[uint64]time.Time
	dispatchMu        sync.Mutex
}

// Create a new prometheus metrics extension with the given metrics collector
// labelValues is an optional parameter to add the given labels into the metrics from this loader
func NewPrometheusMetrics[TKey comparable, TValue any](metrics *LoaderMetrics, labelValues ...string) *PrometheusMetrics[TKey, TValue] {
	return &PrometheusMetrics[TKey, TValue]{
		labelValues: labelValues,
		metrics:     metrics,
	}
}

func (e *PrometheusMetrics[TKey, TValue]) Name() string { return "PrometheusMetrics" }

func (e *PrometheusMetrics[TKey, TValue]) InitializationHook(loader *colligo.Loader[TKey, TValue]) error {
	e.loaderName = loader.Identifier()
	e.dispatchStartTime = make(map[uint64]time.Time)
	return nil
}

func (e *PrometheusMetrics[TKey, TValue]) PreDispatchHook(traceID uint64, keys []TKey) {
	// record the batch size
	e.metrics.DispatchBatchHistogram.WithLabelValues(append(e.labelValues, e.loaderName)...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.dispatchMu.Lock()
	e.dispatchStartTime[traceID] = time.Now()
	e.dispatchMu.Unlock()
}

func (e *PrometheusMetrics[TKey, TValue]) PostDispatchHook(traceID uint64, keys []TKey, result map[TKey]TValue, err error) {
	// record the duration of the trace
	e.dispatchMu.Lock()
	traceTime := time.Since(e.dispatchStartTime[traceID]).Seconds()
	delete(e.dispatchStartTime, traceID)
	e.dispatchMu.Unlock()

	status := Success
	if err != nil {
		status = Error
	}
	e.metrics.DispatchTimeHistogram.WithLabelValues(append(e.labelValues, e.loaderName, status)...).Observe(traceTime)

	// record the outcome for each key
	for _, key := range keys {
		keyStatus := status
		if err == nil {
			if _, ok := result[key]; !ok {
				keyStatus = NotFound
			}
		}
		e.metrics.KeyStatusCounter.WithLabelValues(append(e.labelValues, e.loaderName, keyStatus)...).Inc()
	}
}

func (e *PrometheusMetrics[TKey, TValue]) ScopeLookupHook(scopeID uint64, key TKey, hit bool) {
	result := Miss
	if hit {
		result = Hit
	}
	e.metrics.ScopeLookupCounter.WithLabelValues(append(e.labelValues, e.loaderName, result)...).Inc()
}
