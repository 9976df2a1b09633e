package telemetry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metricshape/internal/logging"
	"metricshape/internal/transform"
)

const StagePlugin = "plugin"

// Result label values of RecordsTotal.
const (
	ResultOK          = "ok"
	ResultParseError  = "parse_error"
	ResultSchemaError = "schema_error"
	ResultEncodeError = "encode_error"
	ResultError       = "error"
)

var (
	RecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metricshape",
		Name:      "records_total",
		Help:      "Records handled per transformer stage, by result.",
	}, []string{"stage", "result"})

	FieldsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "metricshape",
		Name:      "fields_emitted_total",
		Help:      "Transformed fields written to sinks.",
	})

	TransformSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metricshape",
		Name:      "transform_duration_seconds",
		Help:      "Time spent in a transformer stage per record, retries included.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"stage"})

	DeadLetterTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "metricshape",
		Name:      "deadletter_total",
		Help:      "Records sent to the dead-letter sink after a transform failure.",
	})

	DroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "metricshape",
		Name:      "dropped_total",
		Help:      "Records dropped after a transform failure.",
	})
)

func init() {
	prometheus.MustRegister(RecordsTotal, FieldsEmitted, TransformSeconds, DeadLetterTotal, DroppedTotal)
}

// ResultOf maps a transform error onto a RecordsTotal result label.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, transform.ErrParse):
		return ResultParseError
	case errors.Is(err, transform.ErrSchema):
		return ResultSchemaError
	case errors.Is(err, transform.ErrSerialize):
		return ResultEncodeError
	default:
		return ResultError
	}
}

func ObserveFailure(stage string, err error) {
	RecordsTotal.WithLabelValues(stage, ResultOf(err)).Inc()
}

// Expose serves the default registry on :port/metrics in the background.
func Expose(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Component("telemetry").Error("metrics endpoint stopped", "port", port, "err", err)
		}
	}()
	return srv
}
