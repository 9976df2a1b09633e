package telemetry

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"metricshape/internal/transform"
)

func TestResultOf(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{&transform.ParseError{Err: errors.New("x")}, ResultParseError},
		{&transform.BatchError{Index: 2, Err: &transform.SchemaError{Field: "app_id"}}, ResultSchemaError},
		{&transform.SerializationError{Err: errors.New("x")}, ResultEncodeError},
		{errors.New("dial tcp: refused"), ResultError},
	}
	for _, tc := range cases {
		if got := ResultOf(tc.err); got != tc.want {
			t.Fatalf("ResultOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestObserveFailure(t *testing.T) {
	c := RecordsTotal.WithLabelValues("test-stage", ResultSchemaError)
	before := testutil.ToFloat64(c)
	ObserveFailure("test-stage", &transform.SchemaError{Field: "metadata.time"})
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("want %v, got %v", before+1, got)
	}
}

func TestCollectorsRegistered(t *testing.T) {
	TransformSeconds.WithLabelValues("test-stage").Observe(0.001)
	if n := testutil.CollectAndCount(TransformSeconds); n < 1 {
		t.Fatalf("want histogram samples, got %d", n)
	}
	before := testutil.ToFloat64(DeadLetterTotal)
	DeadLetterTotal.Inc()
	if got := testutil.ToFloat64(DeadLetterTotal); got != before+1 {
		t.Fatalf("deadletter counter: want %v, got %v", before+1, got)
	}
}
