package transform

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"
)

type countingTransformer struct {
	calls []string
	ctx   [][2]string
	inner Transformer
}

func (c *countingTransformer) Transform(provider, topic, record string) (string, error) {
	c.calls = append(c.calls, record)
	c.ctx = append(c.ctx, [2]string{provider, topic})
	return c.inner.Transform(provider, topic, record)
}

// countedSeq yields records and counts how many were pulled.
func countedSeq(records []string, pulled *int, stopped *bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		defer func() { *stopped = true }()
		for _, r := range records {
			*pulled++
			if !yield(r) {
				return
			}
		}
	}
}

func record(app, key string) string {
	return `{"app_id":"` + app + `","metadata":{"time":"2024-01-01T00:00:00Z","loc":"A"},"payload_fields":{"` + key + `":{"value":1}}}`
}

func TestBatch_LazyAndOrdered(t *testing.T) {
	eng := NewEngine(nil)
	ct := &countingTransformer{inner: eng}
	recs := []string{record("r", "1"), record("r", "2"), record("r", "3")}
	var pulled int
	var stopped bool

	b := NewBatch(ct, "kafka", "ingest", countedSeq(recs, &pulled, &stopped))
	if b == nil {
		t.Fatal("want batch for non-nil source")
	}
	if pulled != 0 || len(ct.calls) != 0 {
		t.Fatalf("work done before first pull: pulled=%d calls=%d", pulled, len(ct.calls))
	}

	for i, in := range recs {
		if !b.Next() {
			t.Fatalf("Next %d returned false: %v", i, b.Err())
		}
		if pulled != i+1 || len(ct.calls) != i+1 {
			t.Fatalf("after pull %d: pulled=%d calls=%d", i, pulled, len(ct.calls))
		}
		want, err := eng.Transform("kafka", "ingest", in)
		if err != nil {
			t.Fatalf("Transform: %v", err)
		}
		if b.Record() != want {
			t.Fatalf("record %d: got %s want %s", i, b.Record(), want)
		}
	}
	if b.Next() {
		t.Fatal("want exhaustion after 3 records")
	}
	if b.Err() != nil {
		t.Fatalf("unexpected err: %v", b.Err())
	}
	if !stopped {
		t.Fatal("source not released after exhaustion")
	}
	if b.Next() {
		t.Fatal("batch must not restart")
	}
	for i, c := range ct.ctx {
		if c != [2]string{"kafka", "ingest"} {
			t.Fatalf("call %d got provider/topic %v", i, c)
		}
	}
}

func TestBatch_NilSourceIsAbsent(t *testing.T) {
	if b := NewEngine(nil).TransformBatch("p", "t", nil); b != nil {
		t.Fatal("want nil batch for nil source")
	}
	var b *Batch
	if b.Next() || b.Err() != nil || b.Record() != "" {
		t.Fatal("nil batch must yield nothing")
	}
	b.Close()
}

func TestBatch_EmptySourceIsEmpty(t *testing.T) {
	b := NewEngine(nil).TransformBatch("p", "t", slices.Values([]string{}))
	if b == nil {
		t.Fatal("want non-nil batch for empty source")
	}
	if b.Next() || b.Err() != nil {
		t.Fatal("want empty batch")
	}
}

func TestBatch_FailureSurfacesAtItsElement(t *testing.T) {
	bad := `{"app_id":"a","metadata":{"loc":"A"},"payload_fields":{"x":{"value":1}}}`
	recs := []string{record("a", "x"), bad, record("a", "y")}
	var pulled int
	var stopped bool
	b := NewEngine(nil).TransformBatch("p", "t", countedSeq(recs, &pulled, &stopped))

	if pulled != 0 {
		t.Fatal("source pulled before Next")
	}
	if !b.Next() {
		t.Fatalf("first record failed: %v", b.Err())
	}
	if b.Err() != nil {
		t.Fatal("error reported before failing element was requested")
	}
	if b.Next() {
		t.Fatal("want failure on second record")
	}
	var be *BatchError
	if !errors.As(b.Err(), &be) || be.Index != 1 {
		t.Fatalf("want BatchError at index 1, got %v", b.Err())
	}
	if !errors.Is(b.Err(), ErrSchema) {
		t.Fatalf("want schema error, got %v", b.Err())
	}
	if pulled != 2 {
		t.Fatalf("records after the failure were pulled: %d", pulled)
	}
	if b.Next() {
		t.Fatal("iteration must not resume after a failure")
	}
}

func TestBatch_UnboundedSource(t *testing.T) {
	n := 0
	endless := func(yield func(string) bool) {
		for {
			n++
			if !yield(record("dev", "k")) {
				return
			}
		}
	}
	var got []string
	for out, err := range NewEngine(nil).TransformBatch("p", "t", endless).All() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, out)
		if len(got) == 3 {
			break
		}
	}
	if len(got) != 3 || n != 3 {
		t.Fatalf("want 3 records pulled, got %d outputs / %d pulls", len(got), n)
	}
}

func TestBatch_CloseBeforeExhaustionStopsSource(t *testing.T) {
	pulled, stopped := 0, false
	recs := []string{record("a", "x"), record("a", "y"), record("a", "z")}
	b := NewEngine(nil).TransformBatch("p", "t", countedSeq(recs, &pulled, &stopped))
	if !b.Next() {
		t.Fatalf("Next: %v", b.Err())
	}
	if stopped {
		t.Fatal("source stopped while the batch is still open")
	}
	b.Close()
	if !stopped || pulled != 1 {
		t.Fatalf("Close must stop the source: stopped=%v pulled=%d", stopped, pulled)
	}
	if b.Next() {
		t.Fatal("closed batch yielded a record")
	}
	b.Close()
}

func TestBatch_AllYieldsErrorOnce(t *testing.T) {
	recs := []string{record("a", "x"), "{broken"}
	var outs, errs int
	for _, err := range NewEngine(nil).TransformBatch("p", "t", slices.Values(recs)).All() {
		if err != nil {
			errs++
			if !errors.Is(err, ErrParse) {
				t.Fatalf("want parse error, got %v", err)
			}
			continue
		}
		outs++
	}
	if outs != 1 || errs != 1 {
		t.Fatalf("want 1 output and 1 error, got %d/%d", outs, errs)
	}
}

func TestInProcessClient(t *testing.T) {
	c := NewInProcessClient(NewEngine(nil))
	out, err := c.Transform(context.Background(), "p", "t", scenarioIn)
	if err != nil || out == "" {
		t.Fatalf("Transform: %q %v", out, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Transform(ctx, "p", "t", scenarioIn); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if IsTerminal(context.Canceled) {
		t.Fatal("context errors are not terminal")
	}
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
