package stdout

import (
	"bytes"
	"strings"
	"testing"

	"metricshape/internal/frame"
)

func pushN(t *testing.T, d *driver, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f := &frame.Frame{Value: []byte(`[{"metrics":[]}]`), Checkpoint: frame.Checkpoint{Topic: "ingest", Offset: int64(i)}}
		if err := d.Push(f); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
}

func TestStdout_PrintsValueAndCounter(t *testing.T) {
	var buf bytes.Buffer
	d := New().(*driver)
	if err := d.Configure(Config{PrintCounter: true, PrintValue: true, ValueMaxBytes: 5, Out: &buf}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	pushN(t, d, 2)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %q", buf.String())
	}
	if lines[1] != `[sink 000002] ingest[0]@1 [{"me...` {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestStdout_BatchedAck(t *testing.T) {
	var acked []frame.Checkpoint
	d := New().(*driver)
	_ = d.Configure(Config{BatchSize: 3, Out: &bytes.Buffer{}})
	d.BindAck(func(cp frame.Checkpoint) { acked = append(acked, cp) })

	pushN(t, d, 2)
	if len(acked) != 0 {
		t.Fatalf("acked before batch filled: %v", acked)
	}
	pushN(t, d, 1)
	if len(acked) != 3 {
		t.Fatalf("want 3 acks after batch, got %d", len(acked))
	}
	pushN(t, d, 1)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(acked) != 4 {
		t.Fatalf("close must flush pending acks, got %d", len(acked))
	}
}

func TestStdout_ConfigureRejectsWrongType(t *testing.T) {
	if err := New().Configure(struct{}{}); err == nil {
		t.Fatal("want error for wrong config type")
	}
}
