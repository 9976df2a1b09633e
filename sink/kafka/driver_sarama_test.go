package kafka

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"metricshape/internal/frame"
)

func TestProducerConfig(t *testing.T) {
	if _, err := producerConfig(Config{Topic: "out"}); err == nil {
		t.Fatal("want error without brokers")
	}
	sc, err := producerConfig(Config{Brokers: []string{"b:9092"}, Topic: "out", Acks: -1})
	if err != nil {
		t.Fatalf("producerConfig: %v", err)
	}
	if sc.Producer.RequiredAcks != sarama.WaitForAll || !sc.Producer.Return.Successes {
		t.Fatalf("unexpected producer config: %+v", sc.Producer)
	}
}

func TestPush_AcksOnSuccessAndReportsFailures(t *testing.T) {
	sc := mocks.NewTestConfig()
	sc.Producer.Return.Successes = true
	mp := mocks.NewAsyncProducer(t, sc)
	mp.ExpectInputAndSucceed()
	brokerDown := errors.New("broker down")
	mp.ExpectInputAndFail(brokerDown)

	var mu sync.Mutex
	var acked []frame.Checkpoint
	var failed []*frame.Frame
	var failErr error
	d := &driver{cfg: Config{Topic: "out"}}
	d.BindAck(func(cp frame.Checkpoint) {
		mu.Lock()
		acked = append(acked, cp)
		mu.Unlock()
	})
	d.BindFail(func(f *frame.Frame, err error) {
		mu.Lock()
		failed = append(failed, f)
		failErr = err
		mu.Unlock()
	})
	d.start(mp)

	ok := &frame.Frame{Value: []byte("[]"), Checkpoint: frame.Checkpoint{Topic: "in", Offset: 1}}
	bad := ok.WithHeader("x-metricshape-error", []byte("boom"))
	bad.Checkpoint.Offset = 2
	if err := d.Push(ok); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := d.Push(bad); err != nil {
		t.Fatalf("Push: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(acked) + len(failed)
		mu.Unlock()
		if n == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(acked) != 1 || acked[0].Offset != 1 {
		t.Fatalf("want only the delivered frame acked, got %v", acked)
	}
	if len(failed) != 1 || failed[0] != bad || !errors.Is(failErr, brokerDown) {
		t.Fatalf("want the undelivered frame reported with its cause, got %v (%v)", failed, failErr)
	}
}
