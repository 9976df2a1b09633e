package kafka

import (
	"context"
	"errors"
	"slices"
	"sync"

	"metricshape/internal/frame"
	"metricshape/internal/logging"

	"github.com/IBM/sarama"
	"golang.org/x/sync/semaphore"
)

type SaramaDriver struct {
	cfg   Config
	cl    sarama.Client
	group sarama.ConsumerGroup

	// inflight bounds frames emitted but not yet released.
	inflight *semaphore.Weighted

	mu      sync.Mutex
	pending map[partitionKey]*offsetWindow // e2e only
	fatal   error
}

type partitionKey struct {
	topic     string
	partition int32
}

type tracked struct {
	msg   *sarama.ConsumerMessage
	acked bool
}

// offsetWindow holds a partition's emitted offsets in emit order. Only the
// acknowledged prefix is marked: sarama commits a mark as a high-water mark,
// so marking past an unacked frame would commit it too.
type offsetWindow struct {
	sess    sarama.ConsumerGroupSession
	order   []*tracked
	unacked map[int64]*tracked
}

func (d *SaramaDriver) Configure(config Config) error {
	d.cfg = config
	d.pending = make(map[partitionKey]*offsetWindow)
	d.inflight = semaphore.NewWeighted(config.BackPressure.Capacity)

	sc, err := saramaConfig(config)
	if err != nil {
		return err
	}
	if d.cl, err = sarama.NewClient(config.Brokers, sc); err != nil {
		return err
	}
	d.group, err = sarama.NewConsumerGroupFromClient(config.GroupID, d.cl)
	return err
}

func saramaConfig(config Config) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	if config.Version != "" {
		ver, err := sarama.ParseKafkaVersion(config.Version)
		if err != nil {
			return nil, err
		}
		sc.Version = ver
	}
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = config.Checkpoint.CommitInt
	if config.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if config.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = config.SASLUser, config.SASLPass
	}
	switch config.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	return sc, sc.Validate()
}

func (d *SaramaDriver) Run(ctx context.Context, emit EmitFunc) error {
	log := logging.Component("kafka-source")
	go func() {
		for err := range d.group.Errors() {
			log.Warn("consumer group error", "err", err)
		}
	}()

	handler := &groupHandler{driver: d, emit: emit}
	for {
		if err := d.group.Consume(ctx, d.cfg.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if err := d.fatalErr(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *SaramaDriver) Close() error {
	return errors.Join(d.group.Close(), d.cl.Close())
}

// OnAck releases the frame at cp. In e2e mode the partition's offset is
// marked up to the highest frame whose predecessors are all acknowledged.
func (d *SaramaDriver) OnAck(cp frame.Checkpoint) {
	d.mu.Lock()
	k := partitionKey{cp.Topic, cp.Partition}
	w := d.pending[k]
	if w == nil || w.unacked[cp.Offset] == nil {
		d.mu.Unlock()
		return
	}
	w.unacked[cp.Offset].acked = true
	delete(w.unacked, cp.Offset)

	var mark *sarama.ConsumerMessage
	n := 0
	for n < len(w.order) && w.order[n].acked {
		mark = w.order[n].msg
		n++
	}
	w.order = w.order[n:]
	sess := w.sess
	if len(w.order) == 0 {
		delete(d.pending, k)
	}
	d.mu.Unlock()

	d.inflight.Release(1)
	if mark != nil {
		sess.MarkMessage(mark, "")
	}
}

func (d *SaramaDriver) track(sess sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := partitionKey{msg.Topic, msg.Partition}
	w := d.pending[k]
	if w == nil {
		w = &offsetWindow{unacked: make(map[int64]*tracked)}
		d.pending[k] = w
	}
	w.sess = sess
	t := &tracked{msg: msg}
	w.order = append(w.order, t)
	w.unacked[msg.Offset] = t
}

// untrack forgets an unacked frame and reports whether it still held its
// in-flight permit.
func (d *SaramaDriver) untrack(msg *sarama.ConsumerMessage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := partitionKey{msg.Topic, msg.Partition}
	w := d.pending[k]
	if w == nil || w.unacked[msg.Offset] == nil {
		return false
	}
	t := w.unacked[msg.Offset]
	delete(w.unacked, msg.Offset)
	w.order = slices.DeleteFunc(w.order, func(x *tracked) bool { return x == t })
	if len(w.order) == 0 {
		delete(d.pending, k)
	}
	return true
}

func (d *SaramaDriver) setFatal(err error) {
	d.mu.Lock()
	if d.fatal == nil {
		d.fatal = err
	}
	d.mu.Unlock()
}

func (d *SaramaDriver) fatalErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fatal
}

type groupHandler struct {
	driver *SaramaDriver
	emit   EmitFunc
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup drops frames still awaiting an ack; their offsets stay unmarked
// and are redelivered to whoever owns the partition next.
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.driver.mu.Lock()
	dropped := 0
	for _, w := range h.driver.pending {
		dropped += len(w.unacked)
	}
	h.driver.pending = make(map[partitionKey]*offsetWindow)
	h.driver.mu.Unlock()

	if dropped > 0 {
		h.driver.inflight.Release(int64(dropped))
		logging.Component("kafka-source").Info("rebalance: cleared pending frames", "count", dropped)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	d := h.driver
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := d.inflight.Acquire(ctx, 1); err != nil {
				return nil
			}
			f := frameOf(msg)
			e2e := d.cfg.CommitMode == CommitE2E
			if e2e {
				// registered before emit: sinks may ack synchronously
				d.track(sess, msg)
			}
			if err := h.emit(ctx, f); err != nil {
				if !e2e || d.untrack(msg) {
					d.inflight.Release(1)
				}
				d.setFatal(err)
				return err
			}
			if !e2e {
				sess.MarkMessage(msg, "")
				d.inflight.Release(1)
			}
		}
	}
}

func frameOf(msg *sarama.ConsumerMessage) *frame.Frame {
	return &frame.Frame{
		Key:        msg.Key,
		Value:      msg.Value,
		Headers:    toHeaderMap(msg.Headers),
		Ts:         msg.Timestamp,
		Checkpoint: frame.Checkpoint{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset},
	}
}

func toHeaderMap(src []*sarama.RecordHeader) map[string][]byte {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(src))
	for _, h := range src {
		out[string(h.Key)] = h.Value
	}
	return out
}
