package kafka

import (
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"metricshape/internal/frame"
	"metricshape/internal/logging"
	"metricshape/sink"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0, 1, -1
	Version string   `yaml:"version"`
}

type driver struct {
	cfg  Config
	p    sarama.AsyncProducer
	ack  sink.EmitFn
	fail sink.FailFn

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func New() sink.Adapter { return &driver{} }

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	sc, err := producerConfig(cfg)
	if err != nil {
		return err
	}
	p, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return err
	}
	d.cfg = cfg
	d.start(p)
	return nil
}

func producerConfig(cfg Config) (*sarama.Config, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka-sink: brokers and topic are required")
	}
	sc := sarama.NewConfig()
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return nil, err
		}
		sc.Version = ver
	}
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	return sc, sc.Validate()
}

// start drains the producer's result channels; acks follow broker success,
// failures go to the bound FailFn.
func (d *driver) start(p sarama.AsyncProducer) {
	d.p = p
	log := logging.Component("kafka-sink")
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		for msg := range p.Successes() {
			if f, ok := msg.Metadata.(*frame.Frame); ok && d.ack != nil {
				d.ack(f.Checkpoint)
			}
		}
	}()
	go func() {
		defer d.wg.Done()
		for perr := range p.Errors() {
			f, _ := perr.Msg.Metadata.(*frame.Frame)
			if f == nil || d.fail == nil {
				log.Error("produce failed", "topic", perr.Msg.Topic, "err", perr.Err)
				continue
			}
			d.fail(f, fmt.Errorf("produce to %s: %w", perr.Msg.Topic, perr.Err))
		}
	}()
}

func (d *driver) Push(f *frame.Frame) error {
	msg := &sarama.ProducerMessage{
		Topic:    d.cfg.Topic,
		Value:    sarama.ByteEncoder(f.Value),
		Metadata: f,
	}
	if len(f.Key) > 0 {
		msg.Key = sarama.ByteEncoder(f.Key)
	}
	if !f.Ts.IsZero() {
		msg.Timestamp = f.Ts
	}
	for k, v := range f.Headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: v})
	}
	d.p.Input() <- msg
	return nil
}

func (d *driver) BindAck(fn sink.EmitFn) { d.ack = fn }

func (d *driver) BindFail(fn sink.FailFn) { d.fail = fn }

func (d *driver) Close() error {
	d.closeOnce.Do(func() {
		if d.p == nil {
			return
		}
		d.closeErr = d.p.Close()
		d.wg.Wait()
	})
	return d.closeErr
}

func init() { sink.Register("kafka", New) }
