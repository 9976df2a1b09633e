package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"metricshape/internal/config"
	"metricshape/internal/frame"
	"metricshape/internal/logging"
	"metricshape/internal/telemetry"
	"metricshape/internal/transform"
	"metricshape/sink"
	"metricshape/source/kafka"
)

// HeaderError carries the failure reason on dead-lettered frames.
const HeaderError = "x-metricshape-error"

// stageSink names sink delivery failures in logs, metrics and dead-letter headers.
const stageSink = "sink"

type stage struct {
	name     string
	client   transform.Client
	timeout  time.Duration
	attempts int // retries after the first call
	backoff  time.Duration
}

type Runner struct {
	source   kafka.Adapter
	provider string
	stages   []stage
	sinks    []sink.Adapter
	ackSinks int // sinks that ack on their own

	policy     string
	deadLetter sink.Adapter

	mu     sync.Mutex
	subs   []func(frame.Checkpoint)
	fatal  error // set by an asynchronous failure that stops the source
	cancel context.CancelFunc
	done   chan error
}

func NewRunner() *Runner { return &Runner{policy: config.PolicyDrop} }

func (r *Runner) SetSource(provider string, s kafka.Adapter) {
	r.provider, r.source = provider, s
	if aw, ok := s.(kafka.AckAware); ok {
		r.SubscribeAck(aw.OnAck)
	}
}

func (r *Runner) AddTransformer(name string, c transform.Client, timeout time.Duration, attempts int, backoff time.Duration) {
	r.stages = append(r.stages, stage{name: name, client: c, timeout: timeout, attempts: attempts, backoff: backoff})
}

func (r *Runner) AddSink(s sink.Adapter) {
	if aw, ok := s.(sink.AckAware); ok {
		aw.BindAck(r.Ack)
		r.ackSinks++
	}
	if fa, ok := s.(sink.FailAware); ok {
		fa.BindFail(r.sinkFailed)
	}
	r.sinks = append(r.sinks, s)
}

// SetErrorPolicy selects drop, deadletter or abort. deadLetter is required
// for the deadletter policy and ignored otherwise.
func (r *Runner) SetErrorPolicy(policy string, deadLetter sink.Adapter) error {
	switch policy {
	case config.PolicyDrop, config.PolicyAbort:
	case config.PolicyDeadLetter:
		if deadLetter == nil {
			return errors.New("runner: deadletter policy without a dead-letter sink")
		}
		if aw, ok := deadLetter.(sink.AckAware); ok {
			aw.BindAck(r.Ack)
		}
		if fa, ok := deadLetter.(sink.FailAware); ok {
			fa.BindFail(r.deadLetterFailed)
		}
	default:
		return fmt.Errorf("runner: unsupported error policy %q", policy)
	}
	r.policy, r.deadLetter = policy, deadLetter
	return nil
}

func (r *Runner) SubscribeAck(fn func(frame.Checkpoint)) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

func (r *Runner) Ack(cp frame.Checkpoint) {
	r.mu.Lock()
	handlers := append([]func(frame.Checkpoint){}, r.subs...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(cp)
	}
}

/*──────── frame routing ───────*/

func (r *Runner) pushFrame(ctx context.Context, f *frame.Frame) error {
	if err := r.fatalErr(); err != nil {
		return err
	}
	record := string(f.Value)
	for _, st := range r.stages {
		out, err := r.runStage(ctx, st, f.Checkpoint.Topic, record)
		if err != nil {
			if ctx.Err() != nil {
				// shutting down: leave the frame unacknowledged
				return ctx.Err()
			}
			return r.fail(st.name, f, err)
		}
		record = out
	}

	out := f
	if len(r.stages) > 0 {
		out = f.WithValue([]byte(record))
		if res := gjson.Get(record, "#"); res.Exists() {
			telemetry.FieldsEmitted.Add(float64(res.Int()))
		}
	}
	for _, s := range r.sinks {
		if err := s.Push(out); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
	}
	if r.ackSinks == 0 {
		r.Ack(f.Checkpoint)
	}
	return nil
}

func (r *Runner) runStage(ctx context.Context, st stage, topic, record string) (string, error) {
	start := time.Now()
	defer func() { telemetry.TransformSeconds.WithLabelValues(st.name).Observe(time.Since(start).Seconds()) }()

	var err error
	for attempt := 0; attempt <= st.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(st.backoff):
			}
		}
		var out string
		out, err = r.callStage(ctx, st, topic, record)
		if err == nil {
			telemetry.RecordsTotal.WithLabelValues(st.name, telemetry.ResultOK).Inc()
			return out, nil
		}
		if transform.IsTerminal(err) || ctx.Err() != nil {
			break
		}
		logging.Component("runner").Debug("transformer call failed; retrying",
			"stage", st.name, "attempt", attempt+1, "err", err)
	}
	telemetry.ObserveFailure(st.name, err)
	return "", err
}

func (r *Runner) callStage(ctx context.Context, st stage, topic, record string) (string, error) {
	if st.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.timeout)
		defer cancel()
	}
	return st.client.Transform(ctx, r.provider, topic, record)
}

func (r *Runner) fail(stageName string, f *frame.Frame, err error) error {
	log := logging.Component("runner")
	switch r.policy {
	case config.PolicyAbort:
		return fmt.Errorf("stage %s: %s: %w", stageName, f.Checkpoint, err)
	case config.PolicyDeadLetter:
		dl := f.WithHeader(HeaderError, []byte(fmt.Sprintf("%s: %v", stageName, err)))
		if perr := r.deadLetter.Push(dl); perr != nil {
			return fmt.Errorf("dead-letter %s: %w", f.Checkpoint, perr)
		}
		telemetry.DeadLetterTotal.Inc()
		log.Warn("record dead-lettered", "stage", stageName, "source", f.Checkpoint.String(), "err", err)
		if _, ok := r.deadLetter.(sink.AckAware); !ok {
			r.Ack(f.Checkpoint)
		}
	default:
		telemetry.DroppedTotal.Inc()
		log.Warn("record dropped", "stage", stageName, "source", f.Checkpoint.String(), "err", err)
		r.Ack(f.Checkpoint)
	}
	return nil
}

// sinkFailed applies the error policy to a frame a sink could not deliver
// after Push had already returned.
func (r *Runner) sinkFailed(f *frame.Frame, err error) {
	telemetry.ObserveFailure(stageSink, err)
	if ferr := r.fail(stageSink, f, err); ferr != nil {
		r.abort(ferr)
	}
}

func (r *Runner) deadLetterFailed(f *frame.Frame, err error) {
	r.abort(fmt.Errorf("dead-letter %s: %w", f.Checkpoint, err))
}

// abort records the first fatal error and stops the source.
func (r *Runner) abort(err error) {
	r.mu.Lock()
	first := r.fatal == nil
	if first {
		r.fatal = err
	}
	cancel := r.cancel
	r.mu.Unlock()
	if !first {
		return
	}
	logging.Component("runner").Error("pipeline aborted", "err", err)
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) fatalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

// Start runs the source in the background; Done reports how it ended.
func (r *Runner) Start(ctx context.Context) error {
	if r.source == nil {
		return errors.New("runner: no source configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	if r.fatalErr() != nil {
		cancel()
	}

	r.done = make(chan error, 1)
	go func() {
		err := r.source.Run(ctx, r.pushFrame)
		if ferr := r.fatalErr(); ferr != nil {
			err = ferr
		}
		r.done <- err
	}()
	return nil
}

func (r *Runner) Done() <-chan error { return r.done }

func (r *Runner) Close() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	for _, st := range r.stages {
		errs = append(errs, st.client.Close())
	}
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	if r.deadLetter != nil {
		errs = append(errs, r.deadLetter.Close())
	}
	return errors.Join(errs...)
}
