package sink

import (
	"fmt"

	"metricshape/internal/frame"
)

// EmitFn is what a sink calls to tell the pipeline that a frame has been
// durably handled.
type EmitFn func(frame.Checkpoint)

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error     // driver-specific config struct
	Push(*frame.Frame) error // consume one frame
	Close() error            // idempotent
}

// AckAware is optional; sinks that acknowledge frames implement it and the
// compiler wires the callback. Frames pushed to sinks that do not implement
// it are acknowledged by the runner once Push returns.
type AckAware interface {
	BindAck(EmitFn)
}

// FailFn reports a frame a sink accepted in Push but could not deliver.
type FailFn func(*frame.Frame, error)

// FailAware is optional; sinks that deliver after Push returns implement it
// so the pipeline can apply its error policy to frames that never get acked.
type FailAware interface {
	BindFail(FailFn)
}

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
