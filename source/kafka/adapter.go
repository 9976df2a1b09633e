package kafka

import (
	"context"

	"metricshape/internal/frame"
)

// EmitFunc hands a frame to the pipeline. A non-nil error stops the source.
type EmitFunc func(context.Context, *frame.Frame) error

type Adapter interface {
	Configure(Config) error
	Run(context.Context, EmitFunc) error
	Close() error
}

// AckAware sources release frames when sinks acknowledge them.
type AckAware interface {
	OnAck(frame.Checkpoint)
}
