// Package frame defines the unit that moves from a source, through the
// transformer stages, to the sinks.
package frame

import (
	"fmt"
	"maps"
	"time"
)

// Checkpoint identifies a frame's position in its source so a sink can
// acknowledge it.
type Checkpoint struct {
	Topic     string
	Partition int32
	Offset    int64
}

func (c Checkpoint) String() string { return fmt.Sprintf("%s[%d]@%d", c.Topic, c.Partition, c.Offset) }

type Frame struct {
	Key        []byte
	Value      []byte
	Headers    map[string][]byte
	Ts         time.Time
	Checkpoint Checkpoint
}

// WithValue returns a shallow copy of f carrying v.
func (f *Frame) WithValue(v []byte) *Frame {
	out := *f
	out.Value = v
	return &out
}

// WithHeader returns a copy of f with header k set; f's headers are untouched.
func (f *Frame) WithHeader(k string, v []byte) *Frame {
	out := *f
	out.Headers = maps.Clone(f.Headers)
	if out.Headers == nil {
		out.Headers = make(map[string][]byte, 1)
	}
	out.Headers[k] = v
	return &out
}
