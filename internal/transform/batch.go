package transform

import (
	"fmt"
	"iter"
)

// BatchError locates a failure inside a batch.
type BatchError struct {
	Index int // zero-based position in the source sequence
	Err   error
}

func (e *BatchError) Error() string { return fmt.Sprintf("record %d: %v", e.Index, e.Err) }
func (e *BatchError) Unwrap() error { return e.Err }

// Batch is a lazy, single-pass view of a record sequence through a
// Transformer. A source record is pulled and transformed only when Next is
// called; nothing is read ahead and no output is retained beyond the
// current record. Iteration stops at the first failure, reported by Err.
//
// A caller that stops before Next returns false must call Close: the source
// is driven by iter.Pull, whose goroutine stays parked until the batch is
// closed or exhausted. All closes the batch itself.
//
// A nil *Batch stands for "no input" and yields nothing. Batch is not safe
// for concurrent use.
type Batch struct {
	t               Transformer
	provider, topic string

	next    func() (string, bool)
	stop    func()
	onClose func()

	idx  int
	cur  string
	err  error
	done bool
}

// NewBatch wraps records. It returns nil when records is nil so callers can
// tell an absent input from an empty one.
func NewBatch(t Transformer, provider, topic string, records iter.Seq[string]) *Batch {
	if records == nil {
		return nil
	}
	next, stop := iter.Pull(records)
	return &Batch{t: t, provider: provider, topic: topic, next: next, stop: stop}
}

// Next advances to the next transformed record.
func (b *Batch) Next() bool {
	if b == nil || b.done {
		return false
	}
	rec, ok := b.next()
	if !ok {
		b.Close()
		return false
	}
	out, err := b.t.Transform(b.provider, b.topic, rec)
	if err != nil {
		b.err = &BatchError{Index: b.idx, Err: err}
		b.cur = ""
		b.Close()
		return false
	}
	b.idx++
	b.cur = out
	return true
}

// Record returns the record produced by the last successful Next.
func (b *Batch) Record() string {
	if b == nil {
		return ""
	}
	return b.cur
}

// Err returns the failure that ended iteration, if any.
func (b *Batch) Err() error {
	if b == nil {
		return nil
	}
	return b.err
}

// Close releases the source. It is safe to call more than once.
func (b *Batch) Close() {
	if b == nil || b.done {
		return
	}
	b.done = true
	b.stop()
	if b.onClose != nil {
		b.onClose()
	}
}

// All drains the batch as a range-over-func sequence. A failure is yielded
// once as ("", err) and ends the sequence. Breaking early closes the batch.
func (b *Batch) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer b.Close()
		for b.Next() {
			if !yield(b.Record(), nil) {
				return
			}
		}
		if err := b.Err(); err != nil {
			yield("", err)
		}
	}
}
