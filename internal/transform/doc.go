// Package transform reshapes telemetry records from the ingest envelope
// ({app_id, metadata, payload_fields}) into the per-field array consumed
// downstream ([{metrics, dynamic, static}, ...]).
//
// Engine applies the reshape to one record; Batch applies it lazily across a
// sequence of records. Client abstracts where the engine runs (in-process or
// behind a gRPC plugin) so pipeline stages can invoke it uniformly.
package transform
