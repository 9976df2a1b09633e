package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"iter"

	"github.com/tidwall/gjson"

	"metricshape/internal/logging"
)

const (
	timeKey        = "time"
	timeStampName  = "timeStamp"
	fieldAppID     = "app_id"
	fieldMetadata  = "metadata"
	fieldPayload   = "payload_fields"
	fieldValue     = "value"
	fieldTimestamp = fieldMetadata + "." + timeKey
)

// Transformer reshapes one raw record.
type Transformer interface {
	Transform(provider, topic, record string) (string, error)
}

// Engine is the reshape transformer. It is safe for concurrent use.
type Engine struct {
	cfg *Config
}

// NewEngine returns an engine bound to cfg; a nil cfg gets a fresh Config.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() *Config { return e.cfg }

// Initialize forwards to the engine's Config.
func (e *Engine) Initialize(info string) bool { return e.cfg.Initialize(info) }

// Transform reshapes record into one TransformedField per payload field and
// returns the encoded array. provider and topic only label diagnostics.
func (e *Engine) Transform(provider, topic, record string) (string, error) {
	fields, err := reshape(record)
	if err != nil {
		return "", err
	}
	out, err := encode(fields)
	if err != nil {
		return "", err
	}
	logging.L().Debug("transform: record reshaped",
		"provider", provider, "topic", topic, "fields", len(fields), "prefix", e.cfg.Prefix())
	return out, nil
}

// TransformBatch lazily applies Transform to every record. It returns nil
// when records is nil.
func (e *Engine) TransformBatch(provider, topic string, records iter.Seq[string]) *Batch {
	return NewBatch(e, provider, topic, records)
}

func reshape(record string) ([]TransformedField, error) {
	if !gjson.Valid(record) {
		return nil, &ParseError{Err: errors.New("invalid JSON")}
	}
	root := gjson.Parse(record)
	if !root.IsObject() {
		return nil, &ParseError{Err: errors.New("record is not a JSON object")}
	}

	meta := root.Get(fieldMetadata)
	if !meta.IsObject() {
		return nil, missing(fieldTimestamp)
	}
	ts := meta.Get(timeKey)
	if !ts.Exists() {
		return nil, missing(fieldTimestamp)
	}

	payload := root.Get(fieldPayload)
	if !payload.Exists() {
		return nil, missing(fieldPayload)
	}
	if !payload.IsObject() {
		return nil, &SchemaError{Field: fieldPayload, Reason: "not an object"}
	}

	appID := root.Get(fieldAppID)
	if !appID.Exists() || appID.Type == gjson.Null {
		return nil, missing(fieldAppID)
	}
	if appID.IsObject() || appID.IsArray() {
		return nil, &SchemaError{Field: fieldAppID, Reason: "not a scalar"}
	}
	prefix := appID.String()

	var static []Attribute
	meta.ForEach(func(k, v gjson.Result) bool {
		if k.String() != timeKey {
			static = append(static, Attribute{Key: k.String(), Value: valueOf(v)})
		}
		return true
	})
	if static == nil {
		static = []Attribute{}
	}
	dynamic := []NamedValue{{Name: timeStampName, Value: valueOf(ts)}}

	out := []TransformedField{}
	var bad *SchemaError
	payload.ForEach(func(k, desc gjson.Result) bool {
		key := k.String()
		if !desc.IsObject() {
			bad = &SchemaError{Field: fieldPayload + "." + key, Reason: "not an object"}
			return false
		}
		out = append(out, TransformedField{
			Metrics: []NamedValue{{Name: prefix + key, Value: valueOf(desc.Get(fieldValue))}},
			Dynamic: dynamic,
			Static:  static,
		})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}

func encode(fields []TransformedField) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return "", &SerializationError{Err: err}
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
