package transform

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Kind classifies a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindComposite // object or array
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindComposite:
		return "composite"
	default:
		return "null"
	}
}

// Value is a JSON value carried through verbatim: the raw token read from the
// input is the token written to the output.
type Value struct {
	raw json.RawMessage
}

var nullRaw = json.RawMessage("null")

func valueOf(r gjson.Result) Value {
	if !r.Exists() {
		return Value{}
	}
	return Value{raw: json.RawMessage(r.Raw)}
}

// RawValue wraps an already-encoded JSON token.
func RawValue(raw string) Value { return Value{raw: json.RawMessage(raw)} }

func (v Value) Kind() Kind {
	if len(v.raw) == 0 {
		return KindNull
	}
	switch gjson.ParseBytes(v.raw).Type {
	case gjson.True, gjson.False:
		return KindBool
	case gjson.Number:
		return KindNumber
	case gjson.String:
		return KindString
	case gjson.JSON:
		return KindComposite
	default:
		return KindNull
	}
}

// Raw returns the JSON encoding of v.
func (v Value) Raw() string {
	if len(v.raw) == 0 {
		return string(nullRaw)
	}
	return string(v.raw)
}

func (v Value) Equal(o Value) bool {
	return bytes.Equal(compact(v.raw), compact(o.raw))
}

func (v Value) String() string { return v.Raw() }

func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return nullRaw, nil
	}
	return v.raw, nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	v.raw = append(json.RawMessage(nil), b...)
	return nil
}

func compact(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nullRaw
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// NamedValue is one {name, value} entry of the metrics or dynamic section.
type NamedValue struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Attribute is one static entry, encoded as a single-key object {key: value}.
type Attribute struct {
	Key   string
	Value Value
}

func (a Attribute) MarshalJSON() ([]byte, error) {
	k, err := json.Marshal(a.Key)
	if err != nil {
		return nil, err
	}
	v, err := a.Value.MarshalJSON()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(k)+len(v)+3)
	out = append(out, '{')
	out = append(out, k...)
	out = append(out, ':')
	out = append(out, v...)
	return append(out, '}'), nil
}

func (a *Attribute) UnmarshalJSON(b []byte) error {
	var m map[string]Value
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("static attribute: want exactly one key, got %d", len(m))
	}
	for k, v := range m {
		a.Key, a.Value = k, v
	}
	return nil
}

// TransformedField is the output element produced for one payload field.
type TransformedField struct {
	Metrics []NamedValue `json:"metrics"`
	Dynamic []NamedValue `json:"dynamic"`
	Static  []Attribute  `json:"static"`
}

// DecodeRecord parses an output record produced by Engine.Transform.
func DecodeRecord(text string) ([]TransformedField, error) {
	var out []TransformedField
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, err
	}
	return out, nil
}
