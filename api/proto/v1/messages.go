package pb

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// Metadata keys fixing provider and topic for a TransformStream call.
const (
	MDProvider = "x-metricshape-provider"
	MDTopic    = "x-metricshape-topic"
)

const (
	fieldProvider = "provider"
	fieldTopic    = "topic"
	fieldRecord   = "record"
)

// NewTransformRequest builds the Transform request message.
func NewTransformRequest(provider, topic, record string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldProvider: structpb.NewStringValue(provider),
		fieldTopic:    structpb.NewStringValue(topic),
		fieldRecord:   structpb.NewStringValue(record),
	}}
}

// TransformRequestFields unpacks a Transform request. ok is false when the
// record field is absent.
func TransformRequestFields(in *structpb.Struct) (provider, topic, record string, ok bool) {
	f := in.GetFields()
	rec, ok := f[fieldRecord]
	if !ok {
		return "", "", "", false
	}
	return f[fieldProvider].GetStringValue(), f[fieldTopic].GetStringValue(), rec.GetStringValue(), true
}
