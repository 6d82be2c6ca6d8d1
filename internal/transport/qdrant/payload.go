package qdrant

import (
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
)

// PointID maps a record id onto the UUID Qdrant requires.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// toPoint keeps the original id and content in the payload; metadata sits in
// its own struct so caller keys never clash with them.
func toPoint(rec document.Record) *qdrant.PointStruct {
	fields := make(map[string]*qdrant.Value, len(rec.Metadata()))
	for k, v := range rec.Metadata() {
		fields[k] = toValue(v)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(rec.ID())),
		Vectors: qdrant.NewVectors(rec.Vector()...),
		Payload: map[string]*qdrant.Value{
			payloadID:       {Kind: &qdrant.Value_StringValue{StringValue: rec.ID()}},
			payloadDocument: {Kind: &qdrant.Value_StringValue{StringValue: rec.Content()}},
			payloadMetadata: {Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: fields}}},
		},
	}
}

func toValue(v metadata.Value) *qdrant.Value {
	switch v.Kind() { //nolint:exhaustive // sanitized values are primitive
	case metadata.KindString:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v.Text()}}
	case metadata.KindInt:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v.Any().(int64)}}
	case metadata.KindFloat:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v.Any().(float64)}}
	case metadata.KindBool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v.Any().(bool)}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{NullValue: qdrant.NullValue_NULL_VALUE}}
	}
}

func fromPoint(p *qdrant.RetrievedPoint) document.Record {
	payload := p.GetPayload()

	id := payload[payloadID].GetStringValue()
	if id == "" {
		id = p.GetId().GetUuid()
	}
	content := payload[payloadDocument].GetStringValue()

	raw := make(map[string]any)
	if st := payload[payloadMetadata].GetStructValue(); st != nil {
		for k, v := range st.GetFields() {
			raw[k] = fromValue(v)
		}
	}
	return document.Reconstruct(id, content, metadata.FromStored(raw))
}

func fromValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		m := make(map[string]any, len(k.StructValue.GetFields()))
		for key, fv := range k.StructValue.GetFields() {
			m[key] = fromValue(fv)
		}
		return m
	case *qdrant.Value_ListValue:
		list := make([]any, 0, len(k.ListValue.GetValues()))
		for _, lv := range k.ListValue.GetValues() {
			list = append(list, fromValue(lv))
		}
		return list
	default:
		return nil
	}
}
