package value

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToProto converts v to a protobuf Value.
func (v Value) ToProto() *structpb.Value {
	switch v.kind {
	case KindBool:
		return structpb.NewBoolValue(v.b)
	case KindNumber:
		return structpb.NewNumberValue(v.n)
	case KindString:
		return structpb.NewStringValue(v.s)
	case KindList:
		values := make([]*structpb.Value, len(v.l))
		for i, e := range v.l {
			values[i] = e.ToProto()
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values})
	case KindMap:
		fields := make(map[string]*structpb.Value, len(v.m))
		for k, e := range v.m {
			fields[k] = e.ToProto()
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields})
	default:
		return structpb.NewNullValue()
	}
}

// FromProto converts a protobuf Value. A nil pointer becomes null.
func FromProto(pv *structpb.Value) Value {
	if pv == nil {
		return Null()
	}
	switch k := pv.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return Bool(k.BoolValue)
	case *structpb.Value_NumberValue:
		return Number(k.NumberValue)
	case *structpb.Value_StringValue:
		return String(k.StringValue)
	case *structpb.Value_ListValue:
		items := k.ListValue.GetValues()
		l := make([]Value, len(items))
		for i, e := range items {
			l[i] = FromProto(e)
		}
		return Value{kind: KindList, l: l}
	case *structpb.Value_StructValue:
		fields := k.StructValue.GetFields()
		m := make(map[string]Value, len(fields))
		for name, e := range fields {
			m[name] = FromProto(e)
		}
		return Value{kind: KindMap, m: m}
	default:
		return Null()
	}
}

// MarshalJSON encodes v as JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(v.ToProto())
}

// UnmarshalJSON decodes any JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var pv structpb.Value
	if err := protojson.Unmarshal(data, &pv); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = FromProto(&pv)
	return nil
}

// EncodeMap encodes a parameter or data map as a JSON object. A nil map
// encodes as {}.
func EncodeMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return Of(m).MarshalJSON()
}

// DecodeMap decodes a JSON object into a plain map. Empty input yields an
// empty map; any other non-object document is an error.
func DecodeMap(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return s.AsMap(), nil
}
