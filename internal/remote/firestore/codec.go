package firestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	fs "google.golang.org/api/firestore/v1"
)

// encodeDocument turns v's JSON form into a Firestore document. Zero scalars
// and empty arrays are left out; decodeDocument reads missing fields as zero.
func encodeDocument(v any) (*fs.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic map[string]any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{"fields": toFields(generic)})
	if err != nil {
		return nil, err
	}
	var doc fs.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}
	return &doc, nil
}

func toFields(m map[string]any) map[string]any {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		if fv, ok := toValue(v); ok {
			fields[k] = fv
		}
	}
	return fields
}

func toValue(v any) (any, bool) {
	switch x := v.(type) {
	case bool:
		if !x {
			return nil, false
		}
		return map[string]any{"booleanValue": true}, true
	case string:
		if x == "" {
			return nil, false
		}
		return map[string]any{"stringValue": x}, true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			if i == 0 {
				return nil, false
			}
			return map[string]any{"integerValue": strconv.FormatInt(i, 10)}, true
		}
		f, err := x.Float64()
		if err != nil || f == 0 {
			return nil, false
		}
		return map[string]any{"doubleValue": f}, true
	case []any:
		values := make([]any, 0, len(x))
		for _, e := range x {
			if ev, ok := toValue(e); ok {
				values = append(values, ev)
			}
		}
		if len(values) == 0 {
			return nil, false
		}
		return map[string]any{"arrayValue": map[string]any{"values": values}}, true
	case map[string]any:
		return map[string]any{"mapValue": map[string]any{"fields": toFields(x)}}, true
	}
	return nil, false
}

// restValue is the REST shape of a Firestore value, with pointers so that
// absent and zero can be told apart.
type restValue struct {
	StringValue    *string      `json:"stringValue"`
	IntegerValue   json.Number  `json:"integerValue"`
	DoubleValue    *float64     `json:"doubleValue"`
	BooleanValue   *bool        `json:"booleanValue"`
	TimestampValue *string      `json:"timestampValue"`
	ArrayValue     *restArray   `json:"arrayValue"`
	MapValue       *restMapping `json:"mapValue"`
}

type restArray struct {
	Values []restValue `json:"values"`
}

type restMapping struct {
	Fields map[string]restValue `json:"fields"`
}

func (v restValue) generic() any {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != "":
		return v.IntegerValue
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.TimestampValue != nil:
		return *v.TimestampValue
	case v.ArrayValue != nil:
		out := make([]any, 0, len(v.ArrayValue.Values))
		for _, e := range v.ArrayValue.Values {
			out = append(out, e.generic())
		}
		return out
	case v.MapValue != nil:
		return fromFields(v.MapValue.Fields)
	}
	return nil
}

func fromFields(fields map[string]restValue) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if g := v.generic(); g != nil {
			out[k] = g
		}
	}
	return out
}

// decodeDocument fills dst from the fields of doc.
func decodeDocument(doc *fs.Document, dst any) error {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return err
	}
	var fields map[string]restValue
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("read fields of %s: %w", doc.Name, err)
	}
	body, err := json.Marshal(fromFields(fields))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", doc.Name, err)
	}
	return nil
}
