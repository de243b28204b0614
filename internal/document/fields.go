// Package document models the schema-less parts of stored records: typed
// fields the service reads, plus whatever else a client submitted.
package document

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bookcourier/courier-api/internal/apperr"
)

// Fields is an open record. Values are limited to scalars (string, number,
// bool, null) and arrays of scalars.
type Fields map[string]any

// Validate rejects nested objects and arrays that contain them.
func (f Fields) Validate() error {
	for k, v := range f {
		if err := validateValue(v, true); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	return nil
}

func validateValue(v any, allowArray bool) error {
	switch t := v.(type) {
	case nil, string, bool, float64, float32, int, int64, json.Number:
		return nil
	case []any:
		if !allowArray {
			return fmt.Errorf("nested arrays are not supported: %w", apperr.ErrInvalidInput)
		}
		for _, e := range t {
			if err := validateValue(e, false); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value of type %T: %w", v, apperr.ErrInvalidInput)
	}
}

// String returns the string stored under key, or "".
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Without returns a copy of f minus the given keys.
func (f Fields) Without(keys ...string) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Split decodes an open record into the typed struct pointed to by typed and
// returns the fields the struct does not declare.
func Split(f Fields, typed any) (Fields, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	if err := json.Unmarshal(raw, typed); err != nil {
		return nil, fmt.Errorf("decode fields: %v: %w", err, apperr.ErrInvalidInput)
	}
	return f.Without(tagNames(typed, "json")...), nil
}

// MarshalJSON renders typed together with extra. Keys the typed struct
// declares are never taken from extra, even when typed omits them.
// typed must not itself implement json.Marshaler via this function.
func MarshalJSON(typed any, extra Fields) ([]byte, error) {
	raw, err := json.Marshal(typed)
	if err != nil {
		return nil, err
	}
	var declared map[string]json.RawMessage
	if err := json.Unmarshal(raw, &declared); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(extra)+len(declared))
	for k, v := range extra.Without(tagNames(typed, "json")...) {
		out[k] = v
	}
	for k, v := range declared {
		out[k] = v
	}
	return json.Marshal(out)
}

// MarshalItem builds a DynamoDB item from the typed struct and the extra
// fields. Keys the typed struct declares are never taken from extra, so a
// client cannot smuggle in server-owned attributes.
func MarshalItem(typed any, extra Fields) (map[string]types.AttributeValue, error) {
	item := map[string]types.AttributeValue{}
	if rest := extra.Without(tagNames(typed, "dynamodbav")...); len(rest) > 0 {
		extraItem, err := attributevalue.MarshalMap(map[string]any(rest))
		if err != nil {
			return nil, fmt.Errorf("marshal extra fields: %w", err)
		}
		for k, v := range extraItem {
			item[k] = v
		}
	}
	typedItem, err := attributevalue.MarshalMap(typed)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	for k, v := range typedItem {
		item[k] = v
	}
	return item, nil
}

// UnmarshalItem decodes a DynamoDB item into typed and returns the
// attributes typed does not declare.
func UnmarshalItem(item map[string]types.AttributeValue, typed any) (Fields, error) {
	if err := attributevalue.UnmarshalMap(item, typed); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	rest := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		rest[k] = v
	}
	for _, k := range tagNames(typed, "dynamodbav") {
		delete(rest, k)
	}
	if len(rest) == 0 {
		return nil, nil
	}
	var extra map[string]any
	if err := attributevalue.UnmarshalMap(rest, &extra); err != nil {
		return nil, fmt.Errorf("unmarshal extra fields: %w", err)
	}
	return Fields(extra), nil
}

// tagNames lists the field names a struct declares under the given tag.
func tagNames(v any, tag string) []string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		names = append(names, name)
	}
	return names
}
