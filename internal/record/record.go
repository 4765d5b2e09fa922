package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies what a Value holds
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindNumber
)

// Value is one raw cell or form value: a string, a number, or nothing.
// Numbers parsed from text keep the original text.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Missing returns an empty value
func Missing() Value {
	return Value{}
}

// String wraps a string value
func String(s string) Value {
	return Value{kind: KindString, text: s}
}

// Number wraps a numeric value
func Number(f float64) Value {
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, 'f', -1, 64), num: f}
}

// Parse classifies raw text: empty is missing, a finite float is a number,
// everything else (including "NaN" and "Inf") is a string.
func Parse(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Missing()
	}
	if f, err := parseFinite(trimmed); err == nil {
		return Value{kind: KindNumber, text: trimmed, num: f}
	}
	return String(s)
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

// Kind returns the value kind
func (v Value) Kind() Kind {
	return v.kind
}

// IsMissing reports whether the value is empty
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// String returns the textual representation used for categorical matching
func (v Value) String() string {
	return v.text
}

// Float coerces the value to a number
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return 0, fmt.Errorf("%v is not a finite number", v.num)
		}
		return v.num, nil
	case KindString:
		f, err := parseFinite(strings.TrimSpace(v.text))
		if err != nil {
			return 0, fmt.Errorf("%q is not numeric", v.text)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value is missing")
	}
}

// Interface returns the value as a plain Go value (string, float64 or nil)
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.text
	default:
		return nil
	}
}

// MarshalJSON encodes numbers as JSON numbers, strings as strings and
// missing values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts numbers, strings, booleans and null
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	parsed, err := fromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Missing(), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindNumber, text: t.String(), num: f}, nil
	case float64:
		return Number(t), nil
	case string:
		return String(t), nil
	case bool:
		return String(strconv.FormatBool(t)), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Record is one raw input row: field names in the order they were supplied,
// mapped to their values.
type Record struct {
	fields []string
	values map[string]Value
}

// New returns an empty record
func New() Record {
	return Record{values: make(map[string]Value)}
}

// Set assigns a field. New fields are appended; existing fields keep their
// position.
func (r *Record) Set(field string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[field]; !ok {
		r.fields = append(r.fields, field)
	}
	r.values[field] = v
}

// Get returns a field value
func (r Record) Get(field string) (Value, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Fields returns field names in insertion order
func (r Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields
func (r Record) Len() int {
	return len(r.fields)
}

// Clone returns an independent copy
func (r Record) Clone() Record {
	c := Record{
		fields: make([]string, len(r.fields)),
		values: make(map[string]Value, len(r.values)),
	}
	copy(c.fields, r.fields)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// MarshalJSON writes the record as a JSON object preserving field order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[field])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, keeping key order
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	out := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid record key %v", tok)
		}

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		v, err := fromInterface(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}
