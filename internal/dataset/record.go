// Package dataset defines the records, snapshots and merge rules shared by
// the sync pipeline and every snapshot store.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMalformed marks input that cannot be decoded into records.
var ErrMalformed = errors.New("malformed record")

const idField = "id"

// Record is one crawled item. Only the identifier is interpreted;
// every other attribute is carried through load, merge and publish untouched.
type Record struct {
	ID     int64
	fields map[string]json.RawMessage
}

// NewRecord builds a Record from an identifier and a set of attributes.
// An "id" entry in attrs is ignored in favor of id.
func NewRecord(id int64, attrs map[string]any) (Record, error) {
	fields := make(map[string]json.RawMessage, len(attrs)+1)
	for k, v := range attrs {
		if k == idField {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return Record{}, fmt.Errorf("marshal attribute %q: %w", k, err)
		}
		fields[k] = raw
	}
	fields[idField] = json.RawMessage(strconv.FormatInt(id, 10))
	return Record{ID: id, fields: fields}, nil
}

// Field returns the raw JSON value of the named attribute.
func (r Record) Field(name string) (json.RawMessage, bool) {
	raw, ok := r.fields[name]
	return raw, ok
}

// StringField decodes the named attribute as a string.
func (r Record) StringField(name string) (string, bool) {
	raw, ok := r.fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Columns returns the number of attributes, the identifier included.
func (r Record) Columns() int {
	return len(r.fields)
}

// Without returns a copy of the record with the named columns removed.
// The identifier column is never removed.
func (r Record) Without(columns ...string) Record {
	if len(columns) == 0 {
		return r
	}
	fields := make(map[string]json.RawMessage, len(r.fields))
	for k, v := range r.fields {
		fields[k] = v
	}
	for _, c := range columns {
		if c == idField {
			continue
		}
		delete(fields, c)
	}
	return Record{ID: r.ID, fields: fields}
}

// MarshalJSON encodes the record as a flat JSON object with sorted keys.
func (r Record) MarshalJSON() ([]byte, error) {
	fields := r.fields
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	out := make(map[string]json.RawMessage, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[idField] = json.RawMessage(strconv.FormatInt(r.ID, 10))
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal record %d: %w", r.ID, err)
	}
	return data, nil
}

// UnmarshalJSON decodes a JSON object that carries an integer "id".
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: expected object", ErrMalformed)
	}
	rec, err := recordFromFields(fields)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// recordFromFields wraps decoded attributes, which must hold an integer id.
func recordFromFields(fields map[string]json.RawMessage) (Record, error) {
	raw, ok := fields[idField]
	if !ok {
		return Record{}, fmt.Errorf("%w: missing %q", ErrMalformed, idField)
	}
	id, err := parseInt(raw)
	if err != nil {
		return Record{}, fmt.Errorf("%w: field %q: %v", ErrMalformed, idField, err)
	}
	return Record{ID: id, fields: fields}, nil
}

// parseInt accepts JSON integers and integral floats such as 42.0, which
// tabular exporters emit for integer columns holding nulls elsewhere.
func parseInt(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("decode number: %w", err)
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	if n, err := num.Int64(); err == nil {
		return n, nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", num, err)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is out of range.
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("not an integer: %s", num)
	}
	return int64(f), nil
}
