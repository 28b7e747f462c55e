package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

const (
	parquetSchemaName = "hn_stories"
	parquetReadBatch  = 256
)

// columnKind is the parquet physical shape chosen for an attribute.
type columnKind int

const (
	kindNull columnKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
)

// widen returns the narrowest kind that holds values of both a and b.
// Integers widen to floats; any other disagreement falls back to strings.
func widen(a, b columnKind) columnKind {
	switch {
	case a == b, b == kindNull:
		return a
	case a == kindNull:
		return b
	case (a == kindInt && b == kindFloat) || (a == kindFloat && b == kindInt):
		return kindFloat
	default:
		return kindString
	}
}

func kindOf(raw json.RawMessage) columnKind {
	text := bytes.TrimSpace(raw)
	if len(text) == 0 {
		return kindNull
	}
	switch text[0] {
	case 'n':
		return kindNull
	case 't', 'f':
		return kindBool
	case '"', '{', '[':
		return kindString
	}
	if _, err := strconv.ParseInt(string(text), 10, 64); err == nil {
		return kindInt
	}
	return kindFloat
}

func (k columnKind) node() parquet.Node {
	switch k {
	case kindBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	case kindInt:
		return parquet.Optional(parquet.Int(64))
	case kindFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	default:
		return parquet.Optional(parquet.String())
	}
}

// EncodeParquet writes records as a single flat parquet file. The id column
// is a required INT64; every other attribute becomes an optional column
// typed from the values it holds. Objects, arrays and columns of mixed
// kinds are stored as strings, with non-string values kept as JSON text.
func EncodeParquet(records []Record) ([]byte, error) {
	kinds := map[string]columnKind{}
	for _, rec := range records {
		for name, raw := range rec.fields {
			if name == idField {
				continue
			}
			kinds[name] = widen(kinds[name], kindOf(raw))
		}
	}

	group := parquet.Group{idField: parquet.Int(64)}
	for name, kind := range kinds {
		group[name] = kind.node()
	}
	schema := parquet.NewSchema(parquetSchemaName, group)

	// Group fields come back sorted by name; a flat schema has one leaf per field.
	fields := schema.Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name()
	}

	var buf bytes.Buffer
	writer := parquet.NewWriter(&buf, schema, parquet.Compression(&parquet.Snappy))
	rows := make([]parquet.Row, 0, len(records))
	for _, rec := range records {
		row, err := parquetRow(rec, columns, kinds)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if _, err := writer.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func parquetRow(rec Record, columns []string, kinds map[string]columnKind) (parquet.Row, error) {
	row := make(parquet.Row, len(columns))
	for i, name := range columns {
		if name == idField {
			row[i] = parquet.Int64Value(rec.ID).Level(0, 0, i)
			continue
		}
		raw, ok := rec.fields[name]
		if !ok || kindOf(raw) == kindNull {
			row[i] = parquet.NullValue().Level(0, 0, i)
			continue
		}
		v, err := parquetValue(raw, kinds[name])
		if err != nil {
			return nil, fmt.Errorf("record %d column %q: %w", rec.ID, name, err)
		}
		row[i] = v.Level(0, 1, i)
	}
	return row, nil
}

func parquetValue(raw json.RawMessage, kind columnKind) (parquet.Value, error) {
	switch kind {
	case kindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return parquet.Value{}, err
		}
		return parquet.BooleanValue(b), nil
	case kindInt:
		n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.Int64Value(n), nil
	case kindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return parquet.Value{}, err
		}
		return parquet.DoubleValue(f), nil
	default:
		var s string
		if kindOf(raw) == kindString && json.Unmarshal(raw, &s) == nil {
			return parquet.ByteArrayValue([]byte(s)), nil
		}
		return parquet.ByteArrayValue(bytes.TrimSpace(raw)), nil
	}
}

type parquetColumn struct {
	name     string
	repeated bool
}

// ReadParquet decodes every row of a parquet file. Nested struct fields are
// flattened to dotted names and repeated columns become JSON arrays. A file
// without an integer id column fails with ErrMalformed.
func ReadParquet(r io.ReaderAt, size int64) ([]Record, error) {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: open parquet: %v", ErrMalformed, err)
	}
	schema := file.Schema()

	paths := schema.Columns()
	columns := make([]parquetColumn, len(paths))
	for _, path := range paths {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return nil, fmt.Errorf("parquet column %v not found in schema", path)
		}
		col := parquetColumn{name: strings.Join(path, "."), repeated: leaf.MaxRepetitionLevel > 0}
		if col.repeated {
			col.name = path[0]
		}
		columns[leaf.ColumnIndex] = col
	}

	reader := parquet.NewReader(file)
	defer reader.Close() //nolint:errcheck // read-only

	records := make([]Record, 0, file.NumRows())
	rows := make([]parquet.Row, parquetReadBatch)
	for {
		n, err := reader.ReadRows(rows)
		for _, row := range rows[:n] {
			rec, convErr := recordFromRow(row, columns)
			if convErr != nil {
				return nil, fmt.Errorf("row %d: %w", len(records), convErr)
			}
			records = append(records, rec)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return records, nil
}

func recordFromRow(row parquet.Row, columns []parquetColumn) (Record, error) {
	fields := make(map[string]json.RawMessage, len(columns))
	lists := map[string][]json.RawMessage{}
	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(columns) {
			return Record{}, fmt.Errorf("%w: value for unknown column %d", ErrMalformed, idx)
		}
		col := columns[idx]
		raw, err := jsonValue(v)
		if err != nil {
			return Record{}, fmt.Errorf("column %q: %w", col.name, err)
		}
		if !col.repeated {
			fields[col.name] = raw
			continue
		}
		if _, ok := lists[col.name]; !ok {
			lists[col.name] = []json.RawMessage{}
		}
		if !v.IsNull() {
			lists[col.name] = append(lists[col.name], raw)
		}
	}
	for name, items := range lists {
		raw, err := json.Marshal(items)
		if err != nil {
			return Record{}, fmt.Errorf("column %q: %w", name, err)
		}
		fields[name] = raw
	}
	return recordFromFields(fields)
}

func jsonValue(v parquet.Value) (json.RawMessage, error) {
	if v.IsNull() {
		return json.RawMessage("null"), nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return json.RawMessage(strconv.FormatBool(v.Boolean())), nil
	case parquet.Int32:
		return json.RawMessage(strconv.FormatInt(int64(v.Int32()), 10)), nil
	case parquet.Int64:
		return json.RawMessage(strconv.FormatInt(v.Int64(), 10)), nil
	case parquet.Float:
		return floatJSON(float64(v.Float()))
	case parquet.Double:
		return floatJSON(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return json.Marshal(string(v.ByteArray()))
	default:
		return json.Marshal(v.String())
	}
}

// floatJSON encodes f, mapping NaN and infinities to null.
func floatJSON(f float64) (json.RawMessage, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(f)
}
