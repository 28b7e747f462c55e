package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxLineBytes bounds a single JSONL line.
const maxLineBytes = 16 * 1024 * 1024

// ReadJSONL decodes one record per non-blank line. Any undecodable line
// fails the whole read with an error wrapping ErrMalformed.
func ReadJSONL(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []Record
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		if text[0] != '{' {
			return nil, fmt.Errorf("line %d: %w: expected object", line, ErrMalformed)
		}
		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			if !errors.Is(err, ErrMalformed) {
				err = fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line %d exceeds %d bytes", ErrMalformed, line+1, maxLineBytes)
		}
		return nil, fmt.Errorf("scan jsonl: %w", err)
	}
	return records, nil
}

// WriteJSONL encodes records one per line in slice order.
func WriteJSONL(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		data, err := rec.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("write record %d: %w", rec.ID, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write record %d: %w", rec.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush jsonl: %w", err)
	}
	return nil
}

// EncodeJSONL returns the JSONL encoding of records.
func EncodeJSONL(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
