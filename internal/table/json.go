package table

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// loadJSON reads an array of records (or a single record) and flattens nested
// objects into dotted column names: {"a": {"b": 1}} becomes column "a.b".
// Column order follows first appearance across records.
func loadJSON(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(cleanText(f)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, jsonErr(err)
	}

	var records []flatRecord
	switch tok {
	case json.Delim('['):
		for dec.More() {
			t, err := dec.Token()
			if err != nil {
				return nil, jsonErr(err)
			}
			if t != json.Delim('{') {
				return nil, fmt.Errorf("%w: expected array of objects, found %v", ErrMalformedInput, t)
			}
			rec := flatRecord{}
			if err := flattenObject(dec, "", &rec); err != nil {
				return nil, jsonErr(err)
			}
			records = append(records, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, jsonErr(err)
		}
	case json.Delim('{'):
		rec := flatRecord{}
		if err := flattenObject(dec, "", &rec); err != nil {
			return nil, jsonErr(err)
		}
		records = append(records, rec)
	default:
		return nil, fmt.Errorf("%w: expected array of objects, found %v", ErrMalformedInput, tok)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: invalid json: trailing data", ErrMalformedInput)
	}

	return recordsToTable(records)
}

// flatRecord keeps flattened keys in document order.
type flatRecord struct {
	keys   []string
	values map[string]Cell
}

func (r *flatRecord) set(key string, c Cell) {
	if r.values == nil {
		r.values = make(map[string]Cell)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = c
}

// flattenObject consumes an object body; the opening '{' was already read.
func flattenObject(dec *json.Decoder, prefix string, rec *flatRecord) error {
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := t.(string)
		if !ok {
			return fmt.Errorf("expected object key, found %v", t)
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		if err := flattenValue(dec, key, rec); err != nil {
			return err
		}
	}
	_, err := dec.Token() // '}'
	return err
}

func flattenValue(dec *json.Decoder, key string, rec *flatRecord) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := t.(type) {
	case json.Delim:
		if v == '{' {
			before := len(rec.keys)
			if err := flattenObject(dec, key, rec); err != nil {
				return err
			}
			if len(rec.keys) == before {
				rec.set(key, Null())
			}
			return nil
		}
		// Arrays stay as their JSON text.
		raw, err := captureArray(dec)
		if err != nil {
			return err
		}
		rec.set(key, Text(raw))
	case nil:
		rec.set(key, Null())
	case string:
		rec.set(key, Text(v))
	case json.Number:
		rec.set(key, Text(v.String()))
	case bool:
		if v {
			rec.set(key, Text("True"))
		} else {
			rec.set(key, Text("False"))
		}
	}
	return nil
}

// captureArray re-encodes the remainder of an array whose '[' was consumed.
func captureArray(dec *json.Decoder) (string, error) {
	var items []json.RawMessage
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return "", err
		}
		items = append(items, raw)
	}
	if _, err := dec.Token(); err != nil { // ']'
		return "", err
	}

	var b bytes.Buffer
	b.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Write(bytes.TrimSpace(it))
	}
	b.WriteByte(']')
	return b.String(), nil
}

func recordsToTable(records []flatRecord) (*Table, error) {
	var header []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, k := range rec.keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	// Keys differing only in case would collide on case-insensitive lookup.
	names := uniqueHeader(header)

	cols := make([]*Column, len(header))
	for i, key := range header {
		cells := make([]Cell, len(records))
		for r, rec := range records {
			cells[r] = rec.values[key] // zero Cell is missing
		}
		cols[i] = &Column{Name: names[i], Cells: cells}
	}

	if len(cols) == 0 {
		return &Table{index: map[string]int{}, rows: len(records)}, nil
	}
	return FromColumns(cols...)
}

func jsonErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: invalid json: unexpected end of input", ErrMalformedInput)
	}
	if errors.Is(err, ErrMalformedInput) {
		return err
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "invalid") {
		msg = "invalid json: " + msg
	}
	return fmt.Errorf("%w: %s", ErrMalformedInput, msg)
}
