package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Row is one dataset record: an ordered mapping from column name to raw
// string value. Column order is the order columns were first set.
type Row struct {
	columns []string
	values  map[string]string
}

// RowOf builds a Row from alternating column/value pairs. A trailing column
// without a value is set to the empty string.
func RowOf(pairs ...string) Row {
	var r Row
	for i := 0; i < len(pairs); i += 2 {
		val := ""
		if i+1 < len(pairs) {
			val = pairs[i+1]
		}
		r.Set(pairs[i], val)
	}
	return r
}

// Set assigns a value, appending the column if it is new.
func (r *Row) Set(column, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the raw value for column and whether the column is present.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Value returns the raw value for column, or "" when absent.
func (r Row) Value(column string) string {
	return r.values[column]
}

// Columns returns the column names in insertion order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}

// UnmarshalJSON decodes a JSON object into the row, keeping the object's key
// order. Strings and booleans become their literal text, numbers their
// canonical decimal form, null becomes "" and nested
// values are kept as compact JSON.
func (r *Row) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "model: read row")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return eris.Errorf("model: expected object, got %v", tok)
	}

	*r = Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "model: read column name")
		}
		column, ok := tok.(string)
		if !ok {
			return eris.Errorf("model: expected column name, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrapf(err, "model: decode column %q", column)
		}
		val, err := rawToString(raw)
		if err != nil {
			return eris.Wrapf(err, "model: decode column %q", column)
		}
		r.Set(column, val)
	}

	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "model: read row end")
	}
	return nil
}

func rawToString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}

	switch trimmed[0] {
	case 'n':
		return "", nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		// JSON numbers are canonicalised so exponent forms survive the
		// digit-only coercion applied to string cells.
		f, err := json.Number(trimmed).Float64()
		if err != nil {
			return "", err
		}
		return FormatNumber(f), nil
	}
}
