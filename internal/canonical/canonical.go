// Package canonical produces the deterministic byte encoding used as the
// content-address hash input. Object keys are sorted lexicographically at
// every nesting level, array order is preserved, null and absent optional
// values are omitted from objects, and timestamps serialize to a fixed UTC
// textual form. The same logical value always yields byte-identical output.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// TimeFormat is the canonical timestamp layout: UTC, RFC 3339 with fixed
// microsecond precision. Fixed precision keeps equal instants byte-equal
// regardless of the precision they were produced with.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime renders t in the canonical textual form.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(TimeFormat)
}

// Encode serializes v canonically. The value space is closed: nil, bool,
// string, json.Number, int, int64, float64, time.Time, []any, and
// map[string]any (recursively). Anything else is an encoding error rather
// than a best-effort guess, since an unstable encoding would silently break
// dedup and idempotent replays.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		encodeString(buf, val)
	case json.Number:
		buf.WriteString(val.String())
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		// Shortest representation that round-trips, like encoding/json.
		buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case time.Time:
		encodeString(buf, FormatTime(val))
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		return encodeObject(buf, val)
	default:
		return fmt.Errorf("canonical: unsupported type %T", v)
	}
	return nil
}

func encodeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k, v := range obj {
		if v == nil {
			// Null members are omitted, matching absent optional fields.
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeString(buf, k)
		buf.WriteByte(':')
		if err := encodeValue(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// encodeString writes a JSON string without HTML escaping: quotes and
// backslashes are escaped, control characters use \u00XX, and all other
// runes pass through as UTF-8.
func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// Decode parses canonical (or any) JSON into the closed value space, with
// numbers preserved as json.Number so re-encoding is byte-stable.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
