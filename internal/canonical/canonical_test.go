package canonical

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeSortsKeysAtEveryLevel(t *testing.T) {
	v := map[string]any{
		"zeta": map[string]any{
			"b": json.Number("2"),
			"a": json.Number("1"),
		},
		"alpha": "first",
	}
	got, err := Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"alpha":"first","zeta":{"a":1,"b":2}}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestEncodeDeterministicAcrossFieldOrder(t *testing.T) {
	// Two parses of logically identical documents with different member
	// order must encode byte-identically.
	a, err := Decode([]byte(`{"x":1,"y":{"k":"v","j":[1,2,3]},"z":"ž"}`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Decode([]byte(`{"z":"ž","y":{"j":[1,2,3],"k":"v"},"x":1}`))
	if err != nil {
		t.Fatal(err)
	}

	ea, err := Encode(a)
	if err != nil {
		t.Fatal(err)
	}
	eb, err := Encode(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ea) != string(eb) {
		t.Fatalf("encodings differ:\n%s\n%s", ea, eb)
	}
}

func TestEncodePreservesArrayOrder(t *testing.T) {
	got, err := Encode([]any{"c", "a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `["c","a","b"]` {
		t.Fatalf("got %s", got)
	}
}

func TestEncodeOmitsNullMembers(t *testing.T) {
	got, err := Encode(map[string]any{"keep": "x", "drop": nil})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"keep":"x"}` {
		t.Fatalf("got %s", got)
	}
}

func TestEncodeUnicode(t *testing.T) {
	got, err := Encode(map[string]any{"msg": "xin chào 世界 🚀", "tab": "a\tb"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"msg":"xin chào 世界 🚀","tab":"a\tb"}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestEncodeTimeFixedPrecision(t *testing.T) {
	base := time.Date(2025, 3, 9, 12, 30, 45, 0, time.UTC)
	coarse, err := Encode(base)
	if err != nil {
		t.Fatal(err)
	}
	if string(coarse) != `"2025-03-09T12:30:45.000000Z"` {
		t.Fatalf("got %s", coarse)
	}

	// Sub-microsecond detail must not leak into the encoding.
	fine, err := Encode(base.Add(300 * time.Nanosecond))
	if err != nil {
		t.Fatal(err)
	}
	if string(fine) != string(coarse) {
		t.Fatalf("nanosecond jitter changed encoding: %s", fine)
	}
}

func TestEncodeNumbersKeepLiteralForm(t *testing.T) {
	v, err := Decode([]byte(`{"a":1.50,"b":100000000000000000001}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":1.50,"b":100000000000000000001}` {
		t.Fatalf("got %s", got)
	}
}

func TestEncodeRejectsOpenTypes(t *testing.T) {
	if _, err := Encode(map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if _, err := Encode(struct{ X int }{1}); err == nil {
		t.Fatal("expected error for struct value")
	}
}
