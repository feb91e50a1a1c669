package json

import (
	"bytes"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/tributary-data/tributary/pkg/pool"
)

func TestPooledDecoderUsesNumber(t *testing.T) {
	dec := GetDecoder(strings.NewReader(`{"current_page": 2, "total_pages": 7}`))
	defer PutDecoder(dec)

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		t.Fatal(err)
	}

	// Numbers must decode as json.Number so integer fields survive intact
	n, ok := payload["current_page"].(gojson.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", payload["current_page"])
	}
	if n.String() != "2" {
		t.Errorf("expected '2', got '%s'", n.String())
	}
}

func TestPooledEncoderNoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	enc := GetEncoder(&buf)
	defer PutEncoder(enc)

	if err := enc.Encode(map[string]string{"next_link": "https://api.example.com?a=1&b=2"}); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(buf.String(), `&`) {
		t.Errorf("expected unescaped ampersand, got %s", buf.String())
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := map[string]interface{}{
		"id":   "adaccount-1",
		"name": "Primary",
	}

	data, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out map[string]interface{}
	if err := Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}

	if out["id"] != "adaccount-1" || out["name"] != "Primary" {
		t.Errorf("unexpected round trip result: %v", out)
	}
}

func TestMarshalRecordsLines(t *testing.T) {
	records := make([]*pool.Record, 2)
	for i, id := range []string{"r1", "r2"} {
		rec := pool.GetRecord()
		rec.ID = id
		rec.Data["id"] = id
		records[i] = rec
	}
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	data, err := MarshalRecordsLines(records)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var decoded map[string]interface{}
		if err := Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
	}
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("scratch")
	PutBuffer(buf)

	again := GetBuffer()
	defer PutBuffer(again)
	if again.Len() != 0 {
		t.Errorf("expected reset buffer, got length %d", again.Len())
	}
}
