package models

import (
	"encoding/json"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want Kind
	}{
		{
			name: "event",
			rec:  Record{"external_id": "u", "name": "viewed", "time": "t"},
			want: KindEvent,
		},
		{
			name: "purchase",
			rec:  Record{"external_id": "u", "product_id": "p", "price": 1.0, "currency": "USD", "time": "t"},
			want: KindPurchase,
		},
		{
			name: "purchase with a product name still a purchase",
			rec:  Record{"external_id": "u", "name": "widget", "product_id": "p", "price": 1.0, "time": "t"},
			want: KindPurchase,
		},
		{
			name: "event missing time",
			rec:  Record{"external_id": "u", "name": "viewed"},
			want: KindUnknown,
		},
		{
			name: "purchase missing price",
			rec:  Record{"external_id": "u", "product_id": "p", "time": "t"},
			want: KindUnknown,
		},
		{
			name: "empty",
			rec:  Record{},
			want: KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Classify(); got != tt.want {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExternalID(t *testing.T) {
	if id := (Record{"external_id": "u1"}).ExternalID(); id != "u1" {
		t.Fatalf("got %q", id)
	}
	if id := (Record{}).ExternalID(); id != "" {
		t.Fatalf("got %q, want empty", id)
	}
	if id := (Record{"external_id": 42}).ExternalID(); id != "" {
		t.Fatalf("non-string external_id: got %q, want empty", id)
	}
}

func TestParseImportRequestContinuation(t *testing.T) {
	raw := []byte(`{"bucket":"b","key":"path/to/file.json","cursor":{"mode":"array","byte_offset":1024}}`)
	req, err := ParseImportRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Bucket != "b" || req.Key != "path/to/file.json" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Cursor.Mode != ModeArray || req.Cursor.ByteOffset != 1024 {
		t.Fatalf("unexpected cursor: %+v", req.Cursor)
	}
}

func TestParseImportRequestS3Event(t *testing.T) {
	raw := []byte(`{"Records":[{"s3":{"bucket":{"name":"my-bucket"},"object":{"key":"imports/events+list.json"}}}]}`)
	req, err := ParseImportRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Bucket != "my-bucket" {
		t.Fatalf("bucket = %q", req.Bucket)
	}
	// S3 keys arrive URL-encoded, + meaning space
	if req.Key != "imports/events list.json" {
		t.Fatalf("key = %q", req.Key)
	}
	if !req.Cursor.IsZero() {
		t.Fatalf("fresh import should start at the zero cursor, got %+v", req.Cursor)
	}
}

func TestParseImportRequestInvalid(t *testing.T) {
	if _, err := ParseImportRequest([]byte(`{"what":"ever"}`)); err == nil {
		t.Fatal("expected error for unrecognized payload")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{Mode: ModeLines, Line: 42}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Cursor
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("round trip: got %+v, want %+v", out, in)
	}
}
