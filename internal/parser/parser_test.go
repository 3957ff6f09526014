package parser

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
)

type parsed struct {
	rec models.Record
	cur models.Cursor
}

// drain parses the whole stream, skipping malformed elements
func drain(t *testing.T, input string, start models.Cursor) ([]parsed, int) {
	t.Helper()
	p := New(strings.NewReader(input), start)
	var out []parsed
	for {
		rec, cur, err := p.Next()
		if errors.Is(err, io.EOF) {
			return out, p.MalformedCount()
		}
		if errors.Is(err, ErrMalformedRecord) {
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, parsed{rec: rec, cur: cur})
	}
}

func ids(ps []parsed) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.rec.ExternalID())
	}
	return out
}

func TestArrayModeBasic(t *testing.T) {
	input := `[
		{"external_id": "u1", "name": "viewed", "time": "2020-01-01T00:00:00Z"},
		{"external_id": "u2", "product_id": "p1", "price": 1.5, "currency": "USD", "time": "2020-01-01T00:00:00Z"}
	]`

	got, malformed := drain(t, input, models.Cursor{})
	if malformed != 0 {
		t.Fatalf("malformed = %d, want 0", malformed)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].rec.ExternalID() != "u1" || got[1].rec.ExternalID() != "u2" {
		t.Fatalf("unexpected records: %v", ids(got))
	}
	for _, p := range got {
		if p.cur.Mode != models.ModeArray {
			t.Fatalf("cursor mode = %q, want array", p.cur.Mode)
		}
	}
	if got[0].cur.ByteOffset >= got[1].cur.ByteOffset {
		t.Fatalf("cursors not increasing: %d >= %d", got[0].cur.ByteOffset, got[1].cur.ByteOffset)
	}
}

func TestArrayModeSingleLine(t *testing.T) {
	input := `[{"external_id":"a"},{"external_id":"b"},{"external_id":"c"}]`
	got, _ := drain(t, input, models.Cursor{})
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
}

func TestArrayModeNestedAndStrings(t *testing.T) {
	input := `[{"external_id":"a","properties":{"tags":["x,y","}{"],"n":{"deep":[1,2]}},"note":"a \"quoted\" ] value"}]`
	got, malformed := drain(t, input, models.Cursor{})
	if malformed != 0 || len(got) != 1 {
		t.Fatalf("got %d records (%d malformed), want 1 clean", len(got), malformed)
	}
	if got[0].rec.ExternalID() != "a" {
		t.Fatalf("unexpected record: %v", got[0].rec)
	}
}

// Resuming from every recorded cursor must reproduce the same partition of
// records as an uninterrupted parse; this is the system's core invariant.
func TestArrayModeResumeSeam(t *testing.T) {
	input := `[
		{"external_id": "u1", "name": "a", "time": "t"},
		{"external_id": "u2", "name": "b", "time": "t"},
		{"external_id": "u3", "properties": {"k": [1, 2, {"z": "]"}]}},
		{"external_id": "u4", "name": "d", "time": "t"},
		{"external_id": "u5", "name": "e", "time": "t"}
	]`

	full, _ := drain(t, input, models.Cursor{})
	if len(full) != 5 {
		t.Fatalf("full parse got %d records, want 5", len(full))
	}

	for i, p := range full {
		resumed, _ := drain(t, input[p.cur.ByteOffset:], p.cur)
		want := full[i+1:]
		if len(resumed) != len(want) {
			t.Fatalf("resume after record %d: got %d records, want %d", i, len(resumed), len(want))
		}
		for j := range want {
			if resumed[j].rec.ExternalID() != want[j].rec.ExternalID() {
				t.Errorf("resume after record %d: record %d = %q, want %q",
					i, j, resumed[j].rec.ExternalID(), want[j].rec.ExternalID())
			}
			if resumed[j].cur != want[j].cur {
				t.Errorf("resume after record %d: cursor %d = %+v, want %+v",
					i, j, resumed[j].cur, want[j].cur)
			}
		}
	}
}

func TestArrayModeMalformedElement(t *testing.T) {
	input := `[{"external_id":"a"}, {"bad": }, {"external_id":"b"}]`
	p := New(strings.NewReader(input), models.Cursor{})

	rec, _, err := p.Next()
	if err != nil || rec.ExternalID() != "a" {
		t.Fatalf("first record: %v, %v", rec, err)
	}

	_, cur, err := p.Next()
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	if cur.ByteOffset == 0 {
		t.Fatal("cursor did not advance past malformed element")
	}

	rec, _, err = p.Next()
	if err != nil || rec.ExternalID() != "b" {
		t.Fatalf("stream unusable after malformed element: %v, %v", rec, err)
	}

	if _, _, err = p.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if p.MalformedCount() != 1 {
		t.Fatalf("malformed count = %d, want 1", p.MalformedCount())
	}
}

func TestArrayModeNonObjectElement(t *testing.T) {
	input := `[{"external_id":"a"}, 42, "str", {"external_id":"b"}]`
	got, malformed := drain(t, input, models.Cursor{})
	if len(got) != 2 || malformed != 2 {
		t.Fatalf("got %d records, %d malformed; want 2 and 2", len(got), malformed)
	}
}

func TestArrayModeTruncatedIsFatal(t *testing.T) {
	input := `[{"external_id":"a"}, {"external_id":"b"}`
	p := New(strings.NewReader(input), models.Cursor{})
	var perr *ParseError
	for {
		_, _, err := p.Next()
		if errors.Is(err, io.EOF) {
			t.Fatal("truncated array parsed cleanly")
		}
		if errors.As(err, &perr) {
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestArrayModeTrailingGarbageIsFatal(t *testing.T) {
	input := `[{"external_id":"a"}] oops`
	p := New(strings.NewReader(input), models.Cursor{})
	if _, _, err := p.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, _, err := p.Next()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestLinesModeBasic(t *testing.T) {
	input := `{"external_id":"u1","name":"a","time":"t"}

{"external_id":"u2","name":"b","time":"t"}
{"external_id":"u3","name":"c","time":"t"}`

	got, malformed := drain(t, input, models.Cursor{})
	if malformed != 0 {
		t.Fatalf("malformed = %d, want 0", malformed)
	}
	if want := []string{"u1", "u2", "u3"}; len(got) != 3 {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
	// The blank line counts toward the line cursor
	if got[0].cur.Line != 1 || got[1].cur.Line != 3 || got[2].cur.Line != 4 {
		t.Fatalf("cursors = %d,%d,%d, want 1,3,4", got[0].cur.Line, got[1].cur.Line, got[2].cur.Line)
	}
}

func TestLinesModeResume(t *testing.T) {
	input := "{\"external_id\":\"u1\"}\n\n{\"external_id\":\"u2\"}\n{\"external_id\":\"u3\"}\n"

	full, _ := drain(t, input, models.Cursor{})
	for i, p := range full {
		// Lines mode always re-reads from byte zero and skips
		resumed, _ := drain(t, input, p.cur)
		want := full[i+1:]
		if len(resumed) != len(want) {
			t.Fatalf("resume after line %d: got %d records, want %d", p.cur.Line, len(resumed), len(want))
		}
		for j := range want {
			if resumed[j].rec.ExternalID() != want[j].rec.ExternalID() {
				t.Errorf("resume after line %d: record %d = %q, want %q",
					p.cur.Line, j, resumed[j].rec.ExternalID(), want[j].rec.ExternalID())
			}
		}
	}
}

func TestLinesModeMalformedLine(t *testing.T) {
	input := "{\"external_id\":\"u1\"}\nnot json\n{\"external_id\":\"u2\"}\n"
	got, malformed := drain(t, input, models.Cursor{})
	if len(got) != 2 || malformed != 1 {
		t.Fatalf("got %d records, %d malformed; want 2 and 1", len(got), malformed)
	}
}

func TestLinesModeFinalLineWithoutNewline(t *testing.T) {
	input := "{\"external_id\":\"u1\"}\n{\"external_id\":\"u2\"}"
	got, _ := drain(t, input, models.Cursor{})
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
}

func TestEmptyStream(t *testing.T) {
	for _, input := range []string{"", "   \n\t  "} {
		got, _ := drain(t, input, models.Cursor{})
		if len(got) != 0 {
			t.Fatalf("input %q: got %d records, want 0", input, len(got))
		}
	}
}

func TestEmptyArray(t *testing.T) {
	got, _ := drain(t, "[]", models.Cursor{})
	if len(got) != 0 {
		t.Fatalf("got %d records, want 0", len(got))
	}
}

func TestBytesRead(t *testing.T) {
	input := `[{"external_id":"a"}]`
	p := New(strings.NewReader(input), models.Cursor{})
	for {
		if _, _, err := p.Next(); errors.Is(err, io.EOF) {
			break
		}
	}
	if p.BytesRead() != int64(len(input)) {
		t.Fatalf("bytes read = %d, want %d", p.BytesRead(), len(input))
	}
}
