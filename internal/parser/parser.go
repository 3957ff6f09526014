// Package parser turns a byte stream holding either a single JSON array or
// newline-delimited JSON objects into a lazy sequence of records, tracking a
// resume cursor after every element. The array scanner is an explicit
// byte-level state machine so that the recorded offsets are exact: resuming
// from any recorded cursor reproduces the same partition of records as an
// uninterrupted parse.
package parser

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
)

// ErrMalformedRecord marks a single undecodable element. The element is
// consumed and the stream stays usable; callers count it and move on.
var ErrMalformedRecord = errors.New("malformed record")

// ParseError is a stream-level failure (truncated file, invalid top-level
// structure). It aborts the run; no continuation is scheduled.
type ParseError struct {
	Offset int64
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stream parse error at byte %d: %s", e.Offset, e.Msg)
}

const bufferSize = 1 << 20 // 1 MB, matches the chunk size the source reads in

// Parser produces records from a single pass over the stream. Not safe for
// concurrent use; the pipeline pulls from it on one goroutine only.
type Parser struct {
	br        *bufio.Reader
	mode      models.Mode
	started   bool
	done      bool
	offset    int64 // absolute byte offset in array mode (stream starts at the cursor)
	line      int64 // lines consumed in lines mode
	skipLines int64
	malformed int
	bytesRead int64
}

// New creates a parser over r. For a zero start cursor the mode is detected
// from the first significant byte. For a non-zero array cursor, r must
// already be positioned at that byte offset; for a lines cursor the parser
// discards the first start.Line lines itself.
func New(r io.Reader, start models.Cursor) *Parser {
	p := &Parser{
		br:     bufio.NewReaderSize(r, bufferSize),
		offset: start.ByteOffset,
	}
	if !start.IsZero() {
		p.mode = start.Mode
		p.started = true
		p.skipLines = start.Line
	}
	return p
}

// Next returns the next record and the cursor just past it. It returns
// io.EOF at clean end of stream, an ErrMalformedRecord-wrapped error for a
// single bad element (the cursor still advances past it), and *ParseError
// for stream-level corruption.
func (p *Parser) Next() (models.Record, models.Cursor, error) {
	if p.done {
		return nil, p.cursor(), io.EOF
	}
	if !p.started {
		if err := p.detectMode(); err != nil {
			return nil, p.cursor(), err
		}
		p.started = true
	}
	if p.mode == models.ModeLines && p.skipLines > 0 {
		if err := p.skip(); err != nil {
			return nil, p.cursor(), err
		}
	}

	if p.mode == models.ModeArray {
		return p.nextArrayElement()
	}
	return p.nextLine()
}

// MalformedCount returns the number of per-record parse failures so far
func (p *Parser) MalformedCount() int {
	return p.malformed
}

// BytesRead returns the bytes consumed from the stream by this parser
func (p *Parser) BytesRead() int64 {
	return p.bytesRead
}

func (p *Parser) cursor() models.Cursor {
	if p.mode == models.ModeLines {
		return models.Cursor{Mode: models.ModeLines, Line: p.line}
	}
	return models.Cursor{Mode: models.ModeArray, ByteOffset: p.offset}
}

// detectMode peeks past leading whitespace without consuming it, so that in
// lines mode leading blank lines still count toward the line cursor.
func (p *Parser) detectMode() error {
	for n := 1; ; n++ {
		buf, err := p.br.Peek(n)
		if len(buf) >= n {
			c := buf[n-1]
			if isSpace(c) {
				continue
			}
			if c == '[' {
				p.mode = models.ModeArray
				return p.consumeOpenBracket()
			}
			p.mode = models.ModeLines
			return nil
		}
		if errors.Is(err, io.EOF) {
			// Empty or whitespace-only file: a clean, zero-record stream
			p.mode = models.ModeLines
			p.done = true
			return nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			return &ParseError{Offset: p.offset, Msg: "no content within the first buffer"}
		}
		return &ParseError{Offset: p.offset, Msg: err.Error()}
	}
}

func (p *Parser) consumeOpenBracket() error {
	for {
		b, err := p.readByte()
		if err != nil {
			return &ParseError{Offset: p.offset, Msg: "stream ended before array opened"}
		}
		if b == '[' {
			return nil
		}
	}
}

func (p *Parser) nextArrayElement() (models.Record, models.Cursor, error) {
	for {
		b, err := p.readByte()
		if err != nil {
			// The closing bracket was never seen: truncated file
			return nil, p.cursor(), &ParseError{Offset: p.offset, Msg: "unexpected end of stream inside array"}
		}
		switch {
		case isSpace(b) || b == ',':
			continue
		case b == ']':
			if err := p.finishArray(); err != nil {
				return nil, p.cursor(), err
			}
			p.done = true
			return nil, p.cursor(), io.EOF
		default:
			raw, err := p.scanValue(b)
			if err != nil {
				return nil, p.cursor(), err
			}
			cur := p.cursor()
			var rec models.Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				p.malformed++
				return nil, cur, fmt.Errorf("%w: array element ending at byte %d: %v", ErrMalformedRecord, cur.ByteOffset, err)
			}
			return rec, cur, nil
		}
	}
}

// scanValue consumes one JSON value whose first byte is already read,
// returning its raw bytes. Offsets end up just past the value's last byte.
func (p *Parser) scanValue(first byte) ([]byte, error) {
	buf := []byte{first}
	depth := 0
	inStr := false
	esc := false

	switch first {
	case '{', '[':
		depth = 1
	case '"':
		inStr = true
	default:
		// Primitive: consume until a delimiter, peeked but not consumed
		for {
			nb, err := p.br.Peek(1)
			if err != nil {
				// EOF here means a truncated array; the element loop
				// reports it when it fails to find the closing bracket
				return buf, nil
			}
			c := nb[0]
			if c == ',' || c == ']' || c == '}' || isSpace(c) {
				return buf, nil
			}
			b, _ := p.readByte()
			buf = append(buf, b)
		}
	}

	for {
		b, err := p.readByte()
		if err != nil {
			return nil, &ParseError{Offset: p.offset, Msg: "unexpected end of stream inside value"}
		}
		buf = append(buf, b)
		if inStr {
			switch {
			case esc:
				esc = false
			case b == '\\':
				esc = true
			case b == '"':
				inStr = false
				if depth == 0 {
					return buf, nil
				}
			}
			continue
		}
		switch b {
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return buf, nil
			}
		}
	}
}

// finishArray consumes what follows the closing bracket; only whitespace is valid
func (p *Parser) finishArray() error {
	for {
		b, err := p.readByte()
		if err != nil {
			return nil
		}
		if !isSpace(b) {
			return &ParseError{Offset: p.offset, Msg: fmt.Sprintf("trailing data after array: %q", b)}
		}
	}
}

func (p *Parser) nextLine() (models.Record, models.Cursor, error) {
	for {
		raw, err := p.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.done = true
				return nil, p.cursor(), io.EOF
			}
			return nil, p.cursor(), &ParseError{Offset: p.bytesRead, Msg: err.Error()}
		}
		p.line++

		trimmed := trimSpace(raw)
		if len(trimmed) == 0 {
			// Blank lines are consumed and counted, never emitted
			continue
		}

		cur := p.cursor()
		var rec models.Record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			p.malformed++
			return nil, cur, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, cur.Line, err)
		}
		return rec, cur, nil
	}
}

// skip discards lines already consumed by a prior invocation
func (p *Parser) skip() error {
	for p.skipLines > 0 {
		if _, err := p.readLine(); err != nil {
			if errors.Is(err, io.EOF) {
				return &ParseError{Offset: p.bytesRead, Msg: fmt.Sprintf("stream ended %d lines before the resume cursor", p.skipLines)}
			}
			return &ParseError{Offset: p.bytesRead, Msg: err.Error()}
		}
		p.line++
		p.skipLines--
	}
	return nil
}

// readLine returns one line without its newline. io.EOF is returned only
// when no bytes remain; a final unterminated line is still delivered.
func (p *Parser) readLine() ([]byte, error) {
	raw, err := p.br.ReadBytes('\n')
	p.bytesRead += int64(len(raw))
	if err != nil {
		if errors.Is(err, io.EOF) && len(raw) > 0 {
			return raw, nil
		}
		return nil, err
	}
	return raw[:len(raw)-1], nil
}

func (p *Parser) readByte() (byte, error) {
	b, err := p.br.ReadByte()
	if err != nil {
		return 0, err
	}
	p.offset++
	p.bytesRead++
	return b, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}
