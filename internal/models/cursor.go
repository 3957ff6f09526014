package models

// Mode identifies the input file encoding
type Mode string

const (
	// ModeArray is a single top-level JSON array of record objects
	ModeArray Mode = "array"
	// ModeLines is newline-delimited JSON, one record object per line
	ModeLines Mode = "lines"
)

// Cursor is a resumable position in the source stream. In array mode the
// position is a byte offset just past the last consumed element; in lines
// mode it is the count of lines consumed. The zero value means start of file
// with the mode not yet detected.
type Cursor struct {
	Mode       Mode  `json:"mode,omitempty"`
	ByteOffset int64 `json:"byte_offset,omitempty"`
	Line       int64 `json:"line,omitempty"`
}

// IsZero reports whether the cursor points at the start of the file
func (c Cursor) IsZero() bool {
	return c.Mode == "" && c.ByteOffset == 0 && c.Line == 0
}
