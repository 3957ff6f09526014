// Package source abstracts where input files are read from. The pipeline
// only needs a stream optionally starting at a byte offset, plus the total
// object size to decide whether a file is fully consumed.
package source

import (
	"context"
	"io"
)

// Location identifies one input object
type Location struct {
	Bucket string
	Key    string
}

// Opener provides byte streams over input objects
type Opener interface {
	// Open returns a stream over the object starting at byteOffset
	Open(ctx context.Context, loc Location, byteOffset int64) (io.ReadCloser, error)
	// Size returns the total object size in bytes
	Size(ctx context.Context, loc Location) (int64, error)
}
