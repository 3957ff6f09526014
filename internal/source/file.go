package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileOpener reads input objects from the local filesystem, with the key
// resolved relative to a root directory. Used for tests and ad-hoc runs.
type FileOpener struct {
	Root string
}

func (o *FileOpener) Open(_ context.Context, loc Location, byteOffset int64) (io.ReadCloser, error) {
	f, err := os.Open(o.path(loc))
	if err != nil {
		return nil, err
	}
	if byteOffset > 0 {
		if _, err := f.Seek(byteOffset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("seeking to byte %d: %w", byteOffset, err)
		}
	}
	return f, nil
}

func (o *FileOpener) Size(_ context.Context, loc Location) (int64, error) {
	info, err := os.Stat(o.path(loc))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (o *FileOpener) path(loc Location) string {
	return filepath.Join(o.Root, loc.Bucket, loc.Key)
}
