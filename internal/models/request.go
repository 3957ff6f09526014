package models

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// ImportRequest is the invocation payload: either derived from an S3 object
// notification (fresh import, zero cursor) or carried verbatim by a
// continuation invoke (resume from the recorded cursor).
type ImportRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Cursor Cursor `json:"cursor"`
}

// ParseImportRequest decodes a raw invocation payload. Continuation payloads
// are tried first; anything carrying S3 notification records is treated as a
// fresh import of the first referenced object.
func ParseImportRequest(raw json.RawMessage) (ImportRequest, error) {
	var req ImportRequest
	if err := json.Unmarshal(raw, &req); err == nil && req.Bucket != "" && req.Key != "" {
		return req, nil
	}

	var s3Event events.S3Event
	if err := json.Unmarshal(raw, &s3Event); err != nil || len(s3Event.Records) == 0 {
		return ImportRequest{}, fmt.Errorf("payload is neither an import request nor an S3 event")
	}

	rec := s3Event.Records[0]
	// Object keys arrive URL-encoded in S3 notifications
	key, err := url.QueryUnescape(rec.S3.Object.Key)
	if err != nil {
		return ImportRequest{}, fmt.Errorf("invalid S3 object key %q: %w", rec.S3.Object.Key, err)
	}

	return ImportRequest{
		Bucket: rec.S3.Bucket.Name,
		Key:    key,
	}, nil
}

// ImportResult is the handler's return value, mirroring what the run summary
// logs: per-invocation counts plus whether the file is done or handed off.
type ImportResult struct {
	ObjectsSent      int   `json:"objects_sent"`
	RecordsFailed    int   `json:"records_failed"`
	RecordsMalformed int   `json:"records_malformed"`
	RecordsDropped   int   `json:"records_dropped"`
	BytesRead        int64 `json:"bytes_read"`
	IsFinished       bool  `json:"is_finished"`
	Continued        bool  `json:"continued"`
}
