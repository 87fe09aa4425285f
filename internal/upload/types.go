package upload

import (
	"context"
	"fmt"
)

// Status is the terminal state of an upload.
type Status int

const (
	StatusCompleted Status = iota + 1
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports how an upload ended. RemoteID is set for Completed; Err is
// set for Failed.
type Outcome struct {
	Status    Status
	RemoteID  string
	Err       error
	BytesSent int64
	Total     int64
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusCompleted:
		return fmt.Sprintf("completed (%s)", o.RemoteID)
	case StatusFailed:
		return fmt.Sprintf("failed: %v", o.Err)
	default:
		return o.Status.String()
	}
}

// Metadata describes the remote video.
type Metadata struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
}

// Job is one file to upload.
type Job struct {
	Path     string
	Language string
	Metadata Metadata
}

// CancelToken is polled before each chunk.
type CancelToken interface {
	Cancelled() bool
}

// Progress is reported after each acknowledged chunk.
type Progress struct {
	Language string
	Sent     int64
	Total    int64
	Percent  float64
}

// ProgressFunc receives progress updates on the uploading goroutine.
type ProgressFunc func(Progress)

func cancelled(ctx context.Context, token CancelToken) bool {
	if token != nil && token.Cancelled() {
		return true
	}
	return ctx != nil && ctx.Err() != nil
}
