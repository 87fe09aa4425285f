package artifacts

import "time"

// RunKind distinguishes processing runs from upload-existing runs.
type RunKind string

const (
	RunProcess        RunKind = "process"
	RunUploadExisting RunKind = "upload_existing"
)

// Run is a registry row for one orchestrated run.
type Run struct {
	ID           string
	Kind         RunKind
	State        string
	Stamp        string
	MeetingType  string
	StartedAt    time.Time
	FinishedAt   *time.Time
	ErrorMessage string
}

// Artifact is a produced output file.
type Artifact struct {
	ID        int64
	RunID     string
	Language  string
	JobKind   string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}

// Upload is the recorded outcome of one upload attempt.
type Upload struct {
	ID           int64
	RunID        string
	Language     string
	Path         string
	Status       string
	RemoteID     string
	ErrorMessage string
	BytesSent    int64
	CreatedAt    time.Time
}
