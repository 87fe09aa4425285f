package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// RunStatus describes the current or last run.
type RunStatus struct {
	State           string            `json:"state"`
	RunID           string            `json:"runId,omitempty"`
	Kind            string            `json:"kind,omitempty"`
	StartedAt       string            `json:"startedAt,omitempty"`
	FinishedAt      string            `json:"finishedAt,omitempty"`
	CurrentLanguage string            `json:"currentLanguage,omitempty"`
	Stage           string            `json:"stage,omitempty"`
	Languages       []string          `json:"languages"`
	Produced        int               `json:"produced"`
	Uploaded        int               `json:"uploaded"`
	Failed          int               `json:"failed"`
	CancelRequested bool              `json:"cancelRequested"`
	LastError       string            `json:"lastError,omitempty"`
	ErrorClass      string            `json:"errorClass,omitempty"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
	Progress        *UploadProgress   `json:"progress,omitempty"`
}

// UploadProgress reports bytes acknowledged for the file being uploaded.
type UploadProgress struct {
	Language  string  `json:"language"`
	BytesSent int64   `json:"bytesSent"`
	Total     int64   `json:"total"`
	Percent   float64 `json:"percent"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates serve process information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	ConfigPath   string             `json:"configPath,omitempty"`
	StateDBPath  string             `json:"stateDbPath,omitempty"`
	LockFilePath string             `json:"lockFilePath"`
	OutputDir    string             `json:"outputDir"`
	Languages    []string           `json:"languages"`
	Run          RunStatus          `json:"run"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// RunStartResponse acknowledges an accepted run.
type RunStartResponse struct {
	RunID string `json:"runId"`
	Kind  string `json:"kind"`
}

// CancelResponse reports whether a run was active when cancel arrived.
type CancelResponse struct {
	Cancelled bool      `json:"cancelled"`
	Run       RunStatus `json:"run"`
}

// Run is one registry run row.
type Run struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	State        string `json:"state"`
	Stamp        string `json:"stamp"`
	MeetingType  string `json:"meetingType"`
	StartedAt    string `json:"startedAt,omitempty"`
	FinishedAt   string `json:"finishedAt,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Artifact is one produced file.
type Artifact struct {
	ID        int64  `json:"id"`
	RunID     string `json:"runId"`
	Language  string `json:"language"`
	JobKind   string `json:"jobKind"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	Size      string `json:"size"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Upload is one upload attempt.
type Upload struct {
	ID           int64  `json:"id"`
	RunID        string `json:"runId"`
	Language     string `json:"language"`
	Path         string `json:"path"`
	Status       string `json:"status"`
	RemoteID     string `json:"remoteId,omitempty"`
	WatchURL     string `json:"watchUrl,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	BytesSent    int64  `json:"bytesSent"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// ArtifactsResponse lists registry contents, newest first.
type ArtifactsResponse struct {
	Runs      []Run      `json:"runs"`
	Artifacts []Artifact `json:"artifacts"`
	Uploads   []Upload   `json:"uploads"`
}

// DetailField mirrors a console bullet line.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogEvent is one structured log line.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp string            `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	RunID     string            `json:"runId,omitempty"`
	Language  string            `json:"language,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   []DetailField     `json:"details,omitempty"`
}

// LogStreamResponse is a page of log events and the cursor for the next poll.
// Dropped counts events evicted from the buffer before the caller's cursor
// reached them.
type LogStreamResponse struct {
	Events  []LogEvent `json:"events"`
	Next    uint64     `json:"next"`
	Dropped uint64     `json:"dropped,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error      string `json:"error"`
	ErrorClass string `json:"errorClass,omitempty"`
}
