package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BeginRun inserts a run row.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, kind, state, stamp, meeting_type, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.State, run.Stamp, run.MeetingType, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the terminal state of a run.
func (s *Store) FinishRun(ctx context.Context, id, state, errorMessage string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET state = ?, finished_at = ?, error_message = ? WHERE id = ?`,
		state, formatTime(time.Now()), nullableString(errorMessage), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %q not found", id)
	}
	return nil
}

// GetRun fetches a run by id; nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, kind, state, stamp, meeting_type, started_at, finished_at, error_message FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, kind, state, stamp, meeting_type, started_at, finished_at, error_message
         FROM runs ORDER BY started_at DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RecordArtifact stores a produced output file.
func (s *Store) RecordArtifact(ctx context.Context, a Artifact) (int64, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO artifacts (run_id, language, job_kind, path, size_bytes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Language, a.JobKind, a.Path, a.SizeBytes, formatTime(a.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert artifact: %w", err)
	}
	return res.LastInsertId()
}

// LatestArtifact returns the newest artifact recorded for lang; nil when none.
func (s *Store) LatestArtifact(ctx context.Context, lang string) (*Artifact, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+artifactColumns+` FROM artifacts WHERE language = ? ORDER BY id DESC LIMIT 1`, lang)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest artifact: %w", err)
	}
	return a, nil
}

// ListArtifacts returns the newest artifacts first.
func (s *Store) ListArtifacts(ctx context.Context, limit int) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+artifactColumns+` FROM artifacts ORDER BY id DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()
	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// RecordUpload stores an upload outcome.
func (s *Store) RecordUpload(ctx context.Context, u Upload) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO uploads (run_id, language, path, status, remote_id, error_message, bytes_sent, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.RunID, u.Language, u.Path, u.Status, nullableString(u.RemoteID), nullableString(u.ErrorMessage),
		u.BytesSent, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// ListUploads returns uploads for runID, or all uploads when runID is empty,
// newest first.
func (s *Store) ListUploads(ctx context.Context, runID string, limit int) ([]Upload, error) {
	query := `SELECT id, run_id, language, path, status, remote_id, error_message, bytes_sent, created_at FROM uploads`
	args := []any{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()
	var out []Upload
	for rows.Next() {
		var (
			u          Upload
			remoteID   sql.NullString
			errMessage sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&u.ID, &u.RunID, &u.Language, &u.Path, &u.Status, &remoteID, &errMessage, &u.BytesSent, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		u.RemoteID = remoteID.String
		u.ErrorMessage = errMessage.String
		u.CreatedAt, _ = parseTimeString(createdRaw)
		out = append(out, u)
	}
	return out, rows.Err()
}

const artifactColumns = "id, run_id, language, job_kind, path, size_bytes, created_at"

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		a          Artifact
		createdRaw string
	)
	if err := scanner.Scan(&a.ID, &a.RunID, &a.Language, &a.JobKind, &a.Path, &a.SizeBytes, &createdRaw); err != nil {
		return nil, err
	}
	a.CreatedAt, _ = parseTimeString(createdRaw)
	return &a, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		kind        string
		startedRaw  string
		finishedRaw sql.NullString
		errMessage  sql.NullString
	)
	if err := scanner.Scan(&run.ID, &kind, &run.State, &run.Stamp, &run.MeetingType, &startedRaw, &finishedRaw, &errMessage); err != nil {
		return nil, err
	}
	run.Kind = RunKind(kind)
	run.ErrorMessage = errMessage.String
	run.StartedAt, _ = parseTimeString(startedRaw)
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
