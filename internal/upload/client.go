package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"sermonmux/internal/logging"
	"sermonmux/internal/services"
)

const (
	// ChunkQuantum is the granularity the protocol requires for every chunk
	// except the last.
	ChunkQuantum = 256 * 1024
	// DefaultChunkSize is 8 MiB.
	DefaultChunkSize = 32 * ChunkQuantum

	defaultBaseURL       = "https://www.googleapis.com"
	defaultCategoryID    = "22"
	defaultPrivacyStatus = "private"
	uploadPath           = "/upload/youtube/v3/videos"
	maxErrorBody         = 2048
)

// Options configures a Client.
type Options struct {
	BaseURL       string
	ChunkSize     int64
	CategoryID    string
	PrivacyStatus string
	Progress      ProgressFunc
}

// Client performs resumable uploads with an authenticated HTTP client.
type Client struct {
	http   *http.Client
	opts   Options
	logger *slog.Logger
}

// NewClient returns a client. httpClient must attach credentials; the
// credentials package supplies one.
func NewClient(httpClient *http.Client, opts Options, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if rem := opts.ChunkSize % ChunkQuantum; rem != 0 {
		opts.ChunkSize += ChunkQuantum - rem
	}
	if opts.CategoryID == "" {
		opts.CategoryID = defaultCategoryID
	}
	if opts.PrivacyStatus == "" {
		opts.PrivacyStatus = defaultPrivacyStatus
	}
	return &Client{
		http:   httpClient,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "upload"),
	}
}

// ChunkSize reports the effective chunk size.
func (c *Client) ChunkSize() int64 {
	return c.opts.ChunkSize
}

// Upload transfers job.Path and returns the terminal outcome. It never
// retries. Cancellation is honoured between requests: a request already on
// the wire completes, and a request error observed after cancellation is
// reported as Cancelled.
func (c *Client) Upload(ctx context.Context, job Job, token CancelToken) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	wire := context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, c.logger).With(logging.String("path", job.Path))

	file, err := os.Open(job.Path)
	if err != nil {
		return c.fail(logger, Outcome{}, services.Wrap(services.ErrIO, "upload", "open file", job.Path, err))
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return c.fail(logger, Outcome{}, services.Wrap(services.ErrIO, "upload", "stat file", job.Path, err))
	}
	total := info.Size()
	if total == 0 {
		return c.fail(logger, Outcome{}, services.Wrap(services.ErrIO, "upload", "stat file", "file is empty", nil))
	}
	outcome := Outcome{Total: total}

	if cancelled(ctx, token) {
		return c.cancel(logger, outcome)
	}

	session, err := c.initiate(wire, job, total)
	if err != nil {
		if cancelled(ctx, token) {
			return c.cancel(logger, outcome)
		}
		return c.fail(logger, outcome, err)
	}
	logger.Info("upload session opened",
		logging.String(logging.FieldEventType, "upload_session_opened"),
		logging.String("title", job.Metadata.Title),
		logging.Int64("file_size_bytes", total),
	)
	logger.Debug("upload session", logging.String("session_uri", session), logging.Int64("chunk_size", c.opts.ChunkSize))

	sampler := logging.NewProgressSampler(10)
	var offset int64
	for {
		if cancelled(ctx, token) {
			outcome.BytesSent = offset
			return c.cancel(logger, outcome)
		}
		end := offset + c.opts.ChunkSize
		if end > total {
			end = total
		}
		ack, err := c.putChunk(wire, session, file, offset, end, total)
		if err != nil {
			outcome.BytesSent = offset
			if cancelled(ctx, token) {
				return c.cancel(logger, outcome)
			}
			return c.fail(logger, outcome, err)
		}
		if ack.done {
			outcome.Status = StatusCompleted
			outcome.RemoteID = ack.remoteID
			outcome.BytesSent = total
			c.report(logger, sampler, job.Language, total, total)
			logger.Info("upload complete",
				logging.String(logging.FieldEventType, "upload_complete"),
				logging.String("remote_id", ack.remoteID),
				logging.Int64("file_size_bytes", total),
			)
			return outcome
		}
		if ack.next <= offset {
			outcome.BytesSent = offset
			return c.fail(logger, outcome, services.Wrap(services.ErrTransport, "upload", "chunk",
				fmt.Sprintf("server acknowledged no progress at offset %d", offset), nil))
		}
		offset = ack.next
		c.report(logger, sampler, job.Language, offset, total)
	}
}

func (c *Client) report(logger *slog.Logger, sampler *logging.ProgressSampler, lang string, sent, total int64) {
	percent := float64(sent) / float64(total) * 100
	if c.opts.Progress != nil {
		c.opts.Progress(Progress{Language: lang, Sent: sent, Total: total, Percent: percent})
	}
	if sampler.ShouldLog(percent, lang) {
		logger.Info("upload progress",
			logging.String(logging.FieldEventType, "upload_progress"),
			logging.Float64(logging.FieldProgressPercent, percent),
			logging.Int64("uploaded_bytes", sent),
		)
	}
}

func (c *Client) fail(logger *slog.Logger, outcome Outcome, err error) Outcome {
	outcome.Status = StatusFailed
	outcome.Err = err
	logging.WarnWithContext(logger, "upload failed", "upload_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorClass, services.Classify(err)),
		logging.Int64("uploaded_bytes", outcome.BytesSent),
		logging.String(logging.FieldErrorHint, "check credentials and network, then run upload-existing"),
		logging.String(logging.FieldImpact, "video was not published for this language"),
	)
	return outcome
}

func (c *Client) cancel(logger *slog.Logger, outcome Outcome) Outcome {
	outcome.Status = StatusCancelled
	logger.Info("upload cancelled",
		logging.String(logging.FieldEventType, "upload_cancelled"),
		logging.Int64("uploaded_bytes", outcome.BytesSent),
	)
	return outcome
}

type videoResource struct {
	Snippet snippet `json:"snippet"`
	Status  status  `json:"status"`
}

type snippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId"`
}

type status struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

func (c *Client) initiate(ctx context.Context, job Job, total int64) (string, error) {
	meta := job.Metadata
	resource := videoResource{
		Snippet: snippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryID:  firstNonEmpty(meta.CategoryID, c.opts.CategoryID),
		},
		Status: status{
			PrivacyStatus: firstNonEmpty(meta.PrivacyStatus, c.opts.PrivacyStatus),
		},
	}
	body, err := json.Marshal(resource)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "upload", "encode metadata", "", err)
	}

	endpoint := c.opts.BaseURL + uploadPath + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "upload", "build initiate request", "", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(total, 10))
	req.Header.Set("X-Upload-Content-Type", "video/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "upload", "initiate", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", services.Wrap(services.ErrTransport, "upload", "initiate", httpFailure(resp), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	location := strings.TrimSpace(resp.Header.Get("Location"))
	if location == "" {
		return "", services.Wrap(services.ErrTransport, "upload", "initiate", "response carried no session Location", nil)
	}
	return location, nil
}

type chunkAck struct {
	next     int64
	done     bool
	remoteID string
}

func (c *Client) putChunk(ctx context.Context, session string, file io.ReaderAt, start, end, total int64) (chunkAck, error) {
	length := end - start
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session, io.NewSectionReader(file, start, length))
	if err != nil {
		return chunkAck{}, services.Wrap(services.ErrTransport, "upload", "build chunk request", "", err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", "video/*")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))

	resp, err := c.http.Do(req)
	if err != nil {
		return chunkAck{}, services.Wrap(services.ErrTransport, "upload", "chunk", fmt.Sprintf("offset %d", start), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPermanentRedirect:
		_, _ = io.Copy(io.Discard, resp.Body)
		next, err := parseRangeHeader(resp.Header.Get("Range"))
		if err != nil {
			return chunkAck{}, services.Wrap(services.ErrTransport, "upload", "chunk", "bad Range header", err)
		}
		return chunkAck{next: next}, nil
	case http.StatusOK, http.StatusCreated:
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return chunkAck{}, services.Wrap(services.ErrTransport, "upload", "decode response", "", err)
		}
		if strings.TrimSpace(payload.ID) == "" {
			return chunkAck{}, services.Wrap(services.ErrTransport, "upload", "decode response", "response carried no video id", nil)
		}
		return chunkAck{done: true, remoteID: payload.ID}, nil
	default:
		return chunkAck{}, services.Wrap(services.ErrTransport, "upload", "chunk", httpFailure(resp), nil)
	}
}

// parseRangeHeader returns the next offset from a "bytes=0-N" header. A
// missing header means the server holds no bytes yet.
func parseRangeHeader(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	rangeText, ok := strings.CutPrefix(value, "bytes=")
	if !ok {
		return 0, fmt.Errorf("unexpected range unit in %q", value)
	}
	startText, endText, ok := strings.Cut(rangeText, "-")
	if !ok || strings.TrimSpace(startText) != "0" {
		return 0, fmt.Errorf("unexpected range %q", value)
	}
	last, err := strconv.ParseInt(strings.TrimSpace(endText), 10, 64)
	if err != nil || last < 0 {
		return 0, fmt.Errorf("unexpected range %q", value)
	}
	return last + 1, nil
}

func httpFailure(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	detail := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		detail = apiErr.Error.Message
	}
	if detail == "" {
		return fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, detail)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// IsTransport reports whether outcome failed on the wire rather than locally.
func IsTransport(outcome Outcome) bool {
	return outcome.Status == StatusFailed && errors.Is(outcome.Err, services.ErrTransport)
}
