package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ewintr.nl/tubedigest/model"
	"golang.org/x/exp/slog"
)

const defaultRemoteTimeout = 30 * time.Second

// Remote is the client for the delegated transcription worker. Submitting is
// fire and forget, the result is picked up by polling on a later run.
type Remote struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewRemote(baseURL, apiKey string, logger *slog.Logger) *Remote {
	return &Remote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultRemoteTimeout},
		logger:  logger,
	}
}

// Submit enqueues a transcription job for the video. A request timeout is a
// tentative success: the worker may have queued the job even though the
// response never arrived, so losing track of it would risk a duplicate.
func (r *Remote) Submit(ctx context.Context, videoID model.YoutubeVideoID, videoURL string) (SubmitResult, error) {
	body, err := json.Marshal(map[string]string{"url": videoURL})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/transcribe", bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to build submit request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			r.logger.Info("submit timed out, assuming the job was queued",
				slog.String("video", string(videoID)))
			return SubmitResult{State: StatePending, Tentative: true}, nil
		}
		return SubmitResult{}, fmt.Errorf("failed to submit job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return SubmitResult{}, fmt.Errorf("submit returned status %d: %s", resp.StatusCode, readError(resp.Body))
	}

	var payload struct {
		JobID     string `json:"job_id"`
		State     string `json:"state"`
		QueueSize int    `json:"queue_size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return SubmitResult{}, fmt.Errorf("failed to parse submit response: %w", err)
	}

	return SubmitResult{
		JobID:     payload.JobID,
		State:     JobState(payload.State),
		QueueSize: payload.QueueSize,
	}, nil
}

// Poll asks the worker for the current job state. A timeout or connection
// failure yields ErrUnavailable so the caller leaves the job untouched.
func (r *Remote) Poll(ctx context.Context, videoID model.YoutubeVideoID) (PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.jobURL(videoID), nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to build poll request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return PollResult{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return PollResult{}, fmt.Errorf("poll returned status %d: %s", resp.StatusCode, readError(resp.Body))
	}

	var payload struct {
		State    string `json:"state"`
		Text     string `json:"text"`
		Language string `json:"language"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return PollResult{}, fmt.Errorf("failed to parse poll response: %w", err)
	}

	return PollResult{
		State:    JobState(payload.State),
		Text:     payload.Text,
		Language: payload.Language,
		Error:    payload.Error,
	}, nil
}

// Delete removes the transcript artifact on the worker. Cleanup is best
// effort and idempotent, a job that is already gone counts as deleted.
func (r *Remote) Delete(ctx context.Context, videoID model.YoutubeVideoID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.jobURL(videoID), nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("delete returned status %d: %s", resp.StatusCode, readError(resp.Body))
	}
}

func (r *Remote) jobURL(videoID model.YoutubeVideoID) string {
	return r.baseURL + "/transcribe/by-video/" + url.PathEscape(string(videoID))
}

func (r *Remote) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}

	return false
}

func readError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 512))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}

	return strings.TrimSpace(string(data))
}
