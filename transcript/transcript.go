package transcript

import (
	"context"
	"errors"

	"ewintr.nl/tubedigest/model"
	"golang.org/x/exp/slog"
)

var (
	// ErrNotFound means the remote worker has no job for the video.
	ErrNotFound = errors.New("job not found")
	// ErrUnavailable means the outcome of the call is unknown, usually a
	// timeout or connection failure. The caller should leave its ledger
	// untouched and try again on a later run.
	ErrUnavailable = errors.New("worker unavailable")
	// ErrNoTranscript means every strategy failed definitively. There is no
	// point in retrying within the same run.
	ErrNoTranscript = errors.New("no transcript available")
)

type JobState string

const (
	StatePending JobState = "pending"
	StateRunning JobState = "running"
	StateDone    JobState = "done"
	StateError   JobState = "error"
)

type SubmitResult struct {
	JobID     string
	State     JobState
	QueueSize int
	// Tentative is set when the submit request timed out. The job may well
	// have been queued anyway, so the caller records it as submitted.
	Tentative bool
}

type PollResult struct {
	State    JobState
	Text     string
	Language string
	Error    string
}

// JobClient talks to the remote transcription worker. Submit enqueues a job,
// Poll is non-blocking, re-invocation happens on a later run. Delete reclaims
// the remote artifact and treats already-gone as success.
type JobClient interface {
	Submit(ctx context.Context, videoID model.YoutubeVideoID, videoURL string) (SubmitResult, error)
	Poll(ctx context.Context, videoID model.YoutubeVideoID) (PollResult, error)
	Delete(ctx context.Context, videoID model.YoutubeVideoID) error
}

// Fetcher produces a transcript synchronously, used when no remote worker is
// configured.
type Fetcher interface {
	Fetch(ctx context.Context, videoID model.YoutubeVideoID) (model.TranscriptResult, error)
}

// Chain tries caption retrieval first and falls back to downloading the
// audio and running it through speech to text.
type Chain struct {
	captions *Captions
	audio    *Audio
	logger   *slog.Logger
}

func NewChain(captions *Captions, audio *Audio, logger *slog.Logger) *Chain {
	return &Chain{
		captions: captions,
		audio:    audio,
		logger:   logger,
	}
}

func (c *Chain) Fetch(ctx context.Context, videoID model.YoutubeVideoID) (model.TranscriptResult, error) {
	result, err := c.captions.Fetch(ctx, videoID)
	if err == nil {
		return result, nil
	}
	c.logger.Info("no captions, falling back to audio transcription",
		slog.String("video", string(videoID)), slog.String("error", err.Error()))

	result, err = c.audio.Fetch(ctx, videoID)
	if err == nil {
		return result, nil
	}
	c.logger.Info("audio transcription failed",
		slog.String("video", string(videoID)), slog.String("error", err.Error()))

	return model.TranscriptResult{}, ErrNoTranscript
}
