package transcript

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"ewintr.nl/tubedigest/model"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/exp/slog"
)

const defaultMaxWait = 30 * time.Minute

// Audio downloads a video's audio with yt-dlp and runs it through the
// Whisper API. The whole operation runs under a hard wall-clock bound, a
// stuck transcription never blocks the run indefinitely.
type Audio struct {
	client    *openai.Client
	ytdlpPath string
	maxWait   time.Duration
	logger    *slog.Logger
}

func NewAudio(client *openai.Client, ytdlpPath string, logger *slog.Logger) *Audio {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}

	return &Audio{
		client:    client,
		ytdlpPath: ytdlpPath,
		maxWait:   defaultMaxWait,
		logger:    logger,
	}
}

func (a *Audio) Fetch(ctx context.Context, videoID model.YoutubeVideoID) (model.TranscriptResult, error) {
	dir, err := os.MkdirTemp("", "tubedigest-audio-")
	if err != nil {
		return model.TranscriptResult{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	// downloaded and transcoded files go on every exit path
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithTimeout(ctx, a.maxWait)
	defer cancel()

	audioPath, err := a.download(ctx, videoID, dir)
	if err != nil {
		return model.TranscriptResult{}, err
	}

	return a.transcribe(ctx, audioPath)
}

func (a *Audio) download(ctx context.Context, videoID model.YoutubeVideoID, dir string) (string, error) {
	videoURL := "https://www.youtube.com/watch?v=" + string(videoID)
	outFile := filepath.Join(dir, "audio.mp3")

	cmd := exec.CommandContext(ctx, a.ytdlpPath,
		"--format", "bestaudio",
		"--extract-audio",
		"--audio-format", "mp3",
		"--output", outFile,
		videoURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to download audio: %w: %s", err, string(out))
	}

	if _, err := os.Stat(outFile); err != nil {
		return "", fmt.Errorf("audio file missing after download: %w", err)
	}

	return outFile, nil
}

// transcribe runs the speech engine in the background and waits on a
// completion channel, bounded by the context deadline.
func (a *Audio) transcribe(ctx context.Context, audioPath string) (model.TranscriptResult, error) {
	type outcome struct {
		resp openai.AudioResponse
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    openai.Whisper1,
			FilePath: audioPath,
		})
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return model.TranscriptResult{}, fmt.Errorf("failed to transcribe audio: %w", o.err)
		}
		a.logger.Info("audio transcribed", slog.Int("length", len(o.resp.Text)))

		return model.TranscriptResult{
			Text:         o.resp.Text,
			Language:     "auto",
			LanguageCode: "auto",
		}, nil
	case <-ctx.Done():
		return model.TranscriptResult{}, fmt.Errorf("transcription did not finish in time: %w", ctx.Err())
	}
}
