package monitor

import (
	"context"
	"errors"
	"sort"
	"time"

	"ewintr.nl/tubedigest/fetcher"
	"ewintr.nl/tubedigest/model"
	"ewintr.nl/tubedigest/notify"
	"ewintr.nl/tubedigest/storage"
	"ewintr.nl/tubedigest/summarize"
	"ewintr.nl/tubedigest/transcript"
	"golang.org/x/exp/slog"
)

// Monitor runs one reconciliation pass: resolve pending transcription jobs,
// discover new uploads, enqueue or process them, persist the ledgers. It is
// the single writer of both ledgers, one invocation at a time.
type Monitor struct {
	channels   []model.Channel
	store      storage.StateRepository
	lister     fetcher.Lister
	jobs       transcript.JobClient
	transcript transcript.Fetcher
	summarizer summarize.Summarizer
	notifier   notify.Notifier
	archive    storage.SummaryArchiver
	lookback   time.Duration
	maxJobAge  time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewMonitor wires a monitor for delegated mode when jobs is non-nil, or for
// the synchronous fallback chain otherwise. archive may be nil.
func NewMonitor(channels []model.Channel, store storage.StateRepository, lister fetcher.Lister,
	jobs transcript.JobClient, chain transcript.Fetcher, summarizer summarize.Summarizer,
	notifier notify.Notifier, archive storage.SummaryArchiver,
	lookback, maxJobAge time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		channels:   channels,
		store:      store,
		lister:     lister,
		jobs:       jobs,
		transcript: chain,
		summarizer: summarizer,
		notifier:   notifier,
		archive:    archive,
		lookback:   lookback,
		maxJobAge:  maxJobAge,
		now:        time.Now,
		logger:     logger,
	}
}

// Run performs one invocation. Pending jobs are resolved before discovery so
// an id can never look new and pending at the same time. The ledgers are
// persisted once, at the end.
func (m *Monitor) Run(ctx context.Context) error {
	seen, err := m.store.LoadSeen()
	if err != nil {
		return err
	}
	pending, err := m.store.LoadPending()
	if err != nil {
		return err
	}

	if m.jobs != nil {
		m.resolvePending(ctx, seen, pending)
	}

	for _, channel := range m.channels {
		m.checkChannel(ctx, channel, seen, pending)
	}

	if err := m.store.SaveSeen(seen); err != nil {
		return err
	}

	return m.store.SavePending(pending)
}

// resolvePending polls every pending job once. Only a completed job that was
// summarized and mailed leaves the ledger, everything ambiguous stays for the
// next run.
func (m *Monitor) resolvePending(ctx context.Context, seen model.SeenSet, pending model.PendingSet) {
	// iterate over a snapshot, the ledger is mutated along the way
	ids := make([]model.YoutubeVideoID, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		m.resolveJob(ctx, id, pending[id], seen, pending)
	}
}

func (m *Monitor) resolveJob(ctx context.Context, id model.YoutubeVideoID, job model.PendingJob,
	seen model.SeenSet, pending model.PendingSet) {
	logger := m.logger.With(slog.String("video", string(id)))

	if age := m.now().Sub(job.SubmittedAt); age > m.maxJobAge {
		logger.Warn("dropping pending job, too old", slog.Duration("age", age))
		delete(pending, id)
		return
	}

	status, err := m.jobs.Poll(ctx, id)
	switch {
	case errors.Is(err, transcript.ErrNotFound):
		// the worker lost the job, submit it again
		logger.Warn("pending job unknown to worker, resubmitting")
		if _, err := m.jobs.Submit(ctx, id, job.VideoURL); err != nil {
			logger.Error("failed to resubmit job", err)
			return
		}
		job.SubmittedAt = m.now()
		pending[id] = job
		return
	case err != nil:
		logger.Info("job status unknown, leaving it for the next run", slog.String("error", err.Error()))
		return
	}

	switch status.State {
	case transcript.StateDone:
		if status.Text == "" {
			logger.Warn("job finished with empty transcript, leaving it pending")
			return
		}
		m.finishJob(ctx, id, job, status, seen, pending, logger)
	case transcript.StateError:
		logger.Warn("job failed remotely, will retry until it ages out", slog.String("error", status.Error))
	default:
		logger.Info("job not done yet", slog.String("state", string(status.State)))
	}
}

// finishJob summarizes and mails a completed job. The ledger entry is only
// removed after the mail went out, a failed notification means the whole
// sequence runs again next invocation.
func (m *Monitor) finishJob(ctx context.Context, id model.YoutubeVideoID, job model.PendingJob,
	status transcript.PollResult, seen model.SeenSet, pending model.PendingSet, logger *slog.Logger) {
	video := model.Video{
		YoutubeID:   id,
		ChannelID:   m.channelID(job.ChannelName),
		ChannelName: job.ChannelName,
		Title:       job.VideoTitle,
		Description: job.Description,
		PublishedAt: job.PublishedAt,
	}
	result := model.TranscriptResult{
		Text:     status.Text,
		Language: status.Language,
	}

	if !m.deliver(ctx, video, result, logger) {
		return
	}

	// remote cleanup is best effort, it never blocks ledger removal
	if err := m.jobs.Delete(ctx, id); err != nil {
		logger.Info("failed to delete remote artifact", slog.String("error", err.Error()))
	}

	delete(pending, id)
	seen.Add(video.ChannelID, id)
}

// deliver summarizes the transcript and mails it. Summarization failure
// degrades to the placeholder text, only a failed notification reports false.
func (m *Monitor) deliver(ctx context.Context, video model.Video, result model.TranscriptResult, logger *slog.Logger) bool {
	summary, err := m.summarizer.Summarize(ctx, video.Title, result)
	if err != nil {
		logger.Error("failed to generate summary", err)
		summary = summarize.Placeholder
	}

	msgID, err := m.notifier.NewVideo(ctx, video.ChannelName, video, summary)
	if err != nil {
		logger.Error("failed to send notification", err)
		return false
	}
	logger.Info("summary mailed", slog.String("message", msgID))

	if m.archive != nil {
		if err := m.archive.SaveSummary(ctx, video, summary); err != nil {
			logger.Info("failed to archive summary", slog.String("error", err.Error()))
		}
	}

	return true
}

func (m *Monitor) checkChannel(ctx context.Context, channel model.Channel, seen model.SeenSet, pending model.PendingSet) {
	logger := m.logger.With(slog.String("channel", string(channel.ID)))

	uploads, err := m.lister.RecentUploads(ctx, channel)
	if err != nil {
		logger.Error("failed to list uploads", err)
		return
	}

	cutoff := m.now().Add(-m.lookback)
	for _, upload := range uploads {
		if !upload.PublishedAt.After(cutoff) {
			continue
		}
		if seen.Has(channel.ID, upload.VideoID) {
			continue
		}
		if _, ok := pending[upload.VideoID]; ok {
			continue
		}

		video := model.Video{
			YoutubeID:   upload.VideoID,
			ChannelID:   channel.ID,
			ChannelName: channel.Name,
			Title:       upload.Title,
			Description: upload.Description,
			PublishedAt: upload.PublishedAt,
		}
		logger.Info("found new video", slog.String("video", string(video.YoutubeID)), slog.String("title", video.Title))

		if m.jobs != nil {
			if m.submitJob(ctx, video, pending, logger) {
				m.markRead(upload, logger)
			}
			continue
		}
		if m.processDirect(ctx, video, seen, logger) {
			m.markRead(upload, logger)
		}
	}
}

// markRead acknowledges the upload at the source, for listers that track
// read state. It runs only after the video made it into a ledger, an
// unacknowledged entry is listed again on the next run.
func (m *Monitor) markRead(upload fetcher.Upload, logger *slog.Logger) {
	marker, ok := m.lister.(fetcher.EntryMarker)
	if !ok || upload.EntryID == 0 {
		return
	}
	if err := marker.MarkRead(upload.EntryID); err != nil {
		logger.Error("failed to mark entry as read", err)
	}
}

// submitJob enqueues a transcription job and reports whether the video was
// recorded as pending. On failure the video stays out of both ledgers,
// rediscovery on the next run is the retry mechanism.
func (m *Monitor) submitJob(ctx context.Context, video model.Video, pending model.PendingSet, logger *slog.Logger) bool {
	result, err := m.jobs.Submit(ctx, video.YoutubeID, video.URL())
	if err != nil {
		logger.Error("failed to submit job", err, slog.String("video", string(video.YoutubeID)))
		return false
	}
	if result.Tentative {
		logger.Warn("submit timed out, recording job anyway", slog.String("video", string(video.YoutubeID)))
	} else {
		logger.Info("job submitted", slog.String("video", string(video.YoutubeID)),
			slog.String("job", result.JobID), slog.Int("queue", result.QueueSize))
	}

	pending[video.YoutubeID] = model.PendingJob{
		VideoURL:    video.URL(),
		VideoTitle:  video.Title,
		ChannelName: video.ChannelName,
		PublishedAt: video.PublishedAt,
		Description: video.Description,
		SubmittedAt: m.now(),
	}

	return true
}

// processDirect handles a video synchronously with the fallback chain and
// reports whether it was marked seen. When no strategy produces a transcript
// the subscribers still get a placeholder mail, the video is not silently
// skipped.
func (m *Monitor) processDirect(ctx context.Context, video model.Video, seen model.SeenSet, logger *slog.Logger) bool {
	result, err := m.transcript.Fetch(ctx, video.YoutubeID)
	if err != nil {
		logger.Info("no transcript for video", slog.String("video", string(video.YoutubeID)),
			slog.String("error", err.Error()))
		result = model.TranscriptResult{}
	}

	if result.Text == "" {
		msgID, err := m.notifier.NewVideo(ctx, video.ChannelName, video, summarize.Placeholder)
		if err != nil {
			logger.Error("failed to send notification", err)
			return false
		}
		logger.Info("placeholder mailed", slog.String("message", msgID))
		seen.Add(video.ChannelID, video.YoutubeID)
		return true
	}

	if !m.deliver(ctx, video, result, logger) {
		return false
	}
	seen.Add(video.ChannelID, video.YoutubeID)

	return true
}

func (m *Monitor) channelID(name string) model.YoutubeChannelID {
	for _, channel := range m.channels {
		if channel.Name == name {
			return channel.ID
		}
	}

	// fall back to the name, which at least keeps the idempotence guarantee
	return model.YoutubeChannelID(name)
}
