package fetcher

import (
	"context"
	"fmt"
	"strings"

	"ewintr.nl/tubedigest/model"
	"golang.org/x/exp/slog"
	"miniflux.app/client"
)

type MinifluxInfo struct {
	Endpoint string
	ApiKey   string
}

// Miniflux lists uploads through a feed reader instead of the YouTube API.
// Every monitored channel maps to one miniflux feed, unread entries are the
// channel's new uploads.
type Miniflux struct {
	client *client.Client
	logger *slog.Logger
}

func NewMiniflux(mflInfo MinifluxInfo, logger *slog.Logger) *Miniflux {
	return &Miniflux{
		client: client.New(mflInfo.Endpoint, mflInfo.ApiKey),
		logger: logger,
	}
}

func (m *Miniflux) RecentUploads(ctx context.Context, channel model.Channel) ([]Upload, error) {
	if channel.FeedID == 0 {
		return nil, fmt.Errorf("channel %s has no feed id", channel.ID)
	}

	result, err := m.client.Entries(&client.Filter{
		Status: "unread",
		FeedID: channel.FeedID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unread entries: %w", err)
	}

	uploads := make([]Upload, 0, len(result.Entries))
	for _, entry := range result.Entries {
		videoID := strings.TrimPrefix(entry.URL, "https://www.youtube.com/watch?v=")
		if videoID == entry.URL {
			// not a watch url, leave it unread
			continue
		}
		uploads = append(uploads, Upload{
			VideoID:     model.YoutubeVideoID(videoID),
			Title:       entry.Title,
			Description: entry.Content,
			PublishedAt: entry.Date.UTC(),
			EntryID:     entry.ID,
		})
	}

	return uploads, nil
}

// MarkRead is called by the monitor once an upload made it into a ledger.
// Entries stay unread until then, so a failed submit or notification gets
// the video listed again on the next run.
func (m *Miniflux) MarkRead(entryID int64) error {
	if err := m.client.UpdateEntries([]int64{entryID}, "read"); err != nil {
		return fmt.Errorf("failed to mark entry as read: %w", err)
	}

	return nil
}
