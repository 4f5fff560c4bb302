package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ewintr.nl/tubedigest/model"
	"golang.org/x/exp/slog"
	"google.golang.org/api/youtube/v3"
)

const (
	uploadPageSize   = 5
	privacyBatchSize = 50
)

// Youtube lists recent uploads through the YouTube Data API. It resolves the
// channel's upload playlist, takes the newest page and drops everything that
// is not publicly visible.
type Youtube struct {
	client *youtube.Service
	logger *slog.Logger
}

func NewYoutube(client *youtube.Service, logger *slog.Logger) *Youtube {
	return &Youtube{
		client: client,
		logger: logger,
	}
}

func (y *Youtube) RecentUploads(ctx context.Context, channel model.Channel) ([]Upload, error) {
	channelResp, err := y.client.Channels.
		List([]string{"contentDetails"}).
		Id(string(channel.ID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel: %w", err)
	}
	if len(channelResp.Items) == 0 {
		return nil, fmt.Errorf("channel %s not found", channel.ID)
	}
	playlistID := channelResp.Items[0].ContentDetails.RelatedPlaylists.Uploads

	playlistResp, err := y.client.PlaylistItems.
		List([]string{"snippet", "contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(uploadPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uploads: %w", err)
	}

	ids := make([]model.YoutubeVideoID, 0, len(playlistResp.Items))
	for _, item := range playlistResp.Items {
		ids = append(ids, model.YoutubeVideoID(item.ContentDetails.VideoId))
	}
	privacy := y.privacyStatus(ctx, ids)

	uploads := make([]Upload, 0, len(playlistResp.Items))
	for _, item := range playlistResp.Items {
		videoID := model.YoutubeVideoID(item.ContentDetails.VideoId)
		if status := privacy[videoID]; status != "public" {
			y.logger.Info("skipping non-public video",
				slog.String("video", string(videoID)), slog.String("status", status))
			continue
		}
		publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			y.logger.Error("failed to parse publish time", err, slog.String("video", string(videoID)))
			continue
		}
		uploads = append(uploads, Upload{
			VideoID:     videoID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: publishedAt.UTC(),
		})
	}

	return uploads, nil
}

// privacyStatus looks up the privacy status of the given videos in chunks.
// A failed lookup leaves videos out of the map, which excludes them.
func (y *Youtube) privacyStatus(ctx context.Context, ids []model.YoutubeVideoID) map[model.YoutubeVideoID]string {
	privacy := make(map[model.YoutubeVideoID]string, len(ids))
	for _, chunk := range chunkIDs(ids, privacyBatchSize) {
		strIDs := make([]string, 0, len(chunk))
		for _, id := range chunk {
			strIDs = append(strIDs, string(id))
		}

		resp, err := y.client.Videos.
			List([]string{"status"}).
			Id(strings.Join(strIDs, ",")).
			Context(ctx).
			Do()
		if err != nil {
			y.logger.Error("failed to fetch privacy status", err)
			continue
		}
		for _, item := range resp.Items {
			privacy[model.YoutubeVideoID(item.Id)] = item.Status.PrivacyStatus
		}
	}

	return privacy
}

func chunkIDs(ids []model.YoutubeVideoID, size int) [][]model.YoutubeVideoID {
	chunks := [][]model.YoutubeVideoID{}
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}

	return chunks
}
