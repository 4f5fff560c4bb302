package model

import "time"

// SeenSet records, per channel, the videos that were already handled. A video
// id appears at most once per channel, Add is idempotent.
type SeenSet map[YoutubeChannelID][]YoutubeVideoID

func NewSeenSet() SeenSet {
	return SeenSet{}
}

func (s SeenSet) Has(channelID YoutubeChannelID, videoID YoutubeVideoID) bool {
	for _, id := range s[channelID] {
		if id == videoID {
			return true
		}
	}

	return false
}

func (s SeenSet) Add(channelID YoutubeChannelID, videoID YoutubeVideoID) {
	if s.Has(channelID, videoID) {
		return
	}
	s[channelID] = append(s[channelID], videoID)
}

// PendingJob is a locally persisted record of an in-flight transcription
// request on the remote worker. At most one exists per video id.
type PendingJob struct {
	VideoURL    string    `json:"video_url"`
	VideoTitle  string    `json:"video_title"`
	ChannelName string    `json:"channel_name"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PendingSet maps video id to its pending job.
type PendingSet map[YoutubeVideoID]PendingJob

func NewPendingSet() PendingSet {
	return PendingSet{}
}
