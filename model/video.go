package model

import "time"

type YoutubeVideoID string

type YoutubeChannelID string

// Video is one upload discovered on a channel. It is built from the upload
// listing and read-only afterwards.
type Video struct {
	YoutubeID   YoutubeVideoID
	ChannelID   YoutubeChannelID
	ChannelName string
	Title       string
	Description string
	PublishedAt time.Time
}

func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + string(v.YoutubeID)
}

// TranscriptResult is the text obtained for one video. It is handed straight
// to the summarizer and never persisted.
type TranscriptResult struct {
	Text         string
	Language     string
	LanguageCode string
	Duration     time.Duration
}
