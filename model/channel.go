package model

// Channel is a monitored content source. Channels come from configuration
// and never change during a run. FeedID is only set when discovery goes
// through a feed reader instead of the YouTube API.
type Channel struct {
	ID     YoutubeChannelID
	Name   string
	FeedID int64
}
