package fetcher

import (
	"context"
	"time"

	"ewintr.nl/tubedigest/model"
)

// Upload is one entry from a channel's upload listing. Only publicly visible
// uploads are returned by a Lister. EntryID is set by listers that track read
// state at the source, zero otherwise.
type Upload struct {
	VideoID     model.YoutubeVideoID
	Title       string
	Description string
	PublishedAt time.Time
	EntryID     int64
}

// Lister fetches the most recent uploads of a channel.
type Lister interface {
	RecentUploads(ctx context.Context, channel model.Channel) ([]Upload, error)
}

// EntryMarker acknowledges a processed upload at the source. Marking must
// happen only after the video landed in a ledger, an unmarked entry is
// listed again on the next run.
type EntryMarker interface {
	MarkRead(entryID int64) error
}
