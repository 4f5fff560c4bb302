package notify

import (
	"testing"
	"time"

	"ewintr.nl/tubedigest/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmail(t *testing.T) {
	video := model.Video{
		YoutubeID:   "vid-1",
		ChannelName: "Channel One",
		Title:       "Big <News>",
		PublishedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	body, err := renderEmail("Channel One", video, "<h3>Video summary</h3><p>points</p>")
	require.NoError(t, err)

	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "New video from Channel One")
	// the title is untrusted and must be escaped
	assert.Contains(t, body, "Big &lt;News&gt;")
	assert.Contains(t, body, "https://www.youtube.com/watch?v=vid-1")
	// the summary is generated markup and must not be escaped
	assert.Contains(t, body, "<h3>Video summary</h3>")
	assert.Contains(t, body, "2024-03-10T09:00:00Z")
}
