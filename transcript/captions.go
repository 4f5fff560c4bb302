package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"ewintr.nl/tubedigest/model"
	"golang.org/x/exp/slog"
)

const (
	timedTextURL = "https://video.google.com/timedtext"
	kindAuto     = "asr"
)

type CaptionTrack struct {
	LangCode string
	Name     string
	Kind     string
	Default  bool
}

// Captions fetches existing caption tracks through the timedtext endpoint.
// The http client is injectable so requests can be routed through a proxy.
type Captions struct {
	client *http.Client
	logger *slog.Logger
}

func NewCaptions(client *http.Client, logger *slog.Logger) *Captions {
	if client == nil {
		client = http.DefaultClient
	}

	return &Captions{
		client: client,
		logger: logger,
	}
}

func (c *Captions) Fetch(ctx context.Context, videoID model.YoutubeVideoID) (model.TranscriptResult, error) {
	tracks, err := c.ListTracks(ctx, videoID)
	if err != nil {
		return model.TranscriptResult{}, err
	}
	if len(tracks) == 0 {
		return model.TranscriptResult{}, fmt.Errorf("video %s has no caption tracks", videoID)
	}

	track := pickTrack(tracks)
	c.logger.Info("downloading caption track", slog.String("video", string(videoID)),
		slog.String("lang", track.LangCode), slog.String("kind", track.Kind))

	text, err := c.Download(ctx, videoID, track)
	if err != nil {
		return model.TranscriptResult{}, err
	}
	if text == "" {
		return model.TranscriptResult{}, fmt.Errorf("caption track for %s is empty", videoID)
	}

	return model.TranscriptResult{
		Text:         text,
		Language:     track.Name,
		LanguageCode: track.LangCode,
	}, nil
}

func (c *Captions) ListTracks(ctx context.Context, videoID model.YoutubeVideoID) ([]CaptionTrack, error) {
	q := url.Values{}
	q.Set("type", "list")
	q.Set("v", string(videoID))

	data, err := c.get(ctx, timedTextURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var list struct {
		Tracks []struct {
			LangCode string `xml:"lang_code,attr"`
			Name     string `xml:"name,attr"`
			Kind     string `xml:"kind,attr"`
			Default  string `xml:"lang_default,attr"`
		} `xml:"track"`
	}
	if err := xml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse track list: %w", err)
	}

	tracks := make([]CaptionTrack, 0, len(list.Tracks))
	for _, t := range list.Tracks {
		tracks = append(tracks, CaptionTrack{
			LangCode: t.LangCode,
			Name:     t.Name,
			Kind:     t.Kind,
			Default:  t.Default == "true",
		})
	}

	return tracks, nil
}

func (c *Captions) Download(ctx context.Context, videoID model.YoutubeVideoID, track CaptionTrack) (string, error) {
	q := url.Values{}
	q.Set("v", string(videoID))
	q.Set("lang", track.LangCode)
	if track.Name != "" {
		q.Set("name", track.Name)
	}
	if track.Kind != "" {
		q.Set("kind", track.Kind)
	}

	data, err := c.get(ctx, timedTextURL+"?"+q.Encode())
	if err != nil {
		return "", err
	}

	var transcript struct {
		Lines []string `xml:"text"`
	}
	if err := xml.Unmarshal(data, &transcript); err != nil {
		return "", fmt.Errorf("failed to parse captions: %w", err)
	}

	parts := make([]string, 0, len(transcript.Lines))
	for _, line := range transcript.Lines {
		if line = strings.TrimSpace(html.UnescapeString(line)); line != "" {
			parts = append(parts, line)
		}
	}

	return strings.Join(parts, " "), nil
}

func (c *Captions) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("captions endpoint returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// pickTrack prefers manually created captions over auto-generated ones.
// Within the same kind a track that is not the video's default comes first.
func pickTrack(tracks []CaptionTrack) CaptionTrack {
	ranked := make([]CaptionTrack, len(tracks))
	copy(ranked, tracks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return trackRank(ranked[i]) < trackRank(ranked[j])
	})

	return ranked[0]
}

func trackRank(t CaptionTrack) int {
	rank := 0
	if t.Kind == kindAuto {
		rank += 2
	}
	if t.Default {
		rank++
	}

	return rank
}
