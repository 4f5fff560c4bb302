package transcript

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestPickTrack(t *testing.T) {
	manual := CaptionTrack{LangCode: "en", Kind: ""}
	manualDefault := CaptionTrack{LangCode: "nl", Kind: "", Default: true}
	auto := CaptionTrack{LangCode: "en", Kind: kindAuto}
	autoDefault := CaptionTrack{LangCode: "nl", Kind: kindAuto, Default: true}

	for _, tc := range []struct {
		name   string
		tracks []CaptionTrack
		exp    CaptionTrack
	}{
		{
			name:   "manual beats auto",
			tracks: []CaptionTrack{auto, manual},
			exp:    manual,
		},
		{
			name:   "manual default beats auto non-default",
			tracks: []CaptionTrack{auto, manualDefault},
			exp:    manualDefault,
		},
		{
			name:   "non-default beats default within same kind",
			tracks: []CaptionTrack{manualDefault, manual},
			exp:    manual,
		},
		{
			name:   "auto non-default beats auto default",
			tracks: []CaptionTrack{autoDefault, auto},
			exp:    auto,
		},
		{
			name:   "single track",
			tracks: []CaptionTrack{autoDefault},
			exp:    autoDefault,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, pickTrack(tc.tracks))
		})
	}
}

func TestCaptionsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") == "list" {
			io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?>
<transcript_list>
	<track lang_code="en" name="" kind="asr" lang_default="true"/>
	<track lang_code="en" name="English" lang_default="false"/>
</transcript_list>`)
			return
		}
		// the manual track must have been picked
		assert.Equal(t, "English", q.Get("name"))
		assert.Equal(t, "", q.Get("kind"))
		io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?>
<transcript>
	<text start="0" dur="2">hello &amp; welcome</text>
	<text start="2" dur="3">to the show</text>
</transcript>`)
	}))
	defer srv.Close()

	captions := newTestCaptions(t, srv)
	result, err := captions.Fetch(context.Background(), "vid-1")

	require.NoError(t, err)
	assert.Equal(t, "hello & welcome to the show", result.Text)
	assert.Equal(t, "en", result.LanguageCode)
}

func TestCaptionsFetchNoTracks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?><transcript_list></transcript_list>`)
	}))
	defer srv.Close()

	captions := newTestCaptions(t, srv)
	_, err := captions.Fetch(context.Background(), "vid-1")

	assert.Error(t, err)
}

// newTestCaptions points the timedtext requests at the test server.
func newTestCaptions(t *testing.T, srv *httptest.Server) *Captions {
	t.Helper()
	srvURL, err := url.Parse(srv.URL)
	require.NoError(t, err)

	client := &http.Client{
		Transport: rewriteHost{host: srvURL.Host},
	}

	return NewCaptions(client, slog.New(slog.NewTextHandler(io.Discard)))
}

type rewriteHost struct {
	host string
}

func (rw rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = rw.host

	return http.DefaultTransport.RoundTrip(req)
}
