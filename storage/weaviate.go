package storage

import (
	"context"
	"net/http"

	"ewintr.nl/tubedigest/model"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
	"github.com/weaviate/weaviate/entities/models"
)

const summaryClass = "VideoSummary"

// Weaviate archives mailed summaries as vectorized objects, so earlier
// digests can be searched semantically.
type Weaviate struct {
	client *weaviate.Client
}

func NewWeaviate(host, weaviateAPIKey, openaiAPIKey string) (*Weaviate, error) {
	config := weaviate.Config{
		Scheme:     "https",
		Host:       host,
		AuthConfig: auth.ApiKey{Value: weaviateAPIKey},
		Headers: map[string]string{
			"X-OpenAI-Api-Key": openaiAPIKey,
		},
	}

	c, err := weaviate.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &Weaviate{client: c}, nil
}

func (w *Weaviate) ResetSchema() error {
	// Weaviate returns a 400 when the class does not exist yet, which is fine
	if err := w.client.Schema().ClassDeleter().WithClassName(summaryClass).Do(context.Background()); err != nil {
		if status, ok := err.(*fault.WeaviateClientError); !ok || status.StatusCode != http.StatusBadRequest {
			return err
		}
	}

	classObj := &models.Class{
		Class:      summaryClass,
		Vectorizer: "text2vec-openai",
		ModuleConfig: map[string]any{
			"text2vec-openai": map[string]any{
				"model":        "ada",
				"modelVersion": "002",
				"type":         "text",
			},
		},
	}

	return w.client.Schema().ClassCreator().WithClass(classObj).Do(context.Background())
}

func (w *Weaviate) SaveSummary(ctx context.Context, video model.Video, summary string) error {
	// object ids must be uuids, derive a stable one from the video url
	vID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(video.URL())).String()
	properties := map[string]any{
		"youtubeId":   string(video.YoutubeID),
		"channelName": video.ChannelName,
		"title":       video.Title,
		"publishedAt": video.PublishedAt.Format("2006-01-02T15:04:05Z"),
		"summary":     summary,
	}

	exists, err := w.client.Data().
		Checker().
		WithID(vID).
		WithClassName(summaryClass).
		Do(ctx)
	if err != nil {
		return err
	}

	if exists {
		return w.client.Data().
			Updater().
			WithID(vID).
			WithClassName(summaryClass).
			WithProperties(properties).
			Do(ctx)
	}

	_, err = w.client.Data().
		Creator().
		WithClassName(summaryClass).
		WithID(vID).
		WithProperties(properties).
		Do(ctx)

	return err
}
