package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ewintr.nl/tubedigest/model"
)

const (
	defaultCheckHours = 24
	defaultMaxJobAge  = 7 * 24 * time.Hour
)

type ChannelConfig struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	FeedID int64  `json:"feed_id,omitempty"`
}

type EmailConfig struct {
	From string `json:"from"`
}

// Config is the JSON configuration document. A handful of fields can be
// overridden through environment variables, see Load.
type Config struct {
	Channels    []ChannelConfig `json:"channels"`
	CheckHours  int             `json:"check_hours"`
	MaxJobAgeHr int             `json:"max_job_age_hours"`
	Email       EmailConfig     `json:"email"`
	Subscribers []string        `json:"subscribers"`

	// populated from the environment
	YoutubeAPIKey     string
	OpenAIAPIKey      string
	ResendAPIKey      string
	AudioServerURL    string
	AudioServerAPIKey string
	StateDir          string
	StateBackend      string
	MinifluxEndpoint  string
	MinifluxAPIKey    string
	WeaviateHost      string
	WeaviateAPIKey    string
	ProxyEnabled      bool
}

// Load reads the configuration document at path and applies environment
// overrides. EMAIL_FROM replaces the from address, EMAIL_SUBSCRIBERS is a
// comma separated list that replaces the subscriber list.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()

	if cfg.CheckHours <= 0 {
		cfg.CheckHours = defaultCheckHours
	}
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("config has no channels")
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if from := os.Getenv("EMAIL_FROM"); from != "" {
		c.Email.From = from
	}
	if subs := os.Getenv("EMAIL_SUBSCRIBERS"); subs != "" {
		c.Subscribers = c.Subscribers[:0]
		for _, addr := range strings.Split(subs, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				c.Subscribers = append(c.Subscribers, addr)
			}
		}
	}

	c.YoutubeAPIKey = getParam("YOUTUBE_API_KEY", "")
	c.OpenAIAPIKey = getParam("OPENAI_API_KEY", "")
	c.ResendAPIKey = getParam("RESEND_API_KEY", "")
	c.AudioServerURL = getParam("AUDIO_SERVER_URL", "")
	c.AudioServerAPIKey = getParam("AUDIO_SERVER_API_KEY", "")
	c.StateDir = getParam("STATE_DIR", ".")
	c.StateBackend = getParam("STATE_BACKEND", "file")
	c.MinifluxEndpoint = getParam("MINIFLUX_ENDPOINT", "")
	c.MinifluxAPIKey = getParam("MINIFLUX_APIKEY", "")
	c.WeaviateHost = getParam("WEAVIATE_HOST", "")
	c.WeaviateAPIKey = getParam("WEAVIATE_APIKEY", "")
	c.ProxyEnabled = getParam("PROXY_ENABLED", "") == "true"
}

// Lookback is the window within which an upload still counts as new.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.CheckHours) * time.Hour
}

// MaxJobAge bounds how long a pending job may stay in the ledger before it
// is dropped.
func (c *Config) MaxJobAge() time.Duration {
	if c.MaxJobAgeHr <= 0 {
		return defaultMaxJobAge
	}

	return time.Duration(c.MaxJobAgeHr) * time.Hour
}

func (c *Config) ChannelList() []model.Channel {
	channels := make([]model.Channel, 0, len(c.Channels))
	for _, cc := range c.Channels {
		channels = append(channels, model.Channel{
			ID:     model.YoutubeChannelID(cc.ID),
			Name:   cc.Name,
			FeedID: cc.FeedID,
		})
	}

	return channels
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok {
		return val
	}

	return def
}
