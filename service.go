package main

import (
	"context"
	"net/http"
	"os"

	"ewintr.nl/tubedigest/config"
	"ewintr.nl/tubedigest/fetcher"
	"ewintr.nl/tubedigest/monitor"
	"ewintr.nl/tubedigest/notify"
	"ewintr.nl/tubedigest/proxy"
	"ewintr.nl/tubedigest/storage"
	"ewintr.nl/tubedigest/summarize"
	"ewintr.nl/tubedigest/transcript"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/exp/slog"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr)).
		With(slog.String("run", uuid.NewString()))

	cfg, err := config.Load(getParam("CONFIG_PATH", "config.json"))
	if err != nil {
		logger.Error("unable to load config", err)
		os.Exit(1)
	}

	var store storage.StateRepository
	switch cfg.StateBackend {
	case "postgres":
		postgres, err := storage.NewPostgres(storage.PostgresInfo{
			Host:     getParam("POSTGRES_HOST", "localhost"),
			Port:     getParam("POSTGRES_PORT", "5432"),
			User:     getParam("POSTGRES_USER", "tubedigest"),
			Password: getParam("POSTGRES_PASSWORD", "tubedigest"),
			Database: getParam("POSTGRES_DB", "tubedigest"),
		})
		if err != nil {
			logger.Error("unable to connect to postgres", err)
			os.Exit(1)
		}
		store = postgres
	default:
		store = storage.NewFile(cfg.StateDir)
	}

	var lister fetcher.Lister
	if cfg.MinifluxEndpoint != "" {
		lister = fetcher.NewMiniflux(fetcher.MinifluxInfo{
			Endpoint: cfg.MinifluxEndpoint,
			ApiKey:   cfg.MinifluxAPIKey,
		}, logger)
	} else {
		ytClient, err := youtube.NewService(ctx, option.WithAPIKey(cfg.YoutubeAPIKey))
		if err != nil {
			logger.Error("unable to create youtube service", err)
			os.Exit(1)
		}
		lister = fetcher.NewYoutube(ytClient, logger)
	}

	openAIClient := openai.NewClient(cfg.OpenAIAPIKey)

	var jobs transcript.JobClient
	var chain transcript.Fetcher
	if cfg.AudioServerURL != "" {
		jobs = transcript.NewRemote(cfg.AudioServerURL, cfg.AudioServerAPIKey, logger)
	} else {
		captionClient := http.DefaultClient
		if cfg.ProxyEnabled {
			proxies := proxy.NewManager(logger)
			if count, err := proxies.Refresh(ctx); err != nil {
				logger.Error("unable to find a working proxy", err)
			} else {
				logger.Info("proxies ready", slog.Int("count", count))
				captionClient = proxies.Client()
			}
		}
		chain = transcript.NewChain(
			transcript.NewCaptions(captionClient, logger),
			transcript.NewAudio(openAIClient, getParam("YTDLP_PATH", ""), logger),
			logger,
		)
	}

	var archive storage.SummaryArchiver
	if cfg.WeaviateHost != "" {
		weaviate, err := storage.NewWeaviate(cfg.WeaviateHost, cfg.WeaviateAPIKey, cfg.OpenAIAPIKey)
		if err != nil {
			logger.Error("unable to create weaviate client", err)
			os.Exit(1)
		}
		archive = weaviate
	}

	notifier := notify.NewResend(cfg.ResendAPIKey, cfg.Email.From, cfg.Subscribers, logger)

	mon := monitor.NewMonitor(cfg.ChannelList(), store, lister, jobs, chain,
		summarize.NewOpenAI(openAIClient), notifier, archive,
		cfg.Lookback(), cfg.MaxJobAge(), logger)

	logger.Info("starting check")
	if err := mon.Run(ctx); err != nil {
		logger.Error("check failed", err)
		os.Exit(1)
	}
	logger.Info("check done")
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok {
		return val
	}

	return def
}
