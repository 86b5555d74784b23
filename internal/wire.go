//go:build wireinject
// +build wireinject

package internal

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/handler"
	"github.com/quantrail/reckon/internal/service"
	"github.com/quantrail/reckon/internal/telegram"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const telegramHTTPTimeout = 10 * time.Second

var (
	handlerSet = wire.NewSet(
		handler.NewReconHandler,
		handler.NewAuthHandler,
		handler.NewSetupHandler,
	)

	reconSet = wire.NewSet(
		provideOpenAIClient,
		provideAuthService,
		service.NewNormalizerService,
		service.NewDifferenceService,
		service.NewAnomalyService,
		service.NewClassifierService,
		service.NewPromptService,
		service.NewInsightService,
		service.NewReconService,
		service.NewReconLoop,
	)
)

// InitializeApp wires the full component graph.
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		reconSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}

// provideTelegram provides the alert bot, nil when alerts are disabled.
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}

// provideAuthService provides the auth service with the configured secret.
func provideAuthService(logger *zap.Logger, db *gorm.DB, conf *config.Config) *service.AuthService {
	return service.NewAuthService(logger, db, conf.Auth.JWTSecret)
}

// provideOpenAIClient provides the narrative model client, nil when no key
// is configured so the pipeline falls back to placeholder comments.
func provideOpenAIClient(conf *config.Config, logger *zap.Logger) *openai.Client {
	if conf.LLM.APIKey == "" {
		logger.Info("narrative model not configured, placeholder comments will be used")
		return nil
	}

	var options = []option.RequestOption{
		option.WithBaseURL(conf.LLM.BaseURL),
		option.WithAPIKey(conf.LLM.APIKey),
	}
	if conf.LLM.ProxyURL != "" {
		u, err := url.Parse(conf.LLM.ProxyURL)
		if err != nil {
			logger.Fatal("failed to parse proxy URL", zap.Error(err))
		}
		httpClient := &http.Client{
			Timeout: time.Minute,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(u),
			},
		}
		options = append(options, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(options...)

	logger.Info("narrative model client initialized",
		zap.String("model", conf.LLM.Model))
	return &client
}
