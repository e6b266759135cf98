package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/ai/gemini"
	"github.com/spigell/navihire/internal/ai/providers"
	"github.com/spigell/navihire/internal/assistant"
	"github.com/spigell/navihire/internal/calendar"
	"github.com/spigell/navihire/internal/flights"
	"github.com/spigell/navihire/internal/mailer"
	"github.com/spigell/navihire/internal/resume"
	"github.com/spigell/navihire/internal/secrets"
	"github.com/spigell/navihire/internal/session"
	"github.com/spigell/navihire/internal/tasks"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
)

// application bundles what the chat and serve commands share.
type application struct {
	service  *assistant.Service
	searcher flights.Searcher
	close    func()
}

func newApplication(ctx context.Context, config *Config, recorder workflow.Recorder, logger *zap.Logger) (*application, error) {
	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("building text generator: %w", err)
	}

	searcher, err := newSearcher(config.Flights, logger)
	if err != nil {
		return nil, fmt.Errorf("building flight search: %w", err)
	}

	store, closeStore, err := newSessionStore(ctx, config.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("building session store: %w", err)
	}

	maxLog := config.AI.MaxLogLength
	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithNode(workflow.RouteResumeAnalysis,
			tasks.NewResumeAnalysis(generator, resume.KeywordExtractor{}, logger.Named("resume_analysis"), maxLog)),
		workflow.WithNode(workflow.RouteCandidateMatching,
			tasks.NewCandidateMatching(generator, logger.Named("candidate_matching"), maxLog)),
		workflow.WithNode(workflow.RouteTravelOptimization,
			tasks.NewTravelOptimization(generator, searcher, config.Flights.Currency, logger.Named("travel_optimization"), maxLog)),
		workflow.WithNode(workflow.RouteWorkflowAutomation,
			tasks.NewWorkflowAutomation(generator, calendar.NewSimulated(logger), mailer.NewLogMailer(logger), logger.Named("workflow_automation"), maxLog)),
	}
	if recorder != nil {
		opts = append(opts, workflow.WithRecorder(recorder))
	}

	engine := workflow.NewEngine(
		workflow.NewClassifier(generator, logger.Named("classifier"), maxLog),
		workflow.NewResponder(generator, logger.Named("responder"), maxLog),
		opts...,
	)

	return &application{
		service: assistant.NewService(engine, store,
			assistant.WithLogger(logger),
			assistant.WithDefaultRole(config.UserRole),
		),
		searcher: searcher,
		close:    closeStore,
	}, nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	var (
		generator ai.Generator
		err       error
	)

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", ai.ProviderGemini:
		generator, err = newGemini(ctx, cfg.Gemini, logger)
	case ai.ProviderOpenAI:
		generator, err = newOpenAI(cfg.OpenAI, logger)
	case ai.ProviderAnthropic:
		generator, err = newAnthropic(cfg.Anthropic, logger)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if named, ok := generator.(ai.Named); ok {
		logger.Info("text generator ready",
			zap.String("provider", named.Provider()),
			zap.String("model", named.Model()),
			zap.Float64("requests_per_second", cfg.RequestsPerSecond),
		)
	}

	return ai.NewRateLimited(generator, cfg.RequestsPerSecond, cfg.Burst), nil
}

func newGemini(ctx context.Context, cfg *GeminiConfig, logger *zap.Logger) (ai.Generator, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	return gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, logger)
}

func newOpenAI(cfg *OpenAIConfig, logger *zap.Logger) (ai.Generator, error) {
	if cfg == nil {
		cfg = &OpenAIConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "openai api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "OPENAI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY)", err)
	}

	return providers.NewOpenAI(providers.OpenAIConfig{APIKey: apiKey, Model: cfg.Model, BaseURL: cfg.BaseURL}, logger)
}

func newAnthropic(cfg *AnthropicConfig, logger *zap.Logger) (ai.Generator, error) {
	if cfg == nil {
		cfg = &AnthropicConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "anthropic api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "ANTHROPIC_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.anthropic.api-key-file or ANTHROPIC_API_KEY)", err)
	}

	return providers.NewAnthropic(providers.AnthropicConfig{APIKey: apiKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens}, logger)
}

// newSearcher uses SerpAPI when a key is configured, falling back to the
// offline catalog, and caches the results.
func newSearcher(cfg *FlightsConfig, logger *zap.Logger) (flights.Searcher, error) {
	catalog, err := flights.DefaultCatalog()
	if cfg.Catalog != "" {
		catalog, err = flights.LoadCatalog(cfg.Catalog)
	}
	if err != nil {
		return nil, err
	}

	var searcher flights.Searcher = catalog

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "serpapi key",
		Value: cfg.SerpAPIKey,
		File:  cfg.SerpAPIKeyFile,
		Env:   "SERPAPI_KEY",
	})
	if err != nil {
		logger.Info("flight search uses the offline catalog", zap.String("reason", err.Error()))
	} else {
		searcher = &flights.Fallback{
			Primary:   flights.NewSerpAPI(apiKey, cfg.Currency, logger.Named("serpapi")),
			Secondary: catalog,
			Logger:    logger,
		}
	}

	if cfg.CacheSize <= 0 {
		return searcher, nil
	}
	return flights.NewCached(searcher, cfg.CacheSize)
}

func newSessionStore(ctx context.Context, cfg *SessionConfig, logger *zap.Logger) (session.Store, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return session.NewMemoryStore(), func() {}, nil
	case "redis":
		store := session.NewRedisStore(cfg.Redis)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Address, err)
		}
		logger.Info("sessions stored in redis", zap.String("address", cfg.Redis.Address), zap.Duration("ttl", cfg.Redis.TTL))
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing redis client", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}
