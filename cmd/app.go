package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"google.golang.org/api/option"

	"github.com/teemow/agentpark/internal/briefing"
	"github.com/teemow/agentpark/internal/calendar"
	"github.com/teemow/agentpark/internal/config"
	"github.com/teemow/agentpark/internal/expand"
	"github.com/teemow/agentpark/internal/gmail"
	"github.com/teemow/agentpark/internal/google"
	"github.com/teemow/agentpark/internal/instrumentation"
	"github.com/teemow/agentpark/internal/logging"
	"github.com/teemow/agentpark/internal/news"
	"github.com/teemow/agentpark/internal/server"
	"github.com/teemow/agentpark/internal/weather"
)

// loadConfig reads and validates the configuration and installs the process
// logger, which writes to w.
func loadConfig(path string, debug bool, w io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(w, level, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// composerDeps carries what newComposer needs besides the config.
type composerDeps struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	// authorizer runs the consent flow when a Google token is missing.
	// Nil never prompts; the source falls back instead.
	authorizer google.Authorizer
}

// newTokenProvider loads the OAuth client and opens the token store.
func newTokenProvider(cfg config.Config, deps composerDeps) (*google.FileTokenProvider, *google.FileStore, error) {
	client, err := google.LoadClientConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, nil, err
	}

	store := google.NewFileStore(cfg.TokenDir)
	opts := []google.FileTokenProviderOption{
		google.WithLogger(deps.logger),
		google.WithMetrics(deps.metrics),
	}
	if deps.authorizer != nil {
		opts = append(opts, google.WithAuthorizer(deps.authorizer))
	}
	return google.NewFileTokenProvider(store, client, opts...), store, nil
}

// newComposer wires every briefing source from the configuration. Sources
// that cannot be set up are left out and render their fallback text.
func newComposer(ctx context.Context, cfg config.Config, deps composerDeps) (*briefing.Composer, error) {
	logger := deps.logger
	if logger == nil {
		logger = slog.Default()
		deps.logger = logger
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sources := briefing.Sources{
		Weather: weather.NewClient(cfg.WeatherAPIKey, cfg.HomeLat, cfg.HomeLon,
			weather.WithLogger(logger)),
		News: news.NewClient(cfg.NYTAPIKey, newsOptions(ctx, cfg, deps)...),
	}

	tokens, _, err := newTokenProvider(cfg, deps)
	if err != nil {
		logger.Warn("Google sources disabled", logging.Err(err))
	} else {
		sources.Calendar = calendarSource{tokens: tokens, logger: logger}
		sources.Mail = mailSource{tokens: tokens, logger: logger}
	}

	return briefing.New(sources,
		briefing.WithLocation(loc),
		briefing.WithLogger(logger),
		briefing.WithMetrics(deps.metrics),
	), nil
}

func newsOptions(ctx context.Context, cfg config.Config, deps composerDeps) []news.Option {
	opts := []news.Option{news.WithLogger(deps.logger)}
	if !cfg.ExpansionEnabled() {
		return opts
	}

	e, err := expand.NewGenAIExpander(ctx, cfg.GeminiAPIKey, cfg.ExpandModel)
	if err != nil {
		deps.logger.Warn("summary expansion disabled", logging.Err(err))
		return opts
	}
	deps.logger.Debug("summary expansion enabled", "model", e.Model())
	return append(opts, news.WithExpander(expand.WithFallback(e,
		expand.WithLogger(deps.logger),
		expand.WithMetrics(deps.metrics),
	)))
}

// sourceReport describes, for the detailed health endpoint, which briefing
// sources can produce live data with this configuration. Google token files
// are checked on every call so a later `agentpark auth` shows up.
func sourceReport(cfg config.Config, logger *slog.Logger) server.SourceReport {
	tokens, _, tokenErr := newTokenProvider(cfg, composerDeps{logger: logger})

	keyed := func(key string) string {
		if key == "" {
			return server.SourceMissingKey
		}
		return server.SourceConfigured
	}
	authorized := func(account string) string {
		switch {
		case tokenErr != nil:
			return server.SourceNoCredentials
		case !tokens.HasTokenForAccount(account):
			return server.SourceNotAuthorized
		default:
			return server.SourceConfigured
		}
	}

	return func() map[string]string {
		expansion := server.SourceDisabled
		if cfg.ExpansionEnabled() {
			expansion = server.SourceConfigured
		}
		return map[string]string{
			instrumentation.SourceNews:     keyed(cfg.NYTAPIKey),
			instrumentation.SourceWeather:  keyed(cfg.WeatherAPIKey),
			instrumentation.SourceCalendar: authorized(google.AccountCalendar),
			instrumentation.SourceMail:     authorized(google.AccountGmail),
			"expansion":                    expansion,
		}
	}
}

// calendarSource opens a Calendar client per briefing so a token granted
// while the server runs is picked up.
type calendarSource struct {
	tokens google.HTTPClientProvider
	logger *slog.Logger
	opts   []option.ClientOption
}

func (s calendarSource) UpcomingEvents(ctx context.Context, now time.Time) ([]string, error) {
	client, err := calendar.NewClient(ctx, s.tokens, s.opts...)
	if err != nil {
		return nil, reauthHint(s.logger, google.AccountCalendar, err)
	}
	client.SetLogger(s.logger)
	events, err := client.UpcomingEvents(ctx, now)
	return events, reauthHint(s.logger, google.AccountCalendar, err)
}

// mailSource opens a Gmail client per briefing.
type mailSource struct {
	tokens google.HTTPClientProvider
	logger *slog.Logger
	opts   []option.ClientOption
}

func (s mailSource) PackageUpdates(ctx context.Context) ([]string, error) {
	client, err := gmail.NewClient(ctx, s.tokens, s.opts...)
	if err != nil {
		return nil, reauthHint(s.logger, google.AccountGmail, err)
	}
	client.SetLogger(s.logger)
	updates, err := client.PackageUpdates(ctx)
	return updates, reauthHint(s.logger, google.AccountGmail, err)
}

// reauthHint tells the operator how to recover when Google rejects or lacks
// the account's credentials. err is returned unchanged.
func reauthHint(logger *slog.Logger, account string, err error) error {
	if err == nil {
		return nil
	}
	if google.IsUnauthorized(err) || errors.Is(err, google.ErrNoToken) {
		logger.Warn(fmt.Sprintf("google credentials missing or rejected, run `agentpark auth %s`", account),
			logging.Account(account), logging.Err(err))
	}
	return err
}
