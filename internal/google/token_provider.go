package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/agentpark/internal/instrumentation"
	"github.com/teemow/agentpark/internal/logging"
)

// TokenProvider is an interface for providing OAuth tokens for Google APIs.
type TokenProvider interface {
	// GetTokenForAccount retrieves a usable OAuth token for the specified account
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(account string) bool
}

// HTTPClientProvider hands out HTTP clients authorized for an account.
type HTTPClientProvider interface {
	HTTPClient(ctx context.Context, account string) (*http.Client, error)
}

// FileTokenProvider serves tokens from a FileStore, refreshing expired tokens
// and running the Authorizer when no usable token is cached.
type FileTokenProvider struct {
	store      *FileStore
	client     *oauth2.Config
	authorizer Authorizer
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// FileTokenProviderOption configures a FileTokenProvider.
type FileTokenProviderOption func(*FileTokenProvider)

// WithAuthorizer sets the interactive consent flow used when no token is cached.
// Without an authorizer, a missing token is reported as ErrNoToken.
func WithAuthorizer(a Authorizer) FileTokenProviderOption {
	return func(p *FileTokenProvider) {
		p.authorizer = a
	}
}

// WithMetrics records token refreshes and grants.
func WithMetrics(m *instrumentation.Metrics) FileTokenProviderOption {
	return func(p *FileTokenProvider) {
		p.metrics = m
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) FileTokenProviderOption {
	return func(p *FileTokenProvider) {
		p.logger = l
	}
}

// NewFileTokenProvider creates a token provider backed by store. client holds
// the OAuth client ID, secret and endpoint; scopes are set per account.
func NewFileTokenProvider(store *FileStore, client *oauth2.Config, opts ...FileTokenProviderOption) *FileTokenProvider {
	p := &FileTokenProvider{
		store:  store,
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HasTokenForAccount checks if a token file exists for the specified account.
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	return p.store.Has(account)
}

// configFor returns the OAuth configuration for an account's scopes.
func (p *FileTokenProvider) configFor(account string) (*oauth2.Config, error) {
	if p.client == nil {
		return nil, fmt.Errorf("OAuth client configuration is required")
	}
	scopes, err := ScopesForAccount(account)
	if err != nil {
		return nil, err
	}
	return withScopes(p.client, scopes), nil
}

// GetTokenForAccount loads the cached token for account. An expired token is
// refreshed; if there is no usable token the Authorizer is asked for a new
// grant. Refreshed and granted tokens are written back to the store.
func (p *FileTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	conf, err := p.configFor(account)
	if err != nil {
		return nil, err
	}
	logger := logging.WithAccount(p.logger, account)

	tok, err := p.store.Load(account)
	switch {
	case err == nil && tok.Valid():
		logger.Debug("using cached token", "access_token", logging.SanitizeToken(tok.AccessToken))
		return tok, nil

	case err == nil && tok.RefreshToken != "":
		refreshed, rerr := conf.TokenSource(ctx, tok).Token()
		if rerr == nil {
			p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
			if serr := p.store.Save(account, refreshed); serr != nil {
				logger.Warn("failed to persist refreshed token", logging.Err(serr))
			}
			logger.Debug("refreshed cached token", "access_token", logging.SanitizeToken(refreshed.AccessToken))
			return refreshed, nil
		}
		p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		logger.Warn("token refresh failed, interactive login required", logging.Err(rerr))

	case err != nil && !errors.Is(err, ErrNoToken):
		logger.Warn("cached token unreadable, interactive login required", logging.Err(err))
	}

	if p.authorizer == nil {
		return nil, fmt.Errorf("%w for account %s; run `agentpark auth %s` first", ErrNoToken, account, account)
	}

	granted, err := p.authorizer.Authorize(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("interactive authorization for account %s failed: %w", account, err)
	}
	p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultGranted)
	if err := p.store.Save(account, granted); err != nil {
		return nil, fmt.Errorf("failed to persist token for account %s: %w", account, err)
	}
	logger.Info("stored new token")
	return granted, nil
}

// TokenSource returns a token source for account that persists every token
// the underlying source refreshes during its lifetime.
func (p *FileTokenProvider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := p.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	conf, err := p.configFor(account)
	if err != nil {
		return nil, err
	}
	return &persistingTokenSource{
		base: conf.TokenSource(ctx, tok),
		last: tok,
		save: func(t *oauth2.Token) error {
			return p.store.Save(account, t)
		},
		logger: logging.WithAccount(p.logger, account),
	}, nil
}

// HTTPClient returns an HTTP client authorized for account.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func (p *FileTokenProvider) HTTPClient(ctx context.Context, account string) (*http.Client, error) {
	ts, err := p.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(ctx, ts), nil
}

// NewHTTPClient wraps ts in an OAuth2 HTTP client forced onto HTTP/1.1.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)

	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.ForceAttemptHTTP2 = false
		transport.Base = base
	}
	return client
}

// persistingTokenSource saves a token whenever the wrapped source hands out a
// different access token than the one seen last.
type persistingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	last   *oauth2.Token
	save   func(*oauth2.Token) error
	logger *slog.Logger
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		if err := s.save(tok); err != nil {
			s.logger.Warn("failed to persist refreshed token", logging.Err(err))
		}
		s.last = tok
	}
	return tok, nil
}
