package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/agentpark/internal/instrumentation/instrumentationtest"
)

// fakeTokenServer emulates the identity provider's token endpoint.
type fakeTokenServer struct {
	*httptest.Server
	refreshes   atomic.Int32
	exchanges   atomic.Int32
	failRefresh bool
}

func newFakeTokenServer(t *testing.T) *fakeTokenServer {
	t.Helper()

	f := &fakeTokenServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.PostForm.Get("grant_type") {
		case "refresh_token":
			f.refreshes.Add(1)
			if f.failRefresh {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "refreshed-access",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "authorization_code":
			f.exchanges.Add(1)
			if r.PostForm.Get("code") != "the-code" || r.PostForm.Get("code_verifier") == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "granted-access",
				"refresh_token": "granted-refresh",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeTokenServer) clientConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.URL + "/auth",
			TokenURL:  f.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

type stubAuthorizer struct {
	calls  int
	scopes []string
	tok    *oauth2.Token
	err    error
}

func (s *stubAuthorizer) Authorize(_ context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	s.calls++
	s.scopes = conf.Scopes
	return s.tok, s.err
}

func TestFileTokenProvider_ValidCachedToken(t *testing.T) {
	server := newFakeTokenServer(t)
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save(AccountCalendar, &oauth2.Token{
		AccessToken: "cached",
		Expiry:      time.Now().Add(time.Hour),
	}))

	auth := &stubAuthorizer{}
	p := NewFileTokenProvider(store, server.clientConfig(), WithAuthorizer(auth))

	tok, err := p.GetTokenForAccount(context.Background(), AccountCalendar)
	require.NoError(t, err)
	assert.Equal(t, "cached", tok.AccessToken)
	assert.Zero(t, server.refreshes.Load())
	assert.Zero(t, auth.calls)
	assert.True(t, p.HasTokenForAccount(AccountCalendar))
}

func TestFileTokenProvider_RefreshesExpiredToken(t *testing.T) {
	server := newFakeTokenServer(t)
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save(AccountGmail, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "keep-me",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	auth := &stubAuthorizer{}
	rec := instrumentationtest.NewRecorder(t)
	p := NewFileTokenProvider(store, server.clientConfig(), WithAuthorizer(auth), WithMetrics(rec.Metrics))

	tok, err := p.GetTokenForAccount(context.Background(), AccountGmail)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", tok.AccessToken)
	assert.Equal(t, int64(1), rec.Count(t, "oauth_token_refresh_total", map[string]string{"result": "success"}))
	assert.Equal(t, int32(1), server.refreshes.Load())
	assert.Zero(t, auth.calls)

	persisted, err := store.Load(AccountGmail)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", persisted.AccessToken)
	assert.Equal(t, "keep-me", persisted.RefreshToken)
}

func TestFileTokenProvider_LogsMaskedAccessToken(t *testing.T) {
	server := newFakeTokenServer(t)
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save(AccountGmail, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "keep-me",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := NewFileTokenProvider(store, server.clientConfig(), WithLogger(logger))

	_, err := p.GetTokenForAccount(context.Background(), AccountGmail)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "refreshed cached token")
	assert.Contains(t, buf.String(), "[token:16 chars]")
	assert.NotContains(t, buf.String(), "refreshed-access")
}

func TestFileTokenProvider_FailedRefreshFallsBackToConsent(t *testing.T) {
	server := newFakeTokenServer(t)
	server.failRefresh = true
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save(AccountGmail, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	auth := &stubAuthorizer{tok: &oauth2.Token{AccessToken: "fresh", RefreshToken: "new", Expiry: time.Now().Add(time.Hour)}}
	p := NewFileTokenProvider(store, server.clientConfig(), WithAuthorizer(auth))

	tok, err := p.GetTokenForAccount(context.Background(), AccountGmail)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/gmail.readonly"}, auth.scopes)

	persisted, err := store.Load(AccountGmail)
	require.NoError(t, err)
	assert.Equal(t, "fresh", persisted.AccessToken)
}

func TestFileTokenProvider_MissingTokenRunsConsent(t *testing.T) {
	server := newFakeTokenServer(t)
	store := NewFileStore(t.TempDir())

	auth := &stubAuthorizer{tok: &oauth2.Token{AccessToken: "granted", Expiry: time.Now().Add(time.Hour)}}
	p := NewFileTokenProvider(store, server.clientConfig(), WithAuthorizer(auth))

	tok, err := p.GetTokenForAccount(context.Background(), AccountCalendar)
	require.NoError(t, err)
	assert.Equal(t, "granted", tok.AccessToken)
	assert.True(t, store.Has(AccountCalendar))

	// Second call is served from the cache.
	_, err = p.GetTokenForAccount(context.Background(), AccountCalendar)
	require.NoError(t, err)
	assert.Equal(t, 1, auth.calls)
}

func TestFileTokenProvider_CorruptTokenRunsConsent(t *testing.T) {
	server := newFakeTokenServer(t)
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token_calendar.json"), []byte("{"), 0600))

	auth := &stubAuthorizer{tok: &oauth2.Token{AccessToken: "granted", Expiry: time.Now().Add(time.Hour)}}
	p := NewFileTokenProvider(store, server.clientConfig(), WithAuthorizer(auth))

	tok, err := p.GetTokenForAccount(context.Background(), AccountCalendar)
	require.NoError(t, err)
	assert.Equal(t, "granted", tok.AccessToken)
}

func TestFileTokenProvider_MissingTokenWithoutAuthorizer(t *testing.T) {
	server := newFakeTokenServer(t)
	p := NewFileTokenProvider(NewFileStore(t.TempDir()), server.clientConfig())

	_, err := p.GetTokenForAccount(context.Background(), AccountCalendar)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Contains(t, err.Error(), "agentpark auth calendar")
}

func TestFileTokenProvider_AuthorizerError(t *testing.T) {
	server := newFakeTokenServer(t)
	store := NewFileStore(t.TempDir())
	p := NewFileTokenProvider(store, server.clientConfig(), WithAuthorizer(&stubAuthorizer{err: errors.New("user closed the tab")}))

	_, err := p.GetTokenForAccount(context.Background(), AccountGmail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user closed the tab")
	assert.False(t, store.Has(AccountGmail))
}

func TestFileTokenProvider_UnknownAccount(t *testing.T) {
	server := newFakeTokenServer(t)
	p := NewFileTokenProvider(NewFileStore(t.TempDir()), server.clientConfig())

	_, err := p.GetTokenForAccount(context.Background(), "drive")
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestFileTokenProvider_NilClientConfig(t *testing.T) {
	p := NewFileTokenProvider(NewFileStore(t.TempDir()), nil)

	_, err := p.GetTokenForAccount(context.Background(), AccountGmail)
	assert.Error(t, err)
}

func TestFileTokenProvider_HTTPClient(t *testing.T) {
	server := newFakeTokenServer(t)
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save(AccountCalendar, &oauth2.Token{
		AccessToken: "cached",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	p := NewFileTokenProvider(store, server.clientConfig())
	client, err := p.HTTPClient(context.Background(), AccountCalendar)
	require.NoError(t, err)

	resp, err := client.Get(api.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer cached", gotAuth)
}

type sequenceTokenSource struct {
	tokens []*oauth2.Token
	i      int
}

func (s *sequenceTokenSource) Token() (*oauth2.Token, error) {
	tok := s.tokens[s.i]
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}

func TestPersistingTokenSource(t *testing.T) {
	first := &oauth2.Token{AccessToken: "a"}
	second := &oauth2.Token{AccessToken: "b"}

	var saved []string
	ts := &persistingTokenSource{
		base: &sequenceTokenSource{tokens: []*oauth2.Token{first, first, second, second}},
		last: first,
		save: func(tok *oauth2.Token) error {
			saved = append(saved, tok.AccessToken)
			return nil
		},
		logger: testLogger(),
	}

	for i := 0; i < 4; i++ {
		_, err := ts.Token()
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"b"}, saved, "only a changed access token is persisted")
}
