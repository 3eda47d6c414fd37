package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAuthorizeTimeout bounds how long the consent flow waits for the user.
const DefaultAuthorizeTimeout = 5 * time.Minute

// redirectPath is where the identity provider sends the browser back to.
const redirectPath = "/oauth2/redirect"

// Authorizer obtains a fresh token through the identity provider's
// interactive consent flow.
type Authorizer interface {
	Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// LocalServerAuthorizer runs the installed-app flow: it listens on the
// loopback interface, sends the user to the consent page and exchanges the
// returned code (with PKCE) for a token.
type LocalServerAuthorizer struct {
	// Port for the redirect listener; 0 picks a free port.
	Port int

	// Timeout for the whole flow (default: DefaultAuthorizeTimeout).
	Timeout time.Duration

	// Out receives the consent URL (default: os.Stderr).
	Out io.Writer

	// OpenURL is called with the consent URL, e.g. to launch a browser.
	// When nil the URL is only printed.
	OpenURL func(url string) error

	Logger *slog.Logger
}

// consentResult is what the browser redirect delivered: a code or a reason
// the grant failed.
type consentResult struct {
	code string
	err  error
}

// Authorize implements Authorizer.
func (a *LocalServerAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthorizeTimeout
	}
	out := a.Out
	if out == nil {
		out = os.Stderr
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(a.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for oauth redirect: %w", err)
	}

	results := make(chan consentResult, 1)
	srv := &http.Server{
		Handler:           redirectHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(results, consentResult{err: err})
		}
	}()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			logger.Debug("oauth redirect listener shutdown failed", "error", err)
		}
	}()

	flowConf := *conf
	flowConf.RedirectURL = "http://" + listener.Addr().String() + redirectPath

	verifier := oauth2.GenerateVerifier()
	authURL := flowConf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintf(out, "Open the following URL in your browser to authorize access:\n\n%s\n\n", authURL)
	if a.OpenURL != nil {
		if err := a.OpenURL(authURL); err != nil {
			logger.Warn("could not open browser, use the printed URL", "error", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var res consentResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("timeout waiting for authorization redirect: %w", waitCtx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := flowConf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// redirectHandler validates the provider's redirect against state and hands
// the first outcome to results. Later redirects are answered but dropped.
func redirectHandler(state string, results chan<- consentResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+redirectPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := consentResult{code: q.Get("code")}
		status := http.StatusOK
		message := "agentpark is authorized. You can close this window."

		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s - %s", q.Get("error"), q.Get("error_description"))
			message = "Authorization failed: " + q.Get("error")
		case q.Get("state") != state:
			res.err = errors.New("oauth state mismatch")
			status = http.StatusBadRequest
			message = "Authorization failed: invalid state parameter"
		case res.code == "":
			res.err = errors.New("no authorization code received")
			status = http.StatusBadRequest
			message = "Authorization failed: no code received"
		}

		deliver(results, res)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>agentpark</title></head><body><p>%s</p></body></html>",
			html.EscapeString(message))
	})
	return mux
}

func deliver(results chan<- consentResult, res consentResult) {
	select {
	case results <- res:
	default:
	}
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// OpenBrowser opens url with the platform's default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
