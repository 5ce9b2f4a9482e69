// Package auth owns the Google OAuth credential lifecycle: reading the
// client secret, caching the user token across restarts, running the
// one-time consent flow, and refreshing access tokens.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/taskbridge/pkg/provider"
)

// LocalhostAuthPort is the port the local web server listens on to
// capture the OAuth redirect during the consent flow. The redirect URI
// registered in the Google Cloud console must use the same port.
const LocalhostAuthPort = "6789"

// Options locates the credential files. Both paths are configurable so a
// container can mount them from a volume.
type Options struct {
	ClientSecretPath string
	TokenCachePath   string
}

// NewClient returns an *http.Client that authenticates as the cached
// Google user and transparently refreshes the access token. Refreshed
// tokens are persisted to the cache file before being used, and only one
// refresh is in flight at a time.
//
// If no token is cached yet, the interactive consent flow runs first.
func NewClient(ctx context.Context, opts Options) (*http.Client, error) {
	config, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(opts.TokenCachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		log.Printf("No cached Google token at %s, starting consent flow", opts.TokenCachePath)
		tok, err = tokenFromWeb(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("consent flow failed: %w", err)
		}
		if err := saveToken(opts.TokenCachePath, tok); err != nil {
			return nil, err
		}
	}

	src := &persistingTokenSource{
		base: config.TokenSource(ctx, tok),
		path: opts.TokenCachePath,
		last: tok,
	}
	return oauth2.NewClient(ctx, src), nil
}

// Authorize discards any cached token and runs the consent flow from
// scratch. Used by the auth subcommand.
func Authorize(ctx context.Context, opts Options) error {
	config, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := os.Remove(opts.TokenCachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove token cache %s: %w", opts.TokenCachePath, err)
	}
	tok, err := tokenFromWeb(ctx, config)
	if err != nil {
		return err
	}
	return saveToken(opts.TokenCachePath, tok)
}

func loadConfig(opts Options) (*oauth2.Config, error) {
	b, err := os.ReadFile(opts.ClientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", opts.ClientSecretPath, err)
	}
	config, err := google.ConfigFromJSON(b, tasks.TasksScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	config.RedirectURL = fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	return config, nil
}

// tokenFromWeb runs the authorization code flow via a local web server:
// the user opens the printed URL, grants access, and Google redirects the
// browser back to localhost with the code.
func tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", ":"+LocalhostAuthPort)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				errCh <- fmt.Errorf("authorization code not found in redirect URL")
				return
			}
			fmt.Fprint(w, "Authentication successful! You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer server.Shutdown(context.Background())

	// AccessTypeOffline is required to get a refresh token back.
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Open the following URL in your browser to authorize taskbridge:\n%s\n", authURL)
	log.Println("Waiting for authorization code...")

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to exchange code for token: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out, please try again")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	return nil
}

// wrapRefreshError classifies token refresh failures so the engine can
// tell an expired grant from a flaky network.
func wrapRefreshError(err error) error {
	if rerr, ok := err.(*oauth2.RetrieveError); ok {
		if rerr.Response != nil && rerr.Response.StatusCode >= 500 {
			return &provider.UnavailableError{Provider: "google", Status: rerr.Response.StatusCode, Err: err}
		}
		return &provider.CredentialError{Provider: "google", Err: err}
	}
	return &provider.CredentialError{Provider: "google", Err: err}
}
