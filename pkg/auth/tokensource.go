package auth

import (
	"log"
	"sync"

	"golang.org/x/oauth2"
)

// persistingTokenSource serializes token refreshes and writes every new
// token to the cache file before handing it out, so a restart never loses
// a rotated refresh token and two concurrent callers never race a
// refresh.
type persistingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last *oauth2.Token
}

// Token implements oauth2.TokenSource.
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		return nil, wrapRefreshError(err)
	}

	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			// The token is still usable this cycle; losing the persisted
			// copy only costs a re-consent after a restart.
			log.Printf("Warning: could not persist refreshed Google token: %v", err)
		}
		s.last = tok
	}
	return tok, nil
}
