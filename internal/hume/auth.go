package hume

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenProvider yields access tokens for the EVI websocket.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Authenticator fetches client-credentials tokens and reuses them until they expire.
type Authenticator struct {
	cc     clientcredentials.Config
	client *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

// NewAuthenticator builds an authenticator that sends the API key and secret
// as HTTP Basic credentials. httpClient may be nil.
func NewAuthenticator(apiKey, secretKey, tokenURL string, httpClient *http.Client) *Authenticator {
	return &Authenticator{
		cc: clientcredentials.Config{
			ClientID:     apiKey,
			ClientSecret: secretKey,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: httpClient,
	}
}

// Token returns a valid access token. A fetch is bound to ctx.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tok.Valid() {
		return a.tok.AccessToken, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	}
	tok, err := a.cc.Token(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: failed to get access token: %v", ErrAuth, err)
	}
	a.tok = tok
	return tok.AccessToken, nil
}
