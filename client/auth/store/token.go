package store

import (
	"context"

	"golang.org/x/oauth2"
)

// Token converts the pair to an oauth2 bearer token. Expiry is left zero
// because the server never discloses it to this client.
func (c *Credentials) Token() *oauth2.Token {
	if c == nil {
		return nil
	}
	return &oauth2.Token{AccessToken: c.Access, RefreshToken: c.Refresh, TokenType: "Bearer"}
}

type tokenSource struct {
	ctx   context.Context
	store Store
}

// Token returns the stored access token or ErrNoCredentials.
func (t *tokenSource) Token() (*oauth2.Token, error) {
	credentials, err := t.store.Read(t.ctx)
	if err != nil {
		return nil, err
	}
	if credentials == nil || credentials.Access == "" {
		return nil, ErrNoCredentials
	}
	return credentials.Token(), nil
}

// TokenSource exposes the store's current access token to oauth2 consumers.
// It never refreshes; renewal is driven by 401 responses in the transport.
func TokenSource(ctx context.Context, store Store) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, store: store}
}
