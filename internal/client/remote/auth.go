package remote

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// TokenSource returns the bearer token for calls made on behalf of ownerID.
// Owners without a mirror session get an error wrapping common.ErrUnauthorized.
type TokenSource interface {
	Token(ctx context.Context, ownerID string) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context, ownerID string) (string, error)

func (f TokenFunc) Token(ctx context.Context, ownerID string) (string, error) {
	return f(ctx, ownerID)
}

// StaticToken serves one token for ownerID and refuses every other owner.
func StaticToken(ownerID, token string) TokenSource {
	return TokenFunc(func(_ context.Context, owner string) (string, error) {
		if owner != ownerID {
			return "", fmt.Errorf("%w: no mirror token for owner %q", common.ErrUnauthorized, owner)
		}
		return token, nil
	})
}

// tokenRefresher is implemented by token sources that can replace an access
// token the server reported as expired.
type tokenRefresher interface {
	RefreshToken(ctx context.Context, ownerID string) (string, error)
}

// Authenticator manages mirror accounts. Tokens it returns are scoped to the
// account id, which is the owner id of the records it may touch.
type Authenticator interface {
	Register(ctx context.Context, in api.Credentials) (api.AuthTokens, error)
	Login(ctx context.Context, in api.Credentials) (api.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (api.AuthTokens, error)
}
