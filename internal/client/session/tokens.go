package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/client/remote"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// tokenPrefix keys the mirror tokens of one local account.
const tokenPrefix = "mirror.tokens."

// refreshBefore is how long before expiry an access token is replaced.
const refreshBefore = time.Minute

// MirrorTokens keeps each local account's mirror tokens in the metadata
// table and serves them as a remote.TokenSource. A token is only ever
// returned for the account it was issued to.
type MirrorTokens struct {
	meta metadata.Repository
	auth remote.Authenticator

	mu  sync.Mutex
	now func() time.Time
}

func NewMirrorTokens(meta metadata.Repository, auth remote.Authenticator) *MirrorTokens {
	return &MirrorTokens{
		meta: meta,
		auth: auth,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Save stores tokens for ownerID. The mirror account must be the local
// account itself; tokens for any other id are refused with ErrForbidden.
func (m *MirrorTokens) Save(ctx context.Context, ownerID string, t api.AuthTokens) error {
	if ownerID == "" || t.UserID != ownerID {
		return fmt.Errorf("%w: mirror account %q is not local account %q", common.ErrForbidden, t.UserID, ownerID)
	}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode mirror tokens: %w", err)
	}
	if err := m.meta.Set(ctx, tokenPrefix+ownerID, b); err != nil {
		return fmt.Errorf("save mirror tokens: %w", err)
	}
	return nil
}

// Forget drops the stored tokens for ownerID.
func (m *MirrorTokens) Forget(ctx context.Context, ownerID string) error {
	return m.meta.Delete(ctx, tokenPrefix+ownerID)
}

// Has reports whether ownerID has a stored mirror session.
func (m *MirrorTokens) Has(ctx context.Context, ownerID string) (bool, error) {
	b, err := m.meta.Get(ctx, tokenPrefix+ownerID)
	if err != nil {
		return false, err
	}
	return len(b) > 0, nil
}

// Token returns the access token of ownerID, refreshing it when it is about
// to expire.
func (m *MirrorTokens) Token(ctx context.Context, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.load(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if t.ExpiresAt.IsZero() || m.now().Add(refreshBefore).Before(t.ExpiresAt) {
		return t.AccessToken, nil
	}
	return m.refresh(ctx, ownerID, t)
}

// RefreshToken replaces the access token of ownerID regardless of its
// recorded expiry.
func (m *MirrorTokens) RefreshToken(ctx context.Context, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.load(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return m.refresh(ctx, ownerID, t)
}

func (m *MirrorTokens) load(ctx context.Context, ownerID string) (api.AuthTokens, error) {
	var t api.AuthTokens
	b, err := m.meta.Get(ctx, tokenPrefix+ownerID)
	if err != nil {
		return t, fmt.Errorf("load mirror tokens: %w", err)
	}
	if len(b) == 0 {
		return t, fmt.Errorf("%w: no mirror session for %q", common.ErrUnauthorized, ownerID)
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("decode mirror tokens: %w", err)
	}
	return t, nil
}

func (m *MirrorTokens) refresh(ctx context.Context, ownerID string, t api.AuthTokens) (string, error) {
	if m.auth == nil || t.RefreshToken == "" {
		return "", fmt.Errorf("%w: mirror session for %q expired", common.ErrTokenExpired, ownerID)
	}
	next, err := m.auth.Refresh(ctx, t.RefreshToken)
	if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
		_ = m.Forget(ctx, ownerID)
		return "", err
	}
	if err != nil {
		return "", err
	}
	if err := m.Save(ctx, ownerID, next); err != nil {
		return "", err
	}
	return next.AccessToken, nil
}
