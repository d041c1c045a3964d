package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/users"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/lockout"
	"github.com/dmitrijs2005/gophgallery/internal/shared"
	"github.com/google/uuid"
)

const (
	MinPINLength = 4
	MaxPINLength = 6
)

// Accounts registers and signs in offline accounts. The signed-in user id is
// kept in the metadata table so it survives restarts.
type Accounts struct {
	users    users.Repository
	meta     metadata.Repository
	session  *Session
	attempts *lockout.Tracker
	now      func() time.Time
}

func NewAccounts(u users.Repository, meta metadata.Repository, s *Session) *Accounts {
	return &Accounts{
		users:    u,
		meta:     meta,
		session:  s,
		attempts: lockout.New(lockout.DefaultMaxAttempts, lockout.DefaultDuration),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ValidatePIN accepts MinPINLength to MaxPINLength ASCII digits.
func ValidatePIN(pin []byte) error {
	if len(pin) < MinPINLength || len(pin) > MaxPINLength {
		return fmt.Errorf("%w: pin must be %d to %d digits", common.ErrInvalidRecord, MinPINLength, MaxPINLength)
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: pin must contain only digits", common.ErrInvalidRecord)
		}
	}
	return nil
}

// Register creates an account and signs it in.
func (a *Accounts) Register(ctx context.Context, username string, pin []byte) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrInvalidRecord)
	}
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}

	salt, err := shared.GenerateRandByteArray(cryptox.SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	u := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		PINHash:   cryptox.DerivePINHash(pin, salt),
		Salt:      salt,
		CreatedAt: a.now(),
	}
	if err := a.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := a.signIn(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the PIN and signs the user in. Unknown users and wrong PINs
// both return common.ErrInvalidCredentials. After lockout.DefaultMaxAttempts
// failures the username is refused with common.ErrTooManyAttempts until the
// lockout passes.
func (a *Accounts) Login(ctx context.Context, username string, pin []byte) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := a.attempts.Check(username); err != nil {
		return nil, err
	}
	u, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, common.ErrNotFound) {
		a.attempts.Record(username, false)
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !cryptox.VerifyPIN(pin, u.Salt, u.PINHash) {
		a.attempts.Record(username, false)
		return nil, common.ErrInvalidCredentials
	}
	a.attempts.Record(username, true)
	if err := a.signIn(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (a *Accounts) Logout(ctx context.Context) error {
	if err := a.meta.Delete(ctx, metadata.KeyCurrentUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	a.session.setUser("")
	return nil
}

// Restore signs in the user saved by a previous run, if any.
func (a *Accounts) Restore(ctx context.Context) (*models.User, error) {
	id, err := a.meta.Get(ctx, metadata.KeyCurrentUser)
	if err != nil {
		return nil, err
	}
	if len(id) == 0 {
		return nil, nil
	}
	u, err := a.users.GetByID(ctx, string(id))
	if errors.Is(err, common.ErrNotFound) {
		return nil, a.Logout(ctx)
	}
	if err != nil {
		return nil, err
	}
	a.session.setUser(u.ID)
	return u, nil
}

func (a *Accounts) signIn(ctx context.Context, id string) error {
	if err := a.meta.Set(ctx, metadata.KeyCurrentUser, []byte(id)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.session.setUser(id)
	return nil
}
