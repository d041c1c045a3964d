package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/shared"
)

var errNoMirrorAccounts = errors.New("mirror accounts need a mirror server, start with -m")

// CloudRegister creates a mirror account for the signed-in local account.
// The mirror account id is the local user id, so the records this device
// queues for the user are the ones the mirror accepts from its token.
func (a *App) CloudRegister(ctx context.Context) error {
	if a.auth == nil {
		return errNoMirrorAccounts
	}
	pw, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pw)

	userID := a.session.CurrentUserID()
	tokens, err := a.auth.Register(ctx, api.Credentials{UserID: userID, Username: a.userName, Password: string(pw)})
	if err != nil {
		return err
	}
	if err := a.tokens.Save(ctx, userID, tokens); err != nil {
		return err
	}
	a.log.Info(ctx, "mirror account registered", "user_id", userID)
	a.printf("Mirror account created for %s\n", a.userName)
	return nil
}

// CloudLogin signs the local account in to its mirror account. An empty
// username means the local one.
func (a *App) CloudLogin(ctx context.Context) error {
	if a.auth == nil {
		return errNoMirrorAccounts
	}
	name, err := getSimpleText(a.reader, fmt.Sprintf("Enter mirror username [%s]", a.userName), a.out)
	if err != nil {
		return err
	}
	if name == "" {
		name = a.userName
	}
	pw, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pw)

	tokens, err := a.auth.Login(ctx, api.Credentials{Username: name, Password: string(pw)})
	if err != nil {
		return err
	}
	if err := a.tokens.Save(ctx, a.session.CurrentUserID(), tokens); err != nil {
		return err
	}
	a.printf("Signed in to the mirror as %s\n", name)
	return nil
}

// CloudLogout forgets the mirror tokens of the signed-in account. Queued
// changes wait until the account signs in again.
func (a *App) CloudLogout(ctx context.Context) error {
	if err := a.tokens.Forget(ctx, a.session.CurrentUserID()); err != nil {
		return err
	}
	a.printf("Signed out of the mirror\n")
	return nil
}
