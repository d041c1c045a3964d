package cli

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/shared"
)

// getSimpleText, getPIN and getPassword are indirections used to facilitate
// testing.
var getSimpleText = GetSimpleText
var getPIN = GetPIN
var getPassword = GetPassword

// Register prompts for a username and PIN and creates an offline account,
// which is signed in on success. The PIN is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	pin, err := getPIN(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pin)

	u, err := a.accounts.Register(ctx, userName, pin)
	if err != nil {
		return err
	}
	a.userName = u.Username
	a.log.Info(ctx, "account registered", "user_id", u.ID)
	a.printf("Registered and signed in as %s\n", u.Username)
	return nil
}

// Login prompts for credentials and signs the user in.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	pin, err := getPIN(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pin)

	u, err := a.accounts.Login(ctx, userName, pin)
	if err != nil {
		return err
	}
	a.userName = u.Username
	a.printf("Signed in as %s\n", u.Username)
	return nil
}

// Logout forgets the signed-in user. Local images stay on the device.
func (a *App) Logout(ctx context.Context) error {
	if err := a.accounts.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	a.printf("Signed out\n")
	return nil
}
