package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/civicsync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errLoginFailed = errors.New("login failed: check your credentials and that the account is verified")

// Login prompts for a username or email and a password and signs in.
func (a *App) Login(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Enter username or email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if !a.core.Login(ctx, identifier, string(password)) {
		return errLoginFailed
	}

	u := a.core.GetCurrentSession()
	printlnFn(fmt.Sprintf("Signed in as %s (%s)", u.Username, u.Kind))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.core.Logout(ctx)
	printlnFn("Signed out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u := a.core.GetCurrentSession()
	if u == nil {
		printlnFn("Not signed in")
		return nil
	}
	printlnFn(fmt.Sprintf("%s <%s> %s, verified: %t", u.Username, u.Email, u.Kind, u.Verified))
	return nil
}
