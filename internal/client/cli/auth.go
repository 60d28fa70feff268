package cli

import (
	"context"
	"fmt"
	"io"
	"time"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for email, username and password and creates an account.
// The server logs the new user in right away.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Register(ctx, email, userName, string(password)); err != nil {
		return err
	}

	a.userName = userName
	fmt.Fprintln(a.out, "Registered and logged in")
	return nil
}

// Login prompts for credentials and stores the returned token pair.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Login(ctx, email, string(password)); err != nil {
		return err
	}

	a.userName = email
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Status prints the identity the current access token belongs to.
func (a *App) Status(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	st, err := a.client.Status(ctx)
	if err != nil {
		return err
	}

	a.userName = st.Username
	printStatus(a.out, st.GetUserId(), st.GetEmail(), st.GetUsername(), st.GetAdmin(), st.GetRegisteredOn().AsTime())
	return nil
}

func printStatus(w io.Writer, id, email, username string, admin bool, registered time.Time) {
	fmt.Fprintf(w, "id:         %s\n", id)
	fmt.Fprintf(w, "email:      %s\n", email)
	fmt.Fprintf(w, "username:   %s\n", username)
	fmt.Fprintf(w, "admin:      %t\n", admin)
	fmt.Fprintf(w, "registered: %s\n", registered.Format(time.RFC3339))
}

// Refresh exchanges the refresh token for a new access token.
func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Access token refreshed")
	return nil
}

// Logout revokes the refresh token and forgets the session.
func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
