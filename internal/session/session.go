// Package session establishes an authenticated browser session against
// the journal system's login page.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/journal-agent/internal/browser"
	"github.com/jonathan/journal-agent/internal/classify"
)

// ErrAuthFailed reports that credential submission did not yield a
// recognized authenticated page. The site returns no machine-readable
// auth result, so this is a marker-scan verdict.
var ErrAuthFailed = errors.New("login not accepted")

// Credentials for one run. Immutable once the run starts.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// Field identifiers vary between deployments of the system; each chain is
// ordered most reliable first.
var (
	usernameCandidates = []browser.Candidate{
		{Strategy: browser.ByID, Selector: "txtLoginID"},
		{Strategy: browser.ByName, Selector: "txtLoginID"},
	}
	passwordCandidates = []browser.Candidate{
		{Strategy: browser.ByID, Selector: "txtLoginPWD"},
		{Strategy: browser.ByName, Selector: "txtLoginPWD"},
	}
	loginButtonCandidates = []browser.Candidate{
		{Strategy: browser.ByID, Selector: "button"},
		{Strategy: browser.ByCSS, Selector: `input[value='登入']`},
	}
)

// Controller drives the login flow.
type Controller struct {
	Driver   browser.Driver
	Resolver *browser.Resolver
	Logger   *log.Logger

	// FieldTimeout bounds the wait for each locator candidate.
	FieldTimeout time.Duration
	// Settle is the pause after page-changing actions.
	Settle time.Duration
}

func (c *Controller) fieldTimeout() time.Duration {
	if c.FieldTimeout > 0 {
		return c.FieldTimeout
	}
	return 10 * time.Second
}

func (c *Controller) settle() time.Duration {
	if c.Settle > 0 {
		return c.Settle
	}
	return 3 * time.Second
}

// Login opens the endpoint, submits credentials, and verifies the result.
// Returns an error wrapping ErrAuthFailed when the page after submission
// carries no authenticated marker.
func (c *Controller) Login(ctx context.Context, creds Credentials) error {
	c.logf("[login] opening %s", creds.URL)
	if err := c.Driver.Navigate(ctx, creds.URL); err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	if err := browser.Wait(ctx, c.settle()); err != nil {
		return err
	}

	user, err := c.Resolver.Resolve(ctx, "account field", usernameCandidates, c.fieldTimeout())
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	pass, err := c.Resolver.Resolve(ctx, "password field", passwordCandidates, c.fieldTimeout())
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}

	if err := c.typeInto(ctx, user, creds.Username); err != nil {
		return fmt.Errorf("typing account: %w", err)
	}
	if err := c.typeInto(ctx, pass, creds.Password); err != nil {
		return fmt.Errorf("typing password: %w", err)
	}

	if err := c.submit(ctx, pass); err != nil {
		return err
	}
	if err := browser.Wait(ctx, c.settle()); err != nil {
		return err
	}

	html, err := c.Driver.PageHTML(ctx)
	if err != nil {
		return fmt.Errorf("reading post-login page: %w", err)
	}
	if !classify.Login(creds.Username).Matches(classify.VisibleText(html)) {
		return fmt.Errorf("%s: %w", creds.URL, ErrAuthFailed)
	}

	c.logf("[login] authenticated as %s", creds.Username)
	return nil
}

func (c *Controller) typeInto(ctx context.Context, el browser.Element, text string) error {
	if err := c.Driver.Clear(ctx, el); err != nil {
		return err
	}
	return c.Driver.Type(ctx, el, text)
}

// submit clicks the login control, falling back to Enter on the password
// field when no button candidate resolves.
func (c *Controller) submit(ctx context.Context, passwordField browser.Element) error {
	btn, err := c.Resolver.Resolve(ctx, "login button", loginButtonCandidates, c.fieldTimeout())
	switch {
	case err == nil:
		c.logf("[login] clicking login button")
		if err := c.Driver.Click(ctx, btn); err != nil {
			return fmt.Errorf("clicking login button: %w", err)
		}
		return nil
	case errors.Is(err, browser.ErrNotFound):
		c.logf("[login] no login button found, submitting with Enter")
		if err := c.Driver.PressEnter(ctx, passwordField); err != nil {
			return fmt.Errorf("keyboard submit: %w", err)
		}
		return nil
	default:
		return err
	}
}

func (c *Controller) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
