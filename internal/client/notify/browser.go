package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/browser"
)

// BrowserNavigator sends the user to the login URL. The URL is always
// printed; it is opened in the default browser only when enabled.
type BrowserNavigator struct {
	loginURL string
	enabled  bool
	w        io.Writer
	openURL  func(string) error
}

func NewBrowserNavigator(loginURL string, enabled bool, w io.Writer) *BrowserNavigator {
	return &BrowserNavigator{
		loginURL: loginURL,
		enabled:  enabled,
		w:        w,
		openURL:  browser.OpenURL,
	}
}

func (n *BrowserNavigator) RedirectToLogin(ctx context.Context) error {
	fmt.Fprintf(n.w, "Log in at %s\n", n.loginURL)
	if !n.enabled {
		return nil
	}
	if err := n.openURL(n.loginURL); err != nil {
		return fmt.Errorf("could not open browser: %w", err)
	}
	return nil
}
