package mastersheet

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Opener hands a download URL to the user.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// BrowserOpener opens the URL in the desktop's default browser.
type BrowserOpener struct{}

// Open starts the platform URL handler and does not wait for it.
func (BrowserOpener) Open(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		cmd = exec.CommandContext(ctx, "xdg-open", url) //nolint:gosec // URL comes from our API
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url) //nolint:gosec // URL comes from our API
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url) //nolint:gosec // URL comes from our API
	default:
		return fmt.Errorf("no browser launcher for %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// PrintOpener writes the URL instead of opening it.
type PrintOpener struct {
	W io.Writer
}

// Open prints url on its own line.
func (p PrintOpener) Open(_ context.Context, url string) error {
	_, err := fmt.Fprintln(p.W, url)
	return err
}
