//go:build !webview

package gui

// Stub implementation when webview is not compiled in.
// Build with -tags webview to enable the application window.

// Available always returns false without webview
func Available() bool {
	return false
}

// Run is unavailable without webview
func Run(_, _ string, _ <-chan struct{}) error {
	return ErrUnavailable
}
