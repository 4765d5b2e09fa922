// Package gui opens the form in a native application window.
package gui

import "errors"

// Default window size
const (
	Width  = 1280
	Height = 800
)

// ErrUnavailable is returned when the binary was built without a window
var ErrUnavailable = errors.New("built without webview, rebuild with: go build -tags webview")
