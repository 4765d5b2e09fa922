//go:build webview

package gui

import (
	webview "github.com/webview/webview_go"
)

// Available reports whether a native window can be opened
func Available() bool {
	return true
}

// Run opens a window on url and blocks until it is closed or done is
// closed.
func Run(title, url string, done <-chan struct{}) error {
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle(title)
	w.SetSize(Width, Height, webview.HintNone)
	w.Navigate(url)

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-done:
			w.Terminate()
		case <-finished:
		}
	}()

	// Run blocks until the window is closed
	w.Run()
	return nil
}
