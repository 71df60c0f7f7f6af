package app

import "github.com/atotto/clipboard"

// SystemClipboard writes through the platform clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
