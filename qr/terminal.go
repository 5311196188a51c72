package qr

import (
	"io"

	"github.com/mdp/qrterminal/v3"
)

// WriteTerminal draws text as a level H symbol using half-block characters.
func WriteTerminal(w io.Writer, raw string) error {
	text, err := ValidateText(raw)
	if err != nil {
		return err
	}
	qrterminal.GenerateHalfBlock(text, qrterminal.H, w)
	return nil
}
