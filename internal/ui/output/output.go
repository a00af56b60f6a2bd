// Package output builds termenv outputs with the color profile incr uses on every stream.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// Profile returns Ascii when NO_COLOR is set or when running in CI, and the detected terminal
// profile otherwise.
func Profile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if os.Getenv("CI") != "" {
		return termenv.ANSI
	}
	return termenv.EnvColorProfile()
}

// New creates a termenv.Output on w. A nil writer means stderr.
func New(w io.Writer) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	return termenv.NewOutput(w, termenv.WithProfile(Profile()), termenv.WithTTY(true))
}
