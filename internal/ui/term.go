package ui

import (
	"io"
	"os"

	"golang.org/x/term"
)

const defaultWidth = 80

// Terminal reports whether w is an interactive terminal and, if so, its
// width in columns. Anything other than an *os.File is not a terminal.
func Terminal(w io.Writer) (isTTY bool, width int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: fds fit int
		return false, defaultWidth
	}
	cols, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // G115: fds fit int
	if err != nil || cols <= 0 {
		return true, defaultWidth
	}
	return true, cols
}
