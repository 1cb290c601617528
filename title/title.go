// Package title sets the terminal window title.
//
// It implements autoposter.Display for interactive runs: the poster's
// "Messages sent: N" line shows up in the terminal tab instead of the log.
package title

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Terminal writes OSC 0 title sequences to a terminal.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
}

// NewTerminal returns a [Terminal] writing to w.
//
// Titles are only written when w is an *os.File attached to a terminal, so
// redirected output and log files never receive escape sequences.
func NewTerminal(w io.Writer) *Terminal {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = term.IsTerminal(int(f.Fd()))
	}
	return &Terminal{w: w, enabled: enabled}
}

// Enabled reports whether titles are written, that is whether the writer
// is a terminal.
func (t *Terminal) Enabled() bool {
	return t.enabled
}

// SetTitle writes the title sequence. Control characters in s are dropped so
// they cannot end the sequence early.
func (t *Terminal) SetTitle(s string) {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.w, "\x1b]0;%s\x07", sanitize(s))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
