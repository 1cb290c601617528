package autoposter

import "fmt"

// Display shows a short status line, such as a terminal window title.
//
// SetTitle is called while the poster holds its counter lock, so
// implementations must be quick and must not call back into the [Poster].
type Display interface {
	SetTitle(title string)
}

// DisplayFunc adapts a plain function to [Display].
type DisplayFunc func(title string)

// SetTitle calls f(title).
func (f DisplayFunc) SetTitle(title string) {
	f(title)
}

// sentTitle formats the status line for n successful sends.
func sentTitle(n uint64) string {
	return fmt.Sprintf("Messages sent: %d", n)
}
