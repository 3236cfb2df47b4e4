package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	barFilled = "█"
	barEmpty  = "░"
	barWidth  = 30
)

// Console prints progress bars and messages for a human at a terminal. When
// the writer is not a terminal it prints one line per update instead of
// redrawing the bar in place.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	isTTY   bool
	barOpen bool
}

// NewConsole creates a Console on w. A nil w means os.Stderr.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{w: w, isTTY: isTerminalWriter(w)}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (c *Console) Progress(stage Stage, done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frac := Fraction(done, total)
	filled := int(frac * barWidth)
	bar := strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, barWidth-filled)
	line := fmt.Sprintf("%-12s %s %3.0f%% (%d/%d)", stage, bar, frac*100, done, total)

	if !c.isTTY {
		fmt.Fprintln(c.w, line)
		return
	}
	fmt.Fprintf(c.w, "\r%s", line)
	c.barOpen = done < total
	if !c.barOpen {
		fmt.Fprintln(c.w)
	}
}

func (c *Console) Info(e Event) {
	c.print("", e)
}

func (c *Console) Warn(e Event) {
	c.print("warning: ", e)
}

func (c *Console) Error(e Event) {
	c.print("error: ", e)
}

func (c *Console) print(prefix string, e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.barOpen {
		fmt.Fprintln(c.w)
		c.barOpen = false
	}
	fmt.Fprintf(c.w, "%s%s\n", prefix, e)
}
