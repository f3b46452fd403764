package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner animates a status line on a terminal. On any other writer it
// prints nothing, so reports piped to a file stay clean.
type Spinner struct {
	w       io.Writer
	active  bool
	mu      sync.Mutex
	message string
	width   int // display width of the last frame written

	done    chan struct{}
	cleared chan struct{}
	once    sync.Once
}

// Start begins animating message on w if w is a terminal.
func Start(w io.Writer, message string) *Spinner {
	return start(w, message, isTerminal(w))
}

func start(w io.Writer, message string, enabled bool) *Spinner {
	s := &Spinner{w: w, active: enabled, message: message, done: make(chan struct{}), cleared: make(chan struct{})}
	if !enabled {
		close(s.cleared)
		return s
	}
	go s.loop()
	return s
}

// Active reports whether the spinner draws on its writer. Other output to
// the same terminal should be kept quiet while it is active.
func (s *Spinner) Active() bool {
	return s.active
}

// Update replaces the message shown next to the spinner.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
	<-s.cleared
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-s.done:
			s.clear()
			close(s.cleared)
			return
		case <-ticker.C:
			s.frame(frames[i%len(frames)])
		}
	}
}

func (s *Spinner) frame(f string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := f + " " + s.message
	w := runewidth.StringWidth(line)
	pad := ""
	if w < s.width {
		pad = strings.Repeat(" ", s.width-w)
	}
	fmt.Fprintf(s.w, "\r%s%s", line, pad) //nolint:errcheck
	s.width = w
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width)) //nolint:errcheck
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
