package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Spinner shows an animated indicator while a ping is in flight.
// Example: |  Pinging C (3s elapsed)
type Spinner struct {
	mu      sync.Mutex
	message string
	writer  io.Writer
	running bool
	started time.Time
	done    chan struct{}
	wg      sync.WaitGroup
}

var spinnerFrames = []string{"|", "/", "-", "\\"}

// NewSpinner creates a spinner writing to stdout.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, writer: os.Stdout}
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. On a non-TTY writer the message is printed
// once instead.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.animate(s.done)
}

func (s *Spinner) animate(done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ticker.C:
			s.mu.Lock()
			elapsed := int(time.Since(s.started).Seconds())
			fmt.Fprintf(s.writer, "\r%s  %s (%ds elapsed)", spinnerFrames[i%len(spinnerFrames)], s.message, elapsed)
			s.mu.Unlock()
		case <-done:
			return
		}
	}
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+24))
}

// StopWithMessage stops the spinner and prints a final line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
