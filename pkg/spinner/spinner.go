package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Spinner renders a terminal progress indicator for one pipeline stage.
type Spinner struct {
	frames []string
	delay  time.Duration
	out    io.Writer

	mu      sync.Mutex
	message string
	active  bool
	done    chan struct{}
}

func New(message string) *Spinner {
	return &Spinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		delay:   100 * time.Millisecond,
		out:     os.Stdout,
		message: message,
	}
}

// NewWithWriter is used by tests to capture output.
func NewWithWriter(message string, out io.Writer) *Spinner {
	s := New(message)
	s.out = out
	return s
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		i := 0
		ticker := time.NewTicker(s.delay)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r%s %s", s.frames[i%len(s.frames)], s.message)
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// Update swaps the message while the spinner keeps running.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Succeed stops the spinner and leaves a checkmark line behind.
func (s *Spinner) Succeed(message string) {
	s.finish("✓", message)
}

// Fail stops the spinner and leaves a cross line behind.
func (s *Spinner) Fail(message string) {
	s.finish("✕", message)
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.done)
	width := len(s.message) + 10
	s.mu.Unlock()

	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", width)+"\r")
}

func (s *Spinner) finish(mark, message string) {
	s.Stop()
	fmt.Fprintf(s.out, "%s %s\n", mark, message)
}
