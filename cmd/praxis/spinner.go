package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	spinnerFrameWidth = 2                     // braille frames render ~2 columns
	spinnerAnimDelay  = 80 * time.Millisecond // frame delay
	spinnerClearPad   = 5
)

// simpleSpinner animates on a TTY while a model call runs.
type simpleSpinner struct {
	frames   []string
	message  string
	w        io.Writer
	clearLen int

	stop chan struct{}
	wg   sync.WaitGroup
}

func newSimpleSpinner(w io.Writer, message string) *simpleSpinner {
	return &simpleSpinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message:  message,
		w:        w,
		clearLen: spinnerFrameWidth + 1 + len(message),
		stop:     make(chan struct{}),
	}
}

func (s *simpleSpinner) Start() {
	if !isTTY() {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		spinnerStyle := lipgloss.NewStyle().Foreground(colorPrimary)
		ticker := time.NewTicker(spinnerAnimDelay)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", spinnerStyle.Render(s.frames[i%len(s.frames)]), s.message)
			select {
			case <-s.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears the line. The goroutine has exited
// when Stop returns.
func (s *simpleSpinner) Stop() {
	close(s.stop)
	s.wg.Wait()
	if isTTY() {
		fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.clearLen+spinnerClearPad)+"\r")
	}
}

// withSpinner runs op with a spinner on w and returns its value.
func withSpinner[T any](w io.Writer, message string, op func() T) T {
	spin := newSimpleSpinner(w, message)
	spin.Start()
	defer spin.Stop()
	return op()
}
