// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// spinner.go - Single-line progress indicator.
//
// The spinner owns the current terminal line while active. Anything else
// printed during that time (previews, cost summaries, prompts) must go
// through Write or Suspend so the line is cleared first and redrawn after.

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

const clearLine = "\r\x1b[2K"

// Spinner shows a message with an animated frame. When animate is false
// (output is not a terminal) it prints start and stop lines only.
type Spinner struct {
	mu       sync.Mutex
	out      io.Writer
	animate  bool
	width    int
	frames   []string
	interval time.Duration

	msg    string
	frame  int
	active bool
	paused bool
	drawn  bool

	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner writing to out. width is the terminal width
// used to keep the spinner on one line.
func NewSpinner(out io.Writer, animate bool, width int) *Spinner {
	style := spinner.MiniDot
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	return &Spinner{
		out:      out,
		animate:  animate,
		width:    width,
		frames:   style.Frames,
		interval: style.FPS,
	}
}

// Start shows msg and begins animating. Starting an active spinner only
// replaces its message.
func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msg = msg
	if s.active {
		s.drawLocked()
		return
	}

	s.active = true
	s.paused = false
	s.frame = 0

	if !s.animate {
		fmt.Fprintf(s.out, "%s  %s\n", InfoStyle.Render(symbolActive), msg)
		return
	}

	s.drawLocked()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

// Message replaces the text next to the spinner.
func (s *Spinner) Message(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msg = msg
	if s.active {
		s.drawLocked()
	}
}

// Stop ends the spinner and prints msg as a completed step.
func (s *Spinner) Stop(msg string) {
	s.finish(SuccessStyle.Render(symbolStep), msg)
}

// Fail ends the spinner and prints msg as a failed step.
func (s *Spinner) Fail(msg string) {
	s.finish(ErrorStyle.Render(symbolError), msg)
}

func (s *Spinner) finish(symbol, msg string) {
	s.mu.Lock()
	stop, done := s.stop, s.done
	wasActive := s.active
	s.active = false
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if wasActive {
		s.clearLocked()
	}
	fmt.Fprintf(s.out, "%s  %s\n", symbol, msg)
}

// Write prints p above the spinner line.
func (s *Spinner) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	n, err := s.out.Write(p)
	if s.active && len(p) > 0 && p[len(p)-1] == '\n' {
		s.drawLocked()
	}
	return n, err
}

// Suspend clears the spinner line and stops redrawing until the returned
// function is called. Used around interactive prompts.
func (s *Spinner) Suspend() (resume func()) {
	s.mu.Lock()
	s.paused = true
	s.clearLocked()
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.paused = false
		if s.active {
			s.drawLocked()
		}
	}
}

// Active reports whether the spinner is running.
func (s *Spinner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Spinner) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(s.frames)
			s.drawLocked()
			s.mu.Unlock()
		}
	}
}

// drawLocked renders the spinner line. Caller holds mu.
func (s *Spinner) drawLocked() {
	if !s.animate || !s.active || s.paused {
		return
	}
	frame := InfoStyle.Render(s.frames[s.frame])
	line := lipgloss.NewStyle().MaxWidth(s.width - 4).Render(strings.ReplaceAll(s.msg, "\n", " "))
	fmt.Fprintf(s.out, "%s%s  %s", clearLine, frame, line)
	s.drawn = true
}

// clearLocked erases a drawn spinner line. Caller holds mu.
func (s *Spinner) clearLocked() {
	if s.drawn {
		io.WriteString(s.out, clearLine)
		s.drawn = false
	}
}
