package util

import (
	"context"

	"github.com/charmbracelet/huh/spinner"
)

// Spinner shows a message with a spinner on the terminal until it is stopped.
type Spinner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	spinner *spinner.Spinner
}

func NewSpinner(c context.Context, msg string) *Spinner {
	ctx, cancel := context.WithCancel(c)
	s := &Spinner{
		ctx:    ctx,
		cancel: cancel,
	}
	s.spinner = spinner.New().Context(ctx).Title(msg)
	go s.spinner.Run()
	return s
}

// Title changes the message of the spinner.
func (s *Spinner) Title(msg string) {
	s.spinner.Title(msg)
}

func (s *Spinner) Stop() {
	s.cancel()
}

type Task func() error

// RunTaskWithSpinner runs the task while showing the message. The spinner is skipped when quiet is true.
func RunTaskWithSpinner(ctx context.Context, msg string, quiet bool, task Task) error {
	if quiet {
		return task()
	}
	s := NewSpinner(ctx, msg)
	defer s.Stop()
	return task()
}
