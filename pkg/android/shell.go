package android

import (
	"context"
	"fmt"
	"time"
)

const DefaultShellTimeout = 3 * time.Second

// Shell runs command lines through "sh -c". Every command is bounded by
// Timeout so a blocked su prompt cannot hang an evaluation.
type Shell struct {
	Timeout time.Duration
}

func NewShell(timeout time.Duration) *Shell {
	if timeout <= 0 {
		timeout = DefaultShellTimeout
	}
	return &Shell{Timeout: timeout}
}

func (s *Shell) Run(ctx context.Context, command string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	out, err := runShellImpl(ctx, command)
	if err != nil {
		return "", fmt.Errorf("sh -c %q failed: %w", command, err)
	}
	return out, nil
}
