//go:build !linux

package android

import (
	"context"
	"fmt"
)

func runShellImpl(ctx context.Context, command string) (string, error) {
	return "", fmt.Errorf("shell commands are only available on Linux/Android")
}
