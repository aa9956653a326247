// Package android adapts the device shell, property store, filesystem and
// package manager to the detect collaborator interfaces.
package android

import (
	"time"

	"github.com/sipeed/devguard/pkg/detect"
)

// NewProbes wires the shell-backed adapters around a single Shell.
func NewProbes(timeout time.Duration) (detect.Probes, detect.FingerprintReader) {
	shell := NewShell(timeout)
	props := Props{Shell: shell}
	return detect.Probes{
		Shell:    shell,
		Props:    props,
		Files:    Files{},
		Packages: Packages{Shell: shell},
	}, BuildReader{Props: props}
}
