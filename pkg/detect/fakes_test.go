package detect

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/sipeed/devguard/pkg/logger"
)

var errBridge = errors.New("bridge unavailable")

type fakeShell struct {
	out   map[string]string
	err   error
	calls []string
}

func (f *fakeShell) Run(ctx context.Context, command string) (string, error) {
	f.calls = append(f.calls, command)
	if f.err != nil {
		return "", f.err
	}
	return f.out[command], nil
}

type fakeProps struct {
	values map[string]string
	err    error
	calls  []string
}

func (f *fakeProps) Property(ctx context.Context, key string) (string, error) {
	f.calls = append(f.calls, key)
	if f.err != nil {
		return "", f.err
	}
	return f.values[key], nil
}

type fakeFiles struct {
	present map[string]bool
	failing map[string]bool
	panics  bool
	calls   []string
}

func (f *fakeFiles) Exists(path string) (bool, error) {
	f.calls = append(f.calls, path)
	if f.panics {
		panic("stat exploded")
	}
	if f.failing[path] {
		return false, errBridge
	}
	return f.present[path], nil
}

type fakePackages struct {
	installed map[string]bool
	err       error
	calls     []string
}

func (f *fakePackages) Installed(ctx context.Context, pkg string) (bool, error) {
	f.calls = append(f.calls, pkg)
	if f.err != nil {
		return false, f.err
	}
	return f.installed[pkg], nil
}

type fakeFingerprint struct {
	fp    DeviceFingerprint
	calls int
}

func (f *fakeFingerprint) Fingerprint(ctx context.Context) DeviceFingerprint {
	f.calls++
	return f.fp
}

type fakeHost struct{ info HostInfo }

func (f fakeHost) Host() HostInfo { return f.info }

type fixture struct {
	shell    *fakeShell
	props    *fakeProps
	files    *fakeFiles
	packages *fakePackages
}

func newFixture() *fixture {
	return &fixture{
		shell:    &fakeShell{out: map[string]string{}},
		props:    &fakeProps{values: map[string]string{"ro.secure": "1", "ro.debuggable": "0"}},
		files:    &fakeFiles{present: map[string]bool{}, failing: map[string]bool{}},
		packages: &fakePackages{installed: map[string]bool{}},
	}
}

func (f *fixture) probes() Probes {
	return Probes{Shell: f.shell, Props: f.props, Files: f.files, Packages: f.packages}
}

func onPlatform(p Platform) PlatformFunc {
	return func() Platform { return p }
}

// captureLog routes console log output into a buffer at DEBUG level for
// the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.GetLevel()
	logger.SetOutput(&buf)
	logger.SetLevel(logger.DEBUG)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(prev)
	})
	return &buf
}
