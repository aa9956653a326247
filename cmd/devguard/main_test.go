package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sipeed/devguard/pkg/config"
	"github.com/sipeed/devguard/pkg/detect"
	"github.com/sipeed/devguard/pkg/logger"
)

type stubShell map[string]string

func (s stubShell) Run(ctx context.Context, command string) (string, error) {
	return s[command], nil
}

type stubProps map[string]string

func (p stubProps) Property(ctx context.Context, key string) (string, error) {
	return p[key], nil
}

type noFiles struct{}

func (noFiles) Exists(string) (bool, error) { return false, nil }

type noPackages struct{}

func (noPackages) Installed(context.Context, string) (bool, error) { return false, nil }

type stubFingerprint struct{ fp detect.DeviceFingerprint }

func (s stubFingerprint) Fingerprint(context.Context) detect.DeviceFingerprint {
	return s.fp
}

func testChecker(rooted bool, fp detect.DeviceFingerprint) *detect.Checker {
	shell := stubShell{}
	if rooted {
		shell[detect.DefaultSuCommand] = "uid=0(root) gid=0(root)"
	}
	return detect.NewChecker(detect.CheckerDeps{
		Platform: func() detect.Platform { return detect.PlatformAndroid },
		Probes: detect.Probes{
			Shell:    shell,
			Props:    stubProps{"ro.secure": "1", "ro.debuggable": "0"},
			Files:    noFiles{},
			Packages: noPackages{},
		},
		Fingerprint: stubFingerprint{fp},
	})
}

func TestMain(m *testing.M) {
	logger.SetOutput(&bytes.Buffer{})
	os.Exit(m.Run())
}

func TestRunPolicyExitCode(t *testing.T) {
	cfg := config.DefaultConfig()
	var out bytes.Buffer

	if code := run(context.Background(), cfg, testChecker(true, detect.DeviceFingerprint{}), "policy", nil, &out); code != exitRestricted {
		t.Fatalf("rooted device: exit %d, want %d", code, exitRestricted)
	}
	if !strings.Contains(out.String(), "device is rooted: exec:su uid=0") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	emu := detect.DeviceFingerprint{Hardware: "ranchu"}
	if code := run(context.Background(), cfg, testChecker(false, emu), "policy", nil, &out); code != 0 {
		t.Fatalf("clean emulator: exit %d, want 0", code)
	}
}

func TestRunReportJSON(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), config.DefaultConfig(), testChecker(true, detect.DeviceFingerprint{Model: "Pixel 8"}), "report", []string{"--json"}, &out)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	var r detect.Report
	if err := json.Unmarshal(out.Bytes(), &r); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if !r.Root.Rooted || r.Fingerprint.Model != "Pixel 8" || r.ID == "" {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if code := run(context.Background(), config.DefaultConfig(), testChecker(false, detect.DeviceFingerprint{}), "bogus", nil, &bytes.Buffer{}); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
}

func TestRunWatchRejectsBadSchedule(t *testing.T) {
	code := run(context.Background(), config.DefaultConfig(), testChecker(false, detect.DeviceFingerprint{}), "watch", []string{"-schedule", "nonsense"}, &bytes.Buffer{})
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
}

func TestRunWatchRequiresEnabledMonitor(t *testing.T) {
	cfg := config.DefaultConfig()
	c := testChecker(false, detect.DeviceFingerprint{})

	if code := run(context.Background(), cfg, c, "watch", nil, &bytes.Buffer{}); code != 1 {
		t.Fatalf("disabled monitor: exit %d, want 1", code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg.Monitor.Enabled = true
	if code := run(ctx, cfg, c, "watch", nil, &bytes.Buffer{}); code != 0 {
		t.Fatalf("enabled monitor: exit %d, want 0", code)
	}

	cfg.Monitor.Enabled = false
	if code := run(ctx, cfg, c, "watch", []string{"-schedule", "0 * * * *"}, &bytes.Buffer{}); code != 0 {
		t.Fatalf("explicit schedule: exit %d, want 0", code)
	}
}

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.json")
	t.Setenv("DEVGUARD_CONFIG", path)

	cfg := config.DefaultConfig()
	cfg.Monitor.Enabled = true

	var out bytes.Buffer
	if code := run(context.Background(), cfg, nil, "config", []string{"-init"}, &out); code != 0 {
		t.Fatalf("exit %d", code)
	}
	loaded, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Monitor.Enabled {
		t.Fatal("written config lost monitor.enabled")
	}

	if code := run(context.Background(), cfg, nil, "config", []string{"-init"}, &out); code != 1 {
		t.Fatalf("existing file: exit %d, want 1", code)
	}
	if code := run(context.Background(), cfg, nil, "config", []string{"-init", "-force"}, &out); code != 0 {
		t.Fatalf("force: exit %d, want 0", code)
	}
}

func TestRunLogs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.FilePath = filepath.Join(t.TempDir(), "devguard.log")
	line := `{"level":"INFO","timestamp":"2026-03-01T12:00:00Z","component":"checker","message":"Device evaluated","fields":{"correlation_id":"abc"}}` + "\n"
	if err := os.WriteFile(cfg.Logging.FilePath, []byte(line), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	if code := run(context.Background(), cfg, nil, "logs", []string{"-id", "abc"}, &out); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out.String(), "Device evaluated") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	if code := run(context.Background(), cfg, nil, "logs", []string{"-id", "zzz"}, &out); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out.String(), "No log entries matched") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestDispatch(t *testing.T) {
	c := testChecker(false, detect.DeviceFingerprint{Fingerprint: "generic/sdk"})
	var out bytes.Buffer

	if dispatch(context.Background(), c, "emulator", &out) {
		t.Fatal("emulator should not quit")
	}
	if !strings.Contains(out.String(), "emulator=true fingerprint:generic") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	dispatch(context.Background(), c, "frobnicate", &out)
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("unexpected output %q", out.String())
	}

	if !dispatch(context.Background(), c, " EXIT ", &out) {
		t.Fatal("exit should quit")
	}
}
