package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sipeed/devguard/pkg/android"
	"github.com/sipeed/devguard/pkg/config"
	"github.com/sipeed/devguard/pkg/detect"
	"github.com/sipeed/devguard/pkg/logger"
	"github.com/sipeed/devguard/pkg/logview"
	"github.com/sipeed/devguard/pkg/monitor"
	"github.com/sipeed/devguard/pkg/utils"
)

var version = "dev"

// exitRestricted is returned by "policy" when sensitive features should
// be restricted.
const exitRestricted = 2

func printHelp() {
	fmt.Println("devguard - root and emulator checks for Android")
	fmt.Println()
	fmt.Println("Usage: devguard <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  summary     Print the one-line diagnostic summary")
	fmt.Println("  root        Report whether the device is rooted and why")
	fmt.Println("  emulator    Report whether this is an emulator")
	fmt.Println("  policy      Decide whether to restrict sensitive features (exit 2 = restrict)")
	fmt.Println("  report      Print a full evaluation (--json for machine output)")
	fmt.Println("  watch       Re-evaluate on the monitor schedule and log changes (needs monitor.enabled or -schedule)")
	fmt.Println("  shell       Interactive prompt")
	fmt.Println("  logs        Show recent log entries")
	fmt.Println("  config      Print the effective configuration (-init writes it to the config file)")
	fmt.Println("  version     Show version information")
	fmt.Println()
	fmt.Println("Config: $DEVGUARD_CONFIG or " + config.DefaultPath)
}

func configPath() string {
	if p := os.Getenv("DEVGUARD_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath
}

func setupLogging(cfg *config.Config) {
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if !cfg.Logging.FileEnabled {
		return
	}
	if err := logger.EnableFileLogging(cfg.LogFilePath()); err != nil {
		logger.WarnCF("cli", "File logging unavailable",
			map[string]interface{}{"path": cfg.LogFilePath(), "error": err.Error()})
	}
}

func newChecker(cfg *config.Config) *detect.Checker {
	probes, fingerprint := android.NewProbes(cfg.ShellTimeout())
	return detect.NewChecker(detect.CheckerDeps{
		Platform:    utils.PlatformDetector(cfg.Detection.TrustedDevHost),
		Probes:      probes,
		Fingerprint: fingerprint,
		Host:        utils.Host{},
	}, cfg.RootOptions()...)
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "help", "-h", "--help":
		printHelp()
		return
	case "version", "--version", "-v":
		fmt.Printf("devguard %s\n", version)
		return
	}

	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, newChecker(cfg), command, os.Args[2:], os.Stdout)
	stop()
	logger.DisableFileLogging()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, checker *detect.Checker, command string, args []string, out io.Writer) int {
	switch command {
	case "summary":
		fmt.Fprintln(out, checker.DiagnosticSummary(ctx))
	case "root":
		v := checker.IsRooted(ctx)
		fmt.Fprintf(out, "rooted: %v\n", v.Rooted)
		if v.Rooted {
			fmt.Fprintf(out, "reason: %s\n", v.Reason)
		}
	case "emulator":
		v := checker.EmulatorVerdict(ctx)
		fmt.Fprintf(out, "emulator: %v\n", v.Emulator)
		if v.Emulator {
			fmt.Fprintf(out, "reason: %s\n", v.Reason)
		}
	case "policy":
		d := checker.ShouldRestrictSensitiveFeatures(ctx)
		fmt.Fprintf(out, "restrict: %v\n", d.Restrict)
		if d.Restrict {
			fmt.Fprintf(out, "reason: %s\n", d.Reason)
			return exitRestricted
		}
	case "report":
		return reportCmd(ctx, checker, args, out)
	case "watch":
		return watchCmd(ctx, cfg, checker, args, out)
	case "shell":
		return shellCmd(ctx, cfg, checker)
	case "logs":
		return logsCmd(cfg, args, out)
	case "config":
		return configCmd(cfg, args, out)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp()
		return 1
	}
	return 0
}

func reportCmd(ctx context.Context, checker *detect.Checker, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	r := checker.Evaluate(ctx)
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	writeReport(out, r)
	return 0
}

func writeReport(out io.Writer, r detect.Report) {
	fmt.Fprintf(out, "id:        %s\n", r.ID)
	fmt.Fprintf(out, "time:      %s\n", r.Time.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "platform:  %s\n", r.Platform)
	fmt.Fprintf(out, "build:     %s (%s, genuine=%v)\n", r.Host.BuildID, r.Host.InstallMode, r.Host.Genuine)
	fmt.Fprintf(out, "rooted:    %v %s\n", r.Root.Rooted, r.Root.Reason)
	fmt.Fprintf(out, "emulator:  %v %s\n", r.Emulator.Emulator, r.Emulator.Reason)
	fmt.Fprintf(out, "restrict:  %v %s\n", r.Policy.Restrict, r.Policy.Reason)
	if r.Platform == detect.PlatformAndroid {
		fmt.Fprintf(out, "model:     %s %s (%s)\n", r.Fingerprint.Manufacturer, r.Fingerprint.Model, r.Fingerprint.Device)
		fmt.Fprintf(out, "build fp:  %s\n", r.Fingerprint.Fingerprint)
	}
}

func watchCmd(ctx context.Context, cfg *config.Config, checker *detect.Checker, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	schedule := fs.String("schedule", cfg.Monitor.Schedule, "cron expression")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "schedule" {
			explicit = true
		}
	})
	if !cfg.Monitor.Enabled && !explicit {
		fmt.Fprintln(os.Stderr, "Monitor is disabled. Set monitor.enabled (DEVGUARD_MONITOR_ENABLED=true) or pass -schedule.")
		return 1
	}

	m, err := monitor.New(checker, *schedule, func(r detect.Report, changes []monitor.Change) {
		for _, c := range changes {
			fmt.Fprintf(out, "%s %s\n", r.Time.Format("15:04:05"), c)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := m.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func configCmd(cfg *config.Config, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	initFile := fs.Bool("init", false, "write the effective configuration to the config file")
	force := fs.Bool("force", false, "overwrite an existing config file with -init")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *initFile {
		path := configPath()
		if _, err := os.Stat(config.ExpandHome(path)); err == nil && !*force {
			fmt.Fprintf(os.Stderr, "Config file %s already exists (use -force to overwrite)\n", path)
			return 1
		}
		if err := config.SaveConfig(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			return 1
		}
		logger.InfoCF("cli", "Config written", map[string]interface{}{"path": path})
		fmt.Fprintf(out, "Wrote %s\n", path)
		return 0
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, string(data))
	return 0
}

func logsCmd(cfg *config.Config, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	lines := fs.Int("n", logview.DefaultLines, "number of entries")
	id := fs.String("id", "", "only entries for this correlation id")
	level := fs.String("level", "", "minimum level (DEBUG, INFO, WARN, ERROR)")
	keyword := fs.String("keyword", "", "only entries containing this keyword")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	entries, err := logview.Read(cfg.LogFilePath(), logview.Filter{
		Lines:         *lines,
		CorrelationID: *id,
		Keyword:       *keyword,
		MinLevel:      *level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read log file: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No log entries matched the filters.")
		return 0
	}
	fmt.Fprint(out, logview.Format(entries))
	return 0
}
