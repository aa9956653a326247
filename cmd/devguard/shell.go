package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sipeed/devguard/pkg/config"
	"github.com/sipeed/devguard/pkg/detect"
)

var shellCompleter = readline.NewPrefixCompleter(
	readline.PcItem("summary"),
	readline.PcItem("root"),
	readline.PcItem("emulator"),
	readline.PcItem("policy"),
	readline.PcItem("report"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func shellCmd(ctx context.Context, cfg *config.Config, checker *detect.Checker) int {
	history := cfg.HistoryPath()
	if history != "" {
		_ = os.MkdirAll(filepath.Dir(history), 0755)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cfg.Shell.Prompt,
		HistoryFile:     history,
		AutoComplete:    shellCompleter,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting shell: %v\n", err)
		return 1
	}
	defer rl.Close()

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return 0
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if dispatch(ctx, checker, line, rl.Stdout()) {
			return 0
		}
	}
	return 0
}

// dispatch runs one shell line and reports whether the shell should exit.
func dispatch(ctx context.Context, checker *detect.Checker, line string, out io.Writer) bool {
	switch cmd := strings.ToLower(strings.TrimSpace(line)); cmd {
	case "":
	case "exit", "quit":
		return true
	case "help", "?":
		fmt.Fprintln(out, "commands: summary, root, emulator, policy, report, help, exit")
	case "summary":
		fmt.Fprintln(out, checker.DiagnosticSummary(ctx))
	case "root":
		v := checker.IsRooted(ctx)
		fmt.Fprintf(out, "rooted=%v %s\n", v.Rooted, v.Reason)
	case "emulator":
		v := checker.EmulatorVerdict(ctx)
		fmt.Fprintf(out, "emulator=%v %s\n", v.Emulator, v.Reason)
	case "policy":
		d := checker.ShouldRestrictSensitiveFeatures(ctx)
		fmt.Fprintf(out, "restrict=%v %s\n", d.Restrict, d.Reason)
	case "report":
		writeReport(out, checker.Evaluate(ctx))
	default:
		fmt.Fprintf(out, "unknown command %q, try help\n", cmd)
	}
	return false
}
