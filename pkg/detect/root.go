package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sipeed/devguard/pkg/logger"
)

// DefaultSuspectPaths are su binaries and superuser APKs left behind by
// common rooting tools, in probe order.
var DefaultSuspectPaths = []string{
	"/system/bin/su",
	"/system/xbin/su",
	"/sbin/su",
	"/system/app/Superuser.apk",
	"/system/app/SuperSU.apk",
	"/system/app/Magisk.apk",
	"/data/local/su",
	"/data/local/bin/su",
	"/data/local/xbin/su",
	"/data/data/com.noshufou.android.su",
}

// DefaultSuspectPackages are root manager package ids, in probe order.
var DefaultSuspectPackages = []string{
	"com.topjohnwu.magisk",
	"eu.chainfire.supersu",
	"com.noshufou.android.su",
	"com.koushikdutta.superuser",
	"com.thirdparty.superuser",
}

const DefaultSuCommand = "su -c id"

var errMissingProbe = errors.New("probe not configured")

// Probes bundles the platform collaborators consumed by RootDetector.
type Probes struct {
	Shell    ShellRunner
	Props    PropertyReader
	Files    FileProbe
	Packages PackageProbe
}

type RootOption func(*RootDetector)

func WithSuspectPaths(paths []string) RootOption {
	return func(d *RootDetector) {
		d.suspectPaths = append([]string(nil), paths...)
	}
}

func WithSuspectPackages(pkgs []string) RootOption {
	return func(d *RootDetector) {
		d.suspectPackages = append([]string(nil), pkgs...)
	}
}

func WithSuCommand(command string) RootOption {
	return func(d *RootDetector) {
		if strings.TrimSpace(command) != "" {
			d.suCommand = command
		}
	}
}

// RootDetector runs an ordered battery of root checks and stops at the
// first positive one.
type RootDetector struct {
	probes          Probes
	platform        PlatformFunc
	suCommand       string
	suspectPaths    []string
	suspectPackages []string
}

func NewRootDetector(probes Probes, platform PlatformFunc, opts ...RootOption) *RootDetector {
	d := &RootDetector{
		probes:          probes,
		platform:        platform,
		suCommand:       DefaultSuCommand,
		suspectPaths:    DefaultSuspectPaths,
		suspectPackages: DefaultSuspectPackages,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type rootCheck struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func (d *RootDetector) checks() []rootCheck {
	return []rootCheck{
		{name: "su", run: d.checkSu},
		{name: "ro.secure", run: d.propEquals("ro.secure", "0")},
		{name: "ro.debuggable", run: d.propEquals("ro.debuggable", "1")},
		{name: "files", run: d.checkFiles},
		{name: "packages", run: d.checkPackages},
	}
}

// Evaluate never fails: a check whose probe errors counts as negative
// and the next check runs.
func (d *RootDetector) Evaluate(ctx context.Context) RootVerdict {
	if d.platform == nil || d.platform() != PlatformAndroid {
		return RootVerdict{}
	}

	for _, c := range d.checks() {
		reason, err := runRootCheck(ctx, c)
		if err != nil {
			logger.DebugCF("root", "Check failed, treating as negative",
				map[string]interface{}{
					"check":          c.name,
					"error":          err.Error(),
					"correlation_id": CorrelationID(ctx),
				})
			continue
		}
		if reason != "" {
			fields := map[string]interface{}{
				"check":          c.name,
				"reason":         reason,
				"correlation_id": CorrelationID(ctx),
			}
			if c.name == "su" {
				fields["command"] = d.suCommand
			}
			logger.InfoCF("root", "Root indicator found", fields)
			return RootVerdict{Rooted: true, Reason: reason}
		}
	}
	return RootVerdict{}
}

func runRootCheck(ctx context.Context, c rootCheck) (reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			reason = ""
			err = fmt.Errorf("%s check panicked: %v", c.name, r)
		}
	}()
	return c.run(ctx)
}

// checkSu names the capability in its reason, not the configured command;
// the command is logged with the hit.
func (d *RootDetector) checkSu(ctx context.Context) (string, error) {
	if d.probes.Shell == nil {
		return "", errMissingProbe
	}
	out, err := d.probes.Shell.Run(ctx, d.suCommand)
	if err != nil {
		return "", err
	}
	if strings.Contains(out, "uid=0") {
		return TagExec + "su uid=0", nil
	}
	return "", nil
}

func (d *RootDetector) propEquals(key, want string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if d.probes.Props == nil {
			return "", errMissingProbe
		}
		v, err := d.probes.Props.Property(ctx, key)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(v) == want {
			return TagProp + key + "=" + want, nil
		}
		return "", nil
	}
}

func (d *RootDetector) checkFiles(ctx context.Context) (string, error) {
	if d.probes.Files == nil {
		return "", errMissingProbe
	}
	for _, p := range d.suspectPaths {
		ok, err := d.probes.Files.Exists(p)
		if err != nil {
			logger.DebugCF("root", "Path probe failed",
				map[string]interface{}{
					"path":           p,
					"error":          err.Error(),
					"correlation_id": CorrelationID(ctx),
				})
			continue
		}
		if ok {
			return TagFile + p, nil
		}
	}
	return "", nil
}

func (d *RootDetector) checkPackages(ctx context.Context) (string, error) {
	if d.probes.Packages == nil {
		return "", errMissingProbe
	}
	for _, pkg := range d.suspectPackages {
		ok, err := d.probes.Packages.Installed(ctx, pkg)
		if err != nil {
			logger.DebugCF("root", "Package probe failed",
				map[string]interface{}{
					"package":        pkg,
					"error":          err.Error(),
					"correlation_id": CorrelationID(ctx),
				})
			continue
		}
		if ok {
			return TagPackage + pkg, nil
		}
	}
	return "", nil
}
