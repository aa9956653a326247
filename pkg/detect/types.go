package detect

import (
	"context"
	"fmt"
	"time"
)

// Platform identifies the kind of host the checker is running on.
type Platform int

const (
	PlatformOther Platform = iota
	PlatformAndroid
	// PlatformTrustedHost is a development workstation that is always
	// treated as an emulator.
	PlatformTrustedHost
)

func (p Platform) String() string {
	switch p {
	case PlatformAndroid:
		return "android"
	case PlatformTrustedHost:
		return "trusted-host"
	default:
		return "other"
	}
}

func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Platform) UnmarshalText(text []byte) error {
	switch string(text) {
	case "android":
		*p = PlatformAndroid
	case "trusted-host":
		*p = PlatformTrustedHost
	case "other":
		*p = PlatformOther
	default:
		return fmt.Errorf("unknown platform %q", text)
	}
	return nil
}

// Reason tag prefixes used by RootVerdict.
const (
	TagExec    = "exec:"
	TagProp    = "prop:"
	TagFile    = "file:"
	TagPackage = "package:"
)

// DeviceFingerprint holds the build metadata of the device. Fields that
// could not be read are empty.
type DeviceFingerprint struct {
	Fingerprint  string `json:"fingerprint"`
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	Brand        string `json:"brand"`
	Device       string `json:"device"`
	Product      string `json:"product"`
	Hardware     string `json:"hardware"`
	Tags         string `json:"tags"`
}

type RootVerdict struct {
	Rooted bool   `json:"rooted"`
	Reason string `json:"reason,omitempty"`
}

type EmulatorVerdict struct {
	Emulator bool   `json:"emulator"`
	Reason   string `json:"reason,omitempty"`
}

type PolicyDecision struct {
	Restrict bool   `json:"restrict"`
	Reason   string `json:"reason,omitempty"`
}

// HostInfo describes the running binary and how it was installed.
type HostInfo struct {
	Installer   string `json:"installer"`
	InstallMode string `json:"install_mode"`
	BuildID     string `json:"build_id"`
	Genuine     bool   `json:"genuine"`
}

// Report is a single evaluation snapshot.
type Report struct {
	ID          string            `json:"id"`
	Time        time.Time         `json:"time"`
	Platform    Platform          `json:"platform"`
	Host        HostInfo          `json:"host"`
	Fingerprint DeviceFingerprint `json:"fingerprint"`
	Root        RootVerdict       `json:"root"`
	Emulator    EmulatorVerdict   `json:"emulator"`
	Policy      PolicyDecision    `json:"policy"`
}

// ShellRunner runs a command line through the system shell and returns
// its combined output.
type ShellRunner interface {
	Run(ctx context.Context, command string) (string, error)
}

// PropertyReader reads a system property. The value is trimmed.
type PropertyReader interface {
	Property(ctx context.Context, key string) (string, error)
}

type FileProbe interface {
	Exists(path string) (bool, error)
}

type PackageProbe interface {
	Installed(ctx context.Context, pkg string) (bool, error)
}

type FingerprintReader interface {
	Fingerprint(ctx context.Context) DeviceFingerprint
}

type HostReporter interface {
	Host() HostInfo
}

// PlatformFunc reports the current platform. It is called on every
// evaluation.
type PlatformFunc func() Platform
